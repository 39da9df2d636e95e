package agents

import (
	"context"
	"strings"

	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
	"github.com/AazainKhan/luminate-ai-sub000/internal/retrieval"
)

const fastSystemPrompt = `You are a teaching assistant for a university course. Answer the student's question directly in one to three sentences.

Rules:
- State the answer first. No preamble, no follow-up questions.
- Stay within the course material when it is provided.
- Use plain text. No headings or bullet points.`

// FastAnswer gives short direct answers. It retrieves course material only
// when the query names a course term.
type FastAnswer struct {
	deps *Deps
}

func (a *FastAnswer) Kind() Kind { return KindFastAnswer }

type fastOutput struct {
	Answer string `json:"answer"`
}

func (a *FastAnswer) Respond(ctx context.Context, actx *Context) (*Draft, error) {
	query := actx.Text()
	draft := &Draft{Agent: KindFastAnswer, Tier: actx.Tier}

	var ps []retrieval.Passage
	if a.deps.Course.IsCourseTerm(query) {
		ps = a.deps.retrieve(ctx, actx, query, &draft.Notes)
	}

	var b strings.Builder
	b.WriteString("Question: " + query + "\n\n")
	writeContext(&b, actx, ps)

	var out fastOutput
	err := a.deps.generate(ctx, actx, KindFastAnswer, llm.Request{
		System:    fastSystemPrompt,
		Messages:  a.deps.messages(actx, b.String()),
		Schema:    FastAnswerSchema,
		MaxTokens: a.deps.Config.FastMaxTokens,
	}, &out)
	if err != nil {
		return nil, err
	}

	draft.Text = prose.TrimToSentences(prose.DropQuestions(out.Answer), 3)
	if draft.Text == "" {
		draft.Text = strings.TrimSpace(out.Answer)
	}
	draft.Citations = citations(ps)
	return draft, nil
}
