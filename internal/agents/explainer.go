package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
)

const explainSystemPrompt = `You are a teaching assistant for a university course. Explain the concept the student asks about.

Rules:
- Start with a plain definition. Never open with a question.
- Follow with one concrete example, then optional elaboration.
- End with exactly one short check-in question and ask nothing else.
- Ground the explanation in the course material when it is provided.
- Use plain text. No headings or section labels.`

// Explainer answers conceptual questions as definition, example,
// elaboration and a single check-in question.
type Explainer struct {
	deps *Deps
}

func (a *Explainer) Kind() Kind { return KindExplainer }

type explanationOutput struct {
	Definition  string `json:"definition"`
	Example     string `json:"example"`
	Elaboration string `json:"elaboration"`
	CheckIn     string `json:"check_in"`
}

func (a *Explainer) Respond(ctx context.Context, actx *Context) (*Draft, error) {
	query := actx.Text()
	draft := &Draft{Agent: KindExplainer, Tier: actx.Tier}
	ps := a.deps.retrieve(ctx, actx, query, &draft.Notes)

	var b strings.Builder
	b.WriteString("Question: " + query + "\n")
	if actx.Reasoning.IsFollowUp {
		b.WriteString("This is a follow-up to your previous explanation. Keep it brief and approach it from a different angle.\n")
	}
	fmt.Fprintf(&b, "Target length: %s\n\n", actx.Reasoning.Length)
	writeContext(&b, actx, ps)

	var out explanationOutput
	err := a.deps.generate(ctx, actx, KindExplainer, llm.Request{
		System:    explainSystemPrompt,
		Messages:  a.deps.messages(actx, b.String()),
		Schema:    ExplanationSchema,
		MaxTokens: a.deps.Config.ExplainMaxTokens,
	}, &out)
	if err != nil {
		return nil, err
	}

	draft.Text = assembleExplanation(out, actx)
	draft.Citations = citations(ps)
	return draft, nil
}

// assembleExplanation orders the parts and enforces the shape: the
// definition leads and the check-in is the only question.
func assembleExplanation(out explanationOutput, actx *Context) string {
	definition := prose.DropQuestions(out.Definition)
	if definition == "" && actx.Concept != nil {
		definition = actx.Concept.Description
	}
	definition = prose.TrimToSentences(definition, 1)
	example := prose.DropQuestions(out.Example)

	var elaboration string
	if !actx.Reasoning.IsFollowUp && actx.Reasoning.Length != reasoning.LengthShort {
		elaboration = prose.DropQuestions(out.Elaboration)
	}

	checkIn := prose.SingleQuestion(out.CheckIn)
	if checkIn == "" {
		checkIn = defaultCheckIn(actx)
	}

	return joinParagraphs(refresher(actx), definition, example, elaboration, checkIn)
}

// refresher is the one-line prerequisite reminder given before the
// definition when the learner has gaps.
func refresher(actx *Context) string {
	if len(actx.Gaps) == 0 {
		return ""
	}
	g := actx.Gaps[0]
	return fmt.Sprintf("Quick refresher first: %s", prose.First(g.Description))
}

func defaultCheckIn(actx *Context) string {
	if actx.Concept != nil {
		return fmt.Sprintf("Can you put %s into your own words?", actx.Concept.Name)
	}
	return "Can you put that into your own words?"
}
