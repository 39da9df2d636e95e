package agents

import (
	"context"
	"regexp"
	"strings"

	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
)

const tutorSystemPrompt = `You are a Socratic tutor for a university course. Help the student reason their way to understanding instead of handing over answers.

Rules:
- Connect to what the student already knows before asking anything.
- Ask one guiding question at a time.
- Hints nudge; they never give the answer away.
- Never write section or phase labels such as "Activation:" or "Hint:". Write natural sentences.
- Use plain text.`

const followUpSystemPrompt = `You are a Socratic tutor for a university course. The student did not follow your last explanation.

Rules:
- Restate only the single key idea, more simply than before.
- Add one everyday analogy.
- Finish with exactly one diagnostic question.
- Be brief. Never write labels such as "Key idea:" or "Analogy:".
- Use plain text.`

// Tutor guides the learner with questions. A first turn activates prior
// knowledge, asks an exploration question and offers a hint; a follow-up
// restates the key idea with an analogy and one diagnostic question.
type Tutor struct {
	deps *Deps
}

func (a *Tutor) Kind() Kind { return KindTutor }

type lessonOutput struct {
	Activation          string `json:"activation"`
	ExplorationQuestion string `json:"exploration_question"`
	Hint                string `json:"hint"`
}

type followUpOutput struct {
	KeyIdea            string `json:"key_idea"`
	Analogy            string `json:"analogy"`
	DiagnosticQuestion string `json:"diagnostic_question"`
}

func (a *Tutor) Respond(ctx context.Context, actx *Context) (*Draft, error) {
	query := actx.Text()
	draft := &Draft{Agent: KindTutor, Tier: actx.Tier, ScaffoldingLevel: 1}
	ps := a.deps.retrieve(ctx, actx, query, &draft.Notes)

	var b strings.Builder
	b.WriteString("Student: " + actx.Query.Text + "\n")
	if query != actx.Query.Text {
		b.WriteString("Meaning: " + query + "\n")
	}
	b.WriteString("\n")
	writeContext(&b, actx, ps)

	req := llm.Request{
		Messages:  a.deps.messages(actx, b.String()),
		MaxTokens: a.deps.Config.TutorMaxTokens,
	}

	if actx.Reasoning.IsFollowUp {
		req.System = followUpSystemPrompt
		req.Schema = FollowUpSchema
		var out followUpOutput
		if err := a.deps.generate(ctx, actx, KindTutor, req, &out); err != nil {
			return nil, err
		}
		question := prose.SingleQuestion(StripPhaseLabels(out.DiagnosticQuestion))
		if question == "" {
			question = defaultCheckIn(actx)
		}
		draft.Text = joinParagraphs(
			prose.DropQuestions(StripPhaseLabels(out.KeyIdea))+" "+prose.DropQuestions(StripPhaseLabels(out.Analogy)),
			question,
		)
	} else {
		req.System = tutorSystemPrompt
		req.Schema = LessonSchema
		var out lessonOutput
		if err := a.deps.generate(ctx, actx, KindTutor, req, &out); err != nil {
			return nil, err
		}
		question := prose.SingleQuestion(StripPhaseLabels(out.ExplorationQuestion))
		if question == "" {
			question = defaultCheckIn(actx)
		}
		draft.Text = joinParagraphs(
			refresher(actx),
			prose.DropQuestions(StripPhaseLabels(out.Activation)),
			question,
			prose.DropQuestions(StripPhaseLabels(out.Hint)),
		)
	}

	draft.Text = StripPhaseLabels(draft.Text)
	draft.Citations = citations(ps)
	return draft, nil
}

var phaseLabelPattern = regexp.MustCompile(`(?im)(^[ \t]*|[.!?][ \t]+)[*_#]*\s*(` + strings.Join([]string{
	`activation`,
	`activate prior knowledge`,
	`prior knowledge`,
	`(guided )?exploration( question)?`,
	`hint`,
	`key idea`,
	`analogy`,
	`diagnostic( question)?`,
	`check[- ]in`,
	`phase \d+`,
	`step \d+ ?\((activation|exploration|hint)\)`,
}, "|") + `)\s*[*_]*\s*:[*_]*[ \t]*`)

// HasPhaseLabels reports whether text contains a pedagogical phase label.
func HasPhaseLabels(text string) bool {
	return phaseLabelPattern.MatchString(text)
}

// StripPhaseLabels removes pedagogical phase labels such as "Activation:"
// that must never reach the learner.
func StripPhaseLabels(text string) string {
	out := phaseLabelPattern.ReplaceAllString(text, "$1")
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
