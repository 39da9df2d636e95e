package quality

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
)

// Input is what a heuristic inspects.
type Input struct {
	Text     string
	Intent   reasoning.Intent
	FollowUp bool
	Band     Band
}

// Heuristic checks one property of a draft.
// Implementations should be stateless and safe for concurrent use.
type Heuristic interface {
	// Name returns a short identifier, e.g. "length-band".
	Name() string

	// Check returns nil if the draft passes.
	Check(in *Input) *Violation
}

// DefaultHeuristics returns the heuristic chain in evaluation order.
func DefaultHeuristics() []Heuristic {
	return []Heuristic{
		&LengthHeuristic{},
		&QuestionRatioHeuristic{},
		&OpeningHeuristic{},
		&ExampleHeuristic{},
		&PhaseLabelHeuristic{},
		&DiagnosticHeuristic{},
		&ArithmeticHeuristic{},
	}
}

// LengthHeuristic penalises drafts outside the length band, more the
// further they overrun.
type LengthHeuristic struct{}

func (h *LengthHeuristic) Name() string { return "length-band" }

func (h *LengthHeuristic) Check(in *Input) *Violation {
	n := prose.Len(in.Text)
	switch {
	case n > in.Band.Max:
		over := float64(n-in.Band.Max) / float64(in.Band.Max)
		return &Violation{
			Detail:      fmt.Sprintf("%d characters, band max %d", n, in.Band.Max),
			Penalty:     min(0.1+over*0.5, 0.5),
			Instruction: fmt.Sprintf("Shorten the answer to under %d characters.", in.Band.Max),
		}
	case n < in.Band.Min:
		return &Violation{
			Detail:      fmt.Sprintf("%d characters, band min %d", n, in.Band.Min),
			Penalty:     0.2,
			Instruction: fmt.Sprintf("Give a fuller answer of at least %d characters.", in.Band.Min),
		}
	}
	return nil
}

// QuestionRatioHeuristic penalises drafts that ask too much. Only the
// tutor may ask more than one question.
type QuestionRatioHeuristic struct{}

func (h *QuestionRatioHeuristic) Name() string { return "question-ratio" }

func (h *QuestionRatioHeuristic) Check(in *Input) *Violation {
	q := prose.Questions(in.Text)
	allowed, per := 1, 0.15
	if in.Intent == reasoning.IntentTutor {
		allowed, per = 2, 0.1
	}
	if q <= allowed {
		return nil
	}
	return &Violation{
		Detail:      fmt.Sprintf("%d questions, at most %d expected", q, allowed),
		Penalty:     min(per*float64(q-allowed), 0.45),
		Instruction: fmt.Sprintf("Ask at most %d question(s).", allowed),
	}
}

// OpeningHeuristic requires explanations to open with a statement.
type OpeningHeuristic struct{}

func (h *OpeningHeuristic) Name() string { return "opens-with-question" }

func (h *OpeningHeuristic) Check(in *Input) *Violation {
	if in.Intent != reasoning.IntentExplain {
		return nil
	}
	if !strings.HasSuffix(prose.First(in.Text), "?") {
		return nil
	}
	return &Violation{
		Detail:      "explanation opens with a question",
		Penalty:     0.3,
		Instruction: "Open with the definition, not a question.",
	}
}

var examplePattern = regexp.MustCompile(`(?i)\b(for example|for instance|example|imagine|suppose|consider|say we|like a|such as)\b|\be\.g\.|\d`)

// ExampleHeuristic requires a concrete example in explanations and
// derivations.
type ExampleHeuristic struct{}

func (h *ExampleHeuristic) Name() string { return "concrete-example" }

func (h *ExampleHeuristic) Check(in *Input) *Violation {
	if in.Intent != reasoning.IntentExplain && in.Intent != reasoning.IntentMath {
		return nil
	}
	if in.FollowUp || examplePattern.MatchString(in.Text) {
		return nil
	}
	return &Violation{
		Detail:      "no concrete example",
		Penalty:     0.15,
		Instruction: "Include one concrete example.",
	}
}

// PhaseLabelHeuristic catches tutoring phase labels that leaked into the
// answer.
type PhaseLabelHeuristic struct{}

func (h *PhaseLabelHeuristic) Name() string { return "phase-label" }

func (h *PhaseLabelHeuristic) Check(in *Input) *Violation {
	if in.Intent != reasoning.IntentTutor || !agents.HasPhaseLabels(in.Text) {
		return nil
	}
	return &Violation{
		Detail:      "phase label in answer",
		Penalty:     0.3,
		Instruction: `Remove labels such as "Activation:" or "Hint:" and write natural sentences.`,
	}
}

// DiagnosticHeuristic requires a tutoring follow-up to end on exactly one
// diagnostic question.
type DiagnosticHeuristic struct{}

func (h *DiagnosticHeuristic) Name() string { return "single-diagnostic" }

func (h *DiagnosticHeuristic) Check(in *Input) *Violation {
	if in.Intent != reasoning.IntentTutor || !in.FollowUp {
		return nil
	}
	if q := prose.Questions(in.Text); q == 1 && strings.HasSuffix(strings.TrimSpace(in.Text), "?") {
		return nil
	}
	return &Violation{
		Detail:      "follow-up does not end on a single diagnostic question",
		Penalty:     0.2,
		Instruction: "End with exactly one diagnostic question.",
	}
}
