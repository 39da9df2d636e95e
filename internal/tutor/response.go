package tutor

import (
	"time"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/policy"
	"github.com/AazainKhan/luminate-ai-sub000/internal/quality"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

// FinalResponse is the accepted answer to one turn plus what a caller
// needs to label it.
type FinalResponse struct {
	TurnID  string
	Text    string
	Sources []string

	Intent     reasoning.Intent
	Confidence float64
	Agent      agents.Kind
	Tier       llm.Tier
	IsFollowUp bool
	ConceptID  string

	// ModeLabel reads like "explanation mode (90% confidence)".
	ModeLabel string

	Decision quality.Decision
	Score    float64

	// Law is set when a policy law denied the query or the first draft.
	Law policy.Law

	Outcome student.InteractionOutcome

	// Notes are caveats to show with the answer.
	Notes    []string
	Degraded bool

	Trace []Step
}

// Step is one state visited while handling a turn.
type Step struct {
	Phase   Phase
	Detail  string
	Elapsed time.Duration
}
