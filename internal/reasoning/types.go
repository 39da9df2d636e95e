package reasoning

import (
	"time"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
)

// Input is what the engine reasons over.
type Input struct {
	Query conversation.Query

	// Mastery holds the learner's effective mastery per concept ID.
	// Missing concepts are at the prior.
	Mastery map[string]float64
}

// Output is the structured classification of one query.
type Output struct {
	Intent     Intent
	Confidence float64

	TopicDomain string
	ConceptID   string
	Complexity  Complexity
	Strategy    Strategy
	Length      Length

	IsFollowUp bool
	// ContextualizedQuery is set for follow-ups: the learner's wording
	// with the reference to the prior topic made explicit.
	ContextualizedQuery string

	// Implementation is set when the learner wants help writing code.
	Implementation bool

	// GradedItemID names the assessment the query refers to, if any.
	GradedItemID string

	// Alternative is the runner-up intent, used by the router's tie rule.
	Alternative           Intent
	AlternativeConfidence float64

	// NeedsScrutiny marks a default classification the quality gate
	// should trust less.
	NeedsScrutiny bool
	Source        Source

	Signals Signals
}

// EffectiveQuery returns the contextualized query for a follow-up and
// original otherwise.
func (o Output) EffectiveQuery(original string) string {
	if o.IsFollowUp && o.ContextualizedQuery != "" {
		return o.ContextualizedQuery
	}
	return original
}

// Config holds the engine's tunables.
type Config struct {
	// RoutingThreshold is the confidence at which the router trusts the
	// intent. Heuristic-only results stay below it unless a strong rule
	// fired.
	RoutingThreshold float64 `yaml:"routing_threshold"`

	// HeuristicCap bounds the confidence of a weak heuristic result.
	HeuristicCap float64 `yaml:"heuristic_cap"`

	// MinConfidence is assigned to the default classification.
	MinConfidence float64 `yaml:"min_confidence"`

	AgreementBonus      float64 `yaml:"agreement_bonus"`
	DisagreementPenalty float64 `yaml:"disagreement_penalty"`

	// FollowUpMaxWords is the length at or below which a query counts as
	// short for follow-up detection.
	FollowUpMaxWords int `yaml:"follow_up_max_words"`

	// ExplanationMinChars is the length at which a single-sentence
	// assistant turn still counts as an explanation.
	ExplanationMinChars int `yaml:"explanation_min_chars"`

	// FoundationThreshold is the prerequisite mastery below which the
	// strategy becomes remedial.
	FoundationThreshold float64 `yaml:"foundation_threshold"`

	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`

	MaxTokens int `yaml:"max_tokens"`
}

// DefaultConfig returns the default engine tunables.
func DefaultConfig() Config {
	return Config{
		RoutingThreshold:    0.7,
		HeuristicCap:        0.65,
		MinConfidence:       0.1,
		AgreementBonus:      0.1,
		DisagreementPenalty: 0.15,
		FollowUpMaxWords:    6,
		ExplanationMinChars: 120,
		FoundationThreshold: 0.5,
		BreakerThreshold:    3,
		BreakerCooldown:     30 * time.Second,
		MaxTokens:           300,
	}
}
