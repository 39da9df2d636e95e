package reasoning

import (
	"context"
)

// Classification is the result of one classifier in the chain.
type Classification struct {
	Intent     Intent
	Confidence float64
	Complexity Complexity
	Topic      string

	Implementation bool

	Alternative           Intent
	AlternativeConfidence float64

	// Strong marks a heuristic rule precise enough to be trusted above
	// the routing threshold on its own.
	Strong bool
	Rule   string
}

// Request is what a classifier sees.
type Request struct {
	Text       string // contextualized for follow-ups
	Original   string
	Signals    Signals
	IsFollowUp bool
	Input      Input
}

// Classifier is one stage of the classification chain. A nil result with
// a nil error means the stage had no signal.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, req *Request) (*Classification, error)
}

// HeuristicClassifier classifies from surface signals with ordered
// keyword rules. It never fails.
type HeuristicClassifier struct{}

func (HeuristicClassifier) Name() string { return "heuristic" }

type heuristicRule struct {
	name   string
	match  func(s Signals, followUp bool) bool
	intent Intent
	conf   float64
	strong bool
}

// heuristicRules are tried in order; the first match wins.
var heuristicRules = []heuristicRule{
	{
		name:   "graded-solution",
		match:  func(s Signals, _ bool) bool { return s.Graded && (s.Code || s.Solution) },
		intent: IntentTutor, conf: 0.8, strong: true,
	},
	{
		name: "logistics",
		match: func(s Signals, _ bool) bool {
			return s.Syllabus && !s.Math && (len(s.Concepts) == 0 || s.Logistics)
		},
		intent: IntentSyllabus, conf: 0.85, strong: true,
	},
	{
		name:   "brevity",
		match:  func(s Signals, _ bool) bool { return s.Brevity },
		intent: IntentFastAnswer, conf: 0.85, strong: true,
	},
	{
		name:   "confusion",
		match:  func(s Signals, _ bool) bool { return s.Confusion || s.Socratic },
		intent: IntentTutor, conf: 0.8, strong: true,
	},
	{
		name:   "math",
		match:  func(s Signals, _ bool) bool { return s.Math },
		intent: IntentMath, conf: 0.75, strong: true,
	},
	{
		name:   "follow-up-negation",
		match:  func(s Signals, followUp bool) bool { return followUp && s.Negation },
		intent: IntentTutor, conf: 0.6,
	},
	{
		name:   "follow-up-affirmation",
		match:  func(s Signals, followUp bool) bool { return followUp && s.Affirmation },
		intent: IntentFastAnswer, conf: 0.5,
	},
	{
		name: "follow-up-answer",
		match: func(s Signals, followUp bool) bool {
			return followUp && !s.Question && len(s.Concepts) > 0
		},
		intent: IntentTutor, conf: 0.6,
	},
	{
		name: "concept-question",
		match: func(s Signals, _ bool) bool {
			return len(s.Concepts) > 0 && (s.Definition || s.Elaboration || s.Code)
		},
		intent: IntentExplain, conf: 0.6,
	},
	{
		name:   "bare-concept",
		match:  func(s Signals, _ bool) bool { return len(s.Concepts) > 0 && s.Words <= 4 },
		intent: IntentFastAnswer, conf: 0.5,
	},
	{
		name:   "generic-question",
		match:  func(s Signals, _ bool) bool { return s.Definition || s.Elaboration },
		intent: IntentExplain, conf: 0.45,
	},
}

func (HeuristicClassifier) Classify(_ context.Context, req *Request) (*Classification, error) {
	s := req.Signals
	for _, r := range heuristicRules {
		if !r.match(s, req.IsFollowUp) {
			continue
		}
		return &Classification{
			Intent:         r.intent,
			Confidence:     r.conf,
			Complexity:     heuristicComplexity(s),
			Implementation: s.Code,
			Strong:         r.strong,
			Rule:           r.name,
		}, nil
	}
	return nil, nil
}

func heuristicComplexity(s Signals) Complexity {
	switch {
	case s.Brevity || s.Words <= 4:
		return ComplexityLow
	case len(s.Concepts) >= 2 || s.Words > 25:
		return ComplexityHigh
	}
	return ComplexityMedium
}
