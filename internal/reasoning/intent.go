// Package reasoning classifies a learner query: what kind of response it
// needs, how sure we are, and whether it continues the previous exchange.
package reasoning

import "fmt"

// Intent is the closed set of response kinds.
type Intent string

const (
	IntentFastAnswer Intent = "fast-answer"
	IntentExplain    Intent = "explain"
	IntentTutor      Intent = "tutor"
	IntentMath       Intent = "math-derivation"
	IntentSyllabus   Intent = "syllabus-query"
	IntentReject     Intent = "reject"
)

// Intents lists every intent in a stable order.
var Intents = []Intent{
	IntentFastAnswer, IntentExplain, IntentTutor, IntentMath, IntentSyllabus, IntentReject,
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentFastAnswer, IntentExplain, IntentTutor, IntentMath, IntentSyllabus, IntentReject:
		return true
	}
	return false
}

func (i Intent) String() string { return string(i) }

// ParseIntent converts a tag to an Intent. Unknown tags are an error.
func ParseIntent(s string) (Intent, error) {
	i := Intent(s)
	if !i.Valid() {
		return "", fmt.Errorf("unknown intent %q", s)
	}
	return i, nil
}

// Complexity is the estimated difficulty of the query.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Length is the target response size category.
type Length string

const (
	LengthShort    Length = "short"
	LengthMedium   Length = "medium"
	LengthDetailed Length = "detailed"
)

// Strategy is the teaching approach hint handed to the agents.
type Strategy string

const (
	StrategyDirect        Strategy = "direct"
	StrategyWorkedExample Strategy = "worked-example"
	StrategyRemedial      Strategy = "remedial"
	StrategySocratic      Strategy = "socratic"
	StrategySimplify      Strategy = "simplify"
	StrategyDerivation    Strategy = "derivation"
	StrategyLookup        Strategy = "lookup"
	StrategyRedirect      Strategy = "redirect"
)

// Source records which stage of the classifier chain produced the intent.
type Source string

const (
	SourceLLM       Source = "llm"
	SourceHeuristic Source = "heuristic"
	SourceDefault   Source = "default"
)
