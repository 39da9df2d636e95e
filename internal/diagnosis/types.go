package diagnosis

import "github.com/AazainKhan/luminate-ai-sub000/internal/course"

// Category classifies a learner's reply.
type Category string

const (
	CategoryMisconception Category = "misconception"
	CategoryConfusion     Category = "confusion"
	CategoryCorrect       Category = "correct"
	CategoryIncorrect     Category = "incorrect"
	CategoryPassive       Category = "passive"
)

// ClassifyInput holds the context for classifying one learner message.
type ClassifyInput struct {
	ConceptID string

	// Reply is the learner's message for this turn.
	Reply string

	// PriorAssistant is the assistant message the learner is replying to,
	// empty on a first turn.
	PriorAssistant string

	// CheckInConcepts are the concepts the prior assistant message was
	// about; Mentions are the concepts named in the reply.
	CheckInConcepts []string
	Mentions        []string

	Concept *course.Concept
}

// Result is the outcome of classifying a reply.
type Result struct {
	Category        Category
	MisconceptionID string  // set only for CategoryMisconception
	Confidence      float64 // 0.0-1.0
	ClassifierName  string
	Reasoning       string // LLM reasoning, empty for rules
}
