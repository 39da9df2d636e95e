package student

import (
	"errors"
	"time"
)

// ErrInvalidPerformance is returned for a performance signal outside its
// domain.
var ErrInvalidPerformance = errors.New("invalid performance")

// Outcome is the kind of evidence a turn provides.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomePassive   Outcome = "passive"
)

// Performance is the evidence from one interaction.
type Performance struct {
	Outcome Outcome

	// Confidence is the competence signal of the turn, 0-1. A confident
	// correct answer raises mastery more; a low-confidence wrong answer
	// lowers it more.
	Confidence float64

	// ScaffoldingLevel counts the hints the learner needed, 0 for none.
	ScaffoldingLevel int
}

func (p Performance) validate() error {
	switch p.Outcome {
	case OutcomeCorrect, OutcomeIncorrect, OutcomePassive:
	default:
		return errors.Join(ErrInvalidPerformance, errors.New("unknown outcome "+string(p.Outcome)))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return errors.Join(ErrInvalidPerformance, errors.New("confidence must be in [0, 1]"))
	}
	if p.ScaffoldingLevel < 0 {
		return errors.Join(ErrInvalidPerformance, errors.New("scaffolding level must be >= 0"))
	}
	return nil
}

// MasteryRecord is the stored estimate for one (student, concept).
type MasteryRecord struct {
	StudentID      string
	ConceptID      string
	Mastery        float64 // stored value, before decay
	DecayFactor    float64
	CorrectStreak  int
	LastAssessedAt *time.Time
}

// MasteryEstimate pairs a record with its decayed value at a point in time.
type MasteryEstimate struct {
	MasteryRecord
	Effective float64
}

// MisconceptionRecord tracks one misconception for one student.
type MisconceptionRecord struct {
	StudentID       string
	MisconceptionID string
	ConceptID       string
	DetectionCount  int
	CorrectStreak   int
	Priority        bool
	Resolved        bool
	FirstDetectedAt time.Time
	LastDetectedAt  time.Time
	ResolvedAt      *time.Time
}

// InteractionType is the kind of turn recorded in the interaction log.
type InteractionType string

const (
	InteractionQuestion          InteractionType = "question"
	InteractionQuizAttempt       InteractionType = "quiz-attempt"
	InteractionExplanationViewed InteractionType = "explanation-viewed"
)

// InteractionOutcome is the logged outcome of a turn.
type InteractionOutcome string

const (
	LogCorrect           InteractionOutcome = "correct"
	LogIncorrect         InteractionOutcome = "incorrect"
	LogConfusionDetected InteractionOutcome = "confusion-detected"
	LogPassive           InteractionOutcome = "passive"
	LogPolicyDenied      InteractionOutcome = "policy-denied"
)

// InteractionEntry is one write-once line of the interaction log.
type InteractionEntry struct {
	ID               string
	StudentID        string
	TurnID           string
	Type             InteractionType
	ConceptID        string
	Outcome          InteractionOutcome
	Intent           string
	Agent            string
	ScaffoldingLevel int
	Detail           string
	CreatedAt        time.Time
}
