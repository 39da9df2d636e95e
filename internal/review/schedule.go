// Package review decides which concepts a student should revisit. A concept
// moves up an expanding interval ladder with each correct answer in a row
// and is due again once its interval has passed since the last assessment.
package review

import "time"

// BaseIntervals defines the expanding interval schedule in days.
// Stage 0 = first review after the concept was last assessed.
var BaseIntervals = []int{1, 3, 7, 14, 30, 60}

// GraduationStage is the correct streak at which a concept graduates.
const GraduationStage = 6

// GraduatedIntervalDays is the review interval for graduated concepts.
const GraduatedIntervalDays = 90

// Status describes a concept's review status for display.
type Status string

const (
	StatusNotDue    Status = "not_due"
	StatusDue       Status = "due"
	StatusOverdue   Status = "overdue"
	StatusGraduated Status = "graduated"
)

// State is the review position of one concept.
type State struct {
	Stage          int
	Graduated      bool
	LastAssessed   time.Time
	NextReviewDate time.Time
}

// StateFor places a concept on the ladder from its correct streak.
func StateFor(streak int, lastAssessed time.Time) State {
	s := State{Stage: streak, LastAssessed: lastAssessed}
	if streak >= GraduationStage {
		s.Graduated = true
	}
	s.NextReviewDate = lastAssessed.AddDate(0, 0, s.IntervalDays())
	return s
}

// IntervalDays returns the current interval in days.
func (s State) IntervalDays() int {
	if s.Graduated {
		return GraduatedIntervalDays
	}
	if s.Stage >= len(BaseIntervals) {
		return BaseIntervals[len(BaseIntervals)-1]
	}
	if s.Stage < 0 {
		return BaseIntervals[0]
	}
	return BaseIntervals[s.Stage]
}

// IsDue reports whether the review date has been reached.
func (s State) IsDue(now time.Time) bool {
	return !now.Before(s.NextReviewDate)
}

// OverdueDays returns how many days past due the concept is, or 0.
func (s State) OverdueDays(now time.Time) float64 {
	if now.Before(s.NextReviewDate) {
		return 0
	}
	return now.Sub(s.NextReviewDate).Hours() / 24.0
}

// pastGrace reports whether the concept is more than half an interval
// past its review date.
func (s State) pastGrace(now time.Time) bool {
	if !s.IsDue(now) {
		return false
	}
	grace := time.Duration(float64(s.IntervalDays()) * 0.5 * 24 * float64(time.Hour))
	return now.After(s.NextReviewDate.Add(grace))
}

// Status returns the review status at now.
func (s State) Status(now time.Time) Status {
	switch {
	case s.pastGrace(now):
		return StatusOverdue
	case s.IsDue(now):
		return StatusDue
	case s.Graduated:
		return StatusGraduated
	}
	return StatusNotDue
}

// DaysUntilReview returns the number of days until the next review, or 0
// when already due.
func (s State) DaysUntilReview(now time.Time) int {
	if s.IsDue(now) {
		return 0
	}
	return int(s.NextReviewDate.Sub(now).Hours()/24.0) + 1
}
