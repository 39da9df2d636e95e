package review

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

// Source is the slice of the student model the planner reads.
type Source interface {
	Snapshot(ctx context.Context, studentID string) ([]student.MasteryEstimate, error)
	OpenMisconceptions(ctx context.Context, studentID, conceptID string) ([]student.MisconceptionRecord, error)
}

// Config tunes which concepts are suggested.
type Config struct {
	// WeakBelow suggests any concept whose effective mastery is under it,
	// whatever its schedule.
	WeakBelow float64 `yaml:"weak_below"`

	// Limit caps the number of suggestions. 0 means no cap.
	Limit int `yaml:"limit"`
}

// DefaultConfig returns the default planner configuration.
func DefaultConfig() Config {
	return Config{WeakBelow: 0.5, Limit: 5}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.WeakBelow < 0 || c.WeakBelow > 1 {
		return fmt.Errorf("review: weak_below %.2f out of range [0,1]", c.WeakBelow)
	}
	if c.Limit < 0 {
		return fmt.Errorf("review: limit must not be negative")
	}
	return nil
}

// Item is one suggested concept.
type Item struct {
	ConceptID string
	Name      string
	Week      int
	Effective float64
	State     State
	Status    Status

	// OpenMisconceptions counts unresolved misconceptions on the concept.
	OpenMisconceptions int
	Reason             string

	overdue float64
}

// Planner suggests what a student should review next.
type Planner struct {
	course *course.Course
	src    Source
	cfg    Config
	logger *zap.Logger
}

// NewPlanner creates a Planner.
func NewPlanner(c *course.Course, src Source, cfg Config, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{course: c, src: src, cfg: cfg, logger: logger}
}

// Plan returns the concepts the student should revisit at now: those with
// open misconceptions first, then the most overdue, then the weakest.
func (p *Planner) Plan(ctx context.Context, studentID string, now time.Time) ([]Item, error) {
	snap, err := p.src.Snapshot(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var items []Item
	for _, m := range snap {
		if m.LastAssessedAt == nil {
			continue
		}
		open, err := p.src.OpenMisconceptions(ctx, studentID, m.ConceptID)
		if err != nil {
			return nil, err
		}

		st := StateFor(m.CorrectStreak, *m.LastAssessedAt)
		it := Item{
			ConceptID:          m.ConceptID,
			Name:               m.ConceptID,
			Effective:          m.Effective,
			State:              st,
			Status:             st.Status(now),
			OpenMisconceptions: len(open),
			overdue:            st.OverdueDays(now),
		}
		if c, err := p.course.Concept(m.ConceptID); err == nil {
			it.Name = c.Name
			it.Week = c.Week
		}

		switch {
		case it.OpenMisconceptions > 0:
			it.Reason = fmt.Sprintf("%d open misconception(s)", it.OpenMisconceptions)
		case it.Status == StatusOverdue:
			it.Reason = fmt.Sprintf("overdue by %.0f days", it.overdue)
		case it.Status == StatusDue:
			it.Reason = "due for review"
		case it.Effective < p.cfg.WeakBelow:
			it.Reason = fmt.Sprintf("mastery %.0f%%", it.Effective*100)
		default:
			continue
		}
		items = append(items, it)
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.OpenMisconceptions != b.OpenMisconceptions {
			return a.OpenMisconceptions > b.OpenMisconceptions
		}
		if a.overdue != b.overdue {
			return a.overdue > b.overdue
		}
		if a.Effective != b.Effective {
			return a.Effective < b.Effective
		}
		return a.ConceptID < b.ConceptID
	})
	if p.cfg.Limit > 0 && len(items) > p.cfg.Limit {
		items = items[:p.cfg.Limit]
	}

	p.logger.Debug("review plan", zap.String("student", studentID), zap.Int("items", len(items)))
	return items, nil
}
