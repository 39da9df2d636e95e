package student

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/diagnosis"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

// RetryQueue accepts persistence work that failed and retries it later.
type RetryQueue interface {
	Retry(name string, op func(ctx context.Context) error)
}

// Model is the knowledge-tracing student model. Each student has one slot
// holding their records; all reads and writes for a student go through the
// slot's lock, so updates for one student are serialized while different
// students proceed independently.
type Model struct {
	cfg      Config
	course   *course.Course
	registry *diagnosis.Registry
	repo     store.MasteryRepo
	retry    RetryQueue
	logger   *zap.Logger
	now      func() time.Time

	slots sync.Map // student ID -> *slot
}

type slot struct {
	mu             sync.Mutex
	loaded         bool
	mastery        map[string]*MasteryRecord
	misconceptions map[string]*MisconceptionRecord
}

// Option configures a Model.
type Option func(*Model)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithRetryQueue routes failed writes to q.
func WithRetryQueue(q RetryQueue) Option {
	return func(m *Model) { m.retry = q }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewModel creates a student model backed by repo.
func NewModel(cfg Config, c *course.Course, registry *diagnosis.Registry, repo store.MasteryRepo, opts ...Option) *Model {
	m := &Model{
		cfg:      cfg,
		course:   c,
		registry: registry,
		repo:     repo,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetRetryQueue routes failed writes to q. It must be called before the
// model is shared.
func (m *Model) SetRetryQueue(q RetryQueue) {
	m.retry = q
}

// Config returns the model's constants.
func (m *Model) Config() Config {
	return m.cfg
}

// acquire locks and returns the student's slot, loading it from the repo
// on first use.
func (m *Model) acquire(ctx context.Context, studentID string) (*slot, error) {
	v, _ := m.slots.LoadOrStore(studentID, &slot{})
	s := v.(*slot)
	s.mu.Lock()
	if s.loaded {
		return s, nil
	}
	if err := m.load(ctx, studentID, s); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return s, nil
}

func (m *Model) load(ctx context.Context, studentID string, s *slot) error {
	s.mastery = make(map[string]*MasteryRecord)
	s.misconceptions = make(map[string]*MisconceptionRecord)

	rows, err := m.repo.ListMastery(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load mastery for %s: %w", studentID, err)
	}
	for _, r := range rows {
		s.mastery[r.ConceptID] = &MasteryRecord{
			StudentID:      r.StudentID,
			ConceptID:      r.ConceptID,
			Mastery:        r.Mastery,
			DecayFactor:    r.DecayFactor,
			CorrectStreak:  r.CorrectStreak,
			LastAssessedAt: r.LastAssessedAt,
		}
	}

	mrows, err := m.repo.ListMisconceptions(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load misconceptions for %s: %w", studentID, err)
	}
	for _, r := range mrows {
		s.misconceptions[r.MisconceptionID] = &MisconceptionRecord{
			StudentID:       r.StudentID,
			MisconceptionID: r.MisconceptionID,
			ConceptID:       r.ConceptID,
			DetectionCount:  r.DetectionCount,
			CorrectStreak:   r.CorrectStreak,
			Priority:        r.Priority,
			Resolved:        r.Resolved,
			FirstDetectedAt: r.FirstDetectedAt,
			LastDetectedAt:  r.LastDetectedAt,
			ResolvedAt:      r.ResolvedAt,
		}
	}

	s.loaded = true
	return nil
}

// effective returns the decayed mastery of rec at now, or the prior for a
// missing record.
func (m *Model) effective(rec *MasteryRecord, now time.Time) float64 {
	if rec == nil {
		return m.cfg.PriorMastery
	}
	if rec.LastAssessedAt == nil {
		return clamp(rec.Mastery)
	}
	return Decay(rec.Mastery, now.Sub(*rec.LastAssessedAt), m.cfg.HalfLife, rec.DecayFactor)
}

// EstimateMastery returns the decayed mastery of a concept. It does not
// modify any state.
func (m *Model) EstimateMastery(ctx context.Context, studentID, conceptID string) (float64, error) {
	s, err := m.acquire(ctx, studentID)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	return m.effective(s.mastery[conceptID], m.now()), nil
}

// UpdateMastery applies one performance signal and returns the new
// mastery. Correct and incorrect updates move mastery by at most MaxStep
// of the remaining distance; passive turns only create the record. The
// same signal advances or resets the resolution streak of the concept's
// open misconceptions.
func (m *Model) UpdateMastery(ctx context.Context, studentID, conceptID string, perf Performance) (float64, error) {
	if err := perf.validate(); err != nil {
		return 0, err
	}
	if _, err := m.course.Concept(conceptID); err != nil {
		return 0, err
	}

	s, err := m.acquire(ctx, studentID)
	if err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	now := m.now()
	rec := s.mastery[conceptID]
	current := m.effective(rec, now)
	if rec == nil {
		rec = &MasteryRecord{
			StudentID:   studentID,
			ConceptID:   conceptID,
			Mastery:     current,
			DecayFactor: 1,
		}
		s.mastery[conceptID] = rec
	}

	switch perf.Outcome {
	case OutcomePassive:
		m.saveMastery(ctx, rec, now)
		return current, nil
	case OutcomeCorrect:
		rec.Mastery = clamp(current + m.cfg.correctDelta(current, perf))
		rec.CorrectStreak++
		rec.DecayFactor = min(m.cfg.MaxDecayFactor, max(1, rec.DecayFactor)*m.cfg.SpacingGrowth)
		m.advanceMisconceptions(ctx, s, conceptID, now)
	case OutcomeIncorrect:
		rec.Mastery = clamp(current - m.cfg.incorrectDelta(current, perf))
		rec.CorrectStreak = 0
		rec.DecayFactor = 1
		m.resetMisconceptionStreaks(ctx, s, conceptID)
	}
	assessed := now
	rec.LastAssessedAt = &assessed
	m.saveMastery(ctx, rec, now)

	m.logger.Debug("mastery updated",
		zap.String("student", studentID),
		zap.String("concept", conceptID),
		zap.String("outcome", string(perf.Outcome)),
		zap.Float64("before", current),
		zap.Float64("after", rec.Mastery))
	return rec.Mastery, nil
}

// PrerequisiteGaps returns the direct prerequisites of conceptID whose
// effective mastery is below the foundation threshold.
func (m *Model) PrerequisiteGaps(ctx context.Context, studentID, conceptID string) ([]course.Concept, error) {
	if _, err := m.course.Concept(conceptID); err != nil {
		return nil, err
	}
	prereqs := m.course.Prerequisites(conceptID)
	if len(prereqs) == 0 {
		return nil, nil
	}

	s, err := m.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	now := m.now()
	var gaps []course.Concept
	for _, p := range prereqs {
		if m.effective(s.mastery[p.ID], now) < m.cfg.FoundationThreshold {
			gaps = append(gaps, p)
		}
	}
	return gaps, nil
}

// Snapshot returns every mastery record of a student with its effective
// value, ordered by concept ID.
func (m *Model) Snapshot(ctx context.Context, studentID string) ([]MasteryEstimate, error) {
	s, err := m.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	now := m.now()
	out := make([]MasteryEstimate, 0, len(s.mastery))
	for _, rec := range s.mastery {
		out = append(out, MasteryEstimate{MasteryRecord: *rec, Effective: m.effective(rec, now)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConceptID < out[j].ConceptID })
	return out, nil
}

// Forget drops the in-memory slot of a student so the next access reloads
// from the repo.
func (m *Model) Forget(studentID string) {
	m.slots.Delete(studentID)
}

func (m *Model) saveMastery(ctx context.Context, rec *MasteryRecord, now time.Time) {
	row := store.MasteryRow{
		StudentID:      rec.StudentID,
		ConceptID:      rec.ConceptID,
		Mastery:        rec.Mastery,
		DecayFactor:    rec.DecayFactor,
		CorrectStreak:  rec.CorrectStreak,
		LastAssessedAt: rec.LastAssessedAt,
		UpdatedAt:      now,
	}
	m.persist(ctx, "mastery "+rec.StudentID+"/"+rec.ConceptID, func(ctx context.Context) error {
		return m.repo.UpsertMastery(ctx, row)
	})
}

// persist writes through to the repo. A failed write never fails the
// update; it goes to the retry queue.
func (m *Model) persist(ctx context.Context, name string, op func(ctx context.Context) error) {
	err := op(context.WithoutCancel(ctx))
	if err == nil {
		return
	}
	if m.retry != nil {
		m.logger.Warn("student write failed, queued for retry", zap.String("record", name), zap.Error(err))
		m.retry.Retry(name, op)
		return
	}
	m.logger.Error("student write failed", zap.String("record", name), zap.Error(err))
}
