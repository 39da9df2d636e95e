package student

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

// DetectMisconception matches answer against the misconception registry
// of conceptID. On a match the detection is recorded and its ID returned.
func (m *Model) DetectMisconception(ctx context.Context, studentID, conceptID, answer string) (string, bool, error) {
	if m.registry == nil {
		return "", false, nil
	}
	mc := m.registry.Match(conceptID, answer)
	if mc == nil {
		return "", false, nil
	}
	if _, err := m.RecordMisconception(ctx, studentID, conceptID, mc.ID); err != nil {
		return "", false, err
	}
	return mc.ID, true, nil
}

// RecordMisconception counts one detection. A resolved misconception is
// reopened, and the resolution streak starts over.
func (m *Model) RecordMisconception(ctx context.Context, studentID, conceptID, misconceptionID string) (MisconceptionRecord, error) {
	if m.registry != nil && m.registry.Get(misconceptionID) == nil {
		return MisconceptionRecord{}, fmt.Errorf("unknown misconception %q", misconceptionID)
	}

	s, err := m.acquire(ctx, studentID)
	if err != nil {
		return MisconceptionRecord{}, err
	}
	defer s.mu.Unlock()

	now := m.now()
	rec := s.misconceptions[misconceptionID]
	if rec == nil {
		rec = &MisconceptionRecord{
			StudentID:       studentID,
			MisconceptionID: misconceptionID,
			ConceptID:       conceptID,
			FirstDetectedAt: now,
		}
		s.misconceptions[misconceptionID] = rec
	}
	rec.DetectionCount++
	rec.CorrectStreak = 0
	rec.LastDetectedAt = now
	if rec.Resolved {
		rec.Resolved = false
		rec.ResolvedAt = nil
	}
	if conceptID != "" {
		rec.ConceptID = conceptID
	}
	rec.Priority = rec.DetectionCount >= m.cfg.PriorityThreshold

	m.logger.Info("misconception detected",
		zap.String("student", studentID),
		zap.String("misconception", misconceptionID),
		zap.Int("count", rec.DetectionCount),
		zap.Bool("priority", rec.Priority))

	m.saveMisconception(ctx, rec)
	return *rec, nil
}

// advanceMisconceptions moves every open misconception of a concept one
// step toward resolution. Callers hold the slot lock.
func (m *Model) advanceMisconceptions(ctx context.Context, s *slot, conceptID string, now time.Time) {
	for _, rec := range s.misconceptions {
		if rec.Resolved || rec.ConceptID != conceptID {
			continue
		}
		rec.CorrectStreak++
		if rec.CorrectStreak >= m.cfg.ResolutionStreak {
			resolved := now
			rec.Resolved = true
			rec.ResolvedAt = &resolved
			rec.Priority = false
			m.logger.Info("misconception resolved",
				zap.String("student", rec.StudentID),
				zap.String("misconception", rec.MisconceptionID))
		}
		m.saveMisconception(ctx, rec)
	}
}

// resetMisconceptionStreaks breaks the resolution streak of a concept's
// open misconceptions. Callers hold the slot lock.
func (m *Model) resetMisconceptionStreaks(ctx context.Context, s *slot, conceptID string) {
	for _, rec := range s.misconceptions {
		if rec.Resolved || rec.ConceptID != conceptID || rec.CorrectStreak == 0 {
			continue
		}
		rec.CorrectStreak = 0
		m.saveMisconception(ctx, rec)
	}
}

// Misconceptions returns all misconception records of a student, most
// detected first.
func (m *Model) Misconceptions(ctx context.Context, studentID string) ([]MisconceptionRecord, error) {
	s, err := m.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	out := make([]MisconceptionRecord, 0, len(s.misconceptions))
	for _, rec := range s.misconceptions {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DetectionCount != out[j].DetectionCount {
			return out[i].DetectionCount > out[j].DetectionCount
		}
		return out[i].MisconceptionID < out[j].MisconceptionID
	})
	return out, nil
}

// Misconception returns one record, or nil if never detected.
func (m *Model) Misconception(ctx context.Context, studentID, misconceptionID string) (*MisconceptionRecord, error) {
	s, err := m.acquire(ctx, studentID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	rec, ok := s.misconceptions[misconceptionID]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

// OpenMisconceptions returns the unresolved misconceptions of a concept,
// priority ones first.
func (m *Model) OpenMisconceptions(ctx context.Context, studentID, conceptID string) ([]MisconceptionRecord, error) {
	all, err := m.Misconceptions(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var out []MisconceptionRecord
	for _, rec := range all {
		if !rec.Resolved && rec.ConceptID == conceptID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority && !out[j].Priority })
	return out, nil
}

func (m *Model) saveMisconception(ctx context.Context, rec *MisconceptionRecord) {
	row := store.MisconceptionRow{
		StudentID:       rec.StudentID,
		MisconceptionID: rec.MisconceptionID,
		ConceptID:       rec.ConceptID,
		DetectionCount:  rec.DetectionCount,
		CorrectStreak:   rec.CorrectStreak,
		Priority:        rec.Priority,
		Resolved:        rec.Resolved,
		FirstDetectedAt: rec.FirstDetectedAt,
		LastDetectedAt:  rec.LastDetectedAt,
		ResolvedAt:      rec.ResolvedAt,
	}
	m.persist(ctx, "misconception "+rec.StudentID+"/"+rec.MisconceptionID, func(ctx context.Context) error {
		return m.repo.UpsertMisconception(ctx, row)
	})
}
