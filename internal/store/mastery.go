package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type masteryRepo struct {
	db *sql.DB
}

var masteryColumns = []string{
	"student_id", "concept_id", "mastery", "decay_factor",
	"correct_streak", "last_assessed_at", "updated_at",
}

var misconceptionColumns = []string{
	"student_id", "misconception_id", "concept_id", "detection_count", "correct_streak",
	"priority", "resolved", "first_detected_at", "last_detected_at", "resolved_at",
}

func (r *masteryRepo) GetMastery(ctx context.Context, studentID, conceptID string) (*MasteryRow, error) {
	query, args := sqlite().Select(masteryColumns...).
		From(entsql.Table(tableMastery)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("concept_id", conceptID),
		)).
		Query()

	row, err := scanMastery(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mastery %s/%s: %w", studentID, conceptID, err)
	}
	return row, nil
}

func (r *masteryRepo) ListMastery(ctx context.Context, studentID string) ([]MasteryRow, error) {
	query, args := sqlite().Select(masteryColumns...).
		From(entsql.Table(tableMastery)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy("concept_id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	defer rows.Close()

	var out []MasteryRow
	for rows.Next() {
		row, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (r *masteryRepo) UpsertMastery(ctx context.Context, row MasteryRow) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now()
	}
	query, args := sqlite().Insert(tableMastery).
		Columns(masteryColumns...).
		Values(
			row.StudentID, row.ConceptID, row.Mastery, row.DecayFactor,
			row.CorrectStreak, formatTimePtr(row.LastAssessedAt), formatTime(row.UpdatedAt),
		).
		OnConflict(
			entsql.ConflictColumns("student_id", "concept_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert mastery %s/%s: %w", row.StudentID, row.ConceptID, err)
	}
	return nil
}

func (r *masteryRepo) GetMisconception(ctx context.Context, studentID, misconceptionID string) (*MisconceptionRow, error) {
	query, args := sqlite().Select(misconceptionColumns...).
		From(entsql.Table(tableMisconceptions)).
		Where(entsql.And(
			entsql.EQ("student_id", studentID),
			entsql.EQ("misconception_id", misconceptionID),
		)).
		Query()

	row, err := scanMisconception(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get misconception %s/%s: %w", studentID, misconceptionID, err)
	}
	return row, nil
}

func (r *masteryRepo) ListMisconceptions(ctx context.Context, studentID string) ([]MisconceptionRow, error) {
	query, args := sqlite().Select(misconceptionColumns...).
		From(entsql.Table(tableMisconceptions)).
		Where(entsql.EQ("student_id", studentID)).
		OrderBy(entsql.Desc("detection_count"), "misconception_id").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list misconceptions: %w", err)
	}
	defer rows.Close()

	var out []MisconceptionRow
	for rows.Next() {
		row, err := scanMisconception(rows)
		if err != nil {
			return nil, fmt.Errorf("scan misconception: %w", err)
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

func (r *masteryRepo) UpsertMisconception(ctx context.Context, row MisconceptionRow) error {
	query, args := sqlite().Insert(tableMisconceptions).
		Columns(misconceptionColumns...).
		Values(
			row.StudentID, row.MisconceptionID, row.ConceptID, row.DetectionCount, row.CorrectStreak,
			boolInt(row.Priority), boolInt(row.Resolved),
			formatTime(row.FirstDetectedAt), formatTime(row.LastDetectedAt),
			formatTimePtr(row.ResolvedAt),
		).
		OnConflict(
			entsql.ConflictColumns("student_id", "misconception_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert misconception %s/%s: %w", row.StudentID, row.MisconceptionID, err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanMastery(s scanner) (*MasteryRow, error) {
	var (
		row      MasteryRow
		assessed sql.NullString
		updated  string
	)
	err := s.Scan(&row.StudentID, &row.ConceptID, &row.Mastery, &row.DecayFactor,
		&row.CorrectStreak, &assessed, &updated)
	if err != nil {
		return nil, err
	}
	row.LastAssessedAt = parseTimePtr(assessed)
	row.UpdatedAt = parseTime(updated)
	return &row, nil
}

func scanMisconception(s scanner) (*MisconceptionRow, error) {
	var (
		row                 MisconceptionRow
		priority, resolved  int
		firstSeen, lastSeen string
		resolvedAt          sql.NullString
	)
	err := s.Scan(&row.StudentID, &row.MisconceptionID, &row.ConceptID, &row.DetectionCount,
		&row.CorrectStreak, &priority, &resolved, &firstSeen, &lastSeen, &resolvedAt)
	if err != nil {
		return nil, err
	}
	row.Priority = priority != 0
	row.Resolved = resolved != 0
	row.FirstDetectedAt = parseTime(firstSeen)
	row.LastDetectedAt = parseTime(lastSeen)
	row.ResolvedAt = parseTimePtr(resolvedAt)
	return &row, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
