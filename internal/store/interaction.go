package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

type interactionRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var interactionColumns = []string{
	"id", "sequence", "student_id", "turn_id", "kind", "concept_id",
	"outcome", "intent", "agent", "scaffolding_level", "detail", "created_at",
}

func (r *interactionRepo) Append(ctx context.Context, row InteractionRow) error {
	seq, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}

	// A retried write of an entry that already landed must not duplicate it.
	query, args := sqlite().Insert(tableInteractions).
		Columns(interactionColumns...).
		Values(
			row.ID, seq, row.StudentID, row.TurnID, row.Kind, row.ConceptID,
			row.Outcome, row.Intent, row.Agent, row.ScaffoldingLevel, row.Detail,
			formatTime(row.CreatedAt),
		).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.DoNothing(),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append interaction %s: %w", row.ID, err)
	}
	return nil
}

func (r *interactionRepo) List(ctx context.Context, studentID string, opts QueryOpts) ([]InteractionRow, error) {
	preds := []*entsql.Predicate{entsql.EQ("student_id", studentID)}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		preds = append(preds, entsql.LT("sequence", opts.Before))
	}

	sel := sqlite().Select(interactionColumns...).
		From(entsql.Table(tableInteractions)).
		Where(entsql.And(preds...)).
		OrderBy("sequence")
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []InteractionRow
	for rows.Next() {
		var (
			row     InteractionRow
			created string
		)
		if err := rows.Scan(&row.ID, &row.Sequence, &row.StudentID, &row.TurnID, &row.Kind,
			&row.ConceptID, &row.Outcome, &row.Intent, &row.Agent, &row.ScaffoldingLevel,
			&row.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		row.CreatedAt = parseTime(created)
		out = append(out, row)
	}
	return out, rows.Err()
}
