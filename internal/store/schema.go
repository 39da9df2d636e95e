package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableMastery        = "mastery_records"
	tableMisconceptions = "misconception_records"
	tableInteractions   = "interaction_log"
	tableLLMEvents      = "llm_events"
	tableResponseCache  = "response_cache"
)

// sqlite returns a query builder bound to the SQLite dialect. All DML in
// this package goes through it; DDL is plain SQL below.
func sqlite() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// migrate creates every table and index if missing. The schema is additive
// only; columns are never renamed in place.
func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS mastery_records (
			student_id       TEXT NOT NULL,
			concept_id       TEXT NOT NULL,
			mastery          REAL NOT NULL DEFAULT 0,
			decay_factor     REAL NOT NULL DEFAULT 1,
			correct_streak   INTEGER NOT NULL DEFAULT 0,
			last_assessed_at TEXT,
			updated_at       TEXT NOT NULL,
			PRIMARY KEY (student_id, concept_id)
		)`,
		`CREATE TABLE IF NOT EXISTS misconception_records (
			student_id        TEXT NOT NULL,
			misconception_id  TEXT NOT NULL,
			concept_id        TEXT NOT NULL,
			detection_count   INTEGER NOT NULL DEFAULT 0,
			correct_streak    INTEGER NOT NULL DEFAULT 0,
			priority          INTEGER NOT NULL DEFAULT 0,
			resolved          INTEGER NOT NULL DEFAULT 0,
			first_detected_at TEXT NOT NULL,
			last_detected_at  TEXT NOT NULL,
			resolved_at       TEXT,
			PRIMARY KEY (student_id, misconception_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_misconception_concept
			ON misconception_records(student_id, concept_id)`,
		`CREATE TABLE IF NOT EXISTS interaction_log (
			id                TEXT PRIMARY KEY,
			sequence          INTEGER NOT NULL,
			student_id        TEXT NOT NULL,
			turn_id           TEXT NOT NULL,
			kind              TEXT NOT NULL,
			concept_id        TEXT NOT NULL DEFAULT '',
			outcome           TEXT NOT NULL,
			intent            TEXT NOT NULL DEFAULT '',
			agent             TEXT NOT NULL DEFAULT '',
			scaffolding_level INTEGER NOT NULL DEFAULT 0,
			detail            TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interaction_student_seq
			ON interaction_log(student_id, sequence)`,
		`CREATE TABLE IF NOT EXISTS llm_events (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			sequence      INTEGER NOT NULL,
			created_at    TEXT NOT NULL,
			provider      TEXT NOT NULL,
			model         TEXT NOT NULL,
			tier          TEXT NOT NULL DEFAULT '',
			purpose       TEXT NOT NULL,
			turn_id       TEXT NOT NULL DEFAULT '',
			input_tokens  INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			cached_tokens INTEGER NOT NULL DEFAULT 0,
			latency_ms    INTEGER NOT NULL DEFAULT 0,
			success       INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			request_body  TEXT NOT NULL DEFAULT '',
			response_body TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS response_cache (
			cache_key  TEXT PRIMARY KEY,
			intent     TEXT NOT NULL,
			text       TEXT NOT NULL,
			sources    TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}

	// Columns added after the first release.
	added := []struct{ table, column, decl string }{
		{tableLLMEvents, "turn_id", "TEXT NOT NULL DEFAULT ''"},
		{tableLLMEvents, "cached_tokens", "INTEGER NOT NULL DEFAULT 0"},
	}
	for _, c := range added {
		if err := ensureColumn(ctx, db, c.table, c.column, c.decl); err != nil {
			return err
		}
	}
	if _, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_llm_events_turn ON llm_events (turn_id)`); err != nil {
		return fmt.Errorf("index llm_events.turn_id: %w", err)
	}
	return nil
}

// ensureColumn adds column to table unless it is already there.
func ensureColumn(ctx context.Context, db *sql.DB, table, column, decl string) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return fmt.Errorf("inspect %s: %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	rows.Close()
	if _, err := db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func deleteForStudent(ctx context.Context, db *sql.DB, table, studentID string) error {
	query, args := sqlite().Delete(table).Where(entsql.EQ("student_id", studentID)).Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	return nil
}
