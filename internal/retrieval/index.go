package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
)

// Index is a full-text passage index backed by SQLite FTS5. It shares the
// store's database handle.
type Index struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewIndex creates the passage tables if missing and returns the index.
func NewIndex(ctx context.Context, db *sql.DB, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate passage index: %w", err)
	}
	return &Index{db: db, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			passage_id TEXT NOT NULL UNIQUE,
			source     TEXT NOT NULL,
			concept    TEXT NOT NULL DEFAULT '',
			kind       TEXT NOT NULL DEFAULT '',
			text       TEXT NOT NULL
		)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS passages_fts USING fts5(
			text,
			concept,
			kind,
			content='passages',
			content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS passages_fts_insert AFTER INSERT ON passages BEGIN
			INSERT INTO passages_fts(rowid, text, concept, kind)
			VALUES (new.id, new.text, new.concept, new.kind);
		END`,
		`CREATE TRIGGER IF NOT EXISTS passages_fts_delete AFTER DELETE ON passages BEGIN
			INSERT INTO passages_fts(passages_fts, rowid, text, concept, kind)
			VALUES ('delete', old.id, old.text, old.concept, old.kind);
		END`,
		`CREATE TRIGGER IF NOT EXISTS passages_fts_update AFTER UPDATE ON passages BEGIN
			INSERT INTO passages_fts(passages_fts, rowid, text, concept, kind)
			VALUES ('delete', old.id, old.text, old.concept, old.kind);
			INSERT INTO passages_fts(rowid, text, concept, kind)
			VALUES (new.id, new.text, new.concept, new.kind);
		END`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Add inserts or replaces a passage by its ID.
func (ix *Index) Add(ctx context.Context, p course.Passage) error {
	query, args := entsql.Dialect(dialect.SQLite).Insert("passages").
		Columns("passage_id", "source", "concept", "kind", "text").
		Values(p.ID, p.Source, p.Concept, string(p.Kind), p.Text).
		OnConflict(
			entsql.ConflictColumns("passage_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := ix.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("index passage %s: %w", p.ID, err)
	}
	return nil
}

// IndexCourse adds every passage of c and returns how many were indexed.
func (ix *Index) IndexCourse(ctx context.Context, c *course.Course) (int, error) {
	ps := c.Passages()
	for _, p := range ps {
		if err := ix.Add(ctx, p); err != nil {
			return 0, err
		}
	}
	ix.logger.Debug("course indexed", zap.String("course", c.Info().Code), zap.Int("passages", len(ps)))
	return len(ps), nil
}

// Count returns the number of indexed passages.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&n); err != nil {
		return 0, fmt.Errorf("count passages: %w", err)
	}
	return n, nil
}

// Retrieve runs a ranked full-text search. Queries made only of stopwords
// or punctuation return no passages.
func (ix *Index) Retrieve(ctx context.Context, query string, topK int) ([]Passage, error) {
	if topK <= 0 {
		topK = 5
	}
	fts := sanitizeFTS(query)
	if fts == "" {
		return nil, nil
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT p.passage_id, p.source, p.concept, p.kind, p.text, fts.rank
		FROM passages_fts fts
		JOIN passages p ON p.id = fts.rowid
		WHERE passages_fts MATCH ?
		ORDER BY fts.rank
		LIMIT ?`, fts, topK)
	if err != nil {
		return nil, fmt.Errorf("search passages: %w", err)
	}
	defer rows.Close()

	var out []Passage
	for rows.Next() {
		var (
			p       Passage
			id, src string
			rank    float64
		)
		if err := rows.Scan(&id, &src, &p.ConceptID, &p.Kind, &p.Text, &rank); err != nil {
			return nil, fmt.Errorf("scan passage: %w", err)
		}
		p.SourceID = src + "#" + id
		p.Relevance = relevance(rank)
		out = append(out, p)
	}
	return out, rows.Err()
}

// relevance maps an FTS5 bm25 rank (negative, lower is better) to [0, 1).
func relevance(rank float64) float64 {
	if rank >= 0 {
		return 0
	}
	return -rank / (1 - rank)
}

// sanitizeFTS quotes each meaningful word and ORs them together, so any
// term can match and punctuation never reaches the FTS5 parser.
// "What is BFS?" → `"bfs"`
func sanitizeFTS(query string) string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var terms []string
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) < 2 && !isDigit(w) || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func isDigit(w string) bool {
	return w != "" && w[0] >= '0' && w[0] <= '9'
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "does": true, "for": true,
	"from": true, "how": true, "i": true, "in": true, "is": true, "it": true,
	"me": true, "my": true, "of": true, "on": true, "or": true, "please": true,
	"still": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "what": true, "when": true, "where": true, "which": true,
	"why": true, "with": true, "you": true, "your": true, "explain": true,
	"tell": true, "about": true, "make": true, "sense": true, "doesn": true,
	"don": true, "t": true, "s": true,
}
