package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		if err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range []string{
		tableMastery, tableMisconceptions, tableInteractions,
		tableLLMEvents, tableResponseCache, "global_sequence",
	} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		seq, err := s.seq.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(i), seq)
	}
}

func TestMasteryUpsertAndGet(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	got, err := repo.GetMastery(ctx, "s1", "bfs")
	require.NoError(t, err)
	assert.Nil(t, got, "unknown record should be nil")

	assessed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertMastery(ctx, MasteryRow{
		StudentID: "s1", ConceptID: "bfs", Mastery: 0.4, DecayFactor: 1,
		CorrectStreak: 1, LastAssessedAt: &assessed,
	}))
	require.NoError(t, repo.UpsertMastery(ctx, MasteryRow{
		StudentID: "s1", ConceptID: "bfs", Mastery: 0.55, DecayFactor: 1.2,
		CorrectStreak: 2, LastAssessedAt: &assessed,
	}))

	got, err = repo.GetMastery(ctx, "s1", "bfs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.55, got.Mastery, 1e-9)
	assert.InDelta(t, 1.2, got.DecayFactor, 1e-9)
	assert.Equal(t, 2, got.CorrectStreak)
	require.NotNil(t, got.LastAssessedAt)
	assert.True(t, got.LastAssessedAt.Equal(assessed))

	all, err := repo.ListMastery(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMasteryNullAssessedAt(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	require.NoError(t, repo.UpsertMastery(ctx, MasteryRow{
		StudentID: "s1", ConceptID: "graphs", Mastery: 0.5, DecayFactor: 1,
	}))
	got, err := repo.GetMastery(ctx, "s1", "graphs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.LastAssessedAt)
}

func TestMisconceptionUpsert(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	row := MisconceptionRow{
		StudentID: "s1", MisconceptionID: "bfs-uses-stack", ConceptID: "bfs",
		DetectionCount: 1, FirstDetectedAt: now, LastDetectedAt: now,
	}
	require.NoError(t, repo.UpsertMisconception(ctx, row))

	row.DetectionCount = 2
	row.Priority = true
	require.NoError(t, repo.UpsertMisconception(ctx, row))

	got, err := repo.GetMisconception(ctx, "s1", "bfs-uses-stack")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.DetectionCount)
	assert.True(t, got.Priority)
	assert.False(t, got.Resolved)
	assert.Nil(t, got.ResolvedAt)

	list, err := repo.ListMisconceptions(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestInteractionAppendIsOrderedAndIdempotent(t *testing.T) {
	s := openTestStore(t)
	repo := s.InteractionRepo()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Append(ctx, InteractionRow{
			ID: id, StudentID: "s1", TurnID: "t-" + id, Kind: "question", Outcome: "passive",
		}))
	}
	// Retried write of an existing entry.
	require.NoError(t, repo.Append(ctx, InteractionRow{
		ID: "b", StudentID: "s1", TurnID: "t-b", Kind: "question", Outcome: "passive",
	}))
	require.NoError(t, repo.Append(ctx, InteractionRow{
		ID: "z", StudentID: "s2", TurnID: "t-z", Kind: "question", Outcome: "passive",
	}))

	rows, err := repo.List(ctx, "s1", QueryOpts{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "b", rows[1].ID)
	assert.Equal(t, "c", rows[2].ID)
	assert.Less(t, rows[0].Sequence, rows[1].Sequence)
	assert.Less(t, rows[1].Sequence, rows[2].Sequence)
}

func TestLLMEventsAndUsage(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "mock", Model: "m1", Purpose: "reasoning", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
		{Provider: "mock", Model: "m1", Purpose: "explainer", InputTokens: 20, OutputTokens: 15, LatencyMs: 300, Success: true},
		{Provider: "mock", Model: "m2", Purpose: "explainer", InputTokens: 30, OutputTokens: 0, LatencyMs: 100, ErrorMessage: "boom"},
	}
	for _, e := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	list, err := repo.QueryLLMEvents(ctx, QueryOpts{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "m2", list[0].Model, "newest first")
	assert.False(t, list[0].Success)

	e, err := repo.GetLLMEvent(ctx, list[1].ID)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "explainer", e.Purpose)

	missing, err := repo.GetLLMEvent(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byPurpose, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	require.Len(t, byPurpose, 2)
	assert.Equal(t, "explainer", byPurpose[0].Purpose)
	assert.Equal(t, 2, byPurpose[0].Calls)
	assert.Equal(t, 50, byPurpose[0].InputTokens)
	assert.Equal(t, int64(200), byPurpose[0].AvgLatencyMs)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, 2, byModel[0].Calls)
}

func TestLLMEventsForTurn(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	for _, e := range []LLMRequestEventData{
		{Provider: "mock", Model: "m1", Purpose: "reasoning", TurnID: "t1", Success: true},
		{Provider: "mock", Model: "m1", Purpose: "reasoning", TurnID: "t2", Success: true},
		{Provider: "mock", Model: "m1", Purpose: "explainer", TurnID: "t1", CachedTokens: 64, Success: true},
	} {
		require.NoError(t, repo.AppendLLMRequest(ctx, e))
	}

	got, err := repo.LLMEventsForTurn(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "reasoning", got[0].Purpose, "oldest first")
	assert.Equal(t, "explainer", got[1].Purpose)
	assert.Equal(t, 64, got[1].CachedTokens)

	none, err := repo.LLMEventsForTurn(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestEnsureColumnIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, ensureColumn(ctx, s.DB(), tableLLMEvents, "turn_id", "TEXT NOT NULL DEFAULT ''"))
	require.NoError(t, ensureColumn(ctx, s.DB(), tableLLMEvents, "note", "TEXT NOT NULL DEFAULT ''"))
	require.NoError(t, ensureColumn(ctx, s.DB(), tableLLMEvents, "note", "TEXT NOT NULL DEFAULT ''"))

	var n int
	require.NoError(t, s.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('llm_events') WHERE name = 'note'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestResponseCache(t *testing.T) {
	s := openTestStore(t)
	repo := s.CacheRepo()
	ctx := context.Background()

	got, err := repo.Get(ctx, "explain:bfs")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.Put(ctx, CachedResponse{
		Key: "explain:bfs", Intent: "explain", Text: "BFS visits nodes level by level.",
		Sources: []string{"week3-notes"},
	}))
	got, err = repo.Get(ctx, "explain:bfs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "BFS visits nodes level by level.", got.Text)
	assert.Equal(t, []string{"week3-notes"}, got.Sources)
}

func TestResetClearsStudentData(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MasteryRepo().UpsertMastery(ctx, MasteryRow{StudentID: "s1", ConceptID: "bfs", Mastery: 0.7, DecayFactor: 1}))
	require.NoError(t, s.MasteryRepo().UpsertMastery(ctx, MasteryRow{StudentID: "s2", ConceptID: "bfs", Mastery: 0.7, DecayFactor: 1}))
	require.NoError(t, s.Reset(ctx, "s1", false))

	rows, err := s.MasteryRepo().ListMastery(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = s.MasteryRepo().ListMastery(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
