package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ix, err := NewIndex(context.Background(), s.DB(), nil)
	require.NoError(t, err)
	return ix
}

func TestSanitizeFTS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is BFS?", `"bfs"`},
		{"explain A* search", `"search"`},
		{`gradient "descent" AND (rate)`, `"gradient" OR "descent" OR "rate"`},
		{"what is it?", ""},
		{"week 3 topics", `"week" OR "3" OR "topics"`},
		{"bfs BFS bfs", `"bfs"`},
	}
	for _, tt := range tests {
		if got := sanitizeFTS(tt.in); got != tt.want {
			t.Errorf("sanitizeFTS(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRelevance(t *testing.T) {
	assert.Equal(t, 0.0, relevance(0))
	assert.Equal(t, 0.0, relevance(1.5))
	assert.InDelta(t, 0.5, relevance(-1), 1e-12)
	assert.Less(t, relevance(-1), relevance(-5))
	assert.Less(t, relevance(-1000), 1.0)
}

func TestIndexCourseAndRetrieve(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	c, err := course.Default()
	require.NoError(t, err)
	n, err := ix.IndexCourse(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, len(c.Passages()), n)

	// Re-indexing replaces rather than duplicates.
	_, err = ix.IndexCourse(ctx, c)
	require.NoError(t, err)
	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	got, err := ix.Retrieve(ctx, "What is BFS?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 3)
	assert.Equal(t, "bfs", got[0].ConceptID)
	for i, p := range got {
		assert.Greater(t, p.Relevance, 0.0)
		assert.Less(t, p.Relevance, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, p.Relevance, got[i-1].Relevance, "ranked best first")
		}
	}
}

func TestRetrieveEmpty(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	got, err := ix.Retrieve(ctx, "what is it?", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ix.Retrieve(ctx, "bfs", 5)
	require.NoError(t, err)
	assert.Empty(t, got, "empty index returns no passages, not an error")
}

func TestAddReplacesPassage(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	p := course.Passage{ID: "p1", Source: "notes", Concept: "bfs", Kind: course.PassageDefinition, Text: "BFS uses a queue."}
	require.NoError(t, ix.Add(ctx, p))
	p.Text = "Breadth-first search expands level by level."
	require.NoError(t, ix.Add(ctx, p))

	got, err := ix.Retrieve(ctx, "queue", 5)
	require.NoError(t, err)
	assert.Empty(t, got, "old text is no longer indexed")

	got, err = ix.Retrieve(ctx, "level", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "notes#p1", got[0].SourceID)
}

func TestSources(t *testing.T) {
	ps := []Passage{{SourceID: "a"}, {SourceID: "b"}, {SourceID: "a"}, {}}
	assert.Equal(t, []string{"a", "b"}, Sources(ps))
}

func TestNone(t *testing.T) {
	got, err := None.Retrieve(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
