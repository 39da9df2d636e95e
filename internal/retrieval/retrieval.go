// Package retrieval finds course passages relevant to a learner query.
package retrieval

import "context"

// Passage is one retrieved piece of course material.
type Passage struct {
	Text      string
	SourceID  string
	Relevance float64 // 0-1, higher is better

	ConceptID string
	Kind      string
}

// Retriever returns up to topK passages ranked by relevance. An empty
// result is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Passage, error)
}

// Func adapts a function to the Retriever interface.
type Func func(ctx context.Context, query string, topK int) ([]Passage, error)

// Retrieve calls f.
func (f Func) Retrieve(ctx context.Context, query string, topK int) ([]Passage, error) {
	return f(ctx, query, topK)
}

// None is a Retriever that never finds anything.
var None Retriever = Func(func(context.Context, string, int) ([]Passage, error) {
	return nil, nil
})

// Sources returns the distinct source IDs of ps in order.
func Sources(ps []Passage) []string {
	seen := make(map[string]bool, len(ps))
	var out []string
	for _, p := range ps {
		if p.SourceID == "" || seen[p.SourceID] {
			continue
		}
		seen[p.SourceID] = true
		out = append(out, p.SourceID)
	}
	return out
}
