package diagnosis

import (
	"sort"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
)

// Registry is the read-only misconception taxonomy of a course, indexed by
// ID and by concept.
type Registry struct {
	byID      map[string]*course.Misconception
	byConcept map[string][]*course.Misconception
	all       []*course.Misconception
}

// NewRegistry indexes the misconceptions declared by c.
func NewRegistry(c *course.Course) *Registry {
	ms := c.Misconceptions()
	r := &Registry{
		byID:      make(map[string]*course.Misconception, len(ms)),
		byConcept: make(map[string][]*course.Misconception),
	}
	for i := range ms {
		m := &ms[i]
		r.byID[m.ID] = m
		r.all = append(r.all, m)
		for _, conceptID := range m.Concepts {
			r.byConcept[conceptID] = append(r.byConcept[conceptID], m)
		}
	}
	sort.Slice(r.all, func(i, j int) bool { return r.all[i].ID < r.all[j].ID })
	return r
}

// Get returns a misconception by ID, or nil if not found.
func (r *Registry) Get(id string) *course.Misconception {
	return r.byID[id]
}

// ForConcept returns the misconceptions tagged to a concept.
func (r *Registry) ForConcept(conceptID string) []*course.Misconception {
	return r.byConcept[conceptID]
}

// All returns every misconception ordered by ID.
func (r *Registry) All() []*course.Misconception {
	return r.all
}

// Match returns the first misconception whose pattern matches text. With a
// concept ID only that concept's misconceptions are tried.
func (r *Registry) Match(conceptID, text string) *course.Misconception {
	candidates := r.all
	if conceptID != "" {
		candidates = r.byConcept[conceptID]
	}
	for _, m := range candidates {
		if m.Matches(text) {
			return m
		}
	}
	return nil
}
