package course

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrConceptNotFound is returned for unknown concept IDs.
var ErrConceptNotFound = errors.New("concept not found")

// Course is the read-only concept graph and syllabus index for one course.
// It is built once at startup and safe for concurrent use.
type Course struct {
	info           Info
	concepts       []Concept
	byID           map[string]*Concept
	dependents     map[string][]string
	topoOrder      []Concept
	weeks          []Week
	weekByNumber   map[int]*Week
	assessments    []Assessment
	misconceptions []Misconception
	passages       []Passage
	keywords       []string
	terms          []term
}

// New builds and validates a course from its parts.
func New(info Info, concepts []Concept, syl Syllabus, misconceptions []Misconception, passages []Passage) (*Course, error) {
	if err := validate(info, concepts, syl, misconceptions); err != nil {
		return nil, err
	}

	c := &Course{
		info:           info,
		concepts:       slices.Clone(concepts),
		byID:           make(map[string]*Concept, len(concepts)),
		dependents:     make(map[string][]string),
		weeks:          slices.Clone(syl.Weeks),
		weekByNumber:   make(map[int]*Week, len(syl.Weeks)),
		assessments:    slices.Clone(syl.Assessments),
		misconceptions: slices.Clone(misconceptions),
		passages:       slices.Clone(passages),
		keywords:       slices.Clone(syl.Keywords),
	}

	graded := make(map[string]bool)
	for i := range c.assessments {
		a := &c.assessments[i]
		compiled, err := compileAll(a.Patterns)
		if err != nil {
			return nil, fmt.Errorf("assessment %q: %w", a.ID, err)
		}
		a.compiled = compiled
		if len(compiled) > 0 {
			for _, id := range a.Concepts {
				graded[id] = true
			}
		}
	}
	for i := range c.misconceptions {
		m := &c.misconceptions[i]
		compiled, err := compileAll(m.Patterns)
		if err != nil {
			return nil, fmt.Errorf("misconception %q: %w", m.ID, err)
		}
		m.compiled = compiled
	}

	for i := range c.concepts {
		c.concepts[i].Graded = graded[c.concepts[i].ID]
		c.byID[c.concepts[i].ID] = &c.concepts[i]
	}
	for i := range c.concepts {
		for _, prereqID := range c.concepts[i].Prerequisites {
			c.dependents[prereqID] = append(c.dependents[prereqID], c.concepts[i].ID)
		}
	}
	for i := range c.weeks {
		c.weekByNumber[c.weeks[i].Number] = &c.weeks[i]
	}

	c.topoOrder = c.topologicalSort()
	c.terms = buildTerms(c.concepts)
	return c, nil
}

// topologicalSort orders concepts with Kahn's algorithm; ties break by ID.
func (c *Course) topologicalSort() []Concept {
	inDegree := make(map[string]int, len(c.concepts))
	for i := range c.concepts {
		inDegree[c.concepts[i].ID] = len(c.concepts[i].Prerequisites)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]Concept, 0, len(c.concepts))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, *c.byID[id])

		deps := slices.Clone(c.dependents[id])
		sort.Strings(deps)
		for _, depID := range deps {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}
	return order
}

// Info returns the course identity.
func (c *Course) Info() Info {
	return c.info
}

// Concept returns a concept by ID.
func (c *Course) Concept(id string) (Concept, error) {
	p, ok := c.byID[id]
	if !ok {
		return Concept{}, fmt.Errorf("%w: %q", ErrConceptNotFound, id)
	}
	return *p, nil
}

// Concepts returns every concept in declaration order.
func (c *Course) Concepts() []Concept {
	return slices.Clone(c.concepts)
}

// Prerequisites returns the direct prerequisites of a concept.
func (c *Course) Prerequisites(id string) []Concept {
	p, ok := c.byID[id]
	if !ok {
		return nil
	}
	result := make([]Concept, 0, len(p.Prerequisites))
	for _, prereqID := range p.Prerequisites {
		if pre, ok := c.byID[prereqID]; ok {
			result = append(result, *pre)
		}
	}
	return result
}

// Dependents returns concepts that directly depend on id.
func (c *Course) Dependents(id string) []Concept {
	depIDs := c.dependents[id]
	result := make([]Concept, 0, len(depIDs))
	for _, depID := range depIDs {
		if d, ok := c.byID[depID]; ok {
			result = append(result, *d)
		}
	}
	return result
}

// TopologicalOrder returns all concepts with prerequisites first.
func (c *Course) TopologicalOrder() []Concept {
	return slices.Clone(c.topoOrder)
}

// Misconceptions returns the misconception registry.
func (c *Course) Misconceptions() []Misconception {
	return slices.Clone(c.misconceptions)
}

// MisconceptionsFor returns the misconceptions tagged to a concept.
func (c *Course) MisconceptionsFor(conceptID string) []*Misconception {
	var out []*Misconception
	for i := range c.misconceptions {
		if slices.Contains(c.misconceptions[i].Concepts, conceptID) {
			out = append(out, &c.misconceptions[i])
		}
	}
	return out
}

// Misconception returns a misconception by ID, or nil.
func (c *Course) Misconception(id string) *Misconception {
	for i := range c.misconceptions {
		if c.misconceptions[i].ID == id {
			return &c.misconceptions[i]
		}
	}
	return nil
}

// Passages returns the course materials.
func (c *Course) Passages() []Passage {
	return slices.Clone(c.passages)
}
