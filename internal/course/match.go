package course

import (
	"sort"
	"strings"
	"unicode"
)

// term is one surface form of a concept: its ID, name or an alias.
type term struct {
	text      string
	conceptID string
}

func buildTerms(concepts []Concept) []term {
	var terms []term
	seen := make(map[string]bool)
	add := func(text, id string) {
		t := normalize(text)
		if t == "" || seen[t+"\x00"+id] {
			return
		}
		seen[t+"\x00"+id] = true
		terms = append(terms, term{text: t, conceptID: id})
	}
	for _, c := range concepts {
		add(c.ID, c.ID)
		add(c.Name, c.ID)
		for _, a := range c.Aliases {
			add(a, c.ID)
		}
	}
	// Longer terms first so "depth first search" beats "search".
	sort.SliceStable(terms, func(i, j int) bool {
		return len(terms[i].text) > len(terms[j].text)
	})
	return terms
}

// normalize lowercases text and turns every non-alphanumeric rune into a
// single space.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// containsTerm reports a word-boundary match of term inside norm. Both
// arguments must already be normalized.
func containsTerm(norm, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(" "+norm+" ", " "+term+" ")
}

// Match is a concept mention found in text.
type Match struct {
	Concept  Concept
	Term     string
	Position int
}

// ResolveAll returns every concept mentioned in text, ordered by where the
// mention starts. Overlapping shorter mentions are dropped.
func (c *Course) ResolveAll(text string) []Match {
	norm := normalize(text)
	if norm == "" {
		return nil
	}

	type span struct{ start, end int }
	var taken []span
	overlaps := func(s span) bool {
		for _, t := range taken {
			if s.start < t.end && t.start < s.end {
				return true
			}
		}
		return false
	}

	var matches []Match
	found := make(map[string]bool)
	padded := " " + norm + " "
	for _, t := range c.terms {
		needle := " " + t.text + " "
		offset := 0
		for {
			i := strings.Index(padded[offset:], needle)
			if i < 0 {
				break
			}
			start := offset + i
			s := span{start, start + len(needle) - 1}
			offset = start + 1
			if overlaps(s) {
				continue
			}
			taken = append(taken, s)
			if !found[t.conceptID] {
				found[t.conceptID] = true
				matches = append(matches, Match{Concept: *c.byID[t.conceptID], Term: t.text, Position: start})
			}
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Position < matches[j].Position
	})
	return matches
}

// Resolve returns the first concept mentioned in text.
func (c *Course) Resolve(text string) (Concept, bool) {
	matches := c.ResolveAll(text)
	if len(matches) == 0 {
		return Concept{}, false
	}
	return matches[0].Concept, true
}

// IsCourseTerm reports whether text uses course-specific vocabulary:
// a concept name or alias, or syllabus language.
func (c *Course) IsCourseTerm(text string) bool {
	if _, ok := c.Resolve(text); ok {
		return true
	}
	return c.MentionsSyllabus(text)
}

// SampleTopics returns up to n concept names in teaching order.
func (c *Course) SampleTopics(n int) []string {
	var out []string
	for _, concept := range c.topoOrder {
		if len(out) == n {
			break
		}
		out = append(out, concept.Name)
	}
	return out
}
