package course

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Syllabus is the structured outline: weekly topics, graded items and the
// vocabulary of logistics questions.
type Syllabus struct {
	Weeks       []Week       `yaml:"weeks"`
	Assessments []Assessment `yaml:"assessments"`
	Keywords    []string     `yaml:"keywords"`
}

var weekRef = regexp.MustCompile(`(?i)\bweek\s*(\d{1,2})\b`)

// Weeks returns the outline in order.
func (c *Course) Weeks() []Week {
	return slices.Clone(c.weeks)
}

// Week returns the outline entry for week n.
func (c *Course) Week(n int) (Week, bool) {
	w, ok := c.weekByNumber[n]
	if !ok {
		return Week{}, false
	}
	return *w, true
}

// WeekForConcept returns the week in which a concept is taught.
func (c *Course) WeekForConcept(id string) (Week, bool) {
	for _, w := range c.weeks {
		if slices.Contains(w.Topics, id) {
			return w, true
		}
	}
	if p, ok := c.byID[id]; ok && p.Week > 0 {
		return c.Week(p.Week)
	}
	return Week{}, false
}

// WeekReference extracts an explicit "week N" from text.
func WeekReference(text string) (int, bool) {
	m := weekRef.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Assessments returns all graded items.
func (c *Course) Assessments() []Assessment {
	return slices.Clone(c.assessments)
}

// Assessment returns a graded item by ID.
func (c *Course) Assessment(id string) (Assessment, bool) {
	for _, a := range c.assessments {
		if a.ID == id {
			return a, true
		}
	}
	return Assessment{}, false
}

// MatchGradedItem returns the integrity-sensitive assessment that text
// refers to, if any.
func (c *Course) MatchGradedItem(text string) (Assessment, bool) {
	for _, a := range c.assessments {
		for _, re := range a.compiled {
			if re.MatchString(text) {
				return a, true
			}
		}
	}
	return Assessment{}, false
}

// MentionedAssessment returns an assessment named in text, matching either
// its patterns or its name.
func (c *Course) MentionedAssessment(text string) (Assessment, bool) {
	if a, ok := c.MatchGradedItem(text); ok {
		return a, true
	}
	norm := normalize(text)
	for _, a := range c.assessments {
		if containsTerm(norm, normalize(a.Name)) || containsTerm(norm, shortName(a.Name)) {
			return a, true
		}
	}
	return Assessment{}, false
}

// shortName trims a subtitle: "Midterm Exam: Search" -> "midterm exam".
func shortName(name string) string {
	if i := strings.Index(name, ":"); i > 0 {
		name = name[:i]
	}
	return normalize(name)
}

// MentionsSyllabus reports whether text is about course logistics: a week
// reference, a named assessment or a syllabus keyword.
func (c *Course) MentionsSyllabus(text string) bool {
	if _, ok := WeekReference(text); ok {
		return true
	}
	if _, ok := c.MentionedAssessment(text); ok {
		return true
	}
	norm := normalize(text)
	for _, kw := range c.keywords {
		if containsTerm(norm, normalize(kw)) {
			return true
		}
	}
	return false
}

// GradedConcept reports whether any integrity-sensitive assessment covers
// the concept.
func (c *Course) GradedConcept(id string) bool {
	p, ok := c.byID[id]
	return ok && p.Graded
}
