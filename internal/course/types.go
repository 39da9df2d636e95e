package course

import "regexp"

// Concept is one node of the prerequisite graph.
type Concept struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Aliases       []string `yaml:"aliases"`
	Prerequisites []string `yaml:"prerequisites"`
	Formula       string   `yaml:"formula"`
	Week          int      `yaml:"week"`

	// Graded is set when an assessment covers the concept.
	Graded bool `yaml:"-"`
}

// Week is one entry of the syllabus outline.
type Week struct {
	Number   int      `yaml:"number"`
	Title    string   `yaml:"title"`
	Topics   []string `yaml:"topics"`
	Readings []string `yaml:"readings"`
}

// AssessmentKind distinguishes graded work.
type AssessmentKind string

const (
	KindAssignment AssessmentKind = "assignment"
	KindLab        AssessmentKind = "lab"
	KindExam       AssessmentKind = "exam"
	KindQuiz       AssessmentKind = "quiz"
)

// Assessment is a graded course item.
type Assessment struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Kind     AssessmentKind `yaml:"kind"`
	Due      string         `yaml:"due"`
	Week     int            `yaml:"week"`
	Weight   float64        `yaml:"weight"`
	Concepts []string       `yaml:"concepts"`

	// Patterns recognise requests about this item. Items without patterns
	// are never treated as integrity-sensitive.
	Patterns []string `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// Misconception is a known error pattern tagged to one or more concepts.
type Misconception struct {
	ID          string   `yaml:"id"`
	Label       string   `yaml:"label"`
	Description string   `yaml:"description"`
	Concepts    []string `yaml:"concepts"`
	Patterns    []string `yaml:"patterns"`
	Remediation string   `yaml:"remediation"`
	Examples    []string `yaml:"examples"`

	compiled []*regexp.Regexp
}

// Matches reports whether text matches any of the misconception's patterns.
func (m *Misconception) Matches(text string) bool {
	for _, re := range m.compiled {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// PassageKind tags course material.
type PassageKind string

const (
	PassageDefinition PassageKind = "definition"
	PassageExample    PassageKind = "example"
	PassageFormula    PassageKind = "formula"
	PassageLogistics  PassageKind = "logistics"
)

// Passage is a unit of course material for the retrieval index.
type Passage struct {
	ID      string      `yaml:"id"`
	Source  string      `yaml:"source"`
	Concept string      `yaml:"concept"`
	Kind    PassageKind `yaml:"kind"`
	Text    string      `yaml:"text"`
}

// Info identifies the course.
type Info struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}
