// Package policy enforces the two laws every turn is held to: scope (the
// question belongs to the course) and integrity (graded work is never
// solved outright).
package policy

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
)

// Law names the rule behind a verdict.
type Law string

const (
	LawScope     Law = "scope"
	LawIntegrity Law = "integrity"
)

// Verdict is the outcome of a check. A denial carries a user-visible
// Message; it is a normal response, not an error.
type Verdict struct {
	Allowed    bool
	Law        Law
	Reason     string
	Message    string
	Assessment *course.Assessment
}

func allow() Verdict { return Verdict{Allowed: true} }

// Config holds the governor's tunables.
type Config struct {
	// MinSolutionCodeLines is the code length that counts as a complete
	// solution.
	MinSolutionCodeLines int `yaml:"min_solution_code_lines"`

	// MinSolutionSteps is the number of numbered steps that, together
	// with a final answer, count as a complete solution.
	MinSolutionSteps int `yaml:"min_solution_steps"`

	// InheritMaxWords is the length up to which a query with no course
	// vocabulary inherits the scope of the conversation.
	InheritMaxWords int `yaml:"inherit_max_words"`

	// Lookback is how many prior learner turns scope inheritance reads.
	Lookback int `yaml:"lookback"`
}

// DefaultConfig returns the default governor tunables.
func DefaultConfig() Config {
	return Config{
		MinSolutionCodeLines: 8,
		MinSolutionSteps:     4,
		InheritMaxWords:      12,
		Lookback:             3,
	}
}

// Governor checks queries and drafts against the course.
type Governor struct {
	course *course.Course
	cfg    Config
	logger *zap.Logger
}

// NewGovernor creates a governor for c.
func NewGovernor(c *course.Course, cfg Config, logger *zap.Logger) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Governor{course: c, cfg: cfg, logger: logger}
}

// CheckInput applies the scope law to the query. A short or anaphoric
// query that does not name anything inherits the scope of the recent
// conversation.
func (g *Governor) CheckInput(q conversation.Query) Verdict {
	if g.inScope(q.Text) || g.inheritsScope(q) {
		return allow()
	}
	v := Verdict{
		Law:     LawScope,
		Reason:  "query does not resolve to a course concept or syllabus item",
		Message: g.ScopeMessage(),
	}
	g.logger.Info("policy denied",
		zap.String("student", q.StudentID),
		zap.String("law", string(v.Law)),
		zap.String("reason", v.Reason))
	return v
}

func (g *Governor) inScope(text string) bool {
	return g.course.IsCourseTerm(text)
}

func (g *Governor) inheritsScope(q conversation.Query) bool {
	if _, ok := q.LastAssistant(); !ok {
		return false
	}
	if len(strings.Fields(q.Text)) > g.cfg.InheritMaxWords && !anaphoric(q.Text) {
		return false
	}
	for i, prior := range q.UserTurns() {
		if i >= g.cfg.Lookback {
			break
		}
		if g.inScope(prior) {
			return true
		}
	}
	return false
}

func anaphoric(text string) bool {
	for _, w := range strings.Fields(strings.ToLower(text)) {
		switch strings.Trim(w, ".,?!") {
		case "it", "this", "that", "they", "them":
			return true
		}
	}
	return false
}

// ScopeMessage is shown when a query is out of scope.
func (g *Governor) ScopeMessage() string {
	topics := g.course.SampleTopics(4)
	return fmt.Sprintf("That's outside what I can help with in %s. "+
		"I can help with topics like %s, or with course logistics such as due dates and weekly topics.",
		g.course.Info().Name, joinList(topics))
}

// GradedRequest reports the graded assessment the query refers to. A
// follow-up inherits the assessment of the recent conversation.
func (g *Governor) GradedRequest(q conversation.Query) (course.Assessment, bool) {
	if a, ok := g.course.MatchGradedItem(q.Text); ok {
		return a, true
	}
	if !g.inheritsScope(q) {
		return course.Assessment{}, false
	}
	for i, prior := range q.UserTurns() {
		if i >= g.cfg.Lookback {
			break
		}
		if a, ok := g.course.MatchGradedItem(prior); ok {
			return a, true
		}
	}
	return course.Assessment{}, false
}

// CheckOutput applies the integrity law to a draft: a complete solution
// to a graded item the query refers to is denied.
func (g *Governor) CheckOutput(draft string, q conversation.Query) Verdict {
	a, ok := g.GradedRequest(q)
	if !ok || !IsCompleteSolution(draft, g.cfg) {
		return allow()
	}
	v := Verdict{
		Law:        LawIntegrity,
		Reason:     "draft is a complete solution to " + a.ID,
		Message:    fmt.Sprintf("%s is graded work, so I can't give you a complete solution.", a.Name),
		Assessment: &a,
	}
	g.logger.Info("policy denied",
		zap.String("student", q.StudentID),
		zap.String("law", string(v.Law)),
		zap.String("assessment", a.ID))
	return v
}

// ScaffoldFallback is the response used when the originating agent cannot
// produce a draft that passes the integrity check.
func (g *Governor) ScaffoldFallback(a course.Assessment, conceptID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is graded, so I can't hand you a finished solution, but I can help you build it yourself.", a.Name)

	var names []string
	for _, id := range a.Concepts {
		if c, err := g.course.Concept(id); err == nil {
			names = append(names, c.Name)
		}
	}
	if len(names) > 0 {
		fmt.Fprintf(&b, " It builds on %s.", joinList(names))
	}
	if c, err := g.course.Concept(conceptID); err == nil && c.Description != "" {
		fmt.Fprintf(&b, " Keep the core of %s in mind. %s", c.Name, firstSentence(c.Description))
	}
	b.WriteString(" Start by writing down, in plain words, what each step of your approach has to do." +
		" Then implement one piece at a time and test it on a tiny input you can trace by hand." +
		" Which part would you like to work through first?")
	return b.String()
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}
