package agents

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
)

// Syllabus answers logistics questions from the course outline without a
// language model.
type Syllabus struct {
	course *course.Course
}

// NewSyllabus builds the syllabus agent over c.
func NewSyllabus(c *course.Course) *Syllabus {
	return &Syllabus{course: c}
}

func (a *Syllabus) Kind() Kind { return KindSyllabus }

func (a *Syllabus) Respond(_ context.Context, actx *Context) (*Draft, error) {
	text := actx.Text()
	var answer string
	switch {
	case a.assessmentAnswer(text, &answer):
	case a.weekAnswer(text, &answer):
	case a.conceptAnswer(actx, &answer):
	default:
		answer = a.overview()
	}
	return &Draft{
		Text:      answer,
		Agent:     KindSyllabus,
		Tier:      actx.Tier,
		Citations: []Citation{{SourceID: "syllabus", Relevance: 1}},
	}, nil
}

func (a *Syllabus) assessmentAnswer(text string, out *string) bool {
	as, ok := a.course.MentionedAssessment(text)
	if !ok {
		return false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s is due %s", as.Name, formatDue(as.Due))
	if as.Week > 0 {
		fmt.Fprintf(&b, " (week %d)", as.Week)
	}
	if as.Weight > 0 {
		fmt.Fprintf(&b, " and is worth %s%% of your final grade", formatWeight(as.Weight))
	}
	b.WriteString(".")
	if names := a.conceptNames(as.Concepts); len(names) > 0 {
		fmt.Fprintf(&b, " It covers %s.", joinNames(names))
	} else if weeks := a.course.Weeks(); len(weeks) > 0 {
		last := weeks[len(weeks)-1]
		if w, ok := a.course.Week(as.Week); ok && w.Number < last.Number {
			last = w
		}
		fmt.Fprintf(&b, " It can draw on everything taught up to week %d, %s.", last.Number, last.Title)
	} else {
		b.WriteString(" The course outline does not list its topics, so check the assessment brief for what it covers.")
	}
	*out = b.String()
	return true
}

func (a *Syllabus) weekAnswer(text string, out *string) bool {
	n, ok := course.WeekReference(text)
	if !ok {
		return false
	}
	w, ok := a.course.Week(n)
	if !ok {
		*out = fmt.Sprintf("The course outline has no week %d. It runs for %d weeks.", n, len(a.course.Weeks()))
		return true
	}
	*out = a.describeWeek(w)
	return true
}

func (a *Syllabus) conceptAnswer(actx *Context, out *string) bool {
	if actx.Concept == nil {
		return false
	}
	w, ok := a.course.WeekForConcept(actx.Concept.ID)
	if !ok {
		return false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s is covered in week %d, %s.", actx.Concept.Name, w.Number, w.Title)
	if len(w.Readings) > 0 {
		fmt.Fprintf(&b, " The readings are %s.", joinNames(w.Readings))
	}
	for _, as := range a.course.Assessments() {
		if slices.Contains(as.Concepts, actx.Concept.ID) {
			fmt.Fprintf(&b, " It is assessed in %s, due %s.", as.Name, formatDue(as.Due))
			break
		}
	}
	*out = b.String()
	return true
}

func (a *Syllabus) describeWeek(w course.Week) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Week %d is %s.", w.Number, w.Title)
	if names := a.conceptNames(w.Topics); len(names) > 0 {
		fmt.Fprintf(&b, " It covers %s.", joinNames(names))
	}
	if len(w.Readings) > 0 {
		fmt.Fprintf(&b, " The readings are %s.", joinNames(w.Readings))
	}
	for _, as := range a.course.Assessments() {
		if as.Week == w.Number {
			fmt.Fprintf(&b, " %s is due that week.", as.Name)
			break
		}
	}
	return b.String()
}

func (a *Syllabus) overview() string {
	info := a.course.Info()
	var items []string
	for _, as := range a.course.Assessments() {
		items = append(items, fmt.Sprintf("%s (due %s)", as.Name, formatDue(as.Due)))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s runs for %d weeks.", info.Name, len(a.course.Weeks()))
	if len(items) > 0 {
		fmt.Fprintf(&b, " The graded work is %s.", joinNames(items))
	}
	b.WriteString(" Ask about a specific week or assessment for details.")
	return b.String()
}

func (a *Syllabus) conceptNames(ids []string) []string {
	var names []string
	for _, id := range ids {
		if c, err := a.course.Concept(id); err == nil {
			names = append(names, c.Name)
		}
	}
	return names
}

// formatDue renders an ISO date as "Friday, February 6"; other strings
// pass through.
func formatDue(due string) string {
	t, err := time.Parse("2006-01-02", due)
	if err != nil {
		return due
	}
	return t.Format("Monday, January 2")
}

// formatWeight renders a weight given as a fraction (0.1) or a percentage
// (10) as a percentage.
func formatWeight(w float64) string {
	if w <= 1 {
		w *= 100
	}
	w = math.Round(w*10) / 10
	if w == math.Trunc(w) {
		return fmt.Sprintf("%d", int(w))
	}
	return fmt.Sprintf("%.1f", w)
}

func joinNames(items []string) string {
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
