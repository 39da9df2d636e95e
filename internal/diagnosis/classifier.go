package diagnosis

import (
	"regexp"
	"slices"
	"strings"
)

// Classifier is a rule-based reply classifier. It returns nil when the rule
// does not apply.
type Classifier interface {
	Name() string
	Classify(input *ClassifyInput) *Result
}

// DefaultClassifiers returns classifiers in priority order. A recognised
// misconception outranks a confusion signal.
func DefaultClassifiers(registry *Registry) []Classifier {
	return []Classifier{
		&MisconceptionClassifier{Registry: registry},
		&ConfusionClassifier{},
	}
}

// RunClassifiers executes rule-based classifiers in order and returns the
// first match, or nil if no rule applies.
func RunClassifiers(classifiers []Classifier, input *ClassifyInput) *Result {
	for _, c := range classifiers {
		if r := c.Classify(input); r != nil {
			r.ClassifierName = c.Name()
			return r
		}
	}
	return nil
}

// MisconceptionClassifier matches the reply against the misconception
// registry of the concept in focus.
type MisconceptionClassifier struct {
	Registry *Registry
}

func (c *MisconceptionClassifier) Name() string { return "misconception-pattern" }

func (c *MisconceptionClassifier) Classify(input *ClassifyInput) *Result {
	if c.Registry == nil {
		return nil
	}
	m := c.Registry.Match(input.ConceptID, input.Reply)
	if m == nil {
		return nil
	}
	return &Result{Category: CategoryMisconception, MisconceptionID: m.ID, Confidence: 0.9}
}

var confusionPattern = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
	`(doesn'?t|does not|don'?t|do not) (make|makes) (any )?sense`,
	`(don'?t|do not|still don'?t) (get|understand)`,
	`(i'?m|i am|still|so) (confused|lost)`,
	`confusing`,
	`no idea`,
	`makes no sense`,
	`what do you mean`,
	`i'?m not (sure|following)`,
	`(didn'?t|did not) (get|understand)`,
	`huh`,
}, "|") + `)\b`)

// ConfusionClassifier flags replies in which the learner signals they did
// not follow the explanation.
type ConfusionClassifier struct{}

func (c *ConfusionClassifier) Name() string { return "confusion" }

func (c *ConfusionClassifier) Classify(input *ClassifyInput) *Result {
	if confusionPattern.MatchString(input.Reply) {
		return &Result{Category: CategoryConfusion, Confidence: 0.8}
	}
	return nil
}

// IsConfusion reports whether text signals confusion.
func IsConfusion(text string) bool {
	return confusionPattern.MatchString(text)
}

// requestPattern matches replies that ask for something new instead of
// answering: definitions, explanations, shorter versions, guidance.
var requestPattern = regexp.MustCompile(`(?i)\b(` + strings.Join([]string{
	`what is`, `what's`, `what are`, `define`, `definition of`, `meaning of`,
	`explain`, `how does`, `how do`, `why does`, `why do`, `describe`, `difference between`, `compare`,
	`briefly`, `in one (sentence|line)`, `tl;?dr`, `in short`,
	`help me`, `guide me`, `walk me through`, `step by step`, `hint`, `i'?m stuck`, `quiz me`, `tell me`, `show me`,
	`can you`, `could you`, `now (explain|tell|show|do|what)`,
}, "|") + `)\b`)

// CheckInClassifier treats a substantive, non-question reply to an
// assistant check-in question as a correct demonstration. It is the last
// rule and runs when no grader is available or grading failed. A reply
// that makes a new request, or names only concepts the check-in was not
// about, is passive.
type CheckInClassifier struct {
	MinWords int
}

func (c *CheckInClassifier) Name() string { return "check-in-answer" }

func (c *CheckInClassifier) Classify(input *ClassifyInput) *Result {
	if !asksQuestion(input.PriorAssistant) {
		return nil
	}
	reply := strings.TrimSpace(input.Reply)
	if reply == "" || strings.HasSuffix(reply, "?") {
		return nil
	}
	minWords := c.MinWords
	if minWords <= 0 {
		minWords = 3
	}
	if len(strings.Fields(reply)) < minWords {
		return nil
	}
	if requestPattern.MatchString(reply) || !onCheckInConcept(input) {
		return &Result{Category: CategoryPassive, Confidence: 0.5}
	}
	return &Result{Category: CategoryCorrect, Confidence: 0.6}
}

// onCheckInConcept reports whether the reply stays on what the check-in
// asked about. A reply naming no concept is taken as on topic.
func onCheckInConcept(input *ClassifyInput) bool {
	if len(input.Mentions) == 0 || len(input.CheckInConcepts) == 0 {
		return true
	}
	for _, m := range input.Mentions {
		if slices.Contains(input.CheckInConcepts, m) {
			return true
		}
	}
	return false
}

// asksQuestion reports whether the assistant turn put a question to the
// learner. A tutor hint may follow the question.
func asksQuestion(text string) bool {
	return strings.Contains(text, "?")
}
