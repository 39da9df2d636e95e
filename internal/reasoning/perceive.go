package reasoning

import (
	"regexp"
	"strings"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/diagnosis"
)

// Signals are the surface tags of a query.
type Signals struct {
	Words       int
	Question    bool
	Affirmation bool // the whole query is a bare "yes", "ok", ...
	Negation    bool // the whole query is a bare "no", "not really", ...
	Anaphora    bool
	Confusion   bool
	Brevity     bool
	Math        bool
	Syllabus    bool
	Logistics   bool
	Code        bool
	Solution    bool // asks for a complete answer rather than help
	Socratic    bool
	Definition  bool
	Elaboration bool
	Graded      bool

	// Concepts are the IDs mentioned, in order of appearance.
	Concepts []string
}

var (
	anaphoraPattern    = regexp.MustCompile(`(?i)\b(it|this|that|these|those|they|them|its)\b`)
	affirmationPattern = regexp.MustCompile(`(?i)^(yes|yeah|yep|yup|ok|okay|sure|got it|i see|right|makes sense|thanks|thank you|cool)[.!]*$`)
	negationPattern    = regexp.MustCompile(`(?i)^(no|nope|nah|not really|i don'?t know|idk|no idea)[.!]*$`)
	brevityPattern     = regexp.MustCompile(`(?i)\b(briefly|brief|quick(ly)?|in one (sentence|line)|tl;?dr|short answer|one[- ]liner|in short|in a nutshell)\b`)
	mathPattern        = regexp.MustCompile(`(?i)\b(derive|derivation|formula|equation|calculate|compute|prove|proof|math(s|ematics)? behind|solve for|worked example|numerically)\b`)
	mathSymbolPattern  = regexp.MustCompile(`\d\s*[-+*/^=]\s*\d|[a-zA-Z]\([a-zA-Z]\s*\|`)
	codePattern        = regexp.MustCompile(`(?i)\b(code|coding|implement(ation|ing)?|python|java|function|program|pseudo-?code|script|debug|compile)\b`)
	solutionPattern    = regexp.MustCompile(`(?i)\b((full|complete|entire|whole|final) (code|solution|answer|program)s?|solve (it|this|the)|answers? (to|for)|do (my|the|this) (assignment|lab|homework|exam)|write (it|the \w+) for me)\b`)
	socraticPattern    = regexp.MustCompile(`(?i)\b(help me (understand|figure|work|get)|guide me|walk me through|step by step|hint|i'?m stuck|stuck on|quiz me|test me)\b`)
	definitionPattern  = regexp.MustCompile(`(?i)\b(what is|what's|what are|define|definition of|meaning of|what does \w+( \w+)? mean)\b`)
	elaborationPattern = regexp.MustCompile(`(?i)\b(explain|how does|how do|how is|why does|why do|why is|describe|difference between|compare|intuition)\b`)
	logisticsPattern   = regexp.MustCompile(`(?i)\b(due|deadline|when is|when are|weight|worth|schedule|submit|submission|week \d+|topics?|readings?|covered|office hours|late)\b`)
)

// Perceive tags a query against the course.
func Perceive(c *course.Course, text string) Signals {
	trimmed := strings.TrimSpace(text)
	s := Signals{
		Words:       len(strings.Fields(trimmed)),
		Question:    strings.Contains(trimmed, "?"),
		Affirmation: affirmationPattern.MatchString(trimmed),
		Negation:    negationPattern.MatchString(trimmed),
		Anaphora:    anaphoraPattern.MatchString(trimmed),
		Confusion:   diagnosis.IsConfusion(trimmed),
		Brevity:     brevityPattern.MatchString(trimmed),
		Math:        mathPattern.MatchString(trimmed) || mathSymbolPattern.MatchString(trimmed),
		Code:        codePattern.MatchString(trimmed),
		Solution:    solutionPattern.MatchString(trimmed),
		Socratic:    socraticPattern.MatchString(trimmed),
		Definition:  definitionPattern.MatchString(trimmed),
		Elaboration: elaborationPattern.MatchString(trimmed),
		Logistics:   logisticsPattern.MatchString(trimmed),
	}
	if c == nil {
		return s
	}
	s.Syllabus = c.MentionsSyllabus(trimmed)
	_, s.Graded = c.MatchGradedItem(trimmed)
	for _, m := range c.ResolveAll(trimmed) {
		s.Concepts = append(s.Concepts, m.Concept.ID)
	}
	return s
}

// sentenceCount counts sentence terminators followed by space or end.
func sentenceCount(text string) int {
	n := 0
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i == len(runes)-1 || runes[i+1] == ' ' || runes[i+1] == '\n' {
			n++
		}
	}
	if n == 0 && len(runes) > 0 {
		n = 1
	}
	return n
}
