package router

import (
	"sort"
	"strings"

	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
)

// feature is one weighted signal of the secondary classifier.
type feature struct {
	weight float64
	on     func(s reasoning.Signals, followUp bool) bool
}

var weights = map[reasoning.Intent][]feature{
	reasoning.IntentFastAnswer: {
		{0.55, func(s reasoning.Signals, _ bool) bool { return s.Brevity }},
		{0.2, func(s reasoning.Signals, _ bool) bool { return s.Definition }},
		{0.2, func(s reasoning.Signals, _ bool) bool { return s.Words <= 5 && len(s.Concepts) > 0 }},
		{0.4, func(s reasoning.Signals, _ bool) bool { return s.Affirmation }},
	},
	reasoning.IntentExplain: {
		{0.3, func(s reasoning.Signals, _ bool) bool { return s.Definition }},
		{0.45, func(s reasoning.Signals, _ bool) bool { return s.Elaboration }},
		{0.15, func(s reasoning.Signals, _ bool) bool { return len(s.Concepts) > 0 }},
		{0.05, func(s reasoning.Signals, _ bool) bool { return s.Question }},
	},
	reasoning.IntentTutor: {
		{0.55, func(s reasoning.Signals, _ bool) bool { return s.Confusion }},
		{0.5, func(s reasoning.Signals, _ bool) bool { return s.Socratic }},
		{0.35, func(s reasoning.Signals, _ bool) bool { return s.Solution }},
		{0.2, func(s reasoning.Signals, _ bool) bool { return s.Graded }},
		{0.4, func(s reasoning.Signals, _ bool) bool { return s.Negation }},
		{0.15, func(_ reasoning.Signals, followUp bool) bool { return followUp }},
	},
	reasoning.IntentMath: {
		{0.65, func(s reasoning.Signals, _ bool) bool { return s.Math }},
		{0.1, func(s reasoning.Signals, _ bool) bool { return len(s.Concepts) > 0 }},
	},
	reasoning.IntentSyllabus: {
		{0.4, func(s reasoning.Signals, _ bool) bool { return s.Syllabus }},
		{0.35, func(s reasoning.Signals, _ bool) bool { return s.Logistics }},
	},
}

type scored struct {
	intent reasoning.Intent
	score  float64
}

// score runs the secondary classifier: each intent's score is the sum of
// its active feature weights, capped at 1. The result is sorted best
// first, ties kept in the order of reasoning.Intents.
func score(s reasoning.Signals, followUp bool) []scored {
	var out []scored
	for _, intent := range reasoning.Intents {
		fs, ok := weights[intent]
		if !ok {
			continue
		}
		total := 0.0
		for _, f := range fs {
			if f.on(s, followUp) {
				total += f.weight
			}
		}
		out = append(out, scored{intent: intent, score: min(total, 1)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

const legacyConfidence = 0.3

var legacyRules = []struct {
	intent   reasoning.Intent
	keywords []string
}{
	{reasoning.IntentSyllabus, []string{"due", "deadline", "syllabus", "week", "grading", "exam date", "office hours"}},
	{reasoning.IntentMath, []string{"formula", "derive", "equation", "calculate", "compute", "proof"}},
	{reasoning.IntentTutor, []string{"stuck", "confused", "hint", "help me", "don't understand", "doesn't make sense", "lost"}},
	{reasoning.IntentFastAnswer, []string{"briefly", "quick", "tl;dr", "short answer", "define"}},
	{reasoning.IntentExplain, []string{"explain", "what is", "how does", "why", "example"}},
}

// legacy is the last routing stage: keyword rules that always decide,
// defaulting to an explanation.
func legacy(text string) reasoning.Intent {
	lower := " " + strings.ToLower(text) + " "
	for _, rule := range legacyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, " "+kw) {
				return rule.intent
			}
		}
	}
	return reasoning.IntentExplain
}
