package reasoning

import (
	"regexp"
	"strings"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
)

// followUp reports whether q continues the previous assistant
// explanation, and the concept that explanation was about.
//
// A query is a follow-up when it is short, anaphoric or a bare
// affirmation/negation, and the turn right before it is an assistant
// explanation. A short query that names a different concept than the
// prior topic starts a new thread instead.
func (e *Engine) followUp(q conversation.Query, sig Signals) (bool, *course.Concept) {
	prev, ok := q.Previous()
	if !ok || prev.Role != conversation.RoleAssistant || !e.isExplanation(prev.Text) {
		return false, nil
	}
	topic := e.priorTopic(q)

	short := sig.Words <= e.cfg.FollowUpMaxWords
	bare := sig.Affirmation || sig.Negation
	if !short && !sig.Anaphora && !bare {
		return false, topic
	}
	if len(sig.Concepts) > 0 && !bare {
		if topic == nil || !containsID(sig.Concepts, topic.ID) {
			return false, topic
		}
	}
	return true, topic
}

func (e *Engine) isExplanation(text string) bool {
	return sentenceCount(text) >= 2 || len(text) >= e.cfg.ExplanationMinChars
}

// priorTopic returns the concept of the conversation so far: the most
// recent learner turn that names one, else the last assistant turn.
func (e *Engine) priorTopic(q conversation.Query) *course.Concept {
	for _, text := range q.UserTurns() {
		if c, ok := e.course.Resolve(text); ok {
			return &c
		}
	}
	if a, ok := q.LastAssistant(); ok {
		if c, ok := e.course.Resolve(a.Text); ok {
			return &c
		}
	}
	return nil
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

var (
	// Pronouns that stand in for the whole topic wherever they appear.
	standalonePronoun = regexp.MustCompile(`(?i)\b(it|they|them)\b`)
	// Demonstratives only stand in for the topic when nothing follows
	// them ("explain that?") since "that part" refers to something else.
	trailingDemonstrative = regexp.MustCompile(`(?i)\b(this|that)\b\s*([?.!]*)\s*$`)
)

// Contextualize rewrites a follow-up in the learner's own words: the first
// pronoun referring to the prior topic is replaced by the topic name;
// without one, the topic is appended in parentheses.
func Contextualize(text, topic string) string {
	text = strings.TrimSpace(text)
	if topic == "" {
		return text
	}
	if loc := standalonePronoun.FindStringIndex(text); loc != nil {
		return text[:loc[0]] + topic + text[loc[1]:]
	}
	if loc := trailingDemonstrative.FindStringSubmatchIndex(text); loc != nil {
		return text[:loc[2]] + topic + text[loc[3]:]
	}
	end := strings.TrimRight(text, "?.! ")
	return end + " (" + topic + ")" + text[len(end):]
}
