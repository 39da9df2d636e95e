// Package conversation holds the per-turn query context shared by every
// stage of the tutor pipeline.
package conversation

import (
	"slices"
	"strings"
	"time"

	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
)

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Query is the immutable input of one turn. Build it with NewQuery; stages
// receive it by value and must not modify History.
type Query struct {
	Text         string
	History      []Turn
	StudentID    string
	TierOverride llm.Tier
}

// NewQuery builds a Query. History is copied, oldest turn first.
func NewQuery(studentID, text string, history []Turn, override llm.Tier) Query {
	return Query{
		Text:         strings.TrimSpace(text),
		History:      slices.Clone(history),
		StudentID:    studentID,
		TierOverride: override,
	}
}

// Previous returns the most recent turn of the history.
func (q Query) Previous() (Turn, bool) {
	if len(q.History) == 0 {
		return Turn{}, false
	}
	return q.History[len(q.History)-1], true
}

// LastAssistant returns the most recent assistant turn.
func (q Query) LastAssistant() (Turn, bool) {
	for i := len(q.History) - 1; i >= 0; i-- {
		if q.History[i].Role == RoleAssistant {
			return q.History[i], true
		}
	}
	return Turn{}, false
}

// UserTurns returns the learner's prior messages, most recent first.
func (q Query) UserTurns() []string {
	var out []string
	for i := len(q.History) - 1; i >= 0; i-- {
		if q.History[i].Role == RoleUser {
			out = append(out, q.History[i].Text)
		}
	}
	return out
}

// History is a bounded, append-only conversation buffer for callers that
// keep state between turns (the CLI chat loop and the MCP server).
type History struct {
	turns []Turn
	max   int
}

// NewHistory keeps at most limit turns; limit <= 0 keeps 20.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 20
	}
	return &History{max: limit}
}

// Add appends a turn, dropping the oldest past the limit.
func (h *History) Add(role Role, text string, at time.Time) {
	h.turns = append(h.turns, Turn{Role: role, Text: text, Timestamp: at})
	if over := len(h.turns) - h.max; over > 0 {
		h.turns = slices.Delete(h.turns, 0, over)
	}
}

// Turns returns a copy of the buffered turns.
func (h *History) Turns() []Turn {
	return slices.Clone(h.turns)
}
