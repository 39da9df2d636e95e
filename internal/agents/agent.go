// Package agents holds the specialised response strategies. Each agent
// turns a routed query into a draft answer; none of them decide routing,
// policy or acceptance.
package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/policy"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
	"github.com/AazainKhan/luminate-ai-sub000/internal/retrieval"
)

// Kind names an agent.
type Kind string

const (
	KindFastAnswer Kind = "fast-answer"
	KindExplainer  Kind = "explainer"
	KindTutor      Kind = "tutor"
	KindMath       Kind = "math"
	KindSyllabus   Kind = "syllabus"

	// KindNone is the routing target of a rejected query. No agent
	// serves it.
	KindNone Kind = "none"
)

func (k Kind) String() string { return string(k) }

// ErrNoAgent is returned when a kind has no registered agent.
var ErrNoAgent = errors.New("no agent registered")

// Context is everything an agent needs to draft one answer.
type Context struct {
	Query     conversation.Query
	Reasoning reasoning.Output
	Tier      llm.Tier

	// Concept is the concept in focus, nil when none resolved.
	Concept *course.Concept

	// Mastery is the learner's effective mastery of Concept.
	Mastery float64

	// Gaps are prerequisites of Concept the learner has not mastered.
	Gaps []course.Concept

	// Misconception is the open misconception detected on this turn.
	Misconception *course.Misconception

	// GradedItem is set when the query targets graded work.
	GradedItem *course.Assessment

	// Repair lists what the previous draft got wrong. Set only on the
	// repair attempt.
	Repair []string

	// ScaffoldOnly forbids complete solutions after an integrity denial.
	ScaffoldOnly bool

	// Reduced asks for a cheaper attempt: no retrieval, smaller budget.
	Reduced bool
}

// Text returns the text the agent should answer: the contextualized
// query for a follow-up, the learner's wording otherwise.
func (c *Context) Text() string {
	return c.Reasoning.EffectiveQuery(c.Query.Text)
}

// Citation is a retrieved source an answer drew on.
type Citation struct {
	SourceID  string
	Relevance float64
}

// Draft is an agent's answer before policy and quality checks.
type Draft struct {
	Text      string
	Citations []Citation
	Agent     Kind
	Tier      llm.Tier

	// Notes are user-visible caveats, e.g. missing sources.
	Notes []string

	// Degraded marks an answer assembled without the language model.
	Degraded bool

	// ScaffoldingLevel is the number of hints the answer gives.
	ScaffoldingLevel int
}

// Sources returns the distinct cited source IDs.
func (d *Draft) Sources() []string {
	seen := make(map[string]bool, len(d.Citations))
	var out []string
	for _, c := range d.Citations {
		if !seen[c.SourceID] {
			seen[c.SourceID] = true
			out = append(out, c.SourceID)
		}
	}
	return out
}

// Agent drafts answers for one kind of query.
type Agent interface {
	Kind() Kind
	Respond(ctx context.Context, actx *Context) (*Draft, error)
}

// Set dispatches to agents by kind.
type Set struct {
	agents map[Kind]Agent
}

// NewSet registers agents. A later agent replaces an earlier one of the
// same kind.
func NewSet(agents ...Agent) *Set {
	s := &Set{agents: make(map[Kind]Agent, len(agents))}
	for _, a := range agents {
		s.agents[a.Kind()] = a
	}
	return s
}

// Get returns the agent for k.
func (s *Set) Get(k Kind) (Agent, error) {
	a, ok := s.agents[k]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoAgent, k)
	}
	return a, nil
}

// Kinds lists the registered kinds in sorted order.
func (s *Set) Kinds() []Kind {
	out := make([]Kind, 0, len(s.agents))
	for k := range s.agents {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Deps are the collaborators shared by the agents.
type Deps struct {
	Course    *course.Course
	Tiers     *llm.Tiers
	Retriever retrieval.Retriever
	Governor  *policy.Governor
	Config    Config
	Logger    *zap.Logger
}

func (d *Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// DefaultSet builds all five agents over deps.
func DefaultSet(deps Deps) *Set {
	if deps.Retriever == nil {
		deps.Retriever = retrieval.None
	}
	d := &deps
	return NewSet(
		&FastAnswer{deps: d},
		&Explainer{deps: d},
		&Tutor{deps: d},
		&Math{deps: d},
		&Syllabus{course: d.Course},
	)
}
