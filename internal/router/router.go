// Package router maps a reasoning result to exactly one agent and model
// tier. Routing is a pure function of its inputs.
package router

import (
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
)

// ErrUnknownIntent is returned for an intent outside the closed set.
var ErrUnknownIntent = errors.New("unknown intent")

// Stage names the routing stage that produced a decision.
type Stage string

const (
	StageFastPath  Stage = "fast-path"
	StageReasoning Stage = "reasoning"
	StageSecondary Stage = "secondary"
	StageLegacy    Stage = "legacy"
)

// Decision is the routing result.
type Decision struct {
	Intent     reasoning.Intent
	Agent      agents.Kind
	Tier       llm.Tier
	Confidence float64
	Stage      Stage

	// TieBroken is set when the conservative tie rule changed the intent.
	TieBroken bool
}

// ModeLabel describes the decision for the learner, e.g. "explanation
// mode (90% confidence)".
func (d Decision) ModeLabel() string {
	return fmt.Sprintf("%s mode (%.0f%% confidence)", modeNames[d.Intent], d.Confidence*100)
}

var modeNames = map[reasoning.Intent]string{
	reasoning.IntentFastAnswer: "quick answer",
	reasoning.IntentExplain:    "explanation",
	reasoning.IntentTutor:      "guided tutoring",
	reasoning.IntentMath:       "math derivation",
	reasoning.IntentSyllabus:   "syllabus lookup",
	reasoning.IntentReject:     "out of scope",
}

// Config holds the router's thresholds.
type Config struct {
	// RoutingThreshold is the reasoning confidence at or above which its
	// intent is used directly.
	RoutingThreshold float64 `yaml:"routing_threshold"`

	// SecondaryThreshold is the minimum feature score for the secondary
	// classifier to decide.
	SecondaryThreshold float64 `yaml:"secondary_threshold"`

	// TieMargin is the confidence gap within which two intents tie.
	TieMargin float64 `yaml:"tie_margin"`
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		RoutingThreshold:   0.7,
		SecondaryThreshold: 0.5,
		TieMargin:          0.1,
	}
}

// Router selects an agent and tier for a query.
type Router struct {
	course *course.Course
	cfg    Config
	logger *zap.Logger
}

// New creates a Router.
func New(c *course.Course, cfg Config, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{course: c, cfg: cfg, logger: logger}
}

type fastPath struct {
	pattern *regexp.Regexp
	intent  reasoning.Intent
}

var fastPaths = []fastPath{
	{regexp.MustCompile(`(?i)^\s*(briefly|quickly|in one sentence)\b[,:]?\s*(what is|what's|what are|define)\b`), reasoning.IntentFastAnswer},
	{regexp.MustCompile(`(?i)\btl;?dr\b`), reasoning.IntentFastAnswer},
	{regexp.MustCompile(`(?i)^\s*when('s| is| are)\b.*\bdue\b`), reasoning.IntentSyllabus},
	{regexp.MustCompile(`(?i)^\s*what('s| is| are)? (the )?(topics? )?(covered |for |in )+week \d+`), reasoning.IntentSyllabus},
}

const fastPathConfidence = 0.95

// Route picks the agent and tier. The stages run in order and the first
// that decides wins: fast-path patterns, the reasoning intent when it is
// confident, the secondary feature classifier, then the legacy keyword
// rules, which always decide.
func (r *Router) Route(out reasoning.Output, q conversation.Query) (Decision, error) {
	if !out.Intent.Valid() {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownIntent, out.Intent)
	}

	d := r.choose(out, q)

	kind, err := AgentFor(d.Intent)
	if err != nil {
		return Decision{}, err
	}
	d.Agent = kind
	d.Tier = TierFor(d.Intent, out.Implementation)
	if q.TierOverride.Valid() {
		d.Tier = q.TierOverride
	}

	r.logger.Debug("routed",
		zap.String("student", q.StudentID),
		zap.String("intent", string(d.Intent)),
		zap.String("agent", string(d.Agent)),
		zap.String("tier", string(d.Tier)),
		zap.String("stage", string(d.Stage)),
		zap.Float64("confidence", d.Confidence))
	return d, nil
}

func (r *Router) choose(out reasoning.Output, q conversation.Query) Decision {
	if out.Intent == reasoning.IntentReject {
		return Decision{Intent: reasoning.IntentReject, Confidence: out.Confidence, Stage: StageReasoning}
	}

	for _, fp := range fastPaths {
		if fp.pattern.MatchString(q.Text) {
			return Decision{Intent: fp.intent, Confidence: fastPathConfidence, Stage: StageFastPath}
		}
	}

	if out.Confidence >= r.cfg.RoutingThreshold && !out.NeedsScrutiny {
		d := Decision{Intent: out.Intent, Confidence: out.Confidence, Stage: StageReasoning}
		if out.Alternative.Valid() {
			r.breakTie(&d, candidate{out.Intent, out.Confidence}, candidate{out.Alternative, out.AlternativeConfidence}, out)
		}
		return d
	}

	if ranked := score(out.Signals, out.IsFollowUp); ranked[0].score >= r.cfg.SecondaryThreshold {
		d := Decision{Intent: ranked[0].intent, Confidence: ranked[0].score, Stage: StageSecondary}
		r.breakTie(&d, candidate{ranked[0].intent, ranked[0].score}, candidate{ranked[1].intent, ranked[1].score}, out)
		return d
	}

	return Decision{Intent: legacy(out.EffectiveQuery(q.Text)), Confidence: legacyConfidence, Stage: StageLegacy}
}

type candidate struct {
	intent     reasoning.Intent
	confidence float64
}

// conservativeness ranks intents for the tie rule: more scaffolding wins.
var conservativeness = map[reasoning.Intent]int{
	reasoning.IntentTutor:      4,
	reasoning.IntentExplain:    3,
	reasoning.IntentMath:       2,
	reasoning.IntentFastAnswer: 1,
}

// breakTie applies the tie rule: when the best two candidates are within
// TieMargin and the query touches graded work, the more conservative
// intent wins.
func (r *Router) breakTie(d *Decision, best, runnerUp candidate, out reasoning.Output) {
	if best.confidence-runnerUp.confidence > r.cfg.TieMargin || !r.touchesGraded(out) {
		return
	}
	if conservativeness[runnerUp.intent] > conservativeness[best.intent] {
		d.Intent = runnerUp.intent
		d.TieBroken = true
	}
}

func (r *Router) touchesGraded(out reasoning.Output) bool {
	if out.GradedItemID != "" || out.Signals.Graded {
		return true
	}
	if r.course == nil {
		return false
	}
	if out.ConceptID != "" && r.course.GradedConcept(out.ConceptID) {
		return true
	}
	for _, id := range out.Signals.Concepts {
		if r.course.GradedConcept(id) {
			return true
		}
	}
	return false
}

// TierFor is the fixed intent to tier mapping. Implementation help always
// goes to the code tier.
func TierFor(intent reasoning.Intent, implementation bool) llm.Tier {
	if implementation && intent != reasoning.IntentSyllabus && intent != reasoning.IntentReject {
		return llm.TierCode
	}
	switch intent {
	case reasoning.IntentMath, reasoning.IntentTutor:
		return llm.TierReasoning
	case reasoning.IntentExplain:
		return llm.TierStandard
	default:
		return llm.TierFast
	}
}

// AgentFor maps an intent to the agent that serves it.
func AgentFor(intent reasoning.Intent) (agents.Kind, error) {
	switch intent {
	case reasoning.IntentFastAnswer:
		return agents.KindFastAnswer, nil
	case reasoning.IntentExplain:
		return agents.KindExplainer, nil
	case reasoning.IntentTutor:
		return agents.KindTutor, nil
	case reasoning.IntentMath:
		return agents.KindMath, nil
	case reasoning.IntentSyllabus:
		return agents.KindSyllabus, nil
	case reasoning.IntentReject:
		return agents.KindNone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
}
