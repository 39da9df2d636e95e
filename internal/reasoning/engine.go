package reasoning

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
)

// Engine turns a query into a structured Output in four phases: perceive,
// analyze, plan and decide.
type Engine struct {
	course    *course.Course
	cfg       Config
	primary   Classifier // may be nil
	heuristic Classifier
	breaker   *Breaker
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClassifier replaces the primary classifier.
func WithClassifier(c Classifier) Option {
	return func(e *Engine) { e.primary = c }
}

// NewEngine creates an engine whose primary classifier is the LLM behind
// provider. A nil provider leaves only the heuristic stage.
func NewEngine(c *course.Course, provider llm.Provider, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		course:    c,
		cfg:       cfg,
		heuristic: HeuristicClassifier{},
		breaker:   NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:    zap.NewNop(),
	}
	if provider != nil {
		e.primary = NewLLMClassifier(provider, c, cfg.MaxTokens)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Breaker exposes the primary classifier's circuit breaker.
func (e *Engine) Breaker() *Breaker {
	return e.breaker
}

// Reason classifies one query. It never fails: when every classifier is
// out of signal the output is a low-confidence fast-answer flagged for
// scrutiny.
func (e *Engine) Reason(ctx context.Context, in Input) Output {
	// perceive
	text := in.Query.Text
	sig := Perceive(e.course, text)
	isFollowUp, topic := e.followUp(in.Query, sig)

	req := &Request{Text: text, Original: text, Signals: sig, IsFollowUp: isFollowUp, Input: in}
	out := Output{IsFollowUp: isFollowUp, Signals: sig}
	if isFollowUp {
		name := ""
		if topic != nil {
			name = topic.Name
		}
		out.ContextualizedQuery = Contextualize(text, name)
		req.Text = out.ContextualizedQuery
	}

	// analyze
	primary := e.runPrimary(ctx, req)
	fallback, _ := e.heuristic.Classify(ctx, req)

	// decide
	e.decide(&out, primary, fallback)

	out.ConceptID = e.focusConcept(sig, topic, primary)
	if a, ok := e.course.MatchGradedItem(text); ok {
		out.GradedItemID = a.ID
	} else if isFollowUp {
		for _, prior := range in.Query.UserTurns() {
			if a, ok := e.course.MatchGradedItem(prior); ok {
				out.GradedItemID = a.ID
				break
			}
		}
	}
	out.TopicDomain = e.topicDomain(out)

	// plan
	e.plan(&out, primary, fallback, in)

	e.logger.Debug("query classified",
		zap.String("student", in.Query.StudentID),
		zap.String("intent", string(out.Intent)),
		zap.Float64("confidence", out.Confidence),
		zap.String("source", string(out.Source)),
		zap.Bool("follow_up", out.IsFollowUp),
		zap.String("concept", out.ConceptID))
	return out
}

// runPrimary calls the primary classifier through the breaker. Failures
// are logged and swallowed; the heuristic takes over.
func (e *Engine) runPrimary(ctx context.Context, req *Request) *Classification {
	if e.primary == nil {
		return nil
	}
	if !e.breaker.Allow() {
		e.logger.Debug("classifier breaker open, skipping", zap.String("classifier", e.primary.Name()))
		return nil
	}
	c, err := e.primary.Classify(ctx, req)
	if err != nil {
		// A cancelled turn says nothing about the classifier's health.
		if !errors.Is(err, context.Canceled) {
			e.breaker.Failure()
		}
		e.logger.Warn("classifier failed, using heuristic",
			zap.String("classifier", e.primary.Name()), zap.Error(err))
		return nil
	}
	e.breaker.Success()
	return c
}

// decide picks the intent and calibrates its confidence.
func (e *Engine) decide(out *Output, primary, fallback *Classification) {
	switch {
	case primary != nil:
		out.Intent = primary.Intent
		out.Source = SourceLLM
		out.Implementation = primary.Implementation || (fallback != nil && fallback.Implementation)
		conf := primary.Confidence
		out.Alternative = primary.Alternative
		out.AlternativeConfidence = primary.AlternativeConfidence
		if fallback != nil {
			if fallback.Intent == primary.Intent {
				conf += e.cfg.AgreementBonus
			} else if fallback.Strong {
				conf -= e.cfg.DisagreementPenalty
				if fallback.Confidence >= out.AlternativeConfidence {
					out.Alternative = fallback.Intent
					out.AlternativeConfidence = fallback.Confidence
				}
			}
		}
		out.Confidence = clamp01(conf)

	case fallback != nil:
		out.Intent = fallback.Intent
		out.Source = SourceHeuristic
		out.Implementation = fallback.Implementation
		conf := fallback.Confidence
		if !fallback.Strong {
			conf = min(conf, e.cfg.HeuristicCap)
		}
		out.Confidence = clamp01(conf)

	default:
		out.Intent = IntentFastAnswer
		out.Source = SourceDefault
		out.Confidence = e.cfg.MinConfidence
		out.NeedsScrutiny = true
	}
}

func (e *Engine) focusConcept(sig Signals, topic *course.Concept, primary *Classification) string {
	if len(sig.Concepts) > 0 {
		return sig.Concepts[0]
	}
	if topic != nil {
		return topic.ID
	}
	if primary != nil && primary.Topic != "" {
		if c, ok := e.course.Resolve(primary.Topic); ok {
			return c.ID
		}
	}
	return ""
}

func (e *Engine) topicDomain(out Output) string {
	if out.ConceptID != "" {
		if c, err := e.course.Concept(out.ConceptID); err == nil {
			return c.Name
		}
	}
	if out.Intent == IntentSyllabus || out.Signals.Syllabus {
		return "course logistics"
	}
	return "general"
}

// plan chooses the teaching strategy, response length and complexity.
func (e *Engine) plan(out *Output, primary, fallback *Classification, in Input) {
	switch {
	case primary != nil && primary.Complexity != "":
		out.Complexity = primary.Complexity
	case fallback != nil:
		out.Complexity = fallback.Complexity
	default:
		out.Complexity = heuristicComplexity(out.Signals)
	}
	if m, ok := in.Mastery[out.ConceptID]; ok && m < 0.3 && out.Complexity == ComplexityLow {
		out.Complexity = ComplexityMedium
	}

	switch out.Intent {
	case IntentFastAnswer:
		out.Strategy = StrategyDirect
	case IntentExplain:
		out.Strategy = StrategyWorkedExample
		if e.hasGap(out.ConceptID, in.Mastery) {
			out.Strategy = StrategyRemedial
		}
	case IntentTutor:
		out.Strategy = StrategySocratic
		if out.IsFollowUp {
			out.Strategy = StrategySimplify
		}
	case IntentMath:
		out.Strategy = StrategyDerivation
	case IntentSyllabus:
		out.Strategy = StrategyLookup
	case IntentReject:
		out.Strategy = StrategyRedirect
	}

	switch {
	case out.Intent == IntentFastAnswer || out.Intent == IntentSyllabus || out.Intent == IntentReject:
		out.Length = LengthShort
	case out.IsFollowUp:
		out.Length = LengthShort
	case out.Intent == IntentMath || out.Complexity == ComplexityHigh:
		out.Length = LengthDetailed
	default:
		out.Length = LengthMedium
	}
}

// hasGap reports whether a direct prerequisite of conceptID is below the
// foundation threshold. Concepts without a mastery entry are not gaps.
func (e *Engine) hasGap(conceptID string, mastery map[string]float64) bool {
	if conceptID == "" {
		return false
	}
	for _, p := range e.course.Prerequisites(conceptID) {
		if m, ok := mastery[p.ID]; ok && m < e.cfg.FoundationThreshold {
			return true
		}
	}
	return false
}
