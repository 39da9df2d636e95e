package diagnosis

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
)

// Service classifies learner replies using rule-based classifiers first and
// an optional LLM grader for answers to check-in questions.
type Service struct {
	classifiers []Classifier
	fallback    []Classifier
	registry    *Registry
	grader      *Grader
	logger      *zap.Logger
}

// NewService creates a diagnosis service. If provider is nil, only
// rule-based classification is available.
func NewService(registry *Registry, provider llm.Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		classifiers: DefaultClassifiers(registry),
		fallback:    []Classifier{&CheckInClassifier{}},
		registry:    registry,
		logger:      logger,
	}
	if provider != nil {
		s.grader = NewGrader(provider, DefaultGraderConfig())
	}
	return s
}

// Registry returns the misconception taxonomy.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Diagnose classifies a reply. It never fails: grader errors fall back to
// the heuristic rules and an unclassified reply is passive.
func (s *Service) Diagnose(ctx context.Context, input *ClassifyInput) *Result {
	// Phase 1: rules.
	if r := RunClassifiers(s.classifiers, input); r != nil {
		return r
	}

	// Phase 2: LLM grading of check-in answers.
	if s.grader != nil && asksQuestion(input.PriorAssistant) {
		req := &GradingRequest{
			Question: lastQuestion(input.PriorAssistant),
			Reply:    input.Reply,
		}
		if input.Concept != nil {
			req.ConceptName = input.Concept.Name
		}
		if s.registry != nil {
			req.Candidates = s.registry.ForConcept(input.ConceptID)
		}
		r, err := s.grader.Grade(ctx, req)
		if err == nil {
			return r
		}
		s.logger.Warn("grader failed, using heuristics", zap.Error(err))
	}

	// Phase 3: heuristic fallback.
	if r := RunClassifiers(s.fallback, input); r != nil {
		return r
	}
	return &Result{Category: CategoryPassive, ClassifierName: "none"}
}

// lastQuestion returns the last question sentence of text, which for a
// check-in is the question itself even when a hint follows it.
func lastQuestion(text string) string {
	end := strings.LastIndex(text, "?")
	if end < 0 {
		return strings.TrimSpace(text)
	}
	start := 0
	for i := end - 1; i >= 0; i-- {
		if c := text[i]; c == '.' || c == '!' || c == '?' || c == '\n' {
			start = i + 1
			break
		}
	}
	return strings.TrimSpace(text[start : end+1])
}
