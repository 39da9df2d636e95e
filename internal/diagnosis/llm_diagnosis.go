package diagnosis

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
)

// GraderConfig holds configuration for the LLM grader.
type GraderConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultGraderConfig returns sensible defaults.
func DefaultGraderConfig() GraderConfig {
	return GraderConfig{
		MaxTokens:   256,
		Temperature: 0.2,
	}
}

// Grader asks the LLM whether a reply to a check-in question demonstrates
// understanding.
type Grader struct {
	provider llm.Provider
	cfg      GraderConfig
}

// NewGrader creates an LLM-based grader.
func NewGrader(provider llm.Provider, cfg GraderConfig) *Grader {
	return &Grader{provider: provider, cfg: cfg}
}

// GradingRequest is the input for LLM grading.
type GradingRequest struct {
	ConceptName string
	Question    string
	Reply       string
	Candidates  []*course.Misconception
}

type gradingOutput struct {
	Outcome         string  `json:"outcome"`
	MisconceptionID *string `json:"misconception_id"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
}

// Grade sends a reply to the LLM for grading.
func (g *Grader) Grade(ctx context.Context, req *GradingRequest) (*Result, error) {
	ctx = llm.WithPurpose(ctx, "grader")

	userMsg, err := buildGradingMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build grading prompt: %w", err)
	}

	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      gradingSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Schema:      GradingSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		CacheSystem: true,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM grading failed: %w", err)
	}

	var raw gradingOutput
	if err := llm.Decode(resp, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse grading response: %w", err)
	}

	result := &Result{
		Confidence:     raw.Confidence,
		ClassifierName: "llm",
		Reasoning:      raw.Reasoning,
	}

	// An ID outside the candidate list is treated as no match.
	if raw.MisconceptionID != nil {
		for _, c := range req.Candidates {
			if c.ID == *raw.MisconceptionID {
				result.Category = CategoryMisconception
				result.MisconceptionID = c.ID
				return result, nil
			}
		}
	}

	switch raw.Outcome {
	case "correct":
		result.Category = CategoryCorrect
	case "incorrect":
		result.Category = CategoryIncorrect
	default:
		result.Category = CategoryPassive
	}
	return result, nil
}

const gradingSystemPrompt = `You grade a university student's reply to a tutor's check-in question.

Instructions:
- Return "correct" if the reply shows the student understands the idea, even if informally worded.
- Return "incorrect" if the reply states something wrong about the concept.
- Return "passive" if the reply is not an attempt to answer (thanks, a new question, small talk).
- If the error clearly matches one of the listed misconceptions, return its ID; otherwise null.
- Do NOT invent new misconception IDs. Only use IDs from the list provided.
- Keep reasoning to one sentence.`

var gradingUserTemplate = template.Must(template.New("grading").Parse(`Concept: {{.ConceptName}}
Tutor's question: {{.Question}}
Student's reply: {{.Reply}}
{{if .Candidates}}
Known misconceptions for this concept:
{{range .Candidates}}- {{.ID}}: {{.Description}}
{{end}}{{end}}`))

func buildGradingMessage(req *GradingRequest) (string, error) {
	var buf bytes.Buffer
	if err := gradingUserTemplate.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
