package reasoning

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
)

// ClassificationSchema is the structured output of the LLM classifier.
var ClassificationSchema = &llm.Schema{
	Name:        "query-classification",
	Description: "Classification of a student's question to a course tutor",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type":        "string",
				"enum":        intentEnum(),
				"description": "The kind of response the student needs",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "How sure you are of the intent (0.0-1.0)",
			},
			"complexity": map[string]any{
				"type": "string",
				"enum": []any{"low", "medium", "high"},
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "The course concept the query is about, or an empty string",
			},
			"implementation": map[string]any{
				"type":        "boolean",
				"description": "True if the student wants help writing code",
			},
			"alternative_intent": map[string]any{
				"type":        "string",
				"enum":        append(intentEnum(), "none"),
				"description": "The second most plausible intent, or none",
			},
			"alternative_confidence": map[string]any{
				"type":    "number",
				"minimum": 0.0,
				"maximum": 1.0,
			},
		},
		"required": []any{
			"intent", "confidence", "complexity", "topic", "implementation",
			"alternative_intent", "alternative_confidence",
		},
		"additionalProperties": false,
	},
}

func intentEnum() []any {
	out := make([]any, len(Intents))
	for i, in := range Intents {
		out[i] = string(in)
	}
	return out
}

type classificationOutput struct {
	Intent                string  `json:"intent"`
	Confidence            float64 `json:"confidence"`
	Complexity            string  `json:"complexity"`
	Topic                 string  `json:"topic"`
	Implementation        bool    `json:"implementation"`
	AlternativeIntent     string  `json:"alternative_intent"`
	AlternativeConfidence float64 `json:"alternative_confidence"`
}

// LLMClassifier asks the model for a structured classification.
type LLMClassifier struct {
	provider  llm.Provider
	course    *course.Course
	maxTokens int
}

// NewLLMClassifier creates the model-backed classifier.
func NewLLMClassifier(provider llm.Provider, c *course.Course, maxTokens int) *LLMClassifier {
	return &LLMClassifier{provider: provider, course: c, maxTokens: maxTokens}
}

func (l *LLMClassifier) Name() string { return "llm" }

func (l *LLMClassifier) Classify(ctx context.Context, req *Request) (*Classification, error) {
	ctx = llm.WithPurpose(ctx, "reasoning")

	msg, err := l.buildMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build classification prompt: %w", err)
	}

	resp, err := l.provider.Generate(ctx, llm.Request{
		System:      classificationSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      ClassificationSchema,
		MaxTokens:   l.maxTokens,
		Temperature: 0,
		CacheSystem: true,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM classification failed: %w", err)
	}

	var raw classificationOutput
	if err := llm.Decode(resp, &raw); err != nil {
		return nil, err
	}
	intent, err := ParseIntent(raw.Intent)
	if err != nil {
		return nil, &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
	}

	out := &Classification{
		Intent:         intent,
		Confidence:     clamp01(raw.Confidence),
		Complexity:     Complexity(raw.Complexity),
		Topic:          raw.Topic,
		Implementation: raw.Implementation,
		Rule:           "llm",
	}
	if alt, err := ParseIntent(raw.AlternativeIntent); err == nil && alt != intent {
		out.Alternative = alt
		out.AlternativeConfidence = clamp01(raw.AlternativeConfidence)
	}
	return out, nil
}

const classificationSystemPrompt = `You classify questions sent to the tutor of a university course.

Intents:
- fast-answer: a quick fact, 1-3 sentences is enough.
- explain: the student wants a concept explained with an example.
- tutor: the student is confused, stuck, answering a check-in question, or asking for help with graded work; guide them instead of answering directly.
- math-derivation: a formula, derivation or numeric calculation.
- syllabus-query: course logistics such as due dates, weekly topics, grading.
- reject: not something a course tutor should answer.

Rules:
- Requests for complete solutions to assignments or exams are tutor, never explain.
- Use the conversation to resolve references like "it" or "that".
- Lower the confidence when two intents are plausible and report the other as alternative_intent.`

// maxAssistantChars bounds how much of each assistant turn goes into the
// prompt.
const maxAssistantChars = 400

var classificationTemplate = template.Must(template.New("classify").Parse(`Course: {{.Course}}
Concepts: {{.Concepts}}
{{if .History}}
## Recent conversation
{{range .History}}{{.}}
{{end}}
---
{{end}}
Student: "{{.Text}}"{{if .FollowUp}}
(This continues the previous exchange. Read with context: "{{.Contextualized}}")
{{end}}`))

func (l *LLMClassifier) buildMessage(req *Request) (string, error) {
	data := struct {
		Course         string
		Concepts       string
		History        []string
		Text           string
		FollowUp       bool
		Contextualized string
	}{
		Text:           req.Original,
		FollowUp:       req.IsFollowUp,
		Contextualized: req.Text,
	}
	if l.course != nil {
		data.Course = l.course.Info().Name
		var names []string
		for _, c := range l.course.Concepts() {
			names = append(names, c.Name)
		}
		data.Concepts = strings.Join(names, ", ")
	}
	data.History = renderHistory(req.Input.Query.History, 6)

	var buf bytes.Buffer
	if err := classificationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// renderHistory formats the last n turns, truncating long assistant turns.
func renderHistory(turns []conversation.Turn, n int) []string {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		if t.Role == conversation.RoleUser {
			out = append(out, "Student: "+t.Text)
			continue
		}
		text := t.Text
		if len(text) > maxAssistantChars {
			text = text[:maxAssistantChars] + "... (truncated)"
		}
		out = append(out, "Tutor: "+text)
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
