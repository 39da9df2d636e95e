package agents

import "github.com/AazainKhan/luminate-ai-sub000/internal/llm"

func text(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// FastAnswerSchema is the structured output of the fast-answer agent.
var FastAnswerSchema = &llm.Schema{
	Name:        "fast-answer",
	Description: "A direct answer of one to three sentences",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": text("The answer in one to three plain sentences, no questions"),
		},
		"required":             []any{"answer"},
		"additionalProperties": false,
	},
}

// ExplanationSchema is the structured output of the explainer.
var ExplanationSchema = &llm.Schema{
	Name:        "explanation",
	Description: "A concept explanation in four parts, assembled in order",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"definition":  text("One or two declarative sentences defining the concept. Never a question."),
			"example":     text("A concrete example that makes the definition tangible"),
			"elaboration": text("Optional deeper detail or intuition; empty string if not needed"),
			"check_in":    text("Exactly one short question checking understanding"),
		},
		"required":             []any{"definition", "example", "elaboration", "check_in"},
		"additionalProperties": false,
	},
}

// LessonSchema is the tutor's first-turn output.
var LessonSchema = &llm.Schema{
	Name:        "tutor-lesson",
	Description: "The opening of a guided tutoring exchange",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"activation":           text("One or two sentences connecting to something the student already knows. No labels."),
			"exploration_question": text("One guiding question the student can reason about"),
			"hint":                 text("A nudge toward the answer that does not give it away. No labels."),
		},
		"required":             []any{"activation", "exploration_question", "hint"},
		"additionalProperties": false,
	},
}

// FollowUpSchema is the tutor's output for a follow-up turn.
var FollowUpSchema = &llm.Schema{
	Name:        "tutor-follow-up",
	Description: "A short re-explanation for a student who is still unsure",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"key_idea":            text("The single key idea restated simply, one or two sentences"),
			"analogy":             text("One everyday analogy, one sentence"),
			"diagnostic_question": text("Exactly one question that shows whether the idea landed"),
		},
		"required":             []any{"key_idea", "analogy", "diagnostic_question"},
		"additionalProperties": false,
	},
}

// DerivationSchema is the math agent's output.
var DerivationSchema = &llm.Schema{
	Name:        "derivation",
	Description: "A formula, its symbols, and a worked numeric example",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"formula": text("The formula in plain ASCII, matching the course's canonical form"),
			"symbols": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"symbol":  text("The symbol as written in the formula"),
						"meaning": text("What the symbol stands for"),
					},
					"required":             []any{"symbol", "meaning"},
					"additionalProperties": false,
				},
			},
			"worked_example": text("A short worked example with concrete numbers, arithmetic written as a op b = c"),
			"check_in":       text("Exactly one question checking understanding"),
		},
		"required":             []any{"formula", "symbols", "worked_example", "check_in"},
		"additionalProperties": false,
	},
}
