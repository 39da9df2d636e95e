package diagnosis

import "github.com/AazainKhan/luminate-ai-sub000/internal/llm"

// GradingSchema defines the JSON schema for LLM reply grading.
var GradingSchema = &llm.Schema{
	Name:        "reply-grading",
	Description: "Grading of a learner's reply to a tutor check-in question against a known misconception taxonomy",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"outcome": map[string]any{
				"type":        "string",
				"enum":        []any{"correct", "incorrect", "passive"},
				"description": "correct if the reply demonstrates understanding, incorrect if it shows a wrong idea, passive if it is not an attempt",
			},
			"misconception_id": map[string]any{
				"type":        []any{"string", "null"},
				"description": "The ID of the matching misconception from the candidate list, or null if no match",
			},
			"confidence": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Confidence score (0.0-1.0) in the outcome",
			},
			"reasoning": map[string]any{
				"type":        "string",
				"description": "Brief one-sentence justification",
			},
		},
		"required":             []any{"outcome", "misconception_id", "confidence", "reasoning"},
		"additionalProperties": false,
	},
}
