package agents

// Config holds generation budgets for the agents.
type Config struct {
	// TopK is the number of passages retrieved per query.
	TopK int `yaml:"top_k"`

	// MinRelevance drops weaker passages from the prompt.
	MinRelevance float64 `yaml:"min_relevance"`

	FastMaxTokens    int `yaml:"fast_max_tokens"`
	ExplainMaxTokens int `yaml:"explain_max_tokens"`
	TutorMaxTokens   int `yaml:"tutor_max_tokens"`
	MathMaxTokens    int `yaml:"math_max_tokens"`

	// ReducedMaxTokens caps every agent on a reduced-scope retry.
	ReducedMaxTokens int `yaml:"reduced_max_tokens"`

	Temperature float64 `yaml:"temperature"`

	// HistoryTurns is how many prior turns go into the prompt.
	HistoryTurns int `yaml:"history_turns"`
}

// DefaultConfig returns the default agent budgets.
func DefaultConfig() Config {
	return Config{
		TopK:             4,
		MinRelevance:     0,
		FastMaxTokens:    200,
		ExplainMaxTokens: 700,
		TutorMaxTokens:   500,
		MathMaxTokens:    800,
		ReducedMaxTokens: 250,
		Temperature:      0.3,
		HistoryTurns:     6,
	}
}
