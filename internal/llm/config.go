package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects which LLM provider to use.
	// Values: "anthropic", "openai", "gemini", "openrouter", "mock"
	Provider string `yaml:"provider"`

	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`

	// Models overrides the model per tier. Friendly names ("claude-haiku")
	// and raw provider model IDs are both accepted.
	Models map[Tier]string `yaml:"models"`

	// Timeout is the hard limit for a single call, retries included.
	Timeout time.Duration `yaml:"timeout"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // Default: "https://openrouter.ai/api/v1"

	// AppName and SiteURL are sent as attribution headers so calls show up
	// under the app on OpenRouter's dashboard.
	AppName string `yaml:"app_name"`
	SiteURL string `yaml:"site_url"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// defaultTierModels is the model used for each tier when Models does not
// say otherwise.
var defaultTierModels = map[string]map[Tier]string{
	"anthropic": {
		TierFast:      "claude-haiku",
		TierStandard:  "claude-haiku",
		TierReasoning: "claude-sonnet",
		TierCode:      "claude-sonnet",
	},
	"openai": {
		TierFast:      "gpt-4o-mini",
		TierStandard:  "gpt-4o-mini",
		TierReasoning: "gpt-4o",
		TierCode:      "gpt-4o",
	},
	"gemini": {
		TierFast:      "gemini-flash",
		TierStandard:  "gemini-flash",
		TierReasoning: "gemini-pro",
		TierCode:      "gemini-pro",
	},
	"openrouter": {
		TierFast:      "google/gemini-2.0-flash-exp",
		TierStandard:  "google/gemini-2.0-flash-exp",
		TierReasoning: "anthropic/claude-sonnet-4",
		TierCode:      "anthropic/claude-sonnet-4",
	},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "anthropic",
		OpenRouter: OpenRouterConfig{AppName: "Luminate"},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     4 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ModelFor returns the model name configured for tier.
func (c Config) ModelFor(tier Tier) string {
	if m := c.Models[tier]; m != "" {
		return m
	}
	if defaults, ok := defaultTierModels[c.Provider]; ok {
		if m, ok := defaults[tier]; ok {
			return m
		}
		return defaults[TierStandard]
	}
	return ""
}

// ApplyEnv overlays LUMINATE_* environment variables onto c.
func (c *Config) ApplyEnv() {
	if p := os.Getenv("LUMINATE_LLM_PROVIDER"); p != "" {
		c.Provider = p
	}
	if k := os.Getenv("LUMINATE_ANTHROPIC_API_KEY"); k != "" {
		c.Anthropic.APIKey = k
	}
	if k := os.Getenv("LUMINATE_OPENAI_API_KEY"); k != "" {
		c.OpenAI.APIKey = k
	}
	if u := os.Getenv("LUMINATE_OPENAI_BASE_URL"); u != "" {
		c.OpenAI.BaseURL = u
	}
	if k := os.Getenv("LUMINATE_GEMINI_API_KEY"); k != "" {
		c.Gemini.APIKey = k
	}
	if k := os.Getenv("LUMINATE_OPENROUTER_API_KEY"); k != "" {
		c.OpenRouter.APIKey = k
	}
	for _, t := range AllTiers {
		if m := os.Getenv("LUMINATE_MODEL_" + envTierName(t)); m != "" {
			if c.Models == nil {
				c.Models = make(map[Tier]string)
			}
			c.Models[t] = m
		}
	}
	if v := os.Getenv("LUMINATE_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
}

func envTierName(t Tier) string {
	switch t {
	case TierFast:
		return "FAST"
	case TierStandard:
		return "STANDARD"
	case TierReasoning:
		return "REASONING"
	case TierCode:
		return "CODE"
	}
	return ""
}

// Discover probes the standard API key env vars in priority order
// (Anthropic, OpenAI, Gemini, OpenRouter) and points c at the first
// provider whose key is found. Returns false if none is set.
func (c *Config) Discover() bool {
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		c.Provider = "anthropic"
		c.Anthropic.APIKey = k
		return true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		c.Provider = "openai"
		c.OpenAI.APIKey = k
		return true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		c.Provider = "gemini"
		c.Gemini.APIKey = k
		return true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		c.Provider = "openrouter"
		c.OpenRouter.APIKey = k
		return true
	}
	return false
}

// HasCredentials reports whether the selected provider has its API key set.
func (c Config) HasCredentials() bool {
	return c.Validate() == nil
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("LUMINATE_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("LUMINATE_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("LUMINATE_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("LUMINATE_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "mock":
		// No API key needed.
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	for t := range c.Models {
		if !t.Valid() {
			return fmt.Errorf("models: unknown tier %q", t)
		}
	}
	return nil
}
