package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

// NewTieredProviders builds one provider per tier from configuration.
// Each is wrapped as caller → timeout → retry → logging → base, so the
// timeout bounds the whole call including retries.
func NewTieredProviders(ctx context.Context, cfg Config, events store.EventRepo, logger *zap.Logger) (*Tiers, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Provider == "mock" {
		return SingleTier(NewMockProvider()), nil
	}

	providers := make(map[Tier]Provider, len(AllTiers))
	built := make(map[string]Provider)
	for _, tier := range AllTiers {
		model := cfg.ModelFor(tier)
		base, ok := built[model]
		if !ok {
			var err error
			base, err = newBaseProvider(ctx, cfg, model)
			if err != nil {
				return nil, fmt.Errorf("initializing %s provider for tier %s: %w", cfg.Provider, tier, err)
			}
			built[model] = base
		}

		var p Provider = base
		if events != nil {
			p = WithLogging(p, events, EventLabels{Provider: cfg.Provider, Tier: tier}, logger)
		}
		p = WithRetry(p, cfg.Retry)
		p = WithTimeout(p, cfg.Timeout)
		providers[tier] = p
	}
	return NewTiers(providers), nil
}

func newBaseProvider(ctx context.Context, cfg Config, model string) (Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.Anthropic, model)
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, model)
	case "gemini":
		return NewGeminiProvider(ctx, cfg.Gemini, model)
	case "openrouter":
		return NewOpenRouterProvider(cfg.OpenRouter, model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}
