package llm

import "fmt"

// Tier is a model capability class. Callers ask for a tier, never for a
// model name; the configuration decides which model serves each tier.
type Tier string

const (
	// TierFast serves short answers and syllabus lookups.
	TierFast Tier = "fast"

	// TierStandard serves explanations and classification.
	TierStandard Tier = "standard"

	// TierReasoning serves derivations and Socratic tutoring.
	TierReasoning Tier = "reasoning"

	// TierCode serves implementation help.
	TierCode Tier = "code"
)

// AllTiers lists every tier in a stable order.
var AllTiers = []Tier{TierFast, TierStandard, TierReasoning, TierCode}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFast, TierStandard, TierReasoning, TierCode:
		return true
	}
	return false
}

func (t Tier) String() string { return string(t) }

// ParseTier converts a string to a Tier. The empty string parses to the
// empty Tier, meaning "no override".
func ParseTier(s string) (Tier, error) {
	if s == "" {
		return "", nil
	}
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown model tier %q", s)
	}
	return t, nil
}

// Tiers resolves a tier to the Provider configured for it.
type Tiers struct {
	providers map[Tier]Provider
}

// NewTiers builds a resolver from an explicit tier map.
func NewTiers(providers map[Tier]Provider) *Tiers {
	m := make(map[Tier]Provider, len(providers))
	for t, p := range providers {
		if p != nil {
			m[t] = p
		}
	}
	return &Tiers{providers: m}
}

// SingleTier serves every tier with the same provider.
func SingleTier(p Provider) *Tiers {
	m := make(map[Tier]Provider, len(AllTiers))
	for _, t := range AllTiers {
		m[t] = p
	}
	return &Tiers{providers: m}
}

// For returns the provider for tier, falling back to the standard tier and
// then to any configured provider. Returns nil when none is configured.
func (t *Tiers) For(tier Tier) Provider {
	if t == nil {
		return nil
	}
	if p, ok := t.providers[tier]; ok {
		return p
	}
	if p, ok := t.providers[TierStandard]; ok {
		return p
	}
	for _, candidate := range AllTiers {
		if p, ok := t.providers[candidate]; ok {
			return p
		}
	}
	return nil
}
