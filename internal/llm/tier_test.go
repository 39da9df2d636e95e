package llm

import "testing"

func TestParseTier(t *testing.T) {
	for _, tier := range AllTiers {
		got, err := ParseTier(string(tier))
		if err != nil || got != tier {
			t.Fatalf("ParseTier(%q) = %q, %v", tier, got, err)
		}
	}
	if got, err := ParseTier(""); err != nil || got != "" {
		t.Fatalf("empty tier should mean no override, got %q, %v", got, err)
	}
	if _, err := ParseTier("turbo"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}

func TestTiers_Fallback(t *testing.T) {
	fast := NewMockProvider()
	standard := NewMockProvider()
	tiers := NewTiers(map[Tier]Provider{TierFast: fast, TierStandard: standard})

	if tiers.For(TierFast) != Provider(fast) {
		t.Fatal("fast tier should resolve to its own provider")
	}
	if tiers.For(TierCode) != Provider(standard) {
		t.Fatal("missing tier should fall back to standard")
	}

	onlyFast := NewTiers(map[Tier]Provider{TierFast: fast})
	if onlyFast.For(TierReasoning) != Provider(fast) {
		t.Fatal("should fall back to any configured provider")
	}

	var empty *Tiers
	if empty.For(TierFast) != nil {
		t.Fatal("nil Tiers should resolve to nil")
	}
}
