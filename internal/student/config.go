package student

import (
	"fmt"
	"time"
)

// Config holds the student model's tunable constants.
type Config struct {
	// HalfLife is the forgetting-curve half-life at DecayFactor 1.
	HalfLife time.Duration `yaml:"half_life"`

	// LearningRate scales increases after a correct demonstration.
	LearningRate float64 `yaml:"learning_rate"`

	// ForgettingRate scales decreases after an incorrect demonstration.
	ForgettingRate float64 `yaml:"forgetting_rate"`

	// MaxStep bounds one update to this fraction of the remaining
	// distance to 1 (increase) or 0 (decrease).
	MaxStep float64 `yaml:"max_step"`

	// HintPenaltyPerLevel is subtracted from the confidence signal for
	// each scaffolding level used, capped at MaxHintPenalty.
	HintPenaltyPerLevel float64 `yaml:"hint_penalty_per_level"`
	MaxHintPenalty      float64 `yaml:"max_hint_penalty"`

	// PriorMastery is the estimate for a concept with no record.
	PriorMastery float64 `yaml:"prior_mastery"`

	// FoundationThreshold is the mastery below which a prerequisite is a gap.
	FoundationThreshold float64 `yaml:"foundation_threshold"`

	// SpacingGrowth multiplies DecayFactor after each correct
	// demonstration, up to MaxDecayFactor.
	SpacingGrowth  float64 `yaml:"spacing_growth"`
	MaxDecayFactor float64 `yaml:"max_decay_factor"`

	// PriorityThreshold is the detection count at which an unresolved
	// misconception is flagged for priority remediation.
	PriorityThreshold int `yaml:"priority_threshold"`

	// ResolutionStreak is the number of consecutive correct
	// demonstrations that resolve a misconception.
	ResolutionStreak int `yaml:"resolution_streak"`
}

// DefaultConfig returns the default student model constants.
func DefaultConfig() Config {
	return Config{
		HalfLife:            7 * 24 * time.Hour,
		LearningRate:        0.4,
		ForgettingRate:      0.3,
		MaxStep:             0.5,
		HintPenaltyPerLevel: 0.15,
		MaxHintPenalty:      0.6,
		PriorMastery:        0.5,
		FoundationThreshold: 0.5,
		SpacingGrowth:       1.5,
		MaxDecayFactor:      4,
		PriorityThreshold:   2,
		ResolutionStreak:    3,
	}
}

// Validate checks that every constant is in range.
func (c Config) Validate() error {
	switch {
	case c.HalfLife <= 0:
		return fmt.Errorf("student: half_life must be > 0")
	case c.LearningRate <= 0 || c.LearningRate > 1:
		return fmt.Errorf("student: learning_rate must be in (0, 1]")
	case c.ForgettingRate <= 0 || c.ForgettingRate > 1:
		return fmt.Errorf("student: forgetting_rate must be in (0, 1]")
	case c.MaxStep <= 0 || c.MaxStep > 1:
		return fmt.Errorf("student: max_step must be in (0, 1]")
	case c.PriorMastery < 0 || c.PriorMastery > 1:
		return fmt.Errorf("student: prior_mastery must be in [0, 1]")
	case c.FoundationThreshold < 0 || c.FoundationThreshold > 1:
		return fmt.Errorf("student: foundation_threshold must be in [0, 1]")
	case c.SpacingGrowth < 1 || c.MaxDecayFactor < 1:
		return fmt.Errorf("student: spacing_growth and max_decay_factor must be >= 1")
	case c.PriorityThreshold < 1 || c.ResolutionStreak < 1:
		return fmt.Errorf("student: priority_threshold and resolution_streak must be >= 1")
	}
	return nil
}
