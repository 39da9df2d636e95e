package student

import (
	"math"
	"time"
)

// Decay applies the forgetting curve to a stored mastery value:
//
//	effective = stored * (0.5 + 0.5 * 0.5^(days / (halfLife * decayFactor)))
//
// The result never drops below half the stored value.
func Decay(stored float64, elapsed time.Duration, halfLife time.Duration, decayFactor float64) float64 {
	if elapsed <= 0 || halfLife <= 0 {
		return clamp(stored)
	}
	if decayFactor < 1 {
		decayFactor = 1
	}
	days := elapsed.Hours() / 24
	halfLifeDays := halfLife.Hours() / 24 * decayFactor
	return clamp(stored * (0.5 + 0.5*math.Pow(0.5, days/halfLifeDays)))
}

// correctDelta is the bounded increase after a correct demonstration.
func (c Config) correctDelta(m float64, p Performance) float64 {
	hint := math.Min(c.MaxHintPenalty, float64(p.ScaffoldingLevel)*c.HintPenaltyPerLevel)
	signal := math.Max(0, p.Confidence-hint)
	delta := signal * (1 - m) * c.LearningRate
	return math.Min(delta, c.MaxStep*(1-m))
}

// incorrectDelta is the bounded decrease after an incorrect demonstration.
func (c Config) incorrectDelta(m float64, p Performance) float64 {
	delta := (1 - p.Confidence) * m * c.ForgettingRate
	return math.Min(delta, c.MaxStep*m)
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
