// Package quality scores drafts against per-intent heuristics and decides
// whether to accept, repair once, or truncate.
package quality

import (
	"fmt"

	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
)

// Decision is the gate's verdict on a draft.
type Decision string

const (
	DecisionAccept   Decision = "accept"
	DecisionRepair   Decision = "repair"
	DecisionTruncate Decision = "truncate"
)

// Band is an inclusive length range in characters.
type Band struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Bands holds the length band of an intent for first turns and for
// follow-ups.
type Bands struct {
	First    Band `yaml:"first"`
	FollowUp Band `yaml:"follow_up"`
}

// Violation is one failed heuristic.
type Violation struct {
	Heuristic string
	Detail    string
	Penalty   float64

	// Instruction tells the agent how to fix it on the repair attempt.
	Instruction string
}

// Assessment is the result of evaluating one draft.
type Assessment struct {
	Score      float64
	Band       Band
	Length     int
	Violations []Violation
	Decision   Decision
	Attempt    int
}

// Config holds the gate's thresholds.
type Config struct {
	// Accept is the score at or above which a draft is accepted.
	Accept float64 `yaml:"accept"`

	// Floor is the score below which a first draft is truncated rather
	// than repaired.
	Floor float64 `yaml:"floor"`

	// RepairMargin is the fraction of the band maximum a draft may run
	// over before it is always sent for repair.
	RepairMargin float64 `yaml:"repair_margin"`

	// ScrutinyPenalty lowers the base score of drafts built on a default
	// classification.
	ScrutinyPenalty float64 `yaml:"scrutiny_penalty"`

	// Offer is appended to a truncated answer.
	Offer string `yaml:"offer"`

	Bands map[reasoning.Intent]Bands `yaml:"bands"`
}

// DefaultConfig returns the default thresholds and bands.
func DefaultConfig() Config {
	return Config{
		Accept:          0.7,
		Floor:           0.3,
		RepairMargin:    0.15,
		ScrutinyPenalty: 0.1,
		Offer:           "I can go into more detail on any part of this if you'd like.",
		Bands: map[reasoning.Intent]Bands{
			reasoning.IntentFastAnswer: {First: Band{20, 400}, FollowUp: Band{20, 300}},
			reasoning.IntentExplain:    {First: Band{150, 1400}, FollowUp: Band{80, 600}},
			reasoning.IntentTutor:      {First: Band{100, 900}, FollowUp: Band{60, 450}},
			reasoning.IntentMath:       {First: Band{120, 1600}, FollowUp: Band{80, 700}},
			reasoning.IntentSyllabus:   {First: Band{30, 600}, FollowUp: Band{30, 400}},
			reasoning.IntentReject:     {First: Band{20, 600}, FollowUp: Band{20, 600}},
		},
	}
}

// Validate checks the thresholds and that every follow-up band is
// tighter than its first-turn band.
func (c Config) Validate() error {
	if c.Floor < 0 || c.Floor >= c.Accept || c.Accept > 1 {
		return fmt.Errorf("quality: need 0 <= floor < accept <= 1, got floor=%v accept=%v", c.Floor, c.Accept)
	}
	if c.RepairMargin < 0 {
		return fmt.Errorf("quality: repair margin must be >= 0")
	}
	for _, intent := range reasoning.Intents {
		b, ok := c.Bands[intent]
		if !ok {
			return fmt.Errorf("quality: no length band for %s", intent)
		}
		if b.First.Min > b.First.Max || b.FollowUp.Min > b.FollowUp.Max {
			return fmt.Errorf("quality: band for %s has min above max", intent)
		}
		if intent != reasoning.IntentReject && b.FollowUp.Max >= b.First.Max {
			return fmt.Errorf("quality: follow-up band for %s must be tighter than the first-turn band", intent)
		}
		if prose.Len(c.Offer)+2 >= b.FollowUp.Max {
			return fmt.Errorf("quality: offer does not fit the %s follow-up band", intent)
		}
	}
	return nil
}

// BandFor returns the length band of an intent.
func (c Config) BandFor(intent reasoning.Intent, followUp bool) Band {
	b := c.Bands[intent]
	if followUp {
		return b.FollowUp
	}
	return b.First
}

// Gate evaluates drafts.
type Gate struct {
	cfg        Config
	heuristics []Heuristic
}

// NewGate creates a gate with the default heuristic chain.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg, heuristics: DefaultHeuristics()}
}

// Config returns the gate's configuration.
func (g *Gate) Config() Config {
	return g.cfg
}

// Evaluate scores a draft. attempt is 0 for the first draft and 1 for the
// repaired one; a draft is repaired at most once.
func (g *Gate) Evaluate(text string, out reasoning.Output, attempt int) Assessment {
	in := &Input{
		Text:     text,
		Intent:   out.Intent,
		FollowUp: out.IsFollowUp,
		Band:     g.cfg.BandFor(out.Intent, out.IsFollowUp),
	}
	a := Assessment{Band: in.Band, Length: prose.Len(text), Attempt: attempt}

	score := 0.85 + 0.15*out.Confidence
	if out.NeedsScrutiny {
		score -= g.cfg.ScrutinyPenalty
	}
	for _, h := range g.heuristics {
		if v := h.Check(in); v != nil {
			v.Heuristic = h.Name()
			a.Violations = append(a.Violations, *v)
			score -= v.Penalty
		}
	}
	a.Score = min(max(score, 0), 1)

	overrun := float64(a.Length) > float64(a.Band.Max)*(1+g.cfg.RepairMargin)
	switch {
	case attempt == 0 && overrun:
		a.Decision = DecisionRepair
	case attempt == 0 && a.Score >= g.cfg.Accept:
		a.Decision = DecisionAccept
	case attempt == 0 && a.Score < g.cfg.Floor:
		a.Decision = DecisionTruncate
	case attempt == 0:
		a.Decision = DecisionRepair
	case a.Score >= g.cfg.Accept && a.Length <= a.Band.Max:
		a.Decision = DecisionAccept
	default:
		a.Decision = DecisionTruncate
	}
	return a
}

// Apply produces the final text for an accept or truncate decision. An
// accepted draft is trimmed to the band at a sentence boundary; a
// truncated one is cut to leave room for the offer to elaborate.
func (g *Gate) Apply(a Assessment, text string) string {
	switch a.Decision {
	case DecisionTruncate:
		limit := a.Band.Max - prose.Len(g.cfg.Offer) - 2
		return prose.Cut(text, limit) + "\n\n" + g.cfg.Offer
	case DecisionAccept:
		if prose.Len(text) > a.Band.Max {
			return prose.Cut(text, a.Band.Max)
		}
	}
	return text
}

// Preface puts note ahead of the draft's final text while keeping the
// whole answer inside the band: the draft gets what the note leaves over.
func (g *Gate) Preface(a Assessment, note, draft string) string {
	if a.Band.Max <= 0 {
		return note + "\n\n" + g.Apply(a, draft)
	}
	room := a.Band.Max - prose.Len(note) - 2
	if room <= 0 {
		return prose.Cut(note, a.Band.Max)
	}
	a.Band.Max = room
	if a.Decision == DecisionAccept || a.Decision == DecisionTruncate {
		if body := g.Apply(a, draft); body != "" {
			return note + "\n\n" + body
		}
	}
	return note
}

// RepairInstructions lists what the repair attempt must fix.
func RepairInstructions(a Assessment) []string {
	out := make([]string, 0, len(a.Violations))
	for _, v := range a.Violations {
		out = append(out, v.Instruction)
	}
	return out
}
