package router

import (
	"errors"
	"testing"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
)

func newRouter(t *testing.T) (*Router, *course.Course) {
	t.Helper()
	c, err := course.Default()
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	return New(c, DefaultConfig(), nil), c
}

func q(text string) conversation.Query {
	return conversation.NewQuery("s1", text, nil, "")
}

func TestRouteStages(t *testing.T) {
	r, c := newRouter(t)
	perceived := func(text string, intent reasoning.Intent, conf float64) reasoning.Output {
		return reasoning.Output{Intent: intent, Confidence: conf, Signals: reasoning.Perceive(c, text)}
	}

	tests := []struct {
		name      string
		text      string
		out       reasoning.Output
		wantAgent agents.Kind
		wantTier  llm.Tier
		wantStage Stage
	}{
		{
			name: "fast path beats a confident explain",
			text: "Briefly, what is BFS?", out: perceived("Briefly, what is BFS?", reasoning.IntentExplain, 0.9),
			wantAgent: agents.KindFastAnswer, wantTier: llm.TierFast, wantStage: StageFastPath,
		},
		{
			name: "due date fast path",
			text: "When is Assignment 1 due?", out: perceived("When is Assignment 1 due?", reasoning.IntentTutor, 0.8),
			wantAgent: agents.KindSyllabus, wantTier: llm.TierFast, wantStage: StageFastPath,
		},
		{
			name: "week topics fast path",
			text: "what is covered in week 3", out: perceived("what is covered in week 3", reasoning.IntentExplain, 0.4),
			wantAgent: agents.KindSyllabus, wantTier: llm.TierFast, wantStage: StageFastPath,
		},
		{
			name: "confident reasoning",
			text: "Explain how gradient descent works", out: perceived("Explain how gradient descent works", reasoning.IntentExplain, 0.85),
			wantAgent: agents.KindExplainer, wantTier: llm.TierStandard, wantStage: StageReasoning,
		},
		{
			name: "math goes to the reasoning tier",
			text: "derive Bayes' theorem", out: perceived("derive Bayes' theorem", reasoning.IntentMath, 0.9),
			wantAgent: agents.KindMath, wantTier: llm.TierReasoning, wantStage: StageReasoning,
		},
		{
			name: "low confidence falls to the secondary classifier",
			text: "i'm so confused about this", out: perceived("i'm so confused about this", reasoning.IntentFastAnswer, 0.4),
			wantAgent: agents.KindTutor, wantTier: llm.TierReasoning, wantStage: StageSecondary,
		},
		{
			name: "scrutinized default falls through",
			text: "formula for the learning rate update",
			out: func() reasoning.Output {
				o := perceived("formula for the learning rate update", reasoning.IntentFastAnswer, 0.9)
				o.NeedsScrutiny = true
				return o
			}(),
			wantAgent: agents.KindMath, wantTier: llm.TierReasoning, wantStage: StageSecondary,
		},
		{
			name: "legacy keywords",
			text: "the deadline thing", out: reasoning.Output{Intent: reasoning.IntentFastAnswer, Confidence: 0.1},
			wantAgent: agents.KindSyllabus, wantTier: llm.TierFast, wantStage: StageLegacy,
		},
		{
			name: "legacy default",
			text: "hmm", out: reasoning.Output{Intent: reasoning.IntentFastAnswer, Confidence: 0.1},
			wantAgent: agents.KindExplainer, wantTier: llm.TierStandard, wantStage: StageLegacy,
		},
		{
			name: "reject routes nowhere",
			text: "best pizza in town", out: reasoning.Output{Intent: reasoning.IntentReject, Confidence: 0.9},
			wantAgent: agents.KindNone, wantTier: llm.TierFast, wantStage: StageReasoning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Route(tt.out, q(tt.text))
			if err != nil {
				t.Fatalf("Route: %v", err)
			}
			if d.Agent != tt.wantAgent || d.Tier != tt.wantTier || d.Stage != tt.wantStage {
				t.Errorf("Route(%q) = %s/%s/%s, want %s/%s/%s",
					tt.text, d.Agent, d.Tier, d.Stage, tt.wantAgent, tt.wantTier, tt.wantStage)
			}
		})
	}
}

func TestRouteUnknownIntent(t *testing.T) {
	r, _ := newRouter(t)
	_, err := r.Route(reasoning.Output{Intent: "poetry", Confidence: 0.99}, q("write a poem"))
	if !errors.Is(err, ErrUnknownIntent) {
		t.Errorf("error = %v, want ErrUnknownIntent", err)
	}
	if _, err := AgentFor("poetry"); !errors.Is(err, ErrUnknownIntent) {
		t.Errorf("AgentFor error = %v, want ErrUnknownIntent", err)
	}
}

func TestTierOverrideWins(t *testing.T) {
	r, _ := newRouter(t)
	query := conversation.NewQuery("s1", "What is BFS?", nil, llm.TierReasoning)
	d, err := r.Route(reasoning.Output{Intent: reasoning.IntentFastAnswer, Confidence: 0.9}, query)
	if err != nil {
		t.Fatal(err)
	}
	if d.Tier != llm.TierReasoning {
		t.Errorf("Tier = %s, want the override", d.Tier)
	}
	if d.Agent != agents.KindFastAnswer {
		t.Errorf("override must not change the agent, got %s", d.Agent)
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		intent reasoning.Intent
		impl   bool
		want   llm.Tier
	}{
		{reasoning.IntentFastAnswer, false, llm.TierFast},
		{reasoning.IntentSyllabus, false, llm.TierFast},
		{reasoning.IntentExplain, false, llm.TierStandard},
		{reasoning.IntentTutor, false, llm.TierReasoning},
		{reasoning.IntentMath, false, llm.TierReasoning},
		{reasoning.IntentTutor, true, llm.TierCode},
		{reasoning.IntentExplain, true, llm.TierCode},
		{reasoning.IntentSyllabus, true, llm.TierFast},
	}
	for _, tt := range tests {
		if got := TierFor(tt.intent, tt.impl); got != tt.want {
			t.Errorf("TierFor(%s, %v) = %s, want %s", tt.intent, tt.impl, got, tt.want)
		}
	}
}

func TestTieRuleOnGradedConcepts(t *testing.T) {
	r, _ := newRouter(t)
	tie := func(concept string) reasoning.Output {
		return reasoning.Output{
			Intent: reasoning.IntentFastAnswer, Confidence: 0.8,
			Alternative: reasoning.IntentTutor, AlternativeConfidence: 0.75,
			ConceptID: concept,
		}
	}

	d, err := r.Route(tie("bfs"), q("how does bfs pick the next node"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Agent != agents.KindTutor || !d.TieBroken {
		t.Errorf("graded tie = %s (broken=%v), want tutor", d.Agent, d.TieBroken)
	}

	d, err = r.Route(tie("probability"), q("how does probability work"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Agent != agents.KindFastAnswer || d.TieBroken {
		t.Errorf("ungraded tie = %s (broken=%v), want fast-answer", d.Agent, d.TieBroken)
	}

	wide := tie("bfs")
	wide.AlternativeConfidence = 0.5
	d, err = r.Route(wide, q("how does bfs pick the next node"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Agent != agents.KindFastAnswer {
		t.Errorf("margin beyond TieMargin should keep the best intent, got %s", d.Agent)
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	r, c := newRouter(t)
	text := "help me understand the sigmoid formula"
	out := reasoning.Output{Intent: reasoning.IntentMath, Confidence: 0.5, Signals: reasoning.Perceive(c, text)}
	first, err := r.Route(out, q(text))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		d, err := r.Route(out, q(text))
		if err != nil {
			t.Fatal(err)
		}
		if d != first {
			t.Fatalf("run %d: %+v != %+v", i, d, first)
		}
	}
}

func TestModeLabel(t *testing.T) {
	d := Decision{Intent: reasoning.IntentExplain, Confidence: 0.85}
	if got := d.ModeLabel(); got != "explanation mode (85% confidence)" {
		t.Errorf("ModeLabel = %q", got)
	}
}
