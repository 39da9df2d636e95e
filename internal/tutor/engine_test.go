package tutor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/diagnosis"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/policy"
	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
	"github.com/AazainKhan/luminate-ai-sub000/internal/quality"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
	"github.com/AazainKhan/luminate-ai-sub000/internal/router"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

type harness struct {
	course *course.Course
	mock   *llm.MockProvider
	store  *store.Store
	engine *Engine
}

type harnessOptions struct {
	wrap     func(*llm.MockProvider) llm.Provider // wraps the mock for every call
	agentLLM llm.Provider                         // serves agent calls only
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	c, err := course.Default()
	require.NoError(t, err)
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider()
	var provider llm.Provider = mock
	if opts.wrap != nil {
		provider = opts.wrap(mock)
	}
	agentLLM := opts.agentLLM
	if agentLLM == nil {
		agentLLM = provider
	}

	registry := diagnosis.NewRegistry(c)
	governor := policy.NewGovernor(c, policy.DefaultConfig(), nil)
	e, err := New(Deps{
		Course:   c,
		Governor: governor,
		Reasoner: reasoning.NewEngine(c, provider, reasoning.DefaultConfig()),
		Router:   router.New(c, router.DefaultConfig(), nil),
		Agents: agents.DefaultSet(agents.Deps{
			Course:   c,
			Tiers:    llm.SingleTier(agentLLM),
			Governor: governor,
			Config:   agents.DefaultConfig(),
		}),
		Gate:      quality.NewGate(quality.DefaultConfig()),
		Students:  student.NewModel(student.DefaultConfig(), c, registry, st.MasteryRepo()),
		Diagnoser: diagnosis.NewService(registry, provider, nil),
		Log:       st.InteractionRepo(),
		Cache:     st.CacheRepo(),
	}, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	return &harness{course: c, mock: mock, store: st, engine: e}
}

// session keeps one learner's conversation across turns.
type session struct {
	h       *harness
	id      string
	history []conversation.Turn
}

func (h *harness) session(id string) *session {
	return &session{h: h, id: id}
}

func (s *session) ask(t *testing.T, text string) *FinalResponse {
	t.Helper()
	return s.askCtx(t, context.Background(), text)
}

func (s *session) askCtx(t *testing.T, ctx context.Context, text string) *FinalResponse {
	t.Helper()
	resp, err := s.h.engine.HandleTurn(ctx, conversation.NewQuery(s.id, text, s.history, ""))
	require.NoError(t, err)
	now := time.Now()
	s.history = append(s.history,
		conversation.Turn{Role: conversation.RoleUser, Text: text, Timestamp: now},
		conversation.Turn{Role: conversation.RoleAssistant, Text: resp.Text, Timestamp: now},
	)
	return resp
}

// logs closes the engine so every queued write lands, then reads the log.
func (h *harness) logs(t *testing.T, studentID string) []store.InteractionRow {
	t.Helper()
	require.NoError(t, h.engine.Close())
	rows, err := h.store.InteractionRepo().List(context.Background(), studentID, store.QueryOpts{})
	require.NoError(t, err)
	return rows
}

func classification(intent reasoning.Intent, confidence float64, topic string, implementation bool) llm.MockResponse {
	return llm.MockJSON(map[string]any{
		"intent":                 string(intent),
		"confidence":             confidence,
		"complexity":             "medium",
		"topic":                  topic,
		"implementation":         implementation,
		"alternative_intent":     "none",
		"alternative_confidence": 0.0,
	})
}

const bfsDefinition = "Breadth-first search is a graph search that expands every node at one depth before any node at the next depth."

func bfsExplanation() llm.MockResponse {
	return llm.MockJSON(map[string]any{
		"definition":  bfsDefinition,
		"example":     "For example, starting from A with neighbours B and C, BFS visits A, then B and C, then their neighbours.",
		"elaboration": "It keeps the frontier in a FIFO queue, so the oldest node waiting is always the next one expanded.",
		"check_in":    "Which data structure holds the BFS frontier?",
	})
}

func bfsFollowUp(keyIdea string) llm.MockResponse {
	return llm.MockJSON(map[string]any{
		"key_idea":            keyIdea,
		"analogy":             "Think of ripples on a pond spreading out one ring at a time.",
		"diagnostic_question": "Which nodes does BFS visit right after the start node?",
	})
}

func TestScenarioExplainDefinitionFirst(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "BFS", false))
	h.mock.On("explainer", bfsExplanation())

	resp := h.session("ada").ask(t, "What is BFS?")

	assert.Equal(t, reasoning.IntentExplain, resp.Intent)
	assert.Equal(t, agents.KindExplainer, resp.Agent)
	assert.Equal(t, llm.TierStandard, resp.Tier)
	assert.Equal(t, quality.DecisionAccept, resp.Decision)
	assert.False(t, resp.IsFollowUp)
	assert.Equal(t, "bfs", resp.ConceptID)
	assert.Contains(t, resp.ModeLabel, "explanation mode")

	def := strings.Index(resp.Text, bfsDefinition)
	q := strings.Index(resp.Text, "?")
	require.GreaterOrEqual(t, def, 0, "definition missing from %q", resp.Text)
	require.Greater(t, q, def, "definition must come before any question")

	rows := h.logs(t, "ada")
	require.Len(t, rows, 1)
	assert.Equal(t, string(student.InteractionExplanationViewed), rows[0].Kind)
	assert.Equal(t, string(student.LogPassive), rows[0].Outcome)
	assert.Equal(t, resp.TurnID, rows[0].TurnID)

	require.NotEmpty(t, h.mock.Turns)
	for _, id := range h.mock.Turns {
		assert.Equal(t, resp.TurnID, id, "every model call is tagged with its turn")
	}
}

func TestScenarioFollowUpStaysShortAndUnlabelled(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning",
		classification(reasoning.IntentExplain, 0.8, "BFS", false),
		classification(reasoning.IntentTutor, 0.8, "BFS", false),
	)
	h.mock.On("explainer", bfsExplanation())
	h.mock.On("tutor", bfsFollowUp("Key idea: BFS always finishes every node one step away before it looks any further out."))

	s := h.session("ada")
	s.ask(t, "What is BFS?")
	resp := s.ask(t, "it still doesn't make sense")

	assert.True(t, resp.IsFollowUp)
	assert.Equal(t, reasoning.IntentTutor, resp.Intent)
	assert.Equal(t, agents.KindTutor, resp.Agent)
	band := quality.DefaultConfig().BandFor(reasoning.IntentTutor, true)
	assert.LessOrEqual(t, prose.Len(resp.Text), band.Max)
	assert.NotContains(t, resp.Text, "Activation:")
	assert.NotContains(t, resp.Text, "Key idea:")
	assert.False(t, agents.HasPhaseLabels(resp.Text), "phase label leaked: %q", resp.Text)
	assert.Equal(t, 1, prose.Questions(resp.Text))
	assert.Equal(t, student.LogConfusionDetected, resp.Outcome)

	rows := h.logs(t, "ada")
	require.Len(t, rows, 2)
	assert.Equal(t, string(student.LogPassive), rows[0].Outcome)
	assert.Equal(t, string(student.LogConfusionDetected), rows[1].Outcome)
	assert.Less(t, rows[0].Sequence, rows[1].Sequence)
}

func TestFollowUpOverrunRepairsExactlyOnce(t *testing.T) {
	long := strings.Repeat("BFS looks at every node one step away before any node two steps away. ", 10)
	band := quality.DefaultConfig().BandFor(reasoning.IntentTutor, true)

	tests := []struct {
		name     string
		repaired llm.MockResponse
		want     quality.Decision
	}{
		{"repair fits", bfsFollowUp("BFS finishes one layer of nodes before it starts the next."), quality.DecisionAccept},
		{"repair still too long", bfsFollowUp(long), quality.DecisionTruncate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, harnessOptions{})
			h.mock.On("reasoning",
				classification(reasoning.IntentExplain, 0.8, "BFS", false),
				classification(reasoning.IntentTutor, 0.8, "BFS", false),
			)
			h.mock.On("explainer", bfsExplanation())
			h.mock.On("tutor", bfsFollowUp(long), tt.repaired)

			s := h.session("ada")
			s.ask(t, "What is BFS?")
			resp := s.ask(t, "it still doesn't make sense")

			assert.Equal(t, 2, h.mock.CallsFor("tutor"), "one draft plus exactly one repair")
			assert.Equal(t, tt.want, resp.Decision)
			assert.LessOrEqual(t, prose.Len(resp.Text), band.Max)
			if tt.want == quality.DecisionTruncate {
				assert.True(t, strings.HasSuffix(resp.Text, quality.DefaultConfig().Offer))
			}
		})
	}
}

const fullSolution = "Here is the full solution:\n```python\nfrom collections import deque\n\ndef bfs(graph, start, goal):\n    frontier = deque([start])\n    visited = {start}\n    while frontier:\n        node = frontier.popleft()\n        if node == goal:\n            return node\n        for n in graph[node]:\n            if n not in visited:\n                visited.add(n)\n                frontier.append(n)\n    return None\n```"

func lesson(hint string) llm.MockResponse {
	return llm.MockJSON(map[string]any{
		"activation":           "You already know that a queue hands items back in the order they arrived.",
		"exploration_question": "Which node should leave the frontier first, and why?",
		"hint":                 hint,
	})
}

func TestScenarioGradedRequestGetsScaffolding(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning", classification(reasoning.IntentTutor, 0.8, "BFS", true))
	h.mock.On("tutor",
		lesson(fullSolution),
		lesson("Trace your plan by hand on a graph with four nodes before you write any code."),
	)

	resp := h.session("ada").ask(t, "write the full code for Assignment 1")

	assert.Equal(t, policy.LawIntegrity, resp.Law)
	assert.Equal(t, llm.TierCode, resp.Tier)
	assert.Equal(t, 2, h.mock.CallsFor("tutor"), "denied draft is regenerated once as scaffolding")
	assert.True(t, strings.HasPrefix(resp.Text, "Assignment 1: Uninformed Search is graded work"), resp.Text)
	assert.NotContains(t, resp.Text, "```")
	assert.NotContains(t, resp.Text, "popleft")
	assert.Contains(t, resp.Text, "Trace your plan by hand")
	assert.Equal(t, student.LogPolicyDenied, resp.Outcome)

	rows := h.logs(t, "ada")
	require.Len(t, rows, 1)
	assert.Equal(t, string(student.LogPolicyDenied), rows[0].Outcome)
}

func TestGradedRequestFallsBackToGovernorScaffold(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning", classification(reasoning.IntentTutor, 0.8, "BFS", true))
	h.mock.On("tutor", lesson(fullSolution), lesson(fullSolution))

	resp := h.session("ada").ask(t, "write the full code for Assignment 1")

	assert.Equal(t, 2, h.mock.CallsFor("tutor"))
	assert.True(t, strings.HasPrefix(resp.Text, "Assignment 1: Uninformed Search is graded, so I can't hand you a finished solution"), resp.Text)
	assert.NotContains(t, resp.Text, "```")
	assert.Equal(t, policy.LawIntegrity, resp.Law)
	assert.Contains(t, resp.Text, "Keep the core of")
	assert.False(t, agents.HasPhaseLabels(resp.Text), "phase label leaked: %q", resp.Text)
}

func TestFollowUpOnGradedWorkKeepsIntegrityNoteInsideBand(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning",
		classification(reasoning.IntentTutor, 0.8, "BFS", true),
		classification(reasoning.IntentTutor, 0.8, "BFS", true),
	)
	scaffold := "Start from the start node and write down which nodes sit one edge away from it. " +
		"Then list the nodes two edges away, and notice that none of them can be reached before the first list is finished. " +
		"That ordering is the whole trick, and the queue is only there to remember it for you while the search runs."
	h.mock.On("tutor",
		lesson(fullSolution),
		lesson("Trace your plan by hand on a graph with four nodes before you write any code."),
		bfsFollowUp(fullSolution),
		bfsFollowUp(scaffold),
		bfsFollowUp(scaffold),
	)

	s := h.session("ada")
	s.ask(t, "write the full code for Assignment 1")
	resp := s.ask(t, "it still doesn't make sense")

	assert.True(t, resp.IsFollowUp)
	assert.Equal(t, policy.LawIntegrity, resp.Law)
	assert.GreaterOrEqual(t, h.mock.CallsFor("tutor"), 4)
	assert.True(t, strings.HasPrefix(resp.Text, "Assignment 1: Uninformed Search is graded work"), resp.Text)
	assert.NotContains(t, resp.Text, "```")
	band := quality.DefaultConfig().BandFor(reasoning.IntentTutor, true)
	assert.LessOrEqual(t, prose.Len(resp.Text), band.Max, "integrity note plus scaffold: %q", resp.Text)
}

func TestNewRequestAfterCheckInIsNotGradedCorrect(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning",
		classification(reasoning.IntentExplain, 0.8, "BFS", false),
		classification(reasoning.IntentExplain, 0.8, "DFS", false),
	)
	h.mock.On("explainer", bfsExplanation(), bfsExplanation())
	ctx := context.Background()

	s := h.session("ada")
	s.ask(t, "What is BFS?")
	before, err := h.engine.Students.EstimateMastery(ctx, "ada", "dfs")
	require.NoError(t, err)

	resp := s.ask(t, "Now explain depth first search")
	assert.NotEqual(t, student.LogCorrect, resp.Outcome)

	after, err := h.engine.Students.EstimateMastery(ctx, "ada", "dfs")
	require.NoError(t, err)
	assert.Equal(t, before, after, "a new request is no evidence of mastery")

	rows := h.logs(t, "ada")
	require.Len(t, rows, 2)
	assert.Equal(t, string(student.LogPassive), rows[1].Outcome)
}

func TestScenarioMisconceptionResolves(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	for i := 0; i < 5; i++ {
		h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "BFS", false))
		h.mock.On("explainer", bfsExplanation())
	}
	ctx := context.Background()
	model := h.engine.Students
	s := h.session("ada")

	s.ask(t, "BFS uses a stack to decide which node to visit next")
	resp := s.ask(t, "BFS uses a stack to decide which node to visit next")
	assert.Equal(t, student.LogIncorrect, resp.Outcome)

	rec, err := model.Misconception(ctx, "ada", "bfs-uses-stack")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.DetectionCount)
	assert.False(t, rec.Resolved)
	assert.True(t, rec.Priority)

	for _, answer := range []string{
		"BFS takes the oldest node from a FIFO queue each time",
		"In BFS the frontier is a queue so the first node in is the first out",
		"BFS finishes every node at depth one before depth two",
	} {
		resp := s.ask(t, answer)
		assert.Equal(t, student.LogCorrect, resp.Outcome, answer)
	}

	rec, err = model.Misconception(ctx, "ada", "bfs-uses-stack")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Resolved)
	assert.NotNil(t, rec.ResolvedAt)
	assert.Equal(t, 2, rec.DetectionCount)

	rows := h.logs(t, "ada")
	require.Len(t, rows, 5)
	assert.Equal(t, "bfs-uses-stack", rows[0].Detail)
	for _, r := range rows {
		assert.Equal(t, string(student.InteractionQuizAttempt), r.Kind)
	}
}

func TestScopeDenialIsAResponse(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	resp := h.session("ada").ask(t, "what is a good pizza topping")

	assert.Equal(t, policy.LawScope, resp.Law)
	assert.Equal(t, reasoning.IntentReject, resp.Intent)
	assert.Equal(t, agents.KindNone, resp.Agent)
	assert.Contains(t, resp.Text, "outside what I can help with")
	assert.Equal(t, 0, h.mock.CallCount(), "a denied query never reaches the model")

	rows := h.logs(t, "ada")
	require.Len(t, rows, 1)
	assert.Equal(t, string(student.LogPolicyDenied), rows[0].Outcome)
}

func TestSyllabusNeedsNoModel(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	resp := h.session("ada").ask(t, "When is Assignment 1 due?")

	assert.Equal(t, reasoning.IntentSyllabus, resp.Intent)
	assert.Equal(t, agents.KindSyllabus, resp.Agent)
	assert.Contains(t, resp.Text, "Friday, February 6")
	assert.Zero(t, h.mock.CallsFor("syllabus"))
}

func TestGenerationFailureFallsBackToCourseNotes(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "BFS", false))
	boom := llm.MockResponse{Err: errors.New("upstream 500")}
	h.mock.On("explainer", boom, boom)

	resp := h.session("ada").ask(t, "What is BFS?")

	assert.Equal(t, 2, h.mock.CallsFor("explainer"), "one reduced-scope retry")
	assert.True(t, resp.Degraded)
	bfs, err := h.course.Concept("bfs")
	require.NoError(t, err)
	assert.Equal(t, bfs.Description, resp.Text)
	assert.NotEmpty(t, resp.Notes)

	rows := h.logs(t, "ada")
	assert.Len(t, rows, 1, "a degraded answer is still a turn")
}

func TestGenerationFailureUsesCachedAnswer(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning",
		classification(reasoning.IntentExplain, 0.8, "BFS", false),
		classification(reasoning.IntentExplain, 0.8, "BFS", false),
	)
	boom := llm.MockResponse{Err: errors.New("upstream 500")}
	h.mock.On("explainer", bfsExplanation(), boom, boom)

	first := h.session("ada").ask(t, "What is BFS?")
	require.False(t, first.Degraded)
	require.Eventually(t, func() bool {
		c, err := h.store.CacheRepo().Get(context.Background(), "explain:what is bfs?")
		return err == nil && c != nil
	}, time.Second, 5*time.Millisecond)

	second := h.session("grace").ask(t, "What is BFS?")
	assert.True(t, second.Degraded)
	assert.Equal(t, first.Text, second.Text)
	assert.Contains(t, second.Notes, noteCached)
}

func TestTotalFailureAsksToTryAgain(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "", false))
	boom := llm.MockResponse{Err: errors.New("upstream 500")}
	h.mock.On("explainer", boom, boom)

	// In scope only through the earlier logistics question, and about no
	// concept the course notes cover.
	s := h.session("ada")
	s.history = []conversation.Turn{
		{Role: conversation.RoleUser, Text: "When is Assignment 1 due?"},
		{Role: conversation.RoleAssistant, Text: "Friday."},
	}
	resp := s.ask(t, "explain how a hash table works")

	assert.True(t, resp.Degraded)
	assert.Equal(t, DefaultConfig().TryAgain, resp.Text)
	assert.Empty(t, h.logs(t, "ada"), "nothing is recorded without a draft")
}

// blockingProvider never answers before its context ends.
type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }

func TestModelTimeoutFallsBack(t *testing.T) {
	h := newHarness(t, harnessOptions{agentLLM: llm.WithTimeout(blockingProvider{}, 20*time.Millisecond)})
	h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "BFS", false))

	start := time.Now()
	resp := h.session("ada").ask(t, "What is BFS?")

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.Text, "Breadth-first search")
}

// hookProvider lets a test act on the nth call for a purpose.
type hookProvider struct {
	*llm.MockProvider
	mu     sync.Mutex
	counts map[string]int
	hook   func(purpose string, n int) error
}

func hook(fn func(purpose string, n int) error) func(*llm.MockProvider) llm.Provider {
	return func(m *llm.MockProvider) llm.Provider {
		return &hookProvider{MockProvider: m, counts: make(map[string]int), hook: fn}
	}
}

func (p *hookProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	purpose := llm.PurposeFrom(ctx)
	p.mu.Lock()
	n := p.counts[purpose]
	p.counts[purpose]++
	p.mu.Unlock()
	if err := p.hook(purpose, n); err != nil {
		return nil, err
	}
	return p.MockProvider.Generate(ctx, req)
}

func TestCancelledRepairStillUpdatesStudent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, harnessOptions{wrap: hook(func(purpose string, n int) error {
		if purpose == "tutor" && n == 1 {
			cancel()
			return context.Canceled
		}
		return nil
	})})

	long := strings.Repeat("BFS looks at every node one step away before any node two steps away. ", 10)
	h.mock.On("reasoning",
		classification(reasoning.IntentExplain, 0.8, "BFS", false),
		classification(reasoning.IntentTutor, 0.8, "BFS", false),
	)
	h.mock.On("explainer", bfsExplanation())
	h.mock.On("tutor", bfsFollowUp(long))

	s := h.session("ada")
	s.ask(t, "What is BFS?")
	resp := s.askCtx(t, ctx, "it still doesn't make sense")

	assert.Equal(t, quality.DecisionTruncate, resp.Decision, "the unrepaired draft is truncated")
	assert.Error(t, ctx.Err())

	rows := h.logs(t, "ada")
	require.Len(t, rows, 2)
	assert.Equal(t, string(student.LogConfusionDetected), rows[1].Outcome)
}

func TestCancelledBeforeDraftRecordsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, harnessOptions{wrap: hook(func(purpose string, _ int) error {
		if purpose == "explainer" {
			cancel()
			return context.Canceled
		}
		return nil
	})})
	h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "BFS", false))

	_, err := h.engine.HandleTurn(ctx, conversation.NewQuery("ada", "What is BFS?", nil, ""))
	require.ErrorIs(t, err, context.Canceled)

	snap, err := h.engine.Students.Snapshot(context.Background(), "ada")
	require.NoError(t, err)
	assert.Empty(t, snap, "no mastery record is created")
	assert.Empty(t, h.logs(t, "ada"))
}

func TestTurnsOfOneStudentAreSerialized(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	unlock, err := h.engine.lock(context.Background(), "ada")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = h.engine.HandleTurn(ctx, conversation.NewQuery("ada", "When is Assignment 1 due?", nil, ""))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Another student is not held up.
	resp, err := h.engine.HandleTurn(context.Background(), conversation.NewQuery("grace", "When is Assignment 1 due?", nil, ""))
	require.NoError(t, err)
	assert.Equal(t, agents.KindSyllabus, resp.Agent)

	unlock()
	_, err = h.engine.HandleTurn(context.Background(), conversation.NewQuery("ada", "When is Assignment 1 due?", nil, ""))
	require.NoError(t, err)
}

func TestTierOverrideWins(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "BFS", false))
	h.mock.On("explainer", bfsExplanation())

	q := conversation.NewQuery("ada", "What is BFS?", nil, llm.TierReasoning)
	resp, err := h.engine.HandleTurn(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, llm.TierReasoning, resp.Tier)
}

func TestInvalidQueries(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	_, err := h.engine.HandleTurn(context.Background(), conversation.NewQuery("", "What is BFS?", nil, ""))
	assert.ErrorIs(t, err, ErrNoStudent)
	_, err = h.engine.HandleTurn(context.Background(), conversation.NewQuery("ada", "   ", nil, ""))
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestTraceFollowsStateMachine(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	h.mock.On("reasoning", classification(reasoning.IntentExplain, 0.8, "BFS", false))
	h.mock.On("explainer", bfsExplanation())

	resp := h.session("ada").ask(t, "What is BFS?")
	var phases []Phase
	for _, s := range resp.Trace {
		phases = append(phases, s.Phase)
	}
	assert.Equal(t, []Phase{
		PhasePolicyIn, PhaseReason, PhaseRoute, PhaseDiagnose, PhaseGenerate,
		PhasePolicyOut, PhaseQuality, PhaseFinalize, PhaseRecord,
	}, phases)
}
