package policy

import (
	"strings"
	"testing"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
)

func newGovernor(t *testing.T) *Governor {
	t.Helper()
	c, err := course.Default()
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	return NewGovernor(c, DefaultConfig(), nil)
}

func q(text string, history ...conversation.Turn) conversation.Query {
	return conversation.NewQuery("s1", text, history, "")
}

var bfsTurns = []conversation.Turn{
	{Role: conversation.RoleUser, Text: "What is BFS?"},
	{Role: conversation.RoleAssistant, Text: "BFS explores level by level. Does that make sense?"},
}

func TestCheckInputScope(t *testing.T) {
	g := newGovernor(t)
	tests := []struct {
		query conversation.Query
		allow bool
	}{
		{q("What is BFS?"), true},
		{q("When is Assignment 1 due?"), true},
		{q("what do we cover in week 4"), true},
		{q("explain gradient descent with an example"), true},
		{q("what's the best pizza in Toronto?"), false},
		{q("write me a poem about the ocean"), false},
		{q("it still doesn't make sense", bfsTurns...), true},
		{q("it still doesn't make sense"), false},
		{q("can you give me a recipe for banana bread with walnuts and lots of extra chocolate chips", bfsTurns...), false},
	}
	for _, tt := range tests {
		v := g.CheckInput(tt.query)
		if v.Allowed != tt.allow {
			t.Errorf("CheckInput(%q) allowed=%v, want %v (%s)", tt.query.Text, v.Allowed, tt.allow, v.Reason)
		}
		if !v.Allowed {
			if v.Law != LawScope || v.Message == "" {
				t.Errorf("denial of %q missing law or message: %+v", tt.query.Text, v)
			}
			if !strings.Contains(v.Message, "Intelligent Agents") {
				t.Errorf("scope message should list in-scope topics: %q", v.Message)
			}
		}
	}
}

func TestGradedRequest(t *testing.T) {
	g := newGovernor(t)

	a, ok := g.GradedRequest(q("write the full code for Assignment 1"))
	if !ok || a.ID != "assignment-1" {
		t.Errorf("GradedRequest = %q, %v", a.ID, ok)
	}
	if _, ok := g.GradedRequest(q("What is BFS?")); ok {
		t.Error("plain concept question is not graded")
	}
	// Midterm has no integrity patterns.
	if _, ok := g.GradedRequest(q("what is on the midterm?")); ok {
		t.Error("midterm should not be integrity-sensitive")
	}

	history := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "help me with assignment 1"},
		{Role: conversation.RoleAssistant, Text: "Sure. What have you tried so far?"},
	}
	if a, ok := g.GradedRequest(q("just give me the code", history...)); !ok || a.ID != "assignment-1" {
		t.Errorf("follow-up should inherit the graded item, got %q %v", a.ID, ok)
	}
}

const fullSolution = "Here is the full solution:\n\n```python\n" +
	"from collections import deque\n\n" +
	"def bfs(graph, start, goal):\n" +
	"    frontier = deque([start])\n" +
	"    parents = {start: None}\n" +
	"    while frontier:\n" +
	"        node = frontier.popleft()\n" +
	"        if node == goal:\n" +
	"            return path(parents, goal)\n" +
	"        for n in graph[node]:\n" +
	"            if n not in parents:\n" +
	"                parents[n] = node\n" +
	"                frontier.append(n)\n" +
	"```\n"

const scaffold = "Let's build it together. Think about which data structure gives you the oldest node first. " +
	"Start with a frontier holding only the start node:\n\n```python\nfrontier = deque([start])\n```\n\n" +
	"What should happen each time you take a node off the frontier?"

func TestIsCompleteSolution(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"fenced code", fullSolution, true},
		{"short snippet", scaffold, false},
		{"prose", "BFS expands the shallowest node first. Which node comes next?", false},
		{"numbered with final answer", "1. Compute P(B).\n2. Multiply.\n3. Divide.\n4. Simplify.\nThe final answer is 0.18.", true},
		{"numbered without answer", "1. Read the maze.\n2. Pick a frontier.\n3. Track parents.\n4. Rebuild the path.\nWhich step is unclear?", false},
		{"unfenced code", strings.ReplaceAll(strings.ReplaceAll(fullSolution, "```python\n", ""), "```\n", ""), true},
	}
	for _, tt := range tests {
		if got := IsCompleteSolution(tt.text, cfg); got != tt.want {
			t.Errorf("%s: IsCompleteSolution = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCheckOutputIntegrity(t *testing.T) {
	g := newGovernor(t)
	graded := q("write the full code for Assignment 1")

	v := g.CheckOutput(fullSolution, graded)
	if v.Allowed || v.Law != LawIntegrity || v.Assessment == nil || v.Assessment.ID != "assignment-1" {
		t.Errorf("full solution to graded item: %+v", v)
	}
	if v := g.CheckOutput(scaffold, graded); !v.Allowed {
		t.Errorf("scaffold denied: %s", v.Reason)
	}
	// The same code for an ungraded question is fine.
	if v := g.CheckOutput(fullSolution, q("show me BFS in python")); !v.Allowed {
		t.Errorf("ungraded code denied: %s", v.Reason)
	}
}

func TestScaffoldFallback(t *testing.T) {
	g := newGovernor(t)
	a, _ := g.course.Assessment("assignment-1")
	text := g.ScaffoldFallback(a, "bfs")

	if !strings.HasPrefix(text, "Assignment 1: Uninformed Search is graded") {
		t.Errorf("unexpected opening: %q", text)
	}
	if !strings.Contains(text, "Breadth-First Search and Depth-First Search") {
		t.Errorf("should name the assessed concepts: %q", text)
	}
	if !strings.HasSuffix(text, "?") || strings.Count(text, "?") != 1 {
		t.Errorf("should end with exactly one question: %q", text)
	}
	if IsCompleteSolution(text, DefaultConfig()) {
		t.Error("fallback must not itself be a solution")
	}
	if v := g.CheckOutput(text, q("write the full code for Assignment 1")); !v.Allowed {
		t.Error("fallback must pass the integrity check")
	}
}

func TestJoinList(t *testing.T) {
	tests := map[string][]string{
		"":           nil,
		"a":          {"a"},
		"a and b":    {"a", "b"},
		"a, b and c": {"a", "b", "c"},
	}
	for want, in := range tests {
		if got := joinList(in); got != want {
			t.Errorf("joinList(%v) = %q, want %q", in, got, want)
		}
	}
}
