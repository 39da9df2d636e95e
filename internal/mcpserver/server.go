// Package mcpserver exposes the tutor as MCP tools over stdio.
package mcpserver

import (
	"context"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/review"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
	"github.com/AazainKhan/luminate-ai-sub000/internal/tutor"
)

// historyTurns bounds the conversation kept per student.
const historyTurns = 20

// Deps are what the tools need.
type Deps struct {
	Engine   *tutor.Engine
	Students *student.Model
	Course   *course.Course
	Review   *review.Planner
	Logger   *zap.Logger
}

// New creates the MCP server with every tool registered.
func New(deps Deps, version string) *server.MCPServer {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := server.NewMCPServer(
		"luminate",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	sessions := newSessions(historyTurns)

	ask := NewAskTool(deps.Engine, sessions, deps.Logger)
	s.AddTool(ask.Definition(), ask.Handle)

	mastery := NewMasteryTool(deps.Students, deps.Course)
	s.AddTool(mastery.Definition(), mastery.Handle)

	if deps.Review != nil {
		rv := NewReviewTool(deps.Review)
		s.AddTool(rv.Definition(), rv.Handle)
	}

	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Luminate is a course tutor. Send each learner message to tutor_ask with a stable student_id; ` +
	`the server keeps the conversation so short follow-ups ("I still don't get it") are understood. ` +
	`Relay the answer text to the learner unchanged. Use tutor_mastery to see what a learner has mastered ` +
	`and tutor_review to suggest what they should revisit.`

// sessions keeps the recent conversation of each student. A student's
// turns run one at a time so each sees the history of the one before.
type sessions struct {
	mu    sync.Mutex
	limit int
	byID  map[string]*conversation.History
	gates map[string]*semaphore.Weighted
}

func newSessions(limit int) *sessions {
	return &sessions{
		limit: limit,
		byID:  make(map[string]*conversation.History),
		gates: make(map[string]*semaphore.Weighted),
	}
}

// acquire waits for the student's session. The returned func releases it.
func (s *sessions) acquire(ctx context.Context, studentID string) (func(), error) {
	s.mu.Lock()
	g, ok := s.gates[studentID]
	if !ok {
		g = semaphore.NewWeighted(1)
		s.gates[studentID] = g
	}
	s.mu.Unlock()

	if err := g.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.Release(1) }, nil
}

func (s *sessions) turns(studentID string) []conversation.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.byID[studentID]; ok {
		return h.Turns()
	}
	return nil
}

func (s *sessions) record(studentID, query, answer string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.byID[studentID]
	if !ok {
		h = conversation.NewHistory(s.limit)
		s.byID[studentID] = h
	}
	h.Add(conversation.RoleUser, query, at)
	h.Add(conversation.RoleAssistant, answer, at)
}

func (s *sessions) reset(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, studentID)
}
