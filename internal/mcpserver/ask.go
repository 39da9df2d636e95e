package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/tutor"
)

// AskTool handles the tutor_ask MCP tool.
type AskTool struct {
	engine   *tutor.Engine
	sessions *sessions
	logger   *zap.Logger
}

// NewAskTool creates an AskTool.
func NewAskTool(engine *tutor.Engine, sessions *sessions, logger *zap.Logger) *AskTool {
	return &AskTool{engine: engine, sessions: sessions, logger: logger}
}

// Definition returns the MCP tool definition for tutor_ask.
func (t *AskTool) Definition() mcp.Tool {
	return mcp.NewTool("tutor_ask",
		mcp.WithDescription("Ask the course tutor one question on behalf of a learner. "+
			"The tutor remembers the learner's recent conversation."),
		mcp.WithString("student_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the learner"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The learner's message, verbatim"),
		),
		mcp.WithString("tier",
			mcp.Description("Force a model tier: fast, standard, reasoning or code"),
			mcp.Enum("fast", "standard", "reasoning", "code"),
		),
		mcp.WithBoolean("new_conversation",
			mcp.Description("Forget the learner's earlier conversation before answering"),
		),
	)
}

// Handle processes the tutor_ask tool call.
func (t *AskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	studentID := strings.TrimSpace(req.GetString("student_id", ""))
	query := strings.TrimSpace(req.GetString("query", ""))
	if studentID == "" {
		return mcp.NewToolResultError("'student_id' is required"), nil
	}
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	tier, err := llm.ParseTier(req.GetString("tier", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	release, err := t.sessions.acquire(ctx, studentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("the tutor could not answer: %v", err)), nil
	}
	defer release()

	if boolArg(req, "new_conversation", false) {
		t.sessions.reset(studentID)
	}

	q := conversation.NewQuery(studentID, query, t.sessions.turns(studentID), tier)
	resp, err := t.engine.HandleTurn(ctx, q)
	if err != nil {
		t.logger.Warn("tutor_ask failed", zap.String("student", studentID), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("the tutor could not answer: %v", err)), nil
	}
	t.sessions.record(studentID, query, resp.Text, time.Now())

	return mcp.NewToolResultText(formatResponse(resp)), nil
}

func formatResponse(resp *tutor.FinalResponse) string {
	var b strings.Builder
	b.WriteString(resp.Text)
	b.WriteString("\n\n[" + resp.ModeLabel + "]")
	if len(resp.Sources) > 0 {
		b.WriteString("\nSources: " + strings.Join(resp.Sources, ", "))
	}
	for _, n := range resp.Notes {
		b.WriteString("\nNote: " + n)
	}
	return b.String()
}

// boolArg extracts a boolean argument, returning defaultVal when it is
// missing or not a boolean.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
