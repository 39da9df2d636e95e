package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AazainKhan/luminate-ai-sub000/internal/review"
)

// ReviewTool handles the tutor_review MCP tool.
type ReviewTool struct {
	planner *review.Planner
	now     func() time.Time
}

// NewReviewTool creates a ReviewTool.
func NewReviewTool(planner *review.Planner) *ReviewTool {
	return &ReviewTool{planner: planner, now: time.Now}
}

// Definition returns the MCP tool definition for tutor_review.
func (t *ReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("tutor_review",
		mcp.WithDescription("Suggest which concepts a learner should revisit next, "+
			"based on open misconceptions, review schedule and current mastery."),
		mcp.WithString("student_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the learner"),
		),
	)
}

// Handle processes the tutor_review tool call.
func (t *ReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	studentID := strings.TrimSpace(req.GetString("student_id", ""))
	if studentID == "" {
		return mcp.NewToolResultError("'student_id' is required"), nil
	}

	items, err := t.planner.Plan(ctx, studentID, t.now())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to plan review: %v", err)), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Nothing to review for %s right now.", studentID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Suggested review for %s:\n", studentID)
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %s (week %d): %s\n", i+1, it.Name, it.Week, it.Reason)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}
