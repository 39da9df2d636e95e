package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

// MasteryTool handles the tutor_mastery MCP tool.
type MasteryTool struct {
	students *student.Model
	course   *course.Course
}

// NewMasteryTool creates a MasteryTool.
func NewMasteryTool(students *student.Model, c *course.Course) *MasteryTool {
	return &MasteryTool{students: students, course: c}
}

// Definition returns the MCP tool definition for tutor_mastery.
func (t *MasteryTool) Definition() mcp.Tool {
	return mcp.NewTool("tutor_mastery",
		mcp.WithDescription("Show a learner's current mastery of each course concept they have worked on, "+
			"and the misconceptions the tutor is still correcting."),
		mcp.WithString("student_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the learner"),
		),
	)
}

// Handle processes the tutor_mastery tool call.
func (t *MasteryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	studentID := strings.TrimSpace(req.GetString("student_id", ""))
	if studentID == "" {
		return mcp.NewToolResultError("'student_id' is required"), nil
	}

	snap, err := t.students.Snapshot(ctx, studentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read mastery: %v", err)), nil
	}
	mis, err := t.students.Misconceptions(ctx, studentID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read misconceptions: %v", err)), nil
	}
	if len(snap) == 0 && len(mis) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No activity recorded for %s yet.", studentID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mastery for %s:\n", studentID)
	for _, m := range snap {
		fmt.Fprintf(&b, "- %s: %.0f%%", t.name(m.ConceptID), m.Effective*100)
		if m.Effective < m.Mastery {
			fmt.Fprintf(&b, " (was %.0f%%, fading)", m.Mastery*100)
		}
		b.WriteString("\n")
	}

	open := 0
	for _, r := range mis {
		if r.Resolved {
			continue
		}
		if open == 0 {
			b.WriteString("\nOpen misconceptions:\n")
		}
		open++
		desc := r.MisconceptionID
		if m := t.course.Misconception(r.MisconceptionID); m != nil {
			desc = m.Description
		}
		fmt.Fprintf(&b, "- %s (%s, seen %d times", desc, t.name(r.ConceptID), r.DetectionCount)
		if r.Priority {
			b.WriteString(", priority")
		}
		b.WriteString(")\n")
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}

func (t *MasteryTool) name(conceptID string) string {
	if c, err := t.course.Concept(conceptID); err == nil {
		return c.Name
	}
	return conceptID
}
