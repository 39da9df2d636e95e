package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/retrieval"
)

// ErrNoProvider is returned when no model serves the requested tier.
var ErrNoProvider = errors.New("no language model configured")

const noteSourcesUnavailable = "Course materials could not be searched, so this answer is not grounded in them."

// retrieve fetches passages for query. A retrieval failure is not fatal:
// the agent answers without context and the draft carries a note.
func (d *Deps) retrieve(ctx context.Context, actx *Context, query string, notes *[]string) []retrieval.Passage {
	if actx.Reduced {
		return nil
	}
	ps, err := d.Retriever.Retrieve(ctx, query, d.Config.TopK)
	if err != nil {
		if ctx.Err() == nil {
			d.logger().Warn("retrieval failed", zap.String("query", query), zap.Error(err))
			*notes = append(*notes, noteSourcesUnavailable)
		}
		return nil
	}
	kept := ps[:0]
	for _, p := range ps {
		if p.Relevance >= d.Config.MinRelevance {
			kept = append(kept, p)
		}
	}
	return kept
}

// generate runs one structured call and decodes the result into v.
func (d *Deps) generate(ctx context.Context, actx *Context, kind Kind, req llm.Request, v any) error {
	provider := d.Tiers.For(actx.Tier)
	if provider == nil {
		return ErrNoProvider
	}
	if actx.Reduced && d.Config.ReducedMaxTokens > 0 && req.MaxTokens > d.Config.ReducedMaxTokens {
		req.MaxTokens = d.Config.ReducedMaxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = d.Config.Temperature
	}
	// Agent system prompts are fixed strings sent on every turn.
	req.CacheSystem = req.System != ""
	ctx = llm.WithPurpose(ctx, string(kind))
	resp, err := provider.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%s generate: %w", kind, err)
	}
	if err := llm.Decode(resp, v); err != nil {
		return fmt.Errorf("%s decode: %w", kind, err)
	}
	return nil
}

// messages renders recent history followed by the user message.
func (d *Deps) messages(actx *Context, user string) []llm.Message {
	turns := actx.Query.History
	if n := d.Config.HistoryTurns; n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	msgs := make([]llm.Message, 0, len(turns)+1)
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == conversation.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Text})
	}
	// Providers require alternating roles ending with the user.
	msgs = mergeRoles(msgs)
	if len(msgs) > 0 && msgs[len(msgs)-1].Role == llm.RoleUser {
		msgs[len(msgs)-1].Content += "\n\n" + user
		return msgs
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: user})
}

func mergeRoles(msgs []llm.Message) []llm.Message {
	var out []llm.Message
	for _, m := range msgs {
		if len(out) > 0 && out[len(out)-1].Role == m.Role {
			out[len(out)-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	for len(out) > 0 && out[0].Role == llm.RoleAssistant {
		out = out[1:]
	}
	return out
}

func citations(ps []retrieval.Passage) []Citation {
	out := make([]Citation, 0, len(ps))
	for _, p := range ps {
		out = append(out, Citation{SourceID: p.SourceID, Relevance: p.Relevance})
	}
	return out
}

// writeContext appends the shared prompt sections: course material,
// learner state and repair instructions.
func writeContext(b *strings.Builder, actx *Context, ps []retrieval.Passage) {
	if actx.Concept != nil {
		fmt.Fprintf(b, "Concept: %s\n", actx.Concept.Name)
		fmt.Fprintf(b, "Course definition: %s\n", actx.Concept.Description)
		fmt.Fprintf(b, "Student mastery: %.0f%%\n", actx.Mastery*100)
	}

	if len(ps) > 0 {
		b.WriteString("\nCourse material:\n")
		for i, p := range ps {
			fmt.Fprintf(b, "[%d] (%s) %s\n", i+1, p.SourceID, p.Text)
		}
	}

	if len(actx.Gaps) > 0 {
		names := make([]string, len(actx.Gaps))
		for i, g := range actx.Gaps {
			names[i] = g.Name
		}
		fmt.Fprintf(b, "\nWeak prerequisites: %s\n", strings.Join(names, ", "))
	}

	if m := actx.Misconception; m != nil {
		fmt.Fprintf(b, "\nThe student appears to believe: %s\n", m.Description)
		fmt.Fprintf(b, "Correct it gently: %s\n", m.Remediation)
	}

	if actx.GradedItem != nil || actx.ScaffoldOnly {
		b.WriteString("\nThis relates to graded work")
		if actx.GradedItem != nil {
			fmt.Fprintf(b, " (%s)", actx.GradedItem.Name)
		}
		b.WriteString(". Do not give complete code, full solutions or final answers. Give guidance the student can act on.\n")
	}

	if len(actx.Repair) > 0 {
		b.WriteString("\nYour previous attempt was rejected. Fix these problems:\n")
		for _, r := range actx.Repair {
			fmt.Fprintf(b, "- %s\n", r)
		}
	}
}

// joinParagraphs joins the non-empty parts with blank lines.
func joinParagraphs(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
