package agents

import (
	"context"

	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
	"github.com/AazainKhan/luminate-ai-sub000/internal/retrieval"
)

const noteDegraded = "The tutoring model is unavailable right now, so this is a short answer from the course notes."

// Fallback assembles an answer without the language model: the concept's
// course definition, or the best retrieved passage. It returns nil when
// there is nothing to say.
func Fallback(ctx context.Context, r retrieval.Retriever, actx *Context) *Draft {
	draft := &Draft{
		Agent:    KindFastAnswer,
		Tier:     actx.Tier,
		Degraded: true,
		Notes:    []string{noteDegraded},
	}
	if actx.Concept != nil && actx.Concept.Description != "" {
		draft.Text = actx.Concept.Description
		return draft
	}
	if r == nil {
		return nil
	}
	ps, err := r.Retrieve(ctx, actx.Text(), 1)
	if err != nil || len(ps) == 0 {
		return nil
	}
	draft.Text = prose.TrimToSentences(ps[0].Text, 2)
	draft.Citations = citations(ps[:1])
	return draft
}
