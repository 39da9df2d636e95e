package agents

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/prose"
	"github.com/AazainKhan/luminate-ai-sub000/internal/retrieval"
)

const mathSystemPrompt = `You are a teaching assistant for a university course. Walk the student through the mathematics of a concept.

Rules:
- Use the course's canonical formula exactly as given when one is provided.
- Define every symbol in the formula.
- Give one short worked example with concrete numbers. Write each arithmetic step as "a op b = c" and make sure it is correct.
- End with exactly one check-in question.
- Use plain ASCII math. No LaTeX.`

// Math explains formulas: the canonical form first, then its symbols and a
// worked example.
type Math struct {
	deps *Deps
}

func (a *Math) Kind() Kind { return KindMath }

type derivationOutput struct {
	Formula string `json:"formula"`
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Meaning string `json:"meaning"`
	} `json:"symbols"`
	WorkedExample string `json:"worked_example"`
	CheckIn       string `json:"check_in"`
}

func (a *Math) Respond(ctx context.Context, actx *Context) (*Draft, error) {
	draft := &Draft{Agent: KindMath, Tier: actx.Tier}

	topic := actx.Text()
	if actx.Concept != nil {
		topic = actx.Concept.Name
	}

	// The formula and a worked example are looked up concurrently so the
	// canonical form is known before generation.
	var (
		formulaPs, examplePs       []retrieval.Passage
		formulaNotes, exampleNotes []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		formulaPs = a.deps.retrieve(gctx, actx, topic+" formula", &formulaNotes)
		return nil
	})
	g.Go(func() error {
		examplePs = a.deps.retrieve(gctx, actx, topic+" worked example", &exampleNotes)
		return nil
	})
	_ = g.Wait()
	if len(formulaNotes) > 0 || len(exampleNotes) > 0 {
		draft.Notes = append(draft.Notes, noteSourcesUnavailable)
	}

	ps := mergePassages(formulaPs, examplePs)
	canonical := ""
	if actx.Concept != nil {
		canonical = actx.Concept.Formula
	}

	out, err := a.derive(ctx, actx, canonical, ps)
	if err != nil {
		return nil, err
	}
	draft.Text = assembleDerivation(out, canonical)

	if a.deps.Governor != nil && !actx.ScaffoldOnly {
		if v := a.deps.Governor.CheckOutput(draft.Text, actx.Query); !v.Allowed {
			scaffold := *actx
			scaffold.ScaffoldOnly = true
			out, err = a.derive(ctx, &scaffold, canonical, ps)
			if err != nil {
				return nil, err
			}
			draft.Text = assembleDerivation(out, canonical)
		}
	}

	draft.Citations = citations(ps)
	return draft, nil
}

func (a *Math) derive(ctx context.Context, actx *Context, canonical string, ps []retrieval.Passage) (derivationOutput, error) {
	var b strings.Builder
	b.WriteString("Question: " + actx.Text() + "\n")
	if canonical != "" {
		fmt.Fprintf(&b, "Canonical formula: %s\n", canonical)
	}
	b.WriteString("\n")
	writeContext(&b, actx, ps)

	var out derivationOutput
	err := a.deps.generate(ctx, actx, KindMath, llm.Request{
		System:    mathSystemPrompt,
		Messages:  a.deps.messages(actx, b.String()),
		Schema:    DerivationSchema,
		MaxTokens: a.deps.Config.MathMaxTokens,
	}, &out)
	return out, err
}

func assembleDerivation(out derivationOutput, canonical string) string {
	formula := strings.TrimSpace(canonical)
	if formula == "" {
		formula = strings.TrimSpace(out.Formula)
	}

	var opening string
	if formula != "" {
		opening = "The formula is " + formula + "."
	}

	var symbols []string
	for _, s := range out.Symbols {
		if s.Symbol == "" {
			continue
		}
		symbols = append(symbols, fmt.Sprintf("- %s: %s", s.Symbol, strings.TrimSuffix(prose.DropQuestions(s.Meaning), ".")))
	}
	var where string
	if len(symbols) > 0 {
		where = "Where:\n" + strings.Join(symbols, "\n")
	}

	checkIn := prose.SingleQuestion(out.CheckIn)
	if checkIn == "" {
		checkIn = "Can you try the same calculation with different numbers?"
	}
	return joinParagraphs(opening, where, prose.DropQuestions(out.WorkedExample), checkIn)
}

// mergePassages concatenates passage lists, dropping duplicates by source.
func mergePassages(lists ...[]retrieval.Passage) []retrieval.Passage {
	seen := make(map[string]bool)
	var out []retrieval.Passage
	for _, l := range lists {
		for _, p := range l {
			if seen[p.SourceID] {
				continue
			}
			seen[p.SourceID] = true
			out = append(out, p)
		}
	}
	return out
}
