// Package tutor sequences one learner turn through policy, reasoning,
// routing, generation, quality and the student model.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/conversation"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/diagnosis"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/policy"
	"github.com/AazainKhan/luminate-ai-sub000/internal/quality"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
	"github.com/AazainKhan/luminate-ai-sub000/internal/retrieval"
	"github.com/AazainKhan/luminate-ai-sub000/internal/router"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

var (
	ErrNoStudent  = errors.New("query has no student ID")
	ErrEmptyQuery = errors.New("query is empty")
)

// Phase is a state of the turn state machine.
type Phase string

const (
	PhasePolicyIn  Phase = "policy-in"
	PhaseReason    Phase = "reason"
	PhaseRoute     Phase = "route"
	PhaseDiagnose  Phase = "diagnose"
	PhaseGenerate  Phase = "generate"
	PhasePolicyOut Phase = "policy-out"
	PhaseQuality   Phase = "quality"
	PhaseRepair    Phase = "repair"
	PhaseFinalize  Phase = "finalize"
	PhaseRecord    Phase = "record"
	PhaseDone      Phase = "done"
)

const (
	noteReduced = "Course materials were left out of this answer to get it to you, so sources may be incomplete."
	noteCached  = "The tutoring model is unavailable right now, so this is an earlier answer to the same question."
)

// Deps are the collaborators of an Engine. Diagnoser, Retriever, Log and
// Cache are optional.
type Deps struct {
	Course    *course.Course
	Governor  *policy.Governor
	Reasoner  *reasoning.Engine
	Router    *router.Router
	Agents    *agents.Set
	Gate      *quality.Gate
	Students  *student.Model
	Diagnoser *diagnosis.Service
	Retriever retrieval.Retriever
	Log       store.InteractionRepo
	Cache     store.CacheRepo
	Logger    *zap.Logger
}

// Engine handles turns. Turns of one student run one at a time; turns of
// different students run concurrently.
type Engine struct {
	Deps
	cfg    Config
	writer *Writer
	logger *zap.Logger
	now    func() time.Time

	locks sync.Map // student ID -> chan struct{}
}

// New creates an Engine and starts its background writer. Close stops it.
func New(deps Deps, cfg Config) (*Engine, error) {
	switch {
	case deps.Course == nil:
		return nil, errors.New("tutor: course is required")
	case deps.Governor == nil, deps.Reasoner == nil, deps.Router == nil:
		return nil, errors.New("tutor: governor, reasoner and router are required")
	case deps.Agents == nil, deps.Gate == nil, deps.Students == nil:
		return nil, errors.New("tutor: agents, gate and student model are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Retriever == nil {
		deps.Retriever = retrieval.None
	}
	e := &Engine{
		Deps:   deps,
		cfg:    cfg,
		writer: NewWriter(deps.Log, cfg.Writer, logger),
		logger: logger,
		now:    time.Now,
	}
	deps.Students.SetRetryQueue(e.writer)
	return e, nil
}

// Close drains pending log writes.
func (e *Engine) Close() error {
	return e.writer.Close()
}

// turn is the state carried between phases.
type turn struct {
	id     string
	q      conversation.Query
	phase  Phase
	detail string
	trace  []Step

	out      reasoning.Output
	decision router.Decision
	actx     *agents.Context
	diag     *diagnosis.Result

	draft      *agents.Draft
	attempt    int
	assessment quality.Assessment
	integrity  *policy.Verdict
	fallback   bool // text is the governor's scaffold fallback
	law        policy.Law
	text       string
	degraded   bool
	notes      []string
	outcome    student.InteractionOutcome
}

// HandleTurn answers one query. Policy denials, quality failures and
// collaborator failures all produce a response; an error means the turn
// was cancelled before anything was generated or the query was invalid.
func (e *Engine) HandleTurn(ctx context.Context, q conversation.Query) (*FinalResponse, error) {
	if q.StudentID == "" {
		return nil, ErrNoStudent
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrEmptyQuery
	}

	unlock, err := e.lock(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	t := &turn{id: uuid.NewString(), q: q, phase: PhasePolicyIn}
	ctx = llm.WithTurn(ctx, t.id)
	for t.phase != PhaseDone {
		start := time.Now()
		phase := t.phase
		next, err := e.step(ctx, t)
		t.trace = append(t.trace, Step{Phase: phase, Detail: t.detail, Elapsed: time.Since(start)})
		t.detail = ""
		if err != nil {
			e.logger.Warn("turn aborted",
				zap.String("student", q.StudentID),
				zap.String("turn", t.id),
				zap.String("phase", string(phase)),
				zap.Error(err))
			return nil, err
		}
		t.phase = next
	}

	resp := e.response(t)
	e.logger.Info("turn handled",
		zap.String("student", q.StudentID),
		zap.String("turn", t.id),
		zap.String("intent", string(resp.Intent)),
		zap.String("agent", string(resp.Agent)),
		zap.String("tier", string(resp.Tier)),
		zap.String("decision", string(resp.Decision)),
		zap.Float64("score", resp.Score),
		zap.Bool("degraded", resp.Degraded))
	return resp, nil
}

func (e *Engine) step(ctx context.Context, t *turn) (Phase, error) {
	switch t.phase {
	case PhasePolicyIn:
		return e.policyIn(t), nil
	case PhaseReason:
		return e.reason(ctx, t), nil
	case PhaseRoute:
		return e.route(t)
	case PhaseDiagnose:
		return e.diagnose(ctx, t), nil
	case PhaseGenerate:
		return e.generate(ctx, t)
	case PhasePolicyOut:
		return e.policyOut(t), nil
	case PhaseQuality:
		return e.evaluate(t), nil
	case PhaseRepair:
		return e.repair(ctx, t), nil
	case PhaseFinalize:
		return e.finalize(t), nil
	case PhaseRecord:
		e.record(ctx, t)
		return PhaseDone, nil
	}
	return "", fmt.Errorf("tutor: unknown phase %q", t.phase)
}

func (e *Engine) lock(ctx context.Context, studentID string) (func(), error) {
	v, _ := e.locks.LoadOrStore(studentID, make(chan struct{}, 1))
	ch := v.(chan struct{})
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) policyIn(t *turn) Phase {
	v := e.Governor.CheckInput(t.q)
	if v.Allowed {
		return PhaseReason
	}
	e.reject(t, v.Law, v.Message)
	t.detail = v.Reason
	return PhaseFinalize
}

// reject answers the turn with a scope message instead of an agent.
func (e *Engine) reject(t *turn, law policy.Law, message string) {
	t.law = law
	t.text = message
	t.outcome = student.LogPolicyDenied
	t.out.Intent = reasoning.IntentReject
	t.decision = router.Decision{
		Intent:     reasoning.IntentReject,
		Agent:      agents.KindNone,
		Tier:       router.TierFor(reasoning.IntentReject, false),
		Confidence: max(t.decision.Confidence, t.out.Confidence),
	}
	if t.decision.Confidence == 0 {
		t.decision.Confidence = 1
	}
}

func (e *Engine) reason(ctx context.Context, t *turn) Phase {
	t.out = e.Reasoner.Reason(ctx, reasoning.Input{
		Query:   t.q,
		Mastery: e.masteryMap(ctx, t.q.StudentID),
	})
	t.detail = fmt.Sprintf("%s %.2f (%s)", t.out.Intent, t.out.Confidence, t.out.Source)
	return PhaseRoute
}

func (e *Engine) masteryMap(ctx context.Context, studentID string) map[string]float64 {
	snap, err := e.Students.Snapshot(ctx, studentID)
	if err != nil {
		e.logger.Warn("mastery snapshot failed", zap.String("student", studentID), zap.Error(err))
		return nil
	}
	m := make(map[string]float64, len(snap))
	for _, s := range snap {
		m[s.ConceptID] = s.Effective
	}
	return m
}

func (e *Engine) route(t *turn) (Phase, error) {
	d, err := e.Router.Route(t.out, t.q)
	if err != nil {
		return "", fmt.Errorf("route: %w", err)
	}
	t.decision = d
	t.detail = fmt.Sprintf("%s via %s, tier %s", d.Agent, d.Stage, d.Tier)
	if d.Agent == agents.KindNone {
		e.reject(t, policy.LawScope, e.Governor.ScopeMessage())
		return PhaseFinalize, nil
	}
	return PhaseDiagnose, nil
}

// diagnose builds the agent context: the concept in focus, the learner's
// standing on it, and what their reply reveals.
func (e *Engine) diagnose(ctx context.Context, t *turn) Phase {
	sid := t.q.StudentID
	actx := &agents.Context{Query: t.q, Reasoning: t.out, Tier: t.decision.Tier}
	t.actx = actx

	if a, ok := e.Governor.GradedRequest(t.q); ok {
		actx.GradedItem = &a
	} else if a, ok := e.Course.Assessment(t.out.GradedItemID); ok {
		actx.GradedItem = &a
	}

	c, err := e.Course.Concept(t.out.ConceptID)
	if err != nil {
		return PhaseGenerate
	}
	actx.Concept = &c

	if m, err := e.Students.EstimateMastery(ctx, sid, c.ID); err == nil {
		actx.Mastery = m
	} else {
		e.logger.Warn("mastery estimate failed", zap.String("student", sid), zap.Error(err))
	}
	if gaps, err := e.Students.PrerequisiteGaps(ctx, sid, c.ID); err == nil {
		actx.Gaps = gaps
	} else {
		e.logger.Warn("prerequisite check failed", zap.String("student", sid), zap.Error(err))
	}

	if e.Diagnoser != nil {
		prior, _ := t.q.LastAssistant()
		var asked []string
		for _, m := range e.Course.ResolveAll(prior.Text) {
			asked = append(asked, m.Concept.ID)
		}
		t.diag = e.Diagnoser.Diagnose(ctx, &diagnosis.ClassifyInput{
			ConceptID:       c.ID,
			Reply:           t.q.Text,
			PriorAssistant:  prior.Text,
			CheckInConcepts: asked,
			Mentions:        t.out.Signals.Concepts,
			Concept:         &c,
		})
		t.detail = fmt.Sprintf("%s by %s", t.diag.Category, t.diag.ClassifierName)
		if t.diag.Category == diagnosis.CategoryMisconception {
			actx.Misconception = e.Diagnoser.Registry().Get(t.diag.MisconceptionID)
		}
	}
	if actx.Misconception == nil && e.Diagnoser != nil {
		open, err := e.Students.OpenMisconceptions(ctx, sid, c.ID)
		if err == nil && len(open) > 0 && open[0].Priority {
			actx.Misconception = e.Diagnoser.Registry().Get(open[0].MisconceptionID)
		}
	}
	return PhaseGenerate
}

func (e *Engine) generate(ctx context.Context, t *turn) (Phase, error) {
	agent, err := e.Agents.Get(t.decision.Agent)
	if err != nil {
		return "", err
	}

	draft, err := agent.Respond(ctx, t.actx)
	if err == nil {
		t.draft = draft
		return PhasePolicyOut, nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("generate: %w", ctx.Err())
	}
	e.logger.Warn("generation failed, retrying with reduced scope",
		zap.String("student", t.q.StudentID),
		zap.String("agent", string(t.decision.Agent)),
		zap.Error(err))

	t.actx.Reduced = true
	draft, err = agent.Respond(ctx, t.actx)
	if err == nil {
		draft.Notes = append(draft.Notes, noteReduced)
		t.draft = draft
		t.detail = "reduced scope"
		return PhasePolicyOut, nil
	}
	if ctx.Err() != nil {
		return "", fmt.Errorf("generate: %w", ctx.Err())
	}
	e.logger.Warn("reduced generation failed", zap.String("student", t.q.StudentID), zap.Error(err))

	if t.integrity != nil {
		e.scaffoldFallback(t)
		return PhaseFinalize, nil
	}
	return e.degrade(ctx, t), nil
}

// degrade answers without the language model: an earlier accepted answer
// to the same question, the course notes, or an apology.
func (e *Engine) degrade(ctx context.Context, t *turn) Phase {
	t.degraded = true
	if d := e.cached(ctx, t); d != nil {
		t.draft = d
		t.text = d.Text
		t.detail = "cached answer"
		return PhaseFinalize
	}
	if d := agents.Fallback(ctx, e.Retriever, t.actx); d != nil {
		t.draft = d
		t.text = d.Text
		t.detail = "course notes"
		return PhaseFinalize
	}
	t.draft = nil
	t.text = e.cfg.TryAgain
	t.detail = "nothing to say"
	return PhaseFinalize
}

func (e *Engine) cached(ctx context.Context, t *turn) *agents.Draft {
	if e.Cache == nil || !e.cfg.CacheResponses {
		return nil
	}
	c, err := e.Cache.Get(ctx, cacheKey(t))
	if err != nil {
		e.logger.Warn("response cache read failed", zap.Error(err))
		return nil
	}
	if c == nil {
		return nil
	}
	d := &agents.Draft{
		Text:     c.Text,
		Agent:    t.decision.Agent,
		Tier:     t.decision.Tier,
		Degraded: true,
		Notes:    []string{noteCached},
	}
	for _, s := range c.Sources {
		d.Citations = append(d.Citations, agents.Citation{SourceID: s})
	}
	return d
}

func cacheKey(t *turn) string {
	query := t.out.EffectiveQuery(t.q.Text)
	return string(t.decision.Intent) + ":" + strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// policyOut applies the integrity law to the draft. The first denial sends
// the turn back to the same agent for a scaffold-only answer; a second one
// falls back to the governor's own scaffold.
func (e *Engine) policyOut(t *turn) Phase {
	v := e.Governor.CheckOutput(t.draft.Text, t.q)
	if v.Allowed {
		return PhaseQuality
	}
	t.detail = v.Reason
	if t.integrity == nil {
		t.integrity = &v
		t.law = v.Law
		t.actx.ScaffoldOnly = true
		t.actx.Repair = nil
		if v.Assessment != nil {
			t.actx.GradedItem = v.Assessment
		}
		return PhaseGenerate
	}
	e.scaffoldFallback(t)
	return PhaseFinalize
}

func (e *Engine) scaffoldFallback(t *turn) {
	a := course.Assessment{Name: "This assessment"}
	if t.integrity.Assessment != nil {
		a = *t.integrity.Assessment
	}
	t.fallback = true
	t.text = e.Governor.ScaffoldFallback(a, t.out.ConceptID)
	t.draft = &agents.Draft{
		Text:             t.text,
		Agent:            t.decision.Agent,
		Tier:             t.decision.Tier,
		ScaffoldingLevel: 1,
	}
	t.assessment = quality.Assessment{Decision: quality.DecisionAccept, Attempt: t.attempt}
}

// routed is the reasoning output as the router settled it.
func (t *turn) routed() reasoning.Output {
	out := t.out
	out.Intent = t.decision.Intent
	out.Confidence = t.decision.Confidence
	return out
}

func (e *Engine) evaluate(t *turn) Phase {
	a := e.Gate.Evaluate(t.draft.Text, t.routed(), t.attempt)
	t.assessment = a
	t.detail = fmt.Sprintf("%s %.2f, %d chars in [%d, %d]", a.Decision, a.Score, a.Length, a.Band.Min, a.Band.Max)
	if a.Decision == quality.DecisionRepair {
		return PhaseRepair
	}
	t.text = e.Gate.Apply(a, t.draft.Text)
	return PhaseFinalize
}

// repair regenerates once with the failed heuristics spelled out. A failed
// repair truncates the draft it was meant to fix.
func (e *Engine) repair(ctx context.Context, t *turn) Phase {
	t.attempt++
	t.actx.Repair = quality.RepairInstructions(t.assessment)

	agent, err := e.Agents.Get(t.decision.Agent)
	var draft *agents.Draft
	if err == nil {
		draft, err = agent.Respond(ctx, t.actx)
	}
	if err != nil {
		e.logger.Warn("repair failed, truncating",
			zap.String("student", t.q.StudentID), zap.Error(err))
		a := t.assessment
		a.Decision = quality.DecisionTruncate
		a.Attempt = t.attempt
		t.assessment = a
		t.text = e.Gate.Apply(a, t.draft.Text)
		t.detail = "repair failed"
		return PhaseFinalize
	}
	t.draft = draft
	return PhasePolicyOut
}

func (e *Engine) finalize(t *turn) Phase {
	if t.integrity != nil && !t.fallback {
		t.text = e.Gate.Preface(t.assessment, t.integrity.Message, t.draft.Text)
	}
	if t.draft != nil {
		t.notes = append(t.notes, t.draft.Notes...)
	}
	if t.draft != nil && !t.draft.Degraded && t.integrity == nil &&
		t.assessment.Decision == quality.DecisionAccept {
		e.cache(t)
	}
	return PhaseRecord
}

func (e *Engine) cache(t *turn) {
	if e.Cache == nil || !e.cfg.CacheResponses {
		return
	}
	resp := store.CachedResponse{
		Key:       cacheKey(t),
		Intent:    string(t.decision.Intent),
		Text:      t.text,
		Sources:   t.draft.Sources(),
		CreatedAt: e.now(),
	}
	e.writer.Submit("cache "+resp.Key, func(ctx context.Context) error {
		return e.Cache.Put(ctx, resp)
	})
}

// record updates the student model and logs the turn. It runs detached
// from ctx so a learner who disconnects after drafting is still recorded;
// a turn that produced nothing records nothing.
func (e *Engine) record(ctx context.Context, t *turn) {
	ctx = context.WithoutCancel(ctx)
	outcome, perf := judge(t.diag)
	if t.outcome == "" {
		t.outcome = outcome
	}
	if t.law != "" {
		t.outcome = student.LogPolicyDenied
	}

	if t.draft == nil && t.law == "" {
		t.detail = "no draft, skipped"
		return
	}

	sid := t.q.StudentID
	conceptID := ""
	if t.actx != nil && t.actx.Concept != nil {
		conceptID = t.actx.Concept.ID
	}
	if t.draft != nil && conceptID != "" {
		if t.diag != nil && t.diag.Category == diagnosis.CategoryMisconception {
			if _, err := e.Students.RecordMisconception(ctx, sid, conceptID, t.diag.MisconceptionID); err != nil {
				e.logger.Error("record misconception failed", zap.String("student", sid), zap.Error(err))
			}
		}
		if m, err := e.Students.UpdateMastery(ctx, sid, conceptID, perf); err != nil {
			e.logger.Error("mastery update failed", zap.String("student", sid), zap.Error(err))
		} else {
			t.detail = fmt.Sprintf("%s mastery %.2f", conceptID, m)
		}
	}

	entry := student.InteractionEntry{
		ID:        uuid.NewString(),
		StudentID: sid,
		TurnID:    t.id,
		Type:      interactionType(t.diag, t.decision.Agent),
		ConceptID: conceptID,
		Outcome:   t.outcome,
		Intent:    string(t.decision.Intent),
		Agent:     string(t.decision.Agent),
		Detail:    logDetail(t),
		CreatedAt: e.now(),
	}
	if t.draft != nil {
		entry.ScaffoldingLevel = t.draft.ScaffoldingLevel
	}
	e.writer.Log(entry)
}

func logDetail(t *turn) string {
	switch {
	case t.integrity != nil:
		return t.integrity.Reason
	case t.law != "":
		return string(t.law)
	case t.diag != nil && t.diag.MisconceptionID != "":
		return t.diag.MisconceptionID
	case t.diag != nil:
		return t.diag.ClassifierName
	}
	return ""
}

func (e *Engine) response(t *turn) *FinalResponse {
	d := t.decision
	resp := &FinalResponse{
		TurnID:     t.id,
		Text:       t.text,
		Intent:     d.Intent,
		Confidence: d.Confidence,
		Agent:      d.Agent,
		Tier:       d.Tier,
		IsFollowUp: t.out.IsFollowUp,
		ConceptID:  t.out.ConceptID,
		ModeLabel:  d.ModeLabel(),
		Decision:   t.assessment.Decision,
		Score:      t.assessment.Score,
		Law:        t.law,
		Outcome:    t.outcome,
		Notes:      t.notes,
		Degraded:   t.degraded,
		Trace:      t.trace,
	}
	if t.draft != nil {
		resp.Sources = t.draft.Sources()
		resp.Agent = t.draft.Agent
	}
	return resp
}
