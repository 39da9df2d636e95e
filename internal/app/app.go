// Package app wires the tutor together from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/agents"
	"github.com/AazainKhan/luminate-ai-sub000/internal/config"
	"github.com/AazainKhan/luminate-ai-sub000/internal/course"
	"github.com/AazainKhan/luminate-ai-sub000/internal/diagnosis"
	"github.com/AazainKhan/luminate-ai-sub000/internal/llm"
	"github.com/AazainKhan/luminate-ai-sub000/internal/policy"
	"github.com/AazainKhan/luminate-ai-sub000/internal/quality"
	"github.com/AazainKhan/luminate-ai-sub000/internal/reasoning"
	"github.com/AazainKhan/luminate-ai-sub000/internal/retrieval"
	"github.com/AazainKhan/luminate-ai-sub000/internal/review"
	"github.com/AazainKhan/luminate-ai-sub000/internal/router"
	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
	"github.com/AazainKhan/luminate-ai-sub000/internal/tutor"
)

// Options configures New.
type Options struct {
	Config *config.Config
	Logger *zap.Logger

	// Tiers replaces the providers built from Config.LLM.
	Tiers *llm.Tiers
}

// App holds the long-lived collaborators of one tutor instance.
type App struct {
	Config   *config.Config
	Course   *course.Course
	Store    *store.Store
	Tiers    *llm.Tiers // nil when no model is configured
	Students *student.Model
	Review   *review.Planner
	Engine   *tutor.Engine

	logger *zap.Logger
}

// New opens the store, loads the course and builds the engine. Close
// releases everything.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c, err := loadCourse(cfg.Course)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DB
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
	} else if dbPath != ":memory:" {
		if err := store.EnsureDir(dbPath); err != nil {
			return nil, fmt.Errorf("resolve DB path: %w", err)
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &App{Config: cfg, Course: c, Store: st, logger: logger}
	if err := a.build(ctx, opts.Tiers); err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

func loadCourse(path string) (*course.Course, error) {
	if path == "" {
		return course.Default()
	}
	c, err := course.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	return c, nil
}

func (a *App) build(ctx context.Context, tiers *llm.Tiers) error {
	cfg, logger := a.Config, a.logger

	if tiers == nil {
		var err error
		if tiers, err = a.providers(ctx); err != nil {
			return err
		}
	}
	a.Tiers = tiers

	var retriever retrieval.Retriever = retrieval.None
	if cfg.Retrieval {
		ix, err := retrieval.NewIndex(ctx, a.Store.DB(), logger)
		if err != nil {
			return fmt.Errorf("open retrieval index: %w", err)
		}
		n, err := ix.IndexCourse(ctx, a.Course)
		if err != nil {
			return fmt.Errorf("index course: %w", err)
		}
		logger.Debug("course indexed", zap.Int("passages", n))
		retriever = ix
	}

	// Classification and grading use the standard tier.
	var classifier llm.Provider
	if tiers != nil {
		classifier = tiers.For(llm.TierStandard)
	}

	registry := diagnosis.NewRegistry(a.Course)
	governor := policy.NewGovernor(a.Course, cfg.Policy, logger.Named("policy"))
	a.Students = student.NewModel(cfg.Student, a.Course, registry, a.Store.MasteryRepo(),
		student.WithLogger(logger.Named("student")))
	a.Review = review.NewPlanner(a.Course, a.Students, cfg.Review, logger.Named("review"))

	engine, err := tutor.New(tutor.Deps{
		Course:   a.Course,
		Governor: governor,
		Reasoner: reasoning.NewEngine(a.Course, classifier, cfg.Reasoning,
			reasoning.WithLogger(logger.Named("reasoning"))),
		Router: router.New(a.Course, cfg.Router, logger.Named("router")),
		Agents: agents.DefaultSet(agents.Deps{
			Course:    a.Course,
			Tiers:     tiers,
			Retriever: retriever,
			Governor:  governor,
			Config:    cfg.Agents,
			Logger:    logger.Named("agents"),
		}),
		Gate:      quality.NewGate(cfg.Quality),
		Students:  a.Students,
		Diagnoser: diagnosis.NewService(registry, classifier, logger.Named("diagnosis")),
		Retriever: retriever,
		Log:       a.Store.InteractionRepo(),
		Cache:     a.Store.CacheRepo(),
		Logger:    logger.Named("tutor"),
	}, cfg.Tutor)
	if err != nil {
		return err
	}
	a.Engine = engine
	return nil
}

// providers builds the model tiers. Without credentials the tutor still
// runs on its heuristic and course-note fallbacks, so that is a warning,
// not an error.
func (a *App) providers(ctx context.Context) (*llm.Tiers, error) {
	cfg := a.Config.LLM
	if !cfg.HasCredentials() && !cfg.Discover() {
		a.logger.Warn("no language model configured, answers will come from course notes",
			zap.String("provider", cfg.Provider))
		return nil, nil
	}
	tiers, err := llm.NewTieredProviders(ctx, cfg, a.Store.EventRepo(), a.logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("configure language model: %w", err)
	}
	return tiers, nil
}

// Logger returns the logger the app was built with.
func (a *App) Logger() *zap.Logger { return a.logger }

// Close drains pending writes and closes the store.
func (a *App) Close() error {
	var errs []error
	if a.Engine != nil {
		errs = append(errs, a.Engine.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
