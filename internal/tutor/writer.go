package tutor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
	"github.com/AazainKhan/luminate-ai-sub000/internal/student"
)

// Writer runs persistence work off the response path. Jobs execute one at
// a time in submission order, so the log of every student stays ordered.
// A failed job is retried with backoff before the next one starts; callers
// never wait on it, and a write that finds the queue full is dropped.
type Writer struct {
	log    store.InteractionRepo
	cfg    WriterConfig
	logger *zap.Logger

	jobs chan writeJob
	done chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

type writeJob struct {
	name string
	op   func(ctx context.Context) error
}

// NewWriter starts the writer goroutine. Close must be called to stop it.
func NewWriter(log store.InteractionRepo, cfg WriterConfig, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	w := &Writer{
		log:    log,
		cfg:    cfg,
		logger: logger,
		jobs:   make(chan writeJob, max(cfg.QueueSize, 1)),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Log appends an interaction entry.
func (w *Writer) Log(e student.InteractionEntry) {
	if w.log == nil {
		return
	}
	row := store.InteractionRow{
		ID:               e.ID,
		StudentID:        e.StudentID,
		TurnID:           e.TurnID,
		Kind:             string(e.Type),
		ConceptID:        e.ConceptID,
		Outcome:          string(e.Outcome),
		Intent:           e.Intent,
		Agent:            e.Agent,
		ScaffoldingLevel: e.ScaffoldingLevel,
		Detail:           e.Detail,
		CreatedAt:        e.CreatedAt,
	}
	w.Submit("interaction "+e.ID, func(ctx context.Context) error {
		return w.log.Append(ctx, row)
	})
}

// Retry queues a write that already failed once. It makes the writer a
// student.RetryQueue.
func (w *Writer) Retry(name string, op func(ctx context.Context) error) {
	w.Submit(name, op)
}

// Submit queues op without waiting. It reports false when the writer is
// closed or its queue is full; the write is then dropped.
func (w *Writer) Submit(name string, op func(ctx context.Context) error) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("writer closed, dropping write", zap.String("write", name))
		return false
	}
	select {
	case w.jobs <- writeJob{name: name, op: op}:
		return true
	default:
		w.logger.Warn("write queue full, dropping write",
			zap.String("write", name), zap.Int("queue_size", cap(w.jobs)))
		return false
	}
}

// Close stops accepting work, drains the queue and waits for the writer
// goroutine to exit.
func (w *Writer) Close() error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.jobs)
		w.mu.Unlock()
	})
	<-w.done
	return nil
}

func (w *Writer) run() {
	defer close(w.done)
	for j := range w.jobs {
		w.do(j)
	}
}

func (w *Writer) do(j writeJob) {
	ctx := context.Background()
	backoff := w.cfg.Backoff
	var err error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if err = j.op(ctx); err == nil {
			return
		}
		if attempt < w.cfg.MaxAttempts {
			w.logger.Debug("write failed, retrying",
				zap.String("write", j.name), zap.Int("attempt", attempt), zap.Error(err))
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	w.logger.Error("write dropped after retries",
		zap.String("write", j.name), zap.Int("attempts", w.cfg.MaxAttempts), zap.Error(err))
}
