package store

import (
	"context"
	"time"
)

// QueryOpts configures list queries with filtering and pagination.
type QueryOpts struct {
	Limit  int   // max results (0 = unlimited)
	After  int64 // sequence > After
	Before int64 // sequence < Before
}

// MasteryRow is the persisted form of one (student, concept) mastery record.
type MasteryRow struct {
	StudentID      string
	ConceptID      string
	Mastery        float64
	DecayFactor    float64
	CorrectStreak  int
	LastAssessedAt *time.Time
	UpdatedAt      time.Time
}

// MisconceptionRow is the persisted form of one detected misconception.
type MisconceptionRow struct {
	StudentID       string
	MisconceptionID string
	ConceptID       string
	DetectionCount  int
	CorrectStreak   int
	Priority        bool
	Resolved        bool
	FirstDetectedAt time.Time
	LastDetectedAt  time.Time
	ResolvedAt      *time.Time
}

// MasteryRepo persists the student model.
type MasteryRepo interface {
	// GetMastery returns the record or nil when none exists.
	GetMastery(ctx context.Context, studentID, conceptID string) (*MasteryRow, error)
	ListMastery(ctx context.Context, studentID string) ([]MasteryRow, error)
	UpsertMastery(ctx context.Context, row MasteryRow) error

	GetMisconception(ctx context.Context, studentID, misconceptionID string) (*MisconceptionRow, error)
	ListMisconceptions(ctx context.Context, studentID string) ([]MisconceptionRow, error)
	UpsertMisconception(ctx context.Context, row MisconceptionRow) error
}

// InteractionRow is one write-once entry of the interaction log.
type InteractionRow struct {
	ID               string
	Sequence         int64
	StudentID        string
	TurnID           string
	Kind             string
	ConceptID        string
	Outcome          string
	Intent           string
	Agent            string
	ScaffoldingLevel int
	Detail           string
	CreatedAt        time.Time
}

// InteractionRepo is the append-only interaction log.
type InteractionRepo interface {
	// Append assigns the next global sequence and inserts the row.
	// Appending the same ID twice is a no-op.
	Append(ctx context.Context, row InteractionRow) error
	List(ctx context.Context, studentID string, opts QueryOpts) ([]InteractionRow, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Tier         string
	Purpose      string
	TurnID       string
	InputTokens  int
	OutputTokens int
	CachedTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsageByPurpose aggregates token usage for one purpose label.
type LLMUsageByPurpose struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMUsageByModel aggregates token usage for one model.
type LLMUsageByModel struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo records and queries LLM request events.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)
	LLMEventsForTurn(ctx context.Context, turnID string) ([]LLMRequestEvent, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsageByPurpose, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsageByModel, error)
}

// CachedResponse is a previously accepted answer, reused when generation fails.
type CachedResponse struct {
	Key       string
	Intent    string
	Text      string
	Sources   []string
	CreatedAt time.Time
}

// CacheRepo stores accepted responses keyed by a normalized query.
type CacheRepo interface {
	Put(ctx context.Context, resp CachedResponse) error
	// Get returns nil when the key is unknown.
	Get(ctx context.Context, key string) (*CachedResponse, error)
}
