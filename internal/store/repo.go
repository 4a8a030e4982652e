package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match
	RunID   string    // exact run match
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	RunID        string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
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

// PurposeUsage aggregates token usage for one purpose label.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns a single event, or nil if it does not exist.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}

// RunStatus is the lifecycle state of a generation run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// Run summarizes one generation run. Dataset items are never stored.
type Run struct {
	ID           string
	Sequence     int64
	Source       string // text, pdf, 10-K, 10-Q
	SourceRef    string // file, URL or ticker/period
	Model        string
	Chunks       int
	Requested    int
	Generated    int
	FailedChunks int
	Status       RunStatus
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// RunStart describes a run about to begin.
type RunStart struct {
	Source    string
	SourceRef string
	Model     string
	Chunks    int
	Requested int
}

// RunResult is recorded when a run ends.
type RunResult struct {
	Generated    int
	FailedChunks int
	Status       RunStatus
	ErrorMessage string
}

// RunRepo records generation runs.
type RunRepo interface {
	// Start inserts a running row and returns its ID.
	Start(ctx context.Context, start RunStart) (string, error)

	// Finish records the outcome of a run started with Start.
	Finish(ctx context.Context, id string, result RunResult) error

	// Get returns a run, or nil if it does not exist.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns runs newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Run, error)
}
