package history

import (
	"context"
	"time"
)

// Store is the journal of engine runs. It records what every cycle did
// and is never read back into an engine.
type Store interface {
	Close() error

	// Runs
	BeginRun(ctx context.Context, r Run) error
	EndRun(ctx context.Context, id string, end End) error
	Runs(ctx context.Context) ([]Run, error)

	// Cycles
	RecordCycle(ctx context.Context, c Cycle) error
	Cycles(ctx context.Context, runID string) ([]Cycle, error)
}

// Run is one execution of a loaded program.
type Run struct {
	ID        string
	Program   string // source text
	MaxTime   int64
	StartedAt time.Time

	// Set by EndRun
	FinishedAt time.Time
	FinalTime  int64
	Error      string
}

// End describes how a run stopped.
type End struct {
	FinishedAt time.Time
	FinalTime  int64
	Error      string
}

// Cycle is the outcome of one engine cycle.
type Cycle struct {
	RunID        string
	Time         int64
	Actions      []string
	Observations []string
	Fluents      []string // state at Time+1
	Goals        int
	Duration     time.Duration
}
