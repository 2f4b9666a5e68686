package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/lps/pkg/lps/history"
	"github.com/cognicore/lps/pkg/lps/internalerr"
)

// Store is an in-memory implementation of history.Store for tests.
type Store struct {
	mu     sync.RWMutex
	runs   map[string]history.Run
	cycles map[string]map[int64]history.Cycle
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:   make(map[string]history.Run),
		cycles: make(map[string]map[int64]history.Cycle),
	}
}

// Close implements history.Store.
func (s *Store) Close() error { return nil }

// BeginRun registers a run. Run IDs are unique.
func (s *Store) BeginRun(ctx context.Context, r history.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return fmt.Errorf("begin run: empty id: %w", internalerr.ErrInvalidInput)
	}
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("begin run %s: %w", r.ID, internalerr.ErrDuplicate)
	}
	s.runs[r.ID] = r
	s.cycles[r.ID] = make(map[int64]history.Cycle)
	return nil
}

// EndRun records how a run stopped.
func (s *Store) EndRun(ctx context.Context, id string, end history.End) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("end run %s: %w", id, internalerr.ErrNotFound)
	}
	r.FinishedAt = end.FinishedAt
	r.FinalTime = end.FinalTime
	r.Error = end.Error
	s.runs[id] = r
	return nil
}

// Runs returns every run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]history.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]history.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// RecordCycle stores a cycle, replacing an earlier record for the same
// run and time.
func (s *Store) RecordCycle(ctx context.Context, c history.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycles, ok := s.cycles[c.RunID]
	if !ok {
		return fmt.Errorf("record cycle %d: run %s: %w", c.Time, c.RunID, internalerr.ErrNotFound)
	}
	cycles[c.Time] = copyCycle(c)
	return nil
}

// Cycles returns the cycles of a run in time order.
func (s *Store) Cycles(ctx context.Context, runID string) ([]history.Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cycles, ok := s.cycles[runID]
	if !ok {
		return nil, fmt.Errorf("cycles of run %s: %w", runID, internalerr.ErrNotFound)
	}
	out := make([]history.Cycle, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, copyCycle(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func copyCycle(c history.Cycle) history.Cycle {
	c.Actions = append([]string(nil), c.Actions...)
	c.Observations = append([]string(nil), c.Observations...)
	c.Fluents = append([]string(nil), c.Fluents...)
	return c
}
