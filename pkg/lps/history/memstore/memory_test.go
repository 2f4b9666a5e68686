package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/lps/pkg/lps/history"
	"github.com/cognicore/lps/pkg/lps/internalerr"
)

func TestRecordAndListCycles(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.BeginRun(ctx, history.Run{ID: "r1", MaxTime: 3, StartedAt: time.Now()}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	for _, tm := range []int64{2, 0, 1} {
		c := history.Cycle{RunID: "r1", Time: tm, Actions: []string{"toggle(0, 1)"}, Goals: 1}
		if err := s.RecordCycle(ctx, c); err != nil {
			t.Fatalf("RecordCycle(%d): %v", tm, err)
		}
	}

	cycles, err := s.Cycles(ctx, "r1")
	if err != nil {
		t.Fatalf("Cycles: %v", err)
	}
	if len(cycles) != 3 {
		t.Fatalf("expected 3 cycles, got %d", len(cycles))
	}
	for i, c := range cycles {
		if c.Time != int64(i) {
			t.Errorf("cycle %d has time %d", i, c.Time)
		}
	}
}

func TestRecordCycleCopiesSlices(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.BeginRun(ctx, history.Run{ID: "r1"})

	actions := []string{"a(0, 1)"}
	_ = s.RecordCycle(ctx, history.Cycle{RunID: "r1", Actions: actions})
	actions[0] = "mutated"

	cycles, _ := s.Cycles(ctx, "r1")
	if cycles[0].Actions[0] != "a(0, 1)" {
		t.Errorf("stored cycle shares caller's slice: %v", cycles[0].Actions)
	}
}

func TestUnknownRun(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.RecordCycle(ctx, history.Cycle{RunID: "missing"}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("RecordCycle: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Cycles(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Cycles: expected ErrNotFound, got %v", err)
	}
	if err := s.EndRun(ctx, "missing", history.End{}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("EndRun: expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateRun(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.BeginRun(ctx, history.Run{ID: "r1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.BeginRun(ctx, history.Run{ID: "r1"}); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := s.BeginRun(ctx, history.Run{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty id, got %v", err)
	}
}

func TestRunsOrderAndEnd(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.BeginRun(ctx, history.Run{ID: "late", StartedAt: base.Add(time.Hour)})
	_ = s.BeginRun(ctx, history.Run{ID: "early", StartedAt: base})

	if err := s.EndRun(ctx, "early", history.End{FinishedAt: base.Add(time.Minute), FinalTime: 20}); err != nil {
		t.Fatalf("EndRun: %v", err)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "early" || runs[1].ID != "late" {
		t.Fatalf("unexpected run order: %+v", runs)
	}
	if runs[0].FinalTime != 20 {
		t.Errorf("expected final time 20, got %d", runs[0].FinalTime)
	}
}
