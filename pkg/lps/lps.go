// Package lps is the entry point for running LPS programs: it parses
// source text, drives the engine and journals every cycle.
package lps

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cognicore/lps/pkg/lps/engine"
	"github.com/cognicore/lps/pkg/lps/goaltree"
	"github.com/cognicore/lps/pkg/lps/history"
	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/syntax"
	"github.com/cognicore/lps/pkg/lps/term"
)

// Session runs one program at a time
type Session struct {
	engine  *engine.Engine
	history history.Store
	logger  *slog.Logger
	ids     *goaltree.IDs

	mu    sync.Mutex
	runID string
	ended bool
}

// Options configures a Session
type Options struct {
	Engine  engine.Options
	History history.Store // optional
	Logger  *slog.Logger
}

// New creates a Session with the given dependencies
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Engine.Logger == nil {
		opts.Engine.Logger = logger
	}
	s := &Session{
		engine:  engine.New(opts.Engine),
		history: opts.History,
		logger:  logger.With(slog.String("component", "session")),
		ids:     goaltree.NewIDs(),
	}
	s.engine.OnCycle(s.record)
	return s
}

// Close cleanly shuts down the Session
func (s *Session) Close() error {
	if s.history == nil {
		return nil
	}
	return s.history.Close()
}

// Engine exposes the underlying engine.
func (s *Session) Engine() *engine.Engine { return s.engine }

// RunID returns the id of the current run, empty before Load.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Define registers a Go predicate or value functor with the engine.
func (s *Session) Define(f program.Functor) { s.engine.Define(f) }

// Load parses src, loads it into the engine and starts a new run.
func (s *Session) Load(ctx context.Context, src string) error {
	kb, err := syntax.ParseProgram(src)
	if err != nil {
		return fmt.Errorf("parse program: %w", err)
	}
	if err := s.engine.Load(ctx, kb); err != nil {
		return err
	}

	run := history.Run{
		ID:        s.ids.Next(),
		Program:   src,
		MaxTime:   s.engine.Settings().MaxTime,
		StartedAt: time.Now(),
	}
	if s.history != nil {
		if err := s.history.BeginRun(ctx, run); err != nil {
			return fmt.Errorf("begin run: %w", err)
		}
	}

	s.mu.Lock()
	s.runID = run.ID
	s.ended = false
	s.mu.Unlock()
	s.logger.Info("run started", slog.String("run", run.ID))
	return nil
}

// Step runs a single cycle.
func (s *Session) Step(ctx context.Context) error {
	err := s.engine.Step(ctx)
	if s.engine.Status() == engine.Terminated {
		s.finish(context.WithoutCancel(ctx))
	}
	return err
}

// Run cycles until the program reaches its max time, fails, or ctx ends.
func (s *Session) Run(ctx context.Context) error {
	err := s.engine.Run(ctx)
	s.finish(context.WithoutCancel(ctx))
	return err
}

// Observe parses an observation and queues it for the next cycle.
func (s *Session) Observe(src string) error {
	t, err := syntax.ParseTerm(src)
	if err != nil {
		return err
	}
	c, ok := t.(term.Compound)
	if !ok {
		return fmt.Errorf("observe %s: %w", t, internalerr.ErrInvalidInput)
	}
	s.engine.Observe(c)
	return nil
}

// Query parses src and answers it at the current time. See
// engine.Engine.Query for the kinds.
func (s *Session) Query(ctx context.Context, src, kind string) ([]term.Theta, error) {
	t, err := syntax.ParseTerm(src)
	if err != nil {
		return nil, err
	}
	return s.engine.Query(ctx, t, kind)
}

// History returns the recorded cycles of the current run.
func (s *Session) History(ctx context.Context) ([]history.Cycle, error) {
	if s.history == nil {
		return nil, internalerr.ErrStoreUnavailable
	}
	id := s.RunID()
	if id == "" {
		return nil, internalerr.ErrNotLoaded
	}
	return s.history.Cycles(ctx, id)
}

func (s *Session) record(r engine.CycleReport) {
	if s.history == nil {
		return
	}
	c := history.Cycle{
		RunID:        s.RunID(),
		Time:         r.Time,
		Actions:      r.Actions,
		Observations: r.Observations,
		Fluents:      r.Fluents,
		Goals:        r.Goals,
		Duration:     r.Duration,
	}
	if err := s.history.RecordCycle(context.Background(), c); err != nil {
		s.logger.Warn("record cycle failed", slog.Int64("time", r.Time), slog.String("error", err.Error()))
	}
}

func (s *Session) finish(ctx context.Context) {
	s.mu.Lock()
	if s.ended || s.runID == "" {
		s.mu.Unlock()
		return
	}
	s.ended = true
	id := s.runID
	s.mu.Unlock()

	end := history.End{FinishedAt: time.Now(), FinalTime: s.engine.Time()}
	if err := s.engine.Err(); err != nil {
		end.Error = err.Error()
	}
	s.logger.Info("run finished", slog.String("run", id), slog.Int64("time", end.FinalTime))
	if s.history == nil {
		return
	}
	if err := s.history.EndRun(ctx, id, end); err != nil {
		s.logger.Warn("end run failed", slog.String("run", id), slog.String("error", err.Error()))
	}
}
