package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cognicore/lps/pkg/lps/goaltree"
	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// Step runs exactly one cycle. Calling Step while another cycle is running
// is an error, as is stepping a terminated engine. A cycle that fails
// terminates the engine.
func (e *Engine) Step(ctx context.Context) error {
	if e.terminated.Load() {
		return internalerr.ErrTerminated
	}
	if !e.running.CompareAndSwap(false, true) {
		return internalerr.ErrCycleInProgress
	}
	defer e.running.Store(false)

	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return internalerr.ErrNotLoaded
	}
	now := e.now
	kb := e.kb.Clone()
	trees := make([]*goaltree.Tree, len(e.trees))
	for i, t := range e.trees {
		trees[i] = t.Clone()
	}
	partials := e.partials
	adhoc := e.adhoc
	e.adhoc = nil
	scheduled := e.scheduled
	settings := e.settings
	hooks := slices.Clone(e.hooks)
	e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "lps.cycle", trace.WithAttributes(attribute.Int64("time", now)))
	defer span.End()
	start := time.Now()

	res, err := e.cycle(ctx, kb, now, trees, partials, scheduled, adhoc)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cycle failed")
		switch {
		case errors.Is(context.Cause(ctx), internalerr.ErrCycleOverrun):
			err = fmt.Errorf("cycle %d: %w", now, internalerr.ErrCycleOverrun)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// the caller gave up; nothing was adopted, the engine can step again
			e.mu.Lock()
			e.adhoc = append(adhoc, e.adhoc...)
			e.mu.Unlock()
			return err
		default:
			err = fmt.Errorf("cycle %d: %w", now, err)
		}
		e.fail(err)
		return err
	}

	e.mu.Lock()
	for _, f := range e.defined {
		if _, ok := res.kb.Functor(f.Key()); !ok {
			res.kb.Define(f)
		}
	}
	e.kb = res.kb
	e.trees = res.trees
	e.partials = res.partials
	e.lastActions = res.actions
	e.lastObserved = res.observed
	e.now = now + 1
	done := e.now >= settings.MaxTime
	report := CycleReport{
		Time:         now,
		Actions:      render(res.actions),
		Observations: render(res.observed),
		Fluents:      render(res.kb.State()),
		Goals:        len(res.trees),
		Duration:     time.Since(start),
	}
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Int("actions", len(report.Actions)),
		attribute.Int("goals", report.Goals),
	)
	e.logger.Debug("cycle complete",
		slog.Int64("time", now),
		slog.Int("actions", len(report.Actions)),
		slog.Int("observations", len(report.Observations)),
		slog.Int("goals", report.Goals),
		slog.Duration("duration", report.Duration),
	)
	for _, h := range hooks {
		h(report)
	}
	if done {
		e.Terminate()
	}
	return nil
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
	e.logger.Error("cycle failed", slog.String("error", err.Error()))
	e.Terminate()
}

type cycleResult struct {
	kb       *program.Program
	trees    []*goaltree.Tree
	partials []partial
	actions  []term.Compound
	observed []term.Compound
}

func (e *Engine) cycle(ctx context.Context, kb *program.Program, now int64, trees []*goaltree.Tree, partials []partial, scheduled []observation, adhoc []term.Compound) (*cycleResult, error) {
	// Observations
	var observed []term.Compound
	for _, o := range scheduled {
		if o.active(now) {
			observed = append(observed, program.InWindow(o.lit, now, now+1))
		}
	}
	for _, o := range adhoc {
		observed = append(observed, program.InWindow(o, now, now+1))
	}

	// Legal actions
	var legal []term.Compound
	for _, tpl := range kb.Templates(program.KindAction) {
		legal = append(legal, program.InWindow(program.Untimed(tpl, program.ActionTimeArgs), now, now+1))
	}
	kb.SetLegal(legal)

	env := goaltree.Env{KB: kb, Resolutor: e.res, Time: now, MaxExpansion: e.opts.MaxExpansion}
	live, err := e.evaluate(ctx, env, trees)
	if err != nil {
		return nil, err
	}

	sel, err := e.selectActions(ctx, kb, live, observed, now)
	if err != nil {
		return nil, err
	}
	for i, sub := range sel.subtrees {
		live[i].Root = sub.Root
	}

	after := goaltree.Env{KB: sel.kb, Resolutor: e.res, Time: now + 1, MaxExpansion: e.opts.MaxExpansion}
	live, err = e.evaluate(ctx, after, live)
	if err != nil {
		return nil, err
	}

	fresh, waiting, err := e.derive(ctx, sel.kb, now+1, partials)
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}

	return &cycleResult{
		kb:       sel.kb,
		trees:    append(live, fresh...),
		partials: waiting,
		actions:  sel.actions,
		observed: observed,
	}, nil
}

// evaluate evaluates every tree and keeps the pending ones, in order.
func (e *Engine) evaluate(ctx context.Context, env goaltree.Env, trees []*goaltree.Tree) ([]*goaltree.Tree, error) {
	live := trees[:0:0]
	for _, t := range trees {
		st, err := t.Evaluate(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("goal %s: %w", t.ID, err)
		}
		switch st {
		case goaltree.Solved:
			e.logger.Debug("goal solved", slog.String("goal", t.ID), slog.Int64("time", env.Time))
		case goaltree.Failed:
			e.logger.Debug("goal failed", slog.String("goal", t.ID), slog.Int64("time", env.Time))
		default:
			live = append(live, t)
		}
	}
	return live, nil
}

// Run steps the engine until it terminates or ctx is done. In interval
// mode every cycle gets CycleInterval to finish and the next cycle starts
// one interval after the previous one began; a cycle that overruns
// terminates the engine with ErrCycleOverrun. In continuous mode cycles
// run back to back.
func (e *Engine) Run(ctx context.Context) error {
	for !e.terminated.Load() {
		s := e.Settings()
		if s.Continuous || s.CycleInterval <= 0 {
			if err := e.Step(ctx); err != nil {
				return e.stopErr(err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}

		began := time.Now()
		cctx, cancel := context.WithTimeoutCause(ctx, s.CycleInterval, internalerr.ErrCycleOverrun)
		err := e.Step(cctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return e.stopErr(err)
		}
		if e.terminated.Load() {
			break
		}
		timer := time.NewTimer(s.CycleInterval - time.Since(began))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

func (e *Engine) stopErr(err error) error {
	if errors.Is(err, internalerr.ErrTerminated) {
		return nil
	}
	return err
}
