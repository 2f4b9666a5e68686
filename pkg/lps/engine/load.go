package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// observation is an observe(O, Start, End) declaration.
type observation struct {
	lit        term.Compound
	start, end int64
}

// active reports whether the observation happens in the cycle starting at t.
func (o observation) active(t int64) bool {
	end := o.end
	if end <= o.start {
		end = o.start + 1
	}
	return o.start <= t && t < end
}

// Load installs kb and resets the engine to time 0. Declarations found in
// the program configure templates, initial state, observations and
// settings; the reactive rules are then matched once against the initial
// state.
func (e *Engine) Load(ctx context.Context, kb *program.Program) error {
	if e.running.Load() {
		return internalerr.ErrCycleInProgress
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.now > 0 && !e.terminated.Load() {
		return internalerr.ErrSettingsLocked
	}

	kb = kb.Clone()
	for _, f := range e.defined {
		kb.Define(f)
	}

	// Templates
	for _, d := range []struct {
		name     string
		kind     program.Kind
		timeArgs int
	}{
		{"fluent", program.KindFluent, program.FluentTimeArgs},
		{"action", program.KindAction, program.ActionTimeArgs},
		{"event", program.KindEvent, program.ActionTimeArgs},
	} {
		rows, err := e.declarations(ctx, kb, d.name, 1)
		if err != nil {
			return err
		}
		for _, row := range rows {
			tpl, err := program.Template(row[0], d.timeArgs)
			if err != nil {
				return fmt.Errorf("load %s: %w", d.name, err)
			}
			if prev, dup := kb.DeclaredName(tpl.Name); dup {
				return fmt.Errorf("load %s %s: already declared as %s: %w", d.name, tpl.Name, prev, internalerr.ErrDuplicate)
			}
			kb.Declare(d.kind, tpl)
		}
	}
	kb.AnalyseMacros()

	base := e.settings
	if e.loaded {
		base = e.opts.Settings
	}
	settings, err := e.loadSettings(ctx, kb, base)
	if err != nil {
		return err
	}

	// Initial state
	rows, err := e.declarations(ctx, kb, "initially", 1)
	if err != nil {
		return err
	}
	for _, row := range rows {
		fluents := []term.Term{row[0]}
		if l, ok := row[0].(term.List); ok {
			if fluents, err = l.Flatten(); err != nil {
				return fmt.Errorf("load initially: %w", err)
			}
		}
		for _, f := range fluents {
			c, ok := f.(term.Compound)
			if !ok || kb.KindOf(term.FunctorKey(c.Name, len(c.Args)+1)) != program.KindFluent {
				return fmt.Errorf("load initially %s: %w", f, internalerr.ErrUndeclaredFluent)
			}
			kb.AddState(program.AtTime(c, 0))
		}
	}

	// Observations
	var scheduled []observation
	rows, err = e.declarations(ctx, kb, "observe", 3)
	if err != nil {
		return err
	}
	for _, row := range rows {
		o, ok := row[0].(term.Compound)
		start, sok := program.IntArg(row[1])
		end, eok := program.IntArg(row[2])
		if !ok || !sok || !eok {
			return fmt.Errorf("load observe(%s): %w", term.JoinString(row), internalerr.ErrBadDeclaration)
		}
		if end < start {
			return fmt.Errorf("load observe(%s): end %d before start %d: %w", o, end, start, internalerr.ErrBadObservation)
		}
		scheduled = append(scheduled, observation{lit: o, start: start, end: end})
	}

	e.kb = kb
	e.settings = settings
	e.now = 0
	e.scheduled = scheduled
	e.adhoc = nil
	e.trees = nil
	e.partials = nil
	e.lastActions = nil
	e.lastObserved = nil
	e.err = nil
	e.terminated.Store(false)

	trees, partials, err := e.derive(ctx, kb, 0, nil)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	e.trees = trees
	e.partials = partials
	e.loaded = true

	e.logger.Info("program loaded",
		slog.Int("fluents", len(kb.Templates(program.KindFluent))),
		slog.Int("actions", len(kb.Templates(program.KindAction))),
		slog.Int("events", len(kb.Templates(program.KindEvent))),
		slog.Int("rules", len(kb.Rules())),
		slog.Int("goals", len(trees)),
		slog.Int64("max_time", settings.MaxTime),
	)
	return nil
}

// loadSettings applies maxTime/1, cycleInterval/1 and
// continuousExecution/1 declarations over base.
func (e *Engine) loadSettings(ctx context.Context, kb *program.Program, base Settings) (Settings, error) {
	s := base
	rows, err := e.declarations(ctx, kb, "maxTime", 1)
	if err != nil {
		return s, err
	}
	for _, row := range rows {
		v, ok := program.IntArg(row[0])
		if !ok || v < 0 {
			return s, fmt.Errorf("load maxTime(%s): %w", row[0], internalerr.ErrBadDeclaration)
		}
		s.MaxTime = v
	}

	rows, err = e.declarations(ctx, kb, "cycleInterval", 1)
	if err != nil {
		return s, err
	}
	for _, row := range rows {
		v, ok := program.IntArg(row[0])
		if !ok || v < 0 {
			return s, fmt.Errorf("load cycleInterval(%s): %w", row[0], internalerr.ErrBadDeclaration)
		}
		s.CycleInterval = time.Duration(v) * time.Millisecond
	}

	rows, err = e.declarations(ctx, kb, "continuousExecution", 1)
	if err != nil {
		return s, err
	}
	for _, row := range rows {
		on, err := flag(row[0])
		if err != nil {
			return s, fmt.Errorf("load continuousExecution: %w", err)
		}
		s.Continuous = on
	}
	return s, nil
}

func flag(t term.Term) (bool, error) {
	if c, ok := t.(term.Compound); ok && len(c.Args) == 0 {
		switch c.Name {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
	}
	if v, ok := program.IntArg(t); ok {
		return v != 0, nil
	}
	return false, fmt.Errorf("%s: %w", t, internalerr.ErrBadDeclaration)
}

// declarations answers name(X1, ..., Xn) and returns the bound arguments
// of every answer. Undeclared names have no rows.
func (e *Engine) declarations(ctx context.Context, kb *program.Program, name string, arity int) ([][]term.Term, error) {
	if !kb.KnownPredicate(term.FunctorKey(name, arity)) {
		return nil, nil
	}
	args := make([]term.Term, arity)
	for i := range args {
		args[i] = term.V("_D" + strconv.Itoa(i))
	}
	q := term.C(name, args...)
	res, err := e.res.Explain(ctx, []term.Term{q}, kb, term.Theta{})
	if err != nil {
		return nil, fmt.Errorf("load %s/%d: %w", name, arity, err)
	}
	rows := make([][]term.Term, len(res))
	for i, th := range res {
		rows[i] = term.SubstituteAll(args, th)
	}
	return rows, nil
}
