package engine

import (
	"context"
	"fmt"

	"github.com/cognicore/lps/pkg/lps/index"
	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// Query kinds select the store a query is answered from.
const (
	QueryAll         = ""
	QueryFluent      = "fluent"
	QueryAction      = "action"
	QueryObservation = "observation"
)

// Query answers lit at the current time. A fluent written without its time
// argument is asked about now, and an action or event written without its
// window is asked about the last cycle. kind restricts the answer to the
// fluent state, the last executed actions or the last observations; the
// empty kind runs full resolution.
func (e *Engine) Query(ctx context.Context, lit term.Term, kind string) ([]term.Theta, error) {
	e.mu.Lock()
	kb := e.kb.Clone()
	now := e.now
	e.mu.Unlock()

	lit = timed(kb, lit, now)
	if kind == QueryAll {
		return e.res.Explain(ctx, []term.Term{lit}, kb, term.Theta{})
	}

	c, ok := lit.(term.Compound)
	if !ok {
		return nil, fmt.Errorf("query %s: %w", lit, internalerr.ErrInvalidInput)
	}
	var ms []index.Match
	switch kind {
	case QueryFluent:
		ms = kb.StateUnifies(c, term.Theta{})
	case QueryAction:
		ms = kb.ExecutedUnifies(c, term.Theta{})
	case QueryObservation:
		ms = kb.ObservedUnifies(c, term.Theta{})
	default:
		return nil, fmt.Errorf("query kind %q: %w", kind, internalerr.ErrInvalidInput)
	}
	vars := c.Variables()
	out := make([]term.Theta, len(ms))
	for i, m := range ms {
		out[i] = m.Theta.Restrict(vars)
	}
	return out, nil
}

// timed appends the time arguments a declared fluent, action or event is
// missing.
func timed(kb *program.Program, lit term.Term, now int64) term.Term {
	c, ok := lit.(term.Compound)
	if !ok || kb.KindOf(c.Key()) != program.KindOther {
		return lit
	}
	if kb.KindOf(term.FunctorKey(c.Name, len(c.Args)+program.FluentTimeArgs)) == program.KindFluent {
		return program.AtTime(c, now)
	}
	switch kb.KindOf(term.FunctorKey(c.Name, len(c.Args)+program.ActionTimeArgs)) {
	case program.KindAction, program.KindEvent:
		return program.InWindow(c, now-1, now)
	}
	return lit
}
