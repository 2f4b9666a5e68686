package engine

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cognicore/lps/pkg/lps/goaltree"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// selection is the outcome of action selection for one cycle.
type selection struct {
	actions  []term.Compound
	subtrees map[int]*goaltree.Tree
	kb       *program.Program
}

// selectActions walks the goal trees in order and, for each, commits to the
// first candidate action set that keeps every constraint satisfied and
// leaves every live goal achievable on the resulting state: the candidate's
// remaining subtree, each earlier commitment, and each other goal that could
// still succeed without acting this cycle. A tree with no such candidate commits
// to nothing this cycle. The live knowledge base is never modified; the
// returned selection carries the snapshot with the effects applied.
func (e *Engine) selectActions(ctx context.Context, kb *program.Program, trees []*goaltree.Tree, observed []term.Compound, now int64) (*selection, error) {
	ctx, span := e.tracer.Start(ctx, "lps.select_actions",
		trace.WithAttributes(
			attribute.Int64("time", now),
			attribute.Int("goals", len(trees)),
		),
	)
	defer span.End()

	base := kb.Clone()
	if err := e.applyEffects(ctx, base, now, nil, observed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply observations failed")
		return nil, err
	}
	if violated, err := e.violated(ctx, base); err != nil {
		return nil, err
	} else if violated {
		e.logger.Warn("observations violate a constraint", slog.Int64("time", now))
	}
	sel := &selection{subtrees: make(map[int]*goaltree.Tree), kb: base}

	// Goals that survive the cycle without any action must keep surviving
	// whatever is selected for the others.
	viable, err := e.viable(ctx, base, now+1, trees)
	if err != nil {
		return nil, err
	}

	pre := goaltree.Env{KB: kb, Resolutor: e.res, Time: now, MaxExpansion: e.opts.MaxExpansion}
	for i, tree := range trees {
		var cbErr error
		err := tree.ForEachCandidateActions(ctx, pre, func(cand []term.Compound, sub *goaltree.Tree) bool {
			combined := union(sel.actions, cand)
			hyp := kb.Clone()
			if err := e.applyEffects(ctx, hyp, now, combined, observed); err != nil {
				cbErr = err
				return false
			}
			violated, err := e.violated(ctx, hyp)
			if err != nil {
				cbErr = err
				return false
			}
			if violated {
				return true
			}
			ok, err := e.achievable(ctx, hyp, now+1, i, sub, trees, sel.subtrees, viable)
			if err != nil {
				cbErr = err
				return false
			}
			if !ok {
				return true
			}
			sel.actions = combined
			sel.subtrees[i] = sub
			sel.kb = hyp
			return false
		})
		if err == nil {
			err = cbErr
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "candidate search failed")
			return nil, fmt.Errorf("select actions for goal %s: %w", tree.ID, err)
		}
	}

	span.SetAttributes(attribute.Int("actions", len(sel.actions)))
	return sel, nil
}

// viable reports, per tree, whether it is still alive at time at on the
// observation-only state when actions it has not taken yet are left open.
func (e *Engine) viable(ctx context.Context, base *program.Program, at int64, trees []*goaltree.Tree) ([]bool, error) {
	env := goaltree.Env{KB: base, Resolutor: e.res, Time: at, MaxExpansion: e.opts.MaxExpansion, Tentative: true}
	out := make([]bool, len(trees))
	for i, t := range trees {
		st, err := t.Clone().Evaluate(ctx, env)
		if err != nil {
			return nil, err
		}
		out[i] = st != goaltree.Failed
	}
	return out, nil
}

// achievable evaluates, against hyp, the candidate's subtree of tree i,
// every subtree already committed this cycle, and every other viable tree
// that has not committed. It reports whether none of them failed.
// Uncommitted trees are evaluated tentatively so their own actions for
// this cycle stay open.
func (e *Engine) achievable(ctx context.Context, hyp *program.Program, at int64, i int, sub *goaltree.Tree, trees []*goaltree.Tree, committed map[int]*goaltree.Tree, viable []bool) (bool, error) {
	env := goaltree.Env{KB: hyp, Resolutor: e.res, Time: at, MaxExpansion: e.opts.MaxExpansion}
	tentative := env
	tentative.Tentative = true

	for j, t := range trees {
		check, on := t, tentative
		switch c, ok := committed[j]; {
		case j == i:
			check, on = sub, env
		case ok:
			check, on = c, env
		case !viable[j]:
			continue
		}
		st, err := check.Clone().Evaluate(ctx, on)
		if err != nil {
			return false, err
		}
		if st == goaltree.Failed {
			return false, nil
		}
	}
	return true, nil
}

// violated reports whether any integrity constraint holds in kb.
func (e *Engine) violated(ctx context.Context, kb *program.Program) (bool, error) {
	for _, c := range kb.Constraints() {
		holds, err := e.res.Holds(ctx, c.Body, kb, term.Theta{})
		if err != nil {
			return false, fmt.Errorf("constraint %s: %w", c, err)
		}
		if holds {
			return true, nil
		}
	}
	return false, nil
}

// applyEffects records actions and observations as the happenings of the
// window [now, now+1] and moves the state to now+1. The effects of every
// happening are resolved against kb before any of them is applied;
// terminations are applied before initiations.
func (e *Engine) applyEffects(ctx context.Context, kb *program.Program, now int64, actions, observed []term.Compound) error {
	happenings := append(append([]term.Compound(nil), actions...), observed...)

	var terminated, initiated []term.Compound
	for _, h := range happenings {
		untimed := program.Untimed(h, program.ActionTimeArgs)
		for _, ev := range []term.Compound{h, untimed} {
			olds, err := e.effects(ctx, kb, program.Terminates, ev, 1)
			if err != nil {
				return err
			}
			terminated = append(terminated, olds...)
			news, err := e.effects(ctx, kb, program.Initiates, ev, 1)
			if err != nil {
				return err
			}
			initiated = append(initiated, news...)
			pairs, err := e.effects(ctx, kb, program.Updates, ev, 2)
			if err != nil {
				return err
			}
			for i := 0; i+1 < len(pairs); i += 2 {
				terminated = append(terminated, pairs[i])
				initiated = append(initiated, pairs[i+1])
			}
		}
	}

	for _, f := range terminated {
		pattern := untimedFluent(kb, f).WithArgs(term.V("_T"))
		for _, m := range kb.StateUnifies(pattern, term.Theta{}) {
			kb.RemoveState(m.Literal)
		}
	}
	kb.Restamp(now + 1)
	for _, f := range initiated {
		f = untimedFluent(kb, f)
		if !f.IsGround() {
			e.logger.Warn("skipping non-ground initiated fluent", slog.String("fluent", f.String()))
			continue
		}
		kb.AddState(program.AtTime(f, now+1))
	}

	kb.SetExecuted(actions)
	kb.SetObserved(observed)
	return nil
}

// effects answers name(ev, F1, ..., Fn) and returns the fluent arguments
// of every answer, flattened in answer order.
func (e *Engine) effects(ctx context.Context, kb *program.Program, name string, ev term.Compound, n int) ([]term.Compound, error) {
	if !kb.KnownPredicate(term.FunctorKey(name, n+1)) {
		return nil, nil
	}
	args := []term.Term{ev}
	vars := make([]term.Term, n)
	for i := range vars {
		vars[i] = term.V("_Eff" + string(rune('A'+i)))
		args = append(args, vars[i])
	}
	res, err := e.res.Explain(ctx, []term.Term{term.C(name, args...)}, kb, term.Theta{})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, ev, err)
	}
	var out []term.Compound
	for _, th := range res {
		row := make([]term.Compound, 0, n)
		for _, v := range vars {
			f, ok := v.Substitute(th).(term.Compound)
			if !ok {
				break
			}
			row = append(row, f)
		}
		if len(row) == n {
			out = append(out, row...)
		}
	}
	return out, nil
}

// untimedFluent strips the time argument of f when f names a declared
// fluent with its time.
func untimedFluent(kb *program.Program, f term.Compound) term.Compound {
	if kb.KindOf(f.Key()) == program.KindFluent {
		return program.Untimed(f, program.FluentTimeArgs)
	}
	return f
}

func union(a, b []term.Compound) []term.Compound {
	out := append([]term.Compound(nil), a...)
	for _, x := range b {
		dup := false
		for _, y := range out {
			if term.Equal(x, y) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, x)
		}
	}
	return out
}
