package resolve

import (
	"context"

	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// expand replaces ground arithmetic and value-functor calls in the
// arguments of lit by their values. A functor with several answers yields
// one instance per combination.
func (r *Resolutor) expand(ctx context.Context, lit term.Term, kb *program.Program, theta term.Theta) ([]term.Term, error) {
	switch l := lit.(type) {
	case term.Compound:
		if l.Name == "!" || len(l.Args) == 0 {
			return []term.Term{l}, nil
		}
		alts, err := r.expandArgs(ctx, l.Args, kb, theta)
		if err != nil {
			return nil, err
		}
		out := make([]term.Term, len(alts))
		for i, args := range alts {
			out[i] = term.Compound{Name: l.Name, Args: args}
		}
		return out, nil
	case term.BoolBinaryOp:
		alts, err := r.expandArgs(ctx, []term.Term{l.L, l.R}, kb, theta)
		if err != nil {
			return nil, err
		}
		out := make([]term.Term, len(alts))
		for i, a := range alts {
			out[i] = term.BoolBinaryOp{Op: l.Op, L: a[0], R: a[1]}
		}
		return out, nil
	case term.BoolUnaryOp:
		alts, err := r.expand(ctx, l.X, kb, theta)
		if err != nil {
			return nil, err
		}
		out := make([]term.Term, len(alts))
		for i, a := range alts {
			out[i] = term.BoolUnaryOp{Op: l.Op, X: a}
		}
		return out, nil
	}
	return []term.Term{lit}, nil
}

// expandArgs returns the cartesian product of the alternatives of each
// argument.
func (r *Resolutor) expandArgs(ctx context.Context, args []term.Term, kb *program.Program, theta term.Theta) ([][]term.Term, error) {
	combos := [][]term.Term{nil}
	for _, a := range args {
		vals, err := r.expandValue(ctx, a, kb, theta)
		if err != nil {
			return nil, err
		}
		next := make([][]term.Term, 0, len(combos)*len(vals))
		for _, c := range combos {
			for _, v := range vals {
				row := make([]term.Term, len(c), len(c)+1)
				copy(row, c)
				next = append(next, append(row, v))
			}
		}
		combos = next
	}
	return combos, nil
}

// expandValue evaluates one argument. Non-ground expressions and terms
// that are not calls are returned unchanged.
func (r *Resolutor) expandValue(ctx context.Context, t term.Term, kb *program.Program, theta term.Theta) ([]term.Term, error) {
	switch x := t.(type) {
	case term.Compound:
		if len(x.Args) == 0 {
			return []term.Term{x}, nil
		}
		f, ok := r.valueFunctor(x.Key(), kb)
		if !ok {
			return []term.Term{x}, nil
		}
		alts, err := r.expandArgs(ctx, x.Args, kb, theta)
		if err != nil {
			return nil, err
		}
		var out []term.Term
		for _, args := range alts {
			call := term.Compound{Name: x.Name, Args: args}
			if !call.IsGround() {
				out = append(out, call)
				continue
			}
			vals, err := r.value(ctx, f, call, kb, theta)
			if err != nil {
				return nil, err
			}
			out = append(out, vals...)
		}
		return out, nil
	case term.UnaryOp:
		alts, err := r.expandValue(ctx, x.X, kb, theta)
		if err != nil {
			return nil, err
		}
		out := make([]term.Term, 0, len(alts))
		for _, a := range alts {
			v, err := evaluateIfGround(term.UnaryOp{Op: x.Op, X: a})
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case term.BinaryOp:
		alts, err := r.expandArgs(ctx, []term.Term{x.L, x.R}, kb, theta)
		if err != nil {
			return nil, err
		}
		out := make([]term.Term, 0, len(alts))
		for _, a := range alts {
			v, err := evaluateIfGround(term.BinaryOp{Op: x.Op, L: a[0], R: a[1]})
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return []term.Term{t}, nil
}

func (r *Resolutor) valueFunctor(key string, kb *program.Program) (program.Functor, bool) {
	if f, ok := r.builtins.Lookup(key); ok && f.Value {
		return f, true
	}
	if f, ok := kb.Functor(key); ok && f.Value {
		return f, true
	}
	return program.Functor{}, false
}

func evaluateIfGround(t term.Term) (term.Term, error) {
	if !t.IsGround() {
		return t, nil
	}
	return term.Evaluate(t)
}
