package resolve

import (
	"context"
	"fmt"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

func registerBuiltins(r *program.Functors) {
	r.Register(program.Functor{Name: "true", Arity: 0, Fn: succeed})
	r.Register(program.Functor{Name: "false", Arity: 0, Fn: fail})
	r.Register(program.Functor{Name: "=", Arity: 2, Fn: unifyFn})
	r.Register(program.Functor{Name: "!", Arity: 1, Fn: notFn})
	r.Register(program.Functor{Name: "member", Arity: 2, Fn: memberFn})
	r.Register(program.Functor{Name: "length", Arity: 2, Fn: lengthFn})
	r.Register(program.Functor{Name: "max", Arity: 2, Value: true, Pure: true, Fn: extremum(1)})
	r.Register(program.Functor{Name: "min", Arity: 2, Value: true, Pure: true, Fn: extremum(-1)})
	r.Register(program.Functor{Name: "abs", Arity: 1, Value: true, Pure: true, Fn: absFn})
	r.Register(program.Functor{Name: "sum", Arity: 1, Value: true, Pure: true, Fn: sumFn})
}

func succeed(_ context.Context, c program.Call) ([]program.Result, error) {
	return []program.Result{{Theta: c.Theta}}, nil
}

func fail(context.Context, program.Call) ([]program.Result, error) { return nil, nil }

func unifyFn(_ context.Context, c program.Call) ([]program.Result, error) {
	th, ok := term.UnifyTerms(c.Args[0], c.Args[1], c.Theta)
	if !ok {
		return nil, nil
	}
	return []program.Result{{Theta: th}}, nil
}

// notFn succeeds, binding nothing, exactly when its argument has no answer.
func notFn(ctx context.Context, c program.Call) ([]program.Result, error) {
	res, err := c.Explain(ctx, []term.Term{c.Args[0]}, c.Theta)
	if err != nil {
		return nil, err
	}
	if len(res) > 0 {
		return nil, nil
	}
	return []program.Result{{Theta: c.Theta}}, nil
}

func memberFn(_ context.Context, c program.Call) ([]program.Result, error) {
	elems, err := listArg(c.Args[1], c.Theta)
	if err != nil {
		return nil, err
	}
	var out []program.Result
	for _, e := range elems {
		if th, ok := term.UnifyTerms(c.Args[0], e, c.Theta); ok {
			out = append(out, program.Result{Theta: th})
		}
	}
	return out, nil
}

func lengthFn(_ context.Context, c program.Call) ([]program.Result, error) {
	elems, err := listArg(c.Args[0], c.Theta)
	if err != nil {
		return nil, err
	}
	th, ok := term.UnifyTerms(c.Args[1], term.Int(int64(len(elems))), c.Theta)
	if !ok {
		return nil, nil
	}
	return []program.Result{{Theta: th}}, nil
}

func extremum(sign int) func(context.Context, program.Call) ([]program.Result, error) {
	return func(_ context.Context, c program.Call) ([]program.Result, error) {
		a, b := c.Args[0].Substitute(c.Theta), c.Args[1].Substitute(c.Theta)
		less, err := term.Truth(term.BoolBinaryOp{Op: "<", L: a, R: b})
		if err != nil {
			return nil, err
		}
		pick := a
		if less == (sign > 0) {
			pick = b
		}
		v, err := term.Evaluate(pick)
		if err != nil {
			return nil, err
		}
		return []program.Result{{Theta: c.Theta, Replacement: v}}, nil
	}
}

func absFn(_ context.Context, c program.Call) ([]program.Result, error) {
	x := c.Args[0].Substitute(c.Theta)
	neg, err := term.Truth(term.BoolBinaryOp{Op: "<", L: x, R: term.Int(0)})
	if err != nil {
		return nil, err
	}
	if neg {
		x = term.UnaryOp{Op: "-", X: x}
	}
	v, err := term.Evaluate(x)
	if err != nil {
		return nil, err
	}
	return []program.Result{{Theta: c.Theta, Replacement: v}}, nil
}

func sumFn(_ context.Context, c program.Call) ([]program.Result, error) {
	elems, err := listArg(c.Args[0], c.Theta)
	if err != nil {
		return nil, err
	}
	var total term.Term = term.Int(0)
	for _, e := range elems {
		v, err := term.Evaluate(term.BinaryOp{Op: "+", L: total, R: e})
		if err != nil {
			return nil, err
		}
		total = v
	}
	return []program.Result{{Theta: c.Theta, Replacement: total}}, nil
}

func listArg(t term.Term, theta term.Theta) ([]term.Term, error) {
	switch l := t.Substitute(theta).(type) {
	case term.List:
		return l.Flatten()
	case term.Var:
		return nil, fmt.Errorf("%w: %s", internalerr.ErrNotGround, l.Name)
	default:
		return nil, fmt.Errorf("%w: %s is not a list", internalerr.ErrBadOperand, l)
	}
}
