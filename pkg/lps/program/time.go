package program

import (
	"fmt"
	"strconv"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/term"
)

// Fluents carry one trailing time argument; actions and events carry a
// start and an end time.
const (
	FluentTimeArgs = 1
	ActionTimeArgs = 2
)

// Template turns a declaration argument into a literal pattern with
// timeArgs trailing time variables. Accepted forms are an atom (on), a
// compound without time arguments (loc(X, Y)), and name/N where N already
// counts the time arguments (toggle/2).
func Template(decl term.Term, timeArgs int) (term.Compound, error) {
	switch d := decl.(type) {
	case term.Compound:
		return d.WithArgs(timeVars(timeArgs)...), nil
	case term.BinaryOp:
		if d.Op != "/" {
			break
		}
		name, ok := d.L.(term.Compound)
		if !ok || len(name.Args) != 0 {
			break
		}
		n, ok := d.R.(term.Const)
		if !ok {
			break
		}
		arity, isInt := n.AsInt()
		if !isInt || arity < int64(timeArgs) {
			break
		}
		args := make([]term.Term, 0, arity)
		for i := 0; i < int(arity)-timeArgs; i++ {
			args = append(args, term.V("_A"+strconv.Itoa(i+1)))
		}
		return term.C(name.Name, append(args, timeVars(timeArgs)...)...), nil
	}
	return term.Compound{}, fmt.Errorf("%w: %s", internalerr.ErrBadDeclaration, decl)
}

func timeVars(n int) []term.Term {
	if n == 1 {
		return []term.Term{term.V("_T")}
	}
	return []term.Term{term.V("_S"), term.V("_E")}
}

// AtTime stamps a fluent with time t.
func AtTime(f term.Compound, t int64) term.Compound {
	return f.WithArgs(term.Int(t))
}

// InWindow stamps an action or event with the window [start, end].
func InWindow(a term.Compound, start, end int64) term.Compound {
	return a.WithArgs(term.Int(start), term.Int(end))
}

// Untimed drops the n trailing time arguments of lit.
func Untimed(lit term.Compound, n int) term.Compound {
	if len(lit.Args) < n {
		return lit
	}
	return term.Compound{Name: lit.Name, Args: lit.Args[:len(lit.Args)-n]}
}

// TimeArg returns the argument n positions from the end, counting from
// one.
func TimeArg(lit term.Compound, n int) (term.Term, bool) {
	if len(lit.Args) < n {
		return nil, false
	}
	return lit.Args[len(lit.Args)-n], true
}

// IntArg returns the integer value of a time argument, if it is bound.
func IntArg(t term.Term) (int64, bool) {
	c, ok := t.(term.Const)
	if !ok {
		return 0, false
	}
	if i, ok := c.AsInt(); ok {
		return i, true
	}
	return 0, false
}

// Restamp replaces the trailing time argument of a fluent.
func Restamp(f term.Compound, t int64) term.Compound {
	if len(f.Args) == 0 {
		return f
	}
	args := append([]term.Term(nil), f.Args...)
	args[len(args)-1] = term.Int(t)
	return term.Compound{Name: f.Name, Args: args}
}
