package program

import (
	"context"
	"maps"

	"github.com/cognicore/lps/pkg/lps/term"
)

// ExplainFunc resolves a conjunction under theta. Functors that need to
// run a nested query, such as negation, receive one through Call.
type ExplainFunc func(ctx context.Context, query []term.Term, theta term.Theta) ([]term.Theta, error)

// Call is the input of one functor invocation.
type Call struct {
	Args    []term.Term
	Theta   term.Theta
	KB      *Program
	Explain ExplainFunc
}

// Result is one answer of a functor. Predicate functors extend Theta;
// value functors also return the Replacement their call evaluates to.
type Result struct {
	Theta       term.Theta
	Replacement term.Term
}

// Functor is a built-in or user predicate implemented in Go.
type Functor struct {
	Name  string
	Arity int

	// Value marks functors that compute a term and may be used in
	// argument position, e.g. X = max(A, B).
	Value bool

	// Pure functors depend only on their ground arguments, so calls can
	// be memoised.
	Pure bool

	Fn func(ctx context.Context, c Call) ([]Result, error)
}

// Key returns name/arity.
func (f Functor) Key() string { return term.FunctorKey(f.Name, f.Arity) }

// Functors is a registry keyed by name/arity.
type Functors struct {
	m map[string]Functor
}

// NewFunctors returns an empty registry.
func NewFunctors() *Functors {
	return &Functors{m: make(map[string]Functor)}
}

// Register adds or replaces f.
func (r *Functors) Register(f Functor) {
	r.m[f.Key()] = f
}

// Lookup finds the functor for key.
func (r *Functors) Lookup(key string) (Functor, bool) {
	if r == nil {
		return Functor{}, false
	}
	f, ok := r.m[key]
	return f, ok
}

// Len returns the number of registered functors.
func (r *Functors) Len() int {
	if r == nil {
		return 0
	}
	return len(r.m)
}

func (r *Functors) clone() *Functors {
	return &Functors{m: maps.Clone(r.m)}
}
