// Package resolve answers conjunctive queries against a knowledge base by
// SLD resolution, extended with Go functors and negation as failure.
package resolve

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultMaxDepth  = 256
	DefaultCacheSize = 1024
)

// Options configures a Resolutor.
type Options struct {
	MaxDepth  int
	CacheSize int
}

// Resolutor evaluates queries. It is safe to share between goroutines
// as long as the knowledge bases passed to it are not mutated concurrently.
type Resolutor struct {
	maxDepth int
	builtins *program.Functors
	memo     *lru.Cache[string, []term.Term]
	seq      atomic.Uint64
}

// New creates a Resolutor with the built-in functors registered.
func New(opts Options) *Resolutor {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	memo, err := lru.New[string, []term.Term](opts.CacheSize)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	r := &Resolutor{
		maxDepth: opts.MaxDepth,
		builtins: program.NewFunctors(),
		memo:     memo,
	}
	registerBuiltins(r.builtins)
	return r
}

// IsBuiltin reports whether key names a built-in functor.
func (r *Resolutor) IsBuiltin(key string) bool {
	_, ok := r.builtins.Lookup(key)
	return ok
}

// Explain resolves query against kb under theta and returns one
// substitution per answer, restricted to the query's variables and the
// names already bound in theta. No answers is not an error.
func (r *Resolutor) Explain(ctx context.Context, query []term.Term, kb *program.Program, theta term.Theta) ([]term.Theta, error) {
	res, err := r.explain(ctx, query, kb, theta, 0)
	if err != nil {
		return nil, err
	}
	keep := append(theta.Names(), term.VariablesOf(query)...)
	out := make([]term.Theta, len(res))
	for i, th := range res {
		out[i] = th.Restrict(keep)
	}
	return out, nil
}

// Holds reports whether query has at least one answer.
func (r *Resolutor) Holds(ctx context.Context, query []term.Term, kb *program.Program, theta term.Theta) (bool, error) {
	res, err := r.explain(ctx, query, kb, theta, 0)
	return len(res) > 0, err
}

func (r *Resolutor) explain(ctx context.Context, conj []term.Term, kb *program.Program, theta term.Theta, depth int) ([]term.Theta, error) {
	if depth > r.maxDepth {
		return nil, fmt.Errorf("%w: %d", internalerr.ErrDepthExceeded, r.maxDepth)
	}
	frontier := []term.Theta{theta}
	for _, lit := range conj {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []term.Theta
		for _, th := range frontier {
			res, err := r.literal(ctx, lit, kb, th, depth)
			if err != nil {
				return nil, err
			}
			next = append(next, res...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		frontier = next
	}
	return frontier, nil
}

// literal resolves one literal and returns the substitutions extending
// theta, trimmed to the names theta and lit already mention.
func (r *Resolutor) literal(ctx context.Context, lit term.Term, kb *program.Program, theta term.Theta, depth int) ([]term.Theta, error) {
	instances, err := r.expand(ctx, lit.Substitute(theta), kb, theta)
	if err != nil {
		return nil, err
	}
	keep := append(theta.Names(), lit.Variables()...)

	var out []term.Theta
	for _, inst := range instances {
		res, err := r.instance(ctx, inst, kb, theta, depth)
		if err != nil {
			return nil, err
		}
		for _, th := range res {
			out = append(out, th.Restrict(keep))
		}
	}
	return out, nil
}

func (r *Resolutor) instance(ctx context.Context, lit term.Term, kb *program.Program, theta term.Theta, depth int) ([]term.Theta, error) {
	switch l := lit.(type) {
	case term.BoolUnaryOp, term.BoolBinaryOp:
		ok, err := term.Truth(l)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", l, err)
		}
		if !ok {
			return nil, nil
		}
		return []term.Theta{theta}, nil
	case term.Compound:
		return r.compound(ctx, l, kb, theta, depth)
	}
	return nil, fmt.Errorf("%w: %s is not a literal", internalerr.ErrBadOperand, lit)
}

func (r *Resolutor) compound(ctx context.Context, lit term.Compound, kb *program.Program, theta term.Theta, depth int) ([]term.Theta, error) {
	key := lit.Key()
	if f, ok := r.builtins.Lookup(key); ok {
		return r.call(ctx, f, lit, kb, theta, depth)
	}
	if f, ok := kb.Functor(key); ok {
		return r.call(ctx, f, lit, kb, theta, depth)
	}
	if !kb.KnownPredicate(key) {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownFunctor, key)
	}

	var out []term.Theta
	for _, m := range kb.Unifies(lit, theta) {
		out = append(out, m.Theta)
	}
	for _, c := range kb.ClausesFor(key) {
		rc := c.Rename(r.tag())
		th, ok := term.UnifyTerms(lit, rc.Head, theta)
		if !ok {
			continue
		}
		res, err := r.explain(ctx, rc.Body, kb, th, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

func (r *Resolutor) call(ctx context.Context, f program.Functor, lit term.Compound, kb *program.Program, theta term.Theta, depth int) ([]term.Theta, error) {
	res, err := f.Fn(ctx, r.callFor(f, lit, kb, theta, depth))
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", f.Key(), err)
	}
	out := make([]term.Theta, len(res))
	for i, x := range res {
		out[i] = x.Theta
	}
	return out, nil
}

func (r *Resolutor) callFor(f program.Functor, lit term.Compound, kb *program.Program, theta term.Theta, depth int) program.Call {
	return program.Call{
		Args:  lit.Args,
		Theta: theta,
		KB:    kb,
		Explain: func(ctx context.Context, query []term.Term, th term.Theta) ([]term.Theta, error) {
			return r.explain(ctx, query, kb, th, depth+1)
		},
	}
}

// value evaluates a call to a value functor. Pure calls are memoised.
func (r *Resolutor) value(ctx context.Context, f program.Functor, call term.Compound, kb *program.Program, theta term.Theta) ([]term.Term, error) {
	memoKey := ""
	if f.Pure {
		memoKey = call.String()
		if v, ok := r.memo.Get(memoKey); ok {
			return v, nil
		}
	}
	res, err := f.Fn(ctx, r.callFor(f, call, kb, theta, 0))
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", f.Key(), err)
	}
	var out []term.Term
	for _, x := range res {
		if x.Replacement != nil {
			out = append(out, x.Replacement)
		}
	}
	if f.Pure {
		r.memo.Add(memoKey, out)
	}
	return out, nil
}

func (r *Resolutor) tag() string {
	return "_R" + strconv.FormatUint(r.seq.Add(1), 10) + "_"
}
