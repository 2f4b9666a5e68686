package goaltree

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/resolve"
	"github.com/cognicore/lps/pkg/lps/term"
)

// DefaultMaxExpansion bounds nested composite-event expansions.
const DefaultMaxExpansion = 64

var renameSeq atomic.Uint64

// Env is what a tree is evaluated against.
type Env struct {
	KB        *program.Program
	Resolutor *resolve.Resolutor

	// Time is the time point the knowledge base state describes.
	Time int64

	MaxExpansion int

	// Tentative leaves actions of the window ending at Time open when they
	// were not executed, instead of failing them. It is used to ask whether
	// a goal that has not acted yet could still succeed.
	Tentative bool
}

func (e Env) maxExpansion() int {
	if e.MaxExpansion <= 0 {
		return DefaultMaxExpansion
	}
	return e.MaxExpansion
}

type litKind uint8

const (
	litOther litKind = iota
	litCompare
	litFluent
	litAction
	litEvent
	litMacro
)

func (e Env) kindOf(lit term.Term) litKind {
	c, ok := lit.(term.Compound)
	if !ok {
		if term.IsBoolean(lit) {
			return litCompare
		}
		return litOther
	}
	key := c.Key()
	if e.KB.IsMacro(key) {
		return litMacro
	}
	switch e.KB.KindOf(key) {
	case program.KindFluent:
		return litFluent
	case program.KindAction:
		return litAction
	case program.KindEvent:
		return litEvent
	}
	return litOther
}

// Evaluate advances the tree as far as the knowledge base allows at
// env.Time. It stops early and reports Solved when any alternative has
// nothing left to prove. Nodes are visited from an explicit stack and the
// context is checked before each one.
func (t *Tree) Evaluate(ctx context.Context, env Env) (Status, error) {
	if t.Root.Failed {
		return Failed, nil
	}
	var visited []*Node
	stack := []*Node{t.Root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Pending, err
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Failed {
			continue
		}
		visited = append(visited, n)

		if len(n.Children) == 0 {
			solved, err := n.step(ctx, env)
			if err != nil {
				return Pending, err
			}
			if solved {
				return Solved, nil
			}
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}

	// visited is in pre-order, so walking it backwards settles every child
	// before its parent.
	for i := len(visited) - 1; i >= 0; i-- {
		n := visited[i]
		if len(n.Children) == 0 || n.Failed {
			continue
		}
		all := true
		for _, c := range n.Children {
			if !c.Failed {
				all = false
				break
			}
		}
		if all {
			n.Failed = true
			n.Children = nil
		}
	}
	if t.Root.Failed {
		return Failed, nil
	}
	return Pending, nil
}

// step works on a leaf. It resolves literals left to right until nothing
// more can be resolved, branching into children when a literal has several
// answers, and finally expands a composite event if one is available.
func (n *Node) step(ctx context.Context, env Env) (bool, error) {
	for {
		if len(n.Body) == 0 {
			return true, nil
		}
		progressed, err := n.resolveOne(ctx, env)
		if err != nil {
			return false, err
		}
		if n.Failed || len(n.Children) > 0 {
			return false, nil
		}
		if !progressed {
			break
		}
	}
	return false, n.expand(env)
}

// resolveOne resolves the first literal that can be decided now. It
// reports whether the node changed.
func (n *Node) resolveOne(ctx context.Context, env Env) (bool, error) {
	blocked := make(map[string]struct{})
	for i, raw := range n.Body {
		lit := raw.Substitute(n.Theta)
		if sharesVar(lit, blocked) {
			block(lit, blocked)
			continue
		}

		res, decided, err := n.decide(ctx, env, lit)
		if err != nil {
			return false, err
		}
		if !decided {
			block(lit, blocked)
			continue
		}

		switch len(res) {
		case 0:
			if lit.IsGround() || env.kindOf(lit) == litAction || env.kindOf(lit) == litEvent {
				n.Failed = true
				return true, nil
			}
			block(lit, blocked)
			continue
		case 1:
			n.Body = without(n.Body, i)
			n.Theta = res[0]
			return true, nil
		default:
			rest := without(n.Body, i)
			n.Children = make([]*Node, len(res))
			for j, th := range res {
				n.Children[j] = &Node{Body: rest, Theta: th, Depth: n.Depth}
			}
			return true, nil
		}
	}
	return false, nil
}

// decide tries to settle lit now. decided is false when the literal has
// to wait: an action still to be chosen, a future fluent or event, or a
// comparison over unbound variables.
func (n *Node) decide(ctx context.Context, env Env, lit term.Term) (res []term.Theta, decided bool, err error) {
	switch env.kindOf(lit) {
	case litMacro:
		return nil, false, nil

	case litAction:
		c := lit.(term.Compound)
		start, ok := startTime(c)
		if !ok || start >= env.Time {
			return nil, false, nil
		}
		for _, m := range env.KB.ExecutedUnifies(c, n.Theta) {
			res = append(res, m.Theta)
		}
		if len(res) == 0 && env.Tentative && start == env.Time-1 {
			return nil, false, nil
		}
		return res, true, nil

	case litEvent:
		c := lit.(term.Compound)
		for _, m := range env.KB.Unifies(c, n.Theta) {
			res = append(res, m.Theta)
		}
		if len(res) > 0 {
			return res, true, nil
		}
		if start, ok := startTime(c); ok && start < env.Time {
			return nil, true, nil
		}
		return nil, false, nil

	case litCompare:
		if !lit.IsGround() {
			return nil, false, nil
		}

	case litFluent:
		c := lit.(term.Compound)
		if at, ok := timeArg(c, program.FluentTimeArgs); ok && at > env.Time {
			return nil, false, nil
		}
	}

	res, err = env.Resolutor.Explain(ctx, []term.Term{lit}, env.KB, n.Theta)
	if errors.Is(err, internalerr.ErrNotGround) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("resolve %s: %w", lit, err)
	}
	return res, true, nil
}

// expand replaces the first composite event that does not wait on an
// undecided literal by the bodies of its clauses, one child per clause
// whose head unifies. No such clause fails the node.
func (n *Node) expand(env Env) error {
	blocked := make(map[string]struct{})
	for i, raw := range n.Body {
		lit := raw.Substitute(n.Theta)
		if env.kindOf(lit) != litMacro || sharesVar(lit, blocked) {
			block(lit, blocked)
			continue
		}
		if n.Depth >= env.maxExpansion() {
			n.Failed = true
			return nil
		}
		c := lit.(term.Compound)
		var children []*Node
		for _, cl := range env.KB.ClausesFor(c.Key()) {
			rc := cl.Rename("_G" + strconv.FormatUint(renameSeq.Add(1), 10) + "_")
			th, ok := term.UnifyTerms(c, rc.Head, n.Theta)
			if !ok {
				continue
			}
			body := make([]term.Term, 0, len(n.Body)-1+len(rc.Body))
			body = append(body, n.Body[:i]...)
			body = append(body, rc.Body...)
			body = append(body, n.Body[i+1:]...)
			children = append(children, &Node{Body: body, Theta: th, Depth: n.Depth + 1})
		}
		if len(children) == 0 {
			n.Failed = true
			return nil
		}
		n.Children = children
		return nil
	}
	return nil
}

func sharesVar(t term.Term, blocked map[string]struct{}) bool {
	if len(blocked) == 0 {
		return false
	}
	for _, v := range t.Variables() {
		if _, ok := blocked[v]; ok {
			return true
		}
	}
	return false
}

func block(t term.Term, blocked map[string]struct{}) {
	for _, v := range t.Variables() {
		blocked[v] = struct{}{}
	}
}

func without(body []term.Term, i int) []term.Term {
	out := make([]term.Term, 0, len(body)-1)
	out = append(out, body[:i]...)
	return append(out, body[i+1:]...)
}

func startTime(c term.Compound) (int64, bool) {
	return timeArg(c, program.ActionTimeArgs)
}

func timeArg(c term.Compound, fromEnd int) (int64, bool) {
	t, ok := program.TimeArg(c, fromEnd)
	if !ok {
		return 0, false
	}
	return program.IntArg(t)
}
