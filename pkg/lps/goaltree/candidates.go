package goaltree

import (
	"context"

	"github.com/cognicore/lps/pkg/lps/term"
)

// CandidateFunc receives one candidate action set and the tree that remains
// to be proven if it is executed. Returning false stops the enumeration.
type CandidateFunc func(actions []term.Compound, subtree *Tree) bool

// ForEachCandidateActions enumerates, leaf by leaf in depth-first order,
// every way of picking a non-empty set of the leaf's selectable actions
// that unify with legal actions. Within a leaf, actions are taken left to
// right and including an action is tried before skipping it, so the first
// candidate is the most eager one.
func (t *Tree) ForEachCandidateActions(ctx context.Context, env Env, fn CandidateFunc) error {
	for _, leaf := range t.Leaves() {
		if err := ctx.Err(); err != nil {
			return err
		}
		positions := leaf.selectable(env)
		if len(positions) == 0 {
			continue
		}
		stop := false
		var walk func(k int, theta term.Theta, chosen []int) error
		walk = func(k int, theta term.Theta, chosen []int) error {
			if stop {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if k == len(positions) {
				if len(chosen) == 0 {
					return nil
				}
				actions := make([]term.Compound, 0, len(chosen))
				for _, i := range chosen {
					a := leaf.Body[i].Substitute(theta)
					if !a.IsGround() {
						return nil
					}
					actions = append(actions, a.(term.Compound))
				}
				sub := &Tree{
					ID:      t.ID,
					Rule:    t.Rule,
					Created: t.Created,
					Root:    &Node{Body: removeAll(leaf.Body, chosen), Theta: theta, Depth: leaf.Depth},
				}
				if !fn(actions, sub) {
					stop = true
				}
				return nil
			}

			lit := leaf.Body[positions[k]].Substitute(theta).(term.Compound)
			for _, m := range env.KB.LegalUnifies(lit, theta) {
				next := append(append([]int(nil), chosen...), positions[k])
				if err := walk(k+1, m.Theta, next); err != nil {
					return err
				}
				if stop {
					return nil
				}
			}
			return walk(k+1, theta, chosen)
		}
		if err := walk(0, leaf.Theta, nil); err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

// selectable returns the positions of action literals that do not wait on
// an undecided literal before them.
func (n *Node) selectable(env Env) []int {
	var out []int
	blocked := make(map[string]struct{})
	for i, raw := range n.Body {
		lit := raw.Substitute(n.Theta)
		if env.kindOf(lit) == litAction && !sharesVar(lit, blocked) {
			out = append(out, i)
			continue
		}
		block(lit, blocked)
	}
	return out
}

func removeAll(body []term.Term, drop []int) []term.Term {
	skip := make(map[int]struct{}, len(drop))
	for _, i := range drop {
		skip[i] = struct{}{}
	}
	out := make([]term.Term, 0, len(body)-len(drop))
	for i, b := range body {
		if _, ok := skip[i]; !ok {
			out = append(out, b)
		}
	}
	return out
}
