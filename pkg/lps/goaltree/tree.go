// Package goaltree tracks how the consequent of a fired rule is being
// achieved over time.
//
// A Tree is a disjunction of Nodes. Each node holds the literals still to
// be proven and the bindings found so far. Evaluation resolves whatever can
// be resolved now, expands composite events into alternatives and leaves
// actions for the engine, which picks them through
// ForEachCandidateActions.
package goaltree

import (
	"crypto/rand"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lps/pkg/lps/term"
)

// Status of a tree after evaluation.
type Status uint8

const (
	Pending Status = iota
	Solved
	Failed
)

func (s Status) String() string {
	switch s {
	case Solved:
		return "solved"
	case Failed:
		return "failed"
	}
	return "pending"
}

// Node is one alternative: a conjunction still to prove under Theta.
type Node struct {
	Body     []term.Term
	Theta    term.Theta
	Children []*Node
	Failed   bool

	// Depth counts the composite-event expansions above this node.
	Depth int
}

// Goal returns the remaining conjunction with Theta applied.
func (n *Node) Goal() []term.Term { return term.SubstituteAll(n.Body, n.Theta) }

// Tree is the goal tree of one fired rule.
type Tree struct {
	ID      string
	Rule    int
	Created int64
	Root    *Node
}

// New creates a tree for body, typically a rule consequent with the
// antecedent's bindings in theta.
func New(id string, rule int, created int64, body []term.Term, theta term.Theta) *Tree {
	return &Tree{
		ID:      id,
		Rule:    rule,
		Created: created,
		Root:    &Node{Body: body, Theta: theta},
	}
}

// Clone deep-copies the node structure. Terms are immutable and shared.
func (t *Tree) Clone() *Tree {
	cp := *t
	cp.Root = cloneNode(t.Root)
	return &cp
}

func cloneNode(root *Node) *Node {
	type job struct {
		src *Node
		dst **Node
	}
	var out *Node
	stack := []job{{src: root, dst: &out}}
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := *j.src
		if len(j.src.Children) > 0 {
			n.Children = make([]*Node, len(j.src.Children))
			for i, c := range j.src.Children {
				stack = append(stack, job{src: c, dst: &n.Children[i]})
			}
		}
		*j.dst = &n
	}
	return out
}

// Leaves returns the live leaves in depth-first order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	stack := []*Node{t.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Failed {
			continue
		}
		if len(n.Children) == 0 {
			out = append(out, n)
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// String renders the leaves' remaining goals, one alternative per line.
func (t *Tree) String() string {
	s := ""
	for i, l := range t.Leaves() {
		if i > 0 {
			s += "\n"
		}
		s += term.JoinString(l.Goal())
	}
	return s
}

// IDs hands out monotonic ULIDs for trees.
type IDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDs returns an id source.
func NewIDs() *IDs {
	return &IDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a fresh id.
func (g *IDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}
