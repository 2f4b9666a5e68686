// Package index implements a persistent discrimination tree over literals.
//
// A literal f(a1, ..., an) is stored along the path
//
//	f -> #n -> key(a1) -> ... -> key(an)
//
// where key(ai) is the value of a constant or atom, a wildcard for a
// variable, or the id of a non-atomic sub-term. Sub-terms get their ids
// from an auxiliary Index of the same kind, so a query with a compound
// argument only visits stored literals whose argument could unify with it.
//
// Nodes are never modified after construction. Every update copies the
// nodes along one path, so Clone is constant time and clones never observe
// each other's updates.
package index

import (
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/benbjohnson/immutable"

	"github.com/cognicore/lps/pkg/lps/term"
)

const wildcard = "?"

type keyComparer struct{}

func (keyComparer) Compare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type node struct {
	count    int
	children *immutable.SortedMap[string, *node]
	leaf     *immutable.SortedMap[string, term.Compound]
}

func (n *node) child(key string) *node {
	if n == nil || n.children == nil {
		return nil
	}
	c, _ := n.children.Get(key)
	return c
}

func (n *node) withChild(key string, c *node) *node {
	cp := *n
	if cp.children == nil {
		cp.children = immutable.NewSortedMap[string, *node](keyComparer{})
	}
	if c == nil {
		cp.children = cp.children.Delete(key)
	} else {
		cp.children = cp.children.Set(key, c)
	}
	return &cp
}

// Match is a stored literal that unifies with a query.
type Match struct {
	Literal term.Compound
	Theta   term.Theta
}

// Index is a discrimination tree. The zero value is an empty index.
type Index struct {
	root *node
	sub  *subterms
}

// New returns an empty index.
func New() *Index { return &Index{} }

// Clone returns an independent copy sharing all nodes with ix.
func (ix *Index) Clone() *Index {
	cp := *ix
	return &cp
}

// Clear removes every literal.
func (ix *Index) Clear() {
	ix.root = nil
	ix.sub = nil
}

// Len returns the number of stored literals.
func (ix *Index) Len() int {
	if ix.root == nil {
		return 0
	}
	return ix.root.count
}

// Add stores lit. It reports false when lit was already present.
func (ix *Index) Add(lit term.Compound) bool {
	if ix.Contains(lit) {
		return false
	}
	path := make([]string, 0, len(lit.Args)+2)
	path = append(path, lit.Name, arityKey(len(lit.Args)))
	for _, a := range lit.Args {
		path = append(path, ix.acquire(a))
	}
	ix.root = insert(ix.root, path, lit)
	return true
}

// Remove deletes lit. It reports false when lit was not present.
func (ix *Index) Remove(lit term.Compound) bool {
	path, ok := ix.path(lit)
	if !ok {
		return false
	}
	root, removed := remove(ix.root, path, leafKey(lit))
	if !removed {
		return false
	}
	ix.root = root
	for _, a := range lit.Args {
		ix.release(a)
	}
	return true
}

// Contains reports whether lit is stored, variables matched by name.
func (ix *Index) Contains(lit term.Compound) bool {
	path, ok := ix.path(lit)
	if !ok {
		return false
	}
	n := ix.root
	for _, k := range path {
		n = n.child(k)
		if n == nil {
			return false
		}
	}
	if n.leaf == nil {
		return false
	}
	_, ok = n.leaf.Get(leafKey(lit))
	return ok
}

// Literals returns every stored literal in traversal order.
func (ix *Index) Literals() []term.Compound {
	var out []term.Compound
	walk(ix.root, func(lit term.Compound) { out = append(out, lit) })
	return out
}

// Unifies returns every stored literal that unifies with query under theta,
// each with the extended substitution, in traversal order.
func (ix *Index) Unifies(query term.Compound, theta term.Theta) []Match {
	if ix.root == nil {
		return nil
	}
	q, _ := query.Substitute(theta).(term.Compound)
	n := ix.root.child(q.Name).child(arityKey(len(q.Args)))
	if n == nil {
		return nil
	}
	keep := append(theta.Names(), query.Variables()...)
	var out []Match
	ix.descend(n, q.Args, func(lit term.Compound) {
		if lit.IsGround() {
			if th, ok := term.UnifyAll(q.Args, lit.Args, theta); ok {
				out = append(out, Match{Literal: lit, Theta: th})
			}
			return
		}
		if th, ok := term.UnifyAll(q.Args, apart(lit).Args, theta); ok {
			out = append(out, Match{Literal: lit, Theta: unapart(th, keep)})
		}
	})
	return out
}

var apartSeq atomic.Uint64

// apart renames the variables of a stored literal to names no query can
// mention, so two matches against the same literal never share bindings.
func apart(lit term.Compound) term.Compound {
	suffix := "~" + strconv.FormatUint(apartSeq.Add(1), 10)
	var th term.Theta
	for _, v := range lit.Variables() {
		th = th.Bind(v, term.V(v+suffix))
	}
	return lit.Substitute(th).(term.Compound)
}

// unapart restricts th to the names in keep and turns bindings of a kept
// variable to a renamed stored variable back into plain variables: the
// first kept variable bound to a fresh name stays free and later ones are
// bound to it.
func unapart(th term.Theta, keep []string) term.Theta {
	th = th.Restrict(keep)
	var rename, out term.Theta
	for _, k := range keep {
		v, ok := th.Lookup(k)
		if !ok {
			continue
		}
		if fresh, ok := v.(term.Var); ok && strings.Contains(fresh.Name, "~") {
			if _, seen := rename.Lookup(fresh.Name); !seen {
				rename = rename.Bind(fresh.Name, term.V(k))
			}
		}
	}
	for k, v := range th.All() {
		v = v.Substitute(rename)
		if w, ok := v.(term.Var); ok && w.Name == k {
			continue
		}
		out = out.Bind(k, v)
	}
	return out
}

func (ix *Index) descend(n *node, args []term.Term, visit func(term.Compound)) {
	if n == nil {
		return
	}
	if len(args) == 0 {
		if n.leaf == nil {
			return
		}
		it := n.leaf.Iterator()
		for !it.Done() {
			_, lit, _ := it.Next()
			visit(lit)
		}
		return
	}
	if n.children == nil {
		return
	}
	key, canon, nested := classify(args[0])
	if key == wildcard {
		it := n.children.Iterator()
		for !it.Done() {
			_, c, _ := it.Next()
			ix.descend(c, args[1:], visit)
		}
		return
	}

	keys := []string{wildcard}
	if nested {
		for _, id := range ix.sub.unifying(canon) {
			keys = append(keys, subtermKey(id))
		}
	} else {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ix.descend(n.child(k), args[1:], visit)
	}
}

// path computes the keys of lit without registering new sub-terms.
func (ix *Index) path(lit term.Compound) ([]string, bool) {
	path := make([]string, 0, len(lit.Args)+2)
	path = append(path, lit.Name, arityKey(len(lit.Args)))
	for _, a := range lit.Args {
		key, canon, nested := classify(a)
		if nested {
			id, ok := ix.sub.lookup(canon)
			if !ok {
				return nil, false
			}
			key = subtermKey(id)
		}
		path = append(path, key)
	}
	return path, true
}

func (ix *Index) acquire(arg term.Term) string {
	key, canon, nested := classify(arg)
	if !nested {
		return key
	}
	var id int
	ix.sub, id = ix.sub.acquire(canon)
	return subtermKey(id)
}

func (ix *Index) release(arg term.Term) {
	if _, canon, nested := classify(arg); nested {
		ix.sub = ix.sub.release(canon)
	}
}

func insert(n *node, path []string, lit term.Compound) *node {
	var cp node
	if n != nil {
		cp = *n
	}
	cp.count++
	if len(path) == 0 {
		if cp.leaf == nil {
			cp.leaf = immutable.NewSortedMap[string, term.Compound](keyComparer{})
		}
		cp.leaf = cp.leaf.Set(leafKey(lit), lit)
		return &cp
	}
	return (&cp).withChild(path[0], insert(n.child(path[0]), path[1:], lit))
}

// remove returns the new subtree, or nil when it became empty.
func remove(n *node, path []string, key string) (*node, bool) {
	if n == nil {
		return n, false
	}
	if len(path) == 0 {
		if n.leaf == nil {
			return n, false
		}
		if _, ok := n.leaf.Get(key); !ok {
			return n, false
		}
		if n.count == 1 {
			return nil, true
		}
		cp := *n
		cp.count--
		cp.leaf = cp.leaf.Delete(key)
		return &cp, true
	}
	c, removed := remove(n.child(path[0]), path[1:], key)
	if !removed {
		return n, false
	}
	if n.count == 1 {
		return nil, true
	}
	cp := n.withChild(path[0], c)
	cp.count--
	return cp, true
}

func walk(n *node, visit func(term.Compound)) {
	if n == nil {
		return
	}
	if n.leaf != nil {
		it := n.leaf.Iterator()
		for !it.Done() {
			_, lit, _ := it.Next()
			visit(lit)
		}
	}
	if n.children != nil {
		it := n.children.Iterator()
		for !it.Done() {
			_, c, _ := it.Next()
			walk(c, visit)
		}
	}
}

// classify returns the path key of an argument. Non-atomic arguments
// report nested with their canonical compound form; their key is the
// sub-term id, which the caller resolves.
func classify(arg term.Term) (key string, canon term.Compound, nested bool) {
	switch a := arg.(type) {
	case term.Var:
		return wildcard, term.Compound{}, false
	case term.Const:
		return "c" + a.Key(), term.Compound{}, false
	case term.Compound:
		if len(a.Args) == 0 {
			return "a:" + a.Name, term.Compound{}, false
		}
		return "", a, true
	}
	c, ok := canonical(arg)
	if !ok {
		return classify(term.NewList(nil, arg.(term.List).Tail))
	}
	if len(c.Args) == 0 {
		return "a:" + c.Name, term.Compound{}, false
	}
	return "", c, true
}

// canonical maps lists and operator expressions onto compounds so the
// auxiliary index can store them. ok is false for a list with no head
// elements and a non-nil tail, which has to be normalised first.
func canonical(t term.Term) (term.Compound, bool) {
	switch x := t.(type) {
	case term.Compound:
		return x, true
	case term.List:
		if x.IsEmpty() {
			return term.Atom("[]"), true
		}
		h, rest, ok := x.Uncons()
		if !ok {
			return term.Compound{}, false
		}
		return term.C("[|]", h, rest), true
	case term.UnaryOp:
		return term.C("op:"+x.Op, x.X), true
	case term.BinaryOp:
		return term.C("op:"+x.Op, x.L, x.R), true
	case term.BoolUnaryOp:
		return term.C("bop:"+x.Op, x.X), true
	case term.BoolBinaryOp:
		return term.C("bop:"+x.Op, x.L, x.R), true
	}
	return term.Compound{}, false
}

func arityKey(n int) string   { return "#" + strconv.Itoa(n) }
func subtermKey(id int) string { return "t:" + strconv.Itoa(id) }

func leafKey(lit term.Compound) string { return lit.String() }
