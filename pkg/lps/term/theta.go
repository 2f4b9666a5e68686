package term

import (
	"iter"
	"strings"

	"github.com/benbjohnson/immutable"
)

type nameComparer struct{}

func (nameComparer) Compare(a, b string) int { return strings.Compare(a, b) }

// Theta is a persistent substitution from variable names to terms. Bind
// returns a new Theta sharing structure with the receiver, so a search
// branch can extend a substitution without copying it. The zero value is
// the empty substitution.
type Theta struct {
	m *immutable.SortedMap[string, Term]
}

// NewTheta builds a substitution from a map.
func NewTheta(bindings map[string]Term) Theta {
	var th Theta
	for k, v := range bindings {
		th = th.Bind(k, v)
	}
	return th
}

// Lookup returns the binding for name.
func (th Theta) Lookup(name string) (Term, bool) {
	if th.m == nil {
		return nil, false
	}
	return th.m.Get(name)
}

// Bind returns a substitution with name bound to t.
func (th Theta) Bind(name string, t Term) Theta {
	m := th.m
	if m == nil {
		m = immutable.NewSortedMap[string, Term](nameComparer{})
	}
	return Theta{m: m.Set(name, t)}
}

// Unbind returns a substitution without a binding for name.
func (th Theta) Unbind(name string) Theta {
	if th.m == nil {
		return th
	}
	return Theta{m: th.m.Delete(name)}
}

// Len returns the number of bindings.
func (th Theta) Len() int {
	if th.m == nil {
		return 0
	}
	return th.m.Len()
}

// All iterates over the bindings in name order.
func (th Theta) All() iter.Seq2[string, Term] {
	return func(yield func(string, Term) bool) {
		if th.m == nil {
			return
		}
		it := th.m.Iterator()
		for !it.Done() {
			k, v, _ := it.Next()
			if !yield(k, v) {
				return
			}
		}
	}
}

// Names returns the bound variable names in sorted order.
func (th Theta) Names() []string {
	out := make([]string, 0, th.Len())
	for k := range th.All() {
		out = append(out, k)
	}
	return out
}

// Compact resolves binding chains so that no bound value mentions another
// bound name. Cyclic chains are left as they are after Len rounds.
func (th Theta) Compact() Theta {
	out := th
	for round := 0; round <= th.Len(); round++ {
		changed := false
		next := out
		for k, v := range out.All() {
			if !mentionsBound(v, out) {
				continue
			}
			nv := v.Substitute(out)
			if Equal(nv, v) {
				continue
			}
			next = next.Bind(k, nv)
			changed = true
		}
		out = next
		if !changed {
			break
		}
	}
	return out
}

func mentionsBound(t Term, th Theta) bool {
	for _, v := range t.Variables() {
		if _, ok := th.Lookup(v); ok {
			return true
		}
	}
	return false
}

// Compose layers other on top of th: bindings in other win, and chains
// through either substitution are resolved.
func (th Theta) Compose(other Theta) Theta {
	if other.Len() == 0 {
		return th.Compact()
	}
	if th.Len() == 0 {
		return other.Compact()
	}
	out := th
	for k, v := range other.All() {
		out = out.Bind(k, v)
	}
	return out.Compact()
}

// Restrict keeps only the bindings for names, resolving chains first so no
// information about the kept names is lost.
func (th Theta) Restrict(names []string) Theta {
	if th.Len() == 0 {
		return th
	}
	full := th.Compact()
	var out Theta
	for _, n := range names {
		if v, ok := full.Lookup(n); ok {
			out = out.Bind(n, v)
		}
	}
	return out
}

// Equal reports whether two substitutions hold the same bindings.
func (th Theta) Equal(o Theta) bool {
	if th.Len() != o.Len() {
		return false
	}
	for k, v := range th.All() {
		w, ok := o.Lookup(k)
		if !ok || !Equal(v, w) {
			return false
		}
	}
	return true
}

func (th Theta) String() string {
	var b strings.Builder
	b.WriteByte('{')
	i := 0
	for k, v := range th.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v.String())
		i++
	}
	b.WriteByte('}')
	return b.String()
}
