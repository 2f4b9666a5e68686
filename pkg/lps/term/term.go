// Package term implements the immutable term model shared by every layer of
// the runtime: constants, variables, compounds, lists and operator
// expressions, together with substitutions and unification.
//
// The set of Term implementations is closed. Code that needs to tell terms
// apart uses a type switch over Const, Var, Compound, List, UnaryOp,
// BinaryOp, BoolUnaryOp and BoolBinaryOp.
package term

import (
	"math"
	"strconv"
	"strings"
)

// Term is any logic expression.
type Term interface {
	// Variables returns the free variable names in first-occurrence order,
	// without duplicates.
	Variables() []string

	// IsGround reports whether the term has no free variables.
	IsGround() bool

	// Substitute returns a new term with bound variables replaced.
	// The receiver is never modified.
	Substitute(theta Theta) Term

	String() string

	sealed()
}

// ConstKind tags the payload of a Const.
type ConstKind uint8

const (
	KindInt ConstKind = iota
	KindFloat
	KindString
)

// Const is a literal number or string.
type Const struct {
	kind ConstKind
	i    int64
	f    float64
	s    string
}

// Int returns an integer constant.
func Int(v int64) Const { return Const{kind: KindInt, i: v} }

// Float returns a floating point constant. Integral values are kept as
// integers so that 2.0 and 2 index and print the same way.
func Float(v float64) Const {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1<<53 {
		return Int(int64(v))
	}
	return Const{kind: KindFloat, f: v}
}

// Str returns a string constant.
func Str(v string) Const { return Const{kind: KindString, s: v} }

func (Const) sealed() {}

// Kind returns the payload tag.
func (c Const) Kind() ConstKind { return c.kind }

// IsNumber reports whether the constant is numeric.
func (c Const) IsNumber() bool { return c.kind == KindInt || c.kind == KindFloat }

// AsInt returns the integer payload.
func (c Const) AsInt() (int64, bool) {
	if c.kind == KindInt {
		return c.i, true
	}
	return 0, false
}

// AsFloat returns the numeric payload as a float64.
func (c Const) AsFloat() (float64, bool) {
	switch c.kind {
	case KindInt:
		return float64(c.i), true
	case KindFloat:
		return c.f, true
	}
	return 0, false
}

// AsString returns the string payload.
func (c Const) AsString() (string, bool) {
	if c.kind == KindString {
		return c.s, true
	}
	return "", false
}

// Equal compares two constants. Numbers compare by value across kinds.
func (c Const) Equal(o Const) bool {
	if c.IsNumber() && o.IsNumber() {
		if c.kind == KindInt && o.kind == KindInt {
			return c.i == o.i
		}
		a, _ := c.AsFloat()
		b, _ := o.AsFloat()
		return a == b
	}
	return c.kind == o.kind && c.s == o.s
}

// Key returns a string that is equal for equal constants.
func (c Const) Key() string {
	switch c.kind {
	case KindInt:
		return "n:" + strconv.FormatInt(c.i, 10)
	case KindFloat:
		return "n:" + strconv.FormatFloat(c.f, 'g', -1, 64)
	}
	return "s:" + c.s
}

func (c Const) Variables() []string   { return nil }
func (c Const) IsGround() bool        { return true }
func (c Const) Substitute(Theta) Term { return c }

func (c Const) String() string {
	switch c.kind {
	case KindInt:
		return strconv.FormatInt(c.i, 10)
	case KindFloat:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	}
	return strconv.Quote(c.s)
}

// Var is a logic variable identified by name.
type Var struct {
	Name string
}

// V is shorthand for Var{Name: name}.
func V(name string) Var { return Var{Name: name} }

func (Var) sealed() {}

func (v Var) Variables() []string { return []string{v.Name} }
func (v Var) IsGround() bool      { return false }

func (v Var) Substitute(theta Theta) Term {
	if t, ok := theta.Lookup(v.Name); ok {
		return t
	}
	return v
}

func (v Var) String() string { return v.Name }

// Compound is a functor applied to arguments. Atoms are compounds with no
// arguments.
type Compound struct {
	Name string
	Args []Term
}

// Atom returns the zero-arity compound name.
func Atom(name string) Compound { return Compound{Name: name} }

// C builds a compound.
func C(name string, args ...Term) Compound { return Compound{Name: name, Args: args} }

func (Compound) sealed() {}

// Arity returns the number of arguments.
func (c Compound) Arity() int { return len(c.Args) }

// Key identifies the functor as name/arity.
func (c Compound) Key() string { return FunctorKey(c.Name, len(c.Args)) }

// FunctorKey formats a name/arity pair.
func FunctorKey(name string, arity int) string {
	return name + "/" + strconv.Itoa(arity)
}

func (c Compound) Variables() []string {
	if len(c.Args) == 0 {
		return nil
	}
	return collect(c.Args...)
}

func (c Compound) IsGround() bool {
	for _, a := range c.Args {
		if !a.IsGround() {
			return false
		}
	}
	return true
}

func (c Compound) Substitute(theta Theta) Term {
	if len(c.Args) == 0 || theta.Len() == 0 {
		return c
	}
	return Compound{Name: c.Name, Args: substituteAll(c.Args, theta)}
}

func (c Compound) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	if c.Name == "=" && len(c.Args) == 2 {
		return c.Args[0].String() + " = " + c.Args[1].String()
	}
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('(')
	writeJoined(&b, c.Args)
	b.WriteByte(')')
	return b.String()
}

// WithArgs returns a copy of c with extra trailing arguments.
func (c Compound) WithArgs(extra ...Term) Compound {
	args := make([]Term, 0, len(c.Args)+len(extra))
	args = append(args, c.Args...)
	args = append(args, extra...)
	return Compound{Name: c.Name, Args: args}
}

// Equal reports structural equality, variable names included.
func Equal(a, b Term) bool {
	switch x := a.(type) {
	case Const:
		y, ok := b.(Const)
		return ok && x.Equal(y)
	case Var:
		y, ok := b.(Var)
		return ok && x.Name == y.Name
	case Compound:
		y, ok := b.(Compound)
		return ok && x.Name == y.Name && equalAll(x.Args, y.Args)
	case List:
		y, ok := b.(List)
		if !ok || len(x.Head) != len(y.Head) || !equalAll(x.Head, y.Head) {
			return false
		}
		if x.Tail == nil || y.Tail == nil {
			return x.Tail == nil && y.Tail == nil
		}
		return Equal(x.Tail, y.Tail)
	case UnaryOp:
		y, ok := b.(UnaryOp)
		return ok && x.Op == y.Op && Equal(x.X, y.X)
	case BinaryOp:
		y, ok := b.(BinaryOp)
		return ok && x.Op == y.Op && Equal(x.L, y.L) && Equal(x.R, y.R)
	case BoolUnaryOp:
		y, ok := b.(BoolUnaryOp)
		return ok && x.Op == y.Op && Equal(x.X, y.X)
	case BoolBinaryOp:
		y, ok := b.(BoolBinaryOp)
		return ok && x.Op == y.Op && Equal(x.L, y.L) && Equal(x.R, y.R)
	}
	return false
}

// Contains reports whether name occurs free in t.
func Contains(t Term, name string) bool {
	for _, v := range t.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

func equalAll(a, b []Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func substituteAll(ts []Term, theta Theta) []Term {
	out := make([]Term, len(ts))
	for i, t := range ts {
		out[i] = t.Substitute(theta)
	}
	return out
}

// collect gathers deduplicated variable names over several terms.
func collect(ts ...Term) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, t := range ts {
		if t == nil {
			continue
		}
		for _, v := range t.Variables() {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func writeJoined(b *strings.Builder, ts []Term) {
	for i, t := range ts {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.String())
	}
}

// SubstituteAll applies theta to every term of a conjunction.
func SubstituteAll(ts []Term, theta Theta) []Term {
	if theta.Len() == 0 {
		return ts
	}
	return substituteAll(ts, theta)
}

// VariablesOf returns the deduplicated free variables of a conjunction.
func VariablesOf(ts []Term) []string { return collect(ts...) }

// JoinString renders a conjunction as comma separated literals.
func JoinString(ts []Term) string {
	var b strings.Builder
	writeJoined(&b, ts)
	return b.String()
}
