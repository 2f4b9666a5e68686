package term

// Pair is one equation the unifier has to satisfy.
type Pair struct {
	L, R Term
}

// UnifyTerms unifies a with b under theta.
func UnifyTerms(a, b Term, theta Theta) (Theta, bool) {
	return Unify([]Pair{{L: a, R: b}}, theta)
}

// UnifyAll unifies two argument lists position by position.
func UnifyAll(as, bs []Term, theta Theta) (Theta, bool) {
	if len(as) != len(bs) {
		return theta, false
	}
	pairs := make([]Pair, len(as))
	for i := range as {
		pairs[i] = Pair{L: as[i], R: bs[i]}
	}
	return Unify(pairs, theta)
}

// Unify computes the most general unifier of pairs extending theta. The
// returned substitution is always compact: every new binding is pushed
// through the existing ones. A variable is only refused a binding when it
// occurs directly in the term it would be bound to.
func Unify(pairs []Pair, theta Theta) (Theta, bool) {
	work := make([]Pair, len(pairs))
	copy(work, pairs)

	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]

		l := normalize(p.L.Substitute(theta))
		r := normalize(p.R.Substitute(theta))

		lv, lIsVar := l.(Var)
		rv, rIsVar := r.(Var)
		switch {
		case lIsVar && rIsVar:
			if lv.Name != rv.Name {
				theta = bind(theta, lv.Name, rv)
			}
			continue
		case lIsVar:
			if Contains(r, lv.Name) {
				return theta, false
			}
			theta = bind(theta, lv.Name, r)
			continue
		case rIsVar:
			if Contains(l, rv.Name) {
				return theta, false
			}
			theta = bind(theta, rv.Name, l)
			continue
		}

		switch x := l.(type) {
		case Const:
			y, ok := r.(Const)
			if !ok || !x.Equal(y) {
				return theta, false
			}
		case Compound:
			y, ok := r.(Compound)
			if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
				return theta, false
			}
			for i := range x.Args {
				work = append(work, Pair{L: x.Args[i], R: y.Args[i]})
			}
		case List:
			y, ok := r.(List)
			if !ok {
				return theta, false
			}
			xh, xr, xok := x.Uncons()
			yh, yr, yok := y.Uncons()
			if xok != yok {
				return theta, false
			}
			if !xok {
				continue
			}
			work = append(work, Pair{L: xr, R: yr}, Pair{L: xh, R: yh})
		case UnaryOp:
			y, ok := r.(UnaryOp)
			if !ok || x.Op != y.Op {
				return theta, false
			}
			work = append(work, Pair{L: x.X, R: y.X})
		case BinaryOp:
			y, ok := r.(BinaryOp)
			if !ok || x.Op != y.Op {
				return theta, false
			}
			work = append(work, Pair{L: x.R, R: y.R}, Pair{L: x.L, R: y.L})
		case BoolUnaryOp:
			y, ok := r.(BoolUnaryOp)
			if !ok || x.Op != y.Op {
				return theta, false
			}
			work = append(work, Pair{L: x.X, R: y.X})
		case BoolBinaryOp:
			y, ok := r.(BoolBinaryOp)
			if !ok || x.Op != y.Op {
				return theta, false
			}
			work = append(work, Pair{L: x.R, R: y.R}, Pair{L: x.L, R: y.L})
		default:
			return theta, false
		}
	}
	return theta, true
}

// bind adds name = t and rewrites every existing binding that mentions name.
func bind(theta Theta, name string, t Term) Theta {
	single := Theta{}.Bind(name, t)
	out := theta
	for k, v := range theta.All() {
		if Contains(v, name) {
			out = out.Bind(k, v.Substitute(single))
		}
	}
	return out.Bind(name, t)
}

// normalize gives lists their canonical shape so a list with no head
// elements unifies as its tail.
func normalize(t Term) Term {
	if l, ok := t.(List); ok {
		return NewList(l.Head, l.Tail)
	}
	return t
}
