package term

import (
	"fmt"
	"math"

	"github.com/cognicore/lps/pkg/lps/internalerr"
)

// Truth values produced by boolean evaluation.
var (
	True  = Atom("true")
	False = Atom("false")
)

// UnaryOp is a prefix arithmetic expression such as -X.
type UnaryOp struct {
	Op string
	X  Term
}

// BinaryOp is an infix arithmetic expression: + - * / ** mod.
type BinaryOp struct {
	Op   string
	L, R Term
}

// BoolUnaryOp is a negated boolean expression.
type BoolUnaryOp struct {
	Op string
	X  Term
}

// BoolBinaryOp is a comparison or a logical connective:
// < <= > >= == != && ||.
type BoolBinaryOp struct {
	Op   string
	L, R Term
}

func (UnaryOp) sealed()      {}
func (BinaryOp) sealed()     {}
func (BoolUnaryOp) sealed()  {}
func (BoolBinaryOp) sealed() {}

func (u UnaryOp) Variables() []string      { return u.X.Variables() }
func (b BinaryOp) Variables() []string     { return collect(b.L, b.R) }
func (u BoolUnaryOp) Variables() []string  { return u.X.Variables() }
func (b BoolBinaryOp) Variables() []string { return collect(b.L, b.R) }

func (u UnaryOp) IsGround() bool      { return u.X.IsGround() }
func (b BinaryOp) IsGround() bool     { return b.L.IsGround() && b.R.IsGround() }
func (u BoolUnaryOp) IsGround() bool  { return u.X.IsGround() }
func (b BoolBinaryOp) IsGround() bool { return b.L.IsGround() && b.R.IsGround() }

func (u UnaryOp) Substitute(theta Theta) Term {
	return UnaryOp{Op: u.Op, X: u.X.Substitute(theta)}
}

func (b BinaryOp) Substitute(theta Theta) Term {
	return BinaryOp{Op: b.Op, L: b.L.Substitute(theta), R: b.R.Substitute(theta)}
}

func (u BoolUnaryOp) Substitute(theta Theta) Term {
	return BoolUnaryOp{Op: u.Op, X: u.X.Substitute(theta)}
}

func (b BoolBinaryOp) Substitute(theta Theta) Term {
	return BoolBinaryOp{Op: b.Op, L: b.L.Substitute(theta), R: b.R.Substitute(theta)}
}

func (u UnaryOp) String() string     { return u.Op + operand(u.X) }
func (u BoolUnaryOp) String() string { return u.Op + operand(u.X) }

func (b BinaryOp) String() string {
	return operand(b.L) + " " + b.Op + " " + operand(b.R)
}

func (b BoolBinaryOp) String() string {
	return operand(b.L) + " " + b.Op + " " + operand(b.R)
}

func operand(t Term) string {
	switch t.(type) {
	case BinaryOp, BoolBinaryOp:
		return "(" + t.String() + ")"
	}
	return t.String()
}

// IsExpression reports whether t is an operator expression.
func IsExpression(t Term) bool {
	switch t.(type) {
	case UnaryOp, BinaryOp, BoolUnaryOp, BoolBinaryOp:
		return true
	}
	return false
}

// IsBoolean reports whether t is a boolean operator expression.
func IsBoolean(t Term) bool {
	switch t.(type) {
	case BoolUnaryOp, BoolBinaryOp:
		return true
	}
	return false
}

// Evaluate reduces t to a value. Constants and compounds evaluate to
// themselves, operator expressions are computed recursively, and a free
// variable anywhere in an operand is an error.
func Evaluate(t Term) (Term, error) {
	switch x := t.(type) {
	case Const, Compound:
		if !x.IsGround() {
			return nil, fmt.Errorf("%w: %s", internalerr.ErrNotGround, x)
		}
		return x, nil
	case List:
		if !x.IsGround() {
			return nil, fmt.Errorf("%w: %s", internalerr.ErrNotGround, x)
		}
		return x, nil
	case Var:
		return nil, fmt.Errorf("%w: %s", internalerr.ErrNotGround, x.Name)
	case UnaryOp:
		return x.Evaluate()
	case BinaryOp:
		return x.Evaluate()
	case BoolUnaryOp:
		return x.Evaluate()
	case BoolBinaryOp:
		return x.Evaluate()
	}
	return nil, fmt.Errorf("%w: %v", internalerr.ErrBadOperand, t)
}

// Truth evaluates t and converts the result to a Go bool.
func Truth(t Term) (bool, error) {
	v, err := Evaluate(t)
	if err != nil {
		return false, err
	}
	if c, ok := v.(Compound); ok && len(c.Args) == 0 {
		switch c.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: %s is not a boolean", internalerr.ErrBadOperand, v)
}

func number(t Term) (Const, error) {
	v, err := Evaluate(t)
	if err != nil {
		return Const{}, err
	}
	c, ok := v.(Const)
	if !ok || !c.IsNumber() {
		return Const{}, fmt.Errorf("%w: %s is not a number", internalerr.ErrBadOperand, v)
	}
	return c, nil
}

func boolean(ok bool) Term {
	if ok {
		return True
	}
	return False
}

// Evaluate computes the unary expression.
func (u UnaryOp) Evaluate() (Term, error) {
	x, err := number(u.X)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "-":
		if i, ok := x.AsInt(); ok {
			return Int(-i), nil
		}
		f, _ := x.AsFloat()
		return Float(-f), nil
	case "+":
		return x, nil
	}
	return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownOperator, u.Op)
}

// Evaluate computes the arithmetic expression. Integer operands give an
// integer result unless the operation needs a fraction.
func (b BinaryOp) Evaluate() (Term, error) {
	l, err := number(b.L)
	if err != nil {
		return nil, err
	}
	r, err := number(b.R)
	if err != nil {
		return nil, err
	}
	li, lInt := l.AsInt()
	ri, rInt := r.AsInt()
	lf, _ := l.AsFloat()
	rf, _ := r.AsFloat()
	both := lInt && rInt

	switch b.Op {
	case "+":
		if both {
			return Int(li + ri), nil
		}
		return Float(lf + rf), nil
	case "-":
		if both {
			return Int(li - ri), nil
		}
		return Float(lf - rf), nil
	case "*":
		if both {
			return Int(li * ri), nil
		}
		return Float(lf * rf), nil
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("%w: division by zero", internalerr.ErrBadOperand)
		}
		if both && li%ri == 0 {
			return Int(li / ri), nil
		}
		return Float(lf / rf), nil
	case "mod":
		if !both {
			return nil, fmt.Errorf("%w: mod needs integers", internalerr.ErrBadOperand)
		}
		if ri == 0 {
			return nil, fmt.Errorf("%w: division by zero", internalerr.ErrBadOperand)
		}
		m := li % ri
		if m != 0 && (m < 0) != (ri < 0) {
			m += ri
		}
		return Int(m), nil
	case "**":
		if both && ri >= 0 {
			out, ok := ipow(li, ri)
			if !ok {
				return nil, fmt.Errorf("%w: %d ** %d overflows", internalerr.ErrBadOperand, li, ri)
			}
			return Int(out), nil
		}
		return Float(math.Pow(lf, rf)), nil
	}
	return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownOperator, b.Op)
}

// ipow raises base to a non-negative exponent by squaring. It reports false
// when the result does not fit in an int64.
func ipow(base, exp int64) (int64, bool) {
	switch base {
	case 0, 1:
		if exp == 0 {
			return 1, true
		}
		return base, true
	case -1:
		if exp%2 == 0 {
			return 1, true
		}
		return -1, true
	}
	out := int64(1)
	for {
		if exp&1 == 1 {
			var ok bool
			if out, ok = mul(out, base); !ok {
				return 0, false
			}
		}
		exp >>= 1
		if exp == 0 {
			return out, true
		}
		var ok bool
		if base, ok = mul(base, base); !ok {
			return 0, false
		}
	}
}

func mul(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || c/b != a {
		return 0, false
	}
	return c, true
}

// Evaluate negates a boolean expression.
func (u BoolUnaryOp) Evaluate() (Term, error) {
	if u.Op != "!" {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownOperator, u.Op)
	}
	v, err := Truth(u.X)
	if err != nil {
		return nil, err
	}
	return boolean(!v), nil
}

// Evaluate computes a comparison or logical connective.
func (b BoolBinaryOp) Evaluate() (Term, error) {
	switch b.Op {
	case "&&", "||":
		l, err := Truth(b.L)
		if err != nil {
			return nil, err
		}
		if b.Op == "&&" && !l {
			return False, nil
		}
		if b.Op == "||" && l {
			return True, nil
		}
		r, err := Truth(b.R)
		if err != nil {
			return nil, err
		}
		return boolean(r), nil
	case "==", "!=":
		l, err := Evaluate(b.L)
		if err != nil {
			return nil, err
		}
		r, err := Evaluate(b.R)
		if err != nil {
			return nil, err
		}
		eq := Equal(l, r)
		if b.Op == "==" {
			return boolean(eq), nil
		}
		return boolean(!eq), nil
	case "<", "<=", ">", ">=":
		cmp, err := compare(b.L, b.R)
		if err != nil {
			return nil, err
		}
		switch b.Op {
		case "<":
			return boolean(cmp < 0), nil
		case "<=":
			return boolean(cmp <= 0), nil
		case ">":
			return boolean(cmp > 0), nil
		default:
			return boolean(cmp >= 0), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", internalerr.ErrUnknownOperator, b.Op)
}

// compare orders two numbers, or two strings lexically.
func compare(a, b Term) (int, error) {
	l, err := Evaluate(a)
	if err != nil {
		return 0, err
	}
	r, err := Evaluate(b)
	if err != nil {
		return 0, err
	}
	lc, lok := l.(Const)
	rc, rok := r.(Const)
	if !lok || !rok {
		return 0, fmt.Errorf("%w: cannot order %s and %s", internalerr.ErrBadOperand, l, r)
	}
	if lc.IsNumber() && rc.IsNumber() {
		lf, _ := lc.AsFloat()
		rf, _ := rc.AsFloat()
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		}
		return 0, nil
	}
	ls, lstr := lc.AsString()
	rs, rstr := rc.AsString()
	if !lstr || !rstr {
		return 0, fmt.Errorf("%w: cannot order %s and %s", internalerr.ErrBadOperand, l, r)
	}
	switch {
	case ls < rs:
		return -1, nil
	case ls > rs:
		return 1, nil
	}
	return 0, nil
}
