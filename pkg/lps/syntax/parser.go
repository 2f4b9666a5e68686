// Package syntax reads LPS source text into programs and terms.
//
// A program is a sequence of statements, each terminated by a dot:
//
//	fluent(on).                 % facts, comma separated
//	lit(X) <- a(X), b(X).       % clause
//	on(T) -> toggle(T, T2).     % reactive rule
//	<- toggle(T1, T2), p(T1).   % constraint
//
// Time arguments are always written explicitly.
package syntax

import (
	"fmt"
	"strconv"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/term"
)

// ParseProgram reads src into a new program.
func ParseProgram(src string) (*program.Program, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	kb := program.New()
	for !p.at(tokEOF, "") {
		if err := p.statement(kb); err != nil {
			return nil, err
		}
	}
	return kb, nil
}

// ParseTerm reads a single term. A trailing dot is allowed.
func ParseTerm(src string) (term.Term, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	t, err := p.expr(precOr)
	if err != nil {
		return nil, err
	}
	p.accept(".")
	if !p.at(tokEOF, "") {
		return nil, p.errorf("unexpected %s after term", p.tok())
	}
	return t, nil
}

// ParseBody reads a comma separated conjunction of literals.
func ParseBody(src string) ([]term.Term, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	body, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	p.accept(".")
	if !p.at(tokEOF, "") {
		return nil, p.errorf("unexpected %s after body", p.tok())
	}
	return body, nil
}

// MustTerm is ParseTerm for literals known to be valid. It panics on error.
func MustTerm(src string) term.Term {
	t, err := ParseTerm(src)
	if err != nil {
		panic(err)
	}
	return t
}

// Precedence levels, loosest first.
const (
	precOr = iota
	precAnd
	precCompare
	precAdd
	precMul
	precPow
	precUnary
)

var binary = map[string]int{
	"||":  precOr,
	"&&":  precAnd,
	"=":   precCompare,
	"==":  precCompare,
	"!=":  precCompare,
	"<":   precCompare,
	"<=":  precCompare,
	">":   precCompare,
	">=":  precCompare,
	"+":   precAdd,
	"-":   precAdd,
	"*":   precMul,
	"/":   precMul,
	"mod": precMul,
	"**":  precPow,
}

type parser struct {
	toks []token
	pos  int
	anon int
}

func newParser(src string) (*parser, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) tok() token { return p.toks[p.pos] }

func (p *parser) at(kind tokenKind, text string) bool {
	t := p.tok()
	return t.kind == kind && (text == "" || t.text == text)
}

func (p *parser) accept(punct string) bool {
	if p.at(tokPunct, punct) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(punct string) error {
	if !p.accept(punct) {
		return p.errorf("expected %q, found %s", punct, p.tok())
	}
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	t := p.tok()
	return fmt.Errorf("line %d:%d: %s: %w", t.line, t.col, fmt.Sprintf(format, args...), internalerr.ErrSyntax)
}

func (p *parser) statement(kb *program.Program) error {
	if p.accept("<-") {
		body, err := p.conjunction()
		if err != nil {
			return err
		}
		kb.AddConstraint(program.Constraint{Body: body})
		return p.expect(".")
	}

	lits, err := p.conjunction()
	if err != nil {
		return err
	}
	switch {
	case p.accept("->"):
		cons, err := p.conjunction()
		if err != nil {
			return err
		}
		kb.AddRule(program.Rule{Antecedent: lits, Consequent: cons})

	case p.accept("<-"):
		if len(lits) != 1 {
			return p.errorf("clause must have exactly one head literal")
		}
		head, ok := lits[0].(term.Compound)
		if !ok {
			return p.errorf("clause head %s is not a literal", lits[0])
		}
		body, err := p.conjunction()
		if err != nil {
			return err
		}
		kb.AddClause(program.Clause{Head: head, Body: body})

	default:
		for _, l := range lits {
			c, ok := l.(term.Compound)
			if !ok {
				return p.errorf("fact %s is not a literal", l)
			}
			kb.AddClause(program.Clause{Head: c})
		}
	}
	return p.expect(".")
}

func (p *parser) conjunction() ([]term.Term, error) {
	var out []term.Term
	for {
		t, err := p.expr(precOr)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if !p.accept(",") {
			return out, nil
		}
	}
}

// expr parses an expression whose operators bind at least as tightly as
// floor. Comparisons do not chain and ** is right associative.
func (p *parser) expr(floor int) (term.Term, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.tok()
		if t.kind != tokPunct && !(t.kind == tokAtom && t.text == "mod") {
			return left, nil
		}
		prec, ok := binary[t.text]
		if !ok || prec < floor {
			return left, nil
		}
		p.pos++
		next := prec + 1
		if prec == precPow {
			next = prec
		}
		right, err := p.expr(next)
		if err != nil {
			return nil, err
		}
		left = combine(t.text, left, right)
		if prec == precCompare {
			if np, ok := binary[p.tok().text]; ok && np == precCompare && p.tok().kind == tokPunct {
				return nil, p.errorf("comparison operators do not chain")
			}
		}
	}
}

func combine(op string, l, r term.Term) term.Term {
	switch op {
	case "=":
		return term.C("=", l, r)
	case "||", "&&", "==", "!=", "<", "<=", ">", ">=":
		return term.BoolBinaryOp{Op: op, L: l, R: r}
	}
	return term.BinaryOp{Op: op, L: l, R: r}
}

func (p *parser) unary() (term.Term, error) {
	switch {
	case p.accept("!"):
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if term.IsBoolean(x) {
			return term.BoolUnaryOp{Op: "!", X: x}, nil
		}
		return term.C("!", x), nil

	case p.accept("-"):
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if c, ok := x.(term.Const); ok && c.IsNumber() {
			if i, isInt := c.AsInt(); isInt {
				return term.Int(-i), nil
			}
			f, _ := c.AsFloat()
			return term.Float(-f), nil
		}
		return term.UnaryOp{Op: "-", X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (term.Term, error) {
	t := p.tok()
	switch t.kind {
	case tokInt:
		p.pos++
		v, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, p.errorf("integer %s: %v", t.text, err)
		}
		return term.Int(v), nil

	case tokFloat:
		p.pos++
		v, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf("number %s: %v", t.text, err)
		}
		return term.Float(v), nil

	case tokString:
		p.pos++
		return term.Str(t.text), nil

	case tokVar:
		p.pos++
		if t.text == "_" {
			p.anon++
			return term.V("_" + strconv.Itoa(p.anon)), nil
		}
		return term.V(t.text), nil

	case tokAtom, tokQuoted:
		p.pos++
		if !p.accept("(") {
			return term.Atom(t.text), nil
		}
		args, err := p.arguments(")")
		if err != nil {
			return nil, err
		}
		return term.C(t.text, args...), nil

	case tokPunct:
		switch t.text {
		case "(":
			p.pos++
			x, err := p.expr(precOr)
			if err != nil {
				return nil, err
			}
			return x, p.expect(")")
		case "[":
			p.pos++
			return p.list()
		}
	}
	return nil, p.errorf("unexpected %s", t)
}

func (p *parser) arguments(closing string) ([]term.Term, error) {
	var args []term.Term
	for {
		a, err := p.expr(precOr)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if p.accept(",") {
			continue
		}
		return args, p.expect(closing)
	}
}

func (p *parser) list() (term.Term, error) {
	if p.accept("]") {
		return term.Empty, nil
	}
	var head []term.Term
	for {
		x, err := p.expr(precOr)
		if err != nil {
			return nil, err
		}
		head = append(head, x)
		if !p.accept(",") {
			break
		}
	}
	var tail term.Term
	if p.accept("|") {
		var err error
		if tail, err = p.expr(precOr); err != nil {
			return nil, err
		}
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	return term.NewList(head, tail), nil
}
