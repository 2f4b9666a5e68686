package program

import (
	"errors"
	"testing"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/term"
)

func TestAddFactRenamesVariables(t *testing.T) {
	p := New()
	p.AddFact(term.C("likes", term.V("X"), term.Atom("tea")))

	facts := p.Facts()
	if len(facts) != 1 {
		t.Fatalf("expected 1 fact, got %d", len(facts))
	}
	if got := facts[0].Args[0].String(); got == "X" {
		t.Fatalf("fact variable was not renamed: %s", facts[0])
	}
	ms := p.Unifies(term.C("likes", term.V("X"), term.V("Y")), term.Theta{})
	if len(ms) != 1 {
		t.Fatalf("expected 1 match, got %d", len(ms))
	}
	if !p.KnownPredicate("likes/2") {
		t.Fatal("likes/2 should be known")
	}
}

func TestClausesKeepOrder(t *testing.T) {
	p := New()
	p.AddClause(Clause{Head: term.C("p", term.V("X")), Body: []term.Term{term.C("q", term.V("X"))}})
	p.AddClause(Clause{Head: term.C("r"), Body: []term.Term{term.Atom("s")}})
	p.AddClause(Clause{Head: term.C("p", term.V("Y")), Body: []term.Term{term.C("s", term.V("Y"))}})

	cs := p.ClausesFor("p/1")
	if len(cs) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(cs))
	}
	if cs[0].Body[0].String() != "q(X)" || cs[1].Body[0].String() != "s(Y)" {
		t.Fatalf("unexpected order: %v", cs)
	}
}

func TestCloneIsolation(t *testing.T) {
	p := New()
	p.AddState(term.C("on", term.Int(0)))
	p.AddClause(Clause{Head: term.C("p"), Body: []term.Term{term.Atom("q")}})

	cp := p.Clone()
	cp.AddState(term.C("off", term.Int(0)))
	cp.RemoveState(term.C("on", term.Int(0)))
	cp.AddClause(Clause{Head: term.C("p"), Body: []term.Term{term.Atom("r")}})
	cp.Define(Functor{Name: "f", Arity: 1})

	if len(p.State()) != 1 || p.State()[0].String() != "on(0)" {
		t.Fatalf("original state changed: %v", p.State())
	}
	if len(p.ClausesFor("p/0")) != 1 {
		t.Fatalf("original clauses changed")
	}
	if _, ok := p.Functor("f/1"); ok {
		t.Fatal("functor leaked into original")
	}
	if len(cp.ClausesFor("p/0")) != 2 {
		t.Fatalf("clone should see 2 clauses")
	}
}

func TestCloneKeepsClausesAfterWrite(t *testing.T) {
	p := New()
	p.AddClause(Clause{Head: term.C("go", term.V("S"), term.V("E")), Body: []term.Term{term.C("a", term.V("S"), term.V("E"))}})

	cp := p.Clone()
	tpl, err := Template(term.BinaryOp{Op: "/", L: term.Atom("a"), R: term.Int(2)}, ActionTimeArgs)
	if err != nil {
		t.Fatal(err)
	}
	cp.Declare(KindAction, tpl)

	if len(cp.ClausesFor("go/2")) != 1 {
		t.Fatalf("clone lost its clauses after the first write")
	}
	if len(p.ClausesFor("go/2")) != 1 {
		t.Fatalf("original lost its clauses")
	}
}

func TestTemplate(t *testing.T) {
	tests := []struct {
		decl     term.Term
		timeArgs int
		want     string
	}{
		{term.Atom("on"), FluentTimeArgs, "on(_T)"},
		{term.C("loc", term.V("X")), FluentTimeArgs, "loc(X, _T)"},
		{term.BinaryOp{Op: "/", L: term.Atom("toggle"), R: term.Int(2)}, ActionTimeArgs, "toggle(_S, _E)"},
		{term.BinaryOp{Op: "/", L: term.Atom("move"), R: term.Int(3)}, ActionTimeArgs, "move(_A1, _S, _E)"},
	}
	for _, tt := range tests {
		got, err := Template(tt.decl, tt.timeArgs)
		if err != nil {
			t.Fatalf("Template(%s): %v", tt.decl, err)
		}
		if got.String() != tt.want {
			t.Errorf("Template(%s) = %s, want %s", tt.decl, got, tt.want)
		}
	}

	_, err := Template(term.Int(3), FluentTimeArgs)
	if !errors.Is(err, internalerr.ErrBadDeclaration) {
		t.Fatalf("expected ErrBadDeclaration, got %v", err)
	}
}

func TestDeclareDuplicate(t *testing.T) {
	p := New()
	if !p.Declare(KindFluent, term.C("on", term.V("_T"))) {
		t.Fatal("first declaration rejected")
	}
	if p.Declare(KindAction, term.C("on", term.V("_T"))) {
		t.Fatal("duplicate declaration accepted")
	}
	if p.KindOf("on/1") != KindFluent {
		t.Fatalf("kind = %s", p.KindOf("on/1"))
	}
}

func TestAnalyseMacros(t *testing.T) {
	p := New()
	p.Declare(KindAction, term.C("ring", term.V("_S"), term.V("_E")))
	p.Declare(KindEvent, term.C("alarm", term.V("_S"), term.V("_E")))
	p.AddClause(Clause{
		Head: term.C("alarm", term.V("S"), term.V("E")),
		Body: []term.Term{term.C("ring", term.V("S"), term.V("E"))},
	})
	p.AddClause(Clause{
		Head: term.C("wake", term.V("S"), term.V("E")),
		Body: []term.Term{term.C("alarm", term.V("S"), term.V("E"))},
	})
	p.AddClause(Clause{
		Head: term.C("adult", term.V("X")),
		Body: []term.Term{term.C("age", term.V("X"), term.V("A"))},
	})
	p.AnalyseMacros()

	for key, want := range map[string]bool{"alarm/2": true, "wake/2": true, "adult/1": false} {
		if got := p.IsMacro(key); got != want {
			t.Errorf("IsMacro(%s) = %v, want %v", key, got, want)
		}
	}
}

func TestRestamp(t *testing.T) {
	p := New()
	p.AddState(term.C("on", term.Int(3)))
	p.AddState(term.C("loc", term.Atom("a"), term.Int(3)))
	p.Restamp(4)
	for _, f := range p.State() {
		if f.Args[len(f.Args)-1].String() != "4" {
			t.Fatalf("fluent not restamped: %s", f)
		}
	}
}
