package goaltree

import (
	"context"
	"testing"

	"github.com/cognicore/lps/pkg/lps/program"
	"github.com/cognicore/lps/pkg/lps/resolve"
	"github.com/cognicore/lps/pkg/lps/term"
)

func testKB() *program.Program {
	kb := program.New()
	kb.Declare(program.KindFluent, term.C("on", term.V("_T")))
	kb.Declare(program.KindFluent, term.C("loc", term.V("_A1"), term.V("_T")))
	kb.Declare(program.KindAction, term.C("toggle", term.V("_S"), term.V("_E")))
	kb.Declare(program.KindAction, term.C("go", term.V("_A1"), term.V("_S"), term.V("_E")))
	kb.Declare(program.KindAction, term.C("ring", term.V("_S"), term.V("_E")))
	kb.Declare(program.KindEvent, term.C("alarm", term.V("_S"), term.V("_E")))
	kb.AddClause(program.Clause{
		Head: term.C("alarm", term.V("S"), term.V("E")),
		Body: []term.Term{term.C("ring", term.V("S"), term.V("E"))},
	})
	kb.AnalyseMacros()
	kb.SetLegal([]term.Compound{
		program.InWindow(term.Atom("toggle"), 0, 1),
		program.InWindow(term.Atom("ring"), 0, 1),
		program.InWindow(term.C("go", term.V("_A1")), 0, 1),
	})
	return kb
}

func env(kb *program.Program, t int64) Env {
	return Env{KB: kb, Resolutor: resolve.New(resolve.Options{}), Time: t}
}

func evaluate(t *testing.T, tree *Tree, e Env) Status {
	t.Helper()
	st, err := tree.Evaluate(context.Background(), e)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return st
}

func candidates(t *testing.T, tree *Tree, e Env) ([][]string, []*Tree) {
	t.Helper()
	var sets [][]string
	var subs []*Tree
	err := tree.ForEachCandidateActions(context.Background(), e, func(actions []term.Compound, sub *Tree) bool {
		var s []string
		for _, a := range actions {
			s = append(s, a.String())
		}
		sets = append(sets, s)
		subs = append(subs, sub)
		return true
	})
	if err != nil {
		t.Fatalf("ForEachCandidateActions: %v", err)
	}
	return sets, subs
}

func TestFluentConditions(t *testing.T) {
	kb := testKB()
	kb.AddState(term.C("on", term.Int(0)))

	if st := evaluate(t, New("a", 0, 0, []term.Term{term.C("on", term.Int(0))}, term.Theta{}), env(kb, 0)); st != Solved {
		t.Fatalf("on(0): got %s, want solved", st)
	}
	if st := evaluate(t, New("b", 0, 0, []term.Term{term.C("loc", term.Atom("x"), term.Int(0))}, term.Theta{}), env(kb, 0)); st != Failed {
		t.Fatalf("loc(x, 0): got %s, want failed", st)
	}
	future := New("c", 0, 0, []term.Term{term.C("on", term.Int(3))}, term.Theta{})
	if st := evaluate(t, future, env(kb, 0)); st != Pending {
		t.Fatalf("on(3): got %s, want pending", st)
	}
}

func TestActionCandidate(t *testing.T) {
	kb := testKB()
	tree := New("a", 0, 0, []term.Term{term.C("toggle", term.Int(0), term.V("E"))}, term.Theta{})
	e := env(kb, 0)
	if st := evaluate(t, tree, e); st != Pending {
		t.Fatalf("got %s, want pending", st)
	}
	sets, subs := candidates(t, tree, e)
	if len(sets) != 1 || sets[0][0] != "toggle(0, 1)" {
		t.Fatalf("candidates = %v", sets)
	}
	if len(subs[0].Root.Body) != 0 {
		t.Fatalf("subtree should be empty, got %s", subs[0])
	}
	if subs[0].ID != "a" {
		t.Fatalf("subtree lost the tree id")
	}
}

func TestPastAction(t *testing.T) {
	kb := testKB()
	body := []term.Term{term.C("toggle", term.Int(0), term.V("E"))}

	if st := evaluate(t, New("a", 0, 0, body, term.Theta{}), env(kb, 1)); st != Failed {
		t.Fatalf("missed action: got %s, want failed", st)
	}

	kb.SetExecuted([]term.Compound{program.InWindow(term.Atom("toggle"), 0, 1)})
	if st := evaluate(t, New("b", 0, 0, body, term.Theta{}), env(kb, 1)); st != Solved {
		t.Fatalf("executed action: got %s, want solved", st)
	}
}

func TestTentativeKeepsLastWindowOpen(t *testing.T) {
	kb := testKB()
	body := []term.Term{term.C("toggle", term.Int(0), term.V("E"))}

	e := env(kb, 1)
	e.Tentative = true
	if st := evaluate(t, New("a", 0, 0, body, term.Theta{}), e); st != Pending {
		t.Fatalf("unexecuted action in last window: got %s, want pending", st)
	}

	e.Time = 2
	if st := evaluate(t, New("b", 0, 0, body, term.Theta{}), e); st != Failed {
		t.Fatalf("older missed action: got %s, want failed", st)
	}
}

func TestMacroExpansion(t *testing.T) {
	kb := testKB()
	tree := New("a", 0, 0, []term.Term{term.C("alarm", term.Int(0), term.V("E"))}, term.Theta{})
	e := env(kb, 0)
	if st := evaluate(t, tree, e); st != Pending {
		t.Fatalf("got %s, want pending", st)
	}
	if len(tree.Root.Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(tree.Root.Children))
	}
	sets, _ := candidates(t, tree, e)
	if len(sets) != 1 || sets[0][0] != "ring(0, 1)" {
		t.Fatalf("candidates = %v", sets)
	}
}

func TestMacroWithoutMatchingClauseFails(t *testing.T) {
	kb := testKB()
	kb.AddClause(program.Clause{
		Head: term.C("wake", term.Atom("bob"), term.V("S"), term.V("E")),
		Body: []term.Term{term.C("ring", term.V("S"), term.V("E"))},
	})
	kb.AnalyseMacros()
	tree := New("a", 0, 0, []term.Term{term.C("wake", term.Atom("ann"), term.Int(0), term.V("E"))}, term.Theta{})
	if st := evaluate(t, tree, env(kb, 0)); st != Failed {
		t.Fatalf("got %s, want failed", st)
	}
}

func TestBranchingOnSeveralAnswers(t *testing.T) {
	kb := testKB()
	kb.AddState(term.C("loc", term.Atom("x"), term.Int(0)))
	kb.AddState(term.C("loc", term.Atom("y"), term.Int(0)))
	tree := New("a", 0, 0, []term.Term{
		term.C("loc", term.V("P"), term.Int(0)),
		term.C("go", term.V("P"), term.Int(0), term.V("E")),
	}, term.Theta{})
	e := env(kb, 0)
	if st := evaluate(t, tree, e); st != Pending {
		t.Fatalf("got %s, want pending", st)
	}
	if len(tree.Root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(tree.Root.Children))
	}
	sets, _ := candidates(t, tree, e)
	if len(sets) != 2 {
		t.Fatalf("candidates = %v", sets)
	}
}

func TestBlockedLiteralWaits(t *testing.T) {
	kb := testKB()
	tree := New("a", 0, 0, []term.Term{
		term.C("toggle", term.V("T1"), term.V("T2")),
		term.C("on", term.V("T2")),
	}, term.Theta{})
	e := env(kb, 0)
	if st := evaluate(t, tree, e); st != Pending {
		t.Fatalf("got %s, want pending", st)
	}
	if len(tree.Root.Body) != 2 {
		t.Fatalf("blocked fluent was resolved: %s", tree)
	}
	_, subs := candidates(t, tree, e)
	if len(subs) != 1 || subs[0].Root.Goal()[0].String() != "on(1)" {
		t.Fatalf("subtree = %v", subs)
	}
}

func TestCandidateIncludeBeforeSkip(t *testing.T) {
	kb := testKB()
	tree := New("a", 0, 0, []term.Term{
		term.C("toggle", term.Int(0), term.V("E1")),
		term.C("ring", term.Int(0), term.V("E2")),
	}, term.Theta{})
	sets, _ := candidates(t, tree, env(kb, 0))
	if len(sets) != 3 {
		t.Fatalf("expected 3 candidate sets, got %v", sets)
	}
	if len(sets[0]) != 2 || len(sets[1]) != 1 || sets[1][0] != "toggle(0, 1)" || sets[2][0] != "ring(0, 1)" {
		t.Fatalf("unexpected order: %v", sets)
	}
}

func TestCloneIsolation(t *testing.T) {
	kb := testKB()
	kb.AddState(term.C("loc", term.Atom("x"), term.Int(0)))
	kb.AddState(term.C("loc", term.Atom("y"), term.Int(0)))
	tree := New("a", 0, 0, []term.Term{
		term.C("loc", term.V("P"), term.Int(0)),
		term.C("go", term.V("P"), term.Int(0), term.V("E")),
	}, term.Theta{})
	cp := tree.Clone()
	evaluate(t, cp, env(kb, 0))
	if len(tree.Root.Children) != 0 || len(tree.Root.Body) != 2 {
		t.Fatalf("original tree changed: %s", tree)
	}
}

func TestEvaluateHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tree := New("a", 0, 0, []term.Term{term.C("on", term.Int(0))}, term.Theta{})
	if _, err := tree.Evaluate(ctx, env(testKB(), 0)); err == nil {
		t.Fatal("expected context error")
	}
}

func TestIDsAreUnique(t *testing.T) {
	ids := NewIDs()
	a, b := ids.Next(), ids.Next()
	if a == b || len(a) != 26 {
		t.Fatalf("ids %q %q", a, b)
	}
}
