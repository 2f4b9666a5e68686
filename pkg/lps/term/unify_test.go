package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnifyWithVariables(t *testing.T) {
	th, ok := UnifyTerms(C("f", V("X"), Int(2)), C("f", Int(1), V("Y")), Theta{})
	require.True(t, ok)
	assert.True(t, th.Equal(NewTheta(map[string]Term{"X": Int(1), "Y": Int(2)})), th.String())
}

func TestUnifyGround(t *testing.T) {
	tests := []struct {
		a, b Term
		ok   bool
	}{
		{C("f", Int(1), Int(2)), C("f", Int(1), Int(2)), true},
		{C("f", Int(1), Int(2)), C("f", Int(1), Int(3)), false},
		{C("f", Int(1)), C("g", Int(1)), false},
		{C("f", Int(1)), C("f", Int(1), Int(2)), false},
		{Atom("a"), Str("a"), false},
		{Int(2), Float(2), true},
		{NewList([]Term{Int(1), Int(2)}, nil), NewList([]Term{Int(1), Int(2)}, nil), true},
		{NewList([]Term{Int(1)}, nil), NewList([]Term{Int(1), Int(2)}, nil), false},
		{Empty, Empty, true},
	}
	for _, tt := range tests {
		th, ok := UnifyTerms(tt.a, tt.b, Theta{})
		assert.Equal(t, tt.ok, ok, "%s = %s", tt.a, tt.b)
		if ok {
			assert.Equal(t, tt.a.Substitute(th).String(), tt.b.Substitute(th).String())
		}
	}
}

func TestUnifyPropagatesBindings(t *testing.T) {
	th, ok := Unify([]Pair{
		{L: V("X"), R: C("g", V("Y"))},
		{L: V("Y"), R: Int(3)},
	}, Theta{})
	require.True(t, ok)
	x, _ := th.Lookup("X")
	assert.Equal(t, "g(3)", x.String())
}

func TestUnifyVariableChain(t *testing.T) {
	th, ok := Unify([]Pair{
		{L: V("X"), R: V("Y")},
		{L: V("Y"), R: V("Z")},
		{L: V("Z"), R: Atom("a")},
	}, Theta{})
	require.True(t, ok)
	for _, n := range []string{"X", "Y", "Z"} {
		assert.Equal(t, "a", V(n).Substitute(th).String(), n)
	}
}

func TestUnifyRejectsDirectSelfReference(t *testing.T) {
	_, ok := UnifyTerms(V("X"), C("f", V("X")), Theta{})
	assert.False(t, ok)
}

func TestUnifyConflictingBinding(t *testing.T) {
	th := Theta{}.Bind("X", Int(1))
	_, ok := UnifyTerms(V("X"), Int(2), th)
	assert.False(t, ok)
	_, ok = UnifyTerms(V("X"), Int(1), th)
	assert.True(t, ok)
}

func TestUnifyListTail(t *testing.T) {
	th, ok := UnifyTerms(
		NewList([]Term{V("H")}, V("T")),
		NewList([]Term{Int(1), Int(2), Int(3)}, nil),
		Theta{},
	)
	require.True(t, ok)
	assert.Equal(t, "1", V("H").Substitute(th).String())
	assert.Equal(t, "[2, 3]", V("T").Substitute(th).String())
}

func TestUnifyOperators(t *testing.T) {
	th, ok := UnifyTerms(
		BinaryOp{Op: "+", L: V("A"), R: Int(1)},
		BinaryOp{Op: "+", L: Int(4), R: V("B")},
		Theta{},
	)
	require.True(t, ok)
	assert.Equal(t, "4", V("A").Substitute(th).String())
	assert.Equal(t, "1", V("B").Substitute(th).String())

	_, ok = UnifyTerms(BinaryOp{Op: "+", L: Int(1), R: Int(1)}, BinaryOp{Op: "-", L: Int(1), R: Int(1)}, Theta{})
	assert.False(t, ok)
}
