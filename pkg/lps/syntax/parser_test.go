package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lps/pkg/lps/internalerr"
	"github.com/cognicore/lps/pkg/lps/term"
)

func TestParseTermShapes(t *testing.T) {
	tests := []struct {
		src  string
		want term.Term
	}{
		{"a", term.Atom("a")},
		{"X", term.V("X")},
		{"42", term.Int(42)},
		{"-3", term.Int(-3)},
		{"2.5", term.Float(2.5)},
		{`"hi there"`, term.Str("hi there")},
		{"'Big Atom'", term.Atom("Big Atom")},
		{"loc(bob, X)", term.C("loc", term.Atom("bob"), term.V("X"))},
		{"[]", term.Empty},
		{"[a, b]", term.List{Head: []term.Term{term.Atom("a"), term.Atom("b")}}},
		{"[H | T]", term.List{Head: []term.Term{term.V("H")}, Tail: term.V("T")}},
		{"toggle/2", term.BinaryOp{Op: "/", L: term.Atom("toggle"), R: term.Int(2)}},
		{"X = 1", term.C("=", term.V("X"), term.Int(1))},
		{"!p(X)", term.C("!", term.C("p", term.V("X")))},
		{"!(X > 1)", term.BoolUnaryOp{Op: "!", X: term.BoolBinaryOp{Op: ">", L: term.V("X"), R: term.Int(1)}}},
		{"-X", term.UnaryOp{Op: "-", X: term.V("X")}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ParseTerm(tt.src)
			require.NoError(t, err)
			assert.True(t, term.Equal(tt.want, got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseTermPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "1 + (2 * 3)"},
		{"(1 + 2) * 3", "(1 + 2) * 3"},
		{"2 ** 3 ** 2", "2 ** (3 ** 2)"},
		{"10 - 4 - 3", "(10 - 4) - 3"},
		{"X mod 3 + 1", "(X mod 3) + 1"},
		{"A < B && C > D || E", "((A < B) && (C > D)) || E"},
		{"T2 = T + 1", "T2 = T + 1"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ParseTerm(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseTermEvaluates(t *testing.T) {
	v, err := term.Evaluate(MustTerm("2 + 3 * 4 - 10 / 5"))
	require.NoError(t, err)
	assert.True(t, term.Equal(term.Int(12), v), "got %s", v)

	ok, err := term.Truth(MustTerm("3 >= 2 && !(1 == 2)"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseTermAnonymousVariables(t *testing.T) {
	got := MustTerm("p(_, _)").(term.Compound)
	assert.Len(t, got.Variables(), 2)
}

func TestParseTermErrors(t *testing.T) {
	for _, src := range []string{
		"p(",
		"[a, b",
		"1 < 2 < 3",
		`"open`,
		"p(a) q",
		"#",
		"/* never closed",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := ParseTerm(src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, internalerr.ErrSyntax), "got %v", err)
		})
	}
}

func TestMustTermPanics(t *testing.T) {
	assert.Panics(t, func() { MustTerm("p(") })
}

func TestParseProgram(t *testing.T) {
	src := `
% declarations
fluent(on). action(toggle/2).
initially(on).
maxTime(5).

/* effects */
terminates(toggle, on).
initiates(toggle, on) <- !on(T).

on(T) -> toggle(T, T2).
<- toggle(T1, T2), toggle(T1, T2), T1 > 10.
`
	kb, err := ParseProgram(src)
	require.NoError(t, err)

	assert.Len(t, kb.Rules(), 1)
	assert.Len(t, kb.Constraints(), 1)
	assert.True(t, kb.HasClauses("initiates/2"))
	assert.Len(t, kb.Rules()[0].Antecedent, 1)
	assert.Equal(t, "toggle(T, T2)", kb.Rules()[0].Consequent[0].String())

	var facts []string
	for _, f := range kb.Facts() {
		facts = append(facts, f.String())
	}
	assert.Contains(t, facts, "fluent(on)")
	assert.Contains(t, facts, "action(toggle / 2)")
	assert.Contains(t, facts, "maxTime(5)")
}

func TestParseProgramMultiHeadClause(t *testing.T) {
	_, err := ParseProgram("a, b <- c.")
	require.Error(t, err)
	assert.ErrorIs(t, err, internalerr.ErrSyntax)
}

func TestParseProgramMissingDot(t *testing.T) {
	_, err := ParseProgram("fluent(on)")
	assert.ErrorIs(t, err, internalerr.ErrSyntax)
}

func TestParseBody(t *testing.T) {
	body, err := ParseBody("loc(X, T), X != home, T2 = T + 1")
	require.NoError(t, err)
	require.Len(t, body, 3)
	assert.IsType(t, term.BoolBinaryOp{}, body[1])
}
