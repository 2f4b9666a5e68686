package term

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/lps/pkg/lps/internalerr"
)

func TestVariables(t *testing.T) {
	tm := C("f", V("X"), C("g", V("Y"), V("X")), NewList([]Term{V("Z")}, V("T")))
	assert.Equal(t, []string{"X", "Y", "Z", "T"}, tm.Variables())
	assert.False(t, tm.IsGround())
	assert.True(t, C("f", Int(1), Atom("a")).IsGround())
}

func TestSubstituteEmptyIsIdentity(t *testing.T) {
	terms := []Term{
		Int(3),
		V("X"),
		C("f", V("X"), Str("s")),
		NewList([]Term{Int(1), V("Y")}, V("T")),
		BinaryOp{Op: "+", L: V("X"), R: Int(1)},
		BoolBinaryOp{Op: "<", L: V("X"), R: Int(1)},
	}
	for _, tm := range terms {
		assert.True(t, Equal(tm, tm.Substitute(Theta{})), tm.String())
	}
}

func TestSubstituteDoesNotMutate(t *testing.T) {
	orig := C("f", V("X"))
	th := Theta{}.Bind("X", Int(1))
	got := orig.Substitute(th)
	assert.Equal(t, "f(1)", got.String())
	assert.Equal(t, "f(X)", orig.String())
}

func TestFloatNormalisesIntegral(t *testing.T) {
	assert.Equal(t, KindInt, Float(2.0).Kind())
	assert.True(t, Int(2).Equal(Float(2)))
	assert.Equal(t, Int(2).Key(), Float(2.0).Key())
}

func TestListFlatten(t *testing.T) {
	l := NewList([]Term{Int(1)}, NewList([]Term{Int(2), Int(3)}, nil)).(List)
	elems, err := l.Flatten()
	require.NoError(t, err)
	assert.Len(t, elems, 3)
	assert.Equal(t, "[1, 2, 3]", l.String())

	open := NewList([]Term{Int(1)}, V("T")).(List)
	_, err = open.Flatten()
	assert.True(t, errors.Is(err, internalerr.ErrImproperList))
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr Term
		want string
	}{
		{BinaryOp{Op: "+", L: Int(1), R: Int(2)}, "3"},
		{BinaryOp{Op: "/", L: Int(7), R: Int(2)}, "3.5"},
		{BinaryOp{Op: "/", L: Int(8), R: Int(2)}, "4"},
		{BinaryOp{Op: "mod", L: Int(-7), R: Int(3)}, "2"},
		{BinaryOp{Op: "**", L: Int(2), R: Int(10)}, "1024"},
		{UnaryOp{Op: "-", X: Float(1.5)}, "-1.5"},
		{BoolBinaryOp{Op: "<", L: Int(1), R: Int(2)}, "true"},
		{BoolBinaryOp{Op: "==", L: Int(2), R: Float(2)}, "true"},
		{BoolBinaryOp{Op: "&&", L: BoolBinaryOp{Op: ">", L: Int(1), R: Int(2)}, R: V("X")}, "false"},
		{BoolUnaryOp{Op: "!", X: BoolBinaryOp{Op: "!=", L: Atom("a"), R: Atom("b")}}, "false"},
	}
	for _, tt := range tests {
		got, err := Evaluate(tt.expr)
		require.NoError(t, err, tt.expr.String())
		assert.Equal(t, tt.want, got.String(), tt.expr.String())
	}
}

func TestEvaluateErrors(t *testing.T) {
	_, err := Evaluate(BinaryOp{Op: "+", L: V("X"), R: Int(1)})
	assert.True(t, errors.Is(err, internalerr.ErrNotGround))

	_, err = Evaluate(BinaryOp{Op: "^", L: Int(1), R: Int(1)})
	assert.True(t, errors.Is(err, internalerr.ErrUnknownOperator))

	_, err = Evaluate(BinaryOp{Op: "+", L: Str("a"), R: Int(1)})
	assert.True(t, errors.Is(err, internalerr.ErrBadOperand))
}

func TestEvaluateIntegerPower(t *testing.T) {
	tests := []struct {
		base, exp int64
		want      string
	}{
		{3, 0, "1"},
		{0, 0, "1"},
		{-2, 3, "-8"},
		{-1, 1 << 62, "1"},
		{1, 1 << 62, "1"},
		{2, 62, "4611686018427387904"},
		{10, 18, "1000000000000000000"},
	}
	for _, tt := range tests {
		got, err := Evaluate(BinaryOp{Op: "**", L: Int(tt.base), R: Int(tt.exp)})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String())
	}

	for _, exp := range []int64{63, 1 << 40} {
		_, err := Evaluate(BinaryOp{Op: "**", L: Int(2), R: Int(exp)})
		assert.True(t, errors.Is(err, internalerr.ErrBadOperand), "2 ** %d: %v", exp, err)
	}
}

func TestThetaPersistent(t *testing.T) {
	a := Theta{}.Bind("X", Int(1))
	b := a.Bind("Y", Int(2))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"X", "Y"}, b.Names())
	assert.Equal(t, "{X: 1, Y: 2}", b.String())
}

func TestThetaCompactAndRestrict(t *testing.T) {
	th := NewTheta(map[string]Term{
		"X": V("Y"),
		"Y": C("f", V("Z")),
		"Z": Int(1),
	})
	c := th.Compact()
	x, _ := c.Lookup("X")
	assert.Equal(t, "f(1)", x.String())

	r := th.Restrict([]string{"X"})
	assert.Equal(t, 1, r.Len())
	x, _ = r.Lookup("X")
	assert.Equal(t, "f(1)", x.String())
}

func TestThetaCompose(t *testing.T) {
	a := Theta{}.Bind("X", V("Y"))
	b := Theta{}.Bind("Y", Int(5))
	c := a.Compose(b)
	x, ok := c.Lookup("X")
	require.True(t, ok)
	assert.Equal(t, "5", x.String())
}
