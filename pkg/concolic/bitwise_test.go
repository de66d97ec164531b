/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bitwise_test.go
Description: Checks the integer encodings of AND/OR/XOR/NOT against native bit operations.
*/

package concolic

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-move/pkg/term"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

func evalAt(t *testing.T, expr *term.Term, x *big.Int) *big.Int {
	t.Helper()
	got, err := expr.Eval(term.Assignment{"x": x})
	require.NoError(t, err)
	return got
}

func TestBitwiseExhaustiveU8(t *testing.T) {
	x := term.Var("x")
	for m := uint64(0); m < 256; m++ {
		mask := uint256.NewInt(m)
		and, or, xor := BvAnd(x, mask, 8), BvOr(x, mask, 8), BvXor(x, mask, 8)
		for v := uint64(0); v < 256; v++ {
			in := new(big.Int).SetUint64(v)
			require.Equal(t, v&m, evalAt(t, and, in).Uint64(), "and %d %d", v, m)
			require.Equal(t, v|m, evalAt(t, or, in).Uint64(), "or %d %d", v, m)
			require.Equal(t, v^m, evalAt(t, xor, in).Uint64(), "xor %d %d", v, m)
		}
	}
	not := BvNot(x, 8)
	for v := uint64(0); v < 256; v++ {
		require.Equal(t, ^v&0xff, evalAt(t, not, new(big.Int).SetUint64(v)).Uint64())
	}
}

func randomWord(rng *rand.Rand, w uint) *uint256.Int {
	v := &uint256.Int{rng.Uint64(), rng.Uint64(), rng.Uint64(), rng.Uint64()}
	return v.And(v, vm.WidthMask(w))
}

func TestBitwiseSampledWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x := term.Var("x")
	for _, w := range []uint{16, 32, 64, 128, 256} {
		full := vm.WidthMask(w)
		for i := 0; i < 200; i++ {
			xv, mv := randomWord(rng, w), randomWord(rng, w)
			in := xv.ToBig()

			want := new(uint256.Int).And(xv, mv)
			require.Equal(t, want.ToBig().String(), evalAt(t, BvAnd(x, mv, w), in).String(), "and w=%d", w)

			want = new(uint256.Int).Or(xv, mv)
			require.Equal(t, want.ToBig().String(), evalAt(t, BvOr(x, mv, w), in).String(), "or w=%d", w)

			want = new(uint256.Int).Xor(xv, mv)
			require.Equal(t, want.ToBig().String(), evalAt(t, BvXor(x, mv, w), in).String(), "xor w=%d", w)

			want = new(uint256.Int).Not(xv)
			want.And(want, full)
			require.Equal(t, want.ToBig().String(), evalAt(t, BvNot(x, w), in).String(), "not w=%d", w)
		}
	}
}

func TestBvAndZeroMask(t *testing.T) {
	got := BvAnd(term.Var("x"), new(uint256.Int), 64)
	require.Equal(t, term.KindConst, got.Kind())
	require.Equal(t, int64(0), got.Value().Int64())
}

func TestBitRuns(t *testing.T) {
	runs := bitRuns(uint256.NewInt(0b1110_0110), 8)
	require.Equal(t, [][2]uint{{1, 2}, {5, 7}}, runs)

	runs = bitRuns(vm.WidthMask(256), 256)
	require.Equal(t, [][2]uint{{0, 255}}, runs)
}
