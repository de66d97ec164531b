/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bitwise.go
Description: Bitwise operators over integer terms. The term algebra has no bit-vectors, so
AND/OR/XOR against a concrete mask and NOT are expressed with mod, div and multiplication
by powers of two over a fixed width.
*/

package concolic

import (
	"math/big"

	"github.com/holiman/uint256"

	"github.com/kleascm/akaylee-move/pkg/term"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// TwoPow returns the constant 2^n
func TwoPow(n uint) *term.Term {
	return term.FromBig(new(big.Int).Lsh(big.NewInt(1), n))
}

// MaxUnsigned returns the constant 2^w - 1
func MaxUnsigned(w uint) *term.Term {
	v := new(big.Int).Lsh(big.NewInt(1), w)
	return term.FromBig(v.Sub(v, big.NewInt(1)))
}

// bitRuns splits the low w bits of mask into maximal runs of set bits, lowest first
func bitRuns(mask *uint256.Int, w uint) [][2]uint {
	var runs [][2]uint
	start := -1
	for i := uint(0); i < w && i < 256; i++ {
		set := mask[i/64]>>(i%64)&1 == 1
		switch {
		case set && start < 0:
			start = int(i)
		case !set && start >= 0:
			runs = append(runs, [2]uint{uint(start), i - 1})
			start = -1
		}
	}
	if start >= 0 {
		top := w - 1
		if top > 255 {
			top = 255
		}
		runs = append(runs, [2]uint{uint(start), top})
	}
	return runs
}

// BvAnd returns x & mask over width w. Each run [a,b] of set mask bits contributes
// ((x mod 2^(b+1)) div 2^a) mod 2^(b-a+1) * 2^a.
func BvAnd(x *term.Term, mask *uint256.Int, w uint) *term.Term {
	m := new(uint256.Int).And(mask, vm.WidthMask(w))
	runs := bitRuns(m, w)
	if len(runs) == 0 {
		return term.Uint(0)
	}
	x0 := x.Mod(TwoPow(w))
	var sum *term.Term
	for _, run := range runs {
		a, b := run[0], run[1]
		part := x0.Mod(TwoPow(b + 1)).Div(TwoPow(a)).Mod(TwoPow(b - a + 1)).Mul(TwoPow(a))
		if sum == nil {
			sum = part
		} else {
			sum = sum.Add(part)
		}
	}
	return sum
}

// BvNot returns (2^w - 1) - (x mod 2^w)
func BvNot(x *term.Term, w uint) *term.Term {
	return MaxUnsigned(w).Sub(x.Mod(TwoPow(w)))
}

// BvOr returns x | mask over width w, as (x & ~mask) + mask
func BvOr(x *term.Term, mask *uint256.Int, w uint) *term.Term {
	full := vm.WidthMask(w)
	m := new(uint256.Int).And(mask, full)
	inv := new(uint256.Int).Xor(m, full)
	return BvAnd(x, inv, w).Add(term.FromUint256(m))
}

// BvXor returns x ^ mask over width w, as ((x & ~mask) + (~x & mask)) mod 2^w
func BvXor(x *term.Term, mask *uint256.Int, w uint) *term.Term {
	full := vm.WidthMask(w)
	m := new(uint256.Int).And(mask, full)
	inv := new(uint256.Int).Xor(m, full)
	return BvAnd(x, inv, w).Add(BvAnd(BvNot(x, w), m, w)).Mod(TwoPow(w))
}
