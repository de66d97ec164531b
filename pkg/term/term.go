/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: term.go
Description: Immutable integer terms over unbounded integers. Terms are built from constants,
named variables, arithmetic, comparisons, negation and if-then-else, and expose their operator
tree for inspection. No simplification happens on construction, so a term keeps the exact
shape it was built with.
*/

package term

import (
	"encoding/binary"
	"hash/fnv"
	"math/big"
	"strings"
	"sync"

	"github.com/holiman/uint256"
)

// Kind is the operator at the root of a term
type Kind uint8

const (
	KindConst Kind = iota
	KindVar
	KindAdd
	KindSub
	KindMul
	KindDiv
	KindMod
	KindEq
	KindLt
	KindLe
	KindGt
	KindGe
	KindNot
	KindIte
)

var kindSymbols = [...]string{
	KindConst: "const",
	KindVar:   "var",
	KindAdd:   "+",
	KindSub:   "-",
	KindMul:   "*",
	KindDiv:   "div",
	KindMod:   "mod",
	KindEq:    "=",
	KindLt:    "<",
	KindLe:    "<=",
	KindGt:    ">",
	KindGe:    ">=",
	KindNot:   "not",
	KindIte:   "ite",
}

func (k Kind) String() string {
	if int(k) < len(kindSymbols) {
		return kindSymbols[k]
	}
	return "?"
}

// Sort distinguishes integer terms from boolean terms
type Sort uint8

const (
	SortInt Sort = iota
	SortBool
)

// Term is an immutable node of an integer/boolean expression tree
type Term struct {
	kind  Kind
	sort  Sort
	value *big.Int
	name  string
	args  []*Term
	fp    uint64

	strOnce sync.Once
	str     string
}

// Int returns the integer constant v
func Int(v int64) *Term {
	return FromBig(big.NewInt(v))
}

// Uint returns the integer constant v
func Uint(v uint64) *Term {
	return FromBig(new(big.Int).SetUint64(v))
}

// FromBig returns the integer constant v. The value is copied.
func FromBig(v *big.Int) *Term {
	t := &Term{kind: KindConst, sort: SortInt, value: new(big.Int).Set(v)}
	t.fp = fingerprint(t)
	return t
}

// FromUint256 returns the integer constant v
func FromUint256(v *uint256.Int) *Term {
	return FromBig(v.ToBig())
}

// Var returns the integer variable with the given name
func Var(name string) *Term {
	t := &Term{kind: KindVar, sort: SortInt, name: name}
	t.fp = fingerprint(t)
	return t
}

func node(kind Kind, sort Sort, args ...*Term) *Term {
	t := &Term{kind: kind, sort: sort, args: args}
	t.fp = fingerprint(t)
	return t
}

// Add returns t + o
func (t *Term) Add(o *Term) *Term { return node(KindAdd, SortInt, t, o) }

// Sub returns t - o
func (t *Term) Sub(o *Term) *Term { return node(KindSub, SortInt, t, o) }

// Mul returns t * o
func (t *Term) Mul(o *Term) *Term { return node(KindMul, SortInt, t, o) }

// Div returns Euclidean t div o
func (t *Term) Div(o *Term) *Term { return node(KindDiv, SortInt, t, o) }

// Mod returns Euclidean t mod o
func (t *Term) Mod(o *Term) *Term { return node(KindMod, SortInt, t, o) }

// Eq returns the predicate t = o
func (t *Term) Eq(o *Term) *Term { return node(KindEq, SortBool, t, o) }

// Lt returns the predicate t < o
func (t *Term) Lt(o *Term) *Term { return node(KindLt, SortBool, t, o) }

// Le returns the predicate t <= o
func (t *Term) Le(o *Term) *Term { return node(KindLe, SortBool, t, o) }

// Gt returns the predicate t > o
func (t *Term) Gt(o *Term) *Term { return node(KindGt, SortBool, t, o) }

// Ge returns the predicate t >= o
func (t *Term) Ge(o *Term) *Term { return node(KindGe, SortBool, t, o) }

// Not negates a predicate
func (t *Term) Not() *Term { return node(KindNot, SortBool, t) }

// Ite returns "if t then a else b"; t must be a predicate
func (t *Term) Ite(a, b *Term) *Term { return node(KindIte, a.sort, t, a, b) }

// Kind returns the root operator
func (t *Term) Kind() Kind { return t.kind }

// Sort returns whether the term is an integer or a predicate
func (t *Term) Sort() Sort { return t.sort }

// Children returns the operands of the root operator. Leaves have none.
func (t *Term) Children() []*Term { return t.args }

// IsLeaf reports whether the term is a constant or a variable
func (t *Term) IsLeaf() bool { return t.kind == KindConst || t.kind == KindVar }

// IsVar reports whether the term is a free variable
func (t *Term) IsVar() bool { return t.kind == KindVar }

// Name returns the variable name, or "" for non-variables
func (t *Term) Name() string { return t.name }

// Value returns a copy of the constant value, or nil for non-constants
func (t *Term) Value() *big.Int {
	if t.kind != KindConst {
		return nil
	}
	return new(big.Int).Set(t.value)
}

// Fingerprint is a structural hash of the term's canonical form.
// Structurally equal terms have equal fingerprints.
func (t *Term) Fingerprint() uint64 { return t.fp }

func fingerprint(t *Term) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	h.Write([]byte{byte(t.kind), byte(t.sort)})
	switch t.kind {
	case KindConst:
		h.Write([]byte(t.value.String()))
	case KindVar:
		h.Write([]byte(t.name))
	}
	for _, arg := range t.args {
		binary.LittleEndian.PutUint64(buf[:], arg.fp)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// String renders the term in prefix form, e.g. (+ x 1)
func (t *Term) String() string {
	t.strOnce.Do(func() {
		var b strings.Builder
		t.write(&b)
		t.str = b.String()
	})
	return t.str
}

func (t *Term) write(b *strings.Builder) {
	switch t.kind {
	case KindConst:
		if t.value.Sign() < 0 {
			b.WriteString("(- ")
			b.WriteString(new(big.Int).Neg(t.value).String())
			b.WriteString(")")
			return
		}
		b.WriteString(t.value.String())
		return
	case KindVar:
		if strings.ContainsAny(t.name, " ().|") {
			b.WriteString("|" + t.name + "|")
			return
		}
		b.WriteString(t.name)
		return
	}
	b.WriteString("(")
	b.WriteString(t.kind.String())
	for _, arg := range t.args {
		b.WriteString(" ")
		arg.write(b)
	}
	b.WriteString(")")
}
