/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: value.go
Description: Concrete runtime values as exposed by the VM on its operand stack. Only the
shape needed by tracers is modelled: integers, booleans, addresses, containers and references.
*/

package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// ValueKind enumerates runtime value shapes
type ValueKind uint8

const (
	ValueBool ValueKind = iota
	ValueU8
	ValueU16
	ValueU32
	ValueU64
	ValueU128
	ValueU256
	ValueAddress
	ValueSigner
	ValueVector
	ValueStruct
	ValueReference
)

// Value is a concrete runtime value.
// Integers keep their payload in Num regardless of width.
type Value struct {
	Kind    ValueKind
	Num     *uint256.Int
	Bool    bool
	Address AccountAddress
	Elems   []Value
	Ref     *Value
}

// BoolValue builds a bool value
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// U8Value builds a u8 value
func U8Value(v uint8) Value { return Value{Kind: ValueU8, Num: uint256.NewInt(uint64(v))} }

// U16Value builds a u16 value
func U16Value(v uint16) Value { return Value{Kind: ValueU16, Num: uint256.NewInt(uint64(v))} }

// U32Value builds a u32 value
func U32Value(v uint32) Value { return Value{Kind: ValueU32, Num: uint256.NewInt(uint64(v))} }

// U64Value builds a u64 value
func U64Value(v uint64) Value { return Value{Kind: ValueU64, Num: uint256.NewInt(v)} }

// U128Value builds a u128 value, truncating to 128 bits
func U128Value(v *uint256.Int) Value {
	n := new(uint256.Int).And(v, widthMask(128))
	return Value{Kind: ValueU128, Num: n}
}

// U256Value builds a u256 value
func U256Value(v *uint256.Int) Value { return Value{Kind: ValueU256, Num: new(uint256.Int).Set(v)} }

// AddressValue builds an address value
func AddressValue(a AccountAddress) Value { return Value{Kind: ValueAddress, Address: a} }

// VectorValue builds a vector from its elements
func VectorValue(elems ...Value) Value { return Value{Kind: ValueVector, Elems: elems} }

// StructValue builds a struct from its fields
func StructValue(fields ...Value) Value { return Value{Kind: ValueStruct, Elems: fields} }

// ReferenceValue builds a reference to target
func ReferenceValue(target Value) Value {
	t := target
	return Value{Kind: ValueReference, Ref: &t}
}

func widthMask(bits uint) *uint256.Int {
	if bits >= 256 {
		return new(uint256.Int).Not(new(uint256.Int))
	}
	one := uint256.NewInt(1)
	m := new(uint256.Int).Lsh(one, bits)
	return m.Sub(m, one)
}

// WidthMask returns 2^bits-1 clamped to 256 bits
func WidthMask(bits uint) *uint256.Int {
	return widthMask(bits)
}

// Primitive follows references until a non-reference value is reached
func (v Value) Primitive() Value {
	cur := v
	for cur.Kind == ValueReference && cur.Ref != nil {
		cur = *cur.Ref
	}
	return cur
}

// IsInteger reports whether the primitive value is bool or an unsigned integer
func (v Value) IsInteger() bool {
	p := v.Primitive()
	return p.Kind <= ValueU256
}

// BitWidth returns the width of bool (1) and unsigned integers
func (v Value) BitWidth() (uint, bool) {
	switch v.Primitive().Kind {
	case ValueBool:
		return 1, true
	case ValueU8:
		return 8, true
	case ValueU16:
		return 16, true
	case ValueU32:
		return 32, true
	case ValueU64:
		return 64, true
	case ValueU128:
		return 128, true
	case ValueU256:
		return 256, true
	}
	return 0, false
}

// Uint256 returns the numeric payload. Booleans map to 0 and 1.
func (v Value) Uint256() (*uint256.Int, bool) {
	p := v.Primitive()
	switch {
	case p.Kind == ValueBool:
		if p.Bool {
			return uint256.NewInt(1), true
		}
		return new(uint256.Int), true
	case p.Kind <= ValueU256:
		if p.Num == nil {
			return new(uint256.Int), true
		}
		return new(uint256.Int).Set(p.Num), true
	}
	return nil, false
}

// Big returns the numeric payload as a big integer
func (v Value) Big() (*big.Int, bool) {
	n, ok := v.Uint256()
	if !ok {
		return nil, false
	}
	return n.ToBig(), true
}

// AsBool returns the boolean payload if the primitive value is a bool
func (v Value) AsBool() (bool, bool) {
	p := v.Primitive()
	if p.Kind != ValueBool {
		return false, false
	}
	return p.Bool, true
}

// Compare orders two values. Integers and bools compare numerically,
// everything else by structural equality (0) or rendered form.
func Compare(a, b Value) int {
	an, aok := a.Uint256()
	bn, bok := b.Uint256()
	if aok && bok {
		return an.Cmp(bn)
	}
	return strings.Compare(a.Primitive().String(), b.Primitive().String())
}

func (v Value) String() string {
	switch v.Kind {
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	case ValueU8, ValueU16, ValueU32, ValueU64, ValueU128, ValueU256:
		n, _ := v.Uint256()
		return fmt.Sprintf("%s%s", n.ToBig().String(), valueSuffix[v.Kind])
	case ValueAddress:
		return "@" + v.Address.HexLiteral()
	case ValueSigner:
		return "signer(" + v.Address.HexLiteral() + ")"
	case ValueVector, ValueStruct:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.String()
		}
		if v.Kind == ValueVector {
			return "[" + strings.Join(parts, ", ") + "]"
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ValueReference:
		if v.Ref == nil {
			return "&<nil>"
		}
		return "&" + v.Ref.String()
	}
	return "<invalid>"
}

var valueSuffix = map[ValueKind]string{
	ValueU8:   "u8",
	ValueU16:  "u16",
	ValueU32:  "u32",
	ValueU64:  "u64",
	ValueU128: "u128",
	ValueU256: "u256",
}
