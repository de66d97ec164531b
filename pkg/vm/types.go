/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Type tags describing parameter, return and argument types of bytecode functions.
*/

package vm

import (
	"fmt"
	"strings"
)

// TypeKind enumerates the shapes a TypeTag can take
type TypeKind uint8

const (
	TypeBool TypeKind = iota
	TypeU8
	TypeU16
	TypeU32
	TypeU64
	TypeU128
	TypeU256
	TypeAddress
	TypeSigner
	TypeVector
	TypeStruct
	TypeReference
	TypeMutableReference
	TypeParameter
)

// TypeTag is a fully described type.
// Elem is set for vectors and references, Struct for struct types, Index for type parameters.
type TypeTag struct {
	Kind   TypeKind   `json:"kind"`
	Elem   *TypeTag   `json:"elem,omitempty"`
	Struct *StructTag `json:"struct,omitempty"`
	Index  uint16     `json:"index,omitempty"`
}

// StructTag names a struct type together with its instantiation
type StructTag struct {
	Module   ModuleID  `json:"module"`
	Name     string    `json:"name"`
	TypeArgs []TypeTag `json:"type_args,omitempty"`
}

// Scalar type tags
var (
	BoolType    = TypeTag{Kind: TypeBool}
	U8Type      = TypeTag{Kind: TypeU8}
	U16Type     = TypeTag{Kind: TypeU16}
	U32Type     = TypeTag{Kind: TypeU32}
	U64Type     = TypeTag{Kind: TypeU64}
	U128Type    = TypeTag{Kind: TypeU128}
	U256Type    = TypeTag{Kind: TypeU256}
	AddressType = TypeTag{Kind: TypeAddress}
	SignerType  = TypeTag{Kind: TypeSigner}
)

// VectorOf builds vector<elem>
func VectorOf(elem TypeTag) TypeTag {
	e := elem
	return TypeTag{Kind: TypeVector, Elem: &e}
}

// ReferenceTo builds &elem or &mut elem
func ReferenceTo(elem TypeTag, mutable bool) TypeTag {
	e := elem
	kind := TypeReference
	if mutable {
		kind = TypeMutableReference
	}
	return TypeTag{Kind: kind, Elem: &e}
}

// StructOf builds a struct type tag
func StructOf(module ModuleID, name string, typeArgs ...TypeTag) TypeTag {
	return TypeTag{Kind: TypeStruct, Struct: &StructTag{Module: module, Name: name, TypeArgs: typeArgs}}
}

// IsUnsigned reports whether the tag is one of u8..u256
func (t TypeTag) IsUnsigned() bool {
	return t.Kind >= TypeU8 && t.Kind <= TypeU256
}

// BitWidth returns the width of bool and unsigned integer types
func (t TypeTag) BitWidth() (uint, bool) {
	switch t.Kind {
	case TypeBool:
		return 1, true
	case TypeU8:
		return 8, true
	case TypeU16:
		return 16, true
	case TypeU32:
		return 32, true
	case TypeU64:
		return 64, true
	case TypeU128:
		return 128, true
	case TypeU256:
		return 256, true
	}
	return 0, false
}

// IsReference reports whether the tag is & or &mut
func (t TypeTag) IsReference() bool {
	return t.Kind == TypeReference || t.Kind == TypeMutableReference
}

// Equal compares two tags structurally
func (t TypeTag) Equal(other TypeTag) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TypeVector, TypeReference, TypeMutableReference:
		if t.Elem == nil || other.Elem == nil {
			return t.Elem == other.Elem
		}
		return t.Elem.Equal(*other.Elem)
	case TypeStruct:
		if t.Struct == nil || other.Struct == nil {
			return t.Struct == other.Struct
		}
		return t.Struct.Equal(*other.Struct)
	case TypeParameter:
		return t.Index == other.Index
	}
	return true
}

// Equal compares two struct tags including type arguments
func (s StructTag) Equal(other StructTag) bool {
	if s.Module != other.Module || s.Name != other.Name || len(s.TypeArgs) != len(other.TypeArgs) {
		return false
	}
	for i := range s.TypeArgs {
		if !s.TypeArgs[i].Equal(other.TypeArgs[i]) {
			return false
		}
	}
	return true
}

func (t TypeTag) String() string {
	switch t.Kind {
	case TypeBool:
		return "bool"
	case TypeU8:
		return "u8"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	case TypeU64:
		return "u64"
	case TypeU128:
		return "u128"
	case TypeU256:
		return "u256"
	case TypeAddress:
		return "address"
	case TypeSigner:
		return "signer"
	case TypeVector:
		return "vector<" + t.elemString() + ">"
	case TypeReference:
		return "&" + t.elemString()
	case TypeMutableReference:
		return "&mut " + t.elemString()
	case TypeStruct:
		if t.Struct == nil {
			return "struct<?>"
		}
		return t.Struct.String()
	case TypeParameter:
		return fmt.Sprintf("T%d", t.Index)
	}
	return fmt.Sprintf("type(%d)", t.Kind)
}

func (t TypeTag) elemString() string {
	if t.Elem == nil {
		return "?"
	}
	return t.Elem.String()
}

func (s StructTag) String() string {
	var b strings.Builder
	b.WriteString(s.Module.String())
	b.WriteString("::")
	b.WriteString(s.Name)
	if len(s.TypeArgs) > 0 {
		args := make([]string, len(s.TypeArgs))
		for i, arg := range s.TypeArgs {
			args[i] = arg.String()
		}
		b.WriteString("<" + strings.Join(args, ", ") + ">")
	}
	return b.String()
}
