/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: payload.go
Description: Transaction payloads accepted by the VM: direct entry-function calls and compiled
scripts with typed transaction arguments.
*/

package vm

import (
	"encoding/binary"

	"github.com/holiman/uint256"
)

// Payload is an executable transaction body.
// AppendKey appends a canonical encoding used for value-equality of inputs.
type Payload interface {
	PayloadType() string
	AppendKey(dst []byte) []byte
}

// EntryFunction is a direct call with BCS-encoded arguments
type EntryFunction struct {
	Module   ModuleID
	Function string
	TypeArgs []TypeTag
	Args     [][]byte
}

// PayloadType implements Payload
func (e *EntryFunction) PayloadType() string { return "entry_function" }

// AppendKey implements Payload
func (e *EntryFunction) AppendKey(dst []byte) []byte {
	dst = append(dst, 'E')
	dst = appendModuleID(dst, e.Module)
	dst = appendString(dst, e.Function)
	dst = appendTypeTags(dst, e.TypeArgs)
	dst = binary.AppendUvarint(dst, uint64(len(e.Args)))
	for _, arg := range e.Args {
		dst = appendBytes(dst, arg)
	}
	return dst
}

// Clone deep-copies the entry function
func (e *EntryFunction) Clone() *EntryFunction {
	out := &EntryFunction{
		Module:   e.Module,
		Function: e.Function,
		TypeArgs: append([]TypeTag(nil), e.TypeArgs...),
		Args:     make([][]byte, len(e.Args)),
	}
	for i, arg := range e.Args {
		out.Args[i] = append([]byte(nil), arg...)
	}
	return out
}

// Script is compiled script code plus its flat argument list
type Script struct {
	Code     []byte
	TypeArgs []TypeTag
	Args     []TransactionArgument
}

// PayloadType implements Payload
func (s *Script) PayloadType() string { return "script" }

// AppendKey implements Payload
func (s *Script) AppendKey(dst []byte) []byte {
	dst = append(dst, 'S')
	dst = appendBytes(dst, s.Code)
	dst = appendTypeTags(dst, s.TypeArgs)
	dst = binary.AppendUvarint(dst, uint64(len(s.Args)))
	for _, arg := range s.Args {
		dst = arg.appendKey(dst)
	}
	return dst
}

// Clone deep-copies the script
func (s *Script) Clone() *Script {
	out := &Script{
		Code:     append([]byte(nil), s.Code...),
		TypeArgs: append([]TypeTag(nil), s.TypeArgs...),
		Args:     make([]TransactionArgument, len(s.Args)),
	}
	for i, arg := range s.Args {
		out.Args[i] = arg.Clone()
	}
	return out
}

// ArgKind enumerates transaction argument shapes
type ArgKind uint8

const (
	ArgU8 ArgKind = iota
	ArgU16
	ArgU32
	ArgU64
	ArgU128
	ArgU256
	ArgBool
	ArgAddress
	ArgU8Vector
	ArgSerialized
)

var argKindNames = [...]string{"u8", "u16", "u32", "u64", "u128", "u256", "bool", "address", "vector<u8>", "serialized"}

func (k ArgKind) String() string {
	if int(k) < len(argKindNames) {
		return argKindNames[k]
	}
	return "unknown"
}

// TransactionArgument is one flat script argument
type TransactionArgument struct {
	Kind    ArgKind
	Num     *uint256.Int
	Bool    bool
	Address AccountAddress
	Bytes   []byte
}

// Clone deep-copies the argument
func (a TransactionArgument) Clone() TransactionArgument {
	out := a
	if a.Num != nil {
		out.Num = new(uint256.Int).Set(a.Num)
	}
	if a.Bytes != nil {
		out.Bytes = append([]byte(nil), a.Bytes...)
	}
	return out
}

func (a TransactionArgument) appendKey(dst []byte) []byte {
	dst = append(dst, byte(a.Kind))
	switch a.Kind {
	case ArgBool:
		if a.Bool {
			return append(dst, 1)
		}
		return append(dst, 0)
	case ArgAddress:
		return append(dst, a.Address[:]...)
	case ArgU8Vector, ArgSerialized:
		return appendBytes(dst, a.Bytes)
	}
	var n uint256.Int
	if a.Num != nil {
		n.Set(a.Num)
	}
	b := n.Bytes32()
	return append(dst, b[:]...)
}

func appendString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

func appendBytes(dst []byte, b []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(b)))
	return append(dst, b...)
}

func appendModuleID(dst []byte, id ModuleID) []byte {
	dst = append(dst, id.Address[:]...)
	return appendString(dst, id.Name)
}

func appendTypeTags(dst []byte, tags []TypeTag) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(tags)))
	for _, tag := range tags {
		dst = appendString(dst, tag.String())
	}
	return dst
}
