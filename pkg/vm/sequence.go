/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sequence.go
Description: Logical multi-call script sequences and the compiler boundary that turns them into
executable script code.
*/

package vm

import (
	"encoding/binary"
	"fmt"
)

// ArgumentKind enumerates sequence argument shapes
type ArgumentKind uint8

const (
	ArgumentRaw ArgumentKind = iota
	ArgumentSigner
	ArgumentPreviousResult
)

// SequenceArgument feeds one parameter of a sequence call.
// PreviousResult is the only way calls share data.
type SequenceArgument struct {
	Kind      ArgumentKind
	Bytes     []byte
	Type      TypeTag
	Signer    uint16
	CallIdx   uint16
	ReturnIdx uint16
}

// RawArgument passes BCS bytes of the given type
func RawArgument(bytes []byte, ty TypeTag) SequenceArgument {
	return SequenceArgument{Kind: ArgumentRaw, Bytes: bytes, Type: ty}
}

// SignerArgument passes the signer in the given slot
func SignerArgument(slot uint16) SequenceArgument {
	return SequenceArgument{Kind: ArgumentSigner, Signer: slot}
}

// PreviousResult passes return value returnIdx of call callIdx
func PreviousResult(callIdx, returnIdx uint16) SequenceArgument {
	return SequenceArgument{Kind: ArgumentPreviousResult, CallIdx: callIdx, ReturnIdx: returnIdx}
}

func (a SequenceArgument) String() string {
	switch a.Kind {
	case ArgumentRaw:
		return fmt.Sprintf("Raw(%s, %x)", a.Type, a.Bytes)
	case ArgumentSigner:
		return fmt.Sprintf("Signer(%d)", a.Signer)
	case ArgumentPreviousResult:
		return fmt.Sprintf("PreviousResult(%d, %d)", a.CallIdx, a.ReturnIdx)
	}
	return "Argument(?)"
}

// SequenceCall is one call inside a script sequence
type SequenceCall struct {
	Module   ModuleID
	Function string
	TypeArgs []TypeTag
	Args     []SequenceArgument
}

// ScriptSequence is the logical form of a compiled script
type ScriptSequence struct {
	Calls []SequenceCall
}

// Len returns the number of calls
func (s *ScriptSequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Calls)
}

// Push appends a call
func (s *ScriptSequence) Push(call SequenceCall) {
	s.Calls = append(s.Calls, call)
}

// Clone deep-copies the sequence
func (s *ScriptSequence) Clone() *ScriptSequence {
	if s == nil {
		return &ScriptSequence{}
	}
	out := &ScriptSequence{Calls: make([]SequenceCall, len(s.Calls))}
	for i, call := range s.Calls {
		c := SequenceCall{
			Module:   call.Module,
			Function: call.Function,
			TypeArgs: append([]TypeTag(nil), call.TypeArgs...),
			Args:     make([]SequenceArgument, len(call.Args)),
		}
		for j, arg := range call.Args {
			arg.Bytes = append([]byte(nil), arg.Bytes...)
			c.Args[j] = arg
		}
		out.Calls[i] = c
	}
	return out
}

// AppendKey appends a canonical encoding of the sequence
func (s *ScriptSequence) AppendKey(dst []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(s.Len()))
	if s == nil {
		return dst
	}
	for _, call := range s.Calls {
		dst = appendModuleID(dst, call.Module)
		dst = appendString(dst, call.Function)
		dst = appendTypeTags(dst, call.TypeArgs)
		dst = binary.AppendUvarint(dst, uint64(len(call.Args)))
		for _, arg := range call.Args {
			dst = append(dst, byte(arg.Kind))
			switch arg.Kind {
			case ArgumentRaw:
				dst = appendBytes(dst, arg.Bytes)
				dst = appendString(dst, arg.Type.String())
			case ArgumentSigner:
				dst = binary.AppendUvarint(dst, uint64(arg.Signer))
			case ArgumentPreviousResult:
				dst = binary.AppendUvarint(dst, uint64(arg.CallIdx))
				dst = binary.AppendUvarint(dst, uint64(arg.ReturnIdx))
			}
		}
	}
	return dst
}

// SequenceCompiler turns a sequence into script code against the deployed modules.
// A non-nil error means the sequence is not compilable.
type SequenceCompiler interface {
	Compile(seq *ScriptSequence, modules []DeployedModule) ([]byte, error)
}
