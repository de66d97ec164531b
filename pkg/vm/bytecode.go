/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bytecode.go
Description: Bytecode instruction set as observed by tracers before each instruction executes.
*/

package vm

import "fmt"

// Opcode identifies a bytecode instruction
type Opcode uint8

const (
	OpNop Opcode = iota
	OpPop
	OpRet
	OpBrTrue
	OpBrFalse
	OpBranch
	OpLdU8
	OpLdU16
	OpLdU32
	OpLdU64
	OpLdU128
	OpLdU256
	OpLdConst
	OpLdTrue
	OpLdFalse
	OpCopyLoc
	OpMoveLoc
	OpStLoc
	OpMutBorrowLoc
	OpImmBorrowLoc
	OpMutBorrowField
	OpImmBorrowField
	OpCall
	OpCallGeneric
	OpPack
	OpPackGeneric
	OpUnpack
	OpUnpackGeneric
	OpPackVariant
	OpPackVariantGeneric
	OpUnpackVariant
	OpUnpackVariantGeneric
	OpTestVariant
	OpReadRef
	OpWriteRef
	OpFreezeRef
	OpAdd
	OpSub
	OpMul
	OpMod
	OpDiv
	OpBitOr
	OpBitAnd
	OpXor
	OpOr
	OpAnd
	OpNot
	OpEq
	OpNeq
	OpLt
	OpGt
	OpLe
	OpGe
	OpShl
	OpShr
	OpAbort
	OpCastU8
	OpCastU16
	OpCastU32
	OpCastU64
	OpCastU128
	OpCastU256
	OpExists
	OpMoveFrom
	OpMoveTo
	OpMutBorrowGlobal
	OpImmBorrowGlobal
	OpVecPack
	OpVecLen
	OpVecImmBorrow
	OpVecMutBorrow
	OpVecPushBack
	OpVecPopBack
	OpVecUnpack
	OpVecSwap
)

var opcodeNames = [...]string{
	OpNop: "Nop", OpPop: "Pop", OpRet: "Ret", OpBrTrue: "BrTrue", OpBrFalse: "BrFalse", OpBranch: "Branch",
	OpLdU8: "LdU8", OpLdU16: "LdU16", OpLdU32: "LdU32", OpLdU64: "LdU64", OpLdU128: "LdU128", OpLdU256: "LdU256",
	OpLdConst: "LdConst", OpLdTrue: "LdTrue", OpLdFalse: "LdFalse",
	OpCopyLoc: "CopyLoc", OpMoveLoc: "MoveLoc", OpStLoc: "StLoc", OpMutBorrowLoc: "MutBorrowLoc", OpImmBorrowLoc: "ImmBorrowLoc",
	OpMutBorrowField: "MutBorrowField", OpImmBorrowField: "ImmBorrowField",
	OpCall: "Call", OpCallGeneric: "CallGeneric",
	OpPack: "Pack", OpPackGeneric: "PackGeneric", OpUnpack: "Unpack", OpUnpackGeneric: "UnpackGeneric",
	OpPackVariant: "PackVariant", OpPackVariantGeneric: "PackVariantGeneric",
	OpUnpackVariant: "UnpackVariant", OpUnpackVariantGeneric: "UnpackVariantGeneric", OpTestVariant: "TestVariant",
	OpReadRef: "ReadRef", OpWriteRef: "WriteRef", OpFreezeRef: "FreezeRef",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpMod: "Mod", OpDiv: "Div",
	OpBitOr: "BitOr", OpBitAnd: "BitAnd", OpXor: "Xor", OpOr: "Or", OpAnd: "And", OpNot: "Not",
	OpEq: "Eq", OpNeq: "Neq", OpLt: "Lt", OpGt: "Gt", OpLe: "Le", OpGe: "Ge",
	OpShl: "Shl", OpShr: "Shr", OpAbort: "Abort",
	OpCastU8: "CastU8", OpCastU16: "CastU16", OpCastU32: "CastU32", OpCastU64: "CastU64", OpCastU128: "CastU128", OpCastU256: "CastU256",
	OpExists: "Exists", OpMoveFrom: "MoveFrom", OpMoveTo: "MoveTo", OpMutBorrowGlobal: "MutBorrowGlobal", OpImmBorrowGlobal: "ImmBorrowGlobal",
	OpVecPack: "VecPack", OpVecLen: "VecLen", OpVecImmBorrow: "VecImmBorrow", OpVecMutBorrow: "VecMutBorrow",
	OpVecPushBack: "VecPushBack", OpVecPopBack: "VecPopBack", OpVecUnpack: "VecUnpack", OpVecSwap: "VecSwap",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) && opcodeNames[o] != "" {
		return opcodeNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Instruction is one decoded bytecode instruction.
// Index carries a local, constant, branch or handle index; Count carries vector element counts.
type Instruction struct {
	Op    Opcode
	Index uint16
	Count uint64
}

func (i Instruction) String() string {
	switch i.Op {
	case OpCopyLoc, OpMoveLoc, OpStLoc, OpMutBorrowLoc, OpImmBorrowLoc, OpBrTrue, OpBrFalse, OpBranch, OpLdConst:
		return fmt.Sprintf("%s(%d)", i.Op, i.Index)
	case OpVecPack, OpVecUnpack:
		return fmt.Sprintf("%s(%d, %d)", i.Op, i.Index, i.Count)
	}
	return i.Op.String()
}

// CastTarget returns the target width of a cast instruction
func (o Opcode) CastTarget() (uint, bool) {
	switch o {
	case OpCastU8:
		return 8, true
	case OpCastU16:
		return 16, true
	case OpCastU32:
		return 32, true
	case OpCastU64:
		return 64, true
	case OpCastU128:
		return 128, true
	case OpCastU256:
		return 256, true
	}
	return 0, false
}
