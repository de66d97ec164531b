/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: state_test.go
Description: Shadow interpretation scenarios: precision loss, bool judgement, infinite loop
detection, frame handling and desync recovery.
*/

package concolic

import (
	"math/big"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-move/pkg/term"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

func testFrame(name string, params ...vm.TypeTag) *vm.FrameInfo {
	return &vm.FrameInfo{
		Function:   vm.FunctionRef{Module: vm.ModuleID{Address: vm.AddressOne, Name: "m"}, Name: name},
		ParamTypes: params,
	}
}

func quietState() *State {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewState(logger)
}

func step(st *State, frame *vm.FrameInfo, pc uint16, ins vm.Instruction, stack ...vm.Value) *term.Term {
	return st.Step(&vm.InstructionContext{Frame: frame, PC: pc, Instruction: ins, OperandStack: stack})
}

func op(o vm.Opcode) vm.Instruction { return vm.Instruction{Op: o} }

func loc(o vm.Opcode, idx uint16) vm.Instruction { return vm.Instruction{Op: o, Index: idx} }

func TestOuterFrameBindsScalarParams(t *testing.T) {
	st := quietState()
	frame := testFrame("f", vm.U64Type, vm.AddressType, vm.BoolType)
	st.OpenFrame(frame)

	require.Len(t, st.Args(), 1)
	args := st.Args()[0]
	require.Len(t, args, 2)
	assert.Equal(t, "0.0", args[0].Name())
	assert.Equal(t, "0.2", args[2].Name())

	step(st, frame, 0, loc(vm.OpCopyLoc, 1))
	assert.False(t, st.Top().IsKnown())
	step(st, frame, 1, op(vm.OpPop), vm.AddressValue(vm.AddressZero))
	st.CloseFrame()

	st.OpenFrame(frame)
	require.Len(t, st.Args(), 2)
	assert.Equal(t, "1.0", st.Args()[1][0].Name())
}

func TestPrecisionLossOnMulOfQuotient(t *testing.T) {
	st := quietState()
	frame := testFrame("ratio", vm.U64Type, vm.U64Type, vm.U64Type)
	a, b, c := vm.U64Value(10), vm.U64Value(3), vm.U64Value(7)

	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	step(st, frame, 1, loc(vm.OpCopyLoc, 1), a)
	step(st, frame, 2, op(vm.OpDiv), a, b)
	step(st, frame, 3, loc(vm.OpCopyLoc, 2), vm.U64Value(3))
	step(st, frame, 4, op(vm.OpMul), vm.U64Value(3), c)
	step(st, frame, 5, op(vm.OpRet), vm.U64Value(21))
	st.CloseFrame()

	issues := st.TakeIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, PrecisionLoss, issues[0].Kind)
	assert.Equal(t, "0x1::m", issues[0].Module)
	assert.Equal(t, "ratio", issues[0].Function)
	assert.Equal(t, uint16(4), issues[0].PC)
	assert.Equal(t, "Precision loss detected at 0x1::m::ratio (pc 4)", issues[0].Message)
	assert.Empty(t, st.TakeIssues())
}

func TestArithmeticLiftsConcreteSide(t *testing.T) {
	st := quietState()
	frame := testFrame("inc", vm.U64Type)
	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	step(st, frame, 1, op(vm.OpLdU64), vm.U64Value(5))
	step(st, frame, 2, op(vm.OpAdd), vm.U64Value(5), vm.U64Value(1))
	assert.Equal(t, "(+ |0.0| 1)", st.Top().Term.String())

	step(st, frame, 3, op(vm.OpLdU64), vm.U64Value(6))
	step(st, frame, 4, op(vm.OpLdU64), vm.U64Value(6), vm.U64Value(2))
	step(st, frame, 5, op(vm.OpSub), vm.U64Value(6), vm.U64Value(2), vm.U64Value(2))
	assert.False(t, st.Top().IsKnown())
	assert.Equal(t, 2, st.StackDepth())
}

func TestBoolJudgementOnGroundOperands(t *testing.T) {
	st := quietState()
	frame := testFrame("check")
	st.OpenFrame(frame)
	step(st, frame, 0, op(vm.OpLdTrue))
	step(st, frame, 1, op(vm.OpLdFalse), vm.BoolValue(true))
	step(st, frame, 2, op(vm.OpEq), vm.BoolValue(true), vm.BoolValue(false))

	issues := st.TakeIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, BoolJudgement, issues[0].Kind)
	assert.Equal(t, uint16(2), issues[0].PC)
	assert.Equal(t, "Unnecessary bool judgement at 0x1::m::check (pc 2)", issues[0].Message)
}

func TestBoolJudgementAgainstLiteralBool(t *testing.T) {
	st := quietState()
	frame := testFrame("flag", vm.BoolType)
	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	step(st, frame, 1, op(vm.OpLdTrue), vm.BoolValue(false))
	step(st, frame, 2, op(vm.OpEq), vm.BoolValue(false), vm.BoolValue(true))
	issues := st.TakeIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, BoolJudgement, issues[0].Kind)
}

func TestNoBoolJudgementOnSymbolicComparison(t *testing.T) {
	st := quietState()
	frame := testFrame("cmp", vm.U64Type)
	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	step(st, frame, 1, op(vm.OpLdU64), vm.U64Value(3))
	step(st, frame, 2, op(vm.OpLt), vm.U64Value(3), vm.U64Value(10))
	assert.Empty(t, st.TakeIssues())
}

func TestComparisonFollowsConcreteOutcome(t *testing.T) {
	st := quietState()
	frame := testFrame("cmp", vm.U64Type)
	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	step(st, frame, 1, op(vm.OpLdU64), vm.U64Value(30))
	c := step(st, frame, 2, op(vm.OpLt), vm.U64Value(30), vm.U64Value(10))
	require.NotNil(t, c)
	assert.Equal(t, "(not (< |0.0| 10))", c.String())

	holds, err := c.Holds(term.Assignment{"0.0": big.NewInt(30)})
	require.NoError(t, err)
	assert.True(t, holds)

	result, err := st.Top().Term.Eval(term.Assignment{"0.0": big.NewInt(30)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Int64())
}

func runLoopCheck(st *State, frame *vm.FrameInfo, cmp vm.Opcode) {
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	step(st, frame, 1, op(vm.OpLdU64), vm.U64Value(3))
	step(st, frame, 2, op(cmp), vm.U64Value(3), vm.U64Value(10))
	step(st, frame, 3, loc(vm.OpBrTrue, 0), vm.BoolValue(true))
}

func TestInfiniteLoopAfterThreshold(t *testing.T) {
	st := quietState()
	frame := testFrame("spin", vm.U64Type)
	st.OpenFrame(frame)

	for i := 0; i < InfiniteLoopThreshold-1; i++ {
		runLoopCheck(st, frame, vm.OpLt)
	}
	assert.Empty(t, st.TakeIssues())

	runLoopCheck(st, frame, vm.OpLt)
	issues := st.TakeIssues()
	require.Len(t, issues, 1)
	assert.Equal(t, InfiniteLoop, issues[0].Kind)
	assert.Equal(t, uint16(3), issues[0].PC)
	assert.Equal(t, "Potential infinite loop at 0x1::m::spin (pc 3)", issues[0].Message)

	runLoopCheck(st, frame, vm.OpLt)
	assert.Empty(t, st.TakeIssues())
}

func TestInfiniteLoopCounterResetsOnNewCondition(t *testing.T) {
	st := quietState()
	frame := testFrame("spin", vm.U64Type)
	st.OpenFrame(frame)

	for i := 0; i < 500; i++ {
		runLoopCheck(st, frame, vm.OpLt)
	}
	runLoopCheck(st, frame, vm.OpLe)
	for i := 0; i < InfiniteLoopThreshold-1; i++ {
		runLoopCheck(st, frame, vm.OpLt)
	}
	assert.Empty(t, st.TakeIssues())
}

func TestOpenFrameClearsBranchCounters(t *testing.T) {
	st := quietState()
	frame := testFrame("spin", vm.U64Type)
	st.OpenFrame(frame)
	for i := 0; i < InfiniteLoopThreshold-1; i++ {
		runLoopCheck(st, frame, vm.OpLt)
	}
	st.CloseFrame()
	st.OpenFrame(frame)
	runLoopCheck(st, frame, vm.OpLt)
	assert.Empty(t, st.TakeIssues())
}

func TestShiftLeftOverflowConstraint(t *testing.T) {
	st := quietState()
	frame := testFrame("shl", vm.U8Type)
	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	step(st, frame, 1, op(vm.OpLdU8), vm.U8Value(100))
	c := step(st, frame, 2, op(vm.OpShl), vm.U8Value(100), vm.U8Value(2))
	require.NotNil(t, c)

	env := term.Assignment{"0.0": big.NewInt(100)}
	overflow, err := c.Holds(env)
	require.NoError(t, err)
	assert.True(t, overflow)

	shifted, err := st.Top().Term.Eval(env)
	require.NoError(t, err)
	assert.Equal(t, int64(144), shifted.Int64())
}

func TestCastConstraint(t *testing.T) {
	st := quietState()
	frame := testFrame("narrow", vm.U64Type)
	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpCopyLoc, 0))
	c := step(st, frame, 1, op(vm.OpCastU8), vm.U64Value(300))
	require.NotNil(t, c)
	assert.Equal(t, "(<= |0.0| 255)", c.String())
	assert.Equal(t, 1, st.StackDepth())
}

func TestMoveLocClearsSlot(t *testing.T) {
	st := quietState()
	frame := testFrame("mv", vm.U64Type)
	st.OpenFrame(frame)
	step(st, frame, 0, loc(vm.OpMoveLoc, 0))
	assert.True(t, st.Top().IsKnown())
	step(st, frame, 1, loc(vm.OpStLoc, 3), vm.U64Value(1))
	step(st, frame, 2, loc(vm.OpCopyLoc, 0))
	assert.False(t, st.Top().IsKnown())
	step(st, frame, 3, loc(vm.OpCopyLoc, 3), vm.U64Value(0))
	assert.True(t, st.Top().IsKnown())
	assert.Equal(t, "0.0", st.Top().Term.Name())
}

func TestNestedFrameUnderflowDisables(t *testing.T) {
	st := quietState()
	outer := testFrame("outer")
	st.OpenFrame(outer)
	st.OpenFrame(testFrame("inner", vm.U64Type, vm.U64Type))
	assert.True(t, st.Disabled())
	assert.Nil(t, step(st, outer, 0, op(vm.OpLdTrue)))
	assert.Equal(t, 0, st.StackDepth())

	st.Reset()
	assert.False(t, st.Disabled())
}

func TestNestedFrameMovesParams(t *testing.T) {
	st := quietState()
	outer := testFrame("outer", vm.U64Type)
	st.OpenFrame(outer)
	step(st, outer, 0, loc(vm.OpCopyLoc, 0))
	step(st, outer, 1, op(vm.OpLdU64), vm.U64Value(1))

	native := testFrame("native", vm.U64Type)
	native.IsNative = true
	native.ReturnTypes = []vm.TypeTag{vm.U64Type}
	st.OpenFrame(native)
	assert.Equal(t, 2, st.StackDepth())
	assert.False(t, st.Top().IsKnown())
	st.CloseFrame()

	step(st, outer, 2, op(vm.OpPop), vm.U64Value(1), vm.U64Value(9))
	assert.Equal(t, "0.0", st.Top().Term.Name())
}

func TestMissingPackMetadataDisables(t *testing.T) {
	st := quietState()
	frame := testFrame("pack")
	st.OpenFrame(frame)
	step(st, frame, 0, op(vm.OpLdTrue))
	step(st, frame, 1, op(vm.OpPack), vm.BoolValue(true))
	assert.True(t, st.Disabled())
}

func TestPackCollapsesToUnknown(t *testing.T) {
	st := quietState()
	frame := testFrame("pack")
	st.OpenFrame(frame)
	step(st, frame, 0, op(vm.OpLdTrue))
	step(st, frame, 1, op(vm.OpLdFalse), vm.BoolValue(true))
	st.Step(&vm.InstructionContext{
		Frame:        frame,
		PC:           2,
		Instruction:  op(vm.OpPack),
		OperandStack: []vm.Value{vm.BoolValue(true), vm.BoolValue(false)},
		Extra:        &vm.ExtraInfo{FieldCount: 2},
	})
	assert.Equal(t, 1, st.StackDepth())
	assert.False(t, st.Top().IsKnown())
}

func TestStackDivergenceResyncs(t *testing.T) {
	st := quietState()
	frame := testFrame("sync", vm.U64Type)
	st.OpenFrame(frame)
	step(st, frame, 0, op(vm.OpAdd), vm.U64Value(1), vm.U64Value(2))
	assert.Equal(t, 1, st.StackDepth())
	assert.False(t, st.Top().IsKnown())
	assert.False(t, st.Disabled())
}

func TestTracerCountsConstraints(t *testing.T) {
	tr := NewTracer(logrus.New())
	frame := testFrame("narrow", vm.U64Type)
	tr.OpenFrame(frame)
	tr.BeforeInstruction(&vm.InstructionContext{Frame: frame, PC: 0, Instruction: loc(vm.OpCopyLoc, 0)})
	tr.BeforeInstruction(&vm.InstructionContext{Frame: frame, PC: 1, Instruction: op(vm.OpCastU8), OperandStack: []vm.Value{vm.U64Value(1)}})
	tr.CloseFrame(frame)
	assert.Equal(t, 1, tr.Constraints())
	require.NotNil(t, tr.LastConstraint())

	tr.Reset()
	assert.Equal(t, 0, tr.Constraints())
	assert.Nil(t, tr.LastConstraint())
	assert.Empty(t, tr.TakeIssues())
}
