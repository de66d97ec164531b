/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: state.go
Description: Concolic shadow state. Mirrors the VM operand stack and locals with symbolic
terms while the VM executes concretely, and runs the runtime issue detectors as
instructions are interpreted. Tracking never alters execution; on a desync it is
disabled for the rest of the run.
*/

package concolic

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/term"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// State is the symbolic mirror of one VM call
type State struct {
	stack  []SymbolValue
	locals [][]SymbolValue
	// args holds the symbolic bindings of every outermost invocation, by param index
	args     []map[int]*term.Term
	branches map[string]map[uint16]*branchCounter
	issues   []RuntimeIssue

	disabled bool
	resynced bool
	logger   logrus.FieldLogger
}

// NewState creates an empty state. A nil logger falls back to the standard logger.
func NewState(logger logrus.FieldLogger) *State {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &State{
		branches: make(map[string]map[uint16]*branchCounter),
		logger:   logger,
	}
}

// Reset drops all tracking state and re-enables tracking
func (s *State) Reset() {
	s.stack = nil
	s.locals = nil
	s.args = nil
	s.branches = make(map[string]map[uint16]*branchCounter)
	s.issues = nil
	s.disabled = false
	s.resynced = false
}

// Disabled reports whether tracking was switched off after a desync
func (s *State) Disabled() bool { return s.disabled }

// StackDepth returns the shadow stack height
func (s *State) StackDepth() int { return len(s.stack) }

// Top returns the top shadow slot, or Unknown on an empty stack
func (s *State) Top() SymbolValue {
	if len(s.stack) == 0 {
		return Unknown
	}
	return s.stack[len(s.stack)-1]
}

// Args returns the symbolic parameter bindings recorded for each outermost invocation
func (s *State) Args() []map[int]*term.Term { return s.args }

// TakeIssues drains the accumulated runtime issues
func (s *State) TakeIssues() []RuntimeIssue {
	issues := s.issues
	s.issues = nil
	return issues
}

func (s *State) record(issue RuntimeIssue) {
	s.issues = append(s.issues, issue)
}

func (s *State) disable(reason string, fields logrus.Fields) {
	s.stack = nil
	s.locals = nil
	s.disabled = true
	s.logger.WithFields(fields).Warnf("Concolic tracking disabled: %s", reason)
}

func (s *State) push(v SymbolValue) { s.stack = append(s.stack, v) }

func (s *State) pushUnknown(n int) {
	for i := 0; i < n; i++ {
		s.stack = append(s.stack, Unknown)
	}
}

func (s *State) pop() SymbolValue {
	if len(s.stack) == 0 {
		return Unknown
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v
}

func (s *State) popN(n int) {
	if n > len(s.stack) {
		n = len(s.stack)
	}
	s.stack = s.stack[:len(s.stack)-n]
}

func functionKey(fn vm.FunctionRef) string {
	return fn.Key()
}

// OpenFrame starts tracking a new call frame
func (s *State) OpenFrame(frame *vm.FrameInfo) {
	if s.disabled || frame == nil {
		return
	}
	delete(s.branches, functionKey(frame.Function))

	if len(s.locals) == 0 {
		invocation := len(s.args)
		locals := make([]SymbolValue, len(frame.ParamTypes))
		bound := make(map[int]*term.Term)
		for i, ty := range frame.ParamTypes {
			if !isScalar(ty) {
				continue
			}
			v := term.Var(fmt.Sprintf("%d.%d", invocation, i))
			locals[i] = Known(v)
			bound[i] = v
		}
		s.args = append(s.args, bound)
		s.locals = append(s.locals, locals)
		return
	}

	n := len(frame.ParamTypes)
	if n > len(s.stack) {
		s.disable("symbolic stack underflow when opening frame", logrus.Fields{
			"function": functionKey(frame.Function),
			"params":   n,
			"stack":    len(s.stack),
		})
		return
	}
	split := len(s.stack) - n
	locals := make([]SymbolValue, n)
	copy(locals, s.stack[split:])
	s.stack = s.stack[:split]
	s.locals = append(s.locals, locals)
	if frame.IsNative {
		s.pushUnknown(len(frame.ReturnTypes))
	}
}

// CloseFrame drops the locals of the innermost frame
func (s *State) CloseFrame() {
	if len(s.locals) > 0 {
		s.locals = s.locals[:len(s.locals)-1]
	}
}

func isScalar(ty vm.TypeTag) bool {
	switch ty.Kind {
	case vm.TypeBool, vm.TypeU8, vm.TypeU16, vm.TypeU32, vm.TypeU64, vm.TypeU128, vm.TypeU256:
		return true
	}
	return false
}

func lift(v vm.Value) (*term.Term, bool) {
	n, ok := v.Big()
	if !ok {
		return nil, false
	}
	return term.FromBig(n), true
}

// resolve turns a pair of operands into terms, lifting the concrete value of an
// untracked side. Two untracked sides do not resolve.
func resolve(l, r SymbolValue, lc, rc vm.Value) (*term.Term, *term.Term, bool) {
	switch {
	case l.IsKnown() && r.IsKnown():
		return l.Term, r.Term, true
	case l.IsKnown():
		rt, ok := lift(rc)
		return l.Term, rt, ok
	case r.IsKnown():
		lt, ok := lift(lc)
		return lt, r.Term, ok
	}
	return nil, nil, false
}

func (s *State) local(idx uint16) SymbolValue {
	if len(s.locals) == 0 {
		return Unknown
	}
	frame := s.locals[len(s.locals)-1]
	if int(idx) >= len(frame) {
		return Unknown
	}
	return frame[idx]
}

func (s *State) storeLocal(idx uint16, v SymbolValue) {
	if len(s.locals) == 0 {
		s.locals = append(s.locals, nil)
	}
	frame := s.locals[len(s.locals)-1]
	for int(idx) >= len(frame) {
		frame = append(frame, Unknown)
	}
	frame[idx] = v
	s.locals[len(s.locals)-1] = frame
}

func frameNames(frame *vm.FrameInfo) (string, string) {
	if frame == nil {
		return "<unknown>", "<unknown>"
	}
	return frame.Function.Module.String(), frame.Function.Name
}

// Step mirrors one instruction's stack effect before the VM executes it. It returns
// the side constraint the instruction implies on the path actually taken, or nil.
func (s *State) Step(ctx *vm.InstructionContext) *term.Term {
	if s.disabled || ctx == nil {
		return nil
	}
	concrete := ctx.OperandStack
	if len(s.stack) != len(concrete) {
		if !s.resynced && len(concrete) > 0 {
			s.logger.WithFields(logrus.Fields{
				"pc":       ctx.PC,
				"shadow":   len(s.stack),
				"concrete": len(concrete),
			}).Debug("Shadow stack diverged, resynchronising")
			s.resynced = true
		}
		s.stack = make([]SymbolValue, len(concrete))
	}

	module, function := frameNames(ctx.Frame)
	pc := ctx.PC
	op := ctx.Instruction.Op

	switch op {
	case vm.OpEq, vm.OpNeq, vm.OpLt, vm.OpLe, vm.OpGt, vm.OpGe:
		s.checkBoolJudgement(op, module, function, pc, concrete)
	case vm.OpBrTrue, vm.OpBrFalse:
		s.checkInfiniteLoop(module+"::"+function, pc, module, function)
	}

	switch op {
	case vm.OpPop, vm.OpBrTrue, vm.OpBrFalse, vm.OpAbort:
		s.popN(1)

	case vm.OpLdU8, vm.OpLdU16, vm.OpLdU32, vm.OpLdU64, vm.OpLdU128, vm.OpLdU256, vm.OpLdConst:
		s.push(Unknown)
	case vm.OpLdTrue:
		s.push(Known(term.Uint(1)))
	case vm.OpLdFalse:
		s.push(Known(term.Uint(0)))

	case vm.OpCastU8, vm.OpCastU16, vm.OpCastU32, vm.OpCastU64, vm.OpCastU128, vm.OpCastU256:
		top := s.Top()
		if !top.IsKnown() {
			return nil
		}
		width, _ := op.CastTarget()
		return top.Term.Le(MaxUnsigned(width))

	case vm.OpAdd, vm.OpSub, vm.OpMul, vm.OpDiv, vm.OpMod:
		return s.arithmetic(ctx, module, function)

	case vm.OpAnd, vm.OpBitAnd, vm.OpOr, vm.OpBitOr, vm.OpXor:
		s.bitwise(ctx)
	case vm.OpNot:
		v := s.pop()
		if !v.IsKnown() || len(concrete) == 0 {
			s.push(Unknown)
			break
		}
		w, ok := concrete[len(concrete)-1].BitWidth()
		if !ok {
			s.push(Unknown)
			break
		}
		s.push(Known(BvNot(v.Term, w)))
	case vm.OpShl, vm.OpShr:
		return s.shift(ctx)

	case vm.OpEq, vm.OpNeq, vm.OpLt, vm.OpLe, vm.OpGt, vm.OpGe:
		return s.compare(ctx)

	case vm.OpCopyLoc, vm.OpMutBorrowLoc, vm.OpImmBorrowLoc:
		s.push(s.local(ctx.Instruction.Index))
	case vm.OpMoveLoc:
		idx := ctx.Instruction.Index
		v := s.local(idx)
		s.push(v)
		if len(s.locals) > 0 && int(idx) < len(s.locals[len(s.locals)-1]) {
			s.locals[len(s.locals)-1][idx] = Unknown
		}
	case vm.OpStLoc:
		s.storeLocal(ctx.Instruction.Index, s.pop())

	case vm.OpWriteRef, vm.OpVecPushBack, vm.OpMoveTo:
		s.popN(2)
	case vm.OpVecSwap:
		s.popN(3)
	case vm.OpVecImmBorrow, vm.OpVecMutBorrow:
		s.popN(2)
		s.push(Unknown)
	case vm.OpVecLen, vm.OpVecPopBack, vm.OpMutBorrowField, vm.OpImmBorrowField,
		vm.OpExists, vm.OpMoveFrom, vm.OpMutBorrowGlobal, vm.OpImmBorrowGlobal, vm.OpTestVariant:
		s.popN(1)
		s.push(Unknown)
	case vm.OpVecPack:
		s.popN(int(ctx.Instruction.Count))
		s.push(Unknown)
	case vm.OpVecUnpack:
		s.popN(1)
		s.pushUnknown(int(ctx.Instruction.Count))

	case vm.OpPack, vm.OpPackGeneric, vm.OpPackVariant, vm.OpPackVariantGeneric:
		if ctx.Extra == nil {
			s.disable("missing field count for pack", logrus.Fields{"pc": pc, "function": module + "::" + function})
			return nil
		}
		s.popN(ctx.Extra.FieldCount)
		s.push(Unknown)
	case vm.OpUnpack, vm.OpUnpackGeneric, vm.OpUnpackVariant, vm.OpUnpackVariantGeneric:
		if ctx.Extra == nil {
			s.disable("missing field count for unpack", logrus.Fields{"pc": pc, "function": module + "::" + function})
			return nil
		}
		s.popN(1)
		s.pushUnknown(ctx.Extra.FieldCount)
	}
	return nil
}

func lastTwo(ctx *vm.InstructionContext) (vm.Value, vm.Value, bool) {
	vals, ok := ctx.LastN(2)
	if !ok {
		return vm.Value{}, vm.Value{}, false
	}
	return vals[0], vals[1], true
}

func (s *State) arithmetic(ctx *vm.InstructionContext, module, function string) *term.Term {
	r, l := s.pop(), s.pop()
	lc, rc, ok := lastTwo(ctx)
	if !ok {
		s.push(Unknown)
		return nil
	}
	lt, rt, ok := resolve(l, r, lc, rc)
	if !ok {
		s.push(Unknown)
		return nil
	}
	var out *term.Term
	switch ctx.Instruction.Op {
	case vm.OpAdd:
		out = lt.Add(rt)
	case vm.OpSub:
		out = lt.Sub(rt)
	case vm.OpMul:
		s.checkPrecisionLoss(module, function, ctx.PC, lt, rt)
		out = lt.Mul(rt)
	case vm.OpDiv:
		out = lt.Div(rt)
	case vm.OpMod:
		out = lt.Mod(rt)
	}
	s.push(Known(out))
	return nil
}

func (s *State) bitwise(ctx *vm.InstructionContext) {
	r, l := s.pop(), s.pop()
	lc, rc, ok := lastTwo(ctx)
	if !ok {
		s.push(Unknown)
		return
	}
	w, ok := lc.BitWidth()
	if !ok {
		s.push(Unknown)
		return
	}
	var sym *term.Term
	var mask *uint256.Int
	switch {
	case l.IsKnown() && !r.IsKnown():
		sym, mask = l.Term, concreteMask(rc)
	case !l.IsKnown() && r.IsKnown():
		sym, mask = r.Term, concreteMask(lc)
	}
	if sym == nil || mask == nil {
		s.push(Unknown)
		return
	}
	switch ctx.Instruction.Op {
	case vm.OpAnd, vm.OpBitAnd:
		s.push(Known(BvAnd(sym, mask, w)))
	case vm.OpOr, vm.OpBitOr:
		s.push(Known(BvOr(sym, mask, w)))
	case vm.OpXor:
		s.push(Known(BvXor(sym, mask, w)))
	}
}

func concreteMask(v vm.Value) *uint256.Int {
	n, ok := v.Uint256()
	if !ok {
		return nil
	}
	return n
}

func (s *State) shift(ctx *vm.InstructionContext) *term.Term {
	r, l := s.pop(), s.pop()
	lc, rc, ok := lastTwo(ctx)
	if !ok || !l.IsKnown() || r.IsKnown() {
		s.push(Unknown)
		return nil
	}
	w, okw := lc.BitWidth()
	amount, oka := rc.Uint256()
	if !okw || !oka || !amount.IsUint64() {
		s.push(Unknown)
		return nil
	}
	n := uint(amount.Uint64())
	if ctx.Instruction.Op == vm.OpShr {
		s.push(Known(l.Term.Div(TwoPow(n))))
		return nil
	}
	shifted := l.Term.Mul(TwoPow(n))
	s.push(Known(shifted.Mod(TwoPow(w))))
	return shifted.Gt(MaxUnsigned(w))
}

func (s *State) compare(ctx *vm.InstructionContext) *term.Term {
	r, l := s.pop(), s.pop()
	lc, rc, ok := lastTwo(ctx)
	if !ok {
		s.push(Unknown)
		return nil
	}
	lt, rt, ok := resolve(l, r, lc, rc)
	if !ok {
		s.push(Unknown)
		return nil
	}
	cmp := vm.Compare(lc, rc)
	var pred *term.Term
	var holds bool
	switch ctx.Instruction.Op {
	case vm.OpEq:
		pred, holds = lt.Eq(rt), cmp == 0
	case vm.OpNeq:
		pred, holds = lt.Eq(rt).Not(), cmp != 0
	case vm.OpLt:
		pred, holds = lt.Lt(rt), cmp < 0
	case vm.OpLe:
		pred, holds = lt.Le(rt), cmp <= 0
	case vm.OpGt:
		pred, holds = lt.Gt(rt), cmp > 0
	case vm.OpGe:
		pred, holds = lt.Ge(rt), cmp >= 0
	}
	s.push(Known(pred.Ite(term.Uint(1), term.Uint(0))))
	if holds {
		return pred
	}
	return pred.Not()
}
