/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracer.go
Description: Callback interface the VM invokes while interpreting bytecode. Context structures
are owned by the VM and must be treated as read-only by tracers.
*/

package vm

// FunctionRef names the function a frame executes
type FunctionRef struct {
	Module ModuleID
	Name   string
}

// Key renders "0x<addr>::<module>::<function>"
func (f FunctionRef) Key() string {
	return f.Module.String() + "::" + f.Name
}

// FrameInfo describes a frame being opened or closed
type FrameInfo struct {
	Function    FunctionRef
	ParamTypes  []TypeTag
	ReturnTypes []TypeTag
	IsNative    bool
}

// ExtraInfo carries per-instruction metadata the instruction itself does not encode,
// such as the field count of a packed or unpacked aggregate.
type ExtraInfo struct {
	FieldCount int
}

// InstructionContext is handed to tracers before an instruction executes.
// OperandStack is the concrete stack, bottom first.
type InstructionContext struct {
	Frame        *FrameInfo
	PC           uint16
	Instruction  Instruction
	OperandStack []Value
	Extra        *ExtraInfo
}

// LastN returns the top n concrete operands in push order
func (c *InstructionContext) LastN(n int) ([]Value, bool) {
	if n < 0 || n > len(c.OperandStack) {
		return nil, false
	}
	return c.OperandStack[len(c.OperandStack)-n:], true
}

// Tracer receives interpreter callbacks. Implementations must never alter execution.
type Tracer interface {
	OpenFrame(frame *FrameInfo)
	BeforeInstruction(ctx *InstructionContext)
	CloseFrame(frame *FrameInfo)
}

// NopTracer ignores all callbacks
type NopTracer struct{}

func (NopTracer) OpenFrame(*FrameInfo)                {}
func (NopTracer) BeforeInstruction(*InstructionContext) {}
func (NopTracer) CloseFrame(*FrameInfo)               {}
