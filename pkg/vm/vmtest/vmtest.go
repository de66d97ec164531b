/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: vmtest.go
Description: Test doubles for the VM boundary: a scripted VM that replays instruction steps
through a tracer, a JSON module decoder and a recording sequence compiler.
*/

package vmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kleascm/akaylee-move/pkg/vm"
)

// Step is one instruction replayed through a tracer
type Step struct {
	PC          uint16
	Instruction vm.Instruction
	Stack       []vm.Value
	Extra       *vm.ExtraInfo
}

// Replay opens frame, feeds every step to the tracer and closes the frame.
// Returns the visited pcs in order.
func Replay(tracer vm.Tracer, frame *vm.FrameInfo, steps []Step) []uint32 {
	if tracer == nil {
		tracer = vm.NopTracer{}
	}
	trace := make([]uint32, 0, len(steps))
	tracer.OpenFrame(frame)
	for _, s := range steps {
		tracer.BeforeInstruction(&vm.InstructionContext{
			Frame:        frame,
			PC:           s.PC,
			Instruction:  s.Instruction,
			OperandStack: s.Stack,
			Extra:        s.Extra,
		})
		trace = append(trace, uint32(s.PC))
	}
	tracer.CloseFrame(frame)
	return trace
}

// Call is one recorded Execute invocation
type Call struct {
	Payload vm.Payload
	Sender  vm.AccountAddress
}

// VM is a scripted VM. Run decides the result of each call; a nil Run returns a
// successful execution with a single-instruction trace.
type VM struct {
	Run func(payload vm.Payload, tracer vm.Tracer) (*vm.Execution, error)

	mu    sync.Mutex
	calls []Call
}

// Execute implements vm.VM
func (m *VM) Execute(_ context.Context, payload vm.Payload, _ vm.WorldState, sender vm.AccountAddress, tracer vm.Tracer) (*vm.Execution, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Payload: payload, Sender: sender})
	m.mu.Unlock()

	if m.Run == nil {
		return &vm.Execution{Output: &vm.TransactionOutput{}, Outcome: vm.OutcomeOK, Trace: []uint32{0}}, nil
	}
	return m.Run(payload, tracer)
}

// Calls returns the recorded invocations
func (m *VM) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Abort builds an execution that aborted with code
func Abort(code uint64, trace ...uint32) *vm.Execution {
	return &vm.Execution{
		Err:     &vm.VMError{Status: vm.StatusAborted, AbortCode: &code, Location: "test"},
		Outcome: vm.OutcomeAbort,
		Trace:   trace,
	}
}

// Success builds a successful execution
func Success(trace ...uint32) *vm.Execution {
	return &vm.Execution{Output: &vm.TransactionOutput{}, Outcome: vm.OutcomeOK, Trace: trace}
}

// JSONDecoder decodes modules stored as JSON-encoded vm.CompiledModule
type JSONDecoder struct{}

// Decode implements vm.Decoder
func (JSONDecoder) Decode(code []byte) (*vm.CompiledModule, error) {
	var m vm.CompiledModule
	if err := json.Unmarshal(code, &m); err != nil {
		return nil, fmt.Errorf("failed to decode module: %w", err)
	}
	if m.ID.Name == "" {
		return nil, fmt.Errorf("module has no name")
	}
	return &m, nil
}

// EncodeModule is the inverse of JSONDecoder.Decode
func EncodeModule(m *vm.CompiledModule) []byte {
	out, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return out
}

// Compiler is a recording sequence compiler. Reject, when set, refuses sequences.
// Compiled code is the canonical key encoding of the sequence.
type Compiler struct {
	Reject func(seq *vm.ScriptSequence) bool

	mu       sync.Mutex
	compiled []*vm.ScriptSequence
}

// Compile implements vm.SequenceCompiler
func (c *Compiler) Compile(seq *vm.ScriptSequence, _ []vm.DeployedModule) ([]byte, error) {
	if c.Reject != nil && c.Reject(seq) {
		return nil, fmt.Errorf("sequence rejected")
	}
	c.mu.Lock()
	c.compiled = append(c.compiled, seq.Clone())
	c.mu.Unlock()
	return seq.AppendKey([]byte("script:")), nil
}

// Compiled returns every accepted sequence
func (c *Compiler) Compiled() []*vm.ScriptSequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*vm.ScriptSequence(nil), c.compiled...)
}

// Backend bundles the doubles into a vm.Backend
func Backend(name string, machine *VM, compiler vm.SequenceCompiler) vm.Backend {
	return vm.Backend{
		Name:     name,
		NewVM:    func() (vm.VM, error) { return machine, nil },
		Decoder:  JSONDecoder{},
		Compiler: compiler,
	}
}
