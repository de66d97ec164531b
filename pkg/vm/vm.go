/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: vm.go
Description: The virtual machine boundary. A VM executes one payload against a world state with a
tracer attached and reports the result, the outcome class, the instruction trace and shift events.
*/

package vm

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupportedPayload is the cause recorded for payload shapes the executor cannot run
var ErrUnsupportedPayload = errors.New("unsupported payload type for this executor")

// OutcomeKind classifies how an execution ended
type OutcomeKind uint8

const (
	OutcomeOK OutcomeKind = iota
	OutcomeAbort
	OutcomeOutOfGas
	OutcomeOtherError
	OutcomeInvariantViolation
	OutcomePanic
)

func (o OutcomeKind) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeAbort:
		return "abort"
	case OutcomeOutOfGas:
		return "out_of_gas"
	case OutcomeOtherError:
		return "other_error"
	case OutcomeInvariantViolation:
		return "invariant_violation"
	case OutcomePanic:
		return "panic"
	}
	return fmt.Sprintf("outcome(%d)", o)
}

// StatusCode is the VM status attached to an error
type StatusCode uint32

const (
	StatusExecuted StatusCode = iota
	StatusAborted
	StatusOutOfGas
	StatusExecutionFailure
	StatusInvariantViolation
	StatusUnknown
)

func (s StatusCode) String() string {
	switch s {
	case StatusExecuted:
		return "EXECUTED"
	case StatusAborted:
		return "ABORTED"
	case StatusOutOfGas:
		return "OUT_OF_GAS"
	case StatusExecutionFailure:
		return "EXECUTION_FAILURE"
	case StatusInvariantViolation:
		return "UNKNOWN_INVARIANT_VIOLATION_ERROR"
	case StatusUnknown:
		return "UNKNOWN_STATUS"
	}
	return fmt.Sprintf("STATUS_%d", uint32(s))
}

// VMError is a failed execution as reported by the VM
type VMError struct {
	Status    StatusCode
	AbortCode *uint64
	Location  string
	Message   string
}

func (e *VMError) Error() string {
	if e.AbortCode != nil {
		return fmt.Sprintf("%s: abort code %d at %s", e.Status, *e.AbortCode, e.Location)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status.String()
}

// WriteOp is one state change produced by a successful execution
type WriteOp struct {
	Key   string
	Value []byte
}

// Event is an emitted contract event
type Event struct {
	Type string
	Data []byte
}

// TransactionOutput is the result of a kept transaction.
// A kept transaction may still have aborted; AbortCode is set in that case.
type TransactionOutput struct {
	WriteSet  []WriteOp
	Events    []Event
	AbortCode *uint64
}

// Execution is everything the VM reports about one call
type Execution struct {
	Output      *TransactionOutput
	Err         *VMError
	Outcome     OutcomeKind
	Trace       []uint32
	ShiftLosses []bool
}

// AbortCode returns the abort code carried by either the output or the error
func (e *Execution) AbortCode() (uint64, bool) {
	if e.Err != nil && e.Err.AbortCode != nil {
		return *e.Err.AbortCode, true
	}
	if e.Output != nil && e.Output.AbortCode != nil {
		return *e.Output.AbortCode, true
	}
	return 0, false
}

// VM executes payloads. Execute returns a Go error only for failures of the VM itself;
// failed transactions are reported through Execution.Err.
type VM interface {
	Execute(ctx context.Context, payload Payload, world WorldState, sender AccountAddress, tracer Tracer) (*Execution, error)
}
