/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: executor.go
Description: Coverage executor for the Akaylee Move fuzzer. Runs one payload through the VM with
the concolic tracer attached, folds the instruction trace into edge coverage, records the
execution path and classifies the run as Ok or Crash.
*/

package execution

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/concolic"
	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/coverage"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// CoverageExecutor implements interfaces.Executor over a VM
type CoverageExecutor struct {
	machine vm.VM
	state   *core.FuzzState
	tracer  *concolic.Tracer
	logger  logrus.FieldLogger

	observers *ObserverSet
	edges     *EdgeObserver
	abort     *AbortCodeObserver
	shift     *ShiftOverflowObserver

	successCount uint64
	errorCount   uint64
	lastIssues   []concolic.RuntimeIssue
	lastExec     *vm.Execution
}

var _ interfaces.Executor = (*CoverageExecutor)(nil)

// NewCoverageExecutor creates an executor recording into the state's edge map
func NewCoverageExecutor(machine vm.VM, state *core.FuzzState, logger logrus.FieldLogger) *CoverageExecutor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	e := &CoverageExecutor{
		machine: machine,
		state:   state,
		tracer:  concolic.NewTracer(logger),
		logger:  logger,
		edges:   NewEdgeObserver(state.Edges()),
		abort:   NewAbortCodeObserver(),
		shift:   NewShiftOverflowObserver(),
	}
	// names are distinct, so registration cannot fail
	e.observers, _ = NewObserverSet(e.edges, e.abort, e.shift)
	return e
}

// RunTarget executes one input. A returned error means the VM itself failed.
func (e *CoverageExecutor) RunTarget(ctx context.Context, input *interfaces.Input) (interfaces.ExitKind, error) {
	e.state.ClearCurrentExecutionPath()
	e.observers.preExec()
	e.tracer.Reset()

	exec, err := e.execute(ctx, input.Payload)
	if err != nil {
		return interfaces.ExitOk, fmt.Errorf("failed to execute %s: %w", input, err)
	}
	e.lastExec = exec

	issues := e.tracer.TakeIssues()
	for _, issue := range issues {
		e.logger.WithFields(logrus.Fields{
			"kind":     issue.Kind.String(),
			"module":   issue.Module,
			"function": issue.Function,
			"pc":       issue.PC,
		}).Warn(issue.Message)
	}
	e.lastIssues = issues

	if exec.Err == nil {
		e.successCount++
	} else {
		e.errorCount++
	}
	e.state.AddInstructions(len(exec.Trace))

	e.observers.postExec(&RunInfo{Input: input, Execution: exec, BaseID: BaseID(input.Payload)})
	e.state.SetCurrentExecutionPath(exec.Trace)

	return ClassifyExit(exec, len(issues) > 0), nil
}

func (e *CoverageExecutor) execute(ctx context.Context, payload vm.Payload) (*vm.Execution, error) {
	switch payload.(type) {
	case *vm.EntryFunction, *vm.Script:
		return e.machine.Execute(ctx, payload, e.state.World(), e.state.Sender(), e.tracer)
	}
	return &vm.Execution{
		Err:     &vm.VMError{Status: vm.StatusUnknown, Message: vm.ErrUnsupportedPayload.Error()},
		Outcome: vm.OutcomeOtherError,
	}, nil
}

// ClassifyExit maps an execution to an exit kind. Aborts, out-of-gas and generic errors are
// expected outcomes; invariant violations and panics are crashes. Runtime issues always crash.
func ClassifyExit(exec *vm.Execution, hasIssues bool) interfaces.ExitKind {
	if hasIssues {
		return interfaces.ExitCrash
	}
	if exec.Err == nil {
		return interfaces.ExitOk
	}
	switch exec.Outcome {
	case vm.OutcomeInvariantViolation, vm.OutcomePanic:
		return interfaces.ExitCrash
	}
	return interfaces.ExitOk
}

// BaseID picks the coverage base id of a payload
func BaseID(payload vm.Payload) uint64 {
	switch p := payload.(type) {
	case *vm.EntryFunction:
		return coverage.FunctionBaseID(p.Module, p.Function)
	case *vm.Script:
		return coverage.ScriptBaseID(p.Code)
	}
	return 0
}

// Observers returns the observer registry
func (e *CoverageExecutor) Observers() *ObserverSet { return e.observers }

// EdgeObserver returns the edge coverage observer
func (e *CoverageExecutor) EdgeObserver() *EdgeObserver { return e.edges }

// AbortCodeObserver returns the abort code observer
func (e *CoverageExecutor) AbortCodeObserver() *AbortCodeObserver { return e.abort }

// ShiftOverflowObserver returns the shift overflow observer
func (e *CoverageExecutor) ShiftOverflowObserver() *ShiftOverflowObserver { return e.shift }

// Tracer returns the concolic tracer attached to every run
func (e *CoverageExecutor) Tracer() *concolic.Tracer { return e.tracer }

// LastRuntimeIssues returns the issues found by the last run
func (e *CoverageExecutor) LastRuntimeIssues() []concolic.RuntimeIssue { return e.lastIssues }

// LastExecution returns the raw VM report of the last run
func (e *CoverageExecutor) LastExecution() *vm.Execution { return e.lastExec }

// SuccessCount returns how many runs finished without a VM error
func (e *CoverageExecutor) SuccessCount() uint64 { return e.successCount }

// ErrorCount returns how many runs ended in a VM error
func (e *CoverageExecutor) ErrorCount() uint64 { return e.errorCount }
