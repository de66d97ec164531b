/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracer.go
Description: vm.Tracer adapter around the concolic state. The VM calls it at frame open,
before every instruction and at frame close; side constraints are counted for reporting.
*/

package concolic

import (
	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/term"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// Tracer shadows a VM call and collects runtime issues
type Tracer struct {
	state       *State
	constraints int
	last        *term.Term
}

var _ vm.Tracer = (*Tracer)(nil)

// NewTracer creates a tracer with fresh state
func NewTracer(logger logrus.FieldLogger) *Tracer {
	return &Tracer{state: NewState(logger)}
}

// OpenFrame implements vm.Tracer
func (t *Tracer) OpenFrame(frame *vm.FrameInfo) {
	t.state.OpenFrame(frame)
}

// BeforeInstruction implements vm.Tracer
func (t *Tracer) BeforeInstruction(ctx *vm.InstructionContext) {
	if c := t.state.Step(ctx); c != nil {
		t.constraints++
		t.last = c
	}
}

// CloseFrame implements vm.Tracer
func (t *Tracer) CloseFrame(*vm.FrameInfo) {
	t.state.CloseFrame()
}

// State exposes the shadow state
func (t *Tracer) State() *State { return t.state }

// Constraints returns how many side constraints the last run produced
func (t *Tracer) Constraints() int { return t.constraints }

// LastConstraint returns the most recent side constraint, or nil
func (t *Tracer) LastConstraint() *term.Term { return t.last }

// Reset prepares the tracer for a new VM call
func (t *Tracer) Reset() {
	t.state.Reset()
	t.constraints = 0
	t.last = nil
}

// TakeIssues drains the runtime issues of the last run
func (t *Tracer) TakeIssues() []RuntimeIssue {
	return t.state.TakeIssues()
}
