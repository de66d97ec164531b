/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: interfaces.go
Description: Shared types and interfaces for the Akaylee Move fuzzer. Defines the fuzz input,
exit kinds and the executor/mutator/feedback contracts used across packages to break import
cycles.
*/

package interfaces

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/kleascm/akaylee-move/pkg/vm"
)

// Input is one candidate transaction. A compiled script keeps the sequence it was
// compiled from, since script bytes cannot be mutated structurally.
type Input struct {
	ID         string
	ParentID   string
	Generation int
	CreatedAt  time.Time
	Payload    vm.Payload
	Sequence   *vm.ScriptSequence
}

// NewInput creates an input with a fresh id
func NewInput(payload vm.Payload, seq *vm.ScriptSequence) *Input {
	return &Input{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Payload:   payload,
		Sequence:  seq,
	}
}

// Derive creates a child input carrying the parent's lineage
func (in *Input) Derive(payload vm.Payload, seq *vm.ScriptSequence) *Input {
	child := NewInput(payload, seq)
	child.ParentID = in.ID
	child.Generation = in.Generation + 1
	return child
}

// Key is the value identity of the input: equal payloads and sequences give equal keys
func (in *Input) Key() string {
	var buf []byte
	if in.Payload != nil {
		buf = append(buf, in.Payload.PayloadType()...)
		buf = in.Payload.AppendKey(buf)
	}
	if in.Sequence != nil {
		buf = append(buf, 's')
		buf = in.Sequence.AppendKey(buf)
	}
	return hexutil.Encode(crypto.Keccak256(buf))
}

func (in *Input) String() string {
	switch p := in.Payload.(type) {
	case *vm.EntryFunction:
		return fmt.Sprintf("EntryFunction(%s::%s, %d args)", p.Module, p.Function, len(p.Args))
	case *vm.Script:
		return fmt.Sprintf("Script(%d bytes, %d args, %d calls)", len(p.Code), len(p.Args), in.Sequence.Len())
	case nil:
		return "Input(<nil>)"
	}
	return fmt.Sprintf("Input(%s)", in.Payload.PayloadType())
}

// ExitKind is the executor's verdict on a run
type ExitKind int

const (
	ExitOk ExitKind = iota
	ExitCrash
)

func (e ExitKind) String() string {
	if e == ExitCrash {
		return "Crash"
	}
	return "Ok"
}

// MutationResult tells whether a mutator produced a new input
type MutationResult int

const (
	Mutated MutationResult = iota
	Skipped
)

func (r MutationResult) String() string {
	if r == Skipped {
		return "Skipped"
	}
	return "Mutated"
}

// Executor runs one input against the target
type Executor interface {
	RunTarget(ctx context.Context, input *Input) (ExitKind, error)
}

// Mutator derives new inputs
type Mutator interface {
	Mutate(input *Input) (MutationResult, *Input, error)
	Name() string
}

// Feedback decides whether a finished run is interesting. Objectives implement
// the same contract.
type Feedback interface {
	IsInteresting(input *Input, exit ExitKind) (bool, error)
	Name() string
}
