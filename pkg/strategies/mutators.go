/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutators.go
Description: Value mutation strategies for the Akaylee Move fuzzer. Implements raw byte rewriting
of direct-call arguments and typed randomization of flat script arguments. Every mutation draws
from the session RNG so a seeded run replays the same candidates.
*/

package strategies

import (
	"math/rand"

	"github.com/holiman/uint256"

	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

const (
	// maxFreshArgLen bounds the length given to an empty argument
	maxFreshArgLen = 16
	// maxVectorArgLen bounds regenerated vector and serialized script arguments (exclusive)
	maxVectorArgLen = 64
)

// ByteMutator implements raw byte mutation of direct-call arguments.
// Every byte is rewritten uniformly; lengths are preserved.
type ByteMutator struct {
	rng *rand.Rand
}

// NewByteMutator creates a new byte mutator
func NewByteMutator(rng *rand.Rand) *ByteMutator {
	return &ByteMutator{rng: rng}
}

// MutateBytes rewrites b in place and returns it. An empty slice gets a fresh
// length between 1 and 16.
func (m *ByteMutator) MutateBytes(b []byte) []byte {
	if len(b) == 0 {
		b = make([]byte, 1+m.rng.Intn(maxFreshArgLen))
	}
	m.rng.Read(b)
	return b
}

// Mutate creates a child input with every argument of a direct call rewritten.
// Calls without arguments and other payloads are skipped.
func (m *ByteMutator) Mutate(input *interfaces.Input) (interfaces.MutationResult, *interfaces.Input, error) {
	entry, ok := input.Payload.(*vm.EntryFunction)
	if !ok || len(entry.Args) == 0 {
		return interfaces.Skipped, nil, nil
	}
	mutated := entry.Clone()
	for i := range mutated.Args {
		mutated.Args[i] = m.MutateBytes(mutated.Args[i])
	}
	return interfaces.Mutated, input.Derive(mutated, nil), nil
}

// Name returns the name of this mutator
func (m *ByteMutator) Name() string {
	return "ByteMutator"
}

// Description returns a description of this mutator
func (m *ByteMutator) Description() string {
	return "Rewrites the argument bytes of direct calls with uniform random bytes"
}

// ArgumentMutator randomizes flat script arguments according to their kind
type ArgumentMutator struct {
	rng *rand.Rand
}

// NewArgumentMutator creates a new transaction argument mutator
func NewArgumentMutator(rng *rand.Rand) *ArgumentMutator {
	return &ArgumentMutator{rng: rng}
}

// MutateArgument returns a fresh random value of the same kind as arg
func (m *ArgumentMutator) MutateArgument(arg vm.TransactionArgument) vm.TransactionArgument {
	out := vm.TransactionArgument{Kind: arg.Kind}
	switch arg.Kind {
	case vm.ArgU8:
		out.Num = uint256.NewInt(uint64(m.rng.Intn(1 << 8)))
	case vm.ArgU16:
		out.Num = uint256.NewInt(uint64(m.rng.Intn(1 << 16)))
	case vm.ArgU32:
		out.Num = uint256.NewInt(uint64(m.rng.Uint32()))
	case vm.ArgU64:
		out.Num = uint256.NewInt(m.rng.Uint64())
	case vm.ArgU128:
		out.Num = &uint256.Int{m.rng.Uint64(), m.rng.Uint64(), 0, 0}
	case vm.ArgU256:
		out.Num = &uint256.Int{m.rng.Uint64(), m.rng.Uint64(), m.rng.Uint64(), m.rng.Uint64()}
	case vm.ArgBool:
		out.Bool = m.rng.Intn(2) == 0
	case vm.ArgAddress:
		m.rng.Read(out.Address[:])
	case vm.ArgU8Vector, vm.ArgSerialized:
		out.Bytes = make([]byte, m.rng.Intn(maxVectorArgLen))
		m.rng.Read(out.Bytes)
	default:
		return arg.Clone()
	}
	return out
}

// MutateScript randomizes every flat argument of s in place.
// Returns false when s has no arguments.
func (m *ArgumentMutator) MutateScript(s *vm.Script) bool {
	if len(s.Args) == 0 {
		return false
	}
	for i, arg := range s.Args {
		s.Args[i] = m.MutateArgument(arg)
	}
	return true
}

// Mutate creates a child script with randomized arguments, keeping the sequence
// provenance. Anything else is skipped.
func (m *ArgumentMutator) Mutate(input *interfaces.Input) (interfaces.MutationResult, *interfaces.Input, error) {
	script, ok := input.Payload.(*vm.Script)
	if !ok || len(script.Args) == 0 {
		return interfaces.Skipped, nil, nil
	}
	mutated := script.Clone()
	m.MutateScript(mutated)
	var seq *vm.ScriptSequence
	if input.Sequence != nil {
		seq = input.Sequence.Clone()
	}
	return interfaces.Mutated, input.Derive(mutated, seq), nil
}

// Name returns the name of this mutator
func (m *ArgumentMutator) Name() string {
	return "ArgumentMutator"
}

// Description returns a description of this mutator
func (m *ArgumentMutator) Description() string {
	return "Replaces script arguments with random values of the same kind"
}
