/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: composite.go
Description: Composite mutator for the Akaylee Move fuzzer. Dispatches each input to the strategy
matching its shape: scripts and inputs with sequence provenance grow, direct calls get their
argument bytes rewritten.
*/

package strategies

import (
	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// CompositeMutator selects a mutation strategy per input
type CompositeMutator struct {
	bytes    *ByteMutator
	composer *SequenceComposer
}

var _ interfaces.Mutator = (*CompositeMutator)(nil)

// NewCompositeMutator creates the default mutator over a fuzzing state
func NewCompositeMutator(state *core.FuzzState, logger logrus.FieldLogger) *CompositeMutator {
	return &CompositeMutator{
		bytes:    NewByteMutator(state.Rand()),
		composer: NewSequenceComposer(state, logger),
	}
}

// Mutate routes the input. Shapes no strategy handles are skipped, never an error.
func (c *CompositeMutator) Mutate(input *interfaces.Input) (interfaces.MutationResult, *interfaces.Input, error) {
	if input.Sequence != nil {
		return c.composer.Mutate(input)
	}
	switch input.Payload.(type) {
	case *vm.Script:
		return c.composer.Mutate(input)
	case *vm.EntryFunction:
		return c.bytes.Mutate(input)
	}
	return interfaces.Skipped, nil, nil
}

// Composer returns the sequence strategy
func (c *CompositeMutator) Composer() *SequenceComposer { return c.composer }

// Name returns the name of this mutator.
func (c *CompositeMutator) Name() string {
	return "CompositeMutator"
}

// Description returns a description of this mutator.
func (c *CompositeMutator) Description() string {
	return "Grows script sequences and rewrites direct-call arguments"
}
