/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: sequence.go
Description: Sequence composer for the Akaylee Move fuzzer. Grows multi-call scripts by appending a
random catalog call, wiring its parameters to earlier return values where the types match, and
compiling the result through the backend's sequence compiler.
*/

package strategies

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// maxGrowAttempts bounds the candidate calls tried per growth
const maxGrowAttempts = 8

// AvailableValue is a return slot of an earlier call that later calls may consume
type AvailableValue struct {
	CallIdx   uint16
	ReturnIdx uint16
	Type      vm.TypeTag
}

// SequenceComposer appends calls to script sequences
type SequenceComposer struct {
	state  *core.FuzzState
	args   *ArgumentMutator
	logger logrus.FieldLogger
}

// NewSequenceComposer creates a composer drawing functions from the state's catalog
func NewSequenceComposer(state *core.FuzzState, logger logrus.FieldLogger) *SequenceComposer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SequenceComposer{
		state:  state,
		args:   NewArgumentMutator(state.Rand()),
		logger: logger,
	}
}

// AvailableValues lists every return slot of the calls in seq whose target is in the catalog
func (c *SequenceComposer) AvailableValues(seq *vm.ScriptSequence) []AvailableValue {
	var values []AvailableValue
	if seq == nil {
		return values
	}
	for i, call := range seq.Calls {
		f, ok := c.state.LookupFunction(call.Module, call.Function)
		if !ok {
			continue
		}
		for j, ty := range f.Returns {
			values = append(values, AvailableValue{CallIdx: uint16(i), ReturnIdx: uint16(j), Type: ty})
		}
	}
	return values
}

// BuildCall synthesizes a call to f. Each value parameter is wired to a matching
// available value half of the time and defaulted otherwise. Returns false when f
// takes a signer or a parameter has neither a match nor a default.
func (c *SequenceComposer) BuildCall(f *core.PublicFunctionTarget, available []AvailableValue) (vm.SequenceCall, bool) {
	rng := c.state.Rand()
	args := make([]vm.SequenceArgument, 0, len(f.Params))
	for _, p := range f.Params {
		if p.Kind == core.ParamSigner {
			return vm.SequenceCall{}, false
		}
		var matches []AvailableValue
		for _, v := range available {
			if v.Type.Equal(p.Type) {
				matches = append(matches, v)
			}
		}
		if len(matches) > 0 && rng.Intn(2) == 0 {
			v := matches[rng.Intn(len(matches))]
			args = append(args, vm.PreviousResult(v.CallIdx, v.ReturnIdx))
			continue
		}
		raw, ok := core.DefaultArgBytes(p.Type)
		if !ok {
			return vm.SequenceCall{}, false
		}
		args = append(args, vm.RawArgument(raw, p.Type))
	}
	return vm.SequenceCall{Module: f.Module, Function: f.Name, Args: args}, true
}

// Compile turns seq into a script payload whose flat arguments are the decoded raw arguments
func (c *SequenceComposer) Compile(seq *vm.ScriptSequence) (*vm.Script, error) {
	compiler := c.state.Compiler()
	if compiler == nil {
		return nil, fmt.Errorf("no sequence compiler configured")
	}
	code, err := compiler.Compile(seq, c.state.World().Modules())
	if err != nil {
		return nil, fmt.Errorf("failed to compile sequence: %w", err)
	}
	args, err := core.FlattenSequenceArguments(seq)
	if err != nil {
		return nil, err
	}
	return &vm.Script{Code: code, Args: args}, nil
}

// Grow tries up to min(8, catalog size) random catalog functions and returns the first
// compilable extension of the input's sequence. Returns false when every attempt fails.
func (c *SequenceComposer) Grow(input *interfaces.Input) (*interfaces.Input, bool) {
	catalog := c.state.Catalog()
	if len(catalog) == 0 {
		return nil, false
	}
	base := input.Sequence
	available := c.AvailableValues(base)

	rng := c.state.Rand()
	attempts := min(maxGrowAttempts, len(catalog))
	for i := 0; i < attempts; i++ {
		f := &catalog[rng.Intn(len(catalog))]
		call, ok := c.BuildCall(f, available)
		if !ok {
			continue
		}
		seq := base.Clone()
		seq.Push(call)

		script, err := c.Compile(seq)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"function": f.Key(),
				"calls":    seq.Len(),
			}).WithError(err).Debug("Sequence candidate rejected")
			continue
		}
		c.args.MutateScript(script)
		return input.Derive(script, seq), true
	}
	return nil, false
}

// Mutate implements interfaces.Mutator
func (c *SequenceComposer) Mutate(input *interfaces.Input) (interfaces.MutationResult, *interfaces.Input, error) {
	grown, ok := c.Grow(input)
	if !ok {
		return interfaces.Skipped, nil, nil
	}
	return interfaces.Mutated, grown, nil
}

// Name returns the name of this mutator
func (c *SequenceComposer) Name() string {
	return "SequenceComposer"
}
