/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: strategies_test.go
Description: Tests for the byte, argument and sequence mutation strategies and their dispatch.
*/

package strategies

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
	"github.com/kleascm/akaylee-move/pkg/vm/vmtest"
)

var vaultID = vm.ModuleID{Address: vm.AddressOne, Name: "vault"}

func newState(t *testing.T, compiler vm.SequenceCompiler, fns ...vm.FunctionDef) *core.FuzzState {
	t.Helper()
	module := &vm.CompiledModule{ID: vaultID, Functions: fns}
	state := core.NewFuzzState(nil, compiler, vm.AddressOne, 7)
	require.NoError(t, state.Deploy(core.LoadedModule{ID: vaultID, Module: module, Code: vmtest.EncodeModule(module)}))
	return state
}

func producer() vm.FunctionDef {
	return vm.FunctionDef{Name: "open", Visibility: vm.VisibilityPublic, Returns: []vm.TypeTag{vm.U64Type}}
}

func consumer() vm.FunctionDef {
	return vm.FunctionDef{Name: "deposit", Visibility: vm.VisibilityPublic, Params: []vm.TypeTag{vm.U64Type}}
}

type otherPayload struct{}

func (otherPayload) PayloadType() string         { return "other" }
func (otherPayload) AppendKey(dst []byte) []byte { return dst }

func TestByteMutatorPreservesLength(t *testing.T) {
	m := NewByteMutator(rand.New(rand.NewSource(1)))
	original := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	in := interfaces.NewInput(&vm.EntryFunction{Module: vaultID, Function: "deposit", Args: [][]byte{original}}, nil)

	for i := 0; i < 3; i++ {
		result, out, err := m.Mutate(in)
		require.NoError(t, err)
		require.Equal(t, interfaces.Mutated, result)

		args := out.Payload.(*vm.EntryFunction).Args
		require.Len(t, args, 1)
		assert.Len(t, args[0], len(original))
		assert.NotEqual(t, original, args[0])
		assert.Equal(t, in.ID, out.ParentID)
		in = out
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, original, "parent arguments are not touched")
}

func TestByteMutatorFreshLength(t *testing.T) {
	m := NewByteMutator(rand.New(rand.NewSource(2)))
	for i := 0; i < 50; i++ {
		b := m.MutateBytes(nil)
		assert.GreaterOrEqual(t, len(b), 1)
		assert.LessOrEqual(t, len(b), 16)
	}
}

func TestByteMutatorSkips(t *testing.T) {
	m := NewByteMutator(rand.New(rand.NewSource(3)))

	result, out, err := m.Mutate(interfaces.NewInput(&vm.EntryFunction{Module: vaultID, Function: "open"}, nil))
	require.NoError(t, err)
	assert.Equal(t, interfaces.Skipped, result)
	assert.Nil(t, out)

	result, _, err = m.Mutate(interfaces.NewInput(otherPayload{}, nil))
	require.NoError(t, err)
	assert.Equal(t, interfaces.Skipped, result)
}

func TestArgumentMutatorKeepsKinds(t *testing.T) {
	m := NewArgumentMutator(rand.New(rand.NewSource(4)))
	kinds := []vm.ArgKind{vm.ArgU8, vm.ArgU16, vm.ArgU32, vm.ArgU64, vm.ArgU128, vm.ArgU256,
		vm.ArgBool, vm.ArgAddress, vm.ArgU8Vector, vm.ArgSerialized}

	for i := 0; i < 20; i++ {
		for _, kind := range kinds {
			out := m.MutateArgument(vm.TransactionArgument{Kind: kind})
			require.Equal(t, kind, out.Kind)
			switch kind {
			case vm.ArgU8:
				assert.Less(t, out.Num.Uint64(), uint64(1<<8))
			case vm.ArgU16:
				assert.Less(t, out.Num.Uint64(), uint64(1<<16))
			case vm.ArgU32:
				assert.True(t, out.Num.IsUint64())
				assert.Less(t, out.Num.Uint64(), uint64(1<<32))
			case vm.ArgU128:
				assert.LessOrEqual(t, out.Num.BitLen(), 128)
			case vm.ArgU8Vector, vm.ArgSerialized:
				assert.Less(t, len(out.Bytes), 64)
			}
		}
	}
}

func TestArgumentMutatorScript(t *testing.T) {
	m := NewArgumentMutator(rand.New(rand.NewSource(5)))
	seq := &vm.ScriptSequence{}
	in := interfaces.NewInput(&vm.Script{Code: []byte{1}, Args: []vm.TransactionArgument{{Kind: vm.ArgBool}}}, seq)

	result, out, err := m.Mutate(in)
	require.NoError(t, err)
	assert.Equal(t, interfaces.Mutated, result)
	assert.NotNil(t, out.Sequence)
	assert.Equal(t, []byte{1}, out.Payload.(*vm.Script).Code)

	result, _, err = m.Mutate(interfaces.NewInput(&vm.Script{Code: []byte{1}}, seq))
	require.NoError(t, err)
	assert.Equal(t, interfaces.Skipped, result)
}

func TestSequenceGrowthWiresPreviousResults(t *testing.T) {
	compiler := &vmtest.Compiler{}
	state := newState(t, compiler, producer(), consumer())
	composer := NewSequenceComposer(state, nil)

	base := &vm.ScriptSequence{}
	base.Push(vm.SequenceCall{Module: vaultID, Function: "open"})
	in := interfaces.NewInput(&vm.Script{Code: []byte("seed")}, base)

	values := composer.AvailableValues(base)
	require.Equal(t, []AvailableValue{{CallIdx: 0, ReturnIdx: 0, Type: vm.U64Type}}, values)

	wired := false
	for i := 0; i < 64 && !wired; i++ {
		grown, ok := composer.Grow(in)
		require.True(t, ok)
		require.Equal(t, 2, grown.Sequence.Len())
		assert.Equal(t, 1, base.Len(), "base sequence is cloned")
		if diff := cmp.Diff(base.Calls, grown.Sequence.Calls[:1], cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("grown sequence changed its prefix (-base +grown):\n%s", diff)
		}

		last := grown.Sequence.Calls[1]
		if last.Function == "deposit" && last.Args[0].Kind == vm.ArgumentPreviousResult {
			assert.Equal(t, vm.PreviousResult(0, 0), last.Args[0])
			assert.Empty(t, grown.Payload.(*vm.Script).Args, "linked values are not flat arguments")
			wired = true
		}
	}
	assert.True(t, wired)
}

func TestSequenceGrowthCompilesFlatArguments(t *testing.T) {
	compiler := &vmtest.Compiler{}
	state := newState(t, compiler, consumer())
	composer := NewSequenceComposer(state, nil)

	grown, ok := composer.Grow(interfaces.NewInput(&vm.Script{}, nil))
	require.True(t, ok)

	script := grown.Payload.(*vm.Script)
	require.Len(t, script.Args, 1)
	assert.Equal(t, vm.ArgU64, script.Args[0].Kind)
	assert.Equal(t, grown.Sequence.AppendKey([]byte("script:")), script.Code)
	require.Len(t, compiler.Compiled(), 1)
}

func TestSequenceGrowthSkips(t *testing.T) {
	rejected := 0
	compiler := &vmtest.Compiler{Reject: func(*vm.ScriptSequence) bool {
		rejected++
		return true
	}}
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	state := newState(t, compiler, producer(), consumer())
	composer := NewSequenceComposer(state, logger)

	result, out, err := composer.Mutate(interfaces.NewInput(&vm.Script{}, &vm.ScriptSequence{}))
	require.NoError(t, err)
	assert.Equal(t, interfaces.Skipped, result)
	assert.Nil(t, out)
	assert.Equal(t, 2, rejected, "one attempt per catalog function when the catalog is small")
	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "Sequence candidate rejected", hook.LastEntry().Message)
}

func TestSequenceGrowthRejectsSigners(t *testing.T) {
	compiler := &vmtest.Compiler{}
	state := newState(t, compiler, vm.FunctionDef{
		Name:       "withdraw",
		Visibility: vm.VisibilityPublic,
		Params:     []vm.TypeTag{vm.SignerType, vm.U64Type},
	})
	composer := NewSequenceComposer(state, nil)

	_, ok := composer.Grow(interfaces.NewInput(&vm.Script{}, nil))
	assert.False(t, ok)
	assert.Empty(t, compiler.Compiled())
}

func TestCompositeDispatch(t *testing.T) {
	compiler := &vmtest.Compiler{}
	state := newState(t, compiler, consumer())
	m := NewCompositeMutator(state, nil)

	entry := interfaces.NewInput(&vm.EntryFunction{Module: vaultID, Function: "deposit", Args: [][]byte{make([]byte, 8)}}, nil)
	result, out, err := m.Mutate(entry)
	require.NoError(t, err)
	require.Equal(t, interfaces.Mutated, result)
	assert.IsType(t, &vm.EntryFunction{}, out.Payload)
	assert.Nil(t, out.Sequence)

	script := interfaces.NewInput(&vm.Script{}, &vm.ScriptSequence{})
	result, out, err = m.Mutate(script)
	require.NoError(t, err)
	require.Equal(t, interfaces.Mutated, result)
	assert.Equal(t, 1, out.Sequence.Len())
	assert.Equal(t, 1, out.Generation)

	for _, in := range []*interfaces.Input{
		interfaces.NewInput(&vm.EntryFunction{Module: vaultID, Function: "open"}, nil),
		interfaces.NewInput(otherPayload{}, nil),
	} {
		result, _, err = m.Mutate(in)
		require.NoError(t, err)
		assert.Equal(t, interfaces.Skipped, result, in.String())
	}
}
