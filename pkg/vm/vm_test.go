/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: vm_test.go
Description: Tests for addresses, type tags, values, payload keys, the memory world and the
backend registry.
*/

package vm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x1")
	require.NoError(t, err)
	assert.Equal(t, AddressOne, addr)
	assert.Equal(t, "0x1", addr.HexLiteral())

	addr, err = ParseAddress("CAFE")
	require.NoError(t, err)
	assert.Equal(t, "0xcafe", addr.String())

	addr, err = ParseAddress("0xabc")
	require.NoError(t, err)
	assert.Equal(t, byte(0x0a), addr[AddressLength-2])
	assert.Equal(t, byte(0xbc), addr[AddressLength-1])

	assert.Equal(t, "0x0", AddressZero.HexLiteral())

	_, err = ParseAddress("0x")
	assert.Error(t, err)
	_, err = ParseAddress("0xzz")
	assert.Error(t, err)
	_, err = ParseAddress("0x1" + strings.Repeat("00", AddressLength))
	assert.Error(t, err)
}

func TestModuleIDOrdering(t *testing.T) {
	a := ModuleID{Address: AddressOne, Name: "b"}
	b := ModuleID{Address: AddressOne, Name: "c"}
	two, _ := ParseAddress("0x2")
	c := ModuleID{Address: two, Name: "a"}

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.False(t, c.Less(a))
	assert.Equal(t, "0x1::b", a.String())
}

func TestTypeTagString(t *testing.T) {
	coin := ModuleID{Address: AddressOne, Name: "coin"}
	tests := []struct {
		tag  TypeTag
		want string
	}{
		{U64Type, "u64"},
		{VectorOf(U8Type), "vector<u8>"},
		{ReferenceTo(AddressType, false), "&address"},
		{ReferenceTo(SignerType, true), "&mut signer"},
		{StructOf(coin, "Coin", TypeTag{Kind: TypeParameter, Index: 1}), "0x1::coin::Coin<T1>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.tag.String())
	}
}

func TestTypeTagEqual(t *testing.T) {
	coin := ModuleID{Address: AddressOne, Name: "coin"}
	assert.True(t, VectorOf(U8Type).Equal(VectorOf(U8Type)))
	assert.False(t, VectorOf(U8Type).Equal(VectorOf(U16Type)))
	assert.True(t, StructOf(coin, "Coin", U64Type).Equal(StructOf(coin, "Coin", U64Type)))
	assert.False(t, StructOf(coin, "Coin", U64Type).Equal(StructOf(coin, "Coin")))
	assert.False(t, ReferenceTo(U8Type, false).Equal(ReferenceTo(U8Type, true)))

	w, ok := U128Type.BitWidth()
	assert.True(t, ok)
	assert.Equal(t, uint(128), w)
	_, ok = AddressType.BitWidth()
	assert.False(t, ok)
	assert.True(t, U256Type.IsUnsigned())
	assert.False(t, BoolType.IsUnsigned())
}

func TestValues(t *testing.T) {
	ref := ReferenceValue(U8Value(200))
	w, ok := ref.BitWidth()
	require.True(t, ok)
	assert.Equal(t, uint(8), w)

	n, ok := ref.Uint256()
	require.True(t, ok)
	assert.Equal(t, uint64(200), n.Uint64())

	n, ok = BoolValue(true).Uint256()
	require.True(t, ok)
	assert.Equal(t, uint64(1), n.Uint64())

	_, ok = AddressValue(AddressOne).Uint256()
	assert.False(t, ok)

	assert.Equal(t, -1, Compare(U64Value(1), U64Value(2)))
	assert.Equal(t, 0, Compare(BoolValue(true), U8Value(1)))
	assert.Equal(t, "@0x1", AddressValue(AddressOne).String())

	mask := WidthMask(256)
	assert.Equal(t, new(uint256.Int).Not(new(uint256.Int)), mask)
	assert.Equal(t, uint64(0xffff), WidthMask(16).Uint64())
}

func TestPayloadKeysAndClones(t *testing.T) {
	id := ModuleID{Address: AddressOne, Name: "vault"}
	entry := &EntryFunction{Module: id, Function: "deposit", Args: [][]byte{{1, 2}}}
	clone := entry.Clone()
	assert.Equal(t, entry.AppendKey(nil), clone.AppendKey(nil))

	clone.Args[0][0] = 9
	assert.Equal(t, byte(1), entry.Args[0][0], "clone must not share argument bytes")
	assert.NotEqual(t, entry.AppendKey(nil), clone.AppendKey(nil))

	script := &Script{Code: []byte{0xa1}}
	assert.NotEqual(t, script.AppendKey(nil), (&Script{Code: []byte{0xa2}}).AppendKey(nil))
	assert.NotEqual(t, (&EntryFunction{}).AppendKey(nil), (&Script{}).AppendKey(nil))
}

func TestSequenceCloneAndKey(t *testing.T) {
	id := ModuleID{Address: AddressOne, Name: "vault"}
	seq := &ScriptSequence{}
	seq.Push(SequenceCall{Module: id, Function: "open", Args: []SequenceArgument{SignerArgument(0)}})
	seq.Push(SequenceCall{Module: id, Function: "deposit", Args: []SequenceArgument{
		PreviousResult(0, 0),
		RawArgument([]byte{7}, U8Type),
	}})

	clone := seq.Clone()
	assert.Equal(t, seq.AppendKey(nil), clone.AppendKey(nil))
	clone.Calls[1].Args[1].Bytes[0] = 8
	assert.Equal(t, byte(7), seq.Calls[1].Args[1].Bytes[0])

	var empty *ScriptSequence
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 0, empty.Clone().Len())
	assert.Equal(t, "PreviousResult(0, 0)", seq.Calls[1].Args[0].String())
}

func TestMemoryWorld(t *testing.T) {
	w := NewMemoryWorld()
	two, _ := ParseAddress("0x2")
	require.NoError(t, w.DeployModule(ModuleID{Address: two, Name: "a"}, []byte{1}))
	require.NoError(t, w.DeployModule(ModuleID{Address: AddressOne, Name: "z"}, []byte{2}))
	require.NoError(t, w.DeployModule(ModuleID{Address: AddressOne, Name: "b"}, []byte{3}))
	assert.Error(t, w.DeployModule(ModuleID{Address: AddressOne}, nil))

	mods := w.Modules()
	require.Len(t, mods, 3)
	assert.Equal(t, "b", mods[0].ID.Name)
	assert.Equal(t, "z", mods[1].ID.Name)
	assert.Equal(t, "a", mods[2].ID.Name)

	code, ok := w.Module(ModuleID{Address: AddressOne, Name: "z"})
	require.True(t, ok)
	assert.Equal(t, []byte{2}, code)
}

type nopDecoder struct{}

func (nopDecoder) Decode([]byte) (*CompiledModule, error) { return nil, errors.New("nop") }

type nopVM struct{}

func (nopVM) Execute(context.Context, Payload, WorldState, AccountAddress, Tracer) (*Execution, error) {
	return &Execution{Outcome: OutcomeOK}, nil
}

func TestBackendRegistry(t *testing.T) {
	Register(Backend{Name: "registry-test", NewVM: func() (VM, error) { return nopVM{}, nil }, Decoder: nopDecoder{}})

	b, err := Lookup("registry-test")
	require.NoError(t, err)
	assert.Contains(t, Backends(), "registry-test")
	assert.IsType(t, &MemoryWorld{}, b.World())

	_, err = Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownBackend)

	assert.Panics(t, func() {
		Register(Backend{Name: "registry-test", NewVM: func() (VM, error) { return nopVM{}, nil }, Decoder: nopDecoder{}})
	})
	assert.Panics(t, func() { Register(Backend{Name: "incomplete"}) })
}
