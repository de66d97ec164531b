/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: args.go
Description: BCS argument encoding. Default values for seeding and decoding of raw sequence
arguments into flat script arguments.
*/

package core

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/kleascm/akaylee-move/pkg/vm"
)

// DefaultArgBytes returns the BCS encoding of the zero value of ty:
// false, 0, the zero address, or an empty vector of a primitive element type.
// Other types have no default.
func DefaultArgBytes(ty vm.TypeTag) ([]byte, bool) {
	switch ty.Kind {
	case vm.TypeBool:
		return []byte{0}, true
	case vm.TypeU8, vm.TypeU16, vm.TypeU32, vm.TypeU64, vm.TypeU128, vm.TypeU256:
		w, _ := ty.BitWidth()
		return make([]byte, w/8), true
	case vm.TypeAddress:
		return make([]byte, vm.AddressLength), true
	case vm.TypeVector:
		if ty.Elem == nil {
			return nil, false
		}
		switch ty.Elem.Kind {
		case vm.TypeBool, vm.TypeU8, vm.TypeU16, vm.TypeU32, vm.TypeU64, vm.TypeU128, vm.TypeU256, vm.TypeAddress:
			return binary.AppendUvarint(nil, 0), true
		}
	}
	return nil, false
}

// decodeUint reads a little-endian unsigned integer that must fill raw exactly
func decodeUint(raw []byte, width int) (*uint256.Int, error) {
	if len(raw) != width {
		return nil, fmt.Errorf("expected %d bytes, got %d", width, len(raw))
	}
	be := make([]byte, width)
	for i, b := range raw {
		be[width-1-i] = b
	}
	return new(uint256.Int).SetBytes(be), nil
}

// DecodeArgument turns BCS bytes of type ty into a flat script argument.
// vector<u8> is unwrapped; types without a flat form are kept as Serialized bytes.
func DecodeArgument(ty vm.TypeTag, raw []byte) (vm.TransactionArgument, error) {
	switch ty.Kind {
	case vm.TypeBool:
		if len(raw) != 1 || raw[0] > 1 {
			return vm.TransactionArgument{}, fmt.Errorf("invalid bool encoding %x", raw)
		}
		return vm.TransactionArgument{Kind: vm.ArgBool, Bool: raw[0] == 1}, nil
	case vm.TypeU8, vm.TypeU16, vm.TypeU32, vm.TypeU64, vm.TypeU128, vm.TypeU256:
		w, _ := ty.BitWidth()
		n, err := decodeUint(raw, int(w/8))
		if err != nil {
			return vm.TransactionArgument{}, fmt.Errorf("failed to decode %s: %w", ty, err)
		}
		return vm.TransactionArgument{Kind: uintArgKind(ty.Kind), Num: n}, nil
	case vm.TypeAddress:
		if len(raw) != vm.AddressLength {
			return vm.TransactionArgument{}, fmt.Errorf("invalid address length %d", len(raw))
		}
		var addr vm.AccountAddress
		copy(addr[:], raw)
		return vm.TransactionArgument{Kind: vm.ArgAddress, Address: addr}, nil
	case vm.TypeVector:
		if ty.Elem != nil && ty.Elem.Kind == vm.TypeU8 {
			n, used := binary.Uvarint(raw)
			if used <= 0 || uint64(len(raw)-used) != n {
				return vm.TransactionArgument{}, fmt.Errorf("invalid vector<u8> encoding %x", raw)
			}
			return vm.TransactionArgument{Kind: vm.ArgU8Vector, Bytes: append([]byte{}, raw[used:]...)}, nil
		}
	}
	return vm.TransactionArgument{Kind: vm.ArgSerialized, Bytes: append([]byte{}, raw...)}, nil
}

func uintArgKind(k vm.TypeKind) vm.ArgKind {
	switch k {
	case vm.TypeU8:
		return vm.ArgU8
	case vm.TypeU16:
		return vm.ArgU16
	case vm.TypeU32:
		return vm.ArgU32
	case vm.TypeU64:
		return vm.ArgU64
	case vm.TypeU128:
		return vm.ArgU128
	}
	return vm.ArgU256
}

// FlattenSequenceArguments decodes every Raw argument of a sequence, in call order.
// Signer and PreviousResult arguments contribute nothing.
func FlattenSequenceArguments(seq *vm.ScriptSequence) ([]vm.TransactionArgument, error) {
	var out []vm.TransactionArgument
	if seq == nil {
		return out, nil
	}
	for i, call := range seq.Calls {
		for j, arg := range call.Args {
			if arg.Kind != vm.ArgumentRaw {
				continue
			}
			decoded, err := DecodeArgument(arg.Type, arg.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to decode argument %d of call %d: %w", j, i, err)
			}
			out = append(out, decoded)
		}
	}
	return out, nil
}
