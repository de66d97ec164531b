/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: address.go
Description: Account addresses and module identifiers used across the VM boundary.
Addresses are rendered as short hex literals ("0x1") the same way the chain tooling prints them.
*/

package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressLength is the byte length of an account address
const AddressLength = 32

// AccountAddress is a 32-byte account address
type AccountAddress [AddressLength]byte

var (
	// AddressZero is the all-zero address
	AddressZero = AccountAddress{}
	// AddressOne is the framework address 0x1, used as the default sender
	AddressOne = AccountAddress{AddressLength - 1: 1}
)

// HexLiteral renders the address as a short hex literal without leading zeros
func (a AccountAddress) HexLiteral() string {
	return hexutil.EncodeBig(new(big.Int).SetBytes(a[:]))
}

func (a AccountAddress) String() string {
	return a.HexLiteral()
}

// ParseAddress parses a hex address with or without 0x prefix.
// Short literals are left-padded with zeros.
func ParseAddress(s string) (AccountAddress, error) {
	var addr AccountAddress
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if raw == "" {
		return addr, fmt.Errorf("empty address literal %q", s)
	}
	if len(raw) > AddressLength*2 {
		return addr, fmt.Errorf("address literal %q longer than %d bytes", s, AddressLength)
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	b, err := hexutil.Decode("0x" + raw)
	if err != nil {
		return addr, fmt.Errorf("failed to decode address %q: %w", s, err)
	}
	copy(addr[AddressLength-len(b):], b)
	return addr, nil
}

// ModuleID identifies a published module by owner address and name
type ModuleID struct {
	Address AccountAddress `json:"address"`
	Name    string         `json:"name"`
}

// ScriptModuleID is the pseudo module id the VM reports for script frames
var ScriptModuleID = ModuleID{Name: "<SELF>"}

func (m ModuleID) String() string {
	return m.Address.HexLiteral() + "::" + m.Name
}

// Less orders module ids by address bytes, then by name
func (m ModuleID) Less(other ModuleID) bool {
	if c := strings.Compare(string(m.Address[:]), string(other.Address[:])); c != 0 {
		return c < 0
	}
	return m.Name < other.Name
}
