/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: seeds.go
Description: Initial corpus synthesis. Every public entry function whose value parameters all
have a default encoding becomes a direct-call seed; an empty script is added when the sequence
compiler accepts a zero-call sequence.
*/

package core

import (
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// EntrySeed builds a direct call to f with every value parameter defaulted.
// Signer parameters are supplied by the transaction sender and take no argument bytes.
// Returns false when f is not an entry function or a parameter has no default.
func EntrySeed(f *PublicFunctionTarget) (*vm.EntryFunction, bool) {
	if !f.IsEntry {
		return nil, false
	}
	args := make([][]byte, 0, len(f.Params))
	for _, p := range f.Params {
		if p.Kind == ParamSigner {
			continue
		}
		raw, ok := DefaultArgBytes(p.Type)
		if !ok {
			return nil, false
		}
		args = append(args, raw)
	}
	return &vm.EntryFunction{
		Module:   f.Module,
		Function: f.Name,
		Args:     args,
	}, true
}

// EmptyScriptSeed compiles a zero-call sequence. Returns nil when there is no compiler
// or the compiler rejects the empty sequence.
func EmptyScriptSeed(compiler vm.SequenceCompiler, modules []vm.DeployedModule) *interfaces.Input {
	if compiler == nil {
		return nil
	}
	seq := &vm.ScriptSequence{}
	code, err := compiler.Compile(seq, modules)
	if err != nil {
		return nil
	}
	return interfaces.NewInput(&vm.Script{Code: code}, seq)
}
