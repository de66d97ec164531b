/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: catalog.go
Description: Extraction of the public function catalog from decoded modules. Only public,
non-generic functions whose signatures are fully concrete are kept; signers passed by value or
by reference become signer parameters.
*/

package core

import (
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// ExtractPublicFunctions returns the callable public functions of a module
func ExtractPublicFunctions(module *vm.CompiledModule) []PublicFunctionTarget {
	var out []PublicFunctionTarget
	for _, def := range module.Functions {
		if def.Visibility != vm.VisibilityPublic || def.TypeParams > 0 {
			continue
		}
		params, ok := classifyParams(def.Params)
		if !ok {
			continue
		}
		returns, ok := concreteTypes(def.Returns)
		if !ok {
			continue
		}
		out = append(out, PublicFunctionTarget{
			Module:     module.ID,
			Name:       def.Name,
			Params:     params,
			Returns:    returns,
			IsEntry:    def.IsEntry,
			CodeLength: def.CodeLength,
		})
	}
	return out
}

func classifyParams(tags []vm.TypeTag) ([]FunctionParam, bool) {
	params := make([]FunctionParam, 0, len(tags))
	for _, tag := range tags {
		switch {
		case tag.Kind == vm.TypeSigner:
			params = append(params, FunctionParam{Kind: ParamSigner, Type: tag})
		case tag.IsReference():
			if tag.Elem == nil || tag.Elem.Kind != vm.TypeSigner {
				return nil, false
			}
			params = append(params, FunctionParam{Kind: ParamSigner, Type: tag})
		default:
			if !isConcrete(tag) {
				return nil, false
			}
			params = append(params, FunctionParam{Kind: ParamValue, Type: tag})
		}
	}
	return params, true
}

func concreteTypes(tags []vm.TypeTag) ([]vm.TypeTag, bool) {
	out := make([]vm.TypeTag, 0, len(tags))
	for _, tag := range tags {
		if !isConcrete(tag) {
			return nil, false
		}
		out = append(out, tag)
	}
	return out, true
}

// isConcrete rejects references and type parameters anywhere inside a type
func isConcrete(tag vm.TypeTag) bool {
	switch tag.Kind {
	case vm.TypeReference, vm.TypeMutableReference, vm.TypeParameter:
		return false
	case vm.TypeVector:
		return tag.Elem != nil && isConcrete(*tag.Elem)
	case vm.TypeStruct:
		if tag.Struct == nil {
			return false
		}
		for _, arg := range tag.Struct.TypeArgs {
			if !isConcrete(arg) {
				return false
			}
		}
	}
	return true
}
