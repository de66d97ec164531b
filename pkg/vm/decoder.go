/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: decoder.go
Description: Module deserializer boundary. A decoder turns module bytes into the signature-level
view the fuzzer needs to build its function catalog.
*/

package vm

// Visibility of a function definition
type Visibility uint8

const (
	VisibilityPrivate Visibility = iota
	VisibilityPublic
	VisibilityFriend
)

// FunctionDef is the signature of one function in a compiled module
type FunctionDef struct {
	Name       string
	Visibility Visibility
	IsEntry    bool
	TypeParams int
	Params     []TypeTag
	Returns    []TypeTag
	CodeLength int
}

// CompiledModule is a deserialized module
type CompiledModule struct {
	ID        ModuleID
	Functions []FunctionDef
}

// Decoder deserializes module bytecode
type Decoder interface {
	Decode(code []byte) (*CompiledModule, error)
}
