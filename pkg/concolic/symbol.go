/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: symbol.go
Description: Symbolic slot values and runtime issues produced by the concolic tracer.
*/

package concolic

import (
	"fmt"

	"github.com/kleascm/akaylee-move/pkg/term"
)

// SymbolValue is one shadow stack or local slot. A nil Term means the slot
// has no tracked symbolic meaning.
type SymbolValue struct {
	Term *term.Term
}

// Unknown is the untracked slot
var Unknown = SymbolValue{}

// Known wraps a term into a tracked slot
func Known(t *term.Term) SymbolValue {
	return SymbolValue{Term: t}
}

// IsKnown reports whether the slot carries a term
func (s SymbolValue) IsKnown() bool {
	return s.Term != nil
}

func (s SymbolValue) String() string {
	if s.Term == nil {
		return "Unknown"
	}
	return "Value(" + s.Term.String() + ")"
}

// RuntimeIssueKind classifies a detector hit
type RuntimeIssueKind int

const (
	PrecisionLoss RuntimeIssueKind = iota
	BoolJudgement
	InfiniteLoop
)

func (k RuntimeIssueKind) String() string {
	switch k {
	case PrecisionLoss:
		return "PrecisionLoss"
	case BoolJudgement:
		return "BoolJudgement"
	case InfiniteLoop:
		return "InfiniteLoop"
	}
	return fmt.Sprintf("RuntimeIssueKind(%d)", int(k))
}

// RuntimeIssue is a non-fatal finding reported during shadow interpretation
type RuntimeIssue struct {
	Kind     RuntimeIssueKind `json:"kind" yaml:"kind"`
	Module   string           `json:"module" yaml:"module"`
	Function string           `json:"function" yaml:"function"`
	PC       uint16           `json:"pc" yaml:"pc"`
	Message  string           `json:"message" yaml:"message"`
}

func newIssue(kind RuntimeIssueKind, module, function string, pc uint16) RuntimeIssue {
	var prefix string
	switch kind {
	case PrecisionLoss:
		prefix = "Precision loss detected at"
	case BoolJudgement:
		prefix = "Unnecessary bool judgement at"
	case InfiniteLoop:
		prefix = "Potential infinite loop at"
	}
	return RuntimeIssue{
		Kind:     kind,
		Module:   module,
		Function: function,
		PC:       pc,
		Message:  fmt.Sprintf("%s %s::%s (pc %d)", prefix, module, function, pc),
	}
}

func (i RuntimeIssue) String() string {
	return i.Message
}
