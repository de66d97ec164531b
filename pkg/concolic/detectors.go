/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: detectors.go
Description: Runtime issue detectors run by the concolic state: precision loss on multiplication
of a quotient, comparisons whose outcome is fixed, and branch conditions that repeat without
change.
*/

package concolic

import (
	"github.com/kleascm/akaylee-move/pkg/term"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

const (
	// walkBudget bounds every term tree walk
	walkBudget = 10_000
	// InfiniteLoopThreshold is the number of identical conditions at one branch
	// that counts as a potential infinite loop
	InfiniteLoopThreshold = 1000
)

// containsDivision reports whether t has a div node within the walk budget.
// Past the budget the answer is false.
func containsDivision(t *term.Term) bool {
	work := []*term.Term{t}
	visited := 0
	for len(work) > 0 {
		node := work[len(work)-1]
		work = work[:len(work)-1]
		visited++
		if visited > walkBudget {
			return false
		}
		if node.Kind() == term.KindDiv {
			return true
		}
		work = append(work, node.Children()...)
	}
	return false
}

// hasVariable reports whether t mentions a free variable. The second result is
// false when the walk budget ran out before an answer was found.
func hasVariable(t *term.Term) (bool, bool) {
	work := []*term.Term{t}
	visited := 0
	for len(work) > 0 {
		node := work[len(work)-1]
		work = work[:len(work)-1]
		visited++
		if visited > walkBudget {
			return false, false
		}
		if node.IsVar() {
			return true, true
		}
		work = append(work, node.Children()...)
	}
	return false, true
}

// isGround reports a tracked slot whose term provably has no free variable
func isGround(s SymbolValue) bool {
	if !s.IsKnown() {
		return false
	}
	has, ok := hasVariable(s.Term)
	return ok && !has
}

type branchCounter struct {
	lastHash uint64
	seen     bool
	count    int
}

func (s *State) checkPrecisionLoss(module, function string, pc uint16, lhs, rhs *term.Term) {
	if containsDivision(lhs) || containsDivision(rhs) {
		s.record(newIssue(PrecisionLoss, module, function, pc))
	}
}

func (s *State) checkBoolJudgement(op vm.Opcode, module, function string, pc uint16, concrete []vm.Value) {
	if len(s.stack) < 2 {
		return
	}
	lhs, rhs := s.stack[len(s.stack)-2], s.stack[len(s.stack)-1]
	fixed := isGround(lhs) && isGround(rhs)
	if !fixed && (op == vm.OpEq || op == vm.OpNeq) && len(concrete) > 0 {
		if concrete[len(concrete)-1].Primitive().Kind == vm.ValueBool && (isGround(lhs) || isGround(rhs)) {
			fixed = true
		}
	}
	if fixed {
		s.record(newIssue(BoolJudgement, module, function, pc))
	}
}

func (s *State) checkInfiniteLoop(key string, pc uint16, module, function string) {
	if len(s.stack) == 0 {
		return
	}
	cond := s.stack[len(s.stack)-1]
	if !cond.IsKnown() {
		return
	}
	hash := cond.Term.Fingerprint()
	perPC, ok := s.branches[key]
	if !ok {
		perPC = make(map[uint16]*branchCounter)
		s.branches[key] = perPC
	}
	counter, ok := perPC[pc]
	if !ok {
		counter = &branchCounter{}
		perPC[pc] = counter
	}
	if !counter.seen || counter.lastHash != hash {
		counter.lastHash = hash
		counter.seen = true
		counter.count = 1
		return
	}
	counter.count++
	if counter.count >= InfiniteLoopThreshold {
		counter.count = 0
		s.record(newIssue(InfiniteLoop, module, function, pc))
	}
}
