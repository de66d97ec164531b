/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: observers.go
Description: Side channels filled by the executor after every run: the edge coverage map, the
last abort code and the shift-overflow flag. Observers are registered by name so feedbacks
and objectives can look up the channel they consume.
*/

package execution

import (
	"fmt"

	"github.com/kleascm/akaylee-move/pkg/coverage"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// Observer names
const (
	EdgeObserverName          = "EdgeObserver"
	AbortCodeObserverName     = "AbortCodeObserver"
	ShiftOverflowObserverName = "ShiftOverflowObserver"
)

// RunInfo is what observers see after a run
type RunInfo struct {
	Input     *interfaces.Input
	Execution *vm.Execution
	BaseID    uint64
}

// Observer is a named side channel reset before and filled after each run
type Observer interface {
	Name() string
	PreExec()
	PostExec(run *RunInfo)
}

// ObserverSet is an ordered registry of observers addressable by name
type ObserverSet struct {
	order  []Observer
	byName map[string]Observer
}

// NewObserverSet registers observers in order. Duplicate names are rejected.
func NewObserverSet(observers ...Observer) (*ObserverSet, error) {
	set := &ObserverSet{byName: make(map[string]Observer)}
	for _, o := range observers {
		if err := set.Add(o); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// Add registers one observer
func (s *ObserverSet) Add(o Observer) error {
	if _, dup := s.byName[o.Name()]; dup {
		return fmt.Errorf("observer %q already registered", o.Name())
	}
	s.order = append(s.order, o)
	s.byName[o.Name()] = o
	return nil
}

// Get looks up an observer by name
func (s *ObserverSet) Get(name string) (Observer, bool) {
	o, ok := s.byName[name]
	return o, ok
}

// All returns the observers in registration order
func (s *ObserverSet) All() []Observer { return s.order }

func (s *ObserverSet) preExec() {
	for _, o := range s.order {
		o.PreExec()
	}
}

func (s *ObserverSet) postExec(run *RunInfo) {
	for _, o := range s.order {
		o.PostExec(run)
	}
}

// EdgeObserver records the trace into an edge map
type EdgeObserver struct {
	edges *coverage.EdgeMap
}

// NewEdgeObserver wraps an edge map, usually the session's
func NewEdgeObserver(edges *coverage.EdgeMap) *EdgeObserver {
	return &EdgeObserver{edges: edges}
}

func (o *EdgeObserver) Name() string { return EdgeObserverName }

// PreExec zeroes the per-run map and the previous location
func (o *EdgeObserver) PreExec() { o.edges.Reset() }

// PostExec records the run's trace
func (o *EdgeObserver) PostExec(run *RunInfo) {
	o.edges.Record(run.BaseID, run.Execution.Trace)
}

// Map returns the underlying edge map
func (o *EdgeObserver) Map() *coverage.EdgeMap { return o.edges }

// AbortCodeObserver keeps the abort code of the last run
type AbortCodeObserver struct {
	code  uint64
	valid bool
}

func NewAbortCodeObserver() *AbortCodeObserver { return &AbortCodeObserver{} }

func (o *AbortCodeObserver) Name() string { return AbortCodeObserverName }

func (o *AbortCodeObserver) PreExec() { o.code, o.valid = 0, false }

func (o *AbortCodeObserver) PostExec(run *RunInfo) {
	o.code, o.valid = run.Execution.AbortCode()
}

// LastAbortCode returns the abort code of the last run, if it aborted
func (o *AbortCodeObserver) LastAbortCode() (uint64, bool) { return o.code, o.valid }

// ShiftOverflowObserver flags runs where a left shift lost high bits
type ShiftOverflowObserver struct {
	lost bool
}

func NewShiftOverflowObserver() *ShiftOverflowObserver { return &ShiftOverflowObserver{} }

func (o *ShiftOverflowObserver) Name() string { return ShiftOverflowObserverName }

func (o *ShiftOverflowObserver) PreExec() { o.lost = false }

func (o *ShiftOverflowObserver) PostExec(run *RunInfo) {
	o.lost = false
	for _, lost := range run.Execution.ShiftLosses {
		if lost {
			o.lost = true
			return
		}
	}
}

// ShiftOverflowed reports whether the last run lost bits in a shift
func (o *ShiftOverflowObserver) ShiftOverflowed() bool { return o.lost }
