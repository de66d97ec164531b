/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: objectives_test.go
Description: Tests for path deduplication, the objective chain and coverage feedback.
*/

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/coverage"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

type fakeAbort struct {
	code uint64
	ok   bool
}

func (f *fakeAbort) LastAbortCode() (uint64, bool) { return f.code, f.ok }

type fakeShift struct{ lost bool }

func (f *fakeShift) ShiftOverflowed() bool { return f.lost }

func input(b byte) *interfaces.Input {
	return interfaces.NewInput(&vm.EntryFunction{
		Module:   vm.ModuleID{Address: vm.AddressOne, Name: "m"},
		Function: "f",
		Args:     [][]byte{{b}},
	}, nil)
}

type fixture struct {
	state *core.FuzzState
	abort *fakeAbort
	shift *fakeShift
	chain *ObjectiveChain
}

func newFixture(codes ...uint64) *fixture {
	state := core.NewFuzzState(nil, nil, vm.AddressOne, 1)
	dedup := NewDedupService(state)
	f := &fixture{state: state, abort: &fakeAbort{}, shift: &fakeShift{}}
	f.chain = NewObjectiveChain(
		NewCrashObjective(dedup),
		NewAbortCodeObjective(dedup, f.abort, state, codes),
		NewShiftOverflowObjective(dedup, f.shift, state),
	)
	return f
}

func (f *fixture) run(t *testing.T, trace []uint32, in *interfaces.Input, exit interfaces.ExitKind) bool {
	t.Helper()
	f.state.SetCurrentExecutionPath(trace)
	hit, err := f.chain.IsInteresting(in, exit)
	require.NoError(t, err)
	return hit
}

func TestCrashObjectiveDeduplicatesPaths(t *testing.T) {
	f := newFixture()
	a := input(1)

	assert.True(t, f.run(t, []uint32{0, 1}, a, interfaces.ExitCrash))
	assert.Equal(t, "CrashObjective", f.chain.LastFired())
	assert.False(t, f.run(t, []uint32{0, 1}, input(2), interfaces.ExitCrash), "same path never fires twice")
	assert.Empty(t, f.chain.LastFired())
	assert.True(t, f.run(t, []uint32{0, 2}, input(3), interfaces.ExitCrash))

	rec, ok := f.state.ExecutionPathFor(a)
	require.True(t, ok)
	assert.Equal(t, coverage.PathID([]uint32{0, 1}), rec.ID)
	_, ok = f.state.ExecutionPathFor(input(2))
	assert.False(t, ok, "losing claims record no provenance")
}

func TestAbortCodeObjective(t *testing.T) {
	f := newFixture()
	assert.False(t, f.run(t, []uint32{1}, input(1), interfaces.ExitOk))

	f.abort.code, f.abort.ok = 13, true
	assert.True(t, f.run(t, []uint32{1}, input(1), interfaces.ExitOk))
	assert.Equal(t, "AbortCodeObjective", f.chain.LastFired())
	assert.True(t, f.state.IsAbortCodePath(coverage.PathID([]uint32{1})))
	assert.False(t, f.state.IsShiftOverflowPath(coverage.PathID([]uint32{1})))
}

func TestAbortCodeAllowList(t *testing.T) {
	f := newFixture(7, 9)
	f.abort.code, f.abort.ok = 13, true
	assert.False(t, f.run(t, []uint32{1}, input(1), interfaces.ExitOk))
	assert.False(t, f.state.HasSeenExecutionPath(coverage.PathID([]uint32{1})), "filtered codes do not consume the path")

	f.abort.code = 9
	assert.True(t, f.run(t, []uint32{1}, input(1), interfaces.ExitOk))
}

func TestShiftOverflowObjective(t *testing.T) {
	f := newFixture()
	f.shift.lost = true
	assert.True(t, f.run(t, []uint32{4, 5}, input(1), interfaces.ExitOk))
	assert.Equal(t, "ShiftOverflowObjective", f.chain.LastFired())
	assert.True(t, f.state.IsShiftOverflowPath(coverage.PathID([]uint32{4, 5})))
}

func TestOnePathSatisfiesOneObjective(t *testing.T) {
	f := newFixture()
	f.abort.code, f.abort.ok = 1, true
	f.shift.lost = true

	// the crash check consumes the path, later checks see it as seen
	assert.True(t, f.run(t, []uint32{3}, input(1), interfaces.ExitCrash))
	assert.Equal(t, "CrashObjective", f.chain.LastFired())
	id := coverage.PathID([]uint32{3})
	assert.False(t, f.state.IsAbortCodePath(id))
	assert.False(t, f.state.IsShiftOverflowPath(id))

	assert.False(t, f.run(t, []uint32{3}, input(2), interfaces.ExitOk))
}

func TestClaimWithoutPath(t *testing.T) {
	state := core.NewFuzzState(nil, nil, vm.AddressOne, 1)
	claim := NewDedupService(state).Claim(input(1))
	assert.True(t, claim.Fresh)
	assert.False(t, claim.HasPath)
}

func TestCoverageFeedbackMaxMap(t *testing.T) {
	edges := coverage.NewEdgeMap()
	fb := NewCoverageFeedback(edges)
	base := coverage.FunctionBaseID(vm.ModuleID{Address: vm.AddressOne, Name: "m"}, "f")

	edges.Record(base, []uint32{0, 1, 2})
	hit, err := fb.IsInteresting(nil, interfaces.ExitOk)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, fb.NovelEdges())

	edges.Reset()
	edges.Record(base, []uint32{0, 1, 2})
	hit, _ = fb.IsInteresting(nil, interfaces.ExitOk)
	assert.False(t, hit, "same hit counts are not new")

	// base 0 and pc 0 keep hitting edge 0, so only the hit count changes
	edges.Reset()
	edges.Record(0, []uint32{0, 0})
	hit, _ = fb.IsInteresting(nil, interfaces.ExitOk)
	assert.True(t, hit)

	edges.Reset()
	edges.Record(0, []uint32{0, 0, 0, 0})
	hit, _ = fb.IsInteresting(nil, interfaces.ExitOk)
	assert.True(t, hit, "a higher bucket is new")

	edges.Reset()
	edges.Record(0, []uint32{0, 0, 0})
	hit, _ = fb.IsInteresting(nil, interfaces.ExitOk)
	assert.False(t, hit, "a lower bucket is not")
	assert.GreaterOrEqual(t, fb.MaxEdges(), 3)
}
