/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine_test.go
Description: Tests for the fuzzing loop: seed evaluation, objective-before-feedback ordering,
skipped mutations, round-robin scheduling, reporters and stop requests.
*/

package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

type stubExecutor struct {
	exit  func(*interfaces.Input) interfaces.ExitKind
	err   error
	calls int
}

func (s *stubExecutor) RunTarget(_ context.Context, in *interfaces.Input) (interfaces.ExitKind, error) {
	s.calls++
	if s.err != nil {
		return interfaces.ExitOk, s.err
	}
	if s.exit == nil {
		return interfaces.ExitOk, nil
	}
	return s.exit(in), nil
}

type stubFeedback struct {
	name   string
	decide func(*interfaces.Input, interfaces.ExitKind) bool
	calls  int
}

func (s *stubFeedback) IsInteresting(in *interfaces.Input, exit interfaces.ExitKind) (bool, error) {
	s.calls++
	return s.decide(in, exit), nil
}

func (s *stubFeedback) Name() string { return s.name }

// counterMutator appends an increasing byte to the first argument
type counterMutator struct {
	next byte
	skip bool
	seen []*interfaces.Input
}

func (m *counterMutator) Mutate(in *interfaces.Input) (interfaces.MutationResult, *interfaces.Input, error) {
	m.seen = append(m.seen, in)
	if m.skip {
		return interfaces.Skipped, nil, nil
	}
	m.next++
	p := in.Payload.(*vm.EntryFunction).Clone()
	p.Args = [][]byte{{m.next}}
	return interfaces.Mutated, in.Derive(p, nil), nil
}

func (m *counterMutator) Name() string { return "counter" }

type recordingReporter struct {
	executed int
	added    map[string]int
	stats    int
}

func (r *recordingReporter) OnInputExecuted(*interfaces.Input, interfaces.ExitKind) { r.executed++ }
func (r *recordingReporter) OnInputAdded(_ *interfaces.Input, corpus string)        { r.added[corpus]++ }
func (r *recordingReporter) OnStats(*FuzzState, FuzzerStats)                        { r.stats++ }

func isCrashArg(in *interfaces.Input) bool {
	args := in.Payload.(*vm.EntryFunction).Args
	return len(args) == 1 && len(args[0]) == 1 && args[0][0] == 0xff
}

func newTestEngine(exec *stubExecutor, mut interfaces.Mutator, feedback, objective interfaces.Feedback) *Engine {
	cfg := DefaultConfig()
	cfg.MaxStageIterations = 4
	cfg.StatsInterval = time.Hour
	logger, _ := quietLogger()
	state := NewFuzzState(nil, nil, vm.AddressOne, 3)
	return NewEngine(cfg, state, exec, mut, feedback, objective, logger)
}

func TestEvaluateInputObjectiveBeforeFeedback(t *testing.T) {
	exec := &stubExecutor{exit: func(in *interfaces.Input) interfaces.ExitKind {
		if isCrashArg(in) {
			return interfaces.ExitCrash
		}
		return interfaces.ExitOk
	}}
	feedback := &stubFeedback{name: "always", decide: func(*interfaces.Input, interfaces.ExitKind) bool { return true }}
	objective := &stubFeedback{name: "crash", decide: func(_ *interfaces.Input, exit interfaces.ExitKind) bool {
		return exit == interfaces.ExitCrash
	}}
	engine := newTestEngine(exec, &counterMutator{}, feedback, objective)
	reporter := &recordingReporter{added: map[string]int{}}
	engine.AddReporter(reporter)
	ctx := context.Background()

	eval, err := engine.EvaluateInput(ctx, entryInput([]byte{0xff}), false)
	require.NoError(t, err)
	assert.True(t, eval.Objective)
	assert.Equal(t, CorpusSolutions, eval.AddedTo)
	assert.Equal(t, 0, feedback.calls, "feedback is skipped once an objective fired")
	assert.Equal(t, 0, engine.State().Corpus().Size())
	assert.Equal(t, 1, engine.State().Solutions().Size())

	eval, err = engine.EvaluateInput(ctx, entryInput([]byte{1}), false)
	require.NoError(t, err)
	assert.False(t, eval.Objective)
	assert.True(t, eval.Interesting)
	assert.Equal(t, CorpusMain, eval.AddedTo)

	// seeds hitting an objective are kept in both
	_, err = engine.EvaluateInput(ctx, entryInput([]byte{0xff}, []byte{0}), true)
	require.NoError(t, err)
	seedCrash := interfaces.NewInput(&vm.EntryFunction{Module: coinID, Function: "mint", Args: [][]byte{{0xff}}}, nil)
	_, err = engine.EvaluateInput(ctx, seedCrash, true)
	require.NoError(t, err)
	assert.True(t, engine.State().Corpus().Contains(seedCrash))

	stats := engine.Stats()
	assert.Equal(t, int64(4), stats.Executions)
	assert.Equal(t, int64(2), stats.Crashes)
	assert.Equal(t, int64(1), stats.Solutions, "equal solutions are stored once")
	assert.Equal(t, 4, reporter.executed)
	assert.Equal(t, 1, reporter.added[CorpusSolutions])
}

func TestEvaluateInputExecutorError(t *testing.T) {
	exec := &stubExecutor{err: errors.New("vm exploded")}
	engine := newTestEngine(exec, &counterMutator{}, nil, nil)
	_, err := engine.EvaluateInput(context.Background(), entryInput(), false)
	assert.ErrorContains(t, err, "vm exploded")
}

func TestLoadInitialInputsAddsSeeds(t *testing.T) {
	exec := &stubExecutor{}
	never := &stubFeedback{name: "never", decide: func(*interfaces.Input, interfaces.ExitKind) bool { return false }}
	engine := newTestEngine(exec, &counterMutator{}, never, never)
	engine.State().Corpus().Add(entryInput([]byte{1}))
	engine.State().Corpus().Add(entryInput([]byte{2}))

	require.NoError(t, engine.LoadInitialInputs(context.Background()))
	assert.Equal(t, 2, exec.calls)
	assert.Equal(t, 2, engine.State().Corpus().Size(), "seeds are kept even when uninteresting")
}

func TestFuzzOneRoundRobin(t *testing.T) {
	exec := &stubExecutor{}
	never := &stubFeedback{name: "never", decide: func(*interfaces.Input, interfaces.ExitKind) bool { return false }}
	mut := &counterMutator{}
	engine := newTestEngine(exec, mut, never, never)
	a, b := entryInput([]byte{1}), entryInput([]byte{2})
	engine.State().Corpus().Add(a)
	engine.State().Corpus().Add(b)

	ctx := context.Background()
	require.NoError(t, engine.FuzzOne(ctx))
	require.NoError(t, engine.FuzzOne(ctx))
	require.NoError(t, engine.FuzzOne(ctx))

	require.NotEmpty(t, mut.seen)
	assert.Equal(t, a.ID, mut.seen[0].ID)
	var order []string
	for _, in := range mut.seen {
		if len(order) == 0 || order[len(order)-1] != in.ID {
			order = append(order, in.ID)
		}
	}
	assert.Equal(t, []string{a.ID, b.ID, a.ID}, order)
	assert.Equal(t, len(mut.seen), exec.calls)
	assert.LessOrEqual(t, len(mut.seen), 3*4)
}

func TestFuzzOneSkippedAndEmpty(t *testing.T) {
	exec := &stubExecutor{}
	engine := newTestEngine(exec, &counterMutator{skip: true}, nil, nil)
	assert.ErrorIs(t, engine.FuzzOne(context.Background()), ErrEmptyCorpus)

	engine.State().Corpus().Add(entryInput([]byte{1}))
	require.NoError(t, engine.FuzzOne(context.Background()))
	assert.Equal(t, 0, exec.calls)
	assert.Positive(t, engine.Stats().Skipped)
}

func TestRunStopsOnRequest(t *testing.T) {
	exec := &stubExecutor{}
	always := &stubFeedback{name: "always", decide: func(*interfaces.Input, interfaces.ExitKind) bool { return true }}
	engine := newTestEngine(exec, &counterMutator{}, always, nil)
	reporter := &recordingReporter{added: map[string]int{}}
	engine.AddReporter(reporter)
	engine.State().Corpus().Add(entryInput([]byte{1}))

	exec.exit = func(*interfaces.Input) interfaces.ExitKind {
		if exec.calls >= 20 {
			engine.RequestStop()
		}
		return interfaces.ExitOk
	}

	require.NoError(t, engine.Run(context.Background()))
	assert.True(t, engine.StopRequested())
	assert.GreaterOrEqual(t, exec.calls, 20)
	assert.Equal(t, 1, reporter.stats, "final stats are always reported")
}

func TestRunRequiresSeeds(t *testing.T) {
	engine := newTestEngine(&stubExecutor{}, &counterMutator{}, nil, nil)
	assert.ErrorIs(t, engine.Run(context.Background()), ErrEmptyCorpus)
}

func TestRunStopsOnContext(t *testing.T) {
	exec := &stubExecutor{}
	engine := newTestEngine(exec, &counterMutator{}, nil, nil)
	engine.State().Corpus().Add(entryInput([]byte{1}))

	ctx, cancel := context.WithCancel(context.Background())
	exec.exit = func(*interfaces.Input) interfaces.ExitKind {
		if exec.calls >= 5 {
			cancel()
		}
		return interfaces.ExitOk
	}
	require.NoError(t, engine.Run(ctx))
	assert.GreaterOrEqual(t, exec.calls, 5)
}
