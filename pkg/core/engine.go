/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Main fuzzer engine implementation. Drives the single-threaded feedback loop:
schedule a corpus entry, mutate it, execute the candidate, evaluate objectives before coverage
feedback and store the input in the solutions or the corpus. Stops on an external request.
*/

package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// Evaluation is the outcome of running one input through the executor and the feedbacks
type Evaluation struct {
	Exit        interfaces.ExitKind
	Objective   bool
	Interesting bool
	AddedTo     string
}

// Engine runs the fuzzing loop over a FuzzState
type Engine struct {
	config *Config
	state  *FuzzState
	stats  *FuzzerStats
	logger logrus.FieldLogger

	// Core components
	executor  interfaces.Executor
	mutator   interfaces.Mutator
	feedback  interfaces.Feedback
	objective interfaces.Feedback
	scheduler Scheduler
	reporters []Reporter

	stop          atomic.Bool
	lastStatsTime time.Time
}

// NewEngine creates a new fuzzer engine instance.
// feedback decides corpus admission, objective decides solutions; either may be nil.
func NewEngine(config *Config, state *FuzzState, executor interfaces.Executor, mutator interfaces.Mutator,
	feedback, objective interfaces.Feedback, logger logrus.FieldLogger) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{
		config:    config,
		state:     state,
		stats:     &FuzzerStats{StartTime: time.Now()},
		logger:    logger,
		executor:  executor,
		mutator:   mutator,
		feedback:  feedback,
		objective: objective,
		scheduler: NewQueueScheduler(),
	}
}

// AddReporter registers a Reporter for telemetry and live reporting
func (e *Engine) AddReporter(reporter Reporter) {
	e.reporters = append(e.reporters, reporter)
}

// SetScheduler replaces the default round-robin scheduler
func (e *Engine) SetScheduler(s Scheduler) {
	e.scheduler = s
}

// RequestStop asks the loop to stop after the current iteration. Safe from any goroutine.
func (e *Engine) RequestStop() {
	e.stop.Store(true)
}

// StopRequested reports whether a stop was requested
func (e *Engine) StopRequested() bool {
	return e.stop.Load()
}

// State returns the fuzzing state
func (e *Engine) State() *FuzzState { return e.state }

// Stats returns a snapshot of the fuzzer statistics
func (e *Engine) Stats() FuzzerStats {
	return e.stats.Snapshot()
}

// LoadInitialInputs re-evaluates the seeded corpus through the executor so seeds
// contribute coverage and can already hit objectives
func (e *Engine) LoadInitialInputs(ctx context.Context) error {
	seeds := e.state.TakeInitialInputs()
	for _, seed := range seeds {
		if _, err := e.EvaluateInput(ctx, seed, true); err != nil {
			return fmt.Errorf("failed to evaluate seed %s: %w", seed, err)
		}
	}
	e.logger.WithFields(logrus.Fields{
		"seeds":     len(seeds),
		"corpus":    e.state.Corpus().Size(),
		"solutions": e.state.Solutions().Size(),
	}).Info("Initial inputs loaded")
	return nil
}

// EvaluateInput executes an input and files it. Objectives are checked first; an
// objective-hitting input goes to the solutions only. Seeds always enter the corpus.
func (e *Engine) EvaluateInput(ctx context.Context, input *interfaces.Input, seed bool) (Evaluation, error) {
	e.stats.IncrementExecutions()

	// An in-flight VM call always completes; cancellation is observed between iterations.
	exit, err := e.executor.RunTarget(context.WithoutCancel(ctx), input)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to execute input: %w", err)
	}
	if exit == interfaces.ExitCrash {
		e.stats.IncrementCrashes()
	}
	for _, r := range e.reporters {
		r.OnInputExecuted(input, exit)
	}

	eval := Evaluation{Exit: exit}
	if e.objective != nil {
		eval.Objective, err = e.objective.IsInteresting(input, exit)
		if err != nil {
			return eval, fmt.Errorf("failed to evaluate objective %s: %w", e.objective.Name(), err)
		}
	}
	if eval.Objective {
		if _, added := e.state.Solutions().Add(input); added {
			e.stats.IncrementSolutions()
			eval.AddedTo = CorpusSolutions
			e.notifyAdded(input, CorpusSolutions)
		}
		if seed {
			e.addToCorpus(input)
		}
		return eval, nil
	}

	if e.feedback != nil {
		eval.Interesting, err = e.feedback.IsInteresting(input, exit)
		if err != nil {
			return eval, fmt.Errorf("failed to evaluate feedback %s: %w", e.feedback.Name(), err)
		}
	}
	if eval.Interesting || seed {
		if e.addToCorpus(input) {
			eval.AddedTo = CorpusMain
		}
	}
	return eval, nil
}

func (e *Engine) addToCorpus(input *interfaces.Input) bool {
	if _, added := e.state.Corpus().Add(input); added {
		e.notifyAdded(input, CorpusMain)
		return true
	}
	return false
}

func (e *Engine) notifyAdded(input *interfaces.Input, corpus string) {
	for _, r := range e.reporters {
		r.OnInputAdded(input, corpus)
	}
}

// FuzzOne runs one mutational stage on the next scheduled corpus entry
func (e *Engine) FuzzOne(ctx context.Context) error {
	idx, err := e.scheduler.Next(e.state.Corpus())
	if err != nil {
		return err
	}
	base := e.state.Corpus().Get(idx)

	rounds := 1 + e.state.Rand().Intn(max(1, e.config.MaxStageIterations))
	for i := 0; i < rounds; i++ {
		result, candidate, err := e.mutator.Mutate(base)
		if err != nil {
			return fmt.Errorf("failed to mutate input %s: %w", base.ID, err)
		}
		if result == interfaces.Skipped {
			e.stats.IncrementSkipped()
		} else if _, err := e.EvaluateInput(ctx, candidate, false); err != nil {
			return err
		}

		e.maybeReportStats()
		if e.StopRequested() || ctx.Err() != nil {
			break
		}
	}
	return nil
}

// Run loads the seeds and fuzzes until a stop is requested or ctx is done
func (e *Engine) Run(ctx context.Context) error {
	e.stats.StartTime = time.Now()
	e.lastStatsTime = e.stats.StartTime

	if err := e.LoadInitialInputs(ctx); err != nil {
		return err
	}
	if e.state.Corpus().Size() == 0 {
		return fmt.Errorf("failed to start fuzzing: %w", ErrEmptyCorpus)
	}

	e.logger.Info("Starting fuzzing loop")
	for !e.StopRequested() && ctx.Err() == nil {
		if err := e.FuzzOne(ctx); err != nil {
			e.logger.WithError(err).Error("Fuzzing loop aborted")
			e.reportStats()
			return err
		}
	}
	e.reportStats()

	snap := e.stats.Snapshot()
	e.logger.WithFields(logrus.Fields{
		"executions": snap.Executions,
		"solutions":  snap.Solutions,
		"elapsed":    time.Since(snap.StartTime).Round(time.Millisecond).String(),
	}).Info("Fuzzing stopped")
	return nil
}

func (e *Engine) maybeReportStats() {
	if time.Since(e.lastStatsTime) < e.config.StatsInterval {
		return
	}
	e.reportStats()
}

func (e *Engine) reportStats() {
	e.lastStatsTime = time.Now()
	snap := e.stats.Snapshot()
	for _, r := range e.reporters {
		r.OnStats(e.state, snap)
	}
}
