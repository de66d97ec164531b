/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: session.go
Description: Fuzzing session wiring. Connects the backend, the fuzzing state, the coverage
executor, the objective chain, coverage feedback and the composite mutator into one engine.
*/

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/analysis"
	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/execution"
	"github.com/kleascm/akaylee-move/pkg/reporting"
	"github.com/kleascm/akaylee-move/pkg/strategies"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// Session is a fully wired fuzzing run
type Session struct {
	Config    *core.Config
	State     *core.FuzzState
	Executor  *execution.CoverageExecutor
	Objective *analysis.ObjectiveChain
	Feedback  *analysis.CoverageFeedback
	Engine    *core.Engine

	logger logrus.FieldLogger
}

// NewSession loads the modules and builds every component of a fuzzing run
func NewSession(cfg *core.Config, backend vm.Backend, logger logrus.FieldLogger, statsOut io.Writer) (*Session, error) {
	sender, err := cfg.SenderAddress()
	if err != nil {
		return nil, err
	}
	state, err := core.InitState(core.StateOptions{
		ModulePath: cfg.ModulePath,
		Backend:    backend,
		Sender:     sender,
		Seed:       cfg.Seed,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize state: %w", err)
	}

	machine, err := backend.NewVM()
	if err != nil {
		return nil, fmt.Errorf("failed to create vm %q: %w", backend.Name, err)
	}
	executor := execution.NewCoverageExecutor(machine, state, logger)

	dedup := analysis.NewDedupService(state)
	objective := analysis.NewObjectiveChain(
		analysis.NewCrashObjective(dedup),
		analysis.NewAbortCodeObjective(dedup, executor.AbortCodeObserver(), state, cfg.AbortCodes),
		analysis.NewShiftOverflowObjective(dedup, executor.ShiftOverflowObserver(), state),
	)
	feedback := analysis.NewCoverageFeedback(state.Edges())
	mutator := strategies.NewCompositeMutator(state, logger)

	engine := core.NewEngine(cfg, state, executor, mutator, feedback, objective, logger)
	engine.AddReporter(core.NewLoggerReporter(logger))
	if statsOut != nil {
		engine.AddReporter(reporting.NewStatsReporter(statsOut))
	}

	return &Session{
		Config:    cfg,
		State:     state,
		Executor:  executor,
		Objective: objective,
		Feedback:  feedback,
		Engine:    engine,
		logger:    logger,
	}, nil
}

// Run fuzzes until stop is closed or the configured timeout passes.
// The in-flight execution always completes before the loop returns.
func (s *Session) Run(ctx context.Context, stop <-chan struct{}) error {
	var deadline <-chan time.Time
	if s.Config.Timeout > 0 {
		timer := time.NewTimer(s.Config.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-stop:
			s.logger.Info("Received interrupt signal, shutting down gracefully")
		case <-deadline:
			s.logger.WithField("timeout", s.Config.Timeout.String()).Info("Timeout reached, shutting down")
		case <-done:
			return
		}
		s.Engine.RequestStop()
	}()

	return s.Engine.Run(ctx)
}

// Report builds the final solution report, replaying solutions when configured
func (s *Session) Report(ctx context.Context) (*reporting.SolutionReport, error) {
	report := reporting.BuildReport(s.State, s.Engine.Stats())
	if s.Config.ReplayAttempts > 0 && len(report.Solutions) > 0 {
		harness := analysis.NewReproducibilityHarness(
			analysis.ReproducibilityConfig{MaxReproductionAttempts: s.Config.ReplayAttempts},
			s.Executor, s.State, s.logger)
		results, err := harness.ReplayAll(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to replay solutions: %w", err)
		}
		report.AttachReplays(results)
	}
	return report, nil
}

// WriteMetrics exports the final statistics under the configured metrics directory.
// Returns an empty path when no directory is configured.
func (s *Session) WriteMetrics() (string, error) {
	if s.Config.MetricsDir == "" {
		return "", nil
	}
	now := time.Now()
	stats := s.Engine.Stats()
	snap := reporting.TakeSnapshot(s.State, stats, now)
	name := filepath.Base(filepath.Clean(s.Config.ModulePath))
	return reporting.WriteMetrics(s.Config.MetricsDir, name, reporting.NewSessionMetrics(snap, stats, now))
}

// interruptChannel closes on SIGINT or SIGTERM
func interruptChannel() (<-chan struct{}, func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stop := make(chan struct{})
	go func() {
		if _, ok := <-sigChan; ok {
			close(stop)
		}
	}()
	return stop, func() {
		signal.Stop(sigChan)
		close(sigChan)
	}
}
