/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reproducibility.go
Description: Reproducibility harness for solutions. Replays each solution through the executor
and checks that it follows the execution path recorded when it was found.
*/

package analysis

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// ReproducibilityResult is the replay verdict of one solution
type ReproducibilityResult struct {
	Input            *interfaces.Input
	PathID           uint64
	Attempts         int
	Reproduced       int
	ReproductionRate float64
	Reproducible     bool
	LastExit         interfaces.ExitKind
}

// ReproducibilityConfig configures the reproducibility harness
type ReproducibilityConfig struct {
	MaxReproductionAttempts int // Replays per solution
}

// ReproducibilityHarness replays solutions against the session state
type ReproducibilityHarness struct {
	config   ReproducibilityConfig
	executor interfaces.Executor
	state    *core.FuzzState
	logger   logrus.FieldLogger
}

// NewReproducibilityHarness creates a harness. Attempts default to 3.
func NewReproducibilityHarness(config ReproducibilityConfig, executor interfaces.Executor, state *core.FuzzState, logger logrus.FieldLogger) *ReproducibilityHarness {
	if config.MaxReproductionAttempts <= 0 {
		config.MaxReproductionAttempts = 3
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReproducibilityHarness{config: config, executor: executor, state: state, logger: logger}
}

// Replay re-executes one solution. Solutions without a recorded path cannot be checked.
func (h *ReproducibilityHarness) Replay(ctx context.Context, input *interfaces.Input) (*ReproducibilityResult, error) {
	record, ok := h.state.ExecutionPathFor(input)
	if !ok {
		return nil, fmt.Errorf("no execution path recorded for %s", input)
	}

	result := &ReproducibilityResult{Input: input, PathID: record.ID}
	for attempt := 1; attempt <= h.config.MaxReproductionAttempts; attempt++ {
		exit, err := h.executor.RunTarget(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to replay %s: %w", input, err)
		}
		result.Attempts++
		result.LastExit = exit
		if id, ok := h.state.CurrentExecutionPathID(); ok && id == record.ID {
			result.Reproduced++
		}
	}
	result.ReproductionRate = float64(result.Reproduced) / float64(result.Attempts)
	result.Reproducible = result.Reproduced == result.Attempts

	h.logger.WithFields(logrus.Fields{
		"input":      input.ID,
		"path":       fmt.Sprintf("%016x", record.ID),
		"reproduced": fmt.Sprintf("%d/%d", result.Reproduced, result.Attempts),
	}).Debug("Solution replayed")
	return result, nil
}

// ReplayAll replays every deduplicated solution of the session
func (h *ReproducibilityHarness) ReplayAll(ctx context.Context) ([]*ReproducibilityResult, error) {
	solutions := h.state.TakeSolutions()
	results := make([]*ReproducibilityResult, 0, len(solutions))
	for _, input := range solutions {
		r, err := h.Replay(ctx, input)
		if err != nil {
			return results, err
		}
		if !r.Reproducible {
			h.logger.WithFields(logrus.Fields{
				"input": input.ID,
				"rate":  r.ReproductionRate,
			}).Warn("Solution does not reproduce its recorded path")
		}
		results = append(results, r)
	}
	return results, nil
}
