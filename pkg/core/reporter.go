/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for Akaylee Move telemetry and live reporting.
Reporters are notified of executed inputs, corpus and solution additions, and periodic stats ticks.
*/

package core

import (
	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// Corpus names passed to OnInputAdded
const (
	CorpusMain      = "corpus"
	CorpusSolutions = "solutions"
)

// Reporter defines the interface for telemetry and reporting hooks.
// Allows the fuzzer to notify listeners of execution and corpus events.
type Reporter interface {
	// OnInputExecuted is called after an input ran through the executor
	OnInputExecuted(input *interfaces.Input, exit interfaces.ExitKind)
	// OnInputAdded is called when an input is stored in the corpus or the solutions
	OnInputAdded(input *interfaces.Input, corpus string)
	// OnStats is called every stats interval from the fuzzing loop
	OnStats(state *FuzzState, stats FuzzerStats)
}

// LoggerReporter logs execution and corpus events
type LoggerReporter struct {
	logger logrus.FieldLogger
}

// NewLoggerReporter creates a new LoggerReporter
func NewLoggerReporter(logger logrus.FieldLogger) *LoggerReporter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LoggerReporter{logger: logger}
}

// OnInputExecuted logs crashes at Warn and everything else at Debug
func (r *LoggerReporter) OnInputExecuted(input *interfaces.Input, exit interfaces.ExitKind) {
	fields := logrus.Fields{"input": input.ID, "exit": exit.String()}
	if exit == interfaces.ExitCrash {
		r.logger.WithFields(fields).Warn("Crash detected")
		return
	}
	r.logger.WithFields(fields).Debug("Input executed")
}

// OnInputAdded logs new corpus and solution entries
func (r *LoggerReporter) OnInputAdded(input *interfaces.Input, corpus string) {
	fields := logrus.Fields{"input": input.ID, "generation": input.Generation, "payload": input.String()}
	if corpus == CorpusSolutions {
		r.logger.WithFields(fields).Info("Objective found")
		return
	}
	r.logger.WithFields(fields).Debug("Input added to corpus")
}

// OnStats logs a compact progress record
func (r *LoggerReporter) OnStats(state *FuzzState, stats FuzzerStats) {
	r.logger.WithFields(logrus.Fields{
		"executions": stats.Executions,
		"corpus":     state.Corpus().Size(),
		"solutions":  state.Solutions().Size(),
		"edges":      state.Edges().CoveredEdges(),
		"skipped":    stats.Skipped,
	}).Debug("Fuzzer stats")
}
