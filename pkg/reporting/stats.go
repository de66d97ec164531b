/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: stats.go
Description: Live statistics for the Akaylee Move fuzzer. Renders the periodic two-line progress
report: run time, corpus and objective counts, execution rate, edge coverage, executed
instructions and the coverage segment breakdown.
*/

package reporting

import (
	"fmt"
	"io"
	"time"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/coverage"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// StatsSnapshot holds every figure printed by the live stats report
type StatsSnapshot struct {
	Elapsed         time.Duration
	Corpus          int
	Objectives      int
	Executions      int64
	CoveredEdges    int
	TotalEdges      int
	Instructions    uint64
	SegmentsCovered int
	SegmentsTotal   int
}

// TakeSnapshot collects the current figures of a session
func TakeSnapshot(state *core.FuzzState, stats core.FuzzerStats, now time.Time) StatsSnapshot {
	cumulative := state.Edges().Cumulative()
	covered, total := coverage.CoveredSegments(cumulative, coverage.SegmentSize)
	return StatsSnapshot{
		Elapsed:         now.Sub(stats.StartTime),
		Corpus:          state.Corpus().Size(),
		Objectives:      state.Solutions().Size(),
		Executions:      stats.Executions,
		CoveredEdges:    state.Edges().CoveredEdges(),
		TotalEdges:      state.TotalCodeLength(),
		Instructions:    state.TotalInstructions(),
		SegmentsCovered: covered,
		SegmentsTotal:   total,
	}
}

// ExecsPerSec returns the execution rate, 0 before any time has passed
func (s StatsSnapshot) ExecsPerSec() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Executions) / secs
}

func formatRate(rate float64) string {
	if rate >= 1000 {
		return fmt.Sprintf("%.3fk", rate/1000)
	}
	return fmt.Sprintf("%.0f", rate)
}

// Format renders the two report lines, newline terminated
func (s StatsSnapshot) Format() string {
	head := fmt.Sprintf("run time: %.0fs, clients: 1, corpus: %d, objectives: %d, executions: %d, exec/sec: %s, edges: ",
		s.Elapsed.Seconds(), s.Corpus, s.Objectives, s.Executions, formatRate(s.ExecsPerSec()))
	if s.TotalEdges > 0 {
		pct := float64(s.CoveredEdges) / float64(s.TotalEdges) * 100
		head += fmt.Sprintf("%d/%d (%.2f%%)", s.CoveredEdges, s.TotalEdges, pct)
	} else {
		head += fmt.Sprintf("%d discovered", s.CoveredEdges)
	}

	avg := 0.0
	if s.Executions > 0 {
		avg = float64(s.Instructions) / float64(s.Executions)
	}
	return fmt.Sprintf("%s\ninstrs: %d (avg %.1f/exec), segments: %d/%d\n",
		head, s.Instructions, avg, s.SegmentsCovered, s.SegmentsTotal)
}

// StatsReporter prints the live stats report on every stats tick
type StatsReporter struct {
	out io.Writer
	now func() time.Time
}

var _ core.Reporter = (*StatsReporter)(nil)

// NewStatsReporter creates a reporter writing to out
func NewStatsReporter(out io.Writer) *StatsReporter {
	return &StatsReporter{out: out, now: time.Now}
}

// OnInputExecuted implements core.Reporter
func (r *StatsReporter) OnInputExecuted(*interfaces.Input, interfaces.ExitKind) {}

// OnInputAdded implements core.Reporter
func (r *StatsReporter) OnInputAdded(*interfaces.Input, string) {}

// OnStats implements core.Reporter
func (r *StatsReporter) OnStats(state *core.FuzzState, stats core.FuzzerStats) {
	fmt.Fprint(r.out, TakeSnapshot(state, stats, r.now()).Format())
}
