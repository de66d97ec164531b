/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics.go
Description: Session metrics export. Writes the final statistics of a run as a timestamped JSON
file so runs can be compared across versions of the target modules.
*/

package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kleascm/akaylee-move/pkg/core"
)

// SessionMetrics is the JSON body written by WriteMetrics
type SessionMetrics struct {
	FinishedAt      time.Time `json:"finished_at"`
	ElapsedSeconds  float64   `json:"elapsed_seconds"`
	Executions      int64     `json:"executions"`
	ExecsPerSec     float64   `json:"execs_per_sec"`
	Crashes         int64     `json:"crashes"`
	Skipped         int64     `json:"skipped"`
	Corpus          int       `json:"corpus"`
	Objectives      int       `json:"objectives"`
	CoveredEdges    int       `json:"covered_edges"`
	TotalEdges      int       `json:"total_edges"`
	Instructions    uint64    `json:"instructions"`
	SegmentsCovered int       `json:"segments_covered"`
	SegmentsTotal   int       `json:"segments_total"`
}

// NewSessionMetrics combines a stats snapshot with the engine counters
func NewSessionMetrics(snap StatsSnapshot, stats core.FuzzerStats, finishedAt time.Time) SessionMetrics {
	return SessionMetrics{
		FinishedAt:      finishedAt,
		ElapsedSeconds:  snap.Elapsed.Seconds(),
		Executions:      snap.Executions,
		ExecsPerSec:     snap.ExecsPerSec(),
		Crashes:         stats.Crashes,
		Skipped:         stats.Skipped,
		Corpus:          snap.Corpus,
		Objectives:      snap.Objectives,
		CoveredEdges:    snap.CoveredEdges,
		TotalEdges:      snap.TotalEdges,
		Instructions:    snap.Instructions,
		SegmentsCovered: snap.SegmentsCovered,
		SegmentsTotal:   snap.SegmentsTotal,
	}
}

// WriteMetrics writes m under dir as <timestamp>_<name>.json and returns the file path
func WriteMetrics(dir, name string, m SessionMetrics) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}

	// e.g. 2024-06-11_01-30-00_coin.json
	filename := fmt.Sprintf("%s_%s.json", m.FinishedAt.Format("2006-01-02_15-04-05"), name)
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics file: %w", err)
	}
	return path, nil
}
