/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: analyzer.go
Description: Coverage feedback for the Akaylee Move fuzzer. Buckets the per-run hit counts and
marks a run interesting when any edge reaches a bucket above its historical maximum.
*/

package analysis

import (
	"github.com/kleascm/akaylee-move/pkg/coverage"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// CoverageFeedback is a max-map feedback over the per-run edge map
type CoverageFeedback struct {
	edges   *coverage.EdgeMap
	history []uint8
	novel   int
}

// NewCoverageFeedback creates a feedback reading the given edge map
func NewCoverageFeedback(edges *coverage.EdgeMap) *CoverageFeedback {
	return &CoverageFeedback{
		edges:   edges,
		history: make([]uint8, coverage.MapSize),
	}
}

func (f *CoverageFeedback) Name() string { return "MaxMapFeedback" }

// IsInteresting implements interfaces.Feedback. The run map is classified in place.
func (f *CoverageFeedback) IsInteresting(_ *interfaces.Input, _ interfaces.ExitKind) (bool, error) {
	f.edges.Classify()
	f.novel = 0
	for i, v := range f.edges.Run() {
		if v > f.history[i] {
			f.history[i] = v
			f.novel++
		}
	}
	return f.novel > 0, nil
}

// NovelEdges returns how many slots improved on the last evaluation
func (f *CoverageFeedback) NovelEdges() int { return f.novel }

// MaxEdges counts the slots with a non-zero historical maximum
func (f *CoverageFeedback) MaxEdges() int {
	n := 0
	for _, v := range f.history {
		if v != 0 {
			n++
		}
	}
	return n
}
