/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: objectives.go
Description: Objectives deciding which executions are bugs: crashes, abort codes (optionally
restricted to an allow-list) and left shifts that lost high bits. Objectives run in a fixed
order and share one dedup service, so a path id fires at most one of them.
*/

package analysis

import (
	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// AbortCodeSource exposes the abort code of the last run
type AbortCodeSource interface {
	LastAbortCode() (uint64, bool)
}

// ShiftOverflowSource exposes the shift-overflow flag of the last run
type ShiftOverflowSource interface {
	ShiftOverflowed() bool
}

// AbortCodePathMarker records paths that fired the abort-code objective
type AbortCodePathMarker interface {
	MarkAbortCodePath(id uint64)
}

// ShiftOverflowPathMarker records paths that fired the shift-overflow objective
type ShiftOverflowPathMarker interface {
	MarkShiftOverflowPath(id uint64)
}

// CrashObjective fires on crashing runs
type CrashObjective struct {
	dedup *DedupService
}

// NewCrashObjective creates a crash objective
func NewCrashObjective(dedup *DedupService) *CrashObjective {
	return &CrashObjective{dedup: dedup}
}

func (o *CrashObjective) Name() string { return "CrashObjective" }

// IsInteresting implements interfaces.Feedback
func (o *CrashObjective) IsInteresting(input *interfaces.Input, exit interfaces.ExitKind) (bool, error) {
	if exit != interfaces.ExitCrash {
		return false, nil
	}
	return o.dedup.Claim(input).Fresh, nil
}

// AbortCodeObjective fires on aborts. With an empty allow-list every abort code counts.
type AbortCodeObjective struct {
	dedup   *DedupService
	source  AbortCodeSource
	marker  AbortCodePathMarker
	targets map[uint64]struct{}
}

// NewAbortCodeObjective creates an abort-code objective restricted to codes, if any
func NewAbortCodeObjective(dedup *DedupService, source AbortCodeSource, marker AbortCodePathMarker, codes []uint64) *AbortCodeObjective {
	targets := make(map[uint64]struct{}, len(codes))
	for _, c := range codes {
		targets[c] = struct{}{}
	}
	return &AbortCodeObjective{dedup: dedup, source: source, marker: marker, targets: targets}
}

func (o *AbortCodeObjective) Name() string { return "AbortCodeObjective" }

// IsInteresting implements interfaces.Feedback
func (o *AbortCodeObjective) IsInteresting(input *interfaces.Input, _ interfaces.ExitKind) (bool, error) {
	code, ok := o.source.LastAbortCode()
	if !ok {
		return false, nil
	}
	if len(o.targets) > 0 {
		if _, wanted := o.targets[code]; !wanted {
			return false, nil
		}
	}
	claim := o.dedup.Claim(input)
	if !claim.Fresh {
		return false, nil
	}
	if claim.HasPath && o.marker != nil {
		o.marker.MarkAbortCodePath(claim.PathID)
	}
	return true, nil
}

// ShiftOverflowObjective fires when a shift lost high bits
type ShiftOverflowObjective struct {
	dedup  *DedupService
	source ShiftOverflowSource
	marker ShiftOverflowPathMarker
}

// NewShiftOverflowObjective creates a shift-overflow objective
func NewShiftOverflowObjective(dedup *DedupService, source ShiftOverflowSource, marker ShiftOverflowPathMarker) *ShiftOverflowObjective {
	return &ShiftOverflowObjective{dedup: dedup, source: source, marker: marker}
}

func (o *ShiftOverflowObjective) Name() string { return "ShiftOverflowObjective" }

// IsInteresting implements interfaces.Feedback
func (o *ShiftOverflowObjective) IsInteresting(input *interfaces.Input, _ interfaces.ExitKind) (bool, error) {
	if !o.source.ShiftOverflowed() {
		return false, nil
	}
	claim := o.dedup.Claim(input)
	if !claim.Fresh {
		return false, nil
	}
	if claim.HasPath && o.marker != nil {
		o.marker.MarkShiftOverflowPath(claim.PathID)
	}
	return true, nil
}

// ObjectiveChain evaluates objectives in order and stops at the first that fires
type ObjectiveChain struct {
	objectives []interfaces.Feedback
	last       string
}

// NewObjectiveChain creates a chain; order is priority
func NewObjectiveChain(objectives ...interfaces.Feedback) *ObjectiveChain {
	return &ObjectiveChain{objectives: objectives}
}

func (c *ObjectiveChain) Name() string { return "ObjectiveChain" }

// IsInteresting implements interfaces.Feedback
func (c *ObjectiveChain) IsInteresting(input *interfaces.Input, exit interfaces.ExitKind) (bool, error) {
	c.last = ""
	for _, o := range c.objectives {
		hit, err := o.IsInteresting(input, exit)
		if err != nil {
			return false, err
		}
		if hit {
			c.last = o.Name()
			return true, nil
		}
	}
	return false, nil
}

// LastFired names the objective that fired on the last evaluation, empty if none
func (c *ObjectiveChain) LastFired() string { return c.last }
