/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: dedup.go
Description: Process-wide execution path deduplication shared by every objective. A path id
may fire at most one objective check, the first time it is claimed.
*/

package analysis

import (
	"github.com/kleascm/akaylee-move/pkg/interfaces"
)

// PathTracker is the path bookkeeping the dedup service works against
type PathTracker interface {
	CurrentExecutionPathID() (uint64, bool)
	MarkExecutionPathSeen(id uint64) bool
	RecordCurrentExecutionPathFor(input *interfaces.Input) (uint64, bool)
}

// Claim is the outcome of claiming the current path
type Claim struct {
	PathID  uint64
	HasPath bool
	Fresh   bool
}

// DedupService owns the check-and-insert of path ids
type DedupService struct {
	paths PathTracker
}

// NewDedupService creates a dedup service over a path tracker
func NewDedupService(paths PathTracker) *DedupService {
	return &DedupService{paths: paths}
}

// Claim marks the current path as seen. A fresh claim records the input as the path's
// provenance. Without a current path the claim is fresh and nothing is recorded.
func (d *DedupService) Claim(input *interfaces.Input) Claim {
	id, ok := d.paths.CurrentExecutionPathID()
	if !ok {
		return Claim{Fresh: true}
	}
	if !d.paths.MarkExecutionPathSeen(id) {
		return Claim{PathID: id, HasPath: true}
	}
	d.paths.RecordCurrentExecutionPathFor(input)
	return Claim{PathID: id, HasPath: true, Fresh: true}
}
