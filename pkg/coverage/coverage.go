/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: coverage.go
Description: AFL-style edge coverage for bytecode traces. A per-run hit-count map is rebuilt
for every execution; a cumulative map only ever gains bits and feeds reporting. Also provides
the stable base ids used to spread functions over the map and the path id fold over a trace.
*/

package coverage

import (
	"hash/fnv"

	"github.com/kleascm/akaylee-move/pkg/vm"
)

const (
	// MapSize is the number of edge slots; must be a power of two
	MapSize = 1 << 16
	// SegmentSize is the chunk size used for the coverage breakdown in stats
	SegmentSize = 4096

	fnvOffset64 uint64 = 0xcbf29ce484222325
	fnvPrime64  uint64 = 0x100000001b3
)

// EdgeMap holds the per-run and cumulative coverage maps
type EdgeMap struct {
	run        []uint8
	cumulative []uint8
	prevLoc    uint64
}

// NewEdgeMap creates empty maps of MapSize slots
func NewEdgeMap() *EdgeMap {
	return &EdgeMap{
		run:        make([]uint8, MapSize),
		cumulative: make([]uint8, MapSize),
	}
}

// Reset zeroes the per-run map and the previous-location register.
// The cumulative map is left untouched.
func (m *EdgeMap) Reset() {
	for i := range m.run {
		m.run[i] = 0
	}
	m.prevLoc = 0
}

// Record folds a pc trace into the maps. Every pc is mixed with baseID so that
// the same pc in different functions lands on different edges.
func (m *EdgeMap) Record(baseID uint64, trace []uint32) {
	for _, pc := range trace {
		cur := baseID ^ uint64(pc)
		edge := (cur ^ m.prevLoc) & (MapSize - 1)
		if m.run[edge] < 0xff {
			m.run[edge]++
		}
		m.cumulative[edge] = 1
		m.prevLoc = cur >> 1
	}
}

// Run returns the per-run hit-count map. The slice is owned by the map.
func (m *EdgeMap) Run() []uint8 { return m.run }

// Cumulative returns the cumulative map. The slice is owned by the map.
func (m *EdgeMap) Cumulative() []uint8 { return m.cumulative }

// Classify replaces the per-run hit counts with their AFL buckets
func (m *EdgeMap) Classify() {
	for i, c := range m.run {
		if c != 0 {
			m.run[i] = Bucket(c)
		}
	}
}

// RunEdges counts the edges hit by the current run
func (m *EdgeMap) RunEdges() int { return countNonZero(m.run) }

// CoveredEdges counts the edges hit by any run so far
func (m *EdgeMap) CoveredEdges() int { return countNonZero(m.cumulative) }

func countNonZero(b []uint8) int {
	n := 0
	for _, v := range b {
		if v != 0 {
			n++
		}
	}
	return n
}

// Bucket maps a raw hit count to its AFL class: 1, 2, 3, 4-7, 8-15, 16-31, 32-127, 128+
func Bucket(count uint8) uint8 {
	switch {
	case count == 0:
		return 0
	case count <= 2:
		return count
	case count == 3:
		return 4
	case count <= 7:
		return 8
	case count <= 15:
		return 16
	case count <= 31:
		return 32
	case count <= 127:
		return 64
	}
	return 128
}

// CoveredSegments splits a map into segmentSize chunks and counts the chunks with any hit
func CoveredSegments(m []uint8, segmentSize int) (covered, total int) {
	if segmentSize <= 0 {
		return 0, 0
	}
	total = (len(m) + segmentSize - 1) / segmentSize
	for start := 0; start < len(m); start += segmentSize {
		end := start + segmentSize
		if end > len(m) {
			end = len(m)
		}
		for _, v := range m[start:end] {
			if v != 0 {
				covered++
				break
			}
		}
	}
	return covered, total
}

// FunctionBaseID is the FNV-1a hash of address bytes, module name and function name
func FunctionBaseID(module vm.ModuleID, function string) uint64 {
	h := fnv.New64a()
	h.Write(module.Address[:])
	h.Write([]byte(module.Name))
	h.Write([]byte(function))
	return h.Sum64()
}

// ScriptBaseID is the FNV-1a hash of the script bytes
func ScriptBaseID(code []byte) uint64 {
	h := fnv.New64a()
	h.Write(code)
	return h.Sum64()
}

// PathID folds a trace into a path fingerprint, one FNV-1a round per 32-bit word.
// Equal traces always give equal ids.
func PathID(trace []uint32) uint64 {
	hash := fnvOffset64
	for _, pc := range trace {
		hash ^= uint64(pc)
		hash *= fnvPrime64
	}
	return hash
}
