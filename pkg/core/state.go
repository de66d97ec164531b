/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: state.go
Description: Fuzzing session state. Owns the corpus and solutions, the deployed world state,
the public function catalog, cumulative coverage and the execution path bookkeeping used by
objective deduplication and the final report. Owned by the single fuzzing goroutine.
*/

package core

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kleascm/akaylee-move/pkg/coverage"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// StateOptions configures InitState
type StateOptions struct {
	ModulePath string
	Backend    vm.Backend
	Sender     vm.AccountAddress
	Seed       int64
	Logger     logrus.FieldLogger
}

// FuzzState is the mutable state of one fuzzing session
type FuzzState struct {
	rng       *rand.Rand
	corpus    *Corpus
	solutions *Corpus
	world     vm.WorldState
	compiler  vm.SequenceCompiler
	sender    vm.AccountAddress

	catalog         []PublicFunctionTarget
	catalogIndex    map[string]int
	targetModules   []vm.ModuleID
	totalCodeLength int

	edges             *coverage.EdgeMap
	totalInstructions uint64

	currentPath    []uint32
	currentPathID  uint64
	hasCurrentPath bool

	seenPaths          map[uint64]struct{}
	pathsByInput       map[string]*ExecutionPathRecord
	abortCodePaths     map[uint64]struct{}
	shiftOverflowPaths map[uint64]struct{}

	logger logrus.FieldLogger
}

// NewFuzzState creates an empty state around a world and compiler
func NewFuzzState(world vm.WorldState, compiler vm.SequenceCompiler, sender vm.AccountAddress, seed int64) *FuzzState {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if world == nil {
		world = vm.NewMemoryWorld()
	}
	return &FuzzState{
		rng:                rand.New(rand.NewSource(seed)),
		corpus:             NewCorpus(),
		solutions:          NewCorpus(),
		world:              world,
		compiler:           compiler,
		sender:             sender,
		catalogIndex:       make(map[string]int),
		edges:              coverage.NewEdgeMap(),
		seenPaths:          make(map[uint64]struct{}),
		pathsByInput:       make(map[string]*ExecutionPathRecord),
		abortCodePaths:     make(map[uint64]struct{}),
		shiftOverflowPaths: make(map[uint64]struct{}),
		logger:             logrus.StandardLogger(),
	}
}

// InitState loads, deploys and catalogs every module under the module path and seeds
// the corpus
func InitState(opts StateOptions) (*FuzzState, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Backend.Decoder == nil {
		return nil, fmt.Errorf("backend %q has no module decoder", opts.Backend.Name)
	}

	loaded, err := LoadModules(opts.ModulePath, opts.Backend.Decoder, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoModules, opts.ModulePath)
	}

	state := NewFuzzState(opts.Backend.World(), opts.Backend.Compiler, opts.Sender, opts.Seed)
	state.logger = logger
	for _, m := range loaded {
		if err := state.Deploy(m); err != nil {
			return nil, err
		}
	}
	seeded := state.SeedCorpus()

	logger.WithFields(logrus.Fields{
		"modules":   len(loaded),
		"functions": len(state.catalog),
		"seeds":     seeded,
	}).Info("Fuzzing state initialized")
	return state, nil
}

// Deploy publishes a module into the world state and adds its public functions to the catalog
func (s *FuzzState) Deploy(m LoadedModule) error {
	if err := s.world.DeployModule(m.ID, m.Code); err != nil {
		return fmt.Errorf("failed to deploy module %s: %w", m.ID, err)
	}
	s.targetModules = append(s.targetModules, m.ID)
	for _, def := range m.Module.Functions {
		s.totalCodeLength += def.CodeLength
	}
	for _, f := range ExtractPublicFunctions(m.Module) {
		s.catalogIndex[f.Key()] = len(s.catalog)
		s.catalog = append(s.catalog, f)
	}
	return nil
}

// SeedCorpus adds one default-argument call per seedable entry function plus the empty
// script seed. Returns the number of seeds added.
func (s *FuzzState) SeedCorpus() int {
	added := 0
	for i := range s.catalog {
		payload, ok := EntrySeed(&s.catalog[i])
		if !ok {
			if s.catalog[i].IsEntry {
				s.logger.WithField("function", s.catalog[i].Key()).Debug("Entry function has no default arguments, not seeded")
			}
			continue
		}
		if _, ok := s.corpus.Add(interfaces.NewInput(payload, nil)); ok {
			added++
		}
	}
	if script := EmptyScriptSeed(s.compiler, s.world.Modules()); script != nil {
		if _, ok := s.corpus.Add(script); ok {
			added++
		}
	}
	return added
}

// TakeInitialInputs drains the seeded corpus so seeds can be re-evaluated through the executor
func (s *FuzzState) TakeInitialInputs() []*interfaces.Input {
	return s.corpus.Drain()
}

// Rand returns the session RNG
func (s *FuzzState) Rand() *rand.Rand { return s.rng }

// Corpus returns the working corpus
func (s *FuzzState) Corpus() *Corpus { return s.corpus }

// Solutions returns the solution corpus
func (s *FuzzState) Solutions() *Corpus { return s.solutions }

// World returns the deployed world state
func (s *FuzzState) World() vm.WorldState { return s.world }

// Compiler returns the sequence compiler, nil when the backend has none
func (s *FuzzState) Compiler() vm.SequenceCompiler { return s.compiler }

// Sender returns the transaction sender
func (s *FuzzState) Sender() vm.AccountAddress { return s.sender }

// Catalog returns the public function catalog in discovery order
func (s *FuzzState) Catalog() []PublicFunctionTarget { return s.catalog }

// TargetModules returns the deployed module ids in load order
func (s *FuzzState) TargetModules() []vm.ModuleID { return s.targetModules }

// TotalCodeLength is the summed instruction count of every loaded function, 0 when unknown
func (s *FuzzState) TotalCodeLength() int { return s.totalCodeLength }

// LookupFunction resolves a catalog function by module and name
func (s *FuzzState) LookupFunction(module vm.ModuleID, name string) (*PublicFunctionTarget, bool) {
	idx, ok := s.catalogIndex[functionKey(module, name)]
	if !ok {
		return nil, false
	}
	return &s.catalog[idx], true
}

// Edges returns the coverage map shared with the executor
func (s *FuzzState) Edges() *coverage.EdgeMap { return s.edges }

// AddInstructions accumulates executed instructions
func (s *FuzzState) AddInstructions(n int) {
	s.totalInstructions += uint64(n)
}

// TotalInstructions returns the executed instruction count across the session
func (s *FuzzState) TotalInstructions() uint64 { return s.totalInstructions }

// SetCurrentExecutionPath caches the trace of the last run and its path id
func (s *FuzzState) SetCurrentExecutionPath(trace []uint32) uint64 {
	s.currentPath = trace
	s.currentPathID = coverage.PathID(trace)
	s.hasCurrentPath = true
	return s.currentPathID
}

// ClearCurrentExecutionPath forgets the last run's path
func (s *FuzzState) ClearCurrentExecutionPath() {
	s.currentPath = nil
	s.currentPathID = 0
	s.hasCurrentPath = false
}

// CurrentExecutionPathID returns the path id of the last run
func (s *FuzzState) CurrentExecutionPathID() (uint64, bool) {
	return s.currentPathID, s.hasCurrentPath
}

// MarkExecutionPathSeen inserts id into the seen set and reports whether it was new
func (s *FuzzState) MarkExecutionPathSeen(id uint64) bool {
	if _, seen := s.seenPaths[id]; seen {
		return false
	}
	s.seenPaths[id] = struct{}{}
	return true
}

// HasSeenExecutionPath reports whether id was ever marked
func (s *FuzzState) HasSeenExecutionPath(id uint64) bool {
	_, seen := s.seenPaths[id]
	return seen
}

// RecordCurrentExecutionPathFor binds the current path to input unless the input already
// has one. Returns the current path id.
func (s *FuzzState) RecordCurrentExecutionPathFor(input *interfaces.Input) (uint64, bool) {
	if !s.hasCurrentPath {
		return 0, false
	}
	key := input.Key()
	if _, exists := s.pathsByInput[key]; !exists {
		s.pathsByInput[key] = &ExecutionPathRecord{
			ID:    s.currentPathID,
			Path:  append([]uint32(nil), s.currentPath...),
			Input: input,
		}
	}
	return s.currentPathID, true
}

// ExecutionPathFor returns the recorded provenance of an input
func (s *FuzzState) ExecutionPathFor(input *interfaces.Input) (*ExecutionPathRecord, bool) {
	rec, ok := s.pathsByInput[input.Key()]
	return rec, ok
}

// MarkAbortCodePath records that a path fired the abort-code objective
func (s *FuzzState) MarkAbortCodePath(id uint64) { s.abortCodePaths[id] = struct{}{} }

// MarkShiftOverflowPath records that a path fired the shift-overflow objective
func (s *FuzzState) MarkShiftOverflowPath(id uint64) { s.shiftOverflowPaths[id] = struct{}{} }

// IsAbortCodePath reports abort-code objective membership
func (s *FuzzState) IsAbortCodePath(id uint64) bool {
	_, ok := s.abortCodePaths[id]
	return ok
}

// IsShiftOverflowPath reports shift-overflow objective membership
func (s *FuzzState) IsShiftOverflowPath(id uint64) bool {
	_, ok := s.shiftOverflowPaths[id]
	return ok
}

// TakeSolutions returns one solution per distinct recorded path id, in insertion order.
// Solutions without a recorded path are left out.
func (s *FuzzState) TakeSolutions() []*interfaces.Input {
	seen := make(map[uint64]struct{})
	var out []*interfaces.Input
	for _, input := range s.solutions.GetAll() {
		rec, ok := s.pathsByInput[input.Key()]
		if !ok {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		out = append(out, input)
	}
	return out
}
