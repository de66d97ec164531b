/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types for the Akaylee Move fuzzing engine. Defines the session configuration,
the public function catalog entries, execution path records and fuzzer statistics.
*/

package core

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

var (
	// ErrNoModules is returned when a module directory yields no loadable module
	ErrNoModules = errors.New("no modules loaded")
	// ErrEmptyCorpus is returned when the scheduler has nothing to pick
	ErrEmptyCorpus = errors.New("corpus is empty")
)

// Config contains all configuration parameters for a fuzzing session.
// Supports both command-line flags and configuration files.
type Config struct {
	ModulePath         string        `json:"module_path"`          // Directory of compiled modules
	Backend            string        `json:"vm"`                   // Registered VM backend name
	Sender             string        `json:"sender"`               // Transaction sender address
	Timeout            time.Duration `json:"timeout"`              // Wall-clock budget, 0 = unbounded
	Seed               int64         `json:"seed"`                 // RNG seed, 0 = time based
	AbortCodes         []uint64      `json:"abort_codes"`          // Abort codes treated as bugs, empty = any
	StatsInterval      time.Duration `json:"stats_interval"`       // Live stats period
	ReportOut          string        `json:"report_out"`           // YAML solution report path
	MetricsDir         string        `json:"metrics_dir"`          // Directory for the final JSON metrics, empty = off
	MaxStageIterations int           `json:"max_stage_iterations"` // Upper bound of mutations per scheduled input
	ReplayAttempts     int           `json:"replay_attempts"`      // Replays per solution after fuzzing, 0 = off

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	LogFile   string `json:"log_file"`
}

// DefaultConfig returns a configuration with defaults filled in
func DefaultConfig() *Config {
	return &Config{
		Sender:             "0x1",
		StatsInterval:      500 * time.Millisecond,
		MaxStageIterations: 128,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.ModulePath == "" {
		return fmt.Errorf("module path is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("stats interval must be positive: %s", c.StatsInterval)
	}
	if c.MaxStageIterations <= 0 {
		return fmt.Errorf("max stage iterations must be positive: %d", c.MaxStageIterations)
	}
	if c.ReplayAttempts < 0 {
		return fmt.Errorf("replay attempts must not be negative: %d", c.ReplayAttempts)
	}
	if _, err := c.SenderAddress(); err != nil {
		return err
	}
	return nil
}

// SenderAddress parses the configured sender, defaulting to 0x1
func (c *Config) SenderAddress() (vm.AccountAddress, error) {
	if c.Sender == "" {
		return vm.AddressOne, nil
	}
	addr, err := vm.ParseAddress(c.Sender)
	if err != nil {
		return vm.AccountAddress{}, fmt.Errorf("invalid sender: %w", err)
	}
	return addr, nil
}

// ParamKind classifies a catalog function parameter
type ParamKind int

const (
	ParamValue ParamKind = iota
	ParamSigner
)

// FunctionParam is one parameter of a public function
type FunctionParam struct {
	Kind ParamKind  `json:"kind" yaml:"kind"`
	Type vm.TypeTag `json:"type" yaml:"type"`
}

func (p FunctionParam) String() string {
	if p.Kind == ParamSigner {
		return "signer"
	}
	return p.Type.String()
}

// PublicFunctionTarget is a callable function extracted from loaded bytecode
type PublicFunctionTarget struct {
	Module     vm.ModuleID
	Name       string
	Params     []FunctionParam
	Returns    []vm.TypeTag
	IsEntry    bool
	CodeLength int
}

// Key renders "0x<addr>::<module>::<function>"
func (f *PublicFunctionTarget) Key() string {
	return functionKey(f.Module, f.Name)
}

// HasSigner reports whether any parameter needs a signer
func (f *PublicFunctionTarget) HasSigner() bool {
	for _, p := range f.Params {
		if p.Kind == ParamSigner {
			return true
		}
	}
	return false
}

func (f *PublicFunctionTarget) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.String()
	}
	var b strings.Builder
	if f.IsEntry {
		b.WriteString("entry ")
	}
	fmt.Fprintf(&b, "%s(%s)", f.Key(), strings.Join(params, ", "))
	if len(f.Returns) > 0 {
		rets := make([]string, len(f.Returns))
		for i, r := range f.Returns {
			rets[i] = r.String()
		}
		fmt.Fprintf(&b, ": (%s)", strings.Join(rets, ", "))
	}
	return b.String()
}

func functionKey(module vm.ModuleID, name string) string {
	return module.String() + "::" + name
}

// ExecutionPathRecord is the provenance of a path id: the trace and the input that produced it
type ExecutionPathRecord struct {
	ID    uint64
	Path  []uint32
	Input *interfaces.Input
}

// FuzzerStats tracks overall fuzzer statistics
// Uses atomic operations so the stats printer can read while the loop runs
type FuzzerStats struct {
	Executions int64     `json:"executions"`
	Crashes    int64     `json:"crashes"`
	Solutions  int64     `json:"solutions"`
	Skipped    int64     `json:"skipped"`
	StartTime  time.Time `json:"start_time"`
}

// IncrementExecutions atomically increments the execution counter
func (s *FuzzerStats) IncrementExecutions() {
	atomic.AddInt64(&s.Executions, 1)
}

// IncrementCrashes atomically increments the crash counter
func (s *FuzzerStats) IncrementCrashes() {
	atomic.AddInt64(&s.Crashes, 1)
}

// IncrementSolutions atomically increments the solution counter
func (s *FuzzerStats) IncrementSolutions() {
	atomic.AddInt64(&s.Solutions, 1)
}

// IncrementSkipped atomically increments the skipped-mutation counter
func (s *FuzzerStats) IncrementSkipped() {
	atomic.AddInt64(&s.Skipped, 1)
}

// Snapshot returns a consistent copy of the counters
func (s *FuzzerStats) Snapshot() FuzzerStats {
	return FuzzerStats{
		Executions: atomic.LoadInt64(&s.Executions),
		Crashes:    atomic.LoadInt64(&s.Crashes),
		Solutions:  atomic.LoadInt64(&s.Solutions),
		Skipped:    atomic.LoadInt64(&s.Skipped),
		StartTime:  s.StartTime,
	}
}
