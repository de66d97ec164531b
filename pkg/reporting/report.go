/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: report.go
Description: Final solution report for the Akaylee Move fuzzer. Lists every deduplicated solution
with its payload, execution trace, path id and objective membership, prints it as text and
exports it as YAML.
*/

package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v2"

	"github.com/kleascm/akaylee-move/pkg/analysis"
	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/interfaces"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// PayloadSummary is a printable view of a transaction payload
type PayloadSummary struct {
	Kind     string   `yaml:"kind"`
	Target   string   `yaml:"target,omitempty"`
	Code     string   `yaml:"code,omitempty"`
	Args     []string `yaml:"args"`
	Sequence []string `yaml:"sequence,omitempty"`
}

// SolutionEntry is one solution in the final report
type SolutionEntry struct {
	InputID            string         `yaml:"input_id"`
	Generation         int            `yaml:"generation"`
	Payload            PayloadSummary `yaml:"payload"`
	PathID             string         `yaml:"path_id"`
	Trace              []uint32       `yaml:"trace,flow"`
	InvariantViolation bool           `yaml:"invariant_violation"`
	ShiftOverflow      bool           `yaml:"shift_overflow"`
	Reproducible       *bool          `yaml:"reproducible,omitempty"`

	input *interfaces.Input
}

// SolutionReport is the end-of-session summary
type SolutionReport struct {
	GeneratedAt  time.Time       `yaml:"generated_at"`
	Executions   int64           `yaml:"executions"`
	CorpusSize   int             `yaml:"corpus_size"`
	CoveredEdges int             `yaml:"covered_edges"`
	TotalEdges   int             `yaml:"total_edges"`
	Solutions    []SolutionEntry `yaml:"solutions"`
}

// BuildReport collects one entry per distinct solution path
func BuildReport(state *core.FuzzState, stats core.FuzzerStats) *SolutionReport {
	report := &SolutionReport{
		GeneratedAt:  time.Now(),
		Executions:   stats.Executions,
		CorpusSize:   state.Corpus().Size(),
		CoveredEdges: state.Edges().CoveredEdges(),
		TotalEdges:   state.TotalCodeLength(),
	}
	for _, input := range state.TakeSolutions() {
		rec, ok := state.ExecutionPathFor(input)
		if !ok {
			continue
		}
		report.Solutions = append(report.Solutions, SolutionEntry{
			InputID:            input.ID,
			Generation:         input.Generation,
			Payload:            SummarizePayload(input),
			PathID:             fmt.Sprintf("%016x", rec.ID),
			Trace:              rec.Path,
			InvariantViolation: state.IsAbortCodePath(rec.ID),
			ShiftOverflow:      state.IsShiftOverflowPath(rec.ID),
			input:              input,
		})
	}
	return report
}

// AttachReplays records replay verdicts on the matching entries
func (r *SolutionReport) AttachReplays(results []*analysis.ReproducibilityResult) {
	byInput := make(map[*interfaces.Input]bool, len(results))
	for _, res := range results {
		byInput[res.Input] = res.Reproducible
	}
	for i := range r.Solutions {
		if ok, found := byInput[r.Solutions[i].input]; found {
			r.Solutions[i].Reproducible = &ok
		}
	}
}

// SummarizePayload renders the payload and sequence of an input
func SummarizePayload(input *interfaces.Input) PayloadSummary {
	var s PayloadSummary
	switch p := input.Payload.(type) {
	case *vm.EntryFunction:
		s.Kind = p.PayloadType()
		s.Target = p.Module.String() + "::" + p.Function
		for _, arg := range p.Args {
			s.Args = append(s.Args, hexutil.Encode(arg))
		}
	case *vm.Script:
		s.Kind = p.PayloadType()
		s.Code = hexutil.Encode(p.Code)
		for _, arg := range p.Args {
			s.Args = append(s.Args, FormatArgument(arg))
		}
	case nil:
		s.Kind = "none"
	default:
		s.Kind = p.PayloadType()
	}
	if input.Sequence != nil {
		for _, call := range input.Sequence.Calls {
			s.Sequence = append(s.Sequence, formatCall(call))
		}
	}
	return s
}

// FormatArgument renders a flat script argument as kind(value)
func FormatArgument(arg vm.TransactionArgument) string {
	var value string
	switch arg.Kind {
	case vm.ArgBool:
		value = strconv.FormatBool(arg.Bool)
	case vm.ArgAddress:
		value = arg.Address.String()
	case vm.ArgU8Vector, vm.ArgSerialized:
		value = hexutil.Encode(arg.Bytes)
	default:
		value = "0"
		if arg.Num != nil {
			value = arg.Num.Dec()
		}
	}
	return arg.Kind.String() + "(" + value + ")"
}

func formatCall(call vm.SequenceCall) string {
	args := make([]string, len(call.Args))
	for i, arg := range call.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s::%s(%s)", call.Module, call.Function, strings.Join(args, ", "))
}

// WriteText prints the report in the console layout
func (r *SolutionReport) WriteText(w io.Writer) {
	if len(r.Solutions) == 0 {
		fmt.Fprintln(w, "No solutions discovered")
		return
	}
	fmt.Fprintln(w, "Discovered solutions:")
	for _, s := range r.Solutions {
		fmt.Fprintf(w, "  %s %s", s.input, s.InputID)
		if len(s.Payload.Args) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(s.Payload.Args, ", "))
		}
		fmt.Fprintln(w)
		for _, call := range s.Payload.Sequence {
			fmt.Fprintf(w, "    call %s\n", call)
		}
		fmt.Fprintf(w, "    Execution path: %v (id %s)\n", s.Trace, s.PathID)
		if s.InvariantViolation {
			fmt.Fprintln(w, "    Found InvariantViolation!")
		}
		if s.ShiftOverflow {
			fmt.Fprintln(w, "    Found ShiftOverflow!")
		}
		if s.Reproducible != nil && !*s.Reproducible {
			fmt.Fprintln(w, "    Replay diverged from the recorded path")
		}
	}
}

// WriteYAML exports the report to path, creating parent directories
func (r *SolutionReport) WriteYAML(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
