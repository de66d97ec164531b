/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for the Akaylee Move fuzzer. Defines the cobra command
tree and binds every flag to viper so values can also come from a config file or AKAYLEE_MOVE_*
environment variables. VM backends are linked in by importing a package that registers one.
*/

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-move/cmd/fuzzer/commands"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "akaylee-move",
		Short: "Akaylee Move - coverage-guided concolic fuzzer for Move bytecode",
		Long: `Akaylee Move fuzzes the public functions of compiled Move modules. It runs direct
calls and composed multi-call scripts through a VM backend, tracks edge coverage, shadows
execution symbolically to spot precision loss and runaway loops, and reports inputs that
abort, overflow a shift or break a VM invariant.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().String("config", "", "Configuration file path (yaml, toml or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().String("log-file", "", "Also append logs to this file")
	rootCmd.PersistentFlags().String("log-colors", "auto", "Coloured logs (auto, always, never)")
	rootCmd.PersistentFlags().String("vm", "", "VM backend name (default: the only registered backend)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log_colors", rootCmd.PersistentFlags().Lookup("log-colors"))
	viper.BindPFlag("vm", rootCmd.PersistentFlags().Lookup("vm"))

	// Add fuzz command
	fuzzCmd := &cobra.Command{
		Use:   "fuzz",
		Short: "Fuzz the modules under a directory",
		Long: `Load every compiled module under --module-path, seed the corpus with default-argument
calls and run the fuzzing loop until interrupted or --timeout passes. Solutions are printed at
the end and optionally exported as YAML.`,
		RunE: commands.RunFuzz,
	}

	fuzzCmd.Flags().String("module-path", "", "Directory or file of compiled modules (required)")
	fuzzCmd.Flags().String("sender", "0x1", "Transaction sender address")
	fuzzCmd.Flags().Duration("timeout", 0, "Wall-clock budget (0 = run until interrupted)")
	fuzzCmd.Flags().Int64("seed", 0, "RNG seed (0 = time based)")
	fuzzCmd.Flags().StringSlice("abort-codes", nil, "Abort codes treated as bugs (default: any abort)")
	fuzzCmd.Flags().Duration("stats-interval", 500*time.Millisecond, "Live statistics period")
	fuzzCmd.Flags().String("report-out", "", "Write the solution report as YAML to this path")
	fuzzCmd.Flags().String("metrics-dir", "", "Write the final session metrics as JSON under this directory")
	fuzzCmd.Flags().Int("max-stage-iterations", 128, "Upper bound of mutations per scheduled input")
	fuzzCmd.Flags().Int("replay-attempts", 0, "Replay each solution this many times after fuzzing (0 = off)")

	viper.BindPFlag("module_path", fuzzCmd.Flags().Lookup("module-path"))
	viper.BindPFlag("sender", fuzzCmd.Flags().Lookup("sender"))
	viper.BindPFlag("timeout", fuzzCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("seed", fuzzCmd.Flags().Lookup("seed"))
	viper.BindPFlag("abort_codes", fuzzCmd.Flags().Lookup("abort-codes"))
	viper.BindPFlag("stats_interval", fuzzCmd.Flags().Lookup("stats-interval"))
	viper.BindPFlag("report_out", fuzzCmd.Flags().Lookup("report-out"))
	viper.BindPFlag("metrics_dir", fuzzCmd.Flags().Lookup("metrics-dir"))
	viper.BindPFlag("max_stage_iterations", fuzzCmd.Flags().Lookup("max-stage-iterations"))
	viper.BindPFlag("replay_attempts", fuzzCmd.Flags().Lookup("replay-attempts"))

	// Add catalog command
	catalogCmd := &cobra.Command{
		Use:   "catalog [module-path]",
		Short: "List the public functions the fuzzer would target",
		Args:  cobra.MaximumNArgs(1),
		RunE:  commands.RunCatalog,
	}

	// Add backends command
	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "List registered VM backends",
		Run:   commands.ListBackends,
	}

	rootCmd.AddCommand(fuzzCmd, catalogCmd, backendsCmd)
	return rootCmd
}
