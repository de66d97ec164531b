/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utilities.go
Description: Utility commands for the Akaylee Move fuzzer. Lists the registered VM backends and
prints the public function catalog of a module directory without fuzzing.
*/

package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// ListBackends prints the registered VM backends
func ListBackends(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	names := vm.Backends()
	if len(names) == 0 {
		fmt.Fprintln(out, "No VM backends registered")
		return
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
}

// RunCatalog prints every public function the fuzzer would target
func RunCatalog(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	modulePath := viper.GetString("module_path")
	if len(args) > 0 {
		modulePath = args[0]
	}
	if modulePath == "" {
		return fmt.Errorf("module path is required")
	}

	backend, err := ResolveBackend(viper.GetString("vm"))
	if err != nil {
		return err
	}
	logger := logrus.StandardLogger()
	modules, err := core.LoadModules(modulePath, backend.Decoder, logger)
	if err != nil {
		return err
	}
	return WriteCatalog(cmd.OutOrStdout(), modules)
}

// WriteCatalog renders one line per public function with its seed status
func WriteCatalog(out io.Writer, modules []core.LoadedModule) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FUNCTION\tSEED\tCODE")
	total := 0
	for _, m := range modules {
		for _, f := range core.ExtractPublicFunctions(m.Module) {
			seed := "-"
			if _, ok := core.EntrySeed(&f); ok {
				seed = "yes"
			} else if f.IsEntry {
				seed = "no default"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\n", f.String(), seed, f.CodeLength)
			total++
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	fmt.Fprintf(out, "%d public functions in %d modules\n", total, len(modules))
	return nil
}
