/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fuzz.go
Description: Fuzz command implementation for the Akaylee Move fuzzer. Loads the configuration,
wires a session against the selected VM backend, runs the fuzzing loop until interrupted or timed
out, then prints the final statistics and solution report.
*/

package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RunFuzz executes the main fuzzing process
func RunFuzz(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg, err := ConfigFromViper()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := SetupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logger.Close()

	backend, err := ResolveBackend(cfg.Backend)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"modules": cfg.ModulePath,
		"vm":      backend.Name,
		"sender":  cfg.Sender,
		"seed":    cfg.Seed,
	}).Info("Starting Akaylee Move fuzzer")
	if cfg.Timeout > 0 {
		logger.Infof("Timeout: %s", cfg.Timeout)
	} else {
		logger.Info("Timeout: none, interrupt to stop")
	}

	out := cmd.OutOrStdout()
	session, err := NewSession(cfg, backend, logger, out)
	if err != nil {
		return err
	}

	stop, release := interruptChannel()
	defer release()

	ctx := context.Background()
	runErr := session.Run(ctx, stop)

	fmt.Fprintln(out, "\nFuzzing completed")
	report, err := session.Report(ctx)
	if err != nil {
		logger.WithError(err).Warn("Solution replay failed")
	}
	report.WriteText(out)

	if cfg.ReportOut != "" {
		if err := report.WriteYAML(cfg.ReportOut); err != nil {
			return err
		}
		logger.WithField("path", cfg.ReportOut).Info("Solution report written")
	}
	if path, err := session.WriteMetrics(); err != nil {
		logger.WithError(err).Warn("Failed to write session metrics")
	} else if path != "" {
		logger.WithField("path", path).Info("Session metrics written")
	}
	if runErr != nil {
		return fmt.Errorf("fuzzing loop failed: %w", runErr)
	}
	return nil
}
