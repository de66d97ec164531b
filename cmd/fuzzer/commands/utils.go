/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akaylee Move fuzzer commands. Provides configuration
loading through viper, logging setup and backend resolution used across all command
implementations.
*/

package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/kleascm/akaylee-move/pkg/core"
	"github.com/kleascm/akaylee-move/pkg/logging"
	"github.com/kleascm/akaylee-move/pkg/vm"
)

// EnvPrefix prefixes every environment override, e.g. AKAYLEE_MOVE_MODULE_PATH
const EnvPrefix = "AKAYLEE_MOVE"

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// ConfigFromViper builds the session configuration from the bound keys
func ConfigFromViper() (*core.Config, error) {
	codes, err := ParseAbortCodes(viper.GetStringSlice("abort_codes"))
	if err != nil {
		return nil, err
	}
	cfg := &core.Config{
		ModulePath:         viper.GetString("module_path"),
		Backend:            viper.GetString("vm"),
		Sender:             viper.GetString("sender"),
		Timeout:            viper.GetDuration("timeout"),
		Seed:               viper.GetInt64("seed"),
		AbortCodes:         codes,
		StatsInterval:      viper.GetDuration("stats_interval"),
		ReportOut:          viper.GetString("report_out"),
		MetricsDir:         viper.GetString("metrics_dir"),
		MaxStageIterations: viper.GetInt("max_stage_iterations"),
		ReplayAttempts:     viper.GetInt("replay_attempts"),
		LogLevel:           viper.GetString("log_level"),
		LogFormat:          viper.GetString("log_format"),
		LogFile:            viper.GetString("log_file"),
	}
	return cfg, nil
}

// ParseAbortCodes parses decimal or 0x-prefixed abort codes. Entries may themselves
// be comma separated, as environment values are.
func ParseAbortCodes(raw []string) ([]uint64, error) {
	var codes []uint64
	for _, entry := range raw {
		for _, field := range strings.Split(entry, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			code, err := strconv.ParseUint(field, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid abort code %q: %w", field, err)
			}
			codes = append(codes, code)
		}
	}
	return codes, nil
}

// SetupLogging builds the session logger from the configuration
func SetupLogging(cfg *core.Config) (*logging.Logger, error) {
	lc := logging.DefaultLoggerConfig()
	if cfg.LogLevel != "" {
		lc.Level = logging.LogLevel(strings.ToLower(cfg.LogLevel))
	}
	if cfg.LogFormat != "" {
		lc.Format = logging.LogFormat(strings.ToLower(cfg.LogFormat))
	}
	if colors := viper.GetString("log_colors"); colors != "" {
		lc.Colors = logging.ColorMode(colors)
	}
	lc.OutputFile = cfg.LogFile
	return logging.NewLogger(lc)
}

// ResolveBackend picks the configured backend. With no name, a single registered
// backend is used.
func ResolveBackend(name string) (vm.Backend, error) {
	if name == "" {
		names := vm.Backends()
		if len(names) != 1 {
			return vm.Backend{}, fmt.Errorf("no vm backend selected (registered: %v)", names)
		}
		name = names[0]
	}
	return vm.Lookup(name)
}
