/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logger.go
Description: Logging setup for the Akaylee Move fuzzer. Builds a configured logrus logger from the
session config: level, text/json/custom format, optional log file next to the console output and
TTY-aware colours.
*/

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warn"
	LogLevelError   LogLevel = "error"
)

// LogFormat represents the logging format
type LogFormat string

const (
	LogFormatJSON   LogFormat = "json"
	LogFormatText   LogFormat = "text"
	LogFormatCustom LogFormat = "custom"
)

// ColorMode decides whether console output is coloured
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// LoggerConfig holds the configuration for the logger
type LoggerConfig struct {
	Level      LogLevel  `json:"level"`
	Format     LogFormat `json:"format"`
	OutputFile string    `json:"output_file"` // Optional, appended to alongside the console
	Colors     ColorMode `json:"colors"`
	Caller     bool      `json:"caller"`
}

// DefaultLoggerConfig returns text logging at info level with automatic colours
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LogLevelInfo,
		Format: LogFormatText,
		Colors: ColorAuto,
	}
}

// Validate checks the LoggerConfig for invalid or missing values.
// Returns an error if the config is invalid, or nil if valid.
func (c *LoggerConfig) Validate() error {
	switch c.Format {
	case LogFormatJSON, LogFormatText, LogFormatCustom:
		// ok
	default:
		return fmt.Errorf("unsupported log format: %s", c.Format)
	}
	switch c.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		// ok
	default:
		return fmt.Errorf("unsupported log level: %s", c.Level)
	}
	switch c.Colors {
	case "", ColorAuto, ColorAlways, ColorNever:
		// ok
	default:
		return fmt.Errorf("unsupported color mode: %s", c.Colors)
	}
	return nil
}

// Logger wraps a configured logrus logger and the log file it may own
type Logger struct {
	*logrus.Logger
	config     *LoggerConfig
	fileHandle *os.File
}

// NewLogger creates a new logger instance writing to stderr
func NewLogger(config *LoggerConfig) (*Logger, error) {
	return newLogger(config, os.Stderr)
}

func newLogger(config *LoggerConfig, console io.Writer) (*Logger, error) {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	l := &Logger{Logger: logrus.New(), config: config}
	level, err := logrus.ParseLevel(string(config.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}
	l.SetLevel(level)
	l.SetReportCaller(config.Caller)
	colors := useColors(config.Colors, console)
	if config.OutputFile != "" && config.Colors != ColorAlways {
		colors = false
	}
	l.SetFormatter(newFormatter(config, colors))

	out := console
	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.fileHandle = file
		out = io.MultiWriter(console, file)
	}
	l.SetOutput(out)
	return l, nil
}

func newFormatter(config *LoggerConfig, colors bool) logrus.Formatter {
	prettyCaller := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}
	switch config.Format {
	case LogFormatJSON:
		return &logrus.JSONFormatter{
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: prettyCaller,
		}
	case LogFormatCustom:
		return &CustomFormatter{Timestamp: true, Caller: config.Caller, Colors: colors}
	}
	return &logrus.TextFormatter{
		FullTimestamp:    true,
		TimestampFormat:  time.RFC3339,
		ForceColors:      colors,
		DisableColors:    !colors,
		CallerPrettyfier: prettyCaller,
	}
}

// useColors resolves a colour mode against the console writer
func useColors(mode ColorMode, console io.Writer) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	f, ok := console.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.fileHandle == nil {
		return nil
	}
	if err := l.fileHandle.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	l.fileHandle = nil
	return nil
}

// GetLogger returns the underlying logrus logger
func (l *Logger) GetLogger() *logrus.Logger {
	return l.Logger
}
