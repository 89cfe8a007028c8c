// Package rlog wraps zerolog with the component/tx/step tagging
// conventions used across the execution core.
package rlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger.
var Logger zerolog.Logger

// Level mirrors the subset of zerolog levels this engine configures.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls Init.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init sets up the global logger. Call once at process start.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

func init() {
	// Sane default so packages that log before Init (e.g. in tests) don't panic.
	Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// WithComponent tags a logger with the emitting subsystem (scheduler, txn, ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithTx tags a logger with a transaction id.
func WithTx(txID string) zerolog.Logger {
	return Logger.With().Str("tx_id", txID).Logger()
}

// WithStep tags a logger with a DAG step id.
func WithStep(stepID string) zerolog.Logger {
	return Logger.With().Str("step_id", stepID).Logger()
}
