// Package logger configures the structured logger of the soa commands.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/etnz/soa"
	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates a console logger on stderr, stdout is kept for command output.
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel returns the zerolog level called name, info when empty.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(name)
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithRun returns a child logger tagged with the run id.
func WithRun(logger zerolog.Logger, runID string) zerolog.Logger {
	return logger.With().Str("run_id", runID).Logger()
}

// Warnings logs every warning of a batch at warn level.
func Warnings(logger zerolog.Logger, warnings []soa.Warning) {
	for _, w := range warnings {
		e := logger.Warn().Str("kind", string(w.Kind))
		if w.Line > 0 {
			e = e.Int("line", w.Line)
		}
		if w.Merchant != "" {
			e = e.Str("merchant", w.Merchant)
		}
		if w.Field != "" {
			e = e.Str("field", string(w.Field))
		}
		if w.Value != "" {
			e = e.Str("value", w.Value)
		}
		e.Msg(w.Message)
	}
}
