// Package observability provides the digest's structured logger and run metrics.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/henrybloomingdale/pubmed-digest/internal/config"
)

// NewLogger creates a zerolog logger from configuration.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}
	return NewLoggerTo(output, cfg)
}

// NewLoggerTo creates a logger writing to out, honouring format and level.
func NewLoggerTo(out io.Writer, cfg config.LoggingConfig) zerolog.Logger {
	if strings.ToLower(cfg.Format) == "console" || strings.ToLower(cfg.Format) == "pretty" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Logger().
		Level(parseLevel(cfg.Level))
}

// parseLevel converts a string log level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithPMID adds the article identifier to a logger.
func WithPMID(logger zerolog.Logger, pmid string) zerolog.Logger {
	return logger.With().Str("pmid", pmid).Logger()
}
