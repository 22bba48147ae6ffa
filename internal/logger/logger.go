// Package logger builds the phuslu/log loggers handed to every component.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"
)

// Config selects level and output format.
type Config struct {
	Level  string
	Format string // "console" or "json"
	Output io.Writer
}

// New constructs a logger writing to cfg.Output, or stderr.
func New(cfg Config) *log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	var w log.Writer
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		w = &log.IOWriter{Writer: out}
	default:
		w = &log.ConsoleWriter{
			Writer:         out,
			ColorOutput:    out == os.Stderr || out == os.Stdout,
			EndWithMessage: true,
		}
	}

	return &log.Logger{
		Level:      parseLevel(cfg.Level),
		TimeFormat: "15:04:05",
		Writer:     w,
	}
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *log.Logger) *log.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

func parseLevel(raw string) log.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
