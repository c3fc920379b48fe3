package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is an interface for logging.
// Messages are printf-style format strings.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NewLogger returns a Logger backed by log/slog.
//
// PARAMETERS:
//   - level: "debug", "info", "warn" or "error".
//   - format: "text" or "json".
//   - w: The destination; nil means stderr.
func NewLogger(level, format string, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return &slogLogger{l: slog.New(h)}
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// slogLogger adapts a *slog.Logger to the printf-style Logger interface.
type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...interface{}) {
	s.l.Debug(sprintf(msg, args))
}

func (s *slogLogger) Info(msg string, args ...interface{}) {
	s.l.Info(sprintf(msg, args))
}

func (s *slogLogger) Warn(msg string, args ...interface{}) {
	s.l.Warn(sprintf(msg, args))
}

func (s *slogLogger) Error(msg string, args ...interface{}) {
	s.l.Error(sprintf(msg, args))
}

func sprintf(msg string, args []interface{}) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
