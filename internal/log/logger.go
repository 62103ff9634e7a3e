// Package log provides structured logging for agent-setup.
//
// It defines a small Logger interface backed by Go's stdlib slog so
// subsystems can log without importing slog directly and tests can
// substitute a silent logger. Diagnostic output goes to stderr; command
// output (prompts, progress, the streamed build) stays on stdout.
//
// Verbosity levels:
//   - ERROR (--quiet): failures only
//   - WARN (default): warnings and user output
//   - INFO (--verbose): which commands run, what was resolved
//   - DEBUG (--debug): probe results, flag assembly, internal state
package log

import (
	"io"
	"log/slog"
	"sync"
)

// Logger is the interface for structured logging.
// Methods match slog's signature for easy integration.
type Logger interface {
	// Debug logs at DEBUG level: probe outcomes, assembled command
	// lines, details only useful for troubleshooting.
	Debug(msg string, args ...any)

	// Info logs at INFO level: operational context like "cloning
	// source tree" or "platform resolved".
	Info(msg string, args ...any)

	// Warn logs at WARN level: recoverable oddities like a stale pid
	// file for a server that is no longer running.
	Warn(msg string, args ...any)

	// Error logs at ERROR level: failures that stop the pipeline.
	Error(msg string, args ...any)

	// With returns a Logger that includes the given key-value pairs
	// in all subsequent entries.
	With(args ...any) Logger
}

// slogLogger wraps slog.Logger to implement the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// New creates a Logger backed by slog with the given handler.
func New(h slog.Handler) Logger {
	return &slogLogger{l: slog.New(h)}
}

// NewText creates a Logger writing human-readable lines to w at the
// given level. This is what cmd/agent-setup installs after parsing
// verbosity flags.
func NewText(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (s *slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{l: s.l.With(args...)}
}

// noopLogger discards all log output.
type noopLogger struct{}

// NewNoop returns a logger that discards all output.
// Useful for testing or when logging should be disabled.
func NewNoop() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) With(...any) Logger   { return noopLogger{} }

// defaultLogger is the global logger instance.
var (
	defaultLogger Logger = noopLogger{}
	defaultMu     sync.RWMutex
)

// Default returns the global logger configured at startup.
// Returns a noop logger if SetDefault has not been called.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault sets the global logger. Called once in main() after
// parsing verbosity flags.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
