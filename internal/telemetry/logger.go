package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Logger wraps a slog text handler that can fan out to extra files.
type Logger struct {
	inner   *slog.Logger
	level   slog.Level
	mu      sync.Mutex
	writers []io.Writer
	attrs   []any
}

// NewLogger creates a logger writing to stderr. Verbose lowers the level to
// debug; otherwise only warnings and errors reach the terminal so the chat
// transcript stays readable.
func NewLogger(verbose bool) *Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return newLogger(level, os.Stderr)
}

// NewLoggerWithLevel creates a stderr logger from a config level name.
func NewLoggerWithLevel(name string) *Logger {
	return newLogger(ParseLevel(name), os.Stderr)
}

// NewWriterLogger creates a logger that writes to w. Used by tests.
func NewWriterLogger(w io.Writer, level slog.Level) *Logger {
	return newLogger(level, w)
}

func newLogger(level slog.Level, out io.Writer) *Logger {
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	return &Logger{
		inner:   slog.New(handler),
		level:   level,
		writers: []io.Writer{out},
	}
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown names map to warn.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Level returns the active level.
func (l *Logger) Level() slog.Level {
	return l.level
}

// WithFile adds file output to the logger.
func (l *Logger) WithFile(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.writers = append(l.writers, file)
	handler := slog.NewTextHandler(io.MultiWriter(l.writers...), &slog.HandlerOptions{Level: l.level})
	l.inner = slog.New(handler).With(l.attrs...)
	return nil
}

// With returns a child logger carrying the given key-value pairs.
func (l *Logger) With(keyvals ...any) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	writers := make([]io.Writer, len(l.writers))
	copy(writers, l.writers)
	attrs := append(append([]any{}, l.attrs...), keyvals...)

	return &Logger{
		inner:   l.inner.With(keyvals...),
		level:   l.level,
		writers: writers,
		attrs:   attrs,
	}
}

// WithFields is With for a map of fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return l.With(args...)
}

// Close closes all file writers opened via WithFile.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, w := range l.writers {
		if f, ok := w.(*os.File); ok && f != os.Stderr && f != os.Stdout {
			if err := f.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Slog returns the underlying *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.inner
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.inner.Debug(msg, keyvals...)
}

func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.inner.Info(msg, keyvals...)
}

func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.inner.Warn(msg, keyvals...)
}

func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.inner.Error(msg, keyvals...)
}
