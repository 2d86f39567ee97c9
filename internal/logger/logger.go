// Package logger provides a simple leveled logger for the application.
// It supports three levels: off (no output), normal (info/warn/error),
// and verbose (includes debug). Output is rendered by zerolog; the
// printf-style API is kept so call sites stay terse. The logger is safe
// for concurrent use.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level controls the verbosity of the logger.
type Level int

const (
	// LevelOff disables all log output.
	LevelOff Level = iota
	// LevelNormal enables info, warn, and error output.
	LevelNormal
	// LevelVerbose enables all output including debug.
	LevelVerbose
)

// ParseLevel maps a config string ("off", "normal", "verbose", "debug")
// to a Level. Unknown values map to LevelNormal.
func ParseLevel(s string) Level {
	switch s {
	case "off", "quiet", "none":
		return LevelOff
	case "verbose", "debug":
		return LevelVerbose
	default:
		return LevelNormal
	}
}

// Logger is a leveled logger. All methods are safe for concurrent use.
// Loggers derived with With share the level of their root.
type Logger struct {
	shared *levelState
	zl     zerolog.Logger
}

type levelState struct {
	mu    sync.RWMutex
	level Level
}

// New creates a logger with the given level, writing to the given output.
// If out is nil, os.Stderr is used.
func New(level Level, out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	cw := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
		NoColor:    true,
	}
	return &Logger{
		shared: &levelState{level: level},
		zl:     zerolog.New(cw).With().Timestamp().Logger(),
	}
}

// With returns a child logger tagged with a component name.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		shared: l.shared,
		zl:     l.zl.With().Str("component", component).Logger(),
	}
}

// SetLevel changes the log level at runtime. Affects every derived logger.
func (l *Logger) SetLevel(level Level) {
	l.shared.mu.Lock()
	defer l.shared.mu.Unlock()
	l.shared.level = level
}

// GetLevel returns the current log level.
func (l *Logger) GetLevel() Level {
	l.shared.mu.RLock()
	defer l.shared.mu.RUnlock()
	return l.shared.level
}

// Debug logs a message at debug level (only visible in verbose mode).
func (l *Logger) Debug(format string, args ...any) {
	if l.GetLevel() >= LevelVerbose {
		l.zl.Debug().Msg(fmt.Sprintf(format, args...))
	}
}

// Info logs a message at info level.
func (l *Logger) Info(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.zl.Info().Msg(fmt.Sprintf(format, args...))
	}
}

// Warn logs a message at warn level.
func (l *Logger) Warn(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.zl.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// Error logs a message at error level.
func (l *Logger) Error(format string, args ...any) {
	if l.GetLevel() >= LevelNormal {
		l.zl.Error().Msg(fmt.Sprintf(format, args...))
	}
}
