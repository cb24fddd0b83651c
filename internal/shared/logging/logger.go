package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Logger defines a minimal, printf-style logging contract.
//
// Infrastructure and domain code depend on this interface so tests can swap in
// Nop() without touching global state.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

const levelEnvVar = "VIBE_LOG_LEVEL"

var (
	defaultLevel     Level
	defaultLevelOnce sync.Once
)

func resolveDefaultLevel() Level {
	defaultLevelOnce.Do(func() {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(levelEnvVar))) {
		case "debug":
			defaultLevel = LevelDebug
		case "warn", "warning":
			defaultLevel = LevelWarn
		case "error":
			defaultLevel = LevelError
		default:
			defaultLevel = LevelInfo
		}
	})
	return defaultLevel
}

type componentLogger struct {
	component string
	level     Level
	out       *log.Logger
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{
		component: component,
		level:     resolveDefaultLevel(),
		out:       log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *componentLogger) log(level Level, tag, format string, args ...any) {
	if level < l.level {
		return
	}
	l.out.Printf("[%s] [%s] %s", tag, l.component, fmt.Sprintf(format, args...))
}

func (l *componentLogger) Debug(format string, args ...any) {
	l.log(LevelDebug, "DEBUG", format, args...)
}

func (l *componentLogger) Info(format string, args ...any) {
	l.log(LevelInfo, "INFO", format, args...)
}

func (l *componentLogger) Warn(format string, args ...any) {
	l.log(LevelWarn, "WARN", format, args...)
}

func (l *componentLogger) Error(format string, args ...any) {
	l.log(LevelError, "ERROR", format, args...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}
