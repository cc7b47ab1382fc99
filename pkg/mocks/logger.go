package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/user/deepframe/pkg/ports"
)

// LogEntry is one message recorded by Logger.
type LogEntry struct {
	Level     ports.LogLevel
	Component string
	Message   string
}

// Logger records formatted messages for assertions.
type Logger struct {
	mu        *sync.Mutex
	entries   *[]LogEntry
	component string
}

// NewLogger creates an empty recording Logger.
func NewLogger() *Logger {
	return &Logger{mu: &sync.Mutex{}, entries: &[]LogEntry{}}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.add(ports.LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.add(ports.LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.add(ports.LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.add(ports.LevelError, msg, args) }

// WithComponent returns a Logger sharing the same entries.
func (l *Logger) WithComponent(component string) ports.Logger {
	return &Logger{mu: l.mu, entries: l.entries, component: component}
}

func (l *Logger) add(level ports.LogLevel, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.entries = append(*l.entries, LogEntry{
		Level:     level,
		Component: l.component,
		Message:   fmt.Sprintf(msg, args...),
	})
}

// Entries returns the recorded entries at or above level.
func (l *Logger) Entries(level ports.LogLevel) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []LogEntry
	for _, e := range *l.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

// Contains reports whether any message at level contains substr.
func (l *Logger) Contains(level ports.LogLevel, substr string) bool {
	for _, e := range l.Entries(level) {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

var _ ports.Logger = (*Logger)(nil)
