// Package ports defines the interfaces between the extraction core and
// the outside world: the decoder engine, logging, files and rendering.
package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-frame and per-seek detail inside components.
	LevelDebug LogLevel = iota
	// LevelInfo is for orchestration-level progress.
	LevelInfo
	// LevelWarn is for skipped frames and partial results.
	LevelWarn
	// LevelError is for failed sources.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown values map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger abstracts logging with translatable message keys.
type Logger interface {
	// Debug logs internal component details.
	// The msg parameter is the message key that can be translated.
	Debug(msg string, args ...interface{})

	// Info logs orchestration-level progress.
	Info(msg string, args ...interface{})

	// Warn logs recoverable problems.
	Warn(msg string, args ...interface{})

	// Error logs unrecoverable problems.
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the component name.
	WithComponent(component string) Logger
}
