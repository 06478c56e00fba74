package logger

import (
	"sync"
)

// Log levels accepted by the log_level setting.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	// globalLogger holds the process logger.
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process logger, creating it at the given level on first use.
// Later calls ignore level.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}
