package query

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Logger is the minimal leveled key/value logger the package emits debug
// output through. Adapt any structured logger by implementing these four
// methods; keysAndValues are alternating key, value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SimpleLogger writes leveled lines to stderr via the standard log package.
type SimpleLogger struct {
	logger *log.Logger
}

// NewSimpleLogger returns a console logger suitable for development.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{
		logger: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	}
}

func (l *SimpleLogger) log(level, msg string, keysAndValues ...interface{}) {
	if len(keysAndValues) == 0 {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	var b strings.Builder
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fmt.Fprintf(&b, " %v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	if len(keysAndValues)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", keysAndValues[len(keysAndValues)-1])
	}
	l.logger.Printf("[%s] %s%s", level, msg, b.String())
}

// Debug logs at debug level.
func (l *SimpleLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log("DEBUG", msg, keysAndValues...)
}

// Info logs at info level.
func (l *SimpleLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log("INFO", msg, keysAndValues...)
}

// Warn logs at warn level.
func (l *SimpleLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log("WARN", msg, keysAndValues...)
}

// Error logs at error level.
func (l *SimpleLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log("ERROR", msg, keysAndValues...)
}

// DebugConfig gates which lifecycle events produce log output when a Logger
// is configured.
type DebugConfig struct {
	Enabled    bool
	LogFetches bool
	LogCache   bool
	LogGC      bool
	// FetchIDGen produces the identifier attached to each fetch execution
	// in logs and errors.
	FetchIDGen func() string
}

// DefaultDebugConfig returns a config with all event classes enabled but
// debug output off until WithDebug (or similar) switches it on.
func DefaultDebugConfig() *DebugConfig {
	return &DebugConfig{
		Enabled:    false,
		LogFetches: true,
		LogCache:   true,
		LogGC:      true,
		FetchIDGen: defaultFetchID,
	}
}

func defaultFetchID() string {
	return uuid.NewString()[:8]
}
