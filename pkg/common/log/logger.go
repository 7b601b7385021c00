// Package log provides the logging interface used by every resource manager
// component: dispatcher, respool, and resmgr all take a log.Logger and fall
// back to the package default when none is supplied.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the logging level.
type Level int

const (
	// LevelDebug level for detailed troubleshooting information
	LevelDebug Level = iota
	// LevelInfo level for general operational information
	LevelInfo
	// LevelWarn level for potentially harmful situations
	LevelWarn
	// LevelError level for error events
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", l)
	}
}

// Logger is the interface every resmgr/respool/dispatcher component logs
// through. resmgr.Manager and its peers only ever call these four methods,
// so that's all this interface promises.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// StandardLogger implements Logger, writing one line per call to out.
type StandardLogger struct {
	mu    sync.Mutex
	level Level
	out   io.Writer
}

// NewStandardLogger creates a new StandardLogger with the given options.
func NewStandardLogger(options ...LoggerOption) *StandardLogger {
	logger := &StandardLogger{
		level: LevelInfo,
		out:   os.Stdout,
	}
	for _, option := range options {
		option(logger)
	}
	return logger
}

// LoggerOption configures a StandardLogger.
type LoggerOption func(*StandardLogger)

// WithLevel sets the minimum level that reaches the output writer.
func WithLevel(level Level) LoggerOption {
	return func(l *StandardLogger) {
		l.level = level
	}
}

// WithOutput sets the output writer.
func WithOutput(out io.Writer) LoggerOption {
	return func(l *StandardLogger) {
		l.out = out
	}
}

func (l *StandardLogger) log(level Level, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	formattedMsg := msg
	if len(args) > 0 {
		formattedMsg = fmt.Sprintf(msg, args...)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(l.out, "[%s] [%s] %s\n", timestamp, level.String(), formattedMsg)
}

// Debug logs a debug-level message.
func (l *StandardLogger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info-level message.
func (l *StandardLogger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning-level message.
func (l *StandardLogger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error-level message.
func (l *StandardLogger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

var (
	defaultLoggerMu sync.RWMutex
	defaultLogger   Logger = NewStandardLogger()
)

// SetDefaultLogger sets the default logger instance returned by
// GetDefaultLogger. Components constructed without an explicit logger use
// this one.
func SetDefaultLogger(logger Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = logger
}

// GetDefaultLogger returns the current default logger instance.
func GetDefaultLogger() Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}
