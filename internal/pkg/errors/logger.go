package errors

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// LogLevelError suppresses diagnostics.
	LogLevelError LogLevel = iota
	// LogLevelDebug logs everything including debug messages.
	LogLevelDebug
)

// String returns the string representation of LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger provides levelled diagnostic logging with verbose mode support.
type Logger struct {
	mu      sync.Mutex
	output  io.Writer
	level   LogLevel
	verbose bool
}

// Global logger instance
var defaultLogger = NewLogger(os.Stderr, false)

// SetVerbose enables or disables verbose logging.
func SetVerbose(verbose bool) {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.verbose = verbose
	if verbose {
		defaultLogger.level = LogLevelDebug
	} else {
		defaultLogger.level = LogLevelError
	}
}

// IsVerbose returns whether verbose logging is enabled.
func IsVerbose() bool {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	return defaultLogger.verbose
}

// NewLogger creates a new logger with the given configuration.
func NewLogger(output io.Writer, verbose bool) *Logger {
	level := LogLevelError
	if verbose {
		level = LogLevelDebug
	}
	return &Logger{
		output:  output,
		level:   level,
		verbose: verbose,
	}
}

// log writes a log message at the given level.
func (l *Logger) log(level LogLevel, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level > l.level {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	message := SanitizeErrorMessage(fmt.Sprintf(format, args...))
	fmt.Fprintf(l.output, "[%s] %s: %s\n", timestamp, level.String(), message)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LogLevelDebug, format, args...)
}

// LogGitCommand logs a finished git invocation in verbose mode.
func (l *Logger) LogGitCommand(args []string, exitCode int, duration time.Duration) {
	if !l.verbose {
		return
	}
	l.Debug("git %s: exit=%d, duration=%v", strings.Join(args, " "), exitCode, duration)
}

// LogRegistryRequest logs a registry request in verbose mode.
func (l *Logger) LogRegistryRequest(packageName, url string) {
	if !l.verbose {
		return
	}
	l.Debug("Registry Request: package=%s, url=%s", packageName, url)
}

// LogRegistryResponse logs a registry response in verbose mode.
func (l *Logger) LogRegistryResponse(packageName string, statusCode int, entries int, duration time.Duration) {
	if !l.verbose {
		return
	}
	l.Debug("Registry Response: package=%s, status=%d, entries=%d, duration=%v",
		packageName, statusCode, entries, duration)
}

// Package-level logging functions using the default logger

// Debug logs a debug message.
func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

// LogGitCommand logs a finished git invocation in verbose mode.
func LogGitCommand(args []string, exitCode int, duration time.Duration) {
	defaultLogger.LogGitCommand(args, exitCode, duration)
}

// LogRegistryRequest logs a registry request in verbose mode.
func LogRegistryRequest(packageName, url string) {
	defaultLogger.LogRegistryRequest(packageName, url)
}

// LogRegistryResponse logs a registry response in verbose mode.
func LogRegistryResponse(packageName string, statusCode int, entries int, duration time.Duration) {
	defaultLogger.LogRegistryResponse(packageName, statusCode, entries, duration)
}
