// Package logger provides the leveled logging used across dimtime.
// It wraps the standard `log` package, filters messages by level, and exposes a
// Logger interface so components receive logging by injection instead of
// reaching for package state.
package logger

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
// Smaller numbers indicate more detailed log levels.
type LogLevel int

const (
	// LevelDebug is used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is used for general informational messages.
	LevelInfo
	// LevelWarn is used for potential issues.
	LevelWarn
	// LevelError is used for error messages.
	LevelError
	// LevelFatal is used for errors that terminate the process.
	LevelFatal
)

// logLevel is the process-wide level; initialized once at startup from configuration.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// Logger is the logging capability injected into components.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// stdLogger forwards to the package-level functions.
type stdLogger struct{}

// NewStdLogger returns a Logger backed by the standard `log` package and the global level.
func NewStdLogger() Logger {
	return stdLogger{}
}

func (stdLogger) Debugf(format string, v ...interface{}) { Debugf(format, v...) }
func (stdLogger) Infof(format string, v ...interface{})  { Infof(format, v...) }
func (stdLogger) Warnf(format string, v ...interface{})  { Warnf(format, v...) }
func (stdLogger) Errorf(format string, v ...interface{}) { Errorf(format, v...) }

// ParseLevel converts a level name ("DEBUG", "INFO", "WARN", "ERROR", "FATAL", case-insensitive).
func ParseLevel(level string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG", "TRACE":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level '%s'", level)
	}
}

// SetLogLevel sets the global log level.
// Unknown values fall back to INFO with a warning.
func SetLogLevel(level string) {
	parsed, err := ParseLevel(level)
	if err != nil {
		log.Printf("[WARN] %v. Defaulting to INFO level.", err)
	}
	logLevel.Store(int32(parsed))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

func enabled(level LogLevel) bool {
	return GetLogLevel() <= level
}

// Debugf outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf outputs a FATAL level log message and terminates the program with os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
