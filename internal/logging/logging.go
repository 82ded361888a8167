// Package logging holds the shared structured logger for the monitor.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// Logger is the global logger instance.
	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.InfoLevel,
	})

	logFile *os.File
)

// Init configures the global logger. level is one of debug/info/warn/error;
// when file is non-empty, output goes to both stderr and the file.
func Init(level, file string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	var out io.Writer = os.Stderr
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		logFile, err = os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, logFile)
	}

	Logger = log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	})
	return nil
}

// Close flushes and closes the log file, if one was opened.
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...interface{}) { Logger.Debug(msg, keyvals...) }

// Info logs an info message.
func Info(msg string, keyvals ...interface{}) { Logger.Info(msg, keyvals...) }

// Warn logs a warning message.
func Warn(msg string, keyvals ...interface{}) { Logger.Warn(msg, keyvals...) }

// Error logs an error message.
func Error(msg string, keyvals ...interface{}) { Logger.Error(msg, keyvals...) }

// WithPrefix returns a sub-logger with a prefix.
func WithPrefix(prefix string) *log.Logger { return Logger.WithPrefix(prefix) }
