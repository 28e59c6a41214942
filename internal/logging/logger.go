// Package logging builds charm loggers configured from the environment,
// optionally writing to a timestamped file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Environment variables read by NewLogger.
const (
	EnvLevel  = "LSX86_LOG_LEVEL"
	EnvPrefix = "LSX86_LOG_PREFIX"
	EnvToFile = "LSX86_LOG_TO_FILE"
)

// LoggerCloser wraps a logger and provides a Close method for cleanup
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
}

// Close closes the underlying writer if it's closeable
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Level returns the level named by LSX86_LOG_LEVEL, or def when it is unset
// or unknown.
func Level(def log.Level) log.Level {
	switch strings.ToLower(os.Getenv(EnvLevel)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	}
	return def
}

// NewLoggerWithWriter creates a new logger with the provided writer
func NewLoggerWithWriter(w io.Writer, level log.Level) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
	})

	prefix := os.Getenv(EnvPrefix)
	if prefix == "" {
		prefix = "lsx86"
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok && w != io.Writer(os.Stderr) {
		closer = c
	}

	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a new logger based on environment variables
// LSX86_LOG_LEVEL: debug, info, warn, error (default: level)
// LSX86_LOG_PREFIX: prefix for log messages (default: "lsx86")
// LSX86_LOG_TO_FILE: when set to "1", logs to a timestamped file instead of stderr
func NewLogger(level log.Level) *LoggerCloser {
	output := io.Writer(os.Stderr)

	if os.Getenv(EnvToFile) == "1" {
		timestamp := time.Now().Format("20060102-150405")
		logFile := fmt.Sprintf("lsx86-%s-debug.log", timestamp)

		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err == nil {
			output = f
		}
		// If file creation fails, fall back to stderr
	}

	return NewLoggerWithWriter(output, Level(level))
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return strings.EqualFold(os.Getenv(EnvLevel), "debug")
}
