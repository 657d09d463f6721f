package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// LogFormat defines the output format for logs
type LogFormat int

const (
	FormatText LogFormat = iota
	FormatJSON
)

// ParseLogFormat parses "text" or "json".
func ParseLogFormat(format string) (LogFormat, error) {
	switch format {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("invalid log format: %s", format)
	}
}

// StructuredLogger provides structured logging with levels and fields
type StructuredLogger struct {
	entry  *logrus.Entry
	closer io.Closer
}

// StructuredLoggerConfig holds configuration for the logger
type StructuredLoggerConfig struct {
	Level         LogLevel
	Output        io.Writer
	Format        LogFormat
	IncludeCaller bool
	Rotation      *RotationConfig
}

// DefaultStructuredLoggerConfig returns default configuration
func DefaultStructuredLoggerConfig() *StructuredLoggerConfig {
	return &StructuredLoggerConfig{
		Level:  INFO,
		Output: os.Stderr,
		Format: FormatText,
	}
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(config *StructuredLoggerConfig) (*StructuredLogger, error) {
	if config == nil {
		config = DefaultStructuredLoggerConfig()
	}

	base := logrus.New()
	base.SetLevel(config.Level.logrusLevel())
	base.SetReportCaller(config.IncludeCaller)

	switch config.Format {
	case FormatJSON:
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	logger := &StructuredLogger{}
	output := config.Output
	if output == nil {
		output = os.Stderr
	}

	if config.Rotation != nil {
		rotator, err := NewLogRotator(config.Rotation)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %w", err)
		}
		output = rotator
		logger.closer = rotator
	}
	base.SetOutput(output)

	logger.entry = logrus.NewEntry(base)
	return logger, nil
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() *StructuredLogger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &StructuredLogger{entry: logrus.NewEntry(base)}
}

// WithField returns a new logger with an additional context field
func (sl *StructuredLogger) WithField(key string, value interface{}) *StructuredLogger {
	return &StructuredLogger{entry: sl.entry.WithField(key, value), closer: sl.closer}
}

// WithFields returns a new logger with multiple context fields
func (sl *StructuredLogger) WithFields(fields map[string]interface{}) *StructuredLogger {
	return &StructuredLogger{entry: sl.entry.WithFields(logrus.Fields(fields)), closer: sl.closer}
}

// WithComponent returns a logger with a component field
func (sl *StructuredLogger) WithComponent(component string) *StructuredLogger {
	return sl.WithField("component", component)
}

// WithError returns a logger carrying err in the "error" field
func (sl *StructuredLogger) WithError(err error) *StructuredLogger {
	return &StructuredLogger{entry: sl.entry.WithError(err), closer: sl.closer}
}

// SetLevel sets the log level
func (sl *StructuredLogger) SetLevel(level LogLevel) {
	sl.entry.Logger.SetLevel(level.logrusLevel())
}

// IsDebugEnabled reports whether debug entries are emitted
func (sl *StructuredLogger) IsDebugEnabled() bool {
	return sl.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

func (sl *StructuredLogger) with(fieldMaps []map[string]interface{}) *logrus.Entry {
	if len(fieldMaps) > 0 && fieldMaps[0] != nil {
		return sl.entry.WithFields(logrus.Fields(fieldMaps[0]))
	}
	return sl.entry
}

// Debug logs a debug message
func (sl *StructuredLogger) Debug(message string, fields ...map[string]interface{}) {
	sl.with(fields).Debug(message)
}

// Info logs an info message
func (sl *StructuredLogger) Info(message string, fields ...map[string]interface{}) {
	sl.with(fields).Info(message)
}

// Warn logs a warning message
func (sl *StructuredLogger) Warn(message string, fields ...map[string]interface{}) {
	sl.with(fields).Warn(message)
}

// Error logs an error message
func (sl *StructuredLogger) Error(message string, fields ...map[string]interface{}) {
	sl.with(fields).Error(message)
}

// Debugf logs a formatted debug message
func (sl *StructuredLogger) Debugf(format string, args ...interface{}) {
	sl.entry.Debugf(format, args...)
}

// Infof logs a formatted info message
func (sl *StructuredLogger) Infof(format string, args ...interface{}) {
	sl.entry.Infof(format, args...)
}

// Warnf logs a formatted warning message
func (sl *StructuredLogger) Warnf(format string, args ...interface{}) {
	sl.entry.Warnf(format, args...)
}

// Errorf logs a formatted error message
func (sl *StructuredLogger) Errorf(format string, args ...interface{}) {
	sl.entry.Errorf(format, args...)
}

// Close closes the rotating log file, if any
func (sl *StructuredLogger) Close() error {
	if sl.closer != nil {
		return sl.closer.Close()
	}
	return nil
}
