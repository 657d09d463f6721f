package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// RotationConfig holds configuration for log rotation
type RotationConfig struct {
	// Filename is the file to write logs to
	Filename string `yaml:"filename"`

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int `yaml:"max_size_mb"`

	// MaxAge is the maximum age in days to retain old files (0 = no age limit)
	MaxAge int `yaml:"max_age_days"`

	// MaxBackups is the maximum number of old log files to retain (0 = retain all)
	MaxBackups int `yaml:"max_backups"`

	// Compress determines if rotated log files should be gzipped
	Compress bool `yaml:"compress"`
}

// NewLogRotator creates a rotating file writer for config.
func NewLogRotator(config *RotationConfig) (*lumberjack.Logger, error) {
	if config == nil {
		return nil, fmt.Errorf("rotation config is required")
	}
	if config.Filename == "" {
		return nil, fmt.Errorf("filename is required")
	}

	if err := os.MkdirAll(filepath.Dir(config.Filename), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   config.Filename,
		MaxSize:    config.MaxSize,
		MaxAge:     config.MaxAge,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
		LocalTime:  true,
	}, nil
}
