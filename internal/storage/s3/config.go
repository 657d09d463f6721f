package s3

import (
	"time"
)

// Config represents S3 backend configuration
type Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	Profile         string `yaml:"profile"`
	ForcePathStyle  bool   `yaml:"force_path_style"`

	// SDK-level retries per request; pkg/retry wraps whole operations.
	MaxRetries int `yaml:"max_retries"`

	// RequestTimeout bounds a single request, zero means none.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		MaxRetries:     1,
		RequestTimeout: 30 * time.Second,
	}
}
