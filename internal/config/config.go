package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/objectfs/rangecache/internal/cache"
	"github.com/objectfs/rangecache/internal/circuit"
	"github.com/objectfs/rangecache/internal/metrics"
	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/retry"
	"github.com/objectfs/rangecache/pkg/utils"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "RANGECACHE_"

// Configuration represents the complete application configuration
type Configuration struct {
	Global     GlobalConfig     `yaml:"global"`
	Cache      CacheConfig      `yaml:"cache"`
	Storage    StorageConfig    `yaml:"storage"`
	Network    NetworkConfig    `yaml:"network"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// GlobalConfig represents global application settings
type GlobalConfig struct {
	LogLevel      string `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	LogFormat     string `yaml:"log_format"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogCompress   bool   `yaml:"log_compress"`
	MetricsPort   int    `yaml:"metrics_port"`
}

// CacheConfig holds the cache limits as human-readable sizes
type CacheConfig struct {
	TotalSize    string `yaml:"total_size"`
	WriteSize    string `yaml:"write_size"`
	MinFetchSize string `yaml:"min_fetch_size"`
}

// StorageConfig selects and configures the remote store
type StorageConfig struct {
	// URI is the default location, s3://bucket/prefix or mem://name
	URI string   `yaml:"uri"`
	S3  S3Config `yaml:"s3"`
}

// S3Config represents S3 client settings
type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// NetworkConfig represents network configuration
type NetworkConfig struct {
	Timeouts       TimeoutConfig        `yaml:"timeouts"`
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// TimeoutConfig represents per-request timeouts
type TimeoutConfig struct {
	Read  time.Duration `yaml:"read"`
	Write time.Duration `yaml:"write"`
}

// RetryConfig represents retry settings
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// CircuitBreakerConfig represents the remote store breaker
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	HalfOpenRequests uint32        `yaml:"half_open_requests"`
}

// MonitoringConfig represents monitoring settings
type MonitoringConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled      bool              `yaml:"enabled"`
	Path         string            `yaml:"path"`
	Namespace    string            `yaml:"namespace"`
	CustomLabels map[string]string `yaml:"custom_labels,omitempty"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel:      "INFO",
			LogFormat:     "text",
			LogMaxSizeMB:  100,
			LogMaxBackups: 5,
			MetricsPort:   9100,
		},
		Cache: CacheConfig{
			TotalSize:    "512MiB",
			WriteSize:    "128MiB",
			MinFetchSize: "1MiB",
		},
		Network: NetworkConfig{
			Timeouts: TimeoutConfig{
				Read:  30 * time.Second,
				Write: 5 * time.Minute,
			},
			Retry: RetryConfig{
				MaxAttempts: 3,
				BaseDelay:   100 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          true,
				FailureThreshold: 5,
				OpenTimeout:      30 * time.Second,
				HalfOpenRequests: 1,
			},
		},
		Monitoring: MonitoringConfig{
			Metrics: MetricsConfig{
				Enabled:   false,
				Path:      "/metrics",
				Namespace: "rangecache",
			},
		},
	}
}

// Load builds a configuration from defaults, an optional YAML file and the
// environment, in that order, and validates the result.
func Load(filename string) (*Configuration, error) {
	cfg := NewDefault()
	if filename != "" {
		if err := cfg.LoadFromFile(filename); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return loadError(err, "failed to read config file").WithContext("file", filename)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return loadError(err, "failed to parse config file").WithContext("file", filename)
	}

	return nil
}

// LoadFromEnv overrides settings from RANGECACHE_* environment variables
func (c *Configuration) LoadFromEnv() error {
	strs := map[string]*string{
		"LOG_LEVEL":      &c.Global.LogLevel,
		"LOG_FILE":       &c.Global.LogFile,
		"LOG_FORMAT":     &c.Global.LogFormat,
		"TOTAL_SIZE":     &c.Cache.TotalSize,
		"WRITE_SIZE":     &c.Cache.WriteSize,
		"MIN_FETCH_SIZE": &c.Cache.MinFetchSize,
		"STORAGE_URI":    &c.Storage.URI,
		"S3_REGION":      &c.Storage.S3.Region,
		"S3_ENDPOINT":    &c.Storage.S3.Endpoint,
		"S3_PROFILE":     &c.Storage.S3.Profile,
	}
	for name, dst := range strs {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*dst = val
		}
	}

	ints := map[string]*int{
		"METRICS_PORT":       &c.Global.MetricsPort,
		"RETRY_MAX_ATTEMPTS": &c.Network.Retry.MaxAttempts,
	}
	for name, dst := range ints {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			n, err := strconv.Atoi(val)
			if err != nil {
				return loadError(err, "invalid integer in environment").WithContext("variable", EnvPrefix+name)
			}
			*dst = n
		}
	}

	bools := map[string]*bool{
		"S3_FORCE_PATH_STYLE": &c.Storage.S3.ForcePathStyle,
		"METRICS_ENABLED":     &c.Monitoring.Metrics.Enabled,
		"CIRCUIT_BREAKER":     &c.Network.CircuitBreaker.Enabled,
	}
	for name, dst := range bools {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			b, err := strconv.ParseBool(val)
			if err != nil {
				return loadError(err, "invalid boolean in environment").WithContext("variable", EnvPrefix+name)
			}
			*dst = b
		}
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Configuration) Validate() error {
	if _, err := utils.ParseLogLevel(c.Global.LogLevel); err != nil {
		return invalid(fmt.Sprintf("invalid log_level: %s (must be one of: DEBUG, INFO, WARN, ERROR)",
			c.Global.LogLevel))
	}
	if _, err := utils.ParseLogFormat(c.Global.LogFormat); err != nil {
		return invalid(fmt.Sprintf("invalid log_format: %s (must be text or json)", c.Global.LogFormat))
	}
	if c.Global.MetricsPort < 0 || c.Global.MetricsPort > 65535 {
		return invalid(fmt.Sprintf("metrics_port out of range: %d", c.Global.MetricsPort))
	}
	if c.Network.Retry.MaxAttempts <= 0 {
		return invalid("retry max_attempts must be greater than 0")
	}

	engine, err := c.EngineConfig()
	if err != nil {
		return err
	}
	return engine.Validate()
}

// EngineConfig converts the cache section into engine limits.
func (c *Configuration) EngineConfig() (cache.Config, error) {
	total, err := parseSize("total_size", c.Cache.TotalSize)
	if err != nil {
		return cache.Config{}, err
	}
	write, err := parseSize("write_size", c.Cache.WriteSize)
	if err != nil {
		return cache.Config{}, err
	}
	minFetch, err := parseSize("min_fetch_size", c.Cache.MinFetchSize)
	if err != nil {
		return cache.Config{}, err
	}
	return cache.Config{TotalLimit: total, WriteLimit: write, MinFetch: minFetch}, nil
}

// RetryConfig converts the retry section for the remote store clients.
func (c *Configuration) RetryConfig() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = c.Network.Retry.MaxAttempts
	cfg.InitialDelay = c.Network.Retry.BaseDelay
	cfg.MaxDelay = c.Network.Retry.MaxDelay
	return cfg
}

// BreakerConfig converts the circuit breaker section. The second result is
// false when the breaker is disabled.
func (c *Configuration) BreakerConfig() (circuit.Config, bool) {
	cb := c.Network.CircuitBreaker
	return circuit.Config{
		FailureThreshold: cb.FailureThreshold,
		OpenTimeout:      cb.OpenTimeout,
		HalfOpenRequests: cb.HalfOpenRequests,
	}, cb.Enabled
}

// MetricsConfig converts the monitoring section for metrics.NewCollector.
func (c *Configuration) MetricsConfig() *metrics.Config {
	return &metrics.Config{
		Enabled:   c.Monitoring.Metrics.Enabled,
		Port:      c.Global.MetricsPort,
		Path:      c.Monitoring.Metrics.Path,
		Namespace: c.Monitoring.Metrics.Namespace,
		Labels:    c.Monitoring.Metrics.CustomLabels,
	}
}

// LoggerConfig converts the global section for utils.NewStructuredLogger.
func (c *Configuration) LoggerConfig() (*utils.StructuredLoggerConfig, error) {
	level, err := utils.ParseLogLevel(c.Global.LogLevel)
	if err != nil {
		return nil, invalid(err.Error())
	}
	format, err := utils.ParseLogFormat(c.Global.LogFormat)
	if err != nil {
		return nil, invalid(err.Error())
	}

	cfg := utils.DefaultStructuredLoggerConfig()
	cfg.Level = level
	cfg.Format = format
	if c.Global.LogFile != "" {
		cfg.Rotation = &utils.RotationConfig{
			Filename:   c.Global.LogFile,
			MaxSize:    c.Global.LogMaxSizeMB,
			MaxBackups: c.Global.LogMaxBackups,
			Compress:   c.Global.LogCompress,
		}
	}
	return cfg, nil
}

func parseSize(field, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0" {
		return 0, nil
	}
	n, err := utils.ParseBytes(value)
	if err != nil {
		return 0, invalid(fmt.Sprintf("invalid %s: %v", field, err))
	}
	return n, nil
}

func invalid(msg string) *errors.CacheError {
	return errors.NewError(errors.ErrCodeInvalidConfig, msg).WithComponent("config")
}

func loadError(cause error, msg string) *errors.CacheError {
	return errors.Wrap(cause, errors.ErrCodeConfigLoad, msg).WithComponent("config")
}
