package cache

import (
	"fmt"
	"time"

	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/types"
	"github.com/objectfs/rangecache/pkg/utils"
)

// Config holds the capacity limits of an Engine. Limits are fixed for the
// lifetime of the engine.
type Config struct {
	// TotalLimit bounds read cache plus write cache bytes.
	TotalLimit int64 `yaml:"total_limit"`

	// WriteLimit bounds the dirty bytes of all views together.
	WriteLimit int64 `yaml:"write_limit"`

	// MinFetch is the smallest remote read issued on a cache miss.
	MinFetch int64 `yaml:"min_fetch"`
}

// Validate checks the limits. MinFetch is not validated; values below zero
// are clamped by New.
func (c Config) Validate() error {
	if c.TotalLimit < 0 {
		return invalidConfig(fmt.Sprintf("total limit must not be negative, got %d", c.TotalLimit))
	}
	if c.WriteLimit < 0 {
		return invalidConfig(fmt.Sprintf("write limit must not be negative, got %d", c.WriteLimit))
	}
	if c.WriteLimit > c.TotalLimit {
		return invalidConfig(fmt.Sprintf("write limit %s exceeds total limit %s",
			utils.FormatBytes(c.WriteLimit), utils.FormatBytes(c.TotalLimit)))
	}
	return nil
}

func invalidConfig(msg string) error {
	return errors.NewError(errors.ErrCodeInvalidConfig, msg).
		WithComponent("cache").
		WithOperation("new")
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(logger *utils.StructuredLogger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger.WithComponent("cache")
		}
	}
}

// WithMetrics sets the collector receiving cache and remote operation metrics.
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordOperation(string, time.Duration, int64, bool) {}
func (nopMetrics) RecordCacheHit(string, int64)                        {}
func (nopMetrics) RecordCacheMiss(string, int64)                       {}
func (nopMetrics) RecordEviction(string, int64)                        {}
func (nopMetrics) UpdateCacheSize(string, int64)                       {}
