package adapter

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"

	"github.com/objectfs/rangecache/internal/cache"
	"github.com/objectfs/rangecache/internal/circuit"
	"github.com/objectfs/rangecache/internal/config"
	"github.com/objectfs/rangecache/internal/filesystem"
	"github.com/objectfs/rangecache/internal/metrics"
	"github.com/objectfs/rangecache/internal/storage"
	"github.com/objectfs/rangecache/internal/storage/memory"
	"github.com/objectfs/rangecache/internal/storage/s3"
	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/retry"
	"github.com/objectfs/rangecache/pkg/types"
	"github.com/objectfs/rangecache/pkg/utils"
)

// Adapter wires a storage backend, the cache engine, metrics and logging
// together and opens files on them.
type Adapter struct {
	location Location
	config   *config.Configuration

	logger    *utils.StructuredLogger
	ownLogger bool
	metrics   *metrics.Collector
	backend   types.Backend
	engine    *cache.Engine
	retryer   *retry.Retryer
	breaker   *circuit.Breaker

	mu      sync.Mutex
	started bool
}

// Option configures an Adapter
type Option func(*Adapter)

// WithBackend uses backend instead of resolving one from the URI scheme.
func WithBackend(backend types.Backend) Option {
	return func(a *Adapter) {
		a.backend = backend
	}
}

// WithLogger uses logger instead of one built from the configuration.
func WithLogger(logger *utils.StructuredLogger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an adapter for storageURI. Nothing is connected until Start.
func New(ctx context.Context, storageURI string, cfg *config.Configuration, opts ...Option) (*Adapter, error) {
	location, err := ParseStorageURI(storageURI)
	if err != nil {
		return nil, fmt.Errorf("invalid storage URI: %w", err)
	}

	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &Adapter{
		location: location,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Location returns the parsed storage URI.
func (a *Adapter) Location() Location {
	return a.location
}

// Start builds the logger, metrics collector, backend and cache engine.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.NewError(errors.ErrCodeInvalidState, "adapter already started").
			WithComponent("adapter")
	}

	if a.logger == nil {
		logCfg, err := a.config.LoggerConfig()
		if err != nil {
			return err
		}
		logger, err := utils.NewStructuredLogger(logCfg)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		a.logger = logger
		a.ownLogger = true
	}
	logger := a.logger.WithComponent("adapter")

	collector, err := metrics.NewCollector(a.config.MetricsConfig())
	if err != nil {
		return fmt.Errorf("failed to create metrics collector: %w", err)
	}
	if collector.Enabled() {
		if err := collector.Start(ctx); err != nil {
			return err
		}
	}
	a.metrics = collector

	a.retryer = retry.New(a.config.RetryConfig())
	a.breaker = nil
	if breakerCfg, ok := a.config.BreakerConfig(); ok {
		breakerCfg.OnStateChange = func(name string, from, to circuit.State) {
			logger.Warn("Remote store breaker changed state", map[string]interface{}{
				"store": name,
				"from":  from.String(),
				"to":    to.String(),
			})
		}
		a.breaker = circuit.New(a.location.String(), breakerCfg)
	}

	if a.backend == nil {
		backend, err := a.newBackend(ctx)
		if err != nil {
			a.stopMetrics(ctx)
			return err
		}
		a.backend = backend
	}

	engineCfg, err := a.config.EngineConfig()
	if err != nil {
		a.stopMetrics(ctx)
		return err
	}
	engine, err := cache.New(engineCfg, cache.WithLogger(a.logger), cache.WithMetrics(collector))
	if err != nil {
		a.stopMetrics(ctx)
		return err
	}
	a.engine = engine
	a.started = true

	logger.Info("Adapter started", map[string]interface{}{
		"storage":     a.location.String(),
		"total_limit": utils.FormatBytes(engineCfg.TotalLimit),
		"write_limit": utils.FormatBytes(engineCfg.WriteLimit),
		"min_fetch":   utils.FormatBytes(engineCfg.MinFetch),
		"metrics":     collector.Enabled(),
	})
	return nil
}

func (a *Adapter) newBackend(ctx context.Context) (types.Backend, error) {
	switch a.location.Scheme {
	case SchemeMemory:
		return memory.Shared(a.location.Bucket), nil
	case SchemeS3:
		s3cfg := a.config.Storage.S3
		return s3.NewBackend(ctx, a.location.Bucket, &s3.Config{
			Region:          s3cfg.Region,
			Endpoint:        s3cfg.Endpoint,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			Profile:         s3cfg.Profile,
			ForcePathStyle:  s3cfg.ForcePathStyle,
			MaxRetries:      1,
			RequestTimeout:  a.config.Network.Timeouts.Read,
		}, s3.WithLogger(a.logger), s3.WithMetrics(a.metrics))
	default:
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "unsupported storage scheme").
			WithComponent("adapter").
			WithContext("scheme", a.location.Scheme)
	}
}

// Open opens path with os.O_* flags. O_TRUNC on a writable handle empties
// the object before the handle is returned.
func (a *Adapter) Open(ctx context.Context, path string, flags int) (*filesystem.File, error) {
	engine, backend, err := a.components()
	if err != nil {
		return nil, err
	}

	key := a.location.Key(path)
	accessor, err := storage.NewObjectAccessor(backend, key,
		storage.WithRetryer(a.retryer),
		storage.WithBreaker(a.breaker),
		storage.WithLogger(a.logger.WithComponent("storage")))
	if err != nil {
		return nil, err
	}

	view, err := engine.NewView(key, accessor)
	if err != nil {
		return nil, err
	}

	if flags&os.O_TRUNC != 0 && flags&(os.O_WRONLY|os.O_RDWR) != 0 {
		if err := view.Truncate(ctx, 0); err != nil {
			return nil, multierr.Append(err, view.Close(ctx))
		}
	}

	return filesystem.NewFile(ctx, view, flags), nil
}

// Stat returns metadata of the object behind path.
func (a *Adapter) Stat(ctx context.Context, path string) (filesystem.FileInfo, error) {
	_, backend, err := a.components()
	if err != nil {
		return filesystem.FileInfo{}, err
	}

	var info *types.ObjectInfo
	head := func(ctx context.Context) error {
		return a.retryer.DoWithContext(ctx, func(ctx context.Context) error {
			var err error
			info, err = backend.HeadObject(ctx, a.location.Key(path))
			return err
		})
	}
	if a.breaker != nil {
		err = a.breaker.Execute(ctx, head)
	} else {
		err = head(ctx)
	}
	if err != nil {
		return filesystem.FileInfo{}, err
	}
	return filesystem.InfoFromObject(info), nil
}

// Invalidate drops cached clean data of path after an external change.
func (a *Adapter) Invalidate(path string) {
	if engine, _, err := a.components(); err == nil {
		engine.Invalidate(a.location.Key(path))
	}
}

// Stats returns cache engine statistics.
func (a *Adapter) Stats() types.CacheStats {
	engine, _, err := a.components()
	if err != nil {
		return types.CacheStats{}
	}
	return engine.Stats()
}

// Breaker returns the remote store breaker, nil when disabled or before Start.
func (a *Adapter) Breaker() *circuit.Breaker {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.breaker
}

// Metrics returns the metrics collector, nil before Start.
func (a *Adapter) Metrics() *metrics.Collector {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.metrics
}

// Stop flushes all dirty data and releases the components. Every failure
// is reported.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return errors.NewError(errors.ErrCodeInvalidState, "adapter not started").
			WithComponent("adapter")
	}
	a.started = false

	err := a.engine.Close(ctx)
	if err != nil {
		a.logger.WithError(err).Error("Failed to flush dirty data on stop")
	}
	a.stopMetrics(ctx)
	if a.ownLogger {
		err = multierr.Append(err, a.logger.Close())
	}
	return err
}

func (a *Adapter) stopMetrics(ctx context.Context) {
	if a.metrics != nil && a.metrics.Enabled() {
		if err := a.metrics.Stop(ctx); err != nil {
			a.logger.WithError(err).Warn("Failed to stop metrics server")
		}
	}
}

func (a *Adapter) components() (*cache.Engine, types.Backend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil, nil, errors.NewError(errors.ErrCodeInvalidState, "adapter not started").
			WithComponent("adapter")
	}
	return a.engine, a.backend, nil
}
