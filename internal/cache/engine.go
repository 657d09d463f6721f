package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/objectfs/rangecache/pkg/types"
	"github.com/objectfs/rangecache/pkg/utils"
)

// Engine owns the shared read cache, the registry of dirty views and the
// capacity governor. Views created by the same engine share its read cache;
// independent engines share nothing.
type Engine struct {
	config  Config
	logger  *utils.StructuredLogger
	metrics types.MetricsCollector

	reads *readCache
	views *registry
	fills singleflight.Group

	// govMu serializes governor passes.
	govMu sync.Mutex

	nextID atomic.Uint64
	stats  engineStats
}

type engineStats struct {
	readHits      atomic.Uint64
	writeHits     atomic.Uint64
	misses        atomic.Uint64
	remoteFetches atomic.Uint64
	flushes       atomic.Uint64
	evictions     atomic.Uint64
}

// New creates an engine with the given limits. It fails when a limit is
// negative or the write limit exceeds the total limit.
func New(config Config, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.MinFetch < 0 {
		config.MinFetch = 0
	}

	e := &Engine{
		config:  config,
		logger:  utils.NewNopLogger(),
		metrics: nopMetrics{},
		reads:   newReadCache(),
		views:   newRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.logger.Debug("cache engine created", map[string]interface{}{
		"total_limit": utils.FormatBytes(config.TotalLimit),
		"write_limit": utils.FormatBytes(config.WriteLimit),
		"min_fetch":   utils.FormatBytes(config.MinFetch),
	})
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// NewView binds path and its remote accessor to the engine.
func (e *Engine) NewView(path string, accessor types.Accessor) (*View, error) {
	if path == "" {
		return nil, invalidArgument("new_view", "path must not be empty")
	}
	if accessor == nil {
		return nil, invalidArgument("new_view", "accessor must not be nil")
	}
	if e.views.isClosed() {
		return nil, ErrEngineClosed
	}
	return newView(e, e.nextID.Add(1), path, accessor), nil
}

// Invalidate drops the cached clean bytes of path. Dirty bytes held by views
// are not affected.
func (e *Engine) Invalidate(path string) {
	if dropped := e.reads.invalidate(path); dropped > 0 {
		e.logger.Debug("read cache invalidated", map[string]interface{}{
			"path":  path,
			"bytes": dropped,
		})
		e.metrics.UpdateCacheSize("read", e.reads.bytes())
	}
}

// Stats returns a snapshot of cache occupancy and activity.
func (e *Engine) Stats() types.CacheStats {
	stats := types.CacheStats{
		ReadHits:       e.stats.readHits.Load(),
		WriteHits:      e.stats.writeHits.Load(),
		Misses:         e.stats.misses.Load(),
		RemoteFetches:  e.stats.remoteFetches.Load(),
		Flushes:        e.stats.flushes.Load(),
		Evictions:      e.stats.evictions.Load(),
		ReadCacheBytes: e.reads.bytes(),
		ReadCacheItems: e.reads.items(),
		TotalLimit:     e.config.TotalLimit,
		WriteLimit:     e.config.WriteLimit,
	}
	for _, v := range e.views.snapshot() {
		stats.WriteCacheBytes += v.DirtyBytes()
		stats.DirtyViews++
	}
	if lookups := stats.ReadHits + stats.WriteHits + stats.Misses; lookups > 0 {
		stats.HitRate = float64(stats.ReadHits+stats.WriteHits) / float64(lookups)
	}
	return stats
}

// Close flushes every dirty view in parallel and rejects new views. All flush
// failures are returned; views that failed to flush keep their dirty bytes.
func (e *Engine) Close(ctx context.Context) error {
	if !e.views.close() {
		return nil
	}

	var (
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, v := range e.views.snapshot() {
		v := v
		g.Go(func() error {
			if err := v.Flush(gctx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		e.logger.WithError(errs).Warn("engine closed with unflushed views")
	}
	return errs
}

// enforce runs both capacity checks. The write check flushes the largest
// dirty views first until the write limit holds; the total check then evicts
// least recently used read items until the total limit holds.
func (e *Engine) enforce(ctx context.Context) error {
	e.govMu.Lock()
	defer e.govMu.Unlock()

	errs := e.enforceWriteLimit(ctx)
	e.enforceTotalLimit()
	return errs
}

type viewSize struct {
	view  *View
	bytes int64
}

func (e *Engine) dirtySizes() ([]viewSize, int64) {
	views := e.views.snapshot()
	sizes := make([]viewSize, 0, len(views))
	var total int64
	for _, v := range views {
		n := v.DirtyBytes()
		sizes = append(sizes, viewSize{view: v, bytes: n})
		total += n
	}
	return sizes, total
}

func sortBySizeDesc(sizes []viewSize) {
	sort.SliceStable(sizes, func(i, j int) bool {
		return sizes[i].bytes > sizes[j].bytes
	})
}

func (e *Engine) enforceWriteLimit(ctx context.Context) error {
	sizes, total := e.dirtySizes()
	e.metrics.UpdateCacheSize("write", total)

	over := total - e.config.WriteLimit
	if over <= 0 {
		return nil
	}

	sortBySizeDesc(sizes)

	var errs error
	for _, s := range sizes {
		if over <= 0 {
			break
		}
		flushed, err := s.view.flush(ctx, "governor")
		if err != nil {
			e.logger.WithError(err).Warn("governor flush failed", map[string]interface{}{
				"path": s.view.path,
				"view": s.view.id,
			})
			errs = multierr.Append(errs, err)
			continue
		}
		over -= flushed
	}

	if over > 0 {
		e.logger.Warn("write cache still over limit", map[string]interface{}{
			"over": utils.FormatBytes(over),
		})
	}
	return errs
}

func (e *Engine) enforceTotalLimit() {
	_, writeBytes := e.dirtySizes()
	readBytes := e.reads.bytes()

	over := readBytes + writeBytes - e.config.TotalLimit
	if over > 0 {
		evicted := e.reads.evict(over)
		var freed int64
		for _, n := range evicted {
			freed += n
			e.metrics.RecordEviction("read", n)
		}
		e.stats.evictions.Add(uint64(len(evicted)))
		readBytes -= freed

		e.logger.Debug("read cache evicted", map[string]interface{}{
			"items": len(evicted),
			"bytes": freed,
		})
	}

	e.metrics.UpdateCacheSize("read", readBytes)
	e.metrics.UpdateCacheSize("write", writeBytes)
}

// fetch reads [start, start+size) of path from the remote store. Concurrent
// identical fetches share one remote call.
func (e *Engine) fetch(ctx context.Context, v *View, start, size int64) ([]byte, error) {
	key := fmt.Sprintf("%s\x00%d\x00%d", v.path, start, size)
	val, err, shared := e.fills.Do(key, func() (interface{}, error) {
		began := time.Now()
		data, err := v.accessor.Read(ctx, start, size)
		e.metrics.RecordOperation("fetch", time.Since(began), int64(len(data)), err == nil)
		e.stats.remoteFetches.Add(1)
		if int64(len(data)) > size {
			data = data[:size]
		}
		return data, err
	})
	if err != nil {
		return nil, err
	}

	data := val.([]byte)
	if shared {
		data = append([]byte(nil), data...)
	}
	return data, nil
}
