package types

import (
	"context"
	"time"
)

// Accessor moves bytes of one path between the cache engine and the remote
// store. It is supplied by the caller for every view.
type Accessor interface {
	// Read returns up to size bytes starting at start. A short or empty
	// result means end of data; the result is never padded.
	Read(ctx context.Context, start, size int64) ([]byte, error)

	// Write stores a batch of disjoint byte ranges. Implementations must not
	// retain or modify the item buffers after returning.
	Write(ctx context.Context, items []Item) error

	// Truncate cuts or zero-extends the remote data to size bytes.
	Truncate(ctx context.Context, size int64) error
}

// Sizer is implemented by accessors that can report the remote data size.
type Sizer interface {
	Size(ctx context.Context) (int64, error)
}

// Backend defines the interface for object storage backends
type Backend interface {
	// GetObject returns size bytes at offset; size <= 0 reads to the end.
	// Reading at or past the end returns an empty slice.
	GetObject(ctx context.Context, key string, offset, size int64) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte) error
	HeadObject(ctx context.Context, key string) (*ObjectInfo, error)

	// Health check
	HealthCheck(ctx context.Context) error
}

// MetricsCollector defines the metrics collection interface
type MetricsCollector interface {
	RecordOperation(operation string, duration time.Duration, size int64, success bool)
	RecordCacheHit(tier string, size int64)
	RecordCacheMiss(tier string, size int64)
	RecordEviction(tier string, size int64)
	UpdateCacheSize(tier string, size int64)
}
