// Package memory provides an in-process object store backend.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/types"
)

// Backend stores objects in a map. It is safe for concurrent use.
type Backend struct {
	mu      sync.RWMutex
	name    string
	objects map[string]*object
	stats   Stats
}

type object struct {
	data     []byte
	modified time.Time
}

// Stats counts backend calls.
type Stats struct {
	Gets         int64 `json:"gets"`
	Puts         int64 `json:"puts"`
	Heads        int64 `json:"heads"`
	BytesRead    int64 `json:"bytes_read"`
	BytesWritten int64 `json:"bytes_written"`
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Backend)
)

// New creates an empty backend.
func New(name string) *Backend {
	return &Backend{
		name:    name,
		objects: make(map[string]*object),
	}
}

// Shared returns the process-wide backend registered under name, creating
// it on first use. mem:// URIs with the same name share objects.
func Shared(name string) *Backend {
	registryMu.Lock()
	defer registryMu.Unlock()

	b, ok := registry[name]
	if !ok {
		b = New(name)
		registry[name] = b
	}
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string {
	return b.name
}

// GetObject returns size bytes at offset; size <= 0 reads to the end.
func (b *Backend) GetObject(ctx context.Context, key string, offset, size int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Gets++

	obj, ok := b.objects[key]
	if !ok {
		return nil, notFound("get", key)
	}

	length := int64(len(obj.data))
	if offset >= length {
		return []byte{}, nil
	}
	end := length
	if size > 0 && offset+size < end {
		end = offset + size
	}

	out := make([]byte, end-offset)
	copy(out, obj.data[offset:end])
	b.stats.BytesRead += int64(len(out))
	return out, nil
}

// PutObject replaces the object with a copy of data.
func (b *Backend) PutObject(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Puts++
	b.stats.BytesWritten += int64(len(buf))
	b.objects[key] = &object{data: buf, modified: time.Now()}
	return nil
}

// HeadObject returns object metadata.
func (b *Backend) HeadObject(ctx context.Context, key string) (*types.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats.Heads++

	obj, ok := b.objects[key]
	if !ok {
		return nil, notFound("head", key)
	}
	return &types.ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		LastModified: obj.modified,
		ContentType:  "application/octet-stream",
	}, nil
}

// DeleteObject removes the object. Deleting a missing object is not an error.
func (b *Backend) DeleteObject(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

// Keys returns the stored keys in order.
func (b *Backend) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HealthCheck always succeeds.
func (b *Backend) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// GetStats returns a copy of the call counters.
func (b *Backend) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

func notFound(op, key string) error {
	return errors.NewError(errors.ErrCodeObjectNotFound, "object not found").
		WithComponent("memory").
		WithOperation(op).
		WithContext("key", key)
}
