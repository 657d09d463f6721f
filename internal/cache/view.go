package cache

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/objectfs/rangecache/internal/buffer"
	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/types"
)

// View is one consumer's handle on a path. It owns the consumer's write
// cache and reaches the remote store through its accessor.
//
// Calls on a single View are serialized; different views only meet in the
// engine's shared read cache and governor.
type View struct {
	engine   *Engine
	id       uint64
	path     string
	accessor types.Accessor

	mu     sync.Mutex
	dirty  *buffer.WriteBuffer
	closed bool
}

func newView(e *Engine, id uint64, path string, accessor types.Accessor) *View {
	return &View{
		engine:   e,
		id:       id,
		path:     path,
		accessor: accessor,
		dirty:    buffer.NewWriteBuffer(path),
	}
}

// ID returns the engine-unique view number.
func (v *View) ID() uint64 {
	return v.id
}

// Path returns the path the view is bound to.
func (v *View) Path() string {
	return v.path
}

// Accessor returns the remote accessor of the view.
func (v *View) Accessor() types.Accessor {
	return v.accessor
}

// DirtyBytes returns the number of unflushed bytes.
func (v *View) DirtyBytes() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirty.Size()
}

// DirtyEnd returns the offset one past the last unflushed byte, or 0.
func (v *View) DirtyEnd() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dirty.End()
}

// Read fills dst with the bytes starting at pos and returns how many were
// read. Unflushed writes of this view win over cached and remote bytes. A
// short count without error means end of data was reached; a read at end of
// data returns 0.
func (v *View) Read(ctx context.Context, pos int64, dst []byte) (int, error) {
	if pos < 0 {
		return 0, invalidArgument("read", "position must not be negative")
	}
	if len(dst) == 0 {
		return 0, nil
	}
	// no byte lives at or past math.MaxInt64
	if int64(len(dst)) > math.MaxInt64-pos {
		dst = dst[:math.MaxInt64-pos]
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return 0, ErrClosed
	}
	n, fetched, err := v.read(ctx, pos, dst)
	v.mu.Unlock()

	if fetched {
		if gerr := v.engine.enforce(ctx); gerr != nil && err == nil {
			err = gerr
		}
	}
	return n, err
}

func (v *View) read(ctx context.Context, pos int64, dst []byte) (int, bool, error) {
	e := v.engine
	written := 0
	fetched := false
	eof := int64(-1)

	for written < len(dst) {
		at := pos + int64(written)
		rem := dst[written:]

		offset, item, ok := v.dirty.Lookup(at)
		if ok && offset >= 0 {
			n := copy(rem, item.Data[offset:])
			written += n
			e.stats.writeHits.Add(1)
			e.metrics.RecordCacheHit("write", int64(n))
			continue
		}

		// clean bytes never cover a dirty range
		limit := int64(len(rem))
		if ok {
			limit = min(limit, -offset)
		}

		n, gap := e.reads.read(v.path, at, rem[:limit])
		if n > 0 {
			written += n
			e.stats.readHits.Add(1)
			e.metrics.RecordCacheHit("read", int64(n))
			continue
		}

		if eof < 0 || at < eof {
			need := limit
			if gap > 0 {
				need = min(need, gap)
			}
			size := max(need, e.config.MinFetch)
			if gap > 0 {
				size = min(size, gap)
			}

			e.stats.misses.Add(1)
			e.metrics.RecordCacheMiss("read", need)

			gen := e.reads.generation(v.path)
			data, err := e.fetch(ctx, v, at, size)
			if err != nil {
				return written, fetched, remoteError(err, errors.ErrCodeStorageRead, "read", v.path,
					"remote read failed")
			}
			fetched = true

			if len(data) > 0 {
				written += copy(rem[:need], data)
				if int64(len(data)) < size {
					eof = at + int64(len(data))
				}
				e.reads.insert(v.path, at, data, gen)
				continue
			}
			eof = at
		}

		// past the remote end; bytes before a later dirty range read as zeros
		if !ok {
			break
		}
		clear(rem[:limit])
		written += int(limit)
	}

	return written, fetched, nil
}

// Write buffers src at pos. Writes never reach the remote store directly;
// the governor may flush this or other views before Write returns, and a
// failed governor flush is reported here. Once the engine is closed Write
// fails with ErrEngineClosed; Flush, Truncate and Close keep working.
func (v *View) Write(ctx context.Context, pos int64, src []byte) error {
	if pos < 0 {
		return invalidArgument("write", "position must not be negative")
	}
	if int64(len(src)) > math.MaxInt64-pos {
		return invalidArgument("write", "write extends past the maximum offset")
	}
	if len(src) == 0 {
		return nil
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if !v.engine.views.add(v) {
		v.mu.Unlock()
		return ErrEngineClosed
	}
	v.dirty.Write(pos, src)
	v.mu.Unlock()

	return v.engine.enforce(ctx)
}

// Flush writes every dirty byte through the accessor in one call. After a
// failure the dirty bytes are kept, so calling Flush again is safe. A Flush
// with nothing dirty makes no remote call.
func (v *View) Flush(ctx context.Context) error {
	_, err := v.flush(ctx, "flush")
	return err
}

func (v *View) flush(ctx context.Context, op string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flushLocked(ctx, op)
}

func (v *View) flushLocked(ctx context.Context, op string) (int64, error) {
	items := v.dirty.Snapshot()
	if len(items) == 0 {
		return 0, nil
	}
	size := v.dirty.Size()

	began := time.Now()
	err := v.accessor.Write(ctx, items)
	v.engine.metrics.RecordOperation("flush", time.Since(began), size, err == nil)
	if err != nil {
		return 0, remoteError(err, errors.ErrCodeStorageWrite, op, v.path, "write-through failed")
	}

	updated := v.engine.reads.apply(v.path, items)
	v.dirty.Clear()
	v.engine.views.remove(v)
	v.engine.stats.flushes.Add(1)

	v.engine.logger.Debug("view flushed", map[string]interface{}{
		"path":         v.path,
		"view":         v.id,
		"op":           op,
		"bytes":        size,
		"extents":      len(items),
		"read_updated": updated,
	})
	return size, nil
}

// Truncate cuts the data of the path to size. Dirty bytes below size are
// written through first; dirty bytes at or beyond size are discarded. Local
// state changes only after both remote calls succeed.
func (v *View) Truncate(ctx context.Context, size int64) error {
	if size < 0 {
		return invalidArgument("truncate", "size must not be negative")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrClosed
	}

	began := time.Now()
	prefix := v.dirty.Prefix(size)
	if len(prefix) > 0 {
		if err := v.accessor.Write(ctx, prefix); err != nil {
			v.engine.metrics.RecordOperation("truncate", time.Since(began), size, false)
			return remoteError(err, errors.ErrCodeStorageWrite, "truncate", v.path,
				"write-through before truncate failed")
		}
	}
	if err := v.accessor.Truncate(ctx, size); err != nil {
		v.engine.metrics.RecordOperation("truncate", time.Since(began), size, false)
		return remoteError(err, errors.ErrCodeStorageTruncate, "truncate", v.path, "remote truncate failed")
	}
	v.engine.metrics.RecordOperation("truncate", time.Since(began), size, true)

	v.engine.reads.apply(v.path, prefix)
	v.dirty.Clear()
	v.engine.views.remove(v)
	v.engine.reads.truncate(v.path, size)

	v.engine.logger.Debug("view truncated", map[string]interface{}{
		"path": v.path,
		"view": v.id,
		"size": size,
	})
	return nil
}

// Close flushes the view and releases it. When the flush fails the view stays
// open with its dirty bytes; closing a closed view is a no-op.
func (v *View) Close(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	if _, err := v.flushLocked(ctx, "close"); err != nil {
		return err
	}
	v.closed = true
	v.engine.views.remove(v)
	return nil
}
