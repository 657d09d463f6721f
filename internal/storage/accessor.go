package storage

import (
	"context"
	"time"

	"github.com/objectfs/rangecache/internal/circuit"
	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/retry"
	"github.com/objectfs/rangecache/pkg/types"
	"github.com/objectfs/rangecache/pkg/utils"
)

// ObjectAccessor presents one object of a Backend as a byte-addressable
// remote for the cache engine. Writes and truncates rewrite the whole object.
type ObjectAccessor struct {
	backend types.Backend
	key     string
	retryer *retry.Retryer
	breaker *circuit.Breaker
	logger  *utils.StructuredLogger
}

// AccessorOption configures an ObjectAccessor
type AccessorOption func(*ObjectAccessor)

// WithRetryer sets the retry policy for backend calls.
func WithRetryer(r *retry.Retryer) AccessorOption {
	return func(a *ObjectAccessor) {
		if r != nil {
			a.retryer = r
		}
	}
}

// WithBreaker guards backend calls with a breaker shared by every accessor
// of the same store.
func WithBreaker(b *circuit.Breaker) AccessorOption {
	return func(a *ObjectAccessor) {
		a.breaker = b
	}
}

// WithLogger sets the accessor logger.
func WithLogger(logger *utils.StructuredLogger) AccessorOption {
	return func(a *ObjectAccessor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewObjectAccessor creates an accessor for key on backend.
func NewObjectAccessor(backend types.Backend, key string, opts ...AccessorOption) (*ObjectAccessor, error) {
	if backend == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidArgument, "backend is required").
			WithComponent("storage")
	}
	if err := utils.ValidateObjectKey(key); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePathInvalid, "invalid object key").
			WithComponent("storage")
	}

	a := &ObjectAccessor{
		backend: backend,
		key:     key,
		retryer: retry.New(retry.DefaultConfig()),
		logger:  utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithField("key", key)
	a.retryer = a.retryer.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		a.logger.Warn("Retrying backend call", map[string]interface{}{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
	})
	return a, nil
}

// Key returns the object key.
func (a *ObjectAccessor) Key() string {
	return a.key
}

// Read returns up to size bytes at start. A missing object reads as empty.
func (a *ObjectAccessor) Read(ctx context.Context, start, size int64) ([]byte, error) {
	if start < 0 || size < 0 {
		return nil, errors.NewError(errors.ErrCodeInvalidArgument, "negative range").
			WithComponent("storage").WithOperation("read")
	}
	if size == 0 {
		return nil, nil
	}

	var data []byte
	err := a.call(ctx, func(ctx context.Context) error {
		var err error
		data, err = a.backend.GetObject(ctx, a.key, start, size)
		return err
	})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > size {
		data = data[:size]
	}
	return data, nil
}

// Write patches items into the object. Bytes between the current end and
// an item past it are zero-filled.
func (a *ObjectAccessor) Write(ctx context.Context, items []types.Item) error {
	if len(items) == 0 {
		return nil
	}

	current, err := a.load(ctx)
	if err != nil {
		return err
	}

	end := int64(len(current))
	for i := range items {
		if e := items[i].End(); e > end {
			end = e
		}
	}

	data := make([]byte, end)
	copy(data, current)
	for i := range items {
		copy(data[items[i].Start:], items[i].Data)
	}

	a.logger.Debug("Rewriting object", map[string]interface{}{
		"items": len(items),
		"size":  end,
	})
	return a.store(ctx, data)
}

// Truncate cuts or zero-extends the object to size bytes.
func (a *ObjectAccessor) Truncate(ctx context.Context, size int64) error {
	if size < 0 {
		return errors.NewError(errors.ErrCodeInvalidArgument, "negative size").
			WithComponent("storage").WithOperation("truncate")
	}

	current, err := a.load(ctx)
	if err != nil {
		return err
	}
	if int64(len(current)) == size {
		return nil
	}

	data := make([]byte, size)
	copy(data, current)
	return a.store(ctx, data)
}

// Size returns the object size, zero when it does not exist.
func (a *ObjectAccessor) Size(ctx context.Context) (int64, error) {
	var info *types.ObjectInfo
	err := a.call(ctx, func(ctx context.Context) error {
		var err error
		info, err = a.backend.HeadObject(ctx, a.key)
		return err
	})
	if errors.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

func (a *ObjectAccessor) load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := a.call(ctx, func(ctx context.Context) error {
		var err error
		data, err = a.backend.GetObject(ctx, a.key, 0, 0)
		return err
	})
	if errors.IsNotFound(err) {
		return nil, nil
	}
	return data, err
}

func (a *ObjectAccessor) store(ctx context.Context, data []byte) error {
	return a.call(ctx, func(ctx context.Context) error {
		return a.backend.PutObject(ctx, a.key, data)
	})
}

// call retries fn and reports the final outcome to the breaker, if any.
func (a *ObjectAccessor) call(ctx context.Context, fn func(context.Context) error) error {
	if a.breaker == nil {
		return a.retryer.DoWithContext(ctx, fn)
	}
	return a.breaker.Execute(ctx, func(ctx context.Context) error {
		return a.retryer.DoWithContext(ctx, fn)
	})
}
