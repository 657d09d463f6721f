package storage

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/rangecache/internal/circuit"
	"github.com/objectfs/rangecache/internal/storage/memory"
	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/retry"
	"github.com/objectfs/rangecache/pkg/types"
)

var (
	_ types.Accessor = (*ObjectAccessor)(nil)
	_ types.Sizer    = (*ObjectAccessor)(nil)
)

// flakyBackend fails the first failures calls with a retryable error.
type flakyBackend struct {
	*memory.Backend
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyBackend) fail() error {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return errors.NewError(errors.ErrCodeNetworkError, "connection reset")
	}
	return nil
}

func (f *flakyBackend) GetObject(ctx context.Context, key string, offset, size int64) ([]byte, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.Backend.GetObject(ctx, key, offset, size)
}

func (f *flakyBackend) PutObject(ctx context.Context, key string, data []byte) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.Backend.PutObject(ctx, key, data)
}

func fastRetry(attempts int) AccessorOption {
	return WithRetryer(retry.New(retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}))
}

func newTestAccessor(t *testing.T, content string) (*ObjectAccessor, *memory.Backend) {
	t.Helper()
	backend := memory.New("test")
	if content != "" {
		require.NoError(t, backend.PutObject(context.Background(), "obj", []byte(content)))
	}
	a, err := NewObjectAccessor(backend, "obj", fastRetry(3))
	require.NoError(t, err)
	return a, backend
}

func objectContent(t *testing.T, b *memory.Backend) string {
	t.Helper()
	data, err := b.GetObject(context.Background(), "obj", 0, 0)
	require.NoError(t, err)
	return string(data)
}

func TestNewObjectAccessorValidation(t *testing.T) {
	_, err := NewObjectAccessor(nil, "k")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidArgument))

	for _, key := range []string{"", "/abs", "a/../b"} {
		_, err := NewObjectAccessor(memory.New("x"), key)
		assert.True(t, errors.HasCode(err, errors.ErrCodePathInvalid), "key %q", key)
	}
}

func TestRead(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAccessor(t, "hello world")

	data, err := a.Read(ctx, 6, 5)
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	data, err = a.Read(ctx, 6, 100)
	require.NoError(t, err)
	assert.Equal(t, "world", string(data), "short read at end")

	data, err = a.Read(ctx, 50, 10)
	require.NoError(t, err)
	assert.Empty(t, data)

	data, err = a.Read(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = a.Read(ctx, -1, 4)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidArgument))
}

func TestReadMissingObjectIsEmpty(t *testing.T) {
	a, _ := newTestAccessor(t, "")

	data, err := a.Read(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, data)

	size, err := a.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		items   []types.Item
		want    string
	}{
		{
			name:    "overwrite inside",
			initial: "aaaaaaaaaa",
			items:   []types.Item{{Start: 2, Data: []byte("XY")}, {Start: 7, Data: []byte("Z")}},
			want:    "aaXYaaaZaa",
		},
		{
			name:    "extend past end",
			initial: "abc",
			items:   []types.Item{{Start: 2, Data: []byte("XYZ")}},
			want:    "abXYZ",
		},
		{
			name:    "gap is zero filled",
			initial: "ab",
			items:   []types.Item{{Start: 4, Data: []byte("Z")}},
			want:    "ab\x00\x00Z",
		},
		{
			name:  "creates missing object",
			items: []types.Item{{Start: 1, Data: []byte("new")}},
			want:  "\x00new",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, backend := newTestAccessor(t, tt.initial)
			require.NoError(t, a.Write(context.Background(), tt.items))
			assert.Equal(t, tt.want, objectContent(t, backend))
		})
	}
}

func TestWriteEmptyBatchIsNoop(t *testing.T) {
	a, backend := newTestAccessor(t, "abc")
	require.NoError(t, a.Write(context.Background(), nil))
	assert.Zero(t, backend.GetStats().Gets)
	assert.Equal(t, int64(1), backend.GetStats().Puts)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		size    int64
		want    string
	}{
		{"shrink", "hello world", 5, "hello"},
		{"extend", "hi", 4, "hi\x00\x00"},
		{"to zero", "hello", 0, ""},
		{"missing object", "", 3, "\x00\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, backend := newTestAccessor(t, tt.initial)
			require.NoError(t, a.Truncate(context.Background(), tt.size))
			assert.Equal(t, tt.want, objectContent(t, backend))

			size, err := a.Size(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.size, size)
		})
	}

	a, _ := newTestAccessor(t, "abc")
	err := a.Truncate(context.Background(), -1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidArgument))
}

func TestTruncateSameSizeSkipsPut(t *testing.T) {
	a, backend := newTestAccessor(t, "abc")
	require.NoError(t, a.Truncate(context.Background(), 3))
	assert.Equal(t, int64(1), backend.GetStats().Puts)
}

func TestRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyBackend{Backend: memory.New("flaky")}
	require.NoError(t, flaky.Backend.PutObject(ctx, "obj", []byte("data")))

	a, err := NewObjectAccessor(flaky, "obj", fastRetry(3))
	require.NoError(t, err)

	flaky.failures.Store(2)
	data, err := a.Read(ctx, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	assert.Equal(t, int32(3), flaky.calls.Load())
}

func TestRetryExhausted(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyBackend{Backend: memory.New("flaky")}

	a, err := NewObjectAccessor(flaky, "obj", fastRetry(2))
	require.NoError(t, err)

	flaky.failures.Store(10)
	err = a.Write(ctx, []types.Item{{Start: 0, Data: []byte("x")}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRetryExhausted))
	assert.True(t, errors.HasCode(err, errors.ErrCodeNetworkError))
	assert.Equal(t, int32(2), flaky.calls.Load())
}

func TestBreakerStopsCallsToFailingStore(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyBackend{Backend: memory.New("flaky")}
	breaker := circuit.New("mem://flaky", circuit.Config{FailureThreshold: 2, OpenTimeout: time.Hour})

	a, err := NewObjectAccessor(flaky, "obj", fastRetry(2), WithBreaker(breaker))
	require.NoError(t, err)

	flaky.failures.Store(100)
	for i := 0; i < 2; i++ {
		_, err = a.Read(ctx, 0, 4)
		assert.True(t, errors.HasCode(err, errors.ErrCodeRetryExhausted))
	}
	assert.Equal(t, circuit.StateOpen, breaker.State())
	assert.Equal(t, int32(4), flaky.calls.Load())

	_, err = a.Size(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, int32(4), flaky.calls.Load())
}

func TestBreakerIgnoresMissingObjects(t *testing.T) {
	ctx := context.Background()
	breaker := circuit.New("mem://empty", circuit.Config{FailureThreshold: 1})

	a, err := NewObjectAccessor(memory.New("empty"), "missing", WithBreaker(breaker))
	require.NoError(t, err)

	data, err := a.Read(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, circuit.StateClosed, breaker.State())
}
