package adapter

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/rangecache/internal/circuit"
	"github.com/objectfs/rangecache/internal/config"
	"github.com/objectfs/rangecache/internal/storage/memory"
	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/types"
	"github.com/objectfs/rangecache/pkg/utils"
)

func TestParseStorageURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		uri         string
		want        Location
		wantErr     bool
		errContains string
	}{
		{
			name: "s3 bucket",
			uri:  "s3://my-bucket",
			want: Location{Scheme: "s3", Bucket: "my-bucket"},
		},
		{
			name: "s3 bucket with prefix",
			uri:  "s3://my-bucket/path/to/prefix/",
			want: Location{Scheme: "s3", Bucket: "my-bucket", Prefix: "path/to/prefix"},
		},
		{
			name: "s3 bucket with dots",
			uri:  "s3://my.bucket.with.dots",
			want: Location{Scheme: "s3", Bucket: "my.bucket.with.dots"},
		},
		{
			name: "memory store",
			uri:  "mem://scratch/data",
			want: Location{Scheme: "mem", Bucket: "scratch", Prefix: "data"},
		},
		{
			name:        "s3 URI without bucket",
			uri:         "s3://",
			wantErr:     true,
			errContains: "bucket name",
		},
		{
			name:        "memory URI without name",
			uri:         "mem://",
			wantErr:     true,
			errContains: "store name",
		},
		{
			name:        "unsupported scheme",
			uri:         "gcs://my-bucket",
			wantErr:     true,
			errContains: "unsupported storage scheme",
		},
		{
			name:        "invalid URI",
			uri:         "://invalid",
			wantErr:     true,
			errContains: "failed to parse URI",
		},
		{
			name:        "empty URI",
			uri:         "",
			wantErr:     true,
			errContains: "unsupported storage scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStorageURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStorageURI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ParseStorageURI() error = %v, should contain %q", err, tt.errContains)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseStorageURI() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLocationKeyAndString(t *testing.T) {
	t.Parallel()

	loc := Location{Scheme: "s3", Bucket: "b", Prefix: "data"}
	assert.Equal(t, "data/x/y.bin", loc.Key("/x/y.bin"))
	assert.Equal(t, "s3://b/data", loc.String())

	bare := Location{Scheme: "mem", Bucket: "m"}
	assert.Equal(t, "file", bare.Key("file"))
	assert.Equal(t, "mem://m", bare.String())
}

func TestSplitObjectURI(t *testing.T) {
	t.Parallel()

	storageURI, key, err := SplitObjectURI("s3://bucket/dir/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket", storageURI)
	assert.Equal(t, "dir/file.txt", key)

	_, _, err = SplitObjectURI("s3://bucket")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	a, err := New(ctx, "mem://new-test/prefix", nil)
	require.NoError(t, err)
	assert.Equal(t, "prefix", a.Location().Prefix)

	_, err = New(ctx, "gcs://bucket", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid storage URI")

	cfg := config.NewDefault()
	cfg.Cache.TotalSize = "1MiB"
	cfg.Cache.WriteSize = "2MiB"
	_, err = New(ctx, "mem://new-test", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func startAdapter(t *testing.T, uri string) *Adapter {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Cache.MinFetchSize = "16"

	a, err := New(context.Background(), uri, cfg, WithLogger(utils.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	return a
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, "mem://lifecycle", nil, WithLogger(utils.NewNopLogger()))
	require.NoError(t, err)

	_, err = a.Open(ctx, "file", os.O_RDONLY)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	assert.True(t, errors.HasCode(a.Stop(ctx), errors.ErrCodeInvalidState))
	assert.Nil(t, a.Metrics())

	require.NoError(t, a.Start(ctx))
	assert.True(t, errors.HasCode(a.Start(ctx), errors.ErrCodeInvalidState))
	assert.NotNil(t, a.Metrics())

	require.NoError(t, a.Stop(ctx))
	_, err = a.Open(ctx, "file", os.O_RDONLY)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
}

func TestConfiguredLogger(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewDefault()
	cfg.Global.LogFile = filepath.Join(t.TempDir(), "rangecache.log")
	cfg.Global.LogFormat = "json"

	a, err := New(ctx, "mem://logged", cfg)
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	require.NoError(t, a.Stop(ctx))

	data, err := os.ReadFile(cfg.Global.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Adapter started")
}

func TestOpenWriteRead(t *testing.T) {
	ctx := context.Background()
	a := startAdapter(t, "mem://open-write-read/base")
	defer a.Stop(ctx)

	f, err := a.Open(ctx, "notes.txt", os.O_RDWR)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello cache"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stored, err := memory.Shared("open-write-read").GetObject(ctx, "base/notes.txt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello cache", string(stored))

	g, err := a.Open(ctx, "notes.txt", os.O_RDONLY)
	require.NoError(t, err)
	data, err := io.ReadAll(g)
	require.NoError(t, err)
	assert.Equal(t, "hello cache", string(data))
	require.NoError(t, g.Close())

	stats := a.Stats()
	assert.Equal(t, uint64(1), stats.Flushes)
	assert.Positive(t, stats.ReadCacheBytes)
}

func TestOpenTruncate(t *testing.T) {
	ctx := context.Background()
	backend := memory.New("open-truncate")
	require.NoError(t, backend.PutObject(ctx, "f", []byte("old content")))

	a, err := New(ctx, "mem://ignored", nil, WithBackend(backend), WithLogger(utils.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer a.Stop(ctx)

	f, err := a.Open(ctx, "f", os.O_WRONLY|os.O_TRUNC)
	require.NoError(t, err)

	stored, err := backend.GetObject(ctx, "f", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, stored)

	_, err = f.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	stored, err = backend.GetObject(ctx, "f", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "new", string(stored))
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	a := startAdapter(t, "mem://stat-test/p")
	defer a.Stop(ctx)

	require.NoError(t, memory.Shared("stat-test").PutObject(ctx, "p/dir/file.bin", []byte("12345")))

	info, err := a.Stat(ctx, "dir/file.bin")
	require.NoError(t, err)
	assert.Equal(t, "file.bin", info.Name())
	assert.Equal(t, int64(5), info.Size())
	assert.Equal(t, "p/dir/file.bin", info.Key)

	_, err = a.Stat(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

// deniedBackend rejects every metadata request.
type deniedBackend struct {
	*memory.Backend
}

func (d deniedBackend) HeadObject(ctx context.Context, key string) (*types.ObjectInfo, error) {
	return nil, errors.NewError(errors.ErrCodeAccessDenied, "access denied")
}

func TestBreakerOpensOnFailingStore(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewDefault()
	cfg.Network.CircuitBreaker.FailureThreshold = 2
	cfg.Network.CircuitBreaker.OpenTimeout = time.Hour

	a, err := New(ctx, "mem://denied", cfg,
		WithBackend(deniedBackend{memory.New("denied")}),
		WithLogger(utils.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer a.Stop(ctx)

	for i := 0; i < 2; i++ {
		_, err = a.Stat(ctx, "f")
		assert.True(t, errors.HasCode(err, errors.ErrCodeAccessDenied))
	}
	_, err = a.Stat(ctx, "f")
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, circuit.StateOpen, a.Breaker().State())
}

func TestBreakerDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.NewDefault()
	cfg.Network.CircuitBreaker.Enabled = false

	a, err := New(ctx, "mem://no-breaker", cfg, WithLogger(utils.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, a.Start(ctx))
	defer a.Stop(ctx)

	assert.Nil(t, a.Breaker())
	f, err := a.Open(ctx, "f", os.O_RDWR)
	require.NoError(t, err)
	_, err = f.Write([]byte("ok"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestStopFlushesDirtyData(t *testing.T) {
	ctx := context.Background()
	a := startAdapter(t, "mem://stop-flush")

	f, err := a.Open(ctx, "pending", os.O_RDWR)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("unsynced"), 0)
	require.NoError(t, err)

	require.NoError(t, a.Stop(ctx))

	stored, err := memory.Shared("stop-flush").GetObject(ctx, "pending", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "unsynced", string(stored))
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	backend := memory.Shared("invalidate-test")
	require.NoError(t, backend.PutObject(ctx, "obj", []byte("version-1")))

	a := startAdapter(t, "mem://invalidate-test")
	defer a.Stop(ctx)

	read := func() string {
		f, err := a.Open(ctx, "obj", os.O_RDONLY)
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		return string(data)
	}

	assert.Equal(t, "version-1", read())

	require.NoError(t, backend.PutObject(ctx, "obj", []byte("version-2")))
	assert.Equal(t, "version-1", read(), "clean data is served from the read cache")

	a.Invalidate("obj")
	assert.Equal(t, "version-2", read())
}
