package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectfs/rangecache/internal/storage"
	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/retry"
	"github.com/objectfs/rangecache/pkg/types"
)

var _ types.Backend = (*Backend)(nil)

// fakeAPI is an in-memory S3 bucket.
type fakeAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	ranges  []string
	err     error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}

	rng := aws.ToString(in.Range)
	f.ranges = append(f.ranges, rng)
	if rng != "" {
		var first, last int64
		n, _ := fmt.Sscanf(rng, "bytes=%d-%d", &first, &last)
		if n < 2 {
			last = int64(len(data)) - 1
		}
		if first >= int64(len(data)) {
			return nil, &smithy.GenericAPIError{Code: "InvalidRange", Message: "range not satisfiable"}
		}
		if last >= int64(len(data)) {
			last = int64(len(data)) - 1
		}
		data = data[first : last+1]
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if aws.ToInt64(in.ContentLength) != int64(len(data)) {
		return nil, fmt.Errorf("content length mismatch")
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(data))),
		ETag:          aws.String(`"etag"`),
		LastModified:  aws.Time(time.Unix(1700000000, 0)),
	}, nil
}

func (f *fakeAPI) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeAPI) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type statusError struct{ code int }

func (e statusError) Error() string       { return fmt.Sprintf("http status %d", e.code) }
func (e statusError) HTTPStatusCode() int { return e.code }

type recordingCollector struct {
	mu  sync.Mutex
	ops map[string]int
	ok  map[string]bool
}

func (r *recordingCollector) RecordOperation(op string, _ time.Duration, _ int64, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string]int)
		r.ok = make(map[string]bool)
	}
	r.ops[op]++
	r.ok[op] = success
}
func (r *recordingCollector) RecordCacheHit(string, int64)  {}
func (r *recordingCollector) RecordCacheMiss(string, int64) {}
func (r *recordingCollector) RecordEviction(string, int64)  {}
func (r *recordingCollector) UpdateCacheSize(string, int64) {}

func newTestBackend(t *testing.T, opts ...Option) (*Backend, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	b, err := New(api, "bucket", nil, opts...)
	require.NoError(t, err)
	return b, api
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, "bucket", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))

	_, err = New(newFakeAPI(), "", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))

	_, err = NewBackend(context.Background(), "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name cannot be empty")
}

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 1, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestGetObject(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBackend(t)
	api.objects["k"] = []byte("0123456789")

	tests := []struct {
		name   string
		offset int64
		size   int64
		want   string
		rng    string
	}{
		{"whole object", 0, 0, "0123456789", ""},
		{"range", 2, 3, "234", "bytes=2-4"},
		{"open range", 7, 0, "789", "bytes=7-"},
		{"clipped", 8, 10, "89", "bytes=8-17"},
		{"past end", 10, 4, "", "bytes=10-13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := b.GetObject(ctx, "k", tt.offset, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
			assert.Equal(t, tt.rng, api.ranges[len(api.ranges)-1])
		})
	}
}

func TestGetObjectMissing(t *testing.T) {
	b, _ := newTestBackend(t)

	_, err := b.GetObject(context.Background(), "missing", 0, 10)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.False(t, errors.IsRetryable(err))
}

func TestPutAndHeadObject(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBackend(t)

	require.NoError(t, b.PutObject(ctx, "dir/data.json", []byte(`{"a":1}`)))
	assert.Equal(t, `{"a":1}`, string(api.objects["dir/data.json"]))
	assert.Equal(t, "application/json", api.types["dir/data.json"])

	info, err := b.HeadObject(ctx, "dir/data.json")
	require.NoError(t, err)
	assert.Equal(t, int64(7), info.Size)
	assert.Equal(t, "dir/data.json", info.Key)
	assert.Equal(t, `"etag"`, info.ETag)

	_, err = b.HeadObject(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestHealthCheck(t *testing.T) {
	b, api := newTestBackend(t)
	require.NoError(t, b.HealthCheck(context.Background()))

	api.fail(&s3types.NotFound{})
	err := b.HealthCheck(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeBucketNotFound))
}

func TestTranslateError(t *testing.T) {
	b, _ := newTestBackend(t)

	tests := []struct {
		name      string
		err       error
		operation string
		code      errors.ErrorCode
		retryable bool
	}{
		{"no such key", &s3types.NoSuchKey{}, opGet, errors.ErrCodeObjectNotFound, false},
		{"not found status", statusError{404}, opHead, errors.ErrCodeObjectNotFound, false},
		{"no such bucket", &s3types.NoSuchBucket{}, opGet, errors.ErrCodeBucketNotFound, false},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, opPut, errors.ErrCodeAccessDenied, false},
		{"throttled read", &smithy.GenericAPIError{Code: "SlowDown"}, opGet, errors.ErrCodeStorageRead, true},
		{"server error write", statusError{503}, opPut, errors.ErrCodeStorageWrite, true},
		{"client error write", statusError{400}, opPut, errors.ErrCodeStorageWrite, false},
		{"connection reset", fmt.Errorf("read tcp: connection reset by peer"), opGet, errors.ErrCodeStorageRead, true},
		{"canceled", context.Canceled, opGet, errors.ErrCodeOperationCanceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.translateError(tt.err, tt.operation, "key")
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	collector := &recordingCollector{}
	b, api := newTestBackend(t, WithMetrics(collector))

	require.NoError(t, b.PutObject(ctx, "k", []byte("hello")))
	_, err := b.GetObject(ctx, "k", 0, 0)
	require.NoError(t, err)
	_, err = b.GetObject(ctx, "missing", 0, 0)
	require.Error(t, err)

	metrics := b.GetMetrics()
	assert.Equal(t, int64(3), metrics.Requests)
	assert.Equal(t, int64(1), metrics.Errors)
	assert.Equal(t, int64(5), metrics.BytesUploaded)
	assert.Equal(t, int64(5), metrics.BytesDownloaded)
	assert.NotEmpty(t, metrics.LastError)
	assert.False(t, metrics.LastErrorTime.IsZero())

	assert.Equal(t, 1, collector.ops["s3.put"])
	assert.Equal(t, 2, collector.ops["s3.get"])
	assert.False(t, collector.ok["s3.get"])

	api.fail(statusError{500})
	_, err = b.HeadObject(ctx, "k")
	require.Error(t, err)
	assert.Equal(t, int64(2), b.GetMetrics().Errors)
}

func TestRangeHeader(t *testing.T) {
	assert.Nil(t, rangeHeader(0, 0))
	assert.Equal(t, "bytes=0-9", aws.ToString(rangeHeader(0, 10)))
	assert.Equal(t, "bytes=5-", aws.ToString(rangeHeader(5, -1)))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "application/json", detectContentType("a/b.json"))
	assert.Equal(t, "application/pdf", detectContentType("doc.pdf"))
	assert.Equal(t, "application/octet-stream", detectContentType("blob"))
	assert.Equal(t, "application/octet-stream", detectContentType("data.unknownext"))
}

func TestObjectAccessorOverS3(t *testing.T) {
	ctx := context.Background()
	b, api := newTestBackend(t)

	a, err := storage.NewObjectAccessor(b, "obj", storage.WithRetryer(retry.New(retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	})))
	require.NoError(t, err)

	data, err := a.Read(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, data, "missing object reads empty")

	require.NoError(t, a.Write(ctx, []types.Item{{Start: 3, Data: []byte("abc")}}))
	assert.Equal(t, "\x00\x00\x00abc", string(api.objects["obj"]))

	data, err = a.Read(ctx, 4, 100)
	require.NoError(t, err)
	assert.Equal(t, "bc", string(data))

	data, err = a.Read(ctx, 6, 4)
	require.NoError(t, err)
	assert.Empty(t, data, "InvalidRange reads as end of data")

	require.NoError(t, a.Truncate(ctx, 4))
	size, err := a.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
}
