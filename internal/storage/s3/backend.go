package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/objectfs/rangecache/pkg/errors"
	"github.com/objectfs/rangecache/pkg/types"
	"github.com/objectfs/rangecache/pkg/utils"
)

const (
	opGet    = "get"
	opPut    = "put"
	opHead   = "head"
	opHealth = "health"
)

// Backend implements types.Backend on an S3 bucket
type Backend struct {
	client API
	bucket string
	config *Config

	logger    *utils.StructuredLogger
	collector types.MetricsCollector

	// Metrics
	mu      sync.RWMutex
	metrics BackendMetrics
}

// Option configures a Backend
type Option func(*Backend)

// WithLogger sets the backend logger.
func WithLogger(logger *utils.StructuredLogger) Option {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics reports every request to collector.
func WithMetrics(collector types.MetricsCollector) Option {
	return func(b *Backend) {
		b.collector = collector
	}
}

// NewBackend creates a backend for bucket and verifies that the bucket is
// reachable.
func NewBackend(ctx context.Context, bucket string, cfg *Config, opts ...Option) (*Backend, error) {
	if bucket == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "bucket name cannot be empty").
			WithComponent("s3")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "failed to create S3 client").
			WithComponent("s3")
	}

	backend, err := New(client, bucket, cfg, opts...)
	if err != nil {
		return nil, err
	}

	if err := backend.HealthCheck(ctx); err != nil {
		return nil, err
	}
	return backend, nil
}

// New creates a backend on an existing client without contacting S3.
func New(client API, bucket string, cfg *Config, opts ...Option) (*Backend, error) {
	if client == nil {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "S3 client is required").
			WithComponent("s3")
	}
	if bucket == "" {
		return nil, errors.NewError(errors.ErrCodeInvalidConfig, "bucket name cannot be empty").
			WithComponent("s3")
	}
	if cfg == nil {
		cfg = NewDefaultConfig()
	}

	b := &Backend{
		client: client,
		bucket: bucket,
		config: cfg,
		logger: utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithComponent("s3").WithField("bucket", bucket)
	return b, nil
}

// Bucket returns the bucket name.
func (b *Backend) Bucket() string {
	return b.bucket
}

// GetObject retrieves size bytes at offset; size <= 0 reads to the end. A
// range starting at or past the end yields an empty slice.
func (b *Backend) GetObject(ctx context.Context, key string, offset, size int64) (data []byte, err error) {
	start := time.Now()
	defer func() {
		b.record(opGet, start, int64(len(data)), err)
	}()

	ctx, cancel := b.requestContext(ctx)
	defer cancel()

	input := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Range:  rangeHeader(offset, size),
	}

	result, err := b.client.GetObject(ctx, input)
	if err != nil {
		if isInvalidRangeError(err) {
			return []byte{}, nil
		}
		return nil, b.translateError(err, opGet, key)
	}
	defer result.Body.Close()

	data, err = io.ReadAll(result.Body)
	if err != nil {
		return nil, b.translateError(err, opGet, key)
	}

	b.logger.Debug("Fetched range", map[string]interface{}{
		"key":    key,
		"offset": offset,
		"bytes":  len(data),
	})
	return data, nil
}

// PutObject stores data as the whole object
func (b *Backend) PutObject(ctx context.Context, key string, data []byte) (err error) {
	start := time.Now()
	defer func() {
		b.record(opPut, start, int64(len(data)), err)
	}()

	ctx, cancel := b.requestContext(ctx)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(detectContentType(key)),
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return b.translateError(err, opPut, key)
	}

	b.logger.Debug("Stored object", map[string]interface{}{
		"key":   key,
		"bytes": len(data),
	})
	return nil
}

// HeadObject retrieves metadata about an object
func (b *Backend) HeadObject(ctx context.Context, key string) (info *types.ObjectInfo, err error) {
	start := time.Now()
	defer func() {
		b.record(opHead, start, 0, err)
	}()

	ctx, cancel := b.requestContext(ctx)
	defer cancel()

	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, b.translateError(err, opHead, key)
	}

	return &types.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
	}, nil
}

// HealthCheck verifies the bucket is reachable
func (b *Backend) HealthCheck(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		b.record(opHealth, start, 0, err)
	}()

	ctx, cancel := b.requestContext(ctx)
	defer cancel()

	if _, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}); err != nil {
		return b.translateError(err, opHealth, "")
	}
	return nil
}

func (b *Backend) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, b.config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func rangeHeader(offset, size int64) *string {
	switch {
	case size > 0:
		return aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+size-1))
	case offset > 0:
		return aws.String(fmt.Sprintf("bytes=%d-", offset))
	default:
		return nil
	}
}

func detectContentType(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
