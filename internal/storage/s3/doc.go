/*
Package s3 implements types.Backend on Amazon S3 and S3-compatible stores.

	┌─────────────────────────────────────────────┐
	│        storage.ObjectAccessor (retry)       │
	└─────────────────────────────────────────────┘
	                      │ types.Backend
	┌─────────────────────────────────────────────┐
	│                 s3.Backend                  │
	│  ranged GET · PUT · HEAD · error mapping    │
	└─────────────────────────────────────────────┘
	                      │ API
	┌─────────────────────────────────────────────┐
	│          aws-sdk-go-v2 *s3.Client           │
	└─────────────────────────────────────────────┘

# Usage

	backend, err := s3.NewBackend(ctx, "my-bucket", &s3.Config{
		Region:         "us-west-2",
		Endpoint:       "http://localhost:9000",
		ForcePathStyle: true,
	}, s3.WithLogger(logger), s3.WithMetrics(collector))

NewBackend loads credentials through the default AWS chain unless static
keys or a profile are configured, and checks that the bucket is reachable.
New wraps an existing client and performs no requests.

# Reads

GetObject sends a Range header for partial reads. A range that starts at or
beyond the end of the object (HTTP 416, InvalidRange) returns an empty slice
so callers see end of data instead of an error.

# Errors

SDK errors become CacheErrors:

	NoSuchKey, NotFound, 404         OBJECT_NOT_FOUND
	NoSuchBucket                     BUCKET_NOT_FOUND
	AccessDenied, Forbidden, 403     ACCESS_DENIED
	other                            STORAGE_READ / STORAGE_WRITE

Throttling codes, 5xx responses and network timeouts are marked retryable so
pkg/retry can back off and try again. The SDK error stays reachable through
errors.As.

# Metrics

Every request updates BackendMetrics and, when configured, is reported to the
metrics collector as s3.get, s3.put, s3.head or s3.health.
*/
package s3
