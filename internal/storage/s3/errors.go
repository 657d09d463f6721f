package s3

import (
	"context"
	stderr "errors"
	"net"
	"strings"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/objectfs/rangecache/pkg/errors"
)

type httpStatusError interface {
	HTTPStatusCode() int
}

// translateError maps an SDK error to a CacheError. Throttling, server
// errors and network timeouts are marked retryable.
func (b *Backend) translateError(err error, operation, key string) error {
	var ce *errors.CacheError

	switch {
	case stderr.Is(err, context.Canceled):
		ce = errors.Wrap(err, errors.ErrCodeOperationCanceled, "request canceled")
	case stderr.Is(err, context.DeadlineExceeded):
		ce = errors.Wrap(err, errors.ErrCodeOperationTimeout, "request timed out")
	case isErrorType[*s3types.NoSuchBucket](err) || apiErrorCode(err) == "NoSuchBucket",
		operation == opHealth && isNotFoundError(err):
		ce = errors.Wrap(err, errors.ErrCodeBucketNotFound, "bucket not found")
	case isNotFoundError(err):
		ce = errors.Wrap(err, errors.ErrCodeObjectNotFound, "object not found")
	case isAccessDenied(err):
		ce = errors.Wrap(err, errors.ErrCodeAccessDenied, "access denied")
	default:
		ce = errors.Wrap(err, operationCode(operation), operation+" failed").
			WithRetryable(isRetryableError(err))
	}

	ce = ce.WithComponent("s3").
		WithOperation(operation).
		WithContext("bucket", b.bucket)
	if key != "" {
		ce = ce.WithContext("key", key)
	}
	return ce
}

func operationCode(operation string) errors.ErrorCode {
	switch operation {
	case opPut:
		return errors.ErrCodeStorageWrite
	case opHealth:
		return errors.ErrCodeConnectionFailed
	default:
		return errors.ErrCodeStorageRead
	}
}

// isRetryableError reports throttling, 5xx responses and network timeouts.
func isRetryableError(err error) bool {
	if stderr.Is(err, context.Canceled) || stderr.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch apiErrorCode(err) {
	case "Throttling", "ThrottlingException", "RequestThrottled", "SlowDown",
		"InternalError", "ServiceUnavailable", "RequestTimeout":
		return true
	}

	var status httpStatusError
	if stderr.As(err, &status) && status.HTTPStatusCode() >= 500 {
		return true
	}

	var netErr net.Error
	if stderr.As(err, &netErr) {
		return netErr.Timeout()
	}

	msg := err.Error()
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "connection refused")
}

func isNotFoundError(err error) bool {
	if isErrorType[*s3types.NoSuchKey](err) || isErrorType[*s3types.NotFound](err) {
		return true
	}
	switch apiErrorCode(err) {
	case "NoSuchKey", "NotFound":
		return true
	}
	var status httpStatusError
	return stderr.As(err, &status) && status.HTTPStatusCode() == 404
}

func isInvalidRangeError(err error) bool {
	if apiErrorCode(err) == "InvalidRange" {
		return true
	}
	var status httpStatusError
	return stderr.As(err, &status) && status.HTTPStatusCode() == 416
}

func isAccessDenied(err error) bool {
	switch apiErrorCode(err) {
	case "AccessDenied", "Forbidden":
		return true
	}
	var status httpStatusError
	return stderr.As(err, &status) && status.HTTPStatusCode() == 403
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if stderr.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// isErrorType checks if an error is of a specific type
func isErrorType[T error](err error) bool {
	var target T
	return stderr.As(err, &target)
}
