package errors

import (
	"context"
	stderr "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeInvalidConfig, "write limit exceeds total limit")
	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInvalidConfig, err.Code)
	assert.Equal(t, CategoryConfiguration, err.Category)
	assert.False(t, err.Retryable)
	assert.False(t, err.Timestamp.IsZero())

	assert.True(t, NewError(ErrCodeConnectionTimeout, "timed out").Retryable)
}

func TestGetCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code     ErrorCode
		expected ErrorCategory
	}{
		{ErrCodeInvalidConfig, CategoryConfiguration},
		{ErrCodeConfigLoad, CategoryConfiguration},
		{ErrCodeNetworkError, CategoryConnection},
		{ErrCodeStorageWrite, CategoryStorage},
		{ErrCodeStorageTruncate, CategoryStorage},
		{ErrCodeObjectNotFound, CategoryStorage},
		{ErrCodeInvalidArgument, CategoryArgument},
		{ErrCodeWriteLimit, CategoryResource},
		{ErrCodeComponentStopped, CategoryState},
		{ErrCodeRetryExhausted, CategoryOperation},
		{ErrCodeCircuitOpen, CategoryOperation},
		{ErrCodeInternalError, CategoryInternal},
		{ErrorCode("SOMETHING_ELSE"), CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.expected, GetCategory(tt.code))
		})
	}
}

func TestCacheError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *CacheError
		want string
	}{
		{
			name: "bare",
			err:  NewError(ErrCodeInvalidArgument, "negative position"),
			want: "INVALID_ARGUMENT: negative position",
		},
		{
			name: "component only",
			err:  NewError(ErrCodeInvalidArgument, "negative position").WithComponent("cache"),
			want: "[cache] INVALID_ARGUMENT: negative position",
		},
		{
			name: "component and operation with context",
			err: NewError(ErrCodeStorageWrite, "flush failed").
				WithComponent("cache").
				WithOperation("flush").
				WithContext("path", "a/b").
				WithContext("bytes", "10"),
			want: "[cache:flush] STORAGE_WRITE: flush failed (bytes=10, path=a/b)",
		},
		{
			name: "with cause",
			err:  Wrap(fmt.Errorf("boom"), ErrCodeStorageRead, "fetch failed"),
			want: "STORAGE_READ: fetch failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCacheError_UnwrapAndIs(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, ErrCodeStorageWrite, "flush failed")

	assert.ErrorIs(t, err, cause)
	assert.True(t, stderr.Is(err, NewError(ErrCodeStorageWrite, "")))
	assert.False(t, stderr.Is(err, NewError(ErrCodeStorageRead, "")))

	wrapped := fmt.Errorf("outer: %w", err)
	var ce *CacheError
	require.True(t, stderr.As(wrapped, &ce))
	assert.Equal(t, ErrCodeStorageWrite, ce.Code)
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrCodeObjectNotFound, "missing")
	outer := Wrap(inner, ErrCodeStorageRead, "fetch failed")

	assert.True(t, HasCode(outer, ErrCodeStorageRead))
	assert.True(t, HasCode(outer, ErrCodeObjectNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("ctx: %w", outer)))
	assert.False(t, HasCode(outer, ErrCodeAccessDenied))
	assert.False(t, HasCode(fmt.Errorf("plain"), ErrCodeStorageRead))
	assert.False(t, HasCode(nil, ErrCodeStorageRead))
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(fmt.Errorf("plain")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(NewError(ErrCodeNetworkError, "reset")))
	assert.False(t, IsRetryable(NewError(ErrCodeAccessDenied, "denied")))
	assert.False(t, IsRetryable(NewError(ErrCodeNetworkError, "reset").WithRetryable(false)))
	assert.True(t, IsRetryable(fmt.Errorf("op: %w", NewError(ErrCodeConnectionTimeout, "slow"))))
}

func TestWithDetail(t *testing.T) {
	t.Parallel()

	err := NewError(ErrCodeWriteLimit, "over limit").WithDetail("over", int64(12))
	assert.Equal(t, int64(12), err.Details["over"])
}
