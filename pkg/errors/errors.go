// Package errors provides the structured error type shared by every layer of
// the range cache, from the remote store adapters up to the CLI.
package errors

import (
	stderr "errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode identifies the kind of failure.
type ErrorCode string

const (
	// Configuration
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeConfigLoad    ErrorCode = "CONFIG_LOAD"

	// Remote store
	ErrCodeConnectionFailed  ErrorCode = "CONNECTION_FAILED"
	ErrCodeConnectionTimeout ErrorCode = "CONNECTION_TIMEOUT"
	ErrCodeNetworkError      ErrorCode = "NETWORK_ERROR"
	ErrCodeObjectNotFound    ErrorCode = "OBJECT_NOT_FOUND"
	ErrCodeBucketNotFound    ErrorCode = "BUCKET_NOT_FOUND"
	ErrCodeStorageRead       ErrorCode = "STORAGE_READ"
	ErrCodeStorageWrite      ErrorCode = "STORAGE_WRITE"
	ErrCodeStorageTruncate   ErrorCode = "STORAGE_TRUNCATE"
	ErrCodeAccessDenied      ErrorCode = "ACCESS_DENIED"

	// Caller errors
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrCodePathInvalid     ErrorCode = "PATH_INVALID"

	// Capacity
	ErrCodeWriteLimit ErrorCode = "CACHE_WRITE_LIMIT"
	ErrCodeTotalLimit ErrorCode = "CACHE_TOTAL_LIMIT"

	// Lifecycle
	ErrCodeComponentStopped ErrorCode = "COMPONENT_STOPPED"
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"

	// Operation
	ErrCodeOperationCanceled ErrorCode = "OPERATION_CANCELED"
	ErrCodeOperationTimeout  ErrorCode = "OPERATION_TIMEOUT"
	ErrCodeRetryExhausted    ErrorCode = "RETRY_EXHAUSTED"
	ErrCodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"

	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory groups error codes.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryConnection    ErrorCategory = "connection"
	CategoryStorage       ErrorCategory = "storage"
	CategoryArgument      ErrorCategory = "argument"
	CategoryResource      ErrorCategory = "resource"
	CategoryState         ErrorCategory = "state"
	CategoryOperation     ErrorCategory = "operation"
	CategoryInternal      ErrorCategory = "internal"
)

// CacheError is a structured error carrying a code, the component and
// operation that produced it, and the underlying cause.
type CacheError struct {
	Code      ErrorCode              `json:"code"`
	Category  ErrorCategory          `json:"category"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	Operation string                 `json:"operation,omitempty"`
	Context   map[string]string      `json:"context,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	var b strings.Builder
	switch {
	case e.Component != "" && e.Operation != "":
		fmt.Fprintf(&b, "[%s:%s] ", e.Component, e.Operation)
	case e.Component != "":
		fmt.Fprintf(&b, "[%s] ", e.Component)
	}
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *CacheError) Unwrap() error {
	return e.Cause
}

// Is matches another CacheError by code so sentinel values work with
// errors.Is.
func (e *CacheError) Is(target error) bool {
	if t, ok := target.(*CacheError); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a new error with defaults derived from code.
func NewError(code ErrorCode, message string) *CacheError {
	return &CacheError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Retryable: IsRetryableByDefault(code),
		Timestamp: time.Now(),
	}
}

// Wrap creates a new error with code and message around cause.
func Wrap(cause error, code ErrorCode, message string) *CacheError {
	return NewError(code, message).WithCause(cause)
}

// GetCategory determines the category of an error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeInvalidConfig, ErrCodeConfigLoad:
		return CategoryConfiguration
	case ErrCodeConnectionFailed, ErrCodeConnectionTimeout, ErrCodeNetworkError:
		return CategoryConnection
	case ErrCodeObjectNotFound, ErrCodeBucketNotFound, ErrCodeStorageRead,
		ErrCodeStorageWrite, ErrCodeStorageTruncate, ErrCodeAccessDenied:
		return CategoryStorage
	case ErrCodeInvalidArgument, ErrCodePathInvalid:
		return CategoryArgument
	case ErrCodeWriteLimit, ErrCodeTotalLimit:
		return CategoryResource
	case ErrCodeComponentStopped, ErrCodeInvalidState:
		return CategoryState
	case ErrCodeOperationCanceled, ErrCodeOperationTimeout, ErrCodeRetryExhausted,
		ErrCodeCircuitOpen:
		return CategoryOperation
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault reports whether errors with code are transient.
func IsRetryableByDefault(code ErrorCode) bool {
	switch code {
	case ErrCodeConnectionFailed, ErrCodeConnectionTimeout, ErrCodeNetworkError,
		ErrCodeOperationTimeout:
		return true
	}
	return false
}

// WithContext adds contextual information to an error
func (e *CacheError) WithContext(key, value string) *CacheError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail adds detailed information to an error
func (e *CacheError) WithDetail(key string, value interface{}) *CacheError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithComponent sets the component for an error
func (e *CacheError) WithComponent(component string) *CacheError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error
func (e *CacheError) WithOperation(operation string) *CacheError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause
func (e *CacheError) WithCause(cause error) *CacheError {
	e.Cause = cause
	return e
}

// WithRetryable overrides the retry hint
func (e *CacheError) WithRetryable(retryable bool) *CacheError {
	e.Retryable = retryable
	return e
}

// HasCode reports whether any error in err's chain is a CacheError with code.
func HasCode(err error, code ErrorCode) bool {
	var ce *CacheError
	for err != nil {
		if !stderr.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Cause
	}
	return false
}

// IsRetryable reports whether err is worth retrying. Cancellation is never
// retryable; the outermost CacheError in the chain decides otherwise.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *CacheError
	if stderr.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsNotFound reports whether err means the remote object does not exist.
func IsNotFound(err error) bool {
	return HasCode(err, ErrCodeObjectNotFound)
}
