package cache

import (
	"github.com/objectfs/rangecache/pkg/errors"
)

var (
	// ErrClosed is returned by operations on a closed view.
	ErrClosed = errors.NewError(errors.ErrCodeComponentStopped, "view is closed").
			WithComponent("cache")

	// ErrEngineClosed is returned by NewView after the engine was closed.
	ErrEngineClosed = errors.NewError(errors.ErrCodeComponentStopped, "engine is closed").
			WithComponent("cache")
)

func invalidArgument(op, msg string) error {
	return errors.NewError(errors.ErrCodeInvalidArgument, msg).
		WithComponent("cache").
		WithOperation(op)
}

func remoteError(cause error, code errors.ErrorCode, op, path, msg string) error {
	return errors.Wrap(cause, code, msg).
		WithComponent("cache").
		WithOperation(op).
		WithContext("path", path).
		WithRetryable(errors.IsRetryable(cause))
}
