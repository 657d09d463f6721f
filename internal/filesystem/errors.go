package filesystem

import (
	"os"
)

// FilesystemError records the operation and path that failed.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

func wrapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FilesystemError{Op: op, Path: path, Err: err}
}

func errPermission(op, path string) error {
	return &FilesystemError{Op: op, Path: path, Err: os.ErrPermission}
}

func errClosed(op, path string) error {
	return &FilesystemError{Op: op, Path: path, Err: os.ErrClosed}
}

func errInvalid(op, path string) error {
	return &FilesystemError{Op: op, Path: path, Err: os.ErrInvalid}
}
