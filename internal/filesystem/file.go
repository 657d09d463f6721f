package filesystem

import (
	"context"
	"io"
	"os"
	"path"
	"sync"

	"github.com/google/uuid"

	"github.com/objectfs/rangecache/internal/cache"
	"github.com/objectfs/rangecache/pkg/types"
)

// File is an open handle on a cache view. It tracks a position for the
// io.Reader, io.Writer and io.Seeker methods; ReadAt and WriteAt ignore it.
// The io methods run with the context given to NewFile.
type File struct {
	id    string
	ctx   context.Context
	view  *cache.View
	flags int

	mu     sync.Mutex
	pos    int64
	closed bool
	stats  FileStats
}

// FileStats counts bytes moved through a handle.
type FileStats struct {
	BytesRead    int64 `json:"bytes_read"`
	BytesWritten int64 `json:"bytes_written"`
	Reads        int64 `json:"reads"`
	Writes       int64 `json:"writes"`
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
	_ io.ReaderAt        = (*File)(nil)
	_ io.WriterAt        = (*File)(nil)
	_ io.Closer          = (*File)(nil)
)

// NewFile wraps view. flags use the os.O_* access and O_APPEND bits.
func NewFile(ctx context.Context, view *cache.View, flags int) *File {
	if ctx == nil {
		ctx = context.Background()
	}
	return &File{
		id:    uuid.NewString(),
		ctx:   ctx,
		view:  view,
		flags: flags,
	}
}

// ID returns the handle id.
func (f *File) ID() string { return f.id }

// Path returns the cached path.
func (f *File) Path() string { return f.view.Path() }

// Name returns the last element of the path.
func (f *File) Name() string { return path.Base(f.view.Path()) }

// Flags returns the open flags.
func (f *File) Flags() int { return f.flags }

func (f *File) readable() bool {
	return f.flags&(os.O_WRONLY|os.O_RDWR) != os.O_WRONLY
}

func (f *File) writable() bool {
	return f.flags&(os.O_WRONLY|os.O_RDWR) != 0
}

// Read reads from the current position. It returns io.EOF at end of data.
func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check("read", f.readable()); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := f.view.Read(f.ctx, f.pos, p)
	f.pos += int64(n)
	f.countRead(n)
	if err != nil {
		return n, wrapErr("read", f.Path(), err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadAt reads len(p) bytes at off. A short count comes with io.EOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.ReadAtContext(f.ctx, p, off)
}

// ReadAtContext is ReadAt with an explicit context.
func (f *File) ReadAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check("read", f.readable()); err != nil {
		return 0, err
	}
	if off < 0 {
		return 0, errInvalid("read", f.Path())
	}

	n, err := f.view.Read(ctx, off, p)
	f.countRead(n)
	if err != nil {
		return n, wrapErr("read", f.Path(), err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Write writes at the current position, or at the end in append mode.
func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check("write", f.writable()); err != nil {
		return 0, err
	}

	if f.flags&os.O_APPEND != 0 {
		size, err := f.size(f.ctx)
		if err != nil {
			return 0, wrapErr("write", f.Path(), err)
		}
		f.pos = size
	}

	if err := f.write(f.ctx, f.pos, p); err != nil {
		return 0, err
	}
	f.pos += int64(len(p))
	return len(p), nil
}

// WriteAt writes p at off. It is not allowed in append mode.
func (f *File) WriteAt(p []byte, off int64) (int, error) {
	return f.WriteAtContext(f.ctx, p, off)
}

// WriteAtContext is WriteAt with an explicit context.
func (f *File) WriteAtContext(ctx context.Context, p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check("write", f.writable()); err != nil {
		return 0, err
	}
	if f.flags&os.O_APPEND != 0 || off < 0 {
		return 0, errInvalid("write", f.Path())
	}

	if err := f.write(ctx, off, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (f *File) write(ctx context.Context, off int64, p []byte) error {
	if err := f.view.Write(ctx, off, p); err != nil {
		return wrapErr("write", f.Path(), err)
	}
	f.stats.Writes++
	f.stats.BytesWritten += int64(len(p))
	return nil
}

// Seek sets the position for the next Read or Write.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, errClosed("seek", f.Path())
	}

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		size, err := f.size(f.ctx)
		if err != nil {
			return 0, wrapErr("seek", f.Path(), err)
		}
		base = size
	default:
		return 0, errInvalid("seek", f.Path())
	}

	if base+offset < 0 {
		return 0, errInvalid("seek", f.Path())
	}
	f.pos = base + offset
	return f.pos, nil
}

// Truncate changes the size of the file. Unflushed writes up to size are
// written out first.
func (f *File) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.check("truncate", f.writable()); err != nil {
		return err
	}
	if size < 0 {
		return errInvalid("truncate", f.Path())
	}
	return wrapErr("truncate", f.Path(), f.view.Truncate(f.ctx, size))
}

// Sync flushes unflushed writes to the remote store.
func (f *File) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errClosed("sync", f.Path())
	}
	return wrapErr("sync", f.Path(), f.view.Flush(f.ctx))
}

// Size returns the larger of the remote size and the end of unflushed data.
// Without a size-reporting accessor only unflushed data counts.
func (f *File) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, errClosed("stat", f.Path())
	}
	size, err := f.size(f.ctx)
	return size, wrapErr("stat", f.Path(), err)
}

func (f *File) size(ctx context.Context) (int64, error) {
	size := f.view.DirtyEnd()
	if sizer, ok := f.view.Accessor().(types.Sizer); ok {
		remote, err := sizer.Size(ctx)
		if err != nil {
			return 0, err
		}
		if remote > size {
			size = remote
		}
	}
	return size, nil
}

// Stat returns the file name and current size.
func (f *File) Stat() (FileInfo, error) {
	size, err := f.Size()
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name_: f.Name(),
		Size_: size,
		Mode_: 0644,
		Key:   f.Path(),
	}, nil
}

// Close flushes and releases the handle. When the flush fails the handle
// stays open so the caller can retry.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errClosed("close", f.Path())
	}
	if err := f.view.Close(f.ctx); err != nil {
		return wrapErr("close", f.Path(), err)
	}
	f.closed = true
	return nil
}

// GetStats returns the handle counters.
func (f *File) GetStats() FileStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *File) check(op string, allowed bool) error {
	if f.closed {
		return errClosed(op, f.Path())
	}
	if !allowed {
		return errPermission(op, f.Path())
	}
	return nil
}

func (f *File) countRead(n int) {
	if n > 0 {
		f.stats.Reads++
		f.stats.BytesRead += int64(n)
	}
}
