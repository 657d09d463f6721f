/*
Package filesystem exposes cache views as file handles.

A File wraps one cache.View and implements io.Reader, io.Writer, io.Seeker,
io.ReaderAt, io.WriterAt and io.Closer:

	f := filesystem.NewFile(ctx, view, os.O_RDWR)
	defer f.Close()

	f.WriteAt([]byte("header"), 0)   // buffered in the view's write cache
	io.Copy(os.Stdout, f)            // reads see the unflushed bytes
	f.Sync()                         // flush to the remote store

Reads return io.EOF at end of data. Size is the larger of the remote object
size, when the accessor implements types.Sizer, and the end of unflushed
writes. O_APPEND positions every Write at that size.

Close flushes the view. A failed flush leaves the handle open with its data
so the caller can retry or call Sync.
*/
package filesystem
