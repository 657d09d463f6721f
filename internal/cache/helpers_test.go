package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/objectfs/rangecache/pkg/types"
)

// fakeAccessor is an in-memory remote object that counts calls and can be
// told to fail.
type fakeAccessor struct {
	mu        sync.Mutex
	data      []byte
	reads     int
	writes    int
	truncates int
	written   [][]types.Item

	readErr  error
	writeErr error
	truncErr error
}

func newFakeAccessor(content string) *fakeAccessor {
	return &fakeAccessor{data: []byte(content)}
}

func (f *fakeAccessor) Read(_ context.Context, start, size int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	if start >= int64(len(f.data)) {
		return nil, nil
	}
	end := min(start+size, int64(len(f.data)))
	return append([]byte(nil), f.data[start:end]...), nil
}

func (f *fakeAccessor) Write(_ context.Context, items []types.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}

	batch := make([]types.Item, 0, len(items))
	for _, item := range items {
		if end := item.End(); end > int64(len(f.data)) {
			f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
		}
		copy(f.data[item.Start:], item.Data)
		batch = append(batch, types.Item{Path: item.Path, Start: item.Start, Data: append([]byte(nil), item.Data...)})
	}
	f.written = append(f.written, batch)
	return nil
}

func (f *fakeAccessor) Truncate(_ context.Context, size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.truncates++
	if f.truncErr != nil {
		return f.truncErr
	}
	if size <= int64(len(f.data)) {
		f.data = f.data[:size]
	} else {
		f.data = append(f.data, make([]byte, size-int64(len(f.data)))...)
	}
	return nil
}

func (f *fakeAccessor) content() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.data)
}

func (f *fakeAccessor) counts() (reads, writes, truncates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.writes, f.truncates
}

func (f *fakeAccessor) fail(read, write, trunc error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr, f.writeErr, f.truncErr = read, write, trunc
}

// gatedAccessor blocks its first Read until release is closed, after
// signalling entered.
type gatedAccessor struct {
	*fakeAccessor
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedAccessor(remote *fakeAccessor) *gatedAccessor {
	return &gatedAccessor{
		fakeAccessor: remote,
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
}

func (g *gatedAccessor) Read(ctx context.Context, start, size int64) ([]byte, error) {
	first := false
	g.once.Do(func() { first = true })
	if !first {
		return g.fakeAccessor.Read(ctx, start, size)
	}

	// snapshot the remote before blocking so the result predates later writes
	data, err := g.fakeAccessor.Read(ctx, start, size)
	close(g.entered)
	<-g.release
	return data, err
}

func newTestEngine(t *testing.T, total, write, minFetch int64) *Engine {
	t.Helper()
	e, err := New(Config{TotalLimit: total, WriteLimit: write, MinFetch: minFetch})
	require.NoError(t, err)
	return e
}

func newTestView(t *testing.T, e *Engine, path string, acc types.Accessor) *View {
	t.Helper()
	v, err := e.NewView(path, acc)
	require.NoError(t, err)
	return v
}

// readString reads size bytes at pos and returns what was read.
func readString(t *testing.T, v *View, pos int64, size int) string {
	t.Helper()
	buf := make([]byte, size)
	n, err := v.Read(context.Background(), pos, buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func writeString(t *testing.T, v *View, pos int64, s string) {
	t.Helper()
	require.NoError(t, v.Write(context.Background(), pos, []byte(s)))
}
