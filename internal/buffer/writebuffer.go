package buffer

import (
	"github.com/objectfs/rangecache/internal/extent"
	"github.com/objectfs/rangecache/pkg/types"
)

// WriteBuffer holds the dirty byte ranges of one view.
//
// Items in a WriteBuffer never overlap: a write that lands on an existing item
// overwrites it in place, and a write into a gap creates a new item sized to
// the gap. A WriteBuffer is not safe for concurrent use; the owning view
// serializes access to it.
type WriteBuffer struct {
	path  string
	items extent.Set
	stats WriteBufferStats
}

// WriteBufferStats tracks write buffer activity
type WriteBufferStats struct {
	TotalWrites  uint64 `json:"total_writes"`
	TotalBytes   int64  `json:"total_bytes"`
	NewExtents   uint64 `json:"new_extents"`
	Overwrites   int64  `json:"overwritten_bytes"`
	PendingBytes int64  `json:"pending_bytes"`
	Extents      int    `json:"extents"`
}

// NewWriteBuffer creates an empty write buffer for path.
func NewWriteBuffer(path string) *WriteBuffer {
	return &WriteBuffer{path: path}
}

// Path returns the path the buffered bytes belong to.
func (wb *WriteBuffer) Path() string {
	return wb.path
}

// Write copies src into the buffer at position pos.
//
// Bytes falling on an existing item overwrite it without growing it; the rest
// of src continues into the next item or into new items that end where the
// next existing item begins.
func (wb *WriteBuffer) Write(pos int64, src []byte) {
	wb.stats.TotalWrites++
	wb.stats.TotalBytes += int64(len(src))

	for len(src) > 0 {
		offset, item, ok := wb.items.AtOrAfter(pos)
		if ok && offset >= 0 {
			n := copy(item.Data[offset:], src)
			wb.stats.Overwrites += int64(n)
			src = src[n:]
			pos += int64(n)
			continue
		}

		size := int64(len(src))
		if ok {
			size = min(size, -offset)
		}
		data := make([]byte, size)
		copy(data, src)
		wb.items.Insert(&types.Item{Path: wb.path, Start: pos, Data: data})
		wb.stats.NewExtents++

		src = src[size:]
		pos += size
	}
}

// Lookup returns the item covering pos, or the nearest item after it with a
// negative offset. See extent.AtOrAfter.
func (wb *WriteBuffer) Lookup(pos int64) (int64, *types.Item, bool) {
	return wb.items.AtOrAfter(pos)
}

// Size returns the number of dirty bytes.
func (wb *WriteBuffer) Size() int64 {
	return wb.items.Bytes()
}

// Empty reports whether the buffer holds no dirty bytes.
func (wb *WriteBuffer) Empty() bool {
	return wb.items.Bytes() == 0
}

// Len returns the number of dirty extents.
func (wb *WriteBuffer) Len() int {
	return wb.items.Len()
}

// End returns the offset one past the last dirty byte, or 0 when empty.
func (wb *WriteBuffer) End() int64 {
	items := wb.items.Items()
	if len(items) == 0 {
		return 0
	}
	return items[len(items)-1].End()
}

// Snapshot returns every dirty item in offset order, ready to be written
// through. The returned items share their buffers with the write buffer.
func (wb *WriteBuffer) Snapshot() []types.Item {
	items := wb.items.Items()
	out := make([]types.Item, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}

// Prefix returns the dirty items inside [0, size). An item straddling size is
// replaced in the result by a copy clipped to end at size; the buffer itself
// is left untouched.
func (wb *WriteBuffer) Prefix(size int64) []types.Item {
	found := wb.items.Overlapping(0, size)
	out := make([]types.Item, 0, len(found))
	for _, item := range found {
		clipped := *item
		if clipped.End() > size {
			clipped.Data = clipped.Data[:size-clipped.Start]
		}
		out = append(out, clipped)
	}
	return out
}

// Clear discards every dirty item.
func (wb *WriteBuffer) Clear() {
	wb.items.Clear()
}

// GetStats returns current buffer statistics
func (wb *WriteBuffer) GetStats() WriteBufferStats {
	stats := wb.stats
	stats.PendingBytes = wb.items.Bytes()
	stats.Extents = wb.items.Len()
	return stats
}
