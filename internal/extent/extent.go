// Package extent implements the interval index shared by the read and write
// caches: an ordered set of items and the two range queries every cache
// protocol is expressed in.
package extent

import (
	"math"
	"sort"

	"github.com/objectfs/rangecache/pkg/types"
)

// Set is an ordered collection of items of a single path, sorted by Start.
//
// A Set never holds two items with the same Start, and callers keep the items
// disjoint: new ranges are clipped to the gap before the next item before
// they are inserted. The zero value is an empty set.
type Set struct {
	items []*types.Item
}

// Len returns the number of items in the set.
func (s *Set) Len() int {
	return len(s.items)
}

// Items returns the items ordered by Start. The slice is owned by the set and
// is only valid until the next mutation.
func (s *Set) Items() []*types.Item {
	return s.items
}

// Bytes returns the number of bytes held by all items.
func (s *Set) Bytes() int64 {
	return Bytes(s.items)
}

// Insert adds item to the set, replacing an existing item with the same Start.
func (s *Set) Insert(item *types.Item) {
	i := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].Start >= item.Start
	})
	if i < len(s.items) && s.items[i].Start == item.Start {
		s.items[i] = item
		return
	}
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = item
}

// Remove deletes item from the set and reports whether it was present.
func (s *Set) Remove(item *types.Item) bool {
	i := sort.Search(len(s.items), func(i int) bool {
		return s.items[i].Start >= item.Start
	})
	if i >= len(s.items) || s.items[i] != item {
		return false
	}
	copy(s.items[i:], s.items[i+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return true
}

// Clear removes every item.
func (s *Set) Clear() {
	s.items = nil
}

// Overlapping returns the items of the set intersecting [start, start+size).
func (s *Set) Overlapping(start, size int64) []*types.Item {
	return Overlapping(s.items, start, size)
}

// AtOrAfter looks up pos in the set. See the package level AtOrAfter.
func (s *Set) AtOrAfter(pos int64) (int64, *types.Item, bool) {
	return AtOrAfter(s.items, pos)
}

// Overlapping returns the items intersecting [start, start+size), in order.
// items must be sorted by Start and disjoint. A size that would overflow is
// treated as "to the end of the address space".
func Overlapping(items []*types.Item, start, size int64) []*types.Item {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	end := rangeEnd(start, size)

	var found []*types.Item
	for i := firstEndingAfter(items, start); i < len(items); i++ {
		item := items[i]
		if item.Start >= end {
			break
		}
		if item.End() > start {
			found = append(found, item)
		}
	}
	return found
}

// AtOrAfter returns the item with the smallest Start whose range ends after
// pos, together with offset = pos - item.Start. A negative offset means the
// item begins -offset bytes after pos: nothing covers pos and the item is the
// nearest one ahead of it. ok is false when no item ends after pos.
func AtOrAfter(items []*types.Item, pos int64) (offset int64, item *types.Item, ok bool) {
	i := firstEndingAfter(items, pos)
	if i >= len(items) {
		return 0, nil, false
	}
	item = items[i]
	return pos - item.Start, item, true
}

// Bytes sums the lengths of items.
func Bytes(items []*types.Item) int64 {
	var total int64
	for _, item := range items {
		total += item.Len()
	}
	return total
}

// CopyOverlap copies the bytes of src that overlap dst into dst's buffer and
// returns the number of bytes copied. Neither item changes its extent.
func CopyOverlap(dst *types.Item, src *types.Item) int {
	lo := max(dst.Start, src.Start)
	hi := min(dst.End(), src.End())
	if lo >= hi {
		return 0
	}
	return copy(dst.Data[lo-dst.Start:hi-dst.Start], src.Data[lo-src.Start:hi-src.Start])
}

// firstEndingAfter returns the index of the first item whose End is greater
// than pos. Ends are sorted because items are sorted and disjoint.
func firstEndingAfter(items []*types.Item, pos int64) int {
	return sort.Search(len(items), func(i int) bool {
		return items[i].End() > pos
	})
}

func rangeEnd(start, size int64) int64 {
	if size > math.MaxInt64-start {
		return math.MaxInt64
	}
	return start + size
}
