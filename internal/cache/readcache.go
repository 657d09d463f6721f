package cache

import (
	"math"
	"sort"
	"sync"

	"github.com/objectfs/rangecache/internal/extent"
	"github.com/objectfs/rangecache/pkg/types"
)

// readCache is the shared cache of clean byte ranges, one extent set per
// path. Items carry a logical access clock for LRU eviction.
//
// All item contents are read and written under mu; callers never keep item
// pointers past a method call.
//
// gens counts the changes of a path's remote content seen by the cache
// (flush, truncate, invalidate). A fill started under an older generation
// may hold stale bytes and is not inserted.
type readCache struct {
	mu    sync.Mutex
	sets  map[string]*extent.Set
	gens  map[string]uint64
	size  int64
	clock uint64
}

func newReadCache() *readCache {
	return &readCache{
		sets: make(map[string]*extent.Set),
		gens: make(map[string]uint64),
	}
}

// generation returns the current content generation of path. Capture it
// before fetching from the remote store and pass it to insert.
func (rc *readCache) generation(path string) uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.gens[path]
}

// read copies into dst from the item covering pos and refreshes its access
// time. When no item covers pos it returns 0 and the distance to the next
// item of path, or -1 when there is none.
func (rc *readCache) read(path string, pos int64, dst []byte) (int, int64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	set := rc.sets[path]
	if set == nil {
		return 0, -1
	}
	offset, item, ok := set.AtOrAfter(pos)
	if !ok {
		return 0, -1
	}
	if offset < 0 {
		return 0, -offset
	}

	rc.clock++
	item.LastAccess = rc.clock
	return copy(dst, item.Data[offset:]), 0
}

// insert adds a range fetched under generation gen. The range is dropped when
// the content of path changed since gen or another item already covers
// start; otherwise it is clipped to end where the next item begins.
func (rc *readCache) insert(path string, start int64, data []byte, gen uint64) bool {
	if len(data) == 0 {
		return false
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.gens[path] != gen {
		return false
	}

	set := rc.sets[path]
	if set == nil {
		set = &extent.Set{}
		rc.sets[path] = set
	}

	offset, _, ok := set.AtOrAfter(start)
	if ok && offset >= 0 {
		return false
	}
	if ok && int64(len(data)) > -offset {
		data = data[:-offset]
	}

	rc.clock++
	set.Insert(&types.Item{Path: path, Start: start, Data: data, LastAccess: rc.clock})
	rc.size += int64(len(data))
	return true
}

// apply overwrites cached bytes of path with the flushed items so the shared
// cache keeps observing the latest content. Extents and access times do not
// change.
func (rc *readCache) apply(path string, items []types.Item) int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if len(items) > 0 {
		rc.gens[path]++
	}
	set := rc.sets[path]
	if set == nil || set.Len() == 0 {
		return 0
	}

	var updated int64
	for i := range items {
		src := &items[i]
		for _, dst := range set.Overlapping(src.Start, src.Len()) {
			updated += int64(extent.CopyOverlap(dst, src))
		}
	}
	return updated
}

// truncate drops cached bytes of path at or beyond size. An item straddling
// size is shortened in place.
func (rc *readCache) truncate(path string, size int64) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.gens[path]++

	set := rc.sets[path]
	if set == nil {
		return
	}

	for _, item := range set.Overlapping(size, math.MaxInt64) {
		if item.Start >= size {
			set.Remove(item)
			rc.size -= item.Len()
			continue
		}
		rc.size -= item.End() - size
		item.Data = item.Data[:size-item.Start]
	}

	if set.Len() == 0 {
		delete(rc.sets, path)
	}
}

// invalidate drops every cached range of path.
func (rc *readCache) invalidate(path string) int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	rc.gens[path]++

	set := rc.sets[path]
	if set == nil {
		return 0
	}
	dropped := set.Bytes()
	rc.size -= dropped
	delete(rc.sets, path)
	return dropped
}

// evict removes least recently used items until at least target bytes are
// freed or the cache is empty. It returns the sizes of the evicted items.
func (rc *readCache) evict(target int64) []int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if target <= 0 || rc.size == 0 {
		return nil
	}

	var candidates []*types.Item
	for _, set := range rc.sets {
		candidates = append(candidates, set.Items()...)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastAccess < candidates[j].LastAccess
	})

	var evicted []int64
	for _, item := range candidates {
		if target <= 0 {
			break
		}
		set := rc.sets[item.Path]
		set.Remove(item)
		if set.Len() == 0 {
			delete(rc.sets, item.Path)
		}
		rc.size -= item.Len()
		target -= item.Len()
		evicted = append(evicted, item.Len())
	}
	return evicted
}

func (rc *readCache) bytes() int64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.size
}

func (rc *readCache) items() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	n := 0
	for _, set := range rc.sets {
		n += set.Len()
	}
	return n
}
