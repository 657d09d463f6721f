package types

import (
	"time"
)

// Item is a cached byte range of one path: the bytes starting at Start.
//
// Start never changes once an item is created. Data may be overwritten in
// place or shortened, never extended.
type Item struct {
	Path  string `json:"path"`
	Start int64  `json:"start"`
	Data  []byte `json:"-"`

	// LastAccess is a logical clock value refreshed on every read-cache hit.
	// Write-cache items leave it untouched.
	LastAccess uint64 `json:"last_access"`
}

// End returns the offset one past the last byte of the item.
func (i *Item) End() int64 {
	return i.Start + int64(len(i.Data))
}

// Len returns the number of bytes held by the item.
func (i *Item) Len() int64 {
	return int64(len(i.Data))
}

// ObjectInfo represents metadata about an object
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
	ContentType  string    `json:"content_type"`
}

// CacheStats represents cache engine statistics
type CacheStats struct {
	ReadHits      uint64 `json:"read_hits"`
	WriteHits     uint64 `json:"write_hits"`
	Misses        uint64 `json:"misses"`
	RemoteFetches uint64 `json:"remote_fetches"`
	Flushes       uint64 `json:"flushes"`
	Evictions     uint64 `json:"evictions"`

	ReadCacheBytes  int64 `json:"read_cache_bytes"`
	ReadCacheItems  int   `json:"read_cache_items"`
	WriteCacheBytes int64 `json:"write_cache_bytes"`
	DirtyViews      int   `json:"dirty_views"`

	TotalLimit int64   `json:"total_limit"`
	WriteLimit int64   `json:"write_limit"`
	HitRate    float64 `json:"hit_rate"`
}
