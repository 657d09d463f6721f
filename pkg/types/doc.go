/*
Package types defines the contracts shared by the cache engine, the storage
backends and the metrics layer.

	┌─────────────────────────────────────────────┐
	│        File handles (internal/filesystem)   │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│          Cache engine (internal/cache)      │
	│   read cache · write cache · governor       │
	└─────────────────────────────────────────────┘
	                      │ Accessor
	┌─────────────────────────────────────────────┐
	│     Object accessor (internal/storage)      │
	└─────────────────────────────────────────────┘
	                      │ Backend
	┌──────────────────────┐ ┌────────────────────┐
	│   S3 (storage/s3)    │ │ memory (in-process)│
	└──────────────────────┘ └────────────────────┘

Item is the unit of caching: a byte range of one path. Accessor is the
capability set the engine needs from the remote store, and Backend is the
object-store contract the accessors are built on.
*/
package types
