/*
Package buffer provides the per-view write cache.

A WriteBuffer collects the dirty bytes a single consumer has written but not
yet pushed to the remote store. It is deliberately simple: it never talks to
the remote store and never evicts anything. Dirty bytes leave a WriteBuffer
only when the owning view flushes them or truncates them away, which is the
cache engine's responsibility (see internal/cache).

Writes keep the buffer free of overlapping extents:

	existing:   [10 ......... 20)          [30 .... 35)
	write:            [15 .......................... 40)
	result:     [10 ...overwritten 20)[20..30)[30 ow 35)[35..40)

The extent of an item is fixed when it is created; later writes overwrite the
covered bytes in place and spill into new items for the uncovered remainder.

Prefix implements the selection truncate needs: the dirty bytes below the new
size, with the last item clipped to the boundary.
*/
package buffer
