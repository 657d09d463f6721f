/*
Package cache implements the caching engine that sits between byte-addressed
consumers and a slow remote store.

An Engine owns one shared read cache and a registry of views. Each View binds
one path to one remote accessor and owns a private write cache of dirty
bytes:

	┌──────────────┐  ┌──────────────┐  ┌──────────────┐
	│   View A     │  │   View B     │  │   View C     │
	│ write cache  │  │ write cache  │  │ write cache  │
	└──────┬───────┘  └──────┬───────┘  └──────┬───────┘
	       │                 │                 │
	┌──────┴─────────────────┴─────────────────┴───────┐
	│          Engine: shared read cache (LRU)          │
	│          registry of dirty views, governor        │
	└──────────────────────────┬────────────────────────┘
	                           │ types.Accessor
	┌──────────────────────────┴────────────────────────┐
	│                   Remote store                     │
	└───────────────────────────────────────────────────┘

# Read path

A read consults, for every position, the view's write cache first, then the
shared read cache, then the remote accessor. Bytes copied from the read cache
or a fresh fetch never run into a dirty range of the view. Remote fetches are
at least Config.MinFetch bytes long, never overlap an existing read item, and
identical concurrent fetches share one remote call. A fetch returning no
bytes marks end of data; bytes between end of data and a later dirty range
read as zeros.

# Write path

Writes only touch the view's write cache. The view joins the registry on its
first dirty byte and leaves it when a flush or truncate empties its cache.

# Capacity governor

After every write and every read that went remote, the governor runs two
checks under one engine-wide lock:

  - Write check: when the dirty bytes of all registered views exceed
    Config.WriteLimit, views are flushed largest first until the excess is
    gone. Flush failures are returned to the caller that triggered the pass.
  - Total check: when read plus dirty bytes exceed Config.TotalLimit, read
    items are evicted least recently read first.

Because WriteLimit <= TotalLimit is checked by New, the total check can always
be satisfied by evicting clean bytes alone.

# Flush and truncate

Flush writes every dirty extent of a view through Accessor.Write in one call,
then copies the written bytes into overlapping read items so other views see
them without a refetch. A remote fill that was in flight while a flush,
truncate or Invalidate changed the path is returned to its reader but not
cached, since it may predate the change. Truncate writes the dirty bytes below the new size,
truncates the remote data, and only then discards the rest of the write cache
and trims the read cache. A failed remote call leaves all local state as it
was.

# Lifecycle

The registry holds strong references, so unflushed data is never dropped
behind a consumer's back. View.Close flushes and releases a view; Engine.Close
flushes every dirty view in parallel, then rejects new views and new writes
with ErrEngineClosed. Reads, flushes, truncates and View.Close keep working on
existing views.

# Locking

Lock order is governor, then view, then read cache or registry. Views release
their own lock before starting a governor pass.
*/
package cache
