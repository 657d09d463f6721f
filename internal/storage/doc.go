/*
Package storage adapts object stores to the cache engine.

ObjectAccessor turns one object of a types.Backend into a types.Accessor:

	Read      ranged GET; short result at end of object
	Write     GET whole object, patch items, PUT
	Truncate  GET whole object, cut or zero-extend, PUT
	Size      HEAD

A missing object behaves as an empty one. Every backend call runs through
pkg/retry, so transient failures marked retryable by the backend are retried
with exponential backoff. WithBreaker adds a circuit.Breaker around the retry
loop; one breaker is shared by every accessor of the same store.

Backends live in subpackages: s3 for Amazon S3 and compatible stores, memory
for an in-process map used by tests and the mem:// scheme.
*/
package storage
