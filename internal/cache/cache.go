package cache

import "time"

// Cache is a key-value cache with a per-entry TTL.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value. If ttl <= 0, the entry does not expire.
	Set(key K, value V, ttl time.Duration)

	// GetOrLoad returns the cached value or calls load and caches its result
	// for ttl. Load errors are returned and nothing is cached.
	GetOrLoad(key K, ttl time.Duration, load func() (V, error)) (V, error)

	// Delete removes a key if present.
	Delete(key K)

	// Clear removes all entries.
	Clear()

	// Len returns the number of non-expired items.
	Len() int
}
