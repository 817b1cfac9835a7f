// Package cache provides the key-value substrate used by the artifact caches.
//
// It defines the Store interface (get, batched get, set with TTL, touch and
// delete) together with an in-memory implementation, a Redis implementation
// backed by go-redis, and a GuardedStore that fails fast while the backing
// store is unreachable. Standard TTL durations and a Policy for resolving
// per-call TTL overrides live here as well.
package cache
