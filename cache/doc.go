// Package cache defines the cache backend contract consumed by the
// repositorycache decorator, together with key serialization and backend
// configuration.
//
// # Overview
//
// A Backend holds two logical indices: entities keyed by id, and ordered
// query results keyed by a serialized filter. Invalidation goes through two
// primitives, InvalidateKey and InvalidateAll, both carrying a localOnly
// flag. Decorators always invalidate with localOnly=false so a replicated
// backend also drops the entry on its peers; localOnly=true exists for a
// backend's own internal use, such as applying an eviction event received
// from a peer without echoing it back.
//
// # Key serialization
//
// The default KeySerializer walks filter documents deterministically (sorted
// map keys, recursive slices, JSON fallback for structs) and digests the
// long form through xxhash, so two structurally equal filters always map to
// the same short key.
//
// # Implementations
//
// internal/cacheinfra provides the sturdyc-backed node-local backend;
// internal/redisinfra layers replicated eviction over any local backend via
// redis pub/sub. Both are wired through pkg/di.
package cache
