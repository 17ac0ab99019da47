// Package repositorycache provides a cache-aside decorator for repositories.
//
// # Overview
//
// CachedRepository[T] wraps any repository.Repository[T] transparently. It
// keeps two logical indices in a cache.Backend: entities keyed by id, and
// ordered query results keyed by the serialized filter that produced them.
// Reads consult the cache before the store; writes invalidate, never edit,
// cached entries.
//
// # Read paths
//
//   - FindByID without a projection checks the id index first; a hit skips
//     the store round-trip entirely.
//   - FindOne with an exact id-only filter delegates to FindByID, keeping a
//     single source of truth for id lookups. Other filters go through the
//     query index, and a miss populates both indices.
//   - FindMany caches the full result list and backfills the id index for
//     every entity not already present.
//   - Any read carrying a projection bypasses the cache in both directions:
//     a partial projection must not poison the full-entity index.
//
// # Write paths
//
// Inserts populate the id index (a new identity cannot be stale). Mutations
// with a derivable id invalidate that single key before the store call runs,
// so a racing reader misses and reloads fresh data rather than being served
// a soon-to-be-stale entry. Mutations whose affected row set cannot be
// determined cheaply (a patch with no derivable id, DeleteMany, multi-row
// updates) drop the entire cache: correctness is preferred over hit rate,
// and query-cache entries are never selectively edited.
//
// All mutation-triggered invalidation runs with localOnly=false so a
// replicated backend also drops the entry on its peers.
//
// # Consistency
//
// Cache entries are a best-effort hint. Operations interleave across store
// round-trips, so a miss-then-populate sequence is not atomic; correctness
// depends only on invalidation running as part of every mutation, never on
// read/populate atomicity.
package repositorycache
