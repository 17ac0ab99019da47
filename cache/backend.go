package cache

import "context"

// QueryEntry is one (id, entity) pair inside a cached query result. Order is
// preserved so a cached result replays exactly what the store returned.
type QueryEntry struct {
	Key   string
	Value any
}

// EventKind identifies an eviction event.
type EventKind uint8

const (
	// EventDispose drops a single key.
	EventDispose EventKind = iota + 1
	// EventReset drops everything.
	EventReset
)

// String returns the lowercase event name.
func (k EventKind) String() string {
	switch k {
	case EventDispose:
		return "dispose"
	case EventReset:
		return "reset"
	}
	return "unknown"
}

// Event is an eviction notification emitted by a Backend, used for
// peer-driven eviction between replicated cache nodes.
type Event struct {
	Kind EventKind
	Key  string
}

// Backend is the cache a decorated repository consults. It holds two logical
// indices: entities keyed by id, and ordered query results keyed by a
// serialized filter.
//
// The localOnly parameter on the invalidation primitives restricts the
// invalidation to the current process's in-memory cache; a replicated
// backend uses it when applying eviction events received from peers, so the
// eviction does not echo back. Decorators always invalidate with
// localOnly=false.
//
// Entries are a best-effort hint: a read's fetch-then-populate sequence is
// not atomic, so correctness depends only on invalidation eventually
// running, never on read/populate atomicity.
type Backend interface {
	// Get returns the entity cached under key, if any.
	Get(ctx context.Context, key string) (any, bool)
	// Set stores an entity under key.
	Set(ctx context.Context, key string, value any)

	// GetQuery returns the cached result list for a serialized filter.
	GetQuery(ctx context.Context, queryKey string) ([]QueryEntry, bool)
	// SetQuery stores a result list under a serialized filter.
	SetQuery(ctx context.Context, queryKey string, entries []QueryEntry)

	// InvalidateKey drops the entity cached under key.
	InvalidateKey(ctx context.Context, key string, localOnly bool) error
	// InvalidateAll drops both indices.
	InvalidateAll(ctx context.Context, localOnly bool) error

	// OnEviction registers a listener for dispose/reset events. The returned
	// cancel func removes the listener.
	OnEviction(fn func(Event)) (cancel func())
}
