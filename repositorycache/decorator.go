package repositorycache

import (
	"context"
	"reflect"

	"github.com/goliatone/go-repository-uow/cache"
	"github.com/goliatone/go-repository-uow/repository"
)

// Interface assertion to ensure CachedRepository implements Repository[T].
var _ repository.Repository[any] = (*CachedRepository[any])(nil)

// CachedRepository decorates a base repository with cache-aside behaviour:
// non-projected reads consult the backend before the store, and every
// mutation invalidates (never edits) the affected entries.
//
// Invalidation for mutations with a derivable id runs before the store call,
// so a reader racing the mutation misses and reloads fresh data instead of
// ever being served a soon-to-be-stale entry. Mutations whose affected row
// set cannot be determined cheaply drop the entire cache; correctness is
// preferred over hit rate.
type CachedRepository[T any] struct {
	base    repository.Repository[T]
	backend cache.Backend
	keys    cache.KeySerializer
	ns      string
}

// New wraps base with cache-aside behaviour. The cache namespace is derived
// from T's type name, so repositories over distinct entity types never
// collide in a shared backend.
func New[T any](base repository.Repository[T], backend cache.Backend, keys cache.KeySerializer) *CachedRepository[T] {
	return &CachedRepository[T]{
		base:    base,
		backend: backend,
		keys:    keys,
		ns:      namespaceOf[T](),
	}
}

func namespaceOf[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		name = t.String()
	}
	return toSnake(name)
}

func (c *CachedRepository[T]) idKey(id string) string {
	return c.ns + cache.KeySeparator + id
}

func (c *CachedRepository[T]) queryKey(op string, filter repository.Filter) string {
	return c.keys.SerializeKey(c.ns+cache.KeySeparator+op, filter)
}

// FindByID serves non-projected lookups from the id index when possible. A
// projected read never consults or populates the cache: a partial projection
// must not poison the full-entity index.
func (c *CachedRepository[T]) FindByID(ctx context.Context, id string, projection repository.Projection) (T, bool, error) {
	if projection != nil {
		return c.base.FindByID(ctx, id, projection)
	}

	if v, ok := c.backend.Get(ctx, c.idKey(id)); ok {
		if ent, ok := v.(T); ok {
			return ent, true, nil
		}
	}

	ent, found, err := c.base.FindByID(ctx, id, nil)
	if err != nil || !found {
		return ent, found, err
	}
	c.backend.Set(ctx, c.idKey(id), ent)
	return ent, true, nil
}

// FindOne delegates exact-id filters to FindByID so id-only lookups have a
// single source of truth. Other filters go through the query index.
func (c *CachedRepository[T]) FindOne(ctx context.Context, filter repository.Filter, projection repository.Projection) (T, bool, error) {
	if id, ok := filter.ExactID(); ok {
		return c.FindByID(ctx, id, projection)
	}
	if projection != nil {
		return c.base.FindOne(ctx, filter, projection)
	}

	qkey := c.queryKey("find_one", filter)
	if entries, ok := c.backend.GetQuery(ctx, qkey); ok && len(entries) > 0 {
		if ent, ok := entries[0].Value.(T); ok {
			return ent, true, nil
		}
	}

	ent, found, err := c.base.FindOne(ctx, filter, nil)
	if err != nil || !found {
		return ent, found, err
	}

	id := c.base.Handlers().GetID(ent)
	c.backend.Set(ctx, c.idKey(id), ent)
	c.backend.SetQuery(ctx, qkey, []cache.QueryEntry{{Key: id, Value: ent}})
	return ent, true, nil
}

// FindMany caches the full result list under the serialized filter and
// populates the id index for every entity not already present.
func (c *CachedRepository[T]) FindMany(ctx context.Context, filter repository.Filter, projection repository.Projection) ([]T, error) {
	if projection != nil {
		return c.base.FindMany(ctx, filter, projection)
	}

	qkey := c.queryKey("find_many", filter)
	if entries, ok := c.backend.GetQuery(ctx, qkey); ok {
		if items, ok := entriesToItems[T](entries); ok {
			return items, nil
		}
	}

	items, err := c.base.FindMany(ctx, filter, nil)
	if err != nil {
		return nil, err
	}

	getID := c.base.Handlers().GetID
	entries := make([]cache.QueryEntry, len(items))
	for i, ent := range items {
		id := getID(ent)
		entries[i] = cache.QueryEntry{Key: id, Value: ent}
		if _, ok := c.backend.Get(ctx, c.idKey(id)); !ok {
			c.backend.Set(ctx, c.idKey(id), ent)
		}
	}
	c.backend.SetQuery(ctx, qkey, entries)
	return items, nil
}

// FindManyPage passes through; paged reads are not cached.
func (c *CachedRepository[T]) FindManyPage(ctx context.Context, filter repository.Filter, paging repository.Paging, projection repository.Projection) (repository.Page[T], error) {
	return c.base.FindManyPage(ctx, filter, paging, projection)
}

// Add inserts through the base repository and populates the id index with
// the created entity. A new identity cannot be stale, so nothing is
// invalidated.
func (c *CachedRepository[T]) Add(ctx context.Context, item T) (T, error) {
	created, err := c.base.Add(ctx, item)
	if err != nil {
		return created, err
	}
	c.backend.Set(ctx, c.idKey(c.base.Handlers().GetID(created)), created)
	return created, nil
}

// AddMany inserts a batch and populates the id index for the successfully
// inserted subset the base repository reports back.
func (c *CachedRepository[T]) AddMany(ctx context.Context, items []T, ordered bool) ([]T, error) {
	created, err := c.base.AddMany(ctx, items, ordered)
	if err != nil {
		return created, err
	}
	getID := c.base.Handlers().GetID
	for _, ent := range created {
		c.backend.Set(ctx, c.idKey(getID(ent)), ent)
	}
	return created, nil
}

// Patch invalidates the key named by the filter's id, falling back to the id
// carried by the patch document, before issuing the store call. Without a
// derivable id the affected row set is unknown and the entire cache drops.
func (c *CachedRepository[T]) Patch(ctx context.Context, filter repository.Filter, changes repository.Update, upsert bool) error {
	if err := c.invalidateForPatch(ctx, filter, changes); err != nil {
		return err
	}
	return c.base.Patch(ctx, filter, changes, upsert)
}

func (c *CachedRepository[T]) invalidateForPatch(ctx context.Context, filter repository.Filter, changes repository.Update) error {
	if id, ok := filter.ID(); ok {
		return c.backend.InvalidateKey(ctx, c.idKey(id), false)
	}
	if id, ok := changes.ID(); ok {
		return c.backend.InvalidateKey(ctx, c.idKey(id), false)
	}
	return c.backend.InvalidateAll(ctx, false)
}

// DeleteOne invalidates the single key named by the filter's id before
// issuing the delete; without one the whole cache drops.
func (c *CachedRepository[T]) DeleteOne(ctx context.Context, filter repository.Filter) error {
	if id, ok := filter.ID(); ok {
		if err := c.backend.InvalidateKey(ctx, c.idKey(id), false); err != nil {
			return err
		}
	} else if err := c.backend.InvalidateAll(ctx, false); err != nil {
		return err
	}
	return c.base.DeleteOne(ctx, filter)
}

// DeleteMany affects an undeterminable row set; the whole cache drops.
func (c *CachedRepository[T]) DeleteMany(ctx context.Context, filter repository.Filter) (int, error) {
	if err := c.backend.InvalidateAll(ctx, false); err != nil {
		return 0, err
	}
	return c.base.DeleteMany(ctx, filter)
}

// Update invalidates the key named by the filter's id, or the whole cache
// when the update targets many rows or carries no derivable id.
func (c *CachedRepository[T]) Update(ctx context.Context, filter repository.Filter, update repository.Update, opts repository.UpdateOptions) (repository.UpdateResult, error) {
	id, hasID := filter.ID()
	if hasID && !opts.Many {
		if err := c.backend.InvalidateKey(ctx, c.idKey(id), false); err != nil {
			return repository.UpdateResult{}, err
		}
	} else if err := c.backend.InvalidateAll(ctx, false); err != nil {
		return repository.UpdateResult{}, err
	}
	return c.base.Update(ctx, filter, update, opts)
}

// FindOneAndUpdate invalidates the filter's id key before the store call.
// When the operation returns the post-update document, the fresh result
// repopulates the id index; when the filter lacked a direct id and nothing
// matched, no invalidation happens at all.
func (c *CachedRepository[T]) FindOneAndUpdate(ctx context.Context, filter repository.Filter, update repository.Update, opts repository.FindOneAndUpdateOptions) (T, bool, error) {
	fid, hadID := filter.ID()
	if hadID {
		if err := c.backend.InvalidateKey(ctx, c.idKey(fid), false); err != nil {
			var zero T
			return zero, false, err
		}
	}

	ent, found, err := c.base.FindOneAndUpdate(ctx, filter, update, opts)
	if err != nil || !found {
		return ent, found, err
	}

	id := c.base.Handlers().GetID(ent)
	if opts.ReturnUpdated {
		c.backend.Set(ctx, c.idKey(id), ent)
	} else if !hadID {
		if err := c.backend.InvalidateKey(ctx, c.idKey(id), false); err != nil {
			return ent, true, err
		}
	}
	return ent, true, nil
}

// Subscribe delegates to the base repository; the base emits all change
// events.
func (c *CachedRepository[T]) Subscribe(listener repository.ChangeListener[T]) func() {
	return c.base.Subscribe(listener)
}

// Handlers returns the model handlers from the base repository.
func (c *CachedRepository[T]) Handlers() repository.Handlers[T] {
	return c.base.Handlers()
}

func entriesToItems[T any](entries []cache.QueryEntry) ([]T, bool) {
	items := make([]T, len(entries))
	for i, e := range entries {
		ent, ok := e.Value.(T)
		if !ok {
			return nil, false
		}
		items[i] = ent
	}
	return items, true
}
