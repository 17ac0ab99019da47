package repository

import "context"

// Projection lists the field names a read should return. A nil projection
// means the full entity.
type Projection []string

// Paging bounds a FindManyPage call.
type Paging struct {
	Offset int
	Limit  int
	SortBy string
	Desc   bool
}

// Page wraps a paged result set together with the total match count,
// so callers can render pagination without a second round-trip.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// UpdateOptions controls Update behaviour.
type UpdateOptions struct {
	// Many applies the update to every matching document instead of the first.
	Many bool
	// Upsert inserts the document when nothing matches.
	Upsert bool
}

// UpdateResult reports what an Update touched.
type UpdateResult struct {
	MatchedCount  int
	ModifiedCount int
	UpsertedID    string
}

// FindOneAndUpdateOptions controls FindOneAndUpdate behaviour.
type FindOneAndUpdateOptions struct {
	// Upsert inserts the document when nothing matches.
	Upsert bool
	// ReturnUpdated returns the post-update document instead of the
	// pre-update snapshot.
	ReturnUpdated bool
}

// Handlers carries the per-model accessors a repository needs to work with
// an opaque entity type without reflection.
type Handlers[T any] struct {
	NewRecord func() T
	GetID     func(record T) string
	SetID     func(record T, id string)
}

// Repository is the operation set every repository exposes. Implementations
// report absence of a match with a false bool and a nil error; errors are
// reserved for store-level failures.
//
// Decorators (caching, auditing, access control) wrap this same interface and
// stay composable at construction time.
type Repository[T any] interface {
	Add(ctx context.Context, item T) (T, error)
	// AddMany inserts a batch. When the store rejects a subset of items with
	// identifiable per-item causes, the successfully inserted subset is
	// returned with a nil error and add events fire only for that subset.
	// Any other failure aborts the whole call.
	AddMany(ctx context.Context, items []T, ordered bool) ([]T, error)
	// Patch applies a partial document to the first match. Returns a
	// ValidationError when changes carries no effective fields.
	Patch(ctx context.Context, filter Filter, changes Update, upsert bool) error
	DeleteOne(ctx context.Context, filter Filter) error
	DeleteMany(ctx context.Context, filter Filter) (int, error)

	FindOne(ctx context.Context, filter Filter, projection Projection) (T, bool, error)
	FindByID(ctx context.Context, id string, projection Projection) (T, bool, error)
	FindMany(ctx context.Context, filter Filter, projection Projection) ([]T, error)
	FindManyPage(ctx context.Context, filter Filter, paging Paging, projection Projection) (Page[T], error)

	Update(ctx context.Context, filter Filter, update Update, opts UpdateOptions) (UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, filter Filter, update Update, opts FindOneAndUpdateOptions) (T, bool, error)

	// Subscribe registers a listener for add/update/delete change events.
	// The returned cancel func removes the listener.
	Subscribe(listener ChangeListener[T]) (cancel func())

	// Handlers returns the model accessors this repository was built with.
	Handlers() Handlers[T]
}
