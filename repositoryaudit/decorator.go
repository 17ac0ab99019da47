// Package repositoryaudit provides a pass-through decorator that stamps
// audit metadata and filters out soft-deleted documents. It carries no
// consistency logic of its own and composes over the cache decorator:
// audit wraps cache wraps base.
package repositoryaudit

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-uow/repository"
)

// DeletedField is the default document field marking a soft delete.
const DeletedField = "deletedAt"

// UpdatedField is the default document field stamped on every update.
const UpdatedField = "updatedAt"

// Hooks carries the per-model stamping accessors. Any nil hook is skipped.
type Hooks[T any] struct {
	// OnCreate stamps creation metadata before an insert.
	OnCreate func(record T, now time.Time)
	// OnUpdate stamps update metadata before a whole-record write.
	OnUpdate func(record T, now time.Time)
	// IsDeleted reports whether a record is soft-deleted, so id lookups can
	// hide it.
	IsDeleted func(record T) bool
}

var _ repository.Repository[any] = (*AuditedRepository[any])(nil)

// AuditedRepository rewrites filter and update documents on their way to the
// wrapped repository: updates get an updated-at stamp, reads exclude
// soft-deleted rows, and deletes become soft-delete patches when enabled.
type AuditedRepository[T any] struct {
	base       repository.Repository[T]
	hooks      Hooks[T]
	now        func() time.Time
	softDelete bool
}

// Option configures an AuditedRepository.
type Option[T any] func(*AuditedRepository[T])

// WithSoftDelete converts deletes into soft-delete patches and makes reads
// exclude soft-deleted rows.
func WithSoftDelete[T any]() Option[T] {
	return func(a *AuditedRepository[T]) {
		a.softDelete = true
	}
}

// WithClock overrides the time source, for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(a *AuditedRepository[T]) {
		if now != nil {
			a.now = now
		}
	}
}

// New wraps base with audit stamping.
func New[T any](base repository.Repository[T], hooks Hooks[T], opts ...Option[T]) *AuditedRepository[T] {
	a := &AuditedRepository[T]{
		base:  base,
		hooks: hooks,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AuditedRepository[T]) stampUpdate(u repository.Update) repository.Update {
	out := u.Clone()
	if out == nil {
		out = repository.Update{}
	}
	if set, ok := out.SetClause(); ok {
		stamped := make(map[string]any, len(set)+1)
		for k, v := range set {
			stamped[k] = v
		}
		stamped[UpdatedField] = a.now()
		out[repository.SetOperator] = stamped
		return out
	}
	out[UpdatedField] = a.now()
	return out
}

func (a *AuditedRepository[T]) scopeFilter(f repository.Filter) repository.Filter {
	if !a.softDelete {
		return f
	}
	out := f.Clone()
	if out == nil {
		out = repository.Filter{}
	}
	out[DeletedField] = nil
	return out
}

func (a *AuditedRepository[T]) Add(ctx context.Context, item T) (T, error) {
	if a.hooks.OnCreate != nil {
		a.hooks.OnCreate(item, a.now())
	}
	return a.base.Add(ctx, item)
}

func (a *AuditedRepository[T]) AddMany(ctx context.Context, items []T, ordered bool) ([]T, error) {
	if a.hooks.OnCreate != nil {
		now := a.now()
		for _, item := range items {
			a.hooks.OnCreate(item, now)
		}
	}
	return a.base.AddMany(ctx, items, ordered)
}

func (a *AuditedRepository[T]) Patch(ctx context.Context, filter repository.Filter, changes repository.Update, upsert bool) error {
	return a.base.Patch(ctx, a.scopeFilter(filter), a.stampUpdate(changes), upsert)
}

// DeleteOne issues a soft-delete patch when soft delete is enabled,
// otherwise passes through.
func (a *AuditedRepository[T]) DeleteOne(ctx context.Context, filter repository.Filter) error {
	if !a.softDelete {
		return a.base.DeleteOne(ctx, filter)
	}
	return a.base.Patch(ctx, a.scopeFilter(filter), repository.Update{
		repository.SetOperator: map[string]any{DeletedField: a.now()},
	}, false)
}

func (a *AuditedRepository[T]) DeleteMany(ctx context.Context, filter repository.Filter) (int, error) {
	if !a.softDelete {
		return a.base.DeleteMany(ctx, filter)
	}
	res, err := a.base.Update(ctx, a.scopeFilter(filter), repository.Update{
		repository.SetOperator: map[string]any{DeletedField: a.now()},
	}, repository.UpdateOptions{Many: true})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (a *AuditedRepository[T]) FindOne(ctx context.Context, filter repository.Filter, projection repository.Projection) (T, bool, error) {
	return a.base.FindOne(ctx, a.scopeFilter(filter), projection)
}

// FindByID passes through so id lookups keep their single source of truth;
// soft-deleted hits are hidden via the IsDeleted hook instead of a filter
// rewrite.
func (a *AuditedRepository[T]) FindByID(ctx context.Context, id string, projection repository.Projection) (T, bool, error) {
	ent, found, err := a.base.FindByID(ctx, id, projection)
	if err != nil || !found {
		return ent, found, err
	}
	if a.softDelete && a.hooks.IsDeleted != nil && a.hooks.IsDeleted(ent) {
		var zero T
		return zero, false, nil
	}
	return ent, true, nil
}

func (a *AuditedRepository[T]) FindMany(ctx context.Context, filter repository.Filter, projection repository.Projection) ([]T, error) {
	return a.base.FindMany(ctx, a.scopeFilter(filter), projection)
}

func (a *AuditedRepository[T]) FindManyPage(ctx context.Context, filter repository.Filter, paging repository.Paging, projection repository.Projection) (repository.Page[T], error) {
	return a.base.FindManyPage(ctx, a.scopeFilter(filter), paging, projection)
}

func (a *AuditedRepository[T]) Update(ctx context.Context, filter repository.Filter, update repository.Update, opts repository.UpdateOptions) (repository.UpdateResult, error) {
	return a.base.Update(ctx, a.scopeFilter(filter), a.stampUpdate(update), opts)
}

func (a *AuditedRepository[T]) FindOneAndUpdate(ctx context.Context, filter repository.Filter, update repository.Update, opts repository.FindOneAndUpdateOptions) (T, bool, error) {
	return a.base.FindOneAndUpdate(ctx, a.scopeFilter(filter), a.stampUpdate(update), opts)
}

func (a *AuditedRepository[T]) Subscribe(listener repository.ChangeListener[T]) func() {
	return a.base.Subscribe(listener)
}

func (a *AuditedRepository[T]) Handlers() repository.Handlers[T] {
	return a.base.Handlers()
}
