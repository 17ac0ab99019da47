package memrepo

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/goliatone/go-repository-uow/repository"
	"github.com/goliatone/go-repository-uow/uow"
)

var _ repository.Repository[any] = (*Repository[any])(nil)

// Repository is the plain CRUD executor against a Store collection. It is a
// thin pass-through: every operation translates directly into document reads
// and writes, with no caching or consistency logic of its own.
type Repository[T any] struct {
	store    *Store
	name     string
	handlers repository.Handlers[T]
	sess     uow.Session
	emitter  repository.Emitter[T]
}

// New binds a repository to a named collection. sess may be nil for
// non-transactional use; a transactional repository simply shares the
// session its unit of work opened.
func New[T any](store *Store, name string, handlers repository.Handlers[T], sess uow.Session) *Repository[T] {
	return &Repository[T]{
		store:    store,
		name:     name,
		handlers: handlers,
		sess:     sess,
	}
}

// Session returns the session this repository was constructed with, nil when
// non-transactional.
func (r *Repository[T]) Session() uow.Session {
	return r.sess
}

// Handlers implements repository.Repository.
func (r *Repository[T]) Handlers() repository.Handlers[T] {
	return r.handlers
}

// Subscribe implements repository.Repository.
func (r *Repository[T]) Subscribe(listener repository.ChangeListener[T]) func() {
	return r.emitter.Subscribe(listener)
}

// Add inserts one entity, generating an id when the entity carries none.
func (r *Repository[T]) Add(ctx context.Context, item T) (T, error) {
	var zero T

	id := r.handlers.GetID(item)
	if id == "" {
		id = uuid.NewString()
		r.handlers.SetID(item, id)
	}

	doc, err := toDoc(item)
	if err != nil {
		return zero, &repository.StoreOperationError{Op: "add", Err: err}
	}
	doc[repository.IDField] = id

	r.store.mu.Lock()
	col := r.store.collection(r.name)
	if _, exists := col[id]; exists {
		r.store.mu.Unlock()
		return zero, &repository.StoreOperationError{Op: "add", Err: fmt.Errorf("duplicate id %q", id)}
	}
	col[id] = doc
	r.store.mu.Unlock()

	created, err := fromDoc(r.handlers, doc, nil)
	if err != nil {
		return zero, &repository.StoreOperationError{Op: "add", Err: err}
	}
	r.emitter.Emit(repository.ChangeAdd, created)
	return created, nil
}

// AddMany inserts a batch. Duplicate ids are identifiable per-item failures:
// the successfully inserted subset is returned with a nil error and add
// events fire only for that subset. Ordered mode stops at the first failure;
// unordered mode keeps going. A document that cannot be encoded is not
// attributable to the store and aborts the whole call before anything is
// written.
func (r *Repository[T]) AddMany(ctx context.Context, items []T, ordered bool) ([]T, error) {
	docs := make([]document, len(items))
	ids := make([]string, len(items))
	for i, item := range items {
		id := r.handlers.GetID(item)
		if id == "" {
			id = uuid.NewString()
			r.handlers.SetID(item, id)
		}
		doc, err := toDoc(item)
		if err != nil {
			return nil, &repository.StoreOperationError{Op: "addMany", Err: err}
		}
		doc[repository.IDField] = id
		docs[i] = doc
		ids[i] = id
	}

	var inserted []document
	var failed []repository.BulkItemError
	r.store.mu.Lock()
	col := r.store.collection(r.name)
	for i, doc := range docs {
		if _, exists := col[ids[i]]; exists {
			failed = append(failed, repository.BulkItemError{
				Index: i,
				ID:    ids[i],
				Err:   fmt.Errorf("duplicate id %q", ids[i]),
			})
			if ordered {
				break
			}
			continue
		}
		col[ids[i]] = doc
		inserted = append(inserted, doc)
	}
	r.store.mu.Unlock()

	created := make([]T, 0, len(inserted))
	for _, doc := range inserted {
		ent, err := fromDoc(r.handlers, doc, nil)
		if err != nil {
			return created, &repository.StoreOperationError{Op: "addMany", Err: err}
		}
		created = append(created, ent)
		r.emitter.Emit(repository.ChangeAdd, ent)
	}

	if len(failed) > 0 {
		bw := &repository.BulkWriteError{Items: failed}
		if !bw.Identifiable() {
			return created, &repository.StoreOperationError{Op: "addMany", Err: bw}
		}
	}
	return created, nil
}

// FindByID implements repository.Repository.
func (r *Repository[T]) FindByID(ctx context.Context, id string, projection repository.Projection) (T, bool, error) {
	var zero T
	r.store.reads.Add(1)

	r.store.mu.RLock()
	doc, ok := r.store.collection(r.name)[id]
	r.store.mu.RUnlock()
	if !ok {
		return zero, false, nil
	}

	ent, err := fromDoc(r.handlers, doc, projection)
	if err != nil {
		return zero, false, &repository.StoreOperationError{Op: "findById", Err: err}
	}
	return ent, true, nil
}

// FindOne returns the first match in id order.
func (r *Repository[T]) FindOne(ctx context.Context, filter repository.Filter, projection repository.Projection) (T, bool, error) {
	var zero T
	r.store.reads.Add(1)

	r.store.mu.RLock()
	docs := r.matchLocked(filter)
	r.store.mu.RUnlock()
	if len(docs) == 0 {
		return zero, false, nil
	}

	ent, err := fromDoc(r.handlers, docs[0], projection)
	if err != nil {
		return zero, false, &repository.StoreOperationError{Op: "findOne", Err: err}
	}
	return ent, true, nil
}

// FindMany returns every match in id order.
func (r *Repository[T]) FindMany(ctx context.Context, filter repository.Filter, projection repository.Projection) ([]T, error) {
	r.store.reads.Add(1)

	r.store.mu.RLock()
	docs := r.matchLocked(filter)
	r.store.mu.RUnlock()

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		ent, err := fromDoc(r.handlers, doc, projection)
		if err != nil {
			return nil, &repository.StoreOperationError{Op: "findMany", Err: err}
		}
		items = append(items, ent)
	}
	return items, nil
}

// FindManyPage returns one page of matches plus the total match count.
func (r *Repository[T]) FindManyPage(ctx context.Context, filter repository.Filter, paging repository.Paging, projection repository.Projection) (repository.Page[T], error) {
	r.store.reads.Add(1)

	r.store.mu.RLock()
	docs := r.matchLocked(filter)
	r.store.mu.RUnlock()

	if paging.SortBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			a := fmt.Sprintf("%v", docs[i][paging.SortBy])
			b := fmt.Sprintf("%v", docs[j][paging.SortBy])
			if paging.Desc {
				return a > b
			}
			return a < b
		})
	}

	total := len(docs)
	if paging.Offset > 0 {
		if paging.Offset >= len(docs) {
			docs = nil
		} else {
			docs = docs[paging.Offset:]
		}
	}
	if paging.Limit > 0 && paging.Limit < len(docs) {
		docs = docs[:paging.Limit]
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		ent, err := fromDoc(r.handlers, doc, projection)
		if err != nil {
			return repository.Page[T]{}, &repository.StoreOperationError{Op: "findManyPage", Err: err}
		}
		items = append(items, ent)
	}
	return repository.Page[T]{Items: items, Total: total}, nil
}

// Patch applies a partial document to the first match, upserting when asked.
func (r *Repository[T]) Patch(ctx context.Context, filter repository.Filter, changes repository.Update, upsert bool) error {
	if changes.IsEmpty() {
		return repository.ErrNoChanges
	}
	fields := changes.Fields()

	r.store.mu.Lock()
	docs := r.matchLocked(filter)
	if len(docs) == 0 {
		if !upsert {
			r.store.mu.Unlock()
			return nil
		}
		doc := r.upsertDocLocked(filter, fields)
		r.store.mu.Unlock()
		r.emitDoc(repository.ChangeAdd, doc)
		return nil
	}

	doc := docs[0]
	applyFields(doc, fields)
	r.store.mu.Unlock()

	r.emitDoc(repository.ChangeUpdate, doc)
	return nil
}

// DeleteOne removes the first match, a no-op when nothing matches.
func (r *Repository[T]) DeleteOne(ctx context.Context, filter repository.Filter) error {
	r.store.mu.Lock()
	docs := r.matchLocked(filter)
	if len(docs) == 0 {
		r.store.mu.Unlock()
		return nil
	}
	doc := docs[0]
	delete(r.store.collection(r.name), fmt.Sprintf("%v", doc[repository.IDField]))
	r.store.mu.Unlock()

	r.emitDoc(repository.ChangeDelete, doc)
	return nil
}

// DeleteMany removes every match and returns the count.
func (r *Repository[T]) DeleteMany(ctx context.Context, filter repository.Filter) (int, error) {
	r.store.mu.Lock()
	docs := r.matchLocked(filter)
	col := r.store.collection(r.name)
	for _, doc := range docs {
		delete(col, fmt.Sprintf("%v", doc[repository.IDField]))
	}
	r.store.mu.Unlock()

	for _, doc := range docs {
		r.emitDoc(repository.ChangeDelete, doc)
	}
	return len(docs), nil
}

// Update applies an update document to the first match, or to every match
// with Many set, upserting when nothing matched and Upsert is set.
func (r *Repository[T]) Update(ctx context.Context, filter repository.Filter, update repository.Update, opts repository.UpdateOptions) (repository.UpdateResult, error) {
	if update.IsEmpty() {
		return repository.UpdateResult{}, repository.ErrNoChanges
	}
	fields := update.Fields()

	r.store.mu.Lock()
	docs := r.matchLocked(filter)
	if len(docs) == 0 {
		if !opts.Upsert {
			r.store.mu.Unlock()
			return repository.UpdateResult{}, nil
		}
		doc := r.upsertDocLocked(filter, fields)
		r.store.mu.Unlock()
		r.emitDoc(repository.ChangeAdd, doc)
		return repository.UpdateResult{UpsertedID: fmt.Sprintf("%v", doc[repository.IDField])}, nil
	}

	if !opts.Many {
		docs = docs[:1]
	}
	for _, doc := range docs {
		applyFields(doc, fields)
	}
	r.store.mu.Unlock()

	for _, doc := range docs {
		r.emitDoc(repository.ChangeUpdate, doc)
	}
	return repository.UpdateResult{MatchedCount: len(docs), ModifiedCount: len(docs)}, nil
}

// FindOneAndUpdate updates the first match and returns the pre-update or
// post-update document depending on opts.ReturnUpdated.
func (r *Repository[T]) FindOneAndUpdate(ctx context.Context, filter repository.Filter, update repository.Update, opts repository.FindOneAndUpdateOptions) (T, bool, error) {
	var zero T
	if update.IsEmpty() {
		return zero, false, repository.ErrNoChanges
	}
	fields := update.Fields()
	r.store.reads.Add(1)

	r.store.mu.Lock()
	docs := r.matchLocked(filter)
	if len(docs) == 0 {
		if !opts.Upsert {
			r.store.mu.Unlock()
			return zero, false, nil
		}
		doc := r.upsertDocLocked(filter, fields)
		r.store.mu.Unlock()
		r.emitDoc(repository.ChangeAdd, doc)
		ent, err := fromDoc(r.handlers, doc, nil)
		if err != nil {
			return zero, false, &repository.StoreOperationError{Op: "findOneAndUpdate", Err: err}
		}
		return ent, true, nil
	}

	doc := docs[0]
	before := make(document, len(doc))
	for k, v := range doc {
		before[k] = v
	}
	applyFields(doc, fields)
	r.store.mu.Unlock()

	r.emitDoc(repository.ChangeUpdate, doc)

	result := before
	if opts.ReturnUpdated {
		result = doc
	}
	ent, err := fromDoc(r.handlers, result, nil)
	if err != nil {
		return zero, false, &repository.StoreOperationError{Op: "findOneAndUpdate", Err: err}
	}
	return ent, true, nil
}

// matchLocked returns matching documents in id order. Callers hold the store
// lock.
func (r *Repository[T]) matchLocked(filter repository.Filter) []document {
	col := r.store.collection(r.name)
	ids := make([]string, 0, len(col))
	for id := range col {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []document
	for _, id := range ids {
		if matches(col[id], filter) {
			docs = append(docs, col[id])
		}
	}
	return docs
}

// upsertDocLocked builds and inserts a document from filter equality fields
// plus the update fields. Callers hold the store lock.
func (r *Repository[T]) upsertDocLocked(filter repository.Filter, fields map[string]any) document {
	doc := make(document, len(filter)+len(fields)+1)
	for k, v := range filter {
		if v != nil {
			doc[k] = v
		}
	}
	applyFields(doc, fields)
	id, _ := doc[repository.IDField].(string)
	if id == "" {
		id = uuid.NewString()
		doc[repository.IDField] = id
	}
	r.store.collection(r.name)[id] = doc
	return doc
}

func applyFields(doc document, fields map[string]any) {
	for k, v := range fields {
		doc[k] = v
	}
}

func (r *Repository[T]) emitDoc(kind repository.ChangeKind, doc document) {
	ent, err := fromDoc(r.handlers, doc, nil)
	if err != nil {
		return
	}
	r.emitter.Emit(kind, ent)
}
