package memrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-repository-uow/pkg/testsupport"
	"github.com/goliatone/go-repository-uow/repository"
)

type User struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
	Age  int    `json:"age,omitempty"`
}

func userHandlers() repository.Handlers[*User] {
	return repository.Handlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID:     func(u *User) string { return u.ID },
		SetID:     func(u *User, id string) { u.ID = id },
	}
}

func seededRepo(t *testing.T) (*Store, *Repository[*User]) {
	t.Helper()

	var users []*User
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("users.json"), &users)

	store := NewStore()
	repo := New(store, "users", userHandlers(), nil)
	if _, err := repo.AddMany(context.Background(), users, true); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	store.ResetReads()
	return store, repo
}

func TestAdd_GeneratesIDWhenMissing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := New(store, "users", userHandlers(), nil)

	created, err := repo.Add(ctx, &User{Name: "ana"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("no id generated")
	}

	ent, found, err := repo.FindByID(ctx, created.ID, nil)
	if err != nil || !found || ent.Name != "ana" {
		t.Fatalf("FindByID after Add: found=%v err=%v ent=%+v", found, err, ent)
	}
}

func TestAdd_DuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	_, err := repo.Add(ctx, &User{ID: "u1", Name: "copy"})
	var soe *repository.StoreOperationError
	if !errors.As(err, &soe) {
		t.Fatalf("expected StoreOperationError, got %v", err)
	}
}

func TestAddMany_UnorderedReturnsSubsetOnIdentifiableFailure(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := New(store, "users", userHandlers(), nil)
	if _, err := repo.Add(ctx, &User{ID: "19", Name: "existing"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var added []string
	cancel := repo.Subscribe(func(ev repository.ChangeEvent[*User]) {
		if ev.Kind == repository.ChangeAdd {
			added = append(added, ev.Entity.ID)
		}
	})
	defer cancel()

	created, err := repo.AddMany(ctx, []*User{{ID: "19"}, {ID: "20"}}, false)
	if err != nil {
		t.Fatalf("AddMany: %v", err)
	}
	if len(created) != 1 || created[0].ID != "20" {
		t.Fatalf("expected exactly the inserted subset, got %+v", created)
	}
	if len(added) != 1 || added[0] != "20" {
		t.Fatalf("add events fired for %v, want [20]", added)
	}
}

func TestAddMany_OrderedStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := New(store, "users", userHandlers(), nil)
	if _, err := repo.Add(ctx, &User{ID: "b"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	created, err := repo.AddMany(ctx, []*User{{ID: "a"}, {ID: "b"}, {ID: "c"}}, true)
	if err != nil {
		t.Fatalf("AddMany: %v", err)
	}
	if len(created) != 1 || created[0].ID != "a" {
		t.Fatalf("ordered insert did not stop at the failure: %+v", created)
	}
	if _, found, _ := repo.FindByID(ctx, "c", nil); found {
		t.Fatalf("item after the failure was inserted in ordered mode")
	}
}

func TestFindOne_MatchesAndReportsAbsence(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	ent, found, err := repo.FindOne(ctx, repository.Filter{"role": "admin"}, nil)
	if err != nil || !found || ent.ID != "u1" {
		t.Fatalf("FindOne: found=%v err=%v ent=%+v", found, err, ent)
	}

	_, found, err = repo.FindOne(ctx, repository.Filter{"role": "ghost"}, nil)
	if err != nil || found {
		t.Fatalf("absence must be (zero, false, nil), got found=%v err=%v", found, err)
	}
}

func TestFindMany_ProjectionKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	items, err := repo.FindMany(ctx, repository.Filter{"role": "member"}, repository.Projection{"name"})
	if err != nil || len(items) != 2 {
		t.Fatalf("FindMany: err=%v len=%d", err, len(items))
	}
	for _, u := range items {
		if u.ID == "" {
			t.Fatalf("projection dropped the id: %+v", u)
		}
		if u.Role != "" || u.Age != 0 {
			t.Fatalf("projection leaked fields: %+v", u)
		}
	}
}

func TestFindManyPage_SortOffsetLimit(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	page, err := repo.FindManyPage(ctx, repository.Filter{},
		repository.Paging{SortBy: "name", Offset: 1, Limit: 1}, nil)
	if err != nil {
		t.Fatalf("FindManyPage: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("total = %d, want 3", page.Total)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "joe" {
		t.Fatalf("unexpected page: %+v", page.Items)
	}
}

func TestPatch_EmptyUpdateIsValidationError(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	err := repo.Patch(ctx, repository.Filter{"id": "u1"}, repository.Update{}, false)
	if !errors.Is(err, repository.ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
	err = repo.Patch(ctx, repository.Filter{"id": "u1"}, repository.Update{"$set": map[string]any{}}, false)
	if !errors.Is(err, repository.ErrNoChanges) {
		t.Fatalf("empty $set accepted: %v", err)
	}
}

func TestPatch_AppliesSetClauseAndEmitsUpdate(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	var updated []string
	cancel := repo.Subscribe(func(ev repository.ChangeEvent[*User]) {
		if ev.Kind == repository.ChangeUpdate {
			updated = append(updated, ev.Entity.ID)
		}
	})
	defer cancel()

	err := repo.Patch(ctx, repository.Filter{"id": "u2"}, repository.Update{"$set": map[string]any{"name": "joseph"}}, false)
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}

	ent, _, _ := repo.FindByID(ctx, "u2", nil)
	if ent.Name != "joseph" {
		t.Fatalf("patch not applied: %+v", ent)
	}
	if len(updated) != 1 || updated[0] != "u2" {
		t.Fatalf("update events: %v", updated)
	}
}

func TestPatch_UpsertInsertsAndEmitsAdd(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	var kinds []repository.ChangeKind
	cancel := repo.Subscribe(func(ev repository.ChangeEvent[*User]) {
		kinds = append(kinds, ev.Kind)
	})
	defer cancel()

	err := repo.Patch(ctx, repository.Filter{"id": "u9"}, repository.Update{"name": "new"}, true)
	if err != nil {
		t.Fatalf("Patch upsert: %v", err)
	}
	ent, found, _ := repo.FindByID(ctx, "u9", nil)
	if !found || ent.Name != "new" {
		t.Fatalf("upserted document missing: %+v", ent)
	}
	if len(kinds) != 1 || kinds[0] != repository.ChangeAdd {
		t.Fatalf("expected one add event, got %v", kinds)
	}
}

func TestDeleteOne_NoMatchIsNoop(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	if err := repo.DeleteOne(ctx, repository.Filter{"id": "ghost"}); err != nil {
		t.Fatalf("DeleteOne on absent doc: %v", err)
	}
}

func TestDeleteMany_CountsAndEmits(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	var deleted int
	cancel := repo.Subscribe(func(ev repository.ChangeEvent[*User]) {
		if ev.Kind == repository.ChangeDelete {
			deleted++
		}
	})
	defer cancel()

	n, err := repo.DeleteMany(ctx, repository.Filter{"role": "member"})
	if err != nil || n != 2 {
		t.Fatalf("DeleteMany: n=%d err=%v", n, err)
	}
	if deleted != 2 {
		t.Fatalf("delete events: %d", deleted)
	}
}

func TestUpdate_ManyAppliesToAllMatches(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	res, err := repo.Update(ctx, repository.Filter{"role": "member"},
		repository.Update{"$set": map[string]any{"role": "alumni"}},
		repository.UpdateOptions{Many: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.ModifiedCount != 2 {
		t.Fatalf("modified %d, want 2", res.ModifiedCount)
	}

	items, _ := repo.FindMany(ctx, repository.Filter{"role": "alumni"}, nil)
	if len(items) != 2 {
		t.Fatalf("updates not applied: %+v", items)
	}
}

func TestUpdate_UpsertReportsUpsertedID(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	res, err := repo.Update(ctx, repository.Filter{"id": "u8"},
		repository.Update{"name": "late"},
		repository.UpdateOptions{Upsert: true})
	if err != nil {
		t.Fatalf("Update upsert: %v", err)
	}
	if res.UpsertedID != "u8" {
		t.Fatalf("upserted id = %q", res.UpsertedID)
	}
}

func TestFindOneAndUpdate_PreAndPostDocuments(t *testing.T) {
	ctx := context.Background()
	_, repo := seededRepo(t)

	pre, found, err := repo.FindOneAndUpdate(ctx, repository.Filter{"id": "u1"},
		repository.Update{"$set": map[string]any{"name": "anya"}},
		repository.FindOneAndUpdateOptions{})
	if err != nil || !found {
		t.Fatalf("FindOneAndUpdate: found=%v err=%v", found, err)
	}
	if pre.Name != "ana" {
		t.Fatalf("expected pre-update document, got %+v", pre)
	}

	post, found, err := repo.FindOneAndUpdate(ctx, repository.Filter{"id": "u1"},
		repository.Update{"$set": map[string]any{"name": "anna"}},
		repository.FindOneAndUpdateOptions{ReturnUpdated: true})
	if err != nil || !found {
		t.Fatalf("second FindOneAndUpdate: found=%v err=%v", found, err)
	}
	if post.Name != "anna" {
		t.Fatalf("expected post-update document, got %+v", post)
	}
}

func TestReadCounter_TracksStoreReads(t *testing.T) {
	ctx := context.Background()
	store, repo := seededRepo(t)

	if _, _, err := repo.FindByID(ctx, "u1", nil); err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if _, err := repo.FindMany(ctx, repository.Filter{}, nil); err != nil {
		t.Fatalf("FindMany: %v", err)
	}
	if got := store.Reads(); got != 2 {
		t.Fatalf("read counter = %d, want 2", got)
	}
}
