// Package memrepo provides an in-memory document store with sessions and a
// base repository implementation. It backs the module's tests and examples
// and serves as the reference behaviour for the store-facing contracts.
package memrepo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/goliatone/go-repository-uow/uow"
)

type document = map[string]any

// Store is an in-memory document store. Collections are created on first
// use. Transactions take a snapshot of the whole store on start and restore
// it on abort, which is enough to exercise unit-of-work semantics in a
// single process.
type Store struct {
	mu    sync.RWMutex
	cols  map[string]map[string]document
	reads atomic.Int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{cols: make(map[string]map[string]document)}
}

// Reads returns how many read operations hit the store, so tests can assert
// that cached reads skip the round-trip.
func (s *Store) Reads() int64 {
	return s.reads.Load()
}

// ResetReads zeroes the read counter.
func (s *Store) ResetReads() {
	s.reads.Store(0)
}

// StartSession implements uow.Store.
func (s *Store) StartSession(_ context.Context) (uow.Session, error) {
	return &session{id: uuid.NewString(), store: s}, nil
}

func (s *Store) collection(name string) map[string]document {
	if col, ok := s.cols[name]; ok {
		return col
	}
	col := make(map[string]document)
	s.cols[name] = col
	return col
}

func (s *Store) snapshot() map[string]map[string]document {
	snap := make(map[string]map[string]document, len(s.cols))
	for name, col := range s.cols {
		c := make(map[string]document, len(col))
		for id, doc := range col {
			d := make(document, len(doc))
			for k, v := range doc {
				d[k] = v
			}
			c[id] = d
		}
		snap[name] = c
	}
	return snap
}

func (s *Store) restore(snap map[string]map[string]document) {
	s.cols = snap
}

// session is a Store-backed uow.Session with snapshot/rollback semantics.
type session struct {
	id    string
	store *Store
	inTx  bool
	ended bool
	snap  map[string]map[string]document
}

var _ uow.Session = (*session)(nil)

func (t *session) ID() string { return t.id }

func (t *session) StartTransaction(_ context.Context) error {
	if t.ended {
		return errors.New("session already ended")
	}
	if t.inTx {
		return errors.New("transaction already active")
	}
	t.store.mu.Lock()
	t.snap = t.store.snapshot()
	t.store.mu.Unlock()
	t.inTx = true
	return nil
}

func (t *session) InTransaction() bool {
	return t.inTx
}

func (t *session) CommitTransaction(_ context.Context) error {
	if !t.inTx {
		return errors.New("no active transaction")
	}
	t.inTx = false
	t.snap = nil
	return nil
}

func (t *session) AbortTransaction(_ context.Context) error {
	if !t.inTx {
		return errors.New("no active transaction")
	}
	t.store.mu.Lock()
	t.store.restore(t.snap)
	t.store.mu.Unlock()
	t.inTx = false
	t.snap = nil
	return nil
}

func (t *session) EndSession(_ context.Context) error {
	if t.ended {
		return errors.New("session already ended")
	}
	if t.inTx {
		return errors.New("ending session with active transaction")
	}
	t.ended = true
	return nil
}
