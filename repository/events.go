package repository

import "sync"

// ChangeKind identifies the mutation a change event reports.
type ChangeKind uint8

const (
	ChangeAdd ChangeKind = iota + 1
	ChangeUpdate
	ChangeDelete
)

// String returns the lowercase event name.
func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	}
	return "unknown"
}

// ChangeEvent is emitted by a repository after a successful mutation. Events
// are delivered synchronously to in-process subscribers; they are not
// persisted or replayed.
type ChangeEvent[T any] struct {
	Kind   ChangeKind
	Entity T
}

// ChangeListener receives change events.
type ChangeListener[T any] func(ChangeEvent[T])

// Emitter is a per-repository subscriber list. Each repository instance owns
// its emitter; subscriptions are scoped to that instance's lifetime.
type Emitter[T any] struct {
	mu   sync.Mutex
	seq  int
	subs map[int]ChangeListener[T]
}

// Subscribe registers a listener and returns a cancel func that removes it.
func (e *Emitter[T]) Subscribe(fn ChangeListener[T]) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.subs == nil {
		e.subs = make(map[int]ChangeListener[T])
	}
	id := e.seq
	e.seq++
	e.subs[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// Emit delivers an event to every current subscriber.
func (e *Emitter[T]) Emit(kind ChangeKind, entity T) {
	e.mu.Lock()
	listeners := make([]ChangeListener[T], 0, len(e.subs))
	for _, fn := range e.subs {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	ev := ChangeEvent[T]{Kind: kind, Entity: entity}
	for _, fn := range listeners {
		fn(ev)
	}
}
