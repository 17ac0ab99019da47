package uow

import "context"

// Store is the opaque handle to the underlying document store. The unit of
// work only needs it to open sessions; repository factories receive it to
// bind concrete repositories.
type Store interface {
	// StartSession opens a new transaction-capable session.
	StartSession(ctx context.Context) (Session, error)
}

// Session is a store-level transaction context. A session is owned
// exclusively by one UnitOfWork and shared by reference with every
// transactional repository that unit constructs. It is ended exactly once,
// during Dispose.
type Session interface {
	// ID identifies the session for logging and debugging.
	ID() string
	// StartTransaction begins a transaction on the session.
	StartTransaction(ctx context.Context) error
	// InTransaction reports whether a transaction is currently active.
	InTransaction() bool
	// CommitTransaction commits the active transaction.
	CommitTransaction(ctx context.Context) error
	// AbortTransaction rolls back the active transaction.
	AbortTransaction(ctx context.Context) error
	// EndSession releases the session. Ending an already-concluded session
	// is still required and failures are still reported.
	EndSession(ctx context.Context) error
}

// RepositoryFactory constructs a concrete repository bound to a named
// collection and, when non-nil, a session. It must not retain hidden state
// shared across invocations for different names; the unit of work treats the
// returned value as opaque so cached, audited or access-controlled variants
// can be swapped in without touching unit-of-work logic.
type RepositoryFactory func(ctx context.Context, name string, store Store, sess Session) (any, error)
