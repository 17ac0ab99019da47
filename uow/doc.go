// Package uow implements the unit-of-work pattern over a document store.
//
// # Overview
//
// A UnitOfWork bounds a scope of repository operations that share one
// transaction. Repositories are constructed through a pluggable
// RepositoryFactory and memoized per (name, transactional) pair, and every
// transactional repository obtained from one unit shares exactly one
// session, so writes across multiple named repositories commit or roll back
// together.
//
// # Lifecycle
//
// A unit moves through Idle → SessionActive → (Committed | RolledBack) →
// Disposed. The session is opened lazily on the first transactional
// repository request and its transaction is started exactly once. Commit and
// Rollback are deliberate no-ops when no transaction is active, so calling
// code keeps a single code path whether or not transactions are enabled:
//
//	unit := uow.New(store, factory)
//	defer unit.Dispose(ctx)
//
//	users, err := uow.Get[repository.Repository[*User]](ctx, unit, "users")
//	if err != nil {
//		return err
//	}
//	if _, err := users.Add(ctx, u); err != nil {
//		return err
//	}
//	return unit.Commit(ctx)
//
// Dispose clears the registry, performs an implicit rollback when a
// transaction is still open, and ends the session. A failure ending the
// session surfaces as a SessionLifecycleError rather than being swallowed.
//
// # Concurrency
//
// A UnitOfWork serializes nothing itself and is not safe for concurrent use
// by multiple goroutines. Isolation across concurrent processes is delegated
// entirely to the underlying store's transaction guarantees. Dispose does
// not cancel in-flight store operations; an abandoned call still runs to
// completion inside the store.
package uow
