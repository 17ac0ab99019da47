package uow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrDisposed is returned when a repository is requested from a unit of work
// that has already been disposed.
var ErrDisposed = errors.New("unit of work already disposed")

// SessionLifecycleError reports a failure while ending a session during
// Dispose. It is never swallowed; the caller decides what to do with it.
type SessionLifecycleError struct {
	Err error
}

// Error implements the error interface.
func (e *SessionLifecycleError) Error() string {
	return fmt.Sprintf("ending session: %v", e.Err)
}

// Unwrap exposes the underlying session error.
func (e *SessionLifecycleError) Unwrap() error {
	return e.Err
}

type registryKey struct {
	name          string
	transactional bool
}

// UnitOfWork scopes repository operations that share one transaction. It
// lazily opens a single session on the first transactional repository
// request and memoizes every repository it constructs, so all transactional
// repositories obtained from one unit write atomically together.
//
// A UnitOfWork is not safe for concurrent use by multiple goroutines; it is
// meant to live for one logical scope of work.
type UnitOfWork struct {
	store           Store
	factory         RepositoryFactory
	useTransactions bool
	log             *zap.Logger

	sess     Session
	registry map[registryKey]any
	disposed bool
}

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithDefaultTransactions sets whether GetRepository requests a transactional
// repository when the caller does not say otherwise. Defaults to true.
func WithDefaultTransactions(enabled bool) Option {
	return func(u *UnitOfWork) {
		u.useTransactions = enabled
	}
}

// WithLogger attaches a logger for lifecycle transitions. Defaults to a nop
// logger.
func WithLogger(log *zap.Logger) Option {
	return func(u *UnitOfWork) {
		if log != nil {
			u.log = log
		}
	}
}

// New creates a UnitOfWork over the given store and repository factory.
func New(store Store, factory RepositoryFactory, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		store:           store,
		factory:         factory,
		useTransactions: true,
		log:             zap.NewNop(),
		registry:        make(map[registryKey]any),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RepositoryOption configures a single GetRepository call.
type RepositoryOption func(*repositoryRequest)

type repositoryRequest struct {
	transactional bool
}

// WithTransaction overrides the unit's default transaction mode for one
// GetRepository call.
func WithTransaction(enabled bool) RepositoryOption {
	return func(r *repositoryRequest) {
		r.transactional = enabled
	}
}

// GetRepository returns the repository for name, memoized per (name, mode)
// pair. The first transactional request lazily opens the shared session and
// starts its transaction; subsequent transactional requests reuse both.
func (u *UnitOfWork) GetRepository(ctx context.Context, name string, opts ...RepositoryOption) (any, error) {
	if u.disposed {
		return nil, ErrDisposed
	}

	req := repositoryRequest{transactional: u.useTransactions}
	for _, opt := range opts {
		opt(&req)
	}

	key := registryKey{name: name, transactional: req.transactional}
	if repo, ok := u.registry[key]; ok {
		return repo, nil
	}

	var sess Session
	if req.transactional {
		s, err := u.session(ctx)
		if err != nil {
			return nil, err
		}
		sess = s
	}

	repo, err := u.factory(ctx, name, u.store, sess)
	if err != nil {
		return nil, fmt.Errorf("constructing repository %q: %w", name, err)
	}

	u.registry[key] = repo
	u.log.Debug("repository constructed",
		zap.String("name", name),
		zap.Bool("transactional", req.transactional))
	return repo, nil
}

// session returns the shared session, opening it and starting its
// transaction on first use.
func (u *UnitOfWork) session(ctx context.Context) (Session, error) {
	if u.sess != nil {
		return u.sess, nil
	}

	sess, err := u.store.StartSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	if err := sess.StartTransaction(ctx); err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	u.sess = sess
	u.log.Debug("session opened", zap.String("session", sess.ID()))
	return sess, nil
}

// Commit commits the active transaction. Without a session, or with a
// session whose transaction already concluded, it is a no-op, so callers can
// use the same code path whether or not transactions are enabled.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.sess == nil || !u.sess.InTransaction() {
		return nil
	}
	if err := u.sess.CommitTransaction(ctx); err != nil {
		return err
	}
	u.log.Debug("transaction committed", zap.String("session", u.sess.ID()))
	return nil
}

// Rollback aborts the active transaction, with the same no-op contract as
// Commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.sess == nil || !u.sess.InTransaction() {
		return nil
	}
	if err := u.sess.AbortTransaction(ctx); err != nil {
		return err
	}
	u.log.Debug("transaction rolled back", zap.String("session", u.sess.ID()))
	return nil
}

// Dispose clears the repository registry, rolls back a still-open
// transaction and ends the session. Safe to call after Commit or Rollback
// already ran; ending the session is still required then and an end failure
// is still reported. Dispose does not cancel in-flight store operations.
func (u *UnitOfWork) Dispose(ctx context.Context) error {
	u.registry = make(map[registryKey]any)
	u.disposed = true

	if u.sess == nil {
		return nil
	}
	sess := u.sess
	u.sess = nil

	var abortErr error
	if sess.InTransaction() {
		abortErr = sess.AbortTransaction(ctx)
		if abortErr == nil {
			u.log.Debug("implicit rollback on dispose", zap.String("session", sess.ID()))
		}
	}

	if err := sess.EndSession(ctx); err != nil {
		return errors.Join(abortErr, &SessionLifecycleError{Err: err})
	}
	u.log.Debug("session ended", zap.String("session", sess.ID()))
	return abortErr
}
