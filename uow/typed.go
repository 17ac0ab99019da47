package uow

import (
	"context"
	"fmt"
)

// Get returns the repository for name asserted to the expected type.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function:
//
//	repo, err := uow.Get[repository.Repository[*User]](ctx, unit, "users")
func Get[T any](ctx context.Context, u *UnitOfWork, name string, opts ...RepositoryOption) (T, error) {
	var zero T

	raw, err := u.GetRepository(ctx, name, opts...)
	if err != nil {
		return zero, err
	}

	repo, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("repository %q is %T, not the requested type", name, raw)
	}
	return repo, nil
}
