// Package di wires the cache backend, key serializer and decorators
// together for consumers that want the default setup without assembling the
// pieces by hand.
package di

import (
	"github.com/goliatone/go-repository-uow/cache"
	"github.com/goliatone/go-repository-uow/internal/cacheinfra"
	"github.com/goliatone/go-repository-uow/repository"
	"github.com/goliatone/go-repository-uow/repositorycache"
)

// Container manages singleton instances of the cache backend and key
// serializer and provides factory helpers for cached repositories.
type Container struct {
	backend cache.Backend
	keys    cache.KeySerializer
	config  cache.Config
}

// Option configures a Container.
type Option func(*Container)

// WithBackend swaps in a custom backend, such as the replicated one from
// internal/redisinfra, instead of the default node-local backend.
func WithBackend(backend cache.Backend) Option {
	return func(c *Container) {
		if backend != nil {
			c.backend = backend
		}
	}
}

// NewContainer creates a container from the given cache configuration. By
// default it uses the node-local backend and the default key serializer.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	c := &Container{
		keys:   cache.NewDefaultKeySerializer(),
		config: config,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.backend == nil {
		backend, err := cacheinfra.NewLocal(config)
		if err != nil {
			return nil, err
		}
		c.backend = backend
	}
	return c, nil
}

// NewContainerWithDefaults creates a container using default configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// Backend returns the singleton cache backend.
func (c *Container) Backend() cache.Backend {
	return c.backend
}

// KeySerializer returns the singleton key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keys
}

// Config returns a copy of the cache configuration.
func (c *Container) Config() cache.Config {
	return c.config
}

// NewCachedRepository wraps base with the container's backend and
// serializer.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function.
func NewCachedRepository[T any](c *Container, base repository.Repository[T]) *repositorycache.CachedRepository[T] {
	return repositorycache.New(base, c.backend, c.keys)
}
