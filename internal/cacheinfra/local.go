// Package cacheinfra provides the node-local cache.Backend implementation
// backed by a sturdyc client. Both indices live in one client under key
// prefixes, so capacity and TTL tuning apply to the cache as a whole.
package cacheinfra

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"

	"github.com/goliatone/go-repository-uow/cache"
)

const (
	idPrefix    = "id" + cache.KeySeparator
	queryPrefix = "q" + cache.KeySeparator
)

var _ cache.Backend = (*Local)(nil)

// Local is an in-process cache backend. It has no peers, so the localOnly
// flag does not change its behaviour; eviction events still fire so a
// replicating tier can layer on top.
type Local struct {
	client    *sturdyc.Client[any]
	listeners *xsync.MapOf[int64, func(cache.Event)]
	seq       atomic.Int64
}

// NewLocal creates a Local backend from the given configuration.
func NewLocal(cfg cache.Config) (*Local, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
	)

	return &Local{
		client:    client,
		listeners: xsync.NewMapOf[int64, func(cache.Event)](),
	}, nil
}

// Get implements cache.Backend.
func (l *Local) Get(_ context.Context, key string) (any, bool) {
	return l.client.Get(idPrefix + key)
}

// Set implements cache.Backend.
func (l *Local) Set(_ context.Context, key string, value any) {
	l.client.Set(idPrefix+key, value)
}

// GetQuery implements cache.Backend.
func (l *Local) GetQuery(_ context.Context, queryKey string) ([]cache.QueryEntry, bool) {
	v, ok := l.client.Get(queryPrefix + queryKey)
	if !ok {
		return nil, false
	}
	entries, ok := v.([]cache.QueryEntry)
	return entries, ok
}

// SetQuery implements cache.Backend.
func (l *Local) SetQuery(_ context.Context, queryKey string, entries []cache.QueryEntry) {
	l.client.Set(queryPrefix+queryKey, entries)
}

// InvalidateKey implements cache.Backend.
func (l *Local) InvalidateKey(_ context.Context, key string, _ bool) error {
	l.client.Delete(idPrefix + key)
	l.emit(cache.Event{Kind: cache.EventDispose, Key: key})
	return nil
}

// InvalidateAll implements cache.Backend. It drops both indices.
func (l *Local) InvalidateAll(_ context.Context, _ bool) error {
	for _, key := range l.client.ScanKeys() {
		if strings.HasPrefix(key, idPrefix) || strings.HasPrefix(key, queryPrefix) {
			l.client.Delete(key)
		}
	}
	l.emit(cache.Event{Kind: cache.EventReset})
	return nil
}

// OnEviction implements cache.Backend.
func (l *Local) OnEviction(fn func(cache.Event)) func() {
	id := l.seq.Add(1)
	l.listeners.Store(id, fn)
	return func() {
		l.listeners.Delete(id)
	}
}

// Size returns the number of live entries, for tests and monitoring.
func (l *Local) Size() int {
	return l.client.Size()
}

func (l *Local) emit(ev cache.Event) {
	l.listeners.Range(func(_ int64, fn func(cache.Event)) bool {
		fn(ev)
		return true
	})
}
