// Package redisinfra layers replicated eviction over a node-local
// cache.Backend. Entity storage stays node-local; only dispose/reset events
// travel between peers, over a redis pub/sub channel.
package redisinfra

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-repository-uow/cache"
)

// Config configures the redis connection backing the eviction channel.
type Config struct {
	// Addr is the redis host:port.
	Addr string
	// Channel is the pub/sub channel eviction events travel on.
	Channel string
	// DialTimeout bounds the initial connection attempt.
	DialTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults for everything but
// the address.
func DefaultConfig() Config {
	return Config{
		Channel:     "repo-cache-eviction",
		DialTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.Channel, validation.Required),
	)
}

// evictionEvent is the wire form of a peer eviction.
type evictionEvent struct {
	Origin string `msgpack:"o"`
	Kind   uint8  `msgpack:"k"`
	Key    string `msgpack:"key,omitempty"`
}

// publisher is the slice of the redis client the backend publishes through.
// Narrowed to an interface so tests can observe publications without a
// server.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *goredis.IntCmd
}

var _ cache.Backend = (*Replicated)(nil)

// Replicated wraps a local backend and fans non-localOnly invalidations out
// to peer nodes. Applying a peer event uses localOnly=true so evictions
// never echo back and forth between nodes.
type Replicated struct {
	local   cache.Backend
	rdb     *goredis.Client
	pub     publisher
	channel string
	nodeID  string
	log     *zap.Logger
}

// New connects to redis and wraps local with replicated eviction. Call
// Start to begin applying peer events, and Close when done.
func New(local cache.Backend, cfg Config, log *zap.Logger) (*Replicated, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	r := newWithPublisher(local, rdb, cfg.Channel, log)
	r.rdb = rdb
	return r, nil
}

func newWithPublisher(local cache.Backend, pub publisher, channel string, log *zap.Logger) *Replicated {
	return &Replicated{
		local:   local,
		pub:     pub,
		channel: channel,
		nodeID:  uuid.NewString(),
		log:     log,
	}
}

// Start subscribes to the eviction channel and applies peer events until ctx
// is cancelled.
func (r *Replicated) Start(ctx context.Context) error {
	if r.rdb == nil {
		return fmt.Errorf("replicated backend has no redis connection")
	}

	sub := r.rdb.Subscribe(ctx, r.channel)
	// ensures the subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				r.applyPeer(ctx, []byte(m.Payload))
			}
		}
	}()
	return nil
}

// Close releases the redis connection.
func (r *Replicated) Close() error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Close()
}

// Get implements cache.Backend.
func (r *Replicated) Get(ctx context.Context, key string) (any, bool) {
	return r.local.Get(ctx, key)
}

// Set implements cache.Backend.
func (r *Replicated) Set(ctx context.Context, key string, value any) {
	r.local.Set(ctx, key, value)
}

// GetQuery implements cache.Backend.
func (r *Replicated) GetQuery(ctx context.Context, queryKey string) ([]cache.QueryEntry, bool) {
	return r.local.GetQuery(ctx, queryKey)
}

// SetQuery implements cache.Backend.
func (r *Replicated) SetQuery(ctx context.Context, queryKey string, entries []cache.QueryEntry) {
	r.local.SetQuery(ctx, queryKey, entries)
}

// InvalidateKey drops the key locally and, unless localOnly, publishes a
// dispose event so every peer drops it too.
func (r *Replicated) InvalidateKey(ctx context.Context, key string, localOnly bool) error {
	if err := r.local.InvalidateKey(ctx, key, true); err != nil {
		return err
	}
	if localOnly {
		return nil
	}
	return r.publish(ctx, evictionEvent{Origin: r.nodeID, Kind: uint8(cache.EventDispose), Key: key})
}

// InvalidateAll drops everything locally and, unless localOnly, publishes a
// reset event.
func (r *Replicated) InvalidateAll(ctx context.Context, localOnly bool) error {
	if err := r.local.InvalidateAll(ctx, true); err != nil {
		return err
	}
	if localOnly {
		return nil
	}
	return r.publish(ctx, evictionEvent{Origin: r.nodeID, Kind: uint8(cache.EventReset)})
}

// OnEviction implements cache.Backend. Listeners observe local and
// peer-applied evictions alike, since both land on the local tier.
func (r *Replicated) OnEviction(fn func(cache.Event)) func() {
	return r.local.OnEviction(fn)
}

func (r *Replicated) publish(ctx context.Context, ev evictionEvent) error {
	payload, err := msgpack.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding eviction event: %w", err)
	}
	if err := r.pub.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing eviction event: %w", err)
	}
	return nil
}

func (r *Replicated) applyPeer(ctx context.Context, payload []byte) {
	var ev evictionEvent
	if err := msgpack.Unmarshal(payload, &ev); err != nil {
		r.log.Warn("bad eviction payload", zap.Error(err))
		return
	}
	if ev.Origin == r.nodeID {
		return
	}

	switch cache.EventKind(ev.Kind) {
	case cache.EventDispose:
		if err := r.local.InvalidateKey(ctx, ev.Key, true); err != nil {
			r.log.Warn("applying peer dispose", zap.String("key", ev.Key), zap.Error(err))
		}
	case cache.EventReset:
		if err := r.local.InvalidateAll(ctx, true); err != nil {
			r.log.Warn("applying peer reset", zap.Error(err))
		}
	default:
		r.log.Warn("unknown eviction kind", zap.Uint8("kind", ev.Kind))
	}
}
