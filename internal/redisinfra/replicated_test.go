package redisinfra

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-repository-uow/cache"
	"github.com/goliatone/go-repository-uow/internal/cacheinfra"
)

type recordingPublisher struct {
	channel  string
	payloads [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message any) *goredis.IntCmd {
	p.channel = channel
	p.payloads = append(p.payloads, message.([]byte))
	return goredis.NewIntResult(1, nil)
}

func (p *recordingPublisher) decode(t *testing.T, i int) evictionEvent {
	t.Helper()
	var ev evictionEvent
	if err := msgpack.Unmarshal(p.payloads[i], &ev); err != nil {
		t.Fatalf("decoding payload %d: %v", i, err)
	}
	return ev
}

func newReplicated(t *testing.T) (*Replicated, *cacheinfra.Local, *recordingPublisher) {
	t.Helper()
	local, err := cacheinfra.NewLocal(cache.DefaultConfig())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	pub := &recordingPublisher{}
	return newWithPublisher(local, pub, "evictions", zap.NewNop()), local, pub
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("config without addr accepted")
	}
	cfg.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestReplicated_InvalidateKeyPublishes(t *testing.T) {
	ctx := context.Background()
	r, local, pub := newReplicated(t)

	local.Set(ctx, "user::1", "ana")
	if err := r.InvalidateKey(ctx, "user::1", false); err != nil {
		t.Fatalf("InvalidateKey: %v", err)
	}

	if _, ok := local.Get(ctx, "user::1"); ok {
		t.Fatalf("local entry survived invalidation")
	}
	if len(pub.payloads) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.payloads))
	}
	if pub.channel != "evictions" {
		t.Fatalf("published on %q", pub.channel)
	}
	ev := pub.decode(t, 0)
	if ev.Origin != r.nodeID || ev.Kind != uint8(cache.EventDispose) || ev.Key != "user::1" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestReplicated_LocalOnlySkipsPublish(t *testing.T) {
	ctx := context.Background()
	r, _, pub := newReplicated(t)

	if err := r.InvalidateKey(ctx, "user::1", true); err != nil {
		t.Fatalf("InvalidateKey: %v", err)
	}
	if err := r.InvalidateAll(ctx, true); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if len(pub.payloads) != 0 {
		t.Fatalf("localOnly invalidations published %d events", len(pub.payloads))
	}
}

func TestReplicated_InvalidateAllPublishesReset(t *testing.T) {
	ctx := context.Background()
	r, _, pub := newReplicated(t)

	if err := r.InvalidateAll(ctx, false); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	ev := pub.decode(t, 0)
	if ev.Kind != uint8(cache.EventReset) || ev.Key != "" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestReplicated_AppliesPeerDispose(t *testing.T) {
	ctx := context.Background()
	r, local, pub := newReplicated(t)

	local.Set(ctx, "user::1", "ana")

	payload, err := msgpack.Marshal(evictionEvent{
		Origin: "peer-node",
		Kind:   uint8(cache.EventDispose),
		Key:    "user::1",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r.applyPeer(ctx, payload)

	if _, ok := local.Get(ctx, "user::1"); ok {
		t.Fatalf("peer dispose not applied")
	}
	// applying a peer event must not publish again
	if len(pub.payloads) != 0 {
		t.Fatalf("peer event echoed back as %d publications", len(pub.payloads))
	}
}

func TestReplicated_SkipsOwnOrigin(t *testing.T) {
	ctx := context.Background()
	r, local, _ := newReplicated(t)

	local.Set(ctx, "user::1", "ana")

	payload, err := msgpack.Marshal(evictionEvent{
		Origin: r.nodeID,
		Kind:   uint8(cache.EventReset),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	r.applyPeer(ctx, payload)

	if _, ok := local.Get(ctx, "user::1"); !ok {
		t.Fatalf("own event applied locally twice")
	}
}

func TestReplicated_ToleratesBadPayload(t *testing.T) {
	ctx := context.Background()
	r, local, _ := newReplicated(t)

	local.Set(ctx, "user::1", "ana")
	r.applyPeer(ctx, []byte("not msgpack"))

	if _, ok := local.Get(ctx, "user::1"); !ok {
		t.Fatalf("bad payload disturbed the cache")
	}
}

func TestReplicated_ReadsAndWritesStayLocal(t *testing.T) {
	ctx := context.Background()
	r, _, pub := newReplicated(t)

	r.Set(ctx, "user::1", "ana")
	if v, ok := r.Get(ctx, "user::1"); !ok || v != "ana" {
		t.Fatalf("Get = (%v, %v)", v, ok)
	}
	r.SetQuery(ctx, "find::abc", []cache.QueryEntry{{Key: "1", Value: "ana"}})
	if got, ok := r.GetQuery(ctx, "find::abc"); !ok || len(got) != 1 {
		t.Fatalf("GetQuery = (%v, %v)", got, ok)
	}
	if len(pub.payloads) != 0 {
		t.Fatalf("reads/writes published %d events", len(pub.payloads))
	}
}
