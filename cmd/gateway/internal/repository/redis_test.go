package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

func newStore(t *testing.T) (*repository.RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := repository.NewRedisStore(rdb, time.Minute, zap.NewNop())
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisStore_SnapshotEmpty(t *testing.T) {
	store, _ := newStore(t)

	snap, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(snap) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", snap)
	}
}

func TestRedisStore_PublishTickMirrorsSnapshot(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	want := models.Snapshot{{Symbol: "AAPL", Price: 175.5}, {Symbol: "TSLA", Price: 265.8}}

	if err := store.PublishTick(ctx, want); err != nil {
		t.Fatalf("PublishTick failed: %v", err)
	}

	got, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if ttl := mr.TTL("ticker:snapshot"); ttl != time.Minute {
		t.Errorf("Expected TTL of 1m, got %v", ttl)
	}
}

func TestRedisStore_SnapshotCorrupt(t *testing.T) {
	store, mr := newStore(t)
	mr.Set("ticker:snapshot", "{not json")

	if _, err := store.Snapshot(context.Background()); err == nil {
		t.Error("Expected decode error for corrupt snapshot")
	}
}

func TestRedisStore_RunPubSub(t *testing.T) {
	store, mr := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan models.Snapshot, 4)
	done := make(chan struct{})
	go func() {
		store.RunPubSub(ctx, func(_ context.Context, snap models.Snapshot) {
			received <- snap
		})
		close(done)
	}()

	// Wait for the subscription to land before publishing for real
	deadline := time.Now().Add(2 * time.Second)
	for mr.Publish("ticker.updates", "garbage") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscriber never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
	mr.Publish("ticker.updates", `[{"symbol":"AAPL","price":150.5}]`)

	select {
	case snap := <-received:
		if len(snap) != 1 || snap[0].Price != 150.5 {
			t.Errorf("Unexpected snapshot: %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Snapshot never delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunPubSub did not return after cancel")
	}
}
