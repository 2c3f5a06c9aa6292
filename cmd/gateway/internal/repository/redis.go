package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

const (
	snapshotKey    = "ticker:snapshot"
	updatesChannel = "ticker.updates"
)

// Compile-time check to ensure RedisStore implements PriceStore
var _ PriceStore = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// PublishTick stores the snapshot and announces it in a single pipeline.
func (r *RedisStore) PublishTick(ctx context.Context, snap models.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, snapshotKey, payload, r.ttl)
	pipe.Publish(ctx, updatesChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}
	return nil
}

// Snapshot returns the last published table, or an empty one if none exists yet.
func (r *RedisStore) Snapshot(ctx context.Context) (models.Snapshot, error) {
	val, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// RunPubSub is a blocking loop that decodes published snapshots and triggers the callback
func (r *RedisStore) RunPubSub(ctx context.Context, onSnapshot func(ctx context.Context, snap models.Snapshot)) {
	ps := r.client.Subscribe(ctx, updatesChannel)
	defer ps.Close()

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var snap models.Snapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				r.logger.Warn("Dropping malformed snapshot", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			onSnapshot(ctx, snap)
		}
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
