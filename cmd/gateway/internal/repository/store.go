package repository

import (
	"context"

	"github.com/shubham-shewale/stock-ticker/pkg/models"
)

// PriceStore mirrors the price table for gateways that do not tick themselves.
type PriceStore interface {
	PublishTick(ctx context.Context, snap models.Snapshot) error
	Snapshot(ctx context.Context) (models.Snapshot, error)
	RunPubSub(ctx context.Context, onSnapshot func(ctx context.Context, snap models.Snapshot))
	Close() error
}

type RateLimiter interface {
	Allow(key string) (bool, error)
	Forget(key string)
}
