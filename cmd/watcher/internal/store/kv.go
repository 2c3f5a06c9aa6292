// Package store persists the watcher's local state: portfolio, alerts,
// watchlist and display preferences.
package store

import (
	"context"
	"fmt"
	"sync"
)

// KV is a flat string key-value store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a KV backend.
type Options struct {
	Driver    string
	Path      string // sqlite file
	RedisAddr string
	RedisPass string
	RedisDB   int
	Prefix    string // redis key prefix
}

// Open builds the backend named by opts.Driver.
func Open(opts Options) (KV, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return NewSQLite(opts.Path)
	case DriverRedis:
		return NewRedis(opts.RedisAddr, opts.RedisPass, opts.RedisDB, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Close() error { return nil }
