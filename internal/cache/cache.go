// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Store is a TTL key-value store.
type Store interface {
	// Get returns the value for key. A missing or expired key returns
	// (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePrefix removes every key starting with prefix and returns the
	// number of keys removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Backend returns the backend name, used as a metrics label.
	Backend() string

	// Close releases resources held by the store.
	Close() error
}

// Backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Config selects and configures a Store backend.
type Config struct {
	// Backend is one of memory, redis or badger.
	Backend string

	// Capacity bounds the memory backend. Default: 10000.
	Capacity int

	// RedisAddr is the host:port of the Redis server.
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// BadgerPath is the badger data directory. Empty means in-memory.
	BadgerPath string
}

// New creates the configured backend.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg.Capacity), nil
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis backend requires an address")
		}
		return NewRedisStore(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	case BackendBadger:
		return NewBadgerStore(cfg.BadgerPath)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
