// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/papertrail/internal/metrics"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// DialTimeout bounds connection setup. Default: 2s.
	DialTimeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the
	// breaker. Default: 5.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 30s.
	OpenTimeout time.Duration

	// ScanCount is the COUNT hint for prefix scans. Default: 200.
	ScanCount int64
}

// RedisStore is a Store backed by Redis. All commands run through a circuit
// breaker; while it is open calls fail fast with gobreaker.ErrOpenState.
type RedisStore struct {
	client    *redis.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	scanCount int64
}

// NewRedisStore creates a store. It does not connect until first use.
func NewRedisStore(opts RedisOptions) *RedisStore {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 2 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.ScanCount <= 0 {
		opts.ScanCount = 200
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		MaxRetries:  -1,
	})

	threshold := opts.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
		},
	})

	return &RedisStore{client: client, breaker: breaker, scanCount: opts.ScanCount}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.client.Ping(ctx).Err()
	})
	return err
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.breaker.Execute(func() ([]byte, error) {
		return s.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	_, err := s.breaker.Execute(func() ([]byte, error) {
		return nil, s.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

// DeletePrefix implements Store using SCAN, so it never blocks the server
// the way KEYS would.
func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := escapeGlob(prefix) + "*"
	removed := 0
	_, err := s.breaker.Execute(func() ([]byte, error) {
		var cursor uint64
		for {
			keys, next, err := s.client.Scan(ctx, cursor, pattern, s.scanCount).Result()
			if err != nil {
				return nil, err
			}
			if len(keys) > 0 {
				n, err := s.client.Del(ctx, keys...).Result()
				if err != nil {
					return nil, err
				}
				removed += int(n)
			}
			cursor = next
			if cursor == 0 {
				return nil, nil
			}
		}
	})
	return removed, err
}

// escapeGlob escapes Redis MATCH metacharacters.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BreakerState returns the circuit breaker state.
func (s *RedisStore) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// Backend implements Store.
func (s *RedisStore) Backend() string { return BackendRedis }

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
