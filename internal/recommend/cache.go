// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/papertrail/internal/cache"
	"github.com/tomtom215/papertrail/internal/metrics"
)

// Cache key namespaces, one per predictor.
const (
	CacheKindNCF  = "ncf"
	CacheKindLite = "lite"
)

// resultCache stores ranked results in a cache.Store under
//
//	reco:<kind>:user:<id>:k:<k>:<flags>
//	reco:<kind>:similar:<id>:k:<k>
//
// Store errors are logged and treated as misses; serving never fails
// because of the cache.
type resultCache struct {
	store  cache.Store
	kind   string
	ttl    time.Duration
	logger zerolog.Logger
}

// newResultCache wraps store. A nil store disables caching.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func newResultCache(store cache.Store, kind string, ttl time.Duration, logger zerolog.Logger) *resultCache {
	return &resultCache{
		store:  store,
		kind:   kind,
		ttl:    ttl,
		logger: logger,
	}
}

func boolFlag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *resultCache) userPrefix(userID int) string {
	return fmt.Sprintf("reco:%s:user:%d:", c.kind, userID)
}

func (c *resultCache) userKey(userID, k int, excludeSeen, filterByLevel bool) string {
	return fmt.Sprintf("%sk:%d:es:%d:fl:%d", c.userPrefix(userID), k, boolFlag(excludeSeen), boolFlag(filterByLevel))
}

func (c *resultCache) similarKey(itemID, k int) string {
	return fmt.Sprintf("reco:%s:similar:%d:k:%d", c.kind, itemID, k)
}

func (c *resultCache) get(ctx context.Context, key string) ([]Result, bool) {
	if c.store == nil {
		return nil, false
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("result cache read failed")
		metrics.RecordCacheLookup(c.store.Backend(), false)
		return nil, false
	}
	if !ok {
		metrics.RecordCacheLookup(c.store.Backend(), false)
		return nil, false
	}

	var results []Result
	if err := json.Unmarshal(raw, &results); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		metrics.RecordCacheLookup(c.store.Backend(), false)
		return nil, false
	}
	metrics.RecordCacheLookup(c.store.Backend(), true)
	return results, true
}

func (c *resultCache) set(ctx context.Context, key string, results []Result) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(results)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("result cache encode failed")
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("result cache write failed")
	}
}

// invalidate drops the entries of one user, or every entry of this kind when
// userID is nil.
func (c *resultCache) invalidate(ctx context.Context, userID *int) (int, error) {
	if c.store == nil {
		return 0, nil
	}
	prefix := fmt.Sprintf("reco:%s:", c.kind)
	if userID != nil {
		prefix = c.userPrefix(*userID)
	}
	n, err := c.store.DeletePrefix(ctx, prefix)
	if err != nil {
		return n, fmt.Errorf("invalidate %s: %w", prefix, err)
	}

	ev := c.logger.Info().Str("kind", c.kind).Int("removed", n)
	if userID != nil {
		ev = ev.Int("user_id", *userID)
	} else {
		ev = ev.Str("user_id", "all")
	}
	ev.Msg("cache invalidated")
	return n, nil
}
