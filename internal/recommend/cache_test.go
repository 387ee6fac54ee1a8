// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/papertrail/internal/cache"
)

func TestResultCache_Keys(t *testing.T) {
	t.Parallel()

	c := newResultCache(nil, CacheKindNCF, time.Hour, testLogger())
	if got := c.userKey(7, 10, true, false); got != "reco:ncf:user:7:k:10:es:1:fl:0" {
		t.Errorf("userKey() = %q", got)
	}
	if got := c.similarKey(3, 5); got != "reco:ncf:similar:3:k:5" {
		t.Errorf("similarKey() = %q", got)
	}
	// user 1 must not prefix-match user 10.
	if got := c.userPrefix(1); got != "reco:ncf:user:1:" {
		t.Errorf("userPrefix() = %q", got)
	}
}

func TestResultCache_RoundTripAndInvalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := cache.NewMemoryStore(100)
	ncfCache := newResultCache(store, CacheKindNCF, time.Hour, testLogger())
	liteCache := newResultCache(store, CacheKindLite, time.Hour, testLogger())

	results := []Result{{ItemID: 1, Score: 0.9, Paper: &Paper{ID: 1, Title: "Analyse 2023"}}}
	ncfCache.set(ctx, ncfCache.userKey(1, 10, true, true), results)
	ncfCache.set(ctx, ncfCache.userKey(10, 10, true, true), results)
	ncfCache.set(ctx, ncfCache.similarKey(1, 10), results)
	liteCache.set(ctx, liteCache.userKey(1, 10, true, true), results)

	got, ok := ncfCache.get(ctx, ncfCache.userKey(1, 10, true, true))
	if !ok || len(got) != 1 || got[0].Paper == nil || got[0].Paper.Title != "Analyse 2023" {
		t.Fatalf("get() = %+v, %v", got, ok)
	}
	if _, ok := ncfCache.get(ctx, ncfCache.userKey(1, 10, false, true)); ok {
		t.Error("different flags should miss")
	}

	n, err := ncfCache.invalidate(ctx, intPtr(1))
	if err != nil || n != 1 {
		t.Fatalf("invalidate(user 1) = %d, %v; want 1", n, err)
	}
	if _, ok := ncfCache.get(ctx, ncfCache.userKey(10, 10, true, true)); !ok {
		t.Error("user 10 entry should survive user 1 invalidation")
	}

	n, err = ncfCache.invalidate(ctx, nil)
	if err != nil || n != 2 {
		t.Fatalf("invalidate(all) = %d, %v; want 2", n, err)
	}
	if _, ok := liteCache.get(ctx, liteCache.userKey(1, 10, true, true)); !ok {
		t.Error("lite entries should survive ncf invalidation")
	}
}

func TestResultCache_Disabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := newResultCache(nil, CacheKindLite, time.Minute, testLogger())
	c.set(ctx, "k", []Result{{ItemID: 1}})
	if _, ok := c.get(ctx, "k"); ok {
		t.Error("disabled cache returned a hit")
	}
	if n, err := c.invalidate(ctx, nil); n != 0 || err != nil {
		t.Errorf("invalidate() = %d, %v", n, err)
	}
}

func TestResultCache_UndecodableEntryIsMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := cache.NewMemoryStore(10)
	c := newResultCache(store, CacheKindNCF, time.Hour, testLogger())
	key := c.similarKey(1, 1)
	if err := store.Set(ctx, key, []byte("{not json"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.get(ctx, key); ok {
		t.Error("undecodable entry returned a hit")
	}
}
