// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

/*
Package cache provides byte-oriented TTL key-value stores for recommendation
results.

# Overview

Every backend implements Store:

  - MemoryStore: in-process LRU with lazy TTL expiration
  - RedisStore: shared cache for multi-instance deployments, guarded by a
    circuit breaker so that an unreachable Redis degrades to cache misses
  - BadgerStore: embedded persistent cache that survives restarts

Values are opaque byte slices; callers choose the encoding. Keys are plain
strings, and DeletePrefix removes every key that starts with a prefix, which
is how per-user and global invalidation are expressed.

# Usage Example

	store, err := cache.New(cache.Config{Backend: cache.BackendMemory, Capacity: 10000})
	if err != nil {
	    return err
	}
	defer store.Close()

	_ = store.Set(ctx, "reco:ncf:user:42:k:10", payload, time.Hour)
	data, ok, err := store.Get(ctx, "reco:ncf:user:42:k:10")
	n, err := store.DeletePrefix(ctx, "reco:ncf:user:42:")

# Thread Safety

All stores are safe for concurrent use.
*/
package cache
