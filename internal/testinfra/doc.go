// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests,
// so that backends such as the Redis result cache are exercised against a real server.
//
// # Redis Container
//
//	func TestRedisStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    redisC, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, redisC)
//
//	    store := cache.NewRedisStore(cache.RedisOptions{Addr: redisC.Addr})
//	    // ...
//	}
//
// # Running
//
// All files in this package carry the integration build tag:
//
//	go test -tags integration ./internal/cache/...
package testinfra
