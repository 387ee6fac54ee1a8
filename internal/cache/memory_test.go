// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_BasicOperations(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(10)
	ctx := context.Background()

	if err := s.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, ok, err := s.Get(ctx, "key1")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v, want hit", ok, err)
	}
	if string(got) != "value1" {
		t.Errorf("Get() = %q, want value1", got)
	}

	if _, ok, _ := s.Get(ctx, "key2"); ok {
		t.Error("Get() of missing key reported a hit")
	}

	st := s.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, size 1", st)
	}
	if s.Backend() != BackendMemory {
		t.Errorf("Backend() = %q", s.Backend())
	}
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(10)
	ctx := context.Background()

	in := []byte("abc")
	_ = s.Set(ctx, "k", in, 0)
	in[0] = 'X'

	out, _, _ := s.Get(ctx, "k")
	if string(out) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", out)
	}
	out[1] = 'Y'
	again, _, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("returned value aliased stored slice: %q", again)
	}
}

func TestMemoryStore_Expiration(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(10)
	ctx := context.Background()

	_ = s.Set(ctx, "short", []byte("v"), 50*time.Millisecond)
	_ = s.Set(ctx, "forever", []byte("v"), 0)

	if _, ok, _ := s.Get(ctx, "short"); !ok {
		t.Fatal("entry should exist immediately after set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok, _ := s.Get(ctx, "short"); ok {
		t.Error("entry should have expired")
	}
	if _, ok, _ := s.Get(ctx, "forever"); !ok {
		t.Error("entry without ttl should not expire")
	}
}

func TestMemoryStore_CleanupExpired(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(10)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), 20*time.Millisecond)
	_ = s.Set(ctx, "b", []byte("2"), 20*time.Millisecond)
	_ = s.Set(ctx, "c", []byte("3"), time.Hour)

	time.Sleep(50 * time.Millisecond)

	if removed := s.CleanupExpired(); removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryStore_LRUEviction(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(2)
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)
	// Touch a so that b is the least recently used.
	_, _, _ = s.Get(ctx, "a")
	_ = s.Set(ctx, "c", []byte("3"), 0)

	if _, ok, _ := s.Get(ctx, "b"); ok {
		t.Error("least recently used entry b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if _, ok, _ := s.Get(ctx, k); !ok {
			t.Errorf("entry %s should still be cached", k)
		}
	}
	if s.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", s.Stats().Evictions)
	}
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		prefix      string
		wantRemoved int
		wantLeft    []string
	}{
		{
			name:        "one user",
			prefix:      "reco:ncf:user:1:",
			wantRemoved: 2,
			wantLeft:    []string{"reco:ncf:user:12:k:10", "reco:ncf:similar:1:k:10", "reco:lite:user:1:k:10"},
		},
		{
			name:        "whole kind",
			prefix:      "reco:ncf:",
			wantRemoved: 4,
			wantLeft:    []string{"reco:lite:user:1:k:10"},
		},
		{
			name:        "no match",
			prefix:      "other:",
			wantRemoved: 0,
			wantLeft:    []string{"reco:ncf:user:1:k:10", "reco:lite:user:1:k:10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewMemoryStore(100)
			ctx := context.Background()
			for _, k := range []string{
				"reco:ncf:user:1:k:10",
				"reco:ncf:user:1:k:20",
				"reco:ncf:user:12:k:10",
				"reco:ncf:similar:1:k:10",
				"reco:lite:user:1:k:10",
			} {
				_ = s.Set(ctx, k, []byte("x"), time.Hour)
			}

			n, err := s.DeletePrefix(ctx, tt.prefix)
			if err != nil {
				t.Fatalf("DeletePrefix() error = %v", err)
			}
			if n != tt.wantRemoved {
				t.Errorf("DeletePrefix() = %d, want %d", n, tt.wantRemoved)
			}
			for _, k := range tt.wantLeft {
				if _, ok, _ := s.Get(ctx, k); !ok {
					t.Errorf("key %s should remain", k)
				}
			}
		})
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore(50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k:%d:%d", g, i%20)
				_ = s.Set(ctx, key, []byte("v"), time.Minute)
				_, _, _ = s.Get(ctx, key)
				if i%50 == 0 {
					_, _ = s.DeletePrefix(ctx, fmt.Sprintf("k:%d:", g))
				}
			}
		}(g)
	}
	wg.Wait()

	if s.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity 50", s.Len())
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         Config
		wantBackend string
		wantErr     bool
	}{
		{name: "default is memory", cfg: Config{}, wantBackend: BackendMemory},
		{name: "memory", cfg: Config{Backend: BackendMemory, Capacity: 5}, wantBackend: BackendMemory},
		{name: "badger in memory", cfg: Config{Backend: BackendBadger}, wantBackend: BackendBadger},
		{name: "redis", cfg: Config{Backend: BackendRedis, RedisAddr: "127.0.0.1:1"}, wantBackend: BackendRedis},
		{name: "redis without addr", cfg: Config{Backend: BackendRedis}, wantErr: true},
		{name: "unknown", cfg: Config{Backend: "memcached"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer func() { _ = s.Close() }()
			if s.Backend() != tt.wantBackend {
				t.Errorf("Backend() = %q, want %q", s.Backend(), tt.wantBackend)
			}
		})
	}
}
