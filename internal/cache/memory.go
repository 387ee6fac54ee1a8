// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memoryEntry is a node of the recency list.
type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
	prev      *memoryEntry
	next      *memoryEntry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is a bounded in-process LRU store with lazy TTL expiration.
//
// A doubly-linked list orders entries by recency and a map gives O(1) lookup;
// the least recently used entry is evicted when capacity is exceeded.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*memoryEntry

	// head.next is the most recently used, tail.prev the least.
	head *memoryEntry
	tail *memoryEntry

	stats Stats
}

// Stats tracks cache performance.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// NewMemoryStore creates a store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 10000
	}
	s := &MemoryStore{
		capacity: capacity,
		items:    make(map[string]*memoryEntry),
		head:     &memoryEntry{},
		tail:     &memoryEntry{},
	}
	s.head.next = s.tail
	s.tail.prev = s.head
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		s.stats.Misses++
		return nil, false, nil
	}
	if entry.expired(time.Now()) {
		s.removeEntry(entry)
		s.stats.Misses++
		s.stats.Evictions++
		return nil, false, nil
	}

	s.moveToFront(entry)
	s.stats.Hits++
	return append([]byte(nil), entry.value...), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	value = append([]byte(nil), value...)

	if entry, ok := s.items[key]; ok {
		entry.value = value
		entry.expiresAt = expiresAt
		s.moveToFront(entry)
		return nil
	}

	entry := &memoryEntry{key: key, value: value, expiresAt: expiresAt}
	s.addToFront(entry)
	s.items[key] = entry

	for len(s.items) > s.capacity {
		s.evictOldest()
	}
	return nil
}

// DeletePrefix implements Store.
func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.items {
		if strings.HasPrefix(key, prefix) {
			s.removeEntry(entry)
			removed++
		}
	}
	s.stats.Evictions += int64(removed)
	return removed, nil
}

// CleanupExpired removes all expired entries and returns how many were removed.
func (s *MemoryStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for entry := s.tail.prev; entry != s.head; {
		prev := entry.prev
		if entry.expired(now) {
			s.removeEntry(entry)
			removed++
		}
		entry = prev
	}
	s.stats.Evictions += int64(removed)
	return removed
}

// Len returns the number of stored entries, including expired ones not yet
// collected.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Stats returns a snapshot of the counters.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Size = len(s.items)
	return st
}

// Backend implements Store.
func (s *MemoryStore) Backend() string { return BackendMemory }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Internal methods (must be called with lock held)

func (s *MemoryStore) addToFront(entry *memoryEntry) {
	entry.prev = s.head
	entry.next = s.head.next
	s.head.next.prev = entry
	s.head.next = entry
}

func (s *MemoryStore) moveToFront(entry *memoryEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	s.addToFront(entry)
}

func (s *MemoryStore) removeEntry(entry *memoryEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(s.items, entry.key)
}

func (s *MemoryStore) evictOldest() {
	oldest := s.tail.prev
	if oldest == s.head {
		return
	}
	s.removeEntry(oldest)
	s.stats.Evictions++
}
