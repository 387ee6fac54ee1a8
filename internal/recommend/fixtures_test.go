// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// testLogger returns a zerolog logger for testing.
func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// mockData implements DataProvider over in-memory fixtures.
type mockData struct {
	mu           sync.Mutex
	interactions []Interaction
	papers       map[int]*Paper
	users        map[int]*Student
	err          error

	interactionCalls int
}

func newMockData() *mockData {
	return &mockData{
		papers: make(map[int]*Paper),
		users:  make(map[int]*Student),
	}
}

func (m *mockData) addPaper(p Paper) *mockData {
	m.papers[p.ID] = &p
	return m
}

func (m *mockData) addUser(s Student) *mockData {
	m.users[s.ID] = &s
	return m
}

func (m *mockData) interact(userID, itemID int, action ActionKind) *mockData {
	m.interactions = append(m.interactions, Interaction{
		UserID:    userID,
		ItemID:    itemID,
		Action:    action,
		Timestamp: time.Date(2026, 1, 1, 0, 0, len(m.interactions), 0, time.UTC),
	})
	return m
}

func (m *mockData) GetInteractions(_ context.Context) ([]Interaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interactionCalls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]Interaction(nil), m.interactions...), nil
}

func (m *mockData) GetUserInteractions(_ context.Context, userID int) ([]Interaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []Interaction
	for _, r := range m.interactions {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockData) GetPaper(_ context.Context, id int) (*Paper, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.papers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockData) GetPapers(_ context.Context, ids []int) (map[int]*Paper, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[int]*Paper, len(ids))
	for _, id := range ids {
		if p, ok := m.papers[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *mockData) ListPapers(_ context.Context, filter PaperFilter) ([]Paper, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Paper, 0, len(m.papers))
	for _, p := range m.papers {
		if filter.ApprovedOnly && !p.Approved {
			continue
		}
		if !filter.MaxLevel.Allows(p.Level) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (m *mockData) GetUser(_ context.Context, id int) (*Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// mockRegistry implements Registry in memory.
type mockRegistry struct {
	mu      sync.Mutex
	entries []RegistryEntry
	logs    []TrainingLog
	err     error
}

func (r *mockRegistry) ActivateModel(_ context.Context, entry *RegistryEntry, log *TrainingLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i := range r.entries {
		r.entries[i].IsActive = false
	}
	e := *entry
	e.IsActive = true
	r.entries = append(r.entries, e)
	l := *log
	l.ID = int64(len(r.logs) + 1)
	r.logs = append(r.logs, l)
	return nil
}

func (r *mockRegistry) ActiveModel(_ context.Context) (*RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.entries {
		if r.entries[i].IsActive {
			e := r.entries[i]
			return &e, nil
		}
	}
	return nil, ErrNotFound
}

func (r *mockRegistry) LatestTrainingLog(_ context.Context, version string) (*TrainingLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].ModelVersion == version {
			l := r.logs[i]
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

func (r *mockRegistry) activeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.IsActive {
			n++
		}
	}
	return n
}

// resultIDs returns the item ids of results in order.
func resultIDs(results []Result) []int {
	ids := make([]int, len(results))
	for i, r := range results {
		ids[i] = r.ItemID
	}
	return ids
}

func intPtr(v int) *int { return &v }
