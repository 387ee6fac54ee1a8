// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"errors"
	"slices"

	"github.com/tomtom215/papertrail/internal/recommend/storage"
)

// IndexMapping is the bijection between catalog identifiers and the dense
// indices used by the model. Indices are assigned in ascending id order, so
// the same corpus always yields the same mapping.
type IndexMapping struct {
	userToIndex map[int]int
	indexToUser []int
	itemToIndex map[int]int
	indexToItem []int
}

// NewIndexMapping builds a mapping from the distinct users and items of tuples.
func NewIndexMapping(tuples []WeightedInteraction) *IndexMapping {
	users := make([]int, 0, len(tuples))
	items := make([]int, 0, len(tuples))
	for _, t := range tuples {
		users = append(users, t.UserID)
		items = append(items, t.ItemID)
	}

	m := &IndexMapping{}
	m.userToIndex, m.indexToUser = bijection(users)
	m.itemToIndex, m.indexToItem = bijection(items)
	return m
}

func bijection(ids []int) (map[int]int, []int) {
	slices.Sort(ids)
	ids = slices.Compact(ids)
	fwd := make(map[int]int, len(ids))
	for i, id := range ids {
		fwd[id] = i
	}
	return fwd, ids
}

// MappingFromTables restores a mapping from its persisted tables.
func MappingFromTables(t *storage.Mappings) (*IndexMapping, error) {
	if t == nil {
		return nil, errors.New("nil mapping tables")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &IndexMapping{
		userToIndex: t.UserToIndex,
		indexToUser: t.IndexToUser,
		itemToIndex: t.ItemToIndex,
		indexToItem: t.IndexToItem,
	}, nil
}

// Tables returns the persistable form of the mapping.
func (m *IndexMapping) Tables() *storage.Mappings {
	return &storage.Mappings{
		UserToIndex: m.userToIndex,
		IndexToUser: m.indexToUser,
		ItemToIndex: m.itemToIndex,
		IndexToItem: m.indexToItem,
	}
}

// UserIndex returns the model index of a user id.
func (m *IndexMapping) UserIndex(id int) (int, bool) {
	idx, ok := m.userToIndex[id]
	return idx, ok
}

// ItemIndex returns the model index of an item id.
func (m *IndexMapping) ItemIndex(id int) (int, bool) {
	idx, ok := m.itemToIndex[id]
	return idx, ok
}

// UserID returns the user id at a model index.
func (m *IndexMapping) UserID(idx int) (int, bool) {
	if idx < 0 || idx >= len(m.indexToUser) {
		return 0, false
	}
	return m.indexToUser[idx], true
}

// ItemID returns the item id at a model index.
func (m *IndexMapping) ItemID(idx int) (int, bool) {
	if idx < 0 || idx >= len(m.indexToItem) {
		return 0, false
	}
	return m.indexToItem[idx], true
}

// NumUsers returns the number of mapped users.
func (m *IndexMapping) NumUsers() int { return len(m.indexToUser) }

// NumItems returns the number of mapped items.
func (m *IndexMapping) NumItems() int { return len(m.indexToItem) }
