// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/tomtom215/papertrail/internal/cache"
	"github.com/tomtom215/papertrail/internal/recommend/ncf"
	"github.com/tomtom215/papertrail/internal/recommend/storage"
)

// saveFixtureModel stores an untrained model over the fixture interactions.
// Weights are random but deterministic for seed.
func saveFixtureModel(t *testing.T, store *storage.Store, data *mockData, version string, seed int64) (*ncf.Model, *IndexMapping) {
	t.Helper()

	mapping := NewIndexMapping(Extract(data.interactions))
	model, err := ncf.NewModel(ncf.Config{
		NumUsers:     mapping.NumUsers(),
		NumItems:     mapping.NumItems(),
		EmbeddingDim: 4,
		Layers:       []int{8, 4},
	}, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	if _, err := store.Save(context.Background(), version, model.Snapshot(), mapping.Tables()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return model, mapping
}

func newTestLearned(t *testing.T, data *mockData, results cache.Store) (*LearnedPredictor, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return NewLearnedPredictor(store, data, results, time.Hour, testLogger()), store
}

func TestLearned_NoSnapshotIsUnavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)

	_, err := p.RecommendForUser(ctx, 1, 5, true, false)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("error = %v, want ErrModelUnavailable", err)
	}
	if _, err := p.RecommendSimilar(ctx, 1, 5); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("RecommendSimilar error = %v, want ErrModelUnavailable", err)
	}

	// A failed load is retried once a snapshot exists.
	saveFixtureModel(t, store, data, "v1", 1)
	if _, err := p.RecommendForUser(ctx, 1, 5, true, false); err != nil {
		t.Fatalf("after save: error = %v", err)
	}
	if p.Version() != "v1" {
		t.Errorf("Version() = %q, want v1", p.Version())
	}
}

func TestLearned_KnownUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)
	model, mapping := saveFixtureModel(t, store, data, "v1", 7)

	got, err := p.RecommendForUser(ctx, 1, 5, true, false)
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}

	// Model candidates are the unseen mapped items 2 and 4; padding adds the
	// popular papers the model does not know.
	if len(got) != 4 {
		t.Fatalf("got %v, want 4 results", resultIDs(got))
	}
	head := resultIDs(got[:2])
	slices.Sort(head)
	if !slices.Equal(head, []int{2, 4}) {
		t.Errorf("model results = %v, want {2, 4}", resultIDs(got[:2]))
	}
	if got[0].Score < got[1].Score {
		t.Errorf("model results not sorted: %v", got[:2])
	}
	if tail := resultIDs(got[2:]); !slices.Equal(tail, []int{5, 6}) {
		t.Errorf("padding = %v, want [5 6]", tail)
	}

	u, _ := mapping.UserIndex(1)
	i, _ := mapping.ItemIndex(got[0].ItemID)
	want, _ := model.Predict(u, i)
	if math.Abs(got[0].Score-want) > 1e-12 {
		t.Errorf("score = %v, want model prediction %v", got[0].Score, want)
	}
}

func TestLearned_LevelFilterAfterTopK(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)
	saveFixtureModel(t, store, data, "v1", 7)

	// User 1 is L2: paper 4 (L3) is dropped after scoring and nothing unseen
	// at or below L2 is left to pad with.
	got, err := p.RecommendForUser(ctx, 1, 5, true, true)
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if ids := resultIDs(got); !slices.Equal(ids, []int{2}) {
		t.Errorf("ids = %v, want [2]", ids)
	}
}

func TestLearned_UnknownUserFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)
	saveFixtureModel(t, store, data, "v1", 7)

	got, err := p.RecommendForUser(ctx, 99, 3, true, true)
	if err != nil {
		t.Fatalf("RecommendForUser() error = %v", err)
	}
	if ids := resultIDs(got); !slices.Equal(ids, []int{4, 1, 3}) {
		t.Errorf("ids = %v, want [4 1 3]", ids)
	}
	if !approxEqual(got[2].Score, 0.7) {
		t.Errorf("score(3) = %v, want 0.7", got[2].Score)
	}

	// User 3 is in the catalog at L1 but has no interactions.
	got, err = p.RecommendForUser(ctx, 3, 10, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if ids := resultIDs(got); !slices.Equal(ids, []int{1, 3}) {
		t.Errorf("L1 fallback ids = %v, want [1 3]", ids)
	}
}

func TestLearned_FallbackExcludesSeen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name        string
		userID      int
		after       [][2]int
		excludeSeen bool
		want        []int
	}{
		{
			name:        "known user has seen every mapped paper",
			userID:      1,
			after:       [][2]int{{1, 2}, {1, 4}},
			excludeSeen: true,
			want:        []int{5, 6},
		},
		{
			name:        "unknown user history after training",
			userID:      3,
			after:       [][2]int{{3, 4}},
			excludeSeen: true,
			want:        []int{1, 3, 2},
		},
		{
			name:        "unknown user keeps seen papers when asked",
			userID:      3,
			after:       [][2]int{{3, 4}},
			excludeSeen: false,
			want:        []int{4, 1, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := catalogFixture()
			p, store := newTestLearned(t, data, nil)
			saveFixtureModel(t, store, data, "v1", 7)
			for _, ui := range tt.after {
				data.interact(ui[0], ui[1], ActionDownload)
			}

			got, err := p.RecommendForUser(ctx, tt.userID, 3, tt.excludeSeen, false)
			if err != nil {
				t.Fatalf("RecommendForUser() error = %v", err)
			}
			if ids := resultIDs(got); !slices.Equal(ids, tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
			if !tt.excludeSeen {
				return
			}
			history, _ := data.GetUserInteractions(ctx, tt.userID)
			seen := seenItems(history)
			for _, r := range got {
				if _, ok := seen[r.ItemID]; ok {
					t.Errorf("seen paper %d returned", r.ItemID)
				}
			}
		})
	}
}

func TestLearned_RecommendSimilar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)
	model, mapping := saveFixtureModel(t, store, data, "v1", 3)

	got, err := p.RecommendSimilar(ctx, 1, 10)
	if err != nil {
		t.Fatalf("RecommendSimilar() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %v, want the 3 other mapped items", resultIDs(got))
	}
	for k, r := range got {
		if r.ItemID == 1 {
			t.Error("source item returned")
		}
		if k > 0 && r.Score > got[k-1].Score {
			t.Error("results not sorted")
		}
		if r.Score < -1-1e-9 || r.Score > 1+1e-9 {
			t.Errorf("cosine %v out of range", r.Score)
		}
	}

	src, _ := mapping.ItemIndex(1)
	dst, _ := mapping.ItemIndex(got[0].ItemID)
	a, _ := model.ItemEmbedding(src)
	b, _ := model.ItemEmbedding(dst)
	var dot, na, nb float64
	for k := range a {
		dot += a[k] * b[k]
		na += a[k] * a[k]
		nb += b[k] * b[k]
	}
	want := dot / math.Max(math.Sqrt(na)*math.Sqrt(nb), cosineEps)
	if math.Abs(got[0].Score-want) > 1e-9 {
		t.Errorf("cosine = %v, want %v", got[0].Score, want)
	}

	unknown, err := p.RecommendSimilar(ctx, 5, 10)
	if err != nil || len(unknown) != 0 {
		t.Errorf("unmapped item: %v, %v; want empty", unknown, err)
	}
}

func TestLearned_PredictRating(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)
	model, mapping := saveFixtureModel(t, store, data, "v1", 5)

	u, _ := mapping.UserIndex(2)
	i, _ := mapping.ItemIndex(3)
	want, _ := model.Predict(u, i)
	got, err := p.PredictRating(ctx, 2, 3)
	if err != nil || math.Abs(got-want) > 1e-12 {
		t.Errorf("PredictRating(2, 3) = %v, %v; want %v", got, err, want)
	}

	for _, pair := range [][2]int{{99, 3}, {2, 99}} {
		got, err := p.PredictRating(ctx, pair[0], pair[1])
		if err != nil || got != 0 {
			t.Errorf("PredictRating(%d, %d) = %v, %v; want 0", pair[0], pair[1], got, err)
		}
	}
}

func TestLearned_ReloadPicksUpNewVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)
	saveFixtureModel(t, store, data, "v1", 1)
	if err := p.EnsureLoaded(ctx); err != nil {
		t.Fatal(err)
	}

	saveFixtureModel(t, store, data, "v2", 2)
	if err := p.EnsureLoaded(ctx); err != nil || p.Version() != "v1" {
		t.Fatalf("without Reload: version %q, err %v; want v1", p.Version(), err)
	}

	p.Reload()
	if err := p.EnsureLoaded(ctx); err != nil {
		t.Fatal(err)
	}
	if p.Version() != "v2" {
		t.Errorf("Version() = %q, want v2", p.Version())
	}
}

func TestLearned_FailedReloadKeepsServing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	p, store := newTestLearned(t, data, nil)
	saveFixtureModel(t, store, data, "v1", 1)
	if err := p.EnsureLoaded(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(store.ModelPath(storage.LatestVersion)); err != nil {
		t.Fatal(err)
	}
	p.Reload()
	if err := p.EnsureLoaded(ctx); err != nil {
		t.Fatalf("EnsureLoaded() error = %v, want previous model kept", err)
	}
	if p.Version() != "v1" {
		t.Errorf("Version() = %q, want v1", p.Version())
	}
	if _, err := p.RecommendForUser(ctx, 1, 3, true, false); err != nil {
		t.Errorf("RecommendForUser() error = %v", err)
	}
}

func TestLearned_CacheAndInvalidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	data := catalogFixture()
	store := cache.NewMemoryStore(100)
	p, snapshots := newTestLearned(t, data, store)
	saveFixtureModel(t, snapshots, data, "v1", 1)

	if _, err := p.RecommendForUser(ctx, 1, 3, true, false); err != nil {
		t.Fatal(err)
	}
	if _, err := p.RecommendForUser(ctx, 99, 3, true, false); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 2 {
		t.Fatalf("cache holds %d entries, want 2", store.Len())
	}

	if err := p.InvalidateCache(ctx, intPtr(1)); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Errorf("after user invalidation %d entries, want 1", store.Len())
	}
	if err := p.InvalidateCache(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Errorf("after full invalidation %d entries, want 0", store.Len())
	}
}
