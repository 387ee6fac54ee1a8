// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/tomtom215/papertrail/internal/cache"
	"github.com/tomtom215/papertrail/internal/metrics"
	"github.com/tomtom215/papertrail/internal/recommend/ncf"
	"github.com/tomtom215/papertrail/internal/recommend/storage"
)

// cosineEps bounds the denominator of cosine similarity.
const cosineEps = 1e-8

// LearnedPredictor serves recommendations from the latest trained NCF
// snapshot. The snapshot is loaded lazily on first use and again after
// Reload.
type LearnedPredictor struct {
	store  *storage.Store
	data   DataProvider
	cache  *resultCache
	logger zerolog.Logger

	mu      sync.RWMutex
	once    *sync.Once
	loadErr error
	model   *ncf.Model
	mapping *IndexMapping
	version string
}

// NewLearnedPredictor creates a predictor reading snapshots from store.
// results may be nil to disable result caching.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLearnedPredictor(store *storage.Store, data DataProvider, results cache.Store, ttl time.Duration, logger zerolog.Logger) *LearnedPredictor {
	logger = logger.With().Str("component", "learned_predictor").Logger()
	return &LearnedPredictor{
		store:  store,
		data:   data,
		cache:  newResultCache(results, CacheKindNCF, ttl, logger),
		logger: logger,
		once:   new(sync.Once),
	}
}

// Name implements Predictor.
func (p *LearnedPredictor) Name() string { return StrategyLearned }

// EnsureLoaded loads the latest snapshot and its mapping if that has not
// happened yet. A missing snapshot or mapping returns ErrModelUnavailable.
// A failed load is retried on the next call.
func (p *LearnedPredictor) EnsureLoaded(ctx context.Context) error {
	p.mu.RLock()
	once := p.once
	p.mu.RUnlock()

	once.Do(func() { p.load(ctx, once) })

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loadErr
}

// Reload makes the next EnsureLoaded read the latest snapshot again. The
// current model keeps serving until then.
func (p *LearnedPredictor) Reload() {
	p.mu.Lock()
	p.once = new(sync.Once)
	p.mu.Unlock()
}

// Version returns the loaded model version, or "" if none is loaded.
func (p *LearnedPredictor) Version() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

func (p *LearnedPredictor) load(ctx context.Context, once *sync.Once) {
	start := time.Now()
	model, mapping, version, err := p.readLatest(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		if p.once == once {
			p.once = new(sync.Once)
		}
		if p.model != nil {
			p.logger.Warn().Err(err).Str("serving_version", p.version).Msg("model reload failed, keeping current model")
			p.loadErr = nil
			return
		}
		p.loadErr = err
		return
	}

	p.model = model
	p.mapping = mapping
	p.version = version
	p.loadErr = nil

	p.logger.Info().
		Str("version", version).
		Int("users", mapping.NumUsers()).
		Int("items", mapping.NumItems()).
		Dur("duration", time.Since(start)).
		Msg("model loaded")
}

func (p *LearnedPredictor) readLatest(ctx context.Context) (*ncf.Model, *IndexMapping, string, error) {
	bundle, err := p.store.LoadLatest(ctx)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		return nil, nil, "", fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if err != nil {
		return nil, nil, "", err
	}

	model, err := ncf.FromSnapshot(bundle.Snapshot)
	if err != nil {
		return nil, nil, "", fmt.Errorf("restore model %s: %w", bundle.Model.Version, err)
	}
	mapping, err := MappingFromTables(bundle.Mappings)
	if err != nil {
		return nil, nil, "", fmt.Errorf("restore mapping %s: %w", bundle.Mapping.Version, err)
	}
	return model, mapping, bundle.Model.Version, nil
}

func (p *LearnedPredictor) current() (*ncf.Model, *IndexMapping) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model, p.mapping
}

// scoredIndex is a model score for one item index.
type scoredIndex struct {
	idx   int
	score float64
}

// topScored sorts by score descending, ties by ascending index, and keeps k.
func topScored(s []scoredIndex, k int) []scoredIndex {
	sort.Slice(s, func(a, b int) bool {
		if s[a].score != s[b].score {
			return s[a].score > s[b].score
		}
		return s[a].idx < s[b].idx
	})
	if len(s) > k {
		s = s[:k]
	}
	return s
}

// RecommendForUser implements Predictor.
//
// Users the model has never seen get the popularity fallback, which honours
// excludeSeen like the scored path. For known users
// every unseen item is scored and the top k are kept; the level filter is
// applied after that cut, so the list can come back short and is then padded
// with popular papers.
func (p *LearnedPredictor) RecommendForUser(ctx context.Context, userID, topK int, excludeSeen, filterByLevel bool) ([]Result, error) {
	key := p.cache.userKey(userID, topK, excludeSeen, filterByLevel)
	if cached, ok := p.cache.get(ctx, key); ok {
		return cached, nil
	}

	if err := p.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	model, mapping := p.current()

	level, err := p.filterLevel(ctx, userID, filterByLevel)
	if err != nil {
		return nil, err
	}

	seen := map[int]struct{}{}
	if excludeSeen {
		history, err := p.data.GetUserInteractions(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("get user interactions: %w", err)
		}
		seen = seenItems(history)
	}

	uIdx, known := mapping.UserIndex(userID)
	if !known {
		metrics.RecordFallback("unknown_user")
		return p.fallback(ctx, key, topK, level, seen)
	}

	candidates := make([]int, 0, mapping.NumItems())
	for idx := 0; idx < mapping.NumItems(); idx++ {
		id, _ := mapping.ItemID(idx)
		if _, ok := seen[id]; !ok {
			candidates = append(candidates, idx)
		}
	}
	if len(candidates) == 0 {
		metrics.RecordFallback("no_candidates")
		return p.fallback(ctx, key, topK, level, seen)
	}

	scores, err := model.PredictBatch(uIdx, candidates)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	ranked := make([]scoredIndex, len(candidates))
	for k, idx := range candidates {
		ranked[k] = scoredIndex{idx: idx, score: scores[k]}
	}
	ranked = topScored(ranked, topK)

	ids := make([]int, len(ranked))
	for k, r := range ranked {
		ids[k], _ = mapping.ItemID(r.idx)
	}
	papers, err := p.data.GetPapers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get papers: %w", err)
	}

	results := make([]Result, 0, topK)
	for k, r := range ranked {
		paper, ok := papers[ids[k]]
		if !ok {
			continue
		}
		if !level.Allows(paper.Level) {
			continue
		}
		results = append(results, Result{ItemID: ids[k], Score: r.score, Paper: paper})
	}

	if len(results) < topK {
		skip := make(map[int]struct{}, len(seen)+len(results))
		for id := range seen {
			skip[id] = struct{}{}
		}
		for _, r := range results {
			skip[r.ItemID] = struct{}{}
		}
		pool, err := popularPapers(ctx, p.data, level)
		if err != nil {
			return nil, err
		}
		pad := popularResults(pool, topK-len(results), skip)
		if len(pad) > 0 {
			metrics.RecordFallback("padding")
		}
		results = append(results, pad...)
	}

	p.cache.set(ctx, key, results)
	return results, nil
}

func (p *LearnedPredictor) filterLevel(ctx context.Context, userID int, filterByLevel bool) (Level, error) {
	if !filterByLevel {
		return "", nil
	}
	student, err := lookupStudent(ctx, p.data, userID)
	if err != nil || student == nil {
		return "", err
	}
	return student.Level, nil
}

// fallback serves popular papers at level, skipping the ids in seen.
func (p *LearnedPredictor) fallback(ctx context.Context, key string, topK int, level Level, seen map[int]struct{}) ([]Result, error) {
	pool, err := popularPapers(ctx, p.data, level)
	if err != nil {
		return nil, err
	}
	results := popularResults(pool, topK, seen)
	p.cache.set(ctx, key, results)
	return results, nil
}

// RecommendSimilar implements Predictor. Items are ranked by cosine
// similarity of their concatenated embeddings. An unknown item yields an
// empty list.
func (p *LearnedPredictor) RecommendSimilar(ctx context.Context, itemID, topK int) ([]Result, error) {
	key := p.cache.similarKey(itemID, topK)
	if cached, ok := p.cache.get(ctx, key); ok {
		return cached, nil
	}

	if err := p.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	model, mapping := p.current()

	idx, ok := mapping.ItemIndex(itemID)
	if !ok {
		return []Result{}, nil
	}

	target, err := model.ItemEmbedding(idx)
	if err != nil {
		return nil, err
	}
	targetNorm := floats.Norm(target, 2)

	sims := make([]scoredIndex, 0, mapping.NumItems())
	for j := 0; j < mapping.NumItems(); j++ {
		if j == idx {
			continue
		}
		emb, err := model.ItemEmbedding(j)
		if err != nil {
			return nil, err
		}
		denom := math.Max(targetNorm*floats.Norm(emb, 2), cosineEps)
		sims = append(sims, scoredIndex{idx: j, score: floats.Dot(target, emb) / denom})
	}
	sims = topScored(sims, topK)

	ids := make([]int, len(sims))
	for k, s := range sims {
		ids[k], _ = mapping.ItemID(s.idx)
	}
	papers, err := p.data.GetPapers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get papers: %w", err)
	}

	results := make([]Result, 0, len(sims))
	for k, s := range sims {
		paper, ok := papers[ids[k]]
		if !ok {
			continue
		}
		results = append(results, Result{ItemID: ids[k], Score: s.score, Paper: paper})
	}

	p.cache.set(ctx, key, results)
	return results, nil
}

// PredictRating returns the model score for one (user, paper) pair, or 0 if
// either id is unknown to the model.
func (p *LearnedPredictor) PredictRating(ctx context.Context, userID, itemID int) (float64, error) {
	if err := p.EnsureLoaded(ctx); err != nil {
		return 0, err
	}
	model, mapping := p.current()

	u, ok := mapping.UserIndex(userID)
	if !ok {
		return 0, nil
	}
	i, ok := mapping.ItemIndex(itemID)
	if !ok {
		return 0, nil
	}
	return model.Predict(u, i)
}

// InvalidateCache implements Predictor.
func (p *LearnedPredictor) InvalidateCache(ctx context.Context, userID *int) error {
	_, err := p.cache.invalidate(ctx, userID)
	return err
}
