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
	"slices"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/papertrail/internal/cache"
	"github.com/tomtom215/papertrail/internal/metrics"
)

// programSubjects maps a declared program to its core subjects. Students
// with no history are matched on these.
var programSubjects = map[string][]string{
	"MATH":     {"Analyse", "Algebre", "Probabilites", "Statistiques", "Geometrie"},
	"INFO":     {"Algorithmes", "Bases de donnees", "Reseaux", "IA", "Programmation"},
	"PHYSIQUE": {"Mecanique", "Thermodynamique", "Electromagnetisme", "Optique"},
	"CHIMIE":   {"Chimie organique", "Chimie minerale", "Chimie analytique"},
}

// Programs returns the declared programs with a subject table, sorted.
func Programs() []string {
	out := make([]string, 0, len(programSubjects))
	for p := range programSubjects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ProgramSubjects returns the core subjects of program, or nil.
func ProgramSubjects(program string) []string {
	return slices.Clone(programSubjects[program])
}

const (
	topSubjects    = 3
	topInstructors = 2
)

// HeuristicPredictor recommends without a trained model by blending three
// strategies: content similarity to the student's history, a neighbourhood
// vote over students with overlapping histories, and raw popularity.
type HeuristicPredictor struct {
	data   DataProvider
	cfg    LiteConfig
	cache  *resultCache
	logger zerolog.Logger
}

// NewHeuristicPredictor creates a heuristic predictor. results may be nil to
// disable result caching.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHeuristicPredictor(data DataProvider, cfg LiteConfig, results cache.Store, ttl time.Duration, logger zerolog.Logger) *HeuristicPredictor {
	logger = logger.With().Str("component", "lite_predictor").Logger()
	return &HeuristicPredictor{
		data:   data,
		cfg:    cfg,
		cache:  newResultCache(results, CacheKindLite, ttl, logger),
		logger: logger,
	}
}

// Name implements Predictor.
func (p *HeuristicPredictor) Name() string { return StrategyLite }

// RecommendForUser implements Predictor. Students missing from the catalog
// get the popularity fallback without level filtering.
func (p *HeuristicPredictor) RecommendForUser(ctx context.Context, userID, topK int, excludeSeen, filterByLevel bool) ([]Result, error) {
	key := p.cache.userKey(userID, topK, excludeSeen, filterByLevel)
	if cached, ok := p.cache.get(ctx, key); ok {
		return cached, nil
	}

	student, err := lookupStudent(ctx, p.data, userID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		metrics.RecordFallback("unknown_user")
		pool, err := popularPapers(ctx, p.data, "")
		if err != nil {
			return nil, err
		}
		results := popularResults(pool, topK, nil)
		for i := range results {
			results[i].Score = round4(results[i].Score)
		}
		return results, nil
	}

	history, err := p.data.GetUserInteractions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user interactions: %w", err)
	}

	filter := PaperFilter{}
	if filterByLevel {
		filter.MaxLevel = student.Level
	}
	papers, err := p.data.ListPapers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}

	var seen map[int]struct{}
	if excludeSeen {
		seen = seenItems(history)
	}
	candidates := make([]Paper, 0, len(papers))
	for i := range papers {
		if _, ok := seen[papers[i].ID]; !ok {
			candidates = append(candidates, papers[i])
		}
	}

	var content, collab, popular []Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		content, err = p.contentBased(gctx, student, history, candidates, 2*topK)
		return err
	})
	g.Go(func() error {
		var err error
		collab, err = p.collaborative(gctx, userID, history, candidates, topK)
		return err
	})
	g.Go(func() error {
		popular = popularityRanked(candidates, topK)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := mergeWeighted(topK,
		weightedResults{content, p.cfg.Weights.Content},
		weightedResults{collab, p.cfg.Weights.Collaborative},
		weightedResults{popular, p.cfg.Weights.Popularity},
	)

	p.logger.Debug().
		Int("user_id", userID).
		Int("candidates", len(candidates)).
		Int("content", len(content)).
		Int("collaborative", len(collab)).
		Int("popularity", len(popular)).
		Int("returned", len(results)).
		Msg("lite recommendation complete")

	p.cache.set(ctx, key, results)
	return results, nil
}

// contentBased scores candidates against the subjects and instructors the
// student engages with most. Downloads count double.
func (p *HeuristicPredictor) contentBased(ctx context.Context, student *Student, history []Interaction, candidates []Paper, limit int) ([]Result, error) {
	ids := make([]int, 0, len(history))
	for _, h := range history {
		ids = append(ids, h.ItemID)
	}
	var seenPapers map[int]*Paper
	if len(ids) > 0 {
		var err error
		seenPapers, err = p.data.GetPapers(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get history papers: %w", err)
		}
	}

	subjectCounts := map[string]int{}
	instructorCounts := map[string]int{}
	for _, h := range history {
		paper, ok := seenPapers[h.ItemID]
		if !ok {
			continue
		}
		w := 1
		if h.Action == ActionDownload {
			w = 2
		}
		subjectCounts[paper.Subject] += w
		if paper.Instructor != "" {
			instructorCounts[paper.Instructor] += w
		}
	}

	if len(subjectCounts) == 0 {
		return programMatches(student.Program, candidates, limit), nil
	}

	subjects := topKeys(subjectCounts, topSubjects)
	instructors := topKeys(instructorCounts, topInstructors)
	subjectRank := make(map[string]int, len(subjects))
	for i, s := range subjects {
		subjectRank[s] = i
	}
	instructorSet := make(map[string]struct{}, len(instructors))
	for _, s := range instructors {
		instructorSet[s] = struct{}{}
	}

	matched := make([]Paper, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		_, bySubject := subjectRank[c.Subject]
		_, byInstructor := instructorSet[c.Instructor]
		if bySubject || (c.Instructor != "" && byInstructor) {
			matched = append(matched, *c)
		}
	}
	sort.SliceStable(matched, func(a, b int) bool {
		pa, pb := &matched[a], &matched[b]
		if pa.Downloads != pb.Downloads {
			return pa.Downloads > pb.Downloads
		}
		if pa.AvgRelevance != pb.AvgRelevance {
			return pa.AvgRelevance > pb.AvgRelevance
		}
		return pa.ID < pb.ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]Result, 0, len(matched))
	for i := range matched {
		paper := matched[i]
		score := 0.0
		if rank, ok := subjectRank[paper.Subject]; ok {
			score += 0.5 * (1 - float64(rank)*0.15)
		}
		if _, ok := instructorSet[paper.Instructor]; ok && paper.Instructor != "" {
			score += 0.2
		}
		score += paper.AvgRelevance / 5 * 0.2
		score += math.Min(paper.popularity()/100*0.1, 0.1)
		out = append(out, Result{ItemID: paper.ID, Score: round4(score), Paper: &paper})
	}
	return out, nil
}

// programMatches returns the most popular candidates in the core subjects of
// program, unscored. An unknown or empty program matches nothing.
func programMatches(program string, candidates []Paper, limit int) []Result {
	subjects, ok := programSubjects[program]
	if !ok {
		return nil
	}
	set := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		set[s] = struct{}{}
	}

	matched := make([]Paper, 0, len(candidates))
	for i := range candidates {
		if _, ok := set[candidates[i].Subject]; ok {
			matched = append(matched, candidates[i])
		}
	}
	sortByPopularity(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]Result, len(matched))
	for i := range matched {
		paper := matched[i]
		out[i] = Result{ItemID: paper.ID, Paper: &paper}
	}
	return out
}

// topKeys returns the n keys with the highest counts, ties by key.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if counts[keys[a]] != counts[keys[b]] {
			return counts[keys[a]] > counts[keys[b]]
		}
		return keys[a] < keys[b]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// collaborative recommends what the closest neighbours engaged with. A
// neighbour is any other student sharing at least one paper; closeness is the
// number of shared papers.
func (p *HeuristicPredictor) collaborative(ctx context.Context, userID int, history []Interaction, candidates []Paper, limit int) ([]Result, error) {
	mine := seenItems(history)
	if len(mine) == 0 {
		return nil, nil
	}

	all, err := p.data.GetInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get interactions: %w", err)
	}

	itemsByUser := make(map[int]map[int]struct{})
	for _, r := range all {
		if r.UserID == userID {
			continue
		}
		set, ok := itemsByUser[r.UserID]
		if !ok {
			set = make(map[int]struct{})
			itemsByUser[r.UserID] = set
		}
		set[r.ItemID] = struct{}{}
	}

	type neighbour struct {
		id      int
		overlap int
	}
	neighbours := make([]neighbour, 0, len(itemsByUser))
	for uid, items := range itemsByUser {
		overlap := 0
		for id := range items {
			if _, ok := mine[id]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			neighbours = append(neighbours, neighbour{id: uid, overlap: overlap})
		}
	}
	if len(neighbours) == 0 {
		return nil, nil
	}
	sort.Slice(neighbours, func(a, b int) bool {
		if neighbours[a].overlap != neighbours[b].overlap {
			return neighbours[a].overlap > neighbours[b].overlap
		}
		return neighbours[a].id < neighbours[b].id
	})
	if len(neighbours) > p.cfg.Neighbours {
		neighbours = neighbours[:p.cfg.Neighbours]
	}

	byID := make(map[int]*Paper, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	freq := make(map[int]int)
	for _, n := range neighbours {
		for id := range itemsByUser[n.id] {
			if _, ok := mine[id]; ok {
				continue
			}
			freq[id]++
		}
	}

	ids := make([]int, 0, len(freq))
	for id := range freq {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		if freq[ids[a]] != freq[ids[b]] {
			return freq[ids[a]] > freq[ids[b]]
		}
		return ids[a] < ids[b]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}

	// The cut happens before candidate filtering, so filtered papers use up
	// slots.
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			continue
		}
		paper := *c
		score := math.Min(float64(freq[id])/float64(len(neighbours)), 1) * 0.8
		out = append(out, Result{ItemID: id, Score: round4(score), Paper: &paper})
	}
	return out, nil
}

// popularityRanked scores the most popular candidates by downloads relative
// to the best of them, plus relevance and a flat base.
func popularityRanked(candidates []Paper, limit int) []Result {
	ranked := make([]Paper, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(a, b int) bool {
		pa, pb := &ranked[a], &ranked[b]
		if pa.Downloads != pb.Downloads {
			return pa.Downloads > pb.Downloads
		}
		if pa.Views != pb.Views {
			return pa.Views > pb.Views
		}
		if pa.AvgRelevance != pb.AvgRelevance {
			return pa.AvgRelevance > pb.AvgRelevance
		}
		return pa.ID < pb.ID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	maxDownloads := 0
	for i := range ranked {
		maxDownloads = max(maxDownloads, ranked[i].Downloads)
	}
	if maxDownloads == 0 {
		maxDownloads = 1
	}

	out := make([]Result, len(ranked))
	for i := range ranked {
		paper := ranked[i]
		score := float64(paper.Downloads)/float64(maxDownloads)*0.6 + paper.AvgRelevance/5*0.3 + 0.1
		out[i] = Result{ItemID: paper.ID, Score: round4(score), Paper: &paper}
	}
	return out
}

type weightedResults struct {
	results []Result
	weight  float64
}

// mergeWeighted sums weighted scores per item, rounds, ranks and truncates.
func mergeWeighted(k int, sources ...weightedResults) []Result {
	scores := make(map[int]float64)
	papers := make(map[int]*Paper)
	for _, src := range sources {
		for _, r := range src.results {
			scores[r.ItemID] += r.Score * src.weight
			if _, ok := papers[r.ItemID]; !ok {
				papers[r.ItemID] = r.Paper
			}
		}
	}

	out := make([]Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, Result{ItemID: id, Score: round4(s), Paper: papers[id]})
	}
	sortResults(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// RecommendSimilar implements Predictor. Papers are scored on shared
// attributes with the source paper plus a capped relative-popularity bonus.
// An unknown paper yields an empty list.
func (p *HeuristicPredictor) RecommendSimilar(ctx context.Context, itemID, topK int) ([]Result, error) {
	key := p.cache.similarKey(itemID, topK)
	if cached, ok := p.cache.get(ctx, key); ok {
		return cached, nil
	}

	source, err := p.data.GetPaper(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Result{}, nil
		}
		return nil, fmt.Errorf("get paper %d: %w", itemID, err)
	}

	papers, err := p.data.ListPapers(ctx, PaperFilter{})
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}

	srcPop := math.Max(1, source.popularity())
	out := make([]Result, 0, len(papers))
	for i := range papers {
		c := papers[i]
		if c.ID == source.ID {
			continue
		}
		score := similarity(source, &c)
		score += math.Min(c.popularity()/srcPop*0.1, 0.1)
		if score > 0.1 {
			out = append(out, Result{ItemID: c.ID, Score: score, Paper: &c})
		}
	}
	sortResults(out)
	if len(out) > topK {
		out = out[:topK]
	}

	p.cache.set(ctx, key, out)
	return out, nil
}

// similarity is the attribute overlap score between two papers.
func similarity(a, b *Paper) float64 {
	score := 0.0
	if a.Subject == b.Subject {
		score += 0.4
	}
	if a.Level == b.Level {
		score += 0.2
	}
	if a.Instructor != "" && b.Instructor != "" && a.Instructor == b.Instructor {
		score += 0.15
	}
	if a.Type == b.Type {
		score += 0.1
	}
	if a.AcademicYear == b.AcademicYear {
		score += 0.05
	}
	return score
}

// InvalidateCache implements Predictor.
func (p *HeuristicPredictor) InvalidateCache(ctx context.Context, userID *int) error {
	_, err := p.cache.invalidate(ctx, userID)
	return err
}
