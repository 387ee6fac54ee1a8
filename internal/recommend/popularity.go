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
)

// round4 rounds x to four decimal places.
func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// sortByPopularity orders papers by downloads, then views, descending. Ties
// are broken by ascending id.
func sortByPopularity(papers []Paper) {
	sort.SliceStable(papers, func(a, b int) bool {
		pa, pb := &papers[a], &papers[b]
		if pa.Downloads != pb.Downloads {
			return pa.Downloads > pb.Downloads
		}
		if pa.Views != pb.Views {
			return pa.Views > pb.Views
		}
		return pa.ID < pb.ID
	})
}

// sortResults orders results by score descending, ties by ascending item id.
func sortResults(results []Result) {
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		return results[a].ItemID < results[b].ItemID
	})
}

// popularResults returns up to k results from papers, which must already be
// in popularity order, each scored (2*downloads+views)/100.
func popularResults(papers []Paper, k int, skip map[int]struct{}) []Result {
	out := make([]Result, 0, min(k, len(papers)))
	for i := range papers {
		if len(out) == k {
			break
		}
		if _, ok := skip[papers[i].ID]; ok {
			continue
		}
		p := papers[i]
		out = append(out, Result{
			ItemID: p.ID,
			Score:  p.popularity() / 100,
			Paper:  &p,
		})
	}
	return out
}

// popularPapers lists papers allowed at level in popularity order.
func popularPapers(ctx context.Context, catalog Catalog, level Level) ([]Paper, error) {
	papers, err := catalog.ListPapers(ctx, PaperFilter{MaxLevel: level})
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	sortByPopularity(papers)
	return papers, nil
}

// lookupStudent returns the student profile, or nil when the user is not in
// the catalog.
func lookupStudent(ctx context.Context, catalog Catalog, userID int) (*Student, error) {
	s, err := catalog.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return s, nil
}

// seenItems returns the distinct item ids in records.
func seenItems(records []Interaction) map[int]struct{} {
	seen := make(map[int]struct{}, len(records))
	for _, r := range records {
		seen[r.ItemID] = struct{}{}
	}
	return seen
}
