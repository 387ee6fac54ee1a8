// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/tomtom215/papertrail/internal/recommend/ncf"
)

// Sample is one labelled (user index, item index) training pair.
type Sample struct {
	User     int
	Item     int
	Score    float64
	Positive bool
}

type pairKey struct {
	u, i int
}

// Aggregate collapses tuples to one positive sample per (user, item) pair,
// keeping the strongest interaction and normalising by the corpus maximum
// weight. Tuples whose ids are not in mapping are skipped. Output is sorted by
// (user index, item index).
func Aggregate(tuples []WeightedInteraction, mapping *IndexMapping) []Sample {
	best := make(map[pairKey]float64, len(tuples))
	maxWeight := 0.0
	for _, t := range tuples {
		u, ok := mapping.UserIndex(t.UserID)
		if !ok {
			continue
		}
		i, ok := mapping.ItemIndex(t.ItemID)
		if !ok {
			continue
		}
		k := pairKey{u, i}
		if w, seen := best[k]; !seen || t.Weight > w {
			best[k] = t.Weight
		}
		maxWeight = math.Max(maxWeight, t.Weight)
	}
	if maxWeight == 0 {
		maxWeight = 1
	}

	out := make([]Sample, 0, len(best))
	for k, w := range best {
		out = append(out, Sample{User: k.u, Item: k.i, Score: w / maxWeight, Positive: true})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].User != out[b].User {
			return out[a].User < out[b].User
		}
		return out[a].Item < out[b].Item
	})
	return out
}

// SampleNegatives draws ratio*len(positives) random pairs that are not
// positive, each with score 0. Duplicate negatives are possible.
//
// Rejection sampling degrades as positives approach the size of the
// user x item space; maxAttempts bounds the loop and ErrSamplingExhausted is
// returned when it is hit or when no negative pair exists at all.
func SampleNegatives(positives []Sample, numUsers, numItems, ratio int, rng *rand.Rand, maxAttempts int) ([]Sample, error) {
	target := ratio * len(positives)
	if target <= 0 {
		return nil, nil
	}

	seen := make(map[pairKey]struct{}, len(positives))
	for _, p := range positives {
		seen[pairKey{p.User, p.Item}] = struct{}{}
	}
	space := numUsers * numItems
	if len(seen) >= space {
		return nil, fmt.Errorf("%w: positives cover all %d user-item pairs", ErrSamplingExhausted, space)
	}

	out := make([]Sample, 0, target)
	for attempts := 0; len(out) < target; attempts++ {
		if attempts >= maxAttempts {
			return nil, fmt.Errorf("%w: drew %d of %d negatives in %d attempts",
				ErrSamplingExhausted, len(out), target, maxAttempts)
		}
		u := rng.Intn(numUsers)
		i := rng.Intn(numItems)
		if _, ok := seen[pairKey{u, i}]; ok {
			continue
		}
		out = append(out, Sample{User: u, Item: i})
	}
	return out, nil
}

// Split partitions samples uniformly at random: first a test fraction, then a
// validation fraction of the remainder. Held-out sizes are rounded up.
func Split(samples []Sample, testFraction, valFraction float64, rng *rand.Rand) (train, val, test []Sample) {
	n := len(samples)
	perm := rng.Perm(n)

	nTest := int(math.Ceil(float64(n) * testFraction))
	nTest = min(nTest, n)
	test = pick(samples, perm[:nTest])
	rest := perm[nTest:]

	restRows := pick(samples, rest)
	perm = rng.Perm(len(restRows))
	nVal := int(math.Ceil(float64(len(restRows)) * valFraction))
	nVal = min(nVal, len(restRows))
	val = pick(restRows, perm[:nVal])
	train = pick(restRows, perm[nVal:])
	return train, val, test
}

func pick(samples []Sample, idx []int) []Sample {
	out := make([]Sample, len(idx))
	for k, i := range idx {
		out[k] = samples[i]
	}
	return out
}

// Examples converts samples to model training rows.
func Examples(samples []Sample) []ncf.Example {
	out := make([]ncf.Example, len(samples))
	for k, s := range samples {
		out[k] = ncf.Example{User: s.User, Item: s.Item, Rating: s.Score}
	}
	return out
}
