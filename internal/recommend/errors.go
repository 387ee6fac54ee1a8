// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import "errors"

var (
	// ErrModelUnavailable is returned when no trained model snapshot (or its
	// id mapping) can be loaded.
	ErrModelUnavailable = errors.New("recommendation model unavailable")

	// ErrInvalidTopK is returned when top_k is outside [1, MaxTopK].
	ErrInvalidTopK = errors.New("top_k must be between 1 and 100")

	// ErrNotFound is returned when a referenced paper does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDegenerateCorpus is returned when the interaction corpus cannot
	// produce non-empty training, validation and test splits.
	ErrDegenerateCorpus = errors.New("degenerate training corpus")

	// ErrSamplingExhausted is returned when negative sampling cannot reach
	// its target count.
	ErrSamplingExhausted = errors.New("negative sampling exhausted")

	// ErrTrainingInProgress is returned when a training run is already active.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrRecommendationFailed wraps unexpected predictor failures.
	ErrRecommendationFailed = errors.New("recommendation failed")
)
