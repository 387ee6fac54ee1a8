// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/papertrail/internal/metrics"
)

// MaxTopK is the largest accepted top_k.
const MaxTopK = 100

// Request kinds used in metrics labels.
const (
	kindUser    = "user"
	kindSimilar = "similar"
)

// Predictor produces ranked papers. LearnedPredictor and HeuristicPredictor
// are the two implementations; Config.Strategy selects one.
type Predictor interface {
	// Name returns the strategy name.
	Name() string

	// RecommendForUser ranks papers for a student. Results never exceed topK
	// and never repeat an item.
	RecommendForUser(ctx context.Context, userID, topK int, excludeSeen, filterByLevel bool) ([]Result, error)

	// RecommendSimilar ranks papers similar to itemID. An unknown item yields
	// an empty list.
	RecommendSimilar(ctx context.Context, itemID, topK int) ([]Result, error)

	// InvalidateCache drops cached results for one user, or all when userID
	// is nil.
	InvalidateCache(ctx context.Context, userID *int) error
}

// TrainingRunner executes a training run. *Pipeline implements it.
type TrainingRunner interface {
	Run(ctx context.Context, version string) (*TrainingReport, error)
}

// Engine is the caller-facing recommendation service. It validates requests,
// delegates to the configured Predictor and maps failures to the package
// sentinel errors. It is safe for concurrent use.
type Engine struct {
	cfg       *Config
	logger    zerolog.Logger
	predictor Predictor
	catalog   Catalog
	registry  Registry
	trainer   TrainingRunner

	trainMu  sync.Mutex
	training atomic.Bool
}

// NewEngine creates an engine. trainer may be nil when the process never
// trains, in which case Train fails.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, predictor Predictor, catalog Catalog, registry Registry, trainer TrainingRunner, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if predictor == nil {
		return nil, errors.New("predictor is required")
	}
	if catalog == nil || registry == nil {
		return nil, errors.New("catalog and registry are required")
	}

	return &Engine{
		cfg:       cfg,
		logger:    logger.With().Str("component", "recommend").Logger(),
		predictor: predictor,
		catalog:   catalog,
		registry:  registry,
		trainer:   trainer,
	}, nil
}

// Strategy returns the active predictor name.
func (e *Engine) Strategy() string {
	return e.predictor.Name()
}

func validateTopK(k int) error {
	if k < 1 || k > MaxTopK {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, k)
	}
	return nil
}

// mapError keeps errors callers act on and wraps everything else in
// ErrRecommendationFailed.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrModelUnavailable),
		errors.Is(err, ErrNotFound),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrRecommendationFailed, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidTopK):
		return "invalid"
	case errors.Is(err, ErrModelUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// RecommendForUser returns personalized recommendations for req.UserID.
func (e *Engine) RecommendForUser(ctx context.Context, req UserRequest) (resp *UserRecommendations, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendation(e.predictor.Name(), kindUser, outcome(err), time.Since(start))
	}()

	if err := validateTopK(req.TopK); err != nil {
		return nil, err
	}

	results, err := e.predictor.RecommendForUser(ctx, req.UserID, req.TopK, req.ExcludeSeen, req.FilterByLevel)
	if err != nil {
		e.logger.Error().Err(err).Int("user_id", req.UserID).Msg("user recommendation failed")
		return nil, mapError(err)
	}
	if results == nil {
		results = []Result{}
	}

	e.logger.Debug().
		Int("user_id", req.UserID).
		Int("count", len(results)).
		Dur("duration", time.Since(start)).
		Msg("user recommendations served")

	return &UserRecommendations{
		UserID:   req.UserID,
		Count:    len(results),
		Strategy: e.predictor.Name(),
		Results:  results,
	}, nil
}

// RecommendSimilar returns papers similar to req.ItemID. An id missing from
// the catalog returns ErrNotFound.
func (e *Engine) RecommendSimilar(ctx context.Context, req SimilarRequest) (resp *SimilarItems, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordRecommendation(e.predictor.Name(), kindSimilar, outcome(err), time.Since(start))
	}()

	if err := validateTopK(req.TopK); err != nil {
		return nil, err
	}

	if _, err := e.catalog.GetPaper(ctx, req.ItemID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("paper %d: %w", req.ItemID, ErrNotFound)
		}
		return nil, mapError(err)
	}

	results, err := e.predictor.RecommendSimilar(ctx, req.ItemID, req.TopK)
	if err != nil {
		e.logger.Error().Err(err).Int("item_id", req.ItemID).Msg("similar items failed")
		return nil, mapError(err)
	}
	if results == nil {
		results = []Result{}
	}

	return &SimilarItems{
		ItemID:   req.ItemID,
		Count:    len(results),
		Strategy: e.predictor.Name(),
		Results:  results,
	}, nil
}

// ModelStatus describes the active registry entry. With no active entry the
// status is StatusNoModel.
func (e *Engine) ModelStatus(ctx context.Context) (*ModelStatus, error) {
	status := &ModelStatus{
		Status:     StatusNoModel,
		Strategy:   e.predictor.Name(),
		IsTraining: e.training.Load(),
	}

	entry, err := e.registry.ActiveModel(ctx)
	if errors.Is(err, ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active model: %w", err)
	}

	created := entry.CreatedAt
	status.Status = StatusReady
	status.Version = entry.Version
	status.Architecture = entry.Architecture
	status.Description = entry.Description
	status.CreatedAt = &created
	status.Hyperparameters = entry.Hyperparameters

	log, err := e.registry.LatestTrainingLog(ctx, entry.Version)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("training log: %w", err)
	default:
		status.Training = log
	}
	return status, nil
}

// InvalidateCache drops cached results for one user, or all when userID is
// nil.
func (e *Engine) InvalidateCache(ctx context.Context, userID *int) error {
	if err := e.predictor.InvalidateCache(ctx, userID); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	return nil
}

// Train runs one training pipeline. Returns ErrTrainingInProgress
// immediately if another run holds the lock. The run is bounded by
// Training.Timeout.
func (e *Engine) Train(ctx context.Context) (*TrainingReport, error) {
	if e.trainer == nil {
		return nil, errors.New("training is not configured")
	}
	if err := e.acquireTrainingLock(); err != nil {
		metrics.RecordTrainingRejected()
		return nil, err
	}
	defer e.releaseTrainingLock()

	trainCtx, cancel := context.WithTimeout(ctx, e.cfg.Training.Timeout)
	defer cancel()

	e.logger.Info().Dur("timeout", e.cfg.Training.Timeout).Msg("starting model training")
	return e.trainer.Run(trainCtx, "")
}

// IsTraining reports whether a training run is in progress.
func (e *Engine) IsTraining() bool {
	return e.training.Load()
}

func (e *Engine) acquireTrainingLock() error {
	if !e.trainMu.TryLock() {
		return ErrTrainingInProgress
	}
	e.training.Store(true)
	return nil
}

func (e *Engine) releaseTrainingLock() {
	e.training.Store(false)
	e.trainMu.Unlock()
}

// reloader is implemented by predictors backed by a stored model.
type reloader interface {
	Reload()
	EnsureLoaded(ctx context.Context) error
}

// HandleModelActivated reacts to a new active model: a stored-model
// predictor reloads, and every cached result is dropped.
func (e *Engine) HandleModelActivated(ctx context.Context, ev ModelActivated) error {
	if r, ok := e.predictor.(reloader); ok {
		r.Reload()
		if err := r.EnsureLoaded(ctx); err != nil {
			return fmt.Errorf("load model %s: %w", ev.Version, err)
		}
	}
	if err := e.predictor.InvalidateCache(ctx, nil); err != nil {
		return fmt.Errorf("invalidate cache: %w", err)
	}
	metrics.SetActiveModelVersion(ev.Version)
	e.logger.Info().Str("version", ev.Version).Msg("switched to new model")
	return nil
}
