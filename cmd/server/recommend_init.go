// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/papertrail/internal/cache"
	"github.com/tomtom215/papertrail/internal/config"
	"github.com/tomtom215/papertrail/internal/database"
	"github.com/tomtom215/papertrail/internal/metrics"
	"github.com/tomtom215/papertrail/internal/recommend"
	"github.com/tomtom215/papertrail/internal/recommend/storage"
	"github.com/tomtom215/papertrail/internal/supervisor"
	"github.com/tomtom215/papertrail/internal/supervisor/services"
)

// RecommendComponents holds all recommendation-related components.
type RecommendComponents struct {
	Engine *recommend.Engine
	Events *recommend.EventBus
}

// initRecommend builds the predictor for the configured strategy, the
// training pipeline and the engine, and registers the training and event
// services with the tree. With recommendations disabled the engine still
// serves, but never trains.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRecommend(ctx context.Context, cfg *config.Config, db *database.DB, results cache.Store, tree *supervisor.SupervisorTree, logger zerolog.Logger) (*RecommendComponents, error) {
	rcfg := cfg.RecommendEngineConfig()

	logger.Info().
		Str("strategy", rcfg.Strategy).
		Str("model_path", rcfg.ModelPath).
		Bool("training_enabled", cfg.Recommend.Enabled).
		Dur("train_interval", rcfg.Training.Interval).
		Bool("train_on_startup", rcfg.Training.OnStartup).
		Msg("initializing recommendation engine")

	store, err := storage.NewStore(rcfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	events := recommend.NewEventBus(cfg.Events.Buffer, logger)

	var predictor recommend.Predictor
	switch rcfg.Strategy {
	case recommend.StrategyLite:
		predictor = recommend.NewHeuristicPredictor(db, rcfg.Lite, results, rcfg.Cache.LiteTTL, logger)
	default:
		learned := recommend.NewLearnedPredictor(store, db, results, rcfg.Cache.PersonalizedTTL, logger)
		if err := learned.EnsureLoaded(ctx); err != nil {
			logger.Warn().Err(err).Msg("no trained model yet, learned recommendations unavailable until training completes")
		} else {
			metrics.SetActiveModelVersion(learned.Version())
		}
		predictor = learned
	}

	var trainer recommend.TrainingRunner
	if cfg.Recommend.Enabled {
		trainer = recommend.NewPipeline(rcfg.Training, db, store, db, events, logger)
	}

	engine, err := recommend.NewEngine(rcfg, predictor, db, db, trainer, logger)
	if err != nil {
		_ = events.Close()
		return nil, fmt.Errorf("create recommendation engine: %w", err)
	}

	tree.AddEventService(services.NewModelEventService(events, engine, logger))

	if cfg.Recommend.Enabled {
		tree.AddTrainingService(services.NewRecommendService(engine, services.RecommendServiceConfig{
			TrainOnStartup: rcfg.Training.OnStartup,
			TrainInterval:  rcfg.Training.Interval,
		}, logger))
		logger.Info().Msg("training service added to supervisor tree")
	} else {
		logger.Info().Msg("Scheduled training disabled (RECOMMEND_ENABLED=false)")
	}

	return &RecommendComponents{Engine: engine, Events: events}, nil
}
