// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package recommend recommends exam papers to students.
//
// # Strategies
//
// Two Predictor implementations are available, selected by Config.Strategy:
//
//   - learned: LearnedPredictor scores papers with a trained neural
//     collaborative filtering model (package ncf) loaded from the snapshot
//     store (package storage).
//   - lite: HeuristicPredictor blends content matching, a neighbourhood vote
//     and popularity. It needs no training.
//
// Students unknown to the active strategy receive popular papers.
//
// # Training
//
// Pipeline turns the interaction log into a model in five steps:
//
//  1. Load interactions and convert them to weighted tuples (Extract).
//  2. Build the id mapping, aggregate positives, sample negatives and split
//     into train, validation and test sets.
//  3. Train with early stopping.
//  4. Evaluate MSE, RMSE, precision and recall on the test split.
//  5. Save the snapshot, activate it in the Registry, prune old versions and
//     publish TopicModelActivated.
//
// # Usage
//
//	predictor := recommend.NewLearnedPredictor(store, db, results, cfg.Cache.PersonalizedTTL, logger)
//	pipeline := recommend.NewPipeline(cfg.Training, db, store, db, bus, logger)
//	engine, err := recommend.NewEngine(cfg, predictor, db, db, pipeline, logger)
//
//	recs, err := engine.RecommendForUser(ctx, recommend.UserRequest{
//	    UserID:        42,
//	    TopK:          10,
//	    ExcludeSeen:   true,
//	    FilterByLevel: true,
//	})
//
// # Errors
//
// Engine returns ErrInvalidTopK before any scoring, ErrModelUnavailable when
// the learned strategy has no snapshot, ErrNotFound for unknown papers and
// ErrRecommendationFailed for everything else.
//
// # Thread Safety
//
// Engine, both predictors and Pipeline are safe for concurrent use. Only one
// training run is active at a time; a concurrent Train call returns
// ErrTrainingInProgress.
package recommend
