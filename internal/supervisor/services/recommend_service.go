// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/papertrail/internal/recommend"
)

// ModelTrainer runs one training pipeline. *recommend.Engine implements it.
type ModelTrainer interface {
	Train(ctx context.Context) (*recommend.TrainingReport, error)
}

// RecommendServiceConfig holds configuration for the training service.
type RecommendServiceConfig struct {
	// TrainOnStartup triggers training when the service starts.
	TrainOnStartup bool

	// TrainInterval is how often to retrain. Zero or negative disables
	// scheduled training.
	TrainInterval time.Duration
}

// RecommendService runs scheduled model training under suture supervision.
type RecommendService struct {
	engine ModelTrainer
	config RecommendServiceConfig
	logger zerolog.Logger
	name   string
}

// NewRecommendService creates a new training service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommendService(engine ModelTrainer, cfg RecommendServiceConfig, logger zerolog.Logger) *RecommendService {
	return &RecommendService{
		engine: engine,
		config: cfg,
		logger: logger.With().Str("service", "recommend").Logger(),
		name:   "recommend-service",
	}
}

// Serve implements the suture.Service interface. Training failures are
// logged and never end the service.
func (s *RecommendService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("recommendation service starting")

	if s.config.TrainOnStartup {
		s.logger.Info().Msg("training model on startup")
		s.train(ctx)
	}

	if s.config.TrainInterval <= 0 {
		s.logger.Info().Msg("scheduled training disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("recommendation service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.logger.Debug().Msg("scheduled training triggered")
			s.train(ctx)
		}
	}
}

// train performs one training cycle and logs its outcome.
func (s *RecommendService) train(ctx context.Context) {
	start := time.Now()

	report, err := s.engine.Train(ctx)
	switch {
	case err == nil:
		s.logger.Info().
			Str("version", report.Version).
			Float64("rmse", report.Metrics.RMSE).
			Dur("duration", time.Since(start)).
			Msg("model training complete")
	case errors.Is(err, recommend.ErrTrainingInProgress):
		s.logger.Info().Msg("training already running, skipping cycle")
	case recommend.IsDegenerate(err):
		s.logger.Warn().Err(err).Msg("not enough interaction data to train")
	case ctx.Err() != nil:
		s.logger.Debug().Err(err).Msg("training cancelled")
	default:
		s.logger.Error().Err(err).Msg("model training failed, will retry on schedule")
	}
}

// String returns the service name for logging.
func (s *RecommendService) String() string {
	return s.name
}
