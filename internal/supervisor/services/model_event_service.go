// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/papertrail/internal/recommend"
)

// ModelEventSource delivers model activation events. *recommend.EventBus
// implements it.
type ModelEventSource interface {
	OnModelActivated(ctx context.Context, handler func(context.Context, recommend.ModelActivated) error) error
}

// ModelActivationHandler reacts to a newly active model.
// *recommend.Engine implements it.
type ModelActivationHandler interface {
	HandleModelActivated(ctx context.Context, ev recommend.ModelActivated) error
}

// ModelEventService keeps the serving predictor in step with the registry
// by forwarding activation events to the engine.
type ModelEventService struct {
	source  ModelEventSource
	handler ModelActivationHandler
	logger  zerolog.Logger
	name    string
}

// NewModelEventService creates the activation subscriber.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewModelEventService(source ModelEventSource, handler ModelActivationHandler, logger zerolog.Logger) *ModelEventService {
	return &ModelEventService{
		source:  source,
		handler: handler,
		logger:  logger.With().Str("service", "model-events").Logger(),
		name:    "model-event-service",
	}
}

// Serve implements suture.Service. The subscription lives until ctx is
// cancelled; a restart subscribes again.
func (s *ModelEventService) Serve(ctx context.Context) error {
	err := s.source.OnModelActivated(ctx, func(ctx context.Context, ev recommend.ModelActivated) error {
		s.logger.Info().Str("version", ev.Version).Msg("model activated, reloading")
		return s.handler.HandleModelActivated(ctx, ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe to model activations: %w", err)
	}

	<-ctx.Done()
	return ctx.Err()
}

// String returns the service name for logging.
func (s *ModelEventService) String() string {
	return s.name
}
