// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package api

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/papertrail/internal/database"
	"github.com/tomtom215/papertrail/internal/recommend"
)

// RecommendationService is the engine surface the handlers use.
// *recommend.Engine implements it.
type RecommendationService interface {
	RecommendForUser(ctx context.Context, req recommend.UserRequest) (*recommend.UserRecommendations, error)
	RecommendSimilar(ctx context.Context, req recommend.SimilarRequest) (*recommend.SimilarItems, error)
	ModelStatus(ctx context.Context) (*recommend.ModelStatus, error)
	InvalidateCache(ctx context.Context, userID *int) error
	Train(ctx context.Context) (*recommend.TrainingReport, error)
	IsTraining() bool
	Strategy() string
}

// HealthChecker reports database connectivity. *database.DB implements it.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// StatsSource provides interaction statistics. *database.DB implements it.
type StatsSource interface {
	GetUserStats(ctx context.Context, userID int) (*database.UserStats, error)
	GetGlobalStats(ctx context.Context) (*database.GlobalStats, error)
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_recommend.go: recommendation, status, cache and training endpoints
//   - handlers_health.go: liveness and readiness
type Handler struct {
	engine  RecommendationService
	db      HealthChecker
	stats   StatsSource
	version string

	startTime time.Time

	// bgCtx bounds background training runs; it outlives single requests.
	bgCtx  context.Context
	trainW sync.WaitGroup
}

// HandlerOption customises a Handler.
type HandlerOption func(*Handler)

// WithVersion sets the build version reported by /health.
func WithVersion(version string) HandlerOption {
	return func(h *Handler) { h.version = version }
}

// WithBackgroundContext sets the parent context of training runs started by
// POST /train. Cancelling it aborts them.
func WithBackgroundContext(ctx context.Context) HandlerOption {
	return func(h *Handler) { h.bgCtx = ctx }
}

// NewHandler creates the API handler. db and stats may be nil, in which case
// /health reports the database as disconnected and /stats fails.
func NewHandler(engine RecommendationService, db HealthChecker, stats StatsSource, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:    engine,
		db:        db,
		stats:     stats,
		version:   "dev",
		startTime: time.Now(),
		bgCtx:     context.Background(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Wait blocks until background training runs started by this handler finish.
func (h *Handler) Wait() {
	h.trainW.Wait()
}
