// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/papertrail/internal/database"
	"github.com/tomtom215/papertrail/internal/logging"
	"github.com/tomtom215/papertrail/internal/models"
	"github.com/tomtom215/papertrail/internal/recommend"
)

// respondParamError writes a 400 for a malformed parameter.
func respondParamError(w http.ResponseWriter, r *http.Request, code string, err error) {
	respondError(w, r, http.StatusBadRequest, code, err.Error(), nil)
}

// UserRecommendations handles GET /api/v1/recommendations/users/{userID}.
//
// Query parameters:
//   - top_k: number of results, 1-100 (default 10)
//   - exclude_seen: drop papers the student interacted with (default true)
//   - filter_by_level: keep papers at or below the student's level (default true)
func (h *Handler) UserRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathID(r, "userID")
	if err != nil {
		respondParamError(w, r, CodeInvalidID, err)
		return
	}

	req := recommend.UserRequest{UserID: userID}
	if req.TopK, err = queryInt(r, "top_k", DefaultTopK); err != nil {
		respondParamError(w, r, CodeValidation, err)
		return
	}
	if req.ExcludeSeen, err = queryBool(r, "exclude_seen", true); err != nil {
		respondParamError(w, r, CodeValidation, err)
		return
	}
	if req.FilterByLevel, err = queryBool(r, "filter_by_level", true); err != nil {
		respondParamError(w, r, CodeValidation, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	recs, err := h.engine.RecommendForUser(r.Context(), req)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, recs, start)
}

// SimilarPapers handles GET /api/v1/recommendations/similar/{itemID}.
// An unknown paper id returns 404.
func (h *Handler) SimilarPapers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondParamError(w, r, CodeInvalidID, err)
		return
	}

	req := recommend.SimilarRequest{ItemID: itemID}
	if req.TopK, err = queryInt(r, "top_k", DefaultTopK); err != nil {
		respondParamError(w, r, CodeValidation, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidation(w, r, apiErr)
		return
	}

	items, err := h.engine.RecommendSimilar(r.Context(), req)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, items, start)
}

// ModelStatus handles GET /api/v1/recommendations/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	status, err := h.engine.ModelStatus(r.Context())
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, status, start)
}

// InvalidateCache handles POST /api/v1/recommendations/cache/invalidate.
// With user_id only that student's results are dropped.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := queryOptionalInt(r, "user_id")
	if err != nil {
		respondParamError(w, r, CodeValidation, err)
		return
	}

	if err := h.engine.InvalidateCache(r.Context(), userID); err != nil {
		respondEngineError(w, r, err)
		return
	}

	body := models.CacheInvalidation{Scope: "all"}
	if userID != nil {
		body = models.CacheInvalidation{Scope: "user", UserID: userID}
	}
	logging.Ctx(r.Context()).Info().Str("scope", body.Scope).Msg("recommendation cache invalidated")
	respondData(w, r, http.StatusOK, body, start)
}

// Train handles POST /api/v1/recommendations/train.
//
// By default the run starts in the background and the handler answers 202.
// With wait=true it blocks and returns the TrainingReport.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	wait, err := queryBool(r, "wait", false)
	if err != nil {
		respondParamError(w, r, CodeValidation, err)
		return
	}

	if h.engine.IsTraining() {
		respondEngineError(w, r, recommend.ErrTrainingInProgress)
		return
	}

	if wait {
		report, err := h.engine.Train(r.Context())
		if err != nil {
			respondEngineError(w, r, err)
			return
		}
		respondData(w, r, http.StatusOK, report, start)
		return
	}

	logger := logging.Ctx(r.Context()).With().Str("component", "api_train").Logger()
	h.trainW.Add(1)
	go func() {
		defer h.trainW.Done()
		report, err := h.engine.Train(h.bgCtx)
		switch {
		case err == nil:
			logger.Info().Str("version", report.Version).Dur("duration", report.Duration).Msg("background training complete")
		case errors.Is(err, recommend.ErrTrainingInProgress):
			logger.Info().Msg("background training skipped, another run is active")
		case recommend.IsDegenerate(err):
			logger.Warn().Err(err).Msg("background training skipped, not enough data")
		default:
			logger.Error().Err(err).Msg("background training failed")
		}
	}()

	respondData(w, r, http.StatusAccepted, models.TrainingAccepted{
		Message:   "Training started",
		StartedAt: start.UTC(),
	}, start)
}

// statsResponse is the body of GET /stats.
type statsResponse struct {
	User   *database.UserStats   `json:"user_stats,omitempty"`
	Global *database.GlobalStats `json:"global_stats"`
}

// Stats handles GET /api/v1/recommendations/stats. user_id adds that
// student's interaction summary to the catalog totals.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.stats == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeServiceNotReady, "Statistics are not available", nil)
		return
	}

	userID, err := queryOptionalInt(r, "user_id")
	if err != nil {
		respondParamError(w, r, CodeValidation, err)
		return
	}

	var resp statsResponse
	if userID != nil {
		if resp.User, err = h.stats.GetUserStats(r.Context(), *userID); err != nil {
			respondEngineError(w, r, err)
			return
		}
	}
	if resp.Global, err = h.stats.GetGlobalStats(r.Context()); err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondData(w, r, http.StatusOK, resp, start)
}
