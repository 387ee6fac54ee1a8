// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/papertrail/internal/logging"
	"github.com/tomtom215/papertrail/internal/models"
	"github.com/tomtom215/papertrail/internal/recommend"
)

// Health handles GET /health. The status is "healthy" when the database
// answers, "degraded" otherwise; the HTTP status is 503 when degraded so load
// balancers can act on it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	resp := models.HealthResponse{
		Status:        "healthy",
		Version:       h.version,
		Database:      dbConnected,
		Strategy:      h.engine.Strategy(),
		IsTraining:    h.engine.IsTraining(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if dbConnected {
		status, err := h.engine.ModelStatus(r.Context())
		switch {
		case err != nil:
			logging.Ctx(r.Context()).Warn().Err(err).Msg("model status unavailable for health check")
		case status.Status == recommend.StatusReady:
			resp.ModelVersion = status.Version
		}
	}

	code := http.StatusOK
	if !dbConnected {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondData(w, r, code, resp, start)
}

// Live handles GET /health/live. It never touches dependencies.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}
