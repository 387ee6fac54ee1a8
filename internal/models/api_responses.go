// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope for every HTTP response.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"user_id": 42, "count": 2, "strategy": "learned", "recommendations": [...]},
//	  "metadata": {
//	    "timestamp": "2026-03-02T12:00:00Z",
//	    "request_id": "5b1c...",
//	    "query_time_ms": 4
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {
//	    "code": "MODEL_UNAVAILABLE",
//	    "message": "No trained model is available"
//	  },
//	  "metadata": {"timestamp": "2026-03-02T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Codes:
//   - VALIDATION_ERROR: a request parameter is out of range (400)
//   - INVALID_ID: a path id is not an integer (400)
//   - NOT_FOUND: the paper does not exist (404)
//   - TRAINING_IN_PROGRESS: another training run holds the lock (409)
//   - RATE_LIMIT_EXCEEDED: too many requests (429)
//   - INSUFFICIENT_DATA: the interaction log is too small to train on (422)
//   - MODEL_UNAVAILABLE: the learned strategy has no model (503)
//   - RECOMMENDATION_ERROR: a recommendation could not be computed (500)
//   - INTERNAL_ERROR: any other failure (500)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      bool    `json:"database_connected"`
	Strategy      string  `json:"strategy"`
	ModelVersion  string  `json:"model_version,omitempty"`
	IsTraining    bool    `json:"is_training"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// CacheInvalidation is the body of POST /cache/invalidate.
type CacheInvalidation struct {
	Scope  string `json:"scope"`
	UserID *int   `json:"user_id,omitempty"`
}

// TrainingAccepted is the body of POST /train when the run is started in the
// background.
type TrainingAccepted struct {
	Message   string    `json:"message"`
	StartedAt time.Time `json:"started_at"`
}
