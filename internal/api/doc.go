// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

/*
Package api exposes the recommendation engine over HTTP.

Routes (chi):

	GET  /health
	GET  /metrics
	GET  /api/v1/recommendations/users/{userID}?top_k=10&exclude_seen=true&filter_by_level=true
	GET  /api/v1/recommendations/similar/{itemID}?top_k=10
	GET  /api/v1/recommendations/status
	GET  /api/v1/recommendations/stats?user_id=42
	POST /api/v1/recommendations/cache/invalidate?user_id=42
	POST /api/v1/recommendations/train?wait=true

Every response uses the models.APIResponse envelope. Errors carry a code from
the models.APIError list; the HTTP status is derived from the recommend
sentinel errors:

	recommend.ErrInvalidTopK, validation  -> 400 VALIDATION_ERROR
	non-integer path id                   -> 400 INVALID_ID
	recommend.ErrNotFound                 -> 404 NOT_FOUND
	recommend.ErrTrainingInProgress       -> 409 TRAINING_IN_PROGRESS
	degenerate corpus                     -> 422 INSUFFICIENT_DATA
	rate limit                            -> 429 RATE_LIMIT_EXCEEDED
	recommend.ErrModelUnavailable         -> 503 MODEL_UNAVAILABLE
	recommend.ErrRecommendationFailed     -> 500 RECOMMENDATION_ERROR

POST /train starts a run in the background and answers 202. With wait=true
the handler blocks and returns the training report. The endpoint has its own
token bucket (golang.org/x/time/rate) on top of the global per-IP limit.

Middleware Stack:

	RequestID -> RealIP -> Recoverer -> AccessLog -> CORS
	  /api/v1/*: httprate per-IP limit -> security headers -> Prometheus
*/
package api
