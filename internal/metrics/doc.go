// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and are
exposed at /metrics by the API router:

	curl http://localhost:8080/metrics

# Available Metrics

Database Metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table, error_type

API Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: In-flight requests (gauge)
  - api_rate_limit_hits_total: Rejected requests (counter)
    Labels: endpoint

Recommendation Metrics:
  - recommend_requests_total: Served requests (counter)
    Labels: strategy (learned, lite), kind (user, similar), outcome
  - recommend_request_duration_seconds: Serving latency (histogram)
    Labels: strategy, kind
  - recommend_cache_hits_total / recommend_cache_misses_total (counter)
    Labels: backend (memory, redis, badger)
  - recommend_fallback_total: Popularity fallbacks (counter)
    Labels: reason (unknown_user, no_candidates, padding)

Training Metrics:
  - training_runs_total: Runs by outcome (counter)
    Labels: outcome (success, failure, rejected)
  - training_duration_seconds: Run duration (histogram)
  - training_epochs: Epochs run by the last successful run (gauge)
  - training_best_val_loss: Best validation loss of the last successful run (gauge)
  - model_eval_rmse: Test RMSE of the active model (gauge)
  - model_active_version_info: One series per active version, value 1 (gauge)

Circuit Breaker Metrics:
  - circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
    Labels: name
  - circuit_breaker_state_transitions_total (counter)
    Labels: name, from_state, to_state

# Usage

	start := time.Now()
	recs, err := engine.RecommendForUser(ctx, req)
	metrics.RecordRecommendation("lite", "user", outcome, time.Since(start))

# Thread Safety

All collectors are safe for concurrent use.
*/
package metrics
