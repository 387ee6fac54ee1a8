// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Recommendation serving and result caching
// - Model training runs
// - Circuit breaker state

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"strategy", "kind", "outcome"}, // kind: "user", "similar"; outcome: "ok", "invalid", "not_found", "unavailable", "error"
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_request_duration_seconds",
			Help:    "Recommendation request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"strategy", "kind"},
	)

	RecommendCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total number of recommendation result cache hits",
		},
		[]string{"backend"},
	)

	RecommendCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total number of recommendation result cache misses",
		},
		[]string{"backend"},
	)

	RecommendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_fallback_total",
			Help: "Total number of popularity fallbacks served",
		},
		[]string{"reason"}, // "unknown_user", "no_candidates", "padding"
	)

	// Training Metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of model training runs",
		},
		[]string{"outcome"}, // "success", "failure", "rejected"
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)

	TrainingEpochs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_epochs",
			Help: "Number of epochs run by the last successful training run",
		},
	)

	TrainingBestValLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "training_best_val_loss",
			Help: "Best validation loss of the last successful training run",
		},
	)

	ModelEvalRMSE = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_eval_rmse",
			Help: "Test RMSE of the active model",
		},
	)

	ModelActiveVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_active_version_info",
			Help: "Active model version (value is always 1)",
		},
		[]string{"version"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rejected request
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRecommendation records one served recommendation request.
func RecordRecommendation(strategy, kind, outcome string, duration time.Duration) {
	RecommendRequests.WithLabelValues(strategy, kind, outcome).Inc()
	RecommendDuration.WithLabelValues(strategy, kind).Observe(duration.Seconds())
}

// RecordCacheLookup records a result cache hit or miss.
func RecordCacheLookup(backend string, hit bool) {
	if hit {
		RecommendCacheHits.WithLabelValues(backend).Inc()
		return
	}
	RecommendCacheMisses.WithLabelValues(backend).Inc()
}

// RecordFallback records a popularity fallback.
func RecordFallback(reason string) {
	RecommendFallbacks.WithLabelValues(reason).Inc()
}

// RecordTrainingRun records the outcome of a training run. Epoch, loss and
// RMSE gauges are only updated on success.
func RecordTrainingRun(duration time.Duration, epochs int, bestValLoss, rmse float64, err error) {
	TrainingDuration.Observe(duration.Seconds())
	if err != nil {
		TrainingRuns.WithLabelValues("failure").Inc()
		return
	}
	TrainingRuns.WithLabelValues("success").Inc()
	TrainingEpochs.Set(float64(epochs))
	TrainingBestValLoss.Set(bestValLoss)
	ModelEvalRMSE.Set(rmse)
}

// RecordTrainingRejected records a training request refused because a run
// was already active.
func RecordTrainingRejected() {
	TrainingRuns.WithLabelValues("rejected").Inc()
}

// SetActiveModelVersion marks version as the only active model.
func SetActiveModelVersion(version string) {
	ModelActiveVersion.Reset()
	ModelActiveVersion.WithLabelValues(version).Set(1)
}

// RecordBreakerTransition records a circuit breaker state change. States are
// the gobreaker names: "closed", "half-open", "open".
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
