// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

/*
Package middleware provides HTTP middleware shared by the API router.

Key Components:

  - RequestID: UUID-based request tracking, mirrored into the logging context
  - PrometheusMetrics: request count, latency and in-flight instrumentation
    labelled by chi route pattern
  - AccessLog: one structured zerolog line per request

All three use the func(http.Handler) http.Handler shape and plug directly
into chi:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)

RequestID must run before AccessLog for log lines to carry request_id.
*/
package middleware
