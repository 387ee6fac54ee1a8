// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package main is the entry point for the Papertrail server.
//
// Papertrail recommends past exam papers to students from their interaction
// history (views, clicks, downloads, ratings).
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: defaults, config.yaml, .env and environment (Koanf v2)
//  2. Logging: zerolog with optional rotating file output
//  3. Database: DuckDB catalog, interaction log and model registry
//  4. Result cache: memory, Redis or Badger
//  5. Event bus: in-process model.activated notifications (Watermill)
//  6. Strategy: learned (NCF snapshot) or lite (heuristics)
//  7. Supervisor tree: training, events and API layers (suture)
//
// # Configuration
//
// Layered sources, highest priority wins:
//   - Environment variables (RECOMMEND_STRATEGY, DUCKDB_PATH, CACHE_BACKEND, ...)
//   - .env file (DOTENV_PATH)
//   - Config file (CONFIG_PATH or config.yaml)
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains
// in-flight requests, running training is cancelled, and the database and
// cache are closed.
//
// # Example Usage
//
//	export RECOMMEND_STRATEGY=lite
//	export SEED_DEMO_DATA=true
//	./papertrail
//
//	curl localhost:8000/api/v1/recommendations/users/1?top_k=5
package main
