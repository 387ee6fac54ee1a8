// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

/*
Package config provides centralized configuration management for Papertrail.

Configuration is layered with Koanf v2. Later sources override earlier ones:

 1. .env file (DOTENV_PATH, default ./.env), copied into the process
    environment without replacing variables that are already set
 2. Built-in defaults (defaultConfig)
 3. YAML config file (CONFIG_PATH, else config.yaml, config.yml,
    /etc/papertrail/config.yaml)
 4. Environment variables

Only the environment variables listed in envMappings are read; anything else
in the environment is ignored.

# Configuration Structure

  - ServerConfig: HTTP listen address, timeout and environment
  - SecurityConfig: Rate limiting, CORS and manual training throttle
  - DatabaseConfig: DuckDB file, memory and thread limits, demo seeding
  - logging.Config: Level, format and destination (lumberjack rotation)
  - RecommendConfig: Strategy, model path, training schedule and
    hyperparameters, heuristic weights, result cache lifetimes
  - CacheConfig: Result cache backend (memory, redis or badger)
  - EventsConfig: In-process event bus buffering

# Environment Variables

Server:
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 8000)
  - HTTP_TIMEOUT: Request timeout (default: 30s)
  - ENVIRONMENT: development, staging or production (default: development)

Security:
  - RATE_LIMIT_REQUESTS: Requests per window per client (default: 100)
  - RATE_LIMIT_WINDOW: Window length (default: 1m)
  - DISABLE_RATE_LIMIT: Turn request limiting off (default: false)
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - TRAIN_RATE_INTERVAL: Minimum spacing of POST /train (default: 1m)
  - TRAIN_RATE_BURST: Burst size for POST /train (default: 1)

Database:
  - DUCKDB_PATH: Database file (default: ./data/papertrail.duckdb)
  - DUCKDB_MAX_MEMORY: Memory limit (default: 1GB)
  - DUCKDB_THREADS: Worker threads, 0 for NumCPU (default: 0)
  - SEED_DEMO_DATA: Seed a demo corpus into an empty catalog (default: false)

Logging:
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_DESTINATION: stdout, stderr or a file path (default: stderr)

Recommendation engine:
  - RECOMMEND_STRATEGY: learned or lite (default: learned)
  - RECOMMEND_MODEL_PATH: Snapshot directory (default: ./ml_models)
  - RECOMMEND_TRAIN_INTERVAL: Scheduled training, 0 disables (default: 24h)
  - RECOMMEND_TRAIN_ON_STARTUP: Train once at startup (default: false)
  - RECOMMEND_CACHE_TTL: Personalized result lifetime (default: 1h)
  - NCF_*: Training hyperparameters, e.g. NCF_EPOCHS, NCF_MLP_LAYERS=128,64,32
  - LITE_*: Heuristic weights and neighbourhood size

Cache:
  - CACHE_BACKEND: memory, redis or badger (default: memory)
  - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB: Redis connection
  - BADGER_PATH: Badger directory, empty for in-memory

# Validation

Config.Validate checks struct tags through package validation, the logging
and cache settings, and the engine configuration via recommend.Config.Validate.
All problems are reported together.

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	db, err := database.New(&cfg.Database)
	engineCfg := cfg.RecommendEngineConfig()
	results, err := cache.New(cfg.CacheStoreConfig())
*/
package config
