// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/papertrail/internal/logging"
	"github.com/tomtom215/papertrail/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/papertrail/config.yaml",
	"/etc/papertrail/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file location.
const DotEnvPathEnvVar = "DOTENV_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	rec := recommend.DefaultConfig()
	t := rec.Training
	return &Config{
		Server: ServerConfig{
			Port:        8000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
			TrainInterval:     time.Minute,
			TrainBurst:        1,
		},
		Database: DatabaseConfig{
			Path:         "./data/papertrail.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			SeedDemoData: false,
			SkipIndexes:  false,
		},
		Logging: logging.DefaultConfig(),
		Recommend: RecommendConfig{
			Enabled:         true,
			Strategy:        rec.Strategy,
			ModelPath:       rec.ModelPath,
			TrainInterval:   t.Interval,
			TrainOnStartup:  t.OnStartup,
			TrainTimeout:    t.Timeout,
			MinInteractions: t.MinInteractions,
			Training: TrainingConfig{
				Epochs:                t.Epochs,
				BatchSize:             t.BatchSize,
				EmbeddingDim:          t.EmbeddingDim,
				MLPLayers:             t.MLPLayers,
				Dropout:               t.Dropout,
				LearningRate:          t.LearningRate,
				WeightDecay:           t.WeightDecay,
				NegativeRatio:         t.NegativeRatio,
				MaxSamplingAttempts:   t.MaxSamplingAttempts,
				TestSize:              t.TestSize,
				ValSize:               t.ValSize,
				EarlyStoppingPatience: t.EarlyStoppingPatience,
				LRPatience:            t.LRPatience,
				LRFactor:              t.LRFactor,
				GradClip:              t.GradClip,
				Seed:                  t.Seed,
				KeepVersions:          t.KeepVersions,
			},
			Lite: LiteConfig{
				ContentWeight:       rec.Lite.Weights.Content,
				CollaborativeWeight: rec.Lite.Weights.Collaborative,
				PopularityWeight:    rec.Lite.Weights.Popularity,
				Neighbours:          rec.Lite.Neighbours,
			},
			Cache: RecommendCacheConfig{
				PersonalizedTTL: rec.Cache.PersonalizedTTL,
				LiteTTL:         rec.Cache.LiteTTL,
			},
		},
		Cache: CacheConfig{
			Backend:  "memory",
			Capacity: 10000,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				DB:   0,
			},
		},
		Events: EventsConfig{
			Buffer: 16,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
//
// Loading order (later sources override earlier):
//  1. .env file, copied into the process environment without overriding set variables
//  2. Built-in defaults
//  3. Config file (if exists)
//  4. Environment variables
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (if exists)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// DUCKDB_PATH -> database.path
	// RECOMMEND_STRATEGY -> recommend.strategy
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv reads DOTENV_PATH, or .env in the working directory. A missing
// file is not an error.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"recommend.training.mlp_layers",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",
	"train_rate_interval": "security.train_interval",
	"train_rate_burst":    "security.train_burst",

	// Database
	"duckdb_path":         "database.path",
	"duckdb_max_memory":   "database.max_memory",
	"duckdb_threads":      "database.threads",
	"seed_demo_data":      "database.seed_demo_data",
	"duckdb_skip_indexes": "database.skip_indexes",

	// Logging
	"log_level":        "logging.level",
	"log_format":       "logging.format",
	"log_caller":       "logging.caller",
	"log_timestamp":    "logging.timestamp",
	"log_destination":  "logging.destination",
	"log_max_size_mb":  "logging.file.max_size_mb",
	"log_max_backups":  "logging.file.max_backups",
	"log_max_age_days": "logging.file.max_age_days",
	"log_compress":     "logging.file.compress",

	// Recommendation engine
	"recommend_enabled":          "recommend.enabled",
	"recommend_strategy":         "recommend.strategy",
	"recommend_model_path":       "recommend.model_path",
	"recommend_train_interval":   "recommend.train_interval",
	"recommend_train_on_startup": "recommend.train_on_startup",
	"recommend_train_timeout":    "recommend.train_timeout",
	"recommend_min_interactions": "recommend.min_interactions",
	// Training hyperparameters
	"ncf_epochs":                  "recommend.training.epochs",
	"ncf_batch_size":              "recommend.training.batch_size",
	"ncf_embedding_dim":           "recommend.training.embedding_dim",
	"ncf_mlp_layers":              "recommend.training.mlp_layers",
	"ncf_dropout":                 "recommend.training.dropout",
	"ncf_learning_rate":           "recommend.training.learning_rate",
	"ncf_weight_decay":            "recommend.training.weight_decay",
	"ncf_negative_ratio":          "recommend.training.negative_ratio",
	"ncf_max_sampling_attempts":   "recommend.training.max_sampling_attempts",
	"ncf_test_size":               "recommend.training.test_size",
	"ncf_val_size":                "recommend.training.val_size",
	"ncf_early_stopping_patience": "recommend.training.early_stopping_patience",
	"ncf_lr_patience":             "recommend.training.lr_patience",
	"ncf_lr_factor":               "recommend.training.lr_factor",
	"ncf_grad_clip":               "recommend.training.grad_clip",
	"ncf_seed":                    "recommend.training.seed",
	"ncf_keep_versions":           "recommend.training.keep_versions",
	// Heuristic strategy
	"lite_content_weight":       "recommend.lite.content_weight",
	"lite_collaborative_weight": "recommend.lite.collaborative_weight",
	"lite_popularity_weight":    "recommend.lite.popularity_weight",
	"lite_neighbours":           "recommend.lite.neighbours",
	// Result cache lifetimes
	"recommend_cache_ttl":      "recommend.cache.personalized_ttl",
	"recommend_lite_cache_ttl": "recommend.cache.lite_ttl",

	// Cache backend
	"cache_backend":  "cache.backend",
	"cache_capacity": "cache.capacity",
	"redis_addr":     "cache.redis.addr",
	"redis_password": "cache.redis.password",
	"redis_db":       "cache.redis.db",
	"badger_path":    "cache.badger.path",

	// Events
	"event_buffer": "events.buffer",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
//   - NCF_EMBEDDING_DIM -> recommend.training.embedding_dim
//   - REDIS_ADDR -> cache.redis.addr
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile calls callback whenever the file at path changes.
// The caller is responsible for synchronising access to any configuration it
// reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
