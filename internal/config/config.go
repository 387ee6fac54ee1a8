// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package config

import (
	"slices"
	"time"

	"github.com/tomtom215/papertrail/internal/cache"
	"github.com/tomtom215/papertrail/internal/logging"
	"github.com/tomtom215/papertrail/internal/recommend"
)

// Config holds all application configuration loaded from defaults, an
// optional config file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. .env: Loaded into the process environment when present (godotenv)
//  2. Defaults: Built-in sensible defaults for all optional settings
//  3. Config File: Optional YAML config file (config.yaml) for persistent settings
//  4. Environment Variables: Override any setting via environment variables
//
// Example - Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	db, err := database.New(&cfg.Database)
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   logging.Config  `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Cache     CacheConfig     `koanf:"cache"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port" validate:"gte=1,lte=65535"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Environment string        `koanf:"environment" validate:"oneof=development staging production"`
}

// SecurityConfig holds request limiting and CORS settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`

	// TrainInterval is the minimum spacing of manual training requests.
	TrainInterval time.Duration `koanf:"train_interval" validate:"gt=0"`

	// TrainBurst is the number of manual training requests allowed at once.
	TrainBurst int `koanf:"train_burst" validate:"gte=1"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path         string `koanf:"path" validate:"required"`
	MaxMemory    string `koanf:"max_memory"`
	Threads      int    `koanf:"threads" validate:"gte=0"` // 0 = use NumCPU
	SeedDemoData bool   `koanf:"seed_demo_data"`           // Generate a demo corpus into an empty catalog
	SkipIndexes  bool   `koanf:"skip_indexes"`
}

// RecommendConfig holds recommendation engine settings.
//
// Environment Variables:
//   - RECOMMEND_ENABLED: Serve recommendation routes (default: true)
//   - RECOMMEND_STRATEGY: learned or lite (default: learned)
//   - RECOMMEND_MODEL_PATH: Snapshot directory (default: ./ml_models)
//   - RECOMMEND_TRAIN_INTERVAL: Scheduled training interval, 0 disables (default: 24h)
//   - RECOMMEND_TRAIN_ON_STARTUP: Train once at startup (default: false)
//   - RECOMMEND_MIN_INTERACTIONS: Smallest corpus worth training on (default: 10)
type RecommendConfig struct {
	Enabled         bool                 `koanf:"enabled"`
	Strategy        string               `koanf:"strategy"`
	ModelPath       string               `koanf:"model_path"`
	TrainInterval   time.Duration        `koanf:"train_interval"`
	TrainOnStartup  bool                 `koanf:"train_on_startup"`
	TrainTimeout    time.Duration        `koanf:"train_timeout"`
	MinInteractions int                  `koanf:"min_interactions"`
	Training        TrainingConfig       `koanf:"training"`
	Lite            LiteConfig           `koanf:"lite"`
	Cache           RecommendCacheConfig `koanf:"cache"`
}

// TrainingConfig holds model hyperparameters
type TrainingConfig struct {
	Epochs                int     `koanf:"epochs"`
	BatchSize             int     `koanf:"batch_size"`
	EmbeddingDim          int     `koanf:"embedding_dim"`
	MLPLayers             []int   `koanf:"mlp_layers"`
	Dropout               float64 `koanf:"dropout"`
	LearningRate          float64 `koanf:"learning_rate"`
	WeightDecay           float64 `koanf:"weight_decay"`
	NegativeRatio         int     `koanf:"negative_ratio"`
	MaxSamplingAttempts   int     `koanf:"max_sampling_attempts"`
	TestSize              float64 `koanf:"test_size"`
	ValSize               float64 `koanf:"val_size"`
	EarlyStoppingPatience int     `koanf:"early_stopping_patience"`
	LRPatience            int     `koanf:"lr_patience"`
	LRFactor              float64 `koanf:"lr_factor"`
	GradClip              float64 `koanf:"grad_clip"`
	Seed                  int64   `koanf:"seed"`
	KeepVersions          int     `koanf:"keep_versions"`
}

// LiteConfig holds heuristic predictor settings
type LiteConfig struct {
	ContentWeight       float64 `koanf:"content_weight"`
	CollaborativeWeight float64 `koanf:"collaborative_weight"`
	PopularityWeight    float64 `koanf:"popularity_weight"`
	Neighbours          int     `koanf:"neighbours"`
}

// RecommendCacheConfig holds result cache lifetimes
type RecommendCacheConfig struct {
	PersonalizedTTL time.Duration `koanf:"personalized_ttl"`
	LiteTTL         time.Duration `koanf:"lite_ttl"`
}

// CacheConfig selects the result cache backend
type CacheConfig struct {
	Backend  string       `koanf:"backend" validate:"oneof=memory redis badger"`
	Capacity int          `koanf:"capacity" validate:"gte=0"`
	Redis    RedisConfig  `koanf:"redis"`
	Badger   BadgerConfig `koanf:"badger"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

// BadgerConfig holds the badger data directory. Empty means in-memory.
type BadgerConfig struct {
	Path string `koanf:"path"`
}

// EventsConfig holds the in-process event bus settings
type EventsConfig struct {
	// Buffer is the per-subscriber channel buffer.
	Buffer int64 `koanf:"buffer" validate:"gte=0"`
}

// RecommendEngineConfig converts the recommend section to the engine's
// configuration.
func (c *Config) RecommendEngineConfig() *recommend.Config {
	r := &c.Recommend
	t := &r.Training
	return &recommend.Config{
		Strategy:  r.Strategy,
		ModelPath: r.ModelPath,
		Training: recommend.TrainingConfig{
			Interval:              r.TrainInterval,
			OnStartup:             r.TrainOnStartup,
			Timeout:               r.TrainTimeout,
			MinInteractions:       r.MinInteractions,
			Epochs:                t.Epochs,
			BatchSize:             t.BatchSize,
			EmbeddingDim:          t.EmbeddingDim,
			MLPLayers:             slices.Clone(t.MLPLayers),
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
		Lite: recommend.LiteConfig{
			Weights: recommend.StrategyWeights{
				Content:       r.Lite.ContentWeight,
				Collaborative: r.Lite.CollaborativeWeight,
				Popularity:    r.Lite.PopularityWeight,
			},
			Neighbours: r.Lite.Neighbours,
		},
		Cache: recommend.CacheConfig{
			PersonalizedTTL: r.Cache.PersonalizedTTL,
			LiteTTL:         r.Cache.LiteTTL,
		},
	}
}

// CacheStoreConfig converts the cache section to the cache package's
// configuration.
func (c *Config) CacheStoreConfig() cache.Config {
	return cache.Config{
		Backend:       c.Cache.Backend,
		Capacity:      c.Cache.Capacity,
		RedisAddr:     c.Cache.Redis.Addr,
		RedisPassword: c.Cache.Redis.Password,
		RedisDB:       c.Cache.Redis.DB,
		BadgerPath:    c.Cache.Badger.Path,
	}
}

// Load reads configuration with the following precedence (highest to lowest):
//  1. Environment variables (including those from .env)
//  2. Config file (CONFIG_PATH, or config.yaml in a default location)
//  3. Built-in defaults
func Load() (*Config, error) {
	return LoadWithKoanf()
}
