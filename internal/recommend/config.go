// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/papertrail/internal/recommend/ncf"
)

// Strategy names.
const (
	StrategyLearned = "learned"
	StrategyLite    = "lite"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Strategy selects the predictor: "learned" or "lite".
	Strategy string `json:"strategy"`

	// ModelPath is the snapshot directory.
	ModelPath string `json:"model_path"`

	// Training contains the training schedule and hyperparameters.
	Training TrainingConfig `json:"training"`

	// Lite contains the heuristic predictor parameters.
	Lite LiteConfig `json:"lite"`

	// Cache contains result cache TTLs.
	Cache CacheConfig `json:"cache"`
}

// TrainingConfig contains training schedule parameters and model
// hyperparameters.
type TrainingConfig struct {
	// Interval is the time between scheduled runs. Zero disables scheduling.
	// Default: 24h.
	Interval time.Duration `json:"interval"`

	// OnStartup runs training once when the service starts.
	OnStartup bool `json:"on_startup"`

	// Timeout bounds a single run.
	// Default: 30m.
	Timeout time.Duration `json:"timeout"`

	// MinInteractions is the smallest corpus worth training on.
	// Default: 10.
	MinInteractions int `json:"min_interactions"`

	// Epochs is the maximum number of epochs.
	// Default: 50.
	Epochs int `json:"epochs"`

	// BatchSize is the mini-batch size.
	// Default: 256.
	BatchSize int `json:"batch_size"`

	// EmbeddingDim is the width of each embedding table.
	// Default: 64.
	EmbeddingDim int `json:"embedding_dim"`

	// MLPLayers are the hidden layer widths of the deep tower.
	// Default: [128, 64, 32].
	MLPLayers []int `json:"mlp_layers"`

	// Dropout is the drop probability after each hidden layer.
	// Default: 0.2.
	Dropout float64 `json:"dropout"`

	// LearningRate is the initial Adam step size.
	// Default: 0.001.
	LearningRate float64 `json:"learning_rate"`

	// WeightDecay is the L2 penalty.
	// Default: 1e-5.
	WeightDecay float64 `json:"weight_decay"`

	// NegativeRatio is the number of negatives drawn per positive.
	// Default: 4.
	NegativeRatio int `json:"negative_ratio"`

	// MaxSamplingAttempts bounds negative sampling.
	// Default: 10000000.
	MaxSamplingAttempts int `json:"max_sampling_attempts"`

	// TestSize is the held-out test fraction.
	// Default: 0.2.
	TestSize float64 `json:"test_size"`

	// ValSize is the validation fraction of the non-test remainder.
	// Default: 0.1.
	ValSize float64 `json:"val_size"`

	// EarlyStoppingPatience is the number of non-improving epochs tolerated.
	// Default: 10.
	EarlyStoppingPatience int `json:"early_stopping_patience"`

	// LRPatience is the number of non-improving epochs before the learning
	// rate is halved.
	// Default: 5.
	LRPatience int `json:"lr_patience"`

	// LRFactor multiplies the learning rate on each cut.
	// Default: 0.5.
	LRFactor float64 `json:"lr_factor"`

	// GradClip is the maximum global gradient norm.
	// Default: 5.0.
	GradClip float64 `json:"grad_clip"`

	// Seed drives sampling, splitting, initialisation and shuffling.
	// Default: 42.
	Seed int64 `json:"seed"`

	// KeepVersions is the number of snapshot versions retained on disk.
	// Default: 5.
	KeepVersions int `json:"keep_versions"`
}

// LiteConfig contains heuristic predictor parameters.
type LiteConfig struct {
	// Weights blend the three heuristic strategies.
	Weights StrategyWeights `json:"weights"`

	// Neighbours is the number of overlapping students consulted by the
	// collaborative strategy.
	// Default: 20.
	Neighbours int `json:"neighbours"`
}

// StrategyWeights are the fusion weights of the heuristic strategies.
type StrategyWeights struct {
	Content       float64 `json:"content"`
	Collaborative float64 `json:"collaborative"`
	Popularity    float64 `json:"popularity"`
}

// CacheConfig contains result cache TTLs.
type CacheConfig struct {
	// PersonalizedTTL is the lifetime of learned predictor results.
	// Default: 1h.
	PersonalizedTTL time.Duration `json:"personalized_ttl"`

	// LiteTTL is the lifetime of heuristic predictor results.
	// Default: 5m.
	LiteTTL time.Duration `json:"lite_ttl"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Strategy:  StrategyLearned,
		ModelPath: "./ml_models",
		Training: TrainingConfig{
			Interval:              24 * time.Hour,
			OnStartup:             false,
			Timeout:               30 * time.Minute,
			MinInteractions:       10,
			Epochs:                50,
			BatchSize:             256,
			EmbeddingDim:          64,
			MLPLayers:             []int{128, 64, 32},
			Dropout:               0.2,
			LearningRate:          1e-3,
			WeightDecay:           1e-5,
			NegativeRatio:         4,
			MaxSamplingAttempts:   10_000_000,
			TestSize:              0.2,
			ValSize:               0.1,
			EarlyStoppingPatience: 10,
			LRPatience:            5,
			LRFactor:              0.5,
			GradClip:              5.0,
			Seed:                  42,
			KeepVersions:          5,
		},
		Lite: LiteConfig{
			Weights: StrategyWeights{
				Content:       0.5,
				Collaborative: 0.3,
				Popularity:    0.2,
			},
			Neighbours: 20,
		},
		Cache: CacheConfig{
			PersonalizedTTL: time.Hour,
			LiteTTL:         5 * time.Minute,
		},
	}
}

// Validate checks the configuration for errors. All problems are reported.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Strategy == StrategyLearned || c.Strategy == StrategyLite,
		"strategy must be %q or %q, got %q", StrategyLearned, StrategyLite, c.Strategy)
	check(c.ModelPath != "", "model_path must not be empty")

	t := &c.Training
	check(t.Interval >= 0, "training.interval must be non-negative, got %v", t.Interval)
	check(t.Timeout > 0, "training.timeout must be positive, got %v", t.Timeout)
	check(t.MinInteractions >= 0, "training.min_interactions must be non-negative, got %d", t.MinInteractions)
	check(t.Epochs >= 1, "training.epochs must be positive, got %d", t.Epochs)
	check(t.BatchSize >= 1, "training.batch_size must be positive, got %d", t.BatchSize)
	check(t.EmbeddingDim >= 1, "training.embedding_dim must be positive, got %d", t.EmbeddingDim)
	check(len(t.MLPLayers) > 0, "training.mlp_layers must not be empty")
	for i, w := range t.MLPLayers {
		check(w >= 1, "training.mlp_layers[%d] must be positive, got %d", i, w)
	}
	check(t.Dropout >= 0 && t.Dropout < 1, "training.dropout must be in [0, 1), got %f", t.Dropout)
	check(t.LearningRate > 0, "training.learning_rate must be positive, got %f", t.LearningRate)
	check(t.WeightDecay >= 0, "training.weight_decay must be non-negative, got %f", t.WeightDecay)
	check(t.NegativeRatio >= 0, "training.negative_ratio must be non-negative, got %d", t.NegativeRatio)
	check(t.MaxSamplingAttempts >= 1, "training.max_sampling_attempts must be positive, got %d", t.MaxSamplingAttempts)
	check(t.TestSize > 0 && t.TestSize < 1, "training.test_size must be in (0, 1), got %f", t.TestSize)
	check(t.ValSize > 0 && t.ValSize < 1, "training.val_size must be in (0, 1), got %f", t.ValSize)
	check(t.EarlyStoppingPatience >= 1, "training.early_stopping_patience must be positive, got %d", t.EarlyStoppingPatience)
	check(t.LRPatience >= 0, "training.lr_patience must be non-negative, got %d", t.LRPatience)
	check(t.LRFactor > 0 && t.LRFactor < 1, "training.lr_factor must be in (0, 1), got %f", t.LRFactor)
	check(t.GradClip >= 0, "training.grad_clip must be non-negative, got %f", t.GradClip)
	check(t.KeepVersions >= 1, "training.keep_versions must be positive, got %d", t.KeepVersions)

	w := c.Lite.Weights
	check(w.Content >= 0 && w.Collaborative >= 0 && w.Popularity >= 0,
		"lite.weights must be non-negative, got %+v", w)
	check(c.Lite.Neighbours >= 1, "lite.neighbours must be positive, got %d", c.Lite.Neighbours)

	check(c.Cache.PersonalizedTTL >= 0, "cache.personalized_ttl must be non-negative, got %v", c.Cache.PersonalizedTTL)
	check(c.Cache.LiteTTL >= 0, "cache.lite_ttl must be non-negative, got %v", c.Cache.LiteTTL)

	return errors.Join(errs...)
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Training.MLPLayers = slices.Clone(c.Training.MLPLayers)
	return &out
}

// ModelConfig returns the network shape for a corpus of the given size.
func (t *TrainingConfig) ModelConfig(numUsers, numItems int) ncf.Config {
	return ncf.Config{
		NumUsers:     numUsers,
		NumItems:     numItems,
		EmbeddingDim: t.EmbeddingDim,
		Layers:       slices.Clone(t.MLPLayers),
		Dropout:      t.Dropout,
	}
}

// TrainerConfig returns the optimiser settings.
func (t *TrainingConfig) TrainerConfig() ncf.TrainerConfig {
	cfg := ncf.DefaultTrainerConfig()
	cfg.Epochs = t.Epochs
	cfg.BatchSize = t.BatchSize
	cfg.LearningRate = t.LearningRate
	cfg.WeightDecay = t.WeightDecay
	cfg.GradClip = t.GradClip
	cfg.EarlyStoppingPatience = t.EarlyStoppingPatience
	cfg.LRPatience = t.LRPatience
	cfg.LRFactor = t.LRFactor
	cfg.Seed = t.Seed
	return cfg
}

// Hyperparameters returns the values recorded in the model registry.
func (t *TrainingConfig) Hyperparameters() map[string]any {
	return map[string]any{
		"embedding_dim":    t.EmbeddingDim,
		"mlp_layers":       slices.Clone(t.MLPLayers),
		"dropout":          t.Dropout,
		"learning_rate":    t.LearningRate,
		"weight_decay":     t.WeightDecay,
		"batch_size":       t.BatchSize,
		"epochs":           t.Epochs,
		"negative_samples": t.NegativeRatio,
		"seed":             t.Seed,
	}
}

// MarshalJSON implements custom JSON marshaling for duration fields.
func (c *Config) MarshalJSON() ([]byte, error) {
	type trainingAlias TrainingConfig
	type alias Config
	return json.Marshal(&struct {
		*alias
		Training struct {
			*trainingAlias
			Interval string `json:"interval"`
			Timeout  string `json:"timeout"`
		} `json:"training"`
		Cache struct {
			PersonalizedTTL string `json:"personalized_ttl"`
			LiteTTL         string `json:"lite_ttl"`
		} `json:"cache"`
	}{
		alias: (*alias)(c),
		Training: struct {
			*trainingAlias
			Interval string `json:"interval"`
			Timeout  string `json:"timeout"`
		}{
			trainingAlias: (*trainingAlias)(&c.Training),
			Interval:      c.Training.Interval.String(),
			Timeout:       c.Training.Timeout.String(),
		},
		Cache: struct {
			PersonalizedTTL string `json:"personalized_ttl"`
			LiteTTL         string `json:"lite_ttl"`
		}{
			PersonalizedTTL: c.Cache.PersonalizedTTL.String(),
			LiteTTL:         c.Cache.LiteTTL.String(),
		},
	})
}
