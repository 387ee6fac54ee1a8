// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/papertrail/internal/metrics"
	"github.com/tomtom215/papertrail/internal/recommend/ncf"
	"github.com/tomtom215/papertrail/internal/recommend/storage"
)

// Pipeline steps, in order.
const (
	StepLoad     = "load interactions"
	StepPrepare  = "prepare dataset"
	StepTrain    = "train model"
	StepEvaluate = "evaluate model"
	StepPersist  = "save and activate"
)

var pipelineSteps = []string{StepLoad, StepPrepare, StepTrain, StepEvaluate, StepPersist}

// TrainingReport summarises one pipeline run.
type TrainingReport struct {
	Version         string          `json:"version"`
	NumInteractions int             `json:"num_interactions"`
	NumUsers        int             `json:"num_users"`
	NumItems        int             `json:"num_items"`
	NumPositives    int             `json:"num_positives"`
	NumNegatives    int             `json:"num_negatives"`
	TrainSize       int             `json:"train_size"`
	ValSize         int             `json:"val_size"`
	TestSize        int             `json:"test_size"`
	History         *ncf.History    `json:"history"`
	Metrics         ncf.EvalMetrics `json:"metrics"`
	ModelPath       string          `json:"model_path"`
	Pruned          []string        `json:"pruned,omitempty"`
	Duration        time.Duration   `json:"duration"`
}

// Pipeline runs the five training steps: load, prepare, train, evaluate and
// persist. A successful run leaves exactly one active registry entry and
// publishes TopicModelActivated.
type Pipeline struct {
	cfg      TrainingConfig
	data     InteractionSource
	store    *storage.Store
	registry Registry
	events   *EventBus
	logger   zerolog.Logger

	// OnStep, if set, is called before each step with its 1-based position.
	OnStep func(step, total int, name string)

	// OnEpoch, if set, is called after every training epoch.
	OnEpoch func(ncf.EpochStats)

	now func() time.Time
}

// NewPipeline creates a training pipeline. events may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPipeline(cfg TrainingConfig, data InteractionSource, store *storage.Store, registry Registry, events *EventBus, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		data:     data,
		store:    store,
		registry: registry,
		events:   events,
		logger:   logger.With().Str("component", "training_pipeline").Logger(),
		now:      time.Now,
	}
}

// DefaultVersion returns the version tag for a run started at t.
func DefaultVersion(t time.Time) string {
	return "v_" + t.Format("20060102_150405")
}

func (p *Pipeline) step(n int) {
	name := pipelineSteps[n-1]
	p.logger.Info().Int("step", n).Int("total", len(pipelineSteps)).Msg(name)
	if p.OnStep != nil {
		p.OnStep(n, len(pipelineSteps), name)
	}
}

// Run trains, evaluates and activates a new model. An empty version selects
// DefaultVersion.
func (p *Pipeline) Run(ctx context.Context, version string) (*TrainingReport, error) {
	start := p.now()
	if version == "" {
		version = DefaultVersion(start)
	}
	if err := storage.ValidateVersion(version); err != nil {
		return nil, err
	}

	report, err := p.run(ctx, version)
	dur := time.Since(start)
	if err != nil {
		metrics.RecordTrainingRun(dur, 0, 0, 0, err)
		p.logger.Error().Err(err).Str("version", version).Dur("duration", dur).Msg("training run failed")
		return nil, err
	}
	report.Duration = dur
	metrics.RecordTrainingRun(dur, len(report.History.Epochs), report.History.BestValLoss, report.Metrics.RMSE, nil)
	metrics.SetActiveModelVersion(version)

	p.logger.Info().
		Str("version", version).
		Int("epochs", len(report.History.Epochs)).
		Float64("best_val_loss", report.History.BestValLoss).
		Float64("rmse", report.Metrics.RMSE).
		Dur("duration", dur).
		Msg("training run complete")
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, version string) (*TrainingReport, error) {
	report := &TrainingReport{Version: version}
	//nolint:gosec // math/rand is fine for sampling and shuffling
	rng := rand.New(rand.NewSource(p.cfg.Seed))

	p.step(1)
	records, err := p.data.GetInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get interactions: %w", err)
	}
	if len(records) < p.cfg.MinInteractions {
		return nil, fmt.Errorf("%w: %d interactions, need at least %d",
			ErrDegenerateCorpus, len(records), p.cfg.MinInteractions)
	}
	tuples := Extract(records)
	report.NumInteractions = len(tuples)

	p.step(2)
	mapping := NewIndexMapping(tuples)
	report.NumUsers = mapping.NumUsers()
	report.NumItems = mapping.NumItems()

	positives := Aggregate(tuples, mapping)
	negatives, err := SampleNegatives(positives, mapping.NumUsers(), mapping.NumItems(),
		p.cfg.NegativeRatio, rng, p.cfg.MaxSamplingAttempts)
	if err != nil {
		return nil, err
	}
	report.NumPositives = len(positives)
	report.NumNegatives = len(negatives)

	samples := make([]Sample, 0, len(positives)+len(negatives))
	samples = append(samples, positives...)
	samples = append(samples, negatives...)
	train, val, test := Split(samples, p.cfg.TestSize, p.cfg.ValSize, rng)
	if len(train) == 0 || len(val) == 0 || len(test) == 0 {
		return nil, fmt.Errorf("%w: split sizes train=%d val=%d test=%d",
			ErrDegenerateCorpus, len(train), len(val), len(test))
	}
	report.TrainSize, report.ValSize, report.TestSize = len(train), len(val), len(test)

	p.logger.Info().
		Int("users", report.NumUsers).
		Int("items", report.NumItems).
		Int("positives", report.NumPositives).
		Int("negatives", report.NumNegatives).
		Int("train", report.TrainSize).
		Int("val", report.ValSize).
		Int("test", report.TestSize).
		Msg("dataset prepared")

	p.step(3)
	model, err := ncf.NewModel(p.cfg.ModelConfig(mapping.NumUsers(), mapping.NumItems()), rng)
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	trainer, err := ncf.NewTrainer(p.cfg.TrainerConfig(), p.logger)
	if err != nil {
		return nil, err
	}
	trainer.OnEpoch = p.OnEpoch
	history, err := trainer.Train(ctx, model, Examples(train), Examples(val))
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	report.History = history

	p.step(4)
	eval, err := ncf.Evaluate(model, Examples(test))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	report.Metrics = eval

	p.step(5)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	meta, err := p.store.Stage(ctx, version, model.Snapshot(), mapping.Tables())
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	report.ModelPath = p.store.ModelPath(version)

	entry := &RegistryEntry{
		Version:         version,
		Description:     fmt.Sprintf("NCF model trained on %d interactions", report.NumInteractions),
		ModelPath:       report.ModelPath,
		Architecture:    meta.Architecture,
		IsActive:        true,
		Hyperparameters: p.cfg.Hyperparameters(),
		CreatedAt:       meta.SavedAt,
	}
	log := &TrainingLog{
		ModelVersion:    version,
		TrainingDate:    meta.SavedAt,
		DurationSeconds: history.Duration.Seconds(),
		NumInteractions: report.NumInteractions,
		NumUsers:        report.NumUsers,
		NumPapers:       report.NumItems,
		TrainLoss:       history.LastTrainLoss(),
		ValLoss:         history.BestValLoss,
		TestLoss:        eval.MSE,
		RMSE:            eval.RMSE,
		PrecisionAt10:   eval.Precision,
		RecallAt10:      eval.Recall,
		Notes:           fmt.Sprintf("Trained with %d epochs, stopped at epoch %d", p.cfg.Epochs, history.StopEpoch),
	}
	// The latest aliases move only once the registry agrees.
	if err := p.registry.ActivateModel(ctx, entry, log); err != nil {
		if derr := p.store.Delete(context.WithoutCancel(ctx), version); derr != nil {
			p.logger.Warn().Err(derr).Str("version", version).Msg("staged snapshot not removed")
		}
		return nil, fmt.Errorf("activate model: %w", err)
	}
	if err := p.store.Promote(context.WithoutCancel(ctx), version); err != nil {
		return nil, fmt.Errorf("promote snapshot: %w", err)
	}

	pruned, err := p.store.Prune(ctx, p.cfg.KeepVersions)
	if err != nil {
		p.logger.Warn().Err(err).Msg("snapshot pruning failed")
	}
	report.Pruned = pruned

	if p.events != nil {
		ev := ModelActivated{Version: version, ActivatedAt: meta.SavedAt}
		if err := p.events.PublishModelActivated(ctx, ev); err != nil {
			p.logger.Warn().Err(err).Msg("model activation event not published")
		}
	}
	return report, nil
}

// IsDegenerate reports whether err means the corpus was too small to train on.
func IsDegenerate(err error) bool {
	return errors.Is(err, ErrDegenerateCorpus) || errors.Is(err, ErrSamplingExhausted)
}
