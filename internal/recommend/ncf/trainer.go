// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package ncf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RelevanceThreshold separates relevant from non-relevant scores when
// computing precision and recall. Both predictions and targets are compared
// with >=.
const RelevanceThreshold = 0.5

// Example is one (user index, item index, target) training row.
type Example struct {
	User   int
	Item   int
	Rating float64
}

// TrainerState is the lifecycle state of a Trainer.
type TrainerState string

// Trainer states.
const (
	StateIdle         TrainerState = "idle"
	StateTraining     TrainerState = "training"
	StateConverged    TrainerState = "converged"
	StateExhausted    TrainerState = "exhausted"
	StateEarlyStopped TrainerState = "early-stopped"
)

// TrainerConfig holds optimisation hyperparameters.
type TrainerConfig struct {
	// Epochs is the maximum number of passes over the training split.
	Epochs int

	// BatchSize is the mini-batch size.
	BatchSize int

	// LearningRate is the initial Adam step size.
	LearningRate float64

	// WeightDecay is the L2 penalty added to every gradient.
	WeightDecay float64

	// GradClip is the maximum global gradient norm. Zero disables clipping.
	GradClip float64

	// EarlyStoppingPatience is the number of consecutive non-improving
	// validation epochs tolerated before stopping.
	EarlyStoppingPatience int

	// LRPatience is the number of non-improving epochs tolerated before the
	// learning rate is cut.
	LRPatience int

	// LRFactor multiplies the learning rate on each cut.
	LRFactor float64

	// ConvergenceLoss stops training once validation loss falls to or below
	// it. Zero disables the check.
	ConvergenceLoss float64

	// Seed drives shuffling and dropout.
	Seed int64
}

// DefaultTrainerConfig returns the default optimisation settings.
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		Epochs:                50,
		BatchSize:             256,
		LearningRate:          1e-3,
		WeightDecay:           1e-5,
		GradClip:              5.0,
		EarlyStoppingPatience: 10,
		LRPatience:            5,
		LRFactor:              0.5,
		ConvergenceLoss:       1e-8,
		Seed:                  42,
	}
}

// Validate checks the configuration for errors.
func (c *TrainerConfig) Validate() error {
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be positive, got %f", c.LearningRate)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must be non-negative, got %f", c.WeightDecay)
	}
	if c.GradClip < 0 {
		return fmt.Errorf("grad_clip must be non-negative, got %f", c.GradClip)
	}
	if c.EarlyStoppingPatience < 1 {
		return fmt.Errorf("early_stopping_patience must be positive, got %d", c.EarlyStoppingPatience)
	}
	if c.LRPatience < 0 {
		return fmt.Errorf("lr_patience must be non-negative, got %d", c.LRPatience)
	}
	if c.LRFactor <= 0 || c.LRFactor >= 1 {
		return fmt.Errorf("lr_factor must be in (0, 1), got %f", c.LRFactor)
	}
	return nil
}

// EpochStats describes one completed epoch.
type EpochStats struct {
	Epoch        int     `json:"epoch"`
	TrainLoss    float64 `json:"train_loss"`
	ValLoss      float64 `json:"val_loss"`
	LearningRate float64 `json:"learning_rate"`
	GradNorm     float64 `json:"grad_norm"`
}

// History is the outcome of a training run.
type History struct {
	Epochs      []EpochStats  `json:"epochs"`
	BestValLoss float64       `json:"best_val_loss"`
	BestEpoch   int           `json:"best_epoch"`
	StopEpoch   int           `json:"stop_epoch"`
	FinalState  TrainerState  `json:"final_state"`
	Duration    time.Duration `json:"duration"`
}

// TrainLosses returns the per-epoch training losses.
func (h *History) TrainLosses() []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.TrainLoss
	}
	return out
}

// ValLosses returns the per-epoch validation losses.
func (h *History) ValLosses() []float64 {
	out := make([]float64, len(h.Epochs))
	for i, e := range h.Epochs {
		out[i] = e.ValLoss
	}
	return out
}

// LastTrainLoss returns the training loss of the final epoch.
func (h *History) LastTrainLoss() float64 {
	if len(h.Epochs) == 0 {
		return 0
	}
	return h.Epochs[len(h.Epochs)-1].TrainLoss
}

// EvalMetrics are held-out test metrics.
type EvalMetrics struct {
	MSE       float64 `json:"mse"`
	RMSE      float64 `json:"rmse"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Samples   int     `json:"samples"`
}

// Trainer fits a Model with mini-batch Adam.
type Trainer struct {
	cfg    TrainerConfig
	logger zerolog.Logger

	// OnEpoch, if set, is called after every epoch.
	OnEpoch func(EpochStats)

	mu    sync.RWMutex
	state TrainerState
}

// NewTrainer creates a trainer in the idle state.
func NewTrainer(cfg TrainerConfig, logger zerolog.Logger) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trainer config: %w", err)
	}
	return &Trainer{
		cfg:    cfg,
		logger: logger.With().Str("component", "ncf_trainer").Logger(),
		state:  StateIdle,
	}, nil
}

// State returns the current lifecycle state.
func (t *Trainer) State() TrainerState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Trainer) setState(s TrainerState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// Train fits model on train, selecting parameters by loss on val. On return
// the model holds the parameters of the best validation epoch.
func (t *Trainer) Train(ctx context.Context, model *Model, train, val []Example) (*History, error) {
	if len(train) == 0 {
		return nil, errors.New("training split is empty")
	}
	if len(val) == 0 {
		return nil, errors.New("validation split is empty")
	}
	for _, split := range [][]Example{train, val} {
		for _, ex := range split {
			if err := model.checkIndex(ex.User, ex.Item); err != nil {
				return nil, err
			}
		}
	}

	t.setState(StateTraining)
	start := time.Now()

	rng := rand.New(rand.NewSource(t.cfg.Seed)) //nolint:gosec // reproducible training, not security
	params := model.tensors()
	grads := newGradients(model)
	gradTensors := grads.tensors()
	opt := newAdam(params, t.cfg.LearningRate, t.cfg.WeightDecay)
	sched := newPlateauScheduler(t.cfg.LRPatience, t.cfg.LRFactor)

	order := make([]int, len(train))
	for i := range order {
		order[i] = i
	}

	hist := &History{BestValLoss: math.Inf(1)}
	best := model.Clone()
	badEpochs := 0
	final := StateExhausted
	act := model.newActivations()

	for epoch := 1; epoch <= t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			model.copyFrom(best)
			t.setState(StateIdle)
			return nil, fmt.Errorf("training canceled at epoch %d: %w", epoch, err)
		}

		rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })

		var lossSum, lastNorm float64
		batches := 0
		for lo := 0; lo < len(order); lo += t.cfg.BatchSize {
			hi := min(lo+t.cfg.BatchSize, len(order))
			n := float64(hi - lo)

			grads.zero()
			var batchLoss float64
			for _, idx := range order[lo:hi] {
				ex := train[idx]
				y := model.forward(act, ex.User, ex.Item, rng)
				diff := y - ex.Rating
				batchLoss += diff * diff
				model.backward(grads, act, ex.User, ex.Item, 2*diff/n)
			}

			lastNorm = clipGradNorm(gradTensors, t.cfg.GradClip)
			opt.update(params, gradTensors)

			lossSum += batchLoss / n
			batches++
		}
		trainLoss := lossSum / float64(batches)
		valLoss := t.validationLoss(model, val)

		stats := EpochStats{
			Epoch:        epoch,
			TrainLoss:    trainLoss,
			ValLoss:      valLoss,
			LearningRate: opt.lr,
			GradNorm:     lastNorm,
		}
		hist.Epochs = append(hist.Epochs, stats)
		opt.lr = sched.step(valLoss, opt.lr)

		t.logger.Debug().
			Int("epoch", epoch).
			Float64("train_loss", trainLoss).
			Float64("val_loss", valLoss).
			Float64("lr", stats.LearningRate).
			Msg("Epoch complete")
		if t.OnEpoch != nil {
			t.OnEpoch(stats)
		}

		if valLoss < hist.BestValLoss {
			hist.BestValLoss = valLoss
			hist.BestEpoch = epoch
			best.copyFrom(model)
			badEpochs = 0
		} else {
			badEpochs++
		}
		hist.StopEpoch = epoch

		if t.cfg.ConvergenceLoss > 0 && valLoss <= t.cfg.ConvergenceLoss {
			final = StateConverged
			break
		}
		if badEpochs >= t.cfg.EarlyStoppingPatience {
			final = StateEarlyStopped
			break
		}
	}

	model.copyFrom(best)
	hist.FinalState = final
	hist.Duration = time.Since(start)
	t.setState(final)

	t.logger.Info().
		Int("stop_epoch", hist.StopEpoch).
		Int("best_epoch", hist.BestEpoch).
		Float64("best_val_loss", hist.BestValLoss).
		Str("state", string(final)).
		Dur("duration", hist.Duration).
		Msg("Training finished")

	return hist, nil
}

// validationLoss is the mean over unshuffled batches of the batch MSE, in
// inference mode.
func (t *Trainer) validationLoss(model *Model, val []Example) float64 {
	act := model.newActivations()
	var sum float64
	batches := 0
	for lo := 0; lo < len(val); lo += t.cfg.BatchSize {
		hi := min(lo+t.cfg.BatchSize, len(val))
		var batch float64
		for _, ex := range val[lo:hi] {
			d := model.forward(act, ex.User, ex.Item, nil) - ex.Rating
			batch += d * d
		}
		sum += batch / float64(hi-lo)
		batches++
	}
	return sum / float64(batches)
}

// Evaluate computes test metrics in inference mode.
func Evaluate(model *Model, test []Example) (EvalMetrics, error) {
	if len(test) == 0 {
		return EvalMetrics{}, errors.New("test split is empty")
	}

	act := model.newActivations()
	var sq float64
	var tp, fp, fn int
	for _, ex := range test {
		if err := model.checkIndex(ex.User, ex.Item); err != nil {
			return EvalMetrics{}, err
		}
		y := model.forward(act, ex.User, ex.Item, nil)
		d := y - ex.Rating
		sq += d * d

		predRel := y >= RelevanceThreshold
		trueRel := ex.Rating >= RelevanceThreshold
		switch {
		case predRel && trueRel:
			tp++
		case predRel && !trueRel:
			fp++
		case !predRel && trueRel:
			fn++
		}
	}

	mse := sq / float64(len(test))
	m := EvalMetrics{
		MSE:     mse,
		RMSE:    math.Sqrt(mse),
		Samples: len(test),
	}
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	return m, nil
}

// plateauScheduler cuts the learning rate when validation loss stops
// improving. Improvement is relative with a 1e-4 threshold.
type plateauScheduler struct {
	patience  int
	factor    float64
	threshold float64
	best      float64
	bad       int
}

func newPlateauScheduler(patience int, factor float64) *plateauScheduler {
	return &plateauScheduler{
		patience:  patience,
		factor:    factor,
		threshold: 1e-4,
		best:      math.Inf(1),
	}
}

// step records one validation loss and returns the learning rate to use next.
func (s *plateauScheduler) step(loss, lr float64) float64 {
	if loss < s.best*(1-s.threshold) {
		s.best = loss
		s.bad = 0
	} else {
		s.bad++
	}
	if s.bad > s.patience {
		s.bad = 0
		return lr * s.factor
	}
	return lr
}
