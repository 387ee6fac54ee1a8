// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Command train runs one training pipeline against the configured database
// and activates the resulting model.
//
//	train -epochs 30 -batch-size 128 -model-version v_exam_2026
//
// Flags override the matching RECOMMEND_*/NCF_* configuration. Exit status is
// 0 on success, 2 when the interaction log is too small and 1 otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/papertrail/internal/config"
	"github.com/tomtom215/papertrail/internal/database"
	"github.com/tomtom215/papertrail/internal/logging"
	"github.com/tomtom215/papertrail/internal/recommend"
	"github.com/tomtom215/papertrail/internal/recommend/ncf"
	"github.com/tomtom215/papertrail/internal/recommend/storage"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitInsufficient = 2
)

// options are the command-line overrides.
type options struct {
	epochs          int
	batchSize       int
	embeddingDim    int
	learningRate    float64
	negativeSamples int
	modelVersion    string
	seedDemo        bool
}

func parseFlags(args []string, out io.Writer) (*options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(out)

	opts := &options{}
	fs.IntVar(&opts.epochs, "epochs", 0, "number of training epochs")
	fs.IntVar(&opts.batchSize, "batch-size", 0, "mini-batch size")
	fs.IntVar(&opts.embeddingDim, "embedding-dim", 0, "embedding dimension")
	fs.Float64Var(&opts.learningRate, "learning-rate", 0, "Adam learning rate")
	fs.IntVar(&opts.negativeSamples, "negative-samples", 0, "negatives sampled per positive")
	fs.StringVar(&opts.modelVersion, "model-version", "", "model version tag (default v_YYYYMMDD_HHMMSS)")
	fs.BoolVar(&opts.seedDemo, "seed-demo", false, "seed the demo catalog before training")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs, nil
}

// applyOverrides copies explicitly set flags into t. Unset flags keep the
// configured values.
func applyOverrides(t *recommend.TrainingConfig, opts *options, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "epochs":
			t.Epochs = opts.epochs
		case "batch-size":
			t.BatchSize = opts.batchSize
		case "embedding-dim":
			t.EmbeddingDim = opts.embeddingDim
		case "learning-rate":
			t.LearningRate = opts.learningRate
		case "negative-samples":
			t.NegativeRatio = opts.negativeSamples
		}
	})
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	opts, fs, err := parseFlags(args, out)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(out, styleError.Render("configuration: "+err.Error()))
		return exitFailure
	}
	logging.Init(cfg.Logging)
	logger := logging.Logger()

	rcfg := cfg.RecommendEngineConfig()
	applyOverrides(&rcfg.Training, opts, fs)
	if err := rcfg.Validate(); err != nil {
		fmt.Fprintln(out, styleError.Render("invalid parameters: "+err.Error()))
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		fmt.Fprintln(out, styleError.Render("database: "+err.Error()))
		return exitFailure
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database")
		}
	}()

	if opts.seedDemo || cfg.Database.SeedDemoData {
		if err := db.SeedDemoData(ctx, database.DefaultSeedOptions()); err != nil {
			fmt.Fprintln(out, styleError.Render("seed demo data: "+err.Error()))
			return exitFailure
		}
	}

	store, err := storage.NewStore(rcfg.ModelPath)
	if err != nil {
		fmt.Fprintln(out, styleError.Render("model store: "+err.Error()))
		return exitFailure
	}

	fmt.Fprintln(out, renderHeader(&rcfg.Training))

	pipeline := recommend.NewPipeline(rcfg.Training, db, store, db, nil, logger)
	pipeline.OnStep = func(step, total int, name string) {
		fmt.Fprintln(out, renderStep(step, total, name))
	}
	pipeline.OnEpoch = func(s ncf.EpochStats) {
		fmt.Fprintln(out, renderEpoch(s, rcfg.Training.Epochs))
	}

	ctx, cancel := context.WithTimeout(ctx, rcfg.Training.Timeout)
	defer cancel()

	report, err := pipeline.Run(ctx, opts.modelVersion)
	if err != nil {
		fmt.Fprintln(out, styleError.Render("training failed: "+err.Error()))
		if recommend.IsDegenerate(err) {
			return exitInsufficient
		}
		return exitFailure
	}

	fmt.Fprintln(out, renderSummary(report))
	return exitOK
}
