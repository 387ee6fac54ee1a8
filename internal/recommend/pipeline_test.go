// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/papertrail/internal/recommend/ncf"
	"github.com/tomtom215/papertrail/internal/recommend/storage"
)

func smallTrainingConfig() TrainingConfig {
	tr := DefaultConfig().Training
	tr.MinInteractions = 1
	tr.Epochs = 3
	tr.BatchSize = 4
	tr.EmbeddingDim = 4
	tr.MLPLayers = []int{8, 4}
	tr.KeepVersions = 2
	return tr
}

func newTestPipeline(t *testing.T, cfg TrainingConfig, data *mockData, reg Registry, bus *EventBus) (*Pipeline, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewPipeline(cfg, data, store, reg, bus, testLogger()), store
}

func TestDefaultVersion(t *testing.T) {
	t.Parallel()

	got := DefaultVersion(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if got != "v_20260102_030405" {
		t.Errorf("DefaultVersion() = %q", got)
	}
	if err := storage.ValidateVersion(got); err != nil {
		t.Errorf("default version is not storable: %v", err)
	}
}

func TestPipeline_Run(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := &mockRegistry{}
	p, store := newTestPipeline(t, smallTrainingConfig(), catalogFixture(), reg, nil)

	var steps []string
	var epochs int
	p.OnStep = func(step, total int, name string) {
		steps = append(steps, fmt.Sprintf("%d/%d %s", step, total, name))
	}
	p.OnEpoch = func(ncf.EpochStats) { epochs++ }

	report, err := p.Run(ctx, "v1")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(steps) != 5 || !strings.HasPrefix(steps[0], "1/5") || !strings.HasSuffix(steps[4], StepPersist) {
		t.Errorf("steps = %v", steps)
	}
	if epochs == 0 || epochs != len(report.History.Epochs) {
		t.Errorf("OnEpoch called %d times, history has %d epochs", epochs, len(report.History.Epochs))
	}

	if report.NumInteractions != 6 || report.NumUsers != 3 || report.NumItems != 4 {
		t.Errorf("corpus = %d/%d/%d, want 6/3/4", report.NumInteractions, report.NumUsers, report.NumItems)
	}
	if report.NumPositives != 6 || report.NumNegatives != 24 {
		t.Errorf("samples = %d+/%d-, want 6+/24-", report.NumPositives, report.NumNegatives)
	}
	if report.TrainSize+report.ValSize+report.TestSize != 30 || report.TestSize != 6 {
		t.Errorf("split = %d/%d/%d", report.TrainSize, report.ValSize, report.TestSize)
	}
	if report.Metrics.Samples != report.TestSize {
		t.Errorf("evaluated %d samples, want %d", report.Metrics.Samples, report.TestSize)
	}

	bundle, err := store.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if bundle.Model.Version != "v1" {
		t.Errorf("latest version = %q, want v1", bundle.Model.Version)
	}

	entry, err := reg.ActiveModel(ctx)
	if err != nil {
		t.Fatalf("ActiveModel() error = %v", err)
	}
	if entry.Version != "v1" || entry.Architecture != ncf.Architecture || entry.ModelPath != store.ModelPath("v1") {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Hyperparameters["negative_samples"] != 4 {
		t.Errorf("hyperparameters = %v", entry.Hyperparameters)
	}

	log, err := reg.LatestTrainingLog(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	wantNotes := fmt.Sprintf("Trained with 3 epochs, stopped at epoch %d", report.History.StopEpoch)
	if log.Notes != wantNotes {
		t.Errorf("notes = %q, want %q", log.Notes, wantNotes)
	}
	if log.NumInteractions != 6 || log.RMSE != report.Metrics.RMSE {
		t.Errorf("log = %+v", log)
	}
}

func TestPipeline_OneActiveModelAndPruning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := &mockRegistry{}
	p, store := newTestPipeline(t, smallTrainingConfig(), catalogFixture(), reg, nil)

	for _, v := range []string{"v1", "v2", "v3"} {
		if _, err := p.Run(ctx, v); err != nil {
			t.Fatalf("Run(%s) error = %v", v, err)
		}
	}
	if n := reg.activeCount(); n != 1 {
		t.Errorf("%d active entries, want 1", n)
	}
	entry, _ := reg.ActiveModel(ctx)
	if entry.Version != "v3" {
		t.Errorf("active = %q, want v3", entry.Version)
	}

	versions, err := store.ListVersions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Errorf("%d versions kept on disk, want 2", len(versions))
	}
}

func TestPipeline_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*TrainingConfig, *mockData, *mockRegistry)
		version string
		want    error
	}{
		{
			name:   "too few interactions",
			modify: func(c *TrainingConfig, _ *mockData, _ *mockRegistry) { c.MinInteractions = 100 },
			want:   ErrDegenerateCorpus,
		},
		{
			name: "empty corpus",
			modify: func(_ *TrainingConfig, d *mockData, _ *mockRegistry) {
				d.interactions = nil
			},
			want: ErrDegenerateCorpus,
		},
		{
			name: "sampling exhausted",
			modify: func(c *TrainingConfig, _ *mockData, _ *mockRegistry) {
				c.MaxSamplingAttempts = 1
			},
			want: ErrSamplingExhausted,
		},
		{
			name:    "bad version",
			modify:  func(*TrainingConfig, *mockData, *mockRegistry) {},
			version: "../escape",
			want:    storage.ErrInvalidVersion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := smallTrainingConfig()
			data := catalogFixture()
			reg := &mockRegistry{}
			tt.modify(&cfg, data, reg)
			version := tt.version
			if version == "" {
				version = "v1"
			}
			p, _ := newTestPipeline(t, cfg, data, reg, nil)
			_, err := p.Run(context.Background(), version)
			if !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
			if reg.activeCount() != 0 {
				t.Error("failed run activated a model")
			}
		})
	}
}

func TestPipeline_RegistryFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := &mockRegistry{}
	p, store := newTestPipeline(t, smallTrainingConfig(), catalogFixture(), reg, nil)
	if _, err := p.Run(ctx, "v1"); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	reg.mu.Lock()
	reg.err = errors.New("db locked")
	reg.mu.Unlock()
	if _, err := p.Run(ctx, "v2"); err == nil || !strings.Contains(err.Error(), "activate model") {
		t.Fatalf("Run() error = %v, want activation failure", err)
	}

	latest, err := store.LoadLatest(ctx)
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if latest.Model.Version != "v1" {
		t.Errorf("latest = %s, want v1 to keep serving", latest.Model.Version)
	}
	if _, err := store.Load(ctx, "v2"); !errors.Is(err, storage.ErrSnapshotNotFound) {
		t.Errorf("Load(v2) error = %v, want staged snapshot removed", err)
	}
	if reg.activeCount() != 1 {
		t.Errorf("active models = %d, want 1", reg.activeCount())
	}
}

func TestPipeline_PublishesActivation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewEventBus(4, testLogger())
	defer func() { _ = bus.Close() }()

	got := make(chan ModelActivated, 1)
	if err := bus.OnModelActivated(ctx, func(_ context.Context, ev ModelActivated) error {
		got <- ev
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	p, _ := newTestPipeline(t, smallTrainingConfig(), catalogFixture(), &mockRegistry{}, bus)
	if _, err := p.Run(ctx, "v9"); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-got:
		if ev.Version != "v9" {
			t.Errorf("event version = %q, want v9", ev.Version)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no model.activated event received")
	}
}

func TestIsDegenerate(t *testing.T) {
	t.Parallel()

	if !IsDegenerate(fmt.Errorf("wrap: %w", ErrSamplingExhausted)) || !IsDegenerate(ErrDegenerateCorpus) {
		t.Error("IsDegenerate should match both corpus errors")
	}
	if IsDegenerate(errors.New("other")) {
		t.Error("IsDegenerate matched an unrelated error")
	}
}
