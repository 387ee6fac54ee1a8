// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/papertrail/internal/recommend"
)

var _ suture.Service = (*RecommendService)(nil)

// mockTrainer counts Train calls and returns a fixed result.
type mockTrainer struct {
	calls    atomic.Int32
	trainErr error
}

func (m *mockTrainer) Train(ctx context.Context) (*recommend.TrainingReport, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.trainErr != nil {
		return nil, m.trainErr
	}
	return &recommend.TrainingReport{Version: "v_test"}, nil
}

func serveFor(t *testing.T, svc suture.Service, d time.Duration) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return svc.Serve(ctx)
}

func TestRecommendService_String(t *testing.T) {
	t.Parallel()

	svc := NewRecommendService(&mockTrainer{}, RecommendServiceConfig{}, zerolog.Nop())
	if got := svc.String(); got != "recommend-service" {
		t.Errorf("String() = %q, want %q", got, "recommend-service")
	}
}

func TestRecommendService_TrainOnStartup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		onStartup bool
		wantCalls int32
	}{
		{"trains once at startup", true, 1},
		{"no startup training", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			engine := &mockTrainer{}
			svc := NewRecommendService(engine, RecommendServiceConfig{
				TrainOnStartup: tt.onStartup,
				TrainInterval:  time.Hour,
			}, zerolog.Nop())

			err := serveFor(t, svc, 50*time.Millisecond)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
			}
			if got := engine.calls.Load(); got != tt.wantCalls {
				t.Errorf("Train calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestRecommendService_ScheduledTraining(t *testing.T) {
	t.Parallel()

	engine := &mockTrainer{}
	svc := NewRecommendService(engine, RecommendServiceConfig{
		TrainInterval: 10 * time.Millisecond,
	}, zerolog.Nop())

	_ = serveFor(t, svc, 100*time.Millisecond)

	if got := engine.calls.Load(); got < 3 {
		t.Errorf("Train calls = %d, want at least 3", got)
	}
}

func TestRecommendService_DisabledSchedule(t *testing.T) {
	t.Parallel()

	engine := &mockTrainer{}
	svc := NewRecommendService(engine, RecommendServiceConfig{TrainInterval: 0}, zerolog.Nop())

	err := serveFor(t, svc, 50*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if got := engine.calls.Load(); got != 0 {
		t.Errorf("Train calls = %d, want 0", got)
	}
}

func TestRecommendService_FailuresDoNotStopService(t *testing.T) {
	t.Parallel()

	errs := []error{
		recommend.ErrTrainingInProgress,
		fmt.Errorf("%w: 3 interactions", recommend.ErrDegenerateCorpus),
		errors.New("disk full"),
	}

	for _, trainErr := range errs {
		t.Run(trainErr.Error(), func(t *testing.T) {
			t.Parallel()

			engine := &mockTrainer{trainErr: trainErr}
			svc := NewRecommendService(engine, RecommendServiceConfig{
				TrainOnStartup: true,
				TrainInterval:  10 * time.Millisecond,
			}, zerolog.Nop())

			err := serveFor(t, svc, 60*time.Millisecond)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
			}
			if got := engine.calls.Load(); got < 2 {
				t.Errorf("Train calls = %d, want retries after failure", got)
			}
		})
	}
}
