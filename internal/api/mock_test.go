// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/papertrail/internal/database"
	"github.com/tomtom215/papertrail/internal/recommend"
)

// mockEngine is a hand-written RecommendationService.
type mockEngine struct {
	mu sync.Mutex

	userErr    error
	similarErr error
	statusErr  error
	trainErr   error
	status     *recommend.ModelStatus

	lastUser        recommend.UserRequest
	lastSimilar     recommend.SimilarRequest
	invalidated     []*int
	trainCalls      atomic.Int32
	training        atomic.Bool
	trainStarted    chan struct{}
	trainRelease    chan struct{}
	trainCtxWasDone atomic.Bool
}

func newMockEngine() *mockEngine {
	return &mockEngine{status: &recommend.ModelStatus{Status: recommend.StatusNoModel, Strategy: recommend.StrategyLite}}
}

func (m *mockEngine) RecommendForUser(_ context.Context, req recommend.UserRequest) (*recommend.UserRecommendations, error) {
	m.mu.Lock()
	m.lastUser = req
	m.mu.Unlock()
	if m.userErr != nil {
		return nil, m.userErr
	}
	return &recommend.UserRecommendations{
		UserID:   req.UserID,
		Count:    1,
		Strategy: recommend.StrategyLite,
		Results:  []recommend.Result{{ItemID: 7, Score: 0.9}},
	}, nil
}

func (m *mockEngine) RecommendSimilar(_ context.Context, req recommend.SimilarRequest) (*recommend.SimilarItems, error) {
	m.mu.Lock()
	m.lastSimilar = req
	m.mu.Unlock()
	if m.similarErr != nil {
		return nil, m.similarErr
	}
	return &recommend.SimilarItems{ItemID: req.ItemID, Strategy: recommend.StrategyLite, Results: []recommend.Result{}}, nil
}

func (m *mockEngine) ModelStatus(context.Context) (*recommend.ModelStatus, error) {
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return m.status, nil
}

func (m *mockEngine) InvalidateCache(_ context.Context, userID *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidated = append(m.invalidated, userID)
	return nil
}

func (m *mockEngine) Train(ctx context.Context) (*recommend.TrainingReport, error) {
	m.trainCalls.Add(1)
	m.training.Store(true)
	defer m.training.Store(false)
	if m.trainStarted != nil {
		close(m.trainStarted)
	}
	if m.trainRelease != nil {
		<-m.trainRelease
	}
	m.trainCtxWasDone.Store(ctx.Err() != nil)
	if m.trainErr != nil {
		return nil, m.trainErr
	}
	return &recommend.TrainingReport{Version: "v_test"}, nil
}

func (m *mockEngine) IsTraining() bool { return m.training.Load() }

func (m *mockEngine) Strategy() string { return recommend.StrategyLite }

type mockPinger struct{ err error }

func (p mockPinger) Ping(context.Context) error { return p.err }

type mockStats struct {
	userCalls atomic.Int32
	err       error
}

func (s *mockStats) GetUserStats(_ context.Context, userID int) (*database.UserStats, error) {
	s.userCalls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &database.UserStats{UserID: userID, TotalInteractions: 3, InteractionsByAction: map[string]int{"VIEW": 3}}, nil
}

func (s *mockStats) GetGlobalStats(context.Context) (*database.GlobalStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &database.GlobalStats{TotalStudents: 2, TotalPapers: 5, TopPapers: []database.PaperPopularity{}}, nil
}

var errBoom = errors.New("boom")

// envelope mirrors models.APIResponse with raw data for assertions.
type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
	Error *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

// testServer builds the full router around the mocks.
func testServer(t *testing.T, engine *mockEngine, cfg *ChiMiddlewareConfig, opts ...HandlerOption) (http.Handler, *Handler) {
	t.Helper()
	if cfg == nil {
		cfg = DefaultChiMiddlewareConfig()
		cfg.RateLimitDisabled = true
		cfg.TrainInterval = 0
	}
	h := NewHandler(engine, mockPinger{}, &mockStats{}, opts...)
	t.Cleanup(h.Wait)
	return NewRouter(h, NewChiMiddleware(cfg)).SetupChi(), h
}

func do(t *testing.T, srv http.Handler, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON body %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, env
}
