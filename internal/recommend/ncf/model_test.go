// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package ncf

import (
	"math"
	"math/rand"
	"testing"
)

func smallConfig() Config {
	return Config{
		NumUsers:     3,
		NumItems:     4,
		EmbeddingDim: 4,
		Layers:       []int{6, 3},
		Dropout:      0,
	}
}

func newTestModel(t *testing.T, cfg Config, seed int64) *Model {
	t.Helper()
	m, err := NewModel(cfg, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	return m
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "default is valid", modify: func(*Config) {}},
		{name: "zero users", modify: func(c *Config) { c.NumUsers = 0 }, wantErr: true},
		{name: "zero items", modify: func(c *Config) { c.NumItems = 0 }, wantErr: true},
		{name: "zero embedding dim", modify: func(c *Config) { c.EmbeddingDim = 0 }, wantErr: true},
		{name: "no layers", modify: func(c *Config) { c.Layers = nil }, wantErr: true},
		{name: "zero width layer", modify: func(c *Config) { c.Layers = []int{8, 0} }, wantErr: true},
		{name: "dropout of one", modify: func(c *Config) { c.Dropout = 1 }, wantErr: true},
		{name: "negative dropout", modify: func(c *Config) { c.Dropout = -0.1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig(10, 20)
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewModel_Initialization(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig(5, 7)
	m := newTestModel(t, cfg, 1)

	a := math.Sqrt(6.0 / float64(cfg.EmbeddingDim+cfg.NumItems))
	for _, w := range m.itemGMF {
		if math.Abs(w) > a {
			t.Fatalf("item embedding weight %f outside [-%f, %f]", w, a, a)
		}
	}
	for l, h := range m.hidden {
		for _, b := range h.B {
			if b != 0 {
				t.Fatalf("hidden[%d] bias = %f, want 0", l, b)
			}
		}
	}
	if m.final.B[0] != 0 {
		t.Errorf("final bias = %f, want 0", m.final.B[0])
	}

	wantFinalIn := cfg.EmbeddingDim + cfg.Layers[len(cfg.Layers)-1]
	if m.final.In != wantFinalIn {
		t.Errorf("final layer input = %d, want %d", m.final.In, wantFinalIn)
	}
	if m.hidden[0].In != 2*cfg.EmbeddingDim {
		t.Errorf("first hidden input = %d, want %d", m.hidden[0].In, 2*cfg.EmbeddingDim)
	}
}

func TestModel_Predict_Deterministic(t *testing.T) {
	t.Parallel()

	a := newTestModel(t, DefaultConfig(4, 6), 42)
	b := newTestModel(t, DefaultConfig(4, 6), 42)

	for u := 0; u < 4; u++ {
		for i := 0; i < 6; i++ {
			pa, err := a.Predict(u, i)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			pb, _ := b.Predict(u, i)
			if pa != pb {
				t.Fatalf("Predict(%d, %d) differs across equal seeds: %f vs %f", u, i, pa, pb)
			}
			again, _ := a.Predict(u, i)
			if again != pa {
				t.Fatalf("Predict(%d, %d) not stable: %f vs %f", u, i, pa, again)
			}
		}
	}
}

func TestModel_Predict_OutOfRange(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, smallConfig(), 1)

	tests := []struct {
		name string
		u, i int
	}{
		{"negative user", -1, 0},
		{"user too large", 3, 0},
		{"negative item", 0, -1},
		{"item too large", 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := m.Predict(tt.u, tt.i); err == nil {
				t.Error("Predict() expected error")
			}
		})
	}

	if _, err := m.PredictBatch(0, []int{0, 9}); err == nil {
		t.Error("PredictBatch() expected error for out-of-range item")
	}
}

func TestModel_PredictBatch_MatchesPredict(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, smallConfig(), 7)
	items := []int{3, 0, 2, 1}
	scores, err := m.PredictBatch(1, items)
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	for k, i := range items {
		want, _ := m.Predict(1, i)
		if scores[k] != want {
			t.Errorf("PredictBatch()[%d] = %f, want %f", k, scores[k], want)
		}
	}
}

func TestModel_ItemEmbedding(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	m := newTestModel(t, cfg, 3)

	emb, err := m.ItemEmbedding(2)
	if err != nil {
		t.Fatalf("ItemEmbedding() error = %v", err)
	}
	if len(emb) != 2*cfg.EmbeddingDim {
		t.Fatalf("len(ItemEmbedding()) = %d, want %d", len(emb), 2*cfg.EmbeddingDim)
	}
	d := cfg.EmbeddingDim
	for k := 0; k < d; k++ {
		if emb[k] != m.itemGMF[2*d+k] || emb[d+k] != m.itemMLP[2*d+k] {
			t.Fatalf("ItemEmbedding() is not concat(gmf, mlp) at %d", k)
		}
	}

	emb[0] = 1000
	if m.itemGMF[2*d] == 1000 {
		t.Error("ItemEmbedding() must return a copy")
	}

	if _, err := m.ItemEmbedding(4); err == nil {
		t.Error("ItemEmbedding() expected error for out-of-range item")
	}
}

// TestModel_Backward_MatchesFiniteDifference checks the hand-written gradients
// against central differences of the squared error for one pair.
func TestModel_Backward_MatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, smallConfig(), 11)
	const u, i, target = 1, 2, 0.75

	loss := func() float64 {
		y, _ := m.Predict(u, i)
		return (y - target) * (y - target)
	}

	act := m.newActivations()
	y := m.forward(act, u, i, nil)
	g := newGradients(m)
	m.backward(g, act, u, i, 2*(y-target))

	params := m.tensors()
	grads := g.tensors()
	const eps = 1e-6

	checked := 0
	for k, p := range params {
		for j := range p {
			analytic := grads[k][j]
			orig := p[j]
			p[j] = orig + eps
			plus := loss()
			p[j] = orig - eps
			minus := loss()
			p[j] = orig

			numeric := (plus - minus) / (2 * eps)
			diff := math.Abs(numeric - analytic)
			scale := math.Max(1, math.Abs(numeric)+math.Abs(analytic))
			if diff/scale > 1e-5 {
				t.Fatalf("tensor %d index %d: analytic %g, numeric %g", k, j, analytic, numeric)
			}
			checked++
		}
	}
	if checked != m.NumParams() {
		t.Errorf("checked %d parameters, model has %d", checked, m.NumParams())
	}
}

func TestModel_Backward_OnlyTouchesPairRows(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	m := newTestModel(t, cfg, 5)
	act := m.newActivations()
	m.forward(act, 0, 3, nil)
	g := newGradients(m)
	m.backward(g, act, 0, 3, 1)

	d := cfg.EmbeddingDim
	for u := 1; u < cfg.NumUsers; u++ {
		for k := 0; k < d; k++ {
			if g.userGMF[u*d+k] != 0 || g.userMLP[u*d+k] != 0 {
				t.Fatalf("user %d received gradient", u)
			}
		}
	}
	for i := 0; i < 3; i++ {
		for k := 0; k < d; k++ {
			if g.itemGMF[i*d+k] != 0 || g.itemMLP[i*d+k] != 0 {
				t.Fatalf("item %d received gradient", i)
			}
		}
	}
}

func TestModel_Dropout_InferenceVsTraining(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	cfg.Dropout = 0.5
	cfg.Layers = []int{32, 16}
	m := newTestModel(t, cfg, 9)

	want, _ := m.Predict(0, 0)
	act := m.newActivations()
	rng := rand.New(rand.NewSource(1))

	differs := false
	for n := 0; n < 20; n++ {
		if m.forward(act, 0, 0, rng) != want {
			differs = true
			break
		}
	}
	if !differs {
		t.Error("training-mode forward never differed from inference with dropout 0.5")
	}

	again, _ := m.Predict(0, 0)
	if again != want {
		t.Errorf("inference output changed after training-mode passes: %f vs %f", again, want)
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, DefaultConfig(5, 8), 21)
	restored, err := FromSnapshot(m.Snapshot())
	if err != nil {
		t.Fatalf("FromSnapshot() error = %v", err)
	}

	for u := 0; u < 5; u++ {
		for i := 0; i < 8; i++ {
			want, _ := m.Predict(u, i)
			got, _ := restored.Predict(u, i)
			if got != want {
				t.Fatalf("restored Predict(%d, %d) = %f, want %f", u, i, got, want)
			}
		}
	}
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, smallConfig(), 2)
	s := m.Snapshot()
	before, _ := m.Predict(0, 0)

	s.Final.Weights[0] += 10
	s.Config.Layers[0] = 99

	after, _ := m.Predict(0, 0)
	if before != after {
		t.Error("mutating a snapshot changed the model")
	}
	if m.Config().Layers[0] == 99 {
		t.Error("snapshot shares layer widths with the model")
	}
}

func TestFromSnapshot_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Snapshot)
	}{
		{name: "short user table", modify: func(s *Snapshot) { s.UserGMF = s.UserGMF[1:] }},
		{name: "short item mlp table", modify: func(s *Snapshot) { s.ItemMLP = s.ItemMLP[:2] }},
		{name: "missing hidden layer", modify: func(s *Snapshot) { s.Hidden = s.Hidden[:1] }},
		{name: "wrong hidden shape", modify: func(s *Snapshot) { s.Hidden[1].Out = 7 }},
		{name: "short final bias", modify: func(s *Snapshot) { s.Final.Bias = nil }},
		{name: "invalid config", modify: func(s *Snapshot) { s.Config.EmbeddingDim = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := newTestModel(t, smallConfig(), 4)
			s := m.Snapshot()
			tt.modify(s)
			if _, err := FromSnapshot(s); err == nil {
				t.Error("FromSnapshot() expected error")
			}
		})
	}

	if _, err := FromSnapshot(nil); err == nil {
		t.Error("FromSnapshot(nil) expected error")
	}
}
