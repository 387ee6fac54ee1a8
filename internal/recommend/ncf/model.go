// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package ncf

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Architecture is the registry tag for models produced by this package.
const Architecture = "NCF"

// Config describes the shape of a Model.
type Config struct {
	// NumUsers is the number of rows in the user embedding tables.
	NumUsers int `json:"num_users"`

	// NumItems is the number of rows in the item embedding tables.
	NumItems int `json:"num_items"`

	// EmbeddingDim is the width of every embedding table.
	// Default: 64.
	EmbeddingDim int `json:"embedding_dim"`

	// Layers are the hidden widths of the deep path.
	// Default: [128, 64, 32].
	Layers []int `json:"layers"`

	// Dropout is the drop probability applied after each hidden activation
	// during training. Default: 0.2.
	Dropout float64 `json:"dropout"`
}

// DefaultConfig returns the default architecture for the given corpus size.
func DefaultConfig(numUsers, numItems int) Config {
	return Config{
		NumUsers:     numUsers,
		NumItems:     numItems,
		EmbeddingDim: 64,
		Layers:       []int{128, 64, 32},
		Dropout:      0.2,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.NumUsers < 1 {
		return fmt.Errorf("num_users must be positive, got %d", c.NumUsers)
	}
	if c.NumItems < 1 {
		return fmt.Errorf("num_items must be positive, got %d", c.NumItems)
	}
	if c.EmbeddingDim < 1 {
		return fmt.Errorf("embedding_dim must be positive, got %d", c.EmbeddingDim)
	}
	if len(c.Layers) == 0 {
		return errors.New("at least one hidden layer is required")
	}
	for i, w := range c.Layers {
		if w < 1 {
			return fmt.Errorf("layers[%d] must be positive, got %d", i, w)
		}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %f", c.Dropout)
	}
	return nil
}

// dense is a fully connected layer. W is stored row-major as Out x In.
type dense struct {
	In  int
	Out int
	W   []float64
	B   []float64
}

func newDense(in, out int) dense {
	return dense{
		In:  in,
		Out: out,
		W:   make([]float64, in*out),
		B:   make([]float64, out),
	}
}

// row returns the weights feeding output unit j.
func (d *dense) row(j int) []float64 {
	return d.W[j*d.In : (j+1)*d.In]
}

// forward computes z = W x + b into dst.
func (d *dense) forward(dst, x []float64) {
	for j := 0; j < d.Out; j++ {
		dst[j] = floats.Dot(d.row(j), x) + d.B[j]
	}
}

// Model is the hybrid GMF + MLP scoring function.
//
// Embedding tables are flat slices indexed by row*EmbeddingDim.
type Model struct {
	cfg Config

	userGMF []float64
	itemGMF []float64
	userMLP []float64
	itemMLP []float64

	hidden []dense
	final  dense
}

// NewModel creates a model with variance-scaled uniform (Xavier) weights and
// zero biases, drawing from rng.
func NewModel(cfg Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}

	d := cfg.EmbeddingDim
	m := &Model{
		cfg:     cfg,
		userGMF: make([]float64, cfg.NumUsers*d),
		itemGMF: make([]float64, cfg.NumItems*d),
		userMLP: make([]float64, cfg.NumUsers*d),
		itemMLP: make([]float64, cfg.NumItems*d),
	}

	// Embedding tables follow the (rows, dim) fan convention.
	xavierUniform(m.userGMF, d, cfg.NumUsers, rng)
	xavierUniform(m.itemGMF, d, cfg.NumItems, rng)
	xavierUniform(m.userMLP, d, cfg.NumUsers, rng)
	xavierUniform(m.itemMLP, d, cfg.NumItems, rng)

	in := 2 * d
	m.hidden = make([]dense, len(cfg.Layers))
	for l, out := range cfg.Layers {
		m.hidden[l] = newDense(in, out)
		xavierUniform(m.hidden[l].W, in, out, rng)
		in = out
	}

	m.final = newDense(d+in, 1)
	xavierUniform(m.final.W, d+in, 1, rng)

	return m, nil
}

// xavierUniform fills w from U(-a, a) with a = sqrt(6 / (fanIn + fanOut)).
func xavierUniform(w []float64, fanIn, fanOut int, rng *rand.Rand) {
	a := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * a
	}
}

// Config returns the model shape.
func (m *Model) Config() Config {
	return m.cfg
}

// NumUsers returns the number of user rows.
func (m *Model) NumUsers() int { return m.cfg.NumUsers }

// NumItems returns the number of item rows.
func (m *Model) NumItems() int { return m.cfg.NumItems }

func (m *Model) embedding(table []float64, idx int) []float64 {
	d := m.cfg.EmbeddingDim
	return table[idx*d : (idx+1)*d]
}

func (m *Model) checkIndex(u, i int) error {
	if u < 0 || u >= m.cfg.NumUsers {
		return fmt.Errorf("user index %d out of range [0, %d)", u, m.cfg.NumUsers)
	}
	if i < 0 || i >= m.cfg.NumItems {
		return fmt.Errorf("item index %d out of range [0, %d)", i, m.cfg.NumItems)
	}
	return nil
}

// activations holds the intermediate values of one forward pass.
type activations struct {
	gmf    []float64   // elementwise product, len D
	inputs [][]float64 // inputs[l] is the input to hidden layer l; inputs[L] is the MLP output
	pre    [][]float64 // pre-activation of hidden layer l
	masks  [][]float64 // dropout scale per unit (nil in inference mode)
	joint  []float64   // concat(gmf, mlp out)
	output float64
}

func (m *Model) newActivations() *activations {
	d := m.cfg.EmbeddingDim
	a := &activations{
		gmf:    make([]float64, d),
		inputs: make([][]float64, len(m.hidden)+1),
		pre:    make([][]float64, len(m.hidden)),
		masks:  make([][]float64, len(m.hidden)),
	}
	a.inputs[0] = make([]float64, 2*d)
	for l, h := range m.hidden {
		a.pre[l] = make([]float64, h.Out)
		a.inputs[l+1] = make([]float64, h.Out)
		a.masks[l] = make([]float64, h.Out)
	}
	a.joint = make([]float64, m.final.In)
	return a
}

// forward runs one pair through the network. A nil rng means inference mode
// (no dropout).
func (m *Model) forward(a *activations, u, i int, rng *rand.Rand) float64 {
	d := m.cfg.EmbeddingDim

	floats.MulTo(a.gmf, m.embedding(m.userGMF, u), m.embedding(m.itemGMF, i))

	copy(a.inputs[0][:d], m.embedding(m.userMLP, u))
	copy(a.inputs[0][d:], m.embedding(m.itemMLP, i))

	keep := 1 - m.cfg.Dropout
	for l := range m.hidden {
		h := &m.hidden[l]
		h.forward(a.pre[l], a.inputs[l])
		out := a.inputs[l+1]
		for j, z := range a.pre[l] {
			scale := 1.0
			if rng != nil && m.cfg.Dropout > 0 {
				if rng.Float64() < m.cfg.Dropout {
					scale = 0
				} else {
					scale = 1 / keep
				}
			}
			a.masks[l][j] = scale
			if z > 0 {
				out[j] = z * scale
			} else {
				out[j] = 0
			}
		}
	}

	copy(a.joint[:d], a.gmf)
	copy(a.joint[d:], a.inputs[len(m.hidden)])

	a.output = floats.Dot(m.final.W, a.joint) + m.final.B[0]
	return a.output
}

// Predict scores one pair in inference mode.
func (m *Model) Predict(u, i int) (float64, error) {
	if err := m.checkIndex(u, i); err != nil {
		return 0, err
	}
	return m.forward(m.newActivations(), u, i, nil), nil
}

// PredictBatch scores user u against every item index in items.
func (m *Model) PredictBatch(u int, items []int) ([]float64, error) {
	a := m.newActivations()
	scores := make([]float64, len(items))
	for k, i := range items {
		if err := m.checkIndex(u, i); err != nil {
			return nil, err
		}
		scores[k] = m.forward(a, u, i, nil)
	}
	return scores, nil
}

// ItemEmbedding returns concat(gmf, mlp) for item i as a fresh slice.
func (m *Model) ItemEmbedding(i int) ([]float64, error) {
	if i < 0 || i >= m.cfg.NumItems {
		return nil, fmt.Errorf("item index %d out of range [0, %d)", i, m.cfg.NumItems)
	}
	d := m.cfg.EmbeddingDim
	out := make([]float64, 2*d)
	copy(out[:d], m.embedding(m.itemGMF, i))
	copy(out[d:], m.embedding(m.itemMLP, i))
	return out, nil
}

// UserEmbedding returns concat(gmf, mlp) for user u as a fresh slice.
func (m *Model) UserEmbedding(u int) ([]float64, error) {
	if u < 0 || u >= m.cfg.NumUsers {
		return nil, fmt.Errorf("user index %d out of range [0, %d)", u, m.cfg.NumUsers)
	}
	d := m.cfg.EmbeddingDim
	out := make([]float64, 2*d)
	copy(out[:d], m.embedding(m.userGMF, u))
	copy(out[d:], m.embedding(m.userMLP, u))
	return out, nil
}

// tensors returns every parameter slice in a fixed order. The slices alias
// the model's storage.
func (m *Model) tensors() [][]float64 {
	t := [][]float64{m.userGMF, m.itemGMF, m.userMLP, m.itemMLP}
	for l := range m.hidden {
		t = append(t, m.hidden[l].W, m.hidden[l].B)
	}
	return append(t, m.final.W, m.final.B)
}

// NumParams returns the total number of scalar parameters.
func (m *Model) NumParams() int {
	n := 0
	for _, t := range m.tensors() {
		n += len(t)
	}
	return n
}

// gradients mirrors the parameter layout of a Model.
type gradients struct {
	userGMF []float64
	itemGMF []float64
	userMLP []float64
	itemMLP []float64
	hidden  []dense
	final   dense
}

func newGradients(m *Model) *gradients {
	g := &gradients{
		userGMF: make([]float64, len(m.userGMF)),
		itemGMF: make([]float64, len(m.itemGMF)),
		userMLP: make([]float64, len(m.userMLP)),
		itemMLP: make([]float64, len(m.itemMLP)),
		hidden:  make([]dense, len(m.hidden)),
		final:   newDense(m.final.In, m.final.Out),
	}
	for l, h := range m.hidden {
		g.hidden[l] = newDense(h.In, h.Out)
	}
	return g
}

func (g *gradients) tensors() [][]float64 {
	t := [][]float64{g.userGMF, g.itemGMF, g.userMLP, g.itemMLP}
	for l := range g.hidden {
		t = append(t, g.hidden[l].W, g.hidden[l].B)
	}
	return append(t, g.final.W, g.final.B)
}

func (g *gradients) zero() {
	for _, t := range g.tensors() {
		clear(t)
	}
}

// backward accumulates the gradient of dLoss/dOutput = dy for the pass held in a.
func (m *Model) backward(g *gradients, a *activations, u, i int, dy float64) {
	d := m.cfg.EmbeddingDim

	// Final layer.
	floats.AddScaled(g.final.W, dy, a.joint)
	g.final.B[0] += dy

	dJoint := make([]float64, len(a.joint))
	floats.AddScaled(dJoint, dy, m.final.W)

	// Bilinear path.
	dGMF := dJoint[:d]
	ug := m.embedding(m.userGMF, u)
	ig := m.embedding(m.itemGMF, i)
	gu := g.userGMF[u*d : (u+1)*d]
	gi := g.itemGMF[i*d : (i+1)*d]
	for k := 0; k < d; k++ {
		gu[k] += dGMF[k] * ig[k]
		gi[k] += dGMF[k] * ug[k]
	}

	// Deep path, walking the stack backwards.
	dOut := dJoint[d:]
	for l := len(m.hidden) - 1; l >= 0; l-- {
		h := &m.hidden[l]
		gh := &g.hidden[l]

		dz := make([]float64, h.Out)
		for j := range dz {
			if a.pre[l][j] > 0 {
				dz[j] = dOut[j] * a.masks[l][j]
			}
		}

		dIn := make([]float64, h.In)
		for j, v := range dz {
			if v == 0 {
				continue
			}
			floats.AddScaled(gh.W[j*h.In:(j+1)*h.In], v, a.inputs[l])
			gh.B[j] += v
			floats.AddScaled(dIn, v, h.row(j))
		}
		dOut = dIn
	}

	floats.Add(g.userMLP[u*d:(u+1)*d], dOut[:d])
	floats.Add(g.itemMLP[i*d:(i+1)*d], dOut[d:])
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	s := m.Snapshot()
	c, _ := FromSnapshot(s) //nolint:errcheck // a snapshot of a valid model is always valid
	return c
}

// copyFrom overwrites the parameters of m with those of src. Shapes must match.
func (m *Model) copyFrom(src *Model) {
	dst := m.tensors()
	for k, t := range src.tensors() {
		copy(dst[k], t)
	}
}
