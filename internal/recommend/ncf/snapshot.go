// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package ncf

import (
	"errors"
	"fmt"
)

// LayerSnapshot is the serializable form of one dense layer.
type LayerSnapshot struct {
	In      int
	Out     int
	Weights []float64
	Bias    []float64
}

// Snapshot is the complete serializable parameter set of a Model.
type Snapshot struct {
	Config Config

	UserGMF []float64
	ItemGMF []float64
	UserMLP []float64
	ItemMLP []float64

	Hidden []LayerSnapshot
	Final  LayerSnapshot
}

func snapshotLayer(d *dense) LayerSnapshot {
	return LayerSnapshot{
		In:      d.In,
		Out:     d.Out,
		Weights: append([]float64(nil), d.W...),
		Bias:    append([]float64(nil), d.B...),
	}
}

// Snapshot copies the model parameters.
func (m *Model) Snapshot() *Snapshot {
	s := &Snapshot{
		Config:  m.cfg,
		UserGMF: append([]float64(nil), m.userGMF...),
		ItemGMF: append([]float64(nil), m.itemGMF...),
		UserMLP: append([]float64(nil), m.userMLP...),
		ItemMLP: append([]float64(nil), m.itemMLP...),
		Hidden:  make([]LayerSnapshot, len(m.hidden)),
		Final:   snapshotLayer(&m.final),
	}
	s.Config.Layers = append([]int(nil), m.cfg.Layers...)
	for l := range m.hidden {
		s.Hidden[l] = snapshotLayer(&m.hidden[l])
	}
	return s
}

// FromSnapshot rebuilds a model, checking every tensor shape against the
// snapshot's config.
func FromSnapshot(s *Snapshot) (*Model, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	cfg := s.Config
	cfg.Layers = append([]int(nil), s.Config.Layers...)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot config: %w", err)
	}

	d := cfg.EmbeddingDim
	if err := checkLen("user_gmf", s.UserGMF, cfg.NumUsers*d); err != nil {
		return nil, err
	}
	if err := checkLen("item_gmf", s.ItemGMF, cfg.NumItems*d); err != nil {
		return nil, err
	}
	if err := checkLen("user_mlp", s.UserMLP, cfg.NumUsers*d); err != nil {
		return nil, err
	}
	if err := checkLen("item_mlp", s.ItemMLP, cfg.NumItems*d); err != nil {
		return nil, err
	}
	if len(s.Hidden) != len(cfg.Layers) {
		return nil, fmt.Errorf("snapshot has %d hidden layers, config expects %d", len(s.Hidden), len(cfg.Layers))
	}

	m := &Model{
		cfg:     cfg,
		userGMF: append([]float64(nil), s.UserGMF...),
		itemGMF: append([]float64(nil), s.ItemGMF...),
		userMLP: append([]float64(nil), s.UserMLP...),
		itemMLP: append([]float64(nil), s.ItemMLP...),
		hidden:  make([]dense, len(cfg.Layers)),
	}

	in := 2 * d
	for l, out := range cfg.Layers {
		layer, err := restoreLayer(fmt.Sprintf("hidden[%d]", l), s.Hidden[l], in, out)
		if err != nil {
			return nil, err
		}
		m.hidden[l] = layer
		in = out
	}
	final, err := restoreLayer("final", s.Final, d+in, 1)
	if err != nil {
		return nil, err
	}
	m.final = final

	return m, nil
}

func restoreLayer(name string, s LayerSnapshot, in, out int) (dense, error) {
	if s.In != in || s.Out != out {
		return dense{}, fmt.Errorf("%s: shape %dx%d, expected %dx%d", name, s.Out, s.In, out, in)
	}
	if err := checkLen(name+".weights", s.Weights, in*out); err != nil {
		return dense{}, err
	}
	if err := checkLen(name+".bias", s.Bias, out); err != nil {
		return dense{}, err
	}
	return dense{
		In:  in,
		Out: out,
		W:   append([]float64(nil), s.Weights...),
		B:   append([]float64(nil), s.Bias...),
	}, nil
}

func checkLen(name string, v []float64, want int) error {
	if len(v) != want {
		return fmt.Errorf("%s: length %d, expected %d", name, len(v), want)
	}
	return nil
}
