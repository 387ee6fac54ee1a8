// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package ncf

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// adam is the Adam optimizer with L2 weight decay folded into the gradient
// (coupled decay, not AdamW).
type adam struct {
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64

	step int
	m    [][]float64
	v    [][]float64
}

func newAdam(params [][]float64, lr, weightDecay float64) *adam {
	a := &adam{
		lr:          lr,
		beta1:       0.9,
		beta2:       0.999,
		eps:         1e-8,
		weightDecay: weightDecay,
		m:           make([][]float64, len(params)),
		v:           make([][]float64, len(params)),
	}
	for k, p := range params {
		a.m[k] = make([]float64, len(p))
		a.v[k] = make([]float64, len(p))
	}
	return a
}

// update applies one step. grads are modified in place by the decay term.
func (a *adam) update(params, grads [][]float64) {
	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))
	stepSize := a.lr / bc1
	sqrtBC2 := math.Sqrt(bc2)

	for k, p := range params {
		g := grads[k]
		if a.weightDecay != 0 {
			floats.AddScaled(g, a.weightDecay, p)
		}
		m, v := a.m[k], a.v[k]
		for j := range p {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			p[j] -= stepSize * m[j] / (math.Sqrt(v[j])/sqrtBC2 + a.eps)
		}
	}
}

// clipGradNorm rescales grads so that their global L2 norm does not exceed
// maxNorm. It returns the norm before clipping.
func clipGradNorm(grads [][]float64, maxNorm float64) float64 {
	var sq float64
	for _, g := range grads {
		n := floats.Norm(g, 2)
		sq += n * n
	}
	total := math.Sqrt(sq)
	if maxNorm > 0 && total > maxNorm {
		scale := maxNorm / (total + 1e-6)
		for _, g := range grads {
			floats.Scale(scale, g)
		}
	}
	return total
}
