// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package ncf implements the hybrid neural collaborative filtering model used
// to score (student, paper) pairs, together with its training loop.
//
// # Architecture
//
// Every user and every item owns two independent embeddings:
//
//   - a bilinear (GMF) embedding, combined by elementwise product
//   - a deep (MLP) embedding, concatenated and fed through a ReLU stack
//     (128 -> 64 -> 32 by default) with dropout
//
// The GMF product vector and the MLP output are concatenated and reduced to a
// single unbounded scalar by one final linear layer. The bilinear path captures
// a low-rank interaction signal while the deep path learns higher-order,
// non-linear interaction effects; merging the two paths only at the output
// layer is the defining choice of the model.
//
// # Training
//
// Trainer runs mini-batch Adam over a mean-squared-error objective with global
// gradient-norm clipping, a plateau learning-rate schedule and early stopping.
// Gradients are computed by hand; there is no autodiff runtime. The best
// validation snapshot is always restored before Train returns.
//
// # Determinism
//
// Parameter initialization, batch shuffling and dropout masks all draw from a
// single seeded math/rand source, so identical inputs and seeds yield
// identical parameters.
package ncf
