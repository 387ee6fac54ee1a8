// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"time"
)

// Note: This package has no dependency on the database package. The
// interfaces below are implemented by internal/database and injected by the
// caller.

// InteractionSource supplies interaction records.
type InteractionSource interface {
	// GetInteractions returns every recorded interaction.
	GetInteractions(ctx context.Context) ([]Interaction, error)

	// GetUserInteractions returns the interactions of one user.
	GetUserInteractions(ctx context.Context, userID int) ([]Interaction, error)
}

// PaperFilter restricts ListPapers.
type PaperFilter struct {
	// ApprovedOnly drops papers that moderation has not approved.
	ApprovedOnly bool

	// MaxLevel keeps only papers the given student level allows. An empty
	// or unrecognised level disables the filter.
	MaxLevel Level
}

// Catalog supplies paper and student metadata.
type Catalog interface {
	// GetPaper returns one paper, or ErrNotFound.
	GetPaper(ctx context.Context, id int) (*Paper, error)

	// GetPapers returns the papers that exist among ids, keyed by id.
	GetPapers(ctx context.Context, ids []int) (map[int]*Paper, error)

	// ListPapers returns papers matching filter ordered by id.
	ListPapers(ctx context.Context, filter PaperFilter) ([]Paper, error)

	// GetUser returns one student profile, or ErrNotFound.
	GetUser(ctx context.Context, id int) (*Student, error)
}

// DataProvider is the full read side the predictors need.
type DataProvider interface {
	InteractionSource
	Catalog
}

// RegistryEntry is one trained model version.
type RegistryEntry struct {
	Version         string         `json:"version"`
	Description     string         `json:"description"`
	ModelPath       string         `json:"model_path"`
	Architecture    string         `json:"architecture"`
	IsActive        bool           `json:"is_active"`
	Hyperparameters map[string]any `json:"hyperparameters"`
	CreatedAt       time.Time      `json:"created_at"`
}

// TrainingLog records the outcome of one training run.
type TrainingLog struct {
	ID              int64     `json:"id"`
	ModelVersion    string    `json:"model_version"`
	TrainingDate    time.Time `json:"training_date"`
	DurationSeconds float64   `json:"duration_seconds"`
	NumInteractions int       `json:"nb_interactions"`
	NumUsers        int       `json:"nb_users"`
	NumPapers       int       `json:"nb_papers"`
	TrainLoss       float64   `json:"train_loss"`
	ValLoss         float64   `json:"val_loss"`
	TestLoss        float64   `json:"test_loss"`
	RMSE            float64   `json:"rmse"`
	PrecisionAt10   float64   `json:"precision_at_10"`
	RecallAt10      float64   `json:"recall_at_10"`
	Notes           string    `json:"notes"`
}

// Registry persists model versions and their training logs.
type Registry interface {
	// ActivateModel records entry as the only active model together with its
	// training log, atomically.
	ActivateModel(ctx context.Context, entry *RegistryEntry, log *TrainingLog) error

	// ActiveModel returns the active entry, or ErrNotFound.
	ActiveModel(ctx context.Context) (*RegistryEntry, error)

	// LatestTrainingLog returns the newest log of version, or ErrNotFound.
	LatestTrainingLog(ctx context.Context, version string) (*TrainingLog, error)
}
