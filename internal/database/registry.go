// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/papertrail/internal/metrics"
	"github.com/tomtom215/papertrail/internal/recommend"
)

var _ recommend.Registry = (*DB)(nil)

// ActivateModel records entry as the only active model and appends log, in
// one transaction. Re-activating an existing version overwrites its entry.
// On success log.ID holds the new log id.
func (db *DB) ActivateModel(ctx context.Context, entry *recommend.RegistryEntry, log *recommend.TrainingLog) (err error) {
	if entry == nil || log == nil {
		return errors.New("registry entry and training log are required")
	}
	if entry.Version == "" {
		return errors.New("registry entry version is required")
	}

	db.registryMu.Lock()
	defer db.registryMu.Unlock()

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("activate", "model_registry", time.Since(start), err) }()

	hyper, err := json.Marshal(entry.Hyperparameters)
	if err != nil {
		return fmt.Errorf("failed to encode hyperparameters: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	trainedAt := log.TrainingDate
	if trainedAt.IsZero() {
		trainedAt = createdAt
	}

	var logID int64
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE model_registry SET is_active = FALSE WHERE is_active AND version <> ?`, entry.Version); err != nil {
			return fmt.Errorf("failed to deactivate models: %w", err)
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) > 0 FROM model_registry WHERE version = ?`, entry.Version).Scan(&exists); err != nil {
			return fmt.Errorf("failed to look up model %s: %w", entry.Version, err)
		}

		var execErr error
		if exists {
			_, execErr = tx.ExecContext(ctx, `
				UPDATE model_registry
				SET description = ?, model_path = ?, architecture = ?, is_active = TRUE,
					hyperparameters = ?, created_at = ?
				WHERE version = ?`,
				entry.Description, entry.ModelPath, entry.Architecture, string(hyper), createdAt.UTC(), entry.Version)
		} else {
			_, execErr = tx.ExecContext(ctx, `
				INSERT INTO model_registry
					(version, description, model_path, architecture, is_active, hyperparameters, created_at)
				VALUES (?, ?, ?, ?, TRUE, ?, ?)`,
				entry.Version, entry.Description, entry.ModelPath, entry.Architecture, string(hyper), createdAt.UTC())
		}
		if execErr != nil {
			return fmt.Errorf("failed to record model %s: %w", entry.Version, execErr)
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO training_logs
				(model_version, training_date, duration_seconds, nb_interactions, nb_users, nb_papers,
				 train_loss, val_loss, test_loss, rmse, precision_at_10, recall_at_10, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			entry.Version, trainedAt.UTC(), log.DurationSeconds, log.NumInteractions, log.NumUsers, log.NumPapers,
			log.TrainLoss, log.ValLoss, log.TestLoss, log.RMSE, log.PrecisionAt10, log.RecallAt10, log.Notes,
		).Scan(&logID)
		if err != nil {
			return fmt.Errorf("failed to record training log: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	entry.IsActive = true
	log.ID = logID
	log.ModelVersion = entry.Version
	return nil
}

// ActiveModel returns the active registry entry or an error wrapping
// recommend.ErrNotFound.
func (db *DB) ActiveModel(ctx context.Context) (entry *recommend.RegistryEntry, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_active", "model_registry", time.Since(start), err) }()

	var (
		e     recommend.RegistryEntry
		hyper sql.NullString
	)
	err = db.conn.QueryRowContext(ctx, `
		SELECT version, COALESCE(description, ''), model_path, COALESCE(architecture, ''),
			is_active, hyperparameters, created_at
		FROM model_registry
		WHERE is_active
		ORDER BY created_at DESC
		LIMIT 1`,
	).Scan(&e.Version, &e.Description, &e.ModelPath, &e.Architecture, &e.IsActive, &hyper, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active model: %w", recommend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active model: %w", err)
	}

	if hyper.Valid && hyper.String != "" {
		if err := json.Unmarshal([]byte(hyper.String), &e.Hyperparameters); err != nil {
			return nil, fmt.Errorf("failed to decode hyperparameters of %s: %w", e.Version, err)
		}
	}
	return &e, nil
}

// LatestTrainingLog returns the newest training log of version or an error
// wrapping recommend.ErrNotFound.
func (db *DB) LatestTrainingLog(ctx context.Context, version string) (log *recommend.TrainingLog, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_latest", "training_logs", time.Since(start), err) }()

	var l recommend.TrainingLog
	err = db.conn.QueryRowContext(ctx, `
		SELECT id, model_version, training_date,
			COALESCE(duration_seconds, 0), COALESCE(nb_interactions, 0), COALESCE(nb_users, 0),
			COALESCE(nb_papers, 0), COALESCE(train_loss, 0), COALESCE(val_loss, 0),
			COALESCE(test_loss, 0), COALESCE(rmse, 0), COALESCE(precision_at_10, 0),
			COALESCE(recall_at_10, 0), COALESCE(notes, '')
		FROM training_logs
		WHERE model_version = ?
		ORDER BY training_date DESC, id DESC
		LIMIT 1`, version,
	).Scan(&l.ID, &l.ModelVersion, &l.TrainingDate,
		&l.DurationSeconds, &l.NumInteractions, &l.NumUsers,
		&l.NumPapers, &l.TrainLoss, &l.ValLoss,
		&l.TestLoss, &l.RMSE, &l.PrecisionAt10,
		&l.RecallAt10, &l.Notes)
	if err != nil {
		return nil, notFound(err, "training log for", version)
	}
	return &l, nil
}

// ListModels returns every registry entry, newest first.
func (db *DB) ListModels(ctx context.Context) (entries []recommend.RegistryEntry, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_all", "model_registry", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT version, COALESCE(description, ''), model_path, COALESCE(architecture, ''),
			is_active, hyperparameters, created_at
		FROM model_registry
		ORDER BY created_at DESC, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query model registry: %w", err)
	}
	defer closeWithLog(rows, "registry rows")

	entries = []recommend.RegistryEntry{}
	for rows.Next() {
		var (
			e     recommend.RegistryEntry
			hyper sql.NullString
		)
		if err := rows.Scan(&e.Version, &e.Description, &e.ModelPath, &e.Architecture, &e.IsActive, &hyper, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan registry entry: %w", err)
		}
		if hyper.Valid && hyper.String != "" {
			if err := json.Unmarshal([]byte(hyper.String), &e.Hyperparameters); err != nil {
				return nil, fmt.Errorf("failed to decode hyperparameters of %s: %w", e.Version, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
