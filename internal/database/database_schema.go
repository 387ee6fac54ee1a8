// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

/*
database_schema.go - Database Schema Management

Tables:
  - students: Student profiles (level, declared program)
  - papers: Exam paper catalog with popularity counters and moderation flag
  - interactions: Append-only log of student actions on papers
  - model_registry: Trained model versions; exactly one row is active
  - training_logs: One row per training run with loss and ranking metrics

Index Strategy:
Only append-only tables are indexed. Rows of papers and model_registry are
rewritten in place, and DuckDB turns updates of indexed rows into
delete+insert pairs that conflict inside a single transaction.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// getTableCreationQueries returns the table creation SQL statements
func (db *DB) getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS students (
			id INTEGER PRIMARY KEY,
			level TEXT,
			program TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,

		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			subject TEXT NOT NULL,
			level TEXT,
			exam_type TEXT,
			instructor TEXT,
			academic_year TEXT,
			downloads INTEGER NOT NULL DEFAULT 0,
			views INTEGER NOT NULL DEFAULT 0,
			avg_relevance DOUBLE NOT NULL DEFAULT 0,
			approved BOOLEAN NOT NULL DEFAULT TRUE
		);`,

		`CREATE SEQUENCE IF NOT EXISTS interactions_id_seq START 1;`,

		`CREATE TABLE IF NOT EXISTS interactions (
			id BIGINT PRIMARY KEY DEFAULT nextval('interactions_id_seq'),
			user_id INTEGER NOT NULL,
			item_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			session_seconds INTEGER
		);`,

		// hyperparameters holds a JSON object encoded by the application
		`CREATE TABLE IF NOT EXISTS model_registry (
			version TEXT PRIMARY KEY,
			description TEXT,
			model_path TEXT NOT NULL,
			architecture TEXT,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			hyperparameters TEXT,
			created_at TIMESTAMP NOT NULL
		);`,

		`CREATE SEQUENCE IF NOT EXISTS training_logs_id_seq START 1;`,

		`CREATE TABLE IF NOT EXISTS training_logs (
			id BIGINT PRIMARY KEY DEFAULT nextval('training_logs_id_seq'),
			model_version TEXT NOT NULL,
			training_date TIMESTAMP NOT NULL,
			duration_seconds DOUBLE,
			nb_interactions INTEGER,
			nb_users INTEGER,
			nb_papers INTEGER,
			train_loss DOUBLE,
			val_loss DOUBLE,
			test_loss DOUBLE,
			rmse DOUBLE,
			precision_at_10 DOUBLE,
			recall_at_10 DOUBLE,
			notes TEXT
		);`,
	}
}

// createIndexes creates all database indexes unless the config skips them.
func (db *DB) createIndexes() error {
	if db.cfg != nil && db.cfg.SkipIndexes {
		return nil
	}

	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range db.getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}

	return nil
}

// getIndexQueries returns index creation SQL statements
func (db *DB) getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_item ON interactions(item_id);`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_occurred_at ON interactions(occurred_at);`,
	}
}
