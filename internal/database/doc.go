// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package database provides DuckDB-backed storage for the exam paper catalog,
// the interaction log and the model registry.
//
// # Overview
//
// DB implements the collaborator interfaces of package recommend:
//
//   - recommend.InteractionSource: GetInteractions, GetUserInteractions
//   - recommend.Catalog: GetPaper, GetPapers, ListPapers, GetUser
//   - recommend.Registry: ActivateModel, ActiveModel, LatestTrainingLog
//
// # Architecture
//
//   - database.go: Lifecycle (open, initialize, checkpoint, close)
//   - database_schema.go: Table and index creation
//   - database_connection.go: Pool configuration and conflict-retrying transactions
//   - database_utils.go: Profiling, context defaults, record counts
//   - migrations.go: Versioned schema migrations
//   - catalog.go: Catalog and interaction queries
//   - registry.go: Model registry and training logs
//   - seed.go: Insert helpers and demo corpus generation
//
// # Usage Examples
//
//	db, err := database.New(&cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	papers, err := db.ListPapers(ctx, recommend.PaperFilter{
//	    ApprovedOnly: true,
//	    MaxLevel:     recommend.LevelL3,
//	})
//
// # Model Registry
//
// ActivateModel deactivates every other version, records the entry as active
// and appends its training log in a single transaction, so readers never see
// zero or two active models. DuckDB transaction conflicts are retried.
//
// # Error Handling
//
// Lookups of a missing row return an error wrapping recommend.ErrNotFound.
// Everything else is wrapped with fmt.Errorf and %w. Queries without a
// deadline get a 30 second timeout.
//
// # Concurrency
//
// All exported methods are safe for concurrent use.
package database
