// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package storage persists trained NCF model snapshots and their id mappings.
//
// A trained model is only usable together with the exact id mapping it was
// trained against, so every version is written as a pair of files that share
// a version tag.
//
// # Storage Format
//
// Each file is a gob-encoded envelope holding metadata and a gzip-compressed
// gob payload. The metadata carries a SHA-256 checksum of the uncompressed
// payload, verified on every load.
//
//	ncf_model_{version}.gob.gz       model parameters
//	id_mappings_{version}.gob.gz     user/item index tables
//	ncf_model_latest.gob.gz          copy of the promoted model
//	id_mappings_latest.gob.gz        copy of the promoted mapping
//
// Save writes a version and promotes it in one call. Stage and Promote split
// the two so a caller can move the latest aliases only after the version has
// been accepted elsewhere.
//
// Files are written to a temporary name and renamed into place, so readers
// never observe a partially written file.
//
// # Usage Example
//
//	store, err := storage.NewStore("/data/models")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	meta, err := store.Save(ctx, "v_20260101_120000", model.Snapshot(), mappings)
//
//	bundle, err := store.LoadLatest(ctx)
//	if errors.Is(err, storage.ErrSnapshotNotFound) {
//	    // no model trained yet
//	}
//
// # Thread Safety
//
// All Store methods are safe for concurrent use within one process.
package storage
