// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/papertrail/internal/config"
	"github.com/tomtom215/papertrail/internal/recommend"
)

// testDBSemaphore serializes DuckDB usage across tests. Concurrent CGO
// connections from many parallel tests can hang under CI resource pressure.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB opens a fresh database file under t.TempDir. The semaphore is
// held until the test completes.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "papertrail.duckdb"),
		MaxMemory: "256MB",
		Threads:   1,
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(cfg)
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() {
			if err := res.db.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

// seedCatalog writes a small fixed catalog:
//
//	papers 1-4 (levels L1, L2, L3, M1), paper 5 unapproved L1, paper 6 without level
//	students 1 (L2 MATH), 2 (no level, no program)
//	interactions: 1-1 VIEW, 1-2 DOWNLOAD, 2-3 CLICK
func seedCatalog(t *testing.T, db *DB) time.Time {
	t.Helper()
	ctx := context.Background()

	papers := []recommend.Paper{
		{ID: 1, Title: "Partiel Analyse", Subject: "Analyse", Level: recommend.LevelL1, Type: "PARTIEL", Instructor: "Dupont", AcademicYear: "2023-2024", Downloads: 10, Views: 40, AvgRelevance: 4.5, Approved: true},
		{ID: 2, Title: "Examen Algebre", Subject: "Algebre", Level: recommend.LevelL2, Type: "EXAMEN", AcademicYear: "2022-2023", Downloads: 5, Views: 10, AvgRelevance: 3, Approved: true},
		{ID: 3, Title: "TD Reseaux", Subject: "Reseaux", Level: recommend.LevelL3, Type: "TD", Approved: true},
		{ID: 4, Title: "CC IA", Subject: "IA", Level: recommend.LevelM1, Type: "CC", Approved: true},
		{ID: 5, Title: "Brouillon", Subject: "Analyse", Level: recommend.LevelL1, Type: "TD", Approved: false},
		{ID: 6, Title: "Sans niveau", Subject: "Optique", Approved: true},
	}
	if err := db.UpsertPapers(ctx, papers); err != nil {
		t.Fatalf("UpsertPapers() error = %v", err)
	}

	students := []recommend.Student{
		{ID: 1, Level: recommend.LevelL2, Program: "MATH"},
		{ID: 2},
	}
	if err := db.UpsertStudents(ctx, students); err != nil {
		t.Fatalf("UpsertStudents() error = %v", err)
	}

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	interactions := []recommend.Interaction{
		{UserID: 1, ItemID: 1, Action: recommend.ActionView, Timestamp: base, SessionSeconds: 120},
		{UserID: 1, ItemID: 2, Action: recommend.ActionDownload, Timestamp: base.Add(time.Hour)},
		{UserID: 2, ItemID: 3, Action: recommend.ActionClick, Timestamp: base.Add(30 * time.Minute)},
	}
	if err := db.InsertInteractions(ctx, interactions); err != nil {
		t.Fatalf("InsertInteractions() error = %v", err)
	}
	return base
}

func TestNew_InitializesSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if *counts != (RecordCounts{}) {
		t.Errorf("Expected empty tables, got %+v", counts)
	}

	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	if want := len(db.getMigrations()); version != want {
		t.Errorf("Schema version = %d, want %d", version, want)
	}

	history, err := db.GetMigrationHistory(ctx)
	if err != nil {
		t.Fatalf("GetMigrationHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].Name != "training_logs_version_index" || history[1].Version != 2 {
		t.Errorf("Unexpected migration history: %+v", history)
	}
}

func TestMigrations_RunOnce(t *testing.T) {
	db := setupTestDB(t)

	// A second pass must not re-apply anything.
	if err := db.runVersionedMigrations(); err != nil {
		t.Fatalf("runVersionedMigrations() error = %v", err)
	}
	history, err := db.GetMigrationHistory(context.Background())
	if err != nil {
		t.Fatalf("GetMigrationHistory() error = %v", err)
	}
	if len(history) != len(db.getMigrations()) {
		t.Errorf("Expected %d migrations, got %d", len(db.getMigrations()), len(history))
	}
}

func TestNew_ReopensExistingFile(t *testing.T) {
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	cfg := &config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "nested", "db.duckdb"), Threads: 1}
	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.UpsertStudents(context.Background(), []recommend.Student{{ID: 9, Level: recommend.LevelM2}}); err != nil {
		t.Fatalf("UpsertStudents() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err = New(cfg)
	if err != nil {
		t.Fatalf("New() on existing file error = %v", err)
	}
	defer db.Close()

	s, err := db.GetUser(context.Background(), 9)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if s.Level != recommend.LevelM2 {
		t.Errorf("Level = %q, want M2", s.Level)
	}
	if db.GetDatabasePath() != cfg.Path {
		t.Errorf("GetDatabasePath() = %q", db.GetDatabasePath())
	}
}

func TestSeedDemoData(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	opts := SeedOptions{Students: 20, Papers: 12, Interactions: 150, Seed: 7}
	if err := db.SeedDemoData(ctx, opts); err != nil {
		t.Fatalf("SeedDemoData() error = %v", err)
	}

	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if counts.Students != 20 || counts.Papers != 12 || counts.Interactions != 150 {
		t.Errorf("Unexpected counts after seed: %+v", counts)
	}

	// A non-empty catalog is left alone.
	if err := db.SeedDemoData(ctx, opts); err != nil {
		t.Fatalf("second SeedDemoData() error = %v", err)
	}
	again, err := db.GetRecordCounts(ctx)
	if err != nil {
		t.Fatalf("GetRecordCounts() error = %v", err)
	}
	if *again != *counts {
		t.Errorf("Seed ran twice: %+v then %+v", counts, again)
	}

	interactions, err := db.GetInteractions(ctx)
	if err != nil {
		t.Fatalf("GetInteractions() error = %v", err)
	}
	for i := 1; i < len(interactions); i++ {
		if interactions[i].Timestamp.Before(interactions[i-1].Timestamp) {
			t.Fatal("GetInteractions() must be chronological")
		}
	}
}
