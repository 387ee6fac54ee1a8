// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/tomtom215/papertrail/internal/logging"
	"github.com/tomtom215/papertrail/internal/metrics"
	"github.com/tomtom215/papertrail/internal/recommend"
)

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UpsertStudents inserts or replaces student profiles.
func (db *DB) UpsertStudents(ctx context.Context, students []recommend.Student) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "students", time.Since(start), err) }()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO students (id, level, program) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare student insert: %w", err)
		}
		defer closeWithLog(stmt, "student statement")

		for _, s := range students {
			if _, err := stmt.ExecContext(ctx, s.ID, nullString(string(s.Level)), nullString(s.Program)); err != nil {
				return fmt.Errorf("failed to upsert student %d: %w", s.ID, err)
			}
		}
		return nil
	})
}

// UpsertPapers inserts or replaces catalog papers.
func (db *DB) UpsertPapers(ctx context.Context, papers []recommend.Paper) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "papers", time.Since(start), err) }()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO papers
				(id, title, subject, level, exam_type, instructor, academic_year, downloads, views, avg_relevance, approved)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare paper insert: %w", err)
		}
		defer closeWithLog(stmt, "paper statement")

		for i := range papers {
			p := &papers[i]
			if _, err := stmt.ExecContext(ctx, p.ID, p.Title, p.Subject, nullString(string(p.Level)),
				nullString(p.Type), nullString(p.Instructor), nullString(p.AcademicYear),
				p.Downloads, p.Views, p.AvgRelevance, p.Approved); err != nil {
				return fmt.Errorf("failed to upsert paper %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

// InsertInteractions appends interactions to the log. A zero timestamp is
// recorded as the current time.
func (db *DB) InsertInteractions(ctx context.Context, interactions []recommend.Interaction) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "interactions", time.Since(start), err) }()

	now := time.Now().UTC()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO interactions (user_id, item_id, action, occurred_at, session_seconds)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare interaction insert: %w", err)
		}
		defer closeWithLog(stmt, "interaction statement")

		for _, in := range interactions {
			ts := in.Timestamp
			if ts.IsZero() {
				ts = now
			}
			var session any
			if in.SessionSeconds > 0 {
				session = in.SessionSeconds
			}
			if _, err := stmt.ExecContext(ctx, in.UserID, in.ItemID, string(in.Action), ts.UTC(), session); err != nil {
				return fmt.Errorf("failed to insert interaction %d/%d: %w", in.UserID, in.ItemID, err)
			}
		}
		return nil
	})
}

// SeedOptions sizes the generated demo corpus.
type SeedOptions struct {
	Students     int
	Papers       int
	Interactions int
	Seed         int64
}

// DefaultSeedOptions returns a corpus large enough to train on.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Students:     200,
		Papers:       120,
		Interactions: 4000,
		Seed:         42,
	}
}

var (
	seedLevels      = []recommend.Level{recommend.LevelL1, recommend.LevelL2, recommend.LevelL3, recommend.LevelM1, recommend.LevelM2}
	seedExamTypes   = []string{"PARTIEL", "EXAMEN", "TD", "RATTRAPAGE", "CC"}
	seedInstructors = []string{"Dupont", "Martin", "Bernard", "Petit", "Durand", "Leroy", "Moreau", "Girard"}
	seedYears       = []string{"2020-2021", "2021-2022", "2022-2023", "2023-2024"}
	seedActions     = []recommend.ActionKind{
		recommend.ActionView, recommend.ActionView, recommend.ActionView,
		recommend.ActionClick, recommend.ActionClick,
		recommend.ActionDownload, recommend.ActionDownload,
		recommend.ActionRate,
	}
)

// SeedDemoData fills an empty catalog with a generated corpus. Students
// interact mostly with papers of their own program at or below their level,
// which gives both predictors a learnable signal. A catalog that already
// holds papers is left untouched.
func (db *DB) SeedDemoData(ctx context.Context, opts SeedOptions) error {
	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		return err
	}
	if counts.Papers > 0 {
		logging.Debug().Int64("papers", counts.Papers).Msg("Catalog not empty, skipping demo seed")
		return nil
	}

	logging.Info().
		Int("students", opts.Students).
		Int("papers", opts.Papers).
		Int("interactions", opts.Interactions).
		Msg("Seeding database with demo data")

	//nolint:gosec // deterministic demo data
	rng := rand.New(rand.NewSource(opts.Seed))
	programs := recommend.Programs()

	papers := make([]recommend.Paper, opts.Papers)
	byProgram := make(map[string][]int, len(programs))
	for i := range papers {
		program := programs[i%len(programs)]
		subjects := recommend.ProgramSubjects(program)
		subject := subjects[rng.Intn(len(subjects))]
		level := seedLevels[rng.Intn(len(seedLevels))]
		examType := seedExamTypes[rng.Intn(len(seedExamTypes))]
		papers[i] = recommend.Paper{
			ID:           i + 1,
			Title:        fmt.Sprintf("%s %s %s", examType, subject, level),
			Subject:      subject,
			Level:        level,
			Type:         examType,
			Instructor:   seedInstructors[rng.Intn(len(seedInstructors))],
			AcademicYear: seedYears[rng.Intn(len(seedYears))],
			Downloads:    rng.Intn(500),
			Views:        rng.Intn(2000),
			AvgRelevance: float64(rng.Intn(51)) / 10,
			Approved:     rng.Intn(10) > 0,
		}
		byProgram[program] = append(byProgram[program], i)
	}

	students := make([]recommend.Student, opts.Students)
	for i := range students {
		students[i] = recommend.Student{
			ID:      i + 1,
			Level:   seedLevels[rng.Intn(len(seedLevels))],
			Program: programs[rng.Intn(len(programs))],
		}
	}

	base := time.Now().UTC().Add(-90 * 24 * time.Hour)
	interactions := make([]recommend.Interaction, 0, opts.Interactions)
	for len(interactions) < opts.Interactions && len(students) > 0 && len(papers) > 0 {
		s := students[rng.Intn(len(students))]
		var p recommend.Paper
		if pool := byProgram[s.Program]; len(pool) > 0 && rng.Float64() < 0.8 {
			p = papers[pool[rng.Intn(len(pool))]]
		} else {
			p = papers[rng.Intn(len(papers))]
		}
		if !s.Level.Allows(p.Level) && rng.Float64() < 0.9 {
			continue
		}
		in := recommend.Interaction{
			UserID:    s.ID,
			ItemID:    p.ID,
			Action:    seedActions[rng.Intn(len(seedActions))],
			Timestamp: base.Add(time.Duration(rng.Int63n(int64(90 * 24 * time.Hour)))),
		}
		if in.Action == recommend.ActionView {
			in.SessionSeconds = 30 + rng.Intn(1800)
		}
		interactions = append(interactions, in)
	}

	if err := db.UpsertStudents(ctx, students); err != nil {
		return err
	}
	if err := db.UpsertPapers(ctx, papers); err != nil {
		return err
	}
	if err := db.InsertInteractions(ctx, interactions); err != nil {
		return err
	}

	logging.Info().Int("interactions", len(interactions)).Msg("Demo data seeded")
	return nil
}
