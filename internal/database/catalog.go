// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/papertrail/internal/database/query"
	"github.com/tomtom215/papertrail/internal/metrics"
	"github.com/tomtom215/papertrail/internal/recommend"
)

var _ recommend.DataProvider = (*DB)(nil)

const interactionColumns = `user_id, item_id, action, occurred_at, COALESCE(session_seconds, 0)`

const paperColumns = `id, title, subject, COALESCE(level, ''), COALESCE(exam_type, ''),
	COALESCE(instructor, ''), COALESCE(academic_year, ''), downloads, views, avg_relevance, approved`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(s rowScanner) (recommend.Interaction, error) {
	var (
		in     recommend.Interaction
		action string
	)
	if err := s.Scan(&in.UserID, &in.ItemID, &action, &in.Timestamp, &in.SessionSeconds); err != nil {
		return in, err
	}
	in.Action = recommend.ParseActionKind(action)
	return in, nil
}

func scanPaper(s rowScanner) (recommend.Paper, error) {
	var (
		p     recommend.Paper
		level string
	)
	err := s.Scan(&p.ID, &p.Title, &p.Subject, &level, &p.Type, &p.Instructor,
		&p.AcademicYear, &p.Downloads, &p.Views, &p.AvgRelevance, &p.Approved)
	p.Level = recommend.Level(level)
	return p, err
}

func (db *DB) queryInteractions(ctx context.Context, op, sqlQuery string, args ...any) (result []recommend.Interaction, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery(op, "interactions", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer closeWithLog(rows, "interaction rows")

	result = []recommend.Interaction{}
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		result = append(result, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}
	return result, nil
}

// GetInteractions returns every recorded interaction in chronological order.
func (db *DB) GetInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	return db.queryInteractions(ctx, "select_all",
		`SELECT `+interactionColumns+` FROM interactions ORDER BY occurred_at, id`)
}

// GetUserInteractions returns the interactions of one student in
// chronological order.
func (db *DB) GetUserInteractions(ctx context.Context, userID int) ([]recommend.Interaction, error) {
	return db.queryInteractions(ctx, "select_user",
		`SELECT `+interactionColumns+` FROM interactions WHERE user_id = ? ORDER BY occurred_at, id`, userID)
}

// GetPaper returns one paper or an error wrapping recommend.ErrNotFound.
func (db *DB) GetPaper(ctx context.Context, id int) (paper *recommend.Paper, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_one", "papers", time.Since(start), err) }()

	p, err := scanPaper(db.conn.QueryRowContext(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "paper", id)
	}
	return &p, nil
}

// GetPapers returns the papers that exist among ids, keyed by id.
func (db *DB) GetPapers(ctx context.Context, ids []int) (map[int]*recommend.Paper, error) {
	out := make(map[int]*recommend.Paper, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	wb := query.NewWhereBuilder().AddInts("id", ids)
	papers, err := db.queryPapers(ctx, "select_many", wb)
	if err != nil {
		return nil, err
	}
	for i := range papers {
		out[papers[i].ID] = &papers[i]
	}
	return out, nil
}

// ListPapers returns the papers matching filter ordered by id.
func (db *DB) ListPapers(ctx context.Context, filter recommend.PaperFilter) ([]recommend.Paper, error) {
	wb := query.NewWhereBuilder()
	if filter.ApprovedOnly {
		wb.AddClause("approved = ?", true)
	}
	if levels := filter.MaxLevel.AllowedLevels(); levels != nil {
		names := make([]string, len(levels))
		for i, l := range levels {
			names[i] = string(l)
		}
		wb.AddStrings("level", names)
	}
	return db.queryPapers(ctx, "select_filtered", wb)
}

func (db *DB) queryPapers(ctx context.Context, op string, wb *query.WhereBuilder) (result []recommend.Paper, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery(op, "papers", time.Since(start), err) }()

	where, args := wb.BuildWithPrefix()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+paperColumns+` FROM papers `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query papers: %w", err)
	}
	defer closeWithLog(rows, "paper rows")

	result = []recommend.Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating papers: %w", err)
	}
	return result, nil
}

// GetUser returns one student profile or an error wrapping
// recommend.ErrNotFound.
func (db *DB) GetUser(ctx context.Context, id int) (student *recommend.Student, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select_one", "students", time.Since(start), err) }()

	var (
		s     recommend.Student
		level sql.NullString
	)
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, level, COALESCE(program, '') FROM students WHERE id = ?`, id,
	).Scan(&s.ID, &level, &s.Program)
	if err != nil {
		return nil, notFound(err, "student", id)
	}
	s.Level = recommend.Level(level.String)
	return &s, nil
}
