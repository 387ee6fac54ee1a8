// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/papertrail/internal/metrics"
)

// topPapersLimit is the number of papers reported by GlobalStats.
const topPapersLimit = 5

// UserStats summarises the interactions of one student.
type UserStats struct {
	UserID                 int            `json:"user_id"`
	TotalInteractions      int64          `json:"total_interactions"`
	InteractionsByAction   map[string]int `json:"interactions_by_type"`
	UniquePapersViewed     int64          `json:"unique_papers_viewed"`
	UniquePapersDownloaded int64          `json:"unique_papers_downloaded"`
}

// PaperPopularity is one row of the most downloaded papers.
type PaperPopularity struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Subject   string `json:"subject"`
	Downloads int    `json:"downloads"`
	Views     int    `json:"views"`
}

// GlobalStats summarises the whole catalog.
type GlobalStats struct {
	TotalStudents     int64             `json:"total_students"`
	TotalPapers       int64             `json:"total_papers"`
	TotalInteractions int64             `json:"total_interactions"`
	AvgPerStudent     float64           `json:"avg_interactions_per_student"`
	TopPapers         []PaperPopularity `json:"top_papers"`
}

// GetUserStats aggregates the interactions of userID. An unknown student
// yields zero counts.
func (db *DB) GetUserStats(ctx context.Context, userID int) (stats *UserStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("user_stats", "interactions", time.Since(start), err) }()

	stats = &UserStats{UserID: userID, InteractionsByAction: map[string]int{}}

	err = db.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT CASE WHEN action = 'VIEW' THEN item_id END),
			COUNT(DISTINCT CASE WHEN action = 'DOWNLOAD' THEN item_id END)
		FROM interactions
		WHERE user_id = ?
	`, userID).Scan(&stats.TotalInteractions, &stats.UniquePapersViewed, &stats.UniquePapersDownloaded)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user interactions: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT action, COUNT(*)
		FROM interactions
		WHERE user_id = ?
		GROUP BY action
		ORDER BY action
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count user actions: %w", err)
	}
	defer closeWithLog(rows, "user action rows")

	for rows.Next() {
		var (
			action string
			count  int
		)
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		stats.InteractionsByAction[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating action counts: %w", err)
	}
	return stats, nil
}

// GetGlobalStats reports catalog totals and the most downloaded approved
// papers.
func (db *DB) GetGlobalStats(ctx context.Context) (stats *GlobalStats, err error) {
	counts, err := db.GetRecordCounts(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("global_stats", "papers", time.Since(start), err) }()

	stats = &GlobalStats{
		TotalStudents:     counts.Students,
		TotalPapers:       counts.Papers,
		TotalInteractions: counts.Interactions,
		TopPapers:         []PaperPopularity{},
	}
	if counts.Students > 0 {
		stats.AvgPerStudent = float64(counts.Interactions) / float64(counts.Students)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, subject, downloads, views
		FROM papers
		WHERE approved = TRUE
		ORDER BY downloads DESC, id
		LIMIT ?
	`, topPapersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top papers: %w", err)
	}
	defer closeWithLog(rows, "top paper rows")

	for rows.Next() {
		var p PaperPopularity
		if err := rows.Scan(&p.ID, &p.Title, &p.Subject, &p.Downloads, &p.Views); err != nil {
			return nil, fmt.Errorf("failed to scan top paper: %w", err)
		}
		stats.TopPapers = append(stats.TopPapers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top papers: %w", err)
	}
	return stats, nil
}
