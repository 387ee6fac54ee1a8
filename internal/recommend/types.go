// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"strings"
	"time"
)

// ActionKind is the type of a student interaction with a paper.
type ActionKind string

// Recognised interaction kinds.
const (
	ActionView     ActionKind = "VIEW"
	ActionClick    ActionKind = "CLICK"
	ActionDownload ActionKind = "DOWNLOAD"
	ActionRate     ActionKind = "RATE"
)

// Weight returns the implicit-feedback strength of the action.
// Unrecognised kinds weigh the same as a view.
func (a ActionKind) Weight() float64 {
	switch a {
	case ActionView:
		return 1
	case ActionClick:
		return 2
	case ActionDownload:
		return 3
	case ActionRate:
		return 4
	default:
		return 1
	}
}

// ParseActionKind normalises s to an ActionKind. The result may be an
// unrecognised kind; Weight handles those.
func ParseActionKind(s string) ActionKind {
	return ActionKind(strings.ToUpper(strings.TrimSpace(s)))
}

// Level is an academic level.
type Level string

// Academic levels in ascending order.
const (
	LevelL1 Level = "L1"
	LevelL2 Level = "L2"
	LevelL3 Level = "L3"
	LevelM1 Level = "M1"
	LevelM2 Level = "M2"
)

var levelOrder = []Level{LevelL1, LevelL2, LevelL3, LevelM1, LevelM2}

// Rank returns the position of l in the level order, or -1 if l is not a
// recognised level.
func (l Level) Rank() int {
	for i, v := range levelOrder {
		if v == l {
			return i
		}
	}
	return -1
}

// Known reports whether l is a recognised level.
func (l Level) Known() bool {
	return l.Rank() >= 0
}

// Allows reports whether a paper at level p may be shown to a student at
// level l. An unknown student level allows everything.
func (l Level) Allows(p Level) bool {
	lr := l.Rank()
	if lr < 0 {
		return true
	}
	pr := p.Rank()
	return pr >= 0 && pr <= lr
}

// AllowedLevels returns the levels l allows, in ascending order, or nil when
// l is not a recognised level.
func (l Level) AllowedLevels() []Level {
	r := l.Rank()
	if r < 0 {
		return nil
	}
	out := make([]Level, r+1)
	copy(out, levelOrder[:r+1])
	return out
}

// Interaction is a single student action on a paper.
type Interaction struct {
	// UserID is the catalog identifier of the student.
	UserID int `json:"user_id"`

	// ItemID is the catalog identifier of the paper.
	ItemID int `json:"item_id"`

	// Action is the kind of interaction.
	Action ActionKind `json:"action"`

	// Timestamp is when the interaction occurred.
	Timestamp time.Time `json:"timestamp"`

	// SessionSeconds is the time spent on a VIEW, if recorded.
	SessionSeconds int `json:"session_seconds,omitempty"`
}

// WeightedInteraction is an interaction reduced to its feedback weight.
type WeightedInteraction struct {
	UserID    int
	ItemID    int
	Weight    float64
	Timestamp time.Time
}

// Paper is the catalog metadata of an exam paper.
type Paper struct {
	// ID is the catalog identifier.
	ID int `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Subject is the course subject, e.g. "Analyse".
	Subject string `json:"subject"`

	// Level is the academic level the paper targets.
	Level Level `json:"level"`

	// Type is the exam type (PARTIEL, EXAMEN, TD, RATTRAPAGE, CC).
	Type string `json:"type"`

	// Instructor is the author of the paper, if known.
	Instructor string `json:"instructor,omitempty"`

	// AcademicYear is the year label, e.g. "2023-2024".
	AcademicYear string `json:"academic_year"`

	// Downloads is the download counter.
	Downloads int `json:"downloads"`

	// Views is the view counter.
	Views int `json:"views"`

	// AvgRelevance is the mean relevance rating on a 0-5 scale.
	AvgRelevance float64 `json:"avg_relevance"`

	// Approved reports whether moderation has approved the paper.
	Approved bool `json:"approved"`
}

// popularity is the raw popularity signal shared by the fallback paths.
func (p *Paper) popularity() float64 {
	return float64(2*p.Downloads + p.Views)
}

// Student is the catalog profile of a student.
type Student struct {
	// ID is the catalog identifier.
	ID int `json:"id"`

	// Level is the student's current level. Empty if undeclared.
	Level Level `json:"level,omitempty"`

	// Program is the declared program (MATH, INFO, PHYSIQUE, CHIMIE).
	// Empty if undeclared.
	Program string `json:"program,omitempty"`
}

// Result is one recommended paper.
type Result struct {
	// ItemID is the catalog identifier of the paper.
	ItemID int `json:"item_id"`

	// Score is the predictor-specific relevance score.
	Score float64 `json:"score"`

	// Paper is the catalog metadata, if available.
	Paper *Paper `json:"paper,omitempty"`
}

// UserRequest asks for personalized recommendations.
type UserRequest struct {
	UserID        int  `json:"user_id" validate:"gte=0"`
	TopK          int  `json:"top_k" validate:"gte=1,lte=100"`
	ExcludeSeen   bool `json:"exclude_seen"`
	FilterByLevel bool `json:"filter_by_level"`
}

// SimilarRequest asks for papers similar to a given paper.
type SimilarRequest struct {
	ItemID int `json:"item_id" validate:"gte=0"`
	TopK   int `json:"top_k" validate:"gte=1,lte=100"`
}

// UserRecommendations is the response to a UserRequest.
type UserRecommendations struct {
	UserID   int      `json:"user_id"`
	Count    int      `json:"count"`
	Strategy string   `json:"strategy"`
	Results  []Result `json:"recommendations"`
}

// SimilarItems is the response to a SimilarRequest.
type SimilarItems struct {
	ItemID   int      `json:"item_id"`
	Count    int      `json:"count"`
	Strategy string   `json:"strategy"`
	Results  []Result `json:"similar_items"`
}

// Model status values.
const (
	StatusNoModel = "no_model"
	StatusReady   = "ready"
)

// ModelStatus describes the active model.
type ModelStatus struct {
	Status          string         `json:"status"`
	Strategy        string         `json:"strategy"`
	Version         string         `json:"version,omitempty"`
	Architecture    string         `json:"architecture,omitempty"`
	Description     string         `json:"description,omitempty"`
	CreatedAt       *time.Time     `json:"created_at,omitempty"`
	Hyperparameters map[string]any `json:"hyperparameters,omitempty"`
	Training        *TrainingLog   `json:"training_info,omitempty"`
	IsTraining      bool           `json:"is_training"`
}
