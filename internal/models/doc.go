// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package models defines the HTTP response structures shared by the API
// handlers.
//
// Every endpoint answers with an APIResponse envelope. Recommendation payloads
// are the recommend package's own types (UserRecommendations, SimilarItems,
// ModelStatus, TrainingReport) placed in Data.
package models
