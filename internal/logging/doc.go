// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package logging provides the process-wide zerolog logger for Papertrail.
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("version", v).Msg("model activated")
//	logging.Ctx(ctx).Warn().Err(err).Msg("cache write failed")
//
// Components receive a zerolog.Logger by value and derive a child:
//
//	logger = logger.With().Str("component", "lite_predictor").Logger()
//
// # Output
//
// Destination selects stderr (default), stdout or a file path. File output
// is rotated by lumberjack according to Config.File.
//
// # Adapters
//
//   - NewSlogLogger adapts the global logger to *slog.Logger for sutureslog.
//   - NewWatermillLogger implements watermill.LoggerAdapter for the event bus.
package logging
