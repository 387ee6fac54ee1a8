// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package supervisor provides suture-based process supervision for Papertrail.
//
// The server runs as a tree of supervisors with one child per layer:
//
//	papertrail
//	├── training-layer   scheduled training (services.RecommendService)
//	├── events-layer     model activation reload (services.ModelEventService)
//	└── api-layer        HTTP server (services.HTTPServerService)
//
// Services that fail are restarted with suture's backoff. Supervisor events
// are logged through sutureslog to the slog bridge in package logging.
//
// Usage:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
//	tree.AddTrainingService(services.NewRecommendService(engine, svcCfg, logger))
//	tree.AddEventService(services.NewModelEventService(bus, engine, logger))
//	tree.AddAPIService(services.NewHTTPServerService(srv, 10*time.Second))
//	err = tree.Serve(ctx)
package supervisor
