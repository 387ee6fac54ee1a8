// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

/*
Package services provides suture.Service wrappers for Papertrail components.

Each wrapper translates a component's lifecycle into suture's context-aware
Serve pattern and implements fmt.Stringer so supervisor logs name it.

# Available Services

RecommendService:
  - Optional training run at startup
  - Scheduled retraining on a ticker; a zero interval disables it
  - Logs and survives training failures, including a concurrent run
    (recommend.ErrTrainingInProgress) and a corpus too small to train on

ModelEventService:
  - Subscribes to recommend.TopicModelActivated on the event bus
  - Forwards each activation to the engine, which reloads the model and
    clears cached results
  - Subscribes again when restarted by the supervisor

HTTPServerService:
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections
*/
package services
