// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps a thread-safe singleton validator with the application's custom
// tags and translates failures into readable messages and the API error
// format.
//
// # Field Names
//
// Errors name fields by their json tag, falling back to the koanf tag, so a
// request failure reads "top_k must be less than or equal to 100" and a
// configuration failure reads "port must be less than or equal to 65535".
//
// # Custom Tags
//
//   - exam_level: the value is a known study level (L1, L2, L3, M1, M2)
//   - strategy: the value is a known recommendation strategy (learned, lite)
//
// # Usage
//
//	req := recommend.UserRequest{UserID: id, TopK: topK}
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Validate returns the same failure as a plain error for callers that only
// propagate it, such as configuration loading.
//
// # Thread Safety
//
// GetValidator initializes the validator once; the instance caches struct
// metadata and is safe for concurrent use.
package validation
