// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/papertrail/internal/recommend"
	"github.com/tomtom215/papertrail/internal/validation"
)

// Error codes returned in models.APIError.
const (
	CodeValidation       = validation.ErrorCode
	CodeInvalidID        = "INVALID_ID"
	CodeNotFound         = "NOT_FOUND"
	CodeTrainingActive   = "TRAINING_IN_PROGRESS"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeModelUnavailable = "MODEL_UNAVAILABLE"
	CodeRecommendation   = "RECOMMENDATION_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeServiceNotReady  = "SERVICE_UNAVAILABLE"
	CodeRequestCancelled = "REQUEST_CANCELLED"
)

// statusClientClosedReq is the non-standard status for a client that went
// away before the response was written.
const statusClientClosedReq = 499

// errorStatus maps an engine error to an HTTP status, an error code and a
// client-safe message. Internal details stay in the logs.
func errorStatus(err error) (status int, code, message string) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, CodeValidation, verr.Error()
	case errors.Is(err, recommend.ErrInvalidTopK):
		return http.StatusBadRequest, CodeValidation, recommend.ErrInvalidTopK.Error()
	case errors.Is(err, recommend.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, err.Error()
	case errors.Is(err, recommend.ErrTrainingInProgress):
		return http.StatusConflict, CodeTrainingActive, "Training is already in progress"
	case recommend.IsDegenerate(err):
		return http.StatusUnprocessableEntity, CodeInsufficientData, err.Error()
	case errors.Is(err, recommend.ErrModelUnavailable):
		return http.StatusServiceUnavailable, CodeModelUnavailable, "No trained model is available"
	case errors.Is(err, context.Canceled):
		return statusClientClosedReq, CodeRequestCancelled, "Request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeInternal, "Request timed out"
	case errors.Is(err, recommend.ErrRecommendationFailed):
		return http.StatusInternalServerError, CodeRecommendation, "Failed to compute recommendations"
	default:
		return http.StatusInternalServerError, CodeInternal, "Internal server error"
	}
}
