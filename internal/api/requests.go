// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/papertrail/internal/models"
	"github.com/tomtom215/papertrail/internal/validation"
)

// DefaultTopK is used when top_k is absent.
const DefaultTopK = 10

// paramError describes a malformed query or path parameter.
type paramError struct {
	name  string
	value string
	want  string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s must be %s, got %q", e.name, e.want, e.value)
}

// pathID parses a chi URL parameter as a non-negative integer.
func pathID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, &paramError{name: name, value: raw, want: "a non-negative integer"}
	}
	return id, nil
}

// queryInt returns an integer query parameter or def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: key, value: raw, want: "an integer"}
	}
	return v, nil
}

// queryOptionalInt returns nil when the parameter is absent.
func queryOptionalInt(r *http.Request, key string) (*int, error) {
	if strings.TrimSpace(r.URL.Query().Get(key)) == "" {
		return nil, nil
	}
	v, err := queryInt(r, key, 0)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// queryBool accepts true/false, 1/0, yes/no and on/off, case-insensitively.
func queryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	switch raw {
	case "":
		return def, nil
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, &paramError{name: key, value: raw, want: "a boolean"}
	}
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes, or a models.APIError if validation fails.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}
