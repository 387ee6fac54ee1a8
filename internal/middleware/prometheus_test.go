// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		status int
	}{
		{"success", http.MethodGet, http.StatusOK},
		{"accepted", http.MethodPost, http.StatusAccepted},
		{"client error", http.MethodGet, http.StatusBadRequest},
		{"server error", http.MethodPost, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/v1/test", nil))

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestRouteLabel(t *testing.T) {
	t.Parallel()

	t.Run("unmatched without chi", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if got := routeLabel(req); got != "unmatched" {
			t.Errorf("routeLabel() = %q, want unmatched", got)
		}
	})

	t.Run("route pattern under chi", func(t *testing.T) {
		t.Parallel()
		var label string
		r := chi.NewRouter()
		r.Get("/users/{userID}", func(w http.ResponseWriter, r *http.Request) {
			label = routeLabel(r)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/42", nil))
		if label != "/users/{userID}" {
			t.Errorf("routeLabel() = %q, want /users/{userID}", label)
		}
	})
}

func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, statusCode: http.StatusOK}

	sr.WriteHeader(http.StatusNotFound)
	sr.WriteHeader(http.StatusInternalServerError)
	n, err := sr.Write([]byte("gone"))
	if err != nil || n != 4 {
		t.Fatalf("Write() = %d, %v", n, err)
	}

	if sr.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want first written %d", sr.statusCode, http.StatusNotFound)
	}
	if sr.bytes != 4 {
		t.Errorf("bytes = %d, want 4", sr.bytes)
	}
	if sr.Unwrap() != rec {
		t.Error("Unwrap() did not return the wrapped writer")
	}
}
