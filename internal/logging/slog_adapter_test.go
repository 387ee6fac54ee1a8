// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandlerEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		level  zerolog.Level
		record slog.Level
		want   bool
	}{
		{"debug logger takes debug", zerolog.DebugLevel, slog.LevelDebug, true},
		{"info logger drops debug", zerolog.InfoLevel, slog.LevelDebug, false},
		{"info logger takes warn", zerolog.InfoLevel, slog.LevelWarn, true},
		{"error logger drops warn", zerolog.ErrorLevel, slog.LevelWarn, false},
		{"below debug maps to trace", zerolog.TraceLevel, slog.LevelDebug - 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewSlogHandler(zerolog.New(nil).Level(tt.level))
			if got := h.Enabled(context.Background(), tt.record); got != tt.want {
				t.Errorf("Enabled(%v) = %v, want %v", tt.record, got, tt.want)
			}
		})
	}
}

func TestSlogHandlerWritesAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(zerolog.New(&buf)))
	logger.With("supervisor", "papertrail").
		WithGroup("service").
		Warn("service restarted",
			"name", "training",
			"failures", 2,
			"backoff", 15*time.Second,
			"healthy", false,
			"err", errors.New("panic in run"),
			slog.Group("limits", "threshold", 5.5),
		)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"message":"service restarted"`,
		`"supervisor":"papertrail"`,
		`"service.name":"training"`,
		`"service.failures":2`,
		`"service.healthy":false`,
		`"service.err":"panic in run"`,
		`"service.limits.threshold":5.5`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestSlogHandlerEmptyGroupAndAttrs(t *testing.T) {
	t.Parallel()

	h := NewSlogHandler(zerolog.New(nil))
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("WithGroup(\"\") returned a new handler")
	}
	if h.WithAttrs(nil) != slog.Handler(h) {
		t.Error("WithAttrs(nil) returned a new handler")
	}
}

func TestNewSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	NewSlogLogger().Error("tree stopped")

	out := buf.String()
	if !strings.Contains(out, `"component":"supervisor"`) || !strings.Contains(out, `"level":"error"`) {
		t.Errorf("output = %s", out)
	}
}
