// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEventBus_DeliversToEverySubscriber(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewEventBus(8, testLogger())
	defer func() { _ = bus.Close() }()

	a := make(chan string, 2)
	b := make(chan string, 2)
	for _, ch := range []chan string{a, b} {
		ch := ch
		if err := bus.OnModelActivated(ctx, func(_ context.Context, ev ModelActivated) error {
			ch <- ev.Version
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	if err := bus.PublishModelActivated(ctx, ModelActivated{Version: "v_a", ActivatedAt: at}); err != nil {
		t.Fatalf("PublishModelActivated() error = %v", err)
	}

	for name, ch := range map[string]chan string{"a": a, "b": b} {
		select {
		case v := <-ch:
			if v != "v_a" {
				t.Errorf("subscriber %s got %q", name, v)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("subscriber %s got nothing", name)
		}
	}
}

func TestEventBus_HandlerErrorDoesNotBlock(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewEventBus(8, testLogger())
	defer func() { _ = bus.Close() }()

	calls := make(chan string, 4)
	if err := bus.OnModelActivated(ctx, func(_ context.Context, ev ModelActivated) error {
		calls <- ev.Version
		return errors.New("reload failed")
	}); err != nil {
		t.Fatal(err)
	}

	for _, v := range []string{"v1", "v2"} {
		if err := bus.PublishModelActivated(ctx, ModelActivated{Version: v}); err != nil {
			t.Fatal(err)
		}
	}
	for _, want := range []string{"v1", "v2"} {
		select {
		case got := <-calls:
			if got != want {
				t.Errorf("handled %q, want %q", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("event %s not handled", want)
		}
	}
}

func TestEventBus_EngineReloadsOnActivation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewEventBus(8, testLogger())
	defer func() { _ = bus.Close() }()

	p := &reloadingPredictor{}
	e := newTestEngine(t, p, nil, nil)

	done := make(chan struct{})
	if err := bus.OnModelActivated(ctx, func(ctx context.Context, ev ModelActivated) error {
		defer close(done)
		return e.HandleModelActivated(ctx, ev)
	}); err != nil {
		t.Fatal(err)
	}
	if err := bus.PublishModelActivated(ctx, ModelActivated{Version: "v7"}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("activation not handled")
	}
	if p.reloads.Load() != 1 {
		t.Errorf("reloads = %d, want 1", p.reloads.Load())
	}
}
