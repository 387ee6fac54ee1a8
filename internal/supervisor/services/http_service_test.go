// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*HTTPServerService)(nil)

// fakeServer blocks in ListenAndServe until Shutdown unless listenErr is set.
type fakeServer struct {
	listenErr   error
	shutdownErr error

	started   chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
	shutdowns atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}, 1), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func serveAsync(ctx context.Context, svc *HTTPServerService) <-chan error {
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	return done
}

func waitErr(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestHTTPServerService_Defaults(t *testing.T) {
	t.Parallel()

	svc := NewHTTPServerService(newFakeServer(), 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestHTTPServerService_Serve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		listenErr     error
		shutdownErr   error
		cancel        bool
		wantErr       error
		wantShutdowns int32
	}{
		{
			name:          "cancel shuts down gracefully",
			cancel:        true,
			wantErr:       context.Canceled,
			wantShutdowns: 1,
		},
		{
			name:      "listen failure is returned",
			listenErr: errors.New("address already in use"),
		},
		{
			name:          "shutdown failure is returned",
			shutdownErr:   errors.New("connections still open"),
			cancel:        true,
			wantShutdowns: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newFakeServer()
			srv.listenErr = tt.listenErr
			srv.shutdownErr = tt.shutdownErr
			svc := NewHTTPServerService(srv, time.Second)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			done := serveAsync(ctx, svc)
			<-srv.started
			if tt.cancel {
				cancel()
			}

			err := waitErr(t, done)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Serve() = %v, want %v", err, tt.wantErr)
				}
			case tt.listenErr != nil:
				if !errors.Is(err, tt.listenErr) {
					t.Errorf("Serve() = %v, want wrapped %v", err, tt.listenErr)
				}
			case tt.shutdownErr != nil:
				if !errors.Is(err, tt.shutdownErr) {
					t.Errorf("Serve() = %v, want wrapped %v", err, tt.shutdownErr)
				}
			}
			if got := srv.shutdowns.Load(); got != tt.wantShutdowns {
				t.Errorf("Shutdown calls = %d, want %d", got, tt.wantShutdowns)
			}
		})
	}
}

func TestHTTPServerService_ServerClosedIsNotFailure(t *testing.T) {
	t.Parallel()

	srv := newFakeServer()
	srv.listenErr = http.ErrServerClosed
	svc := NewHTTPServerService(srv, time.Second)

	if err := waitErr(t, serveAsync(context.Background(), svc)); err != nil {
		t.Errorf("Serve() = %v, want nil", err)
	}
}

func TestHTTPServerService_RealServer(t *testing.T) {
	t.Parallel()

	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, svc)
	time.Sleep(50 * time.Millisecond)
	cancel()

	if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}
