package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatrelay/internal/config"
	"chatrelay/internal/core"
	"chatrelay/internal/store/sqlite"
)

// startTestServer builds a full server over an in-memory store with the
// hub as broadcaster, and returns the test server plus the service for
// direct seeding.
func startTestServer(t *testing.T) (*httptest.Server, *core.Service) {
	t.Helper()
	ts, service, _ := startTestHarness(t)
	return ts, service
}

// startTestHarness additionally exposes the hub for tests that inject
// events behind the handler's back.
func startTestHarness(t *testing.T) (*httptest.Server, *core.Service, *core.Hub) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	disabledLogger := zerolog.New(nil)

	hub := core.NewHub(&disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	service := core.NewService(st, hub, &disabledLogger)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxMessageBytes:   1 << 20,
	}

	server := NewServer(service, hub, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, service, hub
}
