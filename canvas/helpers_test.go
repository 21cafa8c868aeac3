// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/canvassync/lib/clock"
	"github.com/bureau-foundation/canvassync/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// receiveTimeout bounds every wait on a goroutine in this package's
// tests. Reconnect timing is driven by the fake clock; this is only
// the hang safety valve.
const receiveTimeout = 5 * time.Second

// testContext returns a fully populated development context.
func testContext() RequestContext {
	return RequestContext{
		TenantID:  "tenant-1",
		Mode:      ModeDevelopment,
		ProjectID: "project-1",
		RequestID: "request-1",
		UserID:    "user-1",
	}
}

// testConfig returns a normalized Config pointing at server for both
// HTTP and socket traffic, with a fake clock.
func testConfig(t *testing.T, server *httptest.Server, fakeClock *clock.FakeClock) *Config {
	t.Helper()
	httpHost := "http://127.0.0.1:1"
	wsHost := "ws://127.0.0.1:1"
	if server != nil {
		httpHost = server.URL
		wsHost = "ws" + strings.TrimPrefix(server.URL, "http")
	}
	config := Config{
		HTTPHost: httpHost,
		WSHost:   wsHost,
		Token:    "token-1",
		Context:  testContext(),
		Clock:    fakeClock,
		Logger:   testutil.DiscardLogger(),
	}
	if fakeClock == nil {
		config.Clock = clock.Fake(epoch)
	}
	return &config
}

// normalized returns a normalized copy of config, failing the test on
// error.
func normalized(t *testing.T, config *Config) *Config {
	t.Helper()
	normal := *config
	if err := normal.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return &normal
}

// collect subscribes to router and returns a channel of every event
// it delivers.
func collect(t *testing.T, router *Router) <-chan Event {
	t.Helper()
	events := make(chan Event, 64)
	unsubscribe := router.Subscribe(func(event Event) {
		select {
		case events <- event:
		default:
			t.Errorf("event buffer full, dropping %s", event.EventType())
		}
	})
	t.Cleanup(unsubscribe)
	return events
}

// receiveSystem reads events until a system event arrives and returns
// it, failing on timeout.
func receiveSystem(t *testing.T, events <-chan Event) *SystemEvent {
	t.Helper()
	for {
		event := testutil.RequireReceive(t, events, receiveTimeout, "waiting for system event")
		if system, ok := event.(*SystemEvent); ok {
			return system
		}
	}
}
