// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/canvassync/lib/clock"
	"github.com/bureau-foundation/canvassync/lib/netutil"
	"github.com/bureau-foundation/canvassync/lib/testutil"
)

func TestLineBufferRetainsPartialLine(t *testing.T) {
	t.Parallel()

	var buffer lineBuffer
	lines, err := buffer.feed([]byte("data: {\"type\":\"sys"))
	if err != nil || len(lines) != 0 {
		t.Fatalf("feed = %v, %v; want no lines yet", lines, err)
	}
	if buffer.pending() != `data: {"type":"sys` {
		t.Fatalf("pending = %q", buffer.pending())
	}

	lines, err = buffer.feed([]byte("tem\"}\r\nid: 4"))
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(lines) != 1 || lines[0] != `data: {"type":"system"}` {
		t.Fatalf("lines = %q", lines)
	}

	lines, _ = buffer.feed([]byte("2\n\n"))
	if len(lines) != 2 || lines[0] != "id: 42" || lines[1] != "" {
		t.Fatalf("lines = %q, want id line then blank separator", lines)
	}
	if buffer.pending() != "" {
		t.Errorf("pending = %q after complete lines", buffer.pending())
	}
}

func TestLineBufferByteAtATime(t *testing.T) {
	t.Parallel()

	input := "data: one\nid: 1\ndata: two\n"
	var buffer lineBuffer
	var lines []string
	for index := range len(input) {
		complete, err := buffer.feed([]byte{input[index]})
		if err != nil {
			t.Fatalf("feed: %v", err)
		}
		lines = append(lines, complete...)
	}
	want := []string{"data: one", "id: 1", "data: two"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestLineBufferRejectsOversizedLine(t *testing.T) {
	t.Parallel()

	var buffer lineBuffer
	chunk := append([]byte("data: ok\n"), bytes.Repeat([]byte{'x'}, int(netutil.MaxResponseSize))...)
	lines, err := buffer.feed(chunk)
	if err != nil {
		t.Fatalf("feed at the limit: %v", err)
	}
	if len(lines) != 1 || lines[0] != "data: ok" {
		t.Fatalf("lines = %q, want the complete line", lines)
	}

	lines, err = buffer.feed([]byte("x"))
	if !errors.Is(err, errLineTooLong) {
		t.Fatalf("feed past the limit: err = %v, want errLineTooLong", err)
	}
	if len(lines) != 0 {
		t.Errorf("lines = %d entries, want none", len(lines))
	}
	if buffer.pending() != "" {
		t.Errorf("partial line kept after overflow: %d bytes", len(buffer.pending()))
	}

	lines, err = buffer.feed([]byte("id: 7\n"))
	if err != nil || len(lines) != 1 || lines[0] != "id: 7" {
		t.Errorf("feed after overflow = %q, %v", lines, err)
	}
}

// streamServer serves a push stream. Each request's Last-Event-ID
// header and query are reported on the returned channels; the first
// request receives body and ends, later ones stay open until the
// client goes away.
func streamServer(t *testing.T, body string) (*httptest.Server, <-chan *http.Request) {
	t.Helper()
	requests := make(chan *http.Request, 8)
	var count atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !strings.HasPrefix(request.URL.Path, "/sse/canvas/") {
			http.NotFound(writer, request)
			return
		}
		requests <- request.Clone(context.Background())
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)
		if count.Add(1) > 1 {
			writer.(http.Flusher).Flush()
			<-request.Context().Done()
			return
		}
		// Split the body across two flushes to exercise reassembly.
		half := len(body) / 2
		fmt.Fprint(writer, body[:half])
		writer.(http.Flusher).Flush()
		fmt.Fprint(writer, body[half:])
	}))
	t.Cleanup(server.Close)
	return server, requests
}

const opsFrame = `data: {"type":"ops","routing":{"canvas_id":"c1"},"payload":{"rev":3,"ops":[{"op":"insert"}]}}`

func TestFetchStreamResumesFromLastEventID(t *testing.T) {
	server, requests := streamServer(t, opsFrame+"\nid: 42\n\n")
	fakeClock := clock.Fake(epoch)
	config := normalized(t, testConfig(t, server, fakeClock))
	router := NewRouter(fakeClock)
	events := collect(t, router)
	stream := newPushStream(config, router)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.run(ctx, "c1")
	}()
	defer func() {
		cancel()
		testutil.RequireClosed(t, done, receiveTimeout, "push stream exit")
	}()

	first := testutil.RequireReceive(t, requests, receiveTimeout, "first stream request")
	if cursor := first.Header.Get("Last-Event-ID"); cursor != "" {
		t.Errorf("first request Last-Event-ID = %q, want none", cursor)
	}
	if first.URL.Path != "/sse/canvas/c1" {
		t.Errorf("path = %q", first.URL.Path)
	}
	if got := first.Header.Get("Authorization"); got != "Bearer token-1" {
		t.Errorf("Authorization = %q", got)
	}
	if got := first.Header.Get("X-Tenant-ID"); got != "tenant-1" {
		t.Errorf("X-Tenant-ID = %q", got)
	}

	if system := receiveSystem(t, events); system.Status != SystemConnected {
		t.Fatalf("first system event = %s, want CONNECTED", system.Status)
	}
	ops, ok := testutil.RequireReceive(t, events, receiveTimeout, "ops event").(*OpsEvent)
	if !ok || ops.Rev != 3 {
		t.Fatalf("second event = %+v, want ops at rev 3", ops)
	}
	if ops.Source != SourcePushStream {
		t.Errorf("Source = %q, want push_stream", ops.Source)
	}

	// The server ended the stream: the channel is disconnected and
	// waiting out the first backoff step.
	fakeClock.WaitForTimers(1)
	if status := stream.Status(); status != StatusDisconnected {
		t.Errorf("Status during backoff = %s, want disconnected", status)
	}
	if cursor := stream.LastEventID(); cursor != "42" {
		t.Errorf("LastEventID = %q, want 42", cursor)
	}
	fakeClock.Advance(time.Second)

	second := testutil.RequireReceive(t, requests, receiveTimeout, "reconnect request")
	if cursor := second.Header.Get("Last-Event-ID"); cursor != "42" {
		t.Errorf("reconnect Last-Event-ID = %q, want 42", cursor)
	}
	if system := receiveSystem(t, events); system.Status != SystemConnected {
		t.Errorf("reconnect system event = %s, want CONNECTED", system.Status)
	}
}

func TestFetchStreamSkipsMalformedEvents(t *testing.T) {
	body := "data: {not json\n" +
		"data: {\"type\":\"unknown_kind\"}\n" +
		"event: ignored\n" +
		opsFrame + "\n"
	server, _ := streamServer(t, body)
	fakeClock := clock.Fake(epoch)
	config := testConfig(t, server, fakeClock)
	logger, captured := testutil.CaptureLogger()
	config.Logger = logger
	router := NewRouter(fakeClock)
	events := collect(t, router)
	stream := newPushStream(normalized(t, config), router)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.run(ctx, "c1")
	}()
	defer func() {
		cancel()
		testutil.RequireClosed(t, done, receiveTimeout, "push stream exit")
	}()

	receiveSystem(t, events)
	event := testutil.RequireReceive(t, events, receiveTimeout, "ops event after malformed lines")
	if event.EventType() != EventOps {
		t.Fatalf("event = %s, want ops", event.EventType())
	}
	fakeClock.WaitForTimers(1)

	skipped := 0
	for _, entry := range captured.Entries() {
		if entry.Message == "skipping malformed push stream event" {
			skipped++
		}
	}
	if skipped != 2 {
		t.Errorf("malformed events logged = %d, want 2", skipped)
	}
}

func TestFetchStreamBacksOffOnErrorStatus(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		attempts.Add(1)
		http.Error(writer, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fakeClock := clock.Fake(epoch)
	config := normalized(t, testConfig(t, server, fakeClock))
	stream := newPushStream(config, NewRouter(fakeClock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.run(ctx, "c1")
	}()

	// Each failure waits ReconnectDelay(n) before the next attempt.
	for failures := range 4 {
		fakeClock.WaitForTimers(1)
		if got := int(attempts.Load()); got != failures+1 {
			t.Fatalf("attempts = %d before backoff %d, want %d", got, failures, failures+1)
		}
		fakeClock.Advance(ReconnectDelay(failures) - time.Millisecond)
		if got := int(attempts.Load()); got != failures+1 {
			t.Fatalf("reconnected before the %v delay elapsed", ReconnectDelay(failures))
		}
		fakeClock.Advance(time.Millisecond)
	}

	cancel()
	testutil.RequireClosed(t, done, receiveTimeout, "push stream exit")
	if status := stream.Status(); status != StatusDisconnected {
		t.Errorf("Status after cancel = %s", status)
	}
}
