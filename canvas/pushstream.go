// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/bureau-foundation/canvassync/lib/clock"
	"github.com/bureau-foundation/canvassync/lib/netutil"
)

// errStreamEnded is returned by a strategy when the server closes the
// stream cleanly. It is still a failure from the channel's point of
// view and triggers a reconnect.
var errStreamEnded = errors.New("canvas: push stream ended")

// streamStrategy opens one push-stream connection and reads it until
// it fails, ends, or ctx is cancelled. It reports progress through the
// PushStream: opened once the response is accepted, deliver for each
// event payload, and setLastEventID for each cursor.
type streamStrategy interface {
	stream(ctx context.Context, channel *PushStream, canvasID string) error
}

// PushStream is the server-to-client ordered event feed. It owns the
// channel status, the consecutive-failure counter and the resumption
// cursor; the strategy decides only how bytes are requested and
// framed.
type PushStream struct {
	httpHost   string
	token      string
	context    RequestContext
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
	router     *Router
	strategy   streamStrategy

	state *channelState

	cursorMu    sync.Mutex
	lastEventID string
}

func newPushStream(config *Config, router *Router) *PushStream {
	var strategy streamStrategy = fetchStrategy{}
	if config.StreamStrategy == StreamEventSource {
		strategy = eventSourceStrategy{}
	}
	return &PushStream{
		httpHost:   config.HTTPHost,
		token:      config.Token,
		context:    config.Context,
		httpClient: config.HTTPClient,
		clock:      config.Clock,
		logger:     config.Logger.With("channel", "push_stream", "strategy", string(config.StreamStrategy)),
		router:     router,
		strategy:   strategy,
		state:      newChannelState(),
	}
}

// Status returns the channel status.
func (s *PushStream) Status() Status { return s.state.Status() }

// LastEventID returns the resumption cursor: the id of the last event
// seen on the stream, or "" before any.
func (s *PushStream) LastEventID() string {
	s.cursorMu.Lock()
	defer s.cursorMu.Unlock()
	return s.lastEventID
}

func (s *PushStream) setLastEventID(id string) {
	s.cursorMu.Lock()
	s.lastEventID = id
	s.cursorMu.Unlock()
}

// run connects and reconnects until ctx is cancelled. The context is
// checked before every attempt and during every backoff wait, so once
// it is cancelled no further request is made.
func (s *PushStream) run(ctx context.Context, canvasID string) {
	defer s.state.setStatus(StatusDisconnected)
	for {
		if ctx.Err() != nil {
			return
		}
		s.state.setStatus(StatusConnecting)
		err := s.strategy.stream(ctx, s, canvasID)
		if ctx.Err() != nil {
			return
		}

		failures := s.state.failed()
		delay := ReconnectDelay(failures)
		s.logger.Warn("push stream disconnected, reconnecting",
			"canvas_id", canvasID,
			"error", err,
			"attempt", failures+1,
			"delay", delay,
		)
		if !sleep(ctx, s.clock, delay) {
			return
		}
	}
}

// opened records a successful open and emits system/CONNECTED.
func (s *PushStream) opened(canvasID string) {
	s.state.connected()
	s.logger.Info("push stream connected", "canvas_id", canvasID, "last_event_id", s.LastEventID())
	s.router.Process(systemEvent(SystemConnected, canvasID))
}

// deliver decodes one event payload and routes it. Malformed payloads
// are logged and skipped.
func (s *PushStream) deliver(data string) {
	event, err := DecodeEvent([]byte(data))
	if err != nil {
		s.logger.Warn("skipping malformed push stream event", "error", err)
		return
	}
	event.meta().Source = SourcePushStream
	s.router.Process(event)
}

// streamURL returns the push-stream endpoint for a canvas, with an
// optional query string.
func (s *PushStream) streamURL(canvasID string, query url.Values) string {
	target := s.httpHost + "/sse/canvas/" + url.PathEscape(canvasID)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}

// open sends the stream request and checks the response status. On
// success the caller owns the returned body.
func (s *PushStream) open(request *http.Request) (*http.Response, error) {
	request.Header.Set("Accept", "text/event-stream")
	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("canvas: opening push stream: %w", err)
	}
	if response.StatusCode != http.StatusOK {
		defer response.Body.Close()
		return nil, fmt.Errorf("canvas: opening push stream: status %d: %s",
			response.StatusCode, netutil.ErrorBody(response.Body))
	}
	return response, nil
}
