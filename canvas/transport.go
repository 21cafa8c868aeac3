// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// Transport keeps a client's view of one canvas in sync with the
// server. It owns the push stream, the socket and the event router,
// and exposes the request/response clients that share their
// authorization headers.
//
// Transport is safe for concurrent use. Handlers registered with
// Subscribe must not call Connect or Disconnect.
type Transport struct {
	config Config
	logger *slog.Logger

	router    *Router
	stream    *PushStream
	socket    *Socket
	tickets   *TicketClient
	commands  *CommandClient
	artifacts *ArtifactClient
	audits    *AuditClient

	// lifecycle serializes Connect and Disconnect.
	lifecycle sync.Mutex
	cancel    context.CancelFunc
	running   sync.WaitGroup
	canvasID  string
}

// New validates config and builds a Transport. Nothing is sent until
// Connect (or one of the request/response clients) is called.
//
// New returns a *ConfigError for an unrecognized mode, an unknown
// strategy or handshake, or an unusable host. Missing context fields
// are logged. A missing request id is generated and written back to
// config.Context, so every Transport built from the same config
// shares one request id. No other field of config is changed.
func New(config *Config) (*Transport, error) {
	if config == nil {
		return nil, errors.New("canvas: nil config")
	}
	normal := *config
	if err := normal.normalize(); err != nil {
		return nil, err
	}
	config.Context.RequestID = normal.Context.RequestID

	requester := newRequester(&normal)
	router := NewRouter(normal.Clock)
	tickets := &TicketClient{requester: requester}
	stream := newPushStream(&normal, router)

	return &Transport{
		config:    normal,
		logger:    normal.Logger,
		router:    router,
		stream:    stream,
		socket:    newSocket(&normal, tickets, router, stream.LastEventID),
		tickets:   tickets,
		commands:  &CommandClient{requester: requester},
		artifacts: &ArtifactClient{requester: requester},
		audits:    &AuditClient{requester: requester},
	}, nil
}

// Connect starts the push stream and the socket for canvasID. Both
// run in the background and reconnect on their own until Disconnect
// is called or ctx is cancelled. Connecting while already connected
// stops the current channels first.
func (t *Transport) Connect(ctx context.Context, canvasID string) error {
	if canvasID == "" {
		return errors.New("canvas: connect requires a canvas id")
	}

	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if t.cancel != nil {
		t.logger.Info("reconnecting transport to new canvas", "previous_canvas_id", t.canvasID, "canvas_id", canvasID)
		t.stopLocked()
	}

	generation, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.canvasID = canvasID

	t.running.Add(2)
	go func() {
		defer t.running.Done()
		t.stream.run(generation, canvasID)
	}()
	go func() {
		defer t.running.Done()
		t.socket.run(generation, canvasID)
	}()

	t.logger.Info("transport connecting", "canvas_id", canvasID)
	return nil
}

// Disconnect stops both channels. Cancelling the connection
// generation aborts the in-flight stream read, closes the socket and
// abandons any pending reconnect wait; Disconnect then waits for both
// channel goroutines to exit, resets both statuses to disconnected
// and emits system/DISCONNECTED. No reconnect attempt happens after
// Disconnect returns.
func (t *Transport) Disconnect() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.stopLocked()
	t.logger.Info("transport disconnected", "canvas_id", t.canvasID)
	t.router.Process(systemEvent(SystemDisconnected, t.canvasID))
}

func (t *Transport) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.running.Wait()
	t.stream.state.reset()
	t.socket.state.reset()
}

// Context returns the validated request context, including any
// generated request id.
func (t *Transport) Context() RequestContext { return t.config.Context }

// PushStatus returns the push-stream channel status.
func (t *Transport) PushStatus() Status { return t.stream.Status() }

// SocketStatus returns the socket channel status.
func (t *Transport) SocketStatus() Status { return t.socket.Status() }

// LastEventID returns the push-stream resumption cursor.
func (t *Transport) LastEventID() string { return t.stream.LastEventID() }

// Subscribe registers handler for every event from either channel.
func (t *Transport) Subscribe(handler Handler) (unsubscribe func()) {
	return t.router.Subscribe(handler)
}

// SafetyDecision returns the latest safety decision for a stream key
// (canvas id or thread id).
func (t *Transport) SafetyDecision(key string) (SafetyDecisionSummary, bool) {
	return t.router.SafetyDecision(key)
}

// SafetyDecisions returns a copy of every cached safety decision.
func (t *Transport) SafetyDecisions() map[string]SafetyDecisionSummary {
	return t.router.SafetyDecisions()
}

// Ticket acquires a socket ticket. See TicketClient.Ticket.
func (t *Transport) Ticket(ctx context.Context) (string, error) {
	return t.tickets.Ticket(ctx)
}

// SendCommand sends a command. See CommandClient.Send.
func (t *Transport) SendCommand(ctx context.Context, canvasID string, command Command) (*CommandResponse, error) {
	return t.commands.Send(ctx, canvasID, command)
}

// UploadArtifact uploads an artifact. See ArtifactClient.Upload.
func (t *Transport) UploadArtifact(ctx context.Context, canvasID string, upload ArtifactUpload) (*Artifact, error) {
	return t.artifacts.Upload(ctx, canvasID, upload)
}

// RequestAudit runs an audit. See AuditClient.Request.
func (t *Transport) RequestAudit(ctx context.Context, canvasID, ruleset string) (*AuditResult, error) {
	return t.audits.Request(ctx, canvasID, ruleset)
}

// SendGesture relays gesture telemetry over the socket, or drops it
// with a warning when the socket is not connected.
func (t *Transport) SendGesture(kind string, data json.RawMessage) bool {
	return t.socket.SendGesture(kind, data)
}

// SendCanvasReady announces readiness over the socket, or drops it
// with a warning when the socket is not connected.
func (t *Transport) SendCanvasReady() bool { return t.socket.SendCanvasReady() }

// SendSpatialUpdate announces a bounding box over the socket, or
// drops it with a warning when the socket is not connected.
func (t *Transport) SendSpatialUpdate(box BoundingBox, metadata json.RawMessage) bool {
	return t.socket.SendSpatialUpdate(box, metadata)
}
