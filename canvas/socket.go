// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/canvassync/lib/clock"
	"github.com/bureau-foundation/canvassync/lib/netutil"
)

const (
	socketPath         = "/msg/ws"
	socketWriteTimeout = 10 * time.Second

	heartbeatPing = "ping"
	heartbeatPong = "pong"
)

// helloMessage is the first client message in HandshakeHello mode. It
// carries the push-stream cursor so the server can align both channels
// to one causal point.
type helloMessage struct {
	Type        string         `json:"type"`
	Context     RequestContext `json:"context"`
	LastEventID string         `json:"last_event_id"`
}

// Socket is the bidirectional channel for ephemeral signals: gestures,
// readiness and spatial updates. It never carries commands.
type Socket struct {
	wsHost    string
	handshake SocketHandshake
	context   RequestContext
	dialer    *websocket.Dialer
	header    http.Header
	clock     clock.Clock
	logger    *slog.Logger
	tickets   *TicketClient
	router    *Router

	// cursor returns the push-stream resumption cursor for the hello
	// message.
	cursor func() string

	state *channelState

	connMu   sync.Mutex
	conn     *websocket.Conn
	canvasID string

	// writeMu serializes writes; a websocket connection supports one
	// concurrent writer.
	writeMu sync.Mutex
}

func newSocket(config *Config, tickets *TicketClient, router *Router, cursor func() string) *Socket {
	return &Socket{
		wsHost:    config.WSHost,
		handshake: config.SocketHandshake,
		context:   config.Context,
		dialer:    config.Dialer,
		header:    config.DialHeader.Clone(),
		clock:     config.Clock,
		logger:    config.Logger.With("channel", "socket", "handshake", string(config.SocketHandshake)),
		tickets:   tickets,
		router:    router,
		cursor:    cursor,
		state:     newChannelState(),
	}
}

// Status returns the channel status.
func (s *Socket) Status() Status { return s.state.Status() }

// run opens sessions until ctx is cancelled. A ticket failure and a
// close of any kind, including a clean server close, are both
// followed by a backoff wait and a fresh ticket.
func (s *Socket) run(ctx context.Context, canvasID string) {
	defer s.state.setStatus(StatusDisconnected)
	for {
		if ctx.Err() != nil {
			return
		}
		err := s.session(ctx, canvasID)
		if ctx.Err() != nil {
			return
		}

		failures := s.state.failed()
		delay := ReconnectDelay(failures)
		s.logger.Warn("socket disconnected, reconnecting",
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

// session runs one ticket, dial, read cycle and returns why it ended.
func (s *Socket) session(ctx context.Context, canvasID string) error {
	s.state.setStatus(StatusConnecting)

	ticket, err := s.tickets.Ticket(ctx)
	if err != nil {
		return fmt.Errorf("canvas: acquiring socket ticket: %w", err)
	}

	query := make(url.Values)
	if s.handshake == HandshakeQuery {
		query = contextQuery(s.context)
	}
	query.Set(queryTicket, ticket)
	target := s.wsHost + socketPath + "?" + query.Encode()

	conn, _, err := s.dialer.DialContext(ctx, target, s.header)
	if err != nil {
		return fmt.Errorf("canvas: dialing socket: %w", err)
	}
	s.setConn(conn, canvasID)
	defer s.clearConn(conn)

	// Cancellation closes the connection, which unblocks ReadMessage.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if s.handshake == HandshakeHello {
		hello := helloMessage{Type: "hello", Context: s.context, LastEventID: s.cursor()}
		encoded, err := json.Marshal(hello)
		if err != nil {
			return fmt.Errorf("canvas: encoding hello: %w", err)
		}
		if err := s.write(conn, encoded); err != nil {
			return fmt.Errorf("canvas: sending hello: %w", err)
		}
	}

	s.state.connected()
	s.logger.Info("socket connected", "canvas_id", canvasID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if netutil.IsExpectedCloseError(err) {
				return fmt.Errorf("canvas: socket closed: %w", err)
			}
			return fmt.Errorf("canvas: reading socket: %w", err)
		}

		if string(data) == heartbeatPing {
			if err := s.write(conn, []byte(heartbeatPong)); err != nil {
				return fmt.Errorf("canvas: answering heartbeat: %w", err)
			}
			continue
		}

		event, err := DecodeEvent(data)
		if err != nil {
			s.logger.Warn("skipping malformed socket message", "error", err)
			continue
		}
		event.meta().Source = SourceSocket
		s.router.Process(event)
	}
}

func (s *Socket) setConn(conn *websocket.Conn, canvasID string) {
	s.connMu.Lock()
	s.conn = conn
	s.canvasID = canvasID
	s.connMu.Unlock()
}

func (s *Socket) clearConn(conn *websocket.Conn) {
	s.connMu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.connMu.Unlock()
	conn.Close()
}

// write sends one text frame under the write lock.
func (s *Socket) write(conn *websocket.Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout)) //nolint:realclock network deadline
	return conn.WriteMessage(websocket.TextMessage, data)
}

// send writes an outbound event if the socket is connected. When it
// is not, the event is dropped with a warning: nothing is queued and
// no network call is made. The result reports whether it was written.
func (s *Socket) send(event Event) bool {
	s.connMu.Lock()
	conn, canvasID := s.conn, s.canvasID
	s.connMu.Unlock()

	if conn == nil || s.state.Status() != StatusConnected {
		s.logger.Warn("socket not connected, dropping outbound message", "type", string(event.EventType()))
		return false
	}

	switch variant := event.(type) {
	case *GestureEvent:
		variant.Routing.CanvasID = canvasID
	case *CanvasReadyEvent:
		variant.Routing.CanvasID = canvasID
	case *SpatialUpdateEvent:
		variant.Routing.CanvasID = canvasID
	}

	encoded, err := EncodeEvent(event)
	if err != nil {
		s.logger.Warn("dropping unencodable outbound message", "type", string(event.EventType()), "error", err)
		return false
	}
	if err := s.write(conn, encoded); err != nil {
		s.logger.Warn("socket write failed, dropping outbound message", "type", string(event.EventType()), "error", err)
		return false
	}
	return true
}

// SendGesture relays pointer or gesture telemetry. Data is opaque.
func (s *Socket) SendGesture(kind string, data json.RawMessage) bool {
	return s.send(&GestureEvent{ActorID: s.context.UserID, Kind: kind, Data: data})
}

// SendCanvasReady announces that this participant has rendered the
// canvas.
func (s *Socket) SendCanvasReady() bool {
	return s.send(&CanvasReadyEvent{ActorID: s.context.UserID})
}

// SendSpatialUpdate announces this participant's bounding box.
func (s *Socket) SendSpatialUpdate(box BoundingBox, metadata json.RawMessage) bool {
	return s.send(&SpatialUpdateEvent{ActorID: s.context.UserID, Box: box, Metadata: metadata})
}
