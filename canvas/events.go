// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType is the wire discriminator carried in every event's "type"
// field.
type EventType string

const (
	// EventSystem carries transport lifecycle notices. The transport
	// synthesizes CONNECTED and DISCONNECTED locally; the server may
	// send others.
	EventSystem EventType = "system"

	// EventOps carries committed operations at a canvas revision. This
	// is what the reducer consumes.
	EventOps EventType = "ops"

	// EventSafetyDecision carries a policy verdict for a logical
	// stream. The router caches the latest one per stream.
	EventSafetyDecision EventType = "safety_decision"

	// EventGesture carries ephemeral pointer or gesture telemetry
	// relayed from another participant over the socket.
	EventGesture EventType = "gesture"

	// EventCanvasReady announces that a participant has rendered the
	// canvas and is ready to receive gestures.
	EventCanvasReady EventType = "canvas_ready"

	// EventSpatialUpdate announces a participant's viewport bounding
	// box and associated metadata.
	EventSpatialUpdate EventType = "spatial_update"
)

// ErrUnknownEventType is returned by DecodeEvent for a missing or
// unrecognized "type" field.
var ErrUnknownEventType = errors.New("canvas: unknown event type")

// SystemStatus is the status code of a system event.
type SystemStatus string

const (
	SystemConnected    SystemStatus = "CONNECTED"
	SystemDisconnected SystemStatus = "DISCONNECTED"
)

// SafetyResult is the verdict of a safety decision.
type SafetyResult string

const (
	SafetyPass  SafetyResult = "PASS"
	SafetyBlock SafetyResult = "BLOCK"
)

// Routing identifies the logical stream an event belongs to. At most
// one of the two is usually set; CanvasID takes precedence when
// indexing.
type Routing struct {
	CanvasID string `json:"canvas_id,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

// Key returns the stream key used to index per-stream state: the
// canvas id, else the thread id, else "".
func (r Routing) Key() string {
	if r.CanvasID != "" {
		return r.CanvasID
	}
	return r.ThreadID
}

// Source names where an event entered the transport.
type Source string

const (
	// SourceLocal marks events the transport synthesizes itself.
	SourceLocal      Source = "local"
	SourcePushStream Source = "push_stream"
	SourceSocket     Source = "socket"
)

// Meta is the envelope information shared by every event variant.
type Meta struct {
	// ID is the server-assigned event id when the envelope carries
	// one. Push-stream resumption uses the stream's own id lines, not
	// this field.
	ID string

	// Routing is the envelope routing block.
	Routing Routing

	// Source is set by the delivering channel. It is not part of the
	// wire format.
	Source Source
}

// EventMeta returns the envelope information of the event.
func (m Meta) EventMeta() Meta { return m }

func (m *Meta) meta() *Meta { return m }

// Event is one decoded message from either channel. The set of
// variants is closed: the concrete type is one of *SystemEvent,
// *OpsEvent, *SafetyDecisionEvent, *GestureEvent, *CanvasReadyEvent or
// *SpatialUpdateEvent. Switch on the concrete type or on EventType.
type Event interface {
	EventType() EventType
	EventMeta() Meta
	meta() *Meta
}

// SystemEvent is a transport or server lifecycle notice.
type SystemEvent struct {
	Meta    `json:"-"`
	Status  SystemStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

func (*SystemEvent) EventType() EventType { return EventSystem }

// OpsEvent carries operations the server has committed. Ops are
// opaque to the transport and handed to the reducer unchanged.
type OpsEvent struct {
	Meta          `json:"-"`
	Rev           int64             `json:"rev"`
	Ops           []json.RawMessage `json:"ops"`
	ActorID       string            `json:"actor_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

func (*OpsEvent) EventType() EventType { return EventOps }

// SafetyDecisionEvent is a policy verdict for the stream named by its
// routing block.
type SafetyDecisionEvent struct {
	Meta   `json:"-"`
	Action string       `json:"action"`
	Result SafetyResult `json:"result"`
	Reason string       `json:"reason,omitempty"`
	Gate   string       `json:"gate,omitempty"`
}

func (*SafetyDecisionEvent) EventType() EventType { return EventSafetyDecision }

// GestureEvent is pointer or gesture telemetry. Data is opaque to the
// transport.
type GestureEvent struct {
	Meta    `json:"-"`
	ActorID string          `json:"actor_id,omitempty"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (*GestureEvent) EventType() EventType { return EventGesture }

// CanvasReadyEvent announces that a participant has the canvas
// rendered.
type CanvasReadyEvent struct {
	Meta    `json:"-"`
	ActorID string `json:"actor_id,omitempty"`
}

func (*CanvasReadyEvent) EventType() EventType { return EventCanvasReady }

// BoundingBox is an axis-aligned rectangle in canvas coordinates.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SpatialUpdateEvent announces a participant's bounding box.
type SpatialUpdateEvent struct {
	Meta     `json:"-"`
	ActorID  string          `json:"actor_id,omitempty"`
	Box      BoundingBox     `json:"box"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (*SpatialUpdateEvent) EventType() EventType { return EventSpatialUpdate }

// envelope is the wire shape of every event.
type envelope struct {
	Type    EventType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Routing *Routing        `json:"routing,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeEvent parses one wire event. It fails for malformed JSON, a
// missing or unrecognized type, or a payload that does not match the
// type's shape.
func DecodeEvent(data []byte) (Event, error) {
	var wire envelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("canvas: decoding event envelope: %w", err)
	}

	var event Event
	switch wire.Type {
	case EventSystem:
		event = &SystemEvent{}
	case EventOps:
		event = &OpsEvent{}
	case EventSafetyDecision:
		event = &SafetyDecisionEvent{}
	case EventGesture:
		event = &GestureEvent{}
	case EventCanvasReady:
		event = &CanvasReadyEvent{}
	case EventSpatialUpdate:
		event = &SpatialUpdateEvent{}
	case "":
		return nil, fmt.Errorf("%w: missing type field", ErrUnknownEventType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, wire.Type)
	}

	if len(wire.Payload) > 0 && string(wire.Payload) != "null" {
		if err := json.Unmarshal(wire.Payload, event); err != nil {
			return nil, fmt.Errorf("canvas: decoding %s payload: %w", wire.Type, err)
		}
	}
	meta := event.meta()
	meta.ID = wire.ID
	if wire.Routing != nil {
		meta.Routing = *wire.Routing
	}
	return event, nil
}

// EncodeEvent renders an event in its wire shape. DecodeEvent of the
// result yields an equivalent event.
func EncodeEvent(event Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("canvas: encoding %s payload: %w", event.EventType(), err)
	}
	meta := event.EventMeta()
	wire := envelope{
		Type:    event.EventType(),
		ID:      meta.ID,
		Payload: payload,
	}
	if meta.Routing != (Routing{}) {
		wire.Routing = &meta.Routing
	}
	return json.Marshal(wire)
}

// systemEvent builds a locally synthesized lifecycle event for the
// given canvas.
func systemEvent(status SystemStatus, canvasID string) *SystemEvent {
	return &SystemEvent{
		Meta:   Meta{Routing: Routing{CanvasID: canvasID}, Source: SourceLocal},
		Status: status,
	}
}
