// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/oklog/ulid/v2"
)

// Command is an authoritative mutation request. BaseRev is the
// revision the caller believes is current; the server rejects the
// command with a conflict if it is not.
type Command struct {
	BaseRev int64             `json:"base_rev"`
	Ops     []json.RawMessage `json:"ops"`
	ActorID string            `json:"actor_id,omitempty"`

	// CorrelationID is the idempotency key, sent in the
	// X-Idempotency-Key header. Send fills an empty one with a
	// NewCorrelationID value. Reuse the same id when retrying the
	// same command.
	CorrelationID string `json:"correlation_id"`
}

// CommandResponse is the outcome of an accepted or conflicting
// command. Success distinguishes the two: on conflict Success is
// false, Error holds the server's response body and HeadRev is the
// server's actual head revision to rebase onto.
type CommandResponse struct {
	Success bool            `json:"success"`
	HeadRev int64           `json:"head_rev"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// NewCorrelationID returns a fresh, time-ordered idempotency key.
func NewCorrelationID() string {
	return ulid.Make().String()
}

// CommandClient sends commands over the request/response channel.
type CommandClient struct {
	requester *requester
}

type commandSuccessBody struct {
	HeadRev int64 `json:"head_rev"`
}

type commandConflictBody struct {
	ActualHeadRev int64 `json:"actual_head_rev"`
}

// Send posts command for canvasID and classifies the response:
//
//   - 2xx: CommandResponse{Success: true, HeadRev: head_rev}. An
//     empty body (such as a 204) is a success with HeadRev 0.
//   - 409: CommandResponse{Success: false, Error: body, HeadRev:
//     actual_head_rev}, with a nil error. The caller rebases.
//   - 403: a *PolicyBlockError carrying the status and the parsed body
//     (nil when the body is not JSON).
//   - anything else: a *RequestError.
//
// Send never retries.
func (c *CommandClient) Send(ctx context.Context, canvasID string, command Command) (*CommandResponse, error) {
	if command.CorrelationID == "" {
		command.CorrelationID = NewCorrelationID()
	}
	if command.Ops == nil {
		command.Ops = []json.RawMessage{}
	}

	path := "/canvas/" + url.PathEscape(canvasID) + "/commands"
	extra := http.Header{}
	extra.Set(headerIdempotencyKey, command.CorrelationID)

	resp, err := c.requester.doJSON(ctx, http.MethodPost, path, command, extra)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.ok():
		if len(bytes.TrimSpace(resp.body)) == 0 {
			c.requester.logger.Debug("command accepted without a response body",
				"canvas_id", canvasID,
				"correlation_id", command.CorrelationID,
				"status", resp.statusCode,
			)
			return &CommandResponse{Success: true}, nil
		}
		var body commandSuccessBody
		if err := json.Unmarshal(resp.body, &body); err != nil {
			return nil, fmt.Errorf("canvas: decoding %s response: %w", path, err)
		}
		return &CommandResponse{Success: true, HeadRev: body.HeadRev}, nil

	case resp.statusCode == http.StatusConflict:
		// A conflict is a value even when its body is unreadable; the
		// caller then rebases from a fresh read of the canvas.
		var body commandConflictBody
		if err := json.Unmarshal(resp.body, &body); err != nil {
			c.requester.logger.Warn("command conflict body is not valid JSON", "canvas_id", canvasID, "error", err)
		}
		c.requester.logger.Info("command conflict",
			"canvas_id", canvasID,
			"correlation_id", command.CorrelationID,
			"base_rev", command.BaseRev,
			"head_rev", body.ActualHeadRev,
		)
		return &CommandResponse{
			Success: false,
			HeadRev: body.ActualHeadRev,
			Error:   rawOrString(resp.body),
		}, nil

	case resp.statusCode == http.StatusForbidden:
		blocked := &PolicyBlockError{StatusCode: resp.statusCode}
		if json.Valid(resp.body) {
			blocked.Body = json.RawMessage(resp.body)
		}
		return nil, blocked

	default:
		return nil, &RequestError{Endpoint: path, StatusCode: resp.statusCode, Body: string(resp.body)}
	}
}

// rawOrString returns body as raw JSON when it is valid JSON and as a
// JSON string otherwise.
func rawOrString(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	encoded, _ := json.Marshal(string(body))
	return encoded
}
