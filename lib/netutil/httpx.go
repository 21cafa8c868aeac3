// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP and connection helpers shared by the
// canvas transport and its CLI.
//
// Response helpers (ReadResponse, DecodeResponse, ErrorBody) bound
// request/response body reads at MaxResponseSize. They are for JSON
// API responses (commands, tickets, audits, artifact metadata), not
// for the push stream, which is read incrementally.
//
// IsExpectedCloseError classifies errors produced by normal teardown
// of streaming reads and websocket connections, so channel loops can
// log them at debug level instead of as failures.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on JSON API response body reads: 16 MB.
// Command and audit responses are a few kilobytes; the limit only
// stops a pathological server from exhausting memory.
const MaxResponseSize int64 = 16 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize
// bytes. Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads a JSON API response body (up to
// MaxResponseSize bytes) and JSON-decodes it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody reads an HTTP error response body as a string for
// diagnostic messages. Read errors are ignored; a partial body is
// still useful in an error message.
func ErrorBody(body io.Reader) string {
	data, _ := ReadResponse(body)
	return string(data)
}
