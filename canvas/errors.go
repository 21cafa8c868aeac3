// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidMode is wrapped by the *ConfigError returned when a
// RequestContext declares an unrecognized mode.
var ErrInvalidMode = errors.New("invalid mode")

// ConfigError is returned from New and RequestContext.Validate when
// the configuration cannot be used. Nothing has been sent to the
// server when a ConfigError is returned.
type ConfigError struct {
	// Field names the offending configuration field.
	Field string
	// Err is the underlying problem.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("canvas: invalid config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// RequestError is returned when a request/response endpoint (ticket,
// command, artifact, audit) answers with a non-success status.
// Callers can use errors.As to inspect the status:
//
//	var requestErr *canvas.RequestError
//	if errors.As(err, &requestErr) && requestErr.StatusCode >= 500 { ... }
type RequestError struct {
	// Endpoint is the request path, for diagnostics.
	Endpoint string
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Body is the raw response text.
	Body string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("canvas: %s returned %d %s: %s",
		e.Endpoint, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// PolicyBlockError is returned by command dispatch when the server
// refuses the command on policy grounds (HTTP 403). It is never
// retried; the command must be changed or abandoned.
type PolicyBlockError struct {
	// StatusCode is the HTTP status code (403).
	StatusCode int
	// Body is the response body when it parsed as JSON, nil otherwise.
	Body json.RawMessage
}

func (e *PolicyBlockError) Error() string {
	if e.Body == nil {
		return fmt.Sprintf("canvas: command blocked by policy (%d)", e.StatusCode)
	}
	return fmt.Sprintf("canvas: command blocked by policy (%d): %s", e.StatusCode, e.Body)
}

// IsPolicyBlock reports whether err is or wraps a *PolicyBlockError.
func IsPolicyBlock(err error) bool {
	var blocked *PolicyBlockError
	return errors.As(err, &blocked)
}
