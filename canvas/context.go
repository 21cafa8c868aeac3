// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Mode is the deployment mode a client declares to the server.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeStaging     Mode = "staging"
	ModeProduction  Mode = "production"
)

// Valid reports whether m is one of the recognized modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeDevelopment, ModeStaging, ModeProduction:
		return true
	}
	return false
}

// RequestContext identifies the caller on every request and channel.
// Fields map one-to-one onto request headers (see authHeaders) and,
// for header-incapable channels, onto query parameters.
type RequestContext struct {
	TenantID  string `json:"tenant_id,omitempty" yaml:"tenant_id"`
	Mode      Mode   `json:"mode,omitempty" yaml:"mode"`
	ProjectID string `json:"project_id,omitempty" yaml:"project_id"`
	RequestID string `json:"request_id,omitempty" yaml:"request_id"`

	AppID     string `json:"app_id,omitempty" yaml:"app_id"`
	SurfaceID string `json:"surface_id,omitempty" yaml:"surface_id"`
	UserID    string `json:"user_id,omitempty" yaml:"user_id"`
	RoleID    string `json:"role_id,omitempty" yaml:"role_id"`
}

// Validate checks the context before any connection is attempted.
//
// Missing tenant, project, mode or request id are logged as warnings
// and tolerated. A mode that is present but not recognized returns a
// *ConfigError wrapping ErrInvalidMode. A missing request id is
// generated and stored in the context, so it stays stable for the
// lifetime of the context value.
func (c *RequestContext) Validate(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if c.Mode != "" && !c.Mode.Valid() {
		return &ConfigError{
			Field: "mode",
			Err:   fmt.Errorf("%w: %q (want %s, %s or %s)", ErrInvalidMode, c.Mode, ModeDevelopment, ModeStaging, ModeProduction),
		}
	}

	if c.TenantID == "" {
		logger.Warn("request context has no tenant id")
	}
	if c.ProjectID == "" {
		logger.Warn("request context has no project id")
	}
	if c.Mode == "" {
		logger.Warn("request context has no mode")
	}
	if c.RequestID == "" {
		requestID, err := newRequestID()
		if err != nil {
			return &ConfigError{Field: "request_id", Err: err}
		}
		c.RequestID = requestID
		logger.Warn("request context has no request id, generated one", "request_id", requestID)
	}
	return nil
}

// newRequestID returns a random version-4 UUID. The random source is
// crypto/rand; if it fails the caller gets an error rather than a
// weaker id.
func newRequestID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generating request id: %w", err)
	}
	return id.String(), nil
}
