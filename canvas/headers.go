// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"net/http"
	"net/url"
)

// Header names for authorized requests.
const (
	headerAuthorization  = "Authorization"
	headerMode           = "X-Mode"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
	headerProjectID      = "X-Project-ID"
	headerAppID          = "X-App-ID"
	headerSurfaceID      = "X-Surface-ID"
	headerUserID         = "X-User-ID"
	headerRoleID         = "X-Role-ID"
	headerIdempotencyKey = "X-Idempotency-Key"
	headerLastEventID    = "Last-Event-ID"
)

// Query parameter names for header-incapable channels.
const (
	queryAccessToken = "access_token"
	queryLastEventID = "last_event_id"
	queryTicket      = "ticket"
)

// contextField is one RequestContext field with its header and query
// spellings.
type contextField struct {
	header string
	query  string
	value  string
}

func (c RequestContext) fields() []contextField {
	return []contextField{
		{headerMode, "mode", string(c.Mode)},
		{headerRequestID, "request_id", c.RequestID},
		{headerTenantID, "tenant_id", c.TenantID},
		{headerProjectID, "project_id", c.ProjectID},
		{headerAppID, "app_id", c.AppID},
		{headerSurfaceID, "surface_id", c.SurfaceID},
		{headerUserID, "user_id", c.UserID},
		{headerRoleID, "role_id", c.RoleID},
	}
}

// authHeaders returns the headers every authorized request carries:
// the bearer token and each present context field as its own header.
func authHeaders(token string, context RequestContext) http.Header {
	header := make(http.Header)
	if token != "" {
		header.Set(headerAuthorization, "Bearer "+token)
	}
	for _, field := range context.fields() {
		if field.value != "" {
			header.Set(field.header, field.value)
		}
	}
	return header
}

// contextQuery returns each present context field as a query
// parameter.
func contextQuery(context RequestContext) url.Values {
	query := make(url.Values)
	for _, field := range context.fields() {
		if field.value != "" {
			query.Set(field.query, field.value)
		}
	}
	return query
}
