// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// AuditResult is the outcome of an audit run.
type AuditResult struct {
	Score float64 `json:"score"`

	// Findings are opaque to the transport.
	Findings []json.RawMessage `json:"findings"`

	// ArtifactID references the stored audit report, when the server
	// produced one.
	ArtifactID string `json:"artifact_id,omitempty"`
}

// AuditClient requests audit runs.
type AuditClient struct {
	requester *requester
}

type auditRequest struct {
	Ruleset string `json:"ruleset"`
}

// Request runs the named ruleset against canvasID. A non-2xx response
// returns a *RequestError. Request never retries.
func (c *AuditClient) Request(ctx context.Context, canvasID, ruleset string) (*AuditResult, error) {
	path := "/canvas/" + url.PathEscape(canvasID) + "/audits"
	resp, err := c.requester.doJSON(ctx, http.MethodPost, path, auditRequest{Ruleset: ruleset}, nil)
	if err != nil {
		return nil, err
	}
	var result AuditResult
	if err := decodeOK(path, resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
