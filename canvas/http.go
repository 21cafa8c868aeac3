// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/bureau-foundation/canvassync/lib/netutil"
)

// requester performs authorized request/response calls against the
// HTTP host. It is shared by the ticket, command, artifact and audit
// clients so every request uses the same header builder.
type requester struct {
	baseURL    string
	token      string
	context    RequestContext
	httpClient *http.Client
	logger     *slog.Logger
}

func newRequester(config *Config) *requester {
	return &requester{
		baseURL:    config.HTTPHost,
		token:      config.Token,
		context:    config.Context,
		httpClient: config.HTTPClient,
		logger:     config.Logger,
	}
}

// response is a fully read HTTP response.
type response struct {
	statusCode int
	body       []byte
}

func (r *response) ok() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// do sends a request with the authorization headers plus extra, and
// reads the whole (bounded) response body. It returns an error only
// for transport failures; status classification is up to the caller.
func (r *requester) do(ctx context.Context, method, path, contentType string, body io.Reader, extra http.Header) (*response, error) {
	request, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("canvas: creating request %s %s: %w", method, path, err)
	}
	request.Header = authHeaders(r.token, r.context)
	for name, values := range extra {
		for _, value := range values {
			request.Header.Add(name, value)
		}
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	request.Header.Set("Accept", "application/json")

	httpResponse, err := r.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("canvas: request %s %s failed: %w", method, path, err)
	}
	defer httpResponse.Body.Close()

	responseBody, err := netutil.ReadResponse(httpResponse.Body)
	if err != nil {
		return nil, fmt.Errorf("canvas: reading %s %s response: %w", method, path, err)
	}
	return &response{statusCode: httpResponse.StatusCode, body: responseBody}, nil
}

// doJSON marshals requestBody (if non-nil) as JSON and sends it.
func (r *requester) doJSON(ctx context.Context, method, path string, requestBody any, extra http.Header) (*response, error) {
	var reader io.Reader
	contentType := ""
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("canvas: encoding %s body: %w", path, err)
		}
		reader = bytes.NewReader(encoded)
		contentType = "application/json"
	}
	return r.do(ctx, method, path, contentType, reader, extra)
}

// decodeOK returns a *RequestError for any non-2xx response and
// otherwise decodes the body into result.
func decodeOK(path string, resp *response, result any) error {
	if !resp.ok() {
		return &RequestError{Endpoint: path, StatusCode: resp.statusCode, Body: string(resp.body)}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.body, result); err != nil {
		return fmt.Errorf("canvas: decoding %s response: %w", path, err)
	}
	return nil
}
