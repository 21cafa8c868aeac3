// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/canvassync/lib/clock"
)

// StreamStrategy selects how the push stream is read.
type StreamStrategy string

const (
	// StreamFetch reads the stream as a long-lived streaming response
	// body, parsed line by line. Every header, including the
	// resumption cursor, is sent as a request header.
	StreamFetch StreamStrategy = "fetch"

	// StreamEventSource reads the stream the way a header-incapable
	// platform event-source client does: context, token and cursor
	// travel as query parameters and framing follows the
	// Server-Sent Events standard.
	StreamEventSource StreamStrategy = "eventsource"
)

// SocketHandshake selects how the socket channel announces the caller.
type SocketHandshake string

const (
	// HandshakeQuery carries the context as query parameters on the
	// socket URL.
	HandshakeQuery SocketHandshake = "query"

	// HandshakeHello sends an explicit hello message with the context
	// and the push-stream cursor as the first client message.
	HandshakeHello SocketHandshake = "hello"
)

// Config configures a Transport.
type Config struct {
	// HTTPHost is the base URL for the push stream and all
	// request/response endpoints (e.g., "https://canvas.example.com").
	HTTPHost string

	// WSHost is the base URL for the socket channel
	// (e.g., "wss://canvas.example.com").
	WSHost string

	// Token is the bearer token sent on every authorized request.
	Token string

	// Context identifies the caller. New validates it and fills in a
	// request id when absent.
	Context RequestContext

	// StreamStrategy selects the push-stream reader. Default: StreamFetch.
	StreamStrategy StreamStrategy

	// SocketHandshake selects the socket announcement. Default: HandshakeHello.
	SocketHandshake SocketHandshake

	// HTTPClient is used for all HTTP requests, including the push
	// stream. It must not set a total Timeout, which would cut the
	// stream. If nil, a client with no overall timeout is used.
	HTTPClient *http.Client

	// Dialer opens the socket channel. If nil, websocket.DefaultDialer
	// is used.
	Dialer *websocket.Dialer

	// DialHeader is sent with the socket upgrade request, for example
	// a User-Agent. It must not carry websocket handshake headers.
	DialHeader http.Header

	// Clock drives reconnect backoff. If nil, clock.Real() is used.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// normalize validates the configuration, fills defaults, and returns
// the first fatal problem. Only an invalid mode or an unusable host is
// fatal; everything else is logged.
func (c *Config) normalize() error {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Dialer == nil {
		c.Dialer = websocket.DefaultDialer
	}
	if c.StreamStrategy == "" {
		c.StreamStrategy = StreamFetch
	}
	if c.SocketHandshake == "" {
		c.SocketHandshake = HandshakeHello
	}

	if err := c.Context.Validate(c.Logger); err != nil {
		return err
	}

	switch c.StreamStrategy {
	case StreamFetch, StreamEventSource:
	default:
		return &ConfigError{Field: "stream_strategy", Err: fmt.Errorf("unknown strategy %q", c.StreamStrategy)}
	}
	switch c.SocketHandshake {
	case HandshakeQuery, HandshakeHello:
	default:
		return &ConfigError{Field: "socket_handshake", Err: fmt.Errorf("unknown handshake %q", c.SocketHandshake)}
	}

	host, err := normalizeHost(c.HTTPHost, "http", "https")
	if err != nil {
		return &ConfigError{Field: "http_host", Err: err}
	}
	c.HTTPHost = host
	host, err = normalizeHost(c.WSHost, "ws", "wss")
	if err != nil {
		return &ConfigError{Field: "ws_host", Err: err}
	}
	c.WSHost = host

	inspectToken(c.Token, c.Clock.Now(), c.Logger)
	return nil
}

// normalizeHost checks that raw is an absolute URL with one of the
// allowed schemes and strips any trailing slash. Request URLs are
// built by concatenation onto the result.
func normalizeHost(raw string, schemes ...string) (string, error) {
	if raw == "" {
		return "", errors.New("host is required")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing %q: %w", raw, err)
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme && parsed.Host != "" {
			return strings.TrimRight(raw, "/"), nil
		}
	}
	return "", fmt.Errorf("%q must be an absolute %s URL", raw, strings.Join(schemes, " or "))
}

// inspectToken logs warnings about a bearer token that is likely to be
// rejected. The signature is not verified; the server is the authority
// and an opaque (non-JWT) token is legitimate.
func inspectToken(token string, now time.Time, logger *slog.Logger) {
	if token == "" {
		logger.Warn("no bearer token configured, authorized requests will fail")
		return
	}
	parsed, _, err := gojwt.NewParser().ParseUnverified(token, gojwt.MapClaims{})
	if err != nil {
		logger.Debug("bearer token is not a JWT, skipping expiry check")
		return
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return
	}
	if !expiry.After(now) {
		logger.Warn("bearer token has expired", "expired_at", expiry.Time)
	}
}
