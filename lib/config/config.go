// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/lib/eventlog"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "CANVAS_CONFIG"

// Config is the canvasctl configuration.
type Config struct {
	// Mode selects the override section and is sent as the context
	// mode.
	Mode canvas.Mode `yaml:"mode"`

	// HTTPHost is the base URL for the push stream and request
	// endpoints.
	HTTPHost string `yaml:"http_host"`

	// WSHost is the base URL for the socket.
	WSHost string `yaml:"ws_host"`

	// Token is the bearer token. Use ${VAR} to read it from the
	// environment.
	Token string `yaml:"token"`

	// Context is the request context. Its mode is taken from Mode.
	Context canvas.RequestContext `yaml:"context"`

	// StreamStrategy is "fetch" or "eventsource".
	StreamStrategy canvas.StreamStrategy `yaml:"stream_strategy"`

	// SocketHandshake is "hello" or "query".
	SocketHandshake canvas.SocketHandshake `yaml:"socket_handshake"`

	// Recording configures "tail --record".
	Recording RecordingConfig `yaml:"recording"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// RecordingConfig configures event recordings.
type RecordingConfig struct {
	// Compression is "none", "lz4" or "zstd". Default: zstd.
	Compression string `yaml:"compression"`
}

// Overrides holds the fields a mode section may replace. Empty
// strings leave the base value alone.
type Overrides struct {
	HTTPHost        string                 `yaml:"http_host"`
	WSHost          string                 `yaml:"ws_host"`
	Token           string                 `yaml:"token"`
	StreamStrategy  canvas.StreamStrategy  `yaml:"stream_strategy"`
	SocketHandshake canvas.SocketHandshake `yaml:"socket_handshake"`
	Context         *canvas.RequestContext `yaml:"context,omitempty"`
	Recording       *RecordingConfig       `yaml:"recording,omitempty"`
}

// Default returns the base configuration that a file is loaded over.
func Default() *Config {
	return &Config{
		Mode:            canvas.ModeDevelopment,
		StreamStrategy:  canvas.StreamFetch,
		SocketHandshake: canvas.HandshakeHello,
		Recording:       RecordingConfig{Compression: "zstd"},
	}
}

// Load loads configuration from the file named by CANVAS_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your canvas config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, applies the section for the
// configured mode, expands variables and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	config := Default()
	if err := config.decode(data); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	config.applyModeOverrides()
	config.expandVariables()
	config.Context.Mode = config.Mode

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return config, nil
}

// decode merges YAML (or JSON, which is YAML) into c, rejecting
// unknown keys. An empty document leaves the defaults.
func (c *Config) decode(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyModeOverrides applies the section matching Mode.
func (c *Config) applyModeOverrides() {
	var overrides *Overrides
	switch c.Mode {
	case canvas.ModeDevelopment:
		overrides = c.Development
	case canvas.ModeStaging:
		overrides = c.Staging
	case canvas.ModeProduction:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	override(&c.HTTPHost, overrides.HTTPHost)
	override(&c.WSHost, overrides.WSHost)
	override(&c.Token, overrides.Token)
	override(&c.StreamStrategy, overrides.StreamStrategy)
	override(&c.SocketHandshake, overrides.SocketHandshake)

	if context := overrides.Context; context != nil {
		override(&c.Context.TenantID, context.TenantID)
		override(&c.Context.ProjectID, context.ProjectID)
		override(&c.Context.RequestID, context.RequestID)
		override(&c.Context.AppID, context.AppID)
		override(&c.Context.SurfaceID, context.SurfaceID)
		override(&c.Context.UserID, context.UserID)
		override(&c.Context.RoleID, context.RoleID)
	}
	if overrides.Recording != nil {
		override(&c.Recording.Compression, overrides.Recording.Compression)
	}
}

func override[T ~string](target *T, value T) {
	if value != "" {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} in the fields
// that commonly come from the environment.
func (c *Config) expandVariables() {
	for _, field := range []*string{
		&c.HTTPHost,
		&c.WSHost,
		&c.Token,
		&c.Context.TenantID,
		&c.Context.ProjectID,
		&c.Context.AppID,
		&c.Context.SurfaceID,
		&c.Context.UserID,
		&c.Context.RoleID,
	} {
		*field = expandVars(*field)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} with the environment value of VAR, or
// with the default after ":-" when VAR is unset or empty.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors. Every problem is
// reported, joined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	// An empty mode is allowed; the transport logs a warning for it.
	if c.Mode != "" && !c.Mode.Valid() {
		errs = append(errs, fmt.Errorf("invalid mode: %q", c.Mode))
	}
	if c.HTTPHost == "" {
		errs = append(errs, errors.New("http_host is required"))
	}
	if c.WSHost == "" {
		errs = append(errs, errors.New("ws_host is required"))
	}
	switch c.StreamStrategy {
	case canvas.StreamFetch, canvas.StreamEventSource:
	default:
		errs = append(errs, fmt.Errorf("stream_strategy must be one of: %s, %s", canvas.StreamFetch, canvas.StreamEventSource))
	}
	switch c.SocketHandshake {
	case canvas.HandshakeHello, canvas.HandshakeQuery:
	default:
		errs = append(errs, fmt.Errorf("socket_handshake must be one of: %s, %s", canvas.HandshakeHello, canvas.HandshakeQuery))
	}
	if _, err := eventlog.ParseCompression(c.Recording.Compression); err != nil {
		errs = append(errs, fmt.Errorf("recording.compression: %w", err))
	}

	return errors.Join(errs...)
}

// Transport returns the canvas.Config described by c. The caller may
// set the HTTP client, dialer and clock on the result.
func (c *Config) Transport(logger *slog.Logger) canvas.Config {
	return canvas.Config{
		HTTPHost:        c.HTTPHost,
		WSHost:          c.WSHost,
		Token:           c.Token,
		Context:         c.Context,
		StreamStrategy:  c.StreamStrategy,
		SocketHandshake: c.SocketHandshake,
		Logger:          logger,
	}
}
