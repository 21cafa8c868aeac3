// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/lib/testutil"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	config := Default()
	if config.Mode != canvas.ModeDevelopment {
		t.Errorf("Mode = %s, want development", config.Mode)
	}
	if config.StreamStrategy != canvas.StreamFetch {
		t.Errorf("StreamStrategy = %s, want fetch", config.StreamStrategy)
	}
	if config.SocketHandshake != canvas.HandshakeHello {
		t.Errorf("SocketHandshake = %s, want hello", config.SocketHandshake)
	}
	if config.Recording.Compression != "zstd" {
		t.Errorf("Recording.Compression = %q, want zstd", config.Recording.Compression)
	}
}

func TestLoad_RequiresCanvasConfig(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when CANVAS_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "CANVAS_CONFIG environment variable not set") {
		t.Errorf("error = %q", err)
	}
}

func TestLoad_WithCanvasConfig(t *testing.T) {
	path := writeConfig(t, "canvas.yaml", `
mode: staging
http_host: https://canvas.staging.example.com
ws_host: wss://canvas.staging.example.com
context:
  tenant_id: acme
`)
	t.Setenv(EnvironmentVariable, path)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if config.Context.Mode != canvas.ModeStaging {
		t.Errorf("Context.Mode = %s, want staging", config.Context.Mode)
	}
	if config.Context.TenantID != "acme" {
		t.Errorf("TenantID = %q", config.Context.TenantID)
	}
}

func TestLoadFile_ModeOverrides(t *testing.T) {
	content := `
mode: production
http_host: http://localhost:8080
ws_host: ws://localhost:8080
stream_strategy: fetch
context:
  tenant_id: acme
  project_id: base-project
development:
  http_host: http://dev.local
production:
  http_host: https://canvas.example.com
  ws_host: wss://canvas.example.com
  stream_strategy: eventsource
  context:
    project_id: launch
  recording:
    compression: lz4
`
	config, err := LoadFile(writeConfig(t, "canvas.yaml", content))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if config.HTTPHost != "https://canvas.example.com" || config.WSHost != "wss://canvas.example.com" {
		t.Errorf("hosts = %s / %s, want the production section", config.HTTPHost, config.WSHost)
	}
	if config.StreamStrategy != canvas.StreamEventSource {
		t.Errorf("StreamStrategy = %s, want eventsource", config.StreamStrategy)
	}
	if config.Context.ProjectID != "launch" {
		t.Errorf("ProjectID = %q, want launch", config.Context.ProjectID)
	}
	if config.Context.TenantID != "acme" {
		t.Errorf("TenantID = %q, want base value kept", config.Context.TenantID)
	}
	if config.Recording.Compression != "lz4" {
		t.Errorf("Recording.Compression = %q, want lz4", config.Recording.Compression)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	content := `{
  // Local development server.
  "mode": "development",
  "http_host": "http://localhost:8080",
  "ws_host": "ws://localhost:8080",
  "socket_handshake": "query",
  "context": {
    "tenant_id": "acme", /* trailing comma below */
  },
}`
	config, err := LoadFile(writeConfig(t, "canvas.jsonc", content))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if config.SocketHandshake != canvas.HandshakeQuery {
		t.Errorf("SocketHandshake = %s, want query", config.SocketHandshake)
	}
	if config.Context.TenantID != "acme" {
		t.Errorf("TenantID = %q", config.Context.TenantID)
	}
}

func TestLoadFile_RejectsUnknownKeys(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "canvas.yaml", "mode: development\nhttp_hots: http://typo\n"))
	if err == nil {
		t.Fatal("LoadFile accepted an unknown key")
	}
	if !strings.Contains(err.Error(), "http_hots") {
		t.Errorf("error %q does not name the unknown key", err)
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("CANVAS_TEST_TOKEN", "secret-token")
	t.Setenv("CANVAS_TEST_HOST", "")
	content := `
mode: development
http_host: ${CANVAS_TEST_HOST:-http://localhost:8080}
ws_host: ws://localhost:8080
token: ${CANVAS_TEST_TOKEN}
context:
  user_id: ${CANVAS_TEST_UNSET_USER:-anonymous}
`
	config, err := LoadFile(writeConfig(t, "canvas.yaml", content))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if config.Token != "secret-token" {
		t.Errorf("Token = %q", config.Token)
	}
	if config.HTTPHost != "http://localhost:8080" {
		t.Errorf("HTTPHost = %q, want the default", config.HTTPHost)
	}
	if config.Context.UserID != "anonymous" {
		t.Errorf("UserID = %q, want anonymous", config.Context.UserID)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("CANVAS_TEST_VALUE", "set")
	tests := []struct {
		input string
		want  string
	}{
		{"${CANVAS_TEST_VALUE}", "set"},
		{"prefix-${CANVAS_TEST_VALUE}-suffix", "prefix-set-suffix"},
		{"${CANVAS_TEST_MISSING}", ""},
		{"${CANVAS_TEST_MISSING:-fallback}", "fallback"},
		{"${CANVAS_TEST_VALUE:-fallback}", "set"},
		{"no variables", "no variables"},
	}
	for _, test := range tests {
		if got := expandVars(test.input); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		config := Default()
		config.HTTPHost = "http://localhost"
		config.WSHost = "ws://localhost"
		return config
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	config := valid()
	config.Mode = "qa"
	config.HTTPHost = ""
	config.StreamStrategy = "polling"
	config.Recording.Compression = "gzip"
	err := config.Validate()
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	for _, fragment := range []string{"invalid mode", "http_host is required", "stream_strategy", "recording.compression"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q missing %q", err, fragment)
		}
	}
}

func TestLoadFile_EmptyModeAllowed(t *testing.T) {
	config, err := LoadFile(writeConfig(t, "canvas.yaml", `
mode: ""
http_host: https://canvas.example.com
ws_host: wss://canvas.example.com
production:
  http_host: https://prod.example.com
`))
	if err != nil {
		t.Fatalf("LoadFile rejected an empty mode: %v", err)
	}
	if config.Mode != "" || config.Context.Mode != "" {
		t.Errorf("mode = %q, context mode = %q, want both empty", config.Mode, config.Context.Mode)
	}
	if config.HTTPHost != "https://canvas.example.com" {
		t.Errorf("http_host = %q, want no override applied", config.HTTPHost)
	}

	logger, captured := testutil.CaptureLogger()
	transportConfig := config.Transport(logger)
	if _, err := canvas.New(&transportConfig); err != nil {
		t.Fatalf("canvas.New rejected an empty mode: %v", err)
	}
	if !captured.Contains(slog.LevelWarn, "request context has no mode") {
		t.Error("empty mode not warned about")
	}
}

func TestTransport(t *testing.T) {
	config, err := LoadFile(writeConfig(t, "canvas.yaml", `
mode: production
http_host: https://canvas.example.com
ws_host: wss://canvas.example.com
token: token-1
context:
  tenant_id: acme
`))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	transportConfig := config.Transport(nil)
	if transportConfig.Context.Mode != canvas.ModeProduction || transportConfig.Token != "token-1" {
		t.Errorf("transport config = %+v", transportConfig)
	}
	if _, err := canvas.New(&transportConfig); err != nil {
		t.Errorf("canvas.New rejected the loaded config: %v", err)
	}
}
