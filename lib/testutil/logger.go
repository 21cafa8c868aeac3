// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogEntry is one record seen by a CaptureLogger.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture records the entries of the logger returned alongside it.
// It is safe for concurrent use.
type LogCapture struct {
	mu      sync.Mutex
	entries []LogEntry
}

// CaptureLogger returns a logger at debug level and the capture that
// records its output.
//
//	logger, captured := testutil.CaptureLogger()
//	...
//	if !captured.Contains(slog.LevelWarn, "socket not connected") { ... }
func CaptureLogger() (*slog.Logger, *LogCapture) {
	capture := &LogCapture{}
	return slog.New(&captureHandler{capture: capture}), capture
}

// Entries returns a copy of every recorded entry in order.
func (c *LogCapture) Entries() []LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LogEntry(nil), c.entries...)
}

// Contains reports whether an entry with exactly this level and
// message was recorded.
func (c *LogCapture) Contains(level slog.Level, message string) bool {
	for _, entry := range c.Entries() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

func (c *LogCapture) add(entry LogEntry) {
	c.mu.Lock()
	c.entries = append(c.entries, entry)
	c.mu.Unlock()
}

type captureHandler struct {
	capture *LogCapture
	attrs   []slog.Attr
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, attr := range h.attrs {
		attrs[attr.Key] = attr.Value.Any()
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrs[attr.Key] = attr.Value.Any()
		return true
	})
	h.capture.add(LogEntry{Level: record.Level, Message: record.Message, Attrs: attrs})
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &captureHandler{capture: h.capture, attrs: combined}
}

// WithGroup is a no-op; grouped attributes are recorded flat.
func (h *captureHandler) WithGroup(string) slog.Handler { return h }
