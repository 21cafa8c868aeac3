// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSSEScannerIDPersistsAcrossEvents(t *testing.T) {
	t.Parallel()

	input := "id: 41\ndata: first\n\ndata: second\n\nid: 43\ndata: third\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	want := []SSEEvent{
		{Data: "first", ID: "41"},
		{Data: "second", ID: "41"},
		{Data: "third", ID: "43"},
	}
	for index, expected := range want {
		if !scanner.Next() {
			t.Fatalf("expected event %d", index)
		}
		if got := scanner.Event(); got != expected {
			t.Errorf("event %d = %+v, want %+v", index, got, expected)
		}
	}
	if scanner.Next() {
		t.Error("expected no more events")
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSSEScannerMultipleDataLines(t *testing.T) {
	t.Parallel()

	input := "event: ops\ndata: {\"type\":\n data-continued\ndata: \"ops\"}\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))
	if !scanner.Next() {
		t.Fatal("expected event")
	}
	event := scanner.Event()
	if event.Type != "ops" {
		t.Errorf("Type = %q, want ops", event.Type)
	}
	if event.Data != "{\"type\":\n\"ops\"}" {
		t.Errorf("Data = %q", event.Data)
	}
}

func TestSSEScannerCommentsAndCRLF(t *testing.T) {
	t.Parallel()

	input := ": keepalive\r\nid:7\r\ndata:payload\r\nretry: 1000\r\n\r\n"
	scanner := NewSSEScanner(strings.NewReader(input))
	if !scanner.Next() {
		t.Fatal("expected event")
	}
	if got := scanner.Event(); got.Data != "payload" || got.ID != "7" {
		t.Errorf("event = %+v, want payload with id 7", got)
	}
}

func TestSSEScannerTrailingEventWithoutBlankLine(t *testing.T) {
	t.Parallel()

	scanner := NewSSEScanner(strings.NewReader("data: last"))
	if !scanner.Next() {
		t.Fatal("expected the unterminated final event")
	}
	if scanner.Event().Data != "last" {
		t.Errorf("Data = %q", scanner.Event().Data)
	}
	if scanner.Next() {
		t.Error("expected end of stream")
	}
	if err := scanner.Err(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSSEScannerIDOnlyBlock(t *testing.T) {
	t.Parallel()

	scanner := NewSSEScanner(strings.NewReader("data: a\n\nid: 99\n\n"))
	if !scanner.Next() {
		t.Fatal("expected event")
	}
	if scanner.Next() {
		t.Fatal("an id-only block must not dispatch an event")
	}
	if got := scanner.LastEventID(); got != "99" {
		t.Errorf("LastEventID = %q, want 99", got)
	}
}

func TestSSEScannerIgnoresIDWithNUL(t *testing.T) {
	t.Parallel()

	scanner := NewSSEScanner(strings.NewReader("id: 5\ndata: a\n\nid: 6\x007\ndata: b\n\n"))
	scanner.Next()
	scanner.Next()
	if got := scanner.Event().ID; got != "5" {
		t.Errorf("ID = %q, want 5 (id with NUL ignored)", got)
	}
}

type failingReader struct {
	data string
	err  error
}

func (r *failingReader) Read(buffer []byte) (int, error) {
	if r.data == "" {
		return 0, r.err
	}
	count := copy(buffer, r.data)
	r.data = r.data[count:]
	return count, nil
}

func TestSSEScannerReadError(t *testing.T) {
	t.Parallel()

	broken := errors.New("connection reset")
	scanner := NewSSEScanner(&failingReader{data: "data: one\n\ndata: tw", err: broken})
	if !scanner.Next() {
		t.Fatal("expected first event")
	}
	if scanner.Next() {
		t.Fatal("expected the read error to end scanning")
	}
	if err := scanner.Err(); !errors.Is(err, broken) {
		t.Errorf("Err = %v, want %v", err, broken)
	}
	if errors.Is(scanner.Err(), io.EOF) {
		t.Error("Err reported EOF for a read failure")
	}
}
