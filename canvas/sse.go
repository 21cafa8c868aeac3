// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"bufio"
	"io"
	"strings"
)

// SSEEvent is a single Server-Sent Event dispatched by an SSEScanner.
type SSEEvent struct {
	// Type is the "event:" field, empty for the default message type.
	Type string

	// Data is the payload, assembled from one or more "data:" lines
	// joined with newlines.
	Data string

	// ID is the stream's last event id at the time of dispatch. Per
	// the event-source model it persists across events until another
	// "id:" field replaces it.
	ID string
}

// SSEScanner reads Server-Sent Events from an [io.Reader] the way a
// platform event-source client does: events are delimited by blank
// lines, "data:" lines accumulate, "event:" sets the type, "id:" sets
// the last event id, and comments and unknown fields are ignored.
//
//	scanner := NewSSEScanner(body)
//	for scanner.Next() {
//	    event := scanner.Event()
//	}
//	if err := scanner.Err(); err != nil { ... }
type SSEScanner struct {
	reader      *bufio.Reader
	current     SSEEvent
	lastEventID string
	err         error
}

// NewSSEScanner creates a scanner that reads SSE events from reader.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	return &SSEScanner{
		reader: bufio.NewReaderSize(reader, 64*1024),
	}
}

// Next advances to the next event. It returns false at EOF or on a
// read error; call [SSEScanner.Err] to tell them apart.
func (scanner *SSEScanner) Next() bool {
	scanner.current = SSEEvent{}
	if scanner.err != nil {
		return false
	}

	var dataLines []string
	var eventType string
	hasData := false

	dispatch := func() {
		scanner.current = SSEEvent{
			Type: eventType,
			Data: strings.Join(dataLines, "\n"),
			ID:   scanner.lastEventID,
		}
	}

	for {
		line, err := scanner.reader.ReadString('\n')
		if err != nil && line == "" {
			scanner.err = err
			if err == io.EOF && hasData {
				dispatch()
				return true
			}
			return false
		}

		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if hasData {
				dispatch()
				return true
			}
			eventType = ""
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, hasColon := strings.Cut(line, ":")
		if !hasColon {
			field = line
			value = ""
		} else {
			value = strings.TrimPrefix(value, " ")
		}

		switch field {
		case "data":
			dataLines = append(dataLines, value)
			hasData = true
		case "event":
			eventType = value
		case "id":
			// An id containing NUL is ignored by event-source clients.
			if !strings.ContainsRune(value, 0) {
				scanner.lastEventID = value
			}
		}
	}
}

// Event returns the most recently dispatched event. Only valid after
// [SSEScanner.Next] returns true.
func (scanner *SSEScanner) Event() SSEEvent {
	return scanner.current
}

// LastEventID returns the most recent "id:" value read, including one
// from a trailing block that carried no data.
func (scanner *SSEScanner) LastEventID() string {
	return scanner.lastEventID
}

// Err returns the first read error, or nil if the stream ended with a
// clean EOF.
func (scanner *SSEScanner) Err() error {
	if scanner.err == io.EOF {
		return nil
	}
	return scanner.err
}
