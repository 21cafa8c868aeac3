// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bureau-foundation/canvassync/lib/netutil"
)

// fetchReadSize is the chunk size for manual body reads.
const fetchReadSize = 32 * 1024

// fetchStrategy reads the push stream as a streaming response body.
// Every header, including Last-Event-ID, is attached to the request.
// The body is read in chunks and split into lines by a lineBuffer, so
// a line split across reads is reassembled before it is parsed.
type fetchStrategy struct{}

func (fetchStrategy) stream(ctx context.Context, channel *PushStream, canvasID string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, channel.streamURL(canvasID, nil), nil)
	if err != nil {
		return fmt.Errorf("canvas: creating push stream request: %w", err)
	}
	request.Header = authHeaders(channel.token, channel.context)
	request.Header.Set("Cache-Control", "no-cache")
	if cursor := channel.LastEventID(); cursor != "" {
		request.Header.Set(headerLastEventID, cursor)
	}

	response, err := channel.open(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	channel.opened(canvasID)

	var lines lineBuffer
	chunk := make([]byte, fetchReadSize)
	for {
		count, readErr := response.Body.Read(chunk)
		if count > 0 {
			complete, err := lines.feed(chunk[:count])
			for _, line := range complete {
				handleFetchLine(channel, line)
			}
			if err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return errStreamEnded
			}
			return fmt.Errorf("canvas: reading push stream: %w", readErr)
		}
	}
}

// handleFetchLine applies the two-prefix convention: "data: " lines
// carry an event and "id: " lines carry the resumption cursor.
// Anything else (blank separators, comments, other fields) is ignored.
func handleFetchLine(channel *PushStream, line string) {
	if data, ok := strings.CutPrefix(line, "data: "); ok {
		channel.deliver(data)
		return
	}
	if id, ok := strings.CutPrefix(line, "id: "); ok {
		if id = strings.TrimSpace(id); id != "" {
			channel.setLastEventID(id)
		}
	}
}

// errLineTooLong is returned when a single unterminated line outgrows
// netutil.MaxResponseSize.
var errLineTooLong = errors.New("canvas: push stream line exceeds size limit")

// lineBuffer splits a byte stream into newline-terminated lines,
// retaining a trailing partial line until the next feed completes it.
type lineBuffer struct {
	partial []byte
}

// feed appends chunk and returns every line it completed, with the
// terminator (and an optional carriage return) removed.
func (b *lineBuffer) feed(chunk []byte) ([]string, error) {
	b.partial = append(b.partial, chunk...)

	var lines []string
	for {
		index := bytes.IndexByte(b.partial, '\n')
		if index < 0 {
			break
		}
		line := b.partial[:index]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
		b.partial = b.partial[index+1:]
	}

	if int64(len(b.partial)) > netutil.MaxResponseSize {
		b.partial = nil
		return lines, errLineTooLong
	}
	// Compact so the retained slice does not pin every chunk read so far.
	if len(b.partial) == 0 {
		b.partial = b.partial[:0:0]
	} else if cap(b.partial) > 2*fetchReadSize {
		b.partial = append([]byte(nil), b.partial...)
	}
	return lines, nil
}

// pending returns the retained partial line.
func (b *lineBuffer) pending() string {
	return string(b.partial)
}
