// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/canvassync/canvas"
	"github.com/bureau-foundation/canvassync/lib/codec"
)

const (
	magic         = "CVLG"
	formatVersion = 1
	headerSize    = len(magic) + 2
)

// ErrNotRecording is returned by NewReader when the input does not
// start with a recording header.
var ErrNotRecording = errors.New("eventlog: not an event recording")

// Record is one recorded event.
type Record struct {
	// ReceivedAt is when the subscriber saw the event.
	ReceivedAt time.Time `json:"received_at"`

	// Source is the channel the event arrived on.
	Source canvas.Source `json:"source"`

	// Type is the event discriminator, duplicated from Event so a
	// reader can filter without decoding.
	Type canvas.EventType `json:"type"`

	// Event is the event in its JSON wire form.
	Event []byte `json:"event"`
}

// FromEvent builds a Record for event received at receivedAt.
func FromEvent(event canvas.Event, receivedAt time.Time) (Record, error) {
	wire, err := canvas.EncodeEvent(event)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ReceivedAt: receivedAt,
		Source:     event.EventMeta().Source,
		Type:       event.EventType(),
		Event:      wire,
	}, nil
}

// Decode parses the recorded wire event.
func (r Record) Decode() (canvas.Event, error) {
	return canvas.DecodeEvent(r.Event)
}

// Writer appends records to a recording.
type Writer struct {
	compressed io.WriteCloser
	encoder    *codec.Encoder
	count      int
}

// NewWriter writes a recording header to w and returns a Writer for
// its records. Close the Writer to flush the compressed stream; w
// itself is not closed.
func NewWriter(w io.Writer, compression Compression) (*Writer, error) {
	header := append([]byte(magic), formatVersion, byte(compression))
	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("eventlog: writing header: %w", err)
	}
	compressed, err := compressor(w, compression)
	if err != nil {
		return nil, err
	}
	return &Writer{compressed: compressed, encoder: codec.NewEncoder(compressed)}, nil
}

// Append writes one record.
func (w *Writer) Append(record Record) error {
	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("eventlog: encoding record %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Count returns the number of records appended.
func (w *Writer) Count() int { return w.count }

// Close flushes the compressed stream.
func (w *Writer) Close() error {
	if err := w.compressed.Close(); err != nil {
		return fmt.Errorf("eventlog: flushing recording: %w", err)
	}
	return nil
}

// Reader reads records from a recording.
type Reader struct {
	compression Compression
	decoder     *codec.Decoder
	release     func()
	count       int
}

// NewReader reads and checks the recording header from r.
func NewReader(r io.Reader) (*Reader, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrNotRecording
		}
		return nil, fmt.Errorf("eventlog: reading header: %w", err)
	}
	if !bytes.Equal(header[:len(magic)], []byte(magic)) {
		return nil, ErrNotRecording
	}
	if version := header[len(magic)]; version != formatVersion {
		return nil, fmt.Errorf("eventlog: unsupported format version %d", version)
	}

	compression := Compression(header[len(magic)+1])
	decompressed, release, err := decompressor(r, compression)
	if err != nil {
		return nil, err
	}
	return &Reader{
		compression: compression,
		decoder:     codec.NewDecoder(decompressed),
		release:     release,
	}, nil
}

// Compression returns the compression named in the header.
func (r *Reader) Compression() Compression { return r.compression }

// Next returns the next record, or io.EOF after the last one. A
// recording cut short mid-record returns an error wrapping
// io.ErrUnexpectedEOF.
func (r *Reader) Next() (Record, error) {
	var record Record
	if err := r.decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("eventlog: decoding record %d: %w", r.count, err)
	}
	r.count++
	return record, nil
}

// Close releases decompression resources. It does not close the
// underlying reader.
func (r *Reader) Close() {
	r.release()
}
