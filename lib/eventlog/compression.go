// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how the record stream of a recording is
// compressed. Values are stored in the header byte and are format
// constants.
type Compression uint8

const (
	// CompressionNone stores the CBOR sequence as is.
	CompressionNone Compression = 0

	// CompressionLZ4 uses the LZ4 frame format. Cheapest to write;
	// the choice for long tails on busy canvases.
	CompressionLZ4 Compression = 1

	// CompressionZstd uses zstd at the default level. Event JSON is
	// repetitive text and compresses several times better than with
	// LZ4.
	CompressionZstd Compression = 2
)

// String returns the name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name as accepted on the
// command line and in config files.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("eventlog: unknown compression %q (want none, lz4 or zstd)", name)
	}
}

// compressor wraps w. Closing the result flushes the compressed
// stream but does not close w.
func compressor(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("eventlog: creating zstd encoder: %w", err)
		}
		return encoder, nil
	default:
		return nil, fmt.Errorf("eventlog: unsupported compression %s", compression)
	}
}

// decompressor wraps r. The returned release function frees decoder
// resources.
func decompressor(r io.Reader, compression Compression) (io.Reader, func(), error) {
	switch compression {
	case CompressionNone:
		return r, func() {}, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("eventlog: creating zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	default:
		return nil, nil, fmt.Errorf("eventlog: unsupported compression %s", compression)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
