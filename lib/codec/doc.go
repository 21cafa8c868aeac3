// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration used for on-disk event
// recordings.
//
// The wire protocol with the canvas server is JSON. CBOR is used only
// where the transport's own tooling persists data: recorded event
// streams written by "canvasctl tail --record" and read back by
// "canvasctl replay". The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2), so the same record always produces the same bytes.
// The decoder rejects duplicate map keys and bounds nesting depth, so a
// damaged recording fails loudly instead of decoding into garbage.
//
// For buffers:
//
//	data, err := codec.Marshal(record)
//	err = codec.Unmarshal(data, &record)
//
// For streams:
//
//	encoder := codec.NewEncoder(writer)
//	decoder := codec.NewDecoder(reader)
//
// Types with `json` tags serialize with the same field names in CBOR;
// fxamacker/cbor reads `json` tags when `cbor` tags are absent.
package codec
