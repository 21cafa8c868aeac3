// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package eventlog records and replays canvas event streams.
//
// A recording is a six-byte header followed by a compressed CBOR
// sequence of [Record] values:
//
//	offset 0  "CVLG"      magic
//	offset 4  0x01        format version
//	offset 5  tag         compression (see [Compression])
//	offset 6  ...         CBOR records, compressed as a single stream
//
// Each record holds the event in its JSON wire form as produced by
// canvas.EncodeEvent, plus the channel it arrived on, so a replay
// decodes it with canvas.DecodeEvent like a live event.
//
// A recording is complete only after [Writer.Close] has flushed the
// compressed stream.
package eventlog
