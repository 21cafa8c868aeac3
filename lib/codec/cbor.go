// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// maxNestedLevels bounds decoding depth. Records are flat; the limit
// only matters for corrupt or hostile input.
const maxNestedLevels = 16

var (
	encMode = newEncMode()
	decMode = newDecMode()
)

func newEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	// Recorded timestamps keep sub-second precision across replay.
	options.Time = cbor.TimeRFC3339Nano
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}

func newDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: maxNestedLevels,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
	return mode
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes one CBOR item into v. Duplicate map keys are an
// error.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

// Encoder writes a CBOR sequence.
type Encoder = cbor.Encoder

// Decoder reads a CBOR sequence.
type Decoder = cbor.Decoder

// NewEncoder returns an encoder that appends items to w.
func NewEncoder(w io.Writer) *Encoder { return encMode.NewEncoder(w) }

// NewDecoder returns a decoder reading items from r until io.EOF.
func NewDecoder(r io.Reader) *Decoder { return decMode.NewDecoder(r) }
