// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import "fmt"

// Encoder encodes hub frames for transmission.
// Handles byte stuffing and optional line inversion.
type Encoder struct {
	invert byte
}

// NewEncoder creates a new hub frame encoder for a non-inverted line
func NewEncoder() *Encoder {
	return &Encoder{}
}

// SetInvert selects inverted (true) or normal (false) UART levels
func (e *Encoder) SetInvert(invert bool) {
	if invert {
		e.invert = InvertAll
	} else {
		e.invert = InvertNone
	}
}

// Encode encodes a Frame to wire format.
func (e *Encoder) Encode(f *Frame) []byte {
	return e.EncodeValues(f.ID(), f.Value())
}

// EncodeValues encodes a sensor reading to wire format, applying the
// encoder's inversion to every byte.
func (e *Encoder) EncodeValues(id uint8, value uint16) []byte {
	data := EncodeFrame(id, value)
	if e.invert != InvertNone {
		for i := range data {
			data[i] ^= e.invert
		}
	}
	return data
}

// EncodeFrame creates a complete wire-formatted frame for a non-inverted line:
// StartByte followed by the stuffed id, value low and value high bytes.
func EncodeFrame(id uint8, value uint16) []byte {
	stuffed := stuffBytes([]byte{id, byte(value), byte(value >> 8)})

	frame := make([]byte, 0, len(stuffed)+1)
	frame = append(frame, StartByte)
	frame = append(frame, stuffed...)
	return frame
}

// stuffBytes applies byte stuffing to escape special bytes.
// Special bytes (START, ESC) are replaced with ESC + (byte XOR EscXor).
func stuffBytes(data []byte) []byte {
	// Pre-allocate with extra space for potential escapes
	result := make([]byte, 0, len(data)*2)

	for _, b := range data {
		if b == StartByte || b == EscByte {
			result = append(result, EscByte, b^EscXor)
		} else {
			result = append(result, b)
		}
	}

	return result
}

// UnstuffBytes removes byte stuffing from escaped data.
// This is the inverse of stuffBytes.
func UnstuffBytes(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data))
	escapeNext := false

	for _, b := range data {
		if escapeNext {
			result = append(result, b^EscXor)
			escapeNext = false
		} else if b == EscByte {
			escapeNext = true
		} else {
			result = append(result, b)
		}
	}

	if escapeNext {
		return nil, fmt.Errorf("incomplete escape sequence at end of data")
	}

	return result, nil
}
