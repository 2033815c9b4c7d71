// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

// Counters holds decoder diagnostics accumulated since creation or Reset
type Counters struct {
	Bytes     uint64 // Bytes seen, including framing
	Discarded uint64 // Payload bytes received outside a frame
	Escapes   uint64 // Escape markers seen
	Resyncs   uint64 // Start markers that cut a partial frame short
}

// Decoder implements the hub frame decoder state machine.
//
// countdown is 0 while idle and otherwise holds the number of bytes still
// missing from the frame in progress.
type Decoder struct {
	invert    byte
	escape    byte
	countdown int
	buffer    [FrameSize]byte
	rawBuffer []byte // Raw bytes of the frame in progress, before inversion
	counters  Counters
}

// NewDecoder creates a new frame decoder for a non-inverted line
func NewDecoder() *Decoder {
	return &Decoder{
		rawBuffer: make([]byte, 0, maxRawBytes),
	}
}

// SetInvert selects inverted (true) or normal (false) UART levels
func (d *Decoder) SetInvert(invert bool) {
	if invert {
		d.invert = InvertAll
	} else {
		d.invert = InvertNone
	}
}

// Inverted reports whether the decoder inverts incoming bytes
func (d *Decoder) Inverted() bool {
	return d.invert == InvertAll
}

// Reset resets the decoder state to idle and clears its counters.
// The invert setting is kept.
func (d *Decoder) Reset() {
	d.escape = 0
	d.countdown = 0
	d.rawBuffer = d.rawBuffer[:0]
	d.counters = Counters{}
}

// Counters returns a copy of the decoder's diagnostic counters
func (d *Decoder) Counters() Counters {
	return d.counters
}

// GetRawBytes returns the raw bytes received since the last start marker
func (d *Decoder) GetRawBytes() []byte {
	return d.rawBuffer
}

// Idle reports whether no frame is in progress
func (d *Decoder) Idle() bool {
	return d.countdown == 0
}

// DecodeByte processes a single byte through the decoder state machine.
// Returns a completed frame, or nil if no frame completed with this byte.
func (d *Decoder) DecodeByte(raw byte) *Frame {
	d.counters.Bytes++
	b := raw ^ d.invert

	switch {
	case b == EscByte:
		// Applies to the next stored byte only
		d.escape = EscXor
		d.counters.Escapes++
		d.appendRaw(raw)
		return nil

	case b == StartByte:
		if d.countdown > 0 {
			d.counters.Resyncs++
		}
		d.countdown = FrameSize
		d.rawBuffer = append(d.rawBuffer[:0], raw)
		return nil

	case d.countdown == 0:
		// Between frames
		d.counters.Discarded++
		return nil
	}

	b ^= d.escape
	d.escape = 0
	d.appendRaw(raw)

	d.buffer[FrameSize-d.countdown] = b
	d.countdown--
	if d.countdown > 0 {
		return nil
	}

	return NewFrame(d.buffer[0], uint16(d.buffer[1])|uint16(d.buffer[2])<<8)
}

// Decode runs DecodeByte over data and returns every completed frame
func (d *Decoder) Decode(data []byte) []*Frame {
	var frames []*Frame
	for _, b := range data {
		if frame := d.DecodeByte(b); frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames
}

func (d *Decoder) appendRaw(b byte) {
	if len(d.rawBuffer) < maxRawBytes {
		d.rawBuffer = append(d.rawBuffer, b)
	}
}
