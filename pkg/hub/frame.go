// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import "time"

// Frame represents a decoded hub telemetry frame
type Frame struct {
	id        uint8
	value     uint16
	changed   bool
	timestamp time.Time
}

// NewFrame creates a new frame with the given fields
func NewFrame(id uint8, value uint16) *Frame {
	return &Frame{
		id:        id,
		value:     value,
		timestamp: time.Now(),
	}
}

// ID returns the frame's sensor ID
func (f *Frame) ID() uint8 {
	return f.id
}

// Value returns the frame's raw 16-bit value
func (f *Frame) Value() uint16 {
	return f.value
}

// Changed reports whether the frame changed the stored value for its sensor.
// Only meaningful after the frame went through a Table.
func (f *Frame) Changed() bool {
	return f.changed
}

// Timestamp returns the frame's decode timestamp
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}
