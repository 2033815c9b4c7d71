// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"sync"
	"time"
)

// Telemetry is one telemetry session: a frame decoder feeding a sensor table.
// It is not safe for concurrent use; see Shared.
type Telemetry struct {
	decoder *Decoder
	table   *Table
}

// New creates a telemetry session for a non-inverted line
func New() *Telemetry {
	return &Telemetry{
		decoder: NewDecoder(),
		table:   NewTable(),
	}
}

// SetInvert selects inverted (true) or normal (false) UART levels
func (t *Telemetry) SetInvert(invert bool) {
	t.decoder.SetInvert(invert)
}

// SetObserver registers the observer called for every received frame
func (t *Telemetry) SetObserver(observer Observer) {
	t.table.SetObserver(observer)
}

// Feed decodes data and applies every completed frame to the table.
// Returns the number of frames that changed a value or grew the cell count,
// saturated at MaxUpdates.
func (t *Telemetry) Feed(data []byte) uint8 {
	return t.FeedFunc(data, nil)
}

// FeedFunc is Feed, additionally passing each completed frame to fn after it
// has been applied to the table.
func (t *Telemetry) FeedFunc(data []byte, fn func(*Frame)) uint8 {
	updates := 0
	for _, b := range data {
		frame := t.decoder.DecodeByte(b)
		if frame == nil {
			continue
		}
		if t.receive(frame) {
			updates++
		}
		if fn != nil {
			fn(frame)
		}
	}

	if updates > MaxUpdates {
		return MaxUpdates
	}
	return uint8(updates)
}

// receive applies a frame to the table and reports whether it counts as an update
func (t *Telemetry) receive(frame *Frame) bool {
	cells := t.table.Cells()
	frame.changed = t.table.Update(frame.id, frame.value)
	return frame.changed || t.table.Cells() != cells
}

// Raw returns the stored value for id
func (t *Telemetry) Raw(id uint8) uint16 {
	return t.table.Raw(id)
}

// Cells returns the number of battery cells seen so far
func (t *Telemetry) Cells() uint8 {
	return t.table.Cells()
}

// Altitude returns the barometric altitude in hundredths of a meter
func (t *Telemetry) Altitude() int32 {
	return Altitude(t.table.Raw(SensorAltitudeWhole), t.table.Raw(SensorAltitudeHundredth))
}

// Heading returns the course in hundredths of a degree
func (t *Telemetry) Heading() uint16 {
	return Heading(t.table.Raw(SensorHeadingDegrees), t.table.Raw(SensorHeadingHundredth))
}

// CellVoltage returns the voltage field of the last cell frame
func (t *Telemetry) CellVoltage() uint16 {
	return CellVoltage(t.table.Raw(SensorCells))
}

// VFASVoltage returns the pack voltage in millivolts
func (t *Telemetry) VFASVoltage() uint16 {
	return VFASVoltage(t.table.Raw(SensorVFAS), t.table.Raw(SensorVoltageBP), t.table.Raw(SensorVoltageAP))
}

// Counters returns the decoder's diagnostic counters
func (t *Telemetry) Counters() Counters {
	return t.decoder.Counters()
}

// Snapshot copies the current table
func (t *Telemetry) Snapshot() Snapshot {
	return NewSnapshot(t.table.Values(), t.table.Cells(), time.Now())
}

// Shared serializes a Telemetry behind a single writer so that one goroutine
// can feed bytes while others read snapshots.
type Shared struct {
	mu        sync.RWMutex
	telemetry *Telemetry
}

// NewShared wraps t. t must not be used directly afterwards.
func NewShared(t *Telemetry) *Shared {
	return &Shared{telemetry: t}
}

// Feed is Telemetry.Feed under the write lock
func (s *Shared) Feed(data []byte) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry.Feed(data)
}

// FeedFunc is Telemetry.FeedFunc under the write lock. fn runs with the lock held.
func (s *Shared) FeedFunc(data []byte, fn func(*Frame)) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry.FeedFunc(data, fn)
}

// Snapshot copies the current table under the read lock
func (s *Shared) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.telemetry.Snapshot()
}

// Counters returns the decoder counters under the read lock
func (s *Shared) Counters() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.telemetry.Counters()
}
