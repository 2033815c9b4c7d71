// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"bytes"
	"sync"
	"testing"
)

// signed reinterprets a signed reading as the raw slot value a sensor sends
func signed(v int16) uint16 {
	return uint16(v)
}

// cellFrame builds the raw value of a cell frame for the given cell index
func cellFrame(index uint8, voltageBits uint16) uint16 {
	return uint16(index&0x0F)<<4 | voltageBits&0xFF0F
}

// ============================================================
// Decoder Tests
// ============================================================

func TestDecoder_SimpleFrame(t *testing.T) {
	d := NewDecoder()

	if f := d.DecodeByte(StartByte); f != nil {
		t.Fatal("Start byte should not complete a frame")
	}
	if f := d.DecodeByte(0x10); f != nil {
		t.Fatal("ID byte should not complete a frame")
	}
	if f := d.DecodeByte(0x34); f != nil {
		t.Fatal("Low byte should not complete a frame")
	}

	f := d.DecodeByte(0x12)
	if f == nil {
		t.Fatal("Expected frame after 3 payload bytes, got nil")
	}
	if f.ID() != 0x10 {
		t.Errorf("ID mismatch: expected 0x10, got 0x%02X", f.ID())
	}
	if f.Value() != 0x1234 {
		t.Errorf("Value mismatch: expected 0x1234, got 0x%04X", f.Value())
	}
	if !d.Idle() {
		t.Error("Decoder should be idle after a complete frame")
	}
}

func TestDecoder_IdleBytesDiscarded(t *testing.T) {
	d := NewDecoder()

	frames := d.Decode([]byte{0x01, 0x02, 0x03, 0x04})
	if len(frames) != 0 {
		t.Fatalf("Expected no frames from idle bytes, got %d", len(frames))
	}

	c := d.Counters()
	if c.Discarded != 4 {
		t.Errorf("Discarded mismatch: expected 4, got %d", c.Discarded)
	}
	if c.Bytes != 4 {
		t.Errorf("Bytes mismatch: expected 4, got %d", c.Bytes)
	}
}

func TestDecoder_Reset(t *testing.T) {
	d := NewDecoder()

	d.DecodeByte(StartByte)
	d.DecodeByte(0x10)
	d.Reset()

	if !d.Idle() {
		t.Fatal("After reset, decoder should be idle")
	}
	if f := d.DecodeByte(0x00); f != nil {
		t.Error("After reset, decoder should ignore non-start bytes")
	}
	if c := d.Counters(); c.Bytes != 1 {
		t.Errorf("Reset should clear counters, got Bytes=%d", c.Bytes)
	}
}

func TestDecoder_EscapeIsTransparent(t *testing.T) {
	for b := 0; b < 256; b++ {
		if b == StartByte || b == EscByte {
			continue
		}
		if plainByte := byte(b) ^ EscXor; plainByte == StartByte || plainByte == EscByte {
			continue
		}

		escaped := NewDecoder().Decode([]byte{StartByte, 0x01, EscByte, byte(b), 0x00})
		plain := NewDecoder().Decode([]byte{StartByte, 0x01, byte(b) ^ EscXor, 0x00})

		if len(escaped) != 1 || len(plain) != 1 {
			t.Fatalf("b=0x%02X: expected one frame each, got %d and %d", b, len(escaped), len(plain))
		}
		if escaped[0].Value() != plain[0].Value() {
			t.Errorf("b=0x%02X: escaped value 0x%04X != plain value 0x%04X", b, escaped[0].Value(), plain[0].Value())
		}
	}
}

func TestDecoder_EscapedReservedBytes(t *testing.T) {
	d := NewDecoder()

	// id 0x5E, value 0x5E5D, every byte escaped
	frames := d.Decode([]byte{StartByte, EscByte, 0x3E, EscByte, 0x3D, EscByte, 0x3E})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0].ID() != 0x5E {
		t.Errorf("ID mismatch: expected 0x5E, got 0x%02X", frames[0].ID())
	}
	if frames[0].Value() != 0x5E5D {
		t.Errorf("Value mismatch: expected 0x5E5D, got 0x%04X", frames[0].Value())
	}
}

func TestDecoder_StartByteResyncs(t *testing.T) {
	d := NewDecoder()

	// Partial frame cut short by a new start marker
	frames := d.Decode([]byte{StartByte, 0x10, 0x05, StartByte, 0x14, 0x5A, 0x00})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0].ID() != 0x14 || frames[0].Value() != 90 {
		t.Errorf("Expected (0x14, 90), got (0x%02X, %d)", frames[0].ID(), frames[0].Value())
	}
	if c := d.Counters(); c.Resyncs != 1 {
		t.Errorf("Resyncs mismatch: expected 1, got %d", c.Resyncs)
	}
}

func TestDecoder_ResyncDoesNotLeakBytes(t *testing.T) {
	d := NewDecoder()

	frames := d.Decode([]byte{StartByte, 0xAA, 0xBB, StartByte, 0x01, 0x02, 0x03})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0].ID() != 0x01 || frames[0].Value() != 0x0302 {
		t.Errorf("Stale bytes leaked: got (0x%02X, 0x%04X)", frames[0].ID(), frames[0].Value())
	}
}

func TestDecoder_EscapeSurvivesStartMarker(t *testing.T) {
	d := NewDecoder()

	// A pending escape is applied to the first stored byte even across a start marker
	frames := d.Decode([]byte{EscByte, StartByte, 0x3E, 0x01, 0x00})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0].ID() != 0x5E {
		t.Errorf("ID mismatch: expected 0x5E, got 0x%02X", frames[0].ID())
	}
}

func TestDecoder_Inverted(t *testing.T) {
	d := NewDecoder()
	d.SetInvert(true)
	if !d.Inverted() {
		t.Fatal("Decoder should report inverted")
	}

	wire := EncodeFrame(0x39, 126)
	for i := range wire {
		wire[i] ^= InvertAll
	}

	frames := d.Decode(wire)
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if frames[0].ID() != 0x39 || frames[0].Value() != 126 {
		t.Errorf("Expected (0x39, 126), got (0x%02X, %d)", frames[0].ID(), frames[0].Value())
	}
}

func TestDecoder_BareMarkers(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"escapes only", bytes.Repeat([]byte{EscByte}, 64)},
		{"starts only", bytes.Repeat([]byte{StartByte}, 64)},
		{"alternating", bytes.Repeat([]byte{EscByte, StartByte}, 32)},
		{"start then escapes", append([]byte{StartByte}, bytes.Repeat([]byte{EscByte}, 40)...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			if frames := d.Decode(tt.data); len(frames) != 0 {
				t.Errorf("Expected no frames, got %d", len(frames))
			}
			if len(d.GetRawBytes()) > maxRawBytes {
				t.Errorf("Raw buffer exceeded its bound: %d bytes", len(d.GetRawBytes()))
			}
		})
	}
}

func TestDecoder_GetRawBytes(t *testing.T) {
	d := NewDecoder()

	d.DecodeByte(0x00) // idle noise is not kept
	d.DecodeByte(StartByte)
	d.DecodeByte(0x10)
	d.DecodeByte(EscByte)

	raw := d.GetRawBytes()
	expected := []byte{StartByte, 0x10, EscByte}
	if !bytes.Equal(raw, expected) {
		t.Errorf("Raw bytes mismatch: expected % X, got % X", expected, raw)
	}
}

// ============================================================
// Table Tests
// ============================================================

func TestTable_Update(t *testing.T) {
	tbl := NewTable()

	if tbl.Update(0x10, 0) {
		t.Error("Zero into an untouched slot should be unchanged")
	}
	if !tbl.Update(0x10, 5) {
		t.Error("New value should be changed")
	}
	if tbl.Update(0x10, 5) {
		t.Error("Same value again should be unchanged")
	}
	if !tbl.Update(0x10, 0) {
		t.Error("Returning to zero should be changed")
	}
	if tbl.Raw(0x10) != 0 {
		t.Errorf("Raw mismatch: expected 0, got %d", tbl.Raw(0x10))
	}
}

func TestTable_AllSlotsExist(t *testing.T) {
	tbl := NewTable()
	for id := 0; id < NumSensors; id++ {
		if tbl.Raw(uint8(id)) != 0 {
			t.Fatalf("Slot 0x%02X should start at 0", id)
		}
		tbl.Update(uint8(id), uint16(id)+1)
	}
	for id := 0; id < NumSensors; id++ {
		if tbl.Raw(uint8(id)) != uint16(id)+1 {
			t.Errorf("Slot 0x%02X mismatch: got %d", id, tbl.Raw(uint8(id)))
		}
	}
}

func TestTable_ObserverCalledEveryUpdate(t *testing.T) {
	tbl := NewTable()

	type call struct {
		id    uint8
		value uint16
	}
	var calls []call
	tbl.SetObserver(func(id uint8, value uint16) {
		calls = append(calls, call{id, value})
	})

	tbl.Update(0x14, 90)
	tbl.Update(0x14, 90)
	tbl.Update(0x1C, 0)

	expected := []call{{0x14, 90}, {0x14, 90}, {0x1C, 0}}
	if len(calls) != len(expected) {
		t.Fatalf("Expected %d observer calls, got %d", len(expected), len(calls))
	}
	for i := range expected {
		if calls[i] != expected[i] {
			t.Errorf("Call %d: expected %+v, got %+v", i, expected[i], calls[i])
		}
	}

	tbl.SetObserver(nil)
	tbl.Update(0x14, 91)
	if len(calls) != len(expected) {
		t.Error("Observer should not be called after removal")
	}
}

func TestTable_CellsMonotonic(t *testing.T) {
	tbl := NewTable()

	indices := []uint8{0, 2, 1, 3}
	expected := []uint8{1, 3, 3, 4}

	for i, index := range indices {
		tbl.Update(SensorCells, cellFrame(index, 0x0A02))
		if tbl.Cells() != expected[i] {
			t.Errorf("After cell %d: expected cells=%d, got %d", index, expected[i], tbl.Cells())
		}
	}
}

func TestTable_CellsUpdatedWhenUnchanged(t *testing.T) {
	tbl := NewTable()

	// Cell 0 with a zero voltage field leaves the slot at 0 but still counts the cell
	if tbl.Update(SensorCells, 0x0000) {
		t.Error("Value 0 into an untouched slot should be unchanged")
	}
	if tbl.Cells() != 1 {
		t.Errorf("Expected cells=1, got %d", tbl.Cells())
	}
}

// ============================================================
// Telemetry Tests
// ============================================================

func TestTelemetry_FeedRoundTripAllIDs(t *testing.T) {
	for id := 0; id < NumSensors; id++ {
		for _, value := range []uint16{0x0001, 0x5E5D, 0xFFFF, 0x7D7E} {
			tel := New()

			var observed []Event
			tel.SetObserver(func(i uint8, v uint16) {
				observed = append(observed, Event{ID: i, Value: v})
			})

			tel.Feed(EncodeFrame(uint8(id), value))

			if len(observed) != 1 {
				t.Fatalf("id=0x%02X value=0x%04X: expected 1 update, got %d", id, value, len(observed))
			}
			if observed[0].ID != uint8(id) || observed[0].Value != value {
				t.Errorf("id=0x%02X value=0x%04X: got (0x%02X, 0x%04X)", id, value, observed[0].ID, observed[0].Value)
			}
			if tel.Raw(uint8(id)) != value {
				t.Errorf("id=0x%02X: Raw mismatch 0x%04X", id, tel.Raw(uint8(id)))
			}
		}
	}
}

func TestTelemetry_Idempotence(t *testing.T) {
	tel := New()

	calls := 0
	tel.SetObserver(func(uint8, uint16) { calls++ })

	var changed []bool
	record := func(f *Frame) { changed = append(changed, f.Changed()) }

	frame := EncodeFrame(SensorBaroAltitudeBP, 5)
	if n := tel.FeedFunc(frame, record); n != 1 {
		t.Errorf("First feed: expected 1 update, got %d", n)
	}
	if n := tel.FeedFunc(frame, record); n != 0 {
		t.Errorf("Second feed: expected 0 updates, got %d", n)
	}

	if len(changed) != 2 || !changed[0] || changed[1] {
		t.Errorf("Changed flags mismatch: got %v", changed)
	}
	if calls != 2 {
		t.Errorf("Observer should run on both feeds, got %d calls", calls)
	}
}

func TestTelemetry_ZeroValueFirstFrameUnchanged(t *testing.T) {
	tel := New()

	if n := tel.Feed(EncodeFrame(SensorBaroAltitudeBP, 0)); n != 0 {
		t.Errorf("Expected 0 updates for a zero first value, got %d", n)
	}
}

func TestTelemetry_CellGrowthCountsAsUpdate(t *testing.T) {
	tel := New()

	if n := tel.Feed(EncodeFrame(SensorCells, cellFrame(0, 0))); n != 1 {
		t.Errorf("Expected cell growth to count as an update, got %d", n)
	}
	if n := tel.Feed(EncodeFrame(SensorCells, cellFrame(0, 0))); n != 0 {
		t.Errorf("Expected no update for a repeated cell frame, got %d", n)
	}
}

func TestTelemetry_CellsSequence(t *testing.T) {
	tel := New()

	indices := []uint8{0, 2, 1, 3}
	expected := []uint8{1, 3, 3, 4}

	for i, index := range indices {
		tel.Feed(EncodeFrame(SensorCells, cellFrame(index, 0x0A02)))
		if tel.Cells() != expected[i] {
			t.Errorf("Step %d: expected cells=%d, got %d", i, expected[i], tel.Cells())
		}
	}
}

func TestTelemetry_UpdateCountSaturates(t *testing.T) {
	tel := New()

	var stream []byte
	for v := 1; v <= 300; v++ {
		stream = append(stream, EncodeFrame(SensorRPM, uint16(v))...)
	}

	if n := tel.Feed(stream); n != MaxUpdates {
		t.Errorf("Expected saturation at %d, got %d", MaxUpdates, n)
	}
	if tel.Raw(SensorRPM) != 300 {
		t.Errorf("All frames should still be applied, got RPM=%d", tel.Raw(SensorRPM))
	}
}

func TestTelemetry_ArbitraryChunking(t *testing.T) {
	var stream []byte
	stream = append(stream, EncodeFrame(SensorBaroAltitudeBP, 12)...)
	stream = append(stream, EncodeFrame(SensorBaroAltitudeAP, 34)...)
	stream = append(stream, EncodeFrame(SensorGPSCourseBP, 0x5E)...)
	stream = append(stream, EncodeFrame(SensorVFAS, 0x5D5E)...)

	whole := New()
	total := int(whole.Feed(stream))

	chunked := New()
	chunkedTotal := 0
	for _, b := range stream {
		chunkedTotal += int(chunked.Feed([]byte{b}))
	}

	if total != 4 || chunkedTotal != 4 {
		t.Errorf("Expected 4 updates both ways, got %d and %d", total, chunkedTotal)
	}
	if whole.Snapshot().Values() != chunked.Snapshot().Values() {
		t.Error("Chunked and whole feeds should produce identical tables")
	}
}

func TestTelemetry_EmptyFeed(t *testing.T) {
	tel := New()
	if n := tel.Feed(nil); n != 0 {
		t.Errorf("Expected 0 updates, got %d", n)
	}
}

func TestTelemetry_DerivedAccessors(t *testing.T) {
	tel := New()

	var stream []byte
	stream = append(stream, EncodeFrame(SensorBaroAltitudeBP, 5)...)
	stream = append(stream, EncodeFrame(SensorBaroAltitudeAP, 10)...)
	stream = append(stream, EncodeFrame(SensorGPSCourseBP, 90)...)
	stream = append(stream, EncodeFrame(SensorGPSCourseAP, 50)...)
	stream = append(stream, EncodeFrame(SensorCells, 0x1234)...)
	stream = append(stream, EncodeFrame(SensorVFAS, 126)...)
	tel.Feed(stream)

	if got := tel.Altitude(); got != 510 {
		t.Errorf("Altitude: expected 510, got %d", got)
	}
	if got := tel.Heading(); got != 9050 {
		t.Errorf("Heading: expected 9050, got %d", got)
	}
	if got := tel.CellVoltage(); got != 0x0824 {
		t.Errorf("CellVoltage: expected 0x0824, got 0x%04X", got)
	}
	if got := tel.Cells(); got != 4 {
		t.Errorf("Cells: expected 4, got %d", got)
	}
	if got := tel.VFASVoltage(); got != 12600 {
		t.Errorf("VFASVoltage: expected 12600, got %d", got)
	}

	snap := tel.Snapshot()
	if snap.Altitude() != tel.Altitude() || snap.Heading() != tel.Heading() ||
		snap.CellVoltage() != tel.CellVoltage() || snap.VFASVoltage() != tel.VFASVoltage() ||
		snap.Cells() != tel.Cells() {
		t.Error("Snapshot accessors should match telemetry accessors")
	}
}

func TestTelemetry_Counters(t *testing.T) {
	tel := New()
	tel.Feed([]byte{0x00, StartByte, 0x10, EscByte, 0x3E, 0x00})

	c := tel.Counters()
	if c.Bytes != 6 || c.Discarded != 1 || c.Escapes != 1 || c.Resyncs != 0 {
		t.Errorf("Counters mismatch: %+v", c)
	}
}

// ============================================================
// Derivation Tests
// ============================================================

func TestAltitude(t *testing.T) {
	tests := []struct {
		name       string
		whole      uint16
		hundredths uint16
		expected   int32
	}{
		{"positive", 5, 10, 510},
		{"negative carries sign", signed(-3), 25, -325},
		{"zero whole", 0, 75, 75},
		{"minus one", signed(-1), 0, -100},
		{"int16 min", signed(-32768), 99, -3276899},
		{"int16 max", 32767, 99, 3276799},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Altitude(tt.whole, tt.hundredths); got != tt.expected {
				t.Errorf("Altitude(%d, %d) = %d; want %d", int16(tt.whole), tt.hundredths, got, tt.expected)
			}
		})
	}
}

func TestHeading(t *testing.T) {
	tests := []struct {
		degrees    uint16
		hundredths uint16
		expected   uint16
	}{
		{90, 50, 9050},
		{0, 0, 0},
		{359, 99, 35999},
		{700, 0, 4464}, // wraps at 16 bits
	}

	for _, tt := range tests {
		if got := Heading(tt.degrees, tt.hundredths); got != tt.expected {
			t.Errorf("Heading(%d, %d) = %d; want %d", tt.degrees, tt.hundredths, got, tt.expected)
		}
	}
}

func TestCellVoltage(t *testing.T) {
	tests := []struct {
		raw      uint16
		expected uint16
	}{
		// 0x1234 >> 7 = 0x24, & 0x1FE = 0x24; (0x4 << 9) = 0x800
		{0x1234, 0x0824},
		{0x0000, 0x0000},
		// 0xFFFF >> 7 = 0x1FF, & 0x1FE = 0x1FE; (0xF << 9) = 0x1E00
		{0xFFFF, 0x1FFE},
		// bits 4-7 (cell index) never reach the voltage
		{0x00F0, 0x0000},
	}

	for _, tt := range tests {
		if got := CellVoltage(tt.raw); got != tt.expected {
			t.Errorf("CellVoltage(0x%04X) = 0x%04X; want 0x%04X", tt.raw, got, tt.expected)
		}
	}
}

func TestCellIndex(t *testing.T) {
	if got := CellIndex(0x1234); got != 3 {
		t.Errorf("CellIndex(0x1234) = %d; want 3", got)
	}
	if got := CellIndex(0x00F0); got != 15 {
		t.Errorf("CellIndex(0x00F0) = %d; want 15", got)
	}
}

func TestCellFrameValue(t *testing.T) {
	for _, voltage := range []uint16{0, 1700, 2100, 0x1FFE, 0x1FFF} {
		for index := uint8(0); index <= MaxCellIndex; index++ {
			raw := CellFrameValue(index, voltage)
			if got := CellIndex(raw); got != index {
				t.Errorf("CellIndex(CellFrameValue(%d, %d)) = %d", index, voltage, got)
			}
			if got, want := CellVoltage(raw), voltage&^1; got != want {
				t.Errorf("CellVoltage(CellFrameValue(%d, %d)) = %d; want %d", index, voltage, got, want)
			}
		}
	}
}

func TestVFASVoltage(t *testing.T) {
	if got := VFASVoltage(126, 0, 0); got != 12600 {
		t.Errorf("VFASVoltage(126) = %d; want 12600", got)
	}
	if got := VFASVoltage(0, 12, 6); got != 0 {
		t.Errorf("VFASVoltage without primary slot = %d; want 0", got)
	}
}

// ============================================================
// Snapshot and Shared Tests
// ============================================================

func TestSnapshot_Active(t *testing.T) {
	tel := New()
	tel.Feed(EncodeFrame(SensorVFAS, 100))
	tel.Feed(EncodeFrame(SensorTemp1, 25))

	active := tel.Snapshot().Active()
	if len(active) != 2 || active[0] != SensorTemp1 || active[1] != SensorVFAS {
		t.Errorf("Active mismatch: got % X", active)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	tel := New()
	tel.Feed(EncodeFrame(SensorRPM, 1000))
	snap := tel.Snapshot()

	tel.Feed(EncodeFrame(SensorRPM, 2000))
	if snap.Raw(SensorRPM) != 1000 {
		t.Errorf("Snapshot should not follow later updates, got %d", snap.Raw(SensorRPM))
	}
}

func TestShared_ConcurrentFeedAndRead(t *testing.T) {
	shared := NewShared(New())

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for v := 1; v <= 1000; v++ {
			shared.Feed(EncodeFrame(SensorRPM, uint16(v)))
		}
	}()

	go func() {
		defer wg.Done()
		last := uint16(0)
		for i := 0; i < 1000; i++ {
			v := shared.Snapshot().Raw(SensorRPM)
			if v < last {
				t.Errorf("Readers should see values in write order: %d after %d", v, last)
				return
			}
			last = v
		}
	}()

	wg.Wait()

	if got := shared.Snapshot().Raw(SensorRPM); got != 1000 {
		t.Errorf("Final value mismatch: expected 1000, got %d", got)
	}
	if c := shared.Counters(); c.Bytes == 0 {
		t.Error("Counters should reflect fed bytes")
	}
}
