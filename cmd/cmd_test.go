// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/capture"
	"github.com/JordanHiggins/RPi-FPV/pkg/config"
	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/JordanHiggins/RPi-FPV/pkg/osd"
	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
)

// fakePilot is a pilot source driven directly through its filter
type fakePilot struct {
	filter *pilot.Filter
	closed bool
}

func (f *fakePilot) Filter() *pilot.Filter { return f.filter }

func (f *fakePilot) Close() error {
	f.closed = true
	return nil
}

// pulse feeds one high pulse of width w into f
func (f *fakePilot) pulse(now *time.Duration, w time.Duration) {
	f.filter.Edge(true, *now)
	*now += w
	f.filter.Edge(false, *now)
	*now += 20 * time.Millisecond
}

// feedFlight decodes the synthetic flight at elapsed into a fresh table
func feedFlight(elapsed, duration time.Duration, cells int) *hub.Telemetry {
	tel := hub.New()
	for _, f := range flightFrames(elapsed, duration, cells) {
		tel.Feed(hub.EncodeFrame(f.id, f.value))
	}
	return tel
}

// ============================================================
// Formatting Tests
// ============================================================

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		ms       uint64
		expected string
	}{
		{0, "0 seconds"},
		{1000, "1 second"},
		{120000, "2 minutes"},
		{61000, "1 minute and 1 second"},
		{3723000, "1 hour, 2 minutes, and 3 seconds"},
		{90000000, "1 day and 1 hour"},
	}

	for _, tt := range tests {
		if got := formatUptime(tt.ms); got != tt.expected {
			t.Errorf("formatUptime(%d) = %q; want %q", tt.ms, got, tt.expected)
		}
	}
}

func TestFormatOSD(t *testing.T) {
	thresholds := osd.DefaultThresholds()

	normal := formatOSD(osd.State{Voltage: 12600, Cells: 3}, thresholds)
	if !strings.HasPrefix(normal, "[OSD] ALT") || strings.Contains(normal, "\033") {
		t.Errorf("Normal line = %q", normal)
	}

	low := formatOSD(osd.State{Voltage: 9900, Cells: 3, Recording: true}, thresholds)
	if !strings.Contains(low, "BATTERY LOW") || !strings.Contains(low, "REC") {
		t.Errorf("Low battery line = %q", low)
	}
}

func TestSensorRows(t *testing.T) {
	tel := hub.New()
	tel.Feed(hub.EncodeFrame(hub.SensorCells, hub.CellFrameValue(1, 2100)))
	tel.Feed(hub.EncodeFrame(hub.SensorRPM, 42))

	rows := sensorRows(tel.Snapshot())
	if len(rows) != 2 {
		t.Fatalf("Rows = %d; want 2", len(rows))
	}
	if rows[0][0] != hub.SensorName(hub.SensorRPM) || rows[0][1] != "03" || rows[0][2] != "42" {
		t.Errorf("RPM row = %v", rows[0])
	}
	if rows[1][3] != "Cell: 1, Voltage: 2100" {
		t.Errorf("Cell row decoded = %q", rows[1][3])
	}
}

// ============================================================
// Simulation Tests
// ============================================================

func TestFlightFrames_Profile(t *testing.T) {
	duration := 60 * time.Second

	start := feedFlight(0, duration, 3)
	if got := start.Altitude(); got != -150 {
		t.Errorf("Start altitude = %d; want -150", got)
	}
	if got := start.Cells(); got != 3 {
		t.Errorf("Cells = %d; want 3", got)
	}
	if got := start.CellVoltage(); got != 2100 {
		t.Errorf("Cell voltage = %d; want 2100", got)
	}
	if got := start.VFASVoltage(); got != 12600 {
		t.Errorf("Start pack = %d mV; want 12600", got)
	}

	middle := feedFlight(duration/2, duration, 3)
	if got := middle.Altitude(); got != 4850 {
		t.Errorf("Peak altitude = %d; want 4850", got)
	}
	if got := middle.VFASVoltage(); got != 11400 {
		t.Errorf("Middle pack = %d mV; want 11400", got)
	}

	turned := feedFlight(10*time.Second, duration, 3)
	if got := turned.Heading(); got != 12000 {
		t.Errorf("Heading after 10s = %d; want 12000", got)
	}

	end := feedFlight(duration, duration, 3)
	state := osd.FromSnapshot(end.Snapshot(), false)
	if state.Level(osd.DefaultThresholds()) != osd.LevelCritical {
		t.Errorf("End level = %v; want CRITICAL", state.Level(osd.DefaultThresholds()))
	}
}

func TestWriteFlight_InvertedWithNoise(t *testing.T) {
	oldRate, oldDuration, oldCells := simRate, simDuration, simCells
	t.Cleanup(func() {
		simRate, simDuration, simCells = oldRate, oldDuration, oldCells
	})
	simRate, simDuration, simCells = 5, 2, 4

	enc := hub.NewEncoder()
	enc.SetInvert(true)
	rng := rand.New(rand.NewSource(1))

	sleeps := 0
	var buf bytes.Buffer
	n, err := writeFlight(&buf, enc, rng, func(time.Duration) { sleeps++ })
	if err != nil {
		t.Fatalf("writeFlight failed: %v", err)
	}
	if n != buf.Len() {
		t.Errorf("Reported %d bytes, wrote %d", n, buf.Len())
	}
	if sleeps != 11 {
		t.Errorf("Frame sets = %d; want 11", sleeps)
	}

	tel := hub.New()
	tel.SetInvert(true)
	tel.Feed(buf.Bytes())

	if got := tel.Cells(); got != 4 {
		t.Errorf("Cells = %d; want 4", got)
	}
	if got := tel.VFASVoltage(); got != 13600 {
		t.Errorf("Final pack = %d mV; want 13600", got)
	}
	if got := tel.Altitude(); got != -150 {
		t.Errorf("Final altitude = %d; want -150", got)
	}
	if c := tel.Counters(); c.Resyncs != 0 {
		t.Errorf("Noise caused %d resyncs", c.Resyncs)
	}
}

// ============================================================
// Connection Tests
// ============================================================

func TestFileConnection_Replay(t *testing.T) {
	data := make([]byte, 0, 300)
	for v := uint16(0); len(data) < 300; v++ {
		data = append(data, hub.EncodeFrame(hub.SensorRPM, v)...)
	}
	path := filepath.Join(t.TempDir(), "000001.hub")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing replay: %v", err)
	}

	conn, err := OpenFileConnection(path, 0)
	if err != nil {
		t.Fatalf("OpenFileConnection failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{1}); err == nil {
		t.Error("Expected write to a replay to fail")
	}

	var got []byte
	if err := readStream(context.Background(), conn, func(chunk []byte) {
		got = append(got, chunk...)
	}); err != nil {
		t.Fatalf("readStream failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Replayed %d bytes; want %d", len(got), len(data))
	}

	if _, err := conn.Read(make([]byte, 8)); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("Read after end = %v; want ErrConnectionClosed", err)
	}
}

func TestOpenConnection_NoSource(t *testing.T) {
	if _, _, err := OpenConnection(config.Default()); !errors.Is(err, ErrNoConnection) {
		t.Errorf("OpenConnection = %v; want ErrNoConnection", err)
	}
}

// ============================================================
// Monitor Session Tests
// ============================================================

func TestMonitorSession_Feed(t *testing.T) {
	s := newMonitorSession(config.Default())

	msg := s.feed(hub.EncodeFrame(hub.SensorVFAS, 126))
	if msg.updates != 1 || len(msg.frames) != 1 || msg.state == nil {
		t.Fatalf("First feed = %+v", msg)
	}
	if msg.state.Voltage != 12600 || msg.state.Recording {
		t.Errorf("State = %+v", *msg.state)
	}

	// same value again: a frame but no update, so no display refresh
	msg = s.feed(hub.EncodeFrame(hub.SensorVFAS, 126))
	if msg.updates != 0 || len(msg.frames) != 1 || msg.state != nil {
		t.Errorf("Repeated feed = %+v", msg)
	}

	msg = s.feed(hub.EncodeFrame(0x7F, 1))
	if len(msg.frames) != 1 || len(msg.frames[0].errors) == 0 {
		t.Errorf("Unknown sensor not flagged: %+v", msg.frames)
	}
}

func TestMonitorSession_PilotRecording(t *testing.T) {
	c := config.Default()
	c.Capture.Directory = t.TempDir()

	s := newMonitorSession(c)
	src := &fakePilot{filter: pilot.NewFilter(0, 1, false)}
	if err := s.enableRecording(c, src); err != nil {
		t.Fatalf("enableRecording failed: %v", err)
	}

	if _, ok := s.pollPilot(); ok {
		t.Error("Expected no change before the first pulse")
	}

	now := time.Second
	src.pulse(&now, 1900*time.Microsecond)
	msg, ok := s.pollPilot()
	if !ok || msg.action != pilot.ActionStart || msg.err != nil {
		t.Fatalf("Switch on = %+v, %v", msg, ok)
	}
	want := capture.SlotPath(c.Capture.Directory, 1, capture.DefaultExtension)
	if msg.path != want {
		t.Errorf("Recording path = %q; want %q", msg.path, want)
	}

	frame := hub.EncodeFrame(hub.SensorRPM, 42)
	if fm := s.feed(frame); fm.state == nil || !fm.state.Recording {
		t.Error("Display does not show the recording")
	}

	src.pulse(&now, 1000*time.Microsecond)
	msg, ok = s.pollPilot()
	if !ok || msg.action != pilot.ActionStop {
		t.Fatalf("Switch off = %+v, %v", msg, ok)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !src.closed {
		t.Error("Pilot source not closed")
	}

	recorded, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("reading recording: %v", err)
	}
	if !bytes.Equal(recorded, frame) {
		t.Errorf("Recording = %x; want %x", recorded, frame)
	}
}
