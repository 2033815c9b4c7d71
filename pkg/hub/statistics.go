// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Statistics tracks frame statistics and stream health
type Statistics struct {
	StartTime     time.Time
	LastFrameTime time.Time

	// Counters
	TotalFrames    uint64
	ChangedFrames  uint64
	Anomalies      uint64
	UnknownSensors uint64
	RangeErrors    uint64

	// Copied from the decoder
	BytesReceived  uint64
	DiscardedBytes uint64
	Escapes        uint64
	Resyncs        uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ByteRate  float64 // bytes/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime: now,
	}
}

// Update updates statistics based on a frame and its validation errors
func (s *Statistics) Update(frame *Frame, validationErrors []ValidationError) {
	s.TotalFrames++
	if frame.Changed() {
		s.ChangedFrames++
	}

	for _, err := range validationErrors {
		s.Anomalies++
		switch err.Type {
		case AnomalyUnknownSensor:
			s.UnknownSensors++
		case AnomalyHundredthsRange, AnomalyHeadingRange, AnomalyCellIndex:
			s.RangeErrors++
		}
	}

	s.LastFrameTime = frame.Timestamp()
}

// Sync copies the decoder's byte level counters
func (s *Statistics) Sync(c Counters) {
	s.BytesReceived = c.Bytes
	s.DiscardedBytes = c.Discarded
	s.Escapes = c.Escapes
	s.Resyncs = c.Resyncs
}

// CalculateRates calculates frame and byte rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ByteRate = float64(s.BytesReceived) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var changedPercent, discardedPercent float64
	if s.TotalFrames > 0 {
		changedPercent = float64(s.ChangedFrames) * 100.0 / float64(s.TotalFrames)
	}
	if s.BytesReceived > 0 {
		discardedPercent = float64(s.DiscardedBytes) * 100.0 / float64(s.BytesReceived)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Received:  %10s\n", humanize.Bytes(s.BytesReceived))
	result += fmt.Sprintf("Total Frames:    %10s\n", humanize.Comma(int64(s.TotalFrames)))
	result += fmt.Sprintf("Changed Frames:  %10s (%.1f%%)\n", humanize.Comma(int64(s.ChangedFrames)), changedPercent)

	if s.DiscardedBytes > 0 {
		result += fmt.Sprintf("Discarded Bytes: %10s (%.1f%%)\n", humanize.Comma(int64(s.DiscardedBytes)), discardedPercent)
	}
	if s.Resyncs > 0 {
		result += fmt.Sprintf("Resyncs:         %10s\n", humanize.Comma(int64(s.Resyncs)))
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %10s\n", humanize.Comma(int64(s.Anomalies)))
		if s.UnknownSensors > 0 {
			result += fmt.Sprintf("  Unknown IDs:    %8d\n", s.UnknownSensors)
		}
		if s.RangeErrors > 0 {
			result += fmt.Sprintf("  Out of range:   %8d\n", s.RangeErrors)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %10.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Byte Rate:       %10.1f bytes/sec\n", s.ByteRate)
	if !s.LastFrameTime.IsZero() {
		result += fmt.Sprintf("Last Frame:      %s\n", humanize.Time(s.LastFrameTime))
	}
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = Statistics{StartTime: time.Now()}
}
