// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package osd builds the on-screen display shown over the flight camera feed:
// altitude, battery and heading lines plus a recording marker.
package osd

import (
	"fmt"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
)

// Per-cell voltage thresholds in millivolts
const (
	DefaultLowCell  = 3500
	DefaultWarnCell = 3700
)

// Level is the battery condition shown by the display
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "WARNING"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// Thresholds holds the per-cell voltage limits in millivolts
type Thresholds struct {
	LowCell  uint16
	WarnCell uint16
}

// DefaultThresholds returns the stock LiPo limits
func DefaultThresholds() Thresholds {
	return Thresholds{LowCell: DefaultLowCell, WarnCell: DefaultWarnCell}
}

// State is everything the display shows
type State struct {
	Altitude  int32  // hundredths of a meter
	Heading   uint16 // hundredths of a degree
	Voltage   uint16 // pack voltage in millivolts
	Cells     uint8
	Recording bool
}

// FromSnapshot builds the display state from a telemetry snapshot
func FromSnapshot(s hub.Snapshot, recording bool) State {
	return State{
		Altitude:  s.Altitude(),
		Heading:   s.Heading(),
		Voltage:   s.VFASVoltage(),
		Cells:     s.Cells(),
		Recording: recording,
	}
}

// AltitudeLine formats the altitude as meters with two decimals
func (s State) AltitudeLine() string {
	alt := s.Altitude
	sign := ""
	if alt < 0 {
		sign = "-"
		alt = -alt
	}
	whole := fmt.Sprintf("%s%d", sign, alt/100)
	return fmt.Sprintf("ALT %3s.%02d m", whole, alt%100)
}

// BatteryLine formats the pack voltage to one decimal with the cell count
func (s State) BatteryLine() string {
	return fmt.Sprintf("BAT % 3d.%d V (%dS)", s.Voltage/1000, (s.Voltage%1000)/100, s.Cells)
}

// HeadingLine formats the heading in whole degrees
func (s State) HeadingLine() string {
	return fmt.Sprintf("HDG %03d", s.Heading/100)
}

// Lines returns the display text, top to bottom
func (s State) Lines() []string {
	return []string{s.AltitudeLine(), s.BatteryLine(), s.HeadingLine()}
}

// CellVoltage returns the average voltage per cell, or the pack voltage when
// no cell count is known
func (s State) CellVoltage() uint16 {
	if s.Cells == 0 {
		return s.Voltage
	}
	return s.Voltage / uint16(s.Cells)
}

// Level classifies the battery against t
func (s State) Level(t Thresholds) Level {
	cell := s.CellVoltage()
	switch {
	case cell < t.LowCell:
		return LevelCritical
	case cell < t.WarnCell:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Banner returns the centred warning text, if any
func (s State) Banner(t Thresholds) string {
	if s.Level(t) == LevelCritical {
		return "BATTERY LOW"
	}
	return ""
}
