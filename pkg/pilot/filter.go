// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pilot turns the receiver's record switch channel into start and stop
// decisions. The channel is a servo pulse; its high time is smoothed and
// compared against fixed thresholds.
package pilot

import (
	"sync"
	"time"
)

// Pulses outside this window are glitches and are ignored
const (
	MinPulse = 800 * time.Microsecond
	MaxPulse = 2200 * time.Microsecond
)

// Default smoothing weights: seven parts history to one part new pulse
const (
	DefaultOldWeight = 7
	DefaultNewWeight = 1
)

// Filter measures the high time of a servo pulse and keeps a weighted
// running average of it in microseconds. It is safe for concurrent use.
type Filter struct {
	mu         sync.Mutex
	level      bool
	changeTime time.Duration
	value      uint16
	oldWeight  uint32
	newWeight  uint32
	accepted   uint64
	rejected   uint64
}

// NewFilter creates a filter with the given smoothing weights. level is the
// line level at creation time.
func NewFilter(oldWeight, newWeight uint8, level bool) *Filter {
	return &Filter{
		level:     level,
		oldWeight: uint32(oldWeight),
		newWeight: uint32(newWeight),
	}
}

// Edge records a level change at time at, a monotonic timestamp. Repeated
// reports of the current level are ignored. A falling edge ends a pulse.
func (f *Filter) Edge(level bool, at time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if level == f.level {
		return
	}

	start := f.changeTime
	f.changeTime = at
	f.level = level

	if level {
		return
	}

	pulse := at - start
	if pulse <= MinPulse || pulse >= MaxPulse {
		f.rejected++
		return
	}

	f.accepted++
	denom := f.oldWeight + f.newWeight
	if denom == 0 {
		f.value = uint16(pulse.Microseconds())
		return
	}
	num := f.oldWeight*uint32(f.value) + f.newWeight*uint32(pulse.Microseconds())
	f.value = uint16(num / denom)
}

// SetLevel sets the current line level without recording an edge
func (f *Filter) SetLevel(level bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.level = level
}

// Value returns the smoothed pulse width in microseconds
func (f *Filter) Value() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Pulses returns how many pulses were accepted and rejected so far
func (f *Filter) Pulses() (accepted, rejected uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accepted, f.rejected
}
