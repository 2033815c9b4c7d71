// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package pilot

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/warthog618/go-gpiocdev"
)

// Line feeds the edges of a GPIO input line into a Filter
type Line struct {
	line   *gpiocdev.Line
	filter *Filter
}

// OpenLine requests offset on chip (e.g. "gpiochip0") for edge detection and
// returns a Line whose filter follows the pulse on it
func OpenLine(chip string, offset int, oldWeight, newWeight uint8) (*Line, error) {
	l := &Line{filter: NewFilter(oldWeight, newWeight, false)}

	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(l.handleEvent))
	if err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return nil, fmt.Errorf("requesting %s line %d (bias needs Linux 5.5 or later): %w", chip, offset, err)
		}
		return nil, fmt.Errorf("requesting %s line %d: %w", chip, offset, err)
	}

	level, err := line.Value()
	if err != nil {
		line.Close()
		return nil, fmt.Errorf("reading %s line %d: %w", chip, offset, err)
	}

	l.filter.SetLevel(level == 1)
	l.line = line
	return l, nil
}

// Filter returns the filter fed by this line
func (l *Line) Filter() *Filter {
	return l.filter
}

// Close releases the line
func (l *Line) Close() error {
	return l.line.Close()
}

func (l *Line) handleEvent(evt gpiocdev.LineEvent) {
	l.filter.Edge(evt.Type == gpiocdev.LineEventRisingEdge, evt.Timestamp)
}
