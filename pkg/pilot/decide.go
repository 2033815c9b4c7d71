// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pilot

// Switch thresholds in microseconds
const (
	DefaultStart = 1500
	DefaultStop  = 800
)

// Action is what the recording controller should do next
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "START"
	case ActionStop:
		return "STOP"
	default:
		return "NONE"
	}
}

// Thresholds holds the switch positions in microseconds
type Thresholds struct {
	Start uint16
	Stop  uint16
}

// DefaultThresholds returns the stock two-position switch thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{Start: DefaultStart, Stop: DefaultStop}
}

// Decide maps a filtered pulse width to an action. Above Start the switch is
// on; between Stop and Start it is off; at or below Stop there is no valid
// signal and nothing changes.
func (t Thresholds) Decide(value uint16, recording bool) Action {
	if value > t.Start {
		if !recording {
			return ActionStart
		}
	} else if value > t.Stop {
		if recording {
			return ActionStop
		}
	}
	return ActionNone
}
