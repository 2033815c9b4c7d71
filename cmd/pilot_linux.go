// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build linux

package cmd

import (
	"github.com/JordanHiggins/RPi-FPV/pkg/config"
	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
)

// openPilotSource requests the configured GPIO line
func openPilotSource(c *config.Config) (pilotSource, error) {
	line, err := pilot.OpenLine(c.Pilot.Chip, c.Pilot.Line, c.Pilot.OldWeight, c.Pilot.NewWeight)
	if err != nil {
		return nil, err
	}
	return line, nil
}
