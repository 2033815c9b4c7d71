// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

//go:build !linux

package cmd

import (
	"errors"

	"github.com/JordanHiggins/RPi-FPV/pkg/config"
)

func openPilotSource(c *config.Config) (pilotSource, error) {
	return nil, errors.New("the pilot switch needs the Linux GPIO character device")
}
