// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"github.com/JordanHiggins/RPi-FPV/pkg/capture"
	"github.com/JordanHiggins/RPi-FPV/pkg/osd"
	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
)

// Defaults for values left at zero
const (
	DefaultBaud          = 9600
	DefaultReadTimeoutMs = 100
	DefaultWidth         = 640
	DefaultHeight        = 480
	DefaultCaptureDir    = "recordings"
	DefaultStorePath     = "hubscope.db"
	DefaultQueueSize     = 1024
	DefaultBatchSize     = 64
	DefaultFlushMs       = 500
	DefaultChip          = "gpiochip0"
	DefaultLine          = 4
)

// Normalize fills every zero value with its default. Booleans are left as
// they are. It is called before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// ------------------------------------------------------------
	// LINKS
	// ------------------------------------------------------------

	setDefault(&cfg.Serial.Baud, DefaultBaud)
	setDefault(&cfg.Serial.ReadTimeoutMs, DefaultReadTimeoutMs)

	// ------------------------------------------------------------
	// DISPLAY
	// ------------------------------------------------------------

	setDefault(&cfg.Display.LowCellMv, osd.DefaultLowCell)
	setDefault(&cfg.Display.WarnCellMv, osd.DefaultWarnCell)
	setDefault(&cfg.Display.Width, DefaultWidth)
	setDefault(&cfg.Display.Height, DefaultHeight)

	// ------------------------------------------------------------
	// RECORDING
	// ------------------------------------------------------------

	setDefault(&cfg.Capture.Directory, DefaultCaptureDir)
	setDefault(&cfg.Capture.Extension, capture.DefaultExtension)
	setDefault(&cfg.Store.Path, DefaultStorePath)
	setDefault(&cfg.Store.QueueSize, DefaultQueueSize)
	setDefault(&cfg.Store.BatchSize, DefaultBatchSize)
	setDefault(&cfg.Store.FlushMs, DefaultFlushMs)

	// ------------------------------------------------------------
	// PILOT SWITCH
	// ------------------------------------------------------------

	setDefault(&cfg.Pilot.Chip, DefaultChip)
	setDefault(&cfg.Pilot.Line, DefaultLine)
	if cfg.Pilot.OldWeight == 0 && cfg.Pilot.NewWeight == 0 {
		cfg.Pilot.OldWeight = pilot.DefaultOldWeight
		cfg.Pilot.NewWeight = pilot.DefaultNewWeight
	}
	setDefault(&cfg.Pilot.StartUs, pilot.DefaultStart)
	setDefault(&cfg.Pilot.StopUs, pilot.DefaultStop)
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
