// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: no configuration", ErrInvalid)
	}

	// ------------------------------------------------------------
	// LINKS
	// ------------------------------------------------------------

	if cfg.Serial.Port != "" && cfg.WebSocket.URL != "" {
		return fmt.Errorf("%w: serial.port and websocket.url are mutually exclusive", ErrInvalid)
	}
	if cfg.Serial.Baud <= 0 {
		return fmt.Errorf("%w: serial.baud must be positive, got %d", ErrInvalid, cfg.Serial.Baud)
	}
	if cfg.Serial.ReadTimeoutMs < 0 {
		return fmt.Errorf("%w: serial.read_timeout_ms must not be negative", ErrInvalid)
	}
	if cfg.WebSocket.URL != "" {
		u, err := url.Parse(cfg.WebSocket.URL)
		if err != nil {
			return fmt.Errorf("%w: websocket.url: %v", ErrInvalid, err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("%w: websocket.url must use ws:// or wss://, got %q", ErrInvalid, u.Scheme)
		}
	}

	// ------------------------------------------------------------
	// DISPLAY
	// ------------------------------------------------------------

	if cfg.Display.WarnCellMv < cfg.Display.LowCellMv {
		return fmt.Errorf(
			"%w: display.warn_cell_mv (%d) must not be below display.low_cell_mv (%d)",
			ErrInvalid,
			cfg.Display.WarnCellMv,
			cfg.Display.LowCellMv,
		)
	}
	if cfg.Display.Width <= 0 || cfg.Display.Height <= 0 {
		return fmt.Errorf("%w: display size must be positive, got %dx%d", ErrInvalid, cfg.Display.Width, cfg.Display.Height)
	}

	// ------------------------------------------------------------
	// RECORDING
	// ------------------------------------------------------------

	ext := cfg.Capture.Extension
	if ext == "" || strings.ContainsAny(ext, `/\.`) {
		return fmt.Errorf("%w: capture.extension %q must be a bare extension", ErrInvalid, ext)
	}
	if cfg.Store.QueueSize <= 0 || cfg.Store.BatchSize <= 0 {
		return fmt.Errorf("%w: store.queue_size and store.batch_size must be positive", ErrInvalid)
	}
	if cfg.Store.FlushMs <= 0 {
		return fmt.Errorf("%w: store.flush_ms must be positive", ErrInvalid)
	}

	// ------------------------------------------------------------
	// PILOT SWITCH
	// ------------------------------------------------------------

	if cfg.Pilot.Line < 0 {
		return fmt.Errorf("%w: pilot.line must not be negative", ErrInvalid)
	}
	if cfg.Pilot.StartUs <= cfg.Pilot.StopUs {
		return fmt.Errorf(
			"%w: pilot.start_us (%d) must be above pilot.stop_us (%d)",
			ErrInvalid,
			cfg.Pilot.StartUs,
			cfg.Pilot.StopUs,
		)
	}

	return nil
}
