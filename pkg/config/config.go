// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the hubscope YAML configuration file
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Display   DisplayConfig   `yaml:"display"`
	Capture   CaptureConfig   `yaml:"capture"`
	Store     StoreConfig     `yaml:"store"`
	Pilot     PilotConfig     `yaml:"pilot"`
}

// ---- LINKS ----

type SerialConfig struct {
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	Invert        bool   `yaml:"invert"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
}

type WebSocketConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// ---- DISPLAY ----

type DisplayConfig struct {
	LowCellMv  uint16 `yaml:"low_cell_mv"`
	WarnCellMv uint16 `yaml:"warn_cell_mv"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
}

// ---- RECORDING ----

type CaptureConfig struct {
	Directory string `yaml:"directory"`
	Extension string `yaml:"extension"`
}

type StoreConfig struct {
	Path      string `yaml:"path"`
	QueueSize int    `yaml:"queue_size"`
	BatchSize int    `yaml:"batch_size"`
	FlushMs   int    `yaml:"flush_ms"`
}

// ---- PILOT SWITCH ----

type PilotConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Chip      string `yaml:"chip"`
	Line      int    `yaml:"line"`
	OldWeight uint8  `yaml:"old_weight"`
	NewWeight uint8  `yaml:"new_weight"`
	StartUs   uint16 `yaml:"start_us"`
	StopUs    uint16 `yaml:"stop_us"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{}
	Normalize(cfg)
	return cfg
}

// Load reads path, fills unset values with defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	Normalize(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
