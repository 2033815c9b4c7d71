// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"

	"github.com/JordanHiggins/RPi-FPV/pkg/config"
	"github.com/spf13/cobra"
)

var (
	portName      string
	baudRate      int
	invertLine    bool
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool
	replayFile    string
	configPath    string

	// cfg holds the file configuration with command line overrides applied
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hubscope",
	Short: "FrSky hub telemetry monitor and flight camera tool",
	Long: `hubscope decodes the FrSky hub telemetry stream (0x5E framed, 0x5D escaped)
from a serial port, a WebSocket bridge or a recorded capture file.

It keeps the table of sensor readings, derives altitude, heading and battery
voltage from it, and drives the on-screen display, the pilot recording switch
and the SQLite telemetry log.

Settings come from an optional YAML file (--config). Flags given on the command
line take precedence over the file.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port (e.g., /dev/ttyAMA0)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate")
	rootCmd.PersistentFlags().BoolVar(&invertLine, "invert", false, "Invert every received byte (inverted UART level)")
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (e.g., ws://bridge.local/hub)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for WebSocket HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification for wss://")
	rootCmd.PersistentFlags().StringVarP(&replayFile, "file", "f", "", "Replay a recorded capture file instead of a live link")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

// loadConfig reads the configuration file, then applies the flags the user
// actually set so they win over file values.
func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	flags := cmd.Flags()
	if flags.Changed("port") && flags.Changed("url") {
		return fmt.Errorf("--port and --url are mutually exclusive")
	}
	if flags.Changed("port") {
		cfg.Serial.Port = portName
		cfg.WebSocket.URL = ""
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = baudRate
	}
	if flags.Changed("invert") {
		cfg.Serial.Invert = invertLine
	}
	if flags.Changed("url") {
		cfg.WebSocket.URL = wsURL
		cfg.Serial.Port = ""
	}
	if flags.Changed("username") {
		cfg.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.WebSocket.NoSSLVerify = wsNoSSLVerify
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("after applying flags: %w", err)
	}
	return nil
}
