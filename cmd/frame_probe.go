// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/spf13/cobra"
)

var (
	frameProbeTimeout int
)

var frameProbeCmd = &cobra.Command{
	Use:   "frame_probe",
	Short: "Test the link by waiting for a plausible hub frame",
	Long: `Wait for a plausible FrSky hub frame on the connection until timeout.

The hub protocol has no checksum, so a frame counts as plausible when it comes
from a known sensor and passes range validation. Bytes outside a frame and
implausible frames are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a plausible frame
  2 - Connection error

Useful for checking wiring and the --invert setting.`,
	RunE: runFrameProbe,
}

func init() {
	rootCmd.AddCommand(frameProbeCmd)
	frameProbeCmd.Flags().IntVar(&frameProbeTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("hubscope - Frame Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", frameProbeTimeout)
	fmt.Printf("Waiting for a hub frame...\n\n")

	decoder := hub.NewDecoder()
	decoder.SetInvert(cfg.Serial.Invert)
	buf := make([]byte, readBufferSize)

	frameChan := make(chan *hub.Frame, 1)
	errChan := make(chan error, 1)

	go func() {
		implausible := 0
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}

			for i := 0; i < n; i++ {
				frame := decoder.DecodeByte(buf[i])
				if frame == nil {
					continue
				}
				if !hub.KnownSensor(frame.ID()) || len(hub.ValidateFrame(frame)) > 0 {
					implausible++
					continue
				}
				if skipped := decoder.Counters().Discarded; skipped > 0 || implausible > 0 {
					fmt.Printf("(skipped %d bytes and %d implausible frames before sync)\n", skipped, implausible)
				}
				frameChan <- frame
				return
			}
		}
	}()

	select {
	case frame := <-frameChan:
		fmt.Printf("SUCCESS: Received hub frame\n")
		fmt.Printf("  Sensor: %s (0x%02X)\n", hub.SensorName(frame.ID()), frame.ID())
		fmt.Printf("  Value: %d (0x%04X)\n", frame.Value(), frame.Value())
		fmt.Print(hub.FormatValue(frame.ID(), frame.Value()))
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameProbeTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No hub frame received within %d seconds\n", frameProbeTimeout)
		if cfg.Serial.Invert {
			fmt.Fprintf(os.Stderr, "Hint: try again without --invert\n")
		} else {
			fmt.Fprintf(os.Stderr, "Hint: a FrSky receiver hub port usually needs --invert\n")
		}
		os.Exit(1)
	}

	return nil
}
