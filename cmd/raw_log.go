// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/spf13/cobra"
)

var rawLogChangedOnly bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display every decoded hub frame in human-readable format",
	Long: `Continuously decode and display FrSky hub frames as they arrive.

Each frame is shown with its timestamp, sensor name, raw value and the
decoded reading. Frames that changed the stored value are marked "changed".

Supports serial, WebSocket and replayed capture files.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogChangedOnly, "changed", false, "Only show frames that changed a stored value")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("hubscope - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	if cfg.Serial.Invert {
		fmt.Printf("Line: inverted\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, cancel := signalContext()
	defer cancel()

	telemetry := hub.New()
	telemetry.SetInvert(cfg.Serial.Invert)

	var frames uint64
	err = readStream(ctx, conn, func(data []byte) {
		telemetry.FeedFunc(data, func(frame *hub.Frame) {
			frames++
			if rawLogChangedOnly && !frame.Changed() {
				return
			}
			fmt.Print(hub.FormatFrame(frame))
		})
	})

	c := telemetry.Counters()
	fmt.Printf("\n%d frames, %d bytes, %d discarded\n", frames, c.Bytes, c.Discarded)
	return err
}
