// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/capture"
	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	captureDir      string
	captureDuration int
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record the raw telemetry stream into the next slot file",
	Long: `Record the bytes received on the connection, unmodified, into the next
free slot file (<directory>/NNNNNN.<extension>). The slot number is one
above the highest existing slot.

Recording runs until Ctrl+C, the end of the stream, or --duration. A
recording can be replayed with --file.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().StringVarP(&captureDir, "dir", "d", "", "Recording directory (overrides capture.directory)")
	captureCmd.Flags().IntVar(&captureDuration, "duration", 0, "Stop after this many seconds (0 = until interrupted)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	dir := cfg.Capture.Directory
	if captureDir != "" {
		dir = captureDir
	}

	recorder := capture.NewFileRecorder()
	controller, err := capture.NewController(recorder, dir, cfg.Capture.Extension)
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	path, err := controller.Apply(pilot.ActionStart)
	if err != nil {
		return err
	}

	fmt.Printf("hubscope - Capture\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Recording: %s\n", path)
	fmt.Printf("Press Ctrl+C to stop\n\n")

	ctx, cancel := signalContext()
	defer cancel()
	if captureDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, time.Duration(captureDuration)*time.Second)
		defer stop()
	}

	telemetry := hub.New()
	telemetry.SetInvert(cfg.Serial.Invert)
	frames := 0

	readErr := readStream(ctx, conn, func(data []byte) {
		if _, err := recorder.Write(data); err != nil {
			fmt.Printf("Recording error: %v\n", err)
			cancel()
			return
		}
		telemetry.FeedFunc(data, func(*hub.Frame) { frames++ })
	})

	written := recorder.Written()
	if _, err := controller.Apply(pilot.ActionStop); err != nil {
		return err
	}

	fmt.Printf("\nSaved %s: %s, %d frames\n", path, humanize.Bytes(uint64(written)), frames)
	return readErr
}
