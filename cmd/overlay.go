// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/JordanHiggins/RPi-FPV/pkg/osd"
	"github.com/JordanHiggins/RPi-FPV/pkg/store"
	"github.com/spf13/cobra"
)

var (
	overlayOut       string
	overlaySession   int64
	overlayDuration  int
	overlayRecording bool
)

var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Render the on-screen display to a PNG",
	Long: `Render the OSD overlay (altitude, battery, heading, low battery banner
and recording marker) as a transparent PNG of display.width x display.height.

The telemetry comes either from a stored session (--session, read from the
telemetry log) or from the live connection, read for --duration seconds.`,
	RunE: runOverlay,
}

func init() {
	rootCmd.AddCommand(overlayCmd)
	overlayCmd.Flags().StringVarP(&overlayOut, "out", "o", "overlay.png", "Output PNG file")
	overlayCmd.Flags().StringVar(&storePath, "db", "", "Database file (overrides store.path)")
	overlayCmd.Flags().Int64Var(&overlaySession, "session", 0, "Render the final table of a stored session")
	overlayCmd.Flags().IntVar(&overlayDuration, "duration", 5, "Seconds of live telemetry to read")
	overlayCmd.Flags().BoolVar(&overlayRecording, "recording", false, "Draw the recording marker")
}

// liveSnapshot reads the connection for d and returns the resulting table
func liveSnapshot(d time.Duration) (hub.Snapshot, error) {
	conn, connInfo, err := OpenConnection(cfg)
	if err != nil {
		return hub.Snapshot{}, err
	}
	defer conn.Close()

	fmt.Printf("Reading %s for %s\n", connInfo, d)

	ctx, cancel := signalContext()
	defer cancel()
	ctx, stop := context.WithTimeout(ctx, d)
	defer stop()

	telemetry := hub.New()
	telemetry.SetInvert(cfg.Serial.Invert)
	err = readStream(ctx, conn, func(data []byte) {
		telemetry.Feed(data)
	})
	return telemetry.Snapshot(), err
}

func storedSnapshot(id int64) (hub.Snapshot, error) {
	db := store.New(dbPath())
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Closing database: %v", err)
		}
	}()
	return db.Snapshot(context.Background(), id)
}

func runOverlay(cmd *cobra.Command, args []string) error {
	var snap hub.Snapshot
	var err error
	if overlaySession != 0 {
		snap, err = storedSnapshot(overlaySession)
	} else {
		snap, err = liveSnapshot(time.Duration(overlayDuration) * time.Second)
	}
	if err != nil {
		return err
	}

	thresholds := osd.Thresholds{LowCell: cfg.Display.LowCellMv, WarnCell: cfg.Display.WarnCellMv}
	renderer, err := osd.NewRenderer(thresholds)
	if err != nil {
		return err
	}
	defer renderer.Close()

	state := osd.FromSnapshot(snap, overlayRecording)
	img, err := renderer.Render(state, cfg.Display.Width, cfg.Display.Height)
	if err != nil {
		return err
	}

	file, err := os.Create(overlayOut)
	if err != nil {
		return fmt.Errorf("creating %s: %w", overlayOut, err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encoding PNG: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	for _, line := range state.Lines() {
		fmt.Println(line)
	}
	if banner := state.Banner(thresholds); banner != "" {
		fmt.Println(banner)
	}
	fmt.Printf("Wrote %s (%dx%d)\n", overlayOut, cfg.Display.Width, cfg.Display.Height)
	return nil
}
