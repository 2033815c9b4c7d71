// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/pilot"
	"github.com/spf13/cobra"
)

// pilotPollInterval is how often the filtered pulse width is sampled
const pilotPollInterval = 100 * time.Millisecond

// pilotSource is a GPIO line whose edges feed a pulse filter
type pilotSource interface {
	Filter() *pilot.Filter
	Close() error
}

var pilotInterval int

var pilotCmd = &cobra.Command{
	Use:   "pilot",
	Short: "Show the filtered pilot switch pulse width",
	Long: `Follow the RC pulse on the configured GPIO line (pilot.chip, pilot.line)
and print the filtered pulse width together with the recording decision it
would trigger.

Pulses outside 800-2200 us are rejected. Nothing is recorded; use monitor
with --pilot to drive recordings.`,
	RunE: runPilot,
}

func init() {
	rootCmd.AddCommand(pilotCmd)
	pilotCmd.Flags().IntVar(&pilotInterval, "interval", 500, "Print interval in milliseconds")
}

func runPilot(cmd *cobra.Command, args []string) error {
	source, err := openPilotSource(cfg)
	if err != nil {
		return err
	}
	defer source.Close()

	thresholds := pilot.Thresholds{Start: cfg.Pilot.StartUs, Stop: cfg.Pilot.StopUs}

	fmt.Printf("hubscope - Pilot Switch\n")
	fmt.Printf("Line: %s offset %d\n", cfg.Pilot.Chip, cfg.Pilot.Line)
	fmt.Printf("Start above %d us, stop above %d us\n", thresholds.Start, thresholds.Stop)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, cancel := signalContext()
	defer cancel()

	ticker := time.NewTicker(time.Duration(pilotInterval) * time.Millisecond)
	defer ticker.Stop()

	// simulated recorder state so start/stop alternate like a real session
	recording := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			filter := source.Filter()
			value := filter.Value()
			accepted, rejected := filter.Pulses()
			action := thresholds.Decide(value, recording)
			switch action {
			case pilot.ActionStart:
				recording = true
			case pilot.ActionStop:
				recording = false
			}
			fmt.Printf("[%s] pulse=%4d us  accepted=%d rejected=%d  action=%s\n",
				time.Now().Format("15:04:05.000"), value, accepted, rejected, action)
		}
	}
}
