// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/JordanHiggins/RPi-FPV/pkg/hub"
	"github.com/spf13/cobra"
)

var (
	simDuration int
	simRate     int
	simCells    int
	simOut      string
	simNoise    bool
	simRealTime bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate a synthetic flight as hub frames",
	Long: `Synthesize a flight and send it as FrSky hub frames.

The flight climbs from just below ground level to 50 m and back, turns
through the compass, and drains the battery from 4.20 V to 3.40 V per cell
so the display passes through its warning and critical levels.

Frames go to --out when given, otherwise to the connection (serial port or
WebSocket). --invert produces an inverted stream. --noise inserts stray
bytes between frames to exercise decoder resynchronization.`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().IntVar(&simDuration, "duration", 60, "Flight duration in seconds")
	simulateCmd.Flags().IntVar(&simRate, "rate", 5, "Frame sets per second")
	simulateCmd.Flags().IntVar(&simCells, "cells", 3, "Battery cell count")
	simulateCmd.Flags().StringVarP(&simOut, "out", "o", "", "Write frames to a file instead of the connection")
	simulateCmd.Flags().BoolVar(&simNoise, "noise", false, "Insert stray bytes between frames")
	simulateCmd.Flags().BoolVar(&simRealTime, "realtime", true, "Pace output at --rate (false writes as fast as possible)")
}

// simFrame is one sensor reading of the synthetic flight
type simFrame struct {
	id    uint8
	value uint16
}

// Flight profile limits
const (
	simPeakAltitude = 5000 // hundredths of a meter
	simStartOffset  = -150 // starts below the takeoff point
	simFullCell     = 4200 // millivolts
	simEmptyCell    = 3400
	simTurnRate     = 12 // degrees per second
)

// flightFrames returns the readings of the synthetic flight at elapsed out
// of duration
func flightFrames(elapsed, duration time.Duration, cells int) []simFrame {
	f := 0.0
	if duration > 0 {
		f = math.Min(elapsed.Seconds()/duration.Seconds(), 1)
	}

	altitude := int32(simPeakAltitude*math.Sin(math.Pi*f)) + simStartOffset
	whole := altitude / 100
	hundredths := altitude % 100
	if hundredths < 0 {
		hundredths = -hundredths
	}

	heading := uint32(elapsed.Seconds()*simTurnRate*100) % 36000

	cellMv := uint16(simFullCell - (simFullCell-simEmptyCell)*f)
	vfas := uint16(int(cellMv) * cells / 100)

	frames := []simFrame{
		{hub.SensorAltitudeWhole, uint16(int16(whole))},
		{hub.SensorAltitudeHundredth, uint16(hundredths)},
		{hub.SensorHeadingDegrees, uint16(heading / 100)},
		{hub.SensorHeadingHundredth, uint16(heading % 100)},
	}
	for i := 0; i < cells; i++ {
		// cell sensors report in units of 2 mV
		frames = append(frames, simFrame{hub.SensorCells, hub.CellFrameValue(uint8(i), cellMv/2)})
	}
	frames = append(frames, simFrame{hub.SensorVFAS, vfas})
	return frames
}

// writeFlight encodes the whole flight to w. sleep is called between frame
// sets and may be nil.
func writeFlight(w io.Writer, enc *hub.Encoder, rng *rand.Rand, sleep func(time.Duration)) (int, error) {
	interval := time.Second / time.Duration(simRate)
	duration := time.Duration(simDuration) * time.Second
	written := 0

	for elapsed := time.Duration(0); elapsed <= duration; elapsed += interval {
		var out []byte
		for _, f := range flightFrames(elapsed, duration, simCells) {
			out = append(out, enc.EncodeValues(f.id, f.value)...)
			if rng != nil {
				out = append(out, noiseBytes(rng)...)
			}
		}

		n, err := w.Write(out)
		written += n
		if err != nil {
			return written, fmt.Errorf("writing frames: %w", err)
		}
		if sleep != nil {
			sleep(interval)
		}
	}
	return written, nil
}

// noiseBytes returns up to three bytes that are neither framing byte. On an
// inverted line the decoder still discards them, since it only looks for
// framing after inversion.
func noiseBytes(rng *rand.Rand) []byte {
	n := rng.Intn(4)
	noise := make([]byte, 0, n)
	for len(noise) < n {
		b := byte(rng.Intn(256))
		if b == hub.StartByte || b == hub.EscByte || b^hub.InvertAll == hub.StartByte || b^hub.InvertAll == hub.EscByte {
			continue
		}
		noise = append(noise, b)
	}
	return noise
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simRate <= 0 || simDuration < 0 {
		return fmt.Errorf("--rate must be positive and --duration must not be negative")
	}
	if simCells < 1 || simCells > hub.MaxCellIndex+1 {
		return fmt.Errorf("--cells must be between 1 and %d", hub.MaxCellIndex+1)
	}

	var w io.Writer
	var target string
	if simOut != "" {
		file, err := os.Create(simOut)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer file.Close()
		w = file
		target = simOut
	} else {
		conn, connInfo, err := OpenConnection(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()
		w = conn
		target = connInfo
	}

	enc := hub.NewEncoder()
	enc.SetInvert(cfg.Serial.Invert)

	var rng *rand.Rand
	if simNoise {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	var sleep func(time.Duration)
	if simRealTime && simOut == "" {
		sleep = time.Sleep
	}

	fmt.Printf("hubscope - Simulate\n")
	fmt.Printf("Target: %s\n", target)
	fmt.Printf("Flight: %d s at %d Hz, %dS battery\n\n", simDuration, simRate, simCells)

	n, err := writeFlight(w, enc, rng, sleep)
	fmt.Printf("Wrote %d bytes\n", n)
	return err
}
