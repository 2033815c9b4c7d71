// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// hubscope - FrSky hub telemetry monitor
//
// A CLI tool for decoding the FrSky hub telemetry stream, driving the
// on-screen display and recording flights.

package main

import "github.com/JordanHiggins/RPi-FPV/cmd"

func main() {
	cmd.Execute()
}
