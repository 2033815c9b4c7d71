// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

// Bit layouts below are fixed by the sensor firmware.

// Altitude combines signed whole meters with unsigned hundredths into
// hundredths of a meter. The hundredths carry the sign of the whole part.
func Altitude(whole, hundredths uint16) int32 {
	w := int16(whole)
	altitude := int32(w) * 100
	if w >= 0 {
		altitude += int32(hundredths)
	} else {
		altitude -= int32(hundredths)
	}
	return altitude
}

// Heading combines degrees and hundredths into hundredths of a degree.
// The result wraps at 16 bits like the sensor's own arithmetic.
func Heading(degrees, hundredths uint16) uint16 {
	return degrees*100 + hundredths
}

// CellVoltage unpacks the voltage field of a cell frame:
// bits 8-15 shifted down by 7, bits 0-3 moved up to 9-12.
func CellVoltage(raw uint16) uint16 {
	return ((raw >> 7) & 0x1FE) | ((raw & 0x0F) << 9)
}

// CellFrameValue packs a cell number and voltage field into the raw value of
// a cell frame. Bit 0 of voltage does not fit and is dropped.
func CellFrameValue(index uint8, voltage uint16) uint16 {
	return (voltage&0x1FE)<<7 | uint16(index&0x0F)<<4 | (voltage>>9)&0x0F
}

// CellIndex returns the zero-based cell number packed into bits 4-7
func CellIndex(raw uint16) uint8 {
	return uint8((raw >> 4) & 0x0F)
}

// VFASVoltage returns the pack voltage in millivolts from the FAS sensor.
// Only the 0.1 V resolution slot is decoded; without it the result is 0.
func VFASVoltage(vfas, voltageBP, voltageAP uint16) uint16 {
	if vfas != 0 {
		return vfas * 100
	}
	// TODO: low-precision fallback from the 0x3A/0x3B voltage pair
	return 0
}
