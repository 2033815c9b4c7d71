// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import "time"

// Snapshot is a point-in-time copy of a sensor table. It is a plain value
// and can be handed to other goroutines freely.
type Snapshot struct {
	values    [NumSensors]uint16
	cells     uint8
	timestamp time.Time
}

// NewSnapshot creates a snapshot from raw slot values
func NewSnapshot(values [NumSensors]uint16, cells uint8, timestamp time.Time) Snapshot {
	return Snapshot{
		values:    values,
		cells:     cells,
		timestamp: timestamp,
	}
}

// Raw returns the raw value for id
func (s Snapshot) Raw(id uint8) uint16 {
	return s.values[id]
}

// Values returns every raw slot
func (s Snapshot) Values() [NumSensors]uint16 {
	return s.values
}

// Cells returns the battery cell count
func (s Snapshot) Cells() uint8 {
	return s.cells
}

// Timestamp returns when the snapshot was taken
func (s Snapshot) Timestamp() time.Time {
	return s.timestamp
}

// Altitude returns the barometric altitude in hundredths of a meter
func (s Snapshot) Altitude() int32 {
	return Altitude(s.values[SensorAltitudeWhole], s.values[SensorAltitudeHundredth])
}

// Heading returns the course in hundredths of a degree
func (s Snapshot) Heading() uint16 {
	return Heading(s.values[SensorHeadingDegrees], s.values[SensorHeadingHundredth])
}

// CellVoltage returns the voltage field of the last cell frame
func (s Snapshot) CellVoltage() uint16 {
	return CellVoltage(s.values[SensorCells])
}

// VFASVoltage returns the pack voltage in millivolts
func (s Snapshot) VFASVoltage() uint16 {
	return VFASVoltage(s.values[SensorVFAS], s.values[SensorVoltageBP], s.values[SensorVoltageAP])
}

// Active returns the IDs of all non-zero slots in ascending order
func (s Snapshot) Active() []uint8 {
	var ids []uint8
	for id, v := range s.values {
		if v != 0 {
			ids = append(ids, uint8(id))
		}
	}
	return ids
}
