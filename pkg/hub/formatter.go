// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import (
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	name := SensorName(f.id)

	result := fmt.Sprintf("[%s] %s (0x%02X) value=%d (0x%04X)", timestamp, name, f.id, f.value, f.value)
	if f.changed {
		result += " changed"
	}
	result += "\n"

	result += FormatValue(f.id, f.value)

	return result
}

// SensorName returns the human-readable name for a sensor ID
func SensorName(id uint8) string {
	switch id {
	// GPS
	case SensorGPSAltitudeBP:
		return "GPS_ALT_BP"
	case SensorGPSAltitudeAP:
		return "GPS_ALT_AP"
	case SensorGPSSpeedBP:
		return "GPS_SPEED_BP"
	case SensorGPSSpeedAP:
		return "GPS_SPEED_AP"
	case SensorGPSLongitudeBP:
		return "GPS_LONG_BP"
	case SensorGPSLongitudeAP:
		return "GPS_LONG_AP"
	case SensorGPSLongitudeEW:
		return "GPS_LONG_EW"
	case SensorGPSLatitudeBP:
		return "GPS_LAT_BP"
	case SensorGPSLatitudeAP:
		return "GPS_LAT_AP"
	case SensorGPSLatitudeNS:
		return "GPS_LAT_NS"
	case SensorGPSCourseBP:
		return "GPS_COURSE_BP"
	case SensorGPSCourseAP:
		return "GPS_COURSE_AP"
	case SensorGPSDayMonth:
		return "GPS_DAY_MONTH"
	case SensorGPSYear:
		return "GPS_YEAR"
	case SensorGPSHourMinute:
		return "GPS_HOUR_MIN"
	case SensorGPSSecond:
		return "GPS_SEC"

	// Vario and accelerometer
	case SensorBaroAltitudeBP:
		return "BARO_ALT_BP"
	case SensorBaroAltitudeAP:
		return "BARO_ALT_AP"
	case SensorVerticalSpeed:
		return "VERT_SPEED"
	case SensorAccelX:
		return "ACCEL_X"
	case SensorAccelY:
		return "ACCEL_Y"
	case SensorAccelZ:
		return "ACCEL_Z"

	// Engine and environment
	case SensorTemp1:
		return "TEMP1"
	case SensorTemp2:
		return "TEMP2"
	case SensorRPM:
		return "RPM"
	case SensorFuel:
		return "FUEL"

	// Battery
	case SensorCells:
		return "CELLS"
	case SensorCurrent:
		return "CURRENT"
	case SensorVFAS:
		return "VFAS"
	case SensorVoltageBP:
		return "VOLTAGE_BP"
	case SensorVoltageAP:
		return "VOLTAGE_AP"

	default:
		return "UNKNOWN"
	}
}

// KnownSensor reports whether id is a documented hub sensor
func KnownSensor(id uint8) bool {
	return SensorName(id) != "UNKNOWN"
}

// FormatValue formats the decoded meaning of a raw value, if the sensor has one
func FormatValue(id uint8, value uint16) string {
	switch id {
	case SensorCells:
		return fmt.Sprintf("  Cell: %d, Voltage: %d\n", CellIndex(value), CellVoltage(value))

	case SensorBaroAltitudeBP, SensorGPSAltitudeBP:
		return fmt.Sprintf("  Whole: %d m\n", int16(value))

	case SensorVFAS:
		mv := VFASVoltage(value, 0, 0)
		return fmt.Sprintf("  Pack: %d.%02d V\n", mv/1000, (mv%1000)/10)

	case SensorAccelX, SensorAccelY, SensorAccelZ, SensorVerticalSpeed:
		return fmt.Sprintf("  Signed: %d\n", int16(value))
	}

	return ""
}

// FormatSnapshot formats every non-zero slot of a snapshot, one per line
func FormatSnapshot(s Snapshot) string {
	var b strings.Builder
	for _, id := range s.Active() {
		fmt.Fprintf(&b, "  %-14s (0x%02X) %6d (0x%04X)\n", SensorName(id), id, s.Raw(id), s.Raw(id))
	}
	if b.Len() == 0 {
		return "  (no sensors reported)\n"
	}
	return b.String()
}
