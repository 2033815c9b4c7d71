// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hub decodes the FrSky hub telemetry stream and keeps the table of
// sensor readings it carries.
//
// The wire format is a sequence of 3-byte frames [id][value_lo][value_hi],
// each introduced by StartByte. Payload bytes equal to a reserved value are
// sent as EscByte followed by the byte XOR EscXor. There is no checksum and no
// error reporting: undecodable bytes are dropped until the next StartByte.
package hub

// Protocol framing bytes
const (
	StartByte = 0x5E
	EscByte   = 0x5D
	EscXor    = 0x60
)

// Frame layout
const (
	FrameSize  = 3   // id, value low, value high
	NumSensors = 256 // one slot per possible id
)

// Line inversion masks, XORed onto every received byte
const (
	InvertNone = 0x00
	InvertAll  = 0xFF
)

// MaxUpdates caps the update count returned by Feed. Callers use it as a
// display refresh budget, so it saturates instead of wrapping.
const MaxUpdates = 0xFF

// maxRawBytes bounds the raw byte history kept for the frame in progress
const maxRawBytes = 16

// Sensor IDs - GPS
const (
	SensorGPSAltitudeBP  = 0x01
	SensorGPSAltitudeAP  = 0x09
	SensorGPSSpeedBP     = 0x11
	SensorGPSLongitudeBP = 0x12
	SensorGPSLatitudeBP  = 0x13
	SensorGPSCourseBP    = 0x14
	SensorGPSDayMonth    = 0x15
	SensorGPSYear        = 0x16
	SensorGPSHourMinute  = 0x17
	SensorGPSSecond      = 0x18
	SensorGPSSpeedAP     = 0x19
	SensorGPSLongitudeAP = 0x1A
	SensorGPSLatitudeAP  = 0x1B
	SensorGPSCourseAP    = 0x1C
	SensorGPSLongitudeEW = 0x22
	SensorGPSLatitudeNS  = 0x23
)

// Sensor IDs - Variometer and accelerometer
const (
	SensorBaroAltitudeBP = 0x10
	SensorBaroAltitudeAP = 0x21
	SensorAccelX         = 0x24
	SensorAccelY         = 0x25
	SensorAccelZ         = 0x26
	SensorVerticalSpeed  = 0x30
)

// Sensor IDs - Engine and environment
const (
	SensorTemp1 = 0x02
	SensorRPM   = 0x03
	SensorFuel  = 0x04
	SensorTemp2 = 0x05
)

// Sensor IDs - Battery
const (
	SensorCells     = 0x06
	SensorCurrent   = 0x28
	SensorVFAS      = 0x39
	SensorVoltageBP = 0x3A
	SensorVoltageAP = 0x3B
)

// Derived quantities read these slots
const (
	SensorAltitudeWhole     = SensorBaroAltitudeBP
	SensorAltitudeHundredth = SensorBaroAltitudeAP
	SensorHeadingDegrees    = SensorGPSCourseBP
	SensorHeadingHundredth  = SensorGPSCourseAP
)

// MaxCellIndex is the highest cell index a single FLVS sensor reports
const MaxCellIndex = 11
