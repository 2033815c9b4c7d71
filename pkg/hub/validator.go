// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hub

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyUnknownSensor AnomalyType = iota
	AnomalyHundredthsRange
	AnomalyHeadingRange
	AnomalyCellIndex
)

// ValidationError represents an implausible frame. The decoder accepts every
// frame; validation is a diagnostic on top of it.
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame checks a frame for values no hub sensor produces.
// Returns a slice of validation errors (empty if the frame is plausible)
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}

	switch f.id {
	case SensorBaroAltitudeAP, SensorGPSCourseAP:
		if f.value > 99 {
			errors = append(errors, ValidationError{
				Type:    AnomalyHundredthsRange,
				Message: fmt.Sprintf("%s hundredths=%d (max 99)", SensorName(f.id), f.value),
				Details: map[string]interface{}{"value": f.value, "max": 99},
			})
		}

	case SensorGPSCourseBP:
		if f.value > 359 {
			errors = append(errors, ValidationError{
				Type:    AnomalyHeadingRange,
				Message: fmt.Sprintf("Heading degrees=%d (max 359)", f.value),
				Details: map[string]interface{}{"value": f.value, "max": 359},
			})
		}

	case SensorCells:
		if index := CellIndex(f.value); index > MaxCellIndex {
			errors = append(errors, ValidationError{
				Type:    AnomalyCellIndex,
				Message: fmt.Sprintf("Cell index=%d (max %d)", index, MaxCellIndex),
				Details: map[string]interface{}{"index": index, "max": MaxCellIndex},
			})
		}

	default:
		if !KnownSensor(f.id) {
			errors = append(errors, ValidationError{
				Type:    AnomalyUnknownSensor,
				Message: fmt.Sprintf("Unknown sensor ID 0x%02X", f.id),
				Details: map[string]interface{}{"id": f.id},
			})
		}
	}

	return errors
}
