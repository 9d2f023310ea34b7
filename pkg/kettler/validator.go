// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package kettler

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyHighCadence AnomalyType = iota
	AnomalyHighPower
	AnomalyNegativeValue
)

// Plausibility limits for status frames
const (
	MaxPlausibleCadence = 250
	MaxPlausiblePower   = 2500
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateFrame flags implausible values in a status frame.
// Returns an empty slice for valid frames and for key frames.
func ValidateFrame(f *Frame) []ValidationError {
	errors := []ValidationError{}
	if f == nil || f.Kind != FrameStatus {
		return errors
	}

	if f.HasCadence {
		if f.Cadence < 0 {
			errors = append(errors, negative("cadence", f.Cadence))
		} else if f.Cadence > MaxPlausibleCadence {
			errors = append(errors, ValidationError{
				Type:    AnomalyHighCadence,
				Message: fmt.Sprintf("Cadence %d rpm exceeds %d", f.Cadence, MaxPlausibleCadence),
				Details: map[string]interface{}{"cadence": f.Cadence, "max": MaxPlausibleCadence},
			})
		}
	}

	if f.HasPower {
		if f.Power < 0 {
			errors = append(errors, negative("power", f.Power))
		} else if f.Power > MaxPlausiblePower {
			errors = append(errors, ValidationError{
				Type:    AnomalyHighPower,
				Message: fmt.Sprintf("Power %d W exceeds %d", f.Power, MaxPlausiblePower),
				Details: map[string]interface{}{"power": f.Power, "max": MaxPlausiblePower},
			})
		}
	}

	return errors
}

func negative(field string, value int) ValidationError {
	return ValidationError{
		Type:    AnomalyNegativeValue,
		Message: fmt.Sprintf("Negative %s: %d", field, value),
		Details: map[string]interface{}{field: value},
	}
}
