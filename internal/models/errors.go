package models

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput is wrapped by every InvalidInputError.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable signals a learned backend that is missing or untrained.
	// Callers inside the engine recover from it with the heuristic fallback.
	ErrModelUnavailable = errors.New("learned model unavailable")

	// ErrCalibrationNotFitted is logged when calibrate runs before fit.
	ErrCalibrationNotFitted = errors.New("calibration not fitted")

	// ErrInsufficientData is returned by training and fitting routines.
	ErrInsufficientData = errors.New("insufficient data")
)

// InvalidInputError describes a structurally wrong numeric input
type InvalidInputError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %s=%v: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field string, value float64, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

// checkFinite rejects NaN and infinities
func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, v, "must be finite")
	}
	return nil
}

func checkRange(field string, v, lo, hi float64) error {
	if err := checkFinite(field, v); err != nil {
		return err
	}
	if v < lo || v > hi {
		return invalid(field, v, fmt.Sprintf("must be within [%v, %v]", lo, hi))
	}
	return nil
}

func checkOptionalRange(field string, v *float64, lo, hi float64) error {
	if v == nil {
		return nil
	}
	return checkRange(field, *v, lo, hi)
}
