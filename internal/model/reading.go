package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfRange is the base error for readings that fail range validation.
// Callers can match it with errors.Is to translate rejections into 400 responses.
var ErrOutOfRange = errors.New("reading out of range")

// Reading represents one blood pressure measurement.
// This is a pure domain model with no database-specific dependencies or tags.
// Timestamp is always stored normalized to UTC; Pulse is optional.
type Reading struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Systolic  int       `json:"systolic"`
	Diastolic int       `json:"diastolic"`
	Pulse     *int      `json:"pulse,omitempty"`
	PhotoPath string    `json:"photo_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate range-checks a candidate measurement. Pulse may be nil (not measured).
//
// Valid values: 0 < systolic < 300, 0 < diastolic < 200, and when pulse is
// present 0 < pulse < 250. Returns nil when valid, otherwise an error wrapping
// ErrOutOfRange that names the failing field.
func Validate(systolic, diastolic int, pulse *int) error {
	if systolic <= 0 || systolic >= 300 {
		return fmt.Errorf("%w: systolic must be between 1 and 299, got %d", ErrOutOfRange, systolic)
	}
	if diastolic <= 0 || diastolic >= 200 {
		return fmt.Errorf("%w: diastolic must be between 1 and 199, got %d", ErrOutOfRange, diastolic)
	}
	if pulse != nil && (*pulse <= 0 || *pulse >= 250) {
		return fmt.Errorf("%w: pulse must be between 1 and 249, got %d", ErrOutOfRange, *pulse)
	}
	return nil
}

// Validate checks the reading's own measurement values.
func (r *Reading) Validate() error {
	return Validate(r.Systolic, r.Diastolic, r.Pulse)
}
