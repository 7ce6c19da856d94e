package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a referenced event does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict matches any *ConflictError via errors.Is.
	ErrConflict = errors.New("time conflict")
	// ErrConcurrentModification is returned when the slot changed between read and write.
	ErrConcurrentModification = errors.New("slot was modified concurrently")
)

// ConflictMessage is the user-facing explanation of the conflict window rule.
const ConflictMessage = "Time conflict: Another event is scheduled within 1 hour of this time. Please choose a different time."

// ValidationError reports a missing or malformed draft field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError identifies the stored event a candidate dateTime collides with.
type ConflictError struct {
	EventID  string
	Title    string
	DateTime time.Time
}

func (e *ConflictError) Error() string {
	return ConflictMessage
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
