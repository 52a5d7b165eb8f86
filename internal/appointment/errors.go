package appointment

import (
	"fmt"
	"time"
)

// ValidationError reports malformed booking input. It maps to a 400 and is
// never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConflictError means the caller lost the race for a slot. It carries the
// winning booker's display name and booking time for user-facing messaging.
type ConflictError struct {
	Slot         string
	BookedByName string
	BookedAt     time.Time
	Status       Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %s already booked by %s", e.Slot, e.BookedByName)
}
