package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// Valid reports whether s is one of the known appointment statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Blocking statuses hold the provider/date/slot against new bookings.
func (s Status) Blocking() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	Fee       int64
	UpiID     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID           uuid.UUID
	ProviderID   uuid.UUID
	PatientID    uuid.UUID
	Date         time.Time // calendar day, midnight UTC
	Slot         string
	Status       Status
	PaymentID    *uuid.UUID
	ReminderSent bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Occupancy describes who holds a slot, exposing only what a competing
// booker may see: a display name and the booking time, never the booker's
// identity or contact details.
type Occupancy struct {
	AppointmentID uuid.UUID
	BookedByName  string
	BookedAt      time.Time
	Status        Status
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type Detail struct {
	Appointment
	Provider *Provider
	Patient  *Patient
}
