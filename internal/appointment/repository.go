package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned by the conditional reservation writes when
	// another blocking appointment already holds the provider/date/slot.
	ErrSlotTaken = errors.New("slot already taken")
)

// Repository contains all DB interactions needed by the booking and
// availability services.
type Repository interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]Detail, error)

	// Availability reads: slot label -> occupancy for every appointment of
	// the provider on the date whose status blocks display
	// (pending/confirmed/completed).
	OccupiedSlots(ctx context.Context, providerID uuid.UUID, date time.Time) (map[string]Occupancy, error)

	// Atomic reservation writes. Both rely on the partial unique index over
	// (provider_id, date, slot) for blocking statuses and surface a lost
	// race as ErrSlotTaken.
	CreatePending(ctx context.Context, providerID, patientID uuid.UUID, date time.Time, slot string) (*Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slot string) (*Appointment, error)

	// Compare-and-swap status updates; ErrAppointmentNotFound means no row
	// matched id+from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error)

	// ConfirmWithApprovedPayment flips pending->confirmed only if the
	// linked payment's admin status reads approved at update time.
	ConfirmWithApprovedPayment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// LinkPayment records the payment attached to the appointment.
	LinkPayment(ctx context.Context, id, paymentID uuid.UUID) error

	// Reminder worker support.
	FindRemindersDue(ctx context.Context, from, to time.Time) ([]Detail, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
