// Package notify is the outbound notification port. Deliveries are
// best-effort: domain operations never fail because a notification could
// not be written.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// Notification kinds emitted by the booking and payment flows.
const (
	KindBookingPending       = "booking_pending"
	KindBookingRescheduled   = "booking_rescheduled"
	KindAppointmentConfirmed = "appointment_confirmed"
	KindAppointmentCancelled = "appointment_cancelled"
	KindAppointmentRejected  = "appointment_rejected"
	KindAppointmentReminder  = "appointment_reminder"
	KindReviewRequest        = "review_request"
	KindPaymentVerified      = "payment_verified"
	KindPaymentRejected      = "payment_rejected"
	KindActionRequired       = "action_required"
)

// Notifier delivers a message to one user. Implementations must be safe
// for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind, message, link string) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, userID uuid.UUID, kind, message, link string) error

func (f Func) Notify(ctx context.Context, userID uuid.UUID, kind, message, link string) error {
	return f(ctx, userID, kind, message, link)
}
