package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/identity"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/metrics"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/notify"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/slot"
)

// Approval is the audit gate of the two-gate workflow: the platform-side
// reviewer verifies a reported payment before the provider may confirm the
// appointment. Approving never confirms the appointment itself: financial
// verification and scheduling acceptance are separate authorities.
type Approval struct {
	payments Repository
	appts    appointment.Repository
	notifier notify.Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewApproval(payments Repository, appts appointment.Repository, notifier notify.Notifier, logger *zap.Logger, m *metrics.Metrics) *Approval {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Approval{
		payments: payments,
		appts:    appts,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// Approve marks the payment as verified. Re-invoking on a decided payment
// is a no-op returning the current record; only the first decision emits
// notifications.
func (a *Approval) Approve(ctx context.Context, actor identity.Actor, paymentID uuid.UUID) (*Payment, error) {
	if !actor.IsAdmin() {
		return nil, appointment.ErrUnauthorized
	}

	p, changed, err := a.payments.Approve(ctx, paymentID)
	if err != nil {
		a.metrics.ObservePayment("approve", "error")
		return nil, err
	}
	if !changed {
		if !p.AdminStatus.Decided() {
			a.metrics.ObservePayment("approve", "validation")
			return nil, &ValidationError{Field: "paymentId", Reason: "no transaction reported for this payment yet"}
		}
		a.metrics.ObservePayment("approve", "noop")
		return p, nil
	}

	a.metrics.ObservePayment("approve", "ok")
	a.logEvent(ctx, p.AppointmentID, EventPaymentApproved, map[string]any{
		"payment_id": p.ID.String(),
	})

	link := "/appointments/" + p.AppointmentID.String()
	a.notify(ctx, p.PatientID, notify.KindPaymentVerified,
		"Your payment is verified. Waiting for the provider to confirm the appointment.", link)
	a.notify(ctx, p.ProviderID, notify.KindActionRequired,
		"A verified payment is waiting: confirm or reject the appointment.", link)

	return p, nil
}

// Reject fails the payment and cancels the linked appointment, freeing the
// slot for other patients. Idempotent in the same way as Approve.
func (a *Approval) Reject(ctx context.Context, actor identity.Actor, paymentID uuid.UUID, reason string) (*Payment, error) {
	if !actor.IsAdmin() {
		return nil, appointment.ErrUnauthorized
	}

	p, appt, changed, err := a.payments.RejectAndCancel(ctx, paymentID)
	if err != nil {
		a.metrics.ObservePayment("reject", "error")
		return nil, err
	}
	if !changed {
		a.metrics.ObservePayment("reject", "noop")
		return p, nil
	}

	a.metrics.ObservePayment("reject", "ok")
	a.logEvent(ctx, p.AppointmentID, EventPaymentRejected, map[string]any{
		"payment_id": p.ID.String(),
		"reason":     reason,
	})

	if reason == "" {
		reason = "the payment could not be verified"
	}
	when := fmt.Sprintf("%s at %s", appt.Date.Format(slot.DateFormat), appt.Slot)
	link := "/appointments/" + p.AppointmentID.String()
	a.notify(ctx, p.PatientID, notify.KindPaymentRejected,
		fmt.Sprintf("Your payment was rejected (%s). The appointment on %s was cancelled.", reason, when), link)
	a.notify(ctx, p.ProviderID, notify.KindPaymentRejected,
		fmt.Sprintf("The appointment on %s was cancelled: payment rejected (%s).", when, reason), link)

	return p, nil
}

func (a *Approval) notify(ctx context.Context, userID uuid.UUID, kind, message, link string) {
	if a.notifier == nil {
		return
	}
	if err := a.notifier.Notify(ctx, userID, kind, message, link); err != nil {
		a.logger.Warn("notification delivery failed",
			zap.String("user_id", userID.String()),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func (a *Approval) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	logServiceEvent(ctx, a.appts, a.logger, appointmentID, eventType, payload)
}
