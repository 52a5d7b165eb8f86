package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/identity"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/metrics"
)

const (
	EventPaymentReported = "PAYMENT_REPORTED"
	EventPaymentApproved = "PAYMENT_APPROVED"
	EventPaymentRejected = "PAYMENT_REJECTED"
)

// ValidationError reports malformed payment input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Details is what the payment screen renders: the ledger record plus the
// provider's UPI coordinates.
type Details struct {
	Payment    *Payment
	UpiID      string
	QRCodeData string
}

// Ledger owns payment records and their gateway status.
type Ledger struct {
	payments Repository
	appts    appointment.Repository
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewLedger(payments Repository, appts appointment.Repository, logger *zap.Logger, m *metrics.Metrics) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		payments: payments,
		appts:    appts,
		logger:   logger,
		metrics:  m,
	}
}

// GetOrCreate returns the payment details for the appointment, creating the
// ledger record on first request. Retried page loads all land on the same
// record.
func (l *Ledger) GetOrCreate(ctx context.Context, actor identity.Actor, appointmentID uuid.UUID) (*Details, error) {
	appt, err := l.appts.GetAppointmentByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RolePatient || actor.ID != appt.PatientID {
		return nil, appointment.ErrUnauthorized
	}
	if appt.Status.Terminal() {
		return nil, &ValidationError{Field: "appointment", Reason: "appointment is no longer payable"}
	}

	provider, err := l.appts.GetProviderByID(ctx, appt.ProviderID)
	if err != nil {
		return nil, err
	}

	p, err := l.payments.GetOrCreate(ctx, appt, provider.Fee, "upi")
	if err != nil {
		l.metrics.ObservePayment("get_or_create", "error")
		return nil, fmt.Errorf("get or create payment: %w", err)
	}

	if appt.PaymentID == nil || *appt.PaymentID != p.ID {
		if err := l.appts.LinkPayment(ctx, appt.ID, p.ID); err != nil {
			l.logger.Warn("failed to link payment to appointment",
				zap.String("appointment_id", appt.ID.String()),
				zap.String("payment_id", p.ID.String()),
				zap.Error(err),
			)
		}
	}

	l.metrics.ObservePayment("get_or_create", "ok")
	return &Details{
		Payment:    p,
		UpiID:      provider.UpiID,
		QRCodeData: upiDeepLink(provider, p),
	}, nil
}

// ReportTransaction records the patient's self-reported transaction
// reference, completing the gateway leg of the payment.
func (l *Ledger) ReportTransaction(ctx context.Context, actor identity.Actor, paymentID uuid.UUID, ref string) (*Payment, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		l.metrics.ObservePayment("report", "validation")
		return nil, &ValidationError{Field: "transactionId", Reason: "transaction reference must not be empty"}
	}

	p, err := l.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	// Someone else's payment is indistinguishable from a missing one.
	if actor.Role != identity.RolePatient || actor.ID != p.PatientID {
		return nil, ErrPaymentNotFound
	}

	updated, err := l.payments.MarkReported(ctx, paymentID, ref)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return l.resolveFailedReport(ctx, paymentID)
		}
		l.metrics.ObservePayment("report", "error")
		return nil, fmt.Errorf("mark payment reported: %w", err)
	}

	l.metrics.ObservePayment("report", "ok")
	l.logEvent(ctx, updated.AppointmentID, EventPaymentReported, map[string]any{
		"payment_id":      updated.ID.String(),
		"transaction_ref": ref,
	})

	return updated, nil
}

// resolveFailedReport disambiguates a zero-row report: a finished report is
// returned as is (double submit), anything else is a dead payment.
func (l *Ledger) resolveFailedReport(ctx context.Context, paymentID uuid.UUID) (*Payment, error) {
	current, err := l.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if current.GatewayStatus == GatewayCompleted {
		return current, nil
	}
	l.metrics.ObservePayment("report", "validation")
	return nil, &ValidationError{Field: "paymentId", Reason: fmt.Sprintf("payment is %s, not open", current.GatewayStatus)}
}

func (l *Ledger) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	logServiceEvent(ctx, l.appts, l.logger, appointmentID, eventType, payload)
}

// upiDeepLink builds the upi:// payment URI rendered as a QR code by the
// client.
func upiDeepLink(provider *appointment.Provider, p *Payment) string {
	q := url.Values{}
	q.Set("pa", provider.UpiID)
	q.Set("pn", provider.Name)
	q.Set("am", fmt.Sprintf("%d", p.Amount))
	q.Set("cu", "INR")
	q.Set("tn", "Appointment "+p.AppointmentID.String())
	return "upi://pay?" + q.Encode()
}

// logServiceEvent appends to the shared event log, best-effort.
func logServiceEvent(ctx context.Context, appts appointment.Repository, logger *zap.Logger, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := appointment.EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := appts.InsertEvent(ctx, ev); err != nil {
		logger.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
