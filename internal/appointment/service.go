package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/identity"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/metrics"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/notify"
	redisclient "github.com/AmiTtiwari43/The-DocVerse-sub000/internal/redis"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/slot"
)

const (
	EventAppointmentBooked      = "APPOINTMENT_BOOKED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventStatusChanged          = "APPOINTMENT_STATUS_CHANGED"
	EventReminderSent           = "APPOINTMENT_REMINDER_SENT"
)

// ErrSlotBusy means another request holds the booking lock for the slot
// right now; the caller should retry shortly.
var ErrSlotBusy = errors.New("slot is currently being booked, please retry")

// Service orchestrates booking, rescheduling and lifecycle transitions.
type Service struct {
	repo     Repository
	locker   redisclient.Locker
	notifier notify.Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewService(repo Repository, locker redisclient.Locker, notifier notify.Notifier, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// Book reserves a slot for the calling patient. The write is a single
// conditional insert; two concurrent requests for the same slot cannot both
// succeed regardless of interleaving.
func (s *Service) Book(ctx context.Context, actor identity.Actor, providerID uuid.UUID, date time.Time, label string) (*Appointment, error) {
	if actor.Role != identity.RolePatient {
		return nil, ErrUnauthorized
	}
	if !slot.IsValid(label) {
		s.metrics.ObserveBooking("book", "validation")
		return nil, &ValidationError{Field: "slot", Reason: fmt.Sprintf("%q is not a bookable slot", label)}
	}
	date = slot.Normalize(date)

	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetPatientByID(ctx, actor.ID); err != nil {
		return nil, err
	}

	var created *Appointment
	reserve := func(ctx context.Context) error {
		appt, err := s.repo.CreatePending(ctx, providerID, actor.ID, date, label)
		if err != nil {
			return err
		}
		created = appt
		return nil
	}

	var err error
	if s.locker != nil {
		err = s.locker.WithSlotLock(ctx, redisclient.SlotKey(providerID, date, label), reserve)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("book", "busy")
			return nil, ErrSlotBusy
		}
	} else {
		err = reserve(ctx)
	}

	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("book", "conflict")
			return nil, s.conflictError(ctx, providerID, date, label)
		}
		s.metrics.ObserveBooking("book", "error")
		return nil, fmt.Errorf("create pending appointment: %w", err)
	}

	s.metrics.ObserveBooking("book", "ok")
	s.logEvent(ctx, created.ID, EventAppointmentBooked, map[string]any{
		"provider_id": providerID.String(),
		"patient_id":  actor.ID.String(),
		"date":        date.Format(slot.DateFormat),
		"slot":        label,
	})
	s.notify(ctx, actor.ID, notify.KindBookingPending,
		fmt.Sprintf("Your booking for %s on %s is reserved. Complete the payment to confirm it.", label, date.Format(slot.DateFormat)),
		"/payments/"+created.ID.String(),
	)

	return created, nil
}

// Reschedule moves an appointment to a new date/slot. Only the booking
// patient or the owning provider may do so; the move forces the status to
// confirmed since both parties have visibly agreed on the new time.
func (s *Service) Reschedule(ctx context.Context, actor identity.Actor, id uuid.UUID, date time.Time, label string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role := CanActOn(actor, appt)
	if role == identity.RoleNone {
		return nil, ErrUnauthorized
	}
	if !slot.IsValid(label) {
		s.metrics.ObserveBooking("reschedule", "validation")
		return nil, &ValidationError{Field: "slot", Reason: fmt.Sprintf("%q is not a bookable slot", label)}
	}
	if appt.Status.Terminal() {
		return nil, &TransitionError{From: appt.Status, To: StatusConfirmed}
	}
	date = slot.Normalize(date)

	var updated *Appointment
	move := func(ctx context.Context) error {
		a, err := s.repo.Reschedule(ctx, id, date, label)
		if err != nil {
			return err
		}
		updated = a
		return nil
	}

	if s.locker != nil {
		err = s.locker.WithSlotLock(ctx, redisclient.SlotKey(appt.ProviderID, date, label), move)
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			s.metrics.ObserveBooking("reschedule", "busy")
			return nil, ErrSlotBusy
		}
	} else {
		err = move(ctx)
	}

	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("reschedule", "conflict")
			return nil, s.conflictError(ctx, appt.ProviderID, date, label)
		}
		if errors.Is(err, ErrAppointmentNotFound) {
			// The conditional update matched no row, so the appointment
			// went terminal (or vanished) after our read. Re-read to tell
			// the caller what actually happened.
			return s.resolveFailedReschedule(ctx, id)
		}
		s.metrics.ObserveBooking("reschedule", "error")
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}

	s.metrics.ObserveBooking("reschedule", "ok")
	s.logEvent(ctx, id, EventAppointmentRescheduled, map[string]any{
		"date": date.Format(slot.DateFormat),
		"slot": label,
		"by":   string(role),
	})

	// Tell the counterparty, not the actor who moved it.
	counterparty := appt.PatientID
	if role == identity.RolePatient {
		counterparty = appt.ProviderID
	}
	s.notify(ctx, counterparty, notify.KindBookingRescheduled,
		fmt.Sprintf("Appointment moved to %s on %s.", label, date.Format(slot.DateFormat)),
		"/appointments/"+id.String(),
	)

	return updated, nil
}

// UpdateStatus drives one lifecycle transition. Re-invoking a transition on
// an appointment already in a terminal target state is a no-op returning
// the current record.
func (s *Service) UpdateStatus(ctx context.Context, actor identity.Actor, id uuid.UUID, target Status) (*Appointment, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("%q is not a known status", target)}
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	role := CanActOn(actor, appt)
	if role == identity.RoleNone {
		return nil, ErrUnauthorized
	}
	if appt.Status.Terminal() && appt.Status == target {
		return appt, nil
	}
	if err := CheckTransition(appt.Status, target, role); err != nil {
		s.metrics.ObserveTransition(string(target), "illegal")
		return nil, err
	}

	var updated *Appointment
	if target == StatusConfirmed {
		// The payment-approval guard re-reads the payment record inside the
		// conditional update, never a value cached on this request.
		updated, err = s.repo.ConfirmWithApprovedPayment(ctx, id)
	} else {
		updated, err = s.repo.UpdateStatus(ctx, id, appt.Status, target)
	}

	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return s.resolveFailedTransition(ctx, id, appt.Status, target)
		}
		s.metrics.ObserveTransition(string(target), "error")
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.metrics.ObserveTransition(string(target), "ok")
	s.logEvent(ctx, id, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(target),
		"by":   string(role),
	})
	s.notifyTransition(ctx, role, updated)

	return updated, nil
}

// Complete marks a confirmed appointment as completed after the encounter.
func (s *Service) Complete(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Appointment, error) {
	return s.UpdateStatus(ctx, actor, id, StatusCompleted)
}

// Get returns the hydrated appointment for one of its parties or the audit
// actor.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*Detail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && CanActOn(actor, &detail.Appointment) == identity.RoleNone {
		return nil, ErrUnauthorized
	}
	return detail, nil
}

// ListForActor returns the caller's appointments, newest first.
func (s *Service) ListForActor(ctx context.Context, actor identity.Actor, limit, offset int) ([]Detail, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	switch actor.Role {
	case identity.RolePatient:
		return s.repo.ListByPatient(ctx, actor.ID, limit, offset)
	case identity.RoleProvider:
		return s.repo.ListByProvider(ctx, actor.ID, limit, offset)
	default:
		return nil, ErrUnauthorized
	}
}

// SendDueReminders notifies patients of confirmed appointments inside the
// window. Intended to be called by the worker periodically; the
// reminder_sent flip is conditional so concurrent workers send at most one
// reminder per appointment.
func (s *Service) SendDueReminders(ctx context.Context, window time.Duration) error {
	now := slot.Normalize(time.Now())
	due, err := s.repo.FindRemindersDue(ctx, now, slot.Normalize(now.Add(window)))
	if err != nil {
		return fmt.Errorf("find due reminders: %w", err)
	}

	for _, d := range due {
		sent, err := s.repo.MarkReminderSent(ctx, d.ID)
		if err != nil {
			s.logger.Warn("failed to mark reminder sent", zap.String("appointment_id", d.ID.String()), zap.Error(err))
			continue
		}
		if !sent {
			continue
		}

		s.notify(ctx, d.PatientID, notify.KindAppointmentReminder,
			fmt.Sprintf("Reminder: your appointment with %s is on %s at %s.", d.Provider.Name, d.Date.Format(slot.DateFormat), d.Slot),
			"/appointments/"+d.ID.String(),
		)
		s.logEvent(ctx, d.ID, EventReminderSent, map[string]any{})
	}

	return nil
}

// resolveFailedTransition disambiguates a zero-row conditional update: the
// record vanished, changed state underneath us, or (for confirmation) the
// payment is not approved.
func (s *Service) resolveFailedTransition(ctx context.Context, id uuid.UUID, from, target Status) (*Appointment, error) {
	fresh, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if fresh.Status.Terminal() && fresh.Status == target {
		return fresh, nil
	}
	if fresh.Status == from && target == StatusConfirmed {
		s.metrics.ObserveTransition(string(target), "payment_not_approved")
		return nil, ErrPaymentNotApproved
	}

	s.metrics.ObserveTransition(string(target), "illegal")
	return nil, &TransitionError{From: fresh.Status, To: target}
}

// resolveFailedReschedule disambiguates a zero-row reschedule: only a row
// still in a blocking status can be moved, so a miss means the appointment
// concurrently reached a terminal state or was deleted.
func (s *Service) resolveFailedReschedule(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	fresh, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveBooking("reschedule", "illegal")
	return nil, &TransitionError{From: fresh.Status, To: StatusConfirmed}
}

func (s *Service) notifyTransition(ctx context.Context, by identity.Role, appt *Appointment) {
	link := "/appointments/" + appt.ID.String()

	switch appt.Status {
	case StatusConfirmed:
		s.notify(ctx, appt.PatientID, notify.KindAppointmentConfirmed,
			fmt.Sprintf("Your appointment on %s at %s is confirmed.", appt.Date.Format(slot.DateFormat), appt.Slot), link)
	case StatusRejected:
		s.notify(ctx, appt.PatientID, notify.KindAppointmentRejected,
			"The provider declined your appointment. The slot is free again, you can rebook.", link)
	case StatusCompleted:
		s.notify(ctx, appt.PatientID, notify.KindReviewRequest,
			"How was your appointment? Leave a review.", link)
	case StatusCancelled:
		counterparty := appt.PatientID
		if by == identity.RolePatient {
			counterparty = appt.ProviderID
		}
		s.notify(ctx, counterparty, notify.KindAppointmentCancelled,
			fmt.Sprintf("The appointment on %s at %s was cancelled.", appt.Date.Format(slot.DateFormat), appt.Slot), link)
	}
}

// conflictError builds the user-facing conflict from the current holder of
// the slot.
func (s *Service) conflictError(ctx context.Context, providerID uuid.UUID, date time.Time, label string) error {
	conflict := &ConflictError{Slot: label}

	occupied, err := s.repo.OccupiedSlots(ctx, providerID, date)
	if err != nil {
		s.logger.Warn("failed to load conflicting booking details", zap.Error(err))
		return conflict
	}
	if occ, ok := occupied[label]; ok {
		conflict.BookedByName = occ.BookedByName
		conflict.BookedAt = occ.BookedAt
		conflict.Status = occ.Status
	}
	return conflict
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, kind, message, link string) {
	if s.notifier == nil {
		return
	}
	// Best-effort: the domain state change is the source of truth, a failed
	// delivery must never roll it back.
	if err := s.notifier.Notify(ctx, userID, kind, message, link); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("user_id", userID.String()),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
