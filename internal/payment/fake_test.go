package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
)

// fakeApptRepo implements the slice of appointment.Repository the payment
// services touch. The booking methods are never reached from here.
type fakeApptRepo struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]*appointment.Provider
	appointments map[uuid.UUID]*appointment.Appointment
	events       []appointment.EventLog
}

func newFakeApptRepo() *fakeApptRepo {
	return &fakeApptRepo{
		providers:    make(map[uuid.UUID]*appointment.Provider),
		appointments: make(map[uuid.UUID]*appointment.Appointment),
	}
}

func (f *fakeApptRepo) addProvider(name string, fee int64, upiID string) *appointment.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &appointment.Provider{ID: uuid.New(), Name: name, Fee: fee, UpiID: upiID}
	f.providers[p.ID] = p
	return p
}

func (f *fakeApptRepo) addAppointment(providerID, patientID uuid.UUID, date time.Time, slot string, status appointment.Status) *appointment.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &appointment.Appointment{
		ID:         uuid.New(),
		ProviderID: providerID,
		PatientID:  patientID,
		Date:       date,
		Slot:       slot,
		Status:     status,
	}
	f.appointments[a.ID] = a
	return a
}

func (f *fakeApptRepo) GetProviderByID(_ context.Context, id uuid.UUID) (*appointment.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[id]
	if !ok {
		return nil, appointment.ErrProviderNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeApptRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApptRepo) LinkPayment(_ context.Context, id, paymentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return appointment.ErrAppointmentNotFound
	}
	pid := paymentID
	a.PaymentID = &pid
	return nil
}

func (f *fakeApptRepo) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeApptRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.EventType)
	}
	return out
}

var errNotWired = errors.New("not wired in this fake")

func (f *fakeApptRepo) GetPatientByID(context.Context, uuid.UUID) (*appointment.Patient, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) GetAppointmentDetail(context.Context, uuid.UUID) (*appointment.Detail, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) ListByPatient(context.Context, uuid.UUID, int, int) ([]appointment.Detail, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) ListByProvider(context.Context, uuid.UUID, int, int) ([]appointment.Detail, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) OccupiedSlots(context.Context, uuid.UUID, time.Time) (map[string]appointment.Occupancy, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) CreatePending(context.Context, uuid.UUID, uuid.UUID, time.Time, string) (*appointment.Appointment, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) Reschedule(context.Context, uuid.UUID, time.Time, string) (*appointment.Appointment, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) UpdateStatus(context.Context, uuid.UUID, appointment.Status, appointment.Status) (*appointment.Appointment, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) ConfirmWithApprovedPayment(context.Context, uuid.UUID) (*appointment.Appointment, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) FindRemindersDue(context.Context, time.Time, time.Time) ([]appointment.Detail, error) {
	return nil, errNotWired
}

func (f *fakeApptRepo) MarkReminderSent(context.Context, uuid.UUID) (bool, error) {
	return false, errNotWired
}

// fakePaymentRepo mirrors the conditional-write behavior of the Postgres
// payment repository, including the cancel cascade on rejection.
type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*Payment
	appts    *fakeApptRepo
}

func newFakePaymentRepo(appts *fakeApptRepo) *fakePaymentRepo {
	return &fakePaymentRepo{
		payments: make(map[uuid.UUID]*Payment),
		appts:    appts,
	}
}

func (f *fakePaymentRepo) GetByID(_ context.Context, id uuid.UUID) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) GetOrCreate(_ context.Context, appt *appointment.Appointment, amount int64, method string) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.payments {
		if p.AppointmentID == appt.ID && p.GatewayStatus == GatewayPending {
			cp := *p
			return &cp, nil
		}
	}

	p := &Payment{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		ProviderID:    appt.ProviderID,
		Amount:        amount,
		Method:        method,
		GatewayStatus: GatewayPending,
		AdminStatus:   AdminPending,
		CreatedAt:     time.Now(),
	}
	f.payments[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) MarkReported(_ context.Context, id uuid.UUID, ref string) (*Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok || p.GatewayStatus != GatewayPending {
		return nil, ErrPaymentNotFound
	}
	now := time.Now()
	p.GatewayStatus = GatewayCompleted
	p.TransactionRef = &ref
	p.CompletedAt = &now
	cp := *p
	return &cp, nil
}

func (f *fakePaymentRepo) Approve(_ context.Context, id uuid.UUID) (*Payment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok {
		return nil, false, ErrPaymentNotFound
	}
	if p.AdminStatus != AdminPending || p.GatewayStatus != GatewayCompleted {
		cp := *p
		return &cp, false, nil
	}
	p.AdminStatus = AdminApproved
	cp := *p
	return &cp, true, nil
}

func (f *fakePaymentRepo) RejectAndCancel(ctx context.Context, id uuid.UUID) (*Payment, *appointment.Appointment, bool, error) {
	f.mu.Lock()
	p, ok := f.payments[id]
	if !ok {
		f.mu.Unlock()
		return nil, nil, false, ErrPaymentNotFound
	}
	if p.AdminStatus != AdminPending {
		cp := *p
		apptID := p.AppointmentID
		f.mu.Unlock()
		appt, err := f.appts.GetAppointmentByID(ctx, apptID)
		if err != nil {
			return nil, nil, false, err
		}
		return &cp, appt, false, nil
	}
	p.AdminStatus = AdminRejected
	p.GatewayStatus = GatewayFailed
	cp := *p
	apptID := p.AppointmentID
	f.mu.Unlock()

	f.appts.mu.Lock()
	appt, ok := f.appts.appointments[apptID]
	if !ok {
		f.appts.mu.Unlock()
		return nil, nil, false, appointment.ErrAppointmentNotFound
	}
	if appt.Status.Blocking() {
		appt.Status = appointment.StatusCancelled
	}
	acp := *appt
	f.appts.mu.Unlock()

	return &cp, &acp, true, nil
}

// capturingNotifier records deliveries for assertions.
type capturingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

type sentNotification struct {
	UserID  uuid.UUID
	Kind    string
	Message string
}

func (n *capturingNotifier) Notify(_ context.Context, userID uuid.UUID, kind, message, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Message: message})
	return nil
}

func (n *capturingNotifier) byKind(kind string) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
