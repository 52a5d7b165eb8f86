package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/payment"
)

// fakeStore backs the router tests with one in-memory store implementing
// both repository interfaces, so a whole booking-payment-approval flow can
// run through real handlers and services.
type fakeStore struct {
	mu           sync.Mutex
	providers    map[uuid.UUID]*appointment.Provider
	patients     map[uuid.UUID]*appointment.Patient
	appointments map[uuid.UUID]*appointment.Appointment
	payments     map[uuid.UUID]*payment.Payment
	events       []appointment.EventLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		providers:    make(map[uuid.UUID]*appointment.Provider),
		patients:     make(map[uuid.UUID]*appointment.Patient),
		appointments: make(map[uuid.UUID]*appointment.Appointment),
		payments:     make(map[uuid.UUID]*payment.Payment),
	}
}

func (f *fakeStore) addProvider(name string, fee int64, upiID string) *appointment.Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &appointment.Provider{ID: uuid.New(), Name: name, Fee: fee, UpiID: upiID}
	f.providers[p.ID] = p
	return p
}

func (f *fakeStore) addPatient(name string) *appointment.Patient {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &appointment.Patient{ID: uuid.New(), Name: name}
	f.patients[p.ID] = p
	return p
}

// appointment.Repository

func (f *fakeStore) GetProviderByID(_ context.Context, id uuid.UUID) (*appointment.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[id]
	if !ok {
		return nil, appointment.ErrProviderNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetPatientByID(_ context.Context, id uuid.UUID) (*appointment.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, appointment.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetAppointmentByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*appointment.Detail, error) {
	a, err := f.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.detail(a), nil
}

func (f *fakeStore) detail(a *appointment.Appointment) *appointment.Detail {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &appointment.Detail{Appointment: *a}
	if p, ok := f.providers[a.ProviderID]; ok {
		cp := *p
		d.Provider = &cp
	}
	if p, ok := f.patients[a.PatientID]; ok {
		cp := *p
		d.Patient = &cp
	}
	return d
}

func (f *fakeStore) ListByPatient(_ context.Context, patientID uuid.UUID, limit, _ int) ([]appointment.Detail, error) {
	f.mu.Lock()
	var matched []*appointment.Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	f.mu.Unlock()

	out := make([]appointment.Detail, 0, len(matched))
	for _, a := range matched {
		if len(out) == limit {
			break
		}
		out = append(out, *f.detail(a))
	}
	return out, nil
}

func (f *fakeStore) ListByProvider(_ context.Context, providerID uuid.UUID, limit, _ int) ([]appointment.Detail, error) {
	f.mu.Lock()
	var matched []*appointment.Appointment
	for _, a := range f.appointments {
		if a.ProviderID == providerID {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	f.mu.Unlock()

	out := make([]appointment.Detail, 0, len(matched))
	for _, a := range matched {
		if len(out) == limit {
			break
		}
		out = append(out, *f.detail(a))
	}
	return out, nil
}

func (f *fakeStore) OccupiedSlots(_ context.Context, providerID uuid.UUID, date time.Time) (map[string]appointment.Occupancy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	occupied := make(map[string]appointment.Occupancy)
	for _, pass := range []bool{false, true} {
		for _, a := range f.appointments {
			if a.ProviderID != providerID || !a.Date.Equal(date) {
				continue
			}
			display := a.Status.Blocking() || a.Status == appointment.StatusCompleted
			if !display || a.Status.Blocking() != pass {
				continue
			}
			name := ""
			if p, ok := f.patients[a.PatientID]; ok {
				name = p.Name
			}
			occupied[a.Slot] = appointment.Occupancy{
				AppointmentID: a.ID,
				BookedByName:  name,
				BookedAt:      a.CreatedAt,
				Status:        a.Status,
			}
		}
	}
	return occupied, nil
}

func (f *fakeStore) CreatePending(_ context.Context, providerID, patientID uuid.UUID, date time.Time, slot string) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.appointments {
		if a.ProviderID == providerID && a.Date.Equal(date) && a.Slot == slot && a.Status.Blocking() {
			return nil, appointment.ErrSlotTaken
		}
	}

	a := &appointment.Appointment{
		ID:         uuid.New(),
		ProviderID: providerID,
		PatientID:  patientID,
		Date:       date,
		Slot:       slot,
		Status:     appointment.StatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.appointments[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeStore) Reschedule(_ context.Context, id uuid.UUID, date time.Time, slot string) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || !a.Status.Blocking() {
		return nil, appointment.ErrAppointmentNotFound
	}
	for _, other := range f.appointments {
		if other.ID != id && other.ProviderID == a.ProviderID &&
			other.Date.Equal(date) && other.Slot == slot && other.Status.Blocking() {
			return nil, appointment.ErrSlotTaken
		}
	}

	a.Date = date
	a.Slot = slot
	a.Status = appointment.StatusConfirmed
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to appointment.Status) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || a.Status != from {
		return nil, appointment.ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ConfirmWithApprovedPayment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || a.Status != appointment.StatusPending {
		return nil, appointment.ErrAppointmentNotFound
	}

	approved := false
	for _, p := range f.payments {
		if p.AppointmentID == id && p.AdminStatus == payment.AdminApproved {
			approved = true
			break
		}
	}
	if !approved {
		return nil, appointment.ErrAppointmentNotFound
	}

	a.Status = appointment.StatusConfirmed
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeStore) LinkPayment(_ context.Context, id, paymentID uuid.UUID) error {
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

func (f *fakeStore) FindRemindersDue(_ context.Context, from, to time.Time) ([]appointment.Detail, error) {
	f.mu.Lock()
	var due []*appointment.Appointment
	for _, a := range f.appointments {
		if a.Status == appointment.StatusConfirmed && !a.ReminderSent &&
			!a.Date.Before(from) && !a.Date.After(to) {
			cp := *a
			due = append(due, &cp)
		}
	}
	f.mu.Unlock()

	out := make([]appointment.Detail, 0, len(due))
	for _, a := range due {
		out = append(out, *f.detail(a))
	}
	return out, nil
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.Status != appointment.StatusConfirmed || a.ReminderSent {
		return false, nil
	}
	a.ReminderSent = true
	return true, nil
}

func (f *fakeStore) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

// payment.Repository

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetOrCreate(_ context.Context, appt *appointment.Appointment, amount int64, method string) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.payments {
		if p.AppointmentID == appt.ID && p.GatewayStatus == payment.GatewayPending {
			cp := *p
			return &cp, nil
		}
	}

	p := &payment.Payment{
		ID:            uuid.New(),
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		ProviderID:    appt.ProviderID,
		Amount:        amount,
		Method:        method,
		GatewayStatus: payment.GatewayPending,
		AdminStatus:   payment.AdminPending,
		CreatedAt:     time.Now(),
	}
	f.payments[p.ID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeStore) MarkReported(_ context.Context, id uuid.UUID, ref string) (*payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok || p.GatewayStatus != payment.GatewayPending {
		return nil, payment.ErrPaymentNotFound
	}
	now := time.Now()
	p.GatewayStatus = payment.GatewayCompleted
	p.TransactionRef = &ref
	p.CompletedAt = &now
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Approve(_ context.Context, id uuid.UUID) (*payment.Payment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok {
		return nil, false, payment.ErrPaymentNotFound
	}
	if p.AdminStatus != payment.AdminPending || p.GatewayStatus != payment.GatewayCompleted {
		cp := *p
		return &cp, false, nil
	}
	p.AdminStatus = payment.AdminApproved
	cp := *p
	return &cp, true, nil
}

func (f *fakeStore) RejectAndCancel(_ context.Context, id uuid.UUID) (*payment.Payment, *appointment.Appointment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.payments[id]
	if !ok {
		return nil, nil, false, payment.ErrPaymentNotFound
	}
	appt, ok := f.appointments[p.AppointmentID]
	if !ok {
		return nil, nil, false, appointment.ErrAppointmentNotFound
	}

	if p.AdminStatus != payment.AdminPending {
		cp := *p
		acp := *appt
		return &cp, &acp, false, nil
	}

	p.AdminStatus = payment.AdminRejected
	p.GatewayStatus = payment.GatewayFailed
	if appt.Status.Blocking() {
		appt.Status = appointment.StatusCancelled
	}
	cp := *p
	acp := *appt
	return &cp, &acp, true, nil
}
