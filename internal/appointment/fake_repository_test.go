package appointment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepository mimics the conditional-write semantics of the Postgres
// repository in memory so the service tests exercise the same failure
// paths (ErrSlotTaken on lost races, ErrAppointmentNotFound on stale CAS).
type fakeRepository struct {
	mu sync.Mutex

	providers    map[uuid.UUID]*Provider
	patients     map[uuid.UUID]*Patient
	appointments map[uuid.UUID]*Appointment

	// approvedPayments marks appointments whose payment the audit actor
	// approved, which is what ConfirmWithApprovedPayment reads.
	approvedPayments map[uuid.UUID]bool

	events []EventLog
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		providers:        make(map[uuid.UUID]*Provider),
		patients:         make(map[uuid.UUID]*Patient),
		appointments:     make(map[uuid.UUID]*Appointment),
		approvedPayments: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepository) addProvider(name string, fee int64) *Provider {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &Provider{ID: uuid.New(), Name: name, Fee: fee, UpiID: "clinic@upi", CreatedAt: time.Now()}
	f.providers[p.ID] = p
	return p
}

func (f *fakeRepository) addPatient(name string) *Patient {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &Patient{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	f.patients[p.ID] = p
	return p
}

func (f *fakeRepository) addAppointment(providerID, patientID uuid.UUID, date time.Time, slot string, status Status) *Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := &Appointment{
		ID:         uuid.New(),
		ProviderID: providerID,
		PatientID:  patientID,
		Date:       date,
		Slot:       slot,
		Status:     status,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.appointments[a.ID] = a
	return a
}

func (f *fakeRepository) GetProviderByID(_ context.Context, id uuid.UUID) (*Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.providers[id]
	if !ok {
		return nil, ErrProviderNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	a, err := f.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return f.detail(a), nil
}

func (f *fakeRepository) detail(a *Appointment) *Detail {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := &Detail{Appointment: *a}
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

func (f *fakeRepository) ListByPatient(_ context.Context, patientID uuid.UUID, limit, _ int) ([]Detail, error) {
	f.mu.Lock()
	var matched []*Appointment
	for _, a := range f.appointments {
		if a.PatientID == patientID {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	f.mu.Unlock()

	out := make([]Detail, 0, len(matched))
	for _, a := range matched {
		if len(out) == limit {
			break
		}
		out = append(out, *f.detail(a))
	}
	return out, nil
}

func (f *fakeRepository) ListByProvider(_ context.Context, providerID uuid.UUID, limit, _ int) ([]Detail, error) {
	f.mu.Lock()
	var matched []*Appointment
	for _, a := range f.appointments {
		if a.ProviderID == providerID {
			cp := *a
			matched = append(matched, &cp)
		}
	}
	f.mu.Unlock()

	out := make([]Detail, 0, len(matched))
	for _, a := range matched {
		if len(out) == limit {
			break
		}
		out = append(out, *f.detail(a))
	}
	return out, nil
}

func (f *fakeRepository) OccupiedSlots(_ context.Context, providerID uuid.UUID, date time.Time) (map[string]Occupancy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	occupied := make(map[string]Occupancy)
	// Completed rows first so a blocking row on the same slot wins the map
	// write, matching the SQL ordering.
	for _, pass := range []bool{false, true} {
		for _, a := range f.appointments {
			if a.ProviderID != providerID || !a.Date.Equal(date) {
				continue
			}
			if a.Status != StatusPending && a.Status != StatusConfirmed && a.Status != StatusCompleted {
				continue
			}
			if a.Status.Blocking() != pass {
				continue
			}
			name := ""
			if p, ok := f.patients[a.PatientID]; ok {
				name = p.Name
			}
			occupied[a.Slot] = Occupancy{
				AppointmentID: a.ID,
				BookedByName:  name,
				BookedAt:      a.CreatedAt,
				Status:        a.Status,
			}
		}
	}
	return occupied, nil
}

func (f *fakeRepository) CreatePending(_ context.Context, providerID, patientID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, a := range f.appointments {
		if a.ProviderID == providerID && a.Date.Equal(date) && a.Slot == slot && a.Status.Blocking() {
			return nil, ErrSlotTaken
		}
	}

	a := &Appointment{
		ID:         uuid.New(),
		ProviderID: providerID,
		PatientID:  patientID,
		Date:       date,
		Slot:       slot,
		Status:     StatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.appointments[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeRepository) Reschedule(_ context.Context, id uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || !a.Status.Blocking() {
		return nil, ErrAppointmentNotFound
	}
	for _, other := range f.appointments {
		if other.ID == id {
			continue
		}
		if other.ProviderID == a.ProviderID && other.Date.Equal(date) && other.Slot == slot && other.Status.Blocking() {
			return nil, ErrSlotTaken
		}
	}

	a.Date = date
	a.Slot = slot
	a.Status = StatusConfirmed
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepository) ConfirmWithApprovedPayment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || a.Status != StatusPending || !f.approvedPayments[id] {
		return nil, ErrAppointmentNotFound
	}
	a.Status = StatusConfirmed
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (f *fakeRepository) LinkPayment(_ context.Context, id, paymentID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	pid := paymentID
	a.PaymentID = &pid
	return nil
}

func (f *fakeRepository) FindRemindersDue(_ context.Context, from, to time.Time) ([]Detail, error) {
	f.mu.Lock()
	var due []*Appointment
	for _, a := range f.appointments {
		if a.Status != StatusConfirmed || a.ReminderSent {
			continue
		}
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		cp := *a
		due = append(due, &cp)
	}
	f.mu.Unlock()

	out := make([]Detail, 0, len(due))
	for _, a := range due {
		out = append(out, *f.detail(a))
	}
	return out, nil
}

func (f *fakeRepository) MarkReminderSent(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || a.Status != StatusConfirmed || a.ReminderSent {
		return false, nil
	}
	a.ReminderSent = true
	return true, nil
}

func (f *fakeRepository) InsertEvent(_ context.Context, ev EventLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeRepository) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.EventType)
	}
	return out
}

// capturingNotifier records deliveries for assertions.
type capturingNotifier struct {
	mu       sync.Mutex
	sent     []sentNotification
	failWith error
}

type sentNotification struct {
	UserID  uuid.UUID
	Kind    string
	Message string
	Link    string
}

func (n *capturingNotifier) Notify(_ context.Context, userID uuid.UUID, kind, message, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failWith != nil {
		return n.failWith
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Message: message, Link: link})
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
