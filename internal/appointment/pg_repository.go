package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses. Tests inject a
// pgxmock pool through it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, provider_id, patient_id, date, slot, status, payment_id, reminder_sent, created_at, updated_at`

// Helpers

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	var specialty *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&specialty,
		&p.Fee,
		&p.UpiID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}

	p.Specialty = specialty
	return &p, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var paymentID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.PatientID,
		&a.Date,
		&a.Slot,
		&a.Status,
		&paymentID,
		&a.ReminderSent,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.PaymentID = paymentID
	return &a, nil
}

// isUniqueViolation reports whether err is a violation of the partial
// unique index guarding blocking appointments.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Interface methods

func (r *PgRepository) GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty, fee, upi_id, created_at, updated_at
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) OccupiedSlots(ctx context.Context, providerID uuid.UUID, date time.Time) (map[string]Occupancy, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.slot, a.id, p.name, a.created_at, a.status
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.provider_id = $1
		  AND a.date = $2
		  AND a.status IN ('pending', 'confirmed', 'completed')
		ORDER BY CASE WHEN a.status = 'completed' THEN 0 ELSE 1 END
	`, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("query occupied slots: %w", err)
	}
	defer rows.Close()

	// Blocking rows are ordered last so they win over a completed record
	// of the same slot.
	occupied := make(map[string]Occupancy)
	for rows.Next() {
		var slot string
		var occ Occupancy
		if err := rows.Scan(&slot, &occ.AppointmentID, &occ.BookedByName, &occ.BookedAt, &occ.Status); err != nil {
			return nil, err
		}
		occupied[slot] = occ
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return occupied, nil
}

func (r *PgRepository) CreatePending(ctx context.Context, providerID, patientID uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	id := uuid.New()

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, provider_id, patient_id, date, slot, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', now(), now())
		RETURNING `+appointmentColumns+`
	`, id, providerID, patientID, date, slot)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, slot string) (*Appointment, error) {
	// The same row keeps its id, so the unique index naturally excludes the
	// appointment's own reservation from the conflict scan. The status
	// predicate makes the write a compare-and-swap: an appointment that
	// went terminal since the caller's read matches nothing.
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET date = $2,
		    slot = $3,
		    status = 'confirmed',
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'confirmed')
		RETURNING `+appointmentColumns+`
	`, id, date, slot)

	appt, err := scanAppointment(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns+`
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ConfirmWithApprovedPayment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	// The admin status is read inside the UPDATE itself, so a concurrent
	// audit decision cannot be confirmed against stale approval state.
	row := r.db.QueryRow(ctx, `
		UPDATE appointments a
		SET status = 'confirmed',
		    updated_at = now()
		WHERE a.id = $1
		  AND a.status = 'pending'
		  AND EXISTS (
		      SELECT 1 FROM payments p
		      WHERE p.appointment_id = a.id
		        AND p.admin_status = 'approved'
		  )
		RETURNING `+appointmentColumns+`
	`, id)

	return scanAppointment(row)
}

func (r *PgRepository) LinkPayment(ctx context.Context, id, paymentID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET payment_id = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, paymentID)
	if err != nil {
		return fmt.Errorf("link payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	rows, err := r.db.Query(ctx, detailQuery+` WHERE a.id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details, err := collectDetails(rows)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return &details[0], nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	rows, err := r.db.Query(ctx, detailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.date DESC, a.created_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListByProvider(ctx context.Context, providerID uuid.UUID, limit, offset int) ([]Detail, error) {
	rows, err := r.db.Query(ctx, detailQuery+`
		WHERE a.provider_id = $1
		ORDER BY a.date DESC, a.created_at DESC
		LIMIT $2 OFFSET $3
	`, providerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) FindRemindersDue(ctx context.Context, from, to time.Time) ([]Detail, error) {
	rows, err := r.db.Query(ctx, detailQuery+`
		WHERE a.status = 'confirmed'
		  AND a.reminder_sent = false
		  AND a.date >= $1
		  AND a.date <= $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'confirmed'
		  AND reminder_sent = false
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

const detailQuery = `
	SELECT a.id, a.provider_id, a.patient_id, a.date, a.slot, a.status,
	       a.payment_id, a.reminder_sent, a.created_at, a.updated_at,
	       pr.id, pr.name, pr.specialty, pr.fee, pr.upi_id, pr.created_at, pr.updated_at,
	       pa.id, pa.name, pa.email, pa.created_at, pa.updated_at
	FROM appointments a
	JOIN providers pr ON pr.id = a.provider_id
	JOIN patients pa ON pa.id = a.patient_id
`

func collectDetails(rows pgx.Rows) ([]Detail, error) {
	var result []Detail
	for rows.Next() {
		var d Detail
		var pr Provider
		var pa Patient

		err := rows.Scan(
			&d.ID, &d.ProviderID, &d.PatientID, &d.Date, &d.Slot, &d.Status,
			&d.PaymentID, &d.ReminderSent, &d.CreatedAt, &d.UpdatedAt,
			&pr.ID, &pr.Name, &pr.Specialty, &pr.Fee, &pr.UpiID, &pr.CreatedAt, &pr.UpdatedAt,
			&pa.ID, &pa.Name, &pa.Email, &pa.CreatedAt, &pa.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		d.Provider = &pr
		d.Patient = &pa
		result = append(result, d)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
