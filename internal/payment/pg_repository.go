package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
)

// DB is the subset of pgxpool.Pool the repository uses. The reject cascade
// needs Begin for its transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const paymentColumns = `id, appointment_id, patient_id, provider_id, amount, method, gateway_status, admin_status, transaction_ref, completed_at, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment

	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.PatientID,
		&p.ProviderID,
		&p.Amount,
		&p.Method,
		&p.GatewayStatus,
		&p.AdminStatus,
		&p.TransactionRef,
		&p.CompletedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	return &p, nil
}

const appointmentColumns = `id, provider_id, patient_id, date, slot, status, payment_id, reminder_sent, created_at, updated_at`

func scanCascadeAppointment(row pgx.Row) (*appointment.Appointment, error) {
	var a appointment.Appointment

	err := row.Scan(
		&a.ID,
		&a.ProviderID,
		&a.PatientID,
		&a.Date,
		&a.Slot,
		&a.Status,
		&a.PaymentID,
		&a.ReminderSent,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE id = $1
	`, id)
	return scanPayment(row)
}

func (r *PgRepository) GetOrCreate(ctx context.Context, appt *appointment.Appointment, amount int64, method string) (*Payment, error) {
	id := uuid.New()

	// Insert-if-absent arbitrated by the partial unique index on open
	// payments; a lost race falls through to reading the winner's row.
	row := r.db.QueryRow(ctx, `
		INSERT INTO payments (id, appointment_id, patient_id, provider_id, amount, method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (appointment_id) WHERE gateway_status = 'pending' DO NOTHING
		RETURNING `+paymentColumns+`
	`, id, appt.ID, appt.PatientID, appt.ProviderID, amount, method)

	p, err := scanPayment(row)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	row = r.db.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE appointment_id = $1
		ORDER BY CASE WHEN gateway_status = 'pending' THEN 0 ELSE 1 END, created_at DESC
		LIMIT 1
	`, appt.ID)
	return scanPayment(row)
}

func (r *PgRepository) MarkReported(ctx context.Context, id uuid.UUID, ref string) (*Payment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE payments
		SET gateway_status = 'completed',
		    transaction_ref = $2,
		    completed_at = now(),
		    updated_at = now()
		WHERE id = $1
		  AND gateway_status = 'pending'
		RETURNING `+paymentColumns+`
	`, id, ref)

	return scanPayment(row)
}

func (r *PgRepository) Approve(ctx context.Context, id uuid.UUID) (*Payment, bool, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE payments
		SET admin_status = 'approved',
		    updated_at = now()
		WHERE id = $1
		  AND admin_status = 'pending'
		  AND gateway_status = 'completed'
		RETURNING `+paymentColumns+`
	`, id)

	p, err := scanPayment(row)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		return nil, false, fmt.Errorf("approve payment: %w", err)
	}

	// Nothing matched: either the payment is unknown, not yet reported, or
	// the verdict is already in. Hand back the current record.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *PgRepository) RejectAndCancel(ctx context.Context, id uuid.UUID) (*Payment, *appointment.Appointment, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, false, fmt.Errorf("begin reject tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		UPDATE payments
		SET admin_status = 'rejected',
		    gateway_status = 'failed',
		    updated_at = now()
		WHERE id = $1
		  AND admin_status = 'pending'
		RETURNING `+paymentColumns+`
	`, id)

	p, err := scanPayment(row)
	if err != nil {
		if !errors.Is(err, ErrPaymentNotFound) {
			return nil, nil, false, fmt.Errorf("reject payment: %w", err)
		}

		// Already decided (or unknown). Report current state untouched.
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, nil, false, err
		}
		appt, err := scanCascadeAppointment(r.db.QueryRow(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1
		`, current.AppointmentID))
		if err != nil {
			return nil, nil, false, err
		}
		return current, appt, false, nil
	}

	// Cascade: free the slot by cancelling the appointment while it still
	// blocks. An already-terminal appointment is left as is.
	appt, err := scanCascadeAppointment(tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('pending', 'confirmed')
		RETURNING `+appointmentColumns+`
	`, p.AppointmentID))
	if err != nil {
		if !errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, nil, false, fmt.Errorf("cancel appointment: %w", err)
		}
		appt, err = scanCascadeAppointment(tx.QueryRow(ctx, `
			SELECT `+appointmentColumns+`
			FROM appointments
			WHERE id = $1
		`, p.AppointmentID))
		if err != nil {
			return nil, nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, fmt.Errorf("commit reject tx: %w", err)
	}

	return p, appt, true, nil
}
