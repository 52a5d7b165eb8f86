package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
)

var (
	ErrPaymentNotFound = errors.New("payment not found")
)

// Repository contains the ledger's DB interactions. The mutating methods
// are conditional writes so double submissions collapse into no-ops.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// GetOrCreate returns the open (gateway-pending) payment for the
	// appointment, inserting one atomically when absent. Concurrent calls
	// for the same appointment all receive the same record.
	GetOrCreate(ctx context.Context, appt *appointment.Appointment, amount int64, method string) (*Payment, error)

	// MarkReported flips gateway status pending->completed and records the
	// patient-supplied transaction reference. Zero rows matched is reported
	// as ErrPaymentNotFound; callers re-read to disambiguate.
	MarkReported(ctx context.Context, id uuid.UUID, ref string) (*Payment, error)

	// Approve flips admin status pending->approved for a reported payment.
	// The bool is false when no row changed (already decided, or nothing
	// reported yet).
	Approve(ctx context.Context, id uuid.UUID) (*Payment, bool, error)

	// RejectAndCancel flips admin status pending->rejected, fails the
	// gateway status, and cancels the linked appointment if it is still in
	// a blocking status, all in one transaction. The bool is false when
	// the audit verdict was already decided.
	RejectAndCancel(ctx context.Context, id uuid.UUID) (*Payment, *appointment.Appointment, bool, error)
}
