package payment

import (
	"time"

	"github.com/google/uuid"
)

// GatewayStatus tracks the out-of-band payment itself.
type GatewayStatus string

const (
	GatewayPending   GatewayStatus = "pending"
	GatewayCompleted GatewayStatus = "completed"
	GatewayFailed    GatewayStatus = "failed"
	GatewayRefunded  GatewayStatus = "refunded"
)

// AdminStatus tracks the audit actor's independent verdict.
type AdminStatus string

const (
	AdminPending  AdminStatus = "pending"
	AdminApproved AdminStatus = "approved"
	AdminRejected AdminStatus = "rejected"
)

// Decided reports whether the audit verdict is final.
func (s AdminStatus) Decided() bool {
	return s == AdminApproved || s == AdminRejected
}

type Payment struct {
	ID             uuid.UUID
	AppointmentID  uuid.UUID
	PatientID      uuid.UUID
	ProviderID     uuid.UUID
	Amount         int64 // whole rupees
	Method         string
	GatewayStatus  GatewayStatus
	AdminStatus    AdminStatus
	TransactionRef *string
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
