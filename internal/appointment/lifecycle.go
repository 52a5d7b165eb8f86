package appointment

import (
	"errors"
	"fmt"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/identity"
)

var (
	// ErrPaymentNotApproved is the pending->confirmed guard failure: the
	// appointment's payment has not been approved by the audit actor.
	ErrPaymentNotApproved = errors.New("payment not approved by audit")

	ErrUnauthorized = errors.New("caller is not a party to this appointment")
)

// TransitionError reports an attempted transition outside the lifecycle
// table.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %q to %q", e.From, e.To)
}

// transitions is the lifecycle table: for each source status, the target
// statuses a caller may request and the role that may request them.
var transitions = map[Status]map[Status][]identity.Role{
	StatusPending: {
		StatusConfirmed: {identity.RoleProvider},
		StatusCancelled: {identity.RolePatient, identity.RoleProvider},
		StatusRejected:  {identity.RoleProvider},
	},
	StatusConfirmed: {
		StatusCompleted: {identity.RoleProvider},
		StatusCancelled: {identity.RolePatient, identity.RoleProvider},
	},
}

// CheckTransition validates that from->to is in the lifecycle table and that
// role may request it. It returns a *TransitionError for unknown edges and
// ErrUnauthorized when the edge exists but the role may not take it.
func CheckTransition(from, to Status, role identity.Role) error {
	targets, ok := transitions[from]
	if !ok {
		return &TransitionError{From: from, To: to}
	}
	roles, ok := targets[to]
	if !ok {
		return &TransitionError{From: from, To: to}
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return ErrUnauthorized
}

// CanActOn returns the role under which the actor may mutate the
// appointment: the booking patient, the owning provider, or none.
func CanActOn(actor identity.Actor, appt *Appointment) identity.Role {
	switch {
	case actor.Role == identity.RolePatient && actor.ID == appt.PatientID:
		return identity.RolePatient
	case actor.Role == identity.RoleProvider && actor.ID == appt.ProviderID:
		return identity.RoleProvider
	default:
		return identity.RoleNone
	}
}
