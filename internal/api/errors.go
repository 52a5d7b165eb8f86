package api

import (
	"errors"
	"net/http"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/payment"
	redisclient "github.com/AmiTtiwari43/The-DocVerse-sub000/internal/redis"
)

// handleDomainError maps the domain error taxonomy onto HTTP statuses. All
// of these are caller-recoverable; only unknown errors become 500s.
func handleDomainError(w http.ResponseWriter, err error) {
	var apptValidation *appointment.ValidationError
	var payValidation *payment.ValidationError
	var transition *appointment.TransitionError
	var conflict *appointment.ConflictError

	switch {
	case errors.As(err, &apptValidation), errors.As(err, &payValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())

	case errors.Is(err, appointment.ErrPaymentNotApproved):
		// Surfaced distinctly so the UI can explain the audit-pending state.
		writeError(w, http.StatusBadRequest, "payment_not_approved", err.Error())

	case errors.As(err, &transition):
		writeError(w, http.StatusBadRequest, "illegal_transition", err.Error())

	case errors.Is(err, appointment.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "unauthorized", err.Error())

	case errors.Is(err, appointment.ErrProviderNotFound),
		errors.Is(err, appointment.ErrPatientNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, payment.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.As(err, &conflict):
		resp := ConflictResponse{
			Error:   "slot_conflict",
			Details: err.Error(),
		}
		if conflict.BookedByName != "" {
			resp.BookingDetails = &BookingDetails{
				BookedByName: conflict.BookedByName,
				BookedAt:     conflict.BookedAt,
				Status:       string(conflict.Status),
			}
		}
		writeJSON(w, http.StatusConflict, resp)

	case errors.Is(err, appointment.ErrSlotBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
