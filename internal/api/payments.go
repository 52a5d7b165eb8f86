package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/payment"
)

func paymentDetailsHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req PaymentDetailsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "appointmentId must be a valid UUID")
			return
		}

		details, err := ledger.GetOrCreate(r.Context(), actor, appointmentID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PaymentDetailsResponse{
			PaymentID:  details.Payment.ID,
			Amount:     details.Payment.Amount,
			UpiID:      details.UpiID,
			QRCodeData: details.QRCodeData,
		})
	}
}

func confirmPaymentHandler(ledger *payment.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		var req ConfirmPaymentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}

		paymentID, err := uuid.Parse(req.PaymentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "paymentId must be a valid UUID")
			return
		}

		p, err := ledger.ReportTransaction(r.Context(), actor, paymentID, req.TransactionID)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func approvePaymentHandler(approval *payment.Approval) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "id must be a valid UUID")
			return
		}

		p, err := approval.Approve(r.Context(), actor, id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}

func rejectPaymentHandler(approval *payment.Approval) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFromContext(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "id must be a valid UUID")
			return
		}

		var req RejectPaymentRequest
		if r.Body != nil {
			// Reason is optional; an empty body is fine.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		p, err := approval.Reject(r.Context(), actor, id, req.Reason)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPaymentResponse(p))
	}
}
