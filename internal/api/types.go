package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/appointment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/payment"
	"github.com/AmiTtiwari43/The-DocVerse-sub000/internal/slot"
)

type BookAppointmentRequest struct {
	ProviderID string `json:"providerId" validate:"required,uuid"`
	Date       string `json:"date" validate:"required"`
	Slot       string `json:"slot" validate:"required"`
}

type RescheduleRequest struct {
	Date string `json:"date" validate:"required"`
	Slot string `json:"slot" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type PaymentDetailsRequest struct {
	AppointmentID string `json:"appointmentId" validate:"required,uuid"`
}

type ConfirmPaymentRequest struct {
	PaymentID     string `json:"paymentId" validate:"required,uuid"`
	TransactionID string `json:"transactionId" validate:"required"`
}

type RejectPaymentRequest struct {
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID           uuid.UUID  `json:"id"`
	ProviderID   uuid.UUID  `json:"providerId"`
	PatientID    uuid.UUID  `json:"patientId"`
	Date         string     `json:"date"`
	Slot         string     `json:"slot"`
	Status       string     `json:"status"`
	PaymentID    *uuid.UUID `json:"paymentId,omitempty"`
	ProviderName string     `json:"providerName,omitempty"`
	PatientName  string     `json:"patientName,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		ProviderID: a.ProviderID,
		PatientID:  a.PatientID,
		Date:       a.Date.Format(slot.DateFormat),
		Slot:       a.Slot,
		Status:     string(a.Status),
		PaymentID:  a.PaymentID,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func toDetailResponse(d *appointment.Detail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	if d.Provider != nil {
		resp.ProviderName = d.Provider.Name
	}
	if d.Patient != nil {
		resp.PatientName = d.Patient.Name
	}
	return resp
}

type AvailableSlotsResponse struct {
	ProviderID uuid.UUID `json:"providerId"`
	Date       string    `json:"date"`
	FreeSlots  []string  `json:"freeSlots"`
}

// BookingDetails is what a losing booker may learn about the winner.
type BookingDetails struct {
	BookedByName string    `json:"bookedByName"`
	BookedAt     time.Time `json:"bookedAt"`
	Status       string    `json:"status"`
}

type ConflictResponse struct {
	Error          string          `json:"error"`
	Details        string          `json:"details"`
	BookingDetails *BookingDetails `json:"bookingDetails,omitempty"`
}

type PaymentResponse struct {
	ID             uuid.UUID  `json:"id"`
	AppointmentID  uuid.UUID  `json:"appointmentId"`
	Amount         int64      `json:"amount"`
	Method         string     `json:"method"`
	GatewayStatus  string     `json:"gatewayStatus"`
	AdminStatus    string     `json:"adminStatus"`
	TransactionRef *string    `json:"transactionRef,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

func toPaymentResponse(p *payment.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		AppointmentID:  p.AppointmentID,
		Amount:         p.Amount,
		Method:         p.Method,
		GatewayStatus:  string(p.GatewayStatus),
		AdminStatus:    string(p.AdminStatus),
		TransactionRef: p.TransactionRef,
		CompletedAt:    p.CompletedAt,
	}
}

type PaymentDetailsResponse struct {
	PaymentID  uuid.UUID `json:"paymentId"`
	Amount     int64     `json:"amount"`
	UpiID      string    `json:"upiId"`
	QRCodeData string    `json:"qrCodeData"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
