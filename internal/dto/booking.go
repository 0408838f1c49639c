package dto

import (
	"time"

	"github.com/datatouch/booking-api/internal/models"
)

// CreateAppointmentRequest is the public booking submission. Manual CRM
// creation reuses it with Source and an initial status set by the caller.
type CreateAppointmentRequest struct {
	ServiceID *string          `json:"service_id,omitempty"`
	Date      string           `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime models.TimeOfDay `json:"start_time"`

	CustomerName      string  `json:"customer_name" validate:"required,max=200"`
	CustomerEmail     string  `json:"customer_email" validate:"required,email"`
	CustomerPhone     *string `json:"customer_phone,omitempty"`
	CustomerPhoneCode *string `json:"customer_phone_code,omitempty"`
	CustomerNotes     *string `json:"customer_notes,omitempty"`

	Source        string                   `json:"-"`
	InitialStatus models.AppointmentStatus `json:"initial_status,omitempty"`
}

// RescheduleRequest moves an appointment to a new start instant; the end is
// recomputed from the service duration.
type RescheduleRequest struct {
	NewStart time.Time `json:"new_start" validate:"required"`
}

// CancelRequest records why and by whom an appointment was cancelled.
type CancelRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// UpdateStatusRequest advances the appointment lifecycle.
type UpdateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" validate:"required"`
}
