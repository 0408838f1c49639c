package models

import "time"

// AppointmentStatus is the lifecycle state of a booking.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// Valid reports whether the status is a known lifecycle state.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Appointment sources.
const (
	SourcePublic = "public"
	SourceManual = "manual"
)

// Appointment is a confirmed or requested booking against a card's time.
// Appointments are never physically deleted; cancellation snapshots the
// prior status so a restore can revert it.
type Appointment struct {
	ID             string            `db:"id" json:"id"`
	CardID         string            `db:"card_id" json:"card_id"`
	OrganizationID string            `db:"organization_id" json:"organization_id"`
	ServiceID      *string           `db:"service_id" json:"service_id,omitempty"`
	StartAt        time.Time         `db:"start_at" json:"start_at"`
	EndAt          time.Time         `db:"end_at" json:"end_at"`
	Timezone       string            `db:"timezone" json:"timezone"`
	Status         AppointmentStatus `db:"status" json:"status"`

	CustomerName      string  `db:"customer_name" json:"customer_name"`
	CustomerEmail     string  `db:"customer_email" json:"customer_email"`
	CustomerPhone     *string `db:"customer_phone" json:"customer_phone,omitempty"`
	CustomerPhoneCode *string `db:"customer_phone_code" json:"customer_phone_code,omitempty"`
	CustomerNotes     *string `db:"customer_notes" json:"customer_notes,omitempty"`
	InternalNotes     *string `db:"internal_notes" json:"internal_notes,omitempty"`

	Source string `db:"source" json:"source"`

	CancelledAt       *time.Time         `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelledByUserID *string            `db:"cancelled_by_user_id" json:"cancelled_by_user_id,omitempty"`
	CancelReason      *string            `db:"cancel_reason" json:"cancel_reason,omitempty"`
	PreviousStatus    *AppointmentStatus `db:"previous_status" json:"previous_status,omitempty"`

	ReminderSentAt *time.Time `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// AppointmentFilter narrows CRM appointment listings.
type AppointmentFilter struct {
	From     *time.Time
	To       *time.Time
	Status   AppointmentStatus
	Page     int
	PageSize int
}
