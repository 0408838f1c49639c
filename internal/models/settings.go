package models

import "time"

// BookingSettings are per-card booking preferences. Slot interval, buffers
// and daily limits are stored and exposed to the CRM but are intentionally
// not consumed by the slot calculator; see DESIGN.md for the open question
// on buffer enforcement.
type BookingSettings struct {
	ID                    string     `db:"id" json:"id"`
	CardID                string     `db:"card_id" json:"card_id"`
	Timezone              string     `db:"timezone" json:"timezone"`
	SlotIntervalMinutes   int        `db:"slot_interval_minutes" json:"slot_interval_minutes"`
	BufferBeforeMinutes   int        `db:"buffer_before_minutes" json:"buffer_before_minutes"`
	BufferAfterMinutes    int        `db:"buffer_after_minutes" json:"buffer_after_minutes"`
	MaxAppointmentsPerDay int        `db:"max_appointments_per_day" json:"max_appointments_per_day"`
	MinNoticeMinutes      int        `db:"min_notice_minutes" json:"min_notice_minutes"`
	MaxAdvanceDays        int        `db:"max_advance_days" json:"max_advance_days"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}
