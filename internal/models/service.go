package models

import "time"

// Service is a bookable offering on a card. Duration drives slot length and
// appointment end times. Buffer, notice and per-day limits are stored as
// owner preferences but are not applied by the slot calculator (see
// BookingSettings).
type Service struct {
	ID                  string    `db:"id" json:"id"`
	CardID              string    `db:"card_id" json:"card_id"`
	OrganizationID      string    `db:"organization_id" json:"organization_id"`
	Name                string    `db:"name" json:"name"`
	Description         *string   `db:"description" json:"description,omitempty"`
	DurationMinutes     int       `db:"duration_minutes" json:"duration_minutes"`
	PriceFrom           *float64  `db:"price_from" json:"price_from,omitempty"`
	DisplayOrder        int       `db:"display_order" json:"display_order"`
	Active              bool      `db:"active" json:"active"`
	BufferBeforeMinutes *int      `db:"buffer_before_minutes" json:"buffer_before_minutes,omitempty"`
	BufferAfterMinutes  *int      `db:"buffer_after_minutes" json:"buffer_after_minutes,omitempty"`
	MinNoticeMinutes    *int      `db:"min_notice_minutes" json:"min_notice_minutes,omitempty"`
	MaxBookingsPerDay   *int      `db:"max_bookings_per_day" json:"max_bookings_per_day,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}
