package models

import "time"

// ExceptionKind classifies a date-specific availability override.
type ExceptionKind string

const (
	// ExceptionBlocked removes availability. With nil start/end the whole
	// day is blocked; with both set only that sub-range is.
	ExceptionBlocked ExceptionKind = "blocked"
	// ExceptionExtraHours adds a window on top of the weekly rule.
	ExceptionExtraHours ExceptionKind = "extra_hours"
)

// Valid reports whether the kind is one of the known values.
func (k ExceptionKind) Valid() bool {
	return k == ExceptionBlocked || k == ExceptionExtraHours
}

// AvailabilityRule is a recurring weekly open-hours window for a card.
// At most one global rule (nil ServiceID) and one override per service
// exist per weekday; owners replace their week wholesale.
type AvailabilityRule struct {
	ID             string     `db:"id" json:"id"`
	CardID         string     `db:"card_id" json:"card_id"`
	DayOfWeek      int        `db:"day_of_week" json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime      TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime        TimeOfDay  `db:"end_time" json:"end_time"`
	BreakStartTime *TimeOfDay `db:"break_start_time" json:"break_start_time,omitempty"`
	BreakEndTime   *TimeOfDay `db:"break_end_time" json:"break_end_time,omitempty"`
	ServiceID      *string    `db:"service_id" json:"service_id,omitempty"`
	Active         bool       `db:"active" json:"active"`
}

// AvailabilityException is a date-specific override layered on the weekly
// rules. Several exceptions may exist for one date.
type AvailabilityException struct {
	ID        string        `db:"id" json:"id"`
	CardID    string        `db:"card_id" json:"card_id"`
	Date      time.Time     `db:"exception_date" json:"date"`
	StartTime *TimeOfDay    `db:"start_time" json:"start_time,omitempty"`
	EndTime   *TimeOfDay    `db:"end_time" json:"end_time,omitempty"`
	Kind      ExceptionKind `db:"kind" json:"kind"`
}

// DayAvailability is one calendar day of the public booking view.
type DayAvailability struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

// BlocksWholeDay reports whether this exception removes the entire day.
func (e AvailabilityException) BlocksWholeDay() bool {
	return e.Kind == ExceptionBlocked && e.StartTime == nil && e.EndTime == nil
}

// TimeSlot is a candidate bookable window produced per query. It is never
// persisted.
type TimeSlot struct {
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	Available bool      `json:"available"`
}
