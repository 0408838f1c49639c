package dto

import "github.com/datatouch/booking-api/internal/models"

// RuleInput is one weekday entry of a weekly schedule save.
type RuleInput struct {
	DayOfWeek      int               `json:"day_of_week" validate:"min=0,max=6"`
	StartTime      models.TimeOfDay  `json:"start_time"`
	EndTime        models.TimeOfDay  `json:"end_time"`
	BreakStartTime *models.TimeOfDay `json:"break_start_time,omitempty"`
	BreakEndTime   *models.TimeOfDay `json:"break_end_time,omitempty"`
	ServiceID      *string           `json:"service_id,omitempty"`
	Active         bool              `json:"active"`
}

// SaveRulesRequest replaces a card's weekly schedule wholesale.
type SaveRulesRequest struct {
	Rules []RuleInput `json:"rules" validate:"dive"`
}

// ExceptionRequest creates or edits a date-specific exception.
type ExceptionRequest struct {
	Date      string               `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime *models.TimeOfDay    `json:"start_time,omitempty"`
	EndTime   *models.TimeOfDay    `json:"end_time,omitempty"`
	Kind      models.ExceptionKind `json:"kind" validate:"required"`
}

// SettingsRequest updates per-card booking preferences.
type SettingsRequest struct {
	Timezone              string `json:"timezone" validate:"required"`
	SlotIntervalMinutes   int    `json:"slot_interval_minutes" validate:"min=5,max=480"`
	BufferBeforeMinutes   int    `json:"buffer_before_minutes" validate:"min=0,max=240"`
	BufferAfterMinutes    int    `json:"buffer_after_minutes" validate:"min=0,max=240"`
	MaxAppointmentsPerDay int    `json:"max_appointments_per_day" validate:"min=0"`
	MinNoticeMinutes      int    `json:"min_notice_minutes" validate:"min=0"`
	MaxAdvanceDays        int    `json:"max_advance_days" validate:"min=0,max=365"`
}
