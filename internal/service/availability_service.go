package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/datatouch/booking-api/internal/dto"
	"github.com/datatouch/booking-api/internal/models"
	"github.com/datatouch/booking-api/internal/scheduling"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
)

const dateLayout = "2006-01-02"

type availabilityStore interface {
	ListRules(ctx context.Context, cardID string) ([]models.AvailabilityRule, error)
	ActiveRuleForDay(ctx context.Context, cardID string, dayOfWeek int, serviceID *string) (*models.AvailabilityRule, error)
	ReplaceRules(ctx context.Context, cardID string, rules []models.AvailabilityRule) error
	ListExceptionsOn(ctx context.Context, cardID string, date time.Time) ([]models.AvailabilityException, error)
	ListExceptionsBetween(ctx context.Context, cardID string, from, to time.Time) ([]models.AvailabilityException, error)
	FindExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error)
	CreateException(ctx context.Context, ex *models.AvailabilityException) error
	UpdateException(ctx context.Context, ex *models.AvailabilityException) error
	DeleteException(ctx context.Context, id string) error
}

type settingsStore interface {
	FindByCard(ctx context.Context, cardID string) (*models.BookingSettings, error)
	Upsert(ctx context.Context, settings *models.BookingSettings) error
}

type cardReader interface {
	FindByID(ctx context.Context, id string) (*models.Card, error)
}

// AvailabilityService manages weekly rules, date exceptions and booking
// settings, and computes raw bookable slots for a date.
type AvailabilityService struct {
	store     availabilityStore
	settings  settingsStore
	cards     cardReader
	validator *validator.Validate
	logger    *zap.Logger

	defaultTimezone string
}

// NewAvailabilityService constructs AvailabilityService.
func NewAvailabilityService(store availabilityStore, settings settingsStore, cards cardReader, defaultTimezone string, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{store: store, settings: settings, cards: cards, defaultTimezone: defaultTimezone, validator: validate, logger: logger}
}

// ComputeSlots expands the card's weekly rule and the date's exceptions into
// candidate slots of the given duration. Booked appointments are not
// subtracted here; that is the booking coordinator's job.
func (s *AvailabilityService) ComputeSlots(ctx context.Context, cardID string, date time.Time, serviceID *string, durationMinutes int) ([]models.TimeSlot, error) {
	dayOfWeek := int(date.Weekday())
	rule, err := s.store.ActiveRuleForDay(ctx, cardID, dayOfWeek, serviceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rule")
	}
	exceptions, err := s.store.ListExceptionsOn(ctx, cardID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability exceptions")
	}
	return scheduling.BuildSlots(rule, exceptions, durationMinutes), nil
}

// HasAvailability reports whether a date can offer any slots at all: not
// fully blocked, and covered by either a weekly rule or extra hours.
func (s *AvailabilityService) HasAvailability(ctx context.Context, cardID string, date time.Time) (bool, error) {
	exceptions, err := s.store.ListExceptionsOn(ctx, cardID, date)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability exceptions")
	}
	hasExtra := false
	for _, ex := range exceptions {
		if ex.BlocksWholeDay() {
			return false, nil
		}
		if ex.Kind == models.ExceptionExtraHours {
			hasExtra = true
		}
	}
	if hasExtra {
		return true, nil
	}
	rule, err := s.store.ActiveRuleForDay(ctx, cardID, int(date.Weekday()), nil)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rule")
	}
	return rule != nil, nil
}

// AvailableDays marks which dates in [from, to] can offer slots at all,
// for the public booking calendar. The range is capped at 62 days.
func (s *AvailabilityService) AvailableDays(ctx context.Context, cardID, fromStr, toStr string) ([]models.DayAvailability, error) {
	if err := s.requireCard(ctx, cardID); err != nil {
		return nil, err
	}
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to date must not be before from date")
	}
	if to.Sub(from) > 62*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range too large")
	}

	var days []models.DayAvailability
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		available, err := s.HasAvailability(ctx, cardID, d)
		if err != nil {
			return nil, err
		}
		days = append(days, models.DayAvailability{Date: d.Format(dateLayout), Available: available})
	}
	return days, nil
}

// GetRules returns a card's weekly schedule.
func (s *AvailabilityService) GetRules(ctx context.Context, cardID string) ([]models.AvailabilityRule, error) {
	if err := s.requireCard(ctx, cardID); err != nil {
		return nil, err
	}
	rules, err := s.store.ListRules(ctx, cardID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	return rules, nil
}

// SaveRules replaces the card's weekly schedule wholesale.
func (s *AvailabilityService) SaveRules(ctx context.Context, cardID string, req dto.SaveRulesRequest) ([]models.AvailabilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rules payload")
	}
	if err := s.requireCard(ctx, cardID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(req.Rules))
	rules := make([]models.AvailabilityRule, 0, len(req.Rules))
	for _, in := range req.Rules {
		if in.EndTime <= in.StartTime {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rule for day %d has end before start", in.DayOfWeek))
		}
		if (in.BreakStartTime == nil) != (in.BreakEndTime == nil) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rule for day %d has an incomplete break", in.DayOfWeek))
		}
		if in.BreakStartTime != nil && *in.BreakEndTime <= *in.BreakStartTime {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("rule for day %d has break end before start", in.DayOfWeek))
		}
		key := fmt.Sprintf("%d", in.DayOfWeek)
		if in.ServiceID != nil {
			key += ":" + *in.ServiceID
		}
		if seen[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate rule for day %d", in.DayOfWeek))
		}
		seen[key] = true

		rules = append(rules, models.AvailabilityRule{
			CardID:         cardID,
			DayOfWeek:      in.DayOfWeek,
			StartTime:      in.StartTime,
			EndTime:        in.EndTime,
			BreakStartTime: in.BreakStartTime,
			BreakEndTime:   in.BreakEndTime,
			ServiceID:      in.ServiceID,
			Active:         in.Active,
		})
	}

	if err := s.store.ReplaceRules(ctx, cardID, rules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability rules")
	}
	return rules, nil
}

// CreateDefaultRules seeds Monday to Friday 09:00-17:00 for a new card.
func (s *AvailabilityService) CreateDefaultRules(ctx context.Context, cardID string) ([]models.AvailabilityRule, error) {
	req := dto.SaveRulesRequest{}
	for day := 1; day <= 5; day++ {
		req.Rules = append(req.Rules, dto.RuleInput{
			DayOfWeek: day,
			StartTime: models.NewTimeOfDay(9, 0),
			EndTime:   models.NewTimeOfDay(17, 0),
			Active:    true,
		})
	}
	return s.SaveRules(ctx, cardID, req)
}

// GetExceptions lists a card's exceptions within [from, to].
func (s *AvailabilityService) GetExceptions(ctx context.Context, cardID, fromStr, toStr string) ([]models.AvailabilityException, error) {
	if err := s.requireCard(ctx, cardID); err != nil {
		return nil, err
	}
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
	}
	exceptions, err := s.store.ListExceptionsBetween(ctx, cardID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability exceptions")
	}
	return exceptions, nil
}

// CreateException adds a new date-specific exception for the card.
func (s *AvailabilityService) CreateException(ctx context.Context, cardID string, req dto.ExceptionRequest) (*models.AvailabilityException, error) {
	ex, err := s.buildException(ctx, cardID, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateException(ctx, ex); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability exception")
	}
	return ex, nil
}

// UpdateException edits an existing exception owned by the card.
func (s *AvailabilityService) UpdateException(ctx context.Context, cardID, id string, req dto.ExceptionRequest) (*models.AvailabilityException, error) {
	existing, err := s.store.FindExceptionByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability exception not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability exception")
	}
	if existing.CardID != cardID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exception belongs to another card")
	}

	ex, err := s.buildException(ctx, cardID, req)
	if err != nil {
		return nil, err
	}
	ex.ID = existing.ID
	if err := s.store.UpdateException(ctx, ex); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability exception")
	}
	return ex, nil
}

// DeleteException removes an exception owned by the card.
func (s *AvailabilityService) DeleteException(ctx context.Context, cardID, id string) error {
	existing, err := s.store.FindExceptionByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "availability exception not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability exception")
	}
	if existing.CardID != cardID {
		return appErrors.Clone(appErrors.ErrForbidden, "exception belongs to another card")
	}
	if err := s.store.DeleteException(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability exception")
	}
	return nil
}

// GetSettings returns the card's booking settings, falling back to defaults
// when the card never saved any.
func (s *AvailabilityService) GetSettings(ctx context.Context, cardID string) (*models.BookingSettings, error) {
	if err := s.requireCard(ctx, cardID); err != nil {
		return nil, err
	}
	settings, err := s.settings.FindByCard(ctx, cardID)
	if err != nil {
		if err == sql.ErrNoRows {
			return &models.BookingSettings{
				CardID:              cardID,
				Timezone:            s.defaultTimezone,
				SlotIntervalMinutes: 30,
				MaxAdvanceDays:      60,
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking settings")
	}
	return settings, nil
}

// SaveSettings validates and upserts the card's booking settings.
func (s *AvailabilityService) SaveSettings(ctx context.Context, cardID string, req dto.SettingsRequest) (*models.BookingSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if err := s.requireCard(ctx, cardID); err != nil {
		return nil, err
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown timezone")
	}

	settings := &models.BookingSettings{
		CardID:                cardID,
		Timezone:              req.Timezone,
		SlotIntervalMinutes:   req.SlotIntervalMinutes,
		BufferBeforeMinutes:   req.BufferBeforeMinutes,
		BufferAfterMinutes:    req.BufferAfterMinutes,
		MaxAppointmentsPerDay: req.MaxAppointmentsPerDay,
		MinNoticeMinutes:      req.MinNoticeMinutes,
		MaxAdvanceDays:        req.MaxAdvanceDays,
	}
	if err := s.settings.Upsert(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save booking settings")
	}
	return settings, nil
}

func (s *AvailabilityService) buildException(ctx context.Context, cardID string, req dto.ExceptionRequest) (*models.AvailabilityException, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exception payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown exception kind")
	}
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start and end time must be provided together")
	}
	if req.Kind == models.ExceptionExtraHours && req.StartTime == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "extra hours require start and end times")
	}
	if req.StartTime != nil && *req.EndTime <= *req.StartTime {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exception end must be after start")
	}
	if err := s.requireCard(ctx, cardID); err != nil {
		return nil, err
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid exception date")
	}

	return &models.AvailabilityException{
		CardID:    cardID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Kind:      req.Kind,
	}, nil
}

func (s *AvailabilityService) requireCard(ctx context.Context, cardID string) error {
	if _, err := s.cards.FindByID(ctx, cardID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "card not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load card")
	}
	return nil
}
