package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/datatouch/booking-api/internal/dto"
	"github.com/datatouch/booking-api/internal/models"
	"github.com/datatouch/booking-api/internal/repository"
	"github.com/datatouch/booking-api/internal/scheduling"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
	"github.com/datatouch/booking-api/pkg/export"
)

type appointmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	List(ctx context.Context, cardID string, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	ListActiveBetween(ctx context.Context, cardID string, from, to time.Time) ([]models.Appointment, error)
	HasConflict(ctx context.Context, cardID string, start, end time.Time, excludeID string) (bool, error)
	CreateIfFree(ctx context.Context, appt *models.Appointment) error
	UpdateScheduleIfFree(ctx context.Context, id, cardID string, newStart, newEnd time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error
	MarkCancelled(ctx context.Context, id string, previous models.AppointmentStatus, reason string, actorUserID *string) error
	RestoreIfFree(ctx context.Context, id, cardID string, restored models.AppointmentStatus, start, end time.Time) error
}

type slotComputer interface {
	ComputeSlots(ctx context.Context, cardID string, date time.Time, serviceID *string, durationMinutes int) ([]models.TimeSlot, error)
}

type serviceReader interface {
	FindByID(ctx context.Context, id string) (*models.Service, error)
	ListActiveByCard(ctx context.Context, cardID string) ([]models.Service, error)
}

type bookingMetrics interface {
	IncAppointmentCreated(source string)
	IncBookingConflict(operation string)
	ObserveSlotsComputed(count int)
}

// Lifecycle transitions allowed through UpdateStatus. Cancellation and
// restore go through their own operations.
var allowedTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:   {models.StatusConfirmed},
	models.StatusConfirmed: {models.StatusCompleted, models.StatusNoShow},
}

const servicesCacheKeyPrefix = "booking:services:"

// BookingService coordinates slot queries and the appointment lifecycle.
// The conflict pre-checks here fail fast with a friendly message; the
// repository's guarded writes are what actually prevent double booking.
type BookingService struct {
	appointments appointmentStore
	slots        slotComputer
	services     serviceReader
	cards        cardReader
	redis        *redis.Client
	metrics      bookingMetrics
	validator    *validator.Validate
	logger       *zap.Logger

	defaultDurationMinutes int
	defaultTimezone        string
	servicesCacheTTL       time.Duration

	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
}

// BookingServiceParams bundles the collaborators of BookingService.
type BookingServiceParams struct {
	Appointments appointmentStore
	Slots        slotComputer
	Services     serviceReader
	Cards        cardReader
	Redis        *redis.Client
	Metrics      bookingMetrics
	Validator    *validator.Validate
	Logger       *zap.Logger

	DefaultDurationMinutes int
	DefaultTimezone        string
	ServicesCacheTTL       time.Duration
}

// NewBookingService constructs BookingService.
func NewBookingService(p BookingServiceParams) *BookingService {
	if p.Validator == nil {
		p.Validator = validator.New()
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.DefaultDurationMinutes <= 0 {
		p.DefaultDurationMinutes = 30
	}
	return &BookingService{
		appointments:           p.Appointments,
		slots:                  p.Slots,
		services:               p.Services,
		cards:                  p.Cards,
		redis:                  p.Redis,
		metrics:                p.Metrics,
		validator:              p.Validator,
		logger:                 p.Logger,
		defaultDurationMinutes: p.DefaultDurationMinutes,
		defaultTimezone:        p.DefaultTimezone,
		servicesCacheTTL:       p.ServicesCacheTTL,
		csvExporter:            export.NewCSVExporter(),
		pdfExporter:            export.NewPDFExporter(),
	}
}

// PublicServices lists the card's active services for the public booking
// page, served from Redis when warm.
func (s *BookingService) PublicServices(ctx context.Context, cardID string) ([]models.Service, error) {
	card, err := s.loadCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	cacheKey := servicesCacheKeyPrefix + card.ID
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached []models.Service
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	services, err := s.services.ListActiveByCard(ctx, card.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list services")
	}

	if s.redis != nil {
		if raw, err := json.Marshal(services); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, s.servicesCacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache services", zap.String("card_id", card.ID), zap.Error(err))
			}
		}
	}
	return services, nil
}

// InvalidateServicesCache drops the cached public services list for a card.
func (s *BookingService) InvalidateServicesCache(ctx context.Context, cardID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, servicesCacheKeyPrefix+cardID).Err(); err != nil {
		s.logger.Warn("failed to invalidate services cache", zap.String("card_id", cardID), zap.Error(err))
	}
}

// GetAvailableSlots returns the card's bookable slots for a date: the
// computed rule/exception windows minus every window an existing
// non-cancelled appointment occupies.
func (s *BookingService) GetAvailableSlots(ctx context.Context, cardID, dateStr string, serviceID *string) ([]models.TimeSlot, error) {
	card, err := s.loadCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	loc := s.locationFor(card)
	date, err := time.ParseInLocation(dateLayout, dateStr, loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}

	duration, err := s.resolveDuration(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.slots.ComputeSlots(ctx, card.ID, date, serviceID, duration)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveSlotsComputed(len(candidates))
	}
	if len(candidates) == 0 {
		return []models.TimeSlot{}, nil
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, loc)
	booked, err := s.appointments.ListActiveBetween(ctx, card.ID, dayStart, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}

	available := make([]models.TimeSlot, 0, len(candidates))
	for _, slot := range candidates {
		start := slot.StartTime.At(date, loc)
		end := slot.EndTime.At(date, loc)
		taken := false
		for _, appt := range booked {
			if scheduling.Overlaps(start, end, appt.StartAt, appt.EndAt) {
				taken = true
				break
			}
		}
		if !taken {
			available = append(available, slot)
		}
	}
	return available, nil
}

// CreateAppointment books a slot for a customer. Public submissions start
// Pending; manual CRM entries may carry an initial status. A slot lost to a
// concurrent booking surfaces as SlotUnavailable and the caller should
// re-query slots.
func (s *BookingService) CreateAppointment(ctx context.Context, cardID string, req dto.CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}
	card, err := s.loadCard(ctx, cardID)
	if err != nil {
		return nil, err
	}

	status := models.StatusPending
	if req.Source == models.SourceManual && req.InitialStatus != "" {
		if !req.InitialStatus.Valid() || req.InitialStatus == models.StatusCancelled {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid initial status")
		}
		status = req.InitialStatus
	}
	source := req.Source
	if source == "" {
		source = models.SourcePublic
	}

	loc := s.locationFor(card)
	date, err := time.ParseInLocation(dateLayout, req.Date, loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	duration, err := s.resolveDuration(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	start := req.StartTime.At(date, loc)
	end := start.Add(time.Duration(duration) * time.Minute)

	// Fail-fast pre-check. The guarded insert below is what actually
	// decides the race.
	conflict, err := s.appointments.HasConflict(ctx, card.ID, start, end, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
	}
	if conflict {
		s.recordConflict("create")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}

	appt := &models.Appointment{
		CardID:            card.ID,
		OrganizationID:    card.OrganizationID,
		ServiceID:         req.ServiceID,
		StartAt:           start.UTC(),
		EndAt:             end.UTC(),
		Timezone:          loc.String(),
		Status:            status,
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		CustomerPhone:     req.CustomerPhone,
		CustomerPhoneCode: req.CustomerPhoneCode,
		CustomerNotes:     req.CustomerNotes,
		Source:            source,
	}
	if err := s.appointments.CreateIfFree(ctx, appt); err != nil {
		if err == repository.ErrOverlap {
			s.recordConflict("create")
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	if s.metrics != nil {
		s.metrics.IncAppointmentCreated(source)
	}
	s.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID),
		zap.String("card_id", card.ID),
		zap.String("source", source),
		zap.Time("start_at", appt.StartAt),
	)
	return appt, nil
}

// GetAppointment loads one appointment owned by the card.
func (s *BookingService) GetAppointment(ctx context.Context, cardID, id string) (*models.Appointment, error) {
	return s.loadOwnedAppointment(ctx, cardID, id)
}

// ListAppointments returns the card's appointments with filtering and
// pagination for the CRM agenda.
func (s *BookingService) ListAppointments(ctx context.Context, cardID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	if _, err := s.loadCard(ctx, cardID); err != nil {
		return nil, nil, err
	}
	appointments, total, err := s.appointments.List(ctx, cardID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return appointments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Reschedule moves an appointment to a new start; the end is recomputed
// from the service duration. The new interval must be free of other
// non-cancelled appointments.
func (s *BookingService) Reschedule(ctx context.Context, cardID, id string, req dto.RescheduleRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	appt, err := s.loadOwnedAppointment(ctx, cardID, id)
	if err != nil {
		return nil, err
	}

	duration, err := s.resolveDuration(ctx, appt.ServiceID)
	if err != nil {
		return nil, err
	}
	newStart := req.NewStart.UTC()
	newEnd := newStart.Add(time.Duration(duration) * time.Minute)

	conflict, err := s.appointments.HasConflict(ctx, appt.CardID, newStart, newEnd, appt.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
	}
	if conflict {
		s.recordConflict("reschedule")
		return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
	}

	if err := s.appointments.UpdateScheduleIfFree(ctx, appt.ID, appt.CardID, newStart, newEnd); err != nil {
		if err == repository.ErrOverlap {
			s.recordConflict("reschedule")
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reschedule appointment")
	}

	appt.StartAt = newStart
	appt.EndAt = newEnd
	s.logger.Info("appointment rescheduled", zap.String("appointment_id", appt.ID), zap.Time("new_start", newStart))
	return appt, nil
}

// UpdateStatus advances the lifecycle: pending to confirmed, confirmed to
// completed or no-show. Cancellation goes through Cancel.
func (s *BookingService) UpdateStatus(ctx context.Context, cardID, id string, req dto.UpdateStatusRequest) (*models.Appointment, error) {
	if !req.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status")
	}
	if req.Status == models.StatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "use the cancel operation to cancel")
	}
	appt, err := s.loadOwnedAppointment(ctx, cardID, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(appt.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("cannot move from %s to %s", appt.Status, req.Status))
	}
	if err := s.appointments.UpdateStatus(ctx, appt.ID, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment status")
	}
	appt.Status = req.Status
	return appt, nil
}

// Cancel marks the appointment cancelled, snapshotting the prior status so
// a restore can revert it. Cancelling twice is rejected.
func (s *BookingService) Cancel(ctx context.Context, cardID, id string, req dto.CancelRequest, actorUserID *string) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	appt, err := s.loadOwnedAppointment(ctx, cardID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == models.StatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "appointment is already cancelled")
	}

	previous := appt.Status
	if err := s.appointments.MarkCancelled(ctx, appt.ID, previous, req.Reason, actorUserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel appointment")
	}

	now := time.Now().UTC()
	appt.Status = models.StatusCancelled
	appt.PreviousStatus = &previous
	appt.CancelledAt = &now
	appt.CancelledByUserID = actorUserID
	appt.CancelReason = &req.Reason
	s.logger.Info("appointment cancelled", zap.String("appointment_id", appt.ID), zap.String("previous_status", string(previous)))
	return appt, nil
}

// Restore reverts a cancelled appointment to its pre-cancel status, provided
// its time has not been taken by a pending, confirmed or no-show
// appointment. Completed appointments do not block a restore.
func (s *BookingService) Restore(ctx context.Context, cardID, id string) (*models.Appointment, error) {
	appt, err := s.loadOwnedAppointment(ctx, cardID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != models.StatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only cancelled appointments can be restored")
	}

	restored := models.StatusPending
	if appt.PreviousStatus != nil && appt.PreviousStatus.Valid() && *appt.PreviousStatus != models.StatusCancelled {
		restored = *appt.PreviousStatus
	}

	if err := s.appointments.RestoreIfFree(ctx, appt.ID, appt.CardID, restored, appt.StartAt, appt.EndAt); err != nil {
		if err == repository.ErrOverlap {
			s.recordConflict("restore")
			return nil, appErrors.Clone(appErrors.ErrSlotUnavailable, "the original time is no longer free, reschedule instead of restoring")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore appointment")
	}

	appt.Status = restored
	appt.PreviousStatus = nil
	appt.CancelledAt = nil
	appt.CancelledByUserID = nil
	appt.CancelReason = nil
	s.logger.Info("appointment restored", zap.String("appointment_id", appt.ID), zap.String("status", string(restored)))
	return appt, nil
}

// ExportAppointments renders the card's filtered appointments as CSV or PDF.
func (s *BookingService) ExportAppointments(ctx context.Context, cardID string, filter models.AppointmentFilter, format string) ([]byte, string, error) {
	if _, err := s.loadCard(ctx, cardID); err != nil {
		return nil, "", err
	}
	filter.Page = 1
	filter.PageSize = 100
	appointments, _, err := s.appointments.List(ctx, cardID, filter)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}

	dataset := export.Dataset{
		Headers: []string{"Start", "End", "Status", "Customer", "Email", "Source"},
	}
	for _, appt := range appointments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Start":    appt.StartAt.Format(time.RFC3339),
			"End":      appt.EndAt.Format(time.RFC3339),
			"Status":   string(appt.Status),
			"Customer": appt.CustomerName,
			"Email":    appt.CustomerEmail,
			"Source":   appt.Source,
		})
	}

	switch strings.ToLower(format) {
	case "csv", "":
		raw, err := s.csvExporter.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return raw, "text/csv", nil
	case "pdf":
		raw, err := s.pdfExporter.Render(dataset, "Appointments")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return raw, "application/pdf", nil
	}
	return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
}

func (s *BookingService) resolveDuration(ctx context.Context, serviceID *string) (int, error) {
	if serviceID == nil || *serviceID == "" {
		return s.defaultDurationMinutes, nil
	}
	svc, err := s.services.FindByID(ctx, *serviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return s.defaultDurationMinutes, nil
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service")
	}
	if !svc.Active || svc.DurationMinutes <= 0 {
		return s.defaultDurationMinutes, nil
	}
	return svc.DurationMinutes, nil
}

func (s *BookingService) loadCard(ctx context.Context, cardID string) (*models.Card, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load card")
	}
	return card, nil
}

func (s *BookingService) loadOwnedAppointment(ctx context.Context, cardID, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if appt.CardID != cardID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "appointment belongs to another card")
	}
	return appt, nil
}

func (s *BookingService) locationFor(card *models.Card) *time.Location {
	tz := card.Timezone
	if tz == "" {
		tz = s.defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.logger.Warn("unknown card timezone, using UTC", zap.String("card_id", card.ID), zap.String("timezone", tz))
		return time.UTC
	}
	return loc
}

func (s *BookingService) recordConflict(operation string) {
	if s.metrics != nil {
		s.metrics.IncBookingConflict(operation)
	}
}

func transitionAllowed(from, to models.AppointmentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
