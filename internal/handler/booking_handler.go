package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/datatouch/booking-api/internal/dto"
	"github.com/datatouch/booking-api/internal/models"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
	"github.com/datatouch/booking-api/pkg/response"
)

type publicBookingService interface {
	PublicServices(ctx context.Context, cardID string) ([]models.Service, error)
	GetAvailableSlots(ctx context.Context, cardID, date string, serviceID *string) ([]models.TimeSlot, error)
	CreateAppointment(ctx context.Context, cardID string, req dto.CreateAppointmentRequest) (*models.Appointment, error)
}

type dayAvailabilityReader interface {
	AvailableDays(ctx context.Context, cardID, from, to string) ([]models.DayAvailability, error)
}

// BookingHandler exposes the public, unauthenticated booking endpoints a
// card's visitors use.
type BookingHandler struct {
	service publicBookingService
	days    dayAvailabilityReader
}

// NewBookingHandler builds a new handler.
func NewBookingHandler(service publicBookingService, days dayAvailabilityReader) *BookingHandler {
	return &BookingHandler{service: service, days: days}
}

// Days godoc
// @Summary Mark which dates in a range have any availability
// @Tags PublicBooking
// @Produce json
// @Param cardId path string true "Card ID"
// @Param from query string true "From date (YYYY-MM-DD)"
// @Param to query string true "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /public/cards/{cardId}/days [get]
func (h *BookingHandler) Days(c *gin.Context) {
	days, err := h.days.AvailableDays(c.Request.Context(), c.Param("cardId"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// Services godoc
// @Summary List bookable services for a card
// @Tags PublicBooking
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} response.Envelope
// @Router /public/cards/{cardId}/services [get]
func (h *BookingHandler) Services(c *gin.Context) {
	services, err := h.service.PublicServices(c.Request.Context(), c.Param("cardId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, services, nil)
}

// Slots godoc
// @Summary List available slots for a card on a date
// @Tags PublicBooking
// @Produce json
// @Param cardId path string true "Card ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param service_id query string false "Service ID"
// @Success 200 {object} response.Envelope
// @Router /public/cards/{cardId}/slots [get]
func (h *BookingHandler) Slots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	var serviceID *string
	if raw := c.Query("service_id"); raw != "" {
		serviceID = &raw
	}

	slots, err := h.service.GetAvailableSlots(c.Request.Context(), c.Param("cardId"), date, serviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Create godoc
// @Summary Book an appointment
// @Tags PublicBooking
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param payload body dto.CreateAppointmentRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /public/cards/{cardId}/appointments [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	req.Source = models.SourcePublic
	req.InitialStatus = ""

	appt, err := h.service.CreateAppointment(c.Request.Context(), c.Param("cardId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}
