package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/datatouch/booking-api/internal/dto"
	"github.com/datatouch/booking-api/internal/models"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
	"github.com/datatouch/booking-api/pkg/response"
)

type appointmentService interface {
	ListAppointments(ctx context.Context, cardID string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error)
	GetAppointment(ctx context.Context, cardID, id string) (*models.Appointment, error)
	CreateAppointment(ctx context.Context, cardID string, req dto.CreateAppointmentRequest) (*models.Appointment, error)
	Reschedule(ctx context.Context, cardID, id string, req dto.RescheduleRequest) (*models.Appointment, error)
	UpdateStatus(ctx context.Context, cardID, id string, req dto.UpdateStatusRequest) (*models.Appointment, error)
	Cancel(ctx context.Context, cardID, id string, req dto.CancelRequest, actorUserID *string) (*models.Appointment, error)
	Restore(ctx context.Context, cardID, id string) (*models.Appointment, error)
	ExportAppointments(ctx context.Context, cardID string, filter models.AppointmentFilter, format string) ([]byte, string, error)
}

// AppointmentHandler exposes the authenticated CRM appointment endpoints.
type AppointmentHandler struct {
	service appointmentService
}

// NewAppointmentHandler builds a new handler.
func NewAppointmentHandler(service appointmentService) *AppointmentHandler {
	return &AppointmentHandler{service: service}
}

func parseAppointmentFilter(c *gin.Context) (models.AppointmentFilter, error) {
	var filter models.AppointmentFilter
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
		}
		end := to.Add(24*time.Hour - time.Second)
		filter.To = &end
	}
	if raw := c.Query("status"); raw != "" {
		status := models.AppointmentStatus(raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
		}
		filter.Status = status
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter, nil
}

// List godoc
// @Summary List a card's appointments
// @Tags Appointments
// @Produce json
// @Param cardId path string true "Card ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	filter, err := parseAppointmentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	appointments, pagination, err := h.service.ListAppointments(c.Request.Context(), c.Param("cardId"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appointments, pagination)
}

// Get godoc
// @Summary Get one appointment
// @Tags Appointments
// @Produce json
// @Param cardId path string true "Card ID"
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.service.GetAppointment(c.Request.Context(), c.Param("cardId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Create godoc
// @Summary Create an appointment manually
// @Tags Appointments
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param payload body dto.CreateAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Router /cards/{cardId}/appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req dto.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}
	req.Source = models.SourceManual

	appt, err := h.service.CreateAppointment(c.Request.Context(), c.Param("cardId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// Reschedule godoc
// @Summary Move an appointment to a new time
// @Tags Appointments
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param id path string true "Appointment ID"
// @Param payload body dto.RescheduleRequest true "New start time"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cards/{cardId}/appointments/{id}/reschedule [post]
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reschedule payload"))
		return
	}
	appt, err := h.service.Reschedule(c.Request.Context(), c.Param("cardId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// UpdateStatus godoc
// @Summary Advance the appointment lifecycle
// @Tags Appointments
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param id path string true "Appointment ID"
// @Param payload body dto.UpdateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/appointments/{id}/status [patch]
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	appt, err := h.service.UpdateStatus(c.Request.Context(), c.Param("cardId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Cancel godoc
// @Summary Cancel an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param id path string true "Appointment ID"
// @Param payload body dto.CancelRequest true "Cancel reason"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancel payload"))
		return
	}
	var actorUserID *string
	if claims := claimsFromContext(c); claims != nil {
		actorUserID = &claims.UserID
	}
	appt, err := h.service.Cancel(c.Request.Context(), c.Param("cardId"), c.Param("id"), req, actorUserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Restore godoc
// @Summary Restore a cancelled appointment
// @Tags Appointments
// @Produce json
// @Param cardId path string true "Card ID"
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /cards/{cardId}/appointments/{id}/restore [post]
func (h *AppointmentHandler) Restore(c *gin.Context) {
	appt, err := h.service.Restore(c.Request.Context(), c.Param("cardId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Export godoc
// @Summary Export appointments as CSV or PDF
// @Tags Appointments
// @Produce octet-stream
// @Param cardId path string true "Card ID"
// @Param format query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /cards/{cardId}/appointments/export [get]
func (h *AppointmentHandler) Export(c *gin.Context) {
	filter, err := parseAppointmentFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := c.DefaultQuery("format", "csv")
	raw, contentType, err := h.service.ExportAppointments(c.Request.Context(), c.Param("cardId"), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("appointments-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, raw)
}
