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

type availabilityManager interface {
	GetRules(ctx context.Context, cardID string) ([]models.AvailabilityRule, error)
	SaveRules(ctx context.Context, cardID string, req dto.SaveRulesRequest) ([]models.AvailabilityRule, error)
	CreateDefaultRules(ctx context.Context, cardID string) ([]models.AvailabilityRule, error)
	GetExceptions(ctx context.Context, cardID, from, to string) ([]models.AvailabilityException, error)
	CreateException(ctx context.Context, cardID string, req dto.ExceptionRequest) (*models.AvailabilityException, error)
	UpdateException(ctx context.Context, cardID, id string, req dto.ExceptionRequest) (*models.AvailabilityException, error)
	DeleteException(ctx context.Context, cardID, id string) error
	GetSettings(ctx context.Context, cardID string) (*models.BookingSettings, error)
	SaveSettings(ctx context.Context, cardID string, req dto.SettingsRequest) (*models.BookingSettings, error)
}

// AvailabilityHandler exposes the CRM schedule management endpoints.
type AvailabilityHandler struct {
	service availabilityManager
}

// NewAvailabilityHandler builds a new handler.
func NewAvailabilityHandler(service availabilityManager) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// GetRules godoc
// @Summary Get the card's weekly schedule
// @Tags Availability
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/availability/rules [get]
func (h *AvailabilityHandler) GetRules(c *gin.Context) {
	rules, err := h.service.GetRules(c.Request.Context(), c.Param("cardId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// SaveRules godoc
// @Summary Replace the card's weekly schedule
// @Tags Availability
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param payload body dto.SaveRulesRequest true "Weekly rules"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/availability/rules [put]
func (h *AvailabilityHandler) SaveRules(c *gin.Context) {
	var req dto.SaveRulesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rules payload"))
		return
	}
	rules, err := h.service.SaveRules(c.Request.Context(), c.Param("cardId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// CreateDefaults godoc
// @Summary Seed a default Monday-Friday schedule
// @Tags Availability
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 201 {object} response.Envelope
// @Router /cards/{cardId}/availability/rules/defaults [post]
func (h *AvailabilityHandler) CreateDefaults(c *gin.Context) {
	rules, err := h.service.CreateDefaultRules(c.Request.Context(), c.Param("cardId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rules)
}

// ListExceptions godoc
// @Summary List date exceptions in a range
// @Tags Availability
// @Produce json
// @Param cardId path string true "Card ID"
// @Param from query string true "From date (YYYY-MM-DD)"
// @Param to query string true "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/availability/exceptions [get]
func (h *AvailabilityHandler) ListExceptions(c *gin.Context) {
	exceptions, err := h.service.GetExceptions(c.Request.Context(), c.Param("cardId"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exceptions, nil)
}

// CreateException godoc
// @Summary Add a date exception
// @Tags Availability
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param payload body dto.ExceptionRequest true "Exception payload"
// @Success 201 {object} response.Envelope
// @Router /cards/{cardId}/availability/exceptions [post]
func (h *AvailabilityHandler) CreateException(c *gin.Context) {
	var req dto.ExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exception payload"))
		return
	}
	ex, err := h.service.CreateException(c.Request.Context(), c.Param("cardId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ex)
}

// UpdateException godoc
// @Summary Edit a date exception
// @Tags Availability
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param id path string true "Exception ID"
// @Param payload body dto.ExceptionRequest true "Exception payload"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/availability/exceptions/{id} [put]
func (h *AvailabilityHandler) UpdateException(c *gin.Context) {
	var req dto.ExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exception payload"))
		return
	}
	ex, err := h.service.UpdateException(c.Request.Context(), c.Param("cardId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ex, nil)
}

// DeleteException godoc
// @Summary Remove a date exception
// @Tags Availability
// @Param cardId path string true "Card ID"
// @Param id path string true "Exception ID"
// @Success 204
// @Router /cards/{cardId}/availability/exceptions/{id} [delete]
func (h *AvailabilityHandler) DeleteException(c *gin.Context) {
	if err := h.service.DeleteException(c.Request.Context(), c.Param("cardId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetSettings godoc
// @Summary Get booking settings
// @Tags Availability
// @Produce json
// @Param cardId path string true "Card ID"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/booking-settings [get]
func (h *AvailabilityHandler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context(), c.Param("cardId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}

// SaveSettings godoc
// @Summary Update booking settings
// @Tags Availability
// @Accept json
// @Produce json
// @Param cardId path string true "Card ID"
// @Param payload body dto.SettingsRequest true "Settings payload"
// @Success 200 {object} response.Envelope
// @Router /cards/{cardId}/booking-settings [put]
func (h *AvailabilityHandler) SaveSettings(c *gin.Context) {
	var req dto.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid settings payload"))
		return
	}
	settings, err := h.service.SaveSettings(c.Request.Context(), c.Param("cardId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, settings, nil)
}
