package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatouch/booking-api/internal/dto"
	"github.com/datatouch/booking-api/internal/models"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
)

type publicBookingServiceMock struct {
	services   []models.Service
	slots      []models.TimeSlot
	created    *models.Appointment
	createErr  error
	slotsErr   error
	lastSource string
}

func (m *publicBookingServiceMock) PublicServices(_ context.Context, _ string) ([]models.Service, error) {
	return m.services, nil
}

func (m *publicBookingServiceMock) GetAvailableSlots(_ context.Context, _, _ string, _ *string) ([]models.TimeSlot, error) {
	if m.slotsErr != nil {
		return nil, m.slotsErr
	}
	return m.slots, nil
}

func (m *publicBookingServiceMock) CreateAppointment(_ context.Context, _ string, req dto.CreateAppointmentRequest) (*models.Appointment, error) {
	m.lastSource = req.Source
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.created, nil
}

type dayAvailabilityMock struct {
	days     []models.DayAvailability
	err      error
	lastFrom string
	lastTo   string
}

func (m *dayAvailabilityMock) AvailableDays(_ context.Context, _, from, to string) ([]models.DayAvailability, error) {
	m.lastFrom = from
	m.lastTo = to
	if m.err != nil {
		return nil, m.err
	}
	return m.days, nil
}

func newBookingTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, target, nil)
	}
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "cardId", Value: "card-1"}}
	return c, w
}

func TestBookingHandlerSlotsRequiresDate(t *testing.T) {
	handler := NewBookingHandler(&publicBookingServiceMock{}, &dayAvailabilityMock{})
	c, w := newBookingTestContext(t, http.MethodGet, "/public/cards/card-1/slots", nil)

	handler.Slots(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerSlots(t *testing.T) {
	mock := &publicBookingServiceMock{slots: []models.TimeSlot{
		{StartTime: models.NewTimeOfDay(9, 0), EndTime: models.NewTimeOfDay(9, 30), Available: true},
	}}
	handler := NewBookingHandler(mock, &dayAvailabilityMock{})
	c, w := newBookingTestContext(t, http.MethodGet, "/public/cards/card-1/slots?date=2026-09-07", nil)

	handler.Slots(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.TimeSlot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "09:00", envelope.Data[0].StartTime.String())
}

func TestBookingHandlerCreateForcesPublicSource(t *testing.T) {
	mock := &publicBookingServiceMock{created: &models.Appointment{ID: "appt-1", Status: models.StatusPending}}
	handler := NewBookingHandler(mock, &dayAvailabilityMock{})
	body, _ := json.Marshal(dto.CreateAppointmentRequest{
		Date:          "2026-09-07",
		StartTime:     models.NewTimeOfDay(9, 0),
		CustomerName:  "Ana Morales",
		CustomerEmail: "ana@example.com",
	})
	c, w := newBookingTestContext(t, http.MethodPost, "/public/cards/card-1/appointments", body)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.SourcePublic, mock.lastSource)
}

func TestBookingHandlerCreateConflict(t *testing.T) {
	mock := &publicBookingServiceMock{createErr: appErrors.ErrSlotUnavailable}
	handler := NewBookingHandler(mock, &dayAvailabilityMock{})
	body, _ := json.Marshal(dto.CreateAppointmentRequest{
		Date:          "2026-09-07",
		StartTime:     models.NewTimeOfDay(9, 0),
		CustomerName:  "Ana Morales",
		CustomerEmail: "ana@example.com",
	})
	c, w := newBookingTestContext(t, http.MethodPost, "/public/cards/card-1/appointments", body)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrSlotUnavailable.Code, envelope.Error.Code)
}

func TestBookingHandlerCreateInvalidBody(t *testing.T) {
	handler := NewBookingHandler(&publicBookingServiceMock{}, &dayAvailabilityMock{})
	c, w := newBookingTestContext(t, http.MethodPost, "/public/cards/card-1/appointments", []byte(`not-json`))

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerDays(t *testing.T) {
	mock := &dayAvailabilityMock{days: []models.DayAvailability{
		{Date: "2026-09-07", Available: true},
		{Date: "2026-09-08", Available: false},
	}}
	handler := NewBookingHandler(&publicBookingServiceMock{}, mock)
	c, w := newBookingTestContext(t, http.MethodGet, "/public/cards/card-1/days?from=2026-09-07&to=2026-09-08", nil)

	handler.Days(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-09-07", mock.lastFrom)
	assert.Equal(t, "2026-09-08", mock.lastTo)

	var envelope struct {
		Data []models.DayAvailability `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	assert.True(t, envelope.Data[0].Available)
	assert.False(t, envelope.Data[1].Available)
}

func TestBookingHandlerDaysBadRange(t *testing.T) {
	mock := &dayAvailabilityMock{err: appErrors.Clone(appErrors.ErrValidation, "to must not be before from")}
	handler := NewBookingHandler(&publicBookingServiceMock{}, mock)
	c, w := newBookingTestContext(t, http.MethodGet, "/public/cards/card-1/days?from=2026-09-08&to=2026-09-07", nil)

	handler.Days(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerServices(t *testing.T) {
	mock := &publicBookingServiceMock{services: []models.Service{{ID: "svc-1", Name: "Consultation", Active: true}}}
	handler := NewBookingHandler(mock, &dayAvailabilityMock{})
	c, w := newBookingTestContext(t, http.MethodGet, "/public/cards/card-1/services", nil)

	handler.Services(c)
	require.Equal(t, http.StatusOK, w.Code)
}
