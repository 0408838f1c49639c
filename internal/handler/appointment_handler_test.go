package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatouch/booking-api/internal/dto"
	"github.com/datatouch/booking-api/internal/middleware"
	"github.com/datatouch/booking-api/internal/models"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
)

type appointmentServiceMock struct {
	appointments []models.Appointment
	appt         *models.Appointment
	lastFilter   models.AppointmentFilter
	lastSource   string
	lastActor    *string
	err          error
}

func (m *appointmentServiceMock) ListAppointments(_ context.Context, _ string, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	m.lastFilter = filter
	return m.appointments, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.appointments)}, nil
}

func (m *appointmentServiceMock) GetAppointment(_ context.Context, _, _ string) (*models.Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.appt, nil
}

func (m *appointmentServiceMock) CreateAppointment(_ context.Context, _ string, req dto.CreateAppointmentRequest) (*models.Appointment, error) {
	m.lastSource = req.Source
	if m.err != nil {
		return nil, m.err
	}
	return m.appt, nil
}

func (m *appointmentServiceMock) Reschedule(_ context.Context, _, _ string, _ dto.RescheduleRequest) (*models.Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.appt, nil
}

func (m *appointmentServiceMock) UpdateStatus(_ context.Context, _, _ string, _ dto.UpdateStatusRequest) (*models.Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.appt, nil
}

func (m *appointmentServiceMock) Cancel(_ context.Context, _, _ string, _ dto.CancelRequest, actorUserID *string) (*models.Appointment, error) {
	m.lastActor = actorUserID
	if m.err != nil {
		return nil, m.err
	}
	return m.appt, nil
}

func (m *appointmentServiceMock) Restore(_ context.Context, _, _ string) (*models.Appointment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.appt, nil
}

func (m *appointmentServiceMock) ExportAppointments(_ context.Context, _ string, _ models.AppointmentFilter, format string) ([]byte, string, error) {
	if format == "pdf" {
		return []byte("%PDF"), "application/pdf", nil
	}
	return []byte("Start,End\n"), "text/csv", nil
}

func newCRMTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
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
	c.Params = gin.Params{{Key: "cardId", Value: "card-1"}, {Key: "id", Value: "appt-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", OrganizationID: "org-1", Role: models.RoleStaff})
	return c, w
}

func TestAppointmentHandlerListParsesFilter(t *testing.T) {
	mock := &appointmentServiceMock{}
	handler := NewAppointmentHandler(mock)
	c, w := newCRMTestContext(t, http.MethodGet, "/cards/card-1/appointments?from=2026-09-01&to=2026-09-30&status=confirmed&page=2&page_size=10", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastFilter.From)
	require.NotNil(t, mock.lastFilter.To)
	assert.Equal(t, models.StatusConfirmed, mock.lastFilter.Status)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 10, mock.lastFilter.PageSize)
	// to filter covers the whole day
	assert.Equal(t, 23, mock.lastFilter.To.Hour())
}

func TestAppointmentHandlerListRejectsBadStatus(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{})
	c, w := newCRMTestContext(t, http.MethodGet, "/cards/card-1/appointments?status=bogus", nil)

	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandlerCreateForcesManualSource(t *testing.T) {
	mock := &appointmentServiceMock{appt: &models.Appointment{ID: "appt-1"}}
	handler := NewAppointmentHandler(mock)
	body, _ := json.Marshal(dto.CreateAppointmentRequest{
		Date:          "2026-09-07",
		StartTime:     models.NewTimeOfDay(9, 0),
		CustomerName:  "Ana Morales",
		CustomerEmail: "ana@example.com",
		InitialStatus: models.StatusConfirmed,
	})
	c, w := newCRMTestContext(t, http.MethodPost, "/cards/card-1/appointments", body)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.SourceManual, mock.lastSource)
}

func TestAppointmentHandlerCancelPassesActor(t *testing.T) {
	mock := &appointmentServiceMock{appt: &models.Appointment{ID: "appt-1", Status: models.StatusCancelled}}
	handler := NewAppointmentHandler(mock)
	body, _ := json.Marshal(dto.CancelRequest{Reason: "customer request"})
	c, w := newCRMTestContext(t, http.MethodPost, "/cards/card-1/appointments/appt-1/cancel", body)

	handler.Cancel(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastActor)
	assert.Equal(t, "user-1", *mock.lastActor)
}

func TestAppointmentHandlerRescheduleConflict(t *testing.T) {
	mock := &appointmentServiceMock{err: appErrors.ErrSlotUnavailable}
	handler := NewAppointmentHandler(mock)
	body, _ := json.Marshal(dto.RescheduleRequest{NewStart: time.Date(2026, 9, 8, 14, 0, 0, 0, time.UTC)})
	c, w := newCRMTestContext(t, http.MethodPost, "/cards/card-1/appointments/appt-1/reschedule", body)

	handler.Reschedule(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAppointmentHandlerRestoreNotFound(t *testing.T) {
	mock := &appointmentServiceMock{err: appErrors.ErrNotFound}
	handler := NewAppointmentHandler(mock)
	c, w := newCRMTestContext(t, http.MethodPost, "/cards/card-1/appointments/appt-1/restore", nil)

	handler.Restore(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppointmentHandlerExportCSV(t *testing.T) {
	handler := NewAppointmentHandler(&appointmentServiceMock{})
	c, w := newCRMTestContext(t, http.MethodGet, "/cards/card-1/appointments/export?format=csv", nil)

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
}
