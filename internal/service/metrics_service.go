package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the booking API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	appointmentsCreated *prometheus.CounterVec
	bookingConflicts    *prometheus.CounterVec
	slotsComputed       prometheus.Histogram
	remindersSent       prometheus.Counter
}

// NewMetricsService registers the API's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	appointmentsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_appointments_created_total",
		Help: "Appointments created, by source",
	}, []string{"source"})

	bookingConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Slot conflicts observed, by operation",
	}, []string{"operation"})

	slotsComputed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_slots_computed",
		Help:    "Number of candidate slots produced per availability query",
		Buckets: []float64{0, 5, 10, 20, 40, 80},
	})

	remindersSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_reminders_sent_total",
		Help: "Appointment reminders dispatched by the sweep",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, appointmentsCreated, bookingConflicts, slotsComputed, remindersSent, goroutines)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		appointmentsCreated: appointmentsCreated,
		bookingConflicts:    bookingConflicts,
		slotsComputed:       slotsComputed,
		remindersSent:       remindersSent,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request timing and counts.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// IncAppointmentCreated counts a successful booking by source.
func (m *MetricsService) IncAppointmentCreated(source string) {
	if m == nil {
		return
	}
	m.appointmentsCreated.WithLabelValues(source).Inc()
}

// IncBookingConflict counts a lost slot race by operation.
func (m *MetricsService) IncBookingConflict(operation string) {
	if m == nil {
		return
	}
	m.bookingConflicts.WithLabelValues(operation).Inc()
}

// ObserveSlotsComputed records the size of a computed slot list.
func (m *MetricsService) ObserveSlotsComputed(count int) {
	if m == nil {
		return
	}
	m.slotsComputed.Observe(float64(count))
}

// IncReminderSent counts a dispatched appointment reminder.
func (m *MetricsService) IncReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}
