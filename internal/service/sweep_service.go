package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datatouch/booking-api/internal/models"
	"github.com/datatouch/booking-api/pkg/jobs"
)

type reminderStore interface {
	ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]models.Appointment, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

// ReminderNotifier delivers a reminder to the customer. The production
// notifier lives in the messaging service; tests and local runs use the
// logging notifier below.
type ReminderNotifier interface {
	SendReminder(ctx context.Context, appt models.Appointment) error
}

type reminderMetrics interface {
	IncReminderSent()
}

// LogNotifier writes reminders to the log instead of delivering them.
type LogNotifier struct {
	Logger *zap.Logger
}

// SendReminder logs the reminder.
func (n *LogNotifier) SendReminder(_ context.Context, appt models.Appointment) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("reminder due",
		zap.String("appointment_id", appt.ID),
		zap.String("customer_email", appt.CustomerEmail),
		zap.Time("start_at", appt.StartAt),
	)
	return nil
}

// SweepConfig tunes the reminder sweep cadence.
type SweepConfig struct {
	Interval     time.Duration
	ReminderLead time.Duration
	Workers      int
}

// SweepService periodically finds confirmed appointments starting within
// the reminder lead window and dispatches one reminder each through a
// worker queue. It runs outside the request path.
type SweepService struct {
	store    reminderStore
	notifier ReminderNotifier
	metrics  reminderMetrics
	logger   *zap.Logger
	cfg      SweepConfig

	queue  *jobs.Queue
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSweepService constructs SweepService.
func NewSweepService(store reminderStore, notifier ReminderNotifier, metrics reminderMetrics, logger *zap.Logger, cfg SweepConfig) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.ReminderLead <= 0 {
		cfg.ReminderLead = 24 * time.Hour
	}

	s := &SweepService{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
	s.queue = jobs.NewQueue("reminders", s.deliver, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// Start launches the queue workers and the periodic sweep loop.
func (s *SweepService) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.queue.Start(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()
	s.logger.Info("reminder sweep started", zap.Duration("interval", s.cfg.Interval), zap.Duration("lead", s.cfg.ReminderLead))
}

// Stop halts the sweep loop and drains the workers.
func (s *SweepService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.queue.Stop()
}

// SweepOnce enqueues a reminder for every confirmed appointment starting
// within the lead window that has not been reminded yet. It returns the
// number of reminders enqueued.
func (s *SweepService) SweepOnce(ctx context.Context) int {
	due, err := s.store.ListDueReminders(ctx, time.Now().UTC(), s.cfg.ReminderLead)
	if err != nil {
		s.logger.Error("reminder sweep query failed", zap.Error(err))
		return 0
	}
	enqueued := 0
	for _, appt := range due {
		job := jobs.Job{ID: appt.ID, Type: "reminder", Payload: appt}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue reminder", zap.String("appointment_id", appt.ID), zap.Error(err))
			continue
		}
		enqueued++
	}
	if enqueued > 0 {
		s.logger.Info("reminders enqueued", zap.Int("count", enqueued))
	}
	return enqueued
}

func (s *SweepService) deliver(ctx context.Context, job jobs.Job) error {
	appt, ok := job.Payload.(models.Appointment)
	if !ok {
		return fmt.Errorf("unexpected reminder payload for job %s", job.ID)
	}
	if err := s.notifier.SendReminder(ctx, appt); err != nil {
		return fmt.Errorf("send reminder for %s: %w", appt.ID, err)
	}
	if err := s.store.MarkReminderSent(ctx, appt.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark reminder sent for %s: %w", appt.ID, err)
	}
	if s.metrics != nil {
		s.metrics.IncReminderSent()
	}
	return nil
}
