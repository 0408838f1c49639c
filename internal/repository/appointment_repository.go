package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/datatouch/booking-api/internal/models"
)

// ErrOverlap is returned when a guarded insert or update loses to an
// existing non-cancelled appointment on the same card. Callers translate
// it to the user-facing slot-unavailable failure.
var ErrOverlap = errors.New("appointment overlaps an existing booking")

const appointmentColumns = `id, card_id, organization_id, service_id, start_at, end_at, timezone, status, customer_name, customer_email, customer_phone, customer_phone_code, customer_notes, internal_notes, source, cancelled_at, cancelled_by_user_id, cancel_reason, previous_status, reminder_sent_at, created_at, updated_at`

// AppointmentRepository provides persistence for appointments. Conflict
// safety has two layers: every write that books time is guarded by a
// NOT EXISTS sub-select, and the appointments table carries an exclusion
// constraint over (card_id, tsrange(start_at, end_at)) for non-cancelled
// rows (migrations/0001_init.sql). A constraint violation is reported the
// same way as losing the guarded write.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// List returns a card's appointments with optional filtering and pagination,
// newest first.
func (r *AppointmentRepository) List(ctx context.Context, cardID string, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE card_id = $1"
	args := []interface{}{cardID}
	var conditions []string

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("start_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_at DESC LIMIT %d OFFSET %d", appointmentColumns, base, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// ListActiveBetween returns non-cancelled appointments whose start falls in
// [from, to], ordered by start time. Used to subtract booked windows from
// computed slots.
func (r *AppointmentRepository) ListActiveBetween(ctx context.Context, cardID string, from, to time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE card_id = $1 AND status <> $2 AND start_at >= $3 AND start_at <= $4 ORDER BY start_at ASC`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, cardID, models.StatusCancelled, from, to); err != nil {
		return nil, fmt.Errorf("list active appointments: %w", err)
	}
	return appointments, nil
}

// HasConflict reports whether any non-cancelled appointment on the card
// overlaps [start, end), optionally excluding one appointment id. This is
// the fail-fast pre-check; the guarded write remains authoritative.
func (r *AppointmentRepository) HasConflict(ctx context.Context, cardID string, start, end time.Time, excludeID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM appointments WHERE card_id = $1 AND status <> $2 AND start_at < $3 AND end_at > $4 AND ($5 = '' OR id <> $5))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, cardID, models.StatusCancelled, end, start, excludeID); err != nil {
		return false, fmt.Errorf("check appointment conflict: %w", err)
	}
	return exists, nil
}

// CreateIfFree atomically inserts the appointment unless a non-cancelled
// appointment on the same card overlaps its interval. Returns ErrOverlap
// when the slot was taken, whether detected by the guard or by the
// exclusion constraint.
func (r *AppointmentRepository) CreateIfFree(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO appointments (id, card_id, organization_id, service_id, start_at, end_at, timezone, status, customer_name, customer_email, customer_phone, customer_phone_code, customer_notes, internal_notes, source, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		WHERE NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE card_id = $2 AND status <> $17 AND start_at < $6 AND end_at > $5
		)`

	res, err := r.db.ExecContext(ctx, query,
		appt.ID, appt.CardID, appt.OrganizationID, appt.ServiceID,
		appt.StartAt, appt.EndAt, appt.Timezone, appt.Status,
		appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone, appt.CustomerPhoneCode,
		appt.CustomerNotes, appt.InternalNotes, appt.Source, appt.CreatedAt,
		models.StatusCancelled,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("create appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create appointment result: %w", err)
	}
	if affected == 0 {
		return ErrOverlap
	}
	return nil
}

// UpdateScheduleIfFree moves the appointment to [newStart, newEnd) unless
// another non-cancelled appointment on the card overlaps the new interval.
// The caller must have verified the appointment exists; zero affected rows
// therefore means the new time is taken.
func (r *AppointmentRepository) UpdateScheduleIfFree(ctx context.Context, id, cardID string, newStart, newEnd time.Time) error {
	const query = `
		UPDATE appointments SET start_at = $1, end_at = $2, updated_at = $3
		WHERE id = $4 AND NOT EXISTS (
			SELECT 1 FROM appointments b
			WHERE b.card_id = $5 AND b.id <> $4 AND b.status <> $6 AND b.start_at < $2 AND b.end_at > $1
		)`

	res, err := r.db.ExecContext(ctx, query, newStart, newEnd, time.Now().UTC(), id, cardID, models.StatusCancelled)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("reschedule appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reschedule appointment result: %w", err)
	}
	if affected == 0 {
		return ErrOverlap
	}
	return nil
}

// UpdateStatus sets the lifecycle status.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// MarkCancelled records cancellation with its metadata and the previous
// status snapshot used by restore.
func (r *AppointmentRepository) MarkCancelled(ctx context.Context, id string, previous models.AppointmentStatus, reason string, actorUserID *string) error {
	now := time.Now().UTC()
	const query = `
		UPDATE appointments
		SET status = $1, previous_status = $2, cancelled_at = $3, cancelled_by_user_id = $4, cancel_reason = $5, updated_at = $3
		WHERE id = $6`
	if _, err := r.db.ExecContext(ctx, query, models.StatusCancelled, previous, now, actorUserID, reason, id); err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	return nil
}

// RestoreIfFree reverts a cancelled appointment to the given status and
// clears the cancel metadata, unless a pending/confirmed/no-show
// appointment overlaps its interval. Completed appointments do not block a
// restore: their time has already passed.
func (r *AppointmentRepository) RestoreIfFree(ctx context.Context, id, cardID string, restored models.AppointmentStatus, start, end time.Time) error {
	const query = `
		UPDATE appointments
		SET status = $1, previous_status = NULL, cancelled_at = NULL, cancelled_by_user_id = NULL, cancel_reason = NULL, updated_at = $2
		WHERE id = $3 AND status = $4 AND NOT EXISTS (
			SELECT 1 FROM appointments b
			WHERE b.card_id = $5 AND b.id <> $3 AND b.status NOT IN ($4, $6) AND b.start_at < $7 AND b.end_at > $8
		)`

	res, err := r.db.ExecContext(ctx, query, restored, time.Now().UTC(), id, models.StatusCancelled, cardID, models.StatusCompleted, end, start)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrOverlap
		}
		return fmt.Errorf("restore appointment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("restore appointment result: %w", err)
	}
	if affected == 0 {
		return ErrOverlap
	}
	return nil
}

// ListDueReminders returns confirmed appointments starting within
// [now, now+lead] that have not been reminded yet.
func (r *AppointmentRepository) ListDueReminders(ctx context.Context, now time.Time, lead time.Duration) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE status = $1 AND reminder_sent_at IS NULL AND start_at >= $2 AND start_at <= $3 ORDER BY start_at ASC`, appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, models.StatusConfirmed, now, now.Add(lead)); err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return appointments, nil
}

// MarkReminderSent stamps the reminder timestamp.
func (r *AppointmentRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE appointments SET reminder_sent_at = $1, updated_at = $1 WHERE id = $2`, at, id); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// isExclusionViolation matches the Postgres exclusion (23P01) and unique
// (23505) violation codes raised by the appointment overlap constraint.
func isExclusionViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23P01" || pqErr.Code == "23505"
	}
	return false
}
