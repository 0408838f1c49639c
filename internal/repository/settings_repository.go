package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/datatouch/booking-api/internal/models"
)

// SettingsRepository persists per-card booking settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// FindByCard loads a card's booking settings.
func (r *SettingsRepository) FindByCard(ctx context.Context, cardID string) (*models.BookingSettings, error) {
	const query = `SELECT id, card_id, timezone, slot_interval_minutes, buffer_before_minutes, buffer_after_minutes, max_appointments_per_day, min_notice_minutes, max_advance_days, created_at, updated_at FROM booking_settings WHERE card_id = $1`
	var settings models.BookingSettings
	if err := r.db.GetContext(ctx, &settings, query, cardID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert creates or replaces the card's settings row.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.BookingSettings) error {
	if settings.ID == "" {
		settings.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = &now

	const query = `
		INSERT INTO booking_settings (id, card_id, timezone, slot_interval_minutes, buffer_before_minutes, buffer_after_minutes, max_appointments_per_day, min_notice_minutes, max_advance_days, created_at, updated_at)
		VALUES (:id, :card_id, :timezone, :slot_interval_minutes, :buffer_before_minutes, :buffer_after_minutes, :max_appointments_per_day, :min_notice_minutes, :max_advance_days, :created_at, :updated_at)
		ON CONFLICT (card_id) DO UPDATE SET
			timezone = EXCLUDED.timezone,
			slot_interval_minutes = EXCLUDED.slot_interval_minutes,
			buffer_before_minutes = EXCLUDED.buffer_before_minutes,
			buffer_after_minutes = EXCLUDED.buffer_after_minutes,
			max_appointments_per_day = EXCLUDED.max_appointments_per_day,
			min_notice_minutes = EXCLUDED.min_notice_minutes,
			max_advance_days = EXCLUDED.max_advance_days,
			updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return err
	}
	return nil
}
