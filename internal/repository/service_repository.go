package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/datatouch/booking-api/internal/models"
)

const serviceColumns = `id, card_id, organization_id, name, description, duration_minutes, price_from, display_order, active, buffer_before_minutes, buffer_after_minutes, min_notice_minutes, max_bookings_per_day, created_at`

// ServiceRepository reads service records for duration resolution and the
// public services listing.
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository creates a new service repository.
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// FindByID loads a service by id.
func (r *ServiceRepository) FindByID(ctx context.Context, id string) (*models.Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services WHERE id = $1`, serviceColumns)
	var svc models.Service
	if err := r.db.GetContext(ctx, &svc, query, id); err != nil {
		return nil, err
	}
	return &svc, nil
}

// ListActiveByCard returns a card's bookable services in display order.
func (r *ServiceRepository) ListActiveByCard(ctx context.Context, cardID string) ([]models.Service, error) {
	query := fmt.Sprintf(`SELECT %s FROM services WHERE card_id = $1 AND active ORDER BY display_order ASC, name ASC`, serviceColumns)
	var services []models.Service
	if err := r.db.SelectContext(ctx, &services, query, cardID); err != nil {
		return nil, fmt.Errorf("list active services: %w", err)
	}
	return services, nil
}
