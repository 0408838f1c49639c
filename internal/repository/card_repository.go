package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/datatouch/booking-api/internal/models"
)

// CardRepository reads card records. Cards are owned by the surrounding
// CRM; the booking engine only needs existence and timezone.
type CardRepository struct {
	db *sqlx.DB
}

// NewCardRepository creates a new card repository.
func NewCardRepository(db *sqlx.DB) *CardRepository {
	return &CardRepository{db: db}
}

// FindByID loads a card by id.
func (r *CardRepository) FindByID(ctx context.Context, id string) (*models.Card, error) {
	const query = `SELECT id, organization_id, slug, display_name, timezone, active, created_at FROM cards WHERE id = $1`
	var card models.Card
	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		return nil, err
	}
	return &card, nil
}
