package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/datatouch/booking-api/internal/models"
)

const ruleColumns = `id, card_id, day_of_week, start_time, end_time, break_start_time, break_end_time, service_id, active`

const exceptionColumns = `id, card_id, exception_date, start_time, end_time, kind`

// AvailabilityRepository persists weekly rules and date exceptions.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListRules returns all of a card's weekly rules ordered by weekday.
func (r *AvailabilityRepository) ListRules(ctx context.Context, cardID string) ([]models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules WHERE card_id = $1 ORDER BY day_of_week ASC, service_id ASC NULLS FIRST`, ruleColumns)
	var rules []models.AvailabilityRule
	if err := r.db.SelectContext(ctx, &rules, query, cardID); err != nil {
		return nil, fmt.Errorf("list availability rules: %w", err)
	}
	return rules, nil
}

// ActiveRuleForDay returns the active rule for the weekday, preferring a
// service-specific override over the global rule. Returns nil when the day
// has no rule.
func (r *AvailabilityRepository) ActiveRuleForDay(ctx context.Context, cardID string, dayOfWeek int, serviceID *string) (*models.AvailabilityRule, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_rules WHERE card_id = $1 AND day_of_week = $2 AND active AND (service_id IS NULL OR service_id = $3) ORDER BY service_id NULLS LAST LIMIT 1`, ruleColumns)
	var rule models.AvailabilityRule
	if err := r.db.GetContext(ctx, &rule, query, cardID, dayOfWeek, serviceID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find availability rule: %w", err)
	}
	return &rule, nil
}

// ReplaceRules swaps a card's weekly schedule wholesale inside a
// transaction; owners always save the full week.
func (r *AvailabilityRepository) ReplaceRules(ctx context.Context, cardID string, rules []models.AvailabilityRule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace rules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE card_id = $1`, cardID); err != nil {
		return fmt.Errorf("clear availability rules: %w", err)
	}

	const insert = `INSERT INTO availability_rules (id, card_id, day_of_week, start_time, end_time, break_start_time, break_end_time, service_id, active) VALUES (:id, :card_id, :day_of_week, :start_time, :end_time, :break_start_time, :break_end_time, :service_id, :active)`
	for i := range rules {
		rule := rules[i]
		if rule.ID == "" {
			rule.ID = uuid.NewString()
		}
		rule.CardID = cardID
		if _, err = sqlx.NamedExecContext(ctx, tx, insert, &rule); err != nil {
			return fmt.Errorf("insert availability rule: %w", err)
		}
		rules[i] = rule
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace rules: %w", err)
	}
	return nil
}

// ListExceptionsOn returns every exception for the card on a specific date.
func (r *AvailabilityRepository) ListExceptionsOn(ctx context.Context, cardID string, date time.Time) ([]models.AvailabilityException, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_exceptions WHERE card_id = $1 AND exception_date = $2 ORDER BY start_time ASC NULLS FIRST`, exceptionColumns)
	var exceptions []models.AvailabilityException
	if err := r.db.SelectContext(ctx, &exceptions, query, cardID, date); err != nil {
		return nil, fmt.Errorf("list availability exceptions: %w", err)
	}
	return exceptions, nil
}

// ListExceptionsBetween returns exceptions in [from, to] ordered by date.
func (r *AvailabilityRepository) ListExceptionsBetween(ctx context.Context, cardID string, from, to time.Time) ([]models.AvailabilityException, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_exceptions WHERE card_id = $1 AND exception_date >= $2 AND exception_date <= $3 ORDER BY exception_date ASC`, exceptionColumns)
	var exceptions []models.AvailabilityException
	if err := r.db.SelectContext(ctx, &exceptions, query, cardID, from, to); err != nil {
		return nil, fmt.Errorf("list availability exceptions: %w", err)
	}
	return exceptions, nil
}

// FindExceptionByID loads a single exception.
func (r *AvailabilityRepository) FindExceptionByID(ctx context.Context, id string) (*models.AvailabilityException, error) {
	query := fmt.Sprintf(`SELECT %s FROM availability_exceptions WHERE id = $1`, exceptionColumns)
	var ex models.AvailabilityException
	if err := r.db.GetContext(ctx, &ex, query, id); err != nil {
		return nil, err
	}
	return &ex, nil
}

// CreateException stores a new exception.
func (r *AvailabilityRepository) CreateException(ctx context.Context, ex *models.AvailabilityException) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	const query = `INSERT INTO availability_exceptions (id, card_id, exception_date, start_time, end_time, kind) VALUES (:id, :card_id, :exception_date, :start_time, :end_time, :kind)`
	if _, err := r.db.NamedExecContext(ctx, query, ex); err != nil {
		return fmt.Errorf("create availability exception: %w", err)
	}
	return nil
}

// UpdateException rewrites an existing exception.
func (r *AvailabilityRepository) UpdateException(ctx context.Context, ex *models.AvailabilityException) error {
	const query = `UPDATE availability_exceptions SET exception_date = :exception_date, start_time = :start_time, end_time = :end_time, kind = :kind WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, ex); err != nil {
		return fmt.Errorf("update availability exception: %w", err)
	}
	return nil
}

// DeleteException removes an exception by id.
func (r *AvailabilityRepository) DeleteException(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability_exceptions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability exception: %w", err)
	}
	return nil
}
