package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/datatouch/booking-api/internal/models"
)

func newAvailabilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func ruleRowColumns() []string {
	return []string{"id", "card_id", "day_of_week", "start_time", "end_time", "break_start_time", "break_end_time", "service_id", "active"}
}

func TestAvailabilityRepositoryActiveRuleForDay(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	rows := sqlmock.NewRows(ruleRowColumns()).
		AddRow("rule-1", "card-1", 1, "09:00:00", "17:00:00", nil, nil, nil, true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+ruleColumns+" FROM availability_rules WHERE card_id = $1 AND day_of_week = $2")).
		WithArgs("card-1", 1, nil).
		WillReturnRows(rows)

	rule, err := repo.ActiveRuleForDay(context.Background(), "card-1", 1, nil)
	require.NoError(t, err)
	require.NotNil(t, rule)
	require.Equal(t, "09:00", rule.StartTime.String())
	require.Equal(t, "17:00", rule.EndTime.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryActiveRuleForDayNone(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM availability_rules WHERE card_id = $1")).
		WithArgs("card-1", 0, nil).
		WillReturnRows(sqlmock.NewRows(ruleRowColumns()))

	rule, err := repo.ActiveRuleForDay(context.Background(), "card-1", 0, nil)
	require.NoError(t, err)
	require.Nil(t, rule)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryReplaceRules(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_rules WHERE card_id = $1")).
		WithArgs("card-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_rules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_rules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rules := []models.AvailabilityRule{
		{DayOfWeek: 1, StartTime: models.NewTimeOfDay(9, 0), EndTime: models.NewTimeOfDay(17, 0), Active: true},
		{DayOfWeek: 2, StartTime: models.NewTimeOfDay(9, 0), EndTime: models.NewTimeOfDay(17, 0), Active: true},
	}
	require.NoError(t, repo.ReplaceRules(context.Background(), "card-1", rules))
	require.NotEmpty(t, rules[0].ID)
	require.Equal(t, "card-1", rules[1].CardID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryReplaceRulesRollsBack(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_rules WHERE card_id = $1")).
		WithArgs("card-1").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.ReplaceRules(context.Background(), "card-1", nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryListExceptionsOn(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	date := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "card_id", "exception_date", "start_time", "end_time", "kind"}).
		AddRow("ex-1", "card-1", date, nil, nil, "blocked").
		AddRow("ex-2", "card-1", date, "14:00:00", "15:00:00", "extra_hours")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+exceptionColumns+" FROM availability_exceptions WHERE card_id = $1 AND exception_date = $2")).
		WithArgs("card-1", date).
		WillReturnRows(rows)

	exceptions, err := repo.ListExceptionsOn(context.Background(), "card-1", date)
	require.NoError(t, err)
	require.Len(t, exceptions, 2)
	require.True(t, exceptions[0].BlocksWholeDay())
	require.Equal(t, models.ExceptionExtraHours, exceptions[1].Kind)
	require.NotNil(t, exceptions[1].StartTime)
	require.Equal(t, "14:00", exceptions[1].StartTime.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryExceptionCRUD(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO availability_exceptions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE availability_exceptions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability_exceptions WHERE id = $1")).
		WithArgs("ex-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ex := &models.AvailabilityException{
		CardID: "card-1",
		Date:   time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		Kind:   models.ExceptionBlocked,
	}
	require.NoError(t, repo.CreateException(context.Background(), ex))
	require.NotEmpty(t, ex.ID)
	require.NoError(t, repo.UpdateException(context.Background(), ex))
	require.NoError(t, repo.DeleteException(context.Background(), "ex-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
