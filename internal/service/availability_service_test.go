package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatouch/booking-api/internal/dto"
	"github.com/datatouch/booking-api/internal/models"
	appErrors "github.com/datatouch/booking-api/pkg/errors"
)

type mockAvailabilityStore struct {
	rules      []models.AvailabilityRule
	exceptions map[string]models.AvailabilityException
	nextID     int
}

func newMockAvailabilityStore() *mockAvailabilityStore {
	return &mockAvailabilityStore{exceptions: make(map[string]models.AvailabilityException)}
}

func (m *mockAvailabilityStore) ListRules(_ context.Context, cardID string) ([]models.AvailabilityRule, error) {
	var result []models.AvailabilityRule
	for _, r := range m.rules {
		if r.CardID == cardID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAvailabilityStore) ActiveRuleForDay(_ context.Context, cardID string, dayOfWeek int, serviceID *string) (*models.AvailabilityRule, error) {
	var global *models.AvailabilityRule
	for i := range m.rules {
		r := m.rules[i]
		if r.CardID != cardID || r.DayOfWeek != dayOfWeek || !r.Active {
			continue
		}
		if serviceID != nil && r.ServiceID != nil && *r.ServiceID == *serviceID {
			return &r, nil
		}
		if r.ServiceID == nil {
			global = &r
		}
	}
	return global, nil
}

func (m *mockAvailabilityStore) ReplaceRules(_ context.Context, cardID string, rules []models.AvailabilityRule) error {
	var kept []models.AvailabilityRule
	for _, r := range m.rules {
		if r.CardID != cardID {
			kept = append(kept, r)
		}
	}
	m.rules = append(kept, rules...)
	return nil
}

func (m *mockAvailabilityStore) ListExceptionsOn(_ context.Context, cardID string, date time.Time) ([]models.AvailabilityException, error) {
	var result []models.AvailabilityException
	for _, ex := range m.exceptions {
		if ex.CardID == cardID && ex.Date.Equal(date) {
			result = append(result, ex)
		}
	}
	return result, nil
}

func (m *mockAvailabilityStore) ListExceptionsBetween(_ context.Context, cardID string, from, to time.Time) ([]models.AvailabilityException, error) {
	var result []models.AvailabilityException
	for _, ex := range m.exceptions {
		if ex.CardID == cardID && !ex.Date.Before(from) && !ex.Date.After(to) {
			result = append(result, ex)
		}
	}
	return result, nil
}

func (m *mockAvailabilityStore) FindExceptionByID(_ context.Context, id string) (*models.AvailabilityException, error) {
	ex, ok := m.exceptions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &ex, nil
}

func (m *mockAvailabilityStore) CreateException(_ context.Context, ex *models.AvailabilityException) error {
	m.nextID++
	ex.ID = string(rune('a' + m.nextID))
	m.exceptions[ex.ID] = *ex
	return nil
}

func (m *mockAvailabilityStore) UpdateException(_ context.Context, ex *models.AvailabilityException) error {
	m.exceptions[ex.ID] = *ex
	return nil
}

func (m *mockAvailabilityStore) DeleteException(_ context.Context, id string) error {
	delete(m.exceptions, id)
	return nil
}

type mockSettingsStore struct {
	settings map[string]models.BookingSettings
}

func (m *mockSettingsStore) FindByCard(_ context.Context, cardID string) (*models.BookingSettings, error) {
	s, ok := m.settings[cardID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (m *mockSettingsStore) Upsert(_ context.Context, settings *models.BookingSettings) error {
	if m.settings == nil {
		m.settings = make(map[string]models.BookingSettings)
	}
	m.settings[settings.CardID] = *settings
	return nil
}

func newTestAvailabilityService(store *mockAvailabilityStore) *AvailabilityService {
	return NewAvailabilityService(store, &mockSettingsStore{}, &mockCardReader{cards: map[string]models.Card{
		testCardID: {ID: testCardID, OrganizationID: "org-1", Timezone: "UTC", Active: true},
	}}, "America/El_Salvador", nil, nil)
}

func monday() time.Time {
	return time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC) // a Monday
}

func TestComputeSlotsFromWeeklyRule(t *testing.T) {
	store := newMockAvailabilityStore()
	store.rules = []models.AvailabilityRule{{
		CardID:    testCardID,
		DayOfWeek: 1,
		StartTime: models.NewTimeOfDay(9, 0),
		EndTime:   models.NewTimeOfDay(11, 0),
		Active:    true,
	}}
	svc := newTestAvailabilityService(store)

	slots, err := svc.ComputeSlots(context.Background(), testCardID, monday(), nil, 30)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	assert.Equal(t, "09:00", slots[0].StartTime.String())
	assert.Equal(t, "10:30", slots[3].StartTime.String())
}

func TestComputeSlotsServiceOverridePreferred(t *testing.T) {
	serviceID := "svc-1"
	store := newMockAvailabilityStore()
	store.rules = []models.AvailabilityRule{
		{CardID: testCardID, DayOfWeek: 1, StartTime: models.NewTimeOfDay(9, 0), EndTime: models.NewTimeOfDay(17, 0), Active: true},
		{CardID: testCardID, DayOfWeek: 1, StartTime: models.NewTimeOfDay(14, 0), EndTime: models.NewTimeOfDay(15, 0), ServiceID: &serviceID, Active: true},
	}
	svc := newTestAvailabilityService(store)

	slots, err := svc.ComputeSlots(context.Background(), testCardID, monday(), &serviceID, 30)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "14:00", slots[0].StartTime.String())
}

func TestSaveRulesRejectsInvertedWindow(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())

	_, err := svc.SaveRules(context.Background(), testCardID, dto.SaveRulesRequest{Rules: []dto.RuleInput{{
		DayOfWeek: 1,
		StartTime: models.NewTimeOfDay(17, 0),
		EndTime:   models.NewTimeOfDay(9, 0),
		Active:    true,
	}}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSaveRulesRejectsDuplicateDay(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())

	rule := dto.RuleInput{DayOfWeek: 1, StartTime: models.NewTimeOfDay(9, 0), EndTime: models.NewTimeOfDay(17, 0), Active: true}
	_, err := svc.SaveRules(context.Background(), testCardID, dto.SaveRulesRequest{Rules: []dto.RuleInput{rule, rule}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSaveRulesAllowsSameDayServiceOverride(t *testing.T) {
	store := newMockAvailabilityStore()
	svc := newTestAvailabilityService(store)
	serviceID := "svc-1"

	saved, err := svc.SaveRules(context.Background(), testCardID, dto.SaveRulesRequest{Rules: []dto.RuleInput{
		{DayOfWeek: 1, StartTime: models.NewTimeOfDay(9, 0), EndTime: models.NewTimeOfDay(17, 0), Active: true},
		{DayOfWeek: 1, StartTime: models.NewTimeOfDay(14, 0), EndTime: models.NewTimeOfDay(16, 0), ServiceID: &serviceID, Active: true},
	}})
	require.NoError(t, err)
	assert.Len(t, saved, 2)
}

func TestSaveRulesRejectsIncompleteBreak(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())
	breakStart := models.NewTimeOfDay(12, 0)

	_, err := svc.SaveRules(context.Background(), testCardID, dto.SaveRulesRequest{Rules: []dto.RuleInput{{
		DayOfWeek:      1,
		StartTime:      models.NewTimeOfDay(9, 0),
		EndTime:        models.NewTimeOfDay(17, 0),
		BreakStartTime: &breakStart,
		Active:         true,
	}}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestCreateDefaultRules(t *testing.T) {
	store := newMockAvailabilityStore()
	svc := newTestAvailabilityService(store)

	rules, err := svc.CreateDefaultRules(context.Background(), testCardID)
	require.NoError(t, err)
	require.Len(t, rules, 5)
	for i, rule := range rules {
		assert.Equal(t, i+1, rule.DayOfWeek)
		assert.Equal(t, "09:00", rule.StartTime.String())
		assert.Equal(t, "17:00", rule.EndTime.String())
		assert.True(t, rule.Active)
	}
}

func TestCreateExceptionValidation(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())
	ctx := context.Background()
	start := models.NewTimeOfDay(10, 0)
	end := models.NewTimeOfDay(9, 0)

	cases := []struct {
		name string
		req  dto.ExceptionRequest
	}{
		{"extra hours without times", dto.ExceptionRequest{Date: "2026-09-07", Kind: models.ExceptionExtraHours}},
		{"blocked with only start", dto.ExceptionRequest{Date: "2026-09-07", Kind: models.ExceptionBlocked, StartTime: &start}},
		{"end before start", dto.ExceptionRequest{Date: "2026-09-07", Kind: models.ExceptionBlocked, StartTime: &start, EndTime: &end}},
		{"unknown kind", dto.ExceptionRequest{Date: "2026-09-07", Kind: "holiday"}},
		{"bad date", dto.ExceptionRequest{Date: "07/09/2026", Kind: models.ExceptionBlocked}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateException(ctx, testCardID, tc.req)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
		})
	}
}

func TestCreateWholeDayBlock(t *testing.T) {
	store := newMockAvailabilityStore()
	svc := newTestAvailabilityService(store)

	ex, err := svc.CreateException(context.Background(), testCardID, dto.ExceptionRequest{
		Date: "2026-09-07",
		Kind: models.ExceptionBlocked,
	})
	require.NoError(t, err)
	assert.True(t, ex.BlocksWholeDay())
}

func TestUpdateExceptionOwnership(t *testing.T) {
	store := newMockAvailabilityStore()
	store.exceptions["ex-1"] = models.AvailabilityException{ID: "ex-1", CardID: "card-2", Date: monday(), Kind: models.ExceptionBlocked}
	svc := newTestAvailabilityService(store)

	_, err := svc.UpdateException(context.Background(), testCardID, "ex-1", dto.ExceptionRequest{
		Date: "2026-09-07",
		Kind: models.ExceptionBlocked,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	err = svc.DeleteException(context.Background(), testCardID, "ex-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestDeleteExceptionNotFound(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())

	err := svc.DeleteException(context.Background(), testCardID, "missing")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestGetSettingsDefaults(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())

	settings, err := svc.GetSettings(context.Background(), testCardID)
	require.NoError(t, err)
	assert.Equal(t, "America/El_Salvador", settings.Timezone)
	assert.Equal(t, 30, settings.SlotIntervalMinutes)
	assert.Equal(t, 60, settings.MaxAdvanceDays)
}

func TestSaveSettingsRejectsUnknownTimezone(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())

	_, err := svc.SaveSettings(context.Background(), testCardID, dto.SettingsRequest{
		Timezone:            "Mars/Olympus",
		SlotIntervalMinutes: 30,
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	settingsStore := &mockSettingsStore{}
	svc := NewAvailabilityService(newMockAvailabilityStore(), settingsStore, &mockCardReader{cards: map[string]models.Card{
		testCardID: {ID: testCardID, Timezone: "UTC"},
	}}, "UTC", nil, nil)

	saved, err := svc.SaveSettings(context.Background(), testCardID, dto.SettingsRequest{
		Timezone:            "America/El_Salvador",
		SlotIntervalMinutes: 15,
		MinNoticeMinutes:    120,
		MaxAdvanceDays:      30,
	})
	require.NoError(t, err)

	loaded, err := svc.GetSettings(context.Background(), testCardID)
	require.NoError(t, err)
	assert.Equal(t, saved.Timezone, loaded.Timezone)
	assert.Equal(t, 15, loaded.SlotIntervalMinutes)
}

func TestHasAvailability(t *testing.T) {
	store := newMockAvailabilityStore()
	store.rules = []models.AvailabilityRule{{
		CardID:    testCardID,
		DayOfWeek: 1,
		StartTime: models.NewTimeOfDay(9, 0),
		EndTime:   models.NewTimeOfDay(17, 0),
		Active:    true,
	}}
	svc := newTestAvailabilityService(store)
	ctx := context.Background()

	ok, err := svc.HasAvailability(ctx, testCardID, monday())
	require.NoError(t, err)
	assert.True(t, ok)

	// Tuesday has no rule.
	ok, err = svc.HasAvailability(ctx, testCardID, monday().AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)

	store.exceptions["block"] = models.AvailabilityException{ID: "block", CardID: testCardID, Date: monday(), Kind: models.ExceptionBlocked}
	ok, err = svc.HasAvailability(ctx, testCardID, monday())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAvailableDays(t *testing.T) {
	store := newMockAvailabilityStore()
	store.rules = []models.AvailabilityRule{{
		CardID:    testCardID,
		DayOfWeek: 1,
		StartTime: models.NewTimeOfDay(9, 0),
		EndTime:   models.NewTimeOfDay(17, 0),
		Active:    true,
	}}
	svc := newTestAvailabilityService(store)

	days, err := svc.AvailableDays(context.Background(), testCardID, "2026-09-07", "2026-09-09")
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2026-09-07", days[0].Date)
	assert.True(t, days[0].Available)
	assert.False(t, days[1].Available)
	assert.False(t, days[2].Available)
}

func TestAvailableDaysInvalidRange(t *testing.T) {
	svc := newTestAvailabilityService(newMockAvailabilityStore())
	ctx := context.Background()

	cases := []struct {
		name string
		from string
		to   string
	}{
		{"bad from", "07-09-2026", "2026-09-09"},
		{"bad to", "2026-09-07", "next week"},
		{"to before from", "2026-09-09", "2026-09-07"},
		{"range too large", "2026-09-07", "2026-12-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.AvailableDays(ctx, testCardID, tc.from, tc.to)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
		})
	}
}
