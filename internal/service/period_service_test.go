package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
)

type fakePeriodStore struct {
	effective    *models.Period
	effectiveErr error
	created      *models.Period
	updated      *models.Period
	byID         *models.Period
	byIDErr      error
}

func (f *fakePeriodStore) List(context.Context, models.PeriodFilter) ([]models.Period, int, error) {
	return nil, 0, nil
}

func (f *fakePeriodStore) FindByID(context.Context, string) (*models.Period, error) {
	return f.byID, f.byIDErr
}

func (f *fakePeriodStore) FindEffective(context.Context, models.PeriodType) (*models.Period, error) {
	return f.effective, f.effectiveErr
}

func (f *fakePeriodStore) Create(_ context.Context, period *models.Period) error {
	period.ID = "period-1"
	f.created = period
	return nil
}

func (f *fakePeriodStore) Update(_ context.Context, period *models.Period) error {
	f.updated = period
	return nil
}

func (f *fakePeriodStore) Delete(context.Context, string) error {
	return nil
}

type fakePeriodCache struct {
	stored   map[string]*models.Period
	hit      *models.Period
	deleted  []string
	setCalls int
}

func (f *fakePeriodCache) Get(_ context.Context, _ string, dest interface{}) error {
	if f.hit == nil {
		return appErrors.ErrCacheMiss
	}
	if period, ok := dest.(*models.Period); ok {
		*period = *f.hit
	}
	return nil
}

func (f *fakePeriodCache) Set(_ context.Context, key string, _ interface{}, _ time.Duration) error {
	if f.stored == nil {
		f.stored = make(map[string]*models.Period)
	}
	f.setCalls++
	f.stored[key] = nil
	return nil
}

func (f *fakePeriodCache) DeleteByPattern(_ context.Context, pattern string) error {
	f.deleted = append(f.deleted, pattern)
	return nil
}

func window(start, end time.Time) *models.Period {
	return &models.Period{
		ID:        "period-1",
		Type:      models.PeriodTypeProposalSubmission,
		Name:      "Fall proposal window",
		StartDate: start,
		EndDate:   end,
		IsActive:  true,
	}
}

func TestPeriodServiceStatusInclusiveBounds(t *testing.T) {
	start := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.September, 30, 23, 59, 59, 0, time.UTC)
	svc := NewPeriodService(&fakePeriodStore{effective: window(start, end)}, nil, nil, nil, time.Minute, nil)

	cases := []struct {
		name string
		at   time.Time
		open bool
	}{
		{"before start", start.Add(-time.Second), false},
		{"exactly at start", start, true},
		{"inside", start.AddDate(0, 0, 14), true},
		{"exactly at end", end, true},
		{"after end", end.Add(time.Second), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, err := svc.Status(context.Background(), models.PeriodTypeProposalSubmission, tc.at)
			require.NoError(t, err)
			assert.Equal(t, tc.open, status.Open)
		})
	}
}

func TestPeriodServiceStatusNoWindowConfigured(t *testing.T) {
	svc := NewPeriodService(&fakePeriodStore{effectiveErr: sql.ErrNoRows}, nil, nil, nil, time.Minute, nil)

	status, err := svc.Status(context.Background(), models.PeriodTypeDefense, time.Now())

	require.NoError(t, err)
	assert.False(t, status.Open)
	assert.Nil(t, status.Period)
}

func TestPeriodServiceStatusRejectsUnknownType(t *testing.T) {
	svc := NewPeriodService(&fakePeriodStore{}, nil, nil, nil, time.Minute, nil)

	_, err := svc.Status(context.Background(), "VACATION", time.Now())

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceStatusUsesCache(t *testing.T) {
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	cache := &fakePeriodCache{hit: window(start, end)}
	store := &fakePeriodStore{effectiveErr: sql.ErrNoRows}
	svc := NewPeriodService(store, cache, nil, nil, time.Minute, nil)

	open, err := svc.IsOpen(context.Background(), models.PeriodTypeProposalSubmission, time.Now())

	require.NoError(t, err)
	assert.True(t, open)
}

func TestPeriodServiceStatusFillsCacheOnMiss(t *testing.T) {
	cache := &fakePeriodCache{}
	store := &fakePeriodStore{effective: window(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))}
	svc := NewPeriodService(store, cache, nil, nil, time.Minute, nil)

	_, err := svc.IsOpen(context.Background(), models.PeriodTypeProposalSubmission, time.Now())

	require.NoError(t, err)
	assert.Equal(t, 1, cache.setCalls)
}

func TestPeriodServiceCreateRequiresName(t *testing.T) {
	store := &fakePeriodStore{}
	svc := NewPeriodService(store, nil, nil, nil, time.Minute, nil)

	_, err := svc.Create(context.Background(), dto.CreatePeriodRequest{
		Type:      models.PeriodTypeEvaluation,
		Name:      "  ",
		StartDate: time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC),
	}, "admin-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.created)
}

func TestPeriodServiceCreateValidatesWindow(t *testing.T) {
	svc := NewPeriodService(&fakePeriodStore{}, nil, nil, nil, time.Minute, nil)

	_, err := svc.Create(context.Background(), dto.CreatePeriodRequest{
		Type:      models.PeriodTypeEvaluation,
		Name:      "Inverted window",
		StartDate: time.Date(2026, time.October, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
	}, "admin-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPeriodServiceCreateInvalidatesCache(t *testing.T) {
	cache := &fakePeriodCache{}
	audit := &fakeAudit{}
	svc := NewPeriodService(&fakePeriodStore{}, cache, audit, nil, time.Minute, nil)

	period, err := svc.Create(context.Background(), dto.CreatePeriodRequest{
		Type:      models.PeriodTypeProjectRegistration,
		Name:      "Spring registration",
		StartDate: time.Date(2027, time.February, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2027, time.February, 28, 0, 0, 0, 0, time.UTC),
	}, "admin-1")

	require.NoError(t, err)
	assert.True(t, period.IsActive)
	assert.Equal(t, []string{"periods:*"}, cache.deleted)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionPeriodCreate, audit.logs[0].Action)
}

func TestPeriodServiceUpdateNotFound(t *testing.T) {
	svc := NewPeriodService(&fakePeriodStore{byIDErr: sql.ErrNoRows}, nil, nil, nil, time.Minute, nil)

	_, err := svc.Update(context.Background(), "missing", dto.UpdatePeriodRequest{}, "admin-1")

	assert.Equal(t, appErrors.ErrNotFound, err)
}
