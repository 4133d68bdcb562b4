package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
)

type fakeRequestStats struct {
	byStatus map[models.RequestStatus]int
	byType   map[models.RequestType]int
}

func (f *fakeRequestStats) CountByStatus(context.Context) (map[models.RequestStatus]int, error) {
	return f.byStatus, nil
}

func (f *fakeRequestStats) CountByType(context.Context) (map[models.RequestType]int, error) {
	return f.byType, nil
}

type fakeProjectStats struct {
	byStatus map[models.ProjectStatus]int
}

func (f *fakeProjectStats) CountByStatus(context.Context) (map[models.ProjectStatus]int, error) {
	return f.byStatus, nil
}

type fakeOpenPeriods struct {
	open map[models.PeriodType]bool
}

func (f *fakeOpenPeriods) IsOpen(_ context.Context, periodType models.PeriodType, _ time.Time) (bool, error) {
	return f.open[periodType], nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = payload
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, _ string) error {
	m.entries = nil
	return nil
}

func newDashboardFixture(cache *CacheService) *DashboardService {
	return NewDashboardService(DashboardServiceParams{
		Requests: &fakeRequestStats{
			byStatus: map[models.RequestStatus]int{
				models.RequestStatusPending:  3,
				models.RequestStatusApproved: 7,
			},
			byType: map[models.RequestType]int{
				models.RequestTypeSupervision: 5,
			},
		},
		Projects: &fakeProjectStats{
			byStatus: map[models.ProjectStatus]int{
				models.ProjectStatusProposed: 2,
				models.ProjectStatusActive:   4,
			},
		},
		Periods: &fakeOpenPeriods{open: map[models.PeriodType]bool{
			models.PeriodTypeProposalSubmission: true,
		}},
		Cache: cache,
	})
}

func TestDashboardServiceSummary(t *testing.T) {
	svc := newDashboardFixture(nil)

	summary, cached, err := svc.Summary(context.Background())

	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 3, summary.Requests.ByStatus[models.RequestStatusPending])
	assert.Equal(t, 5, summary.Requests.ByType[models.RequestTypeSupervision])
	assert.Equal(t, 6, summary.Projects.Total)
	assert.Equal(t, []models.PeriodType{models.PeriodTypeProposalSubmission}, summary.OpenPeriods)
}

func TestDashboardServiceSummaryServedFromCache(t *testing.T) {
	cache := NewCacheService(&memoryCacheRepo{}, nil, time.Minute, nil, true)
	svc := newDashboardFixture(cache)

	_, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	summary, cached, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 6, summary.Projects.Total)
}

func TestDashboardServiceInvalidate(t *testing.T) {
	repo := &memoryCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	svc := newDashboardFixture(cache)

	_, _, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, repo.entries)

	svc.Invalidate(context.Background())
	assert.Empty(t, repo.entries)
}
