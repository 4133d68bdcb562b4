package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
)

const dashboardCacheKey = "dash:summary"

type requestStatsProvider interface {
	CountByStatus(ctx context.Context) (map[models.RequestStatus]int, error)
	CountByType(ctx context.Context) (map[models.RequestType]int, error)
}

type projectStatsProvider interface {
	CountByStatus(ctx context.Context) (map[models.ProjectStatus]int, error)
}

type openPeriodLister interface {
	IsOpen(ctx context.Context, periodType models.PeriodType, at time.Time) (bool, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Requests requestStatsProvider
	Projects projectStatsProvider
	Periods  openPeriodLister
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// DashboardService composes the portal-wide summary shown to admin and
// committee users.
type DashboardService struct {
	requests requestStatsProvider
	projects projectStatsProvider
	periods  openPeriodLister
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		requests: params.Requests,
		projects: params.Projects,
		periods:  params.Periods,
		cache:    params.Cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		cfg:      cfg,
	}
}

// Summary returns the dashboard payload and indicates cache utilisation.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	if s.cache.Enabled() {
		var cached dto.DashboardResponse
		hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached)
		if err != nil {
			s.logger.Warn("dashboard cache lookup failed", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops the cached summary, called after workflow mutations.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context) (*dto.DashboardResponse, error) {
	byStatus, err := s.requests.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests by status")
	}
	byType, err := s.requests.CountByType(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count requests by type")
	}
	projectsByStatus, err := s.projects.CountByStatus(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count projects")
	}
	totalProjects := 0
	for _, count := range projectsByStatus {
		totalProjects += count
	}

	openPeriods := make([]models.PeriodType, 0, len(models.AllPeriodTypes))
	if s.periods != nil {
		at := s.now()
		for _, periodType := range models.AllPeriodTypes {
			open, err := s.periods.IsOpen(ctx, periodType, at)
			if err != nil {
				s.logger.Warn("failed to resolve period for dashboard",
					zap.String("period_type", string(periodType)),
					zap.Error(err))
				continue
			}
			if open {
				openPeriods = append(openPeriods, periodType)
			}
		}
	}

	return &dto.DashboardResponse{
		Requests: dto.RequestsSection{
			ByStatus: byStatus,
			ByType:   byType,
		},
		Projects: dto.ProjectsSection{
			ByStatus: projectsByStatus,
			Total:    totalProjects,
		},
		OpenPeriods: openPeriods,
	}, nil
}
