package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
)

const periodCachePrefix = "periods"

type periodStore interface {
	List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error)
	FindByID(ctx context.Context, id string) (*models.Period, error)
	FindEffective(ctx context.Context, periodType models.PeriodType) (*models.Period, error)
	Create(ctx context.Context, period *models.Period) error
	Update(ctx context.Context, period *models.Period) error
	Delete(ctx context.Context, id string) error
}

type periodCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// PeriodService manages academic calendar windows and answers the period gate.
type PeriodService struct {
	repo      periodStore
	cache     periodCache
	audit     auditLogger
	validator *validator.Validate
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewPeriodService constructs the service. The cache is optional.
func NewPeriodService(repo periodStore, cache periodCache, audit auditLogger, validate *validator.Validate, cacheTTL time.Duration, logger *zap.Logger) *PeriodService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &PeriodService{
		repo:      repo,
		cache:     cache,
		audit:     audit,
		validator: validate,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// List returns periods matching the filter with their total count.
func (s *PeriodService) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported period type: %s", filter.Type))
	}
	periods, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list periods")
	}
	return periods, total, nil
}

// Get returns a single period by id.
func (s *PeriodService) Get(ctx context.Context, id string) (*models.Period, error) {
	period, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load period")
	}
	return period, nil
}

// Create opens a new calendar window.
func (s *PeriodService) Create(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*models.Period, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	periodType := models.PeriodType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	if !periodType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported period type: %s", req.Type))
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	period := &models.Period{
		Type:      periodType,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsActive:  true,
	}
	if req.IsActive != nil {
		period.IsActive = *req.IsActive
	}
	if err := s.repo.Create(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create period")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actorID, models.AuditActionPeriodCreate, period.ID, marshalAudit(period))
	return period, nil
}

// Update edits an existing window.
func (s *PeriodService) Update(ctx context.Context, id string, req dto.UpdatePeriodRequest, actorID string) (*models.Period, error) {
	period, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		period.Name = strings.TrimSpace(*req.Name)
	}
	if req.StartDate != nil {
		period.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		period.EndDate = *req.EndDate
	}
	if req.IsActive != nil {
		period.IsActive = *req.IsActive
	}
	if period.EndDate.Before(period.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not precede start date")
	}
	if err := s.repo.Update(ctx, period); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update period")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actorID, models.AuditActionPeriodUpdate, period.ID, marshalAudit(period))
	return period, nil
}

// Delete removes a window.
func (s *PeriodService) Delete(ctx context.Context, id string, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete period")
	}
	s.invalidate(ctx)
	s.emitAudit(ctx, actorID, models.AuditActionPeriodDelete, id, nil)
	return nil
}

// Status answers the gate question: is the window of the given type open at
// the given instant. Bounds are inclusive on both ends.
func (s *PeriodService) Status(ctx context.Context, periodType models.PeriodType, at time.Time) (*models.PeriodStatus, error) {
	if !periodType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported period type: %s", periodType))
	}
	period, err := s.effectivePeriod(ctx, periodType)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return &models.PeriodStatus{Open: false}, nil
	}
	return &models.PeriodStatus{Open: period.Contains(at), Period: period}, nil
}

// IsOpen is the boolean form of Status used by submission gates.
func (s *PeriodService) IsOpen(ctx context.Context, periodType models.PeriodType, at time.Time) (bool, error) {
	status, err := s.Status(ctx, periodType, at)
	if err != nil {
		return false, err
	}
	return status.Open, nil
}

// effectivePeriod resolves the most recent active window of the type,
// consulting the cache first. A missing window is not an error.
func (s *PeriodService) effectivePeriod(ctx context.Context, periodType models.PeriodType) (*models.Period, error) {
	key := fmt.Sprintf("%s:effective:%s", periodCachePrefix, periodType)
	if s.cache != nil {
		var cached models.Period
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}
	period, err := s.repo.FindEffective(ctx, periodType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve period")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, period, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache period", zap.String("key", key), zap.Error(err))
		}
	}
	return period, nil
}

func (s *PeriodService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, periodCachePrefix+":*"); err != nil {
		s.logger.Warn("failed to invalidate period cache", zap.Error(err))
	}
}

func (s *PeriodService) emitAudit(ctx context.Context, actorID, action, periodID string, newValues []byte) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "period",
		ResourceID: &periodID,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "period-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
