package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/internal/models"
	"github.com/gp-portal/gpms-api/internal/repository"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	CommitteeQueue(ctx context.Context, directTypes, escalatedTypes []models.RequestType) ([]models.Request, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	DeleteIfPending(ctx context.Context, id, studentID string) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type periodGate interface {
	IsOpen(ctx context.Context, periodType models.PeriodType, at time.Time) (bool, error)
}

type transitionRecorder interface {
	RecordRequestTransition(requestType, toStatus string)
}

// nonTerminalStatuses are the valid source states for terminal transitions.
var nonTerminalStatuses = []models.RequestStatus{
	models.RequestStatusPending,
	models.RequestStatusInProgress,
}

// RequestService orchestrates submission and review of student requests.
type RequestService struct {
	repo      requestStore
	audit     auditLogger
	periods   periodGate
	router    *ApprovalRouter
	validator *validator.Validate
	metrics   transitionRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// RequestServiceOption configures the service.
type RequestServiceOption func(*RequestService)

// WithRequestMetrics wires transition counters.
func WithRequestMetrics(metrics transitionRecorder) RequestServiceOption {
	return func(s *RequestService) {
		s.metrics = metrics
	}
}

// WithRequestClock overrides the time source, used by tests.
func WithRequestClock(now func() time.Time) RequestServiceOption {
	return func(s *RequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRequestService constructs the service with defaults.
func NewRequestService(repo requestStore, audit auditLogger, periods periodGate, router *ApprovalRouter, validate *validator.Validate, logger *zap.Logger, opts ...RequestServiceOption) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if router == nil {
		router = NewApprovalRouter()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &RequestService{
		repo:      repo,
		audit:     audit,
		periods:   periods,
		router:    router,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create stores a new request after enforcing type, reason and calendar rules.
func (s *RequestService) Create(ctx context.Context, req dto.CreateRequestRequest, studentID string) (*models.Request, error) {
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	requestType := models.RequestType(strings.ToUpper(strings.TrimSpace(string(req.Type))))
	if !requestType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported request type: %s", req.Type))
	}
	reason := strings.TrimSpace(req.Reason)
	if s.router.RequiresReason(requestType) && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("reason is required for %s requests", requestType))
	}
	if periodType, gated := s.router.GatingPeriod(requestType); gated && s.periods != nil {
		open, err := s.periods.IsOpen(ctx, periodType, s.now())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve submission period")
		}
		if !open {
			return nil, appErrors.Clone(appErrors.ErrPeriodClosed, fmt.Sprintf("the %s period is not open", periodType))
		}
	}

	request := &models.Request{
		Type:         requestType,
		Priority:     req.Priority,
		StudentID:    studentID,
		SupervisorID: req.SupervisorID,
		Description:  req.Description,
	}
	if reason != "" {
		request.Reason = &reason
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionRequestCreate,
		Resource:   "request",
		ResourceID: &request.ID,
		NewValues:  marshalAudit(request),
	})
	return request, nil
}

// Get returns a single request enforcing ownership for students.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if actor.Role == models.RoleStudent && request.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// List returns requests scoped to the actor's role.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.RequestFilter{
		Status:       query.Status,
		Types:        query.Types,
		StudentID:    query.StudentID,
		SupervisorID: query.SupervisorID,
	}
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleSupervisor:
		filter.SupervisorID = actor.UserID
	case models.RoleCommittee, models.RoleAdmin:
		// full access
	default:
		return nil, appErrors.ErrForbidden
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// SupervisorQueue lists pending requests awaiting supervisor review.
func (s *RequestService) SupervisorQueue(ctx context.Context, supervisorID string) ([]models.Request, error) {
	filter := models.RequestFilter{
		Status:       []models.RequestStatus{models.RequestStatusPending},
		Types:        s.router.SupervisorQueueTypes(),
		SupervisorID: supervisorID,
	}
	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervisor queue")
	}
	return requests, nil
}

// CommitteeQueue lists requests awaiting committee review: direct committee
// types still undecided plus two-stage types already past the supervisor.
func (s *RequestService) CommitteeQueue(ctx context.Context) ([]models.Request, error) {
	requests, err := s.repo.CommitteeQueue(ctx, s.router.CommitteeDirectTypes(), s.router.CommitteeEscalatedTypes())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committee queue")
	}
	return requests, nil
}

// SupervisorApprove advances a pending request: two-stage types move to
// committee review, everything else is finalized as approved.
func (s *RequestService) SupervisorApprove(ctx context.Context, id string, req dto.ApproveRequestRequest, reviewerID string) (*models.Request, error) {
	request, err := s.loadForReview(ctx, id)
	if err != nil {
		return nil, err
	}
	target := s.router.NextOnSupervisorApproval(request.Type)
	return s.transition(ctx, request, repository.TransitionParams{
		ID:          id,
		ToStatus:    target,
		AllowedFrom: []models.RequestStatus{models.RequestStatusPending},
		ReviewedBy:  reviewerID,
		Response:    optionalString(req.Response),
	})
}

// SupervisorReject finalizes a request as rejected with a reason, from any
// non-terminal status.
func (s *RequestService) SupervisorReject(ctx context.Context, id string, req dto.RejectRequestRequest, reviewerID string) (*models.Request, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}
	request, err := s.loadForReview(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, repository.TransitionParams{
		ID:          id,
		ToStatus:    models.RequestStatusRejected,
		AllowedFrom: nonTerminalStatuses,
		ReviewedBy:  reviewerID,
		Reason:      &reason,
	})
}

// CommitteeApprove finalizes a request as approved. Committee sign-off is
// terminal from any non-terminal status, whatever the type.
func (s *RequestService) CommitteeApprove(ctx context.Context, id string, req dto.ApproveRequestRequest, reviewerID string) (*models.Request, error) {
	request, err := s.loadForReview(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, repository.TransitionParams{
		ID:          id,
		ToStatus:    models.RequestStatusApproved,
		AllowedFrom: nonTerminalStatuses,
		ReviewedBy:  reviewerID,
		Response:    optionalString(req.Response),
	})
}

// CommitteeReject finalizes a request as rejected with a reason, from any
// non-terminal status.
func (s *RequestService) CommitteeReject(ctx context.Context, id string, req dto.RejectRequestRequest, reviewerID string) (*models.Request, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
	}
	request, err := s.loadForReview(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, request, repository.TransitionParams{
		ID:          id,
		ToStatus:    models.RequestStatusRejected,
		AllowedFrom: nonTerminalStatuses,
		ReviewedBy:  reviewerID,
		Reason:      &reason,
	})
}

// Withdraw removes a request while it is still pending. The caller must own
// the request.
func (s *RequestService) Withdraw(ctx context.Context, id, studentID string) error {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.StudentID != studentID {
		return appErrors.ErrForbidden
	}
	if err := s.repo.DeleteIfPending(ctx, id, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "only pending requests can be withdrawn")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw request")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionRequestWithdraw,
		Resource:   "request",
		ResourceID: &id,
		OldValues:  marshalAudit(request),
	})
	return nil
}

func (s *RequestService) loadForReview(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "request already reviewed")
	}
	return request, nil
}

// transition performs the guarded status update. A zero-row update means a
// concurrent reviewer won the race and surfaces as a conflict.
func (s *RequestService) transition(ctx context.Context, request *models.Request, params repository.TransitionParams) (*models.Request, error) {
	oldValues := marshalAudit(request)
	params.UpdatedAt = s.now()
	if err := s.repo.Transition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request already reviewed")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request")
	}
	request.Status = params.ToStatus
	request.ReviewedBy = &params.ReviewedBy
	request.UpdatedAt = params.UpdatedAt
	if params.Response != nil {
		request.Response = params.Response
	}
	if params.Reason != nil {
		request.Reason = params.Reason
	}
	if s.metrics != nil {
		s.metrics.RecordRequestTransition(string(request.Type), string(params.ToStatus))
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &params.ReviewedBy,
		Action:     models.AuditActionRequestReview,
		Resource:   "request",
		ResourceID: &request.ID,
		OldValues:  oldValues,
		NewValues:  marshalAudit(request),
	})
	return request, nil
}

func (s *RequestService) emitAudit(ctx context.Context, log *models.AuditLog) {
	if s.audit == nil || log == nil {
		return
	}
	log.IPAddress = "system"
	log.UserAgent = "request-service"
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func marshalAudit(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return payload
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
