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

type projectStore interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
}

type registrationMarker interface {
	MarkRegistered(ctx context.Context, studentID, projectID string) error
}

type eligibilityChecker interface {
	Check(ctx context.Context, studentID string) (*models.Eligibility, error)
}

// ProjectService handles graduation project registration and lookups.
type ProjectService struct {
	repo        projectStore
	students    registrationMarker
	eligibility eligibilityChecker
	periods     periodGate
	audit       auditLogger
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewProjectService constructs the service.
func NewProjectService(repo projectStore, students registrationMarker, eligibility eligibilityChecker, periods periodGate, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProjectService{
		repo:        repo,
		students:    students,
		eligibility: eligibility,
		periods:     periods,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a project for the student after the registration window
// and eligibility checks both pass.
func (s *ProjectService) Register(ctx context.Context, req dto.RegisterProjectRequest, studentID string) (*models.Project, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}
	if s.periods != nil {
		open, err := s.periods.IsOpen(ctx, models.PeriodTypeProjectRegistration, s.now())
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve registration period")
		}
		if !open {
			return nil, appErrors.Clone(appErrors.ErrPeriodClosed, fmt.Sprintf("the %s period is not open", models.PeriodTypeProjectRegistration))
		}
	}
	verdict, err := s.eligibility.Check(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check eligibility")
	}
	if !verdict.Eligible {
		return nil, appErrors.Clone(appErrors.ErrNotEligible, verdict.Reason)
	}

	project := &models.Project{
		Title:        req.Title,
		Description:  req.Description,
		StudentID:    studentID,
		SupervisorID: req.SupervisorID,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}
	if err := s.students.MarkRegistered(ctx, studentID, project.ID); err != nil {
		s.logger.Error("project created but student registration flag not set",
			zap.String("project_id", project.ID),
			zap.String("student_id", studentID),
			zap.Error(err))
	}
	s.emitAudit(ctx, studentID, project)
	return project, nil
}

// Get returns a project, enforcing ownership for students.
func (s *ProjectService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Project, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	if actor.Role == models.RoleStudent && project.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return project, nil
}

// List returns projects scoped to the actor's role.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter, actor *models.JWTClaims) ([]models.Project, int, error) {
	if actor == nil {
		return nil, 0, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.UserID
	case models.RoleSupervisor:
		filter.SupervisorID = actor.UserID
	default:
		// committee, discussion and admin see everything
	}
	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	return projects, total, nil
}

func (s *ProjectService) emitAudit(ctx context.Context, studentID string, project *models.Project) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		UserID:     &studentID,
		Action:     models.AuditActionProjectRegister,
		Resource:   "project",
		ResourceID: &project.ID,
		NewValues:  marshalAudit(project),
		IPAddress:  "system",
		UserAgent:  "project-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
