package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
	"github.com/gp-portal/gpms-api/pkg/response"
)

type projectService interface {
	Register(ctx context.Context, req dto.RegisterProjectRequest, studentID string) (*models.Project, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter, actor *models.JWTClaims) ([]models.Project, int, error)
}

// ProjectHandler exposes graduation project endpoints.
type ProjectHandler struct {
	service projectService
}

// NewProjectHandler constructs the handler.
func NewProjectHandler(service projectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Register godoc
// @Summary Register a graduation project
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body dto.RegisterProjectRequest true "Project payload"
// @Success 201 {object} response.Envelope
// @Router /projects/register [post]
func (h *ProjectHandler) Register(c *gin.Context) {
	var req dto.RegisterProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid project payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	project, err := h.service.Register(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// List godoc
// @Summary List graduation projects
// @Tags Projects
// @Produce json
// @Param status query string false "Project status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /projects [get]
func (h *ProjectHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.ProjectFilter{
		Status:   models.ProjectStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	projects, total, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get project detail
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	project, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}
