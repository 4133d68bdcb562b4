package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
	"github.com/gp-portal/gpms-api/pkg/response"
)

type periodService interface {
	List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error)
	Get(ctx context.Context, id string) (*models.Period, error)
	Create(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*models.Period, error)
	Update(ctx context.Context, id string, req dto.UpdatePeriodRequest, actorID string) (*models.Period, error)
	Delete(ctx context.Context, id string, actorID string) error
	Status(ctx context.Context, periodType models.PeriodType, at time.Time) (*models.PeriodStatus, error)
}

// PeriodHandler exposes academic calendar endpoints.
type PeriodHandler struct {
	service periodService
}

// NewPeriodHandler constructs the handler.
func NewPeriodHandler(service periodService) *PeriodHandler {
	return &PeriodHandler{service: service}
}

// List godoc
// @Summary List academic periods
// @Tags Periods
// @Produce json
// @Param type query string false "Period type"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /periods [get]
func (h *PeriodHandler) List(c *gin.Context) {
	filter := models.PeriodFilter{
		Type:     models.PeriodType(strings.ToUpper(strings.TrimSpace(c.Query("type")))),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "pageSize", 20),
	}
	periods, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// Get godoc
// @Summary Get a period
// @Tags Periods
// @Produce json
// @Param id path string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /periods/{id} [get]
func (h *PeriodHandler) Get(c *gin.Context) {
	period, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Create godoc
// @Summary Open a new academic period
// @Tags Periods
// @Accept json
// @Produce json
// @Param payload body dto.CreatePeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Router /periods [post]
func (h *PeriodHandler) Create(c *gin.Context) {
	var req dto.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid period payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	period, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// Update godoc
// @Summary Edit an academic period
// @Tags Periods
// @Accept json
// @Produce json
// @Param id path string true "Period ID"
// @Param payload body dto.UpdatePeriodRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /periods/{id} [put]
func (h *PeriodHandler) Update(c *gin.Context) {
	var req dto.UpdatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid period payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	period, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, period, nil)
}

// Delete godoc
// @Summary Delete an academic period
// @Tags Periods
// @Param id path string true "Period ID"
// @Success 204
// @Router /periods/{id} [delete]
func (h *PeriodHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Status godoc
// @Summary Check whether a period type is currently open
// @Tags Periods
// @Produce json
// @Param type query string true "Period type"
// @Param at query string false "RFC3339 instant, defaults to now"
// @Success 200 {object} response.Envelope
// @Router /periods/status [get]
func (h *PeriodHandler) Status(c *gin.Context) {
	rawType := strings.ToUpper(strings.TrimSpace(c.Query("type")))
	if rawType == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type is required"))
		return
	}
	at := time.Now().UTC()
	if rawAt := c.Query("at"); rawAt != "" {
		parsed, err := time.Parse(time.RFC3339, rawAt)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at must be RFC3339"))
			return
		}
		at = parsed
	}
	status, err := h.service.Status(c.Request.Context(), models.PeriodType(rawType), at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}
