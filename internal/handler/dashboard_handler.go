package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context) (*dto.DashboardResponse, bool, error)
}

// DashboardHandler exposes the aggregated portal dashboard.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @Summary Portal-wide workflow and project counters
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, cached, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"cache": cached})
}
