package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
	"github.com/gp-portal/gpms-api/pkg/response"
)

type eligibilityService interface {
	Check(ctx context.Context, studentID string) (*models.Eligibility, error)
}

// EligibilityHandler exposes the registration eligibility check.
type EligibilityHandler struct {
	service eligibilityService
}

// NewEligibilityHandler constructs the handler.
func NewEligibilityHandler(service eligibilityService) *EligibilityHandler {
	return &EligibilityHandler{service: service}
}

// Check godoc
// @Summary Evaluate registration eligibility for a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/eligibility [get]
func (h *EligibilityHandler) Check(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID := c.Param("id")
	if claims.Role == models.RoleStudent && studentID != claims.UserID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	verdict, err := h.service.Check(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict, nil)
}
