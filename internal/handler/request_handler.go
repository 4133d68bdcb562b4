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

type requestService interface {
	Create(ctx context.Context, req dto.CreateRequestRequest, studentID string) (*models.Request, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error)
	List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.Request, error)
	SupervisorQueue(ctx context.Context, supervisorID string) ([]models.Request, error)
	CommitteeQueue(ctx context.Context) ([]models.Request, error)
	SupervisorApprove(ctx context.Context, id string, req dto.ApproveRequestRequest, reviewerID string) (*models.Request, error)
	SupervisorReject(ctx context.Context, id string, req dto.RejectRequestRequest, reviewerID string) (*models.Request, error)
	CommitteeApprove(ctx context.Context, id string, req dto.ApproveRequestRequest, reviewerID string) (*models.Request, error)
	CommitteeReject(ctx context.Context, id string, req dto.RejectRequestRequest, reviewerID string) (*models.Request, error)
	Withdraw(ctx context.Context, id, studentID string) error
}

// RequestHandler exposes REST endpoints for the request workflow.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create godoc
// @Summary Submit a student request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List requests visible to the caller
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param type query string false "Comma separated types"
// @Param studentId query string false "Student ID filter"
// @Param supervisorId query string false "Supervisor ID filter"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.RequestQuery{
		StudentID:    strings.TrimSpace(c.Query("studentId")),
		SupervisorID: strings.TrimSpace(c.Query("supervisorId")),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			query.Status = append(query.Status, models.RequestStatus(part))
		}
	}
	if rawTypes := c.Query("type"); rawTypes != "" {
		for _, part := range strings.Split(rawTypes, ",") {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			query.Types = append(query.Types, models.RequestType(part))
		}
	}
	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get request detail
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// SupervisorQueue godoc
// @Summary Pending requests awaiting supervisor review
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/queue/supervisor [get]
func (h *RequestHandler) SupervisorQueue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	supervisorID := ""
	if claims.Role == models.RoleSupervisor {
		supervisorID = claims.UserID
	}
	requests, err := h.service.SupervisorQueue(c.Request.Context(), supervisorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// CommitteeQueue godoc
// @Summary Requests awaiting committee review
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/queue/committee [get]
func (h *RequestHandler) CommitteeQueue(c *gin.Context) {
	requests, err := h.service.CommitteeQueue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// SupervisorApprove godoc
// @Summary Approve a request as supervisor
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ApproveRequestRequest false "Optional response message"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/supervisor-approval [post]
func (h *RequestHandler) SupervisorApprove(c *gin.Context) {
	h.review(c, func(ctx context.Context, id string, reviewerID string) (*models.Request, error) {
		var req dto.ApproveRequestRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload")
			}
		}
		return h.service.SupervisorApprove(ctx, id, req, reviewerID)
	})
}

// SupervisorReject godoc
// @Summary Reject a request as supervisor
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectRequestRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/supervisor-rejection [post]
func (h *RequestHandler) SupervisorReject(c *gin.Context) {
	h.review(c, func(ctx context.Context, id string, reviewerID string) (*models.Request, error) {
		var req dto.RejectRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
		}
		return h.service.SupervisorReject(ctx, id, req, reviewerID)
	})
}

// CommitteeApprove godoc
// @Summary Approve a request as committee
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ApproveRequestRequest false "Optional response message"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/committee-approval [post]
func (h *RequestHandler) CommitteeApprove(c *gin.Context) {
	h.review(c, func(ctx context.Context, id string, reviewerID string) (*models.Request, error) {
		var req dto.ApproveRequestRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload")
			}
		}
		return h.service.CommitteeApprove(ctx, id, req, reviewerID)
	})
}

// CommitteeReject godoc
// @Summary Reject a request as committee
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectRequestRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/committee-rejection [post]
func (h *RequestHandler) CommitteeReject(c *gin.Context) {
	h.review(c, func(ctx context.Context, id string, reviewerID string) (*models.Request, error) {
		var req dto.RejectRequestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a rejection reason is required")
		}
		return h.service.CommitteeReject(ctx, id, req, reviewerID)
	})
}

// Withdraw godoc
// @Summary Withdraw an own pending request
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204
// @Router /requests/{id} [delete]
func (h *RequestHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Withdraw(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *RequestHandler) review(c *gin.Context, fn func(ctx context.Context, id, reviewerID string) (*models.Request, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := fn(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
