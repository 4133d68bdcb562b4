package dto

import "github.com/gp-portal/gpms-api/internal/models"

// CreateRequestRequest payload for submitting a new student request.
type CreateRequestRequest struct {
	Type         models.RequestType     `json:"type" validate:"required"`
	Priority     models.RequestPriority `json:"priority"`
	SupervisorID *string                `json:"supervisorId,omitempty"`
	Description  string                 `json:"description" validate:"required"`
	Reason       string                 `json:"reason"`
}

// ApproveRequestRequest captures the reviewer's optional response message.
type ApproveRequestRequest struct {
	Response string `json:"response"`
}

// RejectRequestRequest captures the mandatory rejection reason.
type RejectRequestRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// RequestQuery mirrors supported listing filters.
type RequestQuery struct {
	Status       []models.RequestStatus
	Types        []models.RequestType
	StudentID    string
	SupervisorID string
}
