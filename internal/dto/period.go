package dto

import (
	"time"

	"github.com/gp-portal/gpms-api/internal/models"
)

// CreatePeriodRequest payload for opening a new academic window.
type CreatePeriodRequest struct {
	Type      models.PeriodType `json:"type" validate:"required"`
	Name      string            `json:"name" validate:"required"`
	StartDate time.Time         `json:"startDate" validate:"required"`
	EndDate   time.Time         `json:"endDate" validate:"required"`
	IsActive  *bool             `json:"isActive,omitempty"`
}

// UpdatePeriodRequest payload for editing an existing window.
type UpdatePeriodRequest struct {
	Name      *string    `json:"name,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	IsActive  *bool      `json:"isActive,omitempty"`
}
