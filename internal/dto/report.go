package dto

import "github.com/gp-portal/gpms-api/internal/models"

// ReportRequest captures POST /reports payload.
type ReportRequest struct {
	Type   models.ReportType    `json:"type"`
	Format models.ReportFormat  `json:"format"`
	Status models.RequestStatus `json:"status,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
