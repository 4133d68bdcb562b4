package dto

import "github.com/gp-portal/gpms-api/internal/models"

// DashboardResponse aggregates portal-wide counters for admin and committee views.
type DashboardResponse struct {
	Requests    RequestsSection     `json:"requests"`
	Projects    ProjectsSection     `json:"projects"`
	OpenPeriods []models.PeriodType `json:"openPeriods"`
}

// RequestsSection summarises the request workflow load.
type RequestsSection struct {
	ByStatus map[models.RequestStatus]int `json:"byStatus"`
	ByType   map[models.RequestType]int   `json:"byType"`
}

// ProjectsSection summarises project records.
type ProjectsSection struct {
	ByStatus map[models.ProjectStatus]int `json:"byStatus"`
	Total    int                          `json:"total"`
}
