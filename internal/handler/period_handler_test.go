package handler

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gp-portal/gpms-api/internal/dto"
	internalmiddleware "github.com/gp-portal/gpms-api/internal/middleware"
	"github.com/gp-portal/gpms-api/internal/models"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
)

type periodServiceMock struct {
	statusType models.PeriodType
	statusAt   time.Time
	created    *dto.CreatePeriodRequest
	deleted    string
}

func (m *periodServiceMock) samplePeriod() *models.Period {
	return &models.Period{
		ID:        "per-1",
		Type:      models.PeriodTypeProjectRegistration,
		Name:      "Spring registration",
		StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC),
		IsActive:  true,
	}
}

func (m *periodServiceMock) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error) {
	return []models.Period{*m.samplePeriod()}, 1, nil
}

func (m *periodServiceMock) Get(ctx context.Context, id string) (*models.Period, error) {
	if id != "per-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "period not found")
	}
	return m.samplePeriod(), nil
}

func (m *periodServiceMock) Create(ctx context.Context, req dto.CreatePeriodRequest, actorID string) (*models.Period, error) {
	m.created = &req
	return m.samplePeriod(), nil
}

func (m *periodServiceMock) Update(ctx context.Context, id string, req dto.UpdatePeriodRequest, actorID string) (*models.Period, error) {
	return m.samplePeriod(), nil
}

func (m *periodServiceMock) Delete(ctx context.Context, id string, actorID string) error {
	m.deleted = id
	return nil
}

func (m *periodServiceMock) Status(ctx context.Context, periodType models.PeriodType, at time.Time) (*models.PeriodStatus, error) {
	m.statusType = periodType
	m.statusAt = at
	period := m.samplePeriod()
	return &models.PeriodStatus{Open: period.Contains(at), Period: period}, nil
}

func buildPeriodRouter(mock *periodServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(testClaimsMiddleware())

	h := NewPeriodHandler(mock)
	periods := router.Group("/periods")
	periods.GET("/status", h.Status)
	periods.GET("", h.List)
	periods.GET("/:id", h.Get)
	admin := periods.Group("", internalmiddleware.RequireRoles(models.RoleCommittee, models.RoleAdmin))
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
	return router
}

func TestPeriodRoutes(t *testing.T) {
	mock := &periodServiceMock{}
	router := buildPeriodRouter(mock)

	t.Run("status requires type", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/periods/status", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("status open inside the window", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/periods/status?type=project_registration&at=2026-02-15T12:00:00Z", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"open":true`)
		require.Equal(t, models.PeriodTypeProjectRegistration, mock.statusType)
		require.Equal(t, time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC), mock.statusAt)
	})

	t.Run("status closed outside the window", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/periods/status?type=PROJECT_REGISTRATION&at=2026-03-01T00:00:00Z", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"open":false`)
	})

	t.Run("status rejects malformed at", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/periods/status?type=PROJECT_REGISTRATION&at=yesterday", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("list includes pagination", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/periods?page=2&pageSize=10", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"pagination"`)
	})

	t.Run("create forbidden for student", func(t *testing.T) {
		body := bytes.NewBufferString(`{"type":"EVALUATION","name":"x","startDate":"2026-05-01T00:00:00Z","endDate":"2026-05-31T00:00:00Z"}`)
		req, _ := http.NewRequest(http.MethodPost, "/periods", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("create success for admin", func(t *testing.T) {
		body := bytes.NewBufferString(`{"type":"EVALUATION","name":"Evaluation window","startDate":"2026-05-01T00:00:00Z","endDate":"2026-05-31T00:00:00Z"}`)
		req, _ := http.NewRequest(http.MethodPost, "/periods", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusCreated, resp.Code)
		require.NotNil(t, mock.created)
		require.Equal(t, "Evaluation window", mock.created.Name)
	})

	t.Run("delete success for admin", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, "/periods/per-1", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNoContent, resp.Code)
		require.Equal(t, "per-1", mock.deleted)
	})

	t.Run("get unknown period returns 404", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/periods/per-404", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusNotFound, resp.Code)
	})
}
