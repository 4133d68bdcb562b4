package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gp-portal/gpms-api/internal/models"
	"github.com/gp-portal/gpms-api/pkg/export"
	"github.com/gp-portal/gpms-api/pkg/storage"
)

type decisionLister interface {
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
}

type projectLister interface {
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report tables and persists rendered files.
type ExportService struct {
	requests decisionLister
	projects projectLister
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(requests decisionLister, projects projectLister, fileStore fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		requests: requests,
		projects: projects,
		storage:  fileStore,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the table for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	table, title, err := s.buildTable(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(table)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(table, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download?token=%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns the stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes the stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

func (s *ExportService) buildTable(ctx context.Context, job *models.ReportJob) (export.Table, string, error) {
	switch job.Type {
	case models.ReportTypeDecisions:
		table, err := s.decisionsTable(ctx, job.Params)
		return table, "Request Decisions", err
	case models.ReportTypeProjects:
		table, err := s.projectsTable(ctx)
		return table, "Graduation Projects", err
	default:
		return export.Table{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) decisionsTable(ctx context.Context, params models.ReportJobParams) (export.Table, error) {
	const batchSize = 200
	filter := models.RequestFilter{
		Status: []models.RequestStatus{models.RequestStatusApproved, models.RequestStatusRejected},
		Limit:  batchSize,
	}
	if params.Status != "" {
		filter.Status = []models.RequestStatus{params.Status}
	}
	if params.Type != "" {
		filter.Types = []models.RequestType{params.Type}
	}

	var requests []models.Request
	for {
		batch, err := s.requests.List(ctx, filter)
		if err != nil {
			return export.Table{}, err
		}
		requests = append(requests, batch...)
		if len(batch) < batchSize {
			break
		}
		filter.Offset += batchSize
	}

	table := export.Table{
		Columns: []string{"ID", "Type", "Status", "Student", "Supervisor", "Reviewed By", "Reason", "Response", "Decided At"},
		Rows:    make([][]string, 0, len(requests)),
	}
	for _, request := range requests {
		if params.From != nil && request.UpdatedAt.Before(*params.From) {
			continue
		}
		if params.To != nil && request.UpdatedAt.After(*params.To) {
			continue
		}
		table.Rows = append(table.Rows, []string{
			request.ID,
			string(request.Type),
			string(request.Status),
			request.StudentID,
			derefOrEmpty(request.SupervisorID),
			derefOrEmpty(request.ReviewedBy),
			derefOrEmpty(request.Reason),
			derefOrEmpty(request.Response),
			request.UpdatedAt.Format(time.RFC3339),
		})
	}
	return table, nil
}

func (s *ExportService) projectsTable(ctx context.Context) (export.Table, error) {
	const pageSize = 100
	filter := models.ProjectFilter{Page: 1, PageSize: pageSize}
	var projects []models.Project
	for {
		batch, _, err := s.projects.List(ctx, filter)
		if err != nil {
			return export.Table{}, err
		}
		projects = append(projects, batch...)
		if len(batch) < pageSize {
			break
		}
		filter.Page++
	}
	table := export.Table{
		Columns: []string{"ID", "Title", "Student", "Supervisor", "Status", "Created At"},
		Rows:    make([][]string, 0, len(projects)),
	}
	for _, project := range projects {
		table.Rows = append(table.Rows, []string{
			project.ID,
			project.Title,
			project.StudentID,
			derefOrEmpty(project.SupervisorID),
			string(project.Status),
			project.CreatedAt.Format(time.RFC3339),
		})
	}
	return table, nil
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	return fmt.Sprintf("%s-%s.%s", job.Type, job.ID, job.Params.Format)
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
