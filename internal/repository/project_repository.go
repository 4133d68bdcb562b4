package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gp-portal/gpms-api/internal/models"
)

const projectColumns = `id, title, description, student_id, supervisor_id, status, created_at, updated_at`

// ProjectRepository persists graduation project records.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project row.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	if project.Status == "" {
		project.Status = models.ProjectStatusProposed
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now
	const query = `INSERT INTO projects (id, title, description, student_id, supervisor_id, status, created_at, updated_at)
	VALUES (:id, :title, :description, :student_id, :supervisor_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// FindByID fetches a project by identifier.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM projects WHERE id = $1", projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

// List returns projects matching the filter.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	base := "FROM projects WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SupervisorID != "" {
		conditions = append(conditions, fmt.Sprintf("supervisor_id = $%d", len(args)+1))
		args = append(args, filter.SupervisorID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", projectColumns, base, size, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	return projects, total, nil
}

// CountByStatus aggregates project counts grouped by status.
func (r *ProjectRepository) CountByStatus(ctx context.Context) (map[models.ProjectStatus]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT status, COUNT(*) AS total FROM projects GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count projects by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[models.ProjectStatus]int)
	for rows.Next() {
		var status models.ProjectStatus
		var total int
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan project count: %w", err)
		}
		counts[status] = total
	}
	return counts, rows.Err()
}
