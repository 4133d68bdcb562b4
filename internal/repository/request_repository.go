package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gp-portal/gpms-api/internal/models"
)

const requestColumns = `id, type, status, priority, student_id, supervisor_id, description, reason,
       response, reviewed_by, requested_date, created_at, updated_at`

// RequestRepository persists student request workflow data.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	if request.Priority == "" {
		request.Priority = models.RequestPriorityMedium
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = request.CreatedAt
	}
	if request.RequestedDate.IsZero() {
		request.RequestedDate = now
	}
	const query = `INSERT INTO requests
	(id, type, status, priority, student_id, supervisor_id, description, reason, response, reviewed_by, requested_date, created_at, updated_at)
	VALUES (:id, :type, :status, :priority, :student_id, :supervisor_id, :description, :reason, :response, :reviewed_by, :requested_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf("SELECT %s FROM requests WHERE id = $1", requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter (latest first).
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM requests", requestColumns))

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, requestType := range filter.Types {
			args = append(args, requestType)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.SupervisorID != "" {
		args = append(args, filter.SupervisorID)
		conditions = append(conditions, fmt.Sprintf("supervisor_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// CommitteeQueue returns the committee review queue: direct-review types in any
// non-terminal status, plus escalated types awaiting final sign-off.
func (r *RequestRepository) CommitteeQueue(ctx context.Context, directTypes, escalatedTypes []models.RequestType) ([]models.Request, error) {
	args := make([]interface{}, 0, len(directTypes)+len(escalatedTypes)+3)

	directPlaceholders := make([]string, len(directTypes))
	for i, requestType := range directTypes {
		args = append(args, requestType)
		directPlaceholders[i] = fmt.Sprintf("$%d", len(args))
	}
	args = append(args, models.RequestStatusPending)
	pendingArg := fmt.Sprintf("$%d", len(args))
	args = append(args, models.RequestStatusInProgress)
	inProgressArg := fmt.Sprintf("$%d", len(args))

	escalatedPlaceholders := make([]string, len(escalatedTypes))
	for i, requestType := range escalatedTypes {
		args = append(args, requestType)
		escalatedPlaceholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(`SELECT %s FROM requests
	WHERE (type IN (%s) AND status IN (%s, %s))
	   OR (type IN (%s) AND status = %s)
	ORDER BY created_at DESC`,
		requestColumns,
		strings.Join(directPlaceholders, ","),
		pendingArg, inProgressArg,
		strings.Join(escalatedPlaceholders, ","),
		inProgressArg,
	)

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list committee queue: %w", err)
	}
	return requests, nil
}

// TransitionParams groups the mutable columns for a status transition.
type TransitionParams struct {
	ID          string
	ToStatus    models.RequestStatus
	AllowedFrom []models.RequestStatus
	ReviewedBy  string
	Response    *string
	Reason      *string
	UpdatedAt   time.Time
}

// Transition applies a compare-and-set status update. The row is only touched
// when its current status is one of AllowedFrom; otherwise sql.ErrNoRows is
// returned so the caller can surface a conflict.
func (r *RequestRepository) Transition(ctx context.Context, params TransitionParams) error {
	if len(params.AllowedFrom) == 0 {
		return fmt.Errorf("transition requires at least one source status")
	}
	setParts := []string{
		"status = :status",
		"reviewed_by = :reviewed_by",
		"updated_at = :updated_at",
	}
	if params.Response != nil {
		setParts = append(setParts, "response = :response")
	}
	if params.Reason != nil {
		setParts = append(setParts, "reason = :reason")
	}
	sources := make([]string, len(params.AllowedFrom))
	for i, status := range params.AllowedFrom {
		sources[i] = fmt.Sprintf("'%s'", status)
	}
	query := fmt.Sprintf("UPDATE requests SET %s WHERE id = :id AND status IN (%s)",
		strings.Join(setParts, ", "),
		strings.Join(sources, ","),
	)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"status":      params.ToStatus,
		"reviewed_by": params.ReviewedBy,
		"updated_at":  params.UpdatedAt,
		"response":    params.Response,
		"reason":      params.Reason,
	})
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteIfPending removes a student's own request while it is still pending.
// Returns sql.ErrNoRows when the request moved on or belongs to someone else.
func (r *RequestRepository) DeleteIfPending(ctx context.Context, id, studentID string) error {
	const query = `DELETE FROM requests WHERE id = $1 AND student_id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, id, studentID, models.RequestStatusPending)
	if err != nil {
		return fmt.Errorf("withdraw request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check withdraw rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus aggregates request counts grouped by status.
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[models.RequestStatus]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT status, COUNT(*) AS total FROM requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count requests by status: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[models.RequestStatus]int)
	for rows.Next() {
		var status models.RequestStatus
		var total int
		if err := rows.Scan(&status, &total); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = total
	}
	return counts, rows.Err()
}

// CountByType aggregates request counts grouped by type.
func (r *RequestRepository) CountByType(ctx context.Context) (map[models.RequestType]int, error) {
	rows, err := r.db.QueryxContext(ctx, `SELECT type, COUNT(*) AS total FROM requests GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("count requests by type: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[models.RequestType]int)
	for rows.Next() {
		var requestType models.RequestType
		var total int
		if err := rows.Scan(&requestType, &total); err != nil {
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		counts[requestType] = total
	}
	return counts, rows.Err()
}
