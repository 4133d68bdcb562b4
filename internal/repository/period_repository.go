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

const periodColumns = `id, type, name, start_date, end_date, is_active, created_at, updated_at`

// PeriodRepository handles persistence for academic period windows.
type PeriodRepository struct {
	db *sqlx.DB
}

// NewPeriodRepository instantiates a period repository.
func NewPeriodRepository(db *sqlx.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

// List returns periods matching provided filters.
func (r *PeriodRepository) List(ctx context.Context, filter models.PeriodFilter) ([]models.Period, int, error) {
	base := "FROM periods WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *filter.IsActive)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC LIMIT %d OFFSET %d", periodColumns, base, size, offset)

	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list periods: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count periods: %w", err)
	}

	return periods, total, nil
}

// FindByID fetches a period by identifier.
func (r *PeriodRepository) FindByID(ctx context.Context, id string) (*models.Period, error) {
	query := fmt.Sprintf("SELECT %s FROM periods WHERE id = $1", periodColumns)
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, id); err != nil {
		return nil, err
	}
	return &period, nil
}

// FindEffective returns the period consulted for gating a given type: the
// most recently started active window. sql.ErrNoRows when none exists.
func (r *PeriodRepository) FindEffective(ctx context.Context, periodType models.PeriodType) (*models.Period, error) {
	query := fmt.Sprintf(`SELECT %s FROM periods
	WHERE type = $1 AND is_active = TRUE
	ORDER BY start_date DESC LIMIT 1`, periodColumns)
	var period models.Period
	if err := r.db.GetContext(ctx, &period, query, periodType); err != nil {
		return nil, err
	}
	return &period, nil
}

// Create inserts a new period row.
func (r *PeriodRepository) Create(ctx context.Context, period *models.Period) error {
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if period.CreatedAt.IsZero() {
		period.CreatedAt = now
	}
	period.UpdatedAt = now
	const query = `INSERT INTO periods (id, type, name, start_date, end_date, is_active, created_at, updated_at)
	VALUES (:id, :type, :name, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, period); err != nil {
		return fmt.Errorf("create period: %w", err)
	}
	return nil
}

// Update persists edits to an existing period.
func (r *PeriodRepository) Update(ctx context.Context, period *models.Period) error {
	period.UpdatedAt = time.Now().UTC()
	const query = `UPDATE periods SET name = :name, start_date = :start_date, end_date = :end_date,
	is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, period)
	if err != nil {
		return fmt.Errorf("update period: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check period update rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("period %s not found", period.ID)
	}
	return nil
}

// Delete removes a period by identifier.
func (r *PeriodRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM periods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete period: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check period delete rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("period %s not found", id)
	}
	return nil
}
