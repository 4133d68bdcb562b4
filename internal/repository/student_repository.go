package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/gp-portal/gpms-api/internal/models"
)

// StudentRepository reads academic records maintained by the registrar feed.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindAcademicInfo loads the read-only academic record for a student.
func (r *StudentRepository) FindAcademicInfo(ctx context.Context, studentID string) (*models.StudentAcademicInfo, error) {
	const query = `SELECT student_id, completed_hours, required_hours, gpa, minimum_gpa,
       is_registered_in_project, current_project_id, completed_prerequisites
	FROM student_academic_info WHERE student_id = $1`
	var info models.StudentAcademicInfo
	if err := r.db.GetContext(ctx, &info, query, studentID); err != nil {
		return nil, err
	}
	return &info, nil
}

// MarkRegistered flips the registration flag once a project is created.
func (r *StudentRepository) MarkRegistered(ctx context.Context, studentID, projectID string) error {
	const query = `UPDATE student_academic_info
	SET is_registered_in_project = TRUE, current_project_id = $2
	WHERE student_id = $1`
	_, err := r.db.ExecContext(ctx, query, studentID, projectID)
	return err
}
