package models

import "time"

// ProjectStatus tracks the project lifecycle.
type ProjectStatus string

const (
	ProjectStatusProposed  ProjectStatus = "PROPOSED"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
)

// Project represents a graduation project record.
type Project struct {
	ID           string        `db:"id" json:"id"`
	Title        string        `db:"title" json:"title"`
	Description  string        `db:"description" json:"description"`
	StudentID    string        `db:"student_id" json:"student_id"`
	SupervisorID *string       `db:"supervisor_id" json:"supervisor_id,omitempty"`
	Status       ProjectStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// ProjectFilter constrains project listing queries.
type ProjectFilter struct {
	Status       ProjectStatus
	StudentID    string
	SupervisorID string
	Page         int
	PageSize     int
}
