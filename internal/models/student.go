package models

// StudentAcademicInfo is the read-only academic record consulted by the
// eligibility checker. It is owned by the registrar system, not by GPMS.
type StudentAcademicInfo struct {
	StudentID              string  `db:"student_id" json:"student_id"`
	CompletedHours         int     `db:"completed_hours" json:"completed_hours"`
	RequiredHours          int     `db:"required_hours" json:"required_hours"`
	GPA                    float64 `db:"gpa" json:"gpa"`
	MinimumGPA             float64 `db:"minimum_gpa" json:"minimum_gpa"`
	IsRegisteredInProject  bool    `db:"is_registered_in_project" json:"is_registered_in_project"`
	CurrentProjectID       *string `db:"current_project_id" json:"current_project_id,omitempty"`
	CompletedPrerequisites bool    `db:"completed_prerequisites" json:"completed_prerequisites"`
}

// EligibilityDetails exposes each criterion so a caller can highlight
// exactly which ones failed.
type EligibilityDetails struct {
	HasEnoughHours                  bool `json:"has_enough_hours"`
	HasMinimumGPA                   bool `json:"has_minimum_gpa"`
	IsNotRegisteredInAnotherProject bool `json:"is_not_registered_in_another_project"`
	CompletedPrerequisites          bool `json:"completed_prerequisites"`
}

// Eligibility is the registration eligibility verdict for a student.
type Eligibility struct {
	StudentID string             `json:"student_id"`
	Eligible  bool               `json:"eligible"`
	Reason    string             `json:"reason,omitempty"`
	Details   EligibilityDetails `json:"details"`
}
