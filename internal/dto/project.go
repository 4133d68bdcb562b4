package dto

// RegisterProjectRequest payload for registering a graduation project.
type RegisterProjectRequest struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description" validate:"required"`
	SupervisorID *string `json:"supervisorId,omitempty"`
}
