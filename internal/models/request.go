package models

import "time"

// RequestType enumerates the closed set of student request categories.
type RequestType string

const (
	RequestTypeSupervision      RequestType = "SUPERVISION"
	RequestTypeMeeting          RequestType = "MEETING"
	RequestTypeExtension        RequestType = "EXTENSION"
	RequestTypeChangeSupervisor RequestType = "CHANGE_SUPERVISOR"
	RequestTypeChangeGroup      RequestType = "CHANGE_GROUP"
	RequestTypeChangeProject    RequestType = "CHANGE_PROJECT"
	RequestTypeOther            RequestType = "OTHER"
)

// AllRequestTypes lists every supported request type.
var AllRequestTypes = []RequestType{
	RequestTypeSupervision,
	RequestTypeMeeting,
	RequestTypeExtension,
	RequestTypeChangeSupervisor,
	RequestTypeChangeGroup,
	RequestTypeChangeProject,
	RequestTypeOther,
}

// Valid reports whether the type belongs to the closed enumeration.
func (t RequestType) Valid() bool {
	for _, known := range AllRequestTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequestStatus captures workflow states for student requests.
type RequestStatus string

const (
	RequestStatusPending RequestStatus = "PENDING"
	// RequestStatusInProgress means the supervisor signed off and the
	// request now awaits committee review.
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusRejected   RequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is permitted.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// RequestPriority is informational only and has no routing effect.
type RequestPriority string

const (
	RequestPriorityLow    RequestPriority = "LOW"
	RequestPriorityMedium RequestPriority = "MEDIUM"
	RequestPriorityHigh   RequestPriority = "HIGH"
)

// Request stores a student-submitted request routed through the review workflow.
type Request struct {
	ID            string          `db:"id" json:"id"`
	Type          RequestType     `db:"type" json:"type"`
	Status        RequestStatus   `db:"status" json:"status"`
	Priority      RequestPriority `db:"priority" json:"priority"`
	StudentID     string          `db:"student_id" json:"student_id"`
	SupervisorID  *string         `db:"supervisor_id" json:"supervisor_id,omitempty"`
	Description   string          `db:"description" json:"description"`
	Reason        *string         `db:"reason" json:"reason,omitempty"`
	Response      *string         `db:"response" json:"response,omitempty"`
	ReviewedBy    *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	RequestedDate time.Time       `db:"requested_date" json:"requested_date"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// RequestFilter constrains listing queries.
type RequestFilter struct {
	Status       []RequestStatus
	Types        []RequestType
	StudentID    string
	SupervisorID string
	Limit        int
	Offset       int
}
