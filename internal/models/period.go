package models

import "time"

// PeriodType enumerates academic process windows gated by the calendar.
type PeriodType string

const (
	PeriodTypeProposalSubmission  PeriodType = "PROPOSAL_SUBMISSION"
	PeriodTypeProjectRegistration PeriodType = "PROJECT_REGISTRATION"
	PeriodTypeDocumentSubmission  PeriodType = "DOCUMENT_SUBMISSION"
	PeriodTypeEvaluation          PeriodType = "EVALUATION"
	PeriodTypeDefense             PeriodType = "DEFENSE"
)

// AllPeriodTypes lists every supported period type.
var AllPeriodTypes = []PeriodType{
	PeriodTypeProposalSubmission,
	PeriodTypeProjectRegistration,
	PeriodTypeDocumentSubmission,
	PeriodTypeEvaluation,
	PeriodTypeDefense,
}

// Valid reports whether the type belongs to the closed enumeration.
func (t PeriodType) Valid() bool {
	for _, known := range AllPeriodTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Period models a calendar window during which an academic action is permitted.
type Period struct {
	ID        string     `db:"id" json:"id"`
	Type      PeriodType `db:"type" json:"type"`
	Name      string     `db:"name" json:"name"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   time.Time  `db:"end_date" json:"end_date"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Contains reports whether the instant falls inside the window, bounds inclusive.
func (p *Period) Contains(at time.Time) bool {
	return !at.Before(p.StartDate) && !at.After(p.EndDate)
}

// PeriodFilter defines filters supported by list endpoints.
type PeriodFilter struct {
	Type     PeriodType
	IsActive *bool
	Page     int
	PageSize int
}

// PeriodStatus is the gate result: whether the window is open and which
// period matched, if any.
type PeriodStatus struct {
	Open   bool    `json:"open"`
	Period *Period `json:"period,omitempty"`
}
