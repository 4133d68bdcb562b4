package service

import "github.com/gp-portal/gpms-api/internal/models"

// twoStageTypes is the single declaration of which request types require
// committee sign-off after the supervisor. Every other type is terminal on
// supervisor action alone.
var twoStageTypes = map[models.RequestType]struct{}{
	models.RequestTypeSupervision:      {},
	models.RequestTypeChangeSupervisor: {},
	models.RequestTypeExtension:        {},
}

// committeeDirectTypes go straight to the committee queue without a
// supervisor step.
var committeeDirectTypes = map[models.RequestType]struct{}{
	models.RequestTypeChangeGroup:   {},
	models.RequestTypeChangeProject: {},
}

// reasonRequiredTypes mandate a submitter justification at creation time.
var reasonRequiredTypes = map[models.RequestType]struct{}{
	models.RequestTypeExtension:        {},
	models.RequestTypeChangeSupervisor: {},
	models.RequestTypeChangeGroup:      {},
	models.RequestTypeChangeProject:    {},
}

// gatingPeriods maps request types to the calendar window that must be open
// before the request may be submitted. Types absent here are not gated.
var gatingPeriods = map[models.RequestType]models.PeriodType{
	models.RequestTypeSupervision: models.PeriodTypeProposalSubmission,
	models.RequestTypeExtension:   models.PeriodTypeEvaluation,
}

// ApprovalRouter is the pure routing policy for the request workflow: it
// decides, from a request's type alone, how far a review must travel before
// the request becomes terminal.
type ApprovalRouter struct{}

// NewApprovalRouter constructs the router.
func NewApprovalRouter() *ApprovalRouter {
	return &ApprovalRouter{}
}

// RequiresCommittee reports whether supervisor approval escalates to the
// committee instead of finalizing the request.
func (r *ApprovalRouter) RequiresCommittee(requestType models.RequestType) bool {
	_, ok := twoStageTypes[requestType]
	return ok
}

// NextOnSupervisorApproval computes the status a pending request reaches when
// the supervisor approves it.
func (r *ApprovalRouter) NextOnSupervisorApproval(requestType models.RequestType) models.RequestStatus {
	if r.RequiresCommittee(requestType) {
		return models.RequestStatusInProgress
	}
	return models.RequestStatusApproved
}

// RequiresReason reports whether a submitter justification is mandatory for
// the given type.
func (r *ApprovalRouter) RequiresReason(requestType models.RequestType) bool {
	_, ok := reasonRequiredTypes[requestType]
	return ok
}

// GatingPeriod returns the period type that gates submission of the given
// request type, when one applies.
func (r *ApprovalRouter) GatingPeriod(requestType models.RequestType) (models.PeriodType, bool) {
	periodType, ok := gatingPeriods[requestType]
	return periodType, ok
}

// SupervisorQueueTypes lists the request types surfaced in the supervisor
// review queue.
func (r *ApprovalRouter) SupervisorQueueTypes() []models.RequestType {
	return []models.RequestType{
		models.RequestTypeSupervision,
		models.RequestTypeChangeSupervisor,
		models.RequestTypeMeeting,
		models.RequestTypeExtension,
	}
}

// CommitteeDirectTypes lists the request types the committee reviews without
// a preceding supervisor step.
func (r *ApprovalRouter) CommitteeDirectTypes() []models.RequestType {
	return []models.RequestType{
		models.RequestTypeChangeGroup,
		models.RequestTypeChangeProject,
	}
}

// CommitteeEscalatedTypes lists the two-stage types that reach the committee
// only after supervisor sign-off.
func (r *ApprovalRouter) CommitteeEscalatedTypes() []models.RequestType {
	return []models.RequestType{
		models.RequestTypeSupervision,
		models.RequestTypeChangeSupervisor,
		models.RequestTypeExtension,
	}
}
