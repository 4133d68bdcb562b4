package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gp-portal/gpms-api/internal/dto"
	"github.com/gp-portal/gpms-api/internal/models"
	"github.com/gp-portal/gpms-api/internal/repository"
	appErrors "github.com/gp-portal/gpms-api/pkg/errors"
)

type fakeRequestStore struct {
	created        *models.Request
	createErr      error
	byID           *models.Request
	byIDErr        error
	listed         []models.Request
	listFilter     models.RequestFilter
	listErr        error
	queue          []models.Request
	queueDirect    []models.RequestType
	queueEscalated []models.RequestType
	transition     repository.TransitionParams
	transitionErr  error
	deleteErr      error
	deletedID      string
}

func (f *fakeRequestStore) Create(_ context.Context, request *models.Request) error {
	if f.createErr != nil {
		return f.createErr
	}
	request.ID = "req-1"
	request.Status = models.RequestStatusPending
	f.created = request
	return nil
}

func (f *fakeRequestStore) GetByID(context.Context, string) (*models.Request, error) {
	return f.byID, f.byIDErr
}

func (f *fakeRequestStore) List(_ context.Context, filter models.RequestFilter) ([]models.Request, error) {
	f.listFilter = filter
	return f.listed, f.listErr
}

func (f *fakeRequestStore) CommitteeQueue(_ context.Context, directTypes, escalatedTypes []models.RequestType) ([]models.Request, error) {
	f.queueDirect = directTypes
	f.queueEscalated = escalatedTypes
	return f.queue, nil
}

func (f *fakeRequestStore) Transition(_ context.Context, params repository.TransitionParams) error {
	f.transition = params
	return f.transitionErr
}

func (f *fakeRequestStore) DeleteIfPending(_ context.Context, id, _ string) error {
	f.deletedID = id
	return f.deleteErr
}

type fakeAudit struct {
	logs []*models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	f.logs = append(f.logs, log)
	return nil
}

type fakeGate struct {
	open bool
	err  error
}

func (f *fakeGate) IsOpen(context.Context, models.PeriodType, time.Time) (bool, error) {
	return f.open, f.err
}

func pendingRequest(requestType models.RequestType) *models.Request {
	return &models.Request{
		ID:        "req-1",
		Type:      requestType,
		Status:    models.RequestStatusPending,
		StudentID: "student-1",
	}
}

func TestRequestServiceCreateSuccess(t *testing.T) {
	store := &fakeRequestStore{}
	audit := &fakeAudit{}
	svc := NewRequestService(store, audit, &fakeGate{open: true}, nil, nil, nil)

	request, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:        models.RequestTypeSupervision,
		Description: "supervision under Dr. Salem",
	}, "student-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, "student-1", request.StudentID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestCreate, audit.logs[0].Action)
}

func TestRequestServiceCreateRejectsUnknownType(t *testing.T) {
	svc := NewRequestService(&fakeRequestStore{}, nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:        "GRADE_APPEAL",
		Description: "please regrade",
	}, "student-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceCreateRequiresDescription(t *testing.T) {
	store := &fakeRequestStore{}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:        models.RequestTypeMeeting,
		Description: "   ",
	}, "student-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.created)
}

func TestRequestServiceCreateRequiresReason(t *testing.T) {
	svc := NewRequestService(&fakeRequestStore{}, nil, nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:        models.RequestTypeExtension,
		Description: "one more semester",
	}, "student-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceCreatePeriodClosed(t *testing.T) {
	store := &fakeRequestStore{}
	svc := NewRequestService(store, nil, &fakeGate{open: false}, nil, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:        models.RequestTypeSupervision,
		Description: "supervision",
	}, "student-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPeriodClosed.Code, appErrors.FromError(err).Code)
	assert.Nil(t, store.created)
}

func TestRequestServiceSupervisorApproveTwoStage(t *testing.T) {
	store := &fakeRequestStore{byID: pendingRequest(models.RequestTypeSupervision)}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	request, err := svc.SupervisorApprove(context.Background(), "req-1", dto.ApproveRequestRequest{Response: "handing to committee"}, "supervisor-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusInProgress, request.Status)
	assert.Equal(t, models.RequestStatusInProgress, store.transition.ToStatus)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending}, store.transition.AllowedFrom)
	require.NotNil(t, request.Response)
	assert.Equal(t, "handing to committee", *request.Response)
}

func TestRequestServiceSupervisorApproveSingleStage(t *testing.T) {
	store := &fakeRequestStore{byID: pendingRequest(models.RequestTypeMeeting)}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	request, err := svc.SupervisorApprove(context.Background(), "req-1", dto.ApproveRequestRequest{}, "supervisor-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, request.Status)
	assert.Nil(t, store.transition.Response)
}

func TestRequestServiceSupervisorApproveConflict(t *testing.T) {
	store := &fakeRequestStore{
		byID:          pendingRequest(models.RequestTypeMeeting),
		transitionErr: sql.ErrNoRows,
	}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	_, err := svc.SupervisorApprove(context.Background(), "req-1", dto.ApproveRequestRequest{}, "supervisor-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceSupervisorApproveAlreadyReviewed(t *testing.T) {
	reviewed := pendingRequest(models.RequestTypeMeeting)
	reviewed.Status = models.RequestStatusApproved
	svc := NewRequestService(&fakeRequestStore{byID: reviewed}, nil, nil, nil, nil, nil)

	_, err := svc.SupervisorApprove(context.Background(), "req-1", dto.ApproveRequestRequest{}, "supervisor-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceSupervisorRejectRequiresReason(t *testing.T) {
	svc := NewRequestService(&fakeRequestStore{byID: pendingRequest(models.RequestTypeMeeting)}, nil, nil, nil, nil, nil)

	_, err := svc.SupervisorReject(context.Background(), "req-1", dto.RejectRequestRequest{Reason: "   "}, "supervisor-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceSupervisorRejectEscalated(t *testing.T) {
	escalated := pendingRequest(models.RequestTypeSupervision)
	escalated.Status = models.RequestStatusInProgress
	store := &fakeRequestStore{byID: escalated}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	request, err := svc.SupervisorReject(context.Background(), "req-1", dto.RejectRequestRequest{Reason: "scope is unworkable"}, "supervisor-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, request.Status)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending, models.RequestStatusInProgress}, store.transition.AllowedFrom)
}

func TestRequestServiceCommitteeApproveEscalated(t *testing.T) {
	escalated := pendingRequest(models.RequestTypeSupervision)
	escalated.Status = models.RequestStatusInProgress
	store := &fakeRequestStore{byID: escalated}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	request, err := svc.CommitteeApprove(context.Background(), "req-1", dto.ApproveRequestRequest{}, "committee-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, request.Status)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending, models.RequestStatusInProgress}, store.transition.AllowedFrom)
}

func TestRequestServiceCommitteeApproveDirect(t *testing.T) {
	store := &fakeRequestStore{byID: pendingRequest(models.RequestTypeChangeGroup)}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	request, err := svc.CommitteeApprove(context.Background(), "req-1", dto.ApproveRequestRequest{}, "committee-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, request.Status)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending, models.RequestStatusInProgress}, store.transition.AllowedFrom)
}

func TestRequestServiceCommitteeApproveAlwaysFinalizes(t *testing.T) {
	store := &fakeRequestStore{byID: pendingRequest(models.RequestTypeMeeting)}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	request, err := svc.CommitteeApprove(context.Background(), "req-1", dto.ApproveRequestRequest{}, "committee-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, request.Status)
}

func TestRequestServiceCommitteeReject(t *testing.T) {
	escalated := pendingRequest(models.RequestTypeExtension)
	escalated.Status = models.RequestStatusInProgress
	store := &fakeRequestStore{byID: escalated}
	audit := &fakeAudit{}
	svc := NewRequestService(store, audit, nil, nil, nil, nil)

	request, err := svc.CommitteeReject(context.Background(), "req-1", dto.RejectRequestRequest{Reason: "deadline has passed"}, "committee-1")

	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, request.Status)
	require.NotNil(t, request.Reason)
	assert.Equal(t, "deadline has passed", *request.Reason)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestReview, audit.logs[0].Action)
}

func TestRequestServiceWithdraw(t *testing.T) {
	store := &fakeRequestStore{byID: pendingRequest(models.RequestTypeMeeting)}
	audit := &fakeAudit{}
	svc := NewRequestService(store, audit, nil, nil, nil, nil)

	err := svc.Withdraw(context.Background(), "req-1", "student-1")

	require.NoError(t, err)
	assert.Equal(t, "req-1", store.deletedID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestWithdraw, audit.logs[0].Action)
}

func TestRequestServiceWithdrawForbiddenForOtherStudent(t *testing.T) {
	svc := NewRequestService(&fakeRequestStore{byID: pendingRequest(models.RequestTypeMeeting)}, nil, nil, nil, nil, nil)

	err := svc.Withdraw(context.Background(), "req-1", "student-2")

	assert.Equal(t, appErrors.ErrForbidden, err)
}

func TestRequestServiceWithdrawConflictWhenDecided(t *testing.T) {
	store := &fakeRequestStore{
		byID:      pendingRequest(models.RequestTypeMeeting),
		deleteErr: sql.ErrNoRows,
	}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	err := svc.Withdraw(context.Background(), "req-1", "student-1")

	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceListScopesStudent(t *testing.T) {
	store := &fakeRequestStore{}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	_, err := svc.List(context.Background(), dto.RequestQuery{StudentID: "someone-else"}, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	require.NoError(t, err)
	assert.Equal(t, "student-1", store.listFilter.StudentID)
}

func TestRequestServiceGetEnforcesOwnership(t *testing.T) {
	svc := NewRequestService(&fakeRequestStore{byID: pendingRequest(models.RequestTypeMeeting)}, nil, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "req-1", &models.JWTClaims{UserID: "student-2", Role: models.RoleStudent})
	assert.Equal(t, appErrors.ErrForbidden, err)

	request, err := svc.Get(context.Background(), "req-1", &models.JWTClaims{UserID: "supervisor-1", Role: models.RoleSupervisor})
	require.NoError(t, err)
	assert.Equal(t, "req-1", request.ID)
}

func TestRequestServiceQueues(t *testing.T) {
	store := &fakeRequestStore{}
	svc := NewRequestService(store, nil, nil, nil, nil, nil)

	_, err := svc.SupervisorQueue(context.Background(), "supervisor-1")
	require.NoError(t, err)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusPending}, store.listFilter.Status)
	assert.Equal(t, "supervisor-1", store.listFilter.SupervisorID)

	_, err = svc.CommitteeQueue(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.RequestType{models.RequestTypeChangeGroup, models.RequestTypeChangeProject}, store.queueDirect)
	assert.ElementsMatch(t, []models.RequestType{models.RequestTypeSupervision, models.RequestTypeChangeSupervisor, models.RequestTypeExtension}, store.queueEscalated)
}
