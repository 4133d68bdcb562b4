package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gp-portal/gpms-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func requestRows(id string, requestType models.RequestType, status models.RequestStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "type", "status", "priority", "student_id", "supervisor_id", "description", "reason", "response", "reviewed_by", "requested_date", "created_at", "updated_at"}).
		AddRow(id, string(requestType), string(status), "MEDIUM", "student-1", nil, "need supervision", nil, nil, nil, now, now, now)
}

func TestRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	request := &models.Request{
		Type:        models.RequestTypeSupervision,
		StudentID:   "student-1",
		Description: "need supervision",
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.RequestStatusPending, request.Status)
	require.Equal(t, models.RequestPriorityMedium, request.Priority)
	require.Equal(t, request.CreatedAt, request.UpdatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, status, priority")).
		WithArgs(request.ID).
		WillReturnRows(requestRows(request.ID, models.RequestTypeSupervision, models.RequestStatusPending))

	found, err := repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, request.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, status, priority")).
		WithArgs("PENDING", "SUPERVISION", "CHANGE_SUPERVISOR", "MEETING", "EXTENSION", "supervisor-1").
		WillReturnRows(requestRows("req-1", models.RequestTypeMeeting, models.RequestStatusPending))

	list, err := repo.List(context.Background(), models.RequestFilter{
		Status: []models.RequestStatus{models.RequestStatusPending},
		Types: []models.RequestType{
			models.RequestTypeSupervision,
			models.RequestTypeChangeSupervisor,
			models.RequestTypeMeeting,
			models.RequestTypeExtension,
		},
		SupervisorID: "supervisor-1",
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "req-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCommitteeQueue(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, status, priority")).
		WithArgs("CHANGE_GROUP", "CHANGE_PROJECT", "PENDING", "IN_PROGRESS", "SUPERVISION", "CHANGE_SUPERVISOR", "EXTENSION").
		WillReturnRows(requestRows("req-2", models.RequestTypeChangeGroup, models.RequestStatusPending))

	list, err := repo.CommitteeQueue(context.Background(),
		[]models.RequestType{models.RequestTypeChangeGroup, models.RequestTypeChangeProject},
		[]models.RequestType{models.RequestTypeSupervision, models.RequestTypeChangeSupervisor, models.RequestTypeExtension},
	)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransition(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	response := "approved, go ahead"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.Transition(context.Background(), TransitionParams{
		ID:          "req-1",
		ToStatus:    models.RequestStatusInProgress,
		AllowedFrom: []models.RequestStatus{models.RequestStatusPending},
		ReviewedBy:  "supervisor-1",
		Response:    &response,
		UpdatedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransitionConflict(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Transition(context.Background(), TransitionParams{
		ID:          "req-1",
		ToStatus:    models.RequestStatusApproved,
		AllowedFrom: []models.RequestStatus{models.RequestStatusPending, models.RequestStatusInProgress},
		ReviewedBy:  "committee-1",
		UpdatedAt:   time.Now().UTC(),
	})
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryDeleteIfPending(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requests")).
		WithArgs("req-1", "student-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteIfPending(context.Background(), "req-1", "student-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM requests")).
		WithArgs("req-1", "student-1", "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.DeleteIfPending(context.Background(), "req-1", "student-1")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow("PENDING", 3).
		AddRow("APPROVED", 5)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*)")).WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, counts[models.RequestStatusPending])
	require.Equal(t, 5, counts[models.RequestStatusApproved])
	require.NoError(t, mock.ExpectationsWereMet())
}
