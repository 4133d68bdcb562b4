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

func newPeriodRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPeriodRepositoryFindEffective(t *testing.T) {
	db, mock, cleanup := newPeriodRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "type", "name", "start_date", "end_date", "is_active", "created_at", "updated_at"}).
		AddRow("period-1", "PROPOSAL_SUBMISSION", "Fall proposals", now.AddDate(0, 0, -7), now.AddDate(0, 0, 7), true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, name, start_date")).
		WithArgs("PROPOSAL_SUBMISSION").
		WillReturnRows(rows)

	period, err := repo.FindEffective(context.Background(), models.PeriodTypeProposalSubmission)
	require.NoError(t, err)
	require.Equal(t, "period-1", period.ID)
	require.True(t, period.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryFindEffectiveMissing(t *testing.T) {
	db, mock, cleanup := newPeriodRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, name, start_date")).
		WithArgs("DEFENSE").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindEffective(context.Background(), models.PeriodTypeDefense)
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newPeriodRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO periods")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	period := &models.Period{
		Type:      models.PeriodTypeProjectRegistration,
		Name:      "Spring registration",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
	require.NoError(t, repo.Create(context.Background(), period))
	require.NotEmpty(t, period.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPeriodRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newPeriodRepoMock(t)
	defer cleanup()

	repo := NewPeriodRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE periods SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Period{ID: "missing"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
