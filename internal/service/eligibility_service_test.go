package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gp-portal/gpms-api/internal/models"
)

type fakeAcademicRecords struct {
	info *models.StudentAcademicInfo
	err  error
}

func (f *fakeAcademicRecords) FindAcademicInfo(context.Context, string) (*models.StudentAcademicInfo, error) {
	return f.info, f.err
}

func passingRecord() *models.StudentAcademicInfo {
	return &models.StudentAcademicInfo{
		StudentID:              "student-1",
		CompletedHours:         110,
		RequiredHours:          100,
		GPA:                    3.2,
		MinimumGPA:             2.0,
		IsRegisteredInProject:  false,
		CompletedPrerequisites: true,
	}
}

func TestEligibilityServiceAllCriteriaPass(t *testing.T) {
	svc := NewEligibilityService(&fakeAcademicRecords{info: passingRecord()}, nil)

	verdict, err := svc.Check(context.Background(), "student-1")

	require.NoError(t, err)
	assert.True(t, verdict.Eligible)
	assert.Empty(t, verdict.Reason)
	assert.True(t, verdict.Details.HasEnoughHours)
	assert.True(t, verdict.Details.HasMinimumGPA)
	assert.True(t, verdict.Details.IsNotRegisteredInAnotherProject)
	assert.True(t, verdict.Details.CompletedPrerequisites)
}

func TestEligibilityServiceBoundaryValuesPass(t *testing.T) {
	record := passingRecord()
	record.CompletedHours = record.RequiredHours
	record.GPA = record.MinimumGPA
	svc := NewEligibilityService(&fakeAcademicRecords{info: record}, nil)

	verdict, err := svc.Check(context.Background(), "student-1")

	require.NoError(t, err)
	assert.True(t, verdict.Eligible)
}

func TestEligibilityServiceReportsEveryFailure(t *testing.T) {
	record := &models.StudentAcademicInfo{
		StudentID:              "student-1",
		CompletedHours:         60,
		RequiredHours:          100,
		GPA:                    1.4,
		MinimumGPA:             2.0,
		IsRegisteredInProject:  true,
		CompletedPrerequisites: false,
	}
	svc := NewEligibilityService(&fakeAcademicRecords{info: record}, nil)

	verdict, err := svc.Check(context.Background(), "student-1")

	require.NoError(t, err)
	assert.False(t, verdict.Eligible)
	assert.Contains(t, verdict.Reason, "insufficient completed hours")
	assert.Contains(t, verdict.Reason, "GPA below the required minimum")
	assert.Contains(t, verdict.Reason, "already registered in another project")
	assert.Contains(t, verdict.Reason, "prerequisite courses not completed")
}

func TestEligibilityServiceSingleFailure(t *testing.T) {
	record := passingRecord()
	record.IsRegisteredInProject = true
	svc := NewEligibilityService(&fakeAcademicRecords{info: record}, nil)

	verdict, err := svc.Check(context.Background(), "student-1")

	require.NoError(t, err)
	assert.False(t, verdict.Eligible)
	assert.Equal(t, "already registered in another project", verdict.Reason)
}

func TestEligibilityServiceDegradesOnFetchFailure(t *testing.T) {
	svc := NewEligibilityService(&fakeAcademicRecords{err: errors.New("registrar timeout")}, nil)

	verdict, err := svc.Check(context.Background(), "student-1")

	require.NoError(t, err)
	assert.False(t, verdict.Eligible)
	assert.Equal(t, "could not verify academic record", verdict.Reason)
}
