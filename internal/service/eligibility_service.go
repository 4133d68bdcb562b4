package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/gp-portal/gpms-api/internal/models"
)

// degradedReason is returned when the academic record cannot be fetched. The
// checker fails closed: an unverifiable student is treated as ineligible.
const degradedReason = "could not verify academic record"

type academicRecordStore interface {
	FindAcademicInfo(ctx context.Context, studentID string) (*models.StudentAcademicInfo, error)
}

// EligibilityService evaluates whether a student may register a graduation
// project. All four criteria are always evaluated so the response can name
// every failing one at once.
type EligibilityService struct {
	records academicRecordStore
	logger  *zap.Logger
}

// NewEligibilityService constructs the checker.
func NewEligibilityService(records academicRecordStore, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{records: records, logger: logger}
}

// Check returns the eligibility verdict for the student. A failure to fetch
// the academic record degrades to an ineligible verdict, never an error.
func (s *EligibilityService) Check(ctx context.Context, studentID string) (*models.Eligibility, error) {
	info, err := s.records.FindAcademicInfo(ctx, studentID)
	if err != nil {
		s.logger.Warn("academic record unavailable, degrading to ineligible",
			zap.String("student_id", studentID),
			zap.Error(err))
		return &models.Eligibility{
			StudentID: studentID,
			Eligible:  false,
			Reason:    degradedReason,
		}, nil
	}
	return s.evaluate(info), nil
}

func (s *EligibilityService) evaluate(info *models.StudentAcademicInfo) *models.Eligibility {
	details := models.EligibilityDetails{
		HasEnoughHours:                  info.CompletedHours >= info.RequiredHours,
		HasMinimumGPA:                   info.GPA >= info.MinimumGPA,
		IsNotRegisteredInAnotherProject: !info.IsRegisteredInProject,
		CompletedPrerequisites:          info.CompletedPrerequisites,
	}

	var reasons []string
	if !details.HasEnoughHours {
		reasons = append(reasons, "insufficient completed hours")
	}
	if !details.HasMinimumGPA {
		reasons = append(reasons, "GPA below the required minimum")
	}
	if !details.IsNotRegisteredInAnotherProject {
		reasons = append(reasons, "already registered in another project")
	}
	if !details.CompletedPrerequisites {
		reasons = append(reasons, "prerequisite courses not completed")
	}

	return &models.Eligibility{
		StudentID: info.StudentID,
		Eligible:  len(reasons) == 0,
		Reason:    strings.Join(reasons, "; "),
		Details:   details,
	}
}
