package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shs-registrar-api/internal/dto"
	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

type reEnrollStudentStore interface {
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	ExistsByLRN(ctx context.Context, exec sqlx.ExtContext, lrn, schoolYearID, excludeID string) (bool, error)
	UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	ListActiveBySchoolYear(ctx context.Context, schoolYearID string) ([]models.Student, error)
}

// ReEnrollRequest moves one student into the current school year.
type ReEnrollRequest struct {
	StudentID     string  `json:"student_id" validate:"required"`
	NewGradeLevel *int    `json:"new_grade_level" validate:"omitempty,oneof=11 12"`
	NewSectionID  *string `json:"new_section_id"`
}

// ReEnrollBatchRequest applies the same placement to many students.
type ReEnrollBatchRequest struct {
	StudentIDs    []string `json:"student_ids" validate:"required,min=1,dive,required"`
	NewGradeLevel *int     `json:"new_grade_level" validate:"omitempty,oneof=11 12"`
	NewSectionID  *string  `json:"new_section_id"`
}

// ReEnrollmentService re-enrolls individual students outside a full transition.
type ReEnrollmentService struct {
	students  reEnrollStudentStore
	years     schoolYearLookup
	rules     enrollmentRules
	tx        txRunner
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReEnrollmentService constructs the service.
func NewReEnrollmentService(students reEnrollStudentStore, years schoolYearLookup, rules enrollmentRules, tx txRunner, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ReEnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReEnrollmentService{students: students, years: years, rules: rules, tx: tx, cache: cache, validator: validate, logger: logger}
}

// Eligible lists the non-archived students of previousSchoolYearID, or of
// the current year when it is empty.
func (s *ReEnrollmentService) Eligible(ctx context.Context, previousSchoolYearID string) ([]models.Student, error) {
	yearID := previousSchoolYearID
	if yearID == "" {
		current, err := s.years.FindCurrent(ctx, nil)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return []models.Student{}, nil
			}
			return nil, wrapStore(err, "failed to load current school year")
		}
		yearID = current.ID
	} else if _, err := s.years.FindByID(ctx, nil, yearID); err != nil {
		return nil, lookupError(err, "school year")
	}

	key := cacheKeyEligible + yearID
	var cached []models.Student
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	students, err := s.students.ListActiveBySchoolYear(ctx, yearID)
	if err != nil {
		return nil, wrapStore(err, "failed to list eligible students")
	}
	if students == nil {
		students = []models.Student{}
	}
	_ = s.cache.Set(ctx, key, students, 0)
	return students, nil
}

// ReEnroll moves one student into the current school year, promoting the grade
// when the record comes from an earlier year. The student is enrolled only
// when a section is given, otherwise left pending. A seat the student already
// holds in the target section does not count against its capacity.
func (s *ReEnrollmentService) ReEnroll(ctx context.Context, req ReEnrollRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid re-enrollment payload")
	}
	student, err := s.reEnroll(ctx, req.StudentID, req.NewGradeLevel, req.NewSectionID)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateRoster(ctx)
	return student, nil
}

// ReEnrollBatch re-enrolls each student in its own transaction. A failing
// student is reported and does not stop the rest of the batch.
func (s *ReEnrollmentService) ReEnrollBatch(ctx context.Context, req ReEnrollBatchRequest) (*dto.ReEnrollBatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid re-enrollment payload")
	}

	result := &dto.ReEnrollBatchResult{Succeeded: []models.Student{}, Failed: []dto.ReEnrollFailure{}}
	for _, id := range req.StudentIDs {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, dto.ReEnrollFailure{StudentID: id, Error: appErrors.FromError(ctx.Err())})
			continue
		}
		student, err := s.reEnroll(ctx, id, req.NewGradeLevel, req.NewSectionID)
		if err != nil {
			s.logger.Warn("re-enrollment failed", zap.String("student_id", id), zap.Error(err))
			result.Failed = append(result.Failed, dto.ReEnrollFailure{StudentID: id, Error: appErrors.FromError(err)})
			continue
		}
		result.Succeeded = append(result.Succeeded, *student)
	}

	if len(result.Succeeded) > 0 {
		s.cache.InvalidateRoster(ctx)
	}
	s.logger.Info("batch re-enrollment finished", zap.Int("succeeded", len(result.Succeeded)), zap.Int("failed", len(result.Failed)))
	return result, nil
}

func (s *ReEnrollmentService) reEnroll(ctx context.Context, studentID string, newGrade *int, sectionID *string) (*models.Student, error) {
	var updated *models.Student
	err := s.tx.Run(ctx, "student.reenroll", func(ctx context.Context, exec sqlx.ExtContext) error {
		current, err := s.years.FindCurrent(ctx, exec)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "no current school year")
			}
			return wrapStore(err, "failed to load current school year")
		}
		student, err := s.students.LockByID(ctx, exec, studentID)
		if err != nil {
			return lookupError(err, "student")
		}
		if student.IsArchived {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "student archived")
		}

		grade, err := reEnrollGrade(student, current.ID, newGrade)
		if err != nil {
			return err
		}
		if student.SchoolYearID != current.ID && student.LRN != nil {
			taken, err := s.students.ExistsByLRN(ctx, exec, *student.LRN, current.ID, student.ID)
			if err != nil {
				return wrapStore(err, "failed to check lrn")
			}
			if taken {
				return appErrors.Clone(appErrors.ErrDuplicateKey, "learner already has a record in the current school year")
			}
		}

		student.SchoolYearID = current.ID
		student.GradeLevel = grade

		status := models.EnrollmentStatusPending
		if normalizeRef(sectionID) != nil {
			status = models.EnrollmentStatusEnrolled
		}
		if err := s.rules.Apply(ctx, exec, student, status, sectionID, nil); err != nil {
			return err
		}
		if err := s.students.UpdatePlacement(ctx, exec, student); err != nil {
			return wrapStore(err, "failed to update student placement")
		}
		updated = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student re-enrolled",
		zap.String("student_id", updated.ID),
		zap.Int("grade_level", updated.GradeLevel),
		zap.String("status", string(updated.EnrollmentStatus)),
	)
	return updated, nil
}

// reEnrollGrade keeps the stored grade of a student who already belongs to
// the current year unless a grade is requested. Students from an earlier
// year are promoted.
func reEnrollGrade(student *models.Student, currentYearID string, requested *int) (int, error) {
	if student.SchoolYearID == currentYearID && requested == nil {
		if student.GradeLevel != models.GradeEleven && student.GradeLevel != models.GradeTwelve {
			return 0, appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("stored grade level %d is not a senior high school grade", student.GradeLevel))
		}
		return student.GradeLevel, nil
	}
	return promotedGrade(student.GradeLevel, requested)
}

// promotedGrade applies 11 to 12 and keeps 12 at 12 unless an explicit grade
// is requested.
func promotedGrade(stored int, requested *int) (int, error) {
	if requested != nil {
		if *requested != models.GradeEleven && *requested != models.GradeTwelve {
			return 0, appErrors.Clone(appErrors.ErrValidation, "grade level must be 11 or 12")
		}
		return *requested, nil
	}
	switch stored {
	case models.GradeEleven, models.GradeTwelve:
		return models.GradeTwelve, nil
	default:
		return 0, appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("stored grade level %d is not a senior high school grade", stored))
	}
}
