package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

type enrollmentStudentStore interface {
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	ExistsByLRN(ctx context.Context, exec sqlx.ExtContext, lrn, schoolYearID, excludeID string) (bool, error)
	CountEnrolledInSection(ctx context.Context, exec sqlx.ExtContext, sectionID string) (int, error)
	UpdateEnrollment(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
}

type sectionLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Section, error)
}

// EnrollmentRequest is the desired status/section pair for one student.
type EnrollmentRequest struct {
	Status    models.EnrollmentStatus `json:"status" validate:"required,oneof=PENDING ENROLLED"`
	SectionID *string                 `json:"section_id"`
	LRN       *string                 `json:"lrn" validate:"omitempty,lrn"`
}

// EnrollmentService owns the status/section state machine of a student.
type EnrollmentService struct {
	students  enrollmentStudentStore
	sections  sectionLookup
	tx        txRunner
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the enrollment rule engine.
func NewEnrollmentService(students enrollmentStudentStore, sections sectionLookup, tx txRunner, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	registerStudentValidations(validate, nowUTC)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{students: students, sections: sections, tx: tx, cache: cache, validator: validate, logger: logger}
}

// Upsert applies the requested status/section pair and persists it in one
// write. The read, the checks and the write share a transaction.
func (s *EnrollmentService) Upsert(ctx context.Context, studentID string, req EnrollmentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	var updated *models.Student
	err := s.tx.Run(ctx, "enrollment.upsert", func(ctx context.Context, exec sqlx.ExtContext) error {
		student, err := s.students.LockByID(ctx, exec, studentID)
		if err != nil {
			return lookupError(err, "student")
		}
		if err := s.Apply(ctx, exec, student, req.Status, req.SectionID, req.LRN); err != nil {
			return err
		}
		if err := s.students.UpdateEnrollment(ctx, exec, student); err != nil {
			return wrapStore(err, "failed to update enrollment")
		}
		updated = student
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateRoster(ctx)
	s.logger.Info("enrollment updated",
		zap.String("student_id", updated.ID),
		zap.String("status", string(updated.EnrollmentStatus)),
		zap.Stringp("section_id", updated.SectionID),
	)
	return updated, nil
}

// Apply checks the requested pair against student and mutates it in memory.
// Nothing is written; callers persist the student through exec afterwards.
func (s *EnrollmentService) Apply(ctx context.Context, exec sqlx.ExtContext, student *models.Student, status models.EnrollmentStatus, sectionID, lrn *string) error {
	sectionID = normalizeRef(sectionID)

	switch status {
	case models.EnrollmentStatusEnrolled:
		if sectionID == nil {
			return appErrors.Clone(appErrors.ErrInvariantViolation, "section required")
		}
		if student.IsArchived {
			return appErrors.Clone(appErrors.ErrInvariantViolation, "student archived")
		}
		if err := s.checkSection(ctx, exec, student, *sectionID); err != nil {
			return err
		}
	case models.EnrollmentStatusPending:
		if sectionID != nil {
			return appErrors.Clone(appErrors.ErrInvariantViolation, "section forbidden")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown enrollment status")
	}

	if err := s.checkLRN(ctx, exec, student, normalizeRef(lrn)); err != nil {
		return err
	}

	student.EnrollmentStatus = status
	student.SectionID = sectionID
	return nil
}

func (s *EnrollmentService) checkSection(ctx context.Context, exec sqlx.ExtContext, student *models.Student, sectionID string) error {
	section, err := s.sections.FindByID(ctx, exec, sectionID, models.OnlyActive)
	if err != nil {
		return lookupError(err, "section")
	}
	if section.GradeLevel != student.GradeLevel || !strings.EqualFold(section.Strand, student.Strand) {
		return appErrors.Clone(appErrors.ErrInvariantViolation, "section does not match student grade/strand")
	}
	if section.Capacity == nil {
		return nil
	}
	alreadySeated := student.EnrollmentStatus == models.EnrollmentStatusEnrolled &&
		student.SectionID != nil && *student.SectionID == section.ID
	if alreadySeated {
		return nil
	}
	headcount, err := s.students.CountEnrolledInSection(ctx, exec, section.ID)
	if err != nil {
		return wrapStore(err, "failed to count section headcount")
	}
	if headcount >= *section.Capacity {
		return appErrors.Clone(appErrors.ErrInvariantViolation, "section full")
	}
	return nil
}

// ClaimLRN assigns lrn to student when no other student of the same school
// year holds it.
func (s *EnrollmentService) ClaimLRN(ctx context.Context, exec sqlx.ExtContext, student *models.Student, lrn *string) error {
	return s.checkLRN(ctx, exec, student, normalizeRef(lrn))
}

func (s *EnrollmentService) checkLRN(ctx context.Context, exec sqlx.ExtContext, student *models.Student, lrn *string) error {
	if lrn == nil {
		return nil
	}
	if student.LRN != nil && *student.LRN == *lrn {
		return nil
	}
	taken, err := s.students.ExistsByLRN(ctx, exec, *lrn, student.SchoolYearID, student.ID)
	if err != nil {
		return wrapStore(err, "failed to check lrn")
	}
	if taken {
		return appErrors.Clone(appErrors.ErrDuplicateKey, "lrn already registered to another student")
	}
	student.LRN = lrn
	return nil
}

// normalizeRef treats blank references as absent.
func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
