package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error)
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	UpdateProfile(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
	SetArchived(ctx context.Context, exec sqlx.ExtContext, id string, reason *models.ArchiveReason) error
}

type schoolYearLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SchoolYear, error)
	FindCurrent(ctx context.Context, exec sqlx.ExtContext) (*models.SchoolYear, error)
}

type enrollmentRules interface {
	Apply(ctx context.Context, exec sqlx.ExtContext, student *models.Student, status models.EnrollmentStatus, sectionID, lrn *string) error
	ClaimLRN(ctx context.Context, exec sqlx.ExtContext, student *models.Student, lrn *string) error
}

// CreateStudentRequest holds payload for registering students.
type CreateStudentRequest struct {
	LRN          *string                 `json:"lrn" validate:"omitempty,lrn"`
	FirstName    string                  `json:"first_name" validate:"required,max=100"`
	MiddleName   string                  `json:"middle_name" validate:"max=100"`
	LastName     string                  `json:"last_name" validate:"required,max=100"`
	Gender       string                  `json:"gender" validate:"required,oneof=MALE FEMALE"`
	BirthDate    time.Time               `json:"birth_date" validate:"required,min_age=16"`
	Contact      string                  `json:"contact" validate:"omitempty,ph_mobile"`
	Address      string                  `json:"address" validate:"max=255"`
	GWA          *float64                `json:"gwa" validate:"omitempty,gwa"`
	GradeLevel   int                     `json:"grade_level" validate:"required,oneof=11 12"`
	Strand       string                  `json:"strand" validate:"required,max=50"`
	Status       models.EnrollmentStatus `json:"status" validate:"omitempty,oneof=PENDING ENROLLED"`
	SectionID    *string                 `json:"section_id"`
	SchoolYearID string                  `json:"school_year_id"`
}

// UpdateStudentRequest holds the editable personal fields.
type UpdateStudentRequest struct {
	LRN        *string   `json:"lrn" validate:"omitempty,lrn"`
	FirstName  string    `json:"first_name" validate:"required,max=100"`
	MiddleName string    `json:"middle_name" validate:"max=100"`
	LastName   string    `json:"last_name" validate:"required,max=100"`
	Gender     string    `json:"gender" validate:"required,oneof=MALE FEMALE"`
	BirthDate  time.Time `json:"birth_date" validate:"required,min_age=16"`
	Contact    string    `json:"contact" validate:"omitempty,ph_mobile"`
	Address    string    `json:"address" validate:"max=255"`
	GWA        *float64  `json:"gwa" validate:"omitempty,gwa"`
}

// ArchiveStudentRequest names why a student leaves the active population.
type ArchiveStudentRequest struct {
	Reason models.ArchiveReason `json:"reason" validate:"required,oneof=DROPPED GRADUATED TRANSFERRED OTHER"`
}

// StudentService handles student registration and lifecycle use-cases.
type StudentService struct {
	repo      studentRepository
	years     schoolYearLookup
	rules     enrollmentRules
	tx        txRunner
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, years schoolYearLookup, rules enrollmentRules, tx txRunner, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	registerStudentValidations(validate, nowUTC)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, years: years, rules: rules, tx: tx, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, wrapStore(err, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, models.NewPagination(page, size, total), nil
}

// Get returns a student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "student")
	}
	return student, nil
}

// Create registers a student as pending or, with a section, as enrolled.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	status := req.Status
	if status == "" {
		status = models.EnrollmentStatusPending
	}

	var created *models.Student
	err := s.tx.Run(ctx, "student.create", func(ctx context.Context, exec sqlx.ExtContext) error {
		year, err := s.resolveYear(ctx, exec, req.SchoolYearID)
		if err != nil {
			return err
		}
		student := &models.Student{
			FirstName:        req.FirstName,
			MiddleName:       req.MiddleName,
			LastName:         req.LastName,
			Gender:           req.Gender,
			BirthDate:        req.BirthDate,
			Contact:          req.Contact,
			Address:          req.Address,
			GWA:              req.GWA,
			GradeLevel:       req.GradeLevel,
			Strand:           req.Strand,
			EnrollmentStatus: models.EnrollmentStatusPending,
			SchoolYearID:     year.ID,
		}
		if err := s.rules.Apply(ctx, exec, student, status, req.SectionID, req.LRN); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, exec, student); err != nil {
			return wrapStore(err, "failed to create student")
		}
		created = student
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateRoster(ctx)
	s.logger.Info("student registered", zap.String("student_id", created.ID), zap.String("status", string(created.EnrollmentStatus)))
	return created, nil
}

// Update edits the personal fields of a student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	var updated *models.Student
	err := s.tx.Run(ctx, "student.update", func(ctx context.Context, exec sqlx.ExtContext) error {
		student, err := s.repo.FindByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "student")
		}
		if err := s.rules.ClaimLRN(ctx, exec, student, req.LRN); err != nil {
			return err
		}
		student.FirstName = req.FirstName
		student.MiddleName = req.MiddleName
		student.LastName = req.LastName
		student.Gender = req.Gender
		student.BirthDate = req.BirthDate
		student.Contact = req.Contact
		student.Address = req.Address
		student.GWA = req.GWA
		if err := s.repo.UpdateProfile(ctx, exec, student); err != nil {
			return wrapStore(err, "failed to update student")
		}
		updated = student
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateRoster(ctx)
	return updated, nil
}

// Archive removes a student from every active-population query.
func (s *StudentService) Archive(ctx context.Context, id string, req ArchiveStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive payload")
	}
	reason := req.Reason
	return s.setArchived(ctx, "student.archive", id, &reason)
}

// Restore returns an archived student to the active population.
func (s *StudentService) Restore(ctx context.Context, id string) (*models.Student, error) {
	return s.setArchived(ctx, "student.restore", id, nil)
}

func (s *StudentService) setArchived(ctx context.Context, operation, id string, reason *models.ArchiveReason) (*models.Student, error) {
	var result *models.Student
	err := s.tx.Run(ctx, operation, func(ctx context.Context, exec sqlx.ExtContext) error {
		student, err := s.repo.FindByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "student")
		}
		archiving := reason != nil
		if student.IsArchived == archiving {
			if archiving {
				return appErrors.Clone(appErrors.ErrPreconditionFailed, "student already archived")
			}
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not archived")
		}
		if err := s.repo.SetArchived(ctx, exec, id, reason); err != nil {
			return lookupError(err, "student")
		}
		result, err = s.repo.FindByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateRoster(ctx)
	s.logger.Info("student lifecycle changed", zap.String("student_id", id), zap.Bool("archived", result.IsArchived))
	return result, nil
}

func (s *StudentService) resolveYear(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SchoolYear, error) {
	if id != "" {
		year, err := s.years.FindByID(ctx, exec, id)
		if err != nil {
			return nil, lookupError(err, "school year")
		}
		return year, nil
	}
	year, err := s.years.FindCurrent(ctx, exec)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no current school year")
		}
		return nil, wrapStore(err, "failed to load current school year")
	}
	return year, nil
}
