package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

type transitionStudentStore interface {
	ListCandidates(ctx context.Context, exec sqlx.ExtContext, schoolYearID string, statuses []models.EnrollmentStatus) ([]models.Student, error)
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, students []models.Student) error
}

type schoolYearStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SchoolYear, error)
	FindCurrent(ctx context.Context, exec sqlx.ExtContext) (*models.SchoolYear, error)
	SetCurrent(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// TransitionRequest selects the target year and the carried categories.
type TransitionRequest struct {
	NewSchoolYearID   string `json:"new_school_year_id" form:"newSchoolYearId" validate:"required"`
	CarryOverEnrolled bool   `json:"carry_over_enrolled" form:"carryOverEnrolled"`
	CarryOverPending  bool   `json:"carry_over_pending" form:"carryOverPending"`
}

func (r TransitionRequest) statuses() []models.EnrollmentStatus {
	var statuses []models.EnrollmentStatus
	if r.CarryOverEnrolled {
		statuses = append(statuses, models.EnrollmentStatusEnrolled)
	}
	if r.CarryOverPending {
		statuses = append(statuses, models.EnrollmentStatusPending)
	}
	return statuses
}

// transitionPlan is the classified cohort of one transition.
type transitionPlan struct {
	from    *models.SchoolYear
	to      *models.SchoolYear
	counts  models.TransitionCounts
	records []models.Student
}

// TransitionService rolls the student population into a new school year.
type TransitionService struct {
	students  transitionStudentStore
	years     schoolYearStore
	tx        txRunner
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTransitionService constructs the transition engine.
func NewTransitionService(students transitionStudentStore, years schoolYearStore, tx txRunner, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TransitionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionService{
		students:  students,
		years:     years,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       nowUTC,
	}
}

// Preview classifies the cohort without writing anything.
func (s *TransitionService) Preview(ctx context.Context, req TransitionRequest) (*models.TransitionCounts, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	key := fmt.Sprintf("%s%s:%t:%t", cacheKeyTransitionPreview, req.NewSchoolYearID, req.CarryOverEnrolled, req.CarryOverPending)
	var cached models.TransitionCounts
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	plan, err := s.plan(ctx, nil, req)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Set(ctx, key, plan.counts, 0)
	return &plan.counts, nil
}

// Transition creates the new-year records and makes the target year current,
// all in one transaction. The current flag moves only after the batch insert.
func (s *TransitionService) Transition(ctx context.Context, req TransitionRequest) (*models.TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	var committed *transitionPlan
	err := s.tx.Run(ctx, "transition.commit", func(ctx context.Context, exec sqlx.ExtContext) error {
		plan, err := s.plan(ctx, exec, req)
		if err != nil {
			return err
		}
		if err := s.students.CreateBatch(ctx, exec, plan.records); err != nil {
			return wrapStore(err, "failed to create carried students")
		}
		if err := s.years.SetCurrent(ctx, exec, plan.to.ID); err != nil {
			return lookupError(err, "school year")
		}
		committed = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &models.TransitionResult{
		TransitionCounts: committed.counts,
		ToSchoolYearID:   committed.to.ID,
		Committed:        true,
		CommittedAt:      s.now(),
	}
	if committed.from != nil {
		result.FromSchoolYearID = &committed.from.ID
	}

	s.cache.InvalidateRoster(ctx)
	s.metrics.RecordTransition(committed.counts)
	s.logger.Info("school year transition committed",
		zap.Stringp("from_school_year_id", result.FromSchoolYearID),
		zap.String("to_school_year_id", result.ToSchoolYearID),
		zap.Int("enrolled_carried", result.EnrolledCarried),
		zap.Int("pending_carried", result.PendingCarried),
		zap.Int("skipped", result.Skipped),
		zap.Int("total", result.Total),
	)
	return result, nil
}

func (s *TransitionService) plan(ctx context.Context, exec sqlx.ExtContext, req TransitionRequest) (*transitionPlan, error) {
	target, err := s.years.FindByID(ctx, exec, req.NewSchoolYearID)
	if err != nil {
		return nil, lookupError(err, "school year")
	}
	if target.IsCurrent {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "school year is already current")
	}
	plan := &transitionPlan{to: target}

	current, err := s.years.FindCurrent(ctx, exec)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return plan, nil
		}
		return nil, wrapStore(err, "failed to load current school year")
	}
	plan.from = current

	statuses := req.statuses()
	if len(statuses) == 0 {
		return plan, nil
	}
	candidates, err := s.students.ListCandidates(ctx, exec, current.ID, statuses)
	if err != nil {
		return nil, wrapStore(err, "failed to list transition candidates")
	}

	for _, student := range candidates {
		plan.counts.Total++
		switch student.GradeLevel {
		case models.GradeTwelve:
			plan.counts.Skipped++
			continue
		case models.GradeEleven:
		default:
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity, fmt.Sprintf("student %s has unsupported grade level %d", student.ID, student.GradeLevel))
		}
		if student.EnrollmentStatus == models.EnrollmentStatusEnrolled {
			plan.counts.EnrolledCarried++
		} else {
			plan.counts.PendingCarried++
		}
		plan.records = append(plan.records, carryForward(student, target.ID))
	}
	return plan, nil
}

// carryForward copies the learner into a fresh pending record for the next
// grade. The historical record is left untouched.
func carryForward(student models.Student, schoolYearID string) models.Student {
	return models.Student{
		LRN:              student.LRN,
		FirstName:        student.FirstName,
		MiddleName:       student.MiddleName,
		LastName:         student.LastName,
		Gender:           student.Gender,
		BirthDate:        student.BirthDate,
		Contact:          student.Contact,
		Address:          student.Address,
		GWA:              student.GWA,
		GradeLevel:       student.GradeLevel + 1,
		Strand:           student.Strand,
		EnrollmentStatus: models.EnrollmentStatusPending,
		SchoolYearID:     schoolYearID,
	}
}
