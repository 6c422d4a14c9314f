package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

// DefaultSubjectQuota is the number of distinct subjects a teacher may hold.
const DefaultSubjectQuota = 8

type teacherAssignmentRepo interface {
	ListByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.TeacherAssignmentDetail, error)
	Exists(ctx context.Context, exec sqlx.ExtContext, teacherID, subjectID, sectionID string) (bool, error)
	DistinctSubjectIDs(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]string, error)
	CountDistinctSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID string) (int, error)
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, teacherID, assignmentID string) error
	DeleteByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) error
}

type teacherReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error)
}

type subjectLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Subject, error)
}

// ReplaceAssignmentsRequest is the full target assignment set of a teacher.
// An empty list clears every assignment.
type ReplaceAssignmentsRequest struct {
	Assignments []models.AssignmentPair `json:"assignments" validate:"dive"`
}

// TeacherAssignmentService enforces the grade match, uniqueness and subject
// quota rules over a teacher's assignments.
type TeacherAssignmentService struct {
	teachers    teacherReader
	subjects    subjectLookup
	sections    sectionLookup
	assignments teacherAssignmentRepo
	tx          txRunner
	quota       int
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherAssignmentService creates a service instance.
func NewTeacherAssignmentService(
	teachers teacherReader,
	subjects subjectLookup,
	sections sectionLookup,
	assignments teacherAssignmentRepo,
	tx txRunner,
	quota int,
	validate *validator.Validate,
	logger *zap.Logger,
) *TeacherAssignmentService {
	if quota <= 0 {
		quota = DefaultSubjectQuota
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherAssignmentService{
		teachers:    teachers,
		subjects:    subjects,
		sections:    sections,
		assignments: assignments,
		tx:          tx,
		quota:       quota,
		validator:   validate,
		logger:      logger,
	}
}

// ListByTeacher returns assignments for the teacher.
func (s *TeacherAssignmentService) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	if _, err := s.teachers.FindByID(ctx, nil, teacherID); err != nil {
		return nil, lookupError(err, "teacher")
	}
	assignments, err := s.assignments.ListByTeacher(ctx, nil, teacherID)
	if err != nil {
		return nil, wrapStore(err, "failed to list assignments")
	}
	return assignments, nil
}

// Add assigns one subject/section pair to the teacher.
func (s *TeacherAssignmentService) Add(ctx context.Context, teacherID string, req models.AssignmentPair) (*models.TeacherAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	var created *models.TeacherAssignment
	err := s.tx.Run(ctx, "assignment.add", func(ctx context.Context, exec sqlx.ExtContext) error {
		if err := s.ensureTeacher(ctx, exec, teacherID); err != nil {
			return err
		}
		checker := newPairChecker(s, exec)
		if err := checker.check(ctx, req); err != nil {
			return err
		}

		exists, err := s.assignments.Exists(ctx, exec, teacherID, req.SubjectID, req.SectionID)
		if err != nil {
			return wrapStore(err, "failed to check assignment uniqueness")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrDuplicateAssignment, "teacher already assigned to this subject and section")
		}

		subjectIDs, err := s.assignments.DistinctSubjectIDs(ctx, exec, teacherID)
		if err != nil {
			return wrapStore(err, "failed to read assigned subjects")
		}
		if count := distinctWith(subjectIDs, req.SubjectID); count > s.quota {
			return s.quotaError(count)
		}

		assignment := &models.TeacherAssignment{TeacherID: teacherID, SubjectID: req.SubjectID, SectionID: req.SectionID}
		if err := s.assignments.Create(ctx, exec, assignment); err != nil {
			return wrapStore(err, "failed to create assignment")
		}
		created = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("teacher assignment added",
		zap.String("teacher_id", teacherID),
		zap.String("subject_id", req.SubjectID),
		zap.String("section_id", req.SectionID),
	)
	return created, nil
}

// ReplaceAll swaps the teacher's whole assignment set in one transaction.
// Every rule is checked over the target set before anything is written.
func (s *TeacherAssignmentService) ReplaceAll(ctx context.Context, teacherID string, req ReplaceAssignmentsRequest) ([]models.TeacherAssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	var result []models.TeacherAssignmentDetail
	err := s.tx.Run(ctx, "assignment.replace_all", func(ctx context.Context, exec sqlx.ExtContext) error {
		if err := s.ensureTeacher(ctx, exec, teacherID); err != nil {
			return err
		}

		checker := newPairChecker(s, exec)
		seen := make(map[models.AssignmentPair]struct{}, len(req.Assignments))
		subjects := make(map[string]struct{})
		for _, pair := range req.Assignments {
			if _, dup := seen[pair]; dup {
				return appErrors.Clone(appErrors.ErrDuplicateAssignment, fmt.Sprintf("subject %s is listed twice for section %s", pair.SubjectID, pair.SectionID))
			}
			seen[pair] = struct{}{}
			if err := checker.check(ctx, pair); err != nil {
				return err
			}
			subjects[pair.SubjectID] = struct{}{}
		}
		if len(subjects) > s.quota {
			return s.quotaError(len(subjects))
		}

		if err := s.assignments.DeleteByTeacher(ctx, exec, teacherID); err != nil {
			return wrapStore(err, "failed to clear assignments")
		}
		for _, pair := range req.Assignments {
			assignment := &models.TeacherAssignment{TeacherID: teacherID, SubjectID: pair.SubjectID, SectionID: pair.SectionID}
			if err := s.assignments.Create(ctx, exec, assignment); err != nil {
				return wrapStore(err, "failed to create assignment")
			}
		}

		list, err := s.assignments.ListByTeacher(ctx, exec, teacherID)
		if err != nil {
			return wrapStore(err, "failed to list assignments")
		}
		result = list
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("teacher assignments replaced", zap.String("teacher_id", teacherID), zap.Int("count", len(req.Assignments)))
	return result, nil
}

// Remove deletes an assignment.
func (s *TeacherAssignmentService) Remove(ctx context.Context, teacherID, assignmentID string) error {
	return s.tx.Run(ctx, "assignment.remove", func(ctx context.Context, exec sqlx.ExtContext) error {
		if _, err := s.teachers.FindByID(ctx, exec, teacherID); err != nil {
			return lookupError(err, "teacher")
		}
		if err := s.assignments.Delete(ctx, exec, teacherID, assignmentID); err != nil {
			return lookupError(err, "assignment")
		}
		return nil
	})
}

// UniqueSubjectCount returns the number of distinct subjects the teacher holds.
func (s *TeacherAssignmentService) UniqueSubjectCount(ctx context.Context, teacherID string) (int, error) {
	if _, err := s.teachers.FindByID(ctx, nil, teacherID); err != nil {
		return 0, lookupError(err, "teacher")
	}
	count, err := s.assignments.CountDistinctSubjects(ctx, nil, teacherID)
	if err != nil {
		return 0, wrapStore(err, "failed to count assigned subjects")
	}
	return count, nil
}

// WouldExceedQuota reports the teacher's load and whether adding subjectID
// would push it past the quota. An empty subjectID only reports the load.
func (s *TeacherAssignmentService) WouldExceedQuota(ctx context.Context, teacherID, subjectID string) (*models.SubjectLoad, error) {
	if _, err := s.teachers.FindByID(ctx, nil, teacherID); err != nil {
		return nil, lookupError(err, "teacher")
	}
	subjectIDs, err := s.assignments.DistinctSubjectIDs(ctx, nil, teacherID)
	if err != nil {
		return nil, wrapStore(err, "failed to read assigned subjects")
	}
	load := &models.SubjectLoad{
		TeacherID:        teacherID,
		DistinctSubjects: len(subjectIDs),
		Quota:            s.quota,
		SubjectID:        subjectID,
	}
	if subjectID != "" {
		load.WouldExceed = distinctWith(subjectIDs, subjectID) > s.quota
	}
	return load, nil
}

// ensureTeacher locks the teacher row so concurrent Add and ReplaceAll calls
// for the same teacher see each other's subjects before the quota check.
func (s *TeacherAssignmentService) ensureTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) error {
	teacher, err := s.teachers.LockByID(ctx, exec, teacherID)
	if err != nil {
		return lookupError(err, "teacher")
	}
	if !teacher.Assignable() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher inactive")
	}
	return nil
}

func (s *TeacherAssignmentService) quotaError(count int) error {
	return appErrors.Clone(appErrors.ErrQuotaExceeded, fmt.Sprintf("teacher would hold %d distinct subjects, limit is %d", count, s.quota))
}

// pairChecker resolves subjects and sections once per unit of work.
type pairChecker struct {
	svc      *TeacherAssignmentService
	exec     sqlx.ExtContext
	subjects map[string]*models.Subject
	sections map[string]*models.Section
}

func newPairChecker(svc *TeacherAssignmentService, exec sqlx.ExtContext) *pairChecker {
	return &pairChecker{
		svc:      svc,
		exec:     exec,
		subjects: make(map[string]*models.Subject),
		sections: make(map[string]*models.Section),
	}
}

func (p *pairChecker) check(ctx context.Context, pair models.AssignmentPair) error {
	subject, ok := p.subjects[pair.SubjectID]
	if !ok {
		found, err := p.svc.subjects.FindByID(ctx, p.exec, pair.SubjectID, models.OnlyActive)
		if err != nil {
			return lookupError(err, "subject")
		}
		subject = found
		p.subjects[pair.SubjectID] = found
	}
	section, ok := p.sections[pair.SectionID]
	if !ok {
		found, err := p.svc.sections.FindByID(ctx, p.exec, pair.SectionID, models.OnlyActive)
		if err != nil {
			return lookupError(err, "section")
		}
		section = found
		p.sections[pair.SectionID] = found
	}
	if subject.GradeLevel != section.GradeLevel {
		return appErrors.Clone(appErrors.ErrGradeMismatch, fmt.Sprintf("subject %s is grade %d but section %s is grade %d", subject.Name, subject.GradeLevel, section.Name, section.GradeLevel))
	}
	return nil
}

// distinctWith returns the size of ids after adding candidate.
func distinctWith(ids []string, candidate string) int {
	set := make(map[string]struct{}, len(ids)+1)
	for _, id := range ids {
		set[id] = struct{}{}
	}
	set[candidate] = struct{}{}
	return len(set)
}
