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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	SetActive(ctx context.Context, id string, active bool) error
}

// CreateSubjectRequest captures fields for creating subjects. A blank strand
// makes the subject a core subject.
type CreateSubjectRequest struct {
	Name       string  `json:"name" validate:"required,max=150"`
	GradeLevel int     `json:"grade_level" validate:"required,oneof=11 12"`
	Strand     *string `json:"strand" validate:"omitempty,max=50"`
}

// SubjectService handles subject lookups and their lifecycle.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects admitted by filter.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, wrapStore(err, "failed to list subjects")
	}
	return subjects, nil
}

// Create inserts a new active subject.
func (s *SubjectService) Create(ctx context.Context, req CreateSubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := &models.Subject{
		Name:       strings.TrimSpace(req.Name),
		GradeLevel: req.GradeLevel,
		Strand:     normalizeRef(req.Strand),
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, wrapStore(err, "failed to create subject")
	}
	return subject, nil
}

// SetActive activates or soft deletes a subject.
func (s *SubjectService) SetActive(ctx context.Context, id string, active bool) (*models.Subject, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, lookupError(err, "subject")
	}
	subject, err := s.repo.FindByID(ctx, nil, id, models.AnyActivity)
	if err != nil {
		return nil, lookupError(err, "subject")
	}
	s.logger.Info("subject lifecycle changed", zap.String("subject_id", id), zap.Bool("active", active))
	return subject, nil
}
