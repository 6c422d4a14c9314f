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

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Section, error)
	Create(ctx context.Context, section *models.Section) error
	SetActive(ctx context.Context, id string, active bool) error
}

// CreateSectionRequest captures fields for creating sections.
type CreateSectionRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Strand     string `json:"strand" validate:"required,max=50"`
	GradeLevel int    `json:"grade_level" validate:"required,oneof=11 12"`
	Capacity   *int   `json:"capacity" validate:"omitempty,min=1"`
}

// SectionService handles section lookups and their lifecycle.
type SectionService struct {
	repo      sectionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService creates a new section service.
func NewSectionService(repo sectionRepository, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, validator: validate, logger: logger}
}

// List returns sections admitted by filter.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error) {
	sections, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, wrapStore(err, "failed to list sections")
	}
	return sections, nil
}

// Create inserts a new active section.
func (s *SectionService) Create(ctx context.Context, req CreateSectionRequest) (*models.Section, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	section := &models.Section{
		Name:       strings.TrimSpace(req.Name),
		Strand:     strings.ToUpper(strings.TrimSpace(req.Strand)),
		GradeLevel: req.GradeLevel,
		Capacity:   req.Capacity,
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, section); err != nil {
		return nil, wrapStore(err, "failed to create section")
	}
	return section, nil
}

// SetActive activates or soft deletes a section.
func (s *SectionService) SetActive(ctx context.Context, id string, active bool) (*models.Section, error) {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, lookupError(err, "section")
	}
	section, err := s.repo.FindByID(ctx, nil, id, models.AnyActivity)
	if err != nil {
		return nil, lookupError(err, "section")
	}
	s.logger.Info("section lifecycle changed", zap.String("section_id", id), zap.Bool("active", active))
	return section, nil
}
