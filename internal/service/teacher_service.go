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

type teacherRepository interface {
	List(ctx context.Context, search string) ([]models.Teacher, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

// CreateTeacherRequest represents payload for registering teacher accounts.
type CreateTeacherRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=150"`
}

// TeacherService exposes the teacher directory.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the service.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers matching search.
func (s *TeacherService) List(ctx context.Context, search string) ([]models.Teacher, error) {
	teachers, err := s.repo.List(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, wrapStore(err, "failed to list teachers")
	}
	return teachers, nil
}

// Get returns a teacher by ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "teacher")
	}
	return teacher, nil
}

// Create registers an active teacher account.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		FullName: strings.TrimSpace(req.FullName),
		Active:   true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, wrapStore(err, "failed to create teacher")
	}
	return teacher, nil
}
