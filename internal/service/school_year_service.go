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

type schoolYearRepository interface {
	List(ctx context.Context) ([]models.SchoolYear, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SchoolYear, error)
	FindCurrent(ctx context.Context, exec sqlx.ExtContext) (*models.SchoolYear, error)
	ExistsByYear(ctx context.Context, label string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, year *models.SchoolYear) error
	SetCurrent(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// CreateSchoolYearRequest captures the payload for new school years.
type CreateSchoolYearRequest struct {
	Year      string    `json:"year" validate:"required,max=20"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

// SchoolYearService manages school years and the exclusive current flag.
type SchoolYearService struct {
	repo      schoolYearRepository
	tx        txRunner
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchoolYearService constructs the service.
func NewSchoolYearService(repo schoolYearRepository, tx txRunner, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SchoolYearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchoolYearService{repo: repo, tx: tx, cache: cache, validator: validate, logger: logger}
}

// List returns all school years.
func (s *SchoolYearService) List(ctx context.Context) ([]models.SchoolYear, error) {
	years, err := s.repo.List(ctx)
	if err != nil {
		return nil, wrapStore(err, "failed to list school years")
	}
	return years, nil
}

// Get returns a school year by ID.
func (s *SchoolYearService) Get(ctx context.Context, id string) (*models.SchoolYear, error) {
	year, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "school year")
	}
	return year, nil
}

// GetCurrent returns the current school year.
func (s *SchoolYearService) GetCurrent(ctx context.Context) (*models.SchoolYear, error) {
	year, err := s.repo.FindCurrent(ctx, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current school year")
		}
		return nil, wrapStore(err, "failed to load current school year")
	}
	return year, nil
}

// Create registers a school year. New years are never current.
func (s *SchoolYearService) Create(ctx context.Context, req CreateSchoolYearRequest) (*models.SchoolYear, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid school year payload")
	}
	exists, err := s.repo.ExistsByYear(ctx, req.Year)
	if err != nil {
		return nil, wrapStore(err, "failed to check school year label")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "school year label already exists")
	}

	year := &models.SchoolYear{Year: req.Year, StartDate: req.StartDate, EndDate: req.EndDate}
	err = s.tx.Run(ctx, "school_year.create", func(ctx context.Context, exec sqlx.ExtContext) error {
		year.ID = ""
		return wrapStore(s.repo.Create(ctx, exec, year), "failed to create school year")
	})
	if err != nil {
		return nil, err
	}
	return year, nil
}

// SetCurrent makes id the only current school year.
func (s *SchoolYearService) SetCurrent(ctx context.Context, id string) (*models.SchoolYear, error) {
	var current *models.SchoolYear
	err := s.tx.Run(ctx, "school_year.set_current", func(ctx context.Context, exec sqlx.ExtContext) error {
		year, err := s.repo.FindByID(ctx, exec, id)
		if err != nil {
			return lookupError(err, "school year")
		}
		if err := s.repo.SetCurrent(ctx, exec, id); err != nil {
			return lookupError(err, "school year")
		}
		year.IsCurrent = true
		current = year
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateRoster(ctx)
	s.logger.Info("current school year changed", zap.String("school_year_id", id), zap.String("year", current.Year))
	return current, nil
}
