package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/pkg/database"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

const schoolYearColumns = "id, year, start_date, end_date, is_current, created_at, updated_at"

// SchoolYearRepository manages persistence for school years.
type SchoolYearRepository struct {
	db   *sqlx.DB
	lock string
}

// NewSchoolYearRepository constructs the repository.
func NewSchoolYearRepository(db *sqlx.DB) *SchoolYearRepository {
	return &SchoolYearRepository{db: db, lock: rowLock(db)}
}

// List returns every school year, newest first.
func (r *SchoolYearRepository) List(ctx context.Context) ([]models.SchoolYear, error) {
	var years []models.SchoolYear
	if err := r.db.SelectContext(ctx, &years, "SELECT "+schoolYearColumns+" FROM school_year ORDER BY start_date DESC"); err != nil {
		return nil, fmt.Errorf("list school years: %w", err)
	}
	return years, nil
}

// FindByID fetches a school year by ID.
func (r *SchoolYearRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SchoolYear, error) {
	var year models.SchoolYear
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &year, "SELECT "+schoolYearColumns+" FROM school_year WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindCurrent returns the current school year or sql.ErrNoRows.
func (r *SchoolYearRepository) FindCurrent(ctx context.Context, exec sqlx.ExtContext) (*models.SchoolYear, error) {
	var year models.SchoolYear
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &year, "SELECT "+schoolYearColumns+" FROM school_year WHERE is_current = TRUE LIMIT 1"); err != nil {
		return nil, err
	}
	return &year, nil
}

// ExistsByYear checks whether the label is taken.
func (r *SchoolYearRepository) ExistsByYear(ctx context.Context, label string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM school_year WHERE year = $1 LIMIT 1", label); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check school year label: %w", err)
	}
	return true, nil
}

// Create inserts a new, non-current school year.
func (r *SchoolYearRepository) Create(ctx context.Context, exec sqlx.ExtContext, year *models.SchoolYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now
	const query = `INSERT INTO school_year (id, year, start_date, end_date, is_current, created_at, updated_at)
		VALUES (:id, :year, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, year); err != nil {
		return fmt.Errorf("create school year: %w", err)
	}
	return nil
}

// SetCurrent clears the previous current year and marks id as current. Both
// statements must run inside the caller's transaction. On PostgreSQL the
// current row is locked first so concurrent switches queue behind each other;
// a switch that still races on uq_school_year_current is reported as
// contention.
func (r *SchoolYearRepository) SetCurrent(ctx context.Context, exec sqlx.ExtContext, id string) error {
	ext := executor(r.db, exec)
	now := time.Now().UTC()
	if r.lock != "" {
		var held []string
		if err := sqlx.SelectContext(ctx, ext, &held, "SELECT id FROM school_year WHERE is_current = TRUE"+r.lock); err != nil {
			return fmt.Errorf("lock current school year: %w", err)
		}
	}
	if _, err := ext.ExecContext(ctx, `UPDATE school_year SET is_current = FALSE, updated_at = $1 WHERE is_current = TRUE AND id <> $2`, now, id); err != nil {
		return fmt.Errorf("clear current school year: %w", err)
	}
	result, err := ext.ExecContext(ctx, `UPDATE school_year SET is_current = TRUE, updated_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		if errors.Is(database.Classify(err), appErrors.ErrDuplicateKey) {
			return appErrors.Wrap(err, appErrors.ErrContention.Code, appErrors.ErrContention.Status, "current school year changed concurrently")
		}
		return fmt.Errorf("set current school year: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check current school year rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
