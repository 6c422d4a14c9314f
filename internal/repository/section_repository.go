package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/internal/models"
)

const sectionColumns = "id, name, strand, grade_level, capacity, is_active, created_at, updated_at"

// SectionRepository handles persistence for sections.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository creates a new repository instance.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// List returns sections matching the filter ordered by grade, strand and name.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error) {
	var conditions []string
	var args []interface{}
	if cond := activeCondition("is_active", filter.Active); cond != "" {
		conditions = append(conditions, cond)
	}
	if filter.Strand != "" {
		args = append(args, filter.Strand)
		conditions = append(conditions, fmt.Sprintf("strand = $%d", len(args)))
	}
	if filter.GradeLevel != 0 {
		args = append(args, filter.GradeLevel)
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)))
	}
	query := "SELECT " + sectionColumns + " FROM section" + whereClause(conditions) + " ORDER BY grade_level ASC, strand ASC, name ASC"
	var sections []models.Section
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	return sections, nil
}

// FindByID returns a section admitted by the lifecycle filter.
func (r *SectionRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Section, error) {
	conditions := []string{"id = $1"}
	if cond := activeCondition("is_active", active); cond != "" {
		conditions = append(conditions, cond)
	}
	var section models.Section
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &section, "SELECT "+sectionColumns+" FROM section"+whereClause(conditions), id); err != nil {
		return nil, err
	}
	return &section, nil
}

// Create inserts a new section.
func (r *SectionRepository) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now
	const query = `INSERT INTO section (id, name, strand, grade_level, capacity, is_active, created_at, updated_at)
		VALUES (:id, :name, :strand, :grade_level, :capacity, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// SetActive flips the soft delete flag.
func (r *SectionRepository) SetActive(ctx context.Context, id string, active bool) error {
	return setActive(ctx, r.db, "section", id, active)
}

func setActive(ctx context.Context, db *sqlx.DB, table, id string, active bool) error {
	query := fmt.Sprintf("UPDATE %s SET is_active = $1, updated_at = $2 WHERE id = $3", table)
	result, err := db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update %s lifecycle: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s lifecycle rows: %w", table, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
