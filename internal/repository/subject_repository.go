package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/internal/models"
)

const subjectColumns = "id, name, grade_level, strand, is_active, created_at, updated_at"

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects matching filters. Filtering by strand keeps the core
// subjects that apply to every strand.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	var conditions []string
	var args []interface{}
	if cond := activeCondition("is_active", filter.Active); cond != "" {
		conditions = append(conditions, cond)
	}
	if filter.Strand != "" {
		args = append(args, filter.Strand)
		conditions = append(conditions, fmt.Sprintf("(strand = $%d OR strand IS NULL)", len(args)))
	}
	if filter.GradeLevel != 0 {
		args = append(args, filter.GradeLevel)
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)))
	}
	query := "SELECT " + subjectColumns + " FROM subject" + whereClause(conditions) + " ORDER BY grade_level ASC, name ASC"
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject admitted by the lifecycle filter.
func (r *SubjectRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string, active models.ActiveFilter) (*models.Subject, error) {
	conditions := []string{"id = $1"}
	if cond := activeCondition("is_active", active); cond != "" {
		conditions = append(conditions, cond)
	}
	var subject models.Subject
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &subject, "SELECT "+subjectColumns+" FROM subject"+whereClause(conditions), id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Create inserts a new subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subject (id, name, grade_level, strand, is_active, created_at, updated_at)
		VALUES (:id, :name, :grade_level, :strand, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// SetActive flips the soft delete flag.
func (r *SubjectRepository) SetActive(ctx context.Context, id string, active bool) error {
	return setActive(ctx, r.db, "subject", id, active)
}
