package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/internal/models"
)

// TeacherRepository reads teacher accounts out of the users table.
type TeacherRepository struct {
	db   *sqlx.DB
	lock string
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db, lock: rowLock(db)}
}

// List returns teachers, optionally narrowed by a name or email search.
func (r *TeacherRepository) List(ctx context.Context, search string) ([]models.Teacher, error) {
	query := "SELECT id, email, full_name, active, created_at, updated_at FROM users WHERE role = $1"
	args := []interface{}{models.RoleTeacher}
	if search != "" {
		query += " AND (LOWER(full_name) LIKE $2 OR LOWER(email) LIKE $2)"
		args = append(args, "%"+strings.ToLower(search)+"%")
	}
	query += " ORDER BY full_name ASC"
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error) {
	return r.find(ctx, exec, id, "")
}

// LockByID fetches a teacher and holds the row until the transaction ends,
// serialising assignment changes for that teacher.
func (r *TeacherRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Teacher, error) {
	return r.find(ctx, exec, id, r.lock)
}

func (r *TeacherRepository) find(ctx context.Context, exec sqlx.ExtContext, id, suffix string) (*models.Teacher, error) {
	query := "SELECT id, email, full_name, active, created_at, updated_at FROM users WHERE id = $1 AND role = $2" + suffix
	var teacher models.Teacher
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &teacher, query, id, models.RoleTeacher); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a new teacher account.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO users (id, email, full_name, role, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, teacher.ID, teacher.Email, teacher.FullName, models.RoleTeacher, teacher.Active, teacher.CreatedAt, teacher.UpdatedAt); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}
