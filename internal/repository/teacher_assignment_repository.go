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

// TeacherAssignmentRepository persists teacher subject/section assignments.
type TeacherAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeacherAssignmentRepository constructs the repository.
func NewTeacherAssignmentRepository(db *sqlx.DB) *TeacherAssignmentRepository {
	return &TeacherAssignmentRepository{db: db}
}

// ListByTeacher returns assignments owned by teacher.
func (r *TeacherAssignmentRepository) ListByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	const query = `
SELECT ta.id, ta.teacher_id, ta.subject_id, ta.section_id, ta.created_at,
       s.name AS subject_name, sec.name AS section_name, sec.grade_level
FROM teacher_assignment ta
JOIN subject s ON s.id = ta.subject_id
JOIN section sec ON sec.id = ta.section_id
WHERE ta.teacher_id = $1
ORDER BY s.name ASC, sec.name ASC`
	var assignments []models.TeacherAssignmentDetail
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &assignments, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return assignments, nil
}

// Exists checks if the teacher-subject-section tuple already exists.
func (r *TeacherAssignmentRepository) Exists(ctx context.Context, exec sqlx.ExtContext, teacherID, subjectID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM teacher_assignment WHERE teacher_id = $1 AND subject_id = $2 AND section_id = $3 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &exists, query, teacherID, subjectID, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}
	return true, nil
}

// DistinctSubjectIDs returns the subjects a teacher currently teaches.
func (r *TeacherAssignmentRepository) DistinctSubjectIDs(ctx context.Context, exec sqlx.ExtContext, teacherID string) ([]string, error) {
	const query = `SELECT DISTINCT subject_id FROM teacher_assignment WHERE teacher_id = $1`
	var ids []string
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &ids, query, teacherID); err != nil {
		return nil, fmt.Errorf("list assigned subjects: %w", err)
	}
	return ids, nil
}

// CountDistinctSubjects returns the number of distinct subjects for teacher.
func (r *TeacherAssignmentRepository) CountDistinctSubjects(ctx context.Context, exec sqlx.ExtContext, teacherID string) (int, error) {
	const query = `SELECT COUNT(DISTINCT subject_id) FROM teacher_assignment WHERE teacher_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &count, query, teacherID); err != nil {
		return 0, fmt.Errorf("count assigned subjects: %w", err)
	}
	return count, nil
}

// Create inserts a new assignment.
func (r *TeacherAssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.TeacherAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teacher_assignment (id, teacher_id, subject_id, section_id, created_at)
		VALUES (:id, :teacher_id, :subject_id, :section_id, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, assignment); err != nil {
		return fmt.Errorf("create teacher assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment verifying ownership.
func (r *TeacherAssignmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, teacherID, assignmentID string) error {
	const query = `DELETE FROM teacher_assignment WHERE id = $1 AND teacher_id = $2`
	result, err := executor(r.db, exec).ExecContext(ctx, query, assignmentID, teacherID)
	if err != nil {
		return fmt.Errorf("delete teacher assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted assignment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteByTeacher clears every assignment of teacher.
func (r *TeacherAssignmentRepository) DeleteByTeacher(ctx context.Context, exec sqlx.ExtContext, teacherID string) error {
	if _, err := executor(r.db, exec).ExecContext(ctx, `DELETE FROM teacher_assignment WHERE teacher_id = $1`, teacherID); err != nil {
		return fmt.Errorf("clear teacher assignments: %w", err)
	}
	return nil
}
