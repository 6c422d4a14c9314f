package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shs-registrar-api/internal/models"
)

const studentColumns = `id, lrn, first_name, middle_name, last_name, gender, birth_date, contact, address, gwa,
        grade_level, strand, enrollment_status, section_id, school_year_id, is_archived, archive_reason, archived_at,
        created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db   *sqlx.DB
	lock string
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, lock: rowLock(db)}
}

// List returns students matching the provided filters. Archived students are
// only returned when the filter asks for them.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	conditions := []string{fmt.Sprintf("is_archived = %t", filter.Archived)}
	var args []interface{}

	if filter.SchoolYearID != "" {
		args = append(args, filter.SchoolYearID)
		conditions = append(conditions, fmt.Sprintf("school_year_id = $%d", len(args)))
	}
	if filter.SectionID != "" {
		args = append(args, filter.SectionID)
		conditions = append(conditions, fmt.Sprintf("section_id = $%d", len(args)))
	}
	if filter.Strand != "" {
		args = append(args, filter.Strand)
		conditions = append(conditions, fmt.Sprintf("strand = $%d", len(args)))
	}
	if filter.GradeLevel != 0 {
		args = append(args, filter.GradeLevel)
		conditions = append(conditions, fmt.Sprintf("grade_level = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("enrollment_status = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR COALESCE(lrn, '') LIKE $%d)", len(args), len(args), len(args)))
	}

	base := "FROM student" + whereClause(conditions)

	allowedSorts := map[string]string{
		"last_name":  "last_name",
		"first_name": "first_name",
		"lrn":        "lrn",
		"created_at": "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "last_name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, offset)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	return r.find(ctx, exec, id, "")
}

// LockByID fetches a student and holds its row until the transaction ends.
func (r *StudentRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	return r.find(ctx, exec, id, r.lock)
}

func (r *StudentRepository) find(ctx context.Context, exec sqlx.ExtContext, id, suffix string) (*models.Student, error) {
	query := "SELECT " + studentColumns + " FROM student WHERE id = $1" + suffix
	var student models.Student
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByLRN checks if another student of the school year already holds lrn.
// Records of earlier years carry the same learner's lrn as history.
func (r *StudentRepository) ExistsByLRN(ctx context.Context, exec sqlx.ExtContext, lrn, schoolYearID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM student WHERE lrn = $1 AND school_year_id = $2"
	args := []interface{}{lrn, schoolYearID}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check lrn: %w", err)
	}
	return true, nil
}

// ListCandidates returns the non-archived students of a school year whose
// status is one of statuses.
func (r *StudentRepository) ListCandidates(ctx context.Context, exec sqlx.ExtContext, schoolYearID string, statuses []models.EnrollmentStatus) ([]models.Student, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	args := []interface{}{schoolYearID}
	placeholders := make([]string, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := fmt.Sprintf("SELECT %s FROM student WHERE school_year_id = $1 AND is_archived = FALSE AND enrollment_status IN (%s) ORDER BY last_name ASC, first_name ASC",
		studentColumns, strings.Join(placeholders, ", "))
	var students []models.Student
	if err := sqlx.SelectContext(ctx, executor(r.db, exec), &students, query, args...); err != nil {
		return nil, fmt.Errorf("list transition candidates: %w", err)
	}
	return students, nil
}

// ListActiveBySchoolYear returns every non-archived student of a school year.
func (r *StudentRepository) ListActiveBySchoolYear(ctx context.Context, schoolYearID string) ([]models.Student, error) {
	query := "SELECT " + studentColumns + " FROM student WHERE school_year_id = $1 AND is_archived = FALSE ORDER BY grade_level ASC, last_name ASC, first_name ASC"
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, schoolYearID); err != nil {
		return nil, fmt.Errorf("list students by school year: %w", err)
	}
	return students, nil
}

// CountEnrolledInSection returns the enrolled, non-archived headcount of a section.
func (r *StudentRepository) CountEnrolledInSection(ctx context.Context, exec sqlx.ExtContext, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM student WHERE section_id = $1 AND enrollment_status = $2 AND is_archived = FALSE`
	var count int
	if err := sqlx.GetContext(ctx, executor(r.db, exec), &count, query, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count section headcount: %w", err)
	}
	return count, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO student (id, lrn, first_name, middle_name, last_name, gender, birth_date, contact, address, gwa,
        grade_level, strand, enrollment_status, section_id, school_year_id, is_archived, archive_reason, archived_at, created_at, updated_at)
        VALUES (:id, :lrn, :first_name, :middle_name, :last_name, :gender, :birth_date, :contact, :address, :gwa,
        :grade_level, :strand, :enrollment_status, :section_id, :school_year_id, :is_archived, :archive_reason, :archived_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// CreateBatch inserts every student through exec. Callers wrap it in a
// transaction so the batch lands whole or not at all.
func (r *StudentRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, students []models.Student) error {
	for i := range students {
		if err := r.Create(ctx, exec, &students[i]); err != nil {
			return err
		}
	}
	return nil
}

// UpdateEnrollment writes the lrn and the status/section pair in one statement.
func (r *StudentRepository) UpdateEnrollment(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student SET lrn = :lrn, enrollment_status = :enrollment_status, section_id = :section_id, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, student); err != nil {
		return fmt.Errorf("update student enrollment: %w", err)
	}
	return nil
}

// UpdateProfile writes the personal fields of a student.
func (r *StudentRepository) UpdateProfile(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student SET lrn = :lrn, first_name = :first_name, middle_name = :middle_name, last_name = :last_name, gender = :gender,
        birth_date = :birth_date, contact = :contact, address = :address, gwa = :gwa, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, student); err != nil {
		return fmt.Errorf("update student profile: %w", err)
	}
	return nil
}

// UpdatePlacement moves a student to another grade and school year together
// with its status/section pair.
func (r *StudentRepository) UpdatePlacement(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student SET grade_level = :grade_level, school_year_id = :school_year_id, enrollment_status = :enrollment_status,
        section_id = :section_id, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, executor(r.db, exec), query, student); err != nil {
		return fmt.Errorf("update student placement: %w", err)
	}
	return nil
}

// SetArchived toggles the archive flag. Restoring clears reason and timestamp.
func (r *StudentRepository) SetArchived(ctx context.Context, exec sqlx.ExtContext, id string, reason *models.ArchiveReason) error {
	now := time.Now().UTC()
	var (
		query string
		args  []interface{}
	)
	if reason != nil {
		query = `UPDATE student SET is_archived = TRUE, archive_reason = $1, archived_at = $2, updated_at = $2 WHERE id = $3`
		args = []interface{}{*reason, now, id}
	} else {
		query = `UPDATE student SET is_archived = FALSE, archive_reason = NULL, archived_at = NULL, updated_at = $1 WHERE id = $2`
		args = []interface{}{now, id}
	}
	result, err := executor(r.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("archive student: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archived student rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
