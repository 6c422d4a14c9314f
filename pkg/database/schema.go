package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is written in the subset of SQL shared by PostgreSQL and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS school_year (
		id TEXT PRIMARY KEY,
		year TEXT NOT NULL UNIQUE,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP NOT NULL,
		is_current BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_school_year_current ON school_year (is_current) WHERE is_current = TRUE`,
	`CREATE TABLE IF NOT EXISTS section (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		strand TEXT NOT NULL,
		grade_level INTEGER NOT NULL,
		capacity INTEGER,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (name, strand, grade_level)
	)`,
	`CREATE TABLE IF NOT EXISTS subject (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		grade_level INTEGER NOT NULL,
		strand TEXT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS student (
		id TEXT PRIMARY KEY,
		lrn TEXT,
		first_name TEXT NOT NULL,
		middle_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL,
		gender TEXT NOT NULL DEFAULT '',
		birth_date TIMESTAMP NOT NULL,
		contact TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		gwa DOUBLE PRECISION,
		grade_level INTEGER NOT NULL,
		strand TEXT NOT NULL,
		enrollment_status TEXT NOT NULL,
		section_id TEXT REFERENCES section (id),
		school_year_id TEXT NOT NULL REFERENCES school_year (id),
		is_archived BOOLEAN NOT NULL DEFAULT FALSE,
		archive_reason TEXT,
		archived_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		CHECK ((enrollment_status = 'ENROLLED' AND section_id IS NOT NULL) OR (enrollment_status = 'PENDING' AND section_id IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_student_lrn_year ON student (lrn, school_year_id)`,
	`CREATE INDEX IF NOT EXISTS idx_student_school_year ON student (school_year_id, is_archived, enrollment_status)`,
	`CREATE INDEX IF NOT EXISTS idx_student_section ON student (section_id)`,
	`CREATE TABLE IF NOT EXISTS teacher_assignment (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES users (id),
		subject_id TEXT NOT NULL REFERENCES subject (id),
		section_id TEXT NOT NULL REFERENCES section (id),
		created_at TIMESTAMP NOT NULL,
		UNIQUE (teacher_id, subject_id, section_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_teacher_assignment_teacher ON teacher_assignment (teacher_id)`,
}

// Migrate creates the registrar tables when missing.
func Migrate(db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
