package models

import "time"

// EnrollmentStatus is the enrollment state of a student record.
type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusEnrolled EnrollmentStatus = "ENROLLED"
)

// Valid reports whether the status is one of the known values.
func (s EnrollmentStatus) Valid() bool {
	return s == EnrollmentStatusPending || s == EnrollmentStatusEnrolled
}

// ArchiveReason explains why a student left the active population.
type ArchiveReason string

const (
	ArchiveReasonDropped     ArchiveReason = "DROPPED"
	ArchiveReasonGraduated   ArchiveReason = "GRADUATED"
	ArchiveReasonTransferred ArchiveReason = "TRANSFERRED"
	ArchiveReasonOther       ArchiveReason = "OTHER"
)

// Grade levels offered by senior high school.
const (
	GradeEleven = 11
	GradeTwelve = 12
)

// Student is one learner's record for one school year. A new record is
// created for every school year the learner is carried into.
type Student struct {
	ID               string           `db:"id" json:"id"`
	LRN              *string          `db:"lrn" json:"lrn,omitempty"`
	FirstName        string           `db:"first_name" json:"first_name"`
	MiddleName       string           `db:"middle_name" json:"middle_name"`
	LastName         string           `db:"last_name" json:"last_name"`
	Gender           string           `db:"gender" json:"gender"`
	BirthDate        time.Time        `db:"birth_date" json:"birth_date"`
	Contact          string           `db:"contact" json:"contact"`
	Address          string           `db:"address" json:"address"`
	GWA              *float64         `db:"gwa" json:"gwa,omitempty"`
	GradeLevel       int              `db:"grade_level" json:"grade_level"`
	Strand           string           `db:"strand" json:"strand"`
	EnrollmentStatus EnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	SectionID        *string          `db:"section_id" json:"section_id,omitempty"`
	SchoolYearID     string           `db:"school_year_id" json:"school_year_id"`
	IsArchived       bool             `db:"is_archived" json:"is_archived"`
	ArchiveReason    *ArchiveReason   `db:"archive_reason" json:"archive_reason,omitempty"`
	ArchivedAt       *time.Time       `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// FullName joins the name parts for display and logging.
func (s Student) FullName() string {
	if s.MiddleName == "" {
		return s.FirstName + " " + s.LastName
	}
	return s.FirstName + " " + s.MiddleName + " " + s.LastName
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	SchoolYearID string
	SectionID    string
	Strand       string
	GradeLevel   int
	Status       EnrollmentStatus
	Archived     bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
