package models

import "time"

// Subject is taught at one grade level. A nil strand marks a core subject
// shared by every strand.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	Strand     *string   `db:"strand" json:"strand,omitempty"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// IsCore reports whether the subject applies to all strands.
func (s Subject) IsCore() bool {
	return s.Strand == nil || *s.Strand == ""
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	Strand     string
	GradeLevel int
	Active     ActiveFilter
}

// Active implements Lifecycle.
func (s Subject) Active() bool { return s.IsActive }
