package models

import "time"

// ActiveFilter selects rows by their active/inactive lifecycle flag.
type ActiveFilter int

const (
	OnlyActive ActiveFilter = iota
	OnlyInactive
	AnyActivity
)

// Section is a class grouping within one strand and grade level.
type Section struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Strand     string    `db:"strand" json:"strand"`
	GradeLevel int       `db:"grade_level" json:"grade_level"`
	Capacity   *int      `db:"capacity" json:"capacity,omitempty"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SectionFilter defines filter criteria for listing sections.
type SectionFilter struct {
	Strand     string
	GradeLevel int
	Active     ActiveFilter
}

// Lifecycle is implemented by records soft deleted through an active flag.
type Lifecycle interface {
	Active() bool
}

// Active implements Lifecycle.
func (s Section) Active() bool { return s.IsActive }

// Matches reports whether a filter admits a record in the given state.
func (f ActiveFilter) Matches(l Lifecycle) bool {
	switch f {
	case OnlyActive:
		return l.Active()
	case OnlyInactive:
		return !l.Active()
	default:
		return true
	}
}
