package models

import "time"

// Teacher is a users row with role TEACHER. Inactive teachers keep their
// existing assignments but cannot receive new ones.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Assignable reports whether new subject assignments may be given to t.
func (t *Teacher) Assignable() bool {
	return t != nil && t.Active
}
