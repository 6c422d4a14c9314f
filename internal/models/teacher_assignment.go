package models

import "time"

// TeacherAssignment records that a teacher teaches a subject to a section.
type TeacherAssignment struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherAssignmentDetail enriches assignments with descriptive fields.
type TeacherAssignmentDetail struct {
	TeacherAssignment
	SubjectName string `db:"subject_name" json:"subject_name"`
	SectionName string `db:"section_name" json:"section_name"`
	GradeLevel  int    `db:"grade_level" json:"grade_level"`
}

// AssignmentPair is one (subject, section) entry of a teacher's load.
type AssignmentPair struct {
	SubjectID string `json:"subject_id" validate:"required"`
	SectionID string `json:"section_id" validate:"required"`
}

// SubjectLoad reports a teacher's distinct subject count against the quota.
type SubjectLoad struct {
	TeacherID        string `json:"teacher_id"`
	DistinctSubjects int    `json:"distinct_subjects"`
	Quota            int    `json:"quota"`
	SubjectID        string `json:"subject_id,omitempty"`
	WouldExceed      bool   `json:"would_exceed"`
}
