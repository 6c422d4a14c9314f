package models

import "time"

// TransitionCounts classifies a cohort for a school-year rollover.
type TransitionCounts struct {
	EnrolledCarried int `json:"enrolled"`
	PendingCarried  int `json:"pending"`
	Skipped         int `json:"skipped"`
	Total           int `json:"total"`
}

// TransitionResult is returned once a transition has been committed.
type TransitionResult struct {
	TransitionCounts
	FromSchoolYearID *string   `json:"from_school_year_id,omitempty"`
	ToSchoolYearID   string    `json:"to_school_year_id"`
	Committed        bool      `json:"committed"`
	CommittedAt      time.Time `json:"committed_at"`
}

// TransitionJobStatus tracks an asynchronous transition.
type TransitionJobStatus string

const (
	TransitionJobQueued    TransitionJobStatus = "QUEUED"
	TransitionJobRunning   TransitionJobStatus = "RUNNING"
	TransitionJobCompleted TransitionJobStatus = "COMPLETED"
	TransitionJobFailed    TransitionJobStatus = "FAILED"
)

// TransitionJob is the status record of a queued transition.
type TransitionJob struct {
	ID                string              `json:"id"`
	Status            TransitionJobStatus `json:"status"`
	NewSchoolYearID   string              `json:"new_school_year_id"`
	CarryOverEnrolled bool                `json:"carry_over_enrolled"`
	CarryOverPending  bool                `json:"carry_over_pending"`
	Result            *TransitionResult   `json:"result,omitempty"`
	Error             string              `json:"error,omitempty"`
	EnqueuedAt        time.Time           `json:"enqueued_at"`
	FinishedAt        *time.Time          `json:"finished_at,omitempty"`
}
