package dto

import (
	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

// ReEnrollFailure names the student a batch item failed for.
type ReEnrollFailure struct {
	StudentID string           `json:"student_id"`
	Error     *appErrors.Error `json:"error"`
}

// ReEnrollBatchResult collects per-student outcomes of a batch re-enrollment.
type ReEnrollBatchResult struct {
	Succeeded []models.Student  `json:"succeeded"`
	Failed    []ReEnrollFailure `json:"failed"`
}
