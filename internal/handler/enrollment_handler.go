package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	"github.com/noah-isme/shs-registrar-api/pkg/response"
)

type enrollmentService interface {
	Upsert(ctx context.Context, studentID string, req service.EnrollmentRequest) (*models.Student, error)
}

// EnrollmentHandler exposes the enrollment state machine.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Upsert godoc
// @Summary Set enrollment status and section
// @Description ENROLLED requires a section of the student's grade and strand; PENDING forbids one.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.EnrollmentRequest true "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /students/{id}/enrollment [put]
func (h *EnrollmentHandler) Upsert(c *gin.Context) {
	var req service.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.enrollments.Upsert(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
