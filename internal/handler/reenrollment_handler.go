package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shs-registrar-api/internal/dto"
	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	"github.com/noah-isme/shs-registrar-api/pkg/response"
)

type reEnrollmentService interface {
	Eligible(ctx context.Context, previousSchoolYearID string) ([]models.Student, error)
	ReEnroll(ctx context.Context, req service.ReEnrollRequest) (*models.Student, error)
	ReEnrollBatch(ctx context.Context, req service.ReEnrollBatchRequest) (*dto.ReEnrollBatchResult, error)
}

// ReEnrollmentHandler exposes re-enrollment endpoints.
type ReEnrollmentHandler struct {
	service reEnrollmentService
}

// NewReEnrollmentHandler constructs the handler.
func NewReEnrollmentHandler(svc reEnrollmentService) *ReEnrollmentHandler {
	return &ReEnrollmentHandler{service: svc}
}

// Eligible godoc
// @Summary List students eligible for re-enrollment
// @Tags ReEnrollment
// @Produce json
// @Param previousSchoolYearId query string false "School year to draw from, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /students/re-enroll/eligible [get]
func (h *ReEnrollmentHandler) Eligible(c *gin.Context) {
	students, err := h.service.Eligible(c.Request.Context(), c.Query("previousSchoolYearId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil, map[string]interface{}{"count": len(students)})
}

// ReEnroll godoc
// @Summary Re-enroll a student into the current school year
// @Tags ReEnrollment
// @Accept json
// @Produce json
// @Param payload body service.ReEnrollRequest true "Re-enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /students/re-enroll [post]
func (h *ReEnrollmentHandler) ReEnroll(c *gin.Context) {
	var req service.ReEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	student, err := h.service.ReEnroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ReEnrollBatch godoc
// @Summary Re-enroll many students, reporting failures per student
// @Tags ReEnrollment
// @Accept json
// @Produce json
// @Param payload body service.ReEnrollBatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /students/re-enroll/batch [post]
func (h *ReEnrollmentHandler) ReEnrollBatch(c *gin.Context) {
	var req service.ReEnrollBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.service.ReEnrollBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	})
}
