package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	"github.com/noah-isme/shs-registrar-api/pkg/response"
)

type teacherAssignmentService interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAssignmentDetail, error)
	Add(ctx context.Context, teacherID string, req models.AssignmentPair) (*models.TeacherAssignment, error)
	ReplaceAll(ctx context.Context, teacherID string, req service.ReplaceAssignmentsRequest) ([]models.TeacherAssignmentDetail, error)
	Remove(ctx context.Context, teacherID, assignmentID string) error
	WouldExceedQuota(ctx context.Context, teacherID, subjectID string) (*models.SubjectLoad, error)
}

// TeacherAssignmentHandler exposes teacher assignment endpoints.
type TeacherAssignmentHandler struct {
	assignments teacherAssignmentService
}

// NewTeacherAssignmentHandler constructs the handler.
func NewTeacherAssignmentHandler(assignments teacherAssignmentService) *TeacherAssignmentHandler {
	return &TeacherAssignmentHandler{assignments: assignments}
}

// List godoc
// @Summary List teacher assignments
// @Tags TeacherAssignments
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/assignments [get]
func (h *TeacherAssignmentHandler) List(c *gin.Context) {
	assignments, err := h.assignments.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Add godoc
// @Summary Assign a subject and section to a teacher
// @Tags TeacherAssignments
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body models.AssignmentPair true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /teachers/{id}/assignments [post]
func (h *TeacherAssignmentHandler) Add(c *gin.Context) {
	var req models.AssignmentPair
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	assignment, err := h.assignments.Add(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// ReplaceAll godoc
// @Summary Replace every assignment of a teacher
// @Tags TeacherAssignments
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.ReplaceAssignmentsRequest true "Target assignment set"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/assignments [put]
func (h *TeacherAssignmentHandler) ReplaceAll(c *gin.Context) {
	var req service.ReplaceAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	assignments, err := h.assignments.ReplaceAll(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Remove godoc
// @Summary Remove a teacher assignment
// @Tags TeacherAssignments
// @Param id path string true "Teacher ID"
// @Param aid path string true "Assignment ID"
// @Success 204
// @Router /teachers/{id}/assignments/{aid} [delete]
func (h *TeacherAssignmentHandler) Remove(c *gin.Context) {
	if err := h.assignments.Remove(c.Request.Context(), c.Param("id"), c.Param("aid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SubjectCount godoc
// @Summary Count distinct subjects held by a teacher
// @Tags TeacherAssignments
// @Produce json
// @Param id path string true "Teacher ID"
// @Param subjectId query string false "Report whether adding this subject would exceed the quota"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/assignments/subject-count [get]
func (h *TeacherAssignmentHandler) SubjectCount(c *gin.Context) {
	load, err := h.assignments.WouldExceedQuota(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("subjectId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, load, nil)
}
