package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	"github.com/noah-isme/shs-registrar-api/pkg/response"
)

type schoolYearService interface {
	List(ctx context.Context) ([]models.SchoolYear, error)
	Get(ctx context.Context, id string) (*models.SchoolYear, error)
	GetCurrent(ctx context.Context) (*models.SchoolYear, error)
	Create(ctx context.Context, req service.CreateSchoolYearRequest) (*models.SchoolYear, error)
	SetCurrent(ctx context.Context, id string) (*models.SchoolYear, error)
}

type transitionService interface {
	Preview(ctx context.Context, req service.TransitionRequest) (*models.TransitionCounts, error)
	Transition(ctx context.Context, req service.TransitionRequest) (*models.TransitionResult, error)
}

type transitionJobService interface {
	Enqueue(ctx context.Context, req service.TransitionRequest) (*models.TransitionJob, error)
	Get(ctx context.Context, id string) (*models.TransitionJob, error)
}

// SchoolYearHandler exposes school year and transition endpoints.
type SchoolYearHandler struct {
	years       schoolYearService
	transitions transitionService
	jobs        transitionJobService
}

// NewSchoolYearHandler constructs the handler.
func NewSchoolYearHandler(years schoolYearService, transitions transitionService, jobs transitionJobService) *SchoolYearHandler {
	return &SchoolYearHandler{years: years, transitions: transitions, jobs: jobs}
}

// List godoc
// @Summary List school years
// @Tags SchoolYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /school-years [get]
func (h *SchoolYearHandler) List(c *gin.Context) {
	years, err := h.years.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// Get godoc
// @Summary Get school year
// @Tags SchoolYears
// @Produce json
// @Param id path string true "School year ID"
// @Success 200 {object} response.Envelope
// @Router /school-years/{id} [get]
func (h *SchoolYearHandler) Get(c *gin.Context) {
	year, err := h.years.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Current godoc
// @Summary Get the current school year
// @Tags SchoolYears
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /school-years/current [get]
func (h *SchoolYearHandler) Current(c *gin.Context) {
	year, err := h.years.GetCurrent(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Create godoc
// @Summary Create school year
// @Tags SchoolYears
// @Accept json
// @Produce json
// @Param payload body service.CreateSchoolYearRequest true "School year payload"
// @Success 201 {object} response.Envelope
// @Router /school-years [post]
func (h *SchoolYearHandler) Create(c *gin.Context) {
	var req service.CreateSchoolYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	year, err := h.years.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, year)
}

// SetCurrent godoc
// @Summary Make a school year current
// @Tags SchoolYears
// @Produce json
// @Param id path string true "School year ID"
// @Success 200 {object} response.Envelope
// @Router /school-years/{id}/current [put]
func (h *SchoolYearHandler) SetCurrent(c *gin.Context) {
	year, err := h.years.SetCurrent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, year, nil)
}

// Preview godoc
// @Summary Preview a school year transition
// @Tags SchoolYears
// @Produce json
// @Param newSchoolYearId query string true "Target school year"
// @Param carryOverEnrolled query bool false "Carry enrolled grade 11 students"
// @Param carryOverPending query bool false "Carry pending grade 11 students"
// @Success 200 {object} response.Envelope
// @Router /school-years/transition/preview [get]
func (h *SchoolYearHandler) Preview(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	counts, err := h.transitions.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Transition godoc
// @Summary Transition to a new school year
// @Tags SchoolYears
// @Accept json
// @Produce json
// @Param payload body service.TransitionRequest true "Transition payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /school-years/transition [post]
func (h *SchoolYearHandler) Transition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.transitions.Transition(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// EnqueueTransition godoc
// @Summary Queue a school year transition
// @Tags SchoolYears
// @Accept json
// @Produce json
// @Param payload body service.TransitionRequest true "Transition payload"
// @Success 202 {object} response.Envelope
// @Router /school-years/transition/jobs [post]
func (h *SchoolYearHandler) EnqueueTransition(c *gin.Context) {
	var req service.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	job, err := h.jobs.Enqueue(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// TransitionJob godoc
// @Summary Get a queued transition
// @Tags SchoolYears
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /school-years/transition/jobs/{id} [get]
func (h *SchoolYearHandler) TransitionJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}
