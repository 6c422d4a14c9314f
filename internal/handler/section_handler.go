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

type sectionService interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error)
	Create(ctx context.Context, req service.CreateSectionRequest) (*models.Section, error)
	SetActive(ctx context.Context, id string, active bool) (*models.Section, error)
}

// SectionHandler exposes section lookups.
type SectionHandler struct {
	sections sectionService
}

// NewSectionHandler constructs the handler.
func NewSectionHandler(sections sectionService) *SectionHandler {
	return &SectionHandler{sections: sections}
}

// List godoc
// @Summary List sections
// @Tags Sections
// @Produce json
// @Param strand query string false "Filter by strand"
// @Param gradeLevel query int false "Filter by grade level"
// @Param active query string false "true (default), false or all"
// @Success 200 {object} response.Envelope
// @Router /sections [get]
func (h *SectionHandler) List(c *gin.Context) {
	active, err := activeFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.SectionFilter{
		Strand:     strings.TrimSpace(c.Query("strand")),
		GradeLevel: queryInt(c, "gradeLevel", 0),
		Active:     active,
	}
	sections, err := h.sections.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// Create godoc
// @Summary Create section
// @Tags Sections
// @Accept json
// @Produce json
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /sections [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	section, err := h.sections.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// SetActive godoc
// @Summary Activate or soft delete a section
// @Tags Sections
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body lifecycleRequest true "Lifecycle payload"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/active [patch]
func (h *SectionHandler) SetActive(c *gin.Context) {
	var req lifecycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	section, err := h.sections.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}
