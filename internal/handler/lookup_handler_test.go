package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

type fakeSectionService struct {
	filter models.SectionFilter
	active *bool
}

func (f *fakeSectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, error) {
	f.filter = filter
	return []models.Section{}, nil
}

func (f *fakeSectionService) Create(ctx context.Context, req service.CreateSectionRequest) (*models.Section, error) {
	return &models.Section{ID: "sec-1", Name: req.Name, Strand: req.Strand, GradeLevel: req.GradeLevel, IsActive: true}, nil
}

func (f *fakeSectionService) SetActive(ctx context.Context, id string, active bool) (*models.Section, error) {
	f.active = &active
	if id == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	return &models.Section{ID: id, IsActive: active}, nil
}

type fakeSubjectService struct {
	filter models.SubjectFilter
}

func (f *fakeSubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	f.filter = filter
	return []models.Subject{}, nil
}

func (f *fakeSubjectService) Create(ctx context.Context, req service.CreateSubjectRequest) (*models.Subject, error) {
	return &models.Subject{ID: "sub-1", Name: req.Name, GradeLevel: req.GradeLevel}, nil
}

func (f *fakeSubjectService) SetActive(ctx context.Context, id string, active bool) (*models.Subject, error) {
	return &models.Subject{ID: id, IsActive: active}, nil
}

type fakeTeacherService struct {
	search string
}

func (f *fakeTeacherService) List(ctx context.Context, search string) ([]models.Teacher, error) {
	f.search = search
	return []models.Teacher{}, nil
}

func (f *fakeTeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	if id == "missing" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return &models.Teacher{ID: id}, nil
}

func (f *fakeTeacherService) Create(ctx context.Context, req service.CreateTeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: "t-1", Email: req.Email, FullName: req.FullName}, nil
}

func TestSectionHandlerListFilters(t *testing.T) {
	svc := &fakeSectionService{}
	h := NewSectionHandler(svc)
	r := newTestRouter()
	r.GET("/sections", h.List)

	rec, _ := perform(t, r, http.MethodGet, "/sections?strand=STEM&gradeLevel=12&active=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SectionFilter{Strand: "STEM", GradeLevel: 12, Active: models.AnyActivity}, svc.filter)

	rec, _ = perform(t, r, http.MethodGet, "/sections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.OnlyActive, svc.filter.Active)

	rec, envelope := perform(t, r, http.MethodGet, "/sections?active=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestSectionHandlerSetActive(t *testing.T) {
	svc := &fakeSectionService{}
	h := NewSectionHandler(svc)
	r := newTestRouter()
	r.PATCH("/sections/:id/active", h.SetActive)

	rec, _ := perform(t, r, http.MethodPatch, "/sections/sec-1/active", map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.active)
	assert.False(t, *svc.active)

	rec, _ = perform(t, r, http.MethodPatch, "/sections/sec-1/active", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = perform(t, r, http.MethodPatch, "/sections/missing/active", map[string]bool{"active": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubjectHandlerListInactive(t *testing.T) {
	svc := &fakeSubjectService{}
	h := NewSubjectHandler(svc)
	r := newTestRouter()
	r.GET("/subjects", h.List)
	r.POST("/subjects", h.Create)

	rec, _ := perform(t, r, http.MethodGet, "/subjects?gradeLevel=11&active=false", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 11, svc.filter.GradeLevel)
	assert.Equal(t, models.OnlyInactive, svc.filter.Active)

	rec, _ = perform(t, r, http.MethodPost, "/subjects", map[string]interface{}{"name": "Oral Communication", "grade_level": 11})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestTeacherHandlerRoutes(t *testing.T) {
	svc := &fakeTeacherService{}
	h := NewTeacherHandler(svc)
	r := newTestRouter()
	r.GET("/teachers", h.List)
	r.GET("/teachers/:id", h.Get)
	r.POST("/teachers", h.Create)

	rec, _ := perform(t, r, http.MethodGet, "/teachers?search=%20santos%20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "santos", svc.search)

	rec, _ = perform(t, r, http.MethodGet, "/teachers/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = perform(t, r, http.MethodPost, "/teachers", map[string]string{"email": "a@school.ph", "full_name": "Ana Santos"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
