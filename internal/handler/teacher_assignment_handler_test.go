package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/internal/service"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

type fakeAssignmentService struct {
	added     models.AssignmentPair
	replaced  service.ReplaceAssignmentsRequest
	removed   string
	subjectID string
	err       error
}

func (f *fakeAssignmentService) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAssignmentDetail, error) {
	return []models.TeacherAssignmentDetail{}, f.err
}

func (f *fakeAssignmentService) Add(ctx context.Context, teacherID string, req models.AssignmentPair) (*models.TeacherAssignment, error) {
	f.added = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.TeacherAssignment{ID: "a-1", TeacherID: teacherID, SubjectID: req.SubjectID, SectionID: req.SectionID}, nil
}

func (f *fakeAssignmentService) ReplaceAll(ctx context.Context, teacherID string, req service.ReplaceAssignmentsRequest) ([]models.TeacherAssignmentDetail, error) {
	f.replaced = req
	return []models.TeacherAssignmentDetail{}, f.err
}

func (f *fakeAssignmentService) Remove(ctx context.Context, teacherID, assignmentID string) error {
	f.removed = assignmentID
	return f.err
}

func (f *fakeAssignmentService) WouldExceedQuota(ctx context.Context, teacherID, subjectID string) (*models.SubjectLoad, error) {
	f.subjectID = subjectID
	return &models.SubjectLoad{TeacherID: teacherID, DistinctSubjects: 8, Quota: 8, SubjectID: subjectID, WouldExceed: subjectID != ""}, f.err
}

func newAssignmentRouter(svc *fakeAssignmentService) http.Handler {
	h := NewTeacherAssignmentHandler(svc)
	r := newTestRouter()
	r.GET("/teachers/:id/assignments", h.List)
	r.POST("/teachers/:id/assignments", h.Add)
	r.PUT("/teachers/:id/assignments", h.ReplaceAll)
	r.GET("/teachers/:id/assignments/subject-count", h.SubjectCount)
	r.DELETE("/teachers/:id/assignments/:aid", h.Remove)
	return r
}

func TestTeacherAssignmentHandlerAdd(t *testing.T) {
	svc := &fakeAssignmentService{}
	r := newAssignmentRouter(svc)

	rec, _ := perform(t, r, http.MethodPost, "/teachers/t-1/assignments", map[string]string{"subject_id": "sub-1", "section_id": "sec-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "sub-1", svc.added.SubjectID)

	svc.err = appErrors.Clone(appErrors.ErrQuotaExceeded, "")
	rec, envelope := perform(t, r, http.MethodPost, "/teachers/t-1/assignments", map[string]string{"subject_id": "sub-9", "section_id": "sec-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "QUOTA_EXCEEDED", envelope.Error.Code)

	svc.err = appErrors.Clone(appErrors.ErrDuplicateAssignment, "")
	rec, _ = perform(t, r, http.MethodPost, "/teachers/t-1/assignments", map[string]string{"subject_id": "sub-1", "section_id": "sec-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTeacherAssignmentHandlerReplaceAndRemove(t *testing.T) {
	svc := &fakeAssignmentService{}
	r := newAssignmentRouter(svc)

	rec, _ := perform(t, r, http.MethodPut, "/teachers/t-1/assignments", map[string]interface{}{
		"assignments": []map[string]string{{"subject_id": "sub-1", "section_id": "sec-1"}, {"subject_id": "sub-1", "section_id": "sec-2"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, svc.replaced.Assignments, 2)

	rec, _ = perform(t, r, http.MethodDelete, "/teachers/t-1/assignments/a-7", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a-7", svc.removed)
}

func TestTeacherAssignmentHandlerSubjectCount(t *testing.T) {
	svc := &fakeAssignmentService{}
	r := newAssignmentRouter(svc)

	rec, envelope := perform(t, r, http.MethodGet, "/teachers/t-1/assignments/subject-count?subjectId=sub-9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-9", svc.subjectID)

	var load models.SubjectLoad
	require.NoError(t, json.Unmarshal(envelope.Data, &load))
	assert.True(t, load.WouldExceed)
	assert.Equal(t, 8, load.DistinctSubjects)
}
