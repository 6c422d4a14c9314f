package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
)

func newTransitionFixture() (*world, *TransitionService, *MetricsService) {
	w := newWorld()
	w.addYear("sy-old", "2025-2026", true)
	w.addYear("sy-new", "2026-2027", false)
	w.addSection("stem-11a", "STEM", 11, nil)
	metrics := NewMetricsService()
	svc := NewTransitionService(studentFake{w}, yearFake{w}, w, nil, metrics, nil, nil)
	return w, svc, metrics
}

func seedCohort(w *world) {
	enrolled := models.EnrollmentStatusEnrolled
	w.addStudent(models.Student{ID: "a", LRN: strPtr("100000000001"), FirstName: "A", GradeLevel: 11, SchoolYearID: "sy-old", EnrollmentStatus: enrolled, SectionID: strPtr("stem-11a")})
	w.addStudent(models.Student{ID: "b", FirstName: "B", GradeLevel: 11, SchoolYearID: "sy-old"})
	w.addStudent(models.Student{ID: "c", FirstName: "C", GradeLevel: 12, SchoolYearID: "sy-old", EnrollmentStatus: enrolled, SectionID: strPtr("stem-12a")})
	w.addStudent(models.Student{ID: "d", FirstName: "D", GradeLevel: 11, SchoolYearID: "sy-old", IsArchived: true})
}

func TestTransitionPreviewClassifiesCohort(t *testing.T) {
	w, svc, _ := newTransitionFixture()
	seedCohort(w)

	counts, err := svc.Preview(context.Background(), TransitionRequest{NewSchoolYearID: "sy-new", CarryOverEnrolled: true, CarryOverPending: true})
	require.NoError(t, err)
	assert.Equal(t, models.TransitionCounts{EnrolledCarried: 1, PendingCarried: 1, Skipped: 1, Total: 3}, *counts)
	assert.Len(t, w.students, 4)
	assert.True(t, w.years["sy-old"].IsCurrent)
}

func TestTransitionPreviewMatchesCommit(t *testing.T) {
	for _, flags := range [][2]bool{{true, true}, {true, false}, {false, true}, {false, false}} {
		w, svc, _ := newTransitionFixture()
		seedCohort(w)
		req := TransitionRequest{NewSchoolYearID: "sy-new", CarryOverEnrolled: flags[0], CarryOverPending: flags[1]}

		preview, err := svc.Preview(context.Background(), req)
		require.NoError(t, err)
		result, err := svc.Transition(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, *preview, result.TransitionCounts, "flags %v", flags)
	}
}

func TestTransitionCommitCarriesForward(t *testing.T) {
	w, svc, metrics := newTransitionFixture()
	seedCohort(w)

	result, err := svc.Transition(context.Background(), TransitionRequest{NewSchoolYearID: "sy-new", CarryOverEnrolled: true, CarryOverPending: true})
	require.NoError(t, err)
	assert.True(t, result.Committed)
	require.NotNil(t, result.FromSchoolYearID)
	assert.Equal(t, "sy-old", *result.FromSchoolYearID)
	assert.Equal(t, "sy-new", result.ToSchoolYearID)

	assert.True(t, w.years["sy-new"].IsCurrent)
	assert.False(t, w.years["sy-old"].IsCurrent)

	carried := sortedStudents(w.students, func(s models.Student) bool { return s.SchoolYearID == "sy-new" })
	require.Len(t, carried, 2)
	for _, s := range carried {
		assert.Equal(t, 12, s.GradeLevel)
		assert.Equal(t, models.EnrollmentStatusPending, s.EnrollmentStatus)
		assert.Nil(t, s.SectionID)
		assert.False(t, s.IsArchived)
	}

	// the historical records are untouched
	assert.Equal(t, models.EnrollmentStatusEnrolled, w.students["a"].EnrollmentStatus)
	assert.Equal(t, 11, w.students["a"].GradeLevel)
	assert.Equal(t, "sy-old", w.students["a"].SchoolYearID)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("enrolled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.transitions.WithLabelValues("skipped")))
}

func TestTransitionBootstrapWithoutCurrentYear(t *testing.T) {
	w := newWorld()
	w.addYear("sy-first", "2025-2026", false)
	svc := NewTransitionService(studentFake{w}, yearFake{w}, w, nil, nil, nil, nil)

	result, err := svc.Transition(context.Background(), TransitionRequest{NewSchoolYearID: "sy-first", CarryOverEnrolled: true, CarryOverPending: true})
	require.NoError(t, err)
	assert.Nil(t, result.FromSchoolYearID)
	assert.Zero(t, result.Total)
	assert.True(t, w.years["sy-first"].IsCurrent)
}

func TestTransitionRejectsInvalidTargets(t *testing.T) {
	_, svc, _ := newTransitionFixture()
	ctx := context.Background()

	_, err := svc.Transition(ctx, TransitionRequest{NewSchoolYearID: "missing", CarryOverEnrolled: true})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Transition(ctx, TransitionRequest{NewSchoolYearID: "sy-old", CarryOverEnrolled: true})
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	_, err = svc.Preview(ctx, TransitionRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestTransitionUnsupportedGradeIsDataIntegrity(t *testing.T) {
	w, svc, _ := newTransitionFixture()
	w.addStudent(models.Student{ID: "x", GradeLevel: 10, SchoolYearID: "sy-old"})

	_, err := svc.Transition(context.Background(), TransitionRequest{NewSchoolYearID: "sy-new", CarryOverPending: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDataIntegrity))
	assert.True(t, w.years["sy-old"].IsCurrent)
}

func TestTransitionRollsBackWhenCurrentFlagFails(t *testing.T) {
	w, svc, _ := newTransitionFixture()
	seedCohort(w)
	w.failSetCurrent = &pq.Error{Code: "40001"}

	_, err := svc.Transition(context.Background(), TransitionRequest{NewSchoolYearID: "sy-new", CarryOverEnrolled: true, CarryOverPending: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrContention))
	assert.Len(t, w.students, 4)
	assert.True(t, w.years["sy-old"].IsCurrent)
	assert.False(t, w.years["sy-new"].IsCurrent)
}

func TestTransitionRollsBackWhenBatchInsertFails(t *testing.T) {
	w, svc, _ := newTransitionFixture()
	seedCohort(w)
	w.failCreateBatch = &pq.Error{Code: "23505"}

	_, err := svc.Transition(context.Background(), TransitionRequest{NewSchoolYearID: "sy-new", CarryOverEnrolled: true, CarryOverPending: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateKey))
	assert.Len(t, w.students, 4)
	assert.True(t, w.years["sy-old"].IsCurrent)
}
