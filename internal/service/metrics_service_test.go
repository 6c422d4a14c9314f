package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	"github.com/noah-isme/shs-registrar-api/pkg/database"
	"github.com/noah-isme/shs-registrar-api/pkg/jobs"
)

func TestMetricsServiceTracksTransactions(t *testing.T) {
	m := NewMetricsService()
	m.ObserveTxAttempt("enrollment.upsert", database.OutcomeRetried, 1)
	m.ObserveTxAttempt("enrollment.upsert", database.OutcomeCommitted, 2)
	m.ObserveTxAttempt("transition.commit", database.OutcomeExhausted, 5)
	m.ObserveTxAttempt("student.create", database.OutcomeFailed, 1)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/students", http.StatusOK, 20*time.Millisecond)

	snapshot := m.Snapshot()
	assert.Equal(t, uint64(1), snapshot.TxCommitted)
	assert.Equal(t, uint64(1), snapshot.TxRetried)
	assert.Equal(t, uint64(1), snapshot.TxExhausted)
	assert.Equal(t, uint64(1), snapshot.TxFailed)
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.InDelta(t, 20, snapshot.AverageRequestDurationMs, 0.5)
}

func TestMetricsServiceExposesPrometheus(t *testing.T) {
	m := NewMetricsService()
	m.RecordTransition(models.TransitionCounts{EnrolledCarried: 4, PendingCarried: 2, Skipped: 1, Total: 7})
	m.ObserveTxAttempt("transition.commit", database.OutcomeCommitted, 1)
	m.ObserveJob("school-year-transition", jobs.OutcomeRetried)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `school_year_transition_students_total{category="enrolled"} 4`))
	assert.True(t, strings.Contains(body, `store_tx_attempts_total{operation="transition.commit",outcome="committed"} 1`))
	assert.True(t, strings.Contains(body, `background_jobs_total{outcome="retried",queue="school-year-transition"} 1`))
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.ObserveTxAttempt("op", database.OutcomeCommitted, 1)
	m.RecordTransition(models.TransitionCounts{})
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveJob("q", jobs.OutcomeCompleted)
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())
}
