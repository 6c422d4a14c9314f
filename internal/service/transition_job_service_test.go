package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
	"github.com/noah-isme/shs-registrar-api/pkg/jobs"
)

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type runnerStub struct {
	result *models.TransitionResult
	err    error
	calls  int
}

func (r *runnerStub) Transition(ctx context.Context, req TransitionRequest) (*models.TransitionResult, error) {
	r.calls++
	return r.result, r.err
}

func TestTransitionJobEnqueue(t *testing.T) {
	store := NewTransitionJobStore()
	queue := &dispatcherStub{}
	svc := NewTransitionJobService(store, queue, nil, nil)

	job, err := svc.Enqueue(context.Background(), TransitionRequest{NewSchoolYearID: "sy-2", CarryOverEnrolled: true})
	require.NoError(t, err)
	assert.Equal(t, models.TransitionJobQueued, job.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, TransitionJobType, queue.jobs[0].Type)
	assert.Equal(t, job.ID, queue.jobs[0].ID)

	stored, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "sy-2", stored.NewSchoolYearID)

	_, err = svc.Get(context.Background(), "unknown")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestTransitionJobEnqueueFailureMarksJobFailed(t *testing.T) {
	store := NewTransitionJobStore()
	svc := NewTransitionJobService(store, &dispatcherStub{err: errors.New("queue stopped")}, nil, nil)

	_, err := svc.Enqueue(context.Background(), TransitionRequest{NewSchoolYearID: "sy-2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestTransitionWorkerCompletesJob(t *testing.T) {
	store := NewTransitionJobStore()
	store.Save(models.TransitionJob{ID: "job-1", Status: models.TransitionJobQueued})
	runner := &runnerStub{result: &models.TransitionResult{ToSchoolYearID: "sy-2", Committed: true}}
	worker := NewTransitionWorker(store, runner, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: TransitionRequest{NewSchoolYearID: "sy-2"}})
	require.NoError(t, err)

	job, _ := store.Get("job-1")
	assert.Equal(t, models.TransitionJobCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.NotNil(t, job.FinishedAt)
}

func TestTransitionWorkerRetriesContention(t *testing.T) {
	store := NewTransitionJobStore()
	store.Save(models.TransitionJob{ID: "job-1", Status: models.TransitionJobQueued})
	runner := &runnerStub{err: appErrors.Clone(appErrors.ErrContention, "")}
	worker := NewTransitionWorker(store, runner, 2, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: TransitionRequest{NewSchoolYearID: "sy-2"}})
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))
	job, _ := store.Get("job-1")
	assert.Equal(t, models.TransitionJobQueued, job.Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2, Payload: TransitionRequest{NewSchoolYearID: "sy-2"}})
	assert.True(t, jobs.IsPermanent(err))
	job, _ = store.Get("job-1")
	assert.Equal(t, models.TransitionJobFailed, job.Status)
}

func TestTransitionWorkerDomainErrorsArePermanent(t *testing.T) {
	store := NewTransitionJobStore()
	store.Save(models.TransitionJob{ID: "job-1", Status: models.TransitionJobQueued})
	worker := NewTransitionWorker(store, &runnerStub{err: appErrors.Clone(appErrors.ErrPreconditionFailed, "school year is already current")}, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: TransitionRequest{NewSchoolYearID: "sy-2"}})
	assert.True(t, jobs.IsPermanent(err))
	assert.True(t, errors.Is(err, appErrors.ErrPreconditionFailed))

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Payload: "garbage"})
	assert.True(t, jobs.IsPermanent(err))
	job, _ := store.Get("job-1")
	assert.Equal(t, models.TransitionJobFailed, job.Status)
}
