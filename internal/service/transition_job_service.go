package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/shs-registrar-api/internal/models"
	appErrors "github.com/noah-isme/shs-registrar-api/pkg/errors"
	"github.com/noah-isme/shs-registrar-api/pkg/jobs"
)

// TransitionJobType labels queued school year transitions.
const TransitionJobType = "school_year_transition"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type transitionRunner interface {
	Transition(ctx context.Context, req TransitionRequest) (*models.TransitionResult, error)
}

// TransitionJobStore keeps the status of queued transitions in memory.
type TransitionJobStore struct {
	mu   sync.RWMutex
	jobs map[string]models.TransitionJob
}

// NewTransitionJobStore constructs an empty store.
func NewTransitionJobStore() *TransitionJobStore {
	return &TransitionJobStore{jobs: make(map[string]models.TransitionJob)}
}

// Save stores job, replacing any previous version.
func (s *TransitionJobStore) Save(job models.TransitionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

// Get returns a copy of the job.
func (s *TransitionJobStore) Get(id string) (models.TransitionJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Update applies fn to the stored job. It reports false when id is unknown.
func (s *TransitionJobStore) Update(id string, fn func(job *models.TransitionJob)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	fn(&job)
	s.jobs[id] = job
	return true
}

// TransitionJobService queues transitions for background execution.
type TransitionJobService struct {
	store     *TransitionJobStore
	queue     jobDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTransitionJobService constructs the service.
func NewTransitionJobService(store *TransitionJobStore, queue jobDispatcher, validate *validator.Validate, logger *zap.Logger) *TransitionJobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionJobService{store: store, queue: queue, validator: validate, logger: logger}
}

// Enqueue records a queued job and hands it to the worker pool.
func (s *TransitionJobService) Enqueue(ctx context.Context, req TransitionRequest) (*models.TransitionJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}
	job := models.TransitionJob{
		ID:                uuid.NewString(),
		Status:            models.TransitionJobQueued,
		NewSchoolYearID:   req.NewSchoolYearID,
		CarryOverEnrolled: req.CarryOverEnrolled,
		CarryOverPending:  req.CarryOverPending,
		EnqueuedAt:        time.Now().UTC(),
	}
	s.store.Save(job)

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: TransitionJobType, Payload: req, Enqueued: job.EnqueuedAt}); err != nil {
		s.store.Update(job.ID, func(j *models.TransitionJob) {
			now := time.Now().UTC()
			j.Status = models.TransitionJobFailed
			j.Error = "failed to enqueue job"
			j.FinishedAt = &now
		})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue transition job")
	}
	s.logger.Info("transition job queued", zap.String("job_id", job.ID), zap.String("new_school_year_id", req.NewSchoolYearID))
	return &job, nil
}

// Get returns the job status.
func (s *TransitionJobService) Get(ctx context.Context, id string) (*models.TransitionJob, error) {
	job, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "transition job not found")
	}
	return &job, nil
}

// TransitionWorker executes queued transitions.
type TransitionWorker struct {
	store      *TransitionJobStore
	engine     transitionRunner
	maxRetries int
	logger     *zap.Logger
}

// NewTransitionWorker constructs a worker. maxRetries should match the queue.
func NewTransitionWorker(store *TransitionJobStore, engine transitionRunner, maxRetries int, logger *zap.Logger) *TransitionWorker {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransitionWorker{store: store, engine: engine, maxRetries: maxRetries, logger: logger}
}

// Handle processes a queue job. Contention that outlasts the coordinator is
// handed back to the queue for a later attempt; every other failure is final.
func (w *TransitionWorker) Handle(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(TransitionRequest)
	if !ok {
		w.fail(job.ID, "malformed job payload")
		return jobs.Permanent(appErrors.Clone(appErrors.ErrValidation, "malformed transition job payload"))
	}
	w.store.Update(job.ID, func(j *models.TransitionJob) {
		j.Status = models.TransitionJobRunning
	})

	result, err := w.engine.Transition(ctx, req)
	if err != nil {
		if appErrors.IsRetryable(err) && job.Attempt < w.maxRetries {
			w.store.Update(job.ID, func(j *models.TransitionJob) {
				j.Status = models.TransitionJobQueued
				j.Error = err.Error()
			})
			return err
		}
		w.fail(job.ID, err.Error())
		return jobs.Permanent(err)
	}

	w.store.Update(job.ID, func(j *models.TransitionJob) {
		now := time.Now().UTC()
		j.Status = models.TransitionJobCompleted
		j.Result = result
		j.Error = ""
		j.FinishedAt = &now
	})
	w.logger.Info("transition job completed", zap.String("job_id", job.ID), zap.Int("total", result.Total))
	return nil
}

func (w *TransitionWorker) fail(id, message string) {
	w.store.Update(id, func(j *models.TransitionJob) {
		now := time.Now().UTC()
		j.Status = models.TransitionJobFailed
		j.Error = message
		j.FinishedAt = &now
	})
}
