package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observerStub struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *observerStub) ObserveJob(queue, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, queue+":"+outcome)
}

func (o *observerStub) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes...)
}

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	obs := &observerStub{}
	done := make(chan Job, 1)
	q := NewQueue("transition", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("busy")
		}
		done <- job
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond, Observer: obs})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1", Type: "school-year-transition"}))
	select {
	case job := <-done:
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried to completion")
	}
	assert.Eventually(t, func() bool { return len(obs.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"transition:retried", "transition:retried", "transition:completed"}, obs.snapshot())
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	var calls int32
	obs := &observerStub{}
	q := NewQueue("transition", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("store busy")
	}, QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond, Observer: obs})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	assert.Eventually(t, func() bool {
		out := obs.snapshot()
		return len(out) > 0 && out[len(out)-1] == "transition:exhausted"
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Zero(t, q.Pending())
}

func TestQueueDoesNotRetryPermanentFailures(t *testing.T) {
	var calls int32
	obs := &observerStub{}
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("bad payload"))
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond, Observer: obs})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	time.Sleep(50 * time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"test:dropped"}, obs.snapshot())
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "job-1"}))
}

func TestPermanentWrapping(t *testing.T) {
	base := errors.New("boom")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.True(t, errors.Is(err, base))
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}
