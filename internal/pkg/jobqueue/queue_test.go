package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers, nil)

			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.False(t, queue.running)
		})
	}
}

func TestQueueProcessesDispatchedEvents(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)

	var mu sync.Mutex
	var seen []dispatch.Task
	q := NewQueue(client, 2, func(_ context.Context, task dispatch.Task) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, task)
		return nil
	})
	q.Start()
	t.Cleanup(q.Stop)

	ctx := context.Background()
	require.NoError(t, q.Dispatch(ctx, dispatch.Task{EventID: 1, Platform: "platform_a", Hash: "h1"}))
	require.NoError(t, q.Dispatch(ctx, dispatch.Task{EventID: 2, Platform: "platform_b", Hash: "h2"}))

	ok := waitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 5*time.Second)
	require.True(t, ok, "jobs were not processed")

	assert.True(t, waitFor(func() bool {
		n, _ := q.GetProcessingSize(ctx)
		return n == 0
	}, 2*time.Second))

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[JobStatusPending])
	assert.Equal(t, int64(2), stats[JobStatusCompleted])
}

func TestQueueDoesNotRetryTerminalFailures(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)

	var calls atomic.Int32
	q := NewQueue(client, 1, func(context.Context, dispatch.Task) error {
		calls.Add(1)
		return apperror.NotFound("order HP-1 not found")
	})
	q.retryDelay = 10 * time.Millisecond
	q.Start()
	t.Cleanup(q.Stop)

	require.NoError(t, q.Dispatch(context.Background(), dispatch.Task{EventID: 9}))
	require.True(t, waitFor(func() bool { return calls.Load() == 1 }, 5*time.Second))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueueRetriesInternalFailures(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)

	var calls atomic.Int32
	q := NewQueue(client, 1, func(context.Context, dispatch.Task) error {
		if calls.Add(1) < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	q.retryDelay = 10 * time.Millisecond
	q.Start()
	t.Cleanup(q.Stop)

	require.NoError(t, q.Dispatch(context.Background(), dispatch.Task{EventID: 10}))
	assert.True(t, waitFor(func() bool { return calls.Load() == 3 }, 5*time.Second))
}

func TestRecoverStuckJobs(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	q := NewQueue(client, 1, nil)
	ctx := context.Background()

	job, err := q.EnqueueJob(ctx, JobTypeProcessEvent, ProcessEventJobPayload{EventID: 3}.ToMap())
	require.NoError(t, err)

	// simulate a worker that died after picking the job up
	require.NoError(t, client.RPopLPush(ctx, JobQueueKey, JobProcessingKey).Err())
	job.MarkAsProcessing()
	started := time.Now().Add(-time.Hour)
	job.ProcessedAt = &started
	q.updateJob(ctx, job)

	assert.Equal(t, 1, q.recoverStuck(ctx, 10*time.Minute))

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}
