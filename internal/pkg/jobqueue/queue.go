package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/TrackFox/internal/pkg/apperror"
	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
	"github.com/ManuelReschke/TrackFox/internal/pkg/logger"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "trackfox:job:"
	JobQueueKey      = "trackfox:job_queue"
	JobProcessingKey = "trackfox:job_processing"
	JobStatsKey      = "trackfox:job_stats"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

// Handler processes one raw event task. Terminal apperror kinds are not
// retried.
type Handler func(ctx context.Context, task dispatch.Task) error

// Queue is a Redis backed work queue for raw event processing.
type Queue struct {
	client     *redis.Client
	handler    Handler
	workers    int
	retryDelay time.Duration
	workerPool chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
}

func NewQueue(client *redis.Client, workers int, handler Handler) *Queue {
	if workers <= 0 {
		workers = 3
	}

	return &Queue{
		client:     client,
		handler:    handler,
		workers:    workers,
		retryDelay: time.Minute,
		workerPool: make(chan struct{}, workers),
		stopCh:     make(chan struct{}),
	}
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	q.stopCh = make(chan struct{})
	qlog(context.Background()).Info("starting workers", zap.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.workerPool <- struct{}{}
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	// recovers jobs left in the processing list by a crashed worker
	q.wg.Add(1)
	go q.stuckSweeper(10*time.Minute, time.Minute)
}

// Stop stops the job queue workers
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return
	}

	qlog(context.Background()).Info("stopping workers")
	close(q.stopCh)
	q.running = false
	q.wg.Wait()
	for len(q.workerPool) > 0 {
		<-q.workerPool
	}
	qlog(context.Background()).Info("all workers stopped")
}

// Dispatch enqueues a process_event job for task.
func (q *Queue) Dispatch(ctx context.Context, task dispatch.Task) error {
	_, err := q.EnqueueJob(ctx, JobTypeProcessEvent, NewProcessEventJobPayload(task).ToMap())
	return err
}

// EnqueueJob adds a new job to the queue
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	qlog(ctx).Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return job, nil
}

func (q *Queue) stuckSweeper(maxAge time.Duration, interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.recoverStuck(ctx, maxAge)
		}
	}
}

// recoverStuck moves jobs that sat in the processing list longer than
// maxAge back to the pending list.
func (q *Queue) recoverStuck(ctx context.Context, maxAge time.Duration) int {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		qlog(ctx).Error("stuck sweeper could not list processing jobs", zap.Error(err))
		return 0
	}
	recovered := 0
	now := time.Now()
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				qlog(ctx).Error("stuck sweeper could not load job", zap.String("job_id", id), zap.Error(err))
			}
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		if job.Status != JobStatusProcessing {
			_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= maxAge {
			continue
		}
		qlog(ctx).Warn("recovering stuck job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Duration("age", now.Sub(started)))
		job.ErrorMsg = "recovered by sweeper"
		if err := q.requeueJob(ctx, job); err == nil {
			recovered++
		}
	}
	return recovered
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		case <-q.workerPool:
		}

		job, err := q.dequeueJob(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				qlog(ctx).Error("dequeue failed", zap.Int("worker", id), zap.Error(err))
				time.Sleep(time.Second)
			}
			q.workerPool <- struct{}{}
			continue
		}

		q.processJob(ctx, job)
		q.workerPool <- struct{}{}
	}
}

func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	jobID, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	job, err := q.GetJob(ctx, jobID)
	if err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s: %w", jobID, err)
	}
	return job, nil
}

func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	var err error
	switch job.Type {
	case JobTypeProcessEvent:
		err = q.runProcessEvent(ctx, job)
	default:
		err = apperror.Validation(fmt.Sprintf("unknown job type: %s", job.Type), nil)
	}

	switch {
	case err == nil:
		job.MarkAsCompleted()
		q.updateJobStats(ctx, JobStatusCompleted, 1)
		q.removeJob(ctx, job.ID)
	case apperror.IsTerminal(err) || apperror.KindOf(err) == apperror.KindValidation:
		qlog(ctx).Warn("job finished without retry", zap.String("job_id", job.ID), zap.Error(err))
		q.updateJobStats(ctx, JobStatusFailed, 1)
		q.removeJob(ctx, job.ID)
	default:
		qlog(ctx).Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
		job.MarkAsFailed(err.Error())
		if job.IsRetryable() {
			qlog(ctx).Info("retrying job", zap.String("job_id", job.ID), zap.Int("attempt", job.RetryCount), zap.Int("max_retries", job.MaxRetries))
			job.MarkAsRetrying()
			q.updateJob(ctx, job)
			id := job.ID
			time.AfterFunc(q.retryDelay*time.Duration(job.RetryCount), func() {
				q.client.LPush(context.Background(), JobQueueKey, id)
			})
		} else {
			qlog(ctx).Error("job permanently failed", zap.String("job_id", job.ID), zap.Int("retries", job.RetryCount))
			q.updateJobStats(ctx, JobStatusFailed, 1)
			q.updateJob(ctx, job)
		}
	}
	q.removeFromProcessing(ctx, job.ID)
}

func (q *Queue) runProcessEvent(ctx context.Context, job *Job) error {
	payload, err := ProcessEventJobPayloadFromMap(job.Payload)
	if err != nil || payload.EventID == 0 {
		return apperror.Validation("invalid process_event payload", err)
	}
	ctx = logger.WithRequestID(ctx, job.ID)
	return q.handler(ctx, dispatch.Task{EventID: payload.EventID, Platform: payload.Platform, Hash: payload.Hash})
}

func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		qlog(ctx).Error("marshal job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, jobData, JobTTL).Err(); err != nil {
		qlog(ctx).Error("update job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (q *Queue) requeueJob(ctx context.Context, job *Job) error {
	job.Status = JobStatusPending
	job.UpdatedAt = time.Now()
	q.updateJob(ctx, job)
	if err := q.client.LRem(ctx, JobProcessingKey, 1, job.ID).Err(); err != nil {
		qlog(ctx).Error("remove job from processing", zap.String("job_id", job.ID), zap.Error(err))
	}
	if err := q.client.RPush(ctx, JobQueueKey, job.ID).Err(); err != nil {
		qlog(ctx).Error("requeue job", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	return nil
}

func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		qlog(ctx).Error("remove job from processing", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (q *Queue) removeJob(ctx context.Context, jobID string) {
	if err := q.client.Del(ctx, JobKeyPrefix+jobID).Err(); err != nil {
		qlog(ctx).Error("remove job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func qlog(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx).Named("jobqueue")
}

func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), delta).Err(); err != nil {
		qlog(ctx).Error("update job stats", zap.Error(err))
	}
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobData, err := q.client.Get(ctx, JobKeyPrefix+jobID).Result()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// GetJobStats returns statistics about job statuses
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	stats, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[JobStatus]int64)
	for status, count := range stats {
		if n, err := json.Number(count).Int64(); err == nil {
			result[JobStatus(status)] = n
		}
	}
	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}
