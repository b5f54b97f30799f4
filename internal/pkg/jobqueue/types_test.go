package jobqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/TrackFox/internal/pkg/dispatch"
)

func TestJob_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		job       *Job
		retryable bool
	}{
		{"failed with retries left", &Job{Status: JobStatusFailed, RetryCount: 1, MaxRetries: 3}, true},
		{"failed without retries left", &Job{Status: JobStatusFailed, RetryCount: 3, MaxRetries: 3}, false},
		{"completed", &Job{Status: JobStatusCompleted, RetryCount: 1, MaxRetries: 3}, false},
		{"pending", &Job{Status: JobStatusPending, MaxRetries: 3}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.job.IsRetryable())
		})
	}
}

func TestJob_StatusTransitions(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 3}
	before := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	require.NotNil(t, job.ProcessedAt)
	assert.False(t, job.UpdatedAt.Before(before))

	job.MarkAsFailed("database is locked")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "database is locked", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)
}

// Payloads pass through JSON in Redis, which turns the id into a float64.
func TestProcessEventPayloadSurvivesRedisRoundTrip(t *testing.T) {
	original := NewProcessEventJobPayload(dispatch.Task{EventID: 4242, Platform: "platform_b", Hash: "abc"})

	raw, err := json.Marshal(Job{Type: JobTypeProcessEvent, Payload: original.ToMap()})
	require.NoError(t, err)

	var job Job
	require.NoError(t, json.Unmarshal(raw, &job))
	_, isFloat := job.Payload["event_id"].(float64)
	assert.True(t, isFloat)

	back, err := ProcessEventJobPayloadFromMap(job.Payload)
	require.NoError(t, err)
	assert.Equal(t, original, *back)
}
