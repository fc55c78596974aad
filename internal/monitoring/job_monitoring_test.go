package monitoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobManager() (*JobStatusManager, *clock.Mock, *BackgroundJobMetrics) {
	metrics := NewBackgroundJobMetrics()
	metrics.MustRegister(prometheus.NewRegistry())
	clk := clock.NewMock()
	clk.Add(time.Hour)
	return NewJobStatusManagerWithClock(setupTestLogger(), metrics, clk), clk, metrics
}

func TestJobStatusManager_RegisterJob(t *testing.T) {
	jsm, clk, _ := newTestJobManager()

	jsm.RegisterJob("ramp_runner")
	first, exists := jsm.GetJobStatus("ramp_runner")
	require.True(t, exists)
	assert.Equal(t, JobStatusPending, first.Status)
	assert.Equal(t, clk.Now(), first.CreatedAt)

	clk.Add(time.Minute)
	jsm.RegisterJob("ramp_runner")
	second, _ := jsm.GetJobStatus("ramp_runner")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestJobStatusManager_CompleteJob(t *testing.T) {
	jsm, clk, metrics := newTestJobManager()
	jsm.RegisterJob("ramp_runner")

	jsm.StartJob("ramp_runner")
	clk.Add(2 * time.Second)
	jsm.CompleteJob("ramp_runner", nil, map[string]interface{}{"sessions": 3})

	status, _ := jsm.GetJobStatus("ramp_runner")
	assert.Equal(t, JobStatusSuccess, status.Status)
	assert.Equal(t, int64(1), status.SuccessCount)
	assert.Equal(t, 2*time.Second, status.LastDuration)
	assert.Equal(t, 2*time.Second, status.MinExecutionTime)
	assert.Equal(t, 3, status.Metadata["sessions"])
	assert.Equal(t, float64(1), counterValue(t, metrics.jobRuns.WithLabelValues("ramp_runner", "success")))

	jsm.StartJob("ramp_runner")
	clk.Add(4 * time.Second)
	jsm.CompleteJob("ramp_runner", errors.New("redis: connection refused"), nil)

	status, _ = jsm.GetJobStatus("ramp_runner")
	assert.Equal(t, JobStatusFailed, status.Status)
	assert.Equal(t, int64(1), status.ConsecutiveFailures)
	assert.Equal(t, 3*time.Second, status.AverageExecution)
	assert.Equal(t, 4*time.Second, status.MaxExecutionTime)
	assert.Equal(t, "storage", status.Metadata["error_type"])

	jsm.StartJob("ramp_runner")
	jsm.CompleteJob("ramp_runner", nil, nil)
	status, _ = jsm.GetJobStatus("ramp_runner")
	assert.Zero(t, status.ConsecutiveFailures)
	assert.Empty(t, status.LastError)
}

func TestJobStatusManager_StalledAndSummary(t *testing.T) {
	jsm, clk, _ := newTestJobManager()

	jsm.StartJob("stuck")
	jsm.StartJob("ok")
	jsm.CompleteJob("ok", nil, nil)
	jsm.StartJob("broken")
	jsm.CompleteJob("broken", errors.New("boom"), nil)

	clk.Add(6 * time.Minute)

	summary := jsm.GetJobsSummary()
	assert.Equal(t, 3, summary.TotalJobs)
	assert.Equal(t, 1, summary.StalledJobs)
	assert.Equal(t, 1, summary.HealthyJobs)
	assert.Equal(t, 1, summary.UnhealthyJobs)

	jsm.detectStalledJobs()
	status, _ := jsm.GetJobStatus("stuck")
	assert.Equal(t, JobStatusStalled, status.Status)
}

func TestJobStatusManager_CleanupOldStatuses(t *testing.T) {
	jsm, clk, _ := newTestJobManager()
	jsm.RegisterJob("old")
	clk.Add(25 * time.Hour)
	jsm.RegisterJob("fresh")

	jsm.cleanupOldStatuses()

	_, oldExists := jsm.GetJobStatus("old")
	_, freshExists := jsm.GetJobStatus("fresh")
	assert.False(t, oldExists)
	assert.True(t, freshExists)
}

func TestJobStatusManager_ConcurrentAccess(t *testing.T) {
	jsm, _, _ := newTestJobManager()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jsm.StartJob("shared")
			var err error
			if i%2 == 0 {
				err = errors.New("odd failure")
			}
			jsm.CompleteJob("shared", err, nil)
			_ = jsm.GetAllJobStatuses()
		}(i)
	}
	wg.Wait()

	status, _ := jsm.GetJobStatus("shared")
	assert.Equal(t, int64(20), status.SuccessCount+status.FailureCount)
}

func TestInstrumentedJob(t *testing.T) {
	tests := []struct {
		name      string
		fn        func(ctx context.Context) error
		timeout   time.Duration
		want      JobExecutionStatus
		errorType string
	}{
		{"success", func(ctx context.Context) error { return nil }, time.Second, JobStatusSuccess, ""},
		{"failure", func(ctx context.Context) error { return gobreaker.ErrOpenState }, time.Second, JobStatusFailed, "circuit_open"},
		{"panic", func(ctx context.Context) error { panic("kaboom") }, time.Second, JobStatusFailed, "panic"},
		{"timeout", func(ctx context.Context) error { <-ctx.Done(); time.Sleep(50 * time.Millisecond); return nil }, 20 * time.Millisecond, JobStatusFailed, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := NewBackgroundJobMetrics()
			jsm := NewJobStatusManager(setupTestLogger(), metrics)
			job := NewInstrumentedJob(tt.name, tt.fn, jsm, setupTestLogger(), tt.timeout)

			job.Run()

			status, exists := jsm.GetJobStatus(tt.name)
			require.True(t, exists)
			assert.Equal(t, tt.want, status.Status)
			if tt.errorType != "" {
				assert.Equal(t, tt.errorType, status.Metadata["error_type"])
			}
		})
	}
}

func TestClassifyJobError(t *testing.T) {
	assert.Equal(t, "", classifyJobError(nil))
	assert.Equal(t, "timeout", classifyJobError(context.DeadlineExceeded))
	assert.Equal(t, "storage", classifyJobError(errors.New("sql: no rows")))
	assert.Equal(t, "network", classifyJobError(errors.New("network is unreachable")))
	assert.Equal(t, "cancelled", classifyJobError(context.Canceled))
	assert.Equal(t, "circuit_open", classifyJobError(gobreaker.ErrTooManyRequests))
	assert.Equal(t, "unknown", classifyJobError(errors.New("???")))
}
