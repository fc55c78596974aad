package monitoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"github.com/pendulum-chain/vortex-sub005/internal/utils/logger"
)

// JobExecutionStatus represents different job execution states
type JobExecutionStatus string

const (
	JobStatusPending JobExecutionStatus = "pending"
	JobStatusRunning JobExecutionStatus = "running"
	JobStatusSuccess JobExecutionStatus = "success"
	JobStatusFailed  JobExecutionStatus = "failed"
	JobStatusStalled JobExecutionStatus = "stalled"
)

// JobStatus contains complete status information for a background job
type JobStatus struct {
	JobName             string                 `json:"job_name"`
	Status              JobExecutionStatus     `json:"status"`
	LastRunTime         time.Time              `json:"last_run_time"`
	LastDuration        time.Duration          `json:"last_duration_ms"`
	NextRunTime         time.Time              `json:"next_run_time,omitempty"`
	SuccessCount        int64                  `json:"success_count"`
	FailureCount        int64                  `json:"failure_count"`
	ConsecutiveFailures int64                  `json:"consecutive_failures"`
	LastError           string                 `json:"last_error,omitempty"`
	AverageExecution    time.Duration          `json:"average_execution_ms"`
	MaxExecutionTime    time.Duration          `json:"max_execution_ms"`
	MinExecutionTime    time.Duration          `json:"min_execution_ms"`
	Metadata            map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// JobsSummary provides an overview of all job statuses
type JobsSummary struct {
	TotalJobs      int       `json:"total_jobs"`
	RunningJobs    int       `json:"running_jobs"`
	HealthyJobs    int       `json:"healthy_jobs"`
	UnhealthyJobs  int       `json:"unhealthy_jobs"`
	StalledJobs    int       `json:"stalled_jobs"`
	LastUpdateTime time.Time `json:"last_update_time"`
}

// JobStatusManager tracks every background job of the process. It is safe for concurrent use.
type JobStatusManager struct {
	mu               sync.RWMutex
	statuses         map[string]*JobStatus
	logger           *logger.Logger
	metrics          *BackgroundJobMetrics
	clock            clock.Clock
	stalledThreshold time.Duration
	cleanupInterval  time.Duration
	retentionPeriod  time.Duration
}

func NewJobStatusManager(logger *logger.Logger, metrics *BackgroundJobMetrics) *JobStatusManager {
	return NewJobStatusManagerWithClock(logger, metrics, clock.New())
}

func NewJobStatusManagerWithClock(logger *logger.Logger, metrics *BackgroundJobMetrics, clk clock.Clock) *JobStatusManager {
	return &JobStatusManager{
		statuses:         make(map[string]*JobStatus),
		logger:           logger,
		metrics:          metrics,
		clock:            clk,
		stalledThreshold: 5 * time.Minute,
		cleanupInterval:  1 * time.Hour,
		retentionPeriod:  24 * time.Hour,
	}
}

// Start runs stalled-job detection and status cleanup until ctx ends.
func (jsm *JobStatusManager) Start(ctx context.Context) {
	go jsm.every(ctx, time.Minute, jsm.detectStalledJobs)
	go jsm.every(ctx, jsm.cleanupInterval, jsm.cleanupOldStatuses)
}

func (jsm *JobStatusManager) every(ctx context.Context, interval time.Duration, fn func()) {
	ticker := jsm.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (jsm *JobStatusManager) newStatus(jobName string, status JobExecutionStatus) *JobStatus {
	now := jsm.clock.Now()
	return &JobStatus{
		JobName:          jobName,
		Status:           status,
		Metadata:         make(map[string]interface{}),
		CreatedAt:        now,
		UpdatedAt:        now,
		MinExecutionTime: time.Duration(math.MaxInt64),
	}
}

// RegisterJob registers a job; registering twice keeps the first record.
func (jsm *JobStatusManager) RegisterJob(jobName string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	if _, exists := jsm.statuses[jobName]; exists {
		return
	}
	jsm.statuses[jobName] = jsm.newStatus(jobName, JobStatusPending)
	jsm.logger.Debug("[JobStatusManager.RegisterJob] job registered", map[string]string{
		"job_name": jobName,
	})
}

func (jsm *JobStatusManager) StartJob(jobName string) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	status, exists := jsm.statuses[jobName]
	if !exists {
		status = jsm.newStatus(jobName, JobStatusRunning)
		jsm.statuses[jobName] = status
	}
	status.Status = JobStatusRunning
	status.LastRunTime = jsm.clock.Now()
	status.UpdatedAt = status.LastRunTime

	jsm.metrics.activeJobs.Inc()
}

// CompleteJob records the outcome of the run started by StartJob.
func (jsm *JobStatusManager) CompleteJob(jobName string, err error, metadata map[string]interface{}) {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	status, exists := jsm.statuses[jobName]
	if !exists {
		jsm.logger.Error("[JobStatusManager.CompleteJob] unregistered job", map[string]string{
			"job_name": jobName,
		})
		return
	}

	now := jsm.clock.Now()
	duration := now.Sub(status.LastRunTime)
	status.LastDuration = duration
	status.UpdatedAt = now

	if duration < status.MinExecutionTime {
		status.MinExecutionTime = duration
	}
	if duration > status.MaxExecutionTime {
		status.MaxExecutionTime = duration
	}
	runs := status.SuccessCount + status.FailureCount
	status.AverageExecution = (status.AverageExecution*time.Duration(runs) + duration) / time.Duration(runs+1)

	for key, value := range metadata {
		status.Metadata[key] = value
	}

	if err != nil {
		status.Status = JobStatusFailed
		status.FailureCount++
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		if _, ok := metadata["error_type"]; !ok {
			status.Metadata["error_type"] = classifyJobError(err)
		}

		jsm.metrics.jobRuns.WithLabelValues(jobName, "error").Inc()
		jsm.metrics.jobDuration.WithLabelValues(jobName, "failed").Observe(duration.Seconds())
		jsm.logger.Error("[JobStatusManager.CompleteJob] job failed", map[string]string{
			"job_name":             jobName,
			"duration":             duration.String(),
			"error":                err.Error(),
			"consecutive_failures": fmt.Sprintf("%d", status.ConsecutiveFailures),
		})
	} else {
		status.Status = JobStatusSuccess
		status.SuccessCount++
		status.ConsecutiveFailures = 0
		status.LastError = ""

		jsm.metrics.jobRuns.WithLabelValues(jobName, "success").Inc()
		jsm.metrics.jobDuration.WithLabelValues(jobName, "success").Observe(duration.Seconds())
	}

	jsm.metrics.activeJobs.Dec()
}

func copyStatus(status *JobStatus) JobStatus {
	out := *status
	out.Metadata = make(map[string]interface{}, len(status.Metadata))
	for k, v := range status.Metadata {
		out.Metadata[k] = v
	}
	return out
}

func (jsm *JobStatusManager) GetJobStatus(jobName string) (*JobStatus, bool) {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	status, exists := jsm.statuses[jobName]
	if !exists {
		return nil, false
	}
	out := copyStatus(status)
	return &out, true
}

// GetAllJobStatuses returns copies; running jobs past the stalled threshold are reported as stalled.
func (jsm *JobStatusManager) GetAllJobStatuses() map[string]JobStatus {
	jsm.mu.RLock()
	defer jsm.mu.RUnlock()

	now := jsm.clock.Now()
	result := make(map[string]JobStatus, len(jsm.statuses))
	for name, status := range jsm.statuses {
		out := copyStatus(status)
		if status.Status == JobStatusRunning && now.Sub(status.LastRunTime) > jsm.stalledThreshold {
			out.Status = JobStatusStalled
		}
		result[name] = out
	}
	return result
}

func (jsm *JobStatusManager) GetJobsSummary() JobsSummary {
	statuses := jsm.GetAllJobStatuses()

	summary := JobsSummary{
		TotalJobs:      len(statuses),
		LastUpdateTime: jsm.clock.Now(),
	}
	for _, status := range statuses {
		switch status.Status {
		case JobStatusRunning:
			summary.RunningJobs++
		case JobStatusSuccess:
			summary.HealthyJobs++
		case JobStatusFailed:
			summary.UnhealthyJobs++
		case JobStatusStalled:
			summary.StalledJobs++
		}
	}
	return summary
}

func (jsm *JobStatusManager) detectStalledJobs() {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	now := jsm.clock.Now()
	stalled := 0
	for jobName, status := range jsm.statuses {
		if status.Status != JobStatusRunning || now.Sub(status.LastRunTime) <= jsm.stalledThreshold {
			continue
		}
		status.Status = JobStatusStalled
		status.UpdatedAt = now
		stalled++

		jsm.logger.Error("[JobStatusManager.detectStalledJobs] job stalled", map[string]string{
			"job_name":      jobName,
			"last_run_time": status.LastRunTime.Format(time.RFC3339),
		})
	}
	jsm.metrics.stalledJobs.Set(float64(stalled))
}

func (jsm *JobStatusManager) cleanupOldStatuses() {
	jsm.mu.Lock()
	defer jsm.mu.Unlock()

	cutoff := jsm.clock.Now().Add(-jsm.retentionPeriod)
	for jobName, status := range jsm.statuses {
		if status.UpdatedAt.Before(cutoff) && status.Status != JobStatusRunning {
			delete(jsm.statuses, jobName)
		}
	}
}

// InstrumentedJob wraps a job function with monitoring and error handling
type InstrumentedJob struct {
	jobName       string
	jobFunc       func(ctx context.Context) error
	statusManager *JobStatusManager
	logger        *logger.Logger
	timeout       time.Duration
}

// NewInstrumentedJob creates a new instrumented job wrapper
func NewInstrumentedJob(
	jobName string,
	jobFunc func(ctx context.Context) error,
	statusManager *JobStatusManager,
	logger *logger.Logger,
	timeout time.Duration,
) *InstrumentedJob {
	statusManager.RegisterJob(jobName)

	return &InstrumentedJob{
		jobName:       jobName,
		jobFunc:       jobFunc,
		statusManager: statusManager,
		logger:        logger,
		timeout:       timeout,
	}
}

// Run satisfies cron.Job.
func (ij *InstrumentedJob) Run() {
	ij.Execute()
}

// Execute runs the job with monitoring, timeout, and panic recovery. The job receives a context
// that is cancelled at the timeout.
func (ij *InstrumentedJob) Execute() {
	ij.statusManager.StartJob(ij.jobName)

	ctx, cancel := context.WithTimeout(context.Background(), ij.timeout)
	defer cancel()

	var err error
	var metadata map[string]interface{}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr := fmt.Errorf("job panicked: %v", r)
				metadata = map[string]interface{}{
					"panic":       fmt.Sprintf("%v", r),
					"stack_trace": string(debug.Stack()),
					"error_type":  "panic",
				}

				ij.logger.Error("Job panicked", map[string]string{
					"job_name": ij.jobName,
					"panic":    fmt.Sprintf("%v", r),
				})

				done <- panicErr
			}
		}()
		done <- ij.jobFunc(ctx)
	}()

	select {
	case err = <-done:
		if err != nil && metadata == nil {
			metadata = map[string]interface{}{
				"error_type": classifyJobError(err),
			}
		}
	case <-ctx.Done():
		err = fmt.Errorf("job timeout after %v", ij.timeout)
		metadata = map[string]interface{}{
			"error_type": "timeout",
			"timeout":    ij.timeout.String(),
		}
		ij.statusManager.metrics.jobTimeouts.WithLabelValues(ij.jobName).Inc()
	}

	ij.statusManager.CompleteJob(ij.jobName, err, metadata)
}

// BackgroundJobMetrics contains all Prometheus metrics for background job monitoring
type BackgroundJobMetrics struct {
	jobDuration *prometheus.HistogramVec
	jobRuns     *prometheus.CounterVec
	activeJobs  prometheus.Gauge
	stalledJobs prometheus.Gauge
	jobTimeouts *prometheus.CounterVec
}

// NewBackgroundJobMetrics creates a new instance of background job metrics
func NewBackgroundJobMetrics() *BackgroundJobMetrics {
	return &BackgroundJobMetrics{
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "background_job_duration_seconds",
				Help:    "Background job execution duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"job_name", "status"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "background_job_runs_total",
				Help: "Total number of background job runs",
			},
			[]string{"job_name", "status"},
		),
		activeJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "background_jobs_active",
				Help: "Number of currently running background jobs",
			},
		),
		stalledJobs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "background_jobs_stalled",
				Help: "Number of stalled background jobs",
			},
		),
		jobTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "background_job_timeouts_total",
				Help: "Total job timeouts",
			},
			[]string{"job_name"},
		),
	}
}

// MustRegister registers all background job metrics with the provided registry
func (m *BackgroundJobMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.jobDuration,
		m.jobRuns,
		m.activeJobs,
		m.stalledJobs,
		m.jobTimeouts,
	)
}

// classifyJobError labels a job error for the job metrics. Typed errors win over message text.
func classifyJobError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "database"), strings.Contains(msg, "sql"), strings.Contains(msg, "redis"):
		return "storage"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return "network"
	case strings.Contains(msg, "panic"):
		return "panic"
	default:
		return "unknown"
	}
}
