// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lock acquisition outcomes.
const (
	LockAcquired    = "acquired"
	LockContended   = "contended"
	LockTimedOut    = "timeout"
	LockUnavailable = "unavailable"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ProjectLockAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_lock_attempts_total",
			Help: "Project lock acquisition attempts by outcome",
		},
		[]string{"outcome"},
	)

	ProjectLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "project_lock_wait_seconds",
			Help:    "Time spent waiting for a project lock",
			Buckets: []float64{0.001, 0.01, 0.05, 0.2, 0.5, 1, 2, 5, 10, 30},
		},
	)

	ApplicationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_application_transitions_total",
			Help: "Persisted application transitions by resulting event",
		},
		[]string{"event"},
	)

	EventPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "project_application_event_publish_failures_total",
			Help: "Workflow events that could not be delivered",
		},
		[]string{"event"},
	)
)
