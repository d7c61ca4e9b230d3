package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ─── API Gateway ─────────────────────────────────────────────────────────────

	APIPostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postflow",
		Subsystem: "api",
		Name:      "posts_created_total",
		Help:      "Total posts created through the API gateway.",
	}, []string{"platform", "status"})

	APIJobsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postflow",
		Subsystem: "api",
		Name:      "jobs_submitted_total",
		Help:      "Total maintenance job requests submitted through the API gateway.",
	}, []string{"type"})

	// ─── Dispatcher ──────────────────────────────────────────────────────────────

	DispatcherPostsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postflow",
		Subsystem: "dispatcher",
		Name:      "posts_processed_total",
		Help:      "Total dispatch attempts, labelled by terminal outcome.",
	}, []string{"platform", "outcome"})

	DispatcherPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "postflow",
		Subsystem: "dispatcher",
		Name:      "poll_duration_seconds",
		Help:      "Wall time of one full poll pass.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	})

	DispatcherPublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "postflow",
		Subsystem: "dispatcher",
		Name:      "publish_duration_seconds",
		Help:      "Duration of a single platform publish attempt.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"platform"})

	DispatcherRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postflow",
		Subsystem: "dispatcher",
		Name:      "rate_limited_total",
		Help:      "Total publish attempts rejected by the platform rate limiter.",
	}, []string{"platform"})

	// ─── Maintenance queue ───────────────────────────────────────────────────────

	QueueJobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postflow",
		Subsystem: "queue",
		Name:      "jobs_enqueued_total",
		Help:      "Total jobs accepted by the maintenance queue.",
	}, []string{"type"})

	QueueJobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "postflow",
		Subsystem: "queue",
		Name:      "jobs_processed_total",
		Help:      "Total jobs processed, labelled by type and terminal status.",
	}, []string{"type", "status"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "postflow",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Jobs currently waiting in the maintenance queue.",
	})

	QueueJobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "postflow",
		Subsystem: "queue",
		Name:      "job_duration_seconds",
		Help:      "End-to-end job execution time in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"type"})
)
