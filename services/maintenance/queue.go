// Package maintenance hosts the background job queue and its triggers.
//
// Jobs (trend refreshes, content generation, analytics sweeps) are appended
// to an in-memory FIFO queue and drained by a single goroutine, one job at a
// time. The queue is authoritative; Postgres and Redis only mirror job state
// so other services can answer status reads. Delivery is at-most-once: a
// process restart drops whatever was still pending.
package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/handlers"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
	redisstore "github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/redis"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/pkg/telemetry"
)

// Queue is a single-consumer FIFO job queue.
type Queue struct {
	registry *handlers.Registry
	repo     postgres.JobRepository   // optional mirror, may be nil
	store    redisstore.JobStateStore // optional mirror, may be nil
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	pending  []*domain.Job
	seen     map[string]*domain.Job
	draining bool
	wg       sync.WaitGroup
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

func WithJobTimeout(d time.Duration) QueueOption  { return func(q *Queue) { q.timeout = d } }
func WithQueueLogger(l *slog.Logger) QueueOption  { return func(q *Queue) { q.logger = l } }
func WithJobRepository(r postgres.JobRepository) QueueOption {
	return func(q *Queue) { q.repo = r }
}
func WithJobStateStore(s redisstore.JobStateStore) QueueOption {
	return func(q *Queue) { q.store = s }
}

// NewQueue constructs a Queue that dispatches jobs through the registry.
func NewQueue(registry *handlers.Registry, opts ...QueueOption) *Queue {
	q := &Queue{
		registry: registry,
		timeout:  5 * time.Minute,
		logger:   slog.Default(),
		seen:     make(map[string]*domain.Job),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a PENDING job to the tail and returns its ID immediately.
// The drain goroutine is started if it is not already running. Unknown job
// types are accepted here and fail at execution time.
func (q *Queue) Enqueue(ctx context.Context, jobType domain.JobType, payload json.RawMessage) (string, error) {
	return q.EnqueueWithID(ctx, uuid.New().String(), jobType, payload)
}

// EnqueueWithID keeps an ID minted upstream (the gateway assigns one before
// publishing a job request) so status lookups agree across services.
func (q *Queue) EnqueueWithID(ctx context.Context, id string, jobType domain.JobType, payload json.RawMessage) (string, error) {
	job := &domain.Job{
		ID:        id,
		Type:      jobType,
		Status:    domain.JobStatusPending,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	q.mirror(ctx, job, true)
	telemetry.QueueJobsEnqueued.WithLabelValues(string(jobType)).Inc()

	q.mu.Lock()
	q.pending = append(q.pending, job)
	q.seen[job.ID] = job
	telemetry.QueueDepth.Set(float64(len(q.pending)))
	startDrain := !q.draining
	if startDrain {
		q.draining = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	if startDrain {
		go q.drain()
	}

	q.logger.Info("job enqueued",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(jobType)),
	)
	return job.ID, nil
}

// Job returns a snapshot of a job this queue has seen.
func (q *Queue) Job(id string) (*domain.Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.seen[id]
	if !ok {
		return nil, &domain.JobNotFoundError{JobID: id}
	}
	cp := *job
	return &cp, nil
}

// Depth reports how many jobs are waiting.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Wait blocks until the queue is fully drained. Call on shutdown after the
// last Enqueue.
func (q *Queue) Wait() { q.wg.Wait() }

// drain pops and processes jobs head-first until the queue is empty.
// Exactly one drain loop is ever active.
func (q *Queue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			telemetry.QueueDepth.Set(0)
			q.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		telemetry.QueueDepth.Set(float64(len(q.pending)))
		q.mu.Unlock()

		q.process(job)
	}
}

// process takes one job to a terminal state. Handler errors, panics, and
// timeouts fail only this job; the drain loop continues.
func (q *Queue) process(job *domain.Job) {
	ctx, span := otel.Tracer("maintenance").Start(context.Background(), "queue.process_job")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.type", string(job.Type)),
	)

	log := q.logger.With(
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
	)

	q.setStatus(ctx, job, domain.JobStatusRunning, "")

	start := time.Now()
	execErr := q.execute(ctx, job)
	durationSec := time.Since(start).Seconds()
	telemetry.QueueJobDurationSeconds.WithLabelValues(string(job.Type)).Observe(durationSec)

	if execErr != nil {
		log.Error("job failed",
			slog.String("error", execErr.Error()),
			slog.Int64("duration_ms", int64(durationSec*1000)),
		)
		span.RecordError(execErr)
		span.SetStatus(codes.Error, "job failed")
		q.setStatus(ctx, job, domain.JobStatusFailed, execErr.Error())
		telemetry.QueueJobsProcessed.WithLabelValues(string(job.Type), "failed").Inc()
		return
	}

	log.Info("job completed", slog.Int64("duration_ms", int64(durationSec*1000)))
	q.setStatus(ctx, job, domain.JobStatusCompleted, "")
	telemetry.QueueJobsProcessed.WithLabelValues(string(job.Type), "completed").Inc()
}

// execute runs the handler with a bounded timeout and panic recovery.
func (q *Queue) execute(ctx context.Context, job *domain.Job) (err error) {
	h, err := q.registry.Get(job.Type)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	execCtx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	return h.Handle(execCtx, job)
}

// setStatus records a transition on the job and pushes it to the mirrors.
func (q *Queue) setStatus(ctx context.Context, job *domain.Job, status domain.JobStatus, jobErr string) {
	q.mu.Lock()
	job.Status = status
	job.Error = jobErr
	if status.IsTerminal() {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	q.mu.Unlock()

	if q.repo != nil {
		if err := q.repo.UpdateStatus(ctx, job.ID, status, jobErr); err != nil {
			q.logger.Error("job status mirror (postgres)",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if q.store != nil {
		if err := q.store.SetStatus(ctx, job.ID, status); err != nil {
			q.logger.Error("job status mirror (redis)",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := q.store.SetJobMeta(ctx, job); err != nil {
			q.logger.Error("job meta mirror (redis)",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// mirror writes the initial job row/keys. Mirror failures never block the
// queue; the in-memory job is authoritative.
func (q *Queue) mirror(ctx context.Context, job *domain.Job, insert bool) {
	if q.repo != nil && insert {
		if err := q.repo.Insert(ctx, job); err != nil {
			q.logger.Error("job insert mirror (postgres)",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	if q.store != nil {
		if err := q.store.SetStatus(ctx, job.ID, job.Status); err != nil {
			q.logger.Error("job status mirror (redis)",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := q.store.SetJobMeta(ctx, job); err != nil {
			q.logger.Error("job meta mirror (redis)",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
