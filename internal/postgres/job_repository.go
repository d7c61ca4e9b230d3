package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

// JobRepository mirrors queue jobs into Postgres for audit and status reads.
// The in-memory queue stays authoritative; these rows outlive the process.
type JobRepository interface {
	Insert(ctx context.Context, job *domain.Job) error
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, jobErr string) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.Job, error)
}

type jobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository wraps a pgxpool with the JobRepository interface.
func NewJobRepository(pool *pgxpool.Pool) JobRepository {
	return &jobRepository{pool: pool}
}

func (r *jobRepository) Insert(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (id, type, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, job.ID, string(job.Type), string(job.Status), []byte(job.Payload), job.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func (r *jobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, jobErr string) error {
	var completedAt *time.Time
	if status.IsTerminal() {
		t := time.Now().UTC()
		completedAt = &t
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $1, error = $2, completed_at = $3
		WHERE id = $4
	`, string(status), jobErr, completedAt, id)
	if err != nil {
		return fmt.Errorf("update status for job %s: %w", id, err)
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, type, status, payload, error, created_at, completed_at
		FROM jobs
		WHERE id = $1
	`, id)

	var job domain.Job
	var typeStr, statusStr string
	var payload []byte
	var jobErr *string
	err := row.Scan(&job.ID, &typeStr, &statusStr, &payload, &jobErr, &job.CreatedAt, &job.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.JobNotFoundError{JobID: id}
		}
		return nil, fmt.Errorf("scan job %s: %w", id, err)
	}
	job.Type = domain.JobType(typeStr)
	job.Status = domain.JobStatus(statusStr)
	job.Payload = payload
	if jobErr != nil {
		job.Error = *jobErr
	}
	return &job, nil
}

func (r *jobRepository) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, status, payload, error, created_at, completed_at
		FROM jobs
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status %s: %w", status, err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		var job domain.Job
		var typeStr, statusStr string
		var payload []byte
		var jobErr *string
		if err := rows.Scan(&job.ID, &typeStr, &statusStr, &payload, &jobErr, &job.CreatedAt, &job.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Type = domain.JobType(typeStr)
		job.Status = domain.JobStatus(statusStr)
		job.Payload = payload
		if jobErr != nil {
			job.Error = *jobErr
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}
