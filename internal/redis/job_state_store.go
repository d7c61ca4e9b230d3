package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

const jobStateTTL = 24 * time.Hour

func statusKey(jobID string) string { return "job:status:" + jobID }
func metaKey(jobID string) string   { return "job:meta:" + jobID }

// JobStateStore mirrors live job state in Redis so the gateway can answer
// status reads without touching the queue process or Postgres.
type JobStateStore interface {
	SetStatus(ctx context.Context, jobID string, status domain.JobStatus) error
	GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error)
	SetJobMeta(ctx context.Context, job *domain.Job) error
	GetJobMeta(ctx context.Context, jobID string) (*domain.Job, error)
}

type jobStateStore struct {
	client *redis.Client
}

// NewJobStateStore creates a Redis-backed JobStateStore.
func NewJobStateStore(client *redis.Client) JobStateStore {
	return &jobStateStore{client: client}
}

// NewClient creates and returns a new Redis client.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
		PoolSize:     10,
	})
}

func (s *jobStateStore) SetStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	err := s.client.Set(ctx, statusKey(jobID), string(status), jobStateTTL).Err()
	if err != nil {
		return fmt.Errorf("redis set status for %s: %w", jobID, err)
	}
	return nil
}

func (s *jobStateStore) GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	val, err := s.client.Get(ctx, statusKey(jobID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", &domain.JobNotFoundError{JobID: jobID}
		}
		return "", fmt.Errorf("redis get status for %s: %w", jobID, err)
	}
	return domain.JobStatus(val), nil
}

func (s *jobStateStore) SetJobMeta(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job meta: %w", err)
	}
	err = s.client.Set(ctx, metaKey(job.ID), data, jobStateTTL).Err()
	if err != nil {
		return fmt.Errorf("redis set meta for %s: %w", job.ID, err)
	}
	return nil
}

func (s *jobStateStore) GetJobMeta(ctx context.Context, jobID string) (*domain.Job, error) {
	data, err := s.client.Get(ctx, metaKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &domain.JobNotFoundError{JobID: jobID}
		}
		return nil, fmt.Errorf("redis get meta for %s: %w", jobID, err)
	}
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job meta: %w", err)
	}
	return &job, nil
}
