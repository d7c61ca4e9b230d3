package handlers

import (
	"context"
	"sync"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

// JobHandler processes a maintenance job of a specific type.
type JobHandler interface {
	Handle(ctx context.Context, job *domain.Job) error
	JobType() domain.JobType
}

// Registry maps job types to their handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.JobType]JobHandler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.JobType]JobHandler)}
}

// Register adds a handler. Safe to call concurrently.
func (r *Registry) Register(h JobHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.JobType()] = h
}

// Get returns the handler for the given job type.
// Returns InvalidJobTypeError if not registered.
func (r *Registry) Get(jobType domain.JobType) (JobHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	if !ok {
		return nil, &domain.InvalidJobTypeError{JobType: jobType}
	}
	return h, nil
}
