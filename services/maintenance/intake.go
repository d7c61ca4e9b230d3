package maintenance

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/kafka"
)

// Intake feeds the queue from the Kafka trigger topics.
type Intake struct {
	queue  *Queue
	logger *slog.Logger
}

// NewIntake creates an Intake for the given queue.
func NewIntake(queue *Queue, logger *slog.Logger) *Intake {
	return &Intake{queue: queue, logger: logger}
}

// ConsumeJobRequests enqueues every job request published by the gateway.
// Blocks until ctx is cancelled.
func (i *Intake) ConsumeJobRequests(ctx context.Context, consumer kafka.Consumer) error {
	return consumer.Subscribe(ctx, i.handleJobRequest)
}

// handleJobRequest is the Kafka HandlerFunc for jobs.requests. Malformed
// messages are logged and committed; a queue error skips the commit so the
// request is re-delivered.
func (i *Intake) handleJobRequest(ctx context.Context, msg kafka.Message) error {
	var req domain.JobRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		i.logger.Error("malformed job request, discarding",
			slog.String("error", err.Error()),
			slog.String("raw", string(msg.Value)),
		)
		return nil
	}

	jobID := req.ID
	if jobID == "" {
		jobID = uuid.New().String()
	}
	if _, err := i.queue.EnqueueWithID(ctx, jobID, req.Type, req.Payload); err != nil {
		return err
	}
	i.logger.Info("job request accepted",
		slog.String("job_id", jobID),
		slog.String("job_type", string(req.Type)),
	)
	return nil
}

// ConsumePostEvents refreshes a user's analytics after every dispatch
// outcome. Blocks until ctx is cancelled.
func (i *Intake) ConsumePostEvents(ctx context.Context, consumer kafka.Consumer) error {
	return consumer.Subscribe(ctx, i.handlePostEvent)
}

func (i *Intake) handlePostEvent(ctx context.Context, msg kafka.Message) error {
	var event domain.PostEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		i.logger.Error("malformed post event, discarding",
			slog.String("error", err.Error()),
			slog.String("raw", string(msg.Value)),
		)
		return nil
	}
	if event.UserID == "" {
		return nil
	}

	payload, _ := json.Marshal(analyticsTrigger{UserID: event.UserID})
	_, err := i.queue.Enqueue(ctx, domain.JobTypeAnalyticsUpdate, payload)
	return err
}

// analyticsTrigger is the payload shape the analytics_update handler expects.
type analyticsTrigger struct {
	UserID string `json:"user_id"`
}
