package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/notify"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
)

// analyticsPayload is the expected JSON structure in job.Payload.
type analyticsPayload struct {
	UserID string `json:"user_id"`
}

// AnalyticsUpdateHandler recomputes a user's post statistics and delivers
// them as a notification.
type AnalyticsUpdateHandler struct {
	posts    postgres.PostRepository
	notifier notify.Notifier
}

// NewAnalyticsUpdateHandler creates an AnalyticsUpdateHandler.
func NewAnalyticsUpdateHandler(posts postgres.PostRepository, notifier notify.Notifier) *AnalyticsUpdateHandler {
	return &AnalyticsUpdateHandler{posts: posts, notifier: notifier}
}

func (h *AnalyticsUpdateHandler) JobType() domain.JobType { return domain.JobTypeAnalyticsUpdate }

func (h *AnalyticsUpdateHandler) Handle(ctx context.Context, job *domain.Job) error {
	ctx, span := otel.Tracer("maintenance").Start(ctx, "handler.analytics_update")
	defer span.End()

	var p analyticsPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid payload")
		return fmt.Errorf("invalid analytics_update payload: %w", err)
	}
	if p.UserID == "" {
		err := errors.New("analytics_update payload missing required field 'user_id'")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing 'user_id' field")
		return err
	}
	span.SetAttributes(attribute.String("user.id", p.UserID))

	stats, err := h.posts.Stats(ctx, p.UserID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stats query failed")
		return fmt.Errorf("compute stats for %s: %w", p.UserID, err)
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats for %s: %w", p.UserID, err)
	}
	if err := h.notifier.Send(ctx, &domain.Notification{
		UserID:   p.UserID,
		Type:     domain.NotifyAnalyticsReady,
		Title:    "Analytics updated",
		Message:  fmt.Sprintf("Your post analytics were refreshed across %d posts.", stats.Total),
		Priority: domain.PriorityLow,
		Data:     data,
	}); err != nil {
		span.RecordError(err)
	}
	return nil
}
