package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/genai"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/notify"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/pkg/retry"
)

// contentRefreshPayload is the expected JSON structure in job.Payload.
type contentRefreshPayload struct {
	UserID string `json:"user_id"`
	Count  int    `json:"count,omitempty"`
}

// postIdea mirrors the JSON the completion model is asked to return.
type postIdea struct {
	Platform string   `json:"platform"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

// ContentRefreshHandler generates fresh draft posts for a user and drops
// them into their drafts with a notification.
type ContentRefreshHandler struct {
	ai        genai.Client
	posts     postgres.PostRepository
	notifier  notify.Notifier
	baseDelay time.Duration
}

// NewContentRefreshHandler creates a ContentRefreshHandler.
func NewContentRefreshHandler(ai genai.Client, posts postgres.PostRepository, notifier notify.Notifier) *ContentRefreshHandler {
	return &ContentRefreshHandler{ai: ai, posts: posts, notifier: notifier, baseDelay: time.Second}
}

func (h *ContentRefreshHandler) JobType() domain.JobType { return domain.JobTypeContentRefresh }

func (h *ContentRefreshHandler) Handle(ctx context.Context, job *domain.Job) error {
	ctx, span := otel.Tracer("maintenance").Start(ctx, "handler.content_refresh")
	defer span.End()

	var p contentRefreshPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid payload")
		return fmt.Errorf("invalid content_refresh payload: %w", err)
	}
	if p.UserID == "" {
		err := errors.New("content_refresh payload missing required field 'user_id'")
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing 'user_id' field")
		return err
	}
	if p.Count <= 0 {
		p.Count = 3
	}
	span.SetAttributes(
		attribute.String("user.id", p.UserID),
		attribute.Int("refresh.count", p.Count),
	)

	ideas, err := h.generateIdeas(ctx, p.Count)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "idea generation failed")
		return fmt.Errorf("generate content for %s: %w", p.UserID, err)
	}

	now := time.Now().UTC()
	for _, idea := range ideas {
		post := &domain.ScheduledPost{
			ID:       uuid.New().String(),
			UserID:   p.UserID,
			Platform: idea.Platform,
			Content:  idea.Content,
			Hashtags: idea.Hashtags,
			// Drafts carry a suggested slot; scheduling is the user's call.
			ScheduledTime: now.Add(24 * time.Hour),
			Status:        domain.PostStatusDraft,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := h.posts.Create(ctx, post); err != nil {
			span.RecordError(err)
			return fmt.Errorf("store draft for %s: %w", p.UserID, err)
		}
	}

	data, _ := json.Marshal(map[string]int{"drafts": len(ideas)})
	if err := h.notifier.Send(ctx, &domain.Notification{
		UserID:   p.UserID,
		Type:     domain.NotifyContentRefreshed,
		Title:    "Fresh drafts ready",
		Message:  fmt.Sprintf("%d new draft posts were generated for you.", len(ideas)),
		Priority: domain.PriorityLow,
		Data:     data,
	}); err != nil {
		// Best-effort: the drafts are already stored.
		span.RecordError(err)
	}
	return nil
}

func (h *ContentRefreshHandler) generateIdeas(ctx context.Context, count int) ([]postIdea, error) {
	prompt := fmt.Sprintf(
		`Generate %d short social-media post ideas as a JSON array of objects with`+
			` "platform" (tiktok|youtube|instagram), "content" (string) and`+
			` "hashtags" (string array). Return only JSON.`,
		count,
	)

	var reply string
	err := retry.Do(ctx, retry.Config{MaxAttempts: 3, BaseDelay: h.baseDelay}, func() error {
		var callErr error
		reply, callErr = h.ai.Complete(ctx, prompt, genai.Options{Temperature: 0.9})
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return parseIdeas(reply, count), nil
}

// parseIdeas falls back to a single generic draft when the model reply is
// not parseable JSON.
func parseIdeas(reply string, count int) []postIdea {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start >= 0 && end > start {
		var ideas []postIdea
		if err := json.Unmarshal([]byte(reply[start:end+1]), &ideas); err == nil && len(ideas) > 0 {
			if len(ideas) > count {
				ideas = ideas[:count]
			}
			for i := range ideas {
				if ideas[i].Platform == "" {
					ideas[i].Platform = "instagram"
				}
			}
			return ideas
		}
	}
	return []postIdea{{Platform: "instagram", Content: "Share something your audience asked about this week."}}
}
