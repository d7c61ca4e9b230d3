// Package notify emits user-visible notifications as a side effect of
// dispatch outcomes and maintenance jobs. Delivery is best-effort: callers
// log send failures and never propagate them.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
)

// Notifier delivers a notification to a user.
type Notifier interface {
	Send(ctx context.Context, n *domain.Notification) error
}

type storeNotifier struct {
	repo   postgres.NotificationRepository
	logger *slog.Logger
}

// NewStoreNotifier returns a Notifier that persists notifications to Postgres.
func NewStoreNotifier(repo postgres.NotificationRepository, logger *slog.Logger) Notifier {
	return &storeNotifier{repo: repo, logger: logger}
}

func (s *storeNotifier) Send(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Priority == "" {
		n.Priority = domain.PriorityMedium
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.logger.Error("notification insert failed",
			slog.String("user_id", n.UserID),
			slog.String("type", n.Type),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}

// PostPublished builds the medium-priority success notification.
func PostPublished(post *domain.ScheduledPost) *domain.Notification {
	data, _ := json.Marshal(map[string]string{"post_id": post.ID, "platform": post.Platform})
	return &domain.Notification{
		UserID:   post.UserID,
		Type:     domain.NotifyPostPublished,
		Title:    "Post published",
		Message:  "Your scheduled post was published to " + post.Platform + ".",
		Priority: domain.PriorityMedium,
		Data:     data,
	}
}

// PostFailed builds the high-priority failure notification.
func PostFailed(post *domain.ScheduledPost, cause error) *domain.Notification {
	data, _ := json.Marshal(map[string]string{
		"post_id":  post.ID,
		"platform": post.Platform,
		"error":    cause.Error(),
	})
	return &domain.Notification{
		UserID:   post.UserID,
		Type:     domain.NotifyPostFailed,
		Title:    "Post failed",
		Message:  "Publishing to " + post.Platform + " failed: " + cause.Error(),
		Priority: domain.PriorityHigh,
		Data:     data,
	}
}

// PostCancelled builds the low-priority cancellation notification.
func PostCancelled(postID, userID string) *domain.Notification {
	data, _ := json.Marshal(map[string]string{"post_id": postID})
	return &domain.Notification{
		UserID:   userID,
		Type:     domain.NotifyPostCancelled,
		Title:    "Post cancelled",
		Message:  "Your scheduled post was moved back to drafts.",
		Priority: domain.PriorityLow,
		Data:     data,
	}
}

// PostRescheduled confirms the new publish time.
func PostRescheduled(postID, userID string, newTime time.Time) *domain.Notification {
	data, _ := json.Marshal(map[string]string{
		"post_id":        postID,
		"scheduled_time": newTime.UTC().Format(time.RFC3339),
	})
	return &domain.Notification{
		UserID:   userID,
		Type:     domain.NotifyPostRescheduled,
		Title:    "Post rescheduled",
		Message:  "Your post is now scheduled for " + newTime.UTC().Format(time.RFC1123) + ".",
		Priority: domain.PriorityLow,
		Data:     data,
	}
}
