package domain

import (
	"encoding/json"
	"time"
)

// NotificationPriority orders notifications in the user's inbox.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

// Notification types emitted by the dispatcher and maintenance jobs.
const (
	NotifyPostPublished    = "post_published"
	NotifyPostFailed       = "post_failed"
	NotifyPostCancelled    = "post_cancelled"
	NotifyPostRescheduled  = "post_rescheduled"
	NotifyContentRefreshed = "content_refreshed"
	NotifyAnalyticsReady   = "analytics_ready"
)

// Notification is a user-visible record written as a side effect of every
// dispatch outcome. Delivery is best-effort; a failed write never propagates
// to the operation that produced it.
type Notification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Type      string               `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Priority  NotificationPriority `json:"priority"`
	Data      json.RawMessage      `json:"data,omitempty"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
}
