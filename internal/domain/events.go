package domain

import (
	"encoding/json"
	"time"
)

// PostEvent is the dispatch-outcome record published to the posts.events
// topic after every publish attempt.
type PostEvent struct {
	PostID     string     `json:"post_id"`
	UserID     string     `json:"user_id"`
	Platform   string     `json:"platform"`
	Status     PostStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

// JobRequest is the message published to jobs.requests by the gateway and
// consumed by the maintenance service, which enqueues it locally. The
// gateway mints the ID so its 202 response and later status lookups agree
// with the queue.
type JobRequest struct {
	ID      string          `json:"id,omitempty"`
	Type    JobType         `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
