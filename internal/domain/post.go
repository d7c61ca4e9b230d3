package domain

import (
	"encoding/json"
	"time"
)

// PostStatus represents the states a scheduled post can be in.
type PostStatus string

const (
	PostStatusDraft      PostStatus = "DRAFT"
	PostStatusScheduled  PostStatus = "SCHEDULED"
	PostStatusPublishing PostStatus = "PUBLISHING"
	PostStatusPosted     PostStatus = "POSTED"
	PostStatusFailed     PostStatus = "FAILED"
)

// IsTerminal returns true if no further automatic transitions are possible.
// FAILED posts stay failed until a user explicitly reschedules them.
func (s PostStatus) IsTerminal() bool {
	return s == PostStatusPosted || s == PostStatusFailed
}

// ScheduledPost is the core domain entity: a piece of content queued for
// publication to a destination platform at a given time.
type ScheduledPost struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Platform      string          `json:"platform"`
	Content       string          `json:"content"`
	Hashtags      []string        `json:"hashtags,omitempty"`
	Media         []string        `json:"media,omitempty"`
	ScheduledTime time.Time       `json:"scheduled_time"`
	Status        PostStatus      `json:"status"`
	ViralScore    *float64        `json:"viral_score,omitempty"`
	PostedAt      *time.Time      `json:"posted_at,omitempty"`
	Engagement    json.RawMessage `json:"engagement,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Due reports whether the post is eligible for dispatch at the given instant.
func (p *ScheduledPost) Due(now time.Time) bool {
	return p.Status == PostStatusScheduled && !p.ScheduledTime.After(now)
}

// PostStats aggregates a user's posts for the stats endpoint.
type PostStats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	ByPlatform     map[string]int `json:"by_platform"`
	MeanViralScore *float64       `json:"mean_viral_score,omitempty"`
}
