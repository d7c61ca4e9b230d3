package domain

import "fmt"

// PostNotFoundError is returned when a post ID does not exist.
type PostNotFoundError struct {
	PostID string
}

func (e *PostNotFoundError) Error() string {
	return fmt.Sprintf("post not found: %s", e.PostID)
}

// PostNotOwnedError is returned when a caller tries to mutate a post that
// belongs to a different user. The post is left unmodified.
type PostNotOwnedError struct {
	PostID string
	UserID string
}

func (e *PostNotOwnedError) Error() string {
	return fmt.Sprintf("post %s is not owned by user %s", e.PostID, e.UserID)
}

// InvalidJobTypeError is returned when no handler is registered for a job type.
type InvalidJobTypeError struct {
	JobType JobType
}

func (e *InvalidJobTypeError) Error() string {
	return fmt.Sprintf("no handler registered for job type %q", e.JobType)
}

// JobNotFoundError is returned when a job ID does not exist.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// InvalidPostStateError is returned when an operation is not legal from the
// post's current status (cancelling a POSTED post, say). The post is left
// unmodified.
type InvalidPostStateError struct {
	PostID string
	Status PostStatus
}

func (e *InvalidPostStateError) Error() string {
	return fmt.Sprintf("post %s cannot transition from status %s", e.PostID, e.Status)
}

// RateLimitExceededError is returned when a platform exceeds its publish rate.
type RateLimitExceededError struct {
	Platform string
	Limit    int
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limited: platform %q exceeded %d publishes per window", e.Platform, e.Limit)
}
