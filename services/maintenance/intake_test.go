package maintenance

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/kafka"
)

// fakeConsumer feeds canned messages to the subscriber and records which
// were acknowledged (handler returned nil).
type fakeConsumer struct {
	msgs  []kafka.Message
	acked int
}

func (c *fakeConsumer) Subscribe(ctx context.Context, handler kafka.HandlerFunc) error {
	for _, msg := range c.msgs {
		if err := handler(ctx, msg); err == nil {
			c.acked++
		}
	}
	return nil
}
func (c *fakeConsumer) Close() error { return nil }

func TestIntake_JobRequests(t *testing.T) {
	h := &recordingHandler{typ: domain.JobTypeContentRefresh}
	q := newTestQueue(h)
	intake := NewIntake(q, slog.Default())

	req, err := json.Marshal(domain.JobRequest{
		Type:    domain.JobTypeContentRefresh,
		Payload: json.RawMessage(`{"user_id":"u1"}`),
	})
	require.NoError(t, err)

	consumer := &fakeConsumer{msgs: []kafka.Message{
		{Topic: "jobs.requests", Value: req},
		{Topic: "jobs.requests", Value: []byte("not json")},
	}}
	require.NoError(t, intake.ConsumeJobRequests(context.Background(), consumer))
	q.Wait()

	// Malformed messages are committed without enqueueing.
	assert.Equal(t, 2, consumer.acked)
	require.Len(t, h.order(), 1)

	job, err := q.Job(h.order()[0])
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.JSONEq(t, `{"user_id":"u1"}`, string(job.Payload))
}

func TestIntake_PostEventsTriggerAnalytics(t *testing.T) {
	h := &recordingHandler{typ: domain.JobTypeAnalyticsUpdate}
	q := newTestQueue(h)
	intake := NewIntake(q, slog.Default())

	event, err := json.Marshal(domain.PostEvent{
		PostID:     "p1",
		UserID:     "u1",
		Platform:   "instagram",
		Status:     domain.PostStatusPosted,
		OccurredAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	consumer := &fakeConsumer{msgs: []kafka.Message{{Topic: "posts.events", Value: event}}}
	require.NoError(t, intake.ConsumePostEvents(context.Background(), consumer))
	q.Wait()

	require.Len(t, h.order(), 1)
	job, err := q.Job(h.order()[0])
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeAnalyticsUpdate, job.Type)
	assert.JSONEq(t, `{"user_id":"u1"}`, string(job.Payload))
}
