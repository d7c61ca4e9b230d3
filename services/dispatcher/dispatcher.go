// Package dispatcher publishes scheduled posts when their time arrives.
//
// A single leader instance polls Postgres for due posts, claims them
// atomically, and walks the claimed batch sequentially: rate-limit check,
// platform publish, terminal status write, user notification, outcome event.
// One post failing never aborts the rest of the batch.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/kafka"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/notify"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
	redisstore "github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/redis"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/publish"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/pkg/telemetry"
)

const (
	leaderKey = "dispatcher:leader"
	leaderTTL = 30 * time.Second
)

// PollResult summarises one dispatch pass.
type PollResult struct {
	Processed int
	Succeeded int
	Failed    int
}

// Dispatcher claims due posts and pushes them to their destination platforms.
type Dispatcher struct {
	posts      postgres.PostRepository
	publisher  publish.Publisher
	limiter    redisstore.PublishLimiter
	notifier   notify.Notifier
	producer   kafka.Producer
	redis      *redis.Client
	instanceID string
	logger     *slog.Logger

	batchSize      int
	pollInterval   time.Duration
	publishTimeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithBatchSize(n int) Option                 { return func(d *Dispatcher) { d.batchSize = n } }
func WithPollInterval(iv time.Duration) Option   { return func(d *Dispatcher) { d.pollInterval = iv } }
func WithPublishTimeout(t time.Duration) Option  { return func(d *Dispatcher) { d.publishTimeout = t } }
func WithLogger(l *slog.Logger) Option           { return func(d *Dispatcher) { d.logger = l } }

// NewDispatcher constructs a Dispatcher with the given dependencies and options.
func NewDispatcher(
	instanceID string,
	posts postgres.PostRepository,
	publisher publish.Publisher,
	limiter redisstore.PublishLimiter,
	notifier notify.Notifier,
	producer kafka.Producer,
	redisClient *redis.Client,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		instanceID:     instanceID,
		posts:          posts,
		publisher:      publisher,
		limiter:        limiter,
		notifier:       notifier,
		producer:       producer,
		redis:          redisClient,
		logger:         slog.Default(),
		batchSize:      50,
		pollInterval:   time.Minute,
		publishTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run is the main polling loop: tries to become leader, then dispatches due
// posts. Blocks until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	// Run once immediately before waiting for the first tick.
	d.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	if !d.acquireOrRenewLeadership(ctx) {
		return
	}
	res, err := d.Poll(ctx)
	if err != nil {
		d.logger.Error("dispatch pass failed", slog.String("error", err.Error()))
		return
	}
	if res.Processed > 0 {
		d.logger.Info("dispatch pass complete",
			slog.Int("processed", res.Processed),
			slog.Int("succeeded", res.Succeeded),
			slog.Int("failed", res.Failed),
		)
	}
}

// acquireOrRenewLeadership attempts SETNX; returns true if this instance is the leader.
func (d *Dispatcher) acquireOrRenewLeadership(ctx context.Context) bool {
	ok, err := d.redis.SetNX(ctx, leaderKey, d.instanceID, leaderTTL).Result()
	if err != nil {
		d.logger.Error("leader election SetNX", slog.String("error", err.Error()))
		return false
	}
	if ok {
		d.logger.Info("acquired dispatcher leadership", slog.String("instance_id", d.instanceID))
		return true
	}

	// Already set — renew only if we own it (atomic Lua script avoids races).
	renewScript := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		end
		return 0
	`)
	result, err := renewScript.Run(
		ctx, d.redis,
		[]string{leaderKey},
		d.instanceID,
		leaderTTL.Milliseconds(),
	).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		d.logger.Error("leader renewal", slog.String("error", err.Error()))
		return false
	}
	return result == 1
}

// Poll claims the batch of due posts and dispatches them sequentially,
// ordered by scheduled time. Claimed posts always reach a terminal state or
// are released back to SCHEDULED before the pass ends.
func (d *Dispatcher) Poll(ctx context.Context) (PollResult, error) {
	ctx, span := otel.Tracer("dispatcher").Start(ctx, "dispatcher.poll")
	defer span.End()

	start := time.Now()
	defer func() {
		telemetry.DispatcherPollDuration.Observe(time.Since(start).Seconds())
	}()

	claimed, err := d.posts.ClaimDue(ctx, time.Now().UTC(), d.batchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		return PollResult{}, fmt.Errorf("claim due posts: %w", err)
	}
	span.SetAttributes(attribute.Int("posts.claimed", len(claimed)))

	var res PollResult
	for i, post := range claimed {
		if ctx.Err() != nil {
			// Shutting down mid-batch: hand unprocessed claims back.
			d.releaseClaims(claimed[i:])
			break
		}
		res.Processed++
		if err := d.dispatch(ctx, post); err != nil {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
	return res, nil
}

// dispatch takes one claimed post to a terminal state.
func (d *Dispatcher) dispatch(ctx context.Context, post *domain.ScheduledPost) error {
	ctx, span := otel.Tracer("dispatcher").Start(ctx, "dispatcher.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("post.id", post.ID),
		attribute.String("post.platform", post.Platform),
	)

	log := d.logger.With(
		slog.String("post_id", post.ID),
		slog.String("platform", post.Platform),
		slog.String("user_id", post.UserID),
	)

	pubErr := d.attemptPublish(ctx, post)
	now := time.Now().UTC()

	if pubErr != nil {
		span.RecordError(pubErr)
		span.SetStatus(codes.Error, "publish failed")
		log.Error("publish failed", slog.String("error", pubErr.Error()))

		diagnostics, _ := json.Marshal(map[string]string{
			"error":     pubErr.Error(),
			"failed_at": now.Format(time.RFC3339),
		})
		if err := d.posts.MarkFailed(ctx, post.ID, diagnostics); err != nil {
			log.Error("mark failed", slog.String("error", err.Error()))
			d.releaseClaims([]*domain.ScheduledPost{post})
		}
		post.Status = domain.PostStatusFailed
		post.Engagement = diagnostics

		d.sendNotification(ctx, notify.PostFailed(post, pubErr))
		d.publishEvent(ctx, post, pubErr)
		telemetry.DispatcherPostsProcessed.WithLabelValues(post.Platform, "failed").Inc()
		return pubErr
	}

	if err := d.posts.MarkPosted(ctx, post.ID, now); err != nil {
		log.Error("mark posted", slog.String("error", err.Error()))
		d.releaseClaims([]*domain.ScheduledPost{post})
		return fmt.Errorf("mark post %s posted: %w", post.ID, err)
	}
	post.Status = domain.PostStatusPosted
	post.PostedAt = &now

	log.Info("post published")
	d.sendNotification(ctx, notify.PostPublished(post))
	d.publishEvent(ctx, post, nil)
	telemetry.DispatcherPostsProcessed.WithLabelValues(post.Platform, "posted").Inc()
	return nil
}

// attemptPublish consults the per-platform rate limiter and calls the
// platform publisher with a bounded timeout.
func (d *Dispatcher) attemptPublish(ctx context.Context, post *domain.ScheduledPost) error {
	allowed, err := d.limiter.Allow(ctx, post.Platform)
	if err != nil {
		// Limiter infra trouble is not a platform rejection; fail open.
		d.logger.Warn("publish limiter unavailable, proceeding",
			slog.String("platform", post.Platform),
			slog.String("error", err.Error()),
		)
	} else if !allowed {
		telemetry.DispatcherRateLimitedTotal.WithLabelValues(post.Platform).Inc()
		return &domain.RateLimitExceededError{Platform: post.Platform, Limit: d.limiter.Limit()}
	}

	pubCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()

	start := time.Now()
	pubErr := d.publisher.Publish(pubCtx, post)
	telemetry.DispatcherPublishDuration.WithLabelValues(post.Platform).Observe(time.Since(start).Seconds())
	return pubErr
}

// releaseClaims hands posts back to SCHEDULED so a later pass can retry the
// claim. Used on shutdown and when a terminal status write fails.
func (d *Dispatcher) releaseClaims(posts []*domain.ScheduledPost) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, post := range posts {
		if err := d.posts.Release(ctx, post.ID); err != nil {
			d.logger.Error("release claimed post",
				slog.String("post_id", post.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Cancel moves a scheduled post back to DRAFT. Only the owner may cancel.
func (d *Dispatcher) Cancel(ctx context.Context, postID, userID string) error {
	if err := d.posts.Cancel(ctx, postID, userID); err != nil {
		return err
	}
	d.sendNotification(ctx, notify.PostCancelled(postID, userID))
	return nil
}

// Reschedule moves a post to a new publish time and back to SCHEDULED,
// including posts that previously failed. Only the owner may reschedule.
func (d *Dispatcher) Reschedule(ctx context.Context, postID, userID string, newTime time.Time) error {
	if err := d.posts.Reschedule(ctx, postID, userID, newTime); err != nil {
		return err
	}
	d.sendNotification(ctx, notify.PostRescheduled(postID, userID, newTime))
	return nil
}

// Upcoming lists a user's future scheduled posts, soonest first.
func (d *Dispatcher) Upcoming(ctx context.Context, userID string, limit int) ([]*domain.ScheduledPost, error) {
	return d.posts.ListUpcoming(ctx, userID, time.Now().UTC(), limit)
}

// Stats aggregates a user's post counts and mean viral score.
func (d *Dispatcher) Stats(ctx context.Context, userID string) (*domain.PostStats, error) {
	return d.posts.Stats(ctx, userID)
}

func (d *Dispatcher) sendNotification(ctx context.Context, n *domain.Notification) {
	if d.notifier == nil {
		return
	}
	// Best-effort; the notifier logs its own failures.
	_ = d.notifier.Send(ctx, n)
}

func (d *Dispatcher) publishEvent(ctx context.Context, post *domain.ScheduledPost, cause error) {
	if d.producer == nil {
		return
	}
	event := domain.PostEvent{
		PostID:     post.ID,
		UserID:     post.UserID,
		Platform:   post.Platform,
		Status:     post.Status,
		OccurredAt: time.Now().UTC(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	payload, _ := json.Marshal(event)
	if err := d.producer.Publish(ctx, kafka.TopicPostEvents, post.ID, payload); err != nil {
		d.logger.Error("publish outcome event",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
	}
}
