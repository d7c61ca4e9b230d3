package maintenance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
)

// PeriodicJobs enqueues the recurring maintenance work on a cron schedule:
// a trend refresh every few hours and a nightly analytics sweep over every
// user that owns posts.
type PeriodicJobs struct {
	queue  *Queue
	posts  postgres.PostRepository
	logger *slog.Logger
	cron   *cron.Cron
}

// NewPeriodicJobs creates the cron runner. Schedules are registered with
// Register before Start.
func NewPeriodicJobs(queue *Queue, posts postgres.PostRepository, logger *slog.Logger) *PeriodicJobs {
	return &PeriodicJobs{
		queue:  queue,
		posts:  posts,
		logger: logger,
		cron:   cron.New(),
	}
}

// Register wires the periodic triggers. Both arguments use standard cron
// syntax, e.g. "0 */6 * * *" and "30 3 * * *".
func (p *PeriodicJobs) Register(trendSpec, analyticsSpec string) error {
	if _, err := p.cron.AddFunc(trendSpec, p.enqueueTrendUpdate); err != nil {
		return fmt.Errorf("register trend schedule %q: %w", trendSpec, err)
	}
	if _, err := p.cron.AddFunc(analyticsSpec, p.enqueueAnalyticsSweep); err != nil {
		return fmt.Errorf("register analytics schedule %q: %w", analyticsSpec, err)
	}
	return nil
}

// Start begins firing the registered schedules in the background.
func (p *PeriodicJobs) Start() { p.cron.Start() }

// Stop halts the schedules and returns a context that is done once any
// in-flight trigger has finished.
func (p *PeriodicJobs) Stop() context.Context { return p.cron.Stop() }

func (p *PeriodicJobs) enqueueTrendUpdate() {
	// Nil payload: the handler falls back to its default platform list.
	jobID, err := p.queue.Enqueue(context.Background(), domain.JobTypeTrendUpdate, nil)
	if err != nil {
		p.logger.Error("enqueue periodic trend_update", slog.String("error", err.Error()))
		return
	}
	p.logger.Info("periodic trend_update enqueued", slog.String("job_id", jobID))
}

func (p *PeriodicJobs) enqueueAnalyticsSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	userIDs, err := p.posts.ActiveUserIDs(ctx)
	if err != nil {
		p.logger.Error("analytics sweep user listing", slog.String("error", err.Error()))
		return
	}
	for _, userID := range userIDs {
		payload, _ := json.Marshal(analyticsTrigger{UserID: userID})
		if _, err := p.queue.Enqueue(ctx, domain.JobTypeAnalyticsUpdate, payload); err != nil {
			p.logger.Error("enqueue analytics_update",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	p.logger.Info("analytics sweep enqueued", slog.Int("users", len(userIDs)))
}
