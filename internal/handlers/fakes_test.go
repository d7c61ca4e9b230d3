package handlers

import (
	"context"
	"time"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/genai"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
)

// ── fakes shared by the handler tests ────────────────────────────────────────

type fakeAI struct {
	reply string
	err   error
	calls int
}

func (f *fakeAI) Complete(_ context.Context, _ string, _ genai.Options) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeTrendRepo struct {
	upserts []*postgres.TrendingTopic
	err     error
}

func (f *fakeTrendRepo) Upsert(_ context.Context, t *postgres.TrendingTopic) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, t)
	return nil
}

func (f *fakeTrendRepo) ListByPlatform(_ context.Context, _ string, _ int) ([]*postgres.TrendingTopic, error) {
	return f.upserts, nil
}

type fakePostRepo struct {
	created   []*domain.ScheduledPost
	stats     *domain.PostStats
	createErr error
	statsErr  error
}

func (f *fakePostRepo) Create(_ context.Context, post *domain.ScheduledPost) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, post)
	return nil
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*domain.ScheduledPost, error) {
	return nil, &domain.PostNotFoundError{PostID: id}
}

func (f *fakePostRepo) ClaimDue(_ context.Context, _ time.Time, _ int) ([]*domain.ScheduledPost, error) {
	return nil, nil
}

func (f *fakePostRepo) MarkPosted(_ context.Context, _ string, _ time.Time) error { return nil }
func (f *fakePostRepo) MarkFailed(_ context.Context, _ string, _ []byte) error    { return nil }
func (f *fakePostRepo) Release(_ context.Context, _ string) error                 { return nil }
func (f *fakePostRepo) Cancel(_ context.Context, _, _ string) error               { return nil }
func (f *fakePostRepo) Reschedule(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

func (f *fakePostRepo) ListUpcoming(_ context.Context, _ string, _ time.Time, _ int) ([]*domain.ScheduledPost, error) {
	return nil, nil
}

func (f *fakePostRepo) Stats(_ context.Context, _ string) (*domain.PostStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

func (f *fakePostRepo) ActiveUserIDs(_ context.Context) ([]string, error) { return nil, nil }

type fakeNotifier struct {
	sent []*domain.Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n *domain.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}
