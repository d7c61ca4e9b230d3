//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/postgres"
)

// newPool connects to the test Postgres container and truncates all tables
// on cleanup so tests don't interfere with each other.
func newPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, testPostgresDSN)
	require.NoError(t, err)
	t.Cleanup(func() {
		pool.Exec(ctx, "TRUNCATE posts, jobs, notifications, trending_topics CASCADE") //nolint:errcheck
		pool.Close()
	})
	return pool
}

func makePost(userID, platform string, scheduledTime time.Time, status domain.PostStatus) *domain.ScheduledPost {
	now := time.Now().UTC()
	return &domain.ScheduledPost{
		ID:            uuid.New().String(),
		UserID:        userID,
		Platform:      platform,
		Content:       "integration test content",
		Hashtags:      []string{"#golang", "#testing"},
		ScheduledTime: scheduledTime,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPostgres_Posts_Create_GetByID(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	post := makePost("user-1", "instagram", time.Now().UTC().Add(time.Hour), domain.PostStatusScheduled)
	require.NoError(t, repo.Create(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "instagram", got.Platform)
	assert.Equal(t, []string{"#golang", "#testing"}, got.Hashtags)
	assert.Equal(t, domain.PostStatusScheduled, got.Status)
	assert.Nil(t, got.PostedAt)
}

func TestPostgres_Posts_GetByID_NotFound(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))

	_, err := repo.GetByID(context.Background(), uuid.New().String())
	require.Error(t, err)

	var notFound *domain.PostNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestPostgres_Posts_ClaimDue(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()
	now := time.Now().UTC()

	late := makePost("user-1", "instagram", now.Add(-time.Minute), domain.PostStatusScheduled)
	early := makePost("user-1", "tiktok", now.Add(-time.Hour), domain.PostStatusScheduled)
	future := makePost("user-1", "youtube", now.Add(time.Hour), domain.PostStatusScheduled)
	draft := makePost("user-1", "instagram", now.Add(-time.Hour), domain.PostStatusDraft)
	for _, p := range []*domain.ScheduledPost{late, early, future, draft} {
		require.NoError(t, repo.Create(ctx, p))
	}

	claimed, err := repo.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2, "only due SCHEDULED posts are eligible")
	assert.Equal(t, early.ID, claimed[0].ID, "oldest scheduled_time comes first")
	assert.Equal(t, late.ID, claimed[1].ID)
	for _, p := range claimed {
		assert.Equal(t, domain.PostStatusPublishing, p.Status)
	}

	// A second claim pass sees nothing: the rows are already PUBLISHING.
	again, err := repo.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	untouched, err := repo.GetByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusScheduled, untouched.Status)
}

func TestPostgres_Posts_ClaimDue_BatchBound(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 7; i++ {
		p := makePost("user-1", "instagram", now.Add(-time.Duration(i+1)*time.Minute), domain.PostStatusScheduled)
		require.NoError(t, repo.Create(ctx, p))
	}

	claimed, err := repo.ClaimDue(ctx, now, 3)
	require.NoError(t, err)
	assert.Len(t, claimed, 3)

	rest, err := repo.ClaimDue(ctx, now, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 4, "unclaimed posts remain eligible for the next pass")
}

func TestPostgres_Posts_MarkPosted(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	post := makePost("user-1", "instagram", time.Now().UTC().Add(-time.Minute), domain.PostStatusPublishing)
	require.NoError(t, repo.Create(ctx, post))

	postedAt := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.MarkPosted(ctx, post.ID, postedAt))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusPosted, got.Status)
	require.NotNil(t, got.PostedAt)
	assert.WithinDuration(t, postedAt, *got.PostedAt, time.Second)
}

func TestPostgres_Posts_MarkFailed_StoresDiagnostics(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	post := makePost("user-1", "tiktok", time.Now().UTC().Add(-time.Minute), domain.PostStatusPublishing)
	require.NoError(t, repo.Create(ctx, post))

	diag := []byte(`{"error":"platform returned status 500","failed_at":"2026-08-29T00:00:00Z"}`)
	require.NoError(t, repo.MarkFailed(ctx, post.ID, diag))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusFailed, got.Status)
	assert.JSONEq(t, string(diag), string(got.Engagement))
	assert.Nil(t, got.PostedAt)
}

func TestPostgres_Posts_Release(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	claimed := makePost("user-1", "instagram", time.Now().UTC().Add(-time.Minute), domain.PostStatusPublishing)
	posted := makePost("user-1", "instagram", time.Now().UTC().Add(-time.Minute), domain.PostStatusPosted)
	require.NoError(t, repo.Create(ctx, claimed))
	require.NoError(t, repo.Create(ctx, posted))

	require.NoError(t, repo.Release(ctx, claimed.ID))
	require.NoError(t, repo.Release(ctx, posted.ID))

	got, err := repo.GetByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusScheduled, got.Status)

	// Release is a no-op for posts that are not PUBLISHING.
	got, err = repo.GetByID(ctx, posted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusPosted, got.Status)
}

func TestPostgres_Posts_Cancel_OwnershipGuard(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	post := makePost("owner", "instagram", time.Now().UTC().Add(time.Hour), domain.PostStatusScheduled)
	require.NoError(t, repo.Create(ctx, post))

	err := repo.Cancel(ctx, post.ID, "intruder")
	require.Error(t, err)
	var notOwned *domain.PostNotOwnedError
	require.ErrorAs(t, err, &notOwned)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusScheduled, got.Status, "a rejected cancel never mutates the row")

	require.NoError(t, repo.Cancel(ctx, post.ID, "owner"))
	got, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusDraft, got.Status)
}

func TestPostgres_Posts_Cancel_TerminalPostRejected(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	post := makePost("owner", "instagram", time.Now().UTC().Add(-time.Hour), domain.PostStatusPosted)
	require.NoError(t, repo.Create(ctx, post))

	err := repo.Cancel(ctx, post.ID, "owner")
	require.Error(t, err)
	var badState *domain.InvalidPostStateError
	require.ErrorAs(t, err, &badState)
	assert.Equal(t, domain.PostStatusPosted, badState.Status)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusPosted, got.Status, "a terminal post never goes back to DRAFT")
}

func TestPostgres_Posts_Reschedule_PostedPostRejected(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	post := makePost("owner", "tiktok", time.Now().UTC().Add(-time.Hour), domain.PostStatusPosted)
	require.NoError(t, repo.Create(ctx, post))

	err := repo.Reschedule(ctx, post.ID, "owner", time.Now().UTC().Add(-time.Minute))
	require.Error(t, err)
	var badState *domain.InvalidPostStateError
	require.ErrorAs(t, err, &badState)

	// The post stays POSTED, so a dispatch pass cannot claim it again.
	claimed, err := repo.ClaimDue(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestPostgres_Posts_Reschedule(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()

	post := makePost("owner", "youtube", time.Now().UTC().Add(-time.Hour), domain.PostStatusFailed)
	require.NoError(t, repo.Create(ctx, post))

	newTime := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Millisecond)
	require.NoError(t, repo.Reschedule(ctx, post.ID, "owner", newTime))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PostStatusScheduled, got.Status, "reschedule puts a failed post back in play")
	assert.WithinDuration(t, newTime, got.ScheduledTime, time.Second)

	var notFound *domain.PostNotFoundError
	err = repo.Reschedule(ctx, uuid.New().String(), "owner", newTime)
	require.ErrorAs(t, err, &notFound)
}

func TestPostgres_Posts_ListUpcoming(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()
	now := time.Now().UTC()

	soon := makePost("user-1", "instagram", now.Add(time.Hour), domain.PostStatusScheduled)
	later := makePost("user-1", "tiktok", now.Add(3*time.Hour), domain.PostStatusScheduled)
	past := makePost("user-1", "instagram", now.Add(-time.Hour), domain.PostStatusScheduled)
	otherUser := makePost("user-2", "instagram", now.Add(time.Hour), domain.PostStatusScheduled)
	draft := makePost("user-1", "instagram", now.Add(time.Hour), domain.PostStatusDraft)
	for _, p := range []*domain.ScheduledPost{later, soon, past, otherUser, draft} {
		require.NoError(t, repo.Create(ctx, p))
	}

	got, err := repo.ListUpcoming(ctx, "user-1", now, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, soon.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
}

func TestPostgres_Posts_Stats(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()
	now := time.Now().UTC()

	score := func(v float64) *float64 { return &v }

	// Two scored posts in one status/platform group, one in another: the
	// mean weighs each post, not each group.
	s1 := makePost("user-1", "instagram", now.Add(time.Hour), domain.PostStatusScheduled)
	s1.ViralScore = score(0.2)
	s2 := makePost("user-1", "instagram", now.Add(2*time.Hour), domain.PostStatusScheduled)
	s2.ViralScore = score(0.4)
	p1 := makePost("user-1", "tiktok", now.Add(-time.Hour), domain.PostStatusPosted)
	p1.ViralScore = score(0.9)
	for _, p := range []*domain.ScheduledPost{
		s1, s2, p1,
		makePost("user-1", "tiktok", now.Add(-time.Hour), domain.PostStatusFailed), // unscored
		makePost("user-2", "instagram", now.Add(time.Hour), domain.PostStatusScheduled),
	} {
		require.NoError(t, repo.Create(ctx, p))
	}

	stats, err := repo.Stats(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByStatus["SCHEDULED"])
	assert.Equal(t, 1, stats.ByStatus["POSTED"])
	assert.Equal(t, 1, stats.ByStatus["FAILED"])
	assert.Equal(t, 2, stats.ByPlatform["instagram"])
	assert.Equal(t, 2, stats.ByPlatform["tiktok"])
	require.NotNil(t, stats.MeanViralScore)
	assert.InDelta(t, 0.5, *stats.MeanViralScore, 1e-9)
}

func TestPostgres_Posts_ActiveUserIDs(t *testing.T) {
	repo := postgres.NewPostRepository(newPool(t))
	ctx := context.Background()
	now := time.Now().UTC()

	for _, userID := range []string{"bob", "alice", "bob", "carol"} {
		require.NoError(t, repo.Create(ctx, makePost(userID, "instagram", now, domain.PostStatusDraft)))
	}

	ids, err := repo.ActiveUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
}

func TestPostgres_Jobs_Insert_GetByID(t *testing.T) {
	repo := postgres.NewJobRepository(newPool(t))
	ctx := context.Background()

	job := &domain.Job{
		ID:        uuid.New().String(),
		Type:      domain.JobTypeTrendUpdate,
		Status:    domain.JobStatusPending,
		Payload:   []byte(`{"platforms":["instagram"]}`),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobTypeTrendUpdate, got.Type)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.JSONEq(t, `{"platforms":["instagram"]}`, string(got.Payload))
	assert.Nil(t, got.CompletedAt)

	var notFound *domain.JobNotFoundError
	_, err = repo.GetByID(ctx, uuid.New().String())
	require.ErrorAs(t, err, &notFound)
}

func TestPostgres_Jobs_UpdateStatus_TerminalSetsCompletedAt(t *testing.T) {
	repo := postgres.NewJobRepository(newPool(t))
	ctx := context.Background()

	job := &domain.Job{
		ID:        uuid.New().String(),
		Type:      domain.JobTypeAnalyticsUpdate,
		Status:    domain.JobStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, job))

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.JobStatusRunning, ""))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusRunning, got.Status)
	assert.Nil(t, got.CompletedAt, "RUNNING is not terminal")

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.JobStatusFailed, "completion provider unavailable"))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, "completion provider unavailable", got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestPostgres_Jobs_ListByStatus(t *testing.T) {
	repo := postgres.NewJobRepository(newPool(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		job := &domain.Job{
			ID:        uuid.New().String(),
			Type:      domain.JobTypeContentRefresh,
			Status:    domain.JobStatusPending,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, repo.Insert(ctx, job))
		if i == 0 {
			require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.JobStatusCompleted, ""))
		}
	}

	pending, err := repo.ListByStatus(ctx, domain.JobStatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	completed, err := repo.ListByStatus(ctx, domain.JobStatusCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestPostgres_Notifications_Lifecycle(t *testing.T) {
	repo := postgres.NewNotificationRepository(newPool(t))
	ctx := context.Background()

	n := &domain.Notification{
		UserID:   "user-1",
		Type:     domain.NotifyPostFailed,
		Title:    "Post failed",
		Message:  "Your instagram post could not be published",
		Priority: domain.PriorityHigh,
		Data:     []byte(`{"post_id":"p1"}`),
	}
	require.NoError(t, repo.Insert(ctx, n))
	require.NotEmpty(t, n.ID, "insert assigns an ID")

	list, err := repo.ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotifyPostFailed, list[0].Type)
	assert.Equal(t, domain.PriorityHigh, list[0].Priority)
	assert.False(t, list[0].IsRead)

	require.NoError(t, repo.MarkRead(ctx, n.ID, "user-1"))
	list, err = repo.ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRead)

	other, err := repo.ListByUser(ctx, "user-2", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestPostgres_Trends_UpsertReplacesScore(t *testing.T) {
	repo := postgres.NewTrendRepository(newPool(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, &postgres.TrendingTopic{
		Platform: "instagram", Topic: "#ai", Score: 0.4, RefreshedAt: now,
	}))
	require.NoError(t, repo.Upsert(ctx, &postgres.TrendingTopic{
		Platform: "instagram", Topic: "#golang", Score: 0.9, RefreshedAt: now,
	}))
	// Same platform+topic: the score is replaced, not duplicated.
	require.NoError(t, repo.Upsert(ctx, &postgres.TrendingTopic{
		Platform: "instagram", Topic: "#ai", Score: 0.7, RefreshedAt: now.Add(time.Minute),
	}))

	trends, err := repo.ListByPlatform(ctx, "instagram", 10)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, "#golang", trends[0].Topic, "ordered by score descending")
	assert.Equal(t, "#ai", trends[1].Topic)
	assert.InDelta(t, 0.7, trends[1].Score, 1e-9)
}
