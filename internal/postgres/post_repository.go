package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

// PostRepository abstracts all database access for scheduled posts.
type PostRepository interface {
	Create(ctx context.Context, post *domain.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*domain.ScheduledPost, error)
	// ClaimDue atomically transitions up to limit due posts from SCHEDULED to
	// PUBLISHING and returns them ordered by scheduled_time ascending. Two
	// concurrent dispatcher instances never claim the same post.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledPost, error)
	MarkPosted(ctx context.Context, id string, postedAt time.Time) error
	MarkFailed(ctx context.Context, id string, diagnostics []byte) error
	// Release returns a claimed post to SCHEDULED without recording an attempt.
	Release(ctx context.Context, id string) error
	// Cancel moves a SCHEDULED post back to DRAFT. Any other starting status
	// is an InvalidPostStateError.
	Cancel(ctx context.Context, id, userID string) error
	// Reschedule moves a DRAFT, FAILED or SCHEDULED post to SCHEDULED with a
	// new time. POSTED and PUBLISHING posts cannot be rescheduled.
	Reschedule(ctx context.Context, id, userID string, newTime time.Time) error
	ListUpcoming(ctx context.Context, userID string, after time.Time, limit int) ([]*domain.ScheduledPost, error)
	Stats(ctx context.Context, userID string) (*domain.PostStats, error)
	// ActiveUserIDs lists every user that owns at least one post. The nightly
	// analytics sweep fans out over this set.
	ActiveUserIDs(ctx context.Context) ([]string, error)
}

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository wraps a pgxpool with the PostRepository interface.
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

// NewPool creates a pgxpool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

const postColumns = `id, user_id, platform, content, hashtags, media,
	scheduled_time, status, viral_score, posted_at, engagement, created_at, updated_at`

func (r *postRepository) Create(ctx context.Context, post *domain.ScheduledPost) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts
			(id, user_id, platform, content, hashtags, media,
			 scheduled_time, status, viral_score, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		post.ID, post.UserID, post.Platform, post.Content,
		post.Hashtags, post.Media, post.ScheduledTime, string(post.Status),
		post.ViralScore, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create post %s: %w", post.ID, err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledPost, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE id = $1
	`, id)

	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.PostNotFoundError{PostID: id}
		}
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledPost, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM posts
			WHERE status = $3 AND scheduled_time <= $2
			ORDER BY scheduled_time ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+postColumns+`
	`, string(domain.PostStatusPublishing), now, string(domain.PostStatusScheduled), limit)
	if err != nil {
		return nil, fmt.Errorf("claim due posts: %w", err)
	}
	defer rows.Close()

	var posts []*domain.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim due posts: %w", err)
	}

	// UPDATE ... RETURNING does not preserve the subquery order.
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].ScheduledTime.Before(posts[j].ScheduledTime)
	})
	return posts, nil
}

func (r *postRepository) MarkPosted(ctx context.Context, id string, postedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET status = $1, posted_at = $2, updated_at = $2
		WHERE id = $3
	`, string(domain.PostStatusPosted), postedAt, id)
	if err != nil {
		return fmt.Errorf("mark post %s posted: %w", id, err)
	}
	return nil
}

func (r *postRepository) MarkFailed(ctx context.Context, id string, diagnostics []byte) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET status = $1, engagement = $2, updated_at = $3
		WHERE id = $4
	`, string(domain.PostStatusFailed), diagnostics, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark post %s failed: %w", id, err)
	}
	return nil
}

func (r *postRepository) Release(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, string(domain.PostStatusScheduled), time.Now().UTC(), id, string(domain.PostStatusPublishing))
	if err != nil {
		return fmt.Errorf("release post %s: %w", id, err)
	}
	return nil
}

func (r *postRepository) Cancel(ctx context.Context, id, userID string) error {
	if err := r.checkOwner(ctx, id, userID); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status = $5
	`, string(domain.PostStatusDraft), time.Now().UTC(), id, userID,
		string(domain.PostStatusScheduled))
	if err != nil {
		return fmt.Errorf("cancel post %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.invalidState(ctx, id)
	}
	return nil
}

func (r *postRepository) Reschedule(ctx context.Context, id, userID string, newTime time.Time) error {
	if err := r.checkOwner(ctx, id, userID); err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts
		SET status = $1, scheduled_time = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5 AND status = ANY($6)
	`, string(domain.PostStatusScheduled), newTime, time.Now().UTC(), id, userID,
		[]string{
			string(domain.PostStatusDraft),
			string(domain.PostStatusFailed),
			string(domain.PostStatusScheduled),
		})
	if err != nil {
		return fmt.Errorf("reschedule post %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.invalidState(ctx, id)
	}
	return nil
}

// invalidState reports the post's current status after a status-guarded
// UPDATE matched no rows.
func (r *postRepository) invalidState(ctx context.Context, id string) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM posts WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.PostNotFoundError{PostID: id}
		}
		return fmt.Errorf("lookup post %s: %w", id, err)
	}
	return &domain.InvalidPostStateError{PostID: id, Status: domain.PostStatus(status)}
}

// checkOwner returns PostNotFoundError or PostNotOwnedError. The caller's
// UPDATE repeats the user_id predicate so a mismatch never mutates the row.
func (r *postRepository) checkOwner(ctx context.Context, id, userID string) error {
	var owner string
	err := r.pool.QueryRow(ctx, `SELECT user_id FROM posts WHERE id = $1`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.PostNotFoundError{PostID: id}
		}
		return fmt.Errorf("lookup post %s: %w", id, err)
	}
	if owner != userID {
		return &domain.PostNotOwnedError{PostID: id, UserID: userID}
	}
	return nil
}

func (r *postRepository) ListUpcoming(ctx context.Context, userID string, after time.Time, limit int) ([]*domain.ScheduledPost, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE user_id = $1 AND status = $2 AND scheduled_time > $3
		ORDER BY scheduled_time ASC
		LIMIT $4
	`, userID, string(domain.PostStatusScheduled), after, limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming posts for %s: %w", userID, err)
	}
	defer rows.Close()

	var posts []*domain.ScheduledPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) Stats(ctx context.Context, userID string) (*domain.PostStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, platform, COUNT(*), SUM(viral_score), COUNT(viral_score)
		FROM posts
		WHERE user_id = $1
		GROUP BY status, platform
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("post stats for %s: %w", userID, err)
	}
	defer rows.Close()

	stats := &domain.PostStats{
		ByStatus:   make(map[string]int),
		ByPlatform: make(map[string]int),
	}
	// The mean is over individual scored posts, so carry the per-group sums
	// and scored-row counts rather than averaging group averages.
	var scoreSum float64
	var scored int64
	for rows.Next() {
		var status, platform string
		var count int
		var groupSum *float64
		var groupScored int64
		if err := rows.Scan(&status, &platform, &count, &groupSum, &groupScored); err != nil {
			return nil, fmt.Errorf("scan post stats: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByPlatform[platform] += count
		if groupSum != nil {
			scoreSum += *groupSum
			scored += groupScored
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("post stats for %s: %w", userID, err)
	}
	if scored > 0 {
		mean := scoreSum / float64(scored)
		stats.MeanViralScore = &mean
	}
	return stats, nil
}

func (r *postRepository) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM posts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// scanPost reads a post row from any pgx row type.
func scanPost(row interface {
	Scan(...any) error
}) (*domain.ScheduledPost, error) {
	var post domain.ScheduledPost
	var statusStr string
	var engagement []byte
	err := row.Scan(
		&post.ID, &post.UserID, &post.Platform, &post.Content,
		&post.Hashtags, &post.Media, &post.ScheduledTime, &statusStr,
		&post.ViralScore, &post.PostedAt, &engagement,
		&post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	post.Status = domain.PostStatus(statusStr)
	post.Engagement = engagement
	return &post, nil
}
