package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TrendingTopic is one refreshed trend entry for a platform.
type TrendingTopic struct {
	Platform    string    `json:"platform"`
	Topic       string    `json:"topic"`
	Score       float64   `json:"score"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// TrendRepository stores the trending-topic rows refreshed by the
// trend_update maintenance job.
type TrendRepository interface {
	Upsert(ctx context.Context, t *TrendingTopic) error
	ListByPlatform(ctx context.Context, platform string, limit int) ([]*TrendingTopic, error)
}

type trendRepository struct {
	pool *pgxpool.Pool
}

// NewTrendRepository wraps a pgxpool with the TrendRepository interface.
func NewTrendRepository(pool *pgxpool.Pool) TrendRepository {
	return &trendRepository{pool: pool}
}

func (r *trendRepository) Upsert(ctx context.Context, t *TrendingTopic) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trending_topics (platform, topic, score, refreshed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform, topic)
		DO UPDATE SET score = EXCLUDED.score, refreshed_at = EXCLUDED.refreshed_at
	`, t.Platform, t.Topic, t.Score, t.RefreshedAt)
	if err != nil {
		return fmt.Errorf("upsert trend %q/%q: %w", t.Platform, t.Topic, err)
	}
	return nil
}

func (r *trendRepository) ListByPlatform(ctx context.Context, platform string, limit int) ([]*TrendingTopic, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT platform, topic, score, refreshed_at
		FROM trending_topics
		WHERE platform = $1
		ORDER BY score DESC
		LIMIT $2
	`, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("list trends for %s: %w", platform, err)
	}
	defer rows.Close()

	var out []*TrendingTopic
	for rows.Next() {
		var t TrendingTopic
		if err := rows.Scan(&t.Platform, &t.Topic, &t.Score, &t.RefreshedAt); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
