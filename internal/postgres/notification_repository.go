package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Parsahagh123-Parsa/Ai-Content-Scheduler--sub000/internal/domain"
)

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Insert(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository wraps a pgxpool with the NotificationRepository interface.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Insert(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, user_id, type, title, message, priority, data, is_read, created_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		n.ID, n.UserID, n.Type, n.Title, n.Message,
		string(n.Priority), []byte(n.Data), n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification for user %s: %w", n.UserID, err)
	}
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, type, title, message, priority, data, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		var priority string
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message,
			&priority, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Priority = domain.NotificationPriority(priority)
		n.Data = data
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	return nil
}
