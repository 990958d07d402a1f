package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-share/campus-share/internal/domain/notification"
)

// NotificationRepository implements notification.Repository.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
		(notification_id, recipient_id, type, title, message, related_type, related_id, dedupe_key, is_read, created_at, read_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, n.NotificationID, n.RecipientID, n.Type, n.Title, n.Message, n.RelatedType, n.RelatedID, n.DedupeKey, n.IsRead, n.CreatedAt, n.ReadAt)
	return err
}

func (r *NotificationRepository) GetByID(ctx context.Context, notificationID uuid.UUID) (*notification.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, notification_id, recipient_id, type, title, message, related_type, related_id, dedupe_key, is_read, created_at, read_at
		FROM notifications WHERE notification_id=$1
	`, notificationID)
	return scanNotification(row)
}

func (r *NotificationRepository) FindByDedupeKey(ctx context.Context, dedupeKey string, since time.Time) (*notification.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, notification_id, recipient_id, type, title, message, related_type, related_id, dedupe_key, is_read, created_at, read_at
		FROM notifications WHERE dedupe_key=$1 AND created_at >= $2
		ORDER BY created_at DESC LIMIT 1
	`, dedupeKey, since)
	return scanNotification(row)
}

func (r *NotificationRepository) List(ctx context.Context, filter notification.Filter, limit, offset int) ([]*notification.Notification, error) {
	query := `SELECT id, notification_id, recipient_id, type, title, message, related_type, related_id, dedupe_key, is_read, created_at, read_at FROM notifications`
	args := []interface{}{}
	idx := 1
	if filter.RecipientID != nil {
		query += " WHERE recipient_id=$" + itoa(idx)
		args = append(args, *filter.RecipientID)
		idx++
	}
	if filter.Type != nil {
		query += addWhere(query) + " type=$" + itoa(idx)
		args = append(args, *filter.Type)
		idx++
	}
	if filter.Unread != nil && *filter.Unread {
		query += addWhere(query) + " is_read=false"
	}
	if filter.Since != nil {
		query += addWhere(query) + " created_at >= $" + itoa(idx)
		args = append(args, *filter.Since)
		idx++
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, notificationID uuid.UUID, readAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read=true, read_at=$1 WHERE notification_id=$2 AND is_read=false
	`, readAt, notificationID)
	return err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read=true, read_at=$1 WHERE recipient_id=$2 AND is_read=false
	`, readAt, recipientID)
	return err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	row := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND is_read=false`, recipientID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	if err := row.Scan(&n.ID, &n.NotificationID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.RelatedType, &n.RelatedID, &n.DedupeKey, &n.IsRead, &n.CreatedAt, &n.ReadAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}
