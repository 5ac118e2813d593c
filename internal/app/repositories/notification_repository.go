package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/logger"
)

// NotificationRepository handles notification database operations
type NotificationRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

// Create appends a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	sql, args, err := r.sb.Insert("notifications").
		Columns("recipient_id", "message", "is_read", "created_at", "link").
		Values(n.RecipientID, n.Message, false, time.Now(), n.Link).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create notification query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n.ID, &n.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("recipientID", n.RecipientID).Msg("Error creating notification")
		return fmt.Errorf("error creating notification: %w", err)
	}
	n.IsRead = false
	return nil
}

// ListByRecipient returns one page of a user's notifications, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]models.Notification, int, error) {
	total, err := r.Count(ctx, recipientID, nil)
	if err != nil {
		return nil, 0, err
	}

	query := r.sb.Select("id", "recipient_id", "message", "is_read", "created_at", "link").
		From("notifications").
		Where(squirrel.Eq{"recipient_id": recipientID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit)).Offset(uint64(offset))
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list notifications query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	items := make([]models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.IsRead, &n.CreatedAt, &n.Link); err != nil {
			return nil, 0, fmt.Errorf("error scanning notification: %w", err)
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MarkRead flips the given unread notifications of the recipient to read
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sql, args, err := r.sb.Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"recipient_id": recipientID, "id": ids, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build mark read query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkOneRead marks a single notification of the recipient as read
func (r *NotificationRepository) MarkOneRead(ctx context.Context, recipientID, id int64) error {
	sql, args, err := r.sb.Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"recipient_id": recipientID, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mark read query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

// Count counts a user's notifications, optionally restricted to a read state
func (r *NotificationRepository) Count(ctx context.Context, recipientID int64, read *bool) (int, error) {
	where := squirrel.Eq{"recipient_id": recipientID}
	if read != nil {
		where["is_read"] = *read
	}
	sql, args, err := r.sb.Select("COUNT(*)").From("notifications").Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count notifications query: %w", err)
	}
	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting notifications: %w", err)
	}
	return n, nil
}

// DeleteRead removes every read notification of the recipient
func (r *NotificationRepository) DeleteRead(ctx context.Context, recipientID int64) (int64, error) {
	sql, args, err := r.sb.Delete("notifications").
		Where(squirrel.Eq{"recipient_id": recipientID, "is_read": true}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build delete read query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error deleting read notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteLatestMatching removes the newest notification of recipient with link whose message starts with prefix
func (r *NotificationRepository) DeleteLatestMatching(ctx context.Context, recipientID int64, link, prefix string) (bool, error) {
	sql, args, err := r.sb.Delete("notifications").
		Where(`id = (SELECT id FROM notifications WHERE recipient_id = ? AND link = ? AND message LIKE ? ESCAPE '\'
			ORDER BY created_at DESC, id DESC LIMIT 1)`, recipientID, link, PrefixPattern(prefix)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build retract notification query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error retracting notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
