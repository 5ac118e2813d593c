package gormstore

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"gorm.io/gorm"
)

type notificationRepository struct {
	db *gorm.DB
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) error {
	n.IsRead = false
	n.CreatedAt = now()
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("error creating notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID int64, limit, offset int) ([]models.Notification, int, error) {
	total, err := r.Count(ctx, recipientID, nil)
	if err != nil {
		return nil, 0, err
	}

	q := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	items := make([]models.Notification, 0)
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("error listing notifications: %w", err)
	}
	return items, total, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, recipientID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND id IN ? AND is_read = ?", recipientID, ids, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("error marking notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) MarkOneRead(ctx context.Context, recipientID, id int64) error {
	var n int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Notification{}).Where("recipient_id = ? AND id = ?", recipientID, id).Count(&n).Error; err != nil {
		return fmt.Errorf("error finding notification: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotificationNotFound
	}
	err := db.Model(&models.Notification{}).Where("recipient_id = ? AND id = ?", recipientID, id).Update("is_read", true).Error
	if err != nil {
		return fmt.Errorf("error marking notification read: %w", err)
	}
	return nil
}

func (r *notificationRepository) Count(ctx context.Context, recipientID int64, read *bool) (int, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if read != nil {
		q = q.Where("is_read = ?", *read)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("error counting notifications: %w", err)
	}
	return int(n), nil
}

func (r *notificationRepository) DeleteRead(ctx context.Context, recipientID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("recipient_id = ? AND is_read = ?", recipientID, true).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("error deleting read notifications: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *notificationRepository) DeleteLatestMatching(ctx context.Context, recipientID int64, link, prefix string) (bool, error) {
	// substr instead of LIKE: SQLite's LIKE ignores ASCII case
	res := r.db.WithContext(ctx).Exec(`DELETE FROM notifications WHERE id = (
		SELECT id FROM notifications WHERE recipient_id = ? AND link = ? AND substr(message, 1, ?) = ?
		ORDER BY created_at DESC, id DESC LIMIT 1)`,
		recipientID, link, utf8.RuneCountInString(prefix), prefix)
	if res.Error != nil {
		return false, fmt.Errorf("error retracting notification: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
