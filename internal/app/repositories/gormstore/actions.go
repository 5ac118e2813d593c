package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"gorm.io/gorm"
)

const summaryColumns = `a.*, u.username AS owner_username,
	(SELECT COUNT(*) FROM applications ap WHERE ap.action_id = a.id AND ap.status = 'ACCEPTED') AS occupied`

type actionRepository struct {
	db *gorm.DB
}

func (r *actionRepository) Create(ctx context.Context, action *models.Action) error {
	action.ScheduledAt = utc(action.ScheduledAt)
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("error creating action: %w", err)
	}
	return nil
}

func (r *actionRepository) GetByID(ctx context.Context, id int64) (*models.Action, error) {
	var a models.Action
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrActionNotFound
		}
		return nil, fmt.Errorf("error retrieving action: %w", err)
	}
	return &a, nil
}

// GetByIDForUpdate is a plain read; the surrounding IMMEDIATE transaction already
// holds the database write lock.
func (r *actionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Action, error) {
	return r.GetByID(ctx, id)
}

func (r *actionRepository) summaries(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("actions a").
		Select(summaryColumns).
		Joins("JOIN users u ON u.id = a.owner_id")
}

func (r *actionRepository) GetSummary(ctx context.Context, id int64) (*models.ActionSummary, error) {
	var items []models.ActionSummary
	if err := r.summaries(ctx).Where("a.id = ?", id).Limit(1).Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("error retrieving action summary: %w", err)
	}
	if len(items) == 0 {
		return nil, apperrors.ErrActionNotFound
	}
	return &items[0], nil
}

func (r *actionRepository) Update(ctx context.Context, action *models.Action) error {
	action.ScheduledAt = utc(action.ScheduledAt)
	action.UpdatedAt = now()
	res := r.db.WithContext(ctx).Model(&models.Action{}).Where("id = ?", action.ID).Updates(map[string]any{
		"title":        action.Title,
		"description":  action.Description,
		"scheduled_at": action.ScheduledAt,
		"location":     action.Location,
		"capacity":     action.Capacity,
		"category":     action.Category,
		"updated_at":   action.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("error updating action: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrActionNotFound
	}
	return nil
}

func (r *actionRepository) UpdateNotes(ctx context.Context, id int64, notes *string) error {
	res := r.db.WithContext(ctx).Model(&models.Action{}).Where("id = ?", id).Updates(map[string]any{
		"organizer_notes": notes,
		"updated_at":      now(),
	})
	if res.Error != nil {
		return fmt.Errorf("error updating organizer notes: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrActionNotFound
	}
	return nil
}

// Delete removes the action and its applications. The explicit delete keeps the
// cascade even on connections opened without foreign key enforcement.
func (r *actionRepository) Delete(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("action_id = ?", id).Delete(&models.Application{}).Error; err != nil {
		return fmt.Errorf("error deleting applications: %w", err)
	}
	res := db.Where("id = ?", id).Delete(&models.Action{})
	if res.Error != nil {
		return fmt.Errorf("error deleting action: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrActionNotFound
	}
	return nil
}

func applyActionFilter(q *gorm.DB, f models.ActionFilter) *gorm.DB {
	if f.Category != "" {
		q = q.Where("a.category = ?", f.Category)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where(`LOWER(a.location) LIKE LOWER(?) ESCAPE '\'`, repositories.ContainsPattern(loc))
	}
	if f.DateFrom != nil {
		q = q.Where("a.scheduled_at >= ?", utc(*f.DateFrom))
	}
	if f.After != nil {
		q = q.Where("a.scheduled_at >= ?", utc(*f.After))
	}
	if f.Before != nil {
		q = q.Where("a.scheduled_at < ?", utc(*f.Before))
	}
	if f.OwnerID > 0 {
		q = q.Where("a.owner_id = ?", f.OwnerID)
	}
	return q
}

func (r *actionRepository) List(ctx context.Context, f models.ActionFilter) ([]models.ActionSummary, int, error) {
	var total int64
	err := applyActionFilter(r.db.WithContext(ctx).Table("actions a"), f).Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error counting actions: %w", err)
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	q := applyActionFilter(r.summaries(ctx), f).
		Order("a.scheduled_at " + dir).
		Order("a.id " + dir)
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	items := make([]models.ActionSummary, 0)
	if err := q.Scan(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("error listing actions: %w", err)
	}
	return items, int(total), nil
}
