package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/dberrors"
	"gorm.io/gorm"
)

const detailColumns = `ap.*, a.title AS action_title, a.scheduled_at AS action_scheduled_at,
	a.location AS action_location, a.category AS action_category, a.owner_id AS action_owner_id,
	u.username AS volunteer_username`

type applicationRepository struct {
	db *gorm.DB
}

func (r *applicationRepository) Create(ctx context.Context, ap *models.Application) error {
	if ap.Status == "" {
		ap.Status = models.StatusPending
	}
	ts := now()
	ap.AppliedAt, ap.UpdatedAt = ts, ts
	if err := r.db.WithContext(ctx).Create(ap).Error; err != nil {
		if dberrors.IsUniqueViolationOn(err, repositories.ApplicationUniqueConstraint, "applications.action_id") {
			return apperrors.ErrAlreadyApplied
		}
		return fmt.Errorf("error creating application: %w", err)
	}
	return nil
}

func (r *applicationRepository) first(ctx context.Context, query string, args ...any) (*models.Application, error) {
	var ap models.Application
	if err := r.db.WithContext(ctx).Where(query, args...).First(&ap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}
	return &ap, nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *applicationRepository) GetByActionAndVolunteer(ctx context.Context, actionID, volunteerID int64) (*models.Application, error) {
	return r.first(ctx, "action_id = ? AND volunteer_id = ?", actionID, volunteerID)
}

func (r *applicationRepository) details(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("applications ap").
		Select(detailColumns).
		Joins("JOIN actions a ON a.id = ap.action_id").
		Joins("JOIN users u ON u.id = ap.volunteer_id")
}

func (r *applicationRepository) GetDetail(ctx context.Context, id int64) (*models.ApplicationDetail, error) {
	var items []models.ApplicationDetail
	if err := r.details(ctx).Where("ap.id = ?", id).Limit(1).Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("error retrieving application detail: %w", err)
	}
	if len(items) == 0 {
		return nil, apperrors.ErrApplicationNotFound
	}
	return &items[0], nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id int64, from []models.ApplicationStatus, to models.ApplicationStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": now()})
	if res.Error != nil {
		return false, fmt.Errorf("error updating application status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AcceptIfCapacity checks the count and flips the status in one statement
func (r *applicationRepository) AcceptIfCapacity(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`UPDATE applications SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
		AND (SELECT COUNT(*) FROM applications acc WHERE acc.action_id = applications.action_id AND acc.status = ?)
			< (SELECT capacity FROM actions WHERE actions.id = applications.action_id)`,
		models.StatusAccepted, now(), id, models.StatusPending, models.StatusAccepted)
	if res.Error != nil {
		return false, fmt.Errorf("error accepting application: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *applicationRepository) CountAccepted(ctx context.Context, actionID int64) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("action_id = ? AND status = ?", actionID, models.StatusAccepted).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("error counting accepted applications: %w", err)
	}
	return int(n), nil
}

func (r *applicationRepository) ListByAction(ctx context.Context, actionID int64) ([]models.ApplicationDetail, error) {
	items := make([]models.ApplicationDetail, 0)
	err := r.details(ctx).
		Where("ap.action_id = ?", actionID).
		Order("ap.applied_at ASC").
		Order("ap.id ASC").
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}
	return items, nil
}

func (r *applicationRepository) VolunteersByStatus(ctx context.Context, actionID int64, statuses ...models.ApplicationStatus) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.db.WithContext(ctx).Model(&models.Application{}).
		Distinct("volunteer_id").
		Where("action_id = ? AND status IN ?", actionID, statuses).
		Order("volunteer_id").
		Pluck("volunteer_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("error listing volunteers: %w", err)
	}
	return ids, nil
}

func applyApplicationFilter(q *gorm.DB, f models.ApplicationFilter) *gorm.DB {
	q = q.Where("ap.volunteer_id = ?", f.VolunteerID)
	if len(f.Statuses) > 0 {
		q = q.Where("ap.status IN ?", f.Statuses)
	}
	if f.Category != "" {
		q = q.Where("a.category = ?", f.Category)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where(`LOWER(a.location) LIKE LOWER(?) ESCAPE '\'`, repositories.ContainsPattern(loc))
	}
	if f.DateFrom != nil {
		q = q.Where("a.scheduled_at >= ?", utc(*f.DateFrom))
	}
	if f.Before != nil {
		q = q.Where("a.scheduled_at < ?", utc(*f.Before))
	}
	return q
}

func (r *applicationRepository) List(ctx context.Context, f models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	var total int64
	countQuery := r.db.WithContext(ctx).Table("applications ap").Joins("JOIN actions a ON a.id = ap.action_id")
	if err := applyApplicationFilter(countQuery, f).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting applications: %w", err)
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	q := applyApplicationFilter(r.details(ctx), f).
		Order("a.scheduled_at " + dir).
		Order("ap.id " + dir)
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	items := make([]models.ApplicationDetail, 0)
	if err := q.Scan(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("error listing applications: %w", err)
	}
	return items, int(total), nil
}

func (r *applicationRepository) UpdateComment(ctx context.Context, id int64, comment *string) error {
	res := r.db.WithContext(ctx).Model(&models.Application{}).Where("id = ?", id).
		Updates(map[string]any{"comment": comment, "updated_at": now()})
	if res.Error != nil {
		return fmt.Errorf("error updating comment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}
