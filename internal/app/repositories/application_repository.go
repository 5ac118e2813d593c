package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/dberrors"
	"github.com/communitylink/communitylink/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

var applicationDetailColumns = []string{
	"ap.id", "ap.action_id", "ap.volunteer_id", "ap.status", "ap.applied_at", "ap.comment", "ap.updated_at",
	"a.title", "a.scheduled_at", "a.location", "a.category", "a.owner_id", "u.username",
}

// ApplicationRepository handles application database operations
type ApplicationRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

func applicationScanTargets(ap *models.Application) []any {
	return []any{&ap.ID, &ap.ActionID, &ap.VolunteerID, &ap.Status, &ap.AppliedAt, &ap.Comment, &ap.UpdatedAt}
}

func scanApplicationDetail(row pgx.Row) (*models.ApplicationDetail, error) {
	var d models.ApplicationDetail
	targets := append(applicationScanTargets(&d.Application),
		&d.ActionTitle, &d.ActionScheduledAt, &d.ActionLocation, &d.ActionCategory, &d.ActionOwnerID, &d.VolunteerUsername)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *ApplicationRepository) detailSelect() squirrel.SelectBuilder {
	return r.sb.Select(applicationDetailColumns...).
		From("applications ap").
		Join("actions a ON a.id = ap.action_id").
		Join("users u ON u.id = ap.volunteer_id")
}

// Create inserts a new application. The unique constraint on (action_id, volunteer_id)
// turns a concurrent duplicate into apperrors.ErrAlreadyApplied.
func (r *ApplicationRepository) Create(ctx context.Context, ap *models.Application) error {
	now := time.Now()
	if ap.Status == "" {
		ap.Status = models.StatusPending
	}
	sql, args, err := r.sb.Insert("applications").
		Columns("action_id", "volunteer_id", "status", "applied_at", "updated_at").
		Values(ap.ActionID, ap.VolunteerID, ap.Status, now, now).
		Suffix("ON CONFLICT ON CONSTRAINT " + ApplicationUniqueConstraint + " DO NOTHING RETURNING id, applied_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create application query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&ap.ID, &ap.AppliedAt, &ap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || dberrors.IsDuplicateConstraintError(err, ApplicationUniqueConstraint) {
			return apperrors.ErrAlreadyApplied
		}
		logger.Error().Err(err).Int64("actionID", ap.ActionID).Int64("volunteerID", ap.VolunteerID).Msg("Error creating application")
		return fmt.Errorf("error creating application: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Application, error) {
	sql, args, err := r.sb.Select("ap.id", "ap.action_id", "ap.volunteer_id", "ap.status", "ap.applied_at", "ap.comment", "ap.updated_at").
		From("applications ap").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get application query: %w", err)
	}

	var ap models.Application
	if err := r.db.QueryRow(ctx, sql, args...).Scan(applicationScanTargets(&ap)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error retrieving application: %w", err)
	}
	return &ap, nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"ap.id": id})
}

// GetByActionAndVolunteer retrieves the application of a volunteer for an action
func (r *ApplicationRepository) GetByActionAndVolunteer(ctx context.Context, actionID, volunteerID int64) (*models.Application, error) {
	return r.getOne(ctx, squirrel.Eq{"ap.action_id": actionID, "ap.volunteer_id": volunteerID})
}

// GetDetail retrieves an application joined with its action and volunteer
func (r *ApplicationRepository) GetDetail(ctx context.Context, id int64) (*models.ApplicationDetail, error) {
	sql, args, err := r.detailSelect().Where(squirrel.Eq{"ap.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get application detail query: %w", err)
	}
	d, err := scanApplicationDetail(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error retrieving application detail: %w", err)
	}
	return d, nil
}

func statusStrings(statuses []models.ApplicationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// UpdateStatus moves the application to `to` when its current status is one of from
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id int64, from []models.ApplicationStatus, to models.ApplicationStatus) (bool, error) {
	sql, args, err := r.sb.Update("applications").
		Set("status", to).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "status": statusStrings(from)}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update status query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("applicationID", id).Msg("Error updating application status")
		return false, fmt.Errorf("error updating application status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AcceptIfCapacity accepts a PENDING application only while accepted places stay below capacity.
// The count is re-read by the statement itself, so callers holding the action row lock
// see every previously committed acceptance.
func (r *ApplicationRepository) AcceptIfCapacity(ctx context.Context, id int64) (bool, error) {
	sql, args, err := r.sb.Update("applications").
		Set("status", models.StatusAccepted).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "status": models.StatusPending}).
		Where("(SELECT COUNT(*) FROM applications acc WHERE acc.action_id = applications.action_id AND acc.status = ?) < (SELECT capacity FROM actions WHERE actions.id = applications.action_id)",
			models.StatusAccepted).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build accept query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("applicationID", id).Msg("Error accepting application")
		return false, fmt.Errorf("error accepting application: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CountAccepted returns the occupied places of an action
func (r *ApplicationRepository) CountAccepted(ctx context.Context, actionID int64) (int, error) {
	sql, args, err := r.sb.Select("COUNT(*)").
		From("applications").
		Where(squirrel.Eq{"action_id": actionID, "status": models.StatusAccepted}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count accepted query: %w", err)
	}
	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting accepted applications: %w", err)
	}
	return n, nil
}

func (r *ApplicationRepository) queryDetails(ctx context.Context, query squirrel.SelectBuilder) ([]models.ApplicationDetail, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list applications query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing applications: %w", err)
	}
	defer rows.Close()

	items := make([]models.ApplicationDetail, 0)
	for rows.Next() {
		d, err := scanApplicationDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning application: %w", err)
		}
		items = append(items, *d)
	}
	return items, rows.Err()
}

// ListByAction returns every application of an action in arrival order
func (r *ApplicationRepository) ListByAction(ctx context.Context, actionID int64) ([]models.ApplicationDetail, error) {
	return r.queryDetails(ctx, r.detailSelect().
		Where(squirrel.Eq{"ap.action_id": actionID}).
		OrderBy("ap.applied_at ASC", "ap.id ASC"))
}

// VolunteersByStatus returns the distinct volunteers of an action's applications in the given statuses
func (r *ApplicationRepository) VolunteersByStatus(ctx context.Context, actionID int64, statuses ...models.ApplicationStatus) ([]int64, error) {
	sql, args, err := r.sb.Select("DISTINCT volunteer_id").
		From("applications").
		Where(squirrel.Eq{"action_id": actionID, "status": statusStrings(statuses)}).
		OrderBy("volunteer_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build volunteers query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing volunteers: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func applicationConditions(f models.ApplicationFilter) squirrel.And {
	cond := squirrel.And{squirrel.Eq{"ap.volunteer_id": f.VolunteerID}}
	if len(f.Statuses) > 0 {
		cond = append(cond, squirrel.Eq{"ap.status": statusStrings(f.Statuses)})
	}
	if f.Category != "" {
		cond = append(cond, squirrel.Eq{"a.category": f.Category})
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		cond = append(cond, squirrel.ILike{"a.location": ContainsPattern(loc)})
	}
	if f.DateFrom != nil {
		cond = append(cond, squirrel.GtOrEq{"a.scheduled_at": *f.DateFrom})
	}
	if f.Before != nil {
		cond = append(cond, squirrel.Lt{"a.scheduled_at": *f.Before})
	}
	return cond
}

// List returns one page of a volunteer's applications and the total count
func (r *ApplicationRepository) List(ctx context.Context, f models.ApplicationFilter) ([]models.ApplicationDetail, int, error) {
	cond := applicationConditions(f)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").
		From("applications ap").
		Join("actions a ON a.id = ap.action_id").
		Where(cond).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count applications query: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting applications: %w", err)
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	query := r.detailSelect().Where(cond).OrderBy("a.scheduled_at "+dir, "ap.id "+dir)
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	items, err := r.queryDetails(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateComment sets the volunteer's comment
func (r *ApplicationRepository) UpdateComment(ctx context.Context, id int64, comment *string) error {
	sql, args, err := r.sb.Update("applications").
		Set("comment", comment).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update comment query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrApplicationNotFound
	}
	return nil
}
