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
	"github.com/communitylink/communitylink/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

var actionColumns = []string{
	"a.id", "a.title", "a.description", "a.scheduled_at", "a.location", "a.capacity",
	"a.category", "a.owner_id", "a.organizer_notes", "a.created_at", "a.updated_at",
}

const occupiedColumn = "(SELECT COUNT(*) FROM applications ap WHERE ap.action_id = a.id AND ap.status = 'ACCEPTED') AS occupied"

// ActionRepository handles action database operations
type ActionRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
	// lock is set inside transactions so GetByIDForUpdate takes a row lock
	lock bool
}

func actionScanTargets(a *models.Action) []any {
	return []any{&a.ID, &a.Title, &a.Description, &a.ScheduledAt, &a.Location, &a.Capacity,
		&a.Category, &a.OwnerID, &a.OrganizerNotes, &a.CreatedAt, &a.UpdatedAt}
}

// Create inserts a new action
func (r *ActionRepository) Create(ctx context.Context, action *models.Action) error {
	now := time.Now()
	sql, args, err := r.sb.Insert("actions").
		Columns("title", "description", "scheduled_at", "location", "capacity", "category", "owner_id", "created_at", "updated_at").
		Values(action.Title, action.Description, action.ScheduledAt, action.Location, action.Capacity, action.Category, action.OwnerID, now, now).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create action query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&action.ID, &action.CreatedAt, &action.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("ownerID", action.OwnerID).Msg("Error creating action")
		return fmt.Errorf("error creating action: %w", err)
	}
	return nil
}

func (r *ActionRepository) get(ctx context.Context, id int64, forUpdate bool) (*models.Action, error) {
	query := r.sb.Select(actionColumns...).From("actions a").Where(squirrel.Eq{"a.id": id})
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get action query: %w", err)
	}

	var a models.Action
	if err := r.db.QueryRow(ctx, sql, args...).Scan(actionScanTargets(&a)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrActionNotFound
		}
		return nil, fmt.Errorf("error retrieving action: %w", err)
	}
	return &a, nil
}

// GetByID retrieves an action by ID
func (r *ActionRepository) GetByID(ctx context.Context, id int64) (*models.Action, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves an action and locks its row for the rest of the transaction
func (r *ActionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Action, error) {
	return r.get(ctx, id, r.lock)
}

func (r *ActionRepository) summarySelect() squirrel.SelectBuilder {
	return r.sb.Select(actionColumns...).
		Column("u.username AS owner_username").
		Column(occupiedColumn).
		From("actions a").
		Join("users u ON u.id = a.owner_id")
}

func scanSummary(row pgx.Row) (*models.ActionSummary, error) {
	var s models.ActionSummary
	targets := append(actionScanTargets(&s.Action), &s.OwnerUsername, &s.Occupied)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSummary retrieves an action with its owner name and occupancy
func (r *ActionRepository) GetSummary(ctx context.Context, id int64) (*models.ActionSummary, error) {
	sql, args, err := r.summarySelect().Where(squirrel.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get action summary query: %w", err)
	}

	s, err := scanSummary(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrActionNotFound
		}
		return nil, fmt.Errorf("error retrieving action summary: %w", err)
	}
	return s, nil
}

// Update saves the editable fields of an action
func (r *ActionRepository) Update(ctx context.Context, action *models.Action) error {
	sql, args, err := r.sb.Update("actions").
		Set("title", action.Title).
		Set("description", action.Description).
		Set("scheduled_at", action.ScheduledAt).
		Set("location", action.Location).
		Set("capacity", action.Capacity).
		Set("category", action.Category).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": action.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update action query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&action.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrActionNotFound
		}
		logger.Error().Err(err).Int64("actionID", action.ID).Msg("Error updating action")
		return fmt.Errorf("error updating action: %w", err)
	}
	return nil
}

// UpdateNotes sets the organizer notes
func (r *ActionRepository) UpdateNotes(ctx context.Context, id int64, notes *string) error {
	sql, args, err := r.sb.Update("actions").
		Set("organizer_notes", notes).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update notes query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating organizer notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrActionNotFound
	}
	return nil
}

// Delete removes an action; its applications go with it through the foreign key cascade
func (r *ActionRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("actions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete action query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Int64("actionID", id).Msg("Error deleting action")
		return fmt.Errorf("error deleting action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrActionNotFound
	}
	return nil
}

func actionConditions(f models.ActionFilter) squirrel.And {
	cond := squirrel.And{}
	if f.Category != "" {
		cond = append(cond, squirrel.Eq{"a.category": f.Category})
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		cond = append(cond, squirrel.ILike{"a.location": ContainsPattern(loc)})
	}
	if f.DateFrom != nil {
		cond = append(cond, squirrel.GtOrEq{"a.scheduled_at": *f.DateFrom})
	}
	if f.After != nil {
		cond = append(cond, squirrel.GtOrEq{"a.scheduled_at": *f.After})
	}
	if f.Before != nil {
		cond = append(cond, squirrel.Lt{"a.scheduled_at": *f.Before})
	}
	if f.OwnerID > 0 {
		cond = append(cond, squirrel.Eq{"a.owner_id": f.OwnerID})
	}
	return cond
}

// List returns one page of actions matching the filter and the total count
func (r *ActionRepository) List(ctx context.Context, f models.ActionFilter) ([]models.ActionSummary, int, error) {
	cond := actionConditions(f)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("actions a").Where(cond).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count actions query: %w", err)
	}
	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting actions: %w", err)
	}

	dir := "DESC"
	if f.Ascending {
		dir = "ASC"
	}
	query := r.summarySelect().Where(cond).OrderBy("a.scheduled_at "+dir, "a.id "+dir)
	if f.Limit > 0 {
		query = query.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list actions query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing actions: %w", err)
	}
	defer rows.Close()

	items := make([]models.ActionSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning action: %w", err)
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating actions: %w", err)
	}
	return items, total, nil
}
