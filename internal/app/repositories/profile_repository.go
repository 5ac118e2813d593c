package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/jackc/pgx/v5"
)

// ProfileRepository handles profile database operations
type ProfileRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

// Create inserts the profile row of a new user
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now()
	sql, args, err := r.sb.Insert("profiles").
		Columns("user_id", "address", "preferences", "updated_at").
		Values(profile.UserID, profile.Address, profile.Preferences, profile.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create profile query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error creating profile: %w", err)
	}
	return nil
}

// GetByUserID retrieves the profile of a user
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	sql, args, err := r.sb.Select("user_id", "address", "preferences", "updated_at").
		From("profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get profile query: %w", err)
	}

	var p models.Profile
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.UserID, &p.Address, &p.Preferences, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("profile not found")
		}
		return nil, fmt.Errorf("error retrieving profile: %w", err)
	}
	return &p, nil
}

// Update saves address and preferences
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now()
	sql, args, err := r.sb.Update("profiles").
		Set("address", profile.Address).
		Set("preferences", profile.Preferences).
		Set("updated_at", profile.UpdatedAt).
		Where(squirrel.Eq{"user_id": profile.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update profile query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewResourceNotFoundError("profile not found")
	}
	return nil
}
