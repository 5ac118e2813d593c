package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/dberrors"
	"github.com/communitylink/communitylink/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
)

var userColumns = []string{
	"id", "username", "email", "password", "first_name", "last_name",
	"role_type", "is_superuser", "is_active", "created_at", "updated_at", "last_login_at",
}

// UserRepository handles user database operations
type UserRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.RoleType, &u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func mapUserUniqueError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "users_email_key"):
		return apperrors.ErrEmailAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, "users_username_key"):
		return apperrors.ErrUsernameAlreadyExists
	}
	return nil
}

// Create inserts a new user and fills its generated fields
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.Email = models.NormalizeEmail(user.Email)

	sql, args, err := r.sb.Insert("users").
		Columns("username", "email", "password", "first_name", "last_name", "role_type", "is_superuser", "is_active", "created_at", "updated_at").
		Values(user.Username, user.Email, user.Password, user.FirstName, user.LastName, user.RoleType, user.IsSuperuser, user.IsActive, now, now).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if mapped := mapUserUniqueError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Str("username", user.Username).Msg("Error creating user")
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

// GetByEmail retrieves a user by e-mail, ignoring case
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Expr("LOWER(email) = ?", models.NormalizeEmail(email)))
}

// EmailExists checks whether another user already uses the e-mail
func (r *UserRepository) EmailExists(ctx context.Context, email string, excludeUserID int64) (bool, error) {
	query := r.sb.Select("1").From("users").Where(squirrel.Expr("LOWER(email) = ?", models.NormalizeEmail(email)))
	if excludeUserID > 0 {
		query = query.Where(squirrel.NotEq{"id": excludeUserID})
	}
	return r.exists(ctx, query)
}

// UsernameExists checks whether the username is taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, r.sb.Select("1").From("users").Where(squirrel.Eq{"username": username}))
}

func (r *UserRepository) exists(ctx context.Context, inner squirrel.SelectBuilder) (bool, error) {
	sql, args, err := inner.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build exists query: %w", err)
	}
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS("+sql+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking existence: %w", err)
	}
	return exists, nil
}

// UpdateProfile updates a user's name and e-mail
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, firstName, lastName, email string) error {
	sql, args, err := r.sb.Update("users").
		Set("first_name", firstName).
		Set("last_name", lastName).
		Set("email", models.NormalizeEmail(email)).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update user query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if mapped := mapUserUniqueError(err); mapped != nil {
			return mapped
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Error updating user profile")
		return fmt.Errorf("error updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("users").
		Set("last_login_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update last login query: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}
