package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/dberrors"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

func mapUserUniqueError(err error) error {
	if !dberrors.IsUniqueViolation(err) {
		return nil
	}
	switch msg := err.Error(); {
	case strings.Contains(msg, "users.email"):
		return apperrors.ErrEmailAlreadyExists
	case strings.Contains(msg, "users.username"):
		return apperrors.ErrUsernameAlreadyExists
	}
	return apperrors.ErrResourceAlreadyExists
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if mapped := mapUserUniqueError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *userRepository) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "LOWER(email) = ?", models.NormalizeEmail(email))
}

func (r *userRepository) EmailExists(ctx context.Context, email string, excludeUserID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ? AND id <> ?", models.NormalizeEmail(email), excludeUserID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("error checking email: %w", err)
	}
	return n > 0, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("error checking username: %w", err)
	}
	return n > 0, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, userID int64, firstName, lastName, email string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(map[string]any{
		"first_name": firstName,
		"last_name":  lastName,
		"email":      models.NormalizeEmail(email),
		"updated_at": now(),
	})
	if res.Error != nil {
		if mapped := mapUserUniqueError(res.Error); mapped != nil {
			return mapped
		}
		return fmt.Errorf("error updating user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("last_login_at", now()).Error
	if err != nil {
		return fmt.Errorf("error updating last login: %w", err)
	}
	return nil
}

type profileRepository struct {
	db *gorm.DB
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = now()
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("error creating profile: %w", err)
	}
	return nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	var p models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewResourceNotFoundError("profile not found")
		}
		return nil, fmt.Errorf("error retrieving profile: %w", err)
	}
	return &p, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = now()
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", profile.UserID).Updates(map[string]any{
		"address":     profile.Address,
		"preferences": profile.Preferences,
		"updated_at":  profile.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("error updating profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewResourceNotFoundError("profile not found")
	}
	return nil
}

type tokenRepository struct {
	db *gorm.DB
}

func (r *tokenRepository) Create(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	t := &models.RefreshToken{Token: token, UserID: userID, ExpiresAt: utc(expiresAt), CreatedAt: now()}
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrTokenInvalid
		}
		return fmt.Errorf("error creating token: %w", err)
	}
	return nil
}

func (r *tokenRepository) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("error retrieving token: %w", err)
	}
	return &t, nil
}

func (r *tokenRepository) Revoke(ctx context.Context, token string) error {
	res := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ? AND revoked = ?", token, false).
		Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("error revoking token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, token); err != nil {
			return err
		}
		return apperrors.ErrTokenRevoked
	}
	return nil
}

func (r *tokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("error revoking user tokens: %w", err)
	}
	return nil
}

func (r *tokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := now()
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR (revoked = ? AND created_at < ?)", cutoff, true, cutoff.Add(-repositories.RevokedTokenRetention)).
		Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("error cleaning up tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
