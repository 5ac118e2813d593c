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

// RevokedTokenRetention is how long revoked refresh tokens are kept before cleanup
const RevokedTokenRetention = 30 * 24 * time.Hour

const tokensTable = "refresh_tokens"

// TokenRepository stores refresh tokens in PostgreSQL
type TokenRepository struct {
	db Querier
	sb squirrel.StatementBuilderType
}

func (r *TokenRepository) exec(ctx context.Context, q squirrel.Sqlizer, op string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s query: %w", op, err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error during %s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

// Create stores a new, unrevoked token
func (r *TokenRepository) Create(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	q := r.sb.Insert(tokensTable).
		SetMap(map[string]interface{}{
			"token":      token,
			"user_id":    userID,
			"expires_at": expiresAt,
			"revoked":    false,
			"created_at": time.Now(),
		})
	if _, err := r.exec(ctx, q, "create token"); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "refresh_tokens_token_key") {
			return apperrors.ErrTokenInvalid
		}
		logger.Error().Err(err).Int64("userID", userID).Msg("Failed to store refresh token")
		return err
	}
	return nil
}

// Get looks a token up by value whatever its state
func (r *TokenRepository) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	sql, args, err := r.sb.Select("id", "token", "user_id", "expires_at", "revoked", "created_at").
		From(tokensTable).
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get token query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error retrieving token: %w", err)
	}
	t, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.RefreshToken])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving token: %w", err)
	}
	return t, nil
}

// Revoke marks one live token revoked. Of two concurrent calls for the same
// token only one succeeds; the other gets ErrTokenRevoked.
func (r *TokenRepository) Revoke(ctx context.Context, token string) error {
	n, err := r.exec(ctx, r.sb.Update(tokensTable).
		Set("revoked", true).
		Where(squirrel.Eq{"token": token, "revoked": false}), "revoke token")
	if err != nil {
		return err
	}
	if n == 0 {
		return r.revokeMiss(ctx, token)
	}
	return nil
}

// revokeMiss tells an unknown token from one that was already revoked
func (r *TokenRepository) revokeMiss(ctx context.Context, token string) error {
	if _, err := r.Get(ctx, token); err != nil {
		return err
	}
	return apperrors.ErrTokenRevoked
}

// RevokeAllForUser revokes every live token of userID
func (r *TokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.exec(ctx, r.sb.Update(tokensTable).
		Set("revoked", true).
		Where(squirrel.Eq{"user_id": userID, "revoked": false}), "revoke user tokens")
	return err
}

// CleanupExpired deletes expired tokens and revoked ones older than RevokedTokenRetention
func (r *TokenRepository) CleanupExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	return r.exec(ctx, r.sb.Delete(tokensTable).
		Where(squirrel.Or{
			squirrel.Lt{"expires_at": now},
			squirrel.And{
				squirrel.Eq{"revoked": true},
				squirrel.Lt{"created_at": now.Add(-RevokedTokenRetention)},
			},
		}), "token cleanup")
}
