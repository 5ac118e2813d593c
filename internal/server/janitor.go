package server

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/communitylink/communitylink/internal/app/repositories"
)

const tokenSweepInterval = time.Hour

// runTokenJanitor deletes dead refresh tokens once at start and then every interval
// until ctx is done.
func runTokenJanitor(ctx context.Context, tokens repositories.TokenStore, interval time.Duration, lgr zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sweepTokens(ctx, tokens, lgr)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweepTokens(ctx context.Context, tokens repositories.TokenStore, lgr zerolog.Logger) {
	deleted, err := tokens.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			lgr.Warn().Err(err).Msg("Refresh token cleanup failed")
		}
		return
	}
	if deleted > 0 {
		lgr.Info().Int64("deletedCount", deleted).Msg("Removed expired and revoked refresh tokens")
	}
}
