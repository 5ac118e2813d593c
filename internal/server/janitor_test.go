package server

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/repositories/gormstore"
	"github.com/communitylink/communitylink/internal/db"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
)

func TestSweepTokens(t *testing.T) {
	gdb, err := db.OpenSQLite(db.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(gdb))
	t.Cleanup(func() { _ = db.CloseSQLite(gdb) })
	store := gormstore.New(gdb)

	ctx := context.Background()
	u := &models.User{Username: "rita", Email: "rita@example.org", Password: "x", RoleType: models.RoleVolunteer, IsActive: true}
	require.NoError(t, store.Users().Create(ctx, u))

	tokens := store.Tokens()
	require.NoError(t, tokens.Create(ctx, "live", u.ID, time.Now().Add(time.Hour)))
	require.NoError(t, tokens.Create(ctx, "dead", u.ID, time.Now().Add(-time.Minute)))

	sweepTokens(ctx, tokens, zerolog.Nop())

	_, err = tokens.Get(ctx, "dead")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
	live, err := tokens.Get(ctx, "live")
	require.NoError(t, err)
	assert.False(t, live.Revoked)
}

func TestRunTokenJanitorStopsWithContext(t *testing.T) {
	gdb, err := db.OpenSQLite(db.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(gdb))
	t.Cleanup(func() { _ = db.CloseSQLite(gdb) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runTokenJanitor(ctx, gormstore.New(gdb).Tokens(), time.Millisecond, zerolog.Nop())
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor did not stop")
	}
}
