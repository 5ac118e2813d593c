package seed

import (
	"context"
	"testing"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories/gormstore"
	"github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/db"
	pkgAuth "github.com/communitylink/communitylink/internal/pkg/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDemoData_Idempotent(t *testing.T) {
	gdb, err := db.OpenSQLite(db.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(gdb))
	t.Cleanup(func() { _ = db.CloseSQLite(gdb) })

	ctx := context.Background()
	store := gormstore.New(gdb)
	disp := services.NewLiveDispatcher(store, nil, nil, nil, nil, zerolog.Nop())
	actions := services.NewActionService(store, disp, zerolog.Nop())

	require.NoError(t, CreateDemoData(ctx, store, actions, zerolog.Nop()))
	require.NoError(t, CreateDemoData(ctx, store, actions, zerolog.Nop()))

	list, err := actions.ListUpcoming(ctx, auth.Actor{}, dto.ListFilter{}, 1, 50)
	require.NoError(t, err)
	assert.Len(t, list.Actions, len(demoActions))

	admin, err := store.Users().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, pkgAuth.CheckPassword(admin.Password, DemoPassword))

	_, err = store.Profiles().GetByUserID(ctx, admin.ID)
	assert.NoError(t, err)
}
