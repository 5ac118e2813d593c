package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories/gormstore"
	"github.com/communitylink/communitylink/internal/db"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu          sync.Mutex
	dispatched  []models.Notification
	invalidated []int64
}

func (d *recordingDispatcher) Dispatch(_ context.Context, notifications []models.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = append(d.dispatched, notifications...)
}

func (d *recordingDispatcher) Invalidate(_ context.Context, userIDs ...int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.invalidated = append(d.invalidated, userIDs...)
}

func (d *recordingDispatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dispatched = nil
	d.invalidated = nil
}

func (d *recordingDispatcher) sent() []models.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Notification(nil), d.dispatched...)
}

type testEnv struct {
	store         *gormstore.Store
	dispatcher    *recordingDispatcher
	actions       *actionServiceImpl
	applications  *applicationServiceImpl
	notifications NotificationService
	history       *historyServiceImpl
	profiles      ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb, err := db.OpenSQLite(db.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(gdb))
	t.Cleanup(func() { _ = db.CloseSQLite(gdb) })

	store := gormstore.New(gdb)
	disp := &recordingDispatcher{}
	return &testEnv{
		store:         store,
		dispatcher:    disp,
		actions:       NewActionService(store, disp, zerolog.Nop()).(*actionServiceImpl),
		applications:  NewApplicationService(store, disp, nil, zerolog.Nop()).(*applicationServiceImpl),
		notifications: NewNotificationService(store, nil, disp, zerolog.Nop()),
		history:       NewHistoryService(store, zerolog.Nop()).(*historyServiceImpl),
		profiles:      NewProfileService(store, zerolog.Nop()),
	}
}

func (e *testEnv) user(t *testing.T, username string, role models.RoleType) (*models.User, auth.Actor) {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.org",
		Password: "not-a-real-hash",
		RoleType: role,
		IsActive: true,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u, auth.NewActor(u)
}

// publish creates an upcoming action through the service
func (e *testEnv) publish(t *testing.T, owner auth.Actor, title string, capacity int) *dto.ActionResponse {
	t.Helper()
	resp, err := e.actions.Create(context.Background(), owner, &dto.ActionRequest{
		Title:       title,
		Description: "Bring gloves",
		ScheduledAt: time.Now().Add(72 * time.Hour),
		Location:    "Porto",
		Capacity:    capacity,
		Category:    models.CategoryEnvironment,
	})
	require.NoError(t, err)
	return resp
}

// pastAction inserts an action that already took place, bypassing the future-date rule
func (e *testEnv) pastAction(t *testing.T, owner *models.User, title string) *models.Action {
	t.Helper()
	a := &models.Action{
		Title:       title,
		Description: "Done",
		ScheduledAt: time.Now().Add(-48 * time.Hour),
		Location:    "Lisboa",
		Capacity:    5,
		Category:    models.CategoryAnimals,
		OwnerID:     owner.ID,
	}
	require.NoError(t, e.store.Actions().Create(context.Background(), a))
	return a
}

func (e *testEnv) addApplication(t *testing.T, actionID int64, volunteer *models.User, status models.ApplicationStatus) *models.Application {
	t.Helper()
	ap := &models.Application{ActionID: actionID, VolunteerID: volunteer.ID, Status: status}
	require.NoError(t, e.store.Applications().Create(context.Background(), ap))
	return ap
}

func (e *testEnv) inbox(t *testing.T, userID int64) []models.Notification {
	t.Helper()
	items, _, err := e.store.Notifications().ListByRecipient(context.Background(), userID, 100, 0)
	require.NoError(t, err)
	return items
}

func volunteers(t *testing.T, e *testEnv, n int) ([]*models.User, []auth.Actor) {
	t.Helper()
	users := make([]*models.User, 0, n)
	actors := make([]auth.Actor, 0, n)
	for i := 0; i < n; i++ {
		u, a := e.user(t, fmt.Sprintf("vol%d", i), models.RoleVolunteer)
		users = append(users, u)
		actors = append(actors, a)
	}
	return users, actors
}
