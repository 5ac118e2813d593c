package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/db"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.OpenSQLite(db.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	t.Cleanup(func() { _ = db.CloseSQLite(gdb) })
	return New(gdb)
}

func createUser(t *testing.T, s *Store, username string, role models.RoleType) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.org",
		Password: "hash",
		RoleType: role,
		IsActive: true,
	}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func createAction(t *testing.T, s *Store, owner *models.User, capacity int, at time.Time) *models.Action {
	t.Helper()
	a := &models.Action{
		Title:       fmt.Sprintf("Action %d", at.Unix()),
		Description: "Helping out",
		ScheduledAt: at,
		Location:    "Porto Downtown",
		Capacity:    capacity,
		Category:    models.CategoryEnvironment,
		OwnerID:     owner.ID,
	}
	require.NoError(t, s.Actions().Create(context.Background(), a))
	return a
}

func TestUsers_UniqueAndLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "maria", models.RoleVolunteer)

	dup := &models.User{Username: "other", Email: "MARIA@example.org", Password: "x", RoleType: models.RoleVolunteer}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), apperrors.ErrEmailAlreadyExists)

	dup = &models.User{Username: "maria", Email: "new@example.org", Password: "x", RoleType: models.RoleVolunteer}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), apperrors.ErrUsernameAlreadyExists)

	got, err := s.Users().GetByEmail(ctx, "Maria@Example.org")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	exists, err := s.Users().EmailExists(ctx, "maria@example.org", u.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Users().GetByID(ctx, 999)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestApplications_UniquePerVolunteer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "org", models.RoleOrganizer)
	vol := createUser(t, s, "vol", models.RoleVolunteer)
	action := createAction(t, s, owner, 2, time.Now().Add(48*time.Hour))

	require.NoError(t, s.Applications().Create(ctx, &models.Application{ActionID: action.ID, VolunteerID: vol.ID}))
	err := s.Applications().Create(ctx, &models.Application{ActionID: action.ID, VolunteerID: vol.ID})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyApplied)
}

func TestApplications_AcceptIfCapacity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "org", models.RoleOrganizer)
	action := createAction(t, s, owner, 2, time.Now().Add(48*time.Hour))

	var ids []int64
	for i := 0; i < 4; i++ {
		v := createUser(t, s, fmt.Sprintf("vol%d", i), models.RoleVolunteer)
		ap := &models.Application{ActionID: action.ID, VolunteerID: v.ID}
		require.NoError(t, s.Applications().Create(ctx, ap))
		ids = append(ids, ap.ID)
	}

	accepted := 0
	for _, id := range ids {
		ok, err := s.Applications().AcceptIfCapacity(ctx, id)
		require.NoError(t, err)
		if ok {
			accepted++
		}
	}
	assert.Equal(t, 2, accepted)

	n, err := s.Applications().CountAccepted(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	summary, err := s.Actions().GetSummary(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Occupied)
	assert.Equal(t, "org", summary.OwnerUsername)
	assert.True(t, summary.IsFull(summary.Occupied))
}

func TestActions_DeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "org", models.RoleOrganizer)
	vol := createUser(t, s, "vol", models.RoleVolunteer)
	action := createAction(t, s, owner, 1, time.Now().Add(48*time.Hour))
	ap := &models.Application{ActionID: action.ID, VolunteerID: vol.ID}
	require.NoError(t, s.Applications().Create(ctx, ap))

	require.NoError(t, s.Actions().Delete(ctx, action.ID))
	_, err := s.Applications().GetByID(ctx, ap.ID)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
	assert.ErrorIs(t, s.Actions().Delete(ctx, action.ID), apperrors.ErrActionNotFound)
}

func TestActions_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "org", models.RoleOrganizer)
	base := time.Now().Add(24 * time.Hour).Truncate(time.Second)

	early := createAction(t, s, owner, 1, base)
	late := createAction(t, s, owner, 1, base.Add(72*time.Hour))
	other := &models.Action{Title: "Shelter", Description: "Dogs", ScheduledAt: base.Add(24 * time.Hour),
		Location: "Lisboa 50%_off", Capacity: 3, Category: models.CategoryAnimals, OwnerID: owner.ID}
	require.NoError(t, s.Actions().Create(ctx, other))

	items, total, err := s.Actions().List(ctx, models.ActionFilter{Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, []int64{early.ID, other.ID, late.ID}, []int64{items[0].ID, items[1].ID, items[2].ID})

	items, total, err = s.Actions().List(ctx, models.ActionFilter{Location: "porto"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, late.ID, items[0].ID)

	items, _, err = s.Actions().List(ctx, models.ActionFilter{Location: "50%_"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, other.ID, items[0].ID)

	_, total, err = s.Actions().List(ctx, models.ActionFilter{Location: "5_%"})
	require.NoError(t, err)
	assert.Zero(t, total)

	from := base.Add(48 * time.Hour)
	items, total, err = s.Actions().List(ctx, models.ActionFilter{DateFrom: &from})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, late.ID, items[0].ID)

	items, total, err = s.Actions().List(ctx, models.ActionFilter{Category: models.CategoryAnimals, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Shelter", items[0].Title)
}

func TestLocationFilter_FoldsNonASCII(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "org", models.RoleOrganizer)
	vol := createUser(t, s, "vol", models.RoleVolunteer)

	evora := &models.Action{Title: "Olive harvest", Description: "Picking", ScheduledAt: time.Now().Add(48 * time.Hour),
		Location: "ÉVORA Centro", Capacity: 5, Category: models.CategoryEnvironment, OwnerID: owner.ID}
	require.NoError(t, s.Actions().Create(ctx, evora))
	createAction(t, s, owner, 5, time.Now().Add(24*time.Hour))
	require.NoError(t, s.Applications().Create(ctx, &models.Application{ActionID: evora.ID, VolunteerID: vol.ID}))

	for _, loc := range []string{"évora", "ÉVORA", "Évora centro"} {
		items, total, err := s.Actions().List(ctx, models.ActionFilter{Location: loc})
		require.NoError(t, err)
		require.Equal(t, 1, total, loc)
		assert.Equal(t, evora.ID, items[0].ID)

		apps, total, err := s.Applications().List(ctx, models.ApplicationFilter{VolunteerID: vol.ID, Location: loc})
		require.NoError(t, err)
		require.Equal(t, 1, total, loc)
		assert.Equal(t, "ÉVORA Centro", apps[0].ActionLocation)
	}

	_, total, err := s.Applications().List(ctx, models.ApplicationFilter{VolunteerID: vol.ID, Location: "porto"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTokens_RevokeOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "rita", models.RoleVolunteer)
	require.NoError(t, s.Tokens().Create(ctx, "tok", u.ID, time.Now().Add(time.Hour)))

	require.NoError(t, s.Tokens().Revoke(ctx, "tok"))
	assert.ErrorIs(t, s.Tokens().Revoke(ctx, "tok"), apperrors.ErrTokenRevoked)
	assert.ErrorIs(t, s.Tokens().Revoke(ctx, "missing"), apperrors.ErrTokenNotFound)
}

func TestNotifications_RetractAndBulkDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "org", models.RoleOrganizer)
	link := models.ManageLink(7)

	for _, msg := range []string{"ana requested to join 'A'.", "ana requested to join 'A' again.", "bob requested to join 'A'."} {
		require.NoError(t, s.Notifications().Create(ctx, &models.Notification{RecipientID: owner.ID, Message: msg, Link: link}))
	}

	ok, err := s.Notifications().DeleteLatestMatching(ctx, owner.ID, link, "ana requested")
	require.NoError(t, err)
	assert.True(t, ok)

	items, total, err := s.Notifications().ListByRecipient(ctx, owner.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "bob requested to join 'A'.", items[0].Message)
	assert.Equal(t, "ana requested to join 'A'.", items[1].Message)

	n, err := s.Notifications().MarkRead(ctx, owner.ID, []int64{items[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stranger := createUser(t, s, "stranger", models.RoleVolunteer)
	err = s.Notifications().MarkOneRead(ctx, stranger.ID, items[1].ID)
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)

	deleted, err := s.Notifications().DeleteRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	unread := false
	count, err := s.Notifications().Count(ctx, owner.ID, &unread)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_InTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	owner := createUser(t, s, "org", models.RoleOrganizer)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		require.NoError(t, tx.Notifications().Create(ctx, &models.Notification{RecipientID: owner.ID, Message: "hello"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := s.Notifications().Count(ctx, owner.ID, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}
