package services

import (
	"context"
	"sync"
	"testing"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/ledger"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_CapacityReachedRejectsNewApplicant(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, org := e.user(t, "org", models.RoleOrganizer)
	action := e.publish(t, org, "Beach clean-up", 2)
	users, vols := volunteers(t, e, 3)

	for i := 0; i < 2; i++ {
		applied, err := e.applications.Apply(ctx, vols[i], action.ID)
		require.NoError(t, err)
		_, err = e.applications.Decide(ctx, org, action.ID, applied.Application.ID, ledger.EventAccept)
		require.NoError(t, err)
	}

	detail, err := e.actions.Get(ctx, vols[2], action.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsFull)
	assert.Equal(t, 2, detail.Occupied)

	_, err = e.applications.Apply(ctx, vols[2], action.ID)
	assert.ErrorIs(t, err, apperrors.ErrActionFull)

	_, err = e.store.Applications().GetByActionAndVolunteer(ctx, action.ID, users[2].ID)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)
}

func TestAcceptNotifiesVolunteerWithDetailLink(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	volUser, vol := e.user(t, "ana", models.RoleVolunteer)
	action := e.publish(t, org, "Food bank", 1)

	applied, err := e.applications.Apply(ctx, vol, action.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeChanged, applied.Outcome)
	assert.Equal(t, models.StatusPending, applied.Application.Status)

	ownerInbox := e.inbox(t, orgUser.ID)
	require.Len(t, ownerInbox, 1)
	assert.Equal(t, "ana requested to join 'Food bank'.", ownerInbox[0].Message)
	assert.Equal(t, models.ManageLink(action.ID), ownerInbox[0].Link)

	accepted, err := e.applications.Decide(ctx, org, action.ID, applied.Application.ID, ledger.EventAccept)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, accepted.Application.Status)

	detail, err := e.actions.Get(ctx, org, action.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Occupied)
	assert.True(t, detail.IsFull)

	volInbox := e.inbox(t, volUser.ID)
	require.Len(t, volInbox, 1)
	assert.Equal(t, "Your application for 'Food bank' was Accepted.", volInbox[0].Message)
	assert.Equal(t, models.DetailLink(action.ID), volInbox[0].Link)

	sent := e.dispatcher.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, volUser.ID, sent[1].RecipientID)
}

func TestApply_ReapplyWhileActiveIsUnchanged(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	_, vol := e.user(t, "ana", models.RoleVolunteer)
	action := e.publish(t, org, "Tutoring", 3)

	first, err := e.applications.Apply(ctx, vol, action.ID)
	require.NoError(t, err)
	e.dispatcher.reset()

	again, err := e.applications.Apply(ctx, vol, action.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeUnchanged, again.Outcome)
	assert.Equal(t, first.Application.ID, again.Application.ID)
	assert.Equal(t, models.StatusPending, again.Application.Status)
	assert.Contains(t, again.Message, "Pending")

	assert.Len(t, e.inbox(t, orgUser.ID), 1)
	assert.Empty(t, e.dispatcher.sent())
}

func TestApply_AfterCancelGoesBackToPending(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	_, vol := e.user(t, "ana", models.RoleVolunteer)
	action := e.publish(t, org, "Tutoring", 3)

	applied, err := e.applications.Apply(ctx, vol, action.ID)
	require.NoError(t, err)
	_, err = e.applications.Cancel(ctx, vol, applied.Application.ID)
	require.NoError(t, err)
	assert.Empty(t, e.inbox(t, orgUser.ID))

	again, err := e.applications.Apply(ctx, vol, action.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeChanged, again.Outcome)
	assert.Equal(t, applied.Application.ID, again.Application.ID)
	assert.Equal(t, models.StatusPending, again.Application.Status)

	inbox := e.inbox(t, orgUser.ID)
	require.Len(t, inbox, 1)
	assert.Equal(t, "ana requested to join 'Tutoring' again.", inbox[0].Message)
}

func TestCancelPending_RetractsOnlyMatchingNotice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	_, ana := e.user(t, "ana", models.RoleVolunteer)
	_, bob := e.user(t, "bob", models.RoleVolunteer)
	upper := &models.User{Username: "Ana", Email: "ana.upper@example.org", Password: "x", RoleType: models.RoleVolunteer, IsActive: true}
	require.NoError(t, e.store.Users().Create(ctx, upper))
	anaUpper := auth.NewActor(upper)
	action := e.publish(t, org, "Shelter", 5)

	anaApp, err := e.applications.Apply(ctx, ana, action.ID)
	require.NoError(t, err)
	_, err = e.applications.Apply(ctx, bob, action.ID)
	require.NoError(t, err)
	_, err = e.applications.Apply(ctx, anaUpper, action.ID)
	require.NoError(t, err)
	require.Len(t, e.inbox(t, orgUser.ID), 3)

	cancelled, err := e.applications.Cancel(ctx, ana, anaApp.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Application.Status)

	inbox := e.inbox(t, orgUser.ID)
	require.Len(t, inbox, 2)
	for _, n := range inbox {
		assert.NotEqual(t, "ana requested to join 'Shelter'.", n.Message)
	}
	assert.Contains(t, e.dispatcher.invalidated, orgUser.ID)
}

func TestCancelAccepted_NotifiesOwner(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	_, vol := e.user(t, "ana", models.RoleVolunteer)
	action := e.publish(t, org, "Shelter", 5)

	applied, err := e.applications.Apply(ctx, vol, action.ID)
	require.NoError(t, err)
	_, err = e.applications.Decide(ctx, org, action.ID, applied.Application.ID, ledger.EventAccept)
	require.NoError(t, err)

	_, err = e.applications.Cancel(ctx, vol, applied.Application.ID)
	require.NoError(t, err)

	inbox := e.inbox(t, orgUser.ID)
	require.Len(t, inbox, 2)
	assert.Equal(t, "ana cancelled their confirmed participation in 'Shelter'.", inbox[0].Message)

	again, err := e.applications.Cancel(ctx, vol, applied.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, dto.OutcomeUnchanged, again.Outcome)
	assert.Len(t, e.inbox(t, orgUser.ID), 2)
}

func TestRejectAndRemove(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, org := e.user(t, "org", models.RoleOrganizer)
	users, vols := volunteers(t, e, 2)
	action := e.publish(t, org, "Garden", 5)

	a0, err := e.applications.Apply(ctx, vols[0], action.ID)
	require.NoError(t, err)
	a1, err := e.applications.Apply(ctx, vols[1], action.ID)
	require.NoError(t, err)

	_, err = e.applications.Decide(ctx, org, action.ID, a0.Application.ID, ledger.EventReject)
	require.NoError(t, err)
	_, err = e.applications.Decide(ctx, org, action.ID, a0.Application.ID, ledger.EventAccept)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = e.applications.Decide(ctx, org, action.ID, a1.Application.ID, ledger.EventAccept)
	require.NoError(t, err)
	removed, err := e.applications.Decide(ctx, org, action.ID, a1.Application.ID, ledger.EventRemove)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, removed.Application.Status)

	assert.Equal(t, "Your application for 'Garden' was Rejected.", e.inbox(t, users[0].ID)[0].Message)
	assert.Equal(t, "You were removed from 'Garden' by the organizer.", e.inbox(t, users[1].ID)[0].Message)
}

func TestDecide_ScopeAndPermissions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, org := e.user(t, "org", models.RoleOrganizer)
	_, other := e.user(t, "other", models.RoleOrganizer)
	_, vol := e.user(t, "ana", models.RoleVolunteer)
	_, stranger := e.user(t, "bob", models.RoleVolunteer)
	action := e.publish(t, org, "Garden", 5)
	otherAction := e.publish(t, other, "Library", 5)

	applied, err := e.applications.Apply(ctx, vol, action.ID)
	require.NoError(t, err)

	_, err = e.applications.Decide(ctx, other, action.ID, applied.Application.ID, ledger.EventAccept)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = e.applications.Decide(ctx, other, otherAction.ID, applied.Application.ID, ledger.EventAccept)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)

	_, err = e.applications.Get(ctx, stranger, applied.Application.ID)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)

	_, err = e.applications.Cancel(ctx, stranger, applied.Application.ID)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)

	_, err = e.applications.Apply(ctx, org, action.ID)
	assert.ErrorIs(t, err, apperrors.ErrOwnAction)

	_, err = e.applications.ManageView(ctx, other, action.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	got, err := e.applications.Get(ctx, vol, applied.Application.ID)
	require.NoError(t, err)
	assert.Equal(t, "Garden", got.ActionTitle)
}

func TestMutationsRejectedAfterActionOccurred(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	volUser, vol := e.user(t, "ana", models.RoleVolunteer)
	_, late := e.user(t, "bob", models.RoleVolunteer)
	past := e.pastAction(t, orgUser, "Yesterday")
	ap := e.addApplication(t, past.ID, volUser, models.StatusPending)

	_, err := e.applications.Apply(ctx, late, past.ID)
	assert.ErrorIs(t, err, apperrors.ErrActionOccurred)
	_, err = e.applications.Decide(ctx, org, past.ID, ap.ID, ledger.EventAccept)
	assert.ErrorIs(t, err, apperrors.ErrActionOccurred)
	_, err = e.applications.Cancel(ctx, vol, ap.ID)
	assert.ErrorIs(t, err, apperrors.ErrActionOccurred)

	stored, err := e.store.Applications().GetByID(ctx, ap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestConcurrentAcceptsNeverExceedCapacity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, org := e.user(t, "org", models.RoleOrganizer)
	_, vols := volunteers(t, e, 6)
	action := e.publish(t, org, "Marathon", 2)

	ids := make([]int64, 0, len(vols))
	for _, v := range vols {
		applied, err := e.applications.Apply(ctx, v, action.ID)
		require.NoError(t, err)
		ids = append(ids, applied.Application.ID)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, full := 0, 0
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := e.applications.Decide(ctx, org, action.ID, id, ledger.EventAccept)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case assert.ErrorIs(t, err, apperrors.ErrActionFull):
				full++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 2, accepted)
	assert.Equal(t, 4, full)
	n, err := e.store.Applications().CountAccepted(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestManageView_Grouping(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	action := e.publish(t, org, "Garden", 5)
	zed, _ := e.user(t, "zed", models.RoleVolunteer)
	amy, _ := e.user(t, "amy", models.RoleVolunteer)
	kim, _ := e.user(t, "kim", models.RoleVolunteer)
	lou, _ := e.user(t, "lou", models.RoleVolunteer)

	e.addApplication(t, action.ID, zed, models.StatusAccepted)
	e.addApplication(t, action.ID, amy, models.StatusAccepted)
	e.addApplication(t, action.ID, kim, models.StatusPending)
	e.addApplication(t, action.ID, lou, models.StatusRejected)

	view, err := e.applications.ManageView(ctx, org, action.ID)
	require.NoError(t, err)
	require.Len(t, view.Accepted, 2)
	assert.Equal(t, "amy", view.Accepted[0].VolunteerUsername)
	assert.Equal(t, "zed", view.Accepted[1].VolunteerUsername)
	require.Len(t, view.Pending, 1)
	assert.Equal(t, "kim", view.Pending[0].VolunteerUsername)
	require.Len(t, view.Rejected, 1)
	assert.Empty(t, view.Cancelled)
	assert.Equal(t, 2, view.Action.Occupied)
	assert.Equal(t, orgUser.ID, view.Action.OwnerID)
}

func TestUpdateComment_OnlyAfterActionOccurred(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	volUser, vol := e.user(t, "ana", models.RoleVolunteer)
	upcoming := e.publish(t, org, "Soon", 3)
	applied, err := e.applications.Apply(ctx, vol, upcoming.ID)
	require.NoError(t, err)

	note := "great"
	_, err = e.applications.UpdateComment(ctx, vol, applied.Application.ID, &note)
	assert.ErrorIs(t, err, apperrors.ErrNotYetOccurred)

	past := e.pastAction(t, orgUser, "Done")
	ap := e.addApplication(t, past.ID, volUser, models.StatusAccepted)
	note = "  Loved it  "
	got, err := e.applications.UpdateComment(ctx, vol, ap.ID, &note)
	require.NoError(t, err)
	require.NotNil(t, got.Comment)
	assert.Equal(t, "Loved it", *got.Comment)
}

func TestListMine_AscendingBySchedule(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	volUser, vol := e.user(t, "ana", models.RoleVolunteer)
	later := e.publish(t, org, "Later", 3)
	past := e.pastAction(t, orgUser, "Past")
	e.addApplication(t, past.ID, volUser, models.StatusAccepted)
	_, err := e.applications.Apply(ctx, vol, later.ID)
	require.NoError(t, err)

	list, err := e.applications.ListMine(ctx, vol, dto.ListFilter{}, 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Applications, 2)
	assert.Equal(t, "Past", list.Applications[0].ActionTitle)
	assert.True(t, list.Applications[0].ActionHasOccurred)
	assert.Equal(t, "Later", list.Applications[1].ActionTitle)

	list, err = e.applications.ListMine(ctx, vol, dto.ListFilter{Category: models.CategoryAnimals}, 1, 10)
	require.NoError(t, err)
	require.Len(t, list.Applications, 1)
	assert.Equal(t, "Past", list.Applications[0].ActionTitle)
	assert.Equal(t, int64(1), list.Pagination.TotalItems)
}
