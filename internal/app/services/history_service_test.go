package services

import (
	"context"
	"testing"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_VolunteerSeesPastParticipationsOnly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	volUser, vol := e.user(t, "ana", models.RoleVolunteer)

	done := e.pastAction(t, orgUser, "Done")
	rejected := e.pastAction(t, orgUser, "Rejected")
	upcoming := e.publish(t, org, "Soon", 3)
	e.addApplication(t, done.ID, volUser, models.StatusAccepted)
	e.addApplication(t, rejected.ID, volUser, models.StatusRejected)
	e.addApplication(t, upcoming.ID, volUser, models.StatusAccepted)

	h, err := e.history.Get(ctx, vol, dto.ListFilter{}, 1, 1)
	require.NoError(t, err)
	assert.False(t, h.IsOrganizer)
	assert.Nil(t, h.Organized)
	require.Len(t, h.Participations.Applications, 1)
	assert.Equal(t, "Done", h.Participations.Applications[0].ActionTitle)
	assert.True(t, h.Participations.Applications[0].ActionHasOccurred)
}

func TestHistory_OrganizerSeesPastOrganizedActions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	orgUser, org := e.user(t, "org", models.RoleOrganizer)
	e.pastAction(t, orgUser, "Done")
	e.publish(t, org, "Soon", 3)

	h, err := e.history.Get(ctx, org, dto.ListFilter{}, 1, 1)
	require.NoError(t, err)
	assert.True(t, h.IsOrganizer)
	require.NotNil(t, h.Organized)
	require.Len(t, h.Organized.Actions, 1)
	assert.Equal(t, "Done", h.Organized.Actions[0].Title)

	h, err = e.history.Get(ctx, org, dto.ListFilter{Category: models.CategoryHealth}, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, h.Organized.Actions)
}
