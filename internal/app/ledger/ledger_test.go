package ledger

import (
	"errors"
	"testing"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID     int64 = 1
	volunteerID int64 = 2
	strangerID  int64 = 3
)

var (
	owner     = auth.Actor{UserID: ownerID, Capabilities: auth.Capabilities{IsOrganizer: true}}
	volunteer = auth.Actor{UserID: volunteerID, Capabilities: auth.Capabilities{IsVolunteer: true}}
	stranger  = auth.Actor{UserID: strangerID, Capabilities: auth.Capabilities{IsVolunteer: true}}
	admin     = auth.Actor{UserID: 9, Capabilities: auth.Capabilities{IsAdmin: true}}
)

func status(s models.ApplicationStatus) *models.ApplicationStatus { return &s }

func snap(current *models.ApplicationStatus, capacity, occupied int, occurred bool) Snapshot {
	return Snapshot{
		OwnerID:     ownerID,
		VolunteerID: volunteerID,
		Capacity:    capacity,
		Occupied:    occupied,
		HasOccurred: occurred,
		Current:     current,
	}
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		actor   auth.Actor
		event   Event
		snap    Snapshot
		wantErr error
		want    Outcome
	}{
		{
			name:  "first apply creates pending and notifies owner",
			actor: volunteer, event: EventApply, snap: snap(nil, 2, 0, false),
			want: Outcome{To: models.StatusPending, Changed: true, Create: true, Effect: EffectNotifyOwnerApplied},
		},
		{
			name:  "re-apply after cancel",
			actor: volunteer, event: EventApply, snap: snap(status(models.StatusCancelled), 2, 1, false),
			want: Outcome{From: status(models.StatusCancelled), To: models.StatusPending, Changed: true, Effect: EffectNotifyOwnerReapplied},
		},
		{
			name:  "re-apply after rejection",
			actor: volunteer, event: EventApply, snap: snap(status(models.StatusRejected), 2, 0, false),
			want: Outcome{From: status(models.StatusRejected), To: models.StatusPending, Changed: true, Effect: EffectNotifyOwnerReapplied},
		},
		{
			name:  "apply while pending is unchanged",
			actor: volunteer, event: EventApply, snap: snap(status(models.StatusPending), 1, 1, false),
			want: Outcome{From: status(models.StatusPending), To: models.StatusPending},
		},
		{
			name:  "apply while accepted is unchanged",
			actor: volunteer, event: EventApply, snap: snap(status(models.StatusAccepted), 1, 1, false),
			want: Outcome{From: status(models.StatusAccepted), To: models.StatusAccepted},
		},
		{
			name:  "apply to full action",
			actor: volunteer, event: EventApply, snap: snap(nil, 2, 2, false),
			wantErr: apperrors.ErrActionFull,
		},
		{
			name:  "owner cannot apply",
			actor: owner, event: EventApply, snap: snap(nil, 2, 0, false),
			wantErr: apperrors.ErrOwnAction,
		},
		{
			name:  "apply after occurrence",
			actor: volunteer, event: EventApply, snap: snap(nil, 2, 0, true),
			wantErr: apperrors.ErrActionOccurred,
		},
		{
			name:  "accept pending with room",
			actor: owner, event: EventAccept, snap: snap(status(models.StatusPending), 1, 0, false),
			want: Outcome{From: status(models.StatusPending), To: models.StatusAccepted, Changed: true, Effect: EffectNotifyVolunteerAccepted},
		},
		{
			name:  "admin accepts for owner",
			actor: admin, event: EventAccept, snap: snap(status(models.StatusPending), 1, 0, false),
			want: Outcome{From: status(models.StatusPending), To: models.StatusAccepted, Changed: true, Effect: EffectNotifyVolunteerAccepted},
		},
		{
			name:  "accept when full",
			actor: owner, event: EventAccept, snap: snap(status(models.StatusPending), 1, 1, false),
			wantErr: apperrors.ErrActionFull,
		},
		{
			name:  "accept by stranger",
			actor: stranger, event: EventAccept, snap: snap(status(models.StatusPending), 1, 0, false),
			wantErr: apperrors.ErrPermissionDenied,
		},
		{
			name:  "accept already accepted",
			actor: owner, event: EventAccept, snap: snap(status(models.StatusAccepted), 3, 1, false),
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name:  "reject pending",
			actor: owner, event: EventReject, snap: snap(status(models.StatusPending), 1, 1, false),
			want: Outcome{From: status(models.StatusPending), To: models.StatusRejected, Changed: true, Effect: EffectNotifyVolunteerRejected},
		},
		{
			name:  "reject cannot revert acceptance",
			actor: owner, event: EventReject, snap: snap(status(models.StatusAccepted), 1, 1, false),
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name:  "remove accepted",
			actor: owner, event: EventRemove, snap: snap(status(models.StatusAccepted), 1, 1, false),
			want: Outcome{From: status(models.StatusAccepted), To: models.StatusCancelled, Changed: true, Effect: EffectNotifyVolunteerRemoved},
		},
		{
			name:  "remove pending is invalid",
			actor: owner, event: EventRemove, snap: snap(status(models.StatusPending), 1, 0, false),
			wantErr: apperrors.ErrInvalidTransition,
		},
		{
			name:  "decision after occurrence",
			actor: owner, event: EventReject, snap: snap(status(models.StatusPending), 1, 0, true),
			wantErr: apperrors.ErrActionOccurred,
		},
		{
			name:  "cancel pending retracts notice",
			actor: volunteer, event: EventCancel, snap: snap(status(models.StatusPending), 1, 0, false),
			want: Outcome{From: status(models.StatusPending), To: models.StatusCancelled, Changed: true, Effect: EffectRetractApplyNotice},
		},
		{
			name:  "cancel accepted notifies owner",
			actor: volunteer, event: EventCancel, snap: snap(status(models.StatusAccepted), 1, 1, false),
			want: Outcome{From: status(models.StatusAccepted), To: models.StatusCancelled, Changed: true, Effect: EffectNotifyOwnerCancelled},
		},
		{
			name:  "cancel rejected is silent",
			actor: volunteer, event: EventCancel, snap: snap(status(models.StatusRejected), 1, 0, false),
			want: Outcome{From: status(models.StatusRejected), To: models.StatusCancelled, Changed: true},
		},
		{
			name:  "cancel cancelled is idempotent",
			actor: volunteer, event: EventCancel, snap: snap(status(models.StatusCancelled), 1, 0, false),
			want: Outcome{From: status(models.StatusCancelled), To: models.StatusCancelled},
		},
		{
			name:  "cancel someone else's application",
			actor: stranger, event: EventCancel, snap: snap(status(models.StatusPending), 1, 0, false),
			wantErr: apperrors.ErrApplicationNotFound,
		},
		{
			name:  "cancel after occurrence",
			actor: volunteer, event: EventCancel, snap: snap(status(models.StatusAccepted), 1, 1, true),
			wantErr: apperrors.ErrActionOccurred,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.actor, tt.event, tt.snap)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_UnknownEvent(t *testing.T) {
	_, err := Transition(owner, Event("archive"), snap(nil, 1, 0, false))
	assert.True(t, errors.Is(err, apperrors.ErrBadRequest))
}

// Serialized accepts never push occupancy past capacity.
func TestTransition_AcceptsRespectCapacity(t *testing.T) {
	const capacity = 3
	occupied := 0
	for i := 0; i < 10; i++ {
		out, err := Transition(owner, EventAccept, snap(status(models.StatusPending), capacity, occupied, false))
		if err != nil {
			assert.True(t, errors.Is(err, apperrors.ErrActionFull))
			continue
		}
		if out.To == models.StatusAccepted {
			occupied++
		}
	}
	assert.Equal(t, capacity, occupied)
}

func TestEffectString(t *testing.T) {
	assert.Equal(t, "retract_apply_notice", EffectRetractApplyNotice.String())
	assert.Equal(t, "unknown", Effect(99).String())
}
