// Package ledger holds the application status machine.
//
// Transition is pure: callers read a Snapshot inside their transaction, ask for the
// outcome, and then persist it together with the notifications it implies.
package ledger

import (
	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
)

// Event is a request to move an application
type Event string

const (
	EventApply  Event = "apply"
	EventAccept Event = "accept"
	EventReject Event = "reject"
	EventRemove Event = "remove"
	EventCancel Event = "cancel"
)

// Effect is the notification side effect a transition asks for
type Effect int

const (
	EffectNone Effect = iota
	EffectNotifyOwnerApplied
	EffectNotifyOwnerReapplied
	EffectNotifyVolunteerAccepted
	EffectNotifyVolunteerRejected
	EffectNotifyVolunteerRemoved
	EffectNotifyOwnerCancelled
	EffectRetractApplyNotice
)

var effectNames = map[Effect]string{
	EffectNone:                    "none",
	EffectNotifyOwnerApplied:      "notify_owner_applied",
	EffectNotifyOwnerReapplied:    "notify_owner_reapplied",
	EffectNotifyVolunteerAccepted: "notify_volunteer_accepted",
	EffectNotifyVolunteerRejected: "notify_volunteer_rejected",
	EffectNotifyVolunteerRemoved:  "notify_volunteer_removed",
	EffectNotifyOwnerCancelled:    "notify_owner_cancelled",
	EffectRetractApplyNotice:      "retract_apply_notice",
}

func (e Effect) String() string {
	if n, ok := effectNames[e]; ok {
		return n
	}
	return "unknown"
}

// Snapshot is the state a transition is decided on
type Snapshot struct {
	OwnerID     int64
	VolunteerID int64
	Capacity    int
	Occupied    int
	HasOccurred bool
	// Current is nil when the volunteer has no application for the action
	Current *models.ApplicationStatus
}

// Full reports whether the accepted places reach the capacity
func (s Snapshot) Full() bool {
	return s.Occupied >= s.Capacity
}

// Outcome is the decided transition
type Outcome struct {
	From    *models.ApplicationStatus
	To      models.ApplicationStatus
	Changed bool
	// Create is set when no row exists yet and one must be inserted
	Create bool
	Effect Effect
}

// Transition decides what event does to the application described by s
func Transition(actor auth.Actor, event Event, s Snapshot) (Outcome, error) {
	switch event {
	case EventApply:
		return apply(actor, s)
	case EventAccept, EventReject, EventRemove:
		return decide(actor, event, s)
	case EventCancel:
		return cancel(actor, s)
	}
	return Outcome{}, apperrors.NewBadRequestError("unknown application event " + string(event))
}

func apply(actor auth.Actor, s Snapshot) (Outcome, error) {
	if actor.Owns(s.OwnerID) {
		return Outcome{}, apperrors.ErrOwnAction
	}
	if s.HasOccurred {
		return Outcome{}, apperrors.ErrActionOccurred
	}

	if s.Current != nil && s.Current.Active() {
		return unchanged(*s.Current), nil
	}
	if s.Full() {
		return Outcome{}, apperrors.ErrActionFull
	}

	if s.Current == nil {
		return Outcome{To: models.StatusPending, Changed: true, Create: true, Effect: EffectNotifyOwnerApplied}, nil
	}
	return Outcome{From: s.Current, To: models.StatusPending, Changed: true, Effect: EffectNotifyOwnerReapplied}, nil
}

func decide(actor auth.Actor, event Event, s Snapshot) (Outcome, error) {
	if !actor.IsAdmin && !actor.Owns(s.OwnerID) {
		return Outcome{}, apperrors.NewForbiddenError("Only the organizer of this action can decide on its applications.")
	}
	if s.HasOccurred {
		return Outcome{}, apperrors.ErrActionOccurred
	}
	if s.Current == nil {
		return Outcome{}, apperrors.ErrApplicationNotFound
	}

	from := *s.Current
	switch {
	case event == EventAccept && from == models.StatusPending:
		if s.Full() {
			return Outcome{}, apperrors.ErrActionFull
		}
		return Outcome{From: s.Current, To: models.StatusAccepted, Changed: true, Effect: EffectNotifyVolunteerAccepted}, nil
	case event == EventReject && from == models.StatusPending:
		return Outcome{From: s.Current, To: models.StatusRejected, Changed: true, Effect: EffectNotifyVolunteerRejected}, nil
	case event == EventRemove && from == models.StatusAccepted:
		return Outcome{From: s.Current, To: models.StatusCancelled, Changed: true, Effect: EffectNotifyVolunteerRemoved}, nil
	}
	return Outcome{}, apperrors.ErrInvalidTransition
}

func cancel(actor auth.Actor, s Snapshot) (Outcome, error) {
	if !actor.IsAdmin && !actor.Owns(s.VolunteerID) {
		return Outcome{}, apperrors.ErrApplicationNotFound
	}
	if s.HasOccurred {
		return Outcome{}, apperrors.ErrActionOccurred
	}
	if s.Current == nil {
		return Outcome{}, apperrors.ErrApplicationNotFound
	}

	switch *s.Current {
	case models.StatusPending:
		return Outcome{From: s.Current, To: models.StatusCancelled, Changed: true, Effect: EffectRetractApplyNotice}, nil
	case models.StatusAccepted:
		return Outcome{From: s.Current, To: models.StatusCancelled, Changed: true, Effect: EffectNotifyOwnerCancelled}, nil
	case models.StatusRejected:
		// Recorded as cancelled; nobody is told
		return Outcome{From: s.Current, To: models.StatusCancelled, Changed: true}, nil
	}
	return unchanged(*s.Current), nil
}

func unchanged(status models.ApplicationStatus) Outcome {
	st := status
	return Outcome{From: &st, To: status}
}
