package dto

import (
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
)

// Transition outcomes reported to clients
const (
	OutcomeChanged   = "CHANGED"
	OutcomeUnchanged = "UNCHANGED"
)

// CreateApplicationRequest applies the caller to an action
type CreateApplicationRequest struct {
	ActionID int64 `json:"actionId" form:"actionId" binding:"required,min=1" example:"1"`
}

// CommentRequest carries the volunteer's comment on a past action
type CommentRequest struct {
	Comment *string `json:"comment" form:"comment" binding:"omitempty,max=5000" example:"Loved it"`
}

// ApplicationResponse represents an application with its action and volunteer
type ApplicationResponse struct {
	ID                int64                    `json:"id" example:"12"`
	ActionID          int64                    `json:"actionId" example:"1"`
	ActionTitle       string                   `json:"actionTitle" example:"Beach clean-up"`
	ActionScheduledAt time.Time                `json:"actionScheduledAt"`
	ActionLocation    string                   `json:"actionLocation" example:"Matosinhos"`
	ActionCategory    models.Category          `json:"actionCategory" example:"ENVIRONMENT"`
	ActionHasOccurred bool                     `json:"actionHasOccurred" example:"false"`
	VolunteerID       int64                    `json:"volunteerId" example:"7"`
	VolunteerUsername string                   `json:"volunteerUsername" example:"joao"`
	Status            models.ApplicationStatus `json:"status" example:"PENDING"`
	StatusLabel       string                   `json:"statusLabel" example:"Pending"`
	Comment           *string                  `json:"comment,omitempty"`
	AppliedAt         time.Time                `json:"appliedAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// FromApplicationDetail converts a joined application row
func FromApplicationDetail(d *models.ApplicationDetail, now time.Time) ApplicationResponse {
	return ApplicationResponse{
		ID:                d.ID,
		ActionID:          d.ActionID,
		ActionTitle:       d.ActionTitle,
		ActionScheduledAt: d.ActionScheduledAt,
		ActionLocation:    d.ActionLocation,
		ActionCategory:    d.ActionCategory,
		ActionHasOccurred: d.ActionScheduledAt.Before(now),
		VolunteerID:       d.VolunteerID,
		VolunteerUsername: d.VolunteerUsername,
		Status:            d.Status,
		StatusLabel:       d.Status.Label(),
		Comment:           d.Comment,
		AppliedAt:         d.AppliedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// FromApplicationDetails converts a slice of joined rows
func FromApplicationDetails(items []models.ApplicationDetail, now time.Time) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(items))
	for i := range items {
		out = append(out, FromApplicationDetail(&items[i], now))
	}
	return out
}

// TransitionResponse is the result of a ledger event
type TransitionResponse struct {
	Outcome     string              `json:"outcome" example:"CHANGED"`
	Message     string              `json:"message" example:"Your application was sent."`
	Application ApplicationResponse `json:"application"`
}

// Changed reports whether the event moved the application
func (r *TransitionResponse) Changed() bool {
	return r.Outcome == OutcomeChanged
}

// ApplicationListResponse is a page of applications
type ApplicationListResponse struct {
	Applications []ApplicationResponse `json:"applications"`
	Pagination   PaginationInfo        `json:"pagination"`
}

// ManageViewResponse is the organizer's view of an action's applications
type ManageViewResponse struct {
	Action    ActionResponse        `json:"action"`
	Pending   []ApplicationResponse `json:"pending"`
	Accepted  []ApplicationResponse `json:"accepted"`
	Rejected  []ApplicationResponse `json:"rejected"`
	Cancelled []ApplicationResponse `json:"cancelled"`
}
