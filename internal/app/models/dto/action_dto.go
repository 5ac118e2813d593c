package dto

import (
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
)

// DateTimeLocalLayout is the layout of HTML datetime-local inputs
const DateTimeLocalLayout = "2006-01-02T15:04"

// ActionRequest represents the data to create or update an action
type ActionRequest struct {
	Title       string          `json:"title" form:"title" binding:"required,notblank,max=200" example:"Beach clean-up"`
	Description string          `json:"description" form:"description" binding:"required,notblank" example:"Collect plastic along the shore"`
	ScheduledAt time.Time       `json:"scheduledAt" form:"scheduledAt" binding:"required" time_format:"2006-01-02T15:04" example:"2026-11-20T09:00:00Z"`
	Location    string          `json:"location" form:"location" binding:"required,notblank,max=255" example:"Matosinhos"`
	Capacity    int             `json:"capacity" form:"capacity" binding:"required,min=1" example:"10"`
	Category    models.Category `json:"category" form:"category" binding:"omitempty,category" example:"ENVIRONMENT"`
}

// Normalize trims free text and applies the default category
func (r *ActionRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	if r.Category == "" {
		r.Category = models.CategoryOther
	}
}

// Apply copies the request fields onto the action
func (r *ActionRequest) Apply(a *models.Action) {
	a.Title = r.Title
	a.Description = r.Description
	a.ScheduledAt = r.ScheduledAt
	a.Location = r.Location
	a.Capacity = r.Capacity
	a.Category = r.Category
}

// NotesRequest carries the organizer notes of a past action
type NotesRequest struct {
	Notes *string `json:"notes" form:"notes" binding:"omitempty,max=5000" example:"Great turnout, bring more gloves next time"`
}

// ListFilterQuery holds the query-string filters shared by every list view
type ListFilterQuery struct {
	Category string `form:"category" example:"ANIMALS"`
	Location string `form:"location" example:"porto"`
	DateFrom string `form:"dateFrom" example:"2026-11-01"`
}

// ListFilter is the parsed form of ListFilterQuery
type ListFilter struct {
	Category models.Category
	Location string
	DateFrom *time.Time
}

// Active reports whether any filter is set
func (f ListFilter) Active() bool {
	return f.Category != "" || f.Location != "" || f.DateFrom != nil
}

// ActionFilter converts the list filter into a store filter
func (f ListFilter) ActionFilter() models.ActionFilter {
	return models.ActionFilter{Category: f.Category, Location: f.Location, DateFrom: f.DateFrom}
}

// ApplicationFilter converts the list filter into a store filter for volunteerID
func (f ListFilter) ApplicationFilter(volunteerID int64) models.ApplicationFilter {
	return models.ApplicationFilter{
		VolunteerID: volunteerID,
		Category:    f.Category,
		Location:    f.Location,
		DateFrom:    f.DateFrom,
	}
}

// MyApplicationInfo is the caller's own application embedded in an action detail
type MyApplicationInfo struct {
	ID          int64                    `json:"id" example:"12"`
	Status      models.ApplicationStatus `json:"status" example:"PENDING"`
	StatusLabel string                   `json:"statusLabel" example:"Pending"`
}

// ActionResponse represents an action with its derived occupancy
type ActionResponse struct {
	ID              int64              `json:"id" example:"1"`
	Title           string             `json:"title" example:"Beach clean-up"`
	Description     string             `json:"description"`
	ScheduledAt     time.Time          `json:"scheduledAt"`
	Location        string             `json:"location" example:"Matosinhos"`
	Capacity        int                `json:"capacity" example:"10"`
	Category        models.Category    `json:"category" example:"ENVIRONMENT"`
	CategoryLabel   string             `json:"categoryLabel" example:"Environment"`
	OwnerID         int64              `json:"ownerId" example:"3"`
	OwnerUsername   string             `json:"ownerUsername" example:"org.porto"`
	Occupied        int                `json:"occupied" example:"4"`
	AvailablePlaces int                `json:"availablePlaces" example:"6"`
	IsFull          bool               `json:"isFull" example:"false"`
	HasOccurred     bool               `json:"hasOccurred" example:"false"`
	CanManage       bool               `json:"canManage" example:"false"`
	OrganizerNotes  *string            `json:"organizerNotes,omitempty"`
	MyApplication   *MyApplicationInfo `json:"myApplication,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// FromActionSummary builds the response seen by actor at now. Notes are only
// included for actors managing the action.
func FromActionSummary(s *models.ActionSummary, actor auth.Actor, now time.Time) ActionResponse {
	canManage := auth.CanManageAction(actor, &s.Action)
	available := s.Capacity - s.Occupied
	if available < 0 {
		available = 0
	}
	resp := ActionResponse{
		ID:              s.ID,
		Title:           s.Title,
		Description:     s.Description,
		ScheduledAt:     s.ScheduledAt,
		Location:        s.Location,
		Capacity:        s.Capacity,
		Category:        s.Category,
		CategoryLabel:   s.Category.Label(),
		OwnerID:         s.OwnerID,
		OwnerUsername:   s.OwnerUsername,
		Occupied:        s.Occupied,
		AvailablePlaces: available,
		IsFull:          s.IsFull(s.Occupied),
		HasOccurred:     s.HasOccurred(now),
		CanManage:       canManage,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if canManage {
		resp.OrganizerNotes = s.OrganizerNotes
	}
	return resp
}

// ActionListResponse is a page of actions
type ActionListResponse struct {
	Actions    []ActionResponse `json:"actions"`
	Pagination PaginationInfo   `json:"pagination"`
}

// ActionMutationResponse reports an edit and how many volunteers were told about it
type ActionMutationResponse struct {
	Action             ActionResponse `json:"action"`
	NotifiedVolunteers int            `json:"notifiedVolunteers" example:"3"`
}

// DeleteActionResponse reports a deletion
type DeleteActionResponse struct {
	ID                 int64  `json:"id" example:"1"`
	Title              string `json:"title" example:"Beach clean-up"`
	NotifiedVolunteers int    `json:"notifiedVolunteers" example:"2"`
}
