package models

import "time"

// ApplicationStatus is the lifecycle state of a volunteer's application
type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "PENDING"
	StatusAccepted  ApplicationStatus = "ACCEPTED"
	StatusRejected  ApplicationStatus = "REJECTED"
	StatusCancelled ApplicationStatus = "CANCELLED"
)

// Label returns the capitalised status name used in messages
func (s ApplicationStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusAccepted:
		return "Accepted"
	case StatusRejected:
		return "Rejected"
	case StatusCancelled:
		return "Cancelled"
	}
	return string(s)
}

// Active reports whether the status still holds or requests a place
func (s ApplicationStatus) Active() bool {
	return s == StatusPending || s == StatusAccepted
}

// Application is a volunteer's request to join an action
type Application struct {
	ID          int64             `json:"id" db:"id" gorm:"primaryKey"`
	ActionID    int64             `json:"actionId" db:"action_id"`
	VolunteerID int64             `json:"volunteerId" db:"volunteer_id"`
	Status      ApplicationStatus `json:"status" db:"status" example:"PENDING"`
	AppliedAt   time.Time         `json:"appliedAt" db:"applied_at"`
	Comment     *string           `json:"comment,omitempty" db:"comment"`
	UpdatedAt   time.Time         `json:"updatedAt" db:"updated_at"`
}

// TableName sets the table used by gorm
func (Application) TableName() string { return "applications" }

// ApplicationDetail is an application joined with its action and volunteer
type ApplicationDetail struct {
	Application
	ActionTitle       string    `json:"actionTitle" db:"action_title"`
	ActionScheduledAt time.Time `json:"actionScheduledAt" db:"action_scheduled_at"`
	ActionLocation    string    `json:"actionLocation" db:"action_location"`
	ActionCategory    Category  `json:"actionCategory" db:"action_category"`
	ActionOwnerID     int64     `json:"actionOwnerId" db:"action_owner_id"`
	VolunteerUsername string    `json:"volunteerUsername" db:"volunteer_username"`
}

// ApplicationFilter narrows a volunteer's application list
type ApplicationFilter struct {
	VolunteerID int64
	Statuses    []ApplicationStatus
	Category    Category
	Location    string
	DateFrom    *time.Time
	Before      *time.Time
	Ascending   bool
	Limit       int
	Offset      int
}
