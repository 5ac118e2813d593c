package models

import (
	"fmt"
	"time"
)

// Field limits shared by validation and the schema
const (
	MaxTitleLength    = 200
	MaxLocationLength = 255
)

// Action is a community action published by an organizer
type Action struct {
	ID             int64     `json:"id" db:"id" gorm:"primaryKey" example:"1"`
	Title          string    `json:"title" db:"title" example:"Beach clean-up"`
	Description    string    `json:"description" db:"description"`
	ScheduledAt    time.Time `json:"scheduledAt" db:"scheduled_at"`
	Location       string    `json:"location" db:"location" example:"Matosinhos"`
	Capacity       int       `json:"capacity" db:"capacity" example:"10"`
	Category       Category  `json:"category" db:"category" example:"ENVIRONMENT"`
	OwnerID        int64     `json:"ownerId" db:"owner_id"`
	OrganizerNotes *string   `json:"organizerNotes,omitempty" db:"organizer_notes"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// TableName sets the table used by gorm
func (Action) TableName() string { return "actions" }

// HasOccurred reports whether the action's schedule lies before now
func (a *Action) HasOccurred(now time.Time) bool {
	return a.ScheduledAt.Before(now)
}

// IsFull reports whether occupied accepted places reach the capacity
func (a *Action) IsFull(occupied int) bool {
	return occupied >= a.Capacity
}

// DetailLink is the relative link to the action page
func (a *Action) DetailLink() string {
	return DetailLink(a.ID)
}

// ManageLink is the relative link to the organizer's manage page
func (a *Action) ManageLink() string {
	return ManageLink(a.ID)
}

// DetailLink builds the detail link for an action id
func DetailLink(actionID int64) string {
	return fmt.Sprintf("/actions/%d", actionID)
}

// ManageLink builds the manage link for an action id
func ManageLink(actionID int64) string {
	return fmt.Sprintf("/actions/%d/manage", actionID)
}

// ActionSummary is an action joined with its owner and derived occupancy
type ActionSummary struct {
	Action
	OwnerUsername string `json:"ownerUsername" db:"owner_username"`
	Occupied      int    `json:"occupied" db:"occupied"`
}

// ActionFilter narrows action list queries. Zero values mean "no constraint".
type ActionFilter struct {
	Category  Category
	Location  string
	DateFrom  *time.Time
	OwnerID   int64
	After     *time.Time
	Before    *time.Time
	Ascending bool
	Limit     int
	Offset    int
}
