package models

import "time"

// MaxMessageLength bounds the stored notification text
const MaxMessageLength = 255

// Notification is one entry in a user's outbox
type Notification struct {
	ID          int64     `json:"id" db:"id" gorm:"primaryKey"`
	RecipientID int64     `json:"recipientId" db:"recipient_id"`
	Message     string    `json:"message" db:"message"`
	IsRead      bool      `json:"isRead" db:"is_read"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	Link        string    `json:"link" db:"link"`
}

// TableName sets the table used by gorm
func (Notification) TableName() string { return "notifications" }
