package dto

import (
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
)

// NotificationResponse represents one outbox entry
type NotificationResponse struct {
	ID        int64     `json:"id" example:"5"`
	Message   string    `json:"message" example:"Your application for 'Beach clean-up' was Accepted."`
	Link      string    `json:"link" example:"/actions/1"`
	IsRead    bool      `json:"isRead" example:"false"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromNotification converts a notification model
func FromNotification(n *models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		Link:      n.Link,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// NotificationListResponse is a page of notifications with the read counters
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Pagination    PaginationInfo         `json:"pagination"`
	UnreadCount   int                    `json:"unreadCount" example:"2"`
	ReadCount     int                    `json:"readCount" example:"8"`
}

// UnreadCountResponse carries the unread counter
type UnreadCountResponse struct {
	Unread int `json:"unread" example:"3"`
}

// ClearReadResponse reports the bulk deletion of read notifications
type ClearReadResponse struct {
	Deleted int64 `json:"deleted" example:"8"`
}
