package services

import (
	"context"
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/cache"
	"github.com/communitylink/communitylink/internal/pkg/email"
	"github.com/communitylink/communitylink/internal/pkg/metrics"
	"github.com/communitylink/communitylink/internal/pkg/websocket"
	"github.com/rs/zerolog"
)

// LiveDispatcher pushes new notifications to open WebSocket connections, refreshes
// the unread counter cache and, when a mailer is set, e-mails the recipient
type LiveDispatcher struct {
	store   repositories.Store
	hub     *websocket.Hub
	counter cache.UnreadCounter
	mailer  email.Mailer
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewLiveDispatcher creates a dispatcher; hub and mailer may be nil
func NewLiveDispatcher(
	store repositories.Store,
	hub *websocket.Hub,
	counter cache.UnreadCounter,
	mailer email.Mailer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LiveDispatcher {
	if counter == nil {
		counter = cache.NoopCounter{}
	}
	return &LiveDispatcher{
		store:   store,
		hub:     hub,
		counter: counter,
		mailer:  mailer,
		metrics: m,
		logger:  logger,
	}
}

// Dispatch delivers committed notifications
func (d *LiveDispatcher) Dispatch(ctx context.Context, notifications []models.Notification) {
	if len(notifications) == 0 {
		return
	}
	d.metrics.NotificationsCreated(len(notifications))

	recipients := make([]int64, 0, len(notifications))
	seen := make(map[int64]bool, len(notifications))
	for _, n := range notifications {
		if !seen[n.RecipientID] {
			seen[n.RecipientID] = true
			recipients = append(recipients, n.RecipientID)
		}
	}
	d.counter.Invalidate(ctx, recipients...)

	for i := range notifications {
		n := notifications[i]
		if d.hub != nil && d.hub.ClientsCount(n.RecipientID) > 0 {
			d.push(ctx, n)
		}
		if d.mailer != nil {
			d.mail(ctx, n)
		}
	}
}

// Invalidate drops cached counters
func (d *LiveDispatcher) Invalidate(ctx context.Context, userIDs ...int64) {
	d.counter.Invalidate(ctx, userIDs...)
}

func (d *LiveDispatcher) push(ctx context.Context, n models.Notification) {
	unread, err := unreadCount(ctx, d.store, d.counter, n.RecipientID)
	if err != nil {
		d.logger.Warn().Err(err).Int64("userID", n.RecipientID).Msg("Could not count unread notifications for live push")
	}
	d.hub.SendToUser(&websocket.Message{
		Type:      websocket.TypeNotification,
		UserID:    n.RecipientID,
		ID:        n.ID,
		Content:   n.Message,
		Link:      n.Link,
		Unread:    unread,
		Timestamp: n.CreatedAt,
	})
}

func (d *LiveDispatcher) mail(ctx context.Context, n models.Notification) {
	user, err := d.store.Users().GetByID(ctx, n.RecipientID)
	if err != nil {
		d.logger.Warn().Err(err).Int64("userID", n.RecipientID).Msg("Could not load notification recipient for e-mail")
		return
	}
	if !user.IsActive || user.Email == "" {
		return
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	// SMTP round trips stay off the request path
	go func() {
		start := time.Now()
		if err := d.mailer.SendNotification(user.Email, name, n.Message, n.Link); err != nil {
			d.logger.Error().Err(err).Int64("notificationID", n.ID).Msg("Failed to e-mail notification")
			return
		}
		d.logger.Debug().Int64("notificationID", n.ID).Dur("took", time.Since(start)).Msg("Notification e-mailed")
	}()
}
