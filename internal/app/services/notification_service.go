package services

import (
	"context"
	"fmt"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/cache"
	"github.com/communitylink/communitylink/internal/pkg/helpers"
	"github.com/rs/zerolog"
)

// NotificationDispatcher delivers committed notifications outside the database:
// live push, e-mail and counter invalidation. It never fails the caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notifications []models.Notification)
	// Invalidate drops cached counters of users whose outbox changed without a new row
	Invalidate(ctx context.Context, userIDs ...int64)
}

// outbox appends notifications inside a transaction and remembers them for dispatch after commit
type outbox struct {
	store   repositories.NotificationStore
	created []models.Notification
}

func newOutbox(tx repositories.Store) *outbox {
	return &outbox{store: tx.Notifications()}
}

func (o *outbox) notify(ctx context.Context, recipientID int64, message, link string) error {
	n := models.Notification{
		RecipientID: recipientID,
		Message:     truncateMessage(message),
		Link:        link,
	}
	if err := o.store.Create(ctx, &n); err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	o.created = append(o.created, n)
	return nil
}

// NotificationService defines the recipient side of the outbox
type NotificationService interface {
	// List returns a page of the actor's notifications; when markDisplayed is set the
	// unread rows of that page are marked read after being loaded
	List(ctx context.Context, actor auth.Actor, page, size int, markDisplayed bool) (*dto.NotificationListResponse, error)
	MarkRead(ctx context.Context, actor auth.Actor, id int64) error
	UnreadCount(ctx context.Context, actor auth.Actor) (int, error)
	ClearRead(ctx context.Context, actor auth.Actor) (int64, error)
}

type notificationServiceImpl struct {
	store      repositories.Store
	counter    cache.UnreadCounter
	dispatcher NotificationDispatcher
	logger     zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	store repositories.Store,
	counter cache.UnreadCounter,
	dispatcher NotificationDispatcher,
	logger zerolog.Logger,
) NotificationService {
	if counter == nil {
		counter = cache.NoopCounter{}
	}
	return &notificationServiceImpl{
		store:      store,
		counter:    counter,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// unreadCount reads the counter through the cache
func unreadCount(ctx context.Context, store repositories.Store, counter cache.UnreadCounter, userID int64) (int, error) {
	n, gen, ok := counter.Get(ctx, userID)
	if ok {
		return n, nil
	}
	unread := false
	n, err := store.Notifications().Count(ctx, userID, &unread)
	if err != nil {
		return 0, err
	}
	counter.Set(ctx, userID, gen, n)
	return n, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, actor auth.Actor, page, size int, markDisplayed bool) (*dto.NotificationListResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}
	offset, limit := helpers.CalculateOffsetLimit(page, size)

	items, total, err := s.store.Notifications().ListByRecipient(ctx, actor.UserID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Failed to list notifications")
		return nil, err
	}

	resp := &dto.NotificationListResponse{
		Notifications: make([]dto.NotificationResponse, 0, len(items)),
		Pagination:    helpers.NewPaginationInfo(int64(total), page, limit),
	}
	var unreadIDs []int64
	for i := range items {
		resp.Notifications = append(resp.Notifications, dto.FromNotification(&items[i]))
		if !items[i].IsRead {
			unreadIDs = append(unreadIDs, items[i].ID)
		}
	}

	if markDisplayed && len(unreadIDs) > 0 {
		marked, err := s.store.Notifications().MarkRead(ctx, actor.UserID, unreadIDs)
		if err != nil {
			s.logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Failed to mark displayed notifications read")
			return nil, err
		}
		s.logger.Debug().Int64("userID", actor.UserID).Int64("marked", marked).Msg("Marked displayed notifications read")
		s.counter.Invalidate(ctx, actor.UserID)
	}

	unread := false
	if resp.UnreadCount, err = s.store.Notifications().Count(ctx, actor.UserID, &unread); err != nil {
		return nil, err
	}
	resp.ReadCount = total - resp.UnreadCount
	return resp, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, actor auth.Actor, id int64) error {
	if !actor.Authenticated() {
		return apperrors.ErrUnauthenticated
	}
	if err := s.store.Notifications().MarkOneRead(ctx, actor.UserID, id); err != nil {
		return err
	}
	s.counter.Invalidate(ctx, actor.UserID)
	return nil
}

func (s *notificationServiceImpl) UnreadCount(ctx context.Context, actor auth.Actor) (int, error) {
	if !actor.Authenticated() {
		return 0, nil
	}
	n, err := unreadCount(ctx, s.store, s.counter, actor.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Failed to count unread notifications")
		return 0, err
	}
	return n, nil
}

func (s *notificationServiceImpl) ClearRead(ctx context.Context, actor auth.Actor) (int64, error) {
	if !actor.Authenticated() {
		return 0, apperrors.ErrUnauthenticated
	}
	deleted, err := s.store.Notifications().DeleteRead(ctx, actor.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Failed to clear read notifications")
		return 0, err
	}
	s.logger.Debug().Int64("userID", actor.UserID).Int64("deleted", deleted).Msg("Cleared read notifications")
	return deleted, nil
}

// dispatchAfterCommit hands the outbox rows to the dispatcher once the transaction is done.
// Delivery is detached from the request context so a client hang-up does not cut it short.
func dispatchAfterCommit(ctx context.Context, d NotificationDispatcher, created []models.Notification) {
	if d == nil || len(created) == 0 {
		return
	}
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	d.Dispatch(dctx, created)
}
