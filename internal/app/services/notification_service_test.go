package services

import (
	"context"
	"sync"
	"testing"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/communitylink/communitylink/internal/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotifications(t *testing.T, e *testEnv, recipientID int64, messages ...string) {
	t.Helper()
	for _, m := range messages {
		require.NoError(t, e.store.Notifications().Create(context.Background(), &models.Notification{RecipientID: recipientID, Message: m}))
	}
}

func TestNotifications_ListMarksDisplayedPageRead(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, actor := e.user(t, "ana", models.RoleVolunteer)
	seedNotifications(t, e, u.ID, "one", "two", "three")

	count, err := e.notifications.UnreadCount(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	page, err := e.notifications.List(ctx, actor, 1, 2, true)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, "three", page.Notifications[0].Message)
	assert.False(t, page.Notifications[0].IsRead, "rows are returned as they were before being displayed")
	assert.Equal(t, 1, page.UnreadCount)
	assert.Equal(t, 2, page.ReadCount)
	assert.Equal(t, int64(3), page.Pagination.TotalItems)

	count, err = e.notifications.UnreadCount(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	peek, err := e.notifications.List(ctx, actor, 2, 2, false)
	require.NoError(t, err)
	require.Len(t, peek.Notifications, 1)
	assert.False(t, peek.Notifications[0].IsRead)
}

func TestNotifications_MarkReadIsScopedToRecipient(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ana, anaActor := e.user(t, "ana", models.RoleVolunteer)
	_, bruno := e.user(t, "bruno", models.RoleVolunteer)
	seedNotifications(t, e, ana.ID, "hello")
	id := e.inbox(t, ana.ID)[0].ID

	err := e.notifications.MarkRead(ctx, bruno, id)
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)

	require.NoError(t, e.notifications.MarkRead(ctx, anaActor, id))
	assert.True(t, e.inbox(t, ana.ID)[0].IsRead)
}

func TestNotifications_ClearReadKeepsUnread(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, actor := e.user(t, "ana", models.RoleVolunteer)
	seedNotifications(t, e, u.ID, "old", "new")
	inbox := e.inbox(t, u.ID)
	require.NoError(t, e.notifications.MarkRead(ctx, actor, inbox[1].ID))

	deleted, err := e.notifications.ClearRead(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	left := e.inbox(t, u.ID)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].Message)
}

func TestNotifications_AnonymousActor(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	n, err := e.notifications.UnreadCount(ctx, auth.Actor{})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = e.notifications.List(ctx, auth.Actor{}, 1, 10, true)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestTruncateMessage(t *testing.T) {
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'é'
	}
	got := truncateMessage(string(long))
	assert.Equal(t, models.MaxMessageLength, len([]rune(got)))
	assert.Equal(t, "short", truncateMessage("short"))
}

// genCounter keeps counts in memory with the generation rule of the redis counter
type genCounter struct {
	mu     sync.Mutex
	counts map[int64]int
	gens   map[int64]int64
}

func newGenCounter() *genCounter {
	return &genCounter{counts: map[int64]int{}, gens: map[int64]int64{}}
}

func (c *genCounter) Get(_ context.Context, userID int64) (int, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[userID]
	return n, c.gens[userID], ok
}

func (c *genCounter) Set(_ context.Context, userID int64, gen int64, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] == gen {
		c.counts[userID] = count
	}
}

func (c *genCounter) Invalidate(_ context.Context, userIDs ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		c.gens[id]++
		delete(c.counts, id)
	}
}

// lateDelivery stores one more notification for the recipient right after the
// first unread count is read, as a dispatch running alongside would
type lateDelivery struct {
	repositories.NotificationStore
	counter cache.UnreadCounter
	once    sync.Once
}

func (l *lateDelivery) Count(ctx context.Context, recipientID int64, read *bool) (int, error) {
	n, err := l.NotificationStore.Count(ctx, recipientID, read)
	l.once.Do(func() {
		if cerr := l.NotificationStore.Create(ctx, &models.Notification{RecipientID: recipientID, Message: "late"}); cerr == nil {
			l.counter.Invalidate(ctx, recipientID)
		}
	})
	return n, err
}

type lateDeliveryStore struct {
	repositories.Store
	notifications *lateDelivery
}

func (s lateDeliveryStore) Notifications() repositories.NotificationStore { return s.notifications }

func TestUnreadCount_InvalidationDuringReadIsNotOverwritten(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, actor := e.user(t, "ana", models.RoleVolunteer)
	seedNotifications(t, e, u.ID, "one")

	counter := newGenCounter()
	store := lateDeliveryStore{Store: e.store, notifications: &lateDelivery{NotificationStore: e.store.Notifications(), counter: counter}}
	svc := NewNotificationService(store, counter, e.dispatcher, zerolog.Nop())

	n, err := svc.UnreadCount(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.UnreadCount(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cached, _, ok := counter.Get(ctx, u.ID)
	require.True(t, ok)
	assert.Equal(t, 2, cached)
}
