package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *fakeMailer) SendNotification(toEmail, _, message, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, toEmail+": "+message)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeCounter struct {
	mu          sync.Mutex
	invalidated []int64
}

func (c *fakeCounter) Get(context.Context, int64) (int, int64, bool) { return 0, 0, false }
func (c *fakeCounter) Set(context.Context, int64, int64, int)        {}
func (c *fakeCounter) Invalidate(_ context.Context, userIDs ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userIDs...)
}

func TestLiveDispatcher_InvalidatesAndMails(t *testing.T) {
	e := newTestEnv(t)
	ana, _ := e.user(t, "ana", models.RoleVolunteer)
	bruno, _ := e.user(t, "bruno", models.RoleVolunteer)

	mailer := &fakeMailer{}
	counter := &fakeCounter{}
	m := metrics.New()
	d := NewLiveDispatcher(e.store, nil, counter, mailer, m, zerolog.Nop())

	d.Dispatch(context.Background(), []models.Notification{
		{ID: 1, RecipientID: ana.ID, Message: "one"},
		{ID: 2, RecipientID: ana.ID, Message: "two"},
		{ID: 3, RecipientID: bruno.ID, Message: "three"},
	})

	assert.Equal(t, []int64{ana.ID, bruno.ID}, counter.invalidated)
	require.Eventually(t, func() bool { return mailer.count() == 3 }, time.Second, 10*time.Millisecond)
	n, err := testutil.GatherAndCount(m.Registry(), "communitylink_notifications_created_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	expected := "# HELP communitylink_notifications_created_total Notifications appended to user outboxes.\n" +
		"# TYPE communitylink_notifications_created_total counter\n" +
		"communitylink_notifications_created_total 3\n"
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "communitylink_notifications_created_total"))
}

func TestLiveDispatcher_SkipsInactiveRecipients(t *testing.T) {
	e := newTestEnv(t)
	inactive := &models.User{Username: "gone", Email: "gone@example.org", Password: "x", RoleType: models.RoleVolunteer}
	require.NoError(t, e.store.Users().Create(context.Background(), inactive))

	mailer := &fakeMailer{}
	d := NewLiveDispatcher(e.store, nil, nil, mailer, nil, zerolog.Nop())
	d.Dispatch(context.Background(), []models.Notification{{ID: 1, RecipientID: inactive.ID, Message: "one"}})
	d.Dispatch(context.Background(), []models.Notification{{ID: 2, RecipientID: 9999, Message: "lost"}})

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, mailer.count())
}
