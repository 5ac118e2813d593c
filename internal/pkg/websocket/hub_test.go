package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)
	return h
}

func TestHub_DeliversToRecipientOnly(t *testing.T) {
	h := startHub(t)
	ana := &Client{hub: h, send: make(chan []byte, 4), userID: 1}
	bob := &Client{hub: h, send: make(chan []byte, 4), userID: 2}
	h.register <- ana
	h.register <- bob

	h.SendToUser(&Message{Type: TypeNotification, UserID: 1, ID: 10, Content: "hello", Unread: 3})

	select {
	case raw := <-ana.send:
		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "notification", got["type"])
		assert.Equal(t, "hello", got["content"])
		assert.EqualValues(t, 3, got["unread"])
		assert.NotContains(t, got, "UserID")
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Empty(t, bob.send)
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := startHub(t)
	slow := &Client{hub: h, send: make(chan []byte, 1), userID: 5}
	h.register <- slow
	require.Eventually(t, func() bool { return h.ClientsCount(5) == 1 }, time.Second, 10*time.Millisecond)

	h.SendToUser(&Message{UserID: 5, Content: "one"})
	h.SendToUser(&Message{UserID: 5, Content: "two"})

	assert.Eventually(t, func() bool { return h.ClientsCount(5) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_UnregisterClosesChannel(t *testing.T) {
	h := startHub(t)
	c := &Client{hub: h, send: make(chan []byte, 1), userID: 9}
	h.register <- c
	h.unregister <- c

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-c.send:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
