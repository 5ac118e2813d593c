package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Hub keeps the live connections of each user and pushes notification events to them
type Hub struct {
	// Registered clients organized by user ID
	clients map[int64]map[*Client]bool

	// Events waiting to be delivered
	deliver chan *Message

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex for concurrent access to clients map
	mu sync.RWMutex

	// Called with +1/-1 as connections come and go; may be nil
	onConnection func(delta int)

	// Closed when Run returns
	done chan struct{}

	logger zerolog.Logger
}

// Message is an event pushed to a user's open connections
type Message struct {
	// Type of event: "notification"
	Type string `json:"type"`

	// Recipient of the event, never serialized
	UserID int64 `json:"-"`

	// Notification ID from the database
	ID int64 `json:"id,omitempty"`

	Content string `json:"content"`

	Link string `json:"link,omitempty"`

	// Unread notifications of the recipient after this one
	Unread int `json:"unread"`

	Timestamp time.Time `json:"timestamp"`
}

// TypeNotification marks a new notification event
const TypeNotification = "notification"

const deliverBuffer = 256

// NewHub creates a new Hub instance
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		deliver:    make(chan *Message, deliverBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// ObserveConnections sets a callback told about every registered and removed
// connection. Call it before Run.
func (h *Hub) ObserveConnections(fn func(delta int)) {
	h.onConnection = fn
}

// Run handles registrations and deliveries until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.deliver:
			h.deliverMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true
	if h.onConnection != nil {
		h.onConnection(1)
	}

	h.logger.Debug().Int64("userID", client.userID).Msg("Client registered")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if h.onConnection != nil {
		h.onConnection(-1)
	}
	if len(clients) == 0 {
		delete(h.clients, client.userID)
	}
	h.logger.Debug().Int64("userID", client.userID).Msg("Client unregistered")
}

// deliverMessage writes the event to every connection of the recipient.
// Clients whose buffer is full are dropped.
func (h *Hub) deliverMessage(message *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[message.UserID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error().Err(err).Int64("userID", message.UserID).Msg("Failed to marshal event")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn().Int64("userID", message.UserID).Msg("Dropping slow websocket client")
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.clients {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// leave unregisters client unless the hub has already stopped
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// join registers client; it reports false once the hub has stopped
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// SendToUser queues an event for the recipient's connections without blocking
func (h *Hub) SendToUser(message *Message) {
	select {
	case h.deliver <- message:
	default:
		h.logger.Warn().Int64("userID", message.UserID).Msg("Event queue full, dropping live notification")
	}
}

// ClientsCount returns the number of open connections of a user
func (h *Hub) ClientsCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
