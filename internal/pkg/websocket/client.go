package websocket

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// The feed is push only; peers send nothing but control frames
	maxMessageSize = 512

	sendBuffer = 64
)

// NewUpgrader builds the upgrader; an empty origin list accepts any origin
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
}

// Client is one open feed connection of a user. The hub owns send and closes
// it when the client is removed.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID int64
	logger zerolog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID int64, logger zerolog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		logger: logger.With().Int64("userID", userID).Logger(),
	}
}

// serve registers the client and starts its pumps
func (c *Client) serve() {
	if !c.hub.join(c) {
		c.conn.Close()
		return
	}
	go c.writeLoop()
	go c.readLoop()
}

// readLoop discards inbound frames so pong and close frames get processed.
// It ends the connection on the first read error.
func (c *Client) readLoop() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("Unexpected WebSocket close")
			} else {
				c.logger.Debug().Err(err).Msg("WebSocket closed")
			}
			return
		}
	}
}

// writeLoop sends every queued event as its own text frame and pings the peer
// every pingPeriod.
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.write(websocket.TextMessage, event); err != nil {
				c.logger.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(kind int, payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(kind, payload)
}
