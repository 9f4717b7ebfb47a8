package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	// Outbound buffer per connection. A member that falls this far behind
	// is treated as disconnected.
	sendBufferSize = 256
)

// Transport is the subset of *websocket.Conn the client needs. Narrowed
// to an interface so tests can substitute an in-memory connection.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one open bidirectional connection to a user. It belongs to at
// most one room at a time; its join, leave and publish calls are issued
// serially by its read pump.
type Client struct {
	id     string
	userID uint
	relay  *Relay
	conn   Transport
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(r *Relay, conn Transport, userID uint) *Client {
	return &Client{
		id:     uuid.New().String(),
		userID: userID,
		relay:  r,
		conn:   conn,
		logger: r.logger,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() uint {
	return c.userID
}

// trySend enqueues a frame without blocking. A full buffer or a closed
// client reports failure; the relay treats that as a transport error.
func (c *Client) trySend(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Close releases the connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// ReadPump reads inbound frames and publishes them until the connection
// drops. Leave always runs on the way out, explicit close or not, so the
// registry never keeps a stale fan-out target.
func (c *Client) ReadPump() {
	defer func() {
		c.relay.Leave(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "clientID", c.id, "error", err)
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.reportError("invalid message frame")
			continue
		}

		if _, err := c.relay.Publish(context.Background(), c, frame.Message); err != nil {
			switch err {
			case ErrEmptyContent, ErrNotInRoom:
				c.reportError(err.Error())
			default:
				c.logger.Error("publish failed", "clientID", c.id, "error", err)
				c.reportError("message could not be delivered")
			}
		}
	}
}

// WritePump drains the send buffer onto the wire and keeps the connection
// alive with pings. One writer per connection; gorilla allows a single
// concurrent writer.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// reportError pushes an error frame to this connection only.
func (c *Client) reportError(msg string) {
	frame, err := json.Marshal(ErrorFrame{Error: msg})
	if err != nil {
		return
	}
	c.trySend(frame)
}
