package relay

import (
	"context"
	"time"
)

// InboundFrame is a single frame received from a client. Every inbound
// frame is one JSON object; there is no batching and no sequence numbers.
type InboundFrame struct {
	Message string `json:"message"`
	UserID  uint   `json:"user_id"`
}

// OutboundFrame mirrors the inbound frame with the author's resolved
// username added.
type OutboundFrame struct {
	Message  string `json:"message"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

// ErrorFrame is pushed to the offending connection only, never broadcast.
type ErrorFrame struct {
	Error string `json:"error"`
}

// Message is a chat message after it has been persisted. The store owns
// it; the relay only requests creation.
type Message struct {
	ID        uint
	RoomID    string
	UserID    uint
	Content   string
	CreatedAt time.Time
}

// MessageStore persists chat messages. CreateMessage assigns the server
// timestamp; creation order per room matches broadcast order because the
// relay serializes publishes per room.
type MessageStore interface {
	CreateMessage(ctx context.Context, roomID string, userID uint, content string) (*Message, error)
}

// UserResolver maps a user id to its display name for outbound frames.
type UserResolver interface {
	Username(ctx context.Context, userID uint) (string, error)
}

// EventSink receives a copy of every persisted message after fan-out.
// Delivery is best-effort; sink failures never fail a publish.
type EventSink interface {
	MessageCreated(ctx context.Context, msg *Message, username string) error
}
