package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Relay coordinates join/leave/publish for chat rooms. Room membership is
// transient and tied to live connections only: a connection is registered
// if and only if it is open and has completed its join. The registry never
// holds an empty room.
//
// Locking discipline: r.mu guards the rooms and clientRoom maps; each
// room's mutex guards its member set and serializes the persist+fan-out
// sequence of a publish. r.mu is never held while a room mutex is being
// acquired, so a slow store call in one room never blocks another room.
// Fan-out under the room mutex only enqueues into each member's buffered
// send channel; network writes happen in the write pumps outside any lock.
type Relay struct {
	store  MessageStore
	users  UserResolver
	events EventSink
	logger *slog.Logger

	mu         sync.RWMutex
	rooms      map[string]*room
	clientRoom map[*Client]string
	closed     bool
}

type room struct {
	id string

	mu      sync.Mutex
	clients map[*Client]struct{}
	pruned  bool
}

func New(store MessageStore, users UserResolver, events EventSink, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		store:      store,
		users:      users,
		events:     events,
		logger:     logger,
		rooms:      make(map[string]*room),
		clientRoom: make(map[*Client]string),
	}
}

// Join registers the connection under roomID, creating the room entry if
// absent. A second join from a live connection fails with ErrAlreadyJoined;
// a connection belongs to exactly one room for its lifetime.
func (r *Relay) Join(c *Client, roomID string) error {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return ErrRoomUnavailable
		}
		if _, dup := r.clientRoom[c]; dup {
			r.mu.Unlock()
			return ErrAlreadyJoined
		}
		rm, ok := r.rooms[roomID]
		if !ok {
			rm = &room{id: roomID, clients: make(map[*Client]struct{})}
			r.rooms[roomID] = rm
		}
		r.mu.Unlock()

		rm.mu.Lock()
		if rm.pruned {
			// Lost a race with the last leave; the map entry is about to
			// disappear. Retry against a fresh room.
			rm.mu.Unlock()
			continue
		}
		rm.clients[c] = struct{}{}
		rm.mu.Unlock()

		r.mu.Lock()
		r.clientRoom[c] = roomID
		r.mu.Unlock()

		r.logger.Debug("client joined room", "clientID", c.id, "userID", c.userID, "roomID", roomID)
		return nil
	}
}

// Leave removes the connection from whatever room it is registered in.
// No-op if not currently registered. The last leave prunes the room entry.
func (r *Relay) Leave(c *Client) {
	r.mu.Lock()
	roomID, ok := r.clientRoom[c]
	if !ok {
		r.mu.Unlock()
		return
	}
	rm := r.rooms[roomID]
	delete(r.clientRoom, c)
	r.mu.Unlock()
	if rm == nil {
		return
	}

	rm.mu.Lock()
	delete(rm.clients, c)
	empty := len(rm.clients) == 0
	if empty {
		rm.pruned = true
	}
	rm.mu.Unlock()

	if empty {
		r.mu.Lock()
		if cur, ok := r.rooms[roomID]; ok && cur == rm {
			delete(r.rooms, roomID)
		}
		r.mu.Unlock()
	}

	r.logger.Debug("client left room", "clientID", c.id, "userID", c.userID, "roomID", roomID)
}

// Publish persists a message authored by the connection's user and fans it
// out to every current member of its room, the sender included. Persist
// and fan-out are serialized per room: no two publishes for the same room
// interleave, and the persisted order equals the broadcast order. A
// recipient whose send buffer is full or whose connection is gone is
// removed; delivery failures never fail the publish.
func (r *Relay) Publish(ctx context.Context, c *Client, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	r.mu.RLock()
	roomID, ok := r.clientRoom[c]
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok || rm == nil {
		return nil, ErrNotInRoom
	}

	rm.mu.Lock()
	if _, member := rm.clients[c]; !member {
		rm.mu.Unlock()
		return nil, ErrNotInRoom
	}
	msg, username, failed, err := r.persistAndFanOut(ctx, rm, c.userID, content)
	rm.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.dropFailed(failed)
	r.emit(ctx, msg, username)
	return msg, nil
}

// PublishTo publishes on behalf of a user addressed by room id rather than
// by live connection. Used by the REST send path so that REST and
// WebSocket publishers share the same per-room ordering. If the room has
// no live members the message is persisted without fan-out.
func (r *Relay) PublishTo(ctx context.Context, roomID string, userID uint, content string) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()

	if rm == nil {
		msg, err := r.store.CreateMessage(ctx, roomID, userID, content)
		if err != nil {
			return nil, fmt.Errorf("persist message: %w", err)
		}
		r.emit(ctx, msg, r.username(ctx, userID))
		return msg, nil
	}

	rm.mu.Lock()
	msg, username, failed, err := r.persistAndFanOut(ctx, rm, userID, content)
	rm.mu.Unlock()
	if err != nil {
		return nil, err
	}

	r.dropFailed(failed)
	r.emit(ctx, msg, username)
	return msg, nil
}

// persistAndFanOut runs the serialized section of a publish. The caller
// holds rm.mu. On store failure nothing is broadcast.
func (r *Relay) persistAndFanOut(ctx context.Context, rm *room, userID uint, content string) (*Message, string, []*Client, error) {
	msg, err := r.store.CreateMessage(ctx, rm.id, userID, content)
	if err != nil {
		return nil, "", nil, fmt.Errorf("persist message: %w", err)
	}

	username := r.username(ctx, userID)
	frame, err := json.Marshal(OutboundFrame{
		Message:  content,
		UserID:   userID,
		Username: username,
	})
	if err != nil {
		return nil, "", nil, fmt.Errorf("encode frame: %w", err)
	}

	var failed []*Client
	for member := range rm.clients {
		if !member.trySend(frame) {
			failed = append(failed, member)
		}
	}
	return msg, username, failed, nil
}

// dropFailed treats a failed push as an implicit leave for that recipient.
func (r *Relay) dropFailed(failed []*Client) {
	for _, c := range failed {
		r.logger.Warn("dropping unresponsive client", "clientID", c.id, "userID", c.userID)
		r.Leave(c)
		c.Close()
	}
}

// Members returns a snapshot of the connections currently joined to the
// room. Safe to iterate while other connections join or leave.
func (r *Relay) Members(roomID string) []*Client {
	r.mu.RLock()
	rm := r.rooms[roomID]
	r.mu.RUnlock()
	if rm == nil {
		return nil
	}

	rm.mu.Lock()
	members := make([]*Client, 0, len(rm.clients))
	for c := range rm.clients {
		members = append(members, c)
	}
	rm.mu.Unlock()
	return members
}

// Shutdown rejects further joins and closes every live connection.
func (r *Relay) Shutdown() {
	r.mu.Lock()
	r.closed = true
	clients := make([]*Client, 0, len(r.clientRoom))
	for c := range r.clientRoom {
		clients = append(clients, c)
	}
	r.rooms = make(map[string]*room)
	r.clientRoom = make(map[*Client]string)
	r.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	r.logger.Info("relay shut down", "connections", len(clients))
}

func (r *Relay) username(ctx context.Context, userID uint) string {
	name, err := r.users.Username(ctx, userID)
	if err != nil {
		r.logger.Warn("username lookup failed", "userID", userID, "error", err)
		return "Unknown User"
	}
	return name
}

func (r *Relay) emit(ctx context.Context, msg *Message, username string) {
	if r.events == nil {
		return
	}
	if err := r.events.MessageCreated(ctx, msg, username); err != nil {
		r.logger.Warn("message event publish failed", "roomID", msg.RoomID, "error", err)
	}
}
