package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"north-backend/internal/models"
	"north-backend/internal/relay"
	"north-backend/internal/repositories/postgres"

	"gorm.io/gorm"
)

var (
	ErrRoomNotFound   = errors.New("chat room not found")
	ErrNotParticipant = errors.New("user is not a participant in this chat room")
)

// RoomService manages the durable side of chat: rooms, participants and
// message history. Live fan-out goes through the relay so REST and
// WebSocket publishers share the same per-room ordering.
type RoomService struct {
	rooms    postgres.RoomRepository
	messages postgres.MessageRepository
	users    postgres.UserRepository
	relay    *relay.Relay
}

func NewRoomService(rooms postgres.RoomRepository, messages postgres.MessageRepository, users postgres.UserRepository, r *relay.Relay) *RoomService {
	return &RoomService{
		rooms:    rooms,
		messages: messages,
		users:    users,
		relay:    r,
	}
}

// CreateRoom creates a room with the given participants. The creator is
// always a participant; unknown participant ids are skipped.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uint, req models.CreateRoomRequest) (*models.ChatRoom, error) {
	participants := []models.User{}
	seen := map[uint]bool{}
	for _, id := range append(req.ParticipantIDs, creatorID) {
		if seen[id] {
			continue
		}
		seen[id] = true
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		participants = append(participants, *user)
	}

	room := &models.ChatRoom{
		Name:         req.Name,
		Participants: participants,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}
	return room, nil
}

// ListRooms returns the rooms the user participates in, newest first.
func (s *RoomService) ListRooms(ctx context.Context, userID uint) ([]*models.ChatRoom, error) {
	return s.rooms.ListByParticipant(ctx, userID)
}

// GetRoom returns a room the user participates in, or ErrNotParticipant.
func (s *RoomService) GetRoom(ctx context.Context, roomID, userID uint) (*models.ChatRoom, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if !isParticipant(room, userID) {
		return nil, ErrNotParticipant
	}
	return room, nil
}

// CheckParticipant reports whether the user belongs to the room's durable
// participant list. Used before accepting a WebSocket join.
func (s *RoomService) CheckParticipant(ctx context.Context, roomID, userID uint) error {
	ok, err := s.rooms.IsParticipant(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

// SendMessage persists and fans out a message on behalf of a REST caller.
func (s *RoomService) SendMessage(ctx context.Context, roomID, userID uint, content string) (*models.MessageResponse, error) {
	if err := s.CheckParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}

	msg, err := s.relay.PublishTo(ctx, strconv.FormatUint(uint64(roomID), 10), userID, content)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := models.NewMessageResponse(&models.ChatMessage{
		ID:        msg.ID,
		RoomID:    roomID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}, user)
	return &resp, nil
}

// ListMessages returns the room's history ascending by creation time,
// participant-only.
func (s *RoomService) ListMessages(ctx context.Context, roomID, userID uint) ([]models.MessageResponse, error) {
	if err := s.CheckParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	out := make([]models.MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, models.NewMessageResponse(m, m.User))
	}
	return out, nil
}

// ListUsers returns every user except the caller, for building rooms.
func (s *RoomService) ListUsers(ctx context.Context, userID uint) ([]models.UserResponse, error) {
	users, err := s.users.ListExcept(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, models.NewUserResponse(u))
	}
	return out, nil
}

func isParticipant(room *models.ChatRoom, userID uint) bool {
	for i := range room.Participants {
		if room.Participants[i].ID == userID {
			return true
		}
	}
	return false
}
