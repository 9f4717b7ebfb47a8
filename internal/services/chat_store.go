package services

import (
	"context"
	"fmt"
	"strconv"

	"north-backend/internal/models"
	"north-backend/internal/relay"
	"north-backend/internal/repositories/postgres"
)

// ChatStore backs the relay with the message and user repositories. Room
// ids cross the boundary as strings because the relay keys rooms by the
// identifier carried on the wire.
type ChatStore struct {
	messages postgres.MessageRepository
	users    postgres.UserRepository
}

func NewChatStore(messages postgres.MessageRepository, users postgres.UserRepository) *ChatStore {
	return &ChatStore{messages: messages, users: users}
}

func (s *ChatStore) CreateMessage(ctx context.Context, roomID string, userID uint, content string) (*relay.Message, error) {
	id, err := parseRoomID(roomID)
	if err != nil {
		return nil, err
	}

	msg := &models.ChatMessage{
		RoomID:  id,
		UserID:  userID,
		Content: content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	return &relay.Message{
		ID:        msg.ID,
		RoomID:    roomID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}, nil
}

func (s *ChatStore) Username(ctx context.Context, userID uint) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

func parseRoomID(roomID string) (uint, error) {
	id, err := strconv.ParseUint(roomID, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid room id %q: %w", roomID, err)
	}
	return uint(id), nil
}
