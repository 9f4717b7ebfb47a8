package postgres

import (
	"context"

	"north-backend/internal/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListByRoom(ctx context.Context, roomID uint) ([]*models.ChatMessage, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListByRoom returns the room's messages ascending by creation time.
func (r *messageRepository) ListByRoom(ctx context.Context, roomID uint) ([]*models.ChatMessage, error) {
	var msgs []*models.ChatMessage
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}
